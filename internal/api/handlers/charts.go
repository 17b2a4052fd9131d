package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/avidalm/cryptoanalyzer-go/internal/analytics"
	"github.com/avidalm/cryptoanalyzer-go/internal/charts"
	"github.com/avidalm/cryptoanalyzer-go/internal/collector"
	"github.com/avidalm/cryptoanalyzer-go/internal/config"
	"github.com/avidalm/cryptoanalyzer-go/internal/models"
)

// ChartsHandler serves rendered PNG charts.
type ChartsHandler struct {
	market MarketData
	cfg    config.AnalysisConfig
	log    *logrus.Entry
}

func NewChartsHandler(market MarketData, cfg config.AnalysisConfig, log *logrus.Logger) *ChartsHandler {
	return &ChartsHandler{
		market: market,
		cfg:    cfg,
		log:    log.WithField("handler", "charts"),
	}
}

func (h *ChartsHandler) servePNG(c *gin.Context, img []byte, err error) {
	if err != nil {
		if errors.Is(err, charts.ErrNotEnoughData) {
			respondError(c, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.log.WithError(err).Error("chart render failed")
		respondError(c, http.StatusInternalServerError, "chart rendering failed")
		return
	}
	c.Data(http.StatusOK, "image/png", img)
}

// GetPriceChart handles GET /charts/price/:symbol.
func (h *ChartsHandler) GetPriceChart(c *gin.Context) {
	symbol := collector.NormalizeSymbol(c.Param("symbol"))
	timeframe := models.ParseTimeframe(c.DefaultQuery("timeframe", h.cfg.DefaultTimeframe))

	series, err := h.market.History(c.Request.Context(), symbol, timeframe)
	if err != nil {
		respondUpstreamError(c, err)
		return
	}
	img, err := charts.PriceChart(series)
	h.servePNG(c, img, err)
}

// GetIndicatorChart handles GET /charts/indicators/:symbol.
func (h *ChartsHandler) GetIndicatorChart(c *gin.Context) {
	symbol := collector.NormalizeSymbol(c.Param("symbol"))
	timeframe := models.ParseTimeframe(c.DefaultQuery("timeframe", string(models.TimeframeOneYear)))

	series, err := h.market.History(c.Request.Context(), symbol, timeframe)
	if err != nil {
		respondUpstreamError(c, err)
		return
	}
	img, err := charts.IndicatorChart(series)
	h.servePNG(c, img, err)
}

// GetComparisonChart handles GET /charts/compare?symbols=BTC,ETH,SPY.
func (h *ChartsHandler) GetComparisonChart(c *gin.Context) {
	raw := c.Query("symbols")
	if raw == "" {
		respondError(c, http.StatusBadRequest, "symbols parameter is required")
		return
	}
	var symbols []string
	for _, s := range strings.Split(raw, ",") {
		if s = collector.NormalizeSymbol(s); s != "" {
			symbols = append(symbols, s)
		}
	}
	if len(symbols) < 2 {
		respondError(c, http.StatusBadRequest, "at least two symbols are required")
		return
	}
	timeframe := models.ParseTimeframe(c.DefaultQuery("timeframe", h.cfg.DefaultTimeframe))

	seriesBySymbol, failed := h.market.HistoryMany(c.Request.Context(), symbols, timeframe)
	for _, symbol := range symbols {
		if err, ok := failed[symbol]; ok {
			respondUpstreamError(c, err)
			return
		}
	}
	img, err := charts.ComparisonChart(seriesBySymbol, symbols)
	h.servePNG(c, img, err)
}

// GetCorrelationChart handles GET /charts/correlation/:symbol1/:symbol2.
func (h *ChartsHandler) GetCorrelationChart(c *gin.Context) {
	symbol1 := collector.NormalizeSymbol(c.Param("symbol1"))
	symbol2 := collector.NormalizeSymbol(c.Param("symbol2"))
	timeframe := models.ParseTimeframe(c.DefaultQuery("timeframe", string(models.TimeframeOneYear)))

	series1, err := h.market.History(c.Request.Context(), symbol1, timeframe)
	if err != nil {
		respondUpstreamError(c, err)
		return
	}
	series2, err := h.market.History(c.Request.Context(), symbol2, timeframe)
	if err != nil {
		respondUpstreamError(c, err)
		return
	}

	rolling := analytics.RollingCorrelation(series1.Closes(), series2.Closes(), h.cfg.CorrelationWindow)
	img, err := charts.RollingCorrelationChart(symbol1, symbol2, rolling)
	h.servePNG(c, img, err)
}
