package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/avidalm/cryptoanalyzer-go/internal/collector"
	"github.com/avidalm/cryptoanalyzer-go/internal/config"
	"github.com/avidalm/cryptoanalyzer-go/internal/models"
)

// AssetsHandler serves raw market data endpoints.
type AssetsHandler struct {
	market MarketData
	cfg    config.AnalysisConfig
	log    *logrus.Entry
}

func NewAssetsHandler(market MarketData, cfg config.AnalysisConfig, log *logrus.Logger) *AssetsHandler {
	return &AssetsHandler{
		market: market,
		cfg:    cfg,
		log:    log.WithField("handler", "assets"),
	}
}

// SupportedResponse lists the explicitly mapped symbols.
type SupportedResponse struct {
	Assets []collector.AssetInfo `json:"assets"`
	Count  int                   `json:"count"`
}

// GetSupported handles GET /assets/supported.
func (h *AssetsHandler) GetSupported(c *gin.Context) {
	assets := collector.SupportedAssets()
	respond(c, SupportedResponse{Assets: assets, Count: len(assets)})
}

// GetPrice handles GET /assets/price/:symbol.
func (h *AssetsHandler) GetPrice(c *gin.Context) {
	symbol := collector.NormalizeSymbol(c.Param("symbol"))
	quote, err := h.market.Quote(c.Request.Context(), symbol)
	if err != nil {
		respondUpstreamError(c, err)
		return
	}
	respond(c, quote)
}

// GetHistory handles GET /assets/history/:symbol.
func (h *AssetsHandler) GetHistory(c *gin.Context) {
	symbol := collector.NormalizeSymbol(c.Param("symbol"))
	timeframe := models.ParseTimeframe(c.DefaultQuery("timeframe", h.cfg.DefaultTimeframe))

	series, err := h.market.History(c.Request.Context(), symbol, timeframe)
	if err != nil {
		respondUpstreamError(c, err)
		return
	}
	respond(c, series)
}

// GetSummary handles GET /assets/summary/:symbol.
func (h *AssetsHandler) GetSummary(c *gin.Context) {
	symbol := collector.NormalizeSymbol(c.Param("symbol"))
	summary, err := h.market.Summary(c.Request.Context(), symbol)
	if err != nil {
		respondUpstreamError(c, err)
		return
	}
	respond(c, summary)
}
