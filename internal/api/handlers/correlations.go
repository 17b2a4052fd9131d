package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/avidalm/cryptoanalyzer-go/internal/analytics"
	"github.com/avidalm/cryptoanalyzer-go/internal/collector"
	"github.com/avidalm/cryptoanalyzer-go/internal/config"
	"github.com/avidalm/cryptoanalyzer-go/internal/models"
)

// maxCorrelationSymbols bounds a matrix request.
const maxCorrelationSymbols = 20

// CorrelationsHandler serves the multi-asset correlation endpoints.
type CorrelationsHandler struct {
	market MarketData
	cfg    config.AnalysisConfig
	log    *logrus.Entry
}

func NewCorrelationsHandler(market MarketData, cfg config.AnalysisConfig, log *logrus.Logger) *CorrelationsHandler {
	return &CorrelationsHandler{
		market: market,
		cfg:    cfg,
		log:    log.WithField("handler", "correlations"),
	}
}

// MatrixRequest is the body of POST /correlations/matrix.
type MatrixRequest struct {
	Symbols   []string `json:"symbols" binding:"required"`
	Timeframe string   `json:"timeframe"`
}

// MatrixResponse pairs the correlation analysis with any symbols that could
// not be fetched.
type MatrixResponse struct {
	analytics.CorrelationMatrixResult
	Timeframe models.Timeframe  `json:"timeframe"`
	Failed    map[string]string `json:"failed_symbols,omitempty"`
}

// GetMatrix handles POST /correlations/matrix.
func (h *CorrelationsHandler) GetMatrix(c *gin.Context) {
	var req MatrixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "symbols list is required")
		return
	}
	if len(req.Symbols) < 2 {
		respondError(c, http.StatusBadRequest, "at least two symbols are required")
		return
	}
	if len(req.Symbols) > maxCorrelationSymbols {
		respondError(c, http.StatusBadRequest, "too many symbols, limit is 20")
		return
	}
	timeframe := models.ParseTimeframe(req.Timeframe)

	seriesBySymbol, failed := h.market.HistoryMany(c.Request.Context(), req.Symbols, timeframe)
	if len(seriesBySymbol) < 2 {
		respondError(c, http.StatusBadGateway, "could not fetch enough symbols for a correlation matrix")
		return
	}

	prices := make(map[string][]float64, len(seriesBySymbol))
	for symbol, series := range seriesBySymbol {
		prices[symbol] = series.Closes()
	}

	response := MatrixResponse{
		CorrelationMatrixResult: analytics.CorrelationMatrix(prices),
		Timeframe:               timeframe,
	}
	response.Failed = errorStrings(failed)
	respond(c, response)
}

// HeatmapResponse is the correlation matrix laid out as an ordered grid,
// ready for client-side heatmap rendering.
type HeatmapResponse struct {
	Symbols   []string          `json:"symbols"`
	Grid      [][]float64       `json:"grid"`
	Timeframe models.Timeframe  `json:"timeframe"`
	Failed    map[string]string `json:"failed_symbols,omitempty"`
}

// GetHeatmap handles GET /correlations/heatmap?symbols=BTC,ETH,SPY. Row and
// column order follow the symbols slice.
func (h *CorrelationsHandler) GetHeatmap(c *gin.Context) {
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
	if len(symbols) > maxCorrelationSymbols {
		respondError(c, http.StatusBadRequest, "too many symbols, limit is 20")
		return
	}
	timeframe := models.ParseTimeframe(c.DefaultQuery("timeframe", h.cfg.DefaultTimeframe))

	seriesBySymbol, failed := h.market.HistoryMany(c.Request.Context(), symbols, timeframe)
	if len(seriesBySymbol) < 2 {
		respondError(c, http.StatusBadGateway, "could not fetch enough symbols for a heatmap")
		return
	}
	prices := make(map[string][]float64, len(seriesBySymbol))
	for symbol, series := range seriesBySymbol {
		prices[symbol] = series.Closes()
	}
	matrix := analytics.CorrelationMatrix(prices).Matrix

	var fetched []string
	for _, symbol := range symbols {
		if _, ok := seriesBySymbol[symbol]; ok {
			fetched = append(fetched, symbol)
		}
	}
	grid := make([][]float64, len(fetched))
	for i, rowSymbol := range fetched {
		grid[i] = make([]float64, len(fetched))
		for j, colSymbol := range fetched {
			grid[i][j] = matrix[rowSymbol][colSymbol]
		}
	}

	respond(c, HeatmapResponse{
		Symbols:   fetched,
		Grid:      grid,
		Timeframe: timeframe,
		Failed:    errorStrings(failed),
	})
}

// GetPairwise handles GET /correlations/pairwise/:symbol1/:symbol2.
func (h *CorrelationsHandler) GetPairwise(c *gin.Context) {
	symbol1 := collector.NormalizeSymbol(c.Param("symbol1"))
	symbol2 := collector.NormalizeSymbol(c.Param("symbol2"))
	if symbol1 == symbol2 {
		respondError(c, http.StatusBadRequest, "symbols must differ")
		return
	}
	timeframe := models.ParseTimeframe(c.DefaultQuery("timeframe", h.cfg.DefaultTimeframe))

	prices1, prices2, ok := h.fetchPair(c, symbol1, symbol2, timeframe)
	if !ok {
		return
	}
	respond(c, analytics.PairwiseCorrelation(symbol1, symbol2, prices1, prices2))
}

// RollingResponse is the rolling correlation series of one pair.
type RollingResponse struct {
	Symbol1   string           `json:"symbol1"`
	Symbol2   string           `json:"symbol2"`
	Timeframe models.Timeframe `json:"timeframe"`
	Window    int              `json:"window"`
	Values    []float64        `json:"values"`
}

// GetRolling handles GET /correlations/rolling/:symbol1/:symbol2.
func (h *CorrelationsHandler) GetRolling(c *gin.Context) {
	symbol1 := collector.NormalizeSymbol(c.Param("symbol1"))
	symbol2 := collector.NormalizeSymbol(c.Param("symbol2"))
	timeframe := models.ParseTimeframe(c.DefaultQuery("timeframe", string(models.TimeframeNinetyDays)))

	window := h.cfg.CorrelationWindow
	if raw := c.Query("window"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 2 {
			respondError(c, http.StatusBadRequest, "window must be an integer >= 2")
			return
		}
		window = parsed
	}

	prices1, prices2, ok := h.fetchPair(c, symbol1, symbol2, timeframe)
	if !ok {
		return
	}
	rolling := analytics.RollingCorrelation(prices1, prices2, window)
	respond(c, RollingResponse{
		Symbol1:   symbol1,
		Symbol2:   symbol2,
		Timeframe: timeframe,
		Window:    window,
		Values:    rolling,
	})
}

// StabilityResponse wraps the stability analysis of one pair.
type StabilityResponse struct {
	Symbol1   string                               `json:"symbol1"`
	Symbol2   string                               `json:"symbol2"`
	Timeframe models.Timeframe                     `json:"timeframe"`
	Stability analytics.CorrelationStabilityResult `json:"stability"`
}

// GetStability handles GET /correlations/stability/:symbol1/:symbol2.
func (h *CorrelationsHandler) GetStability(c *gin.Context) {
	symbol1 := collector.NormalizeSymbol(c.Param("symbol1"))
	symbol2 := collector.NormalizeSymbol(c.Param("symbol2"))
	timeframe := models.ParseTimeframe(c.DefaultQuery("timeframe", string(models.TimeframeOneYear)))

	prices1, prices2, ok := h.fetchPair(c, symbol1, symbol2, timeframe)
	if !ok {
		return
	}
	respond(c, StabilityResponse{
		Symbol1:   symbol1,
		Symbol2:   symbol2,
		Timeframe: timeframe,
		Stability: analytics.CorrelationStability(prices1, prices2, h.cfg.CorrelationWindow),
	})
}

func (h *CorrelationsHandler) fetchPair(c *gin.Context, symbol1, symbol2 string, timeframe models.Timeframe) ([]float64, []float64, bool) {
	series1, err := h.market.History(c.Request.Context(), symbol1, timeframe)
	if err != nil {
		respondUpstreamError(c, err)
		return nil, nil, false
	}
	series2, err := h.market.History(c.Request.Context(), symbol2, timeframe)
	if err != nil {
		respondUpstreamError(c, err)
		return nil, nil, false
	}
	return series1.Closes(), series2.Closes(), true
}
