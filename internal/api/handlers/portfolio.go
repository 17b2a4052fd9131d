package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/avidalm/cryptoanalyzer-go/internal/analytics"
	"github.com/avidalm/cryptoanalyzer-go/internal/collector"
	"github.com/avidalm/cryptoanalyzer-go/internal/config"
	"github.com/avidalm/cryptoanalyzer-go/internal/models"
)

// PortfolioHandler serves the portfolio analysis endpoints.
type PortfolioHandler struct {
	market MarketData
	cfg    config.AnalysisConfig
	log    *logrus.Entry
}

func NewPortfolioHandler(market MarketData, cfg config.AnalysisConfig, log *logrus.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		market: market,
		cfg:    cfg,
		log:    log.WithField("handler", "portfolio"),
	}
}

// PositionRequest is one holding in a portfolio request body.
type PositionRequest struct {
	Symbol   string          `json:"symbol" binding:"required"`
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
	AvgCost  decimal.Decimal `json:"avg_cost" binding:"required"`
}

func parsePositions(requests []PositionRequest) ([]models.Position, error) {
	if len(requests) == 0 {
		return nil, fmt.Errorf("at least one position is required")
	}
	positions := make([]models.Position, 0, len(requests))
	for _, r := range requests {
		symbol := collector.NormalizeSymbol(r.Symbol)
		if symbol == "" {
			return nil, fmt.Errorf("position symbol must not be empty")
		}
		if !r.Quantity.IsPositive() {
			return nil, fmt.Errorf("quantity for %s must be positive", symbol)
		}
		if !r.AvgCost.IsPositive() {
			return nil, fmt.Errorf("avg_cost for %s must be positive", symbol)
		}
		positions = append(positions, models.Position{
			Symbol:   symbol,
			Quantity: r.Quantity,
			AvgCost:  r.AvgCost,
		})
	}
	return positions, nil
}

func symbolsOf(positions []models.Position) []string {
	symbols := make([]string, 0, len(positions))
	for _, p := range positions {
		symbols = append(symbols, p.Symbol)
	}
	return symbols
}

// AnalyzeRequest is the body of POST /portfolio/analyze.
type AnalyzeRequest struct {
	Positions []PositionRequest `json:"positions" binding:"required"`
	Timeframe string            `json:"timeframe"`
	Benchmark string            `json:"benchmark"`
}

// AnalyzeResponse pairs the metrics with the portfolio loss profile and
// fetch diagnostics.
type AnalyzeResponse struct {
	analytics.PortfolioMetricsResult
	VaR       analytics.PortfolioVaRResult `json:"var_analysis"`
	Timeframe models.Timeframe             `json:"timeframe"`
	Failed    map[string]string            `json:"failed_symbols,omitempty"`
}

// Analyze handles POST /portfolio/analyze. Current prices come from quotes;
// history drives the performance and risk statistics.
func (h *PortfolioHandler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "positions list is required")
		return
	}
	positions, err := parsePositions(req.Positions)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	timeframe := models.ParseTimeframe(req.Timeframe)
	ctx := c.Request.Context()

	seriesBySymbol, failed := h.market.HistoryMany(ctx, symbolsOf(positions), timeframe)
	historical := make(map[string][]float64, len(seriesBySymbol))
	currentPrices := make(map[string]float64, len(seriesBySymbol))
	for symbol, series := range seriesBySymbol {
		closes := series.Closes()
		historical[symbol] = closes
		if len(closes) > 0 {
			currentPrices[symbol] = closes[len(closes)-1]
		}
	}
	for _, symbol := range symbolsOf(positions) {
		if _, ok := currentPrices[symbol]; ok {
			continue
		}
		if quote, err := h.market.Quote(ctx, symbol); err == nil {
			currentPrices[symbol] = quote.Price
		}
	}

	var benchmark []float64
	if req.Benchmark != "" {
		benchSeries, err := h.market.History(ctx, collector.NormalizeSymbol(req.Benchmark), timeframe)
		if err != nil {
			respondUpstreamError(c, err)
			return
		}
		benchmark = benchSeries.Closes()
	}

	weights := make(map[string]float64, len(positions))
	for _, pos := range positions {
		weights[pos.Symbol] += pos.CostBasis().InexactFloat64()
	}

	response := AnalyzeResponse{
		PortfolioMetricsResult: analytics.PortfolioMetrics(positions, currentPrices, historical, benchmark),
		VaR:                    analytics.PortfolioVaR(weights, historical),
		Timeframe:              timeframe,
	}
	response.Failed = errorStrings(failed)
	respond(c, response)
}

// OptimizeRequest is the body of POST /portfolio/optimize.
type OptimizeRequest struct {
	Symbols       []string `json:"symbols" binding:"required"`
	RiskTolerance string   `json:"risk_tolerance"`
	TotalValue    float64  `json:"total_value"`
	Timeframe     string   `json:"timeframe"`
}

// Optimize handles POST /portfolio/optimize.
func (h *PortfolioHandler) Optimize(c *gin.Context) {
	var req OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "symbols list is required")
		return
	}
	if len(req.Symbols) < 2 {
		respondError(c, http.StatusBadRequest, "at least two symbols are required")
		return
	}
	if req.RiskTolerance == "" {
		req.RiskTolerance = analytics.RiskModerate
	}
	if req.TotalValue <= 0 {
		respondError(c, http.StatusBadRequest, "total_value must be positive")
		return
	}
	timeframe := models.ParseTimeframe(req.Timeframe)

	seriesBySymbol, failed := h.market.HistoryMany(c.Request.Context(), req.Symbols, timeframe)
	if len(seriesBySymbol) < 2 {
		respondError(c, http.StatusBadGateway, "could not fetch enough symbols to optimize")
		return
	}
	historical := make(map[string][]float64, len(seriesBySymbol))
	for symbol, series := range seriesBySymbol {
		historical[symbol] = series.Closes()
	}

	result, err := analytics.OptimizeAllocation(historical, req.RiskTolerance, req.TotalValue)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if len(failed) > 0 {
		h.log.WithField("failed", len(failed)).Warn("optimization ran without some symbols")
	}
	respond(c, result)
}

// RebalanceRequest is the body of POST /portfolio/rebalance.
type RebalanceRequest struct {
	Positions []PositionRequest  `json:"positions" binding:"required"`
	Targets   map[string]float64 `json:"target_allocations" binding:"required"`
}

// Rebalance handles POST /portfolio/rebalance.
func (h *PortfolioHandler) Rebalance(c *gin.Context) {
	var req RebalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "positions and target_allocations are required")
		return
	}
	positions, err := parsePositions(req.Positions)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Targets) == 0 {
		respondError(c, http.StatusBadRequest, "target_allocations must not be empty")
		return
	}

	targets := make(map[string]float64, len(req.Targets))
	for symbol, pct := range req.Targets {
		targets[collector.NormalizeSymbol(symbol)] = pct
	}

	ctx := c.Request.Context()
	currentPrices := make(map[string]float64)
	for _, symbol := range append(symbolsOf(positions), mapKeys(targets)...) {
		if _, ok := currentPrices[symbol]; ok {
			continue
		}
		quote, err := h.market.Quote(ctx, symbol)
		if err != nil {
			h.log.WithError(err).WithField("symbol", symbol).Warn("quote fetch failed, using cost basis")
			continue
		}
		currentPrices[symbol] = quote.Price
	}

	result, err := analytics.Rebalance(positions, currentPrices, targets)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	respond(c, result)
}

func mapKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
