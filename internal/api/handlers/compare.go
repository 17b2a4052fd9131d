package handlers

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/avidalm/cryptoanalyzer-go/internal/analytics"
	"github.com/avidalm/cryptoanalyzer-go/internal/collector"
	"github.com/avidalm/cryptoanalyzer-go/internal/models"
)

// CompareRequest is the body of the multi-symbol analysis endpoints. The
// indicators list is only consulted by the technical comparison.
type CompareRequest struct {
	Symbols    []string `json:"symbols" binding:"required"`
	Timeframe  string   `json:"timeframe"`
	Indicators []string `json:"indicators"`
}

// SymbolPerformance is one asset's row in a performance comparison.
type SymbolPerformance struct {
	Symbol           string  `json:"symbol"`
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	Volatility       float64 `json:"volatility"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	MaxDrawdown      float64 `json:"max_drawdown"`
}

// ComparePerformanceResponse ranks assets by total return.
type ComparePerformanceResponse struct {
	Timeframe models.Timeframe    `json:"timeframe"`
	Assets    []SymbolPerformance `json:"assets"`
	Best      string              `json:"best_performer"`
	Worst     string              `json:"worst_performer"`
	Failed    map[string]string   `json:"failed_symbols,omitempty"`
}

// ComparePerformance handles POST /analysis/performance.
func (h *AnalysisHandler) ComparePerformance(c *gin.Context) {
	req, seriesBySymbol, failed, ok := h.fetchMany(c)
	if !ok {
		return
	}
	timeframe := models.ParseTimeframe(req.Timeframe)

	response := ComparePerformanceResponse{Timeframe: timeframe}
	for symbol, series := range seriesBySymbol {
		closes := series.Closes()
		returns := analytics.Returns(closes)
		response.Assets = append(response.Assets, SymbolPerformance{
			Symbol:           symbol,
			TotalReturn:      analytics.TotalReturn(closes),
			AnnualizedReturn: analytics.AnnualizedReturn(returns, analytics.TradingDaysPerYear) * 100,
			Volatility:       analytics.Volatility(returns),
			SharpeRatio:      analytics.SharpeRatio(returns, h.cfg.RiskFreeRate),
			MaxDrawdown:      analytics.MaxDrawdown(closes),
		})
	}
	sort.Slice(response.Assets, func(i, j int) bool {
		return response.Assets[i].TotalReturn > response.Assets[j].TotalReturn
	})
	if len(response.Assets) > 0 {
		response.Best = response.Assets[0].Symbol
		response.Worst = response.Assets[len(response.Assets)-1].Symbol
	}
	response.Failed = errorStrings(failed)
	respond(c, response)
}

// SymbolVolatility is one asset's row in a volatility comparison.
type SymbolVolatility struct {
	Symbol          string                           `json:"symbol"`
	Volatility      float64                          `json:"volatility"`
	GARCHVolatility float64                          `json:"garch_volatility"`
	Regime          analytics.VolatilityRegimeResult `json:"regime"`
}

// CompareVolatilityResponse ranks assets by volatility and aggregates their
// market regimes.
type CompareVolatilityResponse struct {
	Timeframe    models.Timeframe               `json:"timeframe"`
	Assets       []SymbolVolatility             `json:"assets"`
	MostVolatile string                         `json:"most_volatile"`
	Calmest      string                         `json:"least_volatile"`
	Market       analytics.MarketOverviewResult `json:"market_overview"`
	Failed       map[string]string              `json:"failed_symbols,omitempty"`
}

// CompareVolatility handles POST /analysis/volatility.
func (h *AnalysisHandler) CompareVolatility(c *gin.Context) {
	req, seriesBySymbol, failed, ok := h.fetchMany(c)
	if !ok {
		return
	}
	timeframe := models.ParseTimeframe(req.Timeframe)

	response := CompareVolatilityResponse{Timeframe: timeframe}
	regimes := make(map[string]analytics.MarketRegimeResult, len(seriesBySymbol))
	for symbol, series := range seriesBySymbol {
		closes := series.Closes()
		returns := analytics.Returns(closes)
		response.Assets = append(response.Assets, SymbolVolatility{
			Symbol:          symbol,
			Volatility:      analytics.Volatility(returns),
			GARCHVolatility: analytics.GARCHVolatility(returns),
			Regime:          analytics.ClassifyVolatilityRegime(returns),
		})
		regimes[symbol] = analytics.AssessMarketRegime(closes)
	}
	sort.Slice(response.Assets, func(i, j int) bool {
		return response.Assets[i].Volatility > response.Assets[j].Volatility
	})
	if len(response.Assets) > 0 {
		response.MostVolatile = response.Assets[0].Symbol
		response.Calmest = response.Assets[len(response.Assets)-1].Symbol
	}
	response.Market = analytics.MarketOverview(regimes)
	response.Failed = errorStrings(failed)
	respond(c, response)
}

// SymbolTechnical is one asset's row in a technical comparison.
type SymbolTechnical struct {
	Symbol       string                      `json:"symbol"`
	CurrentPrice float64                     `json:"current_price"`
	Signals      map[string]analytics.Signal `json:"signals"`
	Overall      analytics.Signal            `json:"overall_signal"`
	Sentiment    analytics.SentimentResult   `json:"sentiment"`
}

// CompareTechnicalResponse carries signals and sentiment for several assets.
type CompareTechnicalResponse struct {
	Timeframe models.Timeframe  `json:"timeframe"`
	Assets    []SymbolTechnical `json:"assets"`
	Bullish   []string          `json:"bullish"`
	Bearish   []string          `json:"bearish"`
	Failed    map[string]string `json:"failed_symbols,omitempty"`
}

// CompareTechnical handles POST /analysis/technical.
func (h *AnalysisHandler) CompareTechnical(c *gin.Context) {
	req, seriesBySymbol, failed, ok := h.fetchMany(c)
	if !ok {
		return
	}
	timeframe := models.ParseTimeframe(req.Timeframe)

	response := CompareTechnicalResponse{Timeframe: timeframe}
	for symbol, series := range seriesBySymbol {
		closes := series.Closes()
		signals, err := analytics.GenerateSignals(closes, req.Indicators)
		if err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		volumes := make([]float64, len(series.Points))
		for i, p := range series.Points {
			volumes[i] = p.Volume
		}

		row := SymbolTechnical{
			Symbol:    symbol,
			Signals:   signals,
			Overall:   analytics.OverallSignal(signals),
			Sentiment: analytics.AssessSentiment(closes, volumes),
		}
		if len(closes) > 0 {
			row.CurrentPrice = closes[len(closes)-1]
		}
		response.Assets = append(response.Assets, row)

		switch row.Overall.Label {
		case analytics.SignalBullish:
			response.Bullish = append(response.Bullish, symbol)
		case analytics.SignalBearish:
			response.Bearish = append(response.Bearish, symbol)
		}
	}
	sort.Slice(response.Assets, func(i, j int) bool {
		return response.Assets[i].Symbol < response.Assets[j].Symbol
	})
	sort.Strings(response.Bullish)
	sort.Strings(response.Bearish)
	response.Failed = errorStrings(failed)
	respond(c, response)
}

// SymbolTrend is one asset's row in a multi-asset trend summary.
type SymbolTrend struct {
	Symbol string                       `json:"symbol"`
	Trend  analytics.TrendAnalysis      `json:"trend"`
	Regime analytics.MarketRegimeResult `json:"regime"`
}

// TrendsResponse combines per-asset trends with the cross-asset regime vote.
type TrendsResponse struct {
	Timeframe models.Timeframe               `json:"timeframe"`
	Assets    []SymbolTrend                  `json:"assets"`
	Market    analytics.MarketOverviewResult `json:"market_overview"`
	Failed    map[string]string              `json:"failed_symbols,omitempty"`
}

// GetTrends handles GET /analysis/trends. Symbols come from a comma
// separated query parameter.
func (h *AnalysisHandler) GetTrends(c *gin.Context) {
	symbols := splitSymbols(c.Query("symbols"))
	if len(symbols) == 0 {
		respondError(c, http.StatusBadRequest, "symbols query parameter is required")
		return
	}
	if len(symbols) > maxCorrelationSymbols {
		respondError(c, http.StatusBadRequest, "too many symbols, limit is 20")
		return
	}
	timeframe := models.ParseTimeframe(c.DefaultQuery("timeframe", string(models.TimeframeNinetyDays)))

	seriesBySymbol, failed := h.market.HistoryMany(c.Request.Context(), symbols, timeframe)
	if len(seriesBySymbol) == 0 {
		respondError(c, http.StatusBadGateway, "no symbols could be fetched")
		return
	}

	response := TrendsResponse{Timeframe: timeframe}
	regimes := make(map[string]analytics.MarketRegimeResult, len(seriesBySymbol))
	for symbol, series := range seriesBySymbol {
		closes := series.Closes()
		regime := analytics.AssessMarketRegime(closes)
		regimes[symbol] = regime
		response.Assets = append(response.Assets, SymbolTrend{
			Symbol: symbol,
			Trend:  analytics.AnalyzeTrend(closes, nil),
			Regime: regime,
		})
	}
	sort.Slice(response.Assets, func(i, j int) bool {
		return response.Assets[i].Symbol < response.Assets[j].Symbol
	})
	response.Market = analytics.MarketOverview(regimes)
	response.Failed = errorStrings(failed)
	respond(c, response)
}

// fetchMany binds a CompareRequest and fetches history for every symbol. A
// false return means the response is already written.
func (h *AnalysisHandler) fetchMany(c *gin.Context) (CompareRequest, map[string]*models.PriceSeries, map[string]error, bool) {
	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "symbols list is required")
		return req, nil, nil, false
	}
	if len(req.Symbols) == 0 {
		respondError(c, http.StatusBadRequest, "at least one symbol is required")
		return req, nil, nil, false
	}
	if len(req.Symbols) > maxCorrelationSymbols {
		respondError(c, http.StatusBadRequest, "too many symbols, limit is 20")
		return req, nil, nil, false
	}

	seriesBySymbol, failed := h.market.HistoryMany(c.Request.Context(), req.Symbols, models.ParseTimeframe(req.Timeframe))
	if len(seriesBySymbol) == 0 {
		respondError(c, http.StatusBadGateway, "no symbols could be fetched")
		return req, nil, nil, false
	}
	return req, seriesBySymbol, failed, true
}

// splitSymbols parses a comma separated symbol list, dropping empties.
func splitSymbols(raw string) []string {
	var symbols []string
	for _, s := range strings.Split(raw, ",") {
		if s = collector.NormalizeSymbol(s); s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols
}

func errorStrings(failed map[string]error) map[string]string {
	if len(failed) == 0 {
		return nil
	}
	out := make(map[string]string, len(failed))
	for symbol, err := range failed {
		out[symbol] = err.Error()
	}
	return out
}
