package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/avidalm/cryptoanalyzer-go/internal/analytics"
	"github.com/avidalm/cryptoanalyzer-go/internal/collector"
	"github.com/avidalm/cryptoanalyzer-go/internal/config"
	"github.com/avidalm/cryptoanalyzer-go/internal/models"
)

// AnalysisHandler serves the per-asset analytics endpoints.
type AnalysisHandler struct {
	market MarketData
	cfg    config.AnalysisConfig
	log    *logrus.Entry
}

func NewAnalysisHandler(market MarketData, cfg config.AnalysisConfig, log *logrus.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		market: market,
		cfg:    cfg,
		log:    log.WithField("handler", "analysis"),
	}
}

// PerformanceResponse summarizes how an asset performed over a timeframe.
type PerformanceResponse struct {
	Symbol           string           `json:"symbol"`
	AssetType        models.AssetType `json:"asset_type"`
	Timeframe        models.Timeframe `json:"timeframe"`
	CurrentPrice     float64          `json:"current_price"`
	StartPrice       float64          `json:"start_price"`
	TotalReturn      float64          `json:"total_return"`
	AnnualizedReturn float64          `json:"annualized_return"`
	Volatility       float64          `json:"volatility"`
	SharpeRatio      float64          `json:"sharpe_ratio"`
	MaxDrawdown      float64          `json:"max_drawdown"`
	CalmarRatio      float64          `json:"calmar_ratio"`
	VaR95            float64          `json:"var_95"`
	CVaR95           float64          `json:"cvar_95"`
	DataPoints       int              `json:"data_points"`
}

// GetPerformance handles GET /analysis/performance/:symbol.
func (h *AnalysisHandler) GetPerformance(c *gin.Context) {
	symbol := collector.NormalizeSymbol(c.Param("symbol"))
	timeframe := models.ParseTimeframe(c.DefaultQuery("timeframe", h.cfg.DefaultTimeframe))

	series, err := h.market.History(c.Request.Context(), symbol, timeframe)
	if err != nil {
		h.log.WithError(err).WithField("symbol", symbol).Warn("history fetch failed")
		respondUpstreamError(c, err)
		return
	}

	closes := series.Closes()
	returns := analytics.Returns(closes)

	response := PerformanceResponse{
		Symbol:           symbol,
		AssetType:        collector.ResolveAssetType(symbol),
		Timeframe:        timeframe,
		TotalReturn:      analytics.TotalReturn(closes),
		AnnualizedReturn: analytics.AnnualizedReturn(returns, analytics.TradingDaysPerYear) * 100,
		Volatility:       analytics.Volatility(returns),
		SharpeRatio:      analytics.SharpeRatio(returns, h.cfg.RiskFreeRate),
		MaxDrawdown:      analytics.MaxDrawdown(closes),
		CalmarRatio:      analytics.CalmarRatio(closes),
		VaR95:            analytics.ValueAtRisk(returns, 0.95),
		CVaR95:           analytics.ConditionalVaR(returns, 0.95),
		DataPoints:       len(closes),
	}
	if len(closes) > 0 {
		response.StartPrice = closes[0]
		response.CurrentPrice = closes[len(closes)-1]
	}
	respond(c, response)
}

// VolatilityResponse carries the volatility analysis of one asset.
type VolatilityResponse struct {
	Symbol            string                               `json:"symbol"`
	Timeframe         models.Timeframe                     `json:"timeframe"`
	Window            int                                  `json:"window"`
	Volatility        float64                              `json:"volatility"`
	GARCHVolatility   float64                              `json:"garch_volatility"`
	RollingVolatility []float64                            `json:"rolling_volatility"`
	Clustering        analytics.VolatilityClusteringResult `json:"clustering"`
	Regime            analytics.VolatilityRegimeResult     `json:"regime"`
}

// GetVolatility handles GET /analysis/volatility/:symbol.
func (h *AnalysisHandler) GetVolatility(c *gin.Context) {
	symbol := collector.NormalizeSymbol(c.Param("symbol"))
	timeframe := models.ParseTimeframe(c.DefaultQuery("timeframe", h.cfg.DefaultTimeframe))

	window := h.cfg.VolatilityWindow
	if raw := c.Query("window"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 2 {
			respondError(c, http.StatusBadRequest, "window must be an integer >= 2")
			return
		}
		window = parsed
	}

	series, err := h.market.History(c.Request.Context(), symbol, timeframe)
	if err != nil {
		respondUpstreamError(c, err)
		return
	}

	returns := analytics.Returns(series.Closes())
	respond(c, VolatilityResponse{
		Symbol:            symbol,
		Timeframe:         timeframe,
		Window:            window,
		Volatility:        analytics.Volatility(returns),
		GARCHVolatility:   analytics.GARCHVolatility(returns),
		RollingVolatility: analytics.RollingVolatility(returns, window),
		Clustering:        analytics.VolatilityClustering(returns),
		Regime:            analytics.ClassifyVolatilityRegime(returns),
	})
}

// RiskResponse carries the risk profile, optionally with benchmark-relative
// statistics.
type RiskResponse struct {
	Symbol    string                `json:"symbol"`
	Timeframe models.Timeframe      `json:"timeframe"`
	Profile   analytics.RiskProfile `json:"profile"`
	Benchmark string                `json:"benchmark,omitempty"`
	Beta      *float64              `json:"beta,omitempty"`
	Alpha     *float64              `json:"alpha,omitempty"`
}

// GetRisk handles GET /analysis/risk/:symbol. When a benchmark symbol is
// given, beta and alpha are computed over the aligned return series.
func (h *AnalysisHandler) GetRisk(c *gin.Context) {
	symbol := collector.NormalizeSymbol(c.Param("symbol"))
	timeframe := models.ParseTimeframe(c.DefaultQuery("timeframe", h.cfg.DefaultTimeframe))

	series, err := h.market.History(c.Request.Context(), symbol, timeframe)
	if err != nil {
		respondUpstreamError(c, err)
		return
	}

	closes := series.Closes()
	returns := analytics.Returns(closes)
	response := RiskResponse{
		Symbol:    symbol,
		Timeframe: timeframe,
		Profile:   analytics.AssessRiskProfile(returns, closes),
	}

	if benchmark := collector.NormalizeSymbol(c.Query("benchmark")); benchmark != "" {
		benchSeries, err := h.market.History(c.Request.Context(), benchmark, timeframe)
		if err != nil {
			respondUpstreamError(c, err)
			return
		}
		aligned := analytics.AlignSeries(map[string][]float64{
			"asset":     closes,
			"benchmark": benchSeries.Closes(),
		})
		assetReturns := analytics.Returns(aligned["asset"])
		benchReturns := analytics.Returns(aligned["benchmark"])
		beta := analytics.Beta(assetReturns, benchReturns)
		alpha := analytics.Alpha(assetReturns, benchReturns, h.cfg.RiskFreeRate)
		response.Benchmark = benchmark
		response.Beta = &beta
		response.Alpha = &alpha
	}
	respond(c, response)
}

// IndicatorValues holds the latest value of each computed indicator.
type IndicatorValues struct {
	RSI           *float64 `json:"rsi,omitempty"`
	MACD          *float64 `json:"macd,omitempty"`
	MACDSignal    *float64 `json:"macd_signal,omitempty"`
	MACDHistogram *float64 `json:"macd_histogram,omitempty"`
	SMA20         *float64 `json:"sma_20,omitempty"`
	SMA50         *float64 `json:"sma_50,omitempty"`
	BollingerUp   *float64 `json:"bollinger_upper,omitempty"`
	BollingerMid  *float64 `json:"bollinger_middle,omitempty"`
	BollingerLow  *float64 `json:"bollinger_lower,omitempty"`
	BollingerBW   *float64 `json:"bollinger_bandwidth,omitempty"`
}

// TechnicalResponse carries indicator values and their trading signals.
type TechnicalResponse struct {
	Symbol       string                            `json:"symbol"`
	Timeframe    models.Timeframe                  `json:"timeframe"`
	CurrentPrice float64                           `json:"current_price"`
	Signals      map[string]analytics.Signal       `json:"signals"`
	Overall      analytics.Signal                  `json:"overall_signal"`
	Indicators   IndicatorValues                   `json:"indicators"`
	Levels       analytics.SupportResistanceLevels `json:"support_resistance"`
	GeneratedAt  time.Time                         `json:"generated_at"`
}

// GetTechnical handles GET /analysis/technical/:symbol. The indicators query
// parameter limits which signals are generated; unknown names are rejected.
func (h *AnalysisHandler) GetTechnical(c *gin.Context) {
	symbol := collector.NormalizeSymbol(c.Param("symbol"))
	timeframe := models.ParseTimeframe(c.DefaultQuery("timeframe", string(models.TimeframeNinetyDays)))

	var indicators []string
	if raw := c.Query("indicators"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			name = strings.ToLower(strings.TrimSpace(name))
			if name != "" {
				indicators = append(indicators, name)
			}
		}
	}

	series, err := h.market.History(c.Request.Context(), symbol, timeframe)
	if err != nil {
		respondUpstreamError(c, err)
		return
	}
	closes := series.Closes()

	signals, err := analytics.GenerateSignals(closes, indicators)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	response := TechnicalResponse{
		Symbol:      symbol,
		Timeframe:   timeframe,
		Signals:     signals,
		Overall:     analytics.OverallSignal(signals),
		Levels:      analytics.SupportResistance(series.Highs(), series.Lows(), closes, 20),
		GeneratedAt: time.Now().UTC(),
	}
	if len(closes) > 0 {
		response.CurrentPrice = closes[len(closes)-1]
	}

	if rsi := analytics.RSI(closes, h.cfg.RSIPeriod); len(rsi) > 0 {
		response.Indicators.RSI = last(rsi)
	}
	if macd, signal, histogram, ok := analytics.MACD(closes).Latest(); ok {
		response.Indicators.MACD = &macd
		response.Indicators.MACDSignal = &signal
		response.Indicators.MACDHistogram = &histogram
	}
	if sma := analytics.SMA(closes, 20); len(sma) > 0 {
		response.Indicators.SMA20 = last(sma)
	}
	if sma := analytics.SMA(closes, 50); len(sma) > 0 {
		response.Indicators.SMA50 = last(sma)
	}
	if bands := analytics.Bollinger(closes, analytics.DefaultBollingerPeriod, analytics.DefaultBollingerK); len(bands.Middle) > 0 {
		response.Indicators.BollingerUp = last(bands.Upper)
		response.Indicators.BollingerMid = last(bands.Middle)
		response.Indicators.BollingerLow = last(bands.Lower)
		response.Indicators.BollingerBW = &bands.Bandwidth
	}
	respond(c, response)
}

// TrendResponse combines the moving-average trend with the market regime.
type TrendResponse struct {
	Symbol    string                       `json:"symbol"`
	Timeframe models.Timeframe             `json:"timeframe"`
	Trend     analytics.TrendAnalysis      `json:"trend"`
	Regime    analytics.MarketRegimeResult `json:"regime"`
}

// GetTrend handles GET /analysis/trend/:symbol. The periods query parameter
// overrides the default 10/20/50 moving-average lookbacks.
func (h *AnalysisHandler) GetTrend(c *gin.Context) {
	symbol := collector.NormalizeSymbol(c.Param("symbol"))
	timeframe := models.ParseTimeframe(c.DefaultQuery("timeframe", string(models.TimeframeNinetyDays)))

	var periods []int
	if raw := c.Query("periods"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			parsed, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || parsed < 2 {
				respondError(c, http.StatusBadRequest, "periods must be integers >= 2")
				return
			}
			periods = append(periods, parsed)
		}
	}

	series, err := h.market.History(c.Request.Context(), symbol, timeframe)
	if err != nil {
		respondUpstreamError(c, err)
		return
	}

	closes := series.Closes()
	respond(c, TrendResponse{
		Symbol:    symbol,
		Timeframe: timeframe,
		Trend:     analytics.AnalyzeTrend(closes, periods),
		Regime:    analytics.AssessMarketRegime(closes),
	})
}

// SentimentResponse wraps the heuristic sentiment score.
type SentimentResponse struct {
	Symbol    string                    `json:"symbol"`
	Timeframe models.Timeframe          `json:"timeframe"`
	Sentiment analytics.SentimentResult `json:"sentiment"`
}

// GetSentiment handles GET /analysis/sentiment/:symbol.
func (h *AnalysisHandler) GetSentiment(c *gin.Context) {
	symbol := collector.NormalizeSymbol(c.Param("symbol"))
	timeframe := models.ParseTimeframe(c.DefaultQuery("timeframe", h.cfg.DefaultTimeframe))

	series, err := h.market.History(c.Request.Context(), symbol, timeframe)
	if err != nil {
		respondUpstreamError(c, err)
		return
	}

	closes := series.Closes()
	volumes := make([]float64, len(series.Points))
	for i, p := range series.Points {
		volumes[i] = p.Volume
	}
	respond(c, SentimentResponse{
		Symbol:    symbol,
		Timeframe: timeframe,
		Sentiment: analytics.AssessSentiment(closes, volumes),
	})
}

func last(values []float64) *float64 {
	v := values[len(values)-1]
	return &v
}
