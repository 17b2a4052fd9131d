package analytics

import "math"

// ewmaLambda is the decay factor of the EWMA variance recursion.
const ewmaLambda = 0.94

// GARCHVolatility estimates annualized volatility with an EWMA variance
// recursion seeded from the first ten observations. Series shorter than ten
// observations fall back to the plain sample volatility.
func GARCHVolatility(returns []float64) float64 {
	if len(returns) < 10 {
		return Volatility(returns)
	}
	variance := populationVariance(returns[:10])
	for _, r := range returns[10:] {
		variance = ewmaLambda*variance + (1-ewmaLambda)*r*r
	}
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance*TradingDaysPerYear) * 100
}

// VolatilityClusteringResult describes the lag-1 dependence of absolute
// returns. Clustering means large moves tend to follow large moves.
type VolatilityClusteringResult struct {
	Detected        bool    `json:"detected"`
	Autocorrelation float64 `json:"autocorrelation"`
	PValue          float64 `json:"p_value"`
	Interpretation  string  `json:"interpretation"`
}

// VolatilityClustering tests for lag-1 autocorrelation in absolute returns.
// Clustering is reported when |corr| exceeds 0.1 with p < 0.05.
func VolatilityClustering(returns []float64) VolatilityClusteringResult {
	if len(returns) < 20 {
		return VolatilityClusteringResult{
			Interpretation: "insufficient data for clustering analysis",
		}
	}

	absReturns := make([]float64, len(returns))
	for i, r := range returns {
		absReturns[i] = math.Abs(r)
	}

	lagged := absReturns[:len(absReturns)-1]
	current := absReturns[1:]
	corr := pearsonCorrelation(lagged, current)
	pValue := pearsonPValue(corr, len(current))

	result := VolatilityClusteringResult{
		Autocorrelation: corr,
		PValue:          pValue,
		Detected:        pValue < 0.05 && math.Abs(corr) > 0.1,
	}
	switch {
	case result.Detected:
		result.Interpretation = "significant volatility clustering, large moves tend to follow large moves"
	case math.Abs(corr) > 0.1:
		result.Interpretation = "weak volatility clustering"
	default:
		result.Interpretation = "no volatility clustering detected"
	}
	return result
}

// VolatilityRegimeResult compares recent volatility against the long-run
// level of the same series.
type VolatilityRegimeResult struct {
	Regime     string  `json:"regime"`
	RecentVol  float64 `json:"recent_volatility"`
	LongRunVol float64 `json:"long_run_volatility"`
	Ratio      float64 `json:"ratio"`
}

// regimeWindow is the trailing span compared against the full sample when
// classifying the volatility regime.
const regimeWindow = 20

// ClassifyVolatilityRegime labels the trailing 20-observation volatility
// relative to the full-sample volatility. Fewer than 30 observations is
// reported as insufficient data.
func ClassifyVolatilityRegime(returns []float64) VolatilityRegimeResult {
	if len(returns) < 30 {
		return VolatilityRegimeResult{Regime: "insufficient_data"}
	}

	recent := Volatility(returns[len(returns)-regimeWindow:])
	longRun := Volatility(returns)
	result := VolatilityRegimeResult{
		RecentVol:  recent,
		LongRunVol: longRun,
		Regime:     "normal_volatility",
	}
	if longRun == 0 {
		return result
	}
	result.Ratio = recent / longRun
	switch {
	case recent > longRun*1.5:
		result.Regime = "high_volatility"
	case recent < longRun*0.7:
		result.Regime = "low_volatility"
	}
	return result
}

// MarketOverviewResult aggregates per-asset regimes into a market-wide view.
type MarketOverviewResult struct {
	DominantRegime string         `json:"dominant_regime"`
	Confidence     float64        `json:"confidence"`
	Distribution   map[string]int `json:"regime_distribution"`
}

// MarketOverview picks the most common regime across assets. Confidence is
// the share of assets in the dominant regime; unknowns are excluded from the
// vote but kept in the distribution.
func MarketOverview(regimes map[string]MarketRegimeResult) MarketOverviewResult {
	overview := MarketOverviewResult{
		DominantRegime: "unknown",
		Distribution:   make(map[string]int),
	}

	var counted int
	for _, regime := range regimes {
		overview.Distribution[regime.Regime]++
		if regime.Regime != "unknown" {
			counted++
		}
	}
	if counted == 0 {
		return overview
	}

	best := 0
	for regime, count := range overview.Distribution {
		if regime == "unknown" {
			continue
		}
		if count > best || (count == best && regime < overview.DominantRegime) {
			best = count
			overview.DominantRegime = regime
		}
	}
	overview.Confidence = float64(best) / float64(counted)
	return overview
}

// MarketRegimeResult classifies the prevailing market condition from price
// trend and realized volatility.
type MarketRegimeResult struct {
	Regime        string  `json:"regime"`
	TrendStrength float64 `json:"trend_strength"`
	AnnualizedVol float64 `json:"annualized_volatility"`
	Confidence    float64 `json:"confidence"`
}

// AssessMarketRegime combines the short/long moving-average spread with
// realized volatility into a coarse regime label: bull, bear, volatile
// or ranging.
func AssessMarketRegime(prices []float64) MarketRegimeResult {
	if len(prices) < 50 {
		return MarketRegimeResult{Regime: "unknown"}
	}

	returns := Returns(prices)
	vol := Volatility(returns)

	shortWindow := 20
	longWindow := 50
	shortAvg := mean(prices[len(prices)-shortWindow:])
	longAvg := mean(prices[len(prices)-longWindow:])

	trendStrength := 0.0
	if longAvg != 0 {
		trendStrength = (shortAvg - longAvg) / longAvg * 100
	}

	result := MarketRegimeResult{
		TrendStrength: trendStrength,
		AnnualizedVol: vol,
	}

	switch {
	case vol > 60:
		result.Regime = "volatile"
		result.Confidence = math.Min(vol/100, 1)
	case trendStrength > 2:
		result.Regime = "bull"
		result.Confidence = math.Min(trendStrength/10, 1)
	case trendStrength < -2:
		result.Regime = "bear"
		result.Confidence = math.Min(-trendStrength/10, 1)
	default:
		result.Regime = "ranging"
		result.Confidence = 1 - math.Abs(trendStrength)/2
	}
	return result
}
