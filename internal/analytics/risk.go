package analytics

// RiskProfile summarizes the risk character of a return series.
type RiskProfile struct {
	Level          string            `json:"risk_level"`
	Score          float64           `json:"risk_score"`
	Volatility     float64           `json:"volatility"`
	MaxDrawdown    float64           `json:"max_drawdown"`
	MaxLoss        float64           `json:"maximum_loss"`
	VaR95          float64           `json:"var_95"`
	CVaR95         float64           `json:"cvar_95"`
	SharpeRatio    float64           `json:"sharpe_ratio"`
	Factors        map[string]string `json:"risk_factors"`
	Recommendation string            `json:"recommendation"`
}

// AssessRiskProfile classifies a return series into one of five risk tiers
// by annualized volatility. The profiler uses the population standard
// deviation, unlike Volatility which uses the sample estimator. Score maps
// volatility onto a 0 to 10 scale. Fewer than ten returns is unknown.
func AssessRiskProfile(returns []float64, prices []float64) RiskProfile {
	if len(returns) < 10 {
		return RiskProfile{
			Level:          "unknown",
			Recommendation: "insufficient data for risk assessment",
		}
	}

	vol := populationStdDev(returns) * sqrtTradingDays * 100

	profile := RiskProfile{
		Volatility:  vol,
		MaxDrawdown: MaxDrawdown(prices),
		MaxLoss:     minFloat(returns) * 100,
		VaR95:       ValueAtRisk(returns, 0.95),
		CVaR95:      ConditionalVaR(returns, 0.95),
		SharpeRatio: SharpeRatio(returns, DefaultRiskFreeRate),
		Factors:     map[string]string{},
	}

	profile.Score = vol / 10
	if profile.Score > 10 {
		profile.Score = 10
	}

	switch {
	case vol > 50:
		profile.Level = "very_high"
		profile.Recommendation = "suitable only for speculative capital; expect severe drawdowns"
	case vol > 30:
		profile.Level = "high"
		profile.Recommendation = "high risk; size positions conservatively and diversify"
	case vol > 15:
		profile.Level = "medium"
		profile.Recommendation = "medium risk; appropriate for balanced portfolios"
	case vol > 8:
		profile.Level = "low"
		profile.Recommendation = "low risk; suitable for conservative allocations"
	default:
		profile.Level = "very_low"
		profile.Recommendation = "very low risk; return potential is limited"
	}

	switch {
	case vol > 30:
		profile.Factors["volatility_risk"] = "high"
	case vol > 15:
		profile.Factors["volatility_risk"] = "moderate"
	default:
		profile.Factors["volatility_risk"] = "low"
	}
	switch {
	case profile.VaR95 < -5:
		profile.Factors["tail_risk"] = "high"
	case profile.VaR95 < -2:
		profile.Factors["tail_risk"] = "moderate"
	default:
		profile.Factors["tail_risk"] = "low"
	}
	switch {
	case profile.MaxLoss < -20:
		profile.Factors["extreme_loss_risk"] = "high"
	case profile.MaxLoss < -10:
		profile.Factors["extreme_loss_risk"] = "moderate"
	default:
		profile.Factors["extreme_loss_risk"] = "low"
	}
	return profile
}

// PortfolioVaRResult is the loss profile of a weighted portfolio.
type PortfolioVaRResult struct {
	VaR95        float64 `json:"var_95"`
	CVaR95       float64 `json:"cvar_95"`
	Volatility   float64 `json:"volatility"`
	WorstDay     float64 `json:"worst_day"`
	BestDay      float64 `json:"best_day"`
	Observations int     `json:"observations"`
}

// PortfolioVaR computes VaR statistics on the synthetic return series of a
// weighted portfolio. Symbols without history and zero weights are skipped;
// remaining weights are renormalized. All values are percentages.
func PortfolioVaR(weights map[string]float64, historical map[string][]float64) PortfolioVaRResult {
	var result PortfolioVaRResult

	prices := make(map[string][]float64)
	var weightSum float64
	for symbol, w := range weights {
		if w <= 0 {
			continue
		}
		if series, ok := historical[symbol]; ok && len(series) >= 2 {
			prices[symbol] = series
			weightSum += w
		}
	}
	if len(prices) == 0 || weightSum == 0 {
		return result
	}

	aligned := AlignSeries(prices)
	var portfolio []float64
	for symbol, series := range aligned {
		returns := Returns(series)
		if portfolio == nil {
			portfolio = make([]float64, len(returns))
		}
		w := weights[symbol] / weightSum
		for i, r := range returns {
			portfolio[i] += w * r
		}
	}
	if len(portfolio) == 0 {
		return result
	}

	result.Observations = len(portfolio)
	result.VaR95 = ValueAtRisk(portfolio, 0.95)
	result.CVaR95 = ConditionalVaR(portfolio, 0.95)
	result.Volatility = Volatility(portfolio)
	result.WorstDay = minFloat(portfolio) * 100
	result.BestDay = maxFloat(portfolio) * 100
	return result
}

// Beta measures sensitivity of asset returns to market returns. Mismatched
// or degenerate inputs fall back to a neutral beta of 1.
func Beta(assetReturns, marketReturns []float64) float64 {
	if len(assetReturns) < 2 || len(assetReturns) != len(marketReturns) {
		return 1
	}
	marketVar := sampleVariance(marketReturns)
	if marketVar == 0 {
		return 1
	}
	return sampleCovariance(assetReturns, marketReturns) / marketVar
}

// Alpha is the annualized excess return over the CAPM expectation, as a
// percentage.
func Alpha(assetReturns, marketReturns []float64, riskFreeRate float64) float64 {
	if len(assetReturns) == 0 || len(assetReturns) != len(marketReturns) {
		return 0
	}
	beta := Beta(assetReturns, marketReturns)
	assetAnnual := mean(assetReturns) * TradingDaysPerYear
	marketAnnual := mean(marketReturns) * TradingDaysPerYear
	return (assetAnnual - riskFreeRate - beta*(marketAnnual-riskFreeRate)) * 100
}
