package analytics

import "math"

const (
	// TradingDaysPerYear is the annualization factor for daily series.
	TradingDaysPerYear = 252

	// DefaultRiskFreeRate is the annual risk-free rate assumed by the
	// Sharpe ratio when the caller does not supply one.
	DefaultRiskFreeRate = 0.02
)

var sqrtTradingDays = math.Sqrt(TradingDaysPerYear)

// Returns computes simple period-over-period returns. The output has one
// fewer element than the input. A zero prior price yields a zero return for
// that step rather than a division error.
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (prices[i]-prices[i-1])/prices[i-1])
	}
	return returns
}

// LogReturns computes natural-log returns. Steps whose prior price is zero
// or negative are dropped, so the output may be shorter than len(prices)-1.
func LogReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] <= 0 || prices[i] <= 0 {
			continue
		}
		returns = append(returns, math.Log(prices[i]/prices[i-1]))
	}
	return returns
}

// TotalReturn is the percentage change from the first to the last price.
func TotalReturn(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}
	if prices[0] == 0 {
		return 0
	}
	return (prices[len(prices)-1] - prices[0]) / prices[0] * 100
}

// AnnualizedReturn compounds the mean periodic return over periodsPerYear
// periods, expressed as a fraction.
func AnnualizedReturn(returns []float64, periodsPerYear int) float64 {
	if len(returns) == 0 || periodsPerYear <= 0 {
		return 0
	}
	m := mean(returns)
	if m <= -1 {
		return -1
	}
	return math.Pow(1+m, float64(periodsPerYear)) - 1
}

// Volatility is the annualized sample standard deviation of returns as a
// percentage.
func Volatility(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	return sampleStdDev(returns) * math.Sqrt(TradingDaysPerYear) * 100
}

// RollingVolatility produces the annualized volatility over each trailing
// window of returns. Output length is len(returns)-window+1; an empty slice
// is returned when the series is shorter than the window.
func RollingVolatility(returns []float64, window int) []float64 {
	if window < 2 || len(returns) < window {
		return []float64{}
	}
	out := make([]float64, 0, len(returns)-window+1)
	for i := window - 1; i < len(returns); i++ {
		out = append(out, Volatility(returns[i-window+1:i+1]))
	}
	return out
}

// SharpeRatio computes the annualized excess return per unit of annualized
// volatility. Zero volatility yields zero.
func SharpeRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	m := mean(returns)
	if m <= -1 {
		return 0
	}
	annualizedReturn := math.Pow(1+m, TradingDaysPerYear) - 1
	annualizedVol := sampleStdDev(returns) * math.Sqrt(TradingDaysPerYear)
	if annualizedVol == 0 {
		return 0
	}
	return (annualizedReturn - riskFreeRate) / annualizedVol
}

// MaxDrawdown is the largest peak-to-trough decline of the price series,
// returned as a negative percentage (0 when the series never declines).
func MaxDrawdown(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}
	peak := prices[0]
	maxDrawdown := 0.0
	for _, p := range prices[1:] {
		if p > peak {
			peak = p
		}
		if peak == 0 {
			continue
		}
		drawdown := (p - peak) / peak
		if drawdown < maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown * 100
}

// CalmarRatio divides the annualized return by the absolute max drawdown.
// A flat drawdown yields zero.
func CalmarRatio(prices []float64) float64 {
	returns := Returns(prices)
	if len(returns) == 0 {
		return 0
	}
	annualized := AnnualizedReturn(returns, TradingDaysPerYear)
	drawdown := math.Abs(MaxDrawdown(prices)) / 100
	if drawdown == 0 {
		return 0
	}
	return annualized / drawdown
}

// ValueAtRisk is the loss threshold at the given confidence level computed
// from the historical return distribution, as a negative percentage.
func ValueAtRisk(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	return percentile(returns, (1-confidence)*100) * 100
}

// ConditionalVaR is the mean of returns at or below the VaR threshold,
// as a percentage. Falls back to VaR when no tail observations exist.
func ConditionalVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	threshold := percentile(returns, (1-confidence)*100)
	var tail []float64
	for _, r := range returns {
		if r <= threshold {
			tail = append(tail, r)
		}
	}
	if len(tail) == 0 {
		return threshold * 100
	}
	return mean(tail) * 100
}
