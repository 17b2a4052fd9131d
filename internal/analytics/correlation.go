package analytics

import (
	"math"
	"sort"
	"time"
)

// DefaultRollingCorrelationWindow is the window, in return observations,
// used by stability analysis.
const DefaultRollingCorrelationWindow = 30

// AlignSeries truncates every series to the shortest common length, keeping
// the most recent observations. Empty input or an empty member yields nil.
func AlignSeries(series map[string][]float64) map[string][]float64 {
	if len(series) == 0 {
		return nil
	}
	shortest := -1
	for _, s := range series {
		if shortest == -1 || len(s) < shortest {
			shortest = len(s)
		}
	}
	if shortest <= 0 {
		return nil
	}
	aligned := make(map[string][]float64, len(series))
	for symbol, s := range series {
		aligned[symbol] = s[len(s)-shortest:]
	}
	return aligned
}

// StrongCorrelation is a pair whose correlation magnitude exceeds 0.7.
type StrongCorrelation struct {
	Asset1      string  `json:"asset1"`
	Asset2      string  `json:"asset2"`
	Correlation float64 `json:"correlation"`
	Strength    string  `json:"strength"`
}

// CorrelationMatrixResult is the full pairwise correlation analysis.
type CorrelationMatrixResult struct {
	Matrix             map[string]map[string]float64 `json:"correlation_matrix"`
	StrongCorrelations []StrongCorrelation           `json:"strong_correlations"`
	AverageCorrelation float64                       `json:"average_correlation"`
	Symbols            []string                      `json:"symbols"`
	AnalysisDate       time.Time                     `json:"analysis_date"`
}

// CorrelationMatrix computes pairwise return correlations over price series
// aligned to their shortest common length. Diagonal entries are 1. Pairs
// with |r| > 0.7 are reported, labeled "strong" above 0.8 and "moderate"
// otherwise. Fewer than two symbols with usable history yields an empty
// result.
func CorrelationMatrix(prices map[string][]float64) CorrelationMatrixResult {
	result := CorrelationMatrixResult{
		Matrix:             map[string]map[string]float64{},
		StrongCorrelations: []StrongCorrelation{},
		AnalysisDate:       time.Now().UTC(),
	}

	aligned := AlignSeries(prices)
	if len(aligned) < 2 {
		return result
	}
	returns := make(map[string][]float64, len(aligned))
	for symbol, series := range aligned {
		returns[symbol] = Returns(series)
	}

	symbols := make([]string, 0, len(returns))
	for symbol := range returns {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	result.Symbols = symbols

	var offDiagonal []float64
	for _, a := range symbols {
		result.Matrix[a] = make(map[string]float64, len(symbols))
		for _, b := range symbols {
			if a == b {
				result.Matrix[a][b] = 1
				continue
			}
			corr := pearsonCorrelation(returns[a], returns[b])
			result.Matrix[a][b] = corr
			if a < b {
				offDiagonal = append(offDiagonal, corr)
				if math.Abs(corr) > 0.7 {
					strength := "moderate"
					if math.Abs(corr) > 0.8 {
						strength = "strong"
					}
					result.StrongCorrelations = append(result.StrongCorrelations, StrongCorrelation{
						Asset1:      a,
						Asset2:      b,
						Correlation: corr,
						Strength:    strength,
					})
				}
			}
		}
	}
	result.AverageCorrelation = mean(offDiagonal)
	return result
}

// RollingCorrelation computes the correlation of two price series' returns
// over each trailing window. The two series are truncated to their shortest
// common length first. Output length is len(returns)-window+1.
func RollingCorrelation(prices1, prices2 []float64, window int) []float64 {
	n := len(prices1)
	if len(prices2) < n {
		n = len(prices2)
	}
	if n < 2 {
		return []float64{}
	}
	returns1 := Returns(prices1[len(prices1)-n:])
	returns2 := Returns(prices2[len(prices2)-n:])
	if window < 2 || len(returns1) < window {
		return []float64{}
	}

	out := make([]float64, 0, len(returns1)-window+1)
	for i := window - 1; i < len(returns1); i++ {
		out = append(out, pearsonCorrelation(returns1[i-window+1:i+1], returns2[i-window+1:i+1]))
	}
	return out
}

// CorrelationStabilityResult describes how steady a pair's correlation has
// been over time.
type CorrelationStabilityResult struct {
	Stable             bool    `json:"stable"`
	StabilityScore     float64 `json:"stability_score"`
	CurrentCorrelation float64 `json:"current_correlation"`
	MeanCorrelation    float64 `json:"mean_correlation"`
	StdDev             float64 `json:"correlation_std"`
	Trend              string  `json:"trend"`
	Observations       int     `json:"observations"`
}

// CorrelationStability measures the dispersion of the rolling correlation.
// A pair is stable when the rolling series' standard deviation stays below
// 0.2; the score maps that dispersion onto [0, 1]. The trend compares the
// mean of the last five observations against the five before them.
func CorrelationStability(prices1, prices2 []float64, window int) CorrelationStabilityResult {
	result := CorrelationStabilityResult{Trend: "stable"}
	rolling := RollingCorrelation(prices1, prices2, window)
	result.Observations = len(rolling)
	if len(rolling) == 0 {
		return result
	}

	result.CurrentCorrelation = rolling[len(rolling)-1]
	result.MeanCorrelation = mean(rolling)
	result.StdDev = populationStdDev(rolling)
	result.Stable = result.StdDev < 0.2
	result.StabilityScore = 1 - math.Min(result.StdDev/0.5, 1)

	if len(rolling) > 10 {
		recent := mean(rolling[len(rolling)-5:])
		prior := mean(rolling[len(rolling)-10 : len(rolling)-5])
		switch {
		case recent-prior > 0.05:
			result.Trend = "increasing"
		case prior-recent > 0.05:
			result.Trend = "decreasing"
		}
	}
	return result
}

// PairwiseCorrelationResult is the correlation of a single asset pair.
type PairwiseCorrelationResult struct {
	Asset1       string  `json:"asset1"`
	Asset2       string  `json:"asset2"`
	Correlation  float64 `json:"correlation"`
	Strength     string  `json:"strength"`
	Direction    string  `json:"direction"`
	Observations int     `json:"observations"`
}

// PairwiseCorrelation computes and labels the return correlation of two
// price series.
func PairwiseCorrelation(symbol1, symbol2 string, prices1, prices2 []float64) PairwiseCorrelationResult {
	n := len(prices1)
	if len(prices2) < n {
		n = len(prices2)
	}
	result := PairwiseCorrelationResult{Asset1: symbol1, Asset2: symbol2}
	if n < 2 {
		result.Strength = "unknown"
		result.Direction = "unknown"
		return result
	}

	returns1 := Returns(prices1[len(prices1)-n:])
	returns2 := Returns(prices2[len(prices2)-n:])
	result.Correlation = pearsonCorrelation(returns1, returns2)
	result.Observations = len(returns1)

	abs := math.Abs(result.Correlation)
	switch {
	case abs > 0.8:
		result.Strength = "very strong"
	case abs > 0.7:
		result.Strength = "strong"
	case abs > 0.4:
		result.Strength = "moderate"
	case abs > 0.2:
		result.Strength = "weak"
	default:
		result.Strength = "negligible"
	}
	if result.Correlation >= 0 {
		result.Direction = "positive"
	} else {
		result.Direction = "negative"
	}
	return result
}
