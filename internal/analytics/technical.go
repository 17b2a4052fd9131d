package analytics

import (
	"math"
	"sort"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
)

// Default indicator periods.
const (
	DefaultRSIPeriod       = 14
	DefaultBollingerPeriod = 20
	DefaultBollingerK      = 2.0
	MACDFastPeriod         = 12
	MACDSlowPeriod         = 26
	MACDSignalPeriod       = 9
)

// SMA computes the simple moving average. The output contains only fully
// formed windows, so its length is len(prices)-period+1.
func SMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return []float64{}
	}
	sma := trend.NewSmaWithPeriod[float64](period)
	return helper.ChanToSlice(sma.Compute(helper.SliceToChan(prices)))
}

// EMA computes the exponential moving average seeded with the simple mean of
// the first period values. Output length is len(prices)-period+1.
func EMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return []float64{}
	}
	ema := trend.NewEmaWithPeriod[float64](period)
	return helper.ChanToSlice(ema.Compute(helper.SliceToChan(prices)))
}

// RSI computes the relative strength index using rolling mean gains and
// losses over the period. A window with zero average loss reports 100.
// Output length is len(prices)-period.
func RSI(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) <= period {
		return []float64{}
	}

	gains := make([]float64, len(prices)-1)
	losses := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			gains[i-1] = delta
		} else {
			losses[i-1] = -delta
		}
	}

	out := make([]float64, 0, len(gains)-period+1)
	for i := period - 1; i < len(gains); i++ {
		avgGain := mean(gains[i-period+1 : i+1])
		avgLoss := mean(losses[i-period+1 : i+1])
		if avgLoss == 0 {
			out = append(out, 100)
			continue
		}
		rs := avgGain / avgLoss
		out = append(out, 100-100/(1+rs))
	}
	return out
}

// MACDResult holds the aligned MACD line, signal line and histogram. All
// three slices share the signal line's length.
type MACDResult struct {
	MACDLine  []float64 `json:"macd_line"`
	Signal    []float64 `json:"signal_line"`
	Histogram []float64 `json:"histogram"`
}

// Latest returns the most recent MACD, signal and histogram values.
func (m MACDResult) Latest() (macd, signal, histogram float64, ok bool) {
	if len(m.Signal) == 0 {
		return 0, 0, 0, false
	}
	i := len(m.Signal) - 1
	return m.MACDLine[i], m.Signal[i], m.Histogram[i], true
}

// MACD computes the 12/26 EMA spread with a 9 period EMA signal line. The
// three output series are truncated to a common alignment so index i refers
// to the same bar in each.
func MACD(prices []float64) MACDResult {
	if len(prices) < MACDSlowPeriod+MACDSignalPeriod {
		return MACDResult{
			MACDLine:  []float64{},
			Signal:    []float64{},
			Histogram: []float64{},
		}
	}

	fast := EMA(prices, MACDFastPeriod)
	slow := EMA(prices, MACDSlowPeriod)

	// fast leads slow by the difference of their idle periods.
	offset := MACDSlowPeriod - MACDFastPeriod
	macdLine := make([]float64, len(slow))
	for i := range slow {
		macdLine[i] = fast[i+offset] - slow[i]
	}

	signal := EMA(macdLine, MACDSignalPeriod)
	aligned := macdLine[len(macdLine)-len(signal):]
	histogram := make([]float64, len(signal))
	for i := range signal {
		histogram[i] = aligned[i] - signal[i]
	}

	return MACDResult{
		MACDLine:  aligned,
		Signal:    signal,
		Histogram: histogram,
	}
}

// BollingerBands holds the aligned middle, upper and lower bands. Bandwidth
// is the latest band spread as a percentage of the middle band.
type BollingerBands struct {
	Middle    []float64 `json:"middle"`
	Upper     []float64 `json:"upper"`
	Lower     []float64 `json:"lower"`
	Bandwidth float64   `json:"bandwidth"`
}

// Bollinger computes bands at k standard deviations around the period SMA.
// Band width uses the sample standard deviation of each window.
func Bollinger(prices []float64, period int, k float64) BollingerBands {
	middle := SMA(prices, period)
	if len(middle) == 0 {
		return BollingerBands{
			Middle: []float64{},
			Upper:  []float64{},
			Lower:  []float64{},
		}
	}

	upper := make([]float64, len(middle))
	lower := make([]float64, len(middle))
	for i := range middle {
		window := prices[i : i+period]
		band := k * sampleStdDev(window)
		upper[i] = middle[i] + band
		lower[i] = middle[i] - band
	}

	bands := BollingerBands{Middle: middle, Upper: upper, Lower: lower}
	if i := len(middle) - 1; middle[i] != 0 {
		bands.Bandwidth = (upper[i] - lower[i]) / middle[i] * 100
	}
	return bands
}

// SupportResistanceLevels lists detected price levels around the last close.
// Nearest pointers are nil when no level sits on the relevant side of the
// current price.
type SupportResistanceLevels struct {
	Support           []float64 `json:"support_levels"`
	Resistance        []float64 `json:"resistance_levels"`
	NearestSupport    *float64  `json:"nearest_support"`
	NearestResistance *float64  `json:"nearest_resistance"`
}

// SupportResistance finds local extrema: a bar whose high is the maximum of
// its centered window becomes a resistance level, a bar whose low is the
// window minimum a support level. The first and last window bars are never
// candidates. Levels are deduplicated and capped at the five closest to the
// current close, supports descending and resistances ascending.
func SupportResistance(highs, lows, closes []float64, window int) SupportResistanceLevels {
	levels := SupportResistanceLevels{
		Support:    []float64{},
		Resistance: []float64{},
	}
	n := len(closes)
	if window < 2 || n < 2*window || len(highs) != n || len(lows) != n {
		return levels
	}

	half := window / 2
	supports := map[float64]struct{}{}
	resistances := map[float64]struct{}{}
	for i := window; i < n-window; i++ {
		lo, hi := lows[i], highs[i]
		for j := i - half; j < i+window-half; j++ {
			if lows[j] < lo {
				lo = lows[j]
			}
			if highs[j] > hi {
				hi = highs[j]
			}
		}
		if highs[i] == hi {
			resistances[highs[i]] = struct{}{}
		}
		if lows[i] == lo {
			supports[lows[i]] = struct{}{}
		}
	}

	current := closes[n-1]
	for s := range supports {
		levels.Support = append(levels.Support, s)
		if s < current && (levels.NearestSupport == nil || s > *levels.NearestSupport) {
			v := s
			levels.NearestSupport = &v
		}
	}
	for r := range resistances {
		levels.Resistance = append(levels.Resistance, r)
		if r > current && (levels.NearestResistance == nil || r < *levels.NearestResistance) {
			v := r
			levels.NearestResistance = &v
		}
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(levels.Support)))
	sort.Float64s(levels.Resistance)
	if len(levels.Support) > 5 {
		levels.Support = levels.Support[:5]
	}
	if len(levels.Resistance) > 5 {
		levels.Resistance = levels.Resistance[:5]
	}
	return levels
}

func minFloat(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		m = math.Min(m, v)
	}
	return m
}

func maxFloat(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		m = math.Max(m, v)
	}
	return m
}
