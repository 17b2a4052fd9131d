package analytics

import (
	"fmt"
	"sort"
)

// Signal is a single indicator's reading of the market.
type Signal struct {
	Indicator string  `json:"indicator"`
	Label     string  `json:"signal"`
	Value     float64 `json:"value"`
	Reason    string  `json:"reason"`
}

// Signal labels. Overbought and oversold describe stretched conditions and
// do not count toward the overall directional vote.
const (
	SignalBullish    = "bullish"
	SignalBearish    = "bearish"
	SignalNeutral    = "neutral"
	SignalOverbought = "overbought"
	SignalOversold   = "oversold"
)

type signalFunc func(prices []float64) Signal

// signalFuncs is the dispatch table for GenerateSignals. Adding an indicator
// means adding an entry here.
var signalFuncs = map[string]signalFunc{
	"rsi":       rsiSignal,
	"macd":      macdSignal,
	"sma":       smaSignal,
	"ema":       emaSignal,
	"bollinger": bollingerSignal,
}

// SupportedIndicators lists the indicator names GenerateSignals accepts,
// sorted alphabetically.
func SupportedIndicators() []string {
	names := make([]string, 0, len(signalFuncs))
	for name := range signalFuncs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GenerateSignals evaluates the requested indicators against the price
// series. An unknown indicator name fails the whole call. When indicators is
// empty all supported indicators are evaluated.
func GenerateSignals(prices []float64, indicators []string) (map[string]Signal, error) {
	if len(indicators) == 0 {
		indicators = SupportedIndicators()
	}

	signals := make(map[string]Signal, len(indicators))
	for _, name := range indicators {
		fn, ok := signalFuncs[name]
		if !ok {
			return nil, fmt.Errorf("unknown indicator %q, supported: %v", name, SupportedIndicators())
		}
		signals[name] = fn(prices)
	}
	return signals, nil
}

func rsiSignal(prices []float64) Signal {
	sig := Signal{Indicator: "rsi", Label: SignalNeutral, Reason: "insufficient data"}
	values := RSI(prices, DefaultRSIPeriod)
	if len(values) == 0 {
		return sig
	}
	sig.Value = values[len(values)-1]
	switch {
	case sig.Value > 70:
		sig.Label = SignalOverbought
		sig.Reason = "rsi above 70"
	case sig.Value < 30:
		sig.Label = SignalOversold
		sig.Reason = "rsi below 30"
	default:
		sig.Reason = "rsi in neutral range"
	}
	return sig
}

func macdSignal(prices []float64) Signal {
	sig := Signal{Indicator: "macd", Label: SignalNeutral, Reason: "insufficient data"}
	macd, signal, histogram, ok := MACD(prices).Latest()
	if !ok {
		return sig
	}
	sig.Value = macd
	switch {
	case macd > signal && histogram > 0:
		sig.Label = SignalBullish
		sig.Reason = "macd above signal line"
	case macd < signal && histogram < 0:
		sig.Label = SignalBearish
		sig.Reason = "macd below signal line"
	default:
		sig.Reason = "no clear crossover"
	}
	return sig
}

func smaSignal(prices []float64) Signal {
	sig := Signal{Indicator: "sma", Label: SignalNeutral, Reason: "insufficient data"}
	values := SMA(prices, 20)
	if len(values) == 0 {
		return sig
	}
	price := prices[len(prices)-1]
	current := values[len(values)-1]
	sig.Value = current
	if price > current {
		sig.Label = SignalBullish
		sig.Reason = "price above 20-period average"
	} else {
		sig.Label = SignalBearish
		sig.Reason = "price below 20-period average"
	}
	return sig
}

func emaSignal(prices []float64) Signal {
	sig := Signal{Indicator: "ema", Label: SignalNeutral, Reason: "insufficient data"}
	values := EMA(prices, 20)
	if len(values) == 0 {
		return sig
	}
	price := prices[len(prices)-1]
	current := values[len(values)-1]
	sig.Value = current
	if price > current {
		sig.Label = SignalBullish
		sig.Reason = "price above 20-period exponential average"
	} else {
		sig.Label = SignalBearish
		sig.Reason = "price below 20-period exponential average"
	}
	return sig
}

func bollingerSignal(prices []float64) Signal {
	sig := Signal{Indicator: "bollinger", Label: SignalNeutral, Reason: "insufficient data"}
	bands := Bollinger(prices, DefaultBollingerPeriod, DefaultBollingerK)
	if len(bands.Middle) == 0 {
		return sig
	}
	price := prices[len(prices)-1]
	i := len(bands.Middle) - 1
	sig.Value = price
	switch {
	case price > bands.Upper[i]:
		sig.Label = SignalOverbought
		sig.Reason = "price above upper band"
	case price < bands.Lower[i]:
		sig.Label = SignalOversold
		sig.Reason = "price below lower band"
	default:
		sig.Reason = "price within bands"
	}
	return sig
}

// OverallSignal combines individual indicator signals by majority vote.
// Only bullish and bearish readings vote; overbought, oversold and neutral
// abstain. Ties resolve to neutral.
func OverallSignal(signals map[string]Signal) Signal {
	overall := Signal{Indicator: "overall", Label: SignalNeutral, Reason: "no signals"}
	if len(signals) == 0 {
		return overall
	}

	var bullish, bearish int
	for _, sig := range signals {
		switch sig.Label {
		case SignalBullish:
			bullish++
		case SignalBearish:
			bearish++
		}
	}

	switch {
	case bullish > bearish:
		overall.Label = SignalBullish
		overall.Reason = fmt.Sprintf("%d of %d indicators bullish", bullish, len(signals))
	case bearish > bullish:
		overall.Label = SignalBearish
		overall.Reason = fmt.Sprintf("%d of %d indicators bearish", bearish, len(signals))
	default:
		overall.Reason = fmt.Sprintf("mixed signals, %d bullish vs %d bearish", bullish, bearish)
	}
	overall.Value = float64(bullish-bearish) / float64(len(signals))
	return overall
}

// DefaultTrendPeriods are the moving-average lookbacks AnalyzeTrend uses when
// the caller does not supply its own.
var DefaultTrendPeriods = []int{10, 20, 50}

// TrendAnalysis reports price position against a set of moving averages and
// the directional consensus across them.
type TrendAnalysis struct {
	OverallTrend   string             `json:"overall_trend"`
	TrendStrength  float64            `json:"trend_strength"`
	MovingAverages map[string]float64 `json:"moving_averages"`
	Signals        map[string]string  `json:"trend_signals"`
	CurrentPrice   float64            `json:"current_price"`
	PriceChange    float64            `json:"price_change"`
}

// AnalyzeTrend compares the last price against each moving average the
// series can support. The overall label follows the bullish share of those
// comparisons: 0.7 and above is strongly bullish, 0.5 bullish, 0.3 bearish,
// below that strongly bearish. A series too short for every period is
// neutral.
func AnalyzeTrend(prices []float64, periods []int) TrendAnalysis {
	if len(periods) == 0 {
		periods = DefaultTrendPeriods
	}
	analysis := TrendAnalysis{
		OverallTrend:   SignalNeutral,
		TrendStrength:  0.5,
		MovingAverages: map[string]float64{},
		Signals:        map[string]string{},
	}
	if len(prices) == 0 {
		return analysis
	}

	analysis.CurrentPrice = prices[len(prices)-1]
	if first := prices[0]; first != 0 {
		analysis.PriceChange = (analysis.CurrentPrice - first) / first * 100
	}

	var bullish, total int
	for _, period := range periods {
		values := SMA(prices, period)
		if len(values) == 0 {
			continue
		}
		ma := values[len(values)-1]
		key := fmt.Sprintf("ma_%d", period)
		analysis.MovingAverages[key] = ma
		total++
		if analysis.CurrentPrice > ma {
			analysis.Signals[key+"_signal"] = SignalBullish
			bullish++
		} else {
			analysis.Signals[key+"_signal"] = SignalBearish
		}
	}
	if total == 0 {
		return analysis
	}

	analysis.TrendStrength = float64(bullish) / float64(total)
	switch {
	case analysis.TrendStrength >= 0.7:
		analysis.OverallTrend = "strong_bullish"
	case analysis.TrendStrength >= 0.5:
		analysis.OverallTrend = SignalBullish
	case analysis.TrendStrength >= 0.3:
		analysis.OverallTrend = SignalBearish
	default:
		analysis.OverallTrend = "strong_bearish"
	}
	return analysis
}

// SentimentResult is a heuristic market-mood score built from momentum,
// volume participation and realized volatility.
type SentimentResult struct {
	Sentiment   string            `json:"sentiment"`
	Score       int               `json:"sentiment_score"`
	Momentum1D  float64           `json:"price_momentum_1d"`
	Momentum5D  float64           `json:"price_momentum_5d"`
	VolumeRatio float64           `json:"volume_ratio"`
	Volatility  float64           `json:"volatility"`
	Factors     map[string]string `json:"analysis_factors"`
}

// AssessSentiment accumulates an integer score from one-day momentum, volume
// versus its 20-period average and annualized volatility, then maps the score
// to a five-level label from very_bearish to very_bullish.
func AssessSentiment(prices, volumes []float64) SentimentResult {
	result := SentimentResult{
		Sentiment:   SignalNeutral,
		VolumeRatio: 1,
		Factors:     map[string]string{},
	}

	if len(prices) > 1 {
		last := prices[len(prices)-1]
		prev := prices[len(prices)-2]
		if prev != 0 {
			result.Momentum1D = (last - prev) / prev * 100
		}
		if len(prices) > 5 {
			if fiveAgo := prices[len(prices)-6]; fiveAgo != 0 {
				result.Momentum5D = (last - fiveAgo) / fiveAgo * 100
			}
		}
	}

	if len(volumes) > 0 {
		window := volumes
		if len(window) > 20 {
			window = window[len(window)-20:]
		}
		if avg := mean(window); avg > 0 {
			result.VolumeRatio = volumes[len(volumes)-1] / avg
		}
	}

	result.Volatility = Volatility(Returns(prices))

	score := 0
	switch {
	case result.Momentum1D > 2:
		score += 2
	case result.Momentum1D > 0:
		score++
	case result.Momentum1D < -2:
		score -= 2
	case result.Momentum1D < 0:
		score--
	}
	if result.VolumeRatio > 1.5 {
		score++
	} else if result.VolumeRatio < 0.7 {
		score--
	}
	if result.Volatility > 50 {
		score--
	}
	result.Score = score

	switch {
	case score >= 2:
		result.Sentiment = "very_bullish"
	case score == 1:
		result.Sentiment = SignalBullish
	case score == 0:
		result.Sentiment = SignalNeutral
	case score == -1:
		result.Sentiment = SignalBearish
	default:
		result.Sentiment = "very_bearish"
	}

	if result.Momentum1D > 0 {
		result.Factors["price_trend"] = "positive"
	} else {
		result.Factors["price_trend"] = "negative"
	}
	switch {
	case result.VolumeRatio > 1.2:
		result.Factors["volume_trend"] = "high"
	case result.VolumeRatio > 0.8:
		result.Factors["volume_trend"] = "normal"
	default:
		result.Factors["volume_trend"] = "low"
	}
	switch {
	case result.Volatility > 30:
		result.Factors["volatility_level"] = "high"
	case result.Volatility > 15:
		result.Factors["volatility_level"] = "normal"
	default:
		result.Factors["volatility_level"] = "low"
	}
	return result
}
