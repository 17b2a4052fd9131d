package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMA(t *testing.T) {
	t.Run("known values", func(t *testing.T) {
		result := SMA([]float64{1, 2, 3, 4, 5}, 3)
		assert.Len(t, result, 3)
		assert.InDelta(t, 2, result[0], 1e-10)
		assert.InDelta(t, 3, result[1], 1e-10)
		assert.InDelta(t, 4, result[2], 1e-10)
	})

	t.Run("series shorter than period", func(t *testing.T) {
		assert.Empty(t, SMA([]float64{1, 2}, 3))
	})

	t.Run("invalid period", func(t *testing.T) {
		assert.Empty(t, SMA([]float64{1, 2, 3}, 0))
	})
}

func TestEMA(t *testing.T) {
	t.Run("constant series stays constant", func(t *testing.T) {
		result := EMA([]float64{10, 10, 10, 10, 10, 10}, 3)
		assert.NotEmpty(t, result)
		for _, v := range result {
			assert.InDelta(t, 10, v, 1e-10)
		}
	})

	t.Run("tracks rising series", func(t *testing.T) {
		result := EMA([]float64{1, 2, 3, 4, 5, 6, 7, 8}, 3)
		assert.NotEmpty(t, result)
		for i := 1; i < len(result); i++ {
			assert.Greater(t, result[i], result[i-1])
		}
	})

	t.Run("too short", func(t *testing.T) {
		assert.Empty(t, EMA([]float64{1, 2}, 5))
	})
}

func TestRSI(t *testing.T) {
	t.Run("all gains reads one hundred", func(t *testing.T) {
		prices := make([]float64, 20)
		for i := range prices {
			prices[i] = 100 + float64(i)
		}
		result := RSI(prices, 14)
		assert.Len(t, result, 6)
		for _, v := range result {
			assert.InDelta(t, 100, v, 1e-10)
		}
	})

	t.Run("all losses reads zero", func(t *testing.T) {
		prices := make([]float64, 20)
		for i := range prices {
			prices[i] = 100 - float64(i)
		}
		result := RSI(prices, 14)
		assert.NotEmpty(t, result)
		for _, v := range result {
			assert.InDelta(t, 0, v, 1e-10)
		}
	})

	t.Run("balanced moves read fifty", func(t *testing.T) {
		prices := make([]float64, 21)
		prices[0] = 100
		for i := 1; i < len(prices); i++ {
			if i%2 == 1 {
				prices[i] = prices[i-1] + 1
			} else {
				prices[i] = prices[i-1] - 1
			}
		}
		result := RSI(prices, 14)
		assert.NotEmpty(t, result)
		for _, v := range result {
			assert.InDelta(t, 50, v, 1e-10)
		}
	})

	t.Run("bounded", func(t *testing.T) {
		prices := []float64{44, 44.3, 44.1, 43.6, 44.3, 44.8, 45.1, 45.4, 45.8, 46.0, 45.9, 46.2, 46.0, 46.5, 46.2, 46.3, 46.0}
		for _, v := range RSI(prices, 14) {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 100.0)
		}
	})

	t.Run("too short", func(t *testing.T) {
		assert.Empty(t, RSI([]float64{1, 2, 3}, 14))
	})
}

func TestMACD(t *testing.T) {
	t.Run("aligned output lengths", func(t *testing.T) {
		prices := make([]float64, 60)
		for i := range prices {
			prices[i] = 100 + float64(i)*0.5
		}
		result := MACD(prices)
		assert.NotEmpty(t, result.Signal)
		assert.Equal(t, len(result.Signal), len(result.MACDLine))
		assert.Equal(t, len(result.Signal), len(result.Histogram))
	})

	t.Run("histogram is macd minus signal", func(t *testing.T) {
		prices := make([]float64, 80)
		for i := range prices {
			prices[i] = 100 + 10*float64(i%7)
		}
		result := MACD(prices)
		for i := range result.Signal {
			assert.InDelta(t, result.MACDLine[i]-result.Signal[i], result.Histogram[i], 1e-10)
		}
	})

	t.Run("flat series is all zero", func(t *testing.T) {
		prices := make([]float64, 60)
		for i := range prices {
			prices[i] = 100
		}
		macd, signal, histogram, ok := MACD(prices).Latest()
		assert.True(t, ok)
		assert.InDelta(t, 0, macd, 1e-10)
		assert.InDelta(t, 0, signal, 1e-10)
		assert.InDelta(t, 0, histogram, 1e-10)
	})

	t.Run("too short", func(t *testing.T) {
		result := MACD(make([]float64, 20))
		assert.Empty(t, result.Signal)
		_, _, _, ok := result.Latest()
		assert.False(t, ok)
	})
}

func TestBollinger(t *testing.T) {
	t.Run("bands bracket the middle", func(t *testing.T) {
		prices := make([]float64, 40)
		for i := range prices {
			prices[i] = 100 + 5*float64(i%4)
		}
		bands := Bollinger(prices, 20, 2)
		assert.NotEmpty(t, bands.Middle)
		assert.Equal(t, len(bands.Middle), len(bands.Upper))
		assert.Equal(t, len(bands.Middle), len(bands.Lower))
		for i := range bands.Middle {
			assert.Greater(t, bands.Upper[i], bands.Middle[i])
			assert.Less(t, bands.Lower[i], bands.Middle[i])
			assert.InDelta(t, bands.Middle[i]-bands.Lower[i], bands.Upper[i]-bands.Middle[i], 1e-10)
		}

		last := len(bands.Middle) - 1
		expected := (bands.Upper[last] - bands.Lower[last]) / bands.Middle[last] * 100
		assert.InDelta(t, expected, bands.Bandwidth, 1e-10)
		assert.Greater(t, bands.Bandwidth, 0.0)
	})

	t.Run("flat series collapses the bands", func(t *testing.T) {
		prices := make([]float64, 25)
		for i := range prices {
			prices[i] = 50
		}
		bands := Bollinger(prices, 20, 2)
		for i := range bands.Middle {
			assert.InDelta(t, 50, bands.Upper[i], 1e-10)
			assert.InDelta(t, 50, bands.Lower[i], 1e-10)
		}
		assert.Zero(t, bands.Bandwidth)
	})

	t.Run("too short", func(t *testing.T) {
		bands := Bollinger([]float64{1, 2, 3}, 20, 2)
		assert.Empty(t, bands.Middle)
	})
}

func TestSupportResistance(t *testing.T) {
	peakTrough := func(n int, closeAt func(i int) float64) (highs, lows, closes []float64) {
		highs = make([]float64, n)
		lows = make([]float64, n)
		closes = make([]float64, n)
		for i := range highs {
			highs[i] = 115 - math.Abs(float64(i-15))
			lows[i] = 70 + math.Abs(float64(i-20))
			closes[i] = closeAt(i)
		}
		return highs, lows, closes
	}

	t.Run("resistance from highs and support from lows", func(t *testing.T) {
		highs, lows, closes := peakTrough(40, func(i int) float64 {
			return (115 - math.Abs(float64(i-15)) + 70 + math.Abs(float64(i-20))) / 2
		})
		levels := SupportResistance(highs, lows, closes, 10)
		assert.Equal(t, []float64{115}, levels.Resistance)
		assert.Equal(t, []float64{70}, levels.Support)
		require.NotNil(t, levels.NearestResistance)
		assert.InDelta(t, 115, *levels.NearestResistance, 1e-9)
		require.NotNil(t, levels.NearestSupport)
		assert.InDelta(t, 70, *levels.NearestSupport, 1e-9)
	})

	t.Run("nearest resistance absent above all peaks", func(t *testing.T) {
		highs, lows, closes := peakTrough(40, func(int) float64 { return 120 })
		levels := SupportResistance(highs, lows, closes, 10)
		assert.Nil(t, levels.NearestResistance)
		require.NotNil(t, levels.NearestSupport)
		assert.InDelta(t, 70, *levels.NearestSupport, 1e-9)
	})

	t.Run("levels are deduplicated capped and ordered", func(t *testing.T) {
		n := 90
		highs := make([]float64, n)
		lows := make([]float64, n)
		closes := make([]float64, n)
		for i := range highs {
			highs[i] = 100 + 0.01*float64(i)
			lows[i] = 90 - 0.01*float64(i)
			closes[i] = 95
		}
		for _, p := range []int{15, 27, 39, 51, 63, 75} {
			highs[p] = 150 + float64(p)
			lows[p] = 30 - float64(p)/10
		}

		levels := SupportResistance(highs, lows, closes, 10)
		assert.InDeltaSlice(t, []float64{165, 177, 189, 201, 213}, levels.Resistance, 1e-9)
		assert.InDeltaSlice(t, []float64{28.5, 27.3, 26.1, 24.9, 23.7}, levels.Support, 1e-9)
		require.NotNil(t, levels.NearestResistance)
		assert.InDelta(t, 165, *levels.NearestResistance, 1e-9)
		require.NotNil(t, levels.NearestSupport)
		assert.InDelta(t, 28.5, *levels.NearestSupport, 1e-9)
	})

	t.Run("too short", func(t *testing.T) {
		levels := SupportResistance([]float64{1, 2}, []float64{1, 2}, []float64{1, 2}, 10)
		assert.Empty(t, levels.Support)
		assert.Empty(t, levels.Resistance)
		assert.Nil(t, levels.NearestSupport)
		assert.Nil(t, levels.NearestResistance)
	})

	t.Run("mismatched inputs", func(t *testing.T) {
		closes := make([]float64, 40)
		levels := SupportResistance(closes[:10], closes[:10], closes, 10)
		assert.Empty(t, levels.Support)
		assert.Empty(t, levels.Resistance)
	})
}
