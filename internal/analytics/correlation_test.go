package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trendingSeries(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func TestAlignSeries(t *testing.T) {
	t.Run("truncates to shortest keeping recent points", func(t *testing.T) {
		aligned := AlignSeries(map[string][]float64{
			"BTC": {1, 2, 3, 4, 5},
			"ETH": {10, 20, 30},
		})
		require.NotNil(t, aligned)
		assert.Equal(t, []float64{3, 4, 5}, aligned["BTC"])
		assert.Equal(t, []float64{10, 20, 30}, aligned["ETH"])
	})

	t.Run("empty member yields nil", func(t *testing.T) {
		assert.Nil(t, AlignSeries(map[string][]float64{"BTC": {1, 2}, "ETH": {}}))
	})

	t.Run("empty input yields nil", func(t *testing.T) {
		assert.Nil(t, AlignSeries(nil))
	})
}

func TestCorrelationMatrix(t *testing.T) {
	t.Run("proportional series correlate perfectly", func(t *testing.T) {
		base := []float64{100, 102, 101, 105, 103, 108, 110, 107, 112, 115}
		double := make([]float64, len(base))
		for i, v := range base {
			double[i] = 2 * v
		}

		result := CorrelationMatrix(map[string][]float64{"AAA": base, "BBB": double})
		assert.Equal(t, []string{"AAA", "BBB"}, result.Symbols)
		assert.InDelta(t, 1, result.Matrix["AAA"]["AAA"], 1e-10)
		assert.InDelta(t, 1, result.Matrix["BBB"]["BBB"], 1e-10)
		assert.InDelta(t, 1, result.Matrix["AAA"]["BBB"], 1e-10)
		assert.InDelta(t, result.Matrix["AAA"]["BBB"], result.Matrix["BBB"]["AAA"], 1e-10)

		require.Len(t, result.StrongCorrelations, 1)
		assert.Equal(t, "AAA", result.StrongCorrelations[0].Asset1)
		assert.Equal(t, "BBB", result.StrongCorrelations[0].Asset2)
		assert.Equal(t, "strong", result.StrongCorrelations[0].Strength)
		assert.InDelta(t, 1, result.AverageCorrelation, 1e-10)
	})

	t.Run("unequal lengths are aligned", func(t *testing.T) {
		long := trendingSeries(50, 100, 1)
		short := trendingSeries(30, 50, 2)
		result := CorrelationMatrix(map[string][]float64{"LONG": long, "SHORT": short})
		assert.InDelta(t, result.Matrix["LONG"]["SHORT"], result.Matrix["SHORT"]["LONG"], 1e-10)
		assert.NotZero(t, result.Matrix["LONG"]["SHORT"])
	})

	t.Run("empty input", func(t *testing.T) {
		result := CorrelationMatrix(nil)
		assert.Empty(t, result.Matrix)
		assert.Empty(t, result.StrongCorrelations)
	})

	t.Run("single symbol yields an empty result", func(t *testing.T) {
		result := CorrelationMatrix(map[string][]float64{
			"AAA": {100, 102, 101, 105, 103},
		})
		assert.Empty(t, result.Matrix)
		assert.Empty(t, result.StrongCorrelations)
		assert.Zero(t, result.AverageCorrelation)
	})
}

func TestRollingCorrelation(t *testing.T) {
	base := trendingSeries(60, 100, 1)
	double := trendingSeries(60, 200, 2)

	t.Run("proportional series roll at one", func(t *testing.T) {
		rolling := RollingCorrelation(base, double, 10)
		assert.Len(t, rolling, 50)
		for _, v := range rolling {
			assert.InDelta(t, 1, v, 1e-9)
		}
	})

	t.Run("window larger than series", func(t *testing.T) {
		assert.Empty(t, RollingCorrelation(base[:5], double[:5], 10))
	})

	t.Run("unequal lengths are truncated", func(t *testing.T) {
		rolling := RollingCorrelation(base, double[:30], 10)
		assert.Len(t, rolling, 20)
	})
}

func TestCorrelationStability(t *testing.T) {
	t.Run("constant relationship is stable", func(t *testing.T) {
		base := trendingSeries(80, 100, 1)
		double := trendingSeries(80, 300, 3)
		result := CorrelationStability(base, double, 10)
		assert.True(t, result.Stable)
		assert.InDelta(t, 1, result.StabilityScore, 1e-9)
		assert.InDelta(t, 1, result.CurrentCorrelation, 1e-9)
		assert.Equal(t, "stable", result.Trend)
		assert.Equal(t, 70, result.Observations)
	})

	t.Run("insufficient data", func(t *testing.T) {
		result := CorrelationStability([]float64{1, 2}, []float64{2, 4}, 30)
		assert.False(t, result.Stable)
		assert.Zero(t, result.Observations)
	})
}

func TestPairwiseCorrelation(t *testing.T) {
	t.Run("inverse series", func(t *testing.T) {
		up := []float64{100, 101, 103, 102, 105, 104, 108}
		down := make([]float64, len(up))
		for i, v := range up {
			down[i] = 300 - v
		}
		result := PairwiseCorrelation("UP", "DOWN", up, down)
		assert.Equal(t, "negative", result.Direction)
		assert.Less(t, result.Correlation, -0.7)
		assert.Equal(t, 6, result.Observations)
	})

	t.Run("strength labels", func(t *testing.T) {
		base := []float64{100, 102, 101, 105, 103, 108}
		double := make([]float64, len(base))
		for i, v := range base {
			double[i] = 2 * v
		}
		result := PairwiseCorrelation("A", "B", base, double)
		assert.Equal(t, "very strong", result.Strength)
		assert.Equal(t, "positive", result.Direction)
	})

	t.Run("too short", func(t *testing.T) {
		result := PairwiseCorrelation("A", "B", []float64{1}, []float64{2})
		assert.Equal(t, "unknown", result.Strength)
	})
}
