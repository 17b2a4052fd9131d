package charts

import (
	"errors"
	"fmt"

	"github.com/vicanso/go-charts/v2"

	"github.com/avidalm/cryptoanalyzer-go/internal/analytics"
	"github.com/avidalm/cryptoanalyzer-go/internal/models"
)

// ErrNotEnoughData means the series is too short to draw.
var ErrNotEnoughData = errors.New("not enough data points to render")

func paddedRange(values []float64) (float64, float64) {
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	pad := (max - min) * 0.05
	if pad < max*0.002 {
		pad = max * 0.002
	}
	min -= pad
	if min < 0 && values[0] >= 0 {
		min = 0
	}
	return min, max + pad
}

func dateLabels(series *models.PriceSeries) []string {
	labels := make([]string, len(series.Points))
	for i, p := range series.Points {
		labels[i] = p.Timestamp.Format("Jan 02")
	}
	return labels
}

// PriceChart renders the close price history as a PNG line chart.
func PriceChart(series *models.PriceSeries) ([]byte, error) {
	closes := series.Closes()
	if len(closes) < 2 {
		return nil, ErrNotEnoughData
	}

	yMin, yMax := paddedRange(closes)
	painter, err := charts.LineRender([][]float64{closes},
		charts.TitleTextOptionFunc(fmt.Sprintf("%s • %s", series.Symbol, series.Timeframe)),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        dateLabels(series),
			BoundaryGap: charts.FalseFlag(),
			SplitNumber: 8,
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, err
	}
	return painter.Bytes()
}

// IndicatorChart renders the close price with its 20 and 50 period moving
// averages overlaid. The series are left-trimmed to the shortest so all
// lines share the x axis.
func IndicatorChart(series *models.PriceSeries) ([]byte, error) {
	closes := series.Closes()
	sma20 := analytics.SMA(closes, 20)
	sma50 := analytics.SMA(closes, 50)
	if len(sma50) < 2 {
		return nil, ErrNotEnoughData
	}

	n := len(sma50)
	values := [][]float64{
		closes[len(closes)-n:],
		sma20[len(sma20)-n:],
		sma50,
	}
	names := []string{series.Symbol, "SMA 20", "SMA 50"}

	yMin, yMax := paddedRange(values[0])
	seriesList := charts.NewSeriesListDataFromValues(values, charts.ChartTypeLine)
	for i := range seriesList {
		seriesList[i].Name = names[i]
	}

	labels := dateLabels(series)
	painter, err := charts.Render(charts.ChartOption{SeriesList: seriesList},
		charts.TitleTextOptionFunc(fmt.Sprintf("%s • moving averages", series.Symbol)),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels[len(labels)-n:],
			BoundaryGap: charts.FalseFlag(),
			SplitNumber: 8,
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, err
	}
	return painter.Bytes()
}

// ComparisonChart renders several symbols on one chart, each normalized to
// percent change from its first value so different price scales compare.
func ComparisonChart(seriesBySymbol map[string]*models.PriceSeries, symbols []string) ([]byte, error) {
	if len(symbols) == 0 {
		return nil, ErrNotEnoughData
	}

	closes := make(map[string][]float64, len(symbols))
	for _, symbol := range symbols {
		s, ok := seriesBySymbol[symbol]
		if !ok || s.Len() < 2 {
			return nil, fmt.Errorf("%w: %s", ErrNotEnoughData, symbol)
		}
		closes[symbol] = s.Closes()
	}
	aligned := analytics.AlignSeries(closes)

	var (
		values  [][]float64
		names   []string
		yMinAll = 0.0
		yMaxAll = 0.0
	)
	for _, symbol := range symbols {
		series := aligned[symbol]
		base := series[0]
		if base == 0 {
			base = 1
		}
		normalized := make([]float64, len(series))
		for i, v := range series {
			normalized[i] = (v/base - 1) * 100
			if normalized[i] < yMinAll {
				yMinAll = normalized[i]
			}
			if normalized[i] > yMaxAll {
				yMaxAll = normalized[i]
			}
		}
		values = append(values, normalized)
		names = append(names, symbol)
	}

	pad := (yMaxAll - yMinAll) * 0.05
	yMin := yMinAll - pad
	yMax := yMaxAll + pad

	seriesList := charts.NewSeriesListDataFromValues(values, charts.ChartTypeLine)
	for i := range seriesList {
		seriesList[i].Name = names[i]
	}

	first := seriesBySymbol[symbols[0]]
	labels := dateLabels(first)
	if len(labels) > len(values[0]) {
		labels = labels[len(labels)-len(values[0]):]
	}

	painter, err := charts.Render(charts.ChartOption{SeriesList: seriesList},
		charts.TitleTextOptionFunc("Performance comparison", "normalized %"),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			BoundaryGap: charts.FalseFlag(),
			SplitNumber: 8,
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, err
	}
	return painter.Bytes()
}

// RollingCorrelationChart renders a rolling correlation series with the y
// axis fixed to [-1, 1].
func RollingCorrelationChart(symbol1, symbol2 string, rolling []float64) ([]byte, error) {
	if len(rolling) < 2 {
		return nil, ErrNotEnoughData
	}

	yMin, yMax := -1.0, 1.0
	labels := make([]string, len(rolling))
	for i := range labels {
		labels[i] = fmt.Sprintf("%d", i+1)
	}

	painter, err := charts.LineRender([][]float64{rolling},
		charts.TitleTextOptionFunc(fmt.Sprintf("%s / %s rolling correlation", symbol1, symbol2)),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			BoundaryGap: charts.FalseFlag(),
			SplitNumber: 10,
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, err
	}
	return painter.Bytes()
}
