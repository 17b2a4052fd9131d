package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avidalm/cryptoanalyzer-go/internal/api/handlers"
	"github.com/avidalm/cryptoanalyzer-go/internal/collector"
	"github.com/avidalm/cryptoanalyzer-go/internal/config"
	"github.com/avidalm/cryptoanalyzer-go/internal/models"
)

type fakeMarket struct {
	series map[string]*models.PriceSeries
	quotes map[string]models.Quote
	errs   map[string]error
}

func (f *fakeMarket) Quote(_ context.Context, symbol string) (models.Quote, error) {
	if err, ok := f.errs[symbol]; ok {
		return models.Quote{}, err
	}
	quote, ok := f.quotes[symbol]
	if !ok {
		return models.Quote{}, fmt.Errorf("%w: %s", collector.ErrUnsupportedAsset, symbol)
	}
	return quote, nil
}

func (f *fakeMarket) History(_ context.Context, symbol string, timeframe models.Timeframe) (*models.PriceSeries, error) {
	if err, ok := f.errs[symbol]; ok {
		return nil, err
	}
	series, ok := f.series[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", collector.ErrUnsupportedAsset, symbol)
	}
	return series, nil
}

func (f *fakeMarket) HistoryMany(ctx context.Context, symbols []string, timeframe models.Timeframe) (map[string]*models.PriceSeries, map[string]error) {
	results := make(map[string]*models.PriceSeries)
	failed := make(map[string]error)
	for _, symbol := range symbols {
		series, err := f.History(ctx, symbol, timeframe)
		if err != nil {
			failed[symbol] = err
			continue
		}
		results[symbol] = series
	}
	return results, failed
}

func (f *fakeMarket) Summary(_ context.Context, symbol string) (models.MarketSummary, error) {
	if err, ok := f.errs[symbol]; ok {
		return models.MarketSummary{}, err
	}
	quote, ok := f.quotes[symbol]
	if !ok {
		return models.MarketSummary{}, fmt.Errorf("%w: %s", collector.ErrUnsupportedAsset, symbol)
	}
	return models.MarketSummary{Symbol: symbol, CurrentPrice: quote.Price}, nil
}

func syntheticSeries(symbol string, n int, start, drift, amplitude float64) *models.PriceSeries {
	points := make([]models.PricePoint, n)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range points {
		price := start + drift*float64(i) + amplitude*math.Sin(float64(i)/3)
		points[i] = models.PricePoint{
			Timestamp: base.AddDate(0, 0, i),
			Close:     price,
			Volume:    1000 + 10*float64(i),
		}
	}
	return &models.PriceSeries{
		Symbol:    symbol,
		Timeframe: models.TimeframeNinetyDays,
		Points:    points,
		StartDate: points[0].Timestamp,
		EndDate:   points[n-1].Timestamp,
	}
}

func testRouter(t *testing.T) (*gin.Engine, *fakeMarket) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	market := &fakeMarket{
		series: map[string]*models.PriceSeries{
			"BTC": syntheticSeries("BTC", 120, 40000, 120, 800),
			"ETH": syntheticSeries("ETH", 120, 2500, -4, 90),
			"SPY": syntheticSeries("SPY", 120, 480, 0.4, 3),
		},
		quotes: map[string]models.Quote{
			"BTC": {Symbol: "BTC", Price: 50000, LastUpdated: time.Now().UTC()},
			"ETH": {Symbol: "ETH", Price: 2100, LastUpdated: time.Now().UTC()},
			"SPY": {Symbol: "SPY", Price: 520, LastUpdated: time.Now().UTC()},
		},
		errs: map[string]error{
			"GHOST": fmt.Errorf("%w: GHOST", collector.ErrNoData),
			"DOWN":  fmt.Errorf("%w: status 503", collector.ErrUpstream),
		},
	}

	cfg := &config.Config{
		Analysis: config.AnalysisConfig{
			RiskFreeRate:      0.02,
			DefaultTimeframe:  "30d",
			CorrelationWindow: 30,
			VolatilityWindow:  30,
			RSIPeriod:         14,
		},
	}

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	router := gin.New()
	SetupRoutes(router, market, nil, cfg, log)
	return router, market
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decodeEnvelope(t *testing.T, recorder *httptest.ResponseRecorder) handlers.Envelope {
	t.Helper()
	var envelope handlers.Envelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	return envelope
}

func dataField(t *testing.T, envelope handlers.Envelope) map[string]interface{} {
	t.Helper()
	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok, "data should be a JSON object")
	return data
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := testRouter(t)

	recorder := doRequest(t, router, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["status"])
	assert.Equal(t, "disabled", response["cache"])
}

func TestRequestIDPropagation(t *testing.T) {
	router, _ := testRouter(t)

	recorder := doRequest(t, router, http.MethodGet, "/api/v1/assets/supported", nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	envelope := decodeEnvelope(t, recorder)
	assert.NotEmpty(t, envelope.RequestID)
	assert.Equal(t, envelope.RequestID, recorder.Header().Get("X-Request-ID"))
}

func TestGetPrice(t *testing.T) {
	router, _ := testRouter(t)

	t.Run("known symbol", func(t *testing.T) {
		recorder := doRequest(t, router, http.MethodGet, "/api/v1/assets/price/btc", nil)

		assert.Equal(t, http.StatusOK, recorder.Code)
		envelope := decodeEnvelope(t, recorder)
		assert.True(t, envelope.Success)
		data := dataField(t, envelope)
		assert.Equal(t, "BTC", data["symbol"])
		assert.InDelta(t, 50000, data["price"], 1e-9)
	})

	t.Run("unsupported symbol", func(t *testing.T) {
		recorder := doRequest(t, router, http.MethodGet, "/api/v1/assets/price/NOPE", nil)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		envelope := decodeEnvelope(t, recorder)
		assert.False(t, envelope.Success)
		assert.Contains(t, envelope.Error, "unsupported asset")
	})

	t.Run("no data", func(t *testing.T) {
		recorder := doRequest(t, router, http.MethodGet, "/api/v1/assets/price/GHOST", nil)
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("upstream failure", func(t *testing.T) {
		recorder := doRequest(t, router, http.MethodGet, "/api/v1/assets/price/DOWN", nil)
		assert.Equal(t, http.StatusBadGateway, recorder.Code)
	})
}

func TestGetPerformance(t *testing.T) {
	router, _ := testRouter(t)

	recorder := doRequest(t, router, http.MethodGet, "/api/v1/analysis/performance/BTC?timeframe=90d", nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	envelope := decodeEnvelope(t, recorder)
	require.True(t, envelope.Success)
	data := dataField(t, envelope)
	assert.Equal(t, "BTC", data["symbol"])
	assert.Equal(t, "90d", data["timeframe"])
	assert.Equal(t, float64(120), data["data_points"])
	assert.Greater(t, data["total_return"], 0.0)
	assert.Greater(t, data["volatility"], 0.0)
	assert.LessOrEqual(t, data["max_drawdown"], 0.0)
	assert.Less(t, data["var_95"], 0.0)
	assert.LessOrEqual(t, data["cvar_95"], data["var_95"])
}

func TestGetVolatility(t *testing.T) {
	router, _ := testRouter(t)

	t.Run("defaults", func(t *testing.T) {
		recorder := doRequest(t, router, http.MethodGet, "/api/v1/analysis/volatility/ETH", nil)

		assert.Equal(t, http.StatusOK, recorder.Code)
		data := dataField(t, decodeEnvelope(t, recorder))
		assert.Equal(t, float64(30), data["window"])
		assert.Greater(t, data["garch_volatility"], 0.0)

		regime, ok := data["regime"].(map[string]interface{})
		require.True(t, ok)
		assert.Contains(t, []interface{}{"high_volatility", "low_volatility", "normal_volatility"}, regime["regime"])
	})

	t.Run("rejects bad window", func(t *testing.T) {
		recorder := doRequest(t, router, http.MethodGet, "/api/v1/analysis/volatility/ETH?window=1", nil)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestGetRiskWithBenchmark(t *testing.T) {
	router, _ := testRouter(t)

	recorder := doRequest(t, router, http.MethodGet, "/api/v1/analysis/risk/BTC?benchmark=SPY", nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	data := dataField(t, decodeEnvelope(t, recorder))
	assert.Equal(t, "SPY", data["benchmark"])
	assert.Contains(t, data, "beta")
	assert.Contains(t, data, "alpha")

	profile, ok := data["profile"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, []interface{}{"very_low", "low", "medium", "high", "very_high"}, profile["risk_level"])
}

func TestGetTechnical(t *testing.T) {
	router, _ := testRouter(t)

	t.Run("all indicators", func(t *testing.T) {
		recorder := doRequest(t, router, http.MethodGet, "/api/v1/analysis/technical/BTC", nil)

		assert.Equal(t, http.StatusOK, recorder.Code)
		data := dataField(t, decodeEnvelope(t, recorder))
		signals, ok := data["signals"].(map[string]interface{})
		require.True(t, ok)
		assert.Len(t, signals, 5)

		overall, ok := data["overall_signal"].(map[string]interface{})
		require.True(t, ok)
		assert.Contains(t, []interface{}{"bullish", "bearish", "neutral"}, overall["signal"])

		indicators, ok := data["indicators"].(map[string]interface{})
		require.True(t, ok)
		assert.Contains(t, indicators, "rsi")
		assert.Contains(t, indicators, "macd")
		assert.Contains(t, indicators, "sma_20")
	})

	t.Run("subset", func(t *testing.T) {
		recorder := doRequest(t, router, http.MethodGet, "/api/v1/analysis/technical/BTC?indicators=rsi,macd", nil)

		assert.Equal(t, http.StatusOK, recorder.Code)
		data := dataField(t, decodeEnvelope(t, recorder))
		signals, ok := data["signals"].(map[string]interface{})
		require.True(t, ok)
		assert.Len(t, signals, 2)
	})

	t.Run("unknown indicator", func(t *testing.T) {
		recorder := doRequest(t, router, http.MethodGet, "/api/v1/analysis/technical/BTC?indicators=vwap", nil)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		envelope := decodeEnvelope(t, recorder)
		assert.Contains(t, envelope.Error, "unknown indicator")
	})
}

func TestGetTrendAndSentiment(t *testing.T) {
	router, _ := testRouter(t)

	recorder := doRequest(t, router, http.MethodGet, "/api/v1/analysis/trend/BTC", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	data := dataField(t, decodeEnvelope(t, recorder))
	trend, ok := data["trend"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, []interface{}{"strong_bullish", "bullish", "bearish", "strong_bearish", "neutral"}, trend["overall_trend"])
	assert.Contains(t, trend, "trend_strength")
	assert.Contains(t, trend, "moving_averages")

	recorder = doRequest(t, router, http.MethodGet, "/api/v1/analysis/sentiment/ETH", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	data = dataField(t, decodeEnvelope(t, recorder))
	assert.Contains(t, data, "sentiment")
}

func TestComparePerformance(t *testing.T) {
	router, _ := testRouter(t)

	body := map[string]interface{}{"symbols": []string{"BTC", "ETH", "SPY"}, "timeframe": "90d"}
	recorder := doRequest(t, router, http.MethodPost, "/api/v1/analysis/performance", body)

	assert.Equal(t, http.StatusOK, recorder.Code)
	data := dataField(t, decodeEnvelope(t, recorder))
	assets, ok := data["assets"].([]interface{})
	require.True(t, ok)
	assert.Len(t, assets, 3)
	// BTC trends up hard, ETH drifts down
	assert.Equal(t, "BTC", data["best_performer"])
	assert.Equal(t, "ETH", data["worst_performer"])

	t.Run("symbols required", func(t *testing.T) {
		recorder := doRequest(t, router, http.MethodPost, "/api/v1/analysis/performance", map[string]interface{}{})
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestCompareVolatility(t *testing.T) {
	router, _ := testRouter(t)

	body := map[string]interface{}{"symbols": []string{"BTC", "SPY"}, "timeframe": "90d"}
	recorder := doRequest(t, router, http.MethodPost, "/api/v1/analysis/volatility", body)

	assert.Equal(t, http.StatusOK, recorder.Code)
	data := dataField(t, decodeEnvelope(t, recorder))
	assert.Equal(t, "BTC", data["most_volatile"])
	assert.Equal(t, "SPY", data["least_volatile"])
	market, ok := data["market_overview"].(map[string]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, market["dominant_regime"])
}

func TestCompareTechnical(t *testing.T) {
	router, _ := testRouter(t)

	t.Run("signals per symbol", func(t *testing.T) {
		body := map[string]interface{}{"symbols": []string{"BTC", "ETH"}, "timeframe": "90d"}
		recorder := doRequest(t, router, http.MethodPost, "/api/v1/analysis/technical", body)

		assert.Equal(t, http.StatusOK, recorder.Code)
		data := dataField(t, decodeEnvelope(t, recorder))
		assets, ok := data["assets"].([]interface{})
		require.True(t, ok)
		require.Len(t, assets, 2)

		first, ok := assets[0].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "BTC", first["symbol"])
		signals, ok := first["signals"].(map[string]interface{})
		require.True(t, ok)
		assert.Len(t, signals, 5)
		overall, ok := first["overall_signal"].(map[string]interface{})
		require.True(t, ok)
		assert.Contains(t, []interface{}{"bullish", "bearish", "neutral"}, overall["signal"])
	})

	t.Run("unknown indicator", func(t *testing.T) {
		body := map[string]interface{}{
			"symbols":    []string{"BTC"},
			"indicators": []string{"macd", "bogus"},
		}
		recorder := doRequest(t, router, http.MethodPost, "/api/v1/analysis/technical", body)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("missing body", func(t *testing.T) {
		recorder := doRequest(t, router, http.MethodPost, "/api/v1/analysis/technical", nil)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestGetTrends(t *testing.T) {
	router, _ := testRouter(t)

	t.Run("multi asset summary", func(t *testing.T) {
		recorder := doRequest(t, router, http.MethodGet, "/api/v1/analysis/trends?symbols=BTC,ETH,SPY", nil)

		assert.Equal(t, http.StatusOK, recorder.Code)
		data := dataField(t, decodeEnvelope(t, recorder))
		assets, ok := data["assets"].([]interface{})
		require.True(t, ok)
		assert.Len(t, assets, 3)
		market, ok := data["market_overview"].(map[string]interface{})
		require.True(t, ok)
		assert.NotEmpty(t, market["dominant_regime"])
	})

	t.Run("failed symbols are reported", func(t *testing.T) {
		recorder := doRequest(t, router, http.MethodGet, "/api/v1/analysis/trends?symbols=BTC,GHOST", nil)

		assert.Equal(t, http.StatusOK, recorder.Code)
		data := dataField(t, decodeEnvelope(t, recorder))
		failed, ok := data["failed_symbols"].(map[string]interface{})
		require.True(t, ok)
		assert.Contains(t, failed, "GHOST")
	})

	t.Run("symbols required", func(t *testing.T) {
		recorder := doRequest(t, router, http.MethodGet, "/api/v1/analysis/trends", nil)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestCORS(t *testing.T) {
	router, _ := testRouter(t)

	t.Run("headers on responses", func(t *testing.T) {
		recorder := doRequest(t, router, http.MethodGet, "/api/v1/assets/supported", nil)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "*", recorder.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		recorder := doRequest(t, router, http.MethodOptions, "/api/v1/analysis/performance", nil)

		assert.Equal(t, http.StatusNoContent, recorder.Code)
		assert.Contains(t, recorder.Header().Get("Access-Control-Allow-Methods"), "POST")
	})
}

func TestCorrelationMatrix(t *testing.T) {
	router, _ := testRouter(t)

	t.Run("two assets", func(t *testing.T) {
		body := map[string]interface{}{"symbols": []string{"BTC", "ETH"}, "timeframe": "90d"}
		recorder := doRequest(t, router, http.MethodPost, "/api/v1/correlations/matrix", body)

		assert.Equal(t, http.StatusOK, recorder.Code)
		data := dataField(t, decodeEnvelope(t, recorder))
		matrix, ok := data["correlation_matrix"].(map[string]interface{})
		require.True(t, ok)
		btcRow, ok := matrix["BTC"].(map[string]interface{})
		require.True(t, ok)
		assert.InDelta(t, 1.0, btcRow["BTC"], 1e-9)
	})

	t.Run("partial failures reported", func(t *testing.T) {
		body := map[string]interface{}{"symbols": []string{"BTC", "ETH", "GHOST"}}
		recorder := doRequest(t, router, http.MethodPost, "/api/v1/correlations/matrix", body)

		assert.Equal(t, http.StatusOK, recorder.Code)
		data := dataField(t, decodeEnvelope(t, recorder))
		failed, ok := data["failed_symbols"].(map[string]interface{})
		require.True(t, ok)
		assert.Contains(t, failed, "GHOST")
	})

	t.Run("too few symbols", func(t *testing.T) {
		body := map[string]interface{}{"symbols": []string{"BTC"}}
		recorder := doRequest(t, router, http.MethodPost, "/api/v1/correlations/matrix", body)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("missing body", func(t *testing.T) {
		recorder := doRequest(t, router, http.MethodPost, "/api/v1/correlations/matrix", nil)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestCorrelationHeatmap(t *testing.T) {
	router, _ := testRouter(t)

	recorder := doRequest(t, router, http.MethodGet, "/api/v1/correlations/heatmap?symbols=BTC,ETH,SPY", nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	data := dataField(t, decodeEnvelope(t, recorder))
	symbols, ok := data["symbols"].([]interface{})
	require.True(t, ok)
	require.Len(t, symbols, 3)
	grid, ok := data["grid"].([]interface{})
	require.True(t, ok)
	require.Len(t, grid, 3)
	row, ok := grid[0].([]interface{})
	require.True(t, ok)
	require.Len(t, row, 3)
	assert.InDelta(t, 1.0, row[0], 1e-9)

	t.Run("requires symbols", func(t *testing.T) {
		recorder := doRequest(t, router, http.MethodGet, "/api/v1/correlations/heatmap", nil)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestPairwiseCorrelation(t *testing.T) {
	router, _ := testRouter(t)

	recorder := doRequest(t, router, http.MethodGet, "/api/v1/correlations/pairwise/BTC/ETH", nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	data := dataField(t, decodeEnvelope(t, recorder))
	correlation, ok := data["correlation"].(float64)
	require.True(t, ok)
	assert.GreaterOrEqual(t, correlation, -1.0)
	assert.LessOrEqual(t, correlation, 1.0)

	recorder = doRequest(t, router, http.MethodGet, "/api/v1/correlations/pairwise/BTC/BTC", nil)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestRollingCorrelation(t *testing.T) {
	router, _ := testRouter(t)

	recorder := doRequest(t, router, http.MethodGet, "/api/v1/correlations/rolling/BTC/ETH?window=20", nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	data := dataField(t, decodeEnvelope(t, recorder))
	assert.Equal(t, float64(20), data["window"])
	values, ok := data["values"].([]interface{})
	require.True(t, ok)
	// 120 prices give 119 returns and 119-20+1 rolling windows.
	assert.Len(t, values, 100)
}

func TestPortfolioAnalyze(t *testing.T) {
	router, _ := testRouter(t)

	body := map[string]interface{}{
		"positions": []map[string]interface{}{
			{"symbol": "BTC", "quantity": "0.5", "avg_cost": "30000"},
			{"symbol": "ETH", "quantity": "10", "avg_cost": "2000"},
		},
		"timeframe": "90d",
	}
	recorder := doRequest(t, router, http.MethodPost, "/api/v1/portfolio/analyze", body)

	assert.Equal(t, http.StatusOK, recorder.Code)
	data := dataField(t, decodeEnvelope(t, recorder))
	totalValue, err := strconv.ParseFloat(data["total_value"].(string), 64)
	require.NoError(t, err)
	assert.Greater(t, totalValue, 0.0)
	positions, ok := data["positions"].([]interface{})
	require.True(t, ok)
	assert.Len(t, positions, 2)
	varAnalysis, ok := data["var_analysis"].(map[string]interface{})
	require.True(t, ok)
	assert.Greater(t, varAnalysis["observations"], 0.0)

	t.Run("rejects empty positions", func(t *testing.T) {
		recorder := doRequest(t, router, http.MethodPost, "/api/v1/portfolio/analyze", map[string]interface{}{
			"positions": []map[string]interface{}{},
		})
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		recorder := doRequest(t, router, http.MethodPost, "/api/v1/portfolio/analyze", map[string]interface{}{
			"positions": []map[string]interface{}{
				{"symbol": "BTC", "quantity": "-1", "avg_cost": "30000"},
			},
		})
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestPortfolioOptimize(t *testing.T) {
	router, _ := testRouter(t)

	body := map[string]interface{}{
		"symbols":        []string{"BTC", "ETH", "SPY"},
		"risk_tolerance": "conservative",
		"total_value":    100000,
		"timeframe":      "90d",
	}
	recorder := doRequest(t, router, http.MethodPost, "/api/v1/portfolio/optimize", body)

	assert.Equal(t, http.StatusOK, recorder.Code)
	data := dataField(t, decodeEnvelope(t, recorder))
	allocations, ok := data["allocations"].([]interface{})
	require.True(t, ok)
	require.Len(t, allocations, 3)
	sum := 0.0
	for _, raw := range allocations {
		allocation, ok := raw.(map[string]interface{})
		require.True(t, ok)
		sum += allocation["weight"].(float64)
	}
	assert.InDelta(t, 100.0, sum, 1e-6)

	t.Run("unknown risk tolerance", func(t *testing.T) {
		recorder := doRequest(t, router, http.MethodPost, "/api/v1/portfolio/optimize", map[string]interface{}{
			"symbols":     []string{"BTC", "ETH"},
			"total_value": 1000,

			"risk_tolerance": "yolo",
		})
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("all symbols unavailable", func(t *testing.T) {
		recorder := doRequest(t, router, http.MethodPost, "/api/v1/portfolio/optimize", map[string]interface{}{
			"symbols":     []string{"GHOST", "DOWN"},
			"total_value": 1000,
		})
		assert.Equal(t, http.StatusBadGateway, recorder.Code)
	})
}

func TestPortfolioRebalance(t *testing.T) {
	router, _ := testRouter(t)

	body := map[string]interface{}{
		"positions": []map[string]interface{}{
			{"symbol": "BTC", "quantity": "1", "avg_cost": "30000"},
			{"symbol": "ETH", "quantity": "10", "avg_cost": "2000"},
		},
		"target_allocations": map[string]float64{"BTC": 60, "ETH": 40},
	}
	recorder := doRequest(t, router, http.MethodPost, "/api/v1/portfolio/rebalance", body)

	assert.Equal(t, http.StatusOK, recorder.Code)
	data := dataField(t, decodeEnvelope(t, recorder))
	trades, ok := data["trades"].([]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, trades)

	t.Run("targets must sum to 100", func(t *testing.T) {
		bad := map[string]interface{}{
			"positions": []map[string]interface{}{
				{"symbol": "BTC", "quantity": "1", "avg_cost": "30000"},
			},
			"target_allocations": map[string]float64{"BTC": 50, "ETH": 30},
		}
		recorder := doRequest(t, router, http.MethodPost, "/api/v1/portfolio/rebalance", bad)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestChartEndpoints(t *testing.T) {
	router, _ := testRouter(t)

	pngMagic := []byte{0x89, 0x50, 0x4e, 0x47}

	t.Run("price chart", func(t *testing.T) {
		recorder := doRequest(t, router, http.MethodGet, "/api/v1/charts/price/BTC", nil)

		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "image/png", recorder.Header().Get("Content-Type"))
		assert.Equal(t, pngMagic, recorder.Body.Bytes()[:4])
	})

	t.Run("comparison chart requires symbols", func(t *testing.T) {
		recorder := doRequest(t, router, http.MethodGet, "/api/v1/charts/compare", nil)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("comparison chart", func(t *testing.T) {
		recorder := doRequest(t, router, http.MethodGet, "/api/v1/charts/compare?symbols=BTC,ETH", nil)

		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, pngMagic, recorder.Body.Bytes()[:4])
	})

	t.Run("correlation chart", func(t *testing.T) {
		recorder := doRequest(t, router, http.MethodGet, "/api/v1/charts/correlation/BTC/ETH", nil)

		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, pngMagic, recorder.Body.Bytes()[:4])
	})
}

func TestHistoryEndpoint(t *testing.T) {
	router, _ := testRouter(t)

	recorder := doRequest(t, router, http.MethodGet, "/api/v1/assets/history/BTC?timeframe=90d", nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	data := dataField(t, decodeEnvelope(t, recorder))
	points, ok := data["data"].([]interface{})
	require.True(t, ok)
	assert.Len(t, points, 120)
}
