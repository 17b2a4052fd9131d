package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avidalm/cryptoanalyzer-go/internal/config"
	"github.com/avidalm/cryptoanalyzer-go/internal/models"
)

// YahooClient fetches stock, ETF, index and commodity prices from the Yahoo
// Finance chart API.
type YahooClient struct {
	HTTPClient *http.Client
	baseURL    string
	userAgent  string
	log        *logrus.Entry
}

// NewYahooClient creates a Yahoo Finance client from collector configuration.
func NewYahooClient(cfg config.CollectorConfig, log *logrus.Logger) *YahooClient {
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &YahooClient{
		HTTPClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(cfg.YahooBaseURL, "/"),
		userAgent:  cfg.UserAgent,
		log:        log.WithField("component", "yahoo"),
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Quote returns the current price snapshot for a traditional asset.
func (c *YahooClient) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	response, err := c.chart(ctx, symbol, 5)
	if err != nil {
		return models.Quote{}, err
	}

	meta := response.Chart.Result[0].Meta
	quote := models.Quote{
		Symbol:      NormalizeSymbol(symbol),
		Price:       meta.RegularMarketPrice,
		LastUpdated: time.Unix(meta.RegularMarketTime, 0).UTC(),
	}
	if meta.ChartPreviousClose > 0 {
		quote.PriceChange24h = meta.RegularMarketPrice - meta.ChartPreviousClose
		quote.PriceChangePercentage24h = quote.PriceChange24h / meta.ChartPreviousClose * 100
	}
	return quote, nil
}

// History returns daily bars over the timeframe.
func (c *YahooClient) History(ctx context.Context, symbol string, timeframe models.Timeframe) (*models.PriceSeries, error) {
	response, err := c.chart(ctx, symbol, timeframe.Days())
	if err != nil {
		return nil, err
	}

	result := response.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 || len(result.Timestamp) == 0 {
		return nil, fmt.Errorf("%w: no history for %s", ErrNoData, symbol)
	}
	bars := result.Indicators.Quote[0]

	series := &models.PriceSeries{
		Symbol:    NormalizeSymbol(symbol),
		Timeframe: timeframe,
		Points:    make([]models.PricePoint, 0, len(result.Timestamp)),
	}
	for i, ts := range result.Timestamp {
		if i >= len(bars.Close) || bars.Close[i] == 0 {
			// Yahoo pads missing sessions with null closes.
			continue
		}
		point := models.PricePoint{
			Timestamp: time.Unix(ts, 0).UTC(),
			Close:     bars.Close[i],
		}
		if i < len(bars.Open) {
			point.Open = bars.Open[i]
		}
		if i < len(bars.High) {
			point.High = bars.High[i]
		}
		if i < len(bars.Low) {
			point.Low = bars.Low[i]
		}
		if i < len(bars.Volume) {
			point.Volume = bars.Volume[i]
		}
		series.Points = append(series.Points, point)
	}
	if len(series.Points) == 0 {
		return nil, fmt.Errorf("%w: no history for %s", ErrNoData, symbol)
	}
	series.StartDate = series.Points[0].Timestamp
	series.EndDate = series.Points[len(series.Points)-1].Timestamp
	return series, nil
}

func (c *YahooClient) chart(ctx context.Context, symbol string, days int) (*chartResponse, error) {
	now := time.Now().UTC()
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("period1", strconv.FormatInt(now.AddDate(0, 0, -days).Unix(), 10))
	params.Set("period2", strconv.FormatInt(now.Unix(), 10))

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(NormalizeSymbol(symbol)), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.WithError(err).Warn("failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUpstream, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAsset, symbol)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: yahoo status %d: %s", ErrUpstream, resp.StatusCode, truncate(body, 200))
	}

	var response chartResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrUpstream, err)
	}
	if response.Chart.Error != nil {
		return nil, fmt.Errorf("%w: yahoo error %s: %s", ErrUpstream, response.Chart.Error.Code, response.Chart.Error.Description)
	}
	if len(response.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: no result for %s", ErrNoData, symbol)
	}
	return &response, nil
}
