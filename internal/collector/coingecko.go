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

// CoinGeckoClient fetches cryptocurrency prices from the CoinGecko API.
type CoinGeckoClient struct {
	HTTPClient *http.Client
	baseURL    string
	userAgent  string
	log        *logrus.Entry
}

// NewCoinGeckoClient creates a CoinGecko client from collector configuration.
func NewCoinGeckoClient(cfg config.CollectorConfig, log *logrus.Logger) *CoinGeckoClient {
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &CoinGeckoClient{
		HTTPClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(cfg.CoinGeckoBaseURL, "/"),
		userAgent:  cfg.UserAgent,
		log:        log.WithField("component", "coingecko"),
	}
}

// Quote returns the current price snapshot for a crypto symbol.
func (c *CoinGeckoClient) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	id, ok := CoinGeckoID(symbol)
	if !ok {
		return models.Quote{}, fmt.Errorf("%w: %s", ErrUnsupportedAsset, symbol)
	}

	params := url.Values{}
	params.Set("ids", id)
	params.Set("vs_currencies", "usd")
	params.Set("include_24hr_change", "true")
	params.Set("include_24hr_vol", "true")
	params.Set("include_market_cap", "true")

	var response map[string]map[string]float64
	if err := c.makeRequest(ctx, "/simple/price?"+params.Encode(), &response); err != nil {
		return models.Quote{}, err
	}

	data, ok := response[id]
	if !ok {
		return models.Quote{}, fmt.Errorf("%w: no price for %s", ErrNoData, symbol)
	}

	price := data["usd"]
	changePct := data["usd_24h_change"]
	return models.Quote{
		Symbol:                   NormalizeSymbol(symbol),
		Price:                    price,
		PriceChange24h:           price * changePct / 100,
		PriceChangePercentage24h: changePct,
		MarketCap:                data["usd_market_cap"],
		Volume24h:                data["usd_24h_vol"],
		LastUpdated:              time.Now().UTC(),
	}, nil
}

type marketChartResponse struct {
	Prices       [][]float64 `json:"prices"`
	TotalVolumes [][]float64 `json:"total_volumes"`
}

// History returns daily close prices over the timeframe.
func (c *CoinGeckoClient) History(ctx context.Context, symbol string, timeframe models.Timeframe) (*models.PriceSeries, error) {
	id, ok := CoinGeckoID(symbol)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAsset, symbol)
	}

	params := url.Values{}
	params.Set("vs_currency", "usd")
	params.Set("days", strconv.Itoa(timeframe.Days()))
	if timeframe != models.TimeframeOneDay {
		params.Set("interval", "daily")
	}

	var response marketChartResponse
	path := fmt.Sprintf("/coins/%s/market_chart?%s", id, params.Encode())
	if err := c.makeRequest(ctx, path, &response); err != nil {
		return nil, err
	}
	if len(response.Prices) == 0 {
		return nil, fmt.Errorf("%w: no history for %s", ErrNoData, symbol)
	}

	volumeAt := make(map[int64]float64, len(response.TotalVolumes))
	for _, v := range response.TotalVolumes {
		if len(v) == 2 {
			volumeAt[int64(v[0])] = v[1]
		}
	}

	series := &models.PriceSeries{
		Symbol:    NormalizeSymbol(symbol),
		Timeframe: timeframe,
		Points:    make([]models.PricePoint, 0, len(response.Prices)),
	}
	for _, p := range response.Prices {
		if len(p) != 2 {
			continue
		}
		ts := time.UnixMilli(int64(p[0])).UTC()
		series.Points = append(series.Points, models.PricePoint{
			Timestamp: ts,
			Close:     p[1],
			Volume:    volumeAt[int64(p[0])],
		})
	}
	if len(series.Points) > 0 {
		series.StartDate = series.Points[0].Timestamp
		series.EndDate = series.Points[len(series.Points)-1].Timestamp
	}
	return series, nil
}

type coinDetailResponse struct {
	MarketCapRank int `json:"market_cap_rank"`
	MarketData    struct {
		CurrentPrice             map[string]float64 `json:"current_price"`
		MarketCap                map[string]float64 `json:"market_cap"`
		TotalVolume              map[string]float64 `json:"total_volume"`
		High24h                  map[string]float64 `json:"high_24h"`
		Low24h                   map[string]float64 `json:"low_24h"`
		PriceChange24h           float64            `json:"price_change_24h"`
		PriceChangePercentage24h float64            `json:"price_change_percentage_24h"`
		PriceChangePercentage7d  float64            `json:"price_change_percentage_7d"`
		PriceChangePercentage30d float64            `json:"price_change_percentage_30d"`
		ATH                      map[string]float64 `json:"ath"`
		ATHDate                  map[string]string  `json:"ath_date"`
		ATL                      map[string]float64 `json:"atl"`
		ATLDate                  map[string]string  `json:"atl_date"`
	} `json:"market_data"`
}

// Summary returns the extended market statistics for a crypto symbol.
func (c *CoinGeckoClient) Summary(ctx context.Context, symbol string) (models.MarketSummary, error) {
	id, ok := CoinGeckoID(symbol)
	if !ok {
		return models.MarketSummary{}, fmt.Errorf("%w: %s", ErrUnsupportedAsset, symbol)
	}

	path := fmt.Sprintf("/coins/%s?localization=false&tickers=false&community_data=false&developer_data=false", id)
	var response coinDetailResponse
	if err := c.makeRequest(ctx, path, &response); err != nil {
		return models.MarketSummary{}, err
	}

	md := response.MarketData
	summary := models.MarketSummary{
		Symbol:                   NormalizeSymbol(symbol),
		CurrentPrice:             md.CurrentPrice["usd"],
		MarketCap:                md.MarketCap["usd"],
		MarketCapRank:            response.MarketCapRank,
		Volume24h:                md.TotalVolume["usd"],
		PriceChange24h:           md.PriceChange24h,
		PriceChangePercentage24h: md.PriceChangePercentage24h,
		PriceChange7d:            md.PriceChangePercentage7d,
		PriceChange30d:           md.PriceChangePercentage30d,
		High24h:                  md.High24h["usd"],
		Low24h:                   md.Low24h["usd"],
		AllTimeHigh:              md.ATH["usd"],
		AllTimeLow:               md.ATL["usd"],
	}
	if ts, err := time.Parse(time.RFC3339, md.ATHDate["usd"]); err == nil {
		summary.AllTimeHighDate = &ts
	}
	if ts, err := time.Parse(time.RFC3339, md.ATLDate["usd"]); err == nil {
		summary.AllTimeLowDate = &ts
	}
	return summary, nil
}

func (c *CoinGeckoClient) makeRequest(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.WithError(err).Warn("failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrUpstream, err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: coingecko rate limit", ErrUpstream)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: coingecko status %d: %s", ErrUpstream, resp.StatusCode, truncate(body, 200))
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrUpstream, err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
