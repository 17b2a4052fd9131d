package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AssetType identifies which data source and handling an asset gets.
type AssetType string

const (
	AssetTypeCryptocurrency AssetType = "cryptocurrency"
	AssetTypeStock          AssetType = "stock"
	AssetTypeETF            AssetType = "etf"
	AssetTypeIndex          AssetType = "index"
	AssetTypeCommodity      AssetType = "commodity"
)

// Timeframe enumerates the supported analysis windows.
type Timeframe string

const (
	TimeframeOneDay     Timeframe = "1d"
	TimeframeSevenDays  Timeframe = "7d"
	TimeframeThirtyDays Timeframe = "30d"
	TimeframeNinetyDays Timeframe = "90d"
	TimeframeOneYear    Timeframe = "365d"
	TimeframeMax        Timeframe = "max"
)

// ParseTimeframe maps a request string onto a known timeframe, defaulting to 30d.
func ParseTimeframe(s string) Timeframe {
	switch Timeframe(strings.ToLower(strings.TrimSpace(s))) {
	case TimeframeOneDay:
		return TimeframeOneDay
	case TimeframeSevenDays:
		return TimeframeSevenDays
	case TimeframeNinetyDays:
		return TimeframeNinetyDays
	case TimeframeOneYear:
		return TimeframeOneYear
	case TimeframeMax:
		return TimeframeMax
	default:
		return TimeframeThirtyDays
	}
}

// Days returns the number of calendar days covered by the timeframe.
func (t Timeframe) Days() int {
	switch t {
	case TimeframeOneDay:
		return 1
	case TimeframeSevenDays:
		return 7
	case TimeframeNinetyDays:
		return 90
	case TimeframeOneYear:
		return 365
	case TimeframeMax:
		return 1000
	default:
		return 30
	}
}

// PricePoint is a single OHLCV observation. Open/High/Low/Volume may be zero
// for sources that only report closes (CoinGecko market charts).
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open,omitempty"`
	High      float64   `json:"high,omitempty"`
	Low       float64   `json:"low,omitempty"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume,omitempty"`
}

// PriceSeries is an ordered (strictly ascending timestamps) price history for
// one symbol. A nil or empty series means "no data" and every consumer must
// degrade to its defined insufficient-data output.
type PriceSeries struct {
	Symbol    string       `json:"symbol"`
	Timeframe Timeframe    `json:"timeframe"`
	Points    []PricePoint `json:"data"`
	StartDate time.Time    `json:"start_date"`
	EndDate   time.Time    `json:"end_date"`
}

// Closes extracts the close prices in order.
func (s *PriceSeries) Closes() []float64 {
	if s == nil {
		return nil
	}
	closes := make([]float64, len(s.Points))
	for i, p := range s.Points {
		closes[i] = p.Close
	}
	return closes
}

// Highs extracts the high prices in order. Points without a high, as with
// close-only feeds, fall back to the close.
func (s *PriceSeries) Highs() []float64 {
	if s == nil {
		return nil
	}
	highs := make([]float64, len(s.Points))
	for i, p := range s.Points {
		highs[i] = p.High
		if highs[i] == 0 {
			highs[i] = p.Close
		}
	}
	return highs
}

// Lows extracts the low prices in order, falling back to the close for
// points without a low.
func (s *PriceSeries) Lows() []float64 {
	if s == nil {
		return nil
	}
	lows := make([]float64, len(s.Points))
	for i, p := range s.Points {
		lows[i] = p.Low
		if lows[i] == 0 {
			lows[i] = p.Close
		}
	}
	return lows
}

// Len reports the number of points, tolerating a nil series.
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Points)
}

// Quote is a current-price snapshot for an asset.
type Quote struct {
	Symbol                   string    `json:"symbol"`
	Price                    float64   `json:"price"`
	PriceChange24h           float64   `json:"price_change_24h"`
	PriceChangePercentage24h float64   `json:"price_change_percentage_24h"`
	MarketCap                float64   `json:"market_cap,omitempty"`
	Volume24h                float64   `json:"volume_24h,omitempty"`
	LastUpdated              time.Time `json:"last_updated"`
}

// MarketSummary carries the extended per-asset statistics exposed by the
// assets endpoints.
type MarketSummary struct {
	Symbol                   string     `json:"symbol"`
	CurrentPrice             float64    `json:"current_price"`
	MarketCap                float64    `json:"market_cap,omitempty"`
	MarketCapRank            int        `json:"market_cap_rank,omitempty"`
	Volume24h                float64    `json:"volume_24h,omitempty"`
	PriceChange24h           float64    `json:"price_change_24h,omitempty"`
	PriceChangePercentage24h float64    `json:"price_change_percentage_24h,omitempty"`
	PriceChange7d            float64    `json:"price_change_7d,omitempty"`
	PriceChange30d           float64    `json:"price_change_30d,omitempty"`
	High24h                  float64    `json:"high_24h,omitempty"`
	Low24h                   float64    `json:"low_24h,omitempty"`
	AllTimeHigh              float64    `json:"ath,omitempty"`
	AllTimeHighDate          *time.Time `json:"ath_date,omitempty"`
	AllTimeLow               float64    `json:"atl,omitempty"`
	AllTimeLowDate           *time.Time `json:"atl_date,omitempty"`
}

// Position is a caller-owned portfolio holding. Quantity and AvgCost are
// validated (>0) at the API boundary.
type Position struct {
	Symbol   string          `json:"symbol"`
	Quantity decimal.Decimal `json:"quantity"`
	AvgCost  decimal.Decimal `json:"avg_cost"`
}

// CostBasis returns quantity × average cost.
func (p Position) CostBasis() decimal.Decimal {
	return p.Quantity.Mul(p.AvgCost)
}
