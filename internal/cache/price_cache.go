package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/avidalm/cryptoanalyzer-go/internal/models"
)

// Stats tracks cache performance counters.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	Errors int64 `json:"errors"`

	mu sync.RWMutex
}

// PriceCache is a Redis-backed read-through cache for quotes and price
// series. Quotes and histories carry separate TTLs since quotes go stale in
// seconds while daily histories survive minutes.
type PriceCache struct {
	redis     *redis.Client
	quoteTTL  time.Duration
	seriesTTL time.Duration
	prefix    string
	stats     *Stats
	log       *logrus.Entry
}

// NewPriceCache creates a cache around an existing Redis client.
func NewPriceCache(client *redis.Client, quoteTTL, seriesTTL time.Duration, log *logrus.Logger) *PriceCache {
	return &PriceCache{
		redis:     client,
		quoteTTL:  quoteTTL,
		seriesTTL: seriesTTL,
		prefix:    "price_cache:",
		stats:     &Stats{},
		log:       log.WithField("component", "price_cache"),
	}
}

func (c *PriceCache) quoteKey(symbol string) string {
	return c.prefix + "quote:" + symbol
}

func (c *PriceCache) seriesKey(symbol string, timeframe models.Timeframe) string {
	return fmt.Sprintf("%sseries:%s:%s", c.prefix, symbol, timeframe)
}

// GetQuote returns the cached quote for a symbol, if present.
func (c *PriceCache) GetQuote(ctx context.Context, symbol string) (*models.Quote, bool) {
	var quote models.Quote
	if !c.get(ctx, c.quoteKey(symbol), &quote) {
		return nil, false
	}
	return &quote, true
}

// SetQuote stores a quote under the quote TTL.
func (c *PriceCache) SetQuote(ctx context.Context, symbol string, quote models.Quote) {
	c.set(ctx, c.quoteKey(symbol), quote, c.quoteTTL)
}

// GetSeries returns the cached price series for a symbol and timeframe.
func (c *PriceCache) GetSeries(ctx context.Context, symbol string, timeframe models.Timeframe) (*models.PriceSeries, bool) {
	var series models.PriceSeries
	if !c.get(ctx, c.seriesKey(symbol, timeframe), &series) {
		return nil, false
	}
	return &series, true
}

// SetSeries stores a price series under the series TTL.
func (c *PriceCache) SetSeries(ctx context.Context, symbol string, series *models.PriceSeries) {
	if series == nil {
		return
	}
	c.set(ctx, c.seriesKey(series.Symbol, series.Timeframe), series, c.seriesTTL)
}

func (c *PriceCache) get(ctx context.Context, key string, out interface{}) bool {
	data, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		c.miss()
		return false
	}
	if err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache read failed")
		c.error()
		return false
	}
	if err := json.Unmarshal([]byte(data), out); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache entry corrupt")
		c.error()
		return false
	}
	c.hit()
	return true
}

func (c *PriceCache) set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache serialization failed")
		c.error()
		return
	}
	if err := c.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache write failed")
		c.error()
		return
	}
	c.stats.mu.Lock()
	c.stats.Sets++
	c.stats.mu.Unlock()
}

func (c *PriceCache) hit() {
	c.stats.mu.Lock()
	c.stats.Hits++
	c.stats.mu.Unlock()
}

func (c *PriceCache) miss() {
	c.stats.mu.Lock()
	c.stats.Misses++
	c.stats.mu.Unlock()
}

func (c *PriceCache) error() {
	c.stats.mu.Lock()
	c.stats.Errors++
	c.stats.mu.Unlock()
}

// GetStats returns a snapshot of the cache counters with the hit rate.
func (c *PriceCache) GetStats() map[string]interface{} {
	c.stats.mu.RLock()
	defer c.stats.mu.RUnlock()

	total := c.stats.Hits + c.stats.Misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(c.stats.Hits) / float64(total)
	}
	return map[string]interface{}{
		"hits":     c.stats.Hits,
		"misses":   c.stats.Misses,
		"sets":     c.stats.Sets,
		"errors":   c.stats.Errors,
		"hit_rate": hitRate,
	}
}

// Ping verifies the Redis connection.
func (c *PriceCache) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}
