package collector

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/avidalm/cryptoanalyzer-go/internal/config"
	"github.com/avidalm/cryptoanalyzer-go/internal/models"
)

// Provider is a single market data source.
type Provider interface {
	Quote(ctx context.Context, symbol string) (models.Quote, error)
	History(ctx context.Context, symbol string, timeframe models.Timeframe) (*models.PriceSeries, error)
}

// summaryProvider is implemented by sources that can serve extended market
// statistics directly.
type summaryProvider interface {
	Summary(ctx context.Context, symbol string) (models.MarketSummary, error)
}

// Cache is the read-through cache in front of the providers. Implementations
// must be safe for concurrent use; a nil Cache disables caching.
type Cache interface {
	GetQuote(ctx context.Context, symbol string) (*models.Quote, bool)
	SetQuote(ctx context.Context, symbol string, quote models.Quote)
	GetSeries(ctx context.Context, symbol string, timeframe models.Timeframe) (*models.PriceSeries, bool)
	SetSeries(ctx context.Context, symbol string, series *models.PriceSeries)
}

// Service routes symbols to the right data source and caches responses.
type Service struct {
	crypto      Provider
	traditional Provider
	cache       Cache
	log         *logrus.Entry
}

// NewService builds a Service with CoinGecko for crypto and Yahoo for
// everything else.
func NewService(cfg config.CollectorConfig, cache Cache, log *logrus.Logger) *Service {
	return &Service{
		crypto:      NewCoinGeckoClient(cfg, log),
		traditional: NewYahooClient(cfg, log),
		cache:       cache,
		log:         log.WithField("component", "collector"),
	}
}

// NewServiceWithProviders builds a Service around explicit providers.
func NewServiceWithProviders(crypto, traditional Provider, cache Cache, log *logrus.Logger) *Service {
	return &Service{
		crypto:      crypto,
		traditional: traditional,
		cache:       cache,
		log:         log.WithField("component", "collector"),
	}
}

func (s *Service) provider(symbol string) Provider {
	if ResolveAssetType(symbol) == models.AssetTypeCryptocurrency {
		return s.crypto
	}
	return s.traditional
}

// Quote returns the current price for a symbol, served from cache when
// fresh.
func (s *Service) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	symbol = NormalizeSymbol(symbol)
	if s.cache != nil {
		if cached, ok := s.cache.GetQuote(ctx, symbol); ok {
			return *cached, nil
		}
	}

	quote, err := s.provider(symbol).Quote(ctx, symbol)
	if err != nil {
		return models.Quote{}, err
	}
	if s.cache != nil {
		s.cache.SetQuote(ctx, symbol, quote)
	}
	return quote, nil
}

// History returns the price series for a symbol over the timeframe, served
// from cache when fresh.
func (s *Service) History(ctx context.Context, symbol string, timeframe models.Timeframe) (*models.PriceSeries, error) {
	symbol = NormalizeSymbol(symbol)
	if s.cache != nil {
		if cached, ok := s.cache.GetSeries(ctx, symbol, timeframe); ok {
			return cached, nil
		}
	}

	series, err := s.provider(symbol).History(ctx, symbol, timeframe)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetSeries(ctx, symbol, series)
	}
	return series, nil
}

// HistoryMany fetches histories for several symbols concurrently. Symbols
// that fail are reported in the error map; the series map holds the rest.
func (s *Service) HistoryMany(ctx context.Context, symbols []string, timeframe models.Timeframe) (map[string]*models.PriceSeries, map[string]error) {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		series  = make(map[string]*models.PriceSeries, len(symbols))
		failed  = make(map[string]error)
		started = make(map[string]struct{}, len(symbols))
	)

	for _, symbol := range symbols {
		symbol = NormalizeSymbol(symbol)
		if _, dup := started[symbol]; dup {
			continue
		}
		started[symbol] = struct{}{}

		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			result, err := s.History(ctx, symbol, timeframe)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.log.WithError(err).WithField("symbol", symbol).Warn("history fetch failed")
				failed[symbol] = err
				return
			}
			series[symbol] = result
		}(symbol)
	}
	wg.Wait()
	return series, failed
}

// Summary returns extended market statistics. Crypto symbols are served from
// CoinGecko's coin detail endpoint; traditional assets are assembled from
// the quote and recent history.
func (s *Service) Summary(ctx context.Context, symbol string) (models.MarketSummary, error) {
	symbol = NormalizeSymbol(symbol)
	if ResolveAssetType(symbol) == models.AssetTypeCryptocurrency {
		if sp, ok := s.crypto.(summaryProvider); ok {
			return sp.Summary(ctx, symbol)
		}
	}

	quote, err := s.Quote(ctx, symbol)
	if err != nil {
		return models.MarketSummary{}, err
	}
	summary := models.MarketSummary{
		Symbol:                   symbol,
		CurrentPrice:             quote.Price,
		Volume24h:                quote.Volume24h,
		PriceChange24h:           quote.PriceChange24h,
		PriceChangePercentage24h: quote.PriceChangePercentage24h,
	}

	series, err := s.History(ctx, symbol, models.TimeframeThirtyDays)
	if err != nil {
		// A quote alone is still a usable summary.
		s.log.WithError(err).WithField("symbol", symbol).Debug("summary history unavailable")
		return summary, nil
	}
	closes := series.Closes()
	if len(closes) >= 8 && closes[len(closes)-8] != 0 {
		summary.PriceChange7d = (quote.Price - closes[len(closes)-8]) / closes[len(closes)-8] * 100
	}
	if len(closes) > 0 && closes[0] != 0 {
		summary.PriceChange30d = (quote.Price - closes[0]) / closes[0] * 100
	}
	return summary, nil
}
