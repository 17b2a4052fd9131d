package collector

import (
	"sort"
	"strings"

	"github.com/avidalm/cryptoanalyzer-go/internal/models"
)

// coinGeckoIDs maps ticker symbols onto CoinGecko coin identifiers.
var coinGeckoIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"BNB":   "binancecoin",
	"XRP":   "ripple",
	"ADA":   "cardano",
	"SOL":   "solana",
	"DOGE":  "dogecoin",
	"DOT":   "polkadot",
	"MATIC": "matic-network",
	"LTC":   "litecoin",
	"AVAX":  "avalanche-2",
	"LINK":  "chainlink",
	"UNI":   "uniswap",
	"ATOM":  "cosmos",
}

// traditionalAssets maps known tickers onto their asset class. Anything not
// listed here or in coinGeckoIDs is treated as a stock.
var traditionalAssets = map[string]models.AssetType{
	"SPY":   models.AssetTypeETF,
	"QQQ":   models.AssetTypeETF,
	"DIA":   models.AssetTypeETF,
	"IWM":   models.AssetTypeETF,
	"GLD":   models.AssetTypeCommodity,
	"SLV":   models.AssetTypeCommodity,
	"USO":   models.AssetTypeCommodity,
	"AAPL":  models.AssetTypeStock,
	"MSFT":  models.AssetTypeStock,
	"GOOGL": models.AssetTypeStock,
	"AMZN":  models.AssetTypeStock,
	"TSLA":  models.AssetTypeStock,
	"NVDA":  models.AssetTypeStock,
	"^GSPC": models.AssetTypeIndex,
	"^DJI":  models.AssetTypeIndex,
	"^IXIC": models.AssetTypeIndex,
}

// NormalizeSymbol uppercases and trims a user supplied symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ResolveAssetType classifies a symbol. Known crypto tickers resolve to
// cryptocurrency, known traditional tickers to their class, everything else
// defaults to stock so unknown tickers still route to the equity source.
func ResolveAssetType(symbol string) models.AssetType {
	symbol = NormalizeSymbol(symbol)
	if _, ok := coinGeckoIDs[symbol]; ok {
		return models.AssetTypeCryptocurrency
	}
	if t, ok := traditionalAssets[symbol]; ok {
		return t
	}
	return models.AssetTypeStock
}

// CoinGeckoID resolves a crypto ticker to its CoinGecko identifier.
func CoinGeckoID(symbol string) (string, bool) {
	id, ok := coinGeckoIDs[NormalizeSymbol(symbol)]
	return id, ok
}

// AssetInfo describes one supported symbol for the assets listing endpoint.
type AssetInfo struct {
	Symbol string           `json:"symbol"`
	Type   models.AssetType `json:"type"`
	Source string           `json:"source"`
}

// SupportedAssets lists every symbol with an explicit mapping, sorted by
// symbol.
func SupportedAssets() []AssetInfo {
	assets := make([]AssetInfo, 0, len(coinGeckoIDs)+len(traditionalAssets))
	for symbol := range coinGeckoIDs {
		assets = append(assets, AssetInfo{
			Symbol: symbol,
			Type:   models.AssetTypeCryptocurrency,
			Source: "coingecko",
		})
	}
	for symbol, assetType := range traditionalAssets {
		assets = append(assets, AssetInfo{
			Symbol: symbol,
			Type:   assetType,
			Source: "yahoo",
		})
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].Symbol < assets[j].Symbol })
	return assets
}
