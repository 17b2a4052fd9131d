package collector

import "errors"

var (
	// ErrUnsupportedAsset means the symbol has no known data source mapping.
	ErrUnsupportedAsset = errors.New("unsupported asset")

	// ErrNoData means the upstream responded but had nothing for the symbol.
	ErrNoData = errors.New("no data available")

	// ErrUpstream wraps transport and response failures of a data source.
	ErrUpstream = errors.New("upstream request failed")
)
