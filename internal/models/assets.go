package models

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// AssetConfig describes one recognized asset symbol
type AssetConfig struct {
	Symbol    string `yaml:"symbol"`
	Name      string `yaml:"name"`
	Precision int32  `yaml:"precision"`
}

// AssetRegistry is the set of symbols the ledger accepts
type AssetRegistry struct {
	assets map[string]AssetConfig
}

// DefaultAssets is used when no assets file is configured
var DefaultAssets = []AssetConfig{
	{Symbol: "USDT", Name: "Tether USD", Precision: 6},
	{Symbol: "USDC", Name: "USD Coin", Precision: 6},
	{Symbol: "BTC", Name: "Bitcoin", Precision: 8},
	{Symbol: "ETH", Name: "Ether", Precision: 18},
}

func NewAssetRegistry(assets []AssetConfig) *AssetRegistry {
	r := &AssetRegistry{assets: make(map[string]AssetConfig, len(assets))}
	for _, a := range assets {
		a.Symbol = strings.ToUpper(strings.TrimSpace(a.Symbol))
		r.assets[a.Symbol] = a
	}
	return r
}

// Lookup returns the asset config for a symbol, case-insensitively
func (r *AssetRegistry) Lookup(symbol string) (AssetConfig, bool) {
	a, ok := r.assets[strings.ToUpper(strings.TrimSpace(symbol))]
	return a, ok
}

// Symbols returns the sorted list of recognized symbols
func (r *AssetRegistry) Symbols() []string {
	symbols := make([]string, 0, len(r.assets))
	for s := range r.assets {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

// Normalize validates symbol and amount together. The amount must not carry
// more decimal places than the asset supports.
func (r *AssetRegistry) Normalize(symbol string, amount decimal.Decimal) (string, decimal.Decimal, error) {
	a, ok := r.Lookup(symbol)
	if !ok {
		return "", decimal.Zero, fmt.Errorf("unrecognized asset %q", symbol)
	}
	if !amount.Round(a.Precision).Equal(amount) {
		return "", decimal.Zero, fmt.Errorf("amount %s exceeds %s precision of %d decimals", amount.String(), a.Symbol, a.Precision)
	}
	return a.Symbol, amount, nil
}
