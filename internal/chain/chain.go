package chain

import (
	"fmt"
	"sort"
	"strings"

	clierr "github.com/ggonzalez94/yieldscout/internal/errors"
)

// Chain identifies a target chain as the yields aggregator labels it, together
// with the ticker of its native asset.
type Chain struct {
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	NativeSymbol string `json:"native_symbol"`
}

// Ticker is the lower-cased native asset symbol used by symbol heuristics.
func (c Chain) Ticker() string {
	return strings.ToLower(strings.TrimSpace(c.NativeSymbol))
}

// Matches reports whether an aggregator chain label refers to this chain.
func (c Chain) Matches(label string) bool {
	norm := strings.ToLower(strings.TrimSpace(label))
	if norm == "" {
		return false
	}
	if strings.EqualFold(norm, c.Name) || norm == c.Slug {
		return true
	}
	return strings.ReplaceAll(norm, " ", "-") == c.Slug
}

var chainBySlug = map[string]Chain{
	"aptos":     {Name: "Aptos", Slug: "aptos", NativeSymbol: "APT"},
	"sui":       {Name: "Sui", Slug: "sui", NativeSymbol: "SUI"},
	"solana":    {Name: "Solana", Slug: "solana", NativeSymbol: "SOL"},
	"ethereum":  {Name: "Ethereum", Slug: "ethereum", NativeSymbol: "ETH"},
	"mainnet":   {Name: "Ethereum", Slug: "ethereum", NativeSymbol: "ETH"},
	"avalanche": {Name: "Avalanche", Slug: "avalanche", NativeSymbol: "AVAX"},
	"bsc":       {Name: "BSC", Slug: "bsc", NativeSymbol: "BNB"},
	"polygon":   {Name: "Polygon", Slug: "polygon", NativeSymbol: "POL"},
	"near":      {Name: "Near", Slug: "near", NativeSymbol: "NEAR"},
	"cardano":   {Name: "Cardano", Slug: "cardano", NativeSymbol: "ADA"},
	"tron":      {Name: "Tron", Slug: "tron", NativeSymbol: "TRX"},
	"ton":       {Name: "TON", Slug: "ton", NativeSymbol: "TON"},
	"cosmos":    {Name: "CosmosHub", Slug: "cosmoshub", NativeSymbol: "ATOM"},
	"cosmoshub": {Name: "CosmosHub", Slug: "cosmoshub", NativeSymbol: "ATOM"},
}

// Parse resolves a chain slug or aggregator label. A non-empty nativeSymbol
// overrides the preset ticker and is required for chains outside the presets.
func Parse(input, nativeSymbol string) (Chain, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Chain{}, clierr.New(clierr.CodeUsage, "chain is required")
	}
	norm := strings.ToLower(raw)
	symbol := strings.ToUpper(strings.TrimSpace(nativeSymbol))

	if known, ok := chainBySlug[norm]; ok {
		if symbol != "" {
			known.NativeSymbol = symbol
		}
		return known, nil
	}
	if symbol == "" {
		return Chain{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("unsupported chain input: %s (set a native symbol to use a custom chain)", input))
	}
	return Chain{Name: raw, Slug: strings.ReplaceAll(norm, " ", "-"), NativeSymbol: symbol}, nil
}

// Presets lists the built-in chains, one entry per slug, sorted by slug.
func Presets() []Chain {
	seen := map[string]struct{}{}
	out := make([]Chain, 0, len(chainBySlug))
	for _, c := range chainBySlug {
		if _, ok := seen[c.Slug]; ok {
			continue
		}
		seen[c.Slug] = struct{}{}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}
