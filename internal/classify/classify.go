// Package classify tags pools that hold a chain's native asset.
//
// Matching is a symbol heuristic only. Derivatives whose symbols do not follow
// the "st<ticker>" or "liquid-staked-<ticker>" conventions are not recognised.
package classify

import "strings"

type Classifier struct {
	ticker string
}

func New(ticker string) Classifier {
	return Classifier{ticker: strings.ToLower(strings.TrimSpace(ticker))}
}

func (c Classifier) Ticker() string { return c.ticker }

// IsNativeAsset reports whether symbol denotes the native asset, an LP pair
// containing it, or a liquid staking derivative of it.
func (c Classifier) IsNativeAsset(symbol string) bool {
	if c.ticker == "" {
		return false
	}
	s := strings.ToLower(strings.TrimSpace(symbol))
	switch {
	case s == c.ticker:
		return true
	case strings.Contains(s, c.ticker+"-"), strings.Contains(s, "-"+c.ticker):
		return true
	case strings.HasPrefix(s, "st"+c.ticker):
		return true
	case strings.Contains(s, "liquid-staked-"+c.ticker):
		return true
	}
	return false
}
