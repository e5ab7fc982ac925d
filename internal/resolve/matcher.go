package resolve

import (
	"strings"
	"unicode"

	"github.com/ggonzalez94/yieldscout/internal/model"
)

const (
	StageProject    = "project"
	StageNormalized = "normalized-project"
	StageSymbol     = "symbol"
	StageToken      = "token"
)

// Matcher resolves a provider reference against a catalog. A stage reports
// false when it produced no match so the cascade can move on.
type Matcher interface {
	Stage() string
	TryMatch(name string, catalog []model.Opportunity) ([]model.Opportunity, bool)
}

// Cascade tries matchers in order; the first one with a result wins.
type Cascade []Matcher

// DefaultCascade orders matchers from precise to fuzzy.
func DefaultCascade(ticker string) Cascade {
	return Cascade{
		ProjectMatcher{},
		NormalizedProjectMatcher{},
		SymbolMatcher{Ticker: ticker},
		TokenMatcher{},
	}
}

func (c Cascade) Match(name string, catalog []model.Opportunity) (string, []model.Opportunity, bool) {
	for _, m := range c {
		if hits, ok := m.TryMatch(name, catalog); ok {
			return m.Stage(), hits, true
		}
	}
	return "", nil, false
}

// ProjectMatcher matches when the name and project contain one another.
type ProjectMatcher struct{}

func (ProjectMatcher) Stage() string { return StageProject }

func (ProjectMatcher) TryMatch(name string, catalog []model.Opportunity) ([]model.Opportunity, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	return collect(catalog, func(o model.Opportunity) bool {
		return mutualContains(strings.ToLower(strings.TrimSpace(o.Project)), n)
	})
}

// NormalizedProjectMatcher ignores separators so "Amnis Finance" finds
// "amnis-finance".
type NormalizedProjectMatcher struct{}

func (NormalizedProjectMatcher) Stage() string { return StageNormalized }

func (NormalizedProjectMatcher) TryMatch(name string, catalog []model.Opportunity) ([]model.Opportunity, bool) {
	n := squash(name)
	return collect(catalog, func(o model.Opportunity) bool {
		return mutualContains(squash(o.Project), n)
	})
}

// SymbolMatcher matches on pool symbols. A name mentioning the native ticker
// matches every symbol carrying it.
type SymbolMatcher struct {
	Ticker string
}

func (SymbolMatcher) Stage() string { return StageSymbol }

func (m SymbolMatcher) TryMatch(name string, catalog []model.Opportunity) ([]model.Opportunity, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	ticker := strings.ToLower(strings.TrimSpace(m.Ticker))
	mentionsTicker := false
	if ticker != "" {
		for _, word := range words(n) {
			if word == ticker {
				mentionsTicker = true
				break
			}
		}
	}
	return collect(catalog, func(o model.Opportunity) bool {
		symbol := strings.ToLower(o.Symbol)
		if symbol == "" {
			return false
		}
		if n != "" && strings.Contains(symbol, n) {
			return true
		}
		return mentionsTicker && strings.Contains(symbol, ticker)
	})
}

// TokenMatcher splits the name into words longer than two characters and
// matches any of them inside a project name.
type TokenMatcher struct{}

func (TokenMatcher) Stage() string { return StageToken }

func (TokenMatcher) TryMatch(name string, catalog []model.Opportunity) ([]model.Opportunity, bool) {
	var tokens []string
	for _, word := range words(strings.ToLower(name)) {
		if len(word) <= 2 {
			continue
		}
		if _, skip := genericTokens[word]; skip {
			continue
		}
		tokens = append(tokens, word)
	}
	if len(tokens) == 0 {
		return nil, false
	}
	return collect(catalog, func(o model.Opportunity) bool {
		project := strings.ToLower(o.Project)
		for _, token := range tokens {
			if strings.Contains(project, token) {
				return true
			}
		}
		return false
	})
}

// genericTokens never identify a provider on their own.
var genericTokens = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "from": {}, "with": {}, "what": {}, "which": {},
	"how": {}, "has": {}, "have": {}, "are": {}, "pool": {}, "pools": {}, "protocol": {},
	"platform": {}, "provider": {}, "staking": {}, "yield": {}, "apy": {}, "rewards": {},
	"reward": {}, "rate": {}, "return": {}, "returns": {}, "interest": {}, "compare": {},
	"risk": {}, "level": {}, "safe": {}, "native": {}, "tvl": {}, "best": {}, "top": {},
	"highest": {}, "lowest": {}, "safest": {}, "good": {}, "better": {}, "finance": {},
}

func collect(catalog []model.Opportunity, keep func(model.Opportunity) bool) ([]model.Opportunity, bool) {
	var hits []model.Opportunity
	for _, o := range catalog {
		if keep(o) {
			hits = append(hits, o)
		}
	}
	return hits, len(hits) > 0
}

func mutualContains(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func squash(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || r == '_' || unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
