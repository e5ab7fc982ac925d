// Package resolve maps free text and structured filters onto a candidate set.
// Resolution never fails: text it cannot interpret falls back to safety
// recommendations.
package resolve

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ggonzalez94/yieldscout/internal/logger"
	"github.com/ggonzalez94/yieldscout/internal/model"
	"github.com/ggonzalez94/yieldscout/internal/scoring"
)

const (
	safetyLimit     = 3
	comparisonLimit = 5
	// minStake is expressed in thousands of USD of pool TVL.
	stakeUnitUSD = 1000
)

type Options struct {
	Ticker string
	// Ranking orders provider matches and filtered sets. Defaults to local.
	Ranking scoring.Strategy
	// Matchers overrides the default cascade.
	Matchers Cascade
}

type Resolver struct {
	ticker  string
	ranking scoring.Strategy
	safety  scoring.Strategy
	cascade Cascade
	log     zerolog.Logger
}

func New(opts Options) *Resolver {
	r := &Resolver{
		ticker:  strings.ToLower(strings.TrimSpace(opts.Ticker)),
		ranking: opts.Ranking,
		safety:  scoring.DefaultGlobal(),
		cascade: opts.Matchers,
		log:     logger.GetForComponent("resolver"),
	}
	if r.ranking == nil {
		r.ranking = scoring.Local{}
	}
	if len(r.cascade) == 0 {
		r.cascade = DefaultCascade(r.ticker)
	}
	return r
}

// Resolve applies filters first, then tries to name a provider, then falls
// back to keyword intents.
func (r *Resolver) Resolve(text string, set []model.Opportunity, filters model.Filters) model.Resolution {
	candidates, applied := ApplyFilters(set, filters)
	if len(candidates) == 0 {
		res := model.Resolution{Kind: model.KindNoMatch, Opportunities: []model.Opportunity{}, Applied: applied}
		if len(applied) > 0 {
			res.Message = "no opportunities match filters: " + strings.Join(applied, ", ")
		} else {
			res.Message = "no opportunities available on this chain"
		}
		return res
	}

	var res model.Resolution
	name, extracted := ExtractProvider(text)
	if extracted {
		stage, hits, ok := r.cascade.Match(name, candidates)
		r.log.Debug().Str("provider", name).Str("stage", stage).Int("hits", len(hits)).Msg("provider lookup")
		if ok {
			res = model.Resolution{
				Kind:          model.KindMatchedProvider,
				Provider:      name,
				Stage:         stage,
				Opportunities: r.rank(hits, r.ranking),
				Message:       fmt.Sprintf("found %d opportunities matching %q", len(hits), name),
			}
		}
	}
	if res.Kind == "" {
		res = r.byIntent(text, candidates, filters)
		if extracted {
			res.Provider = name
			res.Message = fmt.Sprintf("no provider matching %q; %s", name, res.Message)
		}
	}
	res.Applied = applied
	res.Opportunities = limit(res.Opportunities, filters.Limit)
	return res
}

func (r *Resolver) byIntent(text string, candidates []model.Opportunity, filters model.Filters) model.Resolution {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "compare") && strings.Contains(lower, "risk"):
		ranked := scoring.Rank(candidates, r.safety)
		sort.SliceStable(ranked, func(i, j int) bool {
			a, b := ranked[i].Opportunity.RiskLevel.Order(), ranked[j].Opportunity.RiskLevel.Order()
			if a != b {
				return a < b
			}
			return ranked[i].Score > ranked[j].Score
		})
		ordered := make([]model.Opportunity, len(ranked))
		for i, item := range ranked {
			ordered[i] = item.Opportunity
		}
		return model.Resolution{
			Kind:          model.KindRiskComparison,
			Opportunities: limit(ordered, intPtr(comparisonLimit)),
			Message:       "opportunities ordered from lowest to highest risk",
		}
	case strings.Contains(lower, "native") && strings.Contains(lower, "highest tvl"):
		leader := -1
		for i, o := range candidates {
			if o.IsNativeAsset && (leader < 0 || o.APY > candidates[leader].APY) {
				leader = i
			}
		}
		if leader < 0 {
			return model.Resolution{
				Kind:          model.KindNativeLeader,
				Opportunities: []model.Opportunity{},
				Message:       "no native-asset pool in the candidate set",
			}
		}
		return model.Resolution{
			Kind:          model.KindNativeLeader,
			Opportunities: []model.Opportunity{candidates[leader]},
			Message:       "highest-yielding native-asset pool",
		}
	case strings.Contains(lower, "safe"), strings.Contains(lower, "low-risk"),
		strings.Contains(lower, "low risk"), strings.Contains(lower, "risk level"):
		return r.safest(candidates)
	case strings.TrimSpace(text) == "" && !filters.Empty():
		return model.Resolution{
			Kind:          model.KindFilteredSet,
			Opportunities: r.rank(candidates, r.ranking),
			Message:       fmt.Sprintf("%d opportunities match the filters", len(candidates)),
		}
	default:
		return r.safest(candidates)
	}
}

func (r *Resolver) safest(candidates []model.Opportunity) model.Resolution {
	return model.Resolution{
		Kind:          model.KindSafeRecommendations,
		Opportunities: limit(r.rank(candidates, r.safety), intPtr(safetyLimit)),
		Message:       "safest opportunities by TVL, APY sustainability and risk tier",
	}
}

func (r *Resolver) rank(set []model.Opportunity, s scoring.Strategy) []model.Opportunity {
	ranked := scoring.Rank(set, s)
	out := make([]model.Opportunity, len(ranked))
	for i, item := range ranked {
		out[i] = item.Opportunity
	}
	return out
}

// ApplyFilters drops candidates below minApy or below minStake thousand USD of
// TVL and describes the filters that were applied.
func ApplyFilters(set []model.Opportunity, filters model.Filters) ([]model.Opportunity, []string) {
	var applied []string
	if filters.MinAPY != nil {
		applied = append(applied, "minApy >= "+formatFloat(*filters.MinAPY))
	}
	if filters.MinStake != nil {
		applied = append(applied, fmt.Sprintf("minStake >= %s (tvlUsd >= %s)",
			formatFloat(*filters.MinStake), formatFloat(*filters.MinStake*stakeUnitUSD)))
	}
	out := make([]model.Opportunity, 0, len(set))
	for _, o := range set {
		if filters.MinAPY != nil && o.APY < *filters.MinAPY {
			continue
		}
		if filters.MinStake != nil && o.TVLUSD < *filters.MinStake*stakeUnitUSD {
			continue
		}
		out = append(out, o)
	}
	return out, applied
}

func limit(set []model.Opportunity, n *int) []model.Opportunity {
	if n == nil || *n <= 0 || len(set) <= *n {
		return set
	}
	return set[:*n]
}

func intPtr(v int) *int { return &v }

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
