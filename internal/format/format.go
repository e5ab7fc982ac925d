// Package format renders opportunities for callers. Rounding applies to output
// only; ranking always runs on full-precision values.
package format

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ggonzalez94/yieldscout/internal/model"
	"github.com/ggonzalez94/yieldscout/internal/scoring"
)

const (
	SafetyTop     = 3
	displayPlaces = 2
)

var million = decimal.NewFromInt(1_000_000)

// SafetyScore rates how comfortable a treasury can be with an opportunity.
func SafetyScore(o model.Opportunity) float64 {
	return scoring.DefaultGlobal().Score(o)
}

// SafetyRecommendations renders the safest opportunities, best first.
func SafetyRecommendations(set []model.Opportunity) []model.Recommendation {
	ranked := scoring.Rank(set, scoring.DefaultGlobal())
	if len(ranked) > SafetyTop {
		ranked = ranked[:SafetyTop]
	}
	ordered := make([]model.Opportunity, len(ranked))
	for i, item := range ranked {
		ordered[i] = item.Opportunity
	}
	return Recommendations(ordered)
}

// Recommendations renders set in the order given. Each entry still carries its
// safety score.
func Recommendations(set []model.Opportunity) []model.Recommendation {
	out := make([]model.Recommendation, 0, len(set))
	for i, o := range set {
		out = append(out, model.Recommendation{
			Rank:        i + 1,
			Project:     o.Project,
			Symbol:      o.Symbol,
			SafetyScore: round(SafetyScore(o)),
			Summary:     Describe(o),
		})
	}
	return out
}

// Describe is the multi-line text block for one opportunity.
func Describe(o model.Opportunity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", o.Project, o.Symbol)
	fmt.Fprintf(&b, "  APY: %s%% (base %s, reward %s)\n", fixed(o.APY), optionalPct(o.APYBase), optionalPct(o.APYReward))
	fmt.Fprintf(&b, "  TVL: $%sM\n", decimal.NewFromFloat(o.TVLUSD).Div(million).StringFixed(displayPlaces))
	if len(o.RewardTokens) > 0 {
		fmt.Fprintf(&b, "  Reward tokens: %s\n", strings.Join(o.RewardTokens, ", "))
	}
	fmt.Fprintf(&b, "  Risk: %s", o.RiskLevel)
	if len(o.RiskFactors) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(o.RiskFactors, "; "))
	}
	return b.String()
}

// Reason explains why best was picked as the overall recommendation.
func Reason(best *model.Opportunity) string {
	if best == nil {
		return "no opportunities found for this chain"
	}
	return fmt.Sprintf("%s (%s) offers %s%% APY with $%sM TVL at %s risk",
		best.Project, best.Symbol, fixed(best.APY),
		decimal.NewFromFloat(best.TVLUSD).Div(million).StringFixed(displayPlaces), best.RiskLevel)
}

// RoundForDisplay returns a copy of o with monetary and rate fields rounded to
// two decimals.
func RoundForDisplay(o model.Opportunity) model.Opportunity {
	o.TVLUSD = round(o.TVLUSD)
	o.APY = round(o.APY)
	if o.APYBase != nil {
		v := round(*o.APYBase)
		o.APYBase = &v
	}
	if o.APYReward != nil {
		v := round(*o.APYReward)
		o.APYReward = &v
	}
	return o
}

func RoundAll(set []model.Opportunity) []model.Opportunity {
	if set == nil {
		return nil
	}
	out := make([]model.Opportunity, len(set))
	for i, o := range set {
		out[i] = RoundForDisplay(o)
	}
	return out
}

// RoundAnalysis rounds every opportunity in res. Selections keep pointing at
// elements of the rounded AllOpportunities.
func RoundAnalysis(res model.AnalysisResult) model.AnalysisResult {
	orig := res.AllOpportunities
	res.AllOpportunities = RoundAll(orig)
	repoint := func(p *model.Opportunity) *model.Opportunity {
		if p == nil {
			return nil
		}
		for i := range orig {
			if &orig[i] == p {
				return &res.AllOpportunities[i]
			}
		}
		rounded := RoundForDisplay(*p)
		return &rounded
	}
	res.BestOverall = repoint(res.BestOverall)
	res.BestByAPY = repoint(res.BestByAPY)
	res.BestByRisk = repoint(res.BestByRisk)
	res.BestByLiquidity = repoint(res.BestByLiquidity)
	res.BestForSmallStakers = repoint(res.BestForSmallStakers)
	return res
}

func RoundResolution(res model.Resolution) model.Resolution {
	res.Opportunities = RoundAll(res.Opportunities)
	return res
}

func round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(displayPlaces).InexactFloat64()
}

func fixed(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(displayPlaces)
}

func optionalPct(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fixed(*v) + "%"
}
