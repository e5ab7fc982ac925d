// Package scoring ranks opportunities. Two strategies exist because call sites
// need different normalisation: Global scores against fixed reference points,
// Local normalises against the candidate set being ranked.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	clierr "github.com/ggonzalez94/yieldscout/internal/errors"
	"github.com/ggonzalez94/yieldscout/internal/model"
)

const (
	NameGlobal = "global"
	NameLocal  = "local"
)

// Strategy scores every member of a candidate set. Scores are index-aligned
// with set.
type Strategy interface {
	Name() string
	Scores(set []model.Opportunity) []float64
}

// ByName returns the strategy registered under name.
func ByName(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", NameGlobal:
		return DefaultGlobal(), nil
	case NameLocal:
		return Local{}, nil
	default:
		return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("unknown scoring strategy %q (use global or local)", name))
	}
}

// Global adds a risk bonus, a TVL component capped at 50 points and an APY
// bonus that favours sustainable yields.
type Global struct {
	ReferenceTVL   float64
	SustainableAPY float64
	ElevatedAPY    float64
}

func DefaultGlobal() Global {
	return Global{ReferenceTVL: 50_000_000, SustainableAPY: 20, ElevatedAPY: 100}
}

func (Global) Name() string { return NameGlobal }

func (g Global) Scores(set []model.Opportunity) []float64 {
	out := make([]float64, len(set))
	for i, o := range set {
		out[i] = g.Score(o)
	}
	return out
}

// Score is independent of the rest of the set.
func (g Global) Score(o model.Opportunity) float64 {
	tvlPart := 0.0
	if g.ReferenceTVL > 0 {
		tvlPart = math.Min(50, o.TVLUSD/g.ReferenceTVL*50)
	}
	apyBonus := 0.0
	switch {
	case o.APY <= g.SustainableAPY:
		apyBonus = 30
	case o.APY <= g.ElevatedAPY:
		apyBonus = 15
	}
	return riskBonus(o.RiskLevel) + tvlPart + apyBonus
}

func riskBonus(level model.RiskLevel) float64 {
	switch level {
	case model.RiskLow:
		return 20
	case model.RiskMedium:
		return 10
	default:
		return 0
	}
}

// Local weights risk, log-scaled TVL and APY, the latter two normalised
// against the largest values in the set.
type Local struct{}

func (Local) Name() string { return NameLocal }

var localRiskScore = map[string]float64{
	"no":     5,
	"low":    4,
	"medium": 3,
	"high":   1,
	"IL":     0,
}

func (Local) Scores(set []model.Opportunity) []float64 {
	maxTVL, maxAPY := 0.0, 0.0
	for _, o := range set {
		maxTVL = math.Max(maxTVL, o.TVLUSD)
		maxAPY = math.Max(maxAPY, o.APY)
	}
	out := make([]float64, len(set))
	for i, o := range set {
		tvlFactor := 0.0
		if maxTVL > 0 {
			tvlFactor = math.Log(o.TVLUSD+1) / math.Log(maxTVL+1)
		}
		apyFactor := 0.0
		if maxAPY > 0 {
			apyFactor = o.APY / maxAPY
		}
		out[i] = localRiskScore[LocalRiskKey(o)]*0.5 + tvlFactor*0.3 + apyFactor*0.2
	}
	return out
}

// LocalRiskKey maps an opportunity onto the local strategy's risk scale.
// Pools the aggregator flags with impermanent-loss exposure score as "IL";
// low-tier pools explicitly flagged free of it score as "no".
func LocalRiskKey(o model.Opportunity) string {
	switch {
	case o.ILRisk == "yes":
		return "IL"
	case o.ILRisk == "no" && o.RiskLevel == model.RiskLow:
		return "no"
	default:
		return string(o.RiskLevel)
	}
}

// Ranked pairs an opportunity with its score under a strategy.
type Ranked struct {
	Opportunity model.Opportunity
	Score       float64
}

// Rank orders set by descending score. Ties keep their input order.
func Rank(set []model.Opportunity, s Strategy) []Ranked {
	scores := s.Scores(set)
	out := make([]Ranked, len(set))
	for i := range set {
		out[i] = Ranked{Opportunity: set[i], Score: scores[i]}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
