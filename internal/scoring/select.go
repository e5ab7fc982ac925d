package scoring

import "github.com/ggonzalez94/yieldscout/internal/model"

// LiquidityFallback decides bestByLiquidity when a set has no native pool.
type LiquidityFallback string

const (
	// FallbackNone leaves bestByLiquidity empty and records a note.
	FallbackNone LiquidityFallback = "none"
	// FallbackFirst picks the first candidate in arrival order.
	FallbackFirst LiquidityFallback = "first"
)

const NoteNoNativePool = "no native-asset pool in the candidate set; bestByLiquidity left empty"

type SelectOptions struct {
	Overall           Strategy
	LiquidityFallback LiquidityFallback
}

// Select copies set into the result and points every best* field at an
// element of AllOpportunities. An empty set yields no selections.
func Select(set []model.Opportunity, opts SelectOptions) model.AnalysisResult {
	all := make([]model.Opportunity, len(set))
	copy(all, set)
	res := model.AnalysisResult{AllOpportunities: all}
	if len(all) == 0 {
		return res
	}
	if opts.Overall == nil {
		opts.Overall = DefaultGlobal()
	}

	byAPY, small, byRisk, liquidity := 0, 0, 0, -1
	for i := 1; i < len(all); i++ {
		o := all[i]
		if b := all[byAPY]; o.APY > b.APY || (o.APY == b.APY && o.TVLUSD > b.TVLUSD) {
			byAPY = i
		}
		if o.TVLUSD < all[small].TVLUSD {
			small = i
		}
		b := all[byRisk]
		if o.RiskLevel.Order() < b.RiskLevel.Order() || (o.RiskLevel.Order() == b.RiskLevel.Order() && o.APY > b.APY) {
			byRisk = i
		}
	}
	for i, o := range all {
		if !o.IsNativeAsset {
			continue
		}
		if liquidity < 0 || o.APY > all[liquidity].APY {
			liquidity = i
		}
	}

	scores := opts.Overall.Scores(all)
	overall := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[overall] {
			overall = i
		}
	}

	res.BestOverall = &res.AllOpportunities[overall]
	res.BestByAPY = &res.AllOpportunities[byAPY]
	res.BestForSmallStakers = &res.AllOpportunities[small]
	res.BestByRisk = &res.AllOpportunities[byRisk]
	switch {
	case liquidity >= 0:
		res.BestByLiquidity = &res.AllOpportunities[liquidity]
	case opts.LiquidityFallback == FallbackFirst:
		res.BestByLiquidity = &res.AllOpportunities[0]
	default:
		res.Notes = append(res.Notes, NoteNoNativePool)
	}
	return res
}
