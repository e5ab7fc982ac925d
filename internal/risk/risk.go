package risk

import (
	"fmt"

	"github.com/ggonzalez94/yieldscout/internal/model"
)

const (
	FactorVeryHighTVL = "very high TVL"
	FactorGoodTVL     = "good TVL"
	FactorModerateTVL = "moderate TVL"
	FactorLowTVL      = "low TVL — higher risk"
	FactorExtremeAPY  = "unusually high APY — exercise caution"
	FactorHighAPY     = "high APY — verify sustainability"
	FactorNative      = "native staking pool"
	FactorNonNative   = "non-native pool — additional smart-contract risk"
)

// Thresholds are the TVL (USD) and APY (percent) cut points used to derive
// risk tiers.
type Thresholds struct {
	VeryHighTVL float64 `json:"very_high_tvl_usd" yaml:"very_high_tvl_usd"`
	GoodTVL     float64 `json:"good_tvl_usd" yaml:"good_tvl_usd"`
	ModerateTVL float64 `json:"moderate_tvl_usd" yaml:"moderate_tvl_usd"`
	HighAPY     float64 `json:"high_apy" yaml:"high_apy"`
	ExtremeAPY  float64 `json:"extreme_apy" yaml:"extreme_apy"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		VeryHighTVL: 50_000_000,
		GoodTVL:     10_000_000,
		ModerateTVL: 1_000_000,
		HighAPY:     100,
		ExtremeAPY:  1000,
	}
}

// Validate checks that the cut points are positive and ordered.
func (t Thresholds) Validate() error {
	if t.ModerateTVL <= 0 || t.HighAPY <= 0 {
		return fmt.Errorf("risk thresholds must be positive")
	}
	if !(t.ModerateTVL <= t.GoodTVL && t.GoodTVL <= t.VeryHighTVL) {
		return fmt.Errorf("tvl thresholds must satisfy moderate <= good <= very high")
	}
	if t.HighAPY > t.ExtremeAPY {
		return fmt.Errorf("apy thresholds must satisfy high <= extreme")
	}
	return nil
}

type Assessor struct {
	t Thresholds
}

func New(t Thresholds) Assessor {
	return Assessor{t: t}
}

func (a Assessor) Thresholds() Thresholds { return a.t }

// Assess derives the tier and ordered explanatory factors for a pool. The
// result depends only on tvlUsd, apy and isNative.
func (a Assessor) Assess(tvlUSD, apy float64, isNative bool) (model.RiskLevel, []string) {
	factors := make([]string, 0, 3)
	switch {
	case tvlUSD >= a.t.VeryHighTVL:
		factors = append(factors, FactorVeryHighTVL)
	case tvlUSD >= a.t.GoodTVL:
		factors = append(factors, FactorGoodTVL)
	case tvlUSD >= a.t.ModerateTVL:
		factors = append(factors, FactorModerateTVL)
	default:
		factors = append(factors, FactorLowTVL)
	}

	switch {
	case apy > a.t.ExtremeAPY:
		factors = append(factors, FactorExtremeAPY)
	case apy > a.t.HighAPY:
		factors = append(factors, FactorHighAPY)
	}

	if isNative {
		factors = append(factors, FactorNative)
	} else {
		factors = append(factors, FactorNonNative)
	}

	return a.level(tvlUSD, apy, isNative), factors
}

func (a Assessor) level(tvlUSD, apy float64, isNative bool) model.RiskLevel {
	if tvlUSD >= a.t.GoodTVL && apy <= a.t.HighAPY && isNative {
		return model.RiskLow
	}
	if tvlUSD < a.t.ModerateTVL || apy > a.t.ExtremeAPY || (!isNative && apy > a.t.HighAPY) {
		return model.RiskHigh
	}
	return model.RiskMedium
}
