package format

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/ggonzalez94/yieldscout/internal/model"
	"github.com/ggonzalez94/yieldscout/internal/scoring"
)

func ptr(v float64) *float64 { return &v }

func sample() model.Opportunity {
	return model.Opportunity{
		Pool: model.Pool{
			PoolID:       "pool-1",
			Chain:        "Aptos",
			Project:      "amnis-finance",
			Symbol:       "STAPT",
			TVLUSD:       61_234_567.891,
			APY:          8.4567,
			APYBase:      ptr(7.1234),
			APYReward:    ptr(1.3333),
			RewardTokens: []string{"0x1::amnis::AMI"},
		},
		IsNativeAsset: true,
		RiskLevel:     model.RiskLow,
		RiskFactors:   []string{"very high TVL", "native staking pool"},
	}
}

func TestDescribe(t *testing.T) {
	text := Describe(sample())
	for _, want := range []string{
		"amnis-finance (STAPT)",
		"APY: 8.46% (base 7.12%, reward 1.33%)",
		"TVL: $61.23M",
		"Reward tokens: 0x1::amnis::AMI",
		"Risk: low (very high TVL; native staking pool)",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in:\n%s", want, text)
		}
	}
}

func TestDescribeWithoutOptionalFields(t *testing.T) {
	o := sample()
	o.APYBase, o.APYReward, o.RewardTokens = nil, nil, nil
	text := Describe(o)
	if !strings.Contains(text, "base n/a, reward n/a") || strings.Contains(text, "Reward tokens") {
		t.Fatalf("unexpected description:\n%s", text)
	}
}

func TestRoundForDisplayKeepsInputIntact(t *testing.T) {
	o := sample()
	r := RoundForDisplay(o)
	if r.TVLUSD != 61_234_567.89 || r.APY != 8.46 || *r.APYBase != 7.12 || *r.APYReward != 1.33 {
		t.Fatalf("unexpected rounding: %+v base=%v reward=%v", r, *r.APYBase, *r.APYReward)
	}
	if o.APY != 8.4567 || *o.APYBase != 7.1234 {
		t.Fatalf("input mutated: %+v", o)
	}
}

func TestRoundedJSON(t *testing.T) {
	raw, err := json.Marshal(RoundForDisplay(sample()))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded["tvlUsd"] != 61234567.89 || decoded["apy"] != 8.46 {
		t.Fatalf("unexpected json: %s", raw)
	}
	if decoded["poolId"] != "pool-1" || decoded["riskLevel"] != "low" || decoded["isNativeAsset"] != true {
		t.Fatalf("unexpected json: %s", raw)
	}
}

func TestRoundAnalysisKeepsMembership(t *testing.T) {
	set := []model.Opportunity{sample(), sample()}
	set[1].PoolID = "pool-2"
	set[1].APY = 20.129
	res := RoundAnalysis(scoring.Select(set, scoring.SelectOptions{}))
	if res.BestByAPY != &res.AllOpportunities[1] {
		t.Fatalf("bestByAPY should point into rounded set")
	}
	if res.BestByAPY.APY != 20.13 {
		t.Fatalf("expected rounded apy, got %v", res.BestByAPY.APY)
	}
}

func TestSafetyRecommendations(t *testing.T) {
	low := sample()
	medium := sample()
	medium.Project, medium.RiskLevel, medium.TVLUSD = "thala", model.RiskMedium, 5_000_000
	high := sample()
	high.Project, high.RiskLevel, high.APY = "moonfarm", model.RiskHigh, 1500
	tiny := sample()
	tiny.Project, tiny.RiskLevel, tiny.TVLUSD, tiny.APY = "tiny", model.RiskHigh, 10_000, 900

	recs := SafetyRecommendations([]model.Opportunity{high, tiny, medium, low})
	if len(recs) != SafetyTop {
		t.Fatalf("expected %d recommendations, got %d", SafetyTop, len(recs))
	}
	if recs[0].Project != "amnis-finance" || recs[0].Rank != 1 || recs[0].SafetyScore != 100 {
		t.Fatalf("unexpected first recommendation: %+v", recs[0])
	}
	if recs[1].Project != "moonfarm" {
		// 0 + 50 + 0 beats 10 + 5 + 30
		t.Fatalf("unexpected second recommendation: %+v", recs[1])
	}
	if recs[2].Project != "thala" {
		t.Fatalf("unexpected third recommendation: %+v", recs[2])
	}
}

func TestReason(t *testing.T) {
	if Reason(nil) == "" {
		t.Fatalf("expected explanation for empty result")
	}
	o := sample()
	if got := Reason(&o); !strings.Contains(got, "amnis-finance") || !strings.Contains(got, "low risk") {
		t.Fatalf("unexpected reason %q", got)
	}
}

func TestRecommendationsKeepGivenOrder(t *testing.T) {
	deep := sample()
	shallow := sample()
	shallow.Project, shallow.RiskLevel, shallow.TVLUSD = "thala", model.RiskMedium, 5_000_000

	recs := Recommendations([]model.Opportunity{shallow, deep})
	if len(recs) != 2 || recs[0].Project != "thala" || recs[1].Project != "amnis-finance" {
		t.Fatalf("expected input order, got %+v", recs)
	}
	if recs[0].Rank != 1 || recs[1].Rank != 2 || recs[1].SafetyScore != 100 {
		t.Fatalf("unexpected ranks or scores: %+v", recs)
	}
}
