package risk

import (
	"reflect"
	"testing"

	"github.com/ggonzalez94/yieldscout/internal/model"
)

func contains(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}

func TestAssessLowRiskNativePool(t *testing.T) {
	a := New(DefaultThresholds())
	level, factors := a.Assess(60_000_000, 8.5, true)
	if level != model.RiskLow {
		t.Fatalf("expected low risk, got %s", level)
	}
	if !contains(factors, FactorVeryHighTVL) || !contains(factors, FactorNative) {
		t.Fatalf("unexpected factors: %v", factors)
	}
}

func TestAssessExtremeAPYForcesHigh(t *testing.T) {
	a := New(DefaultThresholds())
	level, factors := a.Assess(500_000, 1500, false)
	if level != model.RiskHigh {
		t.Fatalf("expected high risk, got %s", level)
	}
	if !contains(factors, FactorExtremeAPY) || contains(factors, FactorHighAPY) {
		t.Fatalf("unexpected factors: %v", factors)
	}

	// A deep native pool is still high risk once APY is absurd.
	level, _ = a.Assess(80_000_000, 1500, true)
	if level != model.RiskHigh {
		t.Fatalf("expected apy>extreme alone to force high, got %s", level)
	}
}

func TestAssessTiers(t *testing.T) {
	a := New(DefaultThresholds())
	cases := []struct {
		name   string
		tvl    float64
		apy    float64
		native bool
		want   model.RiskLevel
	}{
		{"good tvl native", 10_000_000, 100, true, model.RiskLow},
		{"good tvl non-native", 20_000_000, 12, false, model.RiskMedium},
		{"moderate tvl native", 2_000_000, 5, true, model.RiskMedium},
		{"non-native high apy", 20_000_000, 150, false, model.RiskHigh},
		{"native high apy", 20_000_000, 150, true, model.RiskMedium},
		{"low tvl", 999_999, 3, true, model.RiskHigh},
	}
	for _, tc := range cases {
		got, _ := a.Assess(tc.tvl, tc.apy, tc.native)
		if got != tc.want {
			t.Fatalf("%s: got %s want %s", tc.name, got, tc.want)
		}
	}
}

func TestAssessIsPure(t *testing.T) {
	a := New(DefaultThresholds())
	l1, f1 := a.Assess(3_000_000, 140, false)
	l2, f2 := a.Assess(3_000_000, 140, false)
	if l1 != l2 || !reflect.DeepEqual(f1, f2) {
		t.Fatalf("assessment not deterministic: %s %v vs %s %v", l1, f1, l2, f2)
	}
	want := []string{FactorModerateTVL, FactorHighAPY, FactorNonNative}
	if !reflect.DeepEqual(f1, want) {
		t.Fatalf("unexpected factor order: %v", f1)
	}
}

func TestCustomThresholds(t *testing.T) {
	custom := DefaultThresholds()
	custom.GoodTVL = 2_000_000
	level, _ := New(custom).Assess(2_500_000, 6, true)
	if level != model.RiskLow {
		t.Fatalf("expected lowered good-tvl cut to yield low risk, got %s", level)
	}
}

func TestValidate(t *testing.T) {
	if err := DefaultThresholds().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	bad := DefaultThresholds()
	bad.GoodTVL = bad.VeryHighTVL * 2
	if err := bad.Validate(); err == nil {
		t.Fatal("expected misordered thresholds to fail")
	}
}
