package classify

import "testing"

func TestIsNativeAsset(t *testing.T) {
	c := New("APT")
	cases := []struct {
		symbol string
		want   bool
	}{
		{"APT", true},
		{"apt", true},
		{"stAPT", true},
		{"APT-USDC", true},
		{"USDC-APT", true},
		{"XYZ-APT", true},
		{"liquid-staked-apt", true},
		{"xyz-liquid-staked-apt", true},
		{"USDC", false},
		{"THAPT", false},
		{"APTOS", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := c.IsNativeAsset(tc.symbol); got != tc.want {
			t.Fatalf("IsNativeAsset(%q) = %v, want %v", tc.symbol, got, tc.want)
		}
	}
}

func TestEmptyTickerNeverMatches(t *testing.T) {
	if New("  ").IsNativeAsset("APT") {
		t.Fatal("expected empty ticker to match nothing")
	}
}
