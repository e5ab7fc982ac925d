package defillama

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/ggonzalez94/yieldscout/internal/chain"
	clierr "github.com/ggonzalez94/yieldscout/internal/errors"
	"github.com/ggonzalez94/yieldscout/internal/httpx"
	"github.com/ggonzalez94/yieldscout/internal/logger"
	"github.com/ggonzalez94/yieldscout/internal/model"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

const (
	defaultYieldsBase = "https://yields.llama.fi"

	breakerTrips   = 5
	breakerTimeout = 30 * time.Second
)

type Client struct {
	http       *httpx.Client
	yieldsBase string
	breaker    *gobreaker.CircuitBreaker[[]poolEntry]
	log        zerolog.Logger
}

// New builds a yields client. An empty yieldsBase uses the public endpoint.
func New(httpClient *httpx.Client, yieldsBase string) *Client {
	yieldsBase = strings.TrimRight(strings.TrimSpace(yieldsBase), "/")
	if yieldsBase == "" {
		yieldsBase = defaultYieldsBase
	}
	c := &Client{
		http:       httpClient,
		yieldsBase: yieldsBase,
		log:        logger.GetForComponent("defillama"),
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]poolEntry](gobreaker.Settings{
		Name:    "defillama-yields",
		Timeout: breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTrips
		},
		// Only transport failures count against the aggregator.
		IsSuccessful: func(err error) bool {
			return err == nil || !clierr.Is(err, clierr.CodeUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})
	return c
}

func (c *Client) Name() string { return "defillama" }

// Source is the URL recorded in result data sources.
func (c *Client) Source() string { return c.yieldsBase + "/pools" }

type poolsEnvelope struct {
	Status string       `json:"status"`
	Data   *[]poolEntry `json:"data"`
}

type poolEntry struct {
	Pool         string   `json:"pool"`
	Chain        string   `json:"chain"`
	Project      string   `json:"project"`
	Symbol       string   `json:"symbol"`
	APYBase      *float64 `json:"apyBase"`
	APYReward    *float64 `json:"apyReward"`
	APY          *float64 `json:"apy"`
	TVLUSD       *float64 `json:"tvlUsd"`
	RewardTokens []string `json:"rewardTokens"`
	ILRisk       string   `json:"ilRisk"`
	Stablecoin   bool     `json:"stablecoin"`
	URL          string   `json:"url"`
}

// FetchPools downloads the full catalog and keeps the active pools on target.
// A pool is active when both its TVL and APY are positive.
func (c *Client) FetchPools(ctx context.Context, target chain.Chain) ([]model.Pool, error) {
	entries, err := c.breaker.Execute(func() ([]poolEntry, error) {
		return c.getPools(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, clierr.Wrap(clierr.CodeUnavailable, "yields aggregator temporarily unavailable", err)
		}
		return nil, err
	}

	out := make([]model.Pool, 0)
	for _, p := range entries {
		if !target.Matches(p.Chain) {
			continue
		}
		tvl := numOrZero(p.TVLUSD)
		apy := numOrZero(p.APY)
		if tvl <= 0 || apy <= 0 {
			continue
		}
		out = append(out, model.Pool{
			PoolID:       p.Pool,
			Chain:        target.Name,
			Project:      strings.TrimSpace(p.Project),
			Symbol:       strings.TrimSpace(p.Symbol),
			TVLUSD:       tvl,
			APY:          apy,
			APYBase:      finite(p.APYBase),
			APYReward:    finite(p.APYReward),
			RewardTokens: p.RewardTokens,
			URL:          p.URL,
			ILRisk:       strings.ToLower(strings.TrimSpace(p.ILRisk)),
			Stablecoin:   p.Stablecoin,
		})
	}
	c.log.Debug().Str("chain", target.Name).Int("catalog", len(entries)).Int("kept", len(out)).Msg("fetched pool catalog")
	return out, nil
}

func (c *Client) getPools(ctx context.Context) ([]poolEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Source(), nil)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "build yields request", err)
	}
	var env poolsEnvelope
	if _, err := c.http.DoJSON(ctx, req, &env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return nil, clierr.New(clierr.CodeDataFormat, "yields response is missing the data array")
	}
	return *env.Data, nil
}

func numOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0
	}
	return *v
}

func finite(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	out := *v
	return &out
}
