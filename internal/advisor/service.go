// Package advisor runs the recommendation pipeline: fetch a catalog snapshot,
// classify and risk-assess every pool, then score, resolve and format.
package advisor

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ggonzalez94/yieldscout/internal/chain"
	"github.com/ggonzalez94/yieldscout/internal/classify"
	clierr "github.com/ggonzalez94/yieldscout/internal/errors"
	"github.com/ggonzalez94/yieldscout/internal/format"
	"github.com/ggonzalez94/yieldscout/internal/logger"
	"github.com/ggonzalez94/yieldscout/internal/metrics"
	"github.com/ggonzalez94/yieldscout/internal/model"
	"github.com/ggonzalez94/yieldscout/internal/resolve"
	"github.com/ggonzalez94/yieldscout/internal/risk"
	"github.com/ggonzalez94/yieldscout/internal/scoring"
)

const defaultTimeout = 15 * time.Second

type Config struct {
	Chain             chain.Chain
	Thresholds        risk.Thresholds
	LiquidityFallback scoring.LiquidityFallback
	// Ranking orders provider matches and filtered sets when a query does not
	// name a strategy.
	Ranking scoring.Strategy
	Timeout time.Duration
}

type Service struct {
	src        PoolSource
	cfg        Config
	classifier classify.Classifier
	assessor   risk.Assessor
	metrics    *metrics.Collector
	log        zerolog.Logger
	now        func() time.Time
}

// New validates cfg and builds a service. A nil collector disables metrics.
func New(src PoolSource, cfg Config, collector *metrics.Collector) (*Service, error) {
	if src == nil {
		return nil, clierr.New(clierr.CodeInternal, "pool source is required")
	}
	if cfg.Chain.Slug == "" || cfg.Chain.Ticker() == "" {
		return nil, clierr.New(clierr.CodeUsage, "chain and native symbol are required")
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, clierr.Wrap(clierr.CodeUsage, "invalid risk thresholds", err)
	}
	switch cfg.LiquidityFallback {
	case "":
		cfg.LiquidityFallback = scoring.FallbackNone
	case scoring.FallbackNone, scoring.FallbackFirst:
	default:
		return nil, clierr.New(clierr.CodeUsage, "liquidity fallback must be none or first")
	}
	if cfg.Ranking == nil {
		cfg.Ranking = scoring.Local{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Service{
		src:        src,
		cfg:        cfg,
		classifier: classify.New(cfg.Chain.Ticker()),
		assessor:   risk.New(cfg.Thresholds),
		metrics:    collector,
		log:        logger.GetForComponent("advisor"),
		now:        time.Now,
	}, nil
}

// Opportunities fetches the catalog and tags every pool. The fetch runs under
// the configured timeout; cancellation never yields a partial set.
func (s *Service) Opportunities(ctx context.Context) ([]model.Opportunity, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	pools, err := s.src.FetchPools(ctx, s.cfg.Chain)
	if err == nil && ctx.Err() != nil {
		err = clierr.Wrap(clierr.CodeTimeout, "catalog fetch timed out", ctx.Err())
	}
	if err != nil {
		if _, ok := clierr.As(err); !ok {
			err = clierr.Wrap(clierr.CodeUnavailable, "fetch pool catalog", err)
		}
		s.metrics.ObserveFetch(s.cfg.Chain.Slug, time.Since(start), 0, clierr.TypeName(err))
		s.log.Warn().Err(err).Str("chain", s.cfg.Chain.Slug).Msg("catalog fetch failed")
		return nil, err
	}

	out := make([]model.Opportunity, 0, len(pools))
	for _, p := range pools {
		if !s.cfg.Chain.Matches(p.Chain) {
			s.log.Debug().Str("pool", p.PoolID).Str("chain", p.Chain).Msg("dropping off-chain pool")
			continue
		}
		p.Chain = s.cfg.Chain.Name
		native := s.classifier.IsNativeAsset(p.Symbol)
		level, factors := s.assessor.Assess(p.TVLUSD, p.APY, native)
		out = append(out, model.Opportunity{
			Pool:          p,
			IsNativeAsset: native,
			RiskLevel:     level,
			RiskFactors:   factors,
		})
	}
	s.metrics.ObserveFetch(s.cfg.Chain.Slug, time.Since(start), len(out), "")
	s.log.Debug().Str("chain", s.cfg.Chain.Slug).Int("pools", len(out)).Dur("took", time.Since(start)).Msg("catalog ready")
	return out, nil
}

// Analyze selects the best opportunities across the whole chain catalog.
func (s *Service) Analyze(ctx context.Context) (model.AnalysisResult, error) {
	set, err := s.Opportunities(ctx)
	if err != nil {
		return model.AnalysisResult{}, err
	}
	return s.analysis(set), nil
}

// Query resolves q against the chain catalog. The attached analysis covers the
// filtered candidate set.
func (s *Service) Query(ctx context.Context, q model.Query) (model.QueryResult, error) {
	ranking := s.cfg.Ranking
	if q.Strategy != "" {
		strategy, err := scoring.ByName(q.Strategy)
		if err != nil {
			return model.QueryResult{}, err
		}
		ranking = strategy
	}
	if err := validateFilters(q.Filters); err != nil {
		return model.QueryResult{}, err
	}

	set, err := s.Opportunities(ctx)
	if err != nil {
		return model.QueryResult{}, err
	}
	resolver := resolve.New(resolve.Options{Ticker: s.cfg.Chain.Ticker(), Ranking: ranking})
	res := resolver.Resolve(q.Text, set, q.Filters)
	s.metrics.ObserveResolution(string(res.Kind), res.Stage)

	candidates, _ := resolve.ApplyFilters(set, q.Filters)
	return model.QueryResult{Resolution: res, Analysis: s.analysis(candidates)}, nil
}

// Recommend is the caller-facing entrypoint. Failures come back as an error
// status with a machine-readable code instead of a Go error.
func (s *Service) Recommend(ctx context.Context, q model.Query) model.Response {
	result, err := s.Query(ctx, q)
	if err != nil {
		return ErrorResponse(err)
	}
	return BuildResponse(result)
}

func (s *Service) analysis(set []model.Opportunity) model.AnalysisResult {
	res := scoring.Select(set, scoring.SelectOptions{
		Overall:           scoring.DefaultGlobal(),
		LiquidityFallback: s.cfg.LiquidityFallback,
	})
	res.AnalysisTimestamp = s.now().UTC()
	res.RecommendationReason = format.Reason(res.BestOverall)
	res.DataSources = []string{s.src.Source()}
	return res
}

func validateFilters(f model.Filters) error {
	if f.MinAPY != nil && *f.MinAPY < 0 {
		return clierr.New(clierr.CodeUsage, "minApy must be >= 0")
	}
	if f.MinStake != nil && *f.MinStake < 0 {
		return clierr.New(clierr.CodeUsage, "minStake must be >= 0")
	}
	if f.Limit != nil && *f.Limit <= 0 {
		return clierr.New(clierr.CodeUsage, "limit must be > 0")
	}
	return nil
}
