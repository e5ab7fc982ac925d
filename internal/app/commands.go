package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ggonzalez94/yieldscout/internal/chain"
	clierr "github.com/ggonzalez94/yieldscout/internal/errors"
	"github.com/ggonzalez94/yieldscout/internal/format"
	"github.com/ggonzalez94/yieldscout/internal/model"
	"github.com/ggonzalez94/yieldscout/internal/risk"
	"github.com/ggonzalez94/yieldscout/internal/schema"
	"github.com/ggonzalez94/yieldscout/internal/scoring"
	"github.com/ggonzalez94/yieldscout/internal/version"
)

// requestKey is everything that changes a command's output for a given
// catalog snapshot.
type requestKey struct {
	Chain             chain.Chain     `json:"chain"`
	Query             model.Query     `json:"query"`
	Thresholds        risk.Thresholds `json:"thresholds"`
	LiquidityFallback string          `json:"liquidity_fallback"`
	Upstream          string          `json:"upstream"`
}

func (s *runtimeState) newAnalyzeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Select the best opportunities on the target chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := s.advisorService()
			if err != nil {
				return err
			}
			path := trimRootPath(cmd.CommandPath())
			key := cacheKey(path, s.requestKey(model.Query{}))
			return runCachedCommand(s, path, key, s.settings.CacheTTL, func(ctx context.Context) (model.AnalysisResult, error) {
				res, err := svc.Analyze(ctx)
				if err != nil {
					return model.AnalysisResult{}, err
				}
				if len(res.AllOpportunities) == 0 {
					s.lastWarnings = append(s.lastWarnings, "no active pools found for "+s.target.Name)
				}
				return format.RoundAnalysis(res), nil
			})
		},
	}
}

type queryFlags struct {
	minAPY   float64
	minStake float64
	limit    int
	strategy string
}

func (f queryFlags) build(cmd *cobra.Command, args []string) model.Query {
	q := model.Query{Text: strings.TrimSpace(strings.Join(args, " "))}
	if cmd.Flags().Changed("min-apy") {
		v := f.minAPY
		q.Filters.MinAPY = &v
	}
	if cmd.Flags().Changed("min-stake") {
		v := f.minStake
		q.Filters.MinStake = &v
	}
	if cmd.Flags().Changed("limit") {
		v := f.limit
		q.Filters.Limit = &v
	}
	if cmd.Flags().Changed("strategy") {
		q.Strategy = f.strategy
	}
	return q
}

func bindQueryFlags(cmd *cobra.Command, f *queryFlags) {
	cmd.Flags().Float64Var(&f.minAPY, "min-apy", 0, "Minimum APY in percent")
	cmd.Flags().Float64Var(&f.minStake, "min-stake", 0, "Minimum pool TVL in thousands of USD")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "Maximum number of opportunities to return")
	cmd.Flags().StringVar(&f.strategy, "strategy", scoring.NameLocal, "Ranking strategy for matches")
	_ = cmd.Flags().SetAnnotation("strategy", schema.EnumAnnotation, []string{scoring.NameGlobal, scoring.NameLocal})
}

func (s *runtimeState) newQueryCommand() *cobra.Command {
	var flags queryFlags
	cmd := &cobra.Command{
		Use:   "query [text...]",
		Short: "Resolve a free-text question or filters against the pool catalog",
		Long:  "Names a provider when the text mentions one, otherwise answers by intent (safety, risk comparison, native leader).",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := s.advisorService()
			if err != nil {
				return err
			}
			q := flags.build(cmd, args)
			path := trimRootPath(cmd.CommandPath())
			key := cacheKey(path, s.requestKey(q))
			return runCachedCommand(s, path, key, s.settings.CacheTTL, func(ctx context.Context) (model.QueryResult, error) {
				res, err := svc.Query(ctx, q)
				if err != nil {
					return model.QueryResult{}, err
				}
				res.Resolution = format.RoundResolution(res.Resolution)
				res.Analysis = format.RoundAnalysis(res.Analysis)
				return res, nil
			})
		},
	}
	bindQueryFlags(cmd, &flags)
	return cmd
}

func (s *runtimeState) newRecommendCommand() *cobra.Command {
	var flags queryFlags
	cmd := &cobra.Command{
		Use:   "recommend [text...]",
		Short: "Answer a question with a caller-facing recommendation",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := s.advisorService()
			if err != nil {
				return err
			}
			q := flags.build(cmd, args)
			path := trimRootPath(cmd.CommandPath())
			key := cacheKey(path, s.requestKey(q))
			return runCachedCommand(s, path, key, s.settings.CacheTTL, func(ctx context.Context) (model.Response, error) {
				resp := svc.Recommend(ctx, q)
				if resp.Status == model.StatusError {
					return model.Response{}, clierr.New(clierr.FromTypeName(resp.Code), resp.Message)
				}
				return resp, nil
			})
		},
	}
	bindQueryFlags(cmd, &flags)
	return cmd
}

func (s *runtimeState) newChainsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chains",
		Short: "List built-in chain presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), chain.Presets(), nil, cacheMetaBypass())
		},
	}
}

func (s *runtimeState) newSchemaCommand() *cobra.Command {
	var tool bool
	cmd := &cobra.Command{
		Use:   "schema [command path]",
		Short: "Print machine-readable command schema or the tool definition",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if tool {
				return s.emitSuccess(trimRootPath(cmd.CommandPath()), schema.RecommendTool(s.queryCmd), nil, cacheMetaBypass())
			}
			path := ""
			if len(args) > 0 {
				path = strings.Join(args, " ")
			}
			data, err := schema.Build(s.root, path)
			if err != nil {
				return clierr.Wrap(clierr.CodeUsage, "build schema", err)
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), data, nil, cacheMetaBypass())
		},
	}
	cmd.Flags().BoolVar(&tool, "tool", false, "Print the recommend tool definition for a dispatch layer")
	return cmd
}

func newVersionCommand() *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print CLI version",
		Run: func(cmd *cobra.Command, args []string) {
			if long {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.Long())
				return
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.CLIVersion)
		},
	}
	cmd.Flags().BoolVar(&long, "long", false, "Print extended build metadata")
	return cmd
}

func (s *runtimeState) requestKey(q model.Query) requestKey {
	return requestKey{
		Chain:             s.target,
		Query:             q,
		Thresholds:        s.settings.Thresholds,
		LiquidityFallback: s.settings.LiquidityFallback,
		Upstream:          s.settings.YieldsURL,
	}
}
