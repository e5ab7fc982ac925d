package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ggonzalez94/yieldscout/internal/advisor"
	"github.com/ggonzalez94/yieldscout/internal/cache"
	"github.com/ggonzalez94/yieldscout/internal/chain"
	"github.com/ggonzalez94/yieldscout/internal/config"
	clierr "github.com/ggonzalez94/yieldscout/internal/errors"
	"github.com/ggonzalez94/yieldscout/internal/httpx"
	"github.com/ggonzalez94/yieldscout/internal/logger"
	"github.com/ggonzalez94/yieldscout/internal/metrics"
	"github.com/ggonzalez94/yieldscout/internal/model"
	"github.com/ggonzalez94/yieldscout/internal/out"
	"github.com/ggonzalez94/yieldscout/internal/providers/defillama"
	"github.com/ggonzalez94/yieldscout/internal/scoring"
	"github.com/ggonzalez94/yieldscout/internal/version"
)

type Runner struct {
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
}

func NewRunner() *Runner {
	return NewRunnerWithWriters(os.Stdout, os.Stderr)
}

func NewRunnerWithWriters(stdout, stderr io.Writer) *Runner {
	return &Runner{
		stdout: stdout,
		stderr: stderr,
		now:    time.Now,
	}
}

type runtimeState struct {
	runner       *Runner
	ctx          context.Context
	flags        config.GlobalFlags
	settings     config.Settings
	cache        *cache.Store
	root         *cobra.Command
	queryCmd     *cobra.Command
	started      time.Time
	lastCommand  string
	lastChain    string
	lastWarnings []string

	target   chain.Chain
	service  *advisor.Service
	catalog  *advisor.CachedSource
	registry *prometheus.Registry
}

func (r *Runner) Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	state := &runtimeState{runner: r, ctx: ctx, registry: prometheus.NewRegistry()}
	root := state.newRootCommand()
	state.root = root
	root.SetArgs(args)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)
	root.SilenceUsage = true
	root.SilenceErrors = true

	err := root.Execute()
	err = normalizeRunError(err)
	state.flushMetrics()
	defer state.close()
	if err == nil {
		return 0
	}

	state.renderError("", err, state.lastWarnings)
	return clierr.ExitCode(err)
}

func (s *runtimeState) newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   version.CLIName,
		Short: "Rank native-asset yield opportunities for idle treasury funds",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			s.started = s.runner.now()
			settings, err := config.Load(s.flags)
			if err != nil {
				return clierr.Wrap(clierr.CodeUsage, "load configuration", err)
			}
			s.settings = settings
			logger.Initialize(settings.LogLevel, logWriter(s.runner.stderr))

			path := trimRootPath(cmd.CommandPath())
			s.lastCommand = path

			if settings.CacheEnabled && shouldOpenCache(path) && s.cache == nil {
				cacheStore, err := cache.Open(settings.CachePath, settings.CacheLockPath)
				if err != nil {
					return clierr.Wrap(clierr.CodeInternal, "open cache", err)
				}
				s.cache = cacheStore
			}
			return nil
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return clierr.Wrap(clierr.CodeUsage, "parse flags", err)
	})

	cmd.PersistentFlags().BoolVar(&s.flags.JSON, "json", false, "Output JSON (default)")
	cmd.PersistentFlags().BoolVar(&s.flags.Plain, "plain", false, "Output plain text")
	cmd.PersistentFlags().StringVar(&s.flags.Select, "select", "", "Select fields from data (comma-separated)")
	cmd.PersistentFlags().BoolVar(&s.flags.ResultsOnly, "results-only", false, "Output only data payload")
	cmd.PersistentFlags().StringVar(&s.flags.Timeout, "timeout", "", "Catalog fetch timeout")
	cmd.PersistentFlags().IntVar(&s.flags.Retries, "retries", -1, "Retries after a network failure")
	cmd.PersistentFlags().StringVar(&s.flags.LogLevel, "log-level", "", "Log level (debug, info, warn, error, disabled)")
	cmd.PersistentFlags().StringVar(&s.flags.Chain, "chain", "", "Target chain slug or aggregator label")
	cmd.PersistentFlags().StringVar(&s.flags.NativeSymbol, "native-symbol", "", "Native asset ticker (required for chains without a preset)")
	cmd.PersistentFlags().StringVar(&s.flags.LiquidityFallback, "liquidity-fallback", "", "bestByLiquidity policy without a native pool (none, first)")
	cmd.PersistentFlags().BoolVar(&s.flags.NoCache, "no-cache", false, "Disable cache reads and writes")
	cmd.PersistentFlags().StringVar(&s.flags.CacheTTL, "cache-ttl", "", "Freshness window for cached responses")
	cmd.PersistentFlags().StringVar(&s.flags.YieldsURL, "yields-url", "", "Base URL of the yields aggregator")
	cmd.PersistentFlags().StringVar(&s.flags.ConfigPath, "config", "", "Path to config file")

	cmd.AddCommand(s.newAnalyzeCommand())
	s.queryCmd = s.newQueryCommand()
	cmd.AddCommand(s.queryCmd)
	cmd.AddCommand(s.newRecommendCommand())
	cmd.AddCommand(s.newChainsCommand())
	cmd.AddCommand(s.newSchemaCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

// advisorService builds the pipeline for the configured chain on first use.
func (s *runtimeState) advisorService() (*advisor.Service, error) {
	if s.service != nil {
		return s.service, nil
	}
	target, err := chain.Parse(s.settings.Chain, s.settings.NativeSymbol)
	if err != nil {
		return nil, err
	}
	if s.settings.ChainLabel != "" {
		target.Name = s.settings.ChainLabel
	}
	s.target = target
	s.lastChain = target.Slug

	var src advisor.PoolSource = defillama.New(httpx.New(s.settings.Timeout, s.settings.RequestsPerMinute), s.settings.YieldsURL)
	if s.settings.CatalogTTL > 0 {
		cached, err := advisor.NewCachedSource(src, s.settings.CatalogTTL)
		if err != nil {
			return nil, clierr.Wrap(clierr.CodeInternal, "create catalog cache", err)
		}
		s.catalog = cached
		src = cached
	}

	svc, err := advisor.New(src, advisor.Config{
		Chain:             target,
		Thresholds:        s.settings.Thresholds,
		LiquidityFallback: scoring.LiquidityFallback(s.settings.LiquidityFallback),
		Timeout:           s.settings.Timeout,
	}, metrics.New(s.registry))
	if err != nil {
		return nil, err
	}
	s.service = svc
	return svc, nil
}

// runCachedCommand serves a fresh cache entry when one exists, otherwise runs
// fetch with retries and stores the result. Expired entries are never served.
// Hits decode into T so they render exactly like a fresh result.
func runCachedCommand[T any](s *runtimeState, commandPath, key string, ttl time.Duration, fetch func(ctx context.Context) (T, error)) error {
	s.lastWarnings = nil
	if s.settings.CacheEnabled && s.cache != nil {
		cached, err := s.cache.Get(key)
		if err == nil && cached.Hit {
			var data T
			if err := json.Unmarshal(cached.Value, &data); err == nil {
				return s.emitSuccess(commandPath, data, nil, model.CacheStatus{Status: "hit", AgeMS: cached.Age.Milliseconds()})
			}
		}
	}

	data, err := withRetry(s.ctx, s.settings.Retries, fetch)
	if err != nil {
		return err
	}

	cacheStatus := cacheMetaMiss()
	if !s.settings.CacheEnabled || s.cache == nil {
		cacheStatus = cacheMetaBypass()
	} else if payload, err := json.Marshal(data); err == nil {
		if err := s.cache.Set(key, payload, ttl); err == nil {
			cacheStatus = model.CacheStatus{Status: "write"}
		}
	}
	return s.emitSuccess(commandPath, data, s.lastWarnings, cacheStatus)
}

func (s *runtimeState) emitSuccess(commandPath string, data any, warnings []string, cacheStatus model.CacheStatus) error {
	env := model.Envelope{
		Version:  model.EnvelopeVersion,
		Success:  true,
		Data:     data,
		Error:    nil,
		Warnings: warnings,
		Meta:     s.meta(commandPath, cacheStatus),
	}
	return out.Render(s.runner.stdout, env, s.settings)
}

func (s *runtimeState) renderError(commandPath string, err error, warnings []string) {
	if strings.TrimSpace(commandPath) == "" {
		commandPath = s.lastCommand
		if commandPath == "" {
			commandPath = version.CLIName
		}
	}
	message := err.Error()
	if cErr, ok := clierr.As(err); ok {
		message = cErr.Message
		if cErr.Cause != nil {
			message = fmt.Sprintf("%s: %v", cErr.Message, cErr.Cause)
		}
	}

	settings := s.settings
	if settings.OutputMode == "" {
		settings.OutputMode = "json"
	}
	settings.ResultsOnly = false
	settings.SelectFields = nil
	env := model.Envelope{
		Version: model.EnvelopeVersion,
		Success: false,
		Data:    []any{},
		Error: &model.ErrorBody{
			Code:    clierr.ExitCode(err),
			Type:    clierr.TypeName(err),
			Message: message,
		},
		Warnings: warnings,
		Meta:     s.meta(commandPath, cacheMetaBypass()),
	}
	_ = out.Render(s.runner.stderr, env, settings)
}

func (s *runtimeState) meta(commandPath string, cacheStatus model.CacheStatus) model.EnvelopeMeta {
	now := s.runner.now()
	latency := int64(0)
	if !s.started.IsZero() {
		latency = now.Sub(s.started).Milliseconds()
	}
	return model.EnvelopeMeta{
		RequestID: newRequestID(),
		Timestamp: now.UTC(),
		Command:   commandPath,
		Chain:     s.lastChain,
		LatencyMS: latency,
		Cache:     cacheStatus,
	}
}

// flushMetrics writes collected metrics for a node-exporter textfile collector.
func (s *runtimeState) flushMetrics() {
	if s.settings.MetricsTextfile == "" || s.service == nil {
		return
	}
	if err := prometheus.WriteToTextfile(s.settings.MetricsTextfile, s.registry); err != nil {
		log := logger.GetForComponent("runner")
		log.Warn().Err(err).Str("path", s.settings.MetricsTextfile).Msg("write metrics textfile")
	}
}

func (s *runtimeState) close() {
	if s.cache != nil {
		_ = s.cache.Close()
	}
	if s.catalog != nil {
		s.catalog.Close()
	}
}

func logWriter(stderr io.Writer) io.Writer {
	if stderr == os.Stderr {
		return nil
	}
	return stderr
}

func cacheKey(commandPath string, req any) string {
	buf, _ := json.Marshal(req)
	sum := sha256.Sum256(append([]byte(commandPath+"|"), buf...))
	return hex.EncodeToString(sum[:])
}

func newRequestID() string {
	return uuid.NewString()
}

func trimRootPath(path string) string {
	parts := strings.Fields(path)
	if len(parts) <= 1 {
		return path
	}
	return strings.Join(parts[1:], " ")
}

func cacheMetaBypass() model.CacheStatus {
	return model.CacheStatus{Status: "bypass"}
}

func cacheMetaMiss() model.CacheStatus {
	return model.CacheStatus{Status: "miss"}
}

func normalizeRunError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := clierr.As(err); ok {
		return err
	}
	if isLikelyUsageError(err) {
		return clierr.Wrap(clierr.CodeUsage, "invalid command input", err)
	}
	return clierr.Wrap(clierr.CodeInternal, "execute command", err)
}

func isLikelyUsageError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	patterns := []string{
		"unknown command",
		"unknown flag",
		"required flag(s)",
		"flag needs an argument",
		"requires at least",
		"requires exactly",
		"accepts ",
		"invalid argument",
		"invalid args",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

func shouldOpenCache(commandPath string) bool {
	switch normalizeCommandPath(commandPath) {
	case "analyze", "query", "recommend":
		return true
	default:
		return false
	}
}

func normalizeCommandPath(commandPath string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(commandPath))), " ")
}
