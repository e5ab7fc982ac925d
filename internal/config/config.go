package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ggonzalez94/yieldscout/internal/risk"
)

const (
	DefaultYieldsURL         = "https://yields.llama.fi"
	DefaultChain             = "aptos"
	DefaultRequestsPerMinute = 60
)

type GlobalFlags struct {
	ConfigPath        string
	JSON              bool
	Plain             bool
	Select            string
	ResultsOnly       bool
	Timeout           string
	Retries           int
	LogLevel          string
	Chain             string
	NativeSymbol      string
	LiquidityFallback string
	NoCache           bool
	CacheTTL          string
	YieldsURL         string
}

type Settings struct {
	OutputMode        string
	SelectFields      []string
	ResultsOnly       bool
	Timeout           time.Duration
	Retries           int
	LogLevel          string
	Chain             string
	ChainLabel        string
	NativeSymbol      string
	Thresholds        risk.Thresholds
	LiquidityFallback string
	CacheEnabled      bool
	CacheTTL          time.Duration
	CachePath         string
	CacheLockPath     string
	YieldsURL         string
	RequestsPerMinute int
	CatalogTTL        time.Duration
	MetricsTextfile   string
}

type fileConfig struct {
	Output   string `yaml:"output"`
	Timeout  string `yaml:"timeout"`
	Retries  *int   `yaml:"retries"`
	LogLevel string `yaml:"log_level"`
	Chain    struct {
		Name         string `yaml:"name"`
		Label        string `yaml:"label"`
		NativeSymbol string `yaml:"native_symbol"`
	} `yaml:"chain"`
	Thresholds        *risk.Thresholds `yaml:"thresholds"`
	LiquidityFallback string           `yaml:"liquidity_fallback"`
	Cache             struct {
		Enabled  *bool  `yaml:"enabled"`
		TTL      string `yaml:"ttl"`
		Path     string `yaml:"path"`
		LockPath string `yaml:"lock_path"`
	} `yaml:"cache"`
	Aggregator struct {
		YieldsURL         string `yaml:"yields_url"`
		RequestsPerMinute *int   `yaml:"requests_per_minute"`
		CatalogTTL        string `yaml:"catalog_ttl"`
	} `yaml:"aggregator"`
	Metrics struct {
		Textfile string `yaml:"textfile"`
	} `yaml:"metrics"`
}

func Load(flags GlobalFlags) (Settings, error) {
	settings, err := defaultSettings()
	if err != nil {
		return Settings{}, err
	}

	cfgPath, err := resolveConfigPath(flags.ConfigPath)
	if err != nil {
		return Settings{}, err
	}

	if err := applyFileConfig(cfgPath, &settings); err != nil {
		return Settings{}, err
	}

	applyEnv(&settings)

	if err := applyFlags(flags, &settings); err != nil {
		return Settings{}, err
	}

	if settings.OutputMode == "" {
		settings.OutputMode = "json"
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 15 * time.Second
	}
	if settings.Retries < 0 {
		settings.Retries = 0
	}
	if settings.RequestsPerMinute < 0 {
		settings.RequestsPerMinute = 0
	}
	if err := settings.Thresholds.Validate(); err != nil {
		return Settings{}, fmt.Errorf("config thresholds: %w", err)
	}
	switch settings.LiquidityFallback {
	case "none", "first":
	default:
		return Settings{}, fmt.Errorf("liquidity_fallback must be none or first")
	}

	return settings, nil
}

func defaultSettings() (Settings, error) {
	cachePath, lockPath, err := defaultCachePaths()
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		OutputMode:        "json",
		Timeout:           15 * time.Second,
		Retries:           2,
		LogLevel:          "warn",
		Chain:             DefaultChain,
		Thresholds:        risk.DefaultThresholds(),
		LiquidityFallback: "none",
		CacheEnabled:      true,
		CacheTTL:          5 * time.Minute,
		CachePath:         cachePath,
		CacheLockPath:     lockPath,
		YieldsURL:         DefaultYieldsURL,
		RequestsPerMinute: DefaultRequestsPerMinute,
	}, nil
}

func resolveConfigPath(input string) (string, error) {
	if strings.TrimSpace(input) != "" {
		return input, nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "yieldscout", "config.yaml"), nil
}

func defaultCachePaths() (string, string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", "", err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, "yieldscout")
	return filepath.Join(dir, "cache.db"), filepath.Join(dir, "cache.lock"), nil
}

func applyFileConfig(path string, settings *Settings) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}

	if cfg.Output != "" {
		settings.OutputMode = strings.ToLower(cfg.Output)
	}
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return fmt.Errorf("config timeout: %w", err)
		}
		settings.Timeout = d
	}
	if cfg.Retries != nil {
		settings.Retries = *cfg.Retries
	}
	if cfg.LogLevel != "" {
		settings.LogLevel = cfg.LogLevel
	}
	if cfg.Chain.Name != "" {
		settings.Chain = cfg.Chain.Name
	}
	if cfg.Chain.Label != "" {
		settings.ChainLabel = cfg.Chain.Label
	}
	if cfg.Chain.NativeSymbol != "" {
		settings.NativeSymbol = cfg.Chain.NativeSymbol
	}
	if cfg.Thresholds != nil {
		mergeThresholds(&settings.Thresholds, *cfg.Thresholds)
	}
	if cfg.LiquidityFallback != "" {
		settings.LiquidityFallback = strings.ToLower(cfg.LiquidityFallback)
	}
	if cfg.Cache.Enabled != nil {
		settings.CacheEnabled = *cfg.Cache.Enabled
	}
	if cfg.Cache.TTL != "" {
		d, err := time.ParseDuration(cfg.Cache.TTL)
		if err != nil {
			return fmt.Errorf("config cache.ttl: %w", err)
		}
		settings.CacheTTL = d
	}
	if cfg.Cache.Path != "" {
		settings.CachePath = cfg.Cache.Path
	}
	if cfg.Cache.LockPath != "" {
		settings.CacheLockPath = cfg.Cache.LockPath
	}
	if cfg.Aggregator.YieldsURL != "" {
		settings.YieldsURL = cfg.Aggregator.YieldsURL
	}
	if cfg.Aggregator.RequestsPerMinute != nil {
		settings.RequestsPerMinute = *cfg.Aggregator.RequestsPerMinute
	}
	if cfg.Aggregator.CatalogTTL != "" {
		d, err := time.ParseDuration(cfg.Aggregator.CatalogTTL)
		if err != nil {
			return fmt.Errorf("config aggregator.catalog_ttl: %w", err)
		}
		settings.CatalogTTL = d
	}
	if cfg.Metrics.Textfile != "" {
		settings.MetricsTextfile = cfg.Metrics.Textfile
	}

	return nil
}

// mergeThresholds overrides only the cut points set in the file.
func mergeThresholds(dst *risk.Thresholds, src risk.Thresholds) {
	if src.VeryHighTVL != 0 {
		dst.VeryHighTVL = src.VeryHighTVL
	}
	if src.GoodTVL != 0 {
		dst.GoodTVL = src.GoodTVL
	}
	if src.ModerateTVL != 0 {
		dst.ModerateTVL = src.ModerateTVL
	}
	if src.HighAPY != 0 {
		dst.HighAPY = src.HighAPY
	}
	if src.ExtremeAPY != 0 {
		dst.ExtremeAPY = src.ExtremeAPY
	}
}

func applyEnv(settings *Settings) {
	if v := os.Getenv("YIELDSCOUT_OUTPUT"); v != "" {
		settings.OutputMode = strings.ToLower(v)
	}
	if v := os.Getenv("YIELDSCOUT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.Timeout = d
		}
	}
	if v := os.Getenv("YIELDSCOUT_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			settings.Retries = n
		}
	}
	if v := os.Getenv("YIELDSCOUT_LOG_LEVEL"); v != "" {
		settings.LogLevel = v
	}
	if v := os.Getenv("YIELDSCOUT_CHAIN"); v != "" {
		settings.Chain = v
	}
	if v := os.Getenv("YIELDSCOUT_CHAIN_LABEL"); v != "" {
		settings.ChainLabel = v
	}
	if v := os.Getenv("YIELDSCOUT_NATIVE_SYMBOL"); v != "" {
		settings.NativeSymbol = v
	}
	if v := os.Getenv("YIELDSCOUT_LIQUIDITY_FALLBACK"); v != "" {
		settings.LiquidityFallback = strings.ToLower(v)
	}
	if v := os.Getenv("YIELDSCOUT_NO_CACHE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			settings.CacheEnabled = !b
		}
	}
	if v := os.Getenv("YIELDSCOUT_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.CacheTTL = d
		}
	}
	if v := os.Getenv("YIELDSCOUT_CACHE_PATH"); v != "" {
		settings.CachePath = v
	}
	if v := os.Getenv("YIELDSCOUT_CACHE_LOCK_PATH"); v != "" {
		settings.CacheLockPath = v
	}
	if v := os.Getenv("YIELDSCOUT_YIELDS_URL"); v != "" {
		settings.YieldsURL = v
	}
	if v := os.Getenv("YIELDSCOUT_REQUESTS_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			settings.RequestsPerMinute = n
		}
	}
	if v := os.Getenv("YIELDSCOUT_METRICS_TEXTFILE"); v != "" {
		settings.MetricsTextfile = v
	}
}

func applyFlags(flags GlobalFlags, settings *Settings) error {
	if flags.JSON && flags.Plain {
		return fmt.Errorf("cannot use --json and --plain together")
	}
	if flags.JSON {
		settings.OutputMode = "json"
	}
	if flags.Plain {
		settings.OutputMode = "plain"
	}
	if strings.TrimSpace(flags.Select) != "" {
		parts := strings.Split(flags.Select, ",")
		fields := make([]string, 0, len(parts))
		for _, part := range parts {
			f := strings.TrimSpace(part)
			if f != "" {
				fields = append(fields, f)
			}
		}
		settings.SelectFields = fields
	}
	settings.ResultsOnly = flags.ResultsOnly

	if flags.Timeout != "" {
		d, err := time.ParseDuration(flags.Timeout)
		if err != nil {
			return fmt.Errorf("parse --timeout: %w", err)
		}
		settings.Timeout = d
	}
	if flags.Retries >= 0 {
		settings.Retries = flags.Retries
	}
	if flags.LogLevel != "" {
		settings.LogLevel = flags.LogLevel
	}
	if flags.Chain != "" {
		settings.Chain = flags.Chain
	}
	if flags.NativeSymbol != "" {
		settings.NativeSymbol = flags.NativeSymbol
	}
	if flags.LiquidityFallback != "" {
		settings.LiquidityFallback = strings.ToLower(flags.LiquidityFallback)
	}
	if flags.NoCache {
		settings.CacheEnabled = false
	}
	if flags.CacheTTL != "" {
		d, err := time.ParseDuration(flags.CacheTTL)
		if err != nil {
			return fmt.Errorf("parse --cache-ttl: %w", err)
		}
		settings.CacheTTL = d
	}
	if flags.YieldsURL != "" {
		settings.YieldsURL = flags.YieldsURL
	}

	if settings.OutputMode != "json" && settings.OutputMode != "plain" {
		return fmt.Errorf("output must be json or plain")
	}

	return nil
}
