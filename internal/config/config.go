// Package config loads and validates the service configuration.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"token-radar/internal/activity"
	"token-radar/internal/ingestion"
	"token-radar/internal/safety"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// EnvPrefix is prepended to environment overrides, e.g. TOKENRADAR_SERVER_ADDR.
const EnvPrefix = "TOKENRADAR"

// Activity backends.
const (
	BackendNone       = "none"
	BackendPostgres   = "postgres"
	BackendClickHouse = "clickhouse"
)

// Worker pool bounds.
const (
	MinWorkers = 1
	MaxWorkers = 32
)

// Config is the full service configuration. It is immutable after Load.
type Config struct {
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Discovery  DiscoveryConfig  `mapstructure:"discovery"`
	SafetyGate SafetyGateConfig `mapstructure:"safety_gate"`
	Universe   UniverseConfig   `mapstructure:"universe"`
	Sources    SourcesConfig    `mapstructure:"sources"`
	Solana     SolanaConfig     `mapstructure:"solana"`
	Activity   ActivityConfig   `mapstructure:"activity"`
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type PipelineConfig struct {
	Interval          time.Duration `mapstructure:"interval"`
	CacheCapacity     int           `mapstructure:"cache_capacity"`
	EnrichmentWorkers int           `mapstructure:"enrichment_workers"`
	AdapterTimeout    time.Duration `mapstructure:"adapter_timeout"`
	EnrichmentTimeout time.Duration `mapstructure:"enrichment_timeout"`
}

type DiscoveryConfig struct {
	MinLiquidityUSD float64 `mapstructure:"min_liquidity_usd"`
}

type SafetyGateConfig struct {
	MinLiquidityUSD           float64 `mapstructure:"min_liquidity_usd"`
	AbsoluteMinLiquidityUSD   float64 `mapstructure:"absolute_min_liquidity_usd"`
	MaxTop10HolderPercent     float64 `mapstructure:"max_top10_holder_percent"`
	RequireRenouncedOwnership bool    `mapstructure:"require_renounced_ownership"`
	RequireNoMintAuthority    bool    `mapstructure:"require_no_mint_authority"`
}

// UniverseConfig describes the tokens of interest.
// MaxMarketCapUSD is carried for deployments but not enforced by the gate.
type UniverseConfig struct {
	Chains          []string `mapstructure:"chains"`
	MaxMarketCapUSD float64  `mapstructure:"max_market_cap_usd"`
}

type SourcesConfig struct {
	DexScreener   HTTPSourceConfig `mapstructure:"dexscreener"`
	GeckoTerminal HTTPSourceConfig `mapstructure:"geckoterminal"`
	PumpPortal    StreamConfig     `mapstructure:"pumpportal"`
}

type HTTPSourceConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	BaseURL           string        `mapstructure:"base_url"`
	Network           string        `mapstructure:"network"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

type StreamConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	URL         string        `mapstructure:"url"`
	Window      time.Duration `mapstructure:"window"`
	SolPriceUSD float64       `mapstructure:"sol_price_usd"`
}

type SolanaConfig struct {
	RPCEndpoint     string        `mapstructure:"rpc_endpoint"`
	BreakerFailures uint32        `mapstructure:"breaker_failures"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown"`
}

type ActivityConfig struct {
	Backend string        `mapstructure:"backend"`
	DSN     string        `mapstructure:"dsn"`
	Window  time.Duration `mapstructure:"window"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// NewViper returns a viper instance with defaults and environment overrides set.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pipeline.interval", "60s")
	v.SetDefault("pipeline.cache_capacity", 200)
	v.SetDefault("pipeline.enrichment_workers", 4)
	v.SetDefault("pipeline.adapter_timeout", "15s")
	v.SetDefault("pipeline.enrichment_timeout", "10s")

	v.SetDefault("discovery.min_liquidity_usd", 0)

	gate := safety.DefaultConfig()
	v.SetDefault("safety_gate.min_liquidity_usd", gate.MinLiquidityUSD)
	v.SetDefault("safety_gate.absolute_min_liquidity_usd", gate.AbsoluteMinLiquidityUSD)
	v.SetDefault("safety_gate.max_top10_holder_percent", gate.MaxTop10HolderPercent)
	v.SetDefault("safety_gate.require_renounced_ownership", gate.RequireRenouncedOwnership)
	v.SetDefault("safety_gate.require_no_mint_authority", gate.RequireNoMintAuthority)

	v.SetDefault("universe.chains", []string{"solana"})
	v.SetDefault("universe.max_market_cap_usd", 1500000)

	v.SetDefault("sources.dexscreener.enabled", true)
	v.SetDefault("sources.dexscreener.base_url", ingestion.DexScreenerBaseURL)
	v.SetDefault("sources.dexscreener.network", "")
	v.SetDefault("sources.dexscreener.requests_per_minute", 60)
	v.SetDefault("sources.dexscreener.timeout", "10s")
	v.SetDefault("sources.geckoterminal.enabled", true)
	v.SetDefault("sources.geckoterminal.base_url", ingestion.GeckoTerminalBaseURL)
	v.SetDefault("sources.geckoterminal.network", "solana")
	v.SetDefault("sources.geckoterminal.requests_per_minute", 30)
	v.SetDefault("sources.geckoterminal.timeout", "10s")
	v.SetDefault("sources.pumpportal.enabled", false)
	v.SetDefault("sources.pumpportal.url", ingestion.PumpPortalURL)
	v.SetDefault("sources.pumpportal.window", "5s")
	v.SetDefault("sources.pumpportal.sol_price_usd", 150)

	v.SetDefault("solana.rpc_endpoint", "https://api.mainnet-beta.solana.com")
	v.SetDefault("solana.breaker_failures", 5)
	v.SetDefault("solana.breaker_cooldown", "30s")

	v.SetDefault("activity.backend", BackendNone)
	v.SetDefault("activity.dsn", "")
	v.SetDefault("activity.window", activity.DefaultWindow.String())

	v.SetDefault("server.addr", ":3001")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Load reads path (optional) into v, decodes and validates the result.
// A nil v uses NewViper(). An empty path reads no file.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = NewViper()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and cross-field consistency.
func (c *Config) Validate() error {
	p := c.Pipeline
	if p.Interval <= 0 {
		return fmt.Errorf("%w: pipeline.interval must be positive", ErrInvalidConfig)
	}
	if p.CacheCapacity < 1 {
		return fmt.Errorf("%w: pipeline.cache_capacity must be >= 1, got %d", ErrInvalidConfig, p.CacheCapacity)
	}
	if p.EnrichmentWorkers < MinWorkers || p.EnrichmentWorkers > MaxWorkers {
		return fmt.Errorf("%w: pipeline.enrichment_workers must be in [%d,%d], got %d",
			ErrInvalidConfig, MinWorkers, MaxWorkers, p.EnrichmentWorkers)
	}
	if p.AdapterTimeout <= 0 || p.EnrichmentTimeout <= 0 {
		return fmt.Errorf("%w: pipeline timeouts must be positive", ErrInvalidConfig)
	}

	if c.Discovery.MinLiquidityUSD < 0 {
		return fmt.Errorf("%w: discovery.min_liquidity_usd must be non-negative", ErrInvalidConfig)
	}
	if err := c.Safety().Validate(); err != nil {
		return fmt.Errorf("%w: safety_gate: %v", ErrInvalidConfig, err)
	}
	if len(c.Universe.Chains) == 0 {
		return fmt.Errorf("%w: universe.chains must not be empty", ErrInvalidConfig)
	}

	s := c.Sources
	if !s.DexScreener.Enabled && !s.GeckoTerminal.Enabled && !s.PumpPortal.Enabled {
		return fmt.Errorf("%w: at least one source must be enabled", ErrInvalidConfig)
	}
	if s.PumpPortal.Enabled && s.PumpPortal.SolPriceUSD <= 0 {
		return fmt.Errorf("%w: sources.pumpportal.sol_price_usd must be positive", ErrInvalidConfig)
	}
	if s.PumpPortal.Enabled && s.PumpPortal.Window >= c.Pipeline.AdapterTimeout {
		return fmt.Errorf("%w: sources.pumpportal.window must be shorter than pipeline.adapter_timeout", ErrInvalidConfig)
	}

	if c.Solana.RPCEndpoint == "" {
		return fmt.Errorf("%w: solana.rpc_endpoint is required", ErrInvalidConfig)
	}

	switch c.Activity.Backend {
	case BackendNone:
	case BackendPostgres, BackendClickHouse:
		if c.Activity.DSN == "" {
			return fmt.Errorf("%w: activity.dsn is required for backend %q", ErrInvalidConfig, c.Activity.Backend)
		}
		if c.Activity.Window <= 0 {
			return fmt.Errorf("%w: activity.window must be positive", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown activity.backend %q", ErrInvalidConfig, c.Activity.Backend)
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr is required", ErrInvalidConfig)
	}
	return nil
}

// Safety converts the gate section into safety.Config.
func (c *Config) Safety() safety.Config {
	g := c.SafetyGate
	return safety.Config{
		AbsoluteMinLiquidityUSD:   g.AbsoluteMinLiquidityUSD,
		MinLiquidityUSD:           g.MinLiquidityUSD,
		MaxTop10HolderPercent:     g.MaxTop10HolderPercent,
		RequireRenouncedOwnership: g.RequireRenouncedOwnership,
		RequireNoMintAuthority:    g.RequireNoMintAuthority,
	}
}

// HTTPOptions converts an HTTP source section into adapter options.
func (s HTTPSourceConfig) HTTPOptions() ingestion.HTTPOptions {
	return ingestion.HTTPOptions{
		BaseURL:           s.BaseURL,
		RequestsPerMinute: s.RequestsPerMinute,
		Timeout:           s.Timeout,
	}
}

// PumpPortalOptions converts the stream section into adapter options.
func (s StreamConfig) PumpPortalOptions() ingestion.PumpPortalOptions {
	return ingestion.PumpPortalOptions{
		URL:         s.URL,
		Window:      s.Window,
		SolPriceUSD: s.SolPriceUSD,
	}
}
