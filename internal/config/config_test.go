package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-radar/internal/safety"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil, "")
	require.NoError(t, err)

	assert.Equal(t, 60*time.Second, cfg.Pipeline.Interval)
	assert.Equal(t, 200, cfg.Pipeline.CacheCapacity)
	assert.Equal(t, 4, cfg.Pipeline.EnrichmentWorkers)
	assert.Equal(t, 15*time.Second, cfg.Pipeline.AdapterTimeout)
	assert.Equal(t, 10*time.Second, cfg.Pipeline.EnrichmentTimeout)
	assert.Equal(t, []string{"solana"}, cfg.Universe.Chains)
	assert.True(t, cfg.Sources.DexScreener.Enabled)
	assert.False(t, cfg.Sources.PumpPortal.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Sources.PumpPortal.Window)
	assert.Equal(t, BackendNone, cfg.Activity.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Activity.Window)
	assert.Equal(t, ":3001", cfg.Server.Addr)
	assert.Equal(t, safety.DefaultConfig(), cfg.Safety())
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tokenradar.yaml")
	yaml := `
pipeline:
  interval: 30s
  enrichment_workers: 8
safety_gate:
  min_liquidity_usd: 50000
  max_top10_holder_percent: 30
activity:
  backend: postgres
  dsn: postgres://localhost/indexer
server:
  addr: ":8080"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("TOKENRADAR_SERVER_ADDR", ":9999")

	cfg, err := Load(nil, path)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Pipeline.Interval)
	assert.Equal(t, 8, cfg.Pipeline.EnrichmentWorkers)
	assert.Equal(t, 200, cfg.Pipeline.CacheCapacity)
	assert.Equal(t, 50000.0, cfg.SafetyGate.MinLiquidityUSD)
	assert.Equal(t, 1000.0, cfg.SafetyGate.AbsoluteMinLiquidityUSD)
	assert.Equal(t, 30.0, cfg.Safety().MaxTop10HolderPercent)
	assert.Equal(t, BackendPostgres, cfg.Activity.Backend)
	assert.Equal(t, ":9999", cfg.Server.Addr)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(nil, filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero interval", func(c *Config) { c.Pipeline.Interval = 0 }},
		{"zero capacity", func(c *Config) { c.Pipeline.CacheCapacity = 0 }},
		{"too many workers", func(c *Config) { c.Pipeline.EnrichmentWorkers = 33 }},
		{"no workers", func(c *Config) { c.Pipeline.EnrichmentWorkers = 0 }},
		{"zero enrichment timeout", func(c *Config) { c.Pipeline.EnrichmentTimeout = 0 }},
		{"negative discovery floor", func(c *Config) { c.Discovery.MinLiquidityUSD = -1 }},
		{"absolute above min", func(c *Config) { c.SafetyGate.AbsoluteMinLiquidityUSD = 30000 }},
		{"concentration above 100", func(c *Config) { c.SafetyGate.MaxTop10HolderPercent = 101 }},
		{"no chains", func(c *Config) { c.Universe.Chains = nil }},
		{"no sources", func(c *Config) {
			c.Sources.DexScreener.Enabled = false
			c.Sources.GeckoTerminal.Enabled = false
			c.Sources.PumpPortal.Enabled = false
		}},
		{"pumpportal without price", func(c *Config) {
			c.Sources.PumpPortal.Enabled = true
			c.Sources.PumpPortal.SolPriceUSD = 0
		}},
		{"no rpc endpoint", func(c *Config) { c.Solana.RPCEndpoint = "" }},
		{"pumpportal window not below adapter timeout", func(c *Config) {
			c.Sources.PumpPortal.Enabled = true
			c.Sources.PumpPortal.Window = c.Pipeline.AdapterTimeout
		}},
		{"unknown backend", func(c *Config) { c.Activity.Backend = "redis" }},
		{"backend without dsn", func(c *Config) { c.Activity.Backend = BackendClickHouse }},
		{"no server addr", func(c *Config) { c.Server.Addr = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(nil, "")
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestSourceOptions(t *testing.T) {
	cfg, err := Load(nil, "")
	require.NoError(t, err)

	opts := cfg.Sources.GeckoTerminal.HTTPOptions()
	assert.Equal(t, "https://api.geckoterminal.com", opts.BaseURL)
	assert.Equal(t, 30, opts.RequestsPerMinute)

	pump := cfg.Sources.PumpPortal.PumpPortalOptions()
	assert.Equal(t, 150.0, pump.SolPriceUSD)
	assert.Equal(t, 5*time.Second, pump.Window)
}
