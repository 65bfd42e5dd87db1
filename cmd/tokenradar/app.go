package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"token-radar/internal/activity"
	chactivity "token-radar/internal/activity/clickhouse"
	pgactivity "token-radar/internal/activity/postgres"
	"token-radar/internal/cache"
	"token-radar/internal/config"
	"token-radar/internal/discovery"
	"token-radar/internal/enrichment"
	"token-radar/internal/ingestion"
	"token-radar/internal/observability"
	"token-radar/internal/orchestrator"
	"token-radar/internal/safety"
	"token-radar/internal/scoring"
	"token-radar/internal/solana"
)

// app holds the wired components of one process.
type app struct {
	registry *prometheus.Registry
	metrics  *observability.Metrics
	orch     *orchestrator.Orchestrator
	cleanup  []func()
}

// Close releases backend connections.
func (a *app) Close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
}

// buildApp wires adapters, enrichment, activity, gate, scorer and cache.
func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := observability.NewMetrics(observability.DefaultNamespace, reg)
	a := &app{registry: reg, metrics: m}

	adapters := buildAdapters(cfg, logger, m)

	agg, err := discovery.NewAggregator(discovery.Options{
		Adapters:        adapters,
		AdapterTimeout:  cfg.Pipeline.AdapterTimeout,
		MinLiquidityUSD: cfg.Discovery.MinLiquidityUSD,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}

	rpc := solana.NewHTTPClient(cfg.Solana.RPCEndpoint,
		solana.WithTimeout(cfg.Pipeline.EnrichmentTimeout),
		solana.WithObserver(m.RecordRPCLatency),
	)
	enricher, err := enrichment.NewRPCEnricher(enrichment.Options{
		RPC:             rpc,
		Timeout:         cfg.Pipeline.EnrichmentTimeout,
		BreakerFailures: cfg.Solana.BreakerFailures,
		BreakerCooldown: cfg.Solana.BreakerCooldown,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}

	src, err := a.buildActivity(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	results, err := cache.New(cfg.Pipeline.CacheCapacity)
	if err != nil {
		a.Close()
		return nil, err
	}

	orch, err := orchestrator.New(orchestrator.Options{
		Aggregator:    agg,
		Enricher:      enricher,
		Activity:      src,
		Gate:          safety.NewGate(cfg.Safety()),
		Scorer:        scoring.NewEngine(scoring.DefaultWeights()),
		Cache:         results,
		Interval:      cfg.Pipeline.Interval,
		Workers:       cfg.Pipeline.EnrichmentWorkers,
		EnrichTimeout: cfg.Pipeline.EnrichmentTimeout,
		Metrics:       m,
		Logger:        logger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.orch = orch

	logger.Info("pipeline wired",
		zap.Int("adapters", len(adapters)),
		zap.String("activity_backend", cfg.Activity.Backend),
		zap.Int("cache_capacity", cfg.Pipeline.CacheCapacity),
		zap.Int("workers", cfg.Pipeline.EnrichmentWorkers))
	return a, nil
}

func buildAdapters(cfg *config.Config, logger *zap.Logger, m *observability.Metrics) []ingestion.SourceAdapter {
	var adapters []ingestion.SourceAdapter

	if s := cfg.Sources.DexScreener; s.Enabled {
		opts := s.HTTPOptions()
		opts.Logger = logger
		opts.OnSkip = m.RecordAdapterSkip
		adapters = append(adapters, ingestion.NewDexScreener(opts, cfg.Universe.Chains))
	}
	if s := cfg.Sources.GeckoTerminal; s.Enabled {
		opts := s.HTTPOptions()
		opts.Logger = logger
		opts.OnSkip = m.RecordAdapterSkip
		adapters = append(adapters, ingestion.NewGeckoTerminal(opts, s.Network))
	}
	if s := cfg.Sources.PumpPortal; s.Enabled {
		opts := s.PumpPortalOptions()
		opts.Logger = logger
		opts.OnSkip = m.RecordAdapterSkip
		adapters = append(adapters, ingestion.NewPumpPortal(opts))
	}
	return adapters
}

func (a *app) buildActivity(ctx context.Context, cfg *config.Config) (activity.Source, error) {
	switch cfg.Activity.Backend {
	case config.BackendPostgres:
		pool, err := pgactivity.NewPool(ctx, cfg.Activity.DSN)
		if err != nil {
			return nil, fmt.Errorf("activity backend: %w", err)
		}
		a.cleanup = append(a.cleanup, pool.Close)
		return pgactivity.NewReader(pool, cfg.Activity.Window), nil
	case config.BackendClickHouse:
		conn, err := chactivity.NewConn(ctx, cfg.Activity.DSN)
		if err != nil {
			return nil, fmt.Errorf("activity backend: %w", err)
		}
		a.cleanup = append(a.cleanup, func() { conn.Close() })
		return chactivity.NewReader(conn, cfg.Activity.Window), nil
	default:
		return activity.None{}, nil
	}
}
