// Package orchestrator drives the discovery pipeline.
// It coordinates: aggregation → enrichment → safety gate → scoring → cache
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"token-radar/internal/activity"
	"token-radar/internal/cache"
	"token-radar/internal/discovery"
	"token-radar/internal/domain"
	"token-radar/internal/enrichment"
	"token-radar/internal/ingestion"
	"token-radar/internal/observability"
	"token-radar/internal/safety"
	"token-radar/internal/scoring"
)

var (
	// ErrCycleInProgress is returned by RunCycle when another cycle is running.
	ErrCycleInProgress = errors.New("cycle already in progress")

	// ErrInvalidCandidate is returned by Ingest for a candidate an adapter would skip.
	ErrInvalidCandidate = errors.New("invalid candidate")

	// ErrAlreadySeen is returned by Ingest for an address analyzed before,
	// including one already evicted from the cache.
	ErrAlreadySeen = errors.New("address already seen")
)

// Defaults.
const (
	DefaultInterval      = 60 * time.Second
	DefaultWorkers       = 4
	DefaultEnrichTimeout = 10 * time.Second
	DefaultCacheCapacity = 200

	MaxWorkers = 32
)

// Options for creating Orchestrator.
type Options struct {
	// Required
	Aggregator *discovery.Aggregator
	Enricher   enrichment.Enricher

	// Activity defaults to activity.None.
	Activity activity.Source
	// Gate defaults to the stock thresholds.
	Gate *safety.Gate
	// Scorer defaults to the stock weights.
	Scorer *scoring.Engine
	// Cache defaults to a FIFO of DefaultCacheCapacity.
	Cache *cache.FIFO

	Interval      time.Duration
	Workers       int
	EnrichTimeout time.Duration

	Metrics *observability.Metrics
	Logger  *zap.Logger

	// Now overrides the clock (tests).
	Now func() time.Time
}

// CycleResult contains results from one cycle.
type CycleResult struct {
	StartedAt time.Time     `json:"-"`
	Duration  time.Duration `json:"-"`

	// Unix milliseconds, like AnalyzedToken.AnalyzedAt.
	StartedAtMs int64 `json:"startedAtMs"`
	DurationMs  int64 `json:"durationMs"`

	Discovered int            `json:"discovered"`
	Accepted   int            `json:"accepted"`
	Rejected   map[string]int `json:"rejected"`

	Analyzed            int `json:"analyzed"`
	Passed              int `json:"passed"`
	Failed              int `json:"failed"`
	Evicted             int `json:"evicted"`
	EnrichmentFallbacks int `json:"enrichmentFallbacks"`
	ActivityErrors      int `json:"activityErrors"`

	// Dropped counts candidates abandoned because the cycle was cancelled.
	Dropped int `json:"dropped"`

	AdapterFailures []string `json:"adapterFailures"`
}

// Status is a point-in-time view of the orchestrator.
type Status struct {
	Running        bool         `json:"running"`
	CyclesRun      int          `json:"cyclesRun"`
	CyclesSkipped  int          `json:"cyclesSkipped"`
	LastCycleAtMs  int64        `json:"lastCycleAtMs,omitempty"`
	LastDurationMs int64        `json:"lastDurationMs"`
	LastError      string       `json:"lastError,omitempty"`
	LastResult     *CycleResult `json:"lastResult,omitempty"`
	CacheSize      int          `json:"cacheSize"`
	CacheCapacity  int          `json:"cacheCapacity"`
	SeenCount      int          `json:"seenCount"`
}

// Orchestrator owns the cache and runs the periodic cycle.
type Orchestrator struct {
	agg      *discovery.Aggregator
	enricher enrichment.Enricher
	activity activity.Source
	gate     *safety.Gate
	scorer   *scoring.Engine
	cache    *cache.FIFO

	interval      time.Duration
	workers       int
	enrichTimeout time.Duration

	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time

	running atomic.Bool

	mu            sync.Mutex
	cyclesRun     int
	cyclesSkipped int
	lastCycleAt   time.Time
	lastDuration  time.Duration
	lastErr       error
	lastResult    *CycleResult
}

// New creates a new Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Aggregator == nil {
		return nil, errors.New("orchestrator: aggregator is required")
	}
	if opts.Enricher == nil {
		return nil, errors.New("orchestrator: enricher is required")
	}
	if opts.Workers == 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Workers < 1 || opts.Workers > MaxWorkers {
		return nil, fmt.Errorf("orchestrator: workers must be in [1,%d], got %d", MaxWorkers, opts.Workers)
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.EnrichTimeout <= 0 {
		opts.EnrichTimeout = DefaultEnrichTimeout
	}
	if opts.Activity == nil {
		opts.Activity = activity.None{}
	}
	if opts.Gate == nil {
		opts.Gate = safety.NewGate(safety.DefaultConfig())
	}
	if opts.Scorer == nil {
		opts.Scorer = scoring.NewEngine(scoring.DefaultWeights())
	}
	if opts.Cache == nil {
		c, err := cache.New(DefaultCacheCapacity)
		if err != nil {
			return nil, err
		}
		opts.Cache = c
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Orchestrator{
		agg:           opts.Aggregator,
		enricher:      opts.Enricher,
		activity:      opts.Activity,
		gate:          opts.Gate,
		scorer:        opts.Scorer,
		cache:         opts.Cache,
		interval:      opts.Interval,
		workers:       opts.Workers,
		enrichTimeout: opts.EnrichTimeout,
		metrics:       opts.Metrics,
		logger:        logger.Named("orchestrator"),
		now:           opts.Now,
	}, nil
}

// Run runs one cycle immediately, then one per interval until ctx is done.
// A tick that fires while a cycle is still running is skipped.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("starting scheduler", zap.Duration("interval", o.interval), zap.Int("workers", o.workers))

	var wg sync.WaitGroup
	defer wg.Wait()

	launch := func() {
		if o.running.Load() {
			o.skipTick()
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := o.RunCycle(ctx); errors.Is(err, ErrCycleInProgress) {
				o.skipTick()
			}
		}()
	}

	launch()

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("scheduler stopping", zap.Error(ctx.Err()))
			return ctx.Err()
		case <-ticker.C:
			launch()
		}
	}
}

func (o *Orchestrator) skipTick() {
	o.mu.Lock()
	o.cyclesSkipped++
	o.mu.Unlock()
	o.metrics.RecordTickSkipped()
	o.logger.Warn("cycle still running, skipping tick")
}

type slot struct {
	token domain.AnalyzedToken
	done  bool
}

// RunCycle runs aggregation and analysis once. Results are inserted into the
// cache in discovery order after every worker has finished. Candidates still
// in flight when ctx is cancelled are dropped, and ctx.Err() is returned.
func (o *Orchestrator) RunCycle(ctx context.Context) (*CycleResult, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrCycleInProgress
	}
	defer o.running.Store(false)

	start := o.now()
	res := &CycleResult{StartedAt: start, StartedAtMs: start.UnixMilli(), Rejected: make(map[string]int)}

	agg := o.agg.Run(ctx)
	res.Discovered = agg.Fetched
	res.Accepted = len(agg.Candidates)
	res.AdapterFailures = agg.Failed
	for reason, n := range agg.Rejected {
		res.Rejected[string(reason)] = n
		o.metrics.RecordCandidates(string(reason), n)
	}
	o.metrics.RecordCandidates("accepted", res.Accepted)
	for _, r := range agg.Reports {
		o.metrics.RecordAdapterFetch(r.Name, r.Err, r.Duration)
	}

	slots := make([]slot, len(agg.Candidates))
	var activityErrs atomic.Int64

	var g errgroup.Group
	g.SetLimit(o.workers)
	for i, c := range agg.Candidates {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			t, actErr, ok := o.process(ctx, c)
			if actErr {
				activityErrs.Add(1)
			}
			if ok {
				slots[i] = slot{token: t, done: true}
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, s := range slots {
		if !s.done {
			res.Dropped++
			continue
		}
		if o.insert(s.token) {
			res.Evicted++
		}
		res.Analyzed++
		if s.token.SafetyStatus == domain.SafetyPass {
			res.Passed++
		} else {
			res.Failed++
		}
		if s.token.EnrichmentFallback {
			res.EnrichmentFallbacks++
		}
	}
	res.ActivityErrors = int(activityErrs.Load())
	res.Duration = o.now().Sub(start)
	res.DurationMs = res.Duration.Milliseconds()

	err := ctx.Err()
	o.finish(res, err)
	return res, err
}

func (o *Orchestrator) finish(res *CycleResult, err error) {
	o.mu.Lock()
	o.cyclesRun++
	o.lastCycleAt = res.StartedAt
	o.lastDuration = res.Duration
	o.lastErr = err
	o.lastResult = res
	o.mu.Unlock()

	o.metrics.RecordCycle(err, res.Duration)
	o.metrics.UpdateSizes(o.cache.Len(), o.agg.Seen().Len())

	fields := []zap.Field{
		zap.Int("discovered", res.Discovered),
		zap.Int("accepted", res.Accepted),
		zap.Int("analyzed", res.Analyzed),
		zap.Int("passed", res.Passed),
		zap.Int("failed", res.Failed),
		zap.Int("evicted", res.Evicted),
		zap.Int("fallbacks", res.EnrichmentFallbacks),
		zap.Strings("adapter_failures", res.AdapterFailures),
		zap.Duration("elapsed", res.Duration),
	}
	if err != nil {
		o.logger.Warn("cycle interrupted", append(fields, zap.Int("dropped", res.Dropped), zap.Error(err))...)
		return
	}
	o.logger.Info("cycle complete", fields...)
}

// process enriches and analyzes one candidate. ok is false when ctx was
// cancelled before the record could be built from real lookups.
func (o *Orchestrator) process(ctx context.Context, c domain.CandidateToken) (t domain.AnalyzedToken, activityFailed bool, ok bool) {
	lctx, cancel := context.WithTimeout(ctx, o.enrichTimeout)
	defer cancel()

	var (
		wg     sync.WaitGroup
		act    domain.Activity
		actErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		act, actErr = o.activity.Activity(lctx, c.Address)
	}()
	er := o.enricher.Enrich(lctx, c.Address)
	wg.Wait()

	if ctx.Err() != nil {
		return domain.AnalyzedToken{}, false, false
	}

	o.metrics.RecordEnrichment(er.Fallback)
	if er.Fallback {
		o.logger.Warn("enrichment fell back to unsafe defaults",
			zap.String("address", c.Address), zap.Error(er.Err))
	}
	if actErr != nil {
		o.metrics.RecordActivityError()
		o.logger.Debug("activity lookup failed",
			zap.String("address", c.Address), zap.Error(actErr))
		act = domain.Activity{}
	}

	t = o.Analyze(c, er.Attributes, act)
	t.EnrichmentFallback = er.Fallback
	return t, actErr != nil, true
}

// Analyze builds one snapshot and runs the gate and the scorer on it.
// It has no side effects.
func (o *Orchestrator) Analyze(c domain.CandidateToken, attrs domain.OnChainAttributes, act domain.Activity) domain.AnalyzedToken {
	t := domain.NewSnapshot(c, attrs, act)

	verdict := o.gate.Evaluate(t)
	t.SafetyStatus = verdict.Status()
	t.Reasons = verdict.Reasons
	t.Score = o.scorer.Score(t)
	return t
}

// insert stamps and stores t. It reports whether an older entry was evicted.
func (o *Orchestrator) insert(t domain.AnalyzedToken) bool {
	t.AnalyzedAt = o.now().UnixMilli()
	evictedAddr, evicted := o.cache.Put(t)

	o.metrics.RecordAnalyzed(t.SafetyStatus.String())
	if evicted {
		o.metrics.RecordEviction()
		o.logger.Debug("evicted", zap.String("address", evictedAddr))
	}
	o.logger.Debug("analyzed",
		zap.String("address", t.Address),
		zap.String("symbol", t.Symbol),
		zap.String("status", t.SafetyStatus.String()),
		zap.Int("score", t.Score),
		zap.Strings("reasons", t.Reasons))
	return evicted
}

// Ingest analyzes a single candidate outside the periodic cycle and stores it.
// The candidate goes through the same checks as adapter output, and the
// address is recorded in the seen-set so it is never analyzed twice.
func (o *Orchestrator) Ingest(ctx context.Context, c domain.CandidateToken) (domain.AnalyzedToken, error) {
	if reason := ingestion.CheckCandidate(c); reason != "" {
		return domain.AnalyzedToken{}, fmt.Errorf("%w: %s", ErrInvalidCandidate, reason)
	}
	if !o.agg.Seen().Add(c.Address) {
		return domain.AnalyzedToken{}, fmt.Errorf("%w: %s", ErrAlreadySeen, c.Address)
	}

	t, _, ok := o.process(ctx, c)
	if !ok {
		return domain.AnalyzedToken{}, ctx.Err()
	}
	o.insert(t)
	o.metrics.UpdateSizes(o.cache.Len(), o.agg.Seen().Len())

	stored, err := o.cache.Get(t.Address)
	if err != nil {
		return t, nil
	}
	return stored, nil
}

// ListAll returns every cached token sorted by score descending.
func (o *Orchestrator) ListAll() []domain.AnalyzedToken {
	return o.cache.List()
}

// GetByAddress returns one cached token or cache.ErrNotFound.
func (o *Orchestrator) GetByAddress(address string) (domain.AnalyzedToken, error) {
	return o.cache.Get(address)
}

// Status returns counters for the /status endpoint.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := Status{
		Running:        o.running.Load(),
		CyclesRun:      o.cyclesRun,
		CyclesSkipped:  o.cyclesSkipped,
		LastDurationMs: o.lastDuration.Milliseconds(),
		CacheSize:      o.cache.Len(),
		CacheCapacity:  o.cache.Capacity(),
		SeenCount:      o.agg.Seen().Len(),
	}
	if !o.lastCycleAt.IsZero() {
		s.LastCycleAtMs = o.lastCycleAt.UnixMilli()
	}
	if o.lastErr != nil {
		s.LastError = o.lastErr.Error()
	}
	if o.lastResult != nil {
		r := *o.lastResult
		r.Rejected = make(map[string]int, len(o.lastResult.Rejected))
		for k, v := range o.lastResult.Rejected {
			r.Rejected[k] = v
		}
		r.AdapterFailures = append([]string(nil), o.lastResult.AdapterFailures...)
		s.LastResult = &r
	}
	return s
}
