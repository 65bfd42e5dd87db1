// Package discovery fans out to the source adapters and reduces their output
// to a deduplicated list of new candidates.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"token-radar/internal/domain"
	"token-radar/internal/ingestion"
)

// DefaultAdapterTimeout bounds a single adapter Fetch.
const DefaultAdapterTimeout = 15 * time.Second

// RejectReason explains why a fetched candidate was not returned.
type RejectReason string

const (
	RejectEmptyAddress RejectReason = "empty_address"
	RejectDuplicate    RejectReason = "duplicate"
	RejectLowLiquidity RejectReason = "low_liquidity"
)

// Options configures the Aggregator.
type Options struct {
	Adapters []ingestion.SourceAdapter

	// Seen is shared across cycles. A new set is created when nil.
	Seen *SeenSet

	AdapterTimeout time.Duration

	// MinLiquidityUSD drops candidates below this floor before enrichment.
	// Rejected addresses are not recorded, so they can be picked up later.
	MinLiquidityUSD float64

	Logger *zap.Logger
}

// AdapterReport is the outcome of one adapter call.
type AdapterReport struct {
	Name     string
	Count    int
	Err      error
	Duration time.Duration
}

// Result is the outcome of one aggregation round.
type Result struct {
	// Candidates are new addresses in processing order: adapters in
	// registration order, each adapter's own order preserved.
	Candidates []domain.CandidateToken

	Fetched  int
	Rejected map[RejectReason]int

	// Failed lists adapters that returned an error, timed out or panicked.
	Failed  []string
	Reports []AdapterReport

	// Err combines all adapter errors. Nil when every adapter succeeded.
	Err error
}

// Aggregator runs all adapters concurrently and settles on all of them.
type Aggregator struct {
	adapters []ingestion.SourceAdapter
	seen     *SeenSet
	timeout  time.Duration
	minLiq   float64
	logger   *zap.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(opts Options) (*Aggregator, error) {
	if len(opts.Adapters) == 0 {
		return nil, errors.New("discovery: at least one adapter is required")
	}
	if opts.MinLiquidityUSD < 0 {
		return nil, fmt.Errorf("discovery: negative min liquidity %.2f", opts.MinLiquidityUSD)
	}
	if opts.Seen == nil {
		opts.Seen = NewSeenSet()
	}
	if opts.AdapterTimeout <= 0 {
		opts.AdapterTimeout = DefaultAdapterTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Aggregator{
		adapters: opts.Adapters,
		seen:     opts.Seen,
		timeout:  opts.AdapterTimeout,
		minLiq:   opts.MinLiquidityUSD,
		logger:   logger.Named("aggregator"),
	}, nil
}

// Seen returns the process-lifetime seen-set.
func (a *Aggregator) Seen() *SeenSet {
	return a.seen
}

type fetchOutcome struct {
	tokens []domain.CandidateToken
	report AdapterReport
}

// Run fetches from every adapter and returns the new candidates.
// It never fails as a whole: adapter errors are reported in Result.
func (a *Aggregator) Run(ctx context.Context) *Result {
	outcomes := make([]fetchOutcome, len(a.adapters))

	var wg sync.WaitGroup
	for i, ad := range a.adapters {
		wg.Add(1)
		go func(i int, ad ingestion.SourceAdapter) {
			defer wg.Done()
			outcomes[i] = a.fetch(ctx, ad)
		}(i, ad)
	}
	wg.Wait()

	res := &Result{Rejected: make(map[RejectReason]int)}
	var merr *multierror.Error

	for _, o := range outcomes {
		res.Reports = append(res.Reports, o.report)
		if o.report.Err != nil {
			res.Failed = append(res.Failed, o.report.Name)
			merr = multierror.Append(merr, fmt.Errorf("%s: %w", o.report.Name, o.report.Err))
			a.logger.Warn("adapter failed",
				zap.String("adapter", o.report.Name),
				zap.Duration("elapsed", o.report.Duration),
				zap.Error(o.report.Err))
			continue
		}

		for _, c := range o.tokens {
			res.Fetched++
			if reason, ok := a.admit(c); !ok {
				res.Rejected[reason]++
				continue
			}
			res.Candidates = append(res.Candidates, c)
		}
	}
	res.Err = merr.ErrorOrNil()

	if len(res.Failed) == len(a.adapters) {
		a.logger.Warn("all adapters failed", zap.Error(res.Err))
	}
	a.logger.Debug("aggregation complete",
		zap.Int("fetched", res.Fetched),
		zap.Int("accepted", len(res.Candidates)),
		zap.Int("failed_adapters", len(res.Failed)))

	return res
}

// admit applies the reject rules in order and records accepted addresses.
func (a *Aggregator) admit(c domain.CandidateToken) (RejectReason, bool) {
	if c.Address == "" {
		return RejectEmptyAddress, false
	}
	if a.seen.Contains(c.Address) {
		return RejectDuplicate, false
	}
	if c.LiquidityUSD < a.minLiq {
		return RejectLowLiquidity, false
	}
	if !a.seen.Add(c.Address) {
		return RejectDuplicate, false
	}
	return "", true
}

// fetch calls one adapter under its own timeout. An adapter that ignores
// its context is abandoned once the timeout fires; panics become errors.
func (a *Aggregator) fetch(ctx context.Context, ad ingestion.SourceAdapter) fetchOutcome {
	name := ad.Name()
	start := time.Now()

	fctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	type reply struct {
		tokens []domain.CandidateToken
		err    error
	}
	ch := make(chan reply, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- reply{err: fmt.Errorf("adapter panicked: %v", r)}
			}
		}()
		tokens, err := ad.Fetch(fctx)
		ch <- reply{tokens: tokens, err: err}
	}()

	var r reply
	select {
	case r = <-ch:
	case <-fctx.Done():
		r = reply{err: fmt.Errorf("fetch abandoned: %w", fctx.Err())}
	}
	if r.err != nil {
		r.tokens = nil
	}

	return fetchOutcome{
		tokens: r.tokens,
		report: AdapterReport{
			Name:     name,
			Count:    len(r.tokens),
			Err:      r.err,
			Duration: time.Since(start),
		},
	}
}
