package enrichment

import (
	"context"
	"sync"
	"time"

	"token-radar/internal/domain"
)

// Static is a deterministic Enricher for tests and dry runs.
// Unknown addresses fall back to the fail-unsafe default.
type Static struct {
	mu    sync.Mutex
	attrs map[string]domain.OnChainAttributes
	delay time.Duration
	calls map[string]int
	total int
}

// NewStatic creates a Static enricher with the given per-address attributes.
func NewStatic(attrs map[string]domain.OnChainAttributes) *Static {
	s := &Static{
		attrs: make(map[string]domain.OnChainAttributes, len(attrs)),
		calls: make(map[string]int),
	}
	for k, v := range attrs {
		s.attrs[k] = v
	}
	return s
}

// WithDelay makes every call wait d (or until ctx is done) before answering.
func (s *Static) WithDelay(d time.Duration) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
	return s
}

// Set registers attributes for address.
func (s *Static) Set(address string, attrs domain.OnChainAttributes) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs[address] = attrs
}

// Enrich implements Enricher.
func (s *Static) Enrich(ctx context.Context, address string) Result {
	s.mu.Lock()
	s.calls[address]++
	s.total++
	delay := s.delay
	attrs, ok := s.attrs[address]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return fallback(ctx.Err())
		case <-time.After(delay):
		}
	}

	if !ok {
		return fallback(ErrMintNotFound)
	}
	return Result{Attributes: attrs}
}

// Calls returns how many times address was looked up.
func (s *Static) Calls(address string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[address]
}

// TotalCalls returns the number of lookups across all addresses.
func (s *Static) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}
