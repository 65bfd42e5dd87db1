package ingestion

import (
	"context"
	"sync"
	"time"

	"token-radar/internal/domain"
)

// Static is a SourceAdapter returning a fixed batch. Used by tests.
type Static struct {
	name string

	mu     sync.Mutex
	tokens []domain.CandidateToken
	err    error
	delay  time.Duration
	panics bool
	calls  int
}

// NewStatic creates a Static adapter.
func NewStatic(name string, tokens ...domain.CandidateToken) *Static {
	return &Static{name: name, tokens: tokens}
}

// SetTokens replaces the batch returned by later calls.
func (s *Static) SetTokens(tokens ...domain.CandidateToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = tokens
}

// SetError makes later calls fail with err.
func (s *Static) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// SetDelay makes later calls wait d, or until ctx is done.
func (s *Static) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// SetPanic makes later calls panic.
func (s *Static) SetPanic() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panics = true
}

// Calls returns the number of Fetch calls.
func (s *Static) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Name implements SourceAdapter.
func (s *Static) Name() string { return s.name }

// Fetch implements SourceAdapter.
func (s *Static) Fetch(ctx context.Context) ([]domain.CandidateToken, error) {
	s.mu.Lock()
	s.calls++
	tokens := append([]domain.CandidateToken(nil), s.tokens...)
	err, delay, panics := s.err, s.delay, s.panics
	s.mu.Unlock()

	if panics {
		panic("static adapter: forced panic")
	}
	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err != nil {
		return nil, err
	}
	return tokens, nil
}
