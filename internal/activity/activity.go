// Package activity provides recent trading-activity figures for token addresses.
package activity

import (
	"context"
	"sync"
	"time"

	"token-radar/internal/domain"
)

// DefaultWindow is the lookback used to count recent trades.
const DefaultWindow = 5 * time.Minute

// Side values stored by the upstream swap indexer.
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Source returns activity for one address. Implementations are read-only.
type Source interface {
	Activity(ctx context.Context, address string) (domain.Activity, error)
}

// FromCounts converts buy/sell counts over window into per-minute activity.
// The ratio equals buys when there were no sells.
func FromCounts(buys, sells int64, window time.Duration) domain.Activity {
	if buys < 0 {
		buys = 0
	}
	if sells < 0 {
		sells = 0
	}

	var act domain.Activity
	if minutes := window.Minutes(); minutes > 0 {
		act.TradesPerMinute = float64(buys+sells) / minutes
	}
	if sells == 0 {
		act.BuyerSellerRatio = float64(buys)
	} else {
		act.BuyerSellerRatio = float64(buys) / float64(sells)
	}
	return act
}

// None reports zero activity for every address.
type None struct{}

// Activity implements Source.
func (None) Activity(context.Context, string) (domain.Activity, error) {
	return domain.Activity{}, nil
}

// Static is a deterministic Source for tests.
type Static struct {
	mu    sync.Mutex
	data  map[string]domain.Activity
	errs  map[string]error
	calls int
}

// NewStatic creates a Static source with the given per-address activity.
func NewStatic(data map[string]domain.Activity) *Static {
	s := &Static{
		data: make(map[string]domain.Activity, len(data)),
		errs: make(map[string]error),
	}
	for k, v := range data {
		s.data[k] = v
	}
	return s
}

// Fail makes lookups for address return err.
func (s *Static) Fail(address string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[address] = err
}

// Activity implements Source.
func (s *Static) Activity(_ context.Context, address string) (domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if err := s.errs[address]; err != nil {
		return domain.Activity{}, err
	}
	return s.data[address], nil
}

// Calls returns the number of lookups served.
func (s *Static) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
