// Package ingestion contains the market-data source adapters that report
// newly listed tokens.
package ingestion

import (
	"context"
	"math"

	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"token-radar/internal/domain"
)

// SourceAdapter fetches the current batch of newly listed tokens from one provider.
// Fetch returns (nil, err) on network or schema failure; malformed items are
// skipped without failing the batch. Adapters keep no state between calls.
type SourceAdapter interface {
	Name() string
	Fetch(ctx context.Context) ([]domain.CandidateToken, error)
}

// SkipFunc is notified for every item an adapter drops.
type SkipFunc func(source, reason string)

// Skip reasons reported by adapters.
const (
	SkipDecode           = "decode"
	SkipEmptyAddress     = "empty_address"
	SkipInvalidAddress   = "invalid_address"
	SkipInvalidLiquidity = "invalid_liquidity"
	SkipWrongChain       = "wrong_chain"
)

// skipCounter tallies dropped items for one Fetch call.
type skipCounter struct {
	source string
	counts map[string]int
	onSkip SkipFunc
}

func newSkipCounter(source string, onSkip SkipFunc) *skipCounter {
	return &skipCounter{source: source, counts: make(map[string]int), onSkip: onSkip}
}

func (s *skipCounter) skip(reason string) {
	s.counts[reason]++
	if s.onSkip != nil {
		s.onSkip(s.source, reason)
	}
}

func (s *skipCounter) log(logger *zap.Logger, accepted int) {
	if len(s.counts) == 0 {
		logger.Debug("fetched", zap.Int("accepted", accepted))
		return
	}
	fields := []zap.Field{zap.Int("accepted", accepted)}
	for reason, n := range s.counts {
		fields = append(fields, zap.Int("skipped_"+reason, n))
	}
	logger.Info("fetched with skipped items", fields...)
}

// CheckCandidate validates the fields every adapter must honour. It returns a
// skip reason, or "" when the candidate is usable.
func CheckCandidate(c domain.CandidateToken) string {
	if c.Address == "" {
		return SkipEmptyAddress
	}
	if c.Chain == domain.ChainSolana && !IsSolanaAddress(c.Address) {
		return SkipInvalidAddress
	}
	if c.LiquidityUSD < 0 || math.IsNaN(c.LiquidityUSD) || math.IsInf(c.LiquidityUSD, 0) {
		return SkipInvalidLiquidity
	}
	return ""
}

// IsSolanaAddress reports whether s is a base58-encoded 32-byte public key.
func IsSolanaAddress(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	b, err := base58.Decode(s)
	return err == nil && len(b) == 32
}

func nopIfNil(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func reverse(cs []domain.CandidateToken) {
	for i, j := 0, len(cs)-1; i < j; i, j = i+1, j-1 {
		cs[i], cs[j] = cs[j], cs[i]
	}
}
