// Package safety implements the deterministic safety triage gate.
package safety

import (
	"errors"
	"fmt"
	"math"

	"token-radar/internal/domain"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid safety gate config")

// Reason messages. Liquidity and concentration messages carry the observed value.
const (
	ReasonSellability           = "Failed sellability test (rug pull)."
	ReasonMintAuthority         = "Mint authority is still enabled."
	ReasonOwnershipNotRenounced = "Contract ownership has not been renounced."
)

// Config holds the gate thresholds. Values are injected per deployment.
type Config struct {
	// AbsoluteMinLiquidityUSD is the hard floor below which a token is assumed unsellable.
	AbsoluteMinLiquidityUSD float64
	MinLiquidityUSD         float64
	MaxTop10HolderPercent   float64

	RequireRenouncedOwnership bool
	RequireNoMintAuthority    bool
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		AbsoluteMinLiquidityUSD:   1000,
		MinLiquidityUSD:           25000,
		MaxTop10HolderPercent:     40,
		RequireRenouncedOwnership: true,
		RequireNoMintAuthority:    true,
	}
}

// Validate checks threshold consistency.
func (c Config) Validate() error {
	if c.AbsoluteMinLiquidityUSD < 0 || c.MinLiquidityUSD < 0 {
		return fmt.Errorf("%w: liquidity thresholds must be non-negative", ErrInvalidConfig)
	}
	if c.AbsoluteMinLiquidityUSD > c.MinLiquidityUSD {
		return fmt.Errorf("%w: absolute minimum %.2f exceeds min liquidity %.2f",
			ErrInvalidConfig, c.AbsoluteMinLiquidityUSD, c.MinLiquidityUSD)
	}
	if c.MaxTop10HolderPercent < 0 || c.MaxTop10HolderPercent > 100 {
		return fmt.Errorf("%w: max top10 holder percent %.2f out of [0,100]",
			ErrInvalidConfig, c.MaxTop10HolderPercent)
	}
	return nil
}

// Result is the outcome of Evaluate.
type Result struct {
	Passed  bool
	Reasons []string
}

// Status maps the result onto the record status.
func (r Result) Status() domain.SafetyStatus {
	if r.Passed {
		return domain.SafetyPass
	}
	return domain.SafetyFail
}

// Gate evaluates the rule set. It holds no mutable state.
type Gate struct {
	cfg Config
}

// NewGate creates a gate with the given thresholds.
func NewGate(cfg Config) *Gate {
	return &Gate{cfg: cfg}
}

// Evaluate runs every rule in order and collects all reasons.
// Passed is true iff no rule fired.
func (g *Gate) Evaluate(t domain.AnalyzedToken) Result {
	reasons := make([]string, 0, 5)

	if t.LiquidityUSD < g.cfg.AbsoluteMinLiquidityUSD {
		reasons = append(reasons, ReasonSellability)
	}
	if t.LiquidityUSD < g.cfg.MinLiquidityUSD {
		reasons = append(reasons, fmt.Sprintf("Insufficient liquidity ($%d).", roundHalfUp(t.LiquidityUSD)))
	}
	if g.cfg.RequireNoMintAuthority && t.HasMintAuthority {
		reasons = append(reasons, ReasonMintAuthority)
	}
	if g.cfg.RequireRenouncedOwnership && !t.IsOwnershipRenounced {
		reasons = append(reasons, ReasonOwnershipNotRenounced)
	}
	if t.Top10HolderPercent > g.cfg.MaxTop10HolderPercent {
		reasons = append(reasons, fmt.Sprintf("High holder concentration (%d%%).", roundHalfUp(t.Top10HolderPercent)))
	}

	return Result{Passed: len(reasons) == 0, Reasons: reasons}
}

func roundHalfUp(v float64) int64 {
	return int64(math.Floor(v + 0.5))
}
