package safety

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-radar/internal/domain"
)

func safeToken() domain.AnalyzedToken {
	return domain.AnalyzedToken{
		Address:              "T1",
		LiquidityUSD:         30000,
		HasMintAuthority:     false,
		IsOwnershipRenounced: true,
		Top10HolderPercent:   15,
	}
}

func TestGate_Evaluate_Pass(t *testing.T) {
	g := NewGate(DefaultConfig())

	res := g.Evaluate(safeToken())

	assert.True(t, res.Passed)
	assert.Empty(t, res.Reasons)
	assert.Equal(t, domain.SafetyPass, res.Status())
}

func TestGate_Evaluate_LowLiquidityAccumulatesInOrder(t *testing.T) {
	g := NewGate(DefaultConfig())
	tok := safeToken()
	tok.LiquidityUSD = 500

	res := g.Evaluate(tok)

	assert.False(t, res.Passed)
	assert.Equal(t, domain.SafetyFail, res.Status())
	require.Len(t, res.Reasons, 2)
	assert.Equal(t, ReasonSellability, res.Reasons[0])
	assert.Equal(t, "Insufficient liquidity ($500).", res.Reasons[1])
}

func TestGate_Evaluate_AllRulesFire(t *testing.T) {
	g := NewGate(DefaultConfig())
	tok := domain.AnalyzedToken{
		LiquidityUSD:         999.5,
		HasMintAuthority:     true,
		IsOwnershipRenounced: false,
		Top10HolderPercent:   72.4,
	}

	res := g.Evaluate(tok)

	assert.Equal(t, []string{
		ReasonSellability,
		"Insufficient liquidity ($1000).",
		ReasonMintAuthority,
		ReasonOwnershipNotRenounced,
		"High holder concentration (72%).",
	}, res.Reasons)
}

func TestGate_Evaluate_MintAuthority(t *testing.T) {
	g := NewGate(DefaultConfig())

	for _, liq := range []float64{0, 1000, 25000, 1e9} {
		for _, top10 := range []float64{0, 40, 99} {
			tok := safeToken()
			tok.LiquidityUSD = liq
			tok.Top10HolderPercent = top10
			tok.HasMintAuthority = true

			res := g.Evaluate(tok)

			assert.False(t, res.Passed)
			assert.Contains(t, res.Reasons, ReasonMintAuthority)
		}
	}
}

func TestGate_Evaluate_RequirementsDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RequireNoMintAuthority = false
	cfg.RequireRenouncedOwnership = false
	g := NewGate(cfg)

	tok := safeToken()
	tok.HasMintAuthority = true
	tok.IsOwnershipRenounced = false

	res := g.Evaluate(tok)
	assert.True(t, res.Passed)
}

func TestGate_Evaluate_ThresholdBoundaries(t *testing.T) {
	g := NewGate(DefaultConfig())

	tok := safeToken()
	tok.LiquidityUSD = 25000
	tok.Top10HolderPercent = 40
	assert.True(t, g.Evaluate(tok).Passed, "values equal to thresholds pass")

	tok.Top10HolderPercent = 40.01
	res := g.Evaluate(tok)
	assert.Equal(t, []string{"High holder concentration (40%)."}, res.Reasons)
}

func TestGate_Evaluate_InjectedThresholds(t *testing.T) {
	g := NewGate(Config{
		AbsoluteMinLiquidityUSD: 10,
		MinLiquidityUSD:         100,
		MaxTop10HolderPercent:   90,
	})

	tok := domain.AnalyzedToken{LiquidityUSD: 150, Top10HolderPercent: 85, HasMintAuthority: true}
	assert.True(t, g.Evaluate(tok).Passed)
}

func TestGate_Evaluate_PassIffNoReasons(t *testing.T) {
	g := NewGate(DefaultConfig())

	liquidities := []float64{0, 999, 1000, 24999, 25000, 50000}
	tops := []float64{0, 39.9, 40, 41, 100}
	for _, liq := range liquidities {
		for _, top := range tops {
			for _, mint := range []bool{true, false} {
				for _, renounced := range []bool{true, false} {
					tok := domain.AnalyzedToken{
						LiquidityUSD:         liq,
						Top10HolderPercent:   top,
						HasMintAuthority:     mint,
						IsOwnershipRenounced: renounced,
					}
					res := g.Evaluate(tok)
					assert.Equal(t, len(res.Reasons) == 0, res.Passed)
				}
			}
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name string
		cfg  Config
	}{
		{"negative liquidity", Config{MinLiquidityUSD: -1}},
		{"floor above min", Config{AbsoluteMinLiquidityUSD: 5000, MinLiquidityUSD: 1000}},
		{"percent above 100", Config{MaxTop10HolderPercent: 101}},
		{"negative percent", Config{MaxTop10HolderPercent: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}
