// Package scoring computes the momentum score of an analyzed token.
package scoring

import (
	"math"

	"token-radar/internal/domain"
)

// Default weights. They sum to 100.
const (
	DefaultActivityWeight     = 35.0
	DefaultBuyPressureWeight  = 30.0
	DefaultDistributionWeight = 35.0

	// DefaultTradesSaturation is the trades/minute rate at which the activity term maxes out.
	DefaultTradesSaturation = 150.0
)

// Weights parameterizes the score formula.
type Weights struct {
	Activity         float64
	BuyPressure      float64
	Distribution     float64
	TradesSaturation float64
}

// DefaultWeights returns the stock weights.
func DefaultWeights() Weights {
	return Weights{
		Activity:         DefaultActivityWeight,
		BuyPressure:      DefaultBuyPressureWeight,
		Distribution:     DefaultDistributionWeight,
		TradesSaturation: DefaultTradesSaturation,
	}
}

// Engine scores tokens. It is a pure function of its input.
type Engine struct {
	w Weights
}

// NewEngine creates an engine with the given weights.
// A non-positive saturation falls back to the default.
func NewEngine(w Weights) *Engine {
	if w.TradesSaturation <= 0 {
		w.TradesSaturation = DefaultTradesSaturation
	}
	return &Engine{w: w}
}

// Score returns
//
//	round(clamp(tpm/sat, 0, 1)*Wa + max(bsr-1, 0)*Wb + max(1-top10/100, 0)*Wd)
//
// The buy-pressure term has no upper bound, so extreme buy/sell skew can push
// the result above 100. The result is never negative.
func (e *Engine) Score(t domain.AnalyzedToken) int {
	activity := clamp(t.TradesPerMinute/e.w.TradesSaturation, 0, 1) * e.w.Activity
	pressure := math.Max(t.BuyerSellerRatio-1, 0) * e.w.BuyPressure
	distribution := math.Max(1-t.Top10HolderPercent/100, 0) * e.w.Distribution

	total := activity + pressure + distribution
	if math.IsNaN(total) || total < 0 {
		return 0
	}
	if math.IsInf(total, 1) || total > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Floor(total + 0.5))
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(math.Max(v, lo), hi)
}
