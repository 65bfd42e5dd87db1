package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"token-radar/internal/domain"
)

func TestEngine_Score(t *testing.T) {
	e := NewEngine(DefaultWeights())

	tests := []struct {
		name string
		tok  domain.AnalyzedToken
		want int
	}{
		{
			name: "reference token",
			tok:  domain.AnalyzedToken{TradesPerMinute: 150, BuyerSellerRatio: 1.5, Top10HolderPercent: 15},
			want: 80, // 35 + 15 + 29.75
		},
		{
			name: "no activity, fully concentrated",
			tok:  domain.AnalyzedToken{TradesPerMinute: 0, BuyerSellerRatio: 0, Top10HolderPercent: 100},
			want: 0,
		},
		{
			name: "activity saturates",
			tok:  domain.AnalyzedToken{TradesPerMinute: 10000, BuyerSellerRatio: 1, Top10HolderPercent: 100},
			want: 35,
		},
		{
			name: "half activity",
			tok:  domain.AnalyzedToken{TradesPerMinute: 75, BuyerSellerRatio: 0.5, Top10HolderPercent: 100},
			want: 18, // 17.5 rounds half up
		},
		{
			name: "fail-unsafe defaults",
			tok:  domain.AnalyzedToken{Top10HolderPercent: 99},
			want: 0, // 0.35
		},
		{
			name: "holder percent above 100 is clamped",
			tok:  domain.AnalyzedToken{Top10HolderPercent: 140},
			want: 0,
		},
		{
			name: "negative trades clamp to zero",
			tok:  domain.AnalyzedToken{TradesPerMinute: -20, Top10HolderPercent: 0},
			want: 35,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Score(tt.tok))
		})
	}
}

func TestEngine_Score_BoundedWhenRatioAtMostOne(t *testing.T) {
	e := NewEngine(DefaultWeights())

	for _, tpm := range []float64{0, 1, 75, 150, 1e6} {
		for _, bsr := range []float64{0, 0.3, 0.99, 1} {
			for _, top := range []float64{0, 10, 50, 100} {
				s := e.Score(domain.AnalyzedToken{TradesPerMinute: tpm, BuyerSellerRatio: bsr, Top10HolderPercent: top})
				assert.GreaterOrEqual(t, s, 0)
				assert.LessOrEqual(t, s, 100)
			}
		}
	}
}

// The buy-pressure term is uncapped: lopsided ratios can exceed 100.
// This mirrors upstream behaviour and is kept until a product decision caps it.
func TestEngine_Score_ExceedsHundredForExtremeBuyPressure(t *testing.T) {
	e := NewEngine(DefaultWeights())

	s := e.Score(domain.AnalyzedToken{TradesPerMinute: 150, BuyerSellerRatio: 5, Top10HolderPercent: 0})

	assert.Equal(t, 190, s) // 35 + 120 + 35
	assert.Greater(t, s, 100)
}

func TestEngine_Score_Degenerate(t *testing.T) {
	e := NewEngine(DefaultWeights())

	assert.Equal(t, 0, e.Score(domain.AnalyzedToken{Top10HolderPercent: math.NaN()}))
	assert.Equal(t, math.MaxInt32, e.Score(domain.AnalyzedToken{BuyerSellerRatio: math.Inf(1)}))
}

func TestNewEngine_DefaultsSaturation(t *testing.T) {
	w := DefaultWeights()
	w.TradesSaturation = 0
	e := NewEngine(w)

	assert.Equal(t, 35, e.Score(domain.AnalyzedToken{TradesPerMinute: 150, Top10HolderPercent: 100}))
}
