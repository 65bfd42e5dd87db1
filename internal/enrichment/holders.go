package enrichment

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"token-radar/internal/solana"
)

const topHolderCount = 10

var hundred = decimal.NewFromInt(100)

// topHolderPercent returns the share of supply held by the ten largest
// accounts, in percent, clamped to [0, 100]. Amounts are raw integer strings.
func topHolderPercent(balances []solana.TokenAccountBalance, supply uint64) (float64, error) {
	if supply == 0 {
		return 0, ErrZeroSupply
	}

	sum := decimal.Zero
	for i, b := range balances {
		if i == topHolderCount {
			break
		}
		amt, err := decimal.NewFromString(b.Amount)
		if err != nil {
			return 0, fmt.Errorf("parse amount %q: %w", b.Amount, err)
		}
		if amt.IsNegative() {
			return 0, fmt.Errorf("negative amount %q", b.Amount)
		}
		sum = sum.Add(amt)
	}

	pct := sum.Div(decimal.NewFromBigInt(new(big.Int).SetUint64(supply), 0)).Mul(hundred)
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	return pct.InexactFloat64(), nil
}
