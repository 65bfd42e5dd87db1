package ingestion

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// parseUSD parses a provider decimal string. Empty or null means 0.
func parseUSD(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	return d.InexactFloat64(), nil
}
