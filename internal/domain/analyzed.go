package domain

// SafetyStatus is the outcome of the safety gate.
type SafetyStatus string

const (
	SafetyPass SafetyStatus = "Pass"
	SafetyFail SafetyStatus = "Fail"
)

// String returns the string representation of SafetyStatus.
func (s SafetyStatus) String() string {
	return string(s)
}

// AnalyzedToken is the unit of record in the result cache.
// All fields are derived from a single snapshot: the gate and the scorer
// both read the same value.
type AnalyzedToken struct {
	ID      string `json:"id"` // same as Address, kept for API compatibility
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
	Chain   string `json:"chain,omitempty"`
	Source  string `json:"source,omitempty"`

	LiquidityUSD float64 `json:"liquidityUSD"`
	PriceUSD     float64 `json:"priceUSD,omitempty"`
	MarketCapUSD float64 `json:"marketCap,omitempty"`

	HasMintAuthority     bool    `json:"hasMintAuthority"`
	IsOwnershipRenounced bool    `json:"isOwnershipRenounced"`
	Top10HolderPercent   float64 `json:"top10HolderPercent"`

	TradesPerMinute  float64 `json:"tradesPerMinute"`
	BuyerSellerRatio float64 `json:"buyerSellerRatio"`

	SafetyStatus SafetyStatus `json:"safetyStatus"`
	Reasons      []string     `json:"reasons"`
	Score        int          `json:"score"`

	// EnrichmentFallback is set when on-chain attributes are the fail-unsafe default.
	EnrichmentFallback bool  `json:"enrichmentFallback"`
	AnalyzedAt         int64 `json:"analyzedAt"` // Unix ms
}

// NewSnapshot builds the attribute snapshot for a candidate. Safety and score
// fields are left empty for the caller to fill from this same value.
func NewSnapshot(c CandidateToken, attrs OnChainAttributes, act Activity) AnalyzedToken {
	return AnalyzedToken{
		ID:                   c.Address,
		Address:              c.Address,
		Name:                 c.Name,
		Symbol:               c.Symbol,
		Chain:                c.Chain,
		Source:               c.Source,
		LiquidityUSD:         c.LiquidityUSD,
		PriceUSD:             c.PriceUSD,
		MarketCapUSD:         c.MarketCapUSD,
		HasMintAuthority:     attrs.HasMintAuthority,
		IsOwnershipRenounced: attrs.IsOwnershipRenounced,
		Top10HolderPercent:   attrs.Top10HolderPercent,
		TradesPerMinute:      act.TradesPerMinute,
		BuyerSellerRatio:     act.BuyerSellerRatio,
		Reasons:              []string{},
	}
}

// Clone returns a deep copy so stored records cannot be mutated through aliases.
func (t AnalyzedToken) Clone() AnalyzedToken {
	out := t
	out.Reasons = make([]string, len(t.Reasons))
	copy(out.Reasons, t.Reasons)
	return out
}
