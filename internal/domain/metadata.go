package domain

// OnChainAttributes are the risk attributes returned by enrichment for one address.
// They are produced fresh per lookup and only ever stored as part of an AnalyzedToken.
type OnChainAttributes struct {
	HasMintAuthority     bool    // mint authority still set
	IsOwnershipRenounced bool    // update/owner authority given up
	Top10HolderPercent   float64 // share of supply held by the 10 largest accounts, 0-100
}

// UnsafeAttributes returns the conservative default used when a lookup fails.
// Every field is set to the value that makes the safety gate reject the token.
func UnsafeAttributes() OnChainAttributes {
	return OnChainAttributes{
		HasMintAuthority:     true,
		IsOwnershipRenounced: false,
		Top10HolderPercent:   99,
	}
}

// Activity holds trading-activity figures for an address over a recent window.
type Activity struct {
	TradesPerMinute  float64 // trades per minute, >= 0
	BuyerSellerRatio float64 // buys / sells; equals buys when sells == 0
}
