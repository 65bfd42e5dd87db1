package domain

// Chain identifiers used by source adapters.
const (
	ChainSolana = "solana"
)

// CandidateToken is a newly observed listing as reported by one source adapter.
// It lives only until the aggregation step hands it to enrichment.
type CandidateToken struct {
	Address      string  // chain-native token address, primary key
	Name         string  // token name (may be empty)
	Symbol       string  // token symbol (may be empty)
	LiquidityUSD float64 // pool liquidity in USD, 0 when the provider omits it
	Chain        string  // chain id, e.g. "solana"
	Source       string  // name of the adapter that produced the record
	PriceUSD     float64 // last price in USD, 0 when unknown
	MarketCapUSD float64 // fully diluted valuation in USD, 0 when unknown
}
