package ingestion

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"token-radar/internal/domain"
)

// DexScreener polls the DexScreener new-pairs endpoint.
type DexScreener struct {
	*httpSource
	chains map[string]bool
}

// Default DexScreener settings.
const (
	DexScreenerName    = "dexscreener"
	DexScreenerBaseURL = "https://api.dexscreener.com"
	dexNewPairsPath    = "/api/v1/pairs/new"
)

// NewDexScreener creates the adapter. Pairs on chains outside chains are
// skipped; an empty list accepts Solana only.
func NewDexScreener(opts HTTPOptions, chains []string) *DexScreener {
	if opts.BaseURL == "" {
		opts.BaseURL = DexScreenerBaseURL
	}
	if len(chains) == 0 {
		chains = []string{domain.ChainSolana}
	}
	allowed := make(map[string]bool, len(chains))
	for _, c := range chains {
		allowed[c] = true
	}
	return &DexScreener{
		httpSource: newHTTPSource(DexScreenerName, opts),
		chains:     allowed,
	}
}

// Name implements SourceAdapter.
func (d *DexScreener) Name() string { return DexScreenerName }

type dexPairsResponse struct {
	SchemaVersion string            `json:"schemaVersion"`
	Pairs         []json.RawMessage `json:"pairs"`
}

type dexPair struct {
	ChainID     string `json:"chainId"`
	DexID       string `json:"dexId"`
	PairAddress string `json:"pairAddress"`
	BaseToken   struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	PriceUSD  string `json:"priceUsd"`
	Liquidity *struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	FDV       float64 `json:"fdv"`
	MarketCap float64 `json:"marketCap"`
}

// Fetch implements SourceAdapter. The provider lists newest first; candidates
// are returned oldest first.
func (d *DexScreener) Fetch(ctx context.Context) ([]domain.CandidateToken, error) {
	var resp dexPairsResponse
	if err := d.getJSON(ctx, d.baseURL+dexNewPairsPath, &resp); err != nil {
		return nil, fmt.Errorf("dexscreener: %w", err)
	}

	skips := newSkipCounter(DexScreenerName, d.onSkip)
	out := make([]domain.CandidateToken, 0, len(resp.Pairs))

	for i := len(resp.Pairs) - 1; i >= 0; i-- {
		var p dexPair
		if err := json.Unmarshal(resp.Pairs[i], &p); err != nil {
			d.logger.Debug("skipping undecodable pair", zap.Error(err))
			skips.skip(SkipDecode)
			continue
		}
		if !d.chains[p.ChainID] {
			skips.skip(SkipWrongChain)
			continue
		}

		price, err := parseUSD(p.PriceUSD)
		if err != nil {
			skips.skip(SkipDecode)
			continue
		}

		c := domain.CandidateToken{
			Address:      p.BaseToken.Address,
			Name:         p.BaseToken.Name,
			Symbol:       p.BaseToken.Symbol,
			Chain:        p.ChainID,
			Source:       DexScreenerName,
			PriceUSD:     price,
			MarketCapUSD: p.MarketCap,
		}
		if c.MarketCapUSD == 0 {
			c.MarketCapUSD = p.FDV
		}
		if p.Liquidity != nil {
			c.LiquidityUSD = p.Liquidity.USD
		}

		if reason := CheckCandidate(c); reason != "" {
			skips.skip(reason)
			continue
		}
		out = append(out, c)
	}

	skips.log(d.logger, len(out))
	return out, nil
}
