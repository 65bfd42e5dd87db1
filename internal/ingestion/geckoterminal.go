package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"token-radar/internal/domain"
)

// Default GeckoTerminal settings.
const (
	GeckoTerminalName    = "geckoterminal"
	GeckoTerminalBaseURL = "https://api.geckoterminal.com"
)

// GeckoTerminal polls the GeckoTerminal new-pools endpoint for one network.
type GeckoTerminal struct {
	*httpSource
	network string
}

// NewGeckoTerminal creates the adapter for network (default "solana").
func NewGeckoTerminal(opts HTTPOptions, network string) *GeckoTerminal {
	if opts.BaseURL == "" {
		opts.BaseURL = GeckoTerminalBaseURL
	}
	if network == "" {
		network = domain.ChainSolana
	}
	return &GeckoTerminal{
		httpSource: newHTTPSource(GeckoTerminalName, opts),
		network:    network,
	}
}

// Name implements SourceAdapter.
func (g *GeckoTerminal) Name() string { return GeckoTerminalName }

type geckoPoolsResponse struct {
	Data     []json.RawMessage `json:"data"`
	Included []geckoResource   `json:"included"`
}

type geckoResource struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Attributes struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
	} `json:"attributes"`
}

type geckoPool struct {
	ID         string `json:"id"`
	Attributes struct {
		Address           string  `json:"address"`
		Name              string  `json:"name"`
		BaseTokenPriceUSD *string `json:"base_token_price_usd"`
		ReserveInUSD      *string `json:"reserve_in_usd"`
		FDVUSD            *string `json:"fdv_usd"`
		MarketCapUSD      *string `json:"market_cap_usd"`
	} `json:"attributes"`
	Relationships struct {
		BaseToken struct {
			Data struct {
				ID string `json:"id"`
			} `json:"data"`
		} `json:"base_token"`
	} `json:"relationships"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Fetch implements SourceAdapter. Pools are returned oldest first.
func (g *GeckoTerminal) Fetch(ctx context.Context) ([]domain.CandidateToken, error) {
	endpoint := fmt.Sprintf("%s/api/v2/networks/%s/new_pools?include=base_token",
		g.baseURL, url.PathEscape(g.network))

	var resp geckoPoolsResponse
	if err := g.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("geckoterminal: %w", err)
	}

	tokens := make(map[string]geckoResource, len(resp.Included))
	for _, inc := range resp.Included {
		if inc.Type == "token" {
			tokens[inc.ID] = inc
		}
	}

	skips := newSkipCounter(GeckoTerminalName, g.onSkip)
	out := make([]domain.CandidateToken, 0, len(resp.Data))

	for i := len(resp.Data) - 1; i >= 0; i-- {
		var p geckoPool
		if err := json.Unmarshal(resp.Data[i], &p); err != nil {
			g.logger.Debug("skipping undecodable pool", zap.Error(err))
			skips.skip(SkipDecode)
			continue
		}

		c, err := g.toCandidate(p, tokens)
		if err != nil {
			g.logger.Debug("skipping pool", zap.String("pool", p.Attributes.Address), zap.Error(err))
			skips.skip(SkipDecode)
			continue
		}
		if reason := CheckCandidate(c); reason != "" {
			skips.skip(reason)
			continue
		}
		out = append(out, c)
	}

	skips.log(g.logger, len(out))
	return out, nil
}

func (g *GeckoTerminal) toCandidate(p geckoPool, tokens map[string]geckoResource) (domain.CandidateToken, error) {
	relID := p.Relationships.BaseToken.Data.ID
	c := domain.CandidateToken{
		Chain:  g.network,
		Source: GeckoTerminalName,
	}

	if tok, ok := tokens[relID]; ok {
		c.Address = tok.Attributes.Address
		c.Name = tok.Attributes.Name
		c.Symbol = tok.Attributes.Symbol
	} else {
		// Relationship ids are "<network>_<address>".
		c.Address = strings.TrimPrefix(relID, g.network+"_")
		if c.Address == relID {
			c.Address = ""
		}
	}

	var err error
	if c.LiquidityUSD, err = parseUSD(deref(p.Attributes.ReserveInUSD)); err != nil {
		return c, err
	}
	if c.PriceUSD, err = parseUSD(deref(p.Attributes.BaseTokenPriceUSD)); err != nil {
		return c, err
	}
	if c.MarketCapUSD, err = parseUSD(deref(p.Attributes.MarketCapUSD)); err != nil {
		return c, err
	}
	if c.MarketCapUSD == 0 {
		if c.MarketCapUSD, err = parseUSD(deref(p.Attributes.FDVUSD)); err != nil {
			return c, err
		}
	}
	return c, nil
}
