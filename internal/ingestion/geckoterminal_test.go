package ingestion

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeckoTerminal_Fetch(t *testing.T) {
	newer, older, orphan := solAddr(4), solAddr(5), solAddr(6)
	body := fmt.Sprintf(`{
		"data": [
			{"id":"solana_POOL1","type":"pool",
			 "attributes":{"address":"POOL1","name":"NEW / SOL","base_token_price_usd":"0.0001","reserve_in_usd":"45000.5","fdv_usd":"100000","market_cap_usd":null},
			 "relationships":{"base_token":{"data":{"id":"solana_%[1]s","type":"token"}}}},
			{"id":"solana_POOL2","type":"pool",
			 "attributes":{"address":"POOL2","reserve_in_usd":"oops"},
			 "relationships":{"base_token":{"data":{"id":"solana_%[2]s","type":"token"}}}},
			{"id":"solana_POOL3","type":"pool",
			 "attributes":{"address":"POOL3","reserve_in_usd":"10"},
			 "relationships":{"base_token":{"data":{"id":"solana_%[3]s","type":"token"}}}},
			{"id":"solana_POOL4","type":"pool",
			 "attributes":{"address":"POOL4","base_token_price_usd":"2","reserve_in_usd":"2500","market_cap_usd":"7000"},
			 "relationships":{"base_token":{"data":{"id":"solana_%[2]s","type":"token"}}}}
		],
		"included": [
			{"id":"solana_%[1]s","type":"token","attributes":{"address":"%[1]s","name":"Newer","symbol":"NWR"}},
			{"id":"solana_%[2]s","type":"token","attributes":{"address":"%[2]s","name":"Older","symbol":"OLD"}}
		]
	}`, newer, older, orphan)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/networks/solana/new_pools", r.URL.Path)
		assert.Equal(t, "base_token", r.URL.Query().Get("include"))
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	var skipped []string
	g := NewGeckoTerminal(HTTPOptions{
		BaseURL:           srv.URL,
		RequestsPerMinute: -1,
		OnSkip:            func(_, reason string) { skipped = append(skipped, reason) },
	}, "")

	got, err := g.Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, got, 3)

	assert.Equal(t, older, got[0].Address)
	assert.Equal(t, "Older", got[0].Name)
	assert.Equal(t, 2500.0, got[0].LiquidityUSD)
	assert.Equal(t, 7000.0, got[0].MarketCapUSD)
	assert.Equal(t, 2.0, got[0].PriceUSD)

	assert.Equal(t, orphan, got[1].Address, "address recovered from relationship id")
	assert.Empty(t, got[1].Name)

	assert.Equal(t, newer, got[2].Address)
	assert.Equal(t, "NWR", got[2].Symbol)
	assert.InDelta(t, 45000.5, got[2].LiquidityUSD, 1e-9)
	assert.Equal(t, 100000.0, got[2].MarketCapUSD, "fdv used when market cap is null")
	assert.Equal(t, GeckoTerminalName, got[2].Source)

	assert.Equal(t, []string{SkipDecode}, skipped)
}

func TestGeckoTerminal_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	g := NewGeckoTerminal(HTTPOptions{BaseURL: srv.URL, RequestsPerMinute: -1}, "solana")

	got, err := g.Fetch(context.Background())
	assert.Nil(t, got)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Code)
}
