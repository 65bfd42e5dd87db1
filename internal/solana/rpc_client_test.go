package solana

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wireRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      uint64            `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

// node serves JSON-RPC requests. answer returns either a result or an error object.
func node(t *testing.T, answer func(req wireRequest) (result interface{}, rpcErr *RPCError)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req wireRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "2.0", req.JSONRPC)

		result, rpcErr := answer(req)
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func paramConfig(t *testing.T, req wireRequest) map[string]string {
	t.Helper()
	require.Len(t, req.Params, 2)
	var cfg map[string]string
	require.NoError(t, json.Unmarshal(req.Params[1], &cfg))
	return cfg
}

func TestGetAccountInfo_MintAccount(t *testing.T) {
	const mint = "So11111111111111111111111111111111111111112"
	srv := node(t, func(req wireRequest) (interface{}, *RPCError) {
		assert.Equal(t, "getAccountInfo", req.Method)
		assert.JSONEq(t, `"`+mint+`"`, string(req.Params[0]))
		assert.Equal(t, map[string]string{"encoding": "base64", "commitment": "confirmed"}, paramConfig(t, req))

		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 300},
			"value": map[string]interface{}{
				"lamports":   1461600,
				"owner":      TokenProgramID,
				"data":       []string{"AQID", "base64"},
				"executable": false,
				"rentEpoch":  361,
			},
		}, nil
	})

	info, err := NewHTTPClient(srv.URL).GetAccountInfo(context.Background(), mint)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, &AccountInfo{
		Lamports:  1461600,
		Owner:     TokenProgramID,
		Data:      "AQID",
		RentEpoch: 361,
	}, info)
}

func TestGetAccountInfo_MissingAccount(t *testing.T) {
	srv := node(t, func(wireRequest) (interface{}, *RPCError) {
		return map[string]interface{}{"value": nil}, nil
	})

	info, err := NewHTTPClient(srv.URL).GetAccountInfo(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestGetTokenLargestAccounts(t *testing.T) {
	srv := node(t, func(req wireRequest) (interface{}, *RPCError) {
		assert.Equal(t, "getTokenLargestAccounts", req.Method)
		assert.Equal(t, map[string]string{"commitment": "confirmed"}, paramConfig(t, req))

		return map[string]interface{}{
			"value": []map[string]interface{}{
				{"address": "holder1", "amount": "700000", "decimals": 6, "uiAmount": 0.7},
				{"address": "holder2", "amount": "300000", "decimals": 6, "uiAmount": 0.3},
			},
		}, nil
	})

	got, err := NewHTTPClient(srv.URL).GetTokenLargestAccounts(context.Background(), "mint1")
	require.NoError(t, err)
	assert.Equal(t, []TokenAccountBalance{
		{Address: "holder1", Amount: "700000", Decimals: 6},
		{Address: "holder2", Amount: "300000", Decimals: 6},
	}, got)
}

func TestGetTokenLargestAccounts_NodeError(t *testing.T) {
	srv := node(t, func(wireRequest) (interface{}, *RPCError) {
		return nil, &RPCError{Code: -32602, Message: "Invalid param: not a Token mint"}
	})

	_, err := NewHTTPClient(srv.URL).GetTokenLargestAccounts(context.Background(), "notamint")
	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr), "got %v", err)
	assert.Equal(t, -32602, rpcErr.Code)
	assert.Contains(t, err.Error(), "getTokenLargestAccounts")
}

func TestCall_SingleAttemptOnHTTPError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL).GetAccountInfo(context.Background(), "mint1")

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr), "got %v", err)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Equal(t, "slow down", statusErr.Body)
	assert.Equal(t, int32(1), hits.Load())
}

func TestCall_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	start := time.Now()
	_, err := NewHTTPClient(srv.URL, WithTimeout(50*time.Millisecond)).GetAccountInfo(context.Background(), "mint1")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestCall_CancelledContext(t *testing.T) {
	srv := node(t, func(wireRequest) (interface{}, *RPCError) {
		return map[string]interface{}{"value": nil}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTPClient(srv.URL).GetAccountInfo(ctx, "mint1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestObserver(t *testing.T) {
	srv := node(t, func(req wireRequest) (interface{}, *RPCError) {
		if req.Method == "getTokenLargestAccounts" {
			return nil, &RPCError{Code: -32000, Message: "node is behind"}
		}
		return map[string]interface{}{"value": nil}, nil
	})

	type observation struct {
		method string
		failed bool
	}
	var seen []observation
	c := NewHTTPClient(srv.URL, WithObserver(func(method string, elapsed time.Duration, err error) {
		assert.GreaterOrEqual(t, elapsed, time.Duration(0))
		seen = append(seen, observation{method: method, failed: err != nil})
	}))

	_, err := c.GetAccountInfo(context.Background(), "mint1")
	require.NoError(t, err)
	_, err = c.GetTokenLargestAccounts(context.Background(), "mint1")
	require.Error(t, err)

	assert.Equal(t, []observation{
		{method: "getAccountInfo", failed: false},
		{method: "getTokenLargestAccounts", failed: true},
	}, seen)
}

func TestRequestIDsIncrease(t *testing.T) {
	var ids []uint64
	srv := node(t, func(req wireRequest) (interface{}, *RPCError) {
		ids = append(ids, req.ID)
		return map[string]interface{}{"value": nil}, nil
	})

	c := NewHTTPClient(srv.URL)
	for i := 0; i < 3; i++ {
		_, err := c.GetAccountInfo(context.Background(), "mint1")
		require.NoError(t, err)
	}
	assert.Equal(t, []uint64{1, 2, 3}, ids)
}
