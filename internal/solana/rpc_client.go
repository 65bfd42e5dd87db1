package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// DefaultTimeout bounds one JSON-RPC round trip.
const DefaultTimeout = 10 * time.Second

// Read commitment used for every enrichment call.
const commitment = "confirmed"

// ObserveFunc receives the method, latency and outcome of every RPC call.
type ObserveFunc func(method string, elapsed time.Duration, err error)

// HTTPClient implements RPCClient over HTTP JSON-RPC 2.0.
// Every call is one request. Failures go straight back to the enricher,
// whose circuit breaker decides when to stop calling the node.
type HTTPClient struct {
	endpoint string
	http     *http.Client
	lastID   atomic.Uint64
	observe  ObserveFunc
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithObserver registers a callback invoked after each call.
func WithObserver(fn ObserveFunc) ClientOption {
	return func(c *HTTPClient) {
		c.observe = fn
	}
}

// NewHTTPClient creates a client for the node at endpoint.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint: endpoint,
		http:     &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RPCError is a JSON-RPC error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// StatusError is returned when the node answers with a non-200 HTTP status,
// including 429 rate limiting.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http status %d", e.StatusCode)
	}
	return fmt.Sprintf("http status %d: %s", e.StatusCode, e.Body)
}

type request struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// call posts one request and decodes its result into out.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		if c.observe != nil {
			c.observe(method, time.Since(start), err)
		}
	}()

	body, err := json.Marshal(request{
		JSONRPC: "2.0",
		ID:      c.lastID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("%s: encode: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("%s: %w", method, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		})
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	if r.Error != nil {
		return fmt.Errorf("%s: %w", method, r.Error)
	}
	if out == nil || len(r.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Result, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}

type accountInfoResult struct {
	Value *struct {
		Lamports   uint64   `json:"lamports"`
		Owner      string   `json:"owner"`
		Data       []string `json:"data"` // [payload, encoding]
		Executable bool     `json:"executable"`
		RentEpoch  uint64   `json:"rentEpoch"`
	} `json:"value"`
}

// GetAccountInfo implements RPCClient. Account data is requested base64-encoded.
func (c *HTTPClient) GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error) {
	params := []interface{}{pubkey, map[string]string{
		"encoding":   "base64",
		"commitment": commitment,
	}}

	var res accountInfoResult
	if err := c.call(ctx, "getAccountInfo", params, &res); err != nil {
		return nil, err
	}
	v := res.Value
	if v == nil {
		return nil, nil
	}

	info := &AccountInfo{
		Lamports:   v.Lamports,
		Owner:      v.Owner,
		Executable: v.Executable,
		RentEpoch:  v.RentEpoch,
	}
	if len(v.Data) > 0 {
		info.Data = v.Data[0]
	}
	return info, nil
}

type largestAccountsResult struct {
	Value []struct {
		Address  string `json:"address"`
		Amount   string `json:"amount"`
		Decimals uint8  `json:"decimals"`
	} `json:"value"`
}

// GetTokenLargestAccounts implements RPCClient.
func (c *HTTPClient) GetTokenLargestAccounts(ctx context.Context, mint string) ([]TokenAccountBalance, error) {
	params := []interface{}{mint, map[string]string{"commitment": commitment}}

	var res largestAccountsResult
	if err := c.call(ctx, "getTokenLargestAccounts", params, &res); err != nil {
		return nil, err
	}

	out := make([]TokenAccountBalance, 0, len(res.Value))
	for _, v := range res.Value {
		out = append(out, TokenAccountBalance{Address: v.Address, Amount: v.Amount, Decimals: v.Decimals})
	}
	return out, nil
}
