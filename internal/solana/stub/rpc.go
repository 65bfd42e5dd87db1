package stub

import (
	"context"
	"errors"
	"sync"

	"token-radar/internal/solana"
)

// ErrUnavailable is returned for addresses registered with Fail.
var ErrUnavailable = errors.New("rpc unavailable")

// RPCClient implements solana.RPCClient for testing.
type RPCClient struct {
	mu       sync.Mutex
	Accounts map[string]*solana.AccountInfo
	Largest  map[string][]solana.TokenAccountBalance
	Failing  map[string]bool
	calls    map[string]int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Accounts: make(map[string]*solana.AccountInfo),
		Largest:  make(map[string][]solana.TokenAccountBalance),
		Failing:  make(map[string]bool),
		calls:    make(map[string]int),
	}
}

// GetAccountInfo returns the registered account, or nil if none.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["getAccountInfo"]++

	if c.Failing[pubkey] {
		return nil, ErrUnavailable
	}
	info, ok := c.Accounts[pubkey]
	if !ok {
		return nil, nil
	}
	infoCopy := *info
	return &infoCopy, nil
}

// GetTokenLargestAccounts returns the registered balances for mint.
func (c *RPCClient) GetTokenLargestAccounts(_ context.Context, mint string) ([]solana.TokenAccountBalance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["getTokenLargestAccounts"]++

	if c.Failing[mint] {
		return nil, ErrUnavailable
	}
	return append([]solana.TokenAccountBalance(nil), c.Largest[mint]...), nil
}

// AddAccount registers account data (base64) for pubkey.
func (c *RPCClient) AddAccount(pubkey, owner, data string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Accounts[pubkey] = &solana.AccountInfo{Owner: owner, Data: data}
}

// AddLargest registers the largest token accounts for mint.
func (c *RPCClient) AddLargest(mint string, balances []solana.TokenAccountBalance) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Largest[mint] = balances
}

// Fail makes every call for address return ErrUnavailable.
func (c *RPCClient) Fail(address string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Failing[address] = true
}

// Calls returns how many times method was invoked.
func (c *RPCClient) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}
