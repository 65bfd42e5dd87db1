package solana

import "context"

// RPCClient defines the Solana JSON-RPC methods used for token enrichment.
type RPCClient interface {
	// GetAccountInfo retrieves account info by public key.
	// Returns nil, nil if the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetTokenLargestAccounts returns the largest token accounts of a mint, largest first.
	GetTokenLargestAccounts(ctx context.Context, mint string) ([]TokenAccountBalance, error)
}
