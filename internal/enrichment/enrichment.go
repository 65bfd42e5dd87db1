// Package enrichment looks up on-chain risk attributes for token addresses.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mr-tron/base58"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"token-radar/internal/domain"
	"token-radar/internal/solana"
)

var (
	// ErrInvalidAddress is returned for addresses that are not 32-byte base58 keys.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrMintNotFound is returned when the mint account does not exist.
	ErrMintNotFound = errors.New("mint not found")

	// ErrMalformedMint is returned when the account is not a decodable SPL mint.
	ErrMalformedMint = errors.New("malformed mint")

	// ErrZeroSupply is returned when holder concentration cannot be computed.
	ErrZeroSupply = errors.New("zero supply")
)

// Default configuration values.
const (
	DefaultTimeout         = 10 * time.Second
	DefaultBreakerFailures = 5
	DefaultBreakerCooldown = 30 * time.Second
)

// Enricher resolves on-chain attributes for one address.
// Enrich never fails: on any error it returns the fail-unsafe default with
// Fallback set and Err describing the cause.
type Enricher interface {
	Enrich(ctx context.Context, address string) Result
}

// Result is the outcome of a single lookup.
type Result struct {
	Attributes domain.OnChainAttributes
	Fallback   bool
	Err        error
}

func fallback(err error) Result {
	return Result{Attributes: domain.UnsafeAttributes(), Fallback: true, Err: err}
}

// Options configures RPCEnricher.
type Options struct {
	RPC solana.RPCClient

	// Timeout bounds one full lookup (all RPC calls for an address).
	Timeout time.Duration

	// BreakerFailures is the number of consecutive RPC failures that opens the breaker.
	BreakerFailures uint32
	// BreakerCooldown is how long the breaker stays open before probing again.
	BreakerCooldown time.Duration

	Logger *zap.Logger
}

// RPCEnricher reads mint, metadata and holder accounts over Solana JSON-RPC.
type RPCEnricher struct {
	rpc     solana.RPCClient
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewRPCEnricher creates an enricher. RPC is required.
func NewRPCEnricher(opts Options) (*RPCEnricher, error) {
	if opts.RPC == nil {
		return nil, errors.New("enrichment: RPC client is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = DefaultBreakerFailures
	}
	if opts.BreakerCooldown <= 0 {
		opts.BreakerCooldown = DefaultBreakerCooldown
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("enrichment")

	failures := opts.BreakerFailures
	st := gobreaker.Settings{
		Name:    "solana-rpc",
		Timeout: opts.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// Bad token data is not an RPC outage.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrMintNotFound) ||
				errors.Is(err, ErrMalformedMint) ||
				errors.Is(err, ErrZeroSupply) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &RPCEnricher{
		rpc:     opts.RPC,
		timeout: opts.Timeout,
		cb:      gobreaker.NewCircuitBreaker(st),
		logger:  logger,
	}, nil
}

// Enrich implements Enricher.
func (e *RPCEnricher) Enrich(ctx context.Context, address string) Result {
	attrs, err := e.lookup(ctx, address)
	if err != nil {
		e.logger.Warn("lookup failed, using fail-unsafe attributes",
			zap.String("address", address),
			zap.Error(err))
		return fallback(err)
	}
	return Result{Attributes: attrs}
}

func (e *RPCEnricher) lookup(ctx context.Context, address string) (domain.OnChainAttributes, error) {
	if key, err := base58.Decode(address); err != nil || len(key) != 32 {
		return domain.OnChainAttributes{}, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	v, err := e.cb.Execute(func() (interface{}, error) {
		return e.fetch(ctx, address)
	})
	if err != nil {
		return domain.OnChainAttributes{}, err
	}
	return v.(domain.OnChainAttributes), nil
}

func (e *RPCEnricher) fetch(ctx context.Context, address string) (domain.OnChainAttributes, error) {
	// 1. Mint account: authorities and supply
	info, err := e.rpc.GetAccountInfo(ctx, address)
	if err != nil {
		return domain.OnChainAttributes{}, fmt.Errorf("get mint account: %w", err)
	}
	if info == nil {
		return domain.OnChainAttributes{}, ErrMintNotFound
	}
	if info.Owner != solana.TokenProgramID && info.Owner != solana.Token2022ID {
		return domain.OnChainAttributes{}, fmt.Errorf("%w: owner %s is not a token program", ErrMalformedMint, info.Owner)
	}
	mint, err := parseMint(info.Data)
	if err != nil {
		return domain.OnChainAttributes{}, err
	}

	// 2. Metaplex metadata: update authority and mutability
	renounced, err := e.ownershipRenounced(ctx, address, mint)
	if err != nil {
		return domain.OnChainAttributes{}, err
	}

	// 3. Holder concentration
	largest, err := e.rpc.GetTokenLargestAccounts(ctx, address)
	if err != nil {
		return domain.OnChainAttributes{}, fmt.Errorf("get largest accounts: %w", err)
	}
	top10, err := topHolderPercent(largest, mint.Supply)
	if err != nil {
		return domain.OnChainAttributes{}, err
	}

	return domain.OnChainAttributes{
		HasMintAuthority:     mint.MintAuthority != "",
		IsOwnershipRenounced: renounced,
		Top10HolderPercent:   top10,
	}, nil
}

// ownershipRenounced checks the metadata account. Without metadata the token
// counts as renounced only if neither mint nor freeze authority is set.
func (e *RPCEnricher) ownershipRenounced(ctx context.Context, address string, mint *mintAccount) (bool, error) {
	pda, err := deriveMetadataPDA(address)
	if err != nil {
		return false, fmt.Errorf("derive metadata address: %w", err)
	}

	info, err := e.rpc.GetAccountInfo(ctx, pda)
	if err != nil {
		return false, fmt.Errorf("get metadata account: %w", err)
	}
	if info == nil {
		return mint.MintAuthority == "" && mint.FreezeAuthority == "", nil
	}

	meta, err := parseMetadata(info.Data)
	if err != nil {
		return false, fmt.Errorf("%w: metadata: %v", ErrMalformedMint, err)
	}
	return meta.renounced(), nil
}
