package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"token-radar/internal/domain"
)

// Default PumpPortal settings.
const (
	PumpPortalName    = "pumpportal"
	PumpPortalURL     = "wss://pumpportal.fun/api/data"
	DefaultPumpWindow = 5 * time.Second

	pumpWriteTimeout     = 10 * time.Second
	pumpHandshakeTimeout = 10 * time.Second

	// Reading stops this long before the ctx deadline (at most a tenth of
	// the time left) so the batch is returned before the caller gives up.
	pumpDeadlineMargin = 250 * time.Millisecond
)

// PumpPortalOptions configures the PumpPortal stream adapter.
type PumpPortalOptions struct {
	URL string

	// Window is how long one Fetch collects events. Collection always ends
	// before the ctx deadline.
	Window time.Duration

	// SolPriceUSD converts bonding-curve SOL into USD liquidity.
	SolPriceUSD float64

	Logger *zap.Logger
	OnSkip SkipFunc
}

// PumpPortal collects new-token events from the PumpPortal WebSocket stream.
// Each Fetch opens its own connection, so no state survives between cycles.
type PumpPortal struct {
	url      string
	window   time.Duration
	solPrice decimal.Decimal
	dialer   websocket.Dialer
	logger   *zap.Logger
	onSkip   SkipFunc
}

// NewPumpPortal creates the adapter.
func NewPumpPortal(opts PumpPortalOptions) *PumpPortal {
	if opts.URL == "" {
		opts.URL = PumpPortalURL
	}
	if opts.Window <= 0 {
		opts.Window = DefaultPumpWindow
	}
	return &PumpPortal{
		url:      opts.URL,
		window:   opts.Window,
		solPrice: decimal.NewFromFloat(opts.SolPriceUSD),
		dialer:   websocket.Dialer{HandshakeTimeout: pumpHandshakeTimeout},
		logger:   nopIfNil(opts.Logger).Named(PumpPortalName),
		onSkip:   opts.OnSkip,
	}
}

// Name implements SourceAdapter.
func (p *PumpPortal) Name() string { return PumpPortalName }

type pumpSubscribe struct {
	Method string `json:"method"`
}

type pumpEvent struct {
	TxType             string  `json:"txType"`
	Mint               string  `json:"mint"`
	Name               string  `json:"name"`
	Symbol             string  `json:"symbol"`
	VSolInBondingCurve float64 `json:"vSolInBondingCurve"`
	MarketCapSol       float64 `json:"marketCapSol"`
	Message            string  `json:"message"`
}

// readDeadline ends the window early enough to return within ctx's deadline.
func (p *PumpPortal) readDeadline(ctx context.Context) time.Time {
	now := time.Now()
	deadline := now.Add(p.window)

	d, ok := ctx.Deadline()
	if !ok {
		return deadline
	}
	margin := d.Sub(now) / 10
	if margin > pumpDeadlineMargin {
		margin = pumpDeadlineMargin
	}
	if capped := d.Add(-margin); capped.Before(deadline) {
		return capped
	}
	return deadline
}

// Fetch implements SourceAdapter.
func (p *PumpPortal) Fetch(ctx context.Context) ([]domain.CandidateToken, error) {
	conn, _, err := p.dialer.DialContext(ctx, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("pumpportal: websocket dial: %w", err)
	}
	defer conn.Close()

	// Unblock reads if ctx is cancelled before the window ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	conn.SetWriteDeadline(time.Now().Add(pumpWriteTimeout))
	if err := conn.WriteJSON(pumpSubscribe{Method: "subscribeNewToken"}); err != nil {
		return nil, fmt.Errorf("pumpportal: write subscribe: %w", err)
	}

	conn.SetReadDeadline(p.readDeadline(ctx))

	skips := newSkipCounter(PumpPortalName, p.onSkip)
	var out []domain.CandidateToken

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil, fmt.Errorf("pumpportal: %w", ctx.Err())
			}
			var netErr net.Error
			if (errors.As(err, &netErr) && netErr.Timeout()) || ctx.Err() != nil {
				break // window elapsed
			}
			if len(out) > 0 {
				p.logger.Warn("stream closed early", zap.Error(err), zap.Int("collected", len(out)))
				break
			}
			return nil, fmt.Errorf("pumpportal: read: %w", err)
		}

		var ev pumpEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			skips.skip(SkipDecode)
			continue
		}
		if ev.TxType != "create" {
			continue // subscription ack or other event
		}

		c := domain.CandidateToken{
			Address:      ev.Mint,
			Name:         ev.Name,
			Symbol:       ev.Symbol,
			Chain:        domain.ChainSolana,
			Source:       PumpPortalName,
			LiquidityUSD: decimal.NewFromFloat(ev.VSolInBondingCurve).Mul(p.solPrice).InexactFloat64(),
			MarketCapUSD: decimal.NewFromFloat(ev.MarketCapSol).Mul(p.solPrice).InexactFloat64(),
		}
		if reason := CheckCandidate(c); reason != "" {
			skips.skip(reason)
			continue
		}
		out = append(out, c)
	}

	skips.log(p.logger, len(out))
	return out, nil
}
