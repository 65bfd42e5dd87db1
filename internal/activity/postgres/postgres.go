// Package postgres reads swap counts from an upstream indexer's PostgreSQL database.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"token-radar/internal/activity"
	"token-radar/internal/domain"
)

// Pool wraps pgxpool.Pool for dependency injection.
type Pool struct {
	*pgxpool.Pool
}

// NewPool creates a new Postgres connection pool.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

// Reader implements activity.Source over the indexer's swaps table.
type Reader struct {
	pool   *Pool
	window time.Duration
	now    func() time.Time
}

// NewReader creates a Reader counting swaps over window.
func NewReader(pool *Pool, window time.Duration) *Reader {
	if window <= 0 {
		window = activity.DefaultWindow
	}
	return &Reader{pool: pool, window: window, now: time.Now}
}

// Compile-time interface check.
var _ activity.Source = (*Reader)(nil)

const countSwapsQuery = `
	SELECT side, count(*)
	FROM swaps
	WHERE mint = $1 AND timestamp >= $2
	GROUP BY side
`

// Activity counts buys and sells for address in the last window.
// Timestamps are Unix milliseconds.
func (r *Reader) Activity(ctx context.Context, address string) (domain.Activity, error) {
	since := r.now().Add(-r.window).UnixMilli()

	rows, err := r.pool.Query(ctx, countSwapsQuery, address, since)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("query swaps: %w", err)
	}
	defer rows.Close()

	var buys, sells int64
	for rows.Next() {
		var (
			side  string
			count int64
		)
		if err := rows.Scan(&side, &count); err != nil {
			return domain.Activity{}, fmt.Errorf("scan swap count: %w", err)
		}
		switch side {
		case activity.SideBuy:
			buys = count
		case activity.SideSell:
			sells = count
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Activity{}, fmt.Errorf("iterate swap counts: %w", err)
	}

	return activity.FromCounts(buys, sells, r.window), nil
}
