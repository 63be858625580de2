package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
)

var rateLimitTracer = otel.Tracer("aesthetic-leads.internal.ratelimit")

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresCounter keeps counters in the rate_limit_counters table. The
// increment is a single upsert, so concurrent requests for the same key are
// serialized by the row lock.
type PostgresCounter struct {
	db rowQuerier
}

// NewPostgresCounter wires the counter to a pgx pool.
func NewPostgresCounter(pool *pgxpool.Pool) *PostgresCounter {
	if pool == nil {
		panic("ratelimit: pgx pool required")
	}
	return &PostgresCounter{db: pool}
}

func newPostgresCounterWithExec(db rowQuerier) *PostgresCounter {
	if db == nil {
		panic("ratelimit: exec required")
	}
	return &PostgresCounter{db: db}
}

// Increment implements Counter.
func (c *PostgresCounter) Increment(ctx context.Context, key Key) (int64, error) {
	ctx, span := rateLimitTracer.Start(ctx, "ratelimit.postgres.increment")
	defer span.End()

	query := `
		INSERT INTO rate_limit_counters (identifier, bucket_start, count)
		VALUES ($1, $2, 1)
		ON CONFLICT (identifier, bucket_start)
		DO UPDATE SET count = rate_limit_counters.count + 1, updated_at = now()
		RETURNING count
	`
	var count int64
	if err := c.db.QueryRow(ctx, query, key.Identifier, key.BucketStart).Scan(&count); err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("ratelimit: upsert counter: %w", err)
	}
	return count, nil
}

// Prune implements Pruner.
func (c *PostgresCounter) Prune(ctx context.Context, before time.Time) (int64, error) {
	ctx, span := rateLimitTracer.Start(ctx, "ratelimit.postgres.prune")
	defer span.End()

	ct, err := c.db.Exec(ctx, `DELETE FROM rate_limit_counters WHERE bucket_start < $1`, before)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("ratelimit: prune counters: %w", err)
	}
	return ct.RowsAffected(), nil
}

var (
	_ Counter = (*PostgresCounter)(nil)
	_ Pruner  = (*PostgresCounter)(nil)
)
