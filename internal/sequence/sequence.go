// Package sequence issues human-readable reference numbers backed by atomic counters.
package sequence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/field-service/internal/domain"
)

const keyPrefix = "seq:"

// Counter returns the next value of a named monotonic sequence.
type Counter interface {
	Next(ctx context.Context, key string) (int64, error)
}

// RedisCounter keeps sequences in Redis using INCR.
type RedisCounter struct {
	client redis.UniversalClient
}

// NewRedisCounter builds a Redis-backed counter.
func NewRedisCounter(client redis.UniversalClient) *RedisCounter {
	return &RedisCounter{client: client}
}

// Next increments and returns the sequence value.
func (c *RedisCounter) Next(ctx context.Context, key string) (int64, error) {
	val, err := c.client.Incr(ctx, keyPrefix+key).Result()
	if err != nil {
		return 0, fmt.Errorf("incr sequence %s: %w", key, err)
	}
	return val, nil
}

// PostgresCounter keeps sequences in the reference_sequences table.
type PostgresCounter struct {
	pool *pgxpool.Pool
}

// NewPostgresCounter builds a table-backed counter.
func NewPostgresCounter(pool *pgxpool.Pool) *PostgresCounter {
	return &PostgresCounter{pool: pool}
}

// Next increments and returns the sequence value in one statement.
func (c *PostgresCounter) Next(ctx context.Context, key string) (int64, error) {
	const query = `
		INSERT INTO reference_sequences (key, value) VALUES ($1, 1)
		ON CONFLICT (key) DO UPDATE SET value = reference_sequences.value + 1
		RETURNING value`
	var val int64
	if err := c.pool.QueryRow(ctx, query, keyPrefix+key).Scan(&val); err != nil {
		return 0, fmt.Errorf("next sequence %s: %w", key, err)
	}
	return val, nil
}

// MemoryCounter is a process-local counter for tests and database-less runs.
type MemoryCounter struct {
	mu     sync.Mutex
	values map[string]int64
}

// NewMemoryCounter builds an empty in-memory counter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{values: make(map[string]int64)}
}

// Next increments and returns the sequence value.
func (c *MemoryCounter) Next(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key]++
	return c.values[key], nil
}

// Generator formats references for calls, technicians and claims.
type Generator struct {
	counter Counter
	now     func() time.Time
}

// NewGenerator wires a generator. A nil clock defaults to time.Now.
func NewGenerator(counter Counter, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{counter: counter, now: now}
}

// CallReference returns PREFIX-YYYYMM-NNNNN, numbered per prefix and month.
func (g *Generator) CallReference(ctx context.Context, callType domain.CallType) (string, error) {
	return g.monthly(ctx, callType.ReferencePrefix())
}

// ClaimReference returns CLM-YYYYMM-NNNNN.
func (g *Generator) ClaimReference(ctx context.Context) (string, error) {
	return g.monthly(ctx, "CLM")
}

// TechnicianCode returns TECH-NNNNN.
func (g *Generator) TechnicianCode(ctx context.Context) (string, error) {
	n, err := g.counter.Next(ctx, "technician")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("TECH-%05d", n), nil
}

func (g *Generator) monthly(ctx context.Context, prefix string) (string, error) {
	period := g.now().Format("200601")
	base := prefix + "-" + period
	n, err := g.counter.Next(ctx, base)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%05d", base, n), nil
}
