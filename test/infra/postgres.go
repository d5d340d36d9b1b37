package infra

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Harness owns the database used by a stress run: a container or a shared
// DSN, the migrated schema, and the pgx pool.
type Harness struct {
	container *PGContainer
	pool      *pgxpool.Pool
	dsn       string
	teardown  func(context.Context) error
}

// NewHarness connects to dsn, or boots a container when dsn is empty, and
// applies migrations. Shared databases get an isolated schema.
func NewHarness(ctx context.Context, dsn string) (*Harness, error) {
	container, resolved, err := StartPostgres16(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("start postgres: %w", err)
	}

	pool, teardown, err := ApplyMigrations(ctx, resolved, container.Shared())
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	return &Harness{
		container: container,
		pool:      pool,
		dsn:       resolved,
		teardown:  teardown,
	}, nil
}

// Pool exposes the configured pgx pool.
func (h *Harness) Pool() *pgxpool.Pool {
	return h.pool
}

// DSN returns the connection string for direct connections.
func (h *Harness) DSN() string {
	return h.dsn
}

// Close drops the isolated schema, if any, and tears down resources.
func (h *Harness) Close(ctx context.Context) error {
	if h.pool != nil {
		h.pool.Close()
	}
	var err error
	if h.teardown != nil {
		err = h.teardown(ctx)
	}
	if termErr := h.container.Terminate(ctx); err == nil {
		err = termErr
	}
	return err
}

// Reset empties deal_submissions and restarts its id sequence.
func (h *Harness) Reset(ctx context.Context) error {
	if _, err := h.pool.Exec(ctx, "TRUNCATE TABLE deal_submissions RESTART IDENTITY"); err != nil {
		return fmt.Errorf("truncate deal_submissions: %w", err)
	}
	return nil
}
