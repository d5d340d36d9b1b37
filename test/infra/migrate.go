package infra

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dealdesk/db"
)

// ApplicationName tags stress connections so chaos only kills our own backends.
const ApplicationName = "dealdesk-stress"

// ApplyMigrations runs the embedded migrations against dsn and returns a pool.
// When isolate is true, a per-run schema is created, selected through
// search_path, and dropped by the returned teardown func.
func ApplyMigrations(ctx context.Context, dsn string, isolate bool) (*pgxpool.Pool, func(context.Context) error, error) {
	cleanup := func(context.Context) error { return nil }
	runDSN := dsn

	if isolate {
		schema := fmt.Sprintf("stress_run_%d", time.Now().UnixNano())
		ident := pgx.Identifier{schema}.Sanitize()

		conn, err := pgx.Connect(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("connect for schema: %w", err)
		}
		if _, err := conn.Exec(ctx, "CREATE SCHEMA "+ident); err != nil {
			conn.Close(ctx)
			return nil, nil, fmt.Errorf("create schema %s: %w", schema, err)
		}
		conn.Close(ctx)

		runDSN, err = withParam(dsn, "search_path", schema)
		if err != nil {
			return nil, nil, err
		}

		cleanup = func(ctx context.Context) error {
			dropConn, err := pgx.Connect(ctx, dsn)
			if err != nil {
				return err
			}
			defer dropConn.Close(ctx)
			_, err = dropConn.Exec(ctx, "DROP SCHEMA IF EXISTS "+ident+" CASCADE")
			return err
		}
	}

	if err := db.RunMigrations(runDSN); err != nil {
		_ = cleanup(ctx)
		return nil, nil, fmt.Errorf("apply migrations: %w", err)
	}

	poolDSN, err := withParam(runDSN, "application_name", ApplicationName)
	if err != nil {
		_ = cleanup(ctx)
		return nil, nil, err
	}
	pool, err := db.NewPool(ctx, poolDSN, 32)
	if err != nil {
		_ = cleanup(ctx)
		return nil, nil, err
	}
	return pool, cleanup, nil
}

func withParam(dsn, key, value string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
