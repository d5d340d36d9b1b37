package db

import (
	"context"
	"io/fs"
	"strings"
	"testing"
)

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	var ups, downs int
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		}
	}
	if ups == 0 || ups != downs {
		t.Fatalf("expected matching up/down migrations, got %d up and %d down", ups, downs)
	}
}

func TestMigrationsWidenDealIDs(t *testing.T) {
	raw, err := fs.ReadFile(migrationsFS, "migrations/000002_widen_deal_submission_ids.up.sql")
	if err != nil {
		t.Fatalf("read widen migration: %v", err)
	}
	sql := string(raw)
	for _, want := range []string{"ALTER COLUMN id TYPE BIGINT", "deal_submissions_id_seq AS BIGINT"} {
		if !strings.Contains(sql, want) {
			t.Fatalf("expected %q in widen migration", want)
		}
	}
}

func TestMigrateURL(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@h:5432/d?sslmode=disable": "pgx5://u:p@h:5432/d?sslmode=disable",
		"postgresql://u@h/d":                      "pgx5://u@h/d",
		"pgx5://u@h/d":                            "pgx5://u@h/d",
	}
	for in, want := range cases {
		if got := migrateURL(in); got != want {
			t.Errorf("migrateURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewPool_EmptyConnString(t *testing.T) {
	if _, err := NewPool(context.Background(), "", 0); err == nil {
		t.Fatal("expected error for empty connection string")
	}
}
