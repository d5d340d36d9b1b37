package test

import (
	"context"
	"errors"
	"flag"
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"dealdesk/deal"
	"dealdesk/test/actors"
	"dealdesk/test/chaos"
	"dealdesk/test/infra"
	"dealdesk/test/oracles"
)

var (
	flDuration    = flag.Duration("duration", 30*time.Second, "how long to run stress")
	flConcurrency = flag.Int("concurrency", 4, "number of actors of each kind")
	flSeed        = flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flDSN         = flag.String("dsn", "", "existing Postgres DSN to reuse (avoids Docker)")
	flFailRate    = flag.Float64("webhook-fail-rate", 0.3, "share of webhook deliveries that fail")
	flSeedDeals   = flag.Int("seed-deals", 50, "deals inserted before actors start")
)

func TestDealDeskConcurrency(t *testing.T) {
	if testing.Short() {
		t.Skip("stress test skipped in -short mode")
	}
	seed := *flSeed
	t.Logf("seed=%d", seed)

	ctx, cancel := context.WithTimeout(context.Background(), *flDuration+60*time.Second)
	defer cancel()

	dsn := *flDSN
	if dsn == "" && os.Getenv("STRESS_TEST_PG_DSN") == "" && !infra.DockerAvailable(ctx) {
		local, err := infra.InitLocalDatabase(ctx)
		if err != nil {
			t.Skipf("no docker and no local postgres: %v", err)
		}
		dsn = local
	}

	h, err := infra.NewHarness(ctx, dsn)
	if err != nil {
		t.Fatalf("harness: %v", err)
	}
	defer func() {
		if err := h.Close(context.Background()); err != nil {
			t.Logf("teardown warning: %v", err)
		}
	}()
	pool := h.Pool()

	if err := h.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := pool.Exec(ctx, oracles.DeliveriesDDL); err != nil {
		t.Fatalf("create delivery ledger: %v", err)
	}

	notifier := actors.NewLedgerNotifier(pool, seed, *flFailRate)
	staff, err := actors.NewStaff(pool, notifier)
	if err != nil {
		t.Fatalf("staff: %v", err)
	}
	mustSeed(t, ctx, staff, *flSeedDeals)

	g, ctx2 := errgroup.WithContext(ctx)
	stop := make(chan struct{})

	next := seed
	rng := func() *rand.Rand {
		next++
		return rand.New(rand.NewSource(next))
	}

	for i := 0; i < *flConcurrency; i++ {
		submitRNG, statusRNG, docRNG, dispatchRNG := rng(), rng(), rng(), rng()
		g.Go(func() error { return actors.Submitter(ctx2, staff, submitRNG, stop) })
		g.Go(func() error { return actors.StatusChanger(ctx2, staff, statusRNG, stop) })
		g.Go(func() error { return actors.DocumentEditor(ctx2, staff, docRNG, stop) })
		g.Go(func() error { return actors.Dispatcher(ctx2, staff, dispatchRNG, stop) })
	}
	pagerRNG := rng()
	g.Go(func() error { return actors.Pager(ctx2, staff, pagerRNG, stop) })

	go chaos.TerminateRandomBackend(ctx2, pool, infra.ApplicationName, rng(), stop)

	deadline := time.Now().Add(*flDuration)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	var failed bool
loop:
	for time.Now().Before(deadline) {
		select {
		case <-ctx2.Done():
			break loop
		case <-ticker.C:
			name, row, err := oracles.Run(ctx2, pool)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					break loop
				}
				// the chaos actor may have killed the oracle's connection
				t.Logf("oracle error (retrying): %v", err)
				continue
			}
			if name != "" {
				failed = true
				dumpRecent(t, ctx, pool)
				t.Errorf("Oracle %s failed. First row: %s (seed=%d)", name, row, seed)
				break loop
			}
		}
	}

	close(stop)
	if err := g.Wait(); err != nil && !failed {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("actors errored: %v (seed=%d)", err, seed)
		}
	}

	if failed {
		return
	}
	name, row, err := oracles.Run(ctx, pool)
	if err != nil {
		t.Fatalf("final oracle pass: %v", err)
	}
	if name != "" {
		dumpRecent(t, ctx, pool)
		t.Fatalf("Oracle %s failed after shutdown. First row: %s (seed=%d)", name, row, seed)
	}
}

func mustSeed(t *testing.T, ctx context.Context, staff *actors.Staff, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		d, err := staff.Service.Submit(ctx, deal.SubmitParams{
			SubmitterName:   "Seed Seller",
			SubmitterEmail:  "seed@example.com",
			PropertyAddress: "1 Seed Ave",
		})
		if err != nil {
			t.Fatalf("seed deal %d: %v", i, err)
		}
		staff.Observe(d.ID)
	}
}

func dumpRecent(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	dumps := []struct {
		name string
		sql  string
	}{
		{"deal_submissions", `SELECT id, status, jv_agreement_key, sent_deal_description_at, sent_jv_agreement_at, created_at, updated_at
                              FROM deal_submissions ORDER BY updated_at DESC LIMIT 50`},
		{"stress_deliveries", `SELECT id, deal_id, kind, delivered_at FROM stress_deliveries ORDER BY id DESC LIMIT 50`},
	}
	for _, d := range dumps {
		rows, err := pool.Query(ctx, d.sql)
		if err != nil {
			t.Logf("dump %s error: %v", d.name, err)
			continue
		}
		records, err := pgx.CollectRows(rows, pgx.RowToMap)
		if err != nil {
			t.Logf("dump %s error: %v", d.name, err)
			continue
		}
		t.Logf("-- %s (%d rows) --", d.name, len(records))
		for _, rec := range records {
			t.Logf("%v", rec)
		}
	}
}
