package actors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"dealdesk/auth"
	"dealdesk/deal"
	"dealdesk/failure"
	"dealdesk/storage"
)

var statuses = []string{"new", "reviewing", "under_contract", "closed", "rejected"}

var documentTypes = []deal.DocumentType{deal.DocumentJV, deal.DocumentPurchase, deal.DocumentAssignment}

// Staff is the shared handle every actor drives: a deal service over the
// real repository and a valid admin session.
type Staff struct {
	Service *deal.Service
	Token   string

	highest atomic.Int64
}

// NewStaff wires the deal service the way the API does, with presigning
// stubbed out and notifications going to notifier.
func NewStaff(pool *pgxpool.Pool, notifier deal.Notifier) (*Staff, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	codec := auth.NewTokenCodec("stress-secret")
	token, _, err := codec.Issue(auth.RoleAdmin)
	if err != nil {
		return nil, err
	}
	guard := auth.NewGuard(codec, logger, nil)
	store := storage.NewHandoff(offlinePresigner{}, "purchase-agreements")
	svc := deal.NewService(guard, deal.NewRepository(pool), store, notifier, logger)
	return &Staff{Service: svc, Token: token}, nil
}

// Observe records that deal id is committed and may be targeted.
func (s *Staff) Observe(id int64) {
	for {
		cur := s.highest.Load()
		if id <= cur || s.highest.CompareAndSwap(cur, id) {
			return
		}
	}
}

func (s *Staff) pick(rng *rand.Rand) (int64, bool) {
	n := s.highest.Load()
	if n == 0 {
		return 0, false
	}
	return rng.Int63n(n) + 1, true
}

// tolerable filters errors chaos is allowed to cause. Killed backends
// surface as internal failures, flaky webhooks as dispatch failures, and ids
// burned by aborted inserts or empty document slots as not found.
func tolerable(err error) bool {
	if err == nil {
		return true
	}
	switch failure.KindOf(err) {
	case failure.KindInternal, failure.KindDispatch, failure.KindNotFound:
		return true
	}
	return false
}

func done(ctx context.Context, stop <-chan struct{}) (bool, error) {
	select {
	case <-ctx.Done():
		return true, ctx.Err()
	case <-stop:
		return true, nil
	default:
		return false, nil
	}
}

// Submitter posts new deals through the public intake path.
func Submitter(ctx context.Context, staff *Staff, rng *rand.Rand, stop <-chan struct{}) error {
	for {
		if ok, err := done(ctx, stop); ok {
			return err
		}
		price := int64(100_000 + rng.Intn(900_000))
		d, err := staff.Service.Submit(ctx, deal.SubmitParams{
			SubmitterName:   fmt.Sprintf("Stress Seller %d", rng.Intn(1000)),
			SubmitterEmail:  fmt.Sprintf("seller%d@example.com", rng.Intn(1000)),
			PropertyAddress: fmt.Sprintf("%d Main St", 1+rng.Intn(9999)),
			AskingPrice:     &price,
		})
		if err != nil {
			if !tolerable(err) {
				return fmt.Errorf("submitter: %w", err)
			}
		} else {
			staff.Observe(d.ID)
		}
		time.Sleep(time.Duration(20+rng.Intn(40)) * time.Millisecond)
	}
}

// StatusChanger moves random deals between statuses.
func StatusChanger(ctx context.Context, staff *Staff, rng *rand.Rand, stop <-chan struct{}) error {
	for {
		if ok, err := done(ctx, stop); ok {
			return err
		}
		if id, ok := staff.pick(rng); ok {
			status := statuses[rng.Intn(len(statuses))]
			res, err := staff.Service.UpdateStatus(ctx, staff.Token, id, status)
			if !tolerable(err) {
				return fmt.Errorf("status changer deal %d: %w", id, err)
			}
			if err == nil && res.Message != "Status updated to "+status {
				return fmt.Errorf("status changer deal %d: unexpected message %q", id, res.Message)
			}
		}
		time.Sleep(time.Duration(10+rng.Intn(20)) * time.Millisecond)
	}
}

// DocumentEditor attaches and detaches document keys on random deals, then
// reads the slot back through the download URL path.
func DocumentEditor(ctx context.Context, staff *Staff, rng *rand.Rand, stop <-chan struct{}) error {
	for {
		if ok, err := done(ctx, stop); ok {
			return err
		}
		if id, ok := staff.pick(rng); ok {
			docType := documentTypes[rng.Intn(len(documentTypes))]
			var key *string
			if rng.Intn(3) != 0 {
				k := storage.ObjectKey(time.Now(), fmt.Sprintf("contract v%d.pdf", rng.Intn(100)))
				key = &k
			}
			if _, err := staff.Service.UpdateDocument(ctx, staff.Token, id, docType, key); !tolerable(err) {
				return fmt.Errorf("document editor deal %d: %w", id, err)
			}
			if _, err := staff.Service.DocumentURL(ctx, staff.Token, id, docType); !tolerable(err) {
				return fmt.Errorf("document url deal %d: %w", id, err)
			}
		}
		time.Sleep(time.Duration(10+rng.Intn(30)) * time.Millisecond)
	}
}

// Dispatcher sends deal descriptions and JV agreements for random deals.
// The notifier it runs against fails a share of deliveries.
func Dispatcher(ctx context.Context, staff *Staff, rng *rand.Rand, stop <-chan struct{}) error {
	for {
		if ok, err := done(ctx, stop); ok {
			return err
		}
		if id, ok := staff.pick(rng); ok {
			var err error
			if rng.Intn(2) == 0 {
				_, err = staff.Service.SendDealDescription(ctx, staff.Token, id)
			} else {
				_, err = staff.Service.SendJvAgreement(ctx, staff.Token, id, deal.JvRecipient{
					Name:    "Partner",
					Email:   "partner@example.com",
					LLCName: "Partner Holdings LLC",
				})
			}
			if !tolerable(err) {
				return fmt.Errorf("dispatcher deal %d: %w", id, err)
			}
		}
		time.Sleep(time.Duration(20+rng.Intn(40)) * time.Millisecond)
	}
}

// Pager walks the full listing while writers run. Within one walk a deal may
// never appear twice and (created_at, id) must strictly decrease.
func Pager(ctx context.Context, staff *Staff, rng *rand.Rand, stop <-chan struct{}) error {
	for {
		if ok, err := done(ctx, stop); ok {
			return err
		}
		if err := walk(ctx, staff, 1+rng.Intn(deal.MaxLimit/4)); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			if !tolerable(err) {
				return err
			}
		}
		time.Sleep(time.Duration(50+rng.Intn(50)) * time.Millisecond)
	}
}

func walk(ctx context.Context, staff *Staff, limit int) error {
	seen := make(map[int64]struct{})
	var prev *deal.Deal
	var cursor *int64
	for {
		page, err := staff.Service.List(ctx, staff.Token, deal.ListParams{Cursor: cursor, Limit: &limit})
		if err != nil {
			return err
		}
		if len(page.Deals) > limit {
			return fmt.Errorf("pager: page of %d exceeds limit %d", len(page.Deals), limit)
		}
		for i := range page.Deals {
			d := page.Deals[i]
			if _, dup := seen[d.ID]; dup {
				return fmt.Errorf("pager: deal %d returned twice (limit %d)", d.ID, limit)
			}
			seen[d.ID] = struct{}{}
			if prev != nil && !before(d, *prev) {
				return fmt.Errorf("pager: deal %d out of order after %d (limit %d)", d.ID, prev.ID, limit)
			}
			prev = &d
		}
		if page.NextCursor == nil {
			return nil
		}
		cursor = page.NextCursor
	}
}

func before(a, b deal.Deal) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID < b.ID
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

// LedgerNotifier acknowledges a random share of deliveries and records each
// acknowledged one in stress_deliveries before returning.
type LedgerNotifier struct {
	pool     *pgxpool.Pool
	failRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

func NewLedgerNotifier(pool *pgxpool.Pool, seed int64, failRate float64) *LedgerNotifier {
	return &LedgerNotifier{pool: pool, failRate: failRate, rng: rand.New(rand.NewSource(seed))}
}

var errWebhookDown = errors.New("stress: webhook unavailable")

func (n *LedgerNotifier) SendDealDescription(ctx context.Context, d deal.Deal) error {
	return n.deliver(ctx, d.ID, "deal_description")
}

func (n *LedgerNotifier) SendJvAgreement(ctx context.Context, d deal.Deal, _ deal.JvRecipient) error {
	return n.deliver(ctx, d.ID, "jv_agreement")
}

func (n *LedgerNotifier) deliver(ctx context.Context, dealID int64, kind string) error {
	n.mu.Lock()
	fail := n.rng.Float64() < n.failRate
	n.mu.Unlock()
	if fail {
		return errWebhookDown
	}
	_, err := n.pool.Exec(ctx, `INSERT INTO stress_deliveries (deal_id, kind) VALUES ($1,$2)`, dealID, kind)
	return err
}

type offlinePresigner struct{}

func (offlinePresigner) PresignPut(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	return "https://storage.invalid/" + bucket + "/" + key + "?put", nil
}

func (offlinePresigner) PresignGet(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	return "https://storage.invalid/" + bucket + "/" + key, nil
}
