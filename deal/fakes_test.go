package deal

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"dealdesk/geocode"
	"dealdesk/storage"
)

// memRepo orders and pages exactly like PGRepository.
type memRepo struct {
	mu      sync.Mutex
	deals   map[int64]Deal
	nextID  int64
	clock   time.Time
	updates int
	failGet error
}

func newMemRepo() *memRepo {
	return &memRepo{
		deals: make(map[int64]Deal),
		clock: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (r *memRepo) seed(n int, status string) []Deal {
	out := make([]Deal, 0, n)
	for i := 0; i < n; i++ {
		d, _ := r.Create(context.Background(), CreateParams{
			Status:          status,
			SubmitterName:   "Seller",
			SubmitterEmail:  "seller@example.com",
			PropertyAddress: "1 Main St",
		})
		out = append(out, d)
	}
	return out
}

func (r *memRepo) Create(_ context.Context, p CreateParams) (Deal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.clock = r.clock.Add(time.Minute)
	d := Deal{
		ID:              r.nextID,
		Status:          p.Status,
		SubmitterName:   p.SubmitterName,
		SubmitterEmail:  p.SubmitterEmail,
		SubmitterPhone:  p.SubmitterPhone,
		PropertyAddress: p.PropertyAddress,
		PropertyType:    p.PropertyType,
		AskingPrice:     p.AskingPrice,
		Notes:           p.Notes,
		Latitude:        p.Latitude,
		Longitude:       p.Longitude,
		CreatedAt:       r.clock,
		UpdatedAt:       r.clock,
	}
	r.deals[d.ID] = d
	return d, nil
}

func (r *memRepo) GetByID(_ context.Context, id int64) (Deal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failGet != nil {
		return Deal{}, r.failGet
	}
	d, ok := r.deals[id]
	if !ok {
		return Deal{}, ErrNotFound
	}
	return d, nil
}

func (r *memRepo) ListByStatus(_ context.Context, f ListFilters) (Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f.Limit <= 0 || f.Limit > MaxLimit {
		f.Limit = DefaultLimit
	}

	all := make([]Deal, 0, len(r.deals))
	for _, d := range r.deals {
		if f.Status == "" || d.Status == f.Status {
			all = append(all, d)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	if f.Cursor != nil {
		c, ok := r.deals[*f.Cursor]
		if !ok {
			return Page{Deals: []Deal{}}, nil
		}
		start := len(all)
		for i, d := range all {
			if d.CreatedAt.Before(c.CreatedAt) || (d.CreatedAt.Equal(c.CreatedAt) && d.ID <= c.ID) {
				start = i
				break
			}
		}
		all = all[start:]
	}
	if len(all) > f.Limit+1 {
		all = all[:f.Limit+1]
	}
	return paginate(all, f.Limit), nil
}

func (r *memRepo) Update(_ context.Context, id int64, p Patch) (Deal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.isEmpty() {
		return Deal{}, ErrEmptyPatch
	}
	d, ok := r.deals[id]
	if !ok {
		return Deal{}, ErrNotFound
	}
	r.updates++
	if p.Status != nil {
		d.Status = *p.Status
	}
	if p.Document != nil {
		d.SetDocumentKey(p.Document.Type, p.Document.Key)
	}
	if p.SentDealDescriptionAt != nil {
		d.SentDealDescriptionAt = p.SentDealDescriptionAt
	}
	if p.SentJvAgreementAt != nil {
		d.SentJvAgreementAt = p.SentJvAgreementAt
	}
	r.deals[id] = d
	return d, nil
}

type fakeNotifier struct {
	err        error
	calls      int
	recipients []JvRecipient
}

func (f *fakeNotifier) SendDealDescription(context.Context, Deal) error {
	f.calls++
	return f.err
}

func (f *fakeNotifier) SendJvAgreement(_ context.Context, _ Deal, r JvRecipient) error {
	f.calls++
	f.recipients = append(f.recipients, r)
	return f.err
}

type fakeStore struct {
	err   error
	calls int
}

func (f *fakeStore) CreateUploadURL(_ context.Context, filename string) (storage.Upload, error) {
	f.calls++
	if f.err != nil {
		return storage.Upload{}, f.err
	}
	return storage.Upload{URL: "https://storage.example.com/put", ObjectKey: storage.ObjectKey(time.Now(), filename)}, nil
}

func (f *fakeStore) DownloadURL(_ context.Context, key string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "https://storage.example.com/get/" + key, nil
}

type fakeGeocoder struct {
	point geocode.Point
	err   error
}

func (f fakeGeocoder) Geocode(context.Context, string) (geocode.Point, error) {
	return f.point, f.err
}

type countingRecorder struct {
	dispatch   map[string]int
	uploads    int
	submission int
}

func (c *countingRecorder) RecordDispatch(kind string, ok bool) {
	if c.dispatch == nil {
		c.dispatch = make(map[string]int)
	}
	if ok {
		c.dispatch[kind+":success"]++
		return
	}
	c.dispatch[kind+":failure"]++
}

func (c *countingRecorder) RecordUploadURL(bool) { c.uploads++ }
func (c *countingRecorder) RecordSubmission()    { c.submission++ }

var errBoom = errors.New("boom")
