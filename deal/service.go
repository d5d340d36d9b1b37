package deal

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"dealdesk/auth"
	"dealdesk/failure"
	"dealdesk/geocode"
	"dealdesk/storage"
)

// Guard is the access check every staff operation runs first.
type Guard interface {
	RequireAdmin(token string) (auth.Claims, error)
}

// Notifier delivers deal data to the outbound webhook. A nil error means the
// receiver acknowledged the call.
type Notifier interface {
	SendDealDescription(ctx context.Context, d Deal) error
	SendJvAgreement(ctx context.Context, d Deal, recipient JvRecipient) error
}

type DocumentStore interface {
	CreateUploadURL(ctx context.Context, filename string) (storage.Upload, error)
	DownloadURL(ctx context.Context, key string) (string, error)
}

type Geocoder interface {
	Geocode(ctx context.Context, address string) (geocode.Point, error)
}

// Recorder observes side effects. Implemented by metrics.Collector.
type Recorder interface {
	RecordDispatch(kind string, ok bool)
	RecordUploadURL(ok bool)
	RecordSubmission()
}

const (
	dispatchDealDescription = "deal_description"
	dispatchJvAgreement     = "jv_agreement"
)

// Service composes the guard, repository and collaborators. Protected
// operations run guard, input validation, load, action and persist in that
// order and stop at the first failure.
type Service struct {
	guard    Guard
	repo     Repository
	store    DocumentStore
	notifier Notifier
	geocoder Geocoder
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(guard Guard, repo Repository, store DocumentStore, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		guard:    guard,
		repo:     repo,
		store:    store,
		notifier: notifier,
		recorder: nopRecorder{},
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) WithGeocoder(g Geocoder) *Service {
	s.geocoder = g
	return s
}

func (s *Service) WithRecorder(r Recorder) *Service {
	if r != nil {
		s.recorder = r
	}
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Submit stores a deal from the public intake form. Geocoding is best
// effort and never fails the submission.
func (s *Service) Submit(ctx context.Context, params SubmitParams) (Deal, error) {
	name, err := requireText("submitterName", params.SubmitterName)
	if err != nil {
		return Deal{}, err
	}
	email, err := requireEmail("submitterEmail", params.SubmitterEmail)
	if err != nil {
		return Deal{}, err
	}
	address, err := requireText("propertyAddress", params.PropertyAddress)
	if err != nil {
		return Deal{}, err
	}
	if params.AskingPrice != nil && *params.AskingPrice < 0 {
		return Deal{}, failure.Validation("askingPrice", "askingPrice must not be negative")
	}

	create := CreateParams{
		Status:          StatusNew,
		SubmitterName:   name,
		SubmitterEmail:  email,
		SubmitterPhone:  optionalText(params.SubmitterPhone),
		PropertyAddress: address,
		PropertyType:    optionalText(params.PropertyType),
		AskingPrice:     params.AskingPrice,
		Notes:           optionalText(params.Notes),
	}

	if s.geocoder != nil {
		point, err := s.geocoder.Geocode(ctx, address)
		switch {
		case err == nil:
			create.Latitude = &point.Lat
			create.Longitude = &point.Lng
		case errors.Is(err, geocode.ErrDisabled):
		default:
			s.logger.Warn("geocoding failed", slog.String("error", err.Error()))
		}
	}

	d, err := s.repo.Create(ctx, create)
	if err != nil {
		return Deal{}, failure.Internal(err)
	}
	s.recorder.RecordSubmission()
	s.logger.Info("deal submitted", slog.Int64("deal_id", d.ID))
	return d, nil
}

func (s *Service) Get(ctx context.Context, token string, id int64) (Deal, error) {
	if _, err := s.guard.RequireAdmin(token); err != nil {
		return Deal{}, err
	}
	return s.load(ctx, id)
}

// List pages through deals newest first, optionally filtered by status.
func (s *Service) List(ctx context.Context, token string, params ListParams) (Page, error) {
	if _, err := s.guard.RequireAdmin(token); err != nil {
		return Page{}, err
	}
	limit, err := validateLimit(params.Limit)
	if err != nil {
		return Page{}, err
	}

	page, err := s.repo.ListByStatus(ctx, ListFilters{
		Status: params.Status,
		Cursor: params.Cursor,
		Limit:  limit,
	})
	if err != nil {
		return Page{}, failure.Internal(err)
	}
	return page, nil
}

// UpdateStatus stores any non-blank status. Transitions are not restricted.
func (s *Service) UpdateStatus(ctx context.Context, token string, id int64, status string) (Result, error) {
	if _, err := s.guard.RequireAdmin(token); err != nil {
		return Result{}, err
	}
	status, err := validateStatus(status)
	if err != nil {
		return Result{}, err
	}
	if _, err := s.load(ctx, id); err != nil {
		return Result{}, err
	}

	if _, err := s.repo.Update(ctx, id, Patch{Status: &status}); err != nil {
		return Result{}, s.storeError(err)
	}
	s.logger.Info("deal status updated", slog.Int64("deal_id", id), slog.String("status", status))
	return Result{Success: true, Message: "Status updated to " + status}, nil
}

// UpdateDocument attaches key to the deal, or detaches the document when key is nil.
func (s *Service) UpdateDocument(ctx context.Context, token string, id int64, docType DocumentType, key *string) (Result, error) {
	if _, err := s.guard.RequireAdmin(token); err != nil {
		return Result{}, err
	}
	if !docType.Valid() {
		return Result{}, failure.Validation("documentType", "documentType must be one of jv, purchase, assignment")
	}
	key, err := validateObjectKey(key)
	if err != nil {
		return Result{}, err
	}
	d, err := s.load(ctx, id)
	if err != nil {
		return Result{}, err
	}

	_, msg, err := s.setDocument(ctx, d, docType, key)
	if err != nil {
		return Result{}, s.storeError(err)
	}
	s.logger.Info("deal document updated",
		slog.Int64("deal_id", id),
		slog.String("document_type", docType.String()),
		slog.Bool("removed", key == nil),
	)
	return Result{Success: true, Message: msg}, nil
}

// CreateUploadURL signs an upload for filename. The returned key is not
// attached to any deal.
func (s *Service) CreateUploadURL(ctx context.Context, token, filename string) (storage.Upload, error) {
	if _, err := s.guard.RequireAdmin(token); err != nil {
		return storage.Upload{}, err
	}
	if _, err := requireText("filename", filename); err != nil {
		return storage.Upload{}, err
	}

	upload, err := s.store.CreateUploadURL(ctx, filename)
	s.recorder.RecordUploadURL(err == nil)
	if err != nil {
		s.logger.Error("create upload url failed", slog.String("error", err.Error()))
		return storage.Upload{}, failure.UploadURL(err)
	}
	return upload, nil
}

// DocumentURL signs a download for an attached document.
func (s *Service) DocumentURL(ctx context.Context, token string, id int64, docType DocumentType) (string, error) {
	if _, err := s.guard.RequireAdmin(token); err != nil {
		return "", err
	}
	if !docType.Valid() {
		return "", failure.Validation("documentType", "documentType must be one of jv, purchase, assignment")
	}
	d, err := s.load(ctx, id)
	if err != nil {
		return "", err
	}
	key := d.DocumentKey(docType)
	if key == nil {
		return "", failure.NotFound(docType.Label())
	}

	url, err := s.store.DownloadURL(ctx, *key)
	if err != nil {
		s.logger.Error("create download url failed", slog.String("error", err.Error()))
		return "", failure.UploadURL(err)
	}
	return url, nil
}

// SendDealDescription forwards the deal to the description webhook and
// records the send time only after the webhook acknowledged it.
func (s *Service) SendDealDescription(ctx context.Context, token string, id int64) (Result, error) {
	if _, err := s.guard.RequireAdmin(token); err != nil {
		return Result{}, err
	}
	d, err := s.load(ctx, id)
	if err != nil {
		return Result{}, err
	}

	err = s.notifier.SendDealDescription(ctx, d)
	s.recorder.RecordDispatch(dispatchDealDescription, err == nil)
	if err != nil {
		s.logger.Error("deal description dispatch failed", slog.Int64("deal_id", id), slog.String("error", err.Error()))
		return Result{}, failure.Dispatch(err)
	}

	sentAt := s.now().UTC()
	if _, err := s.repo.Update(ctx, id, Patch{SentDealDescriptionAt: &sentAt}); err != nil {
		s.logger.Error("deal description delivered but send time not stored", slog.Int64("deal_id", id), slog.String("error", err.Error()))
		return Result{}, s.storeError(err)
	}
	return Result{Success: true, Message: "Deal description sent successfully"}, nil
}

// SendJvAgreement forwards the deal and recipient to the JV webhook and
// records the send time only after the webhook acknowledged it.
func (s *Service) SendJvAgreement(ctx context.Context, token string, id int64, recipient JvRecipient) (Result, error) {
	if _, err := s.guard.RequireAdmin(token); err != nil {
		return Result{}, err
	}
	name, err := requireText("recipientName", recipient.Name)
	if err != nil {
		return Result{}, err
	}
	email, err := requireEmail("recipientEmail", recipient.Email)
	if err != nil {
		return Result{}, err
	}
	llc, err := requireText("llcName", recipient.LLCName)
	if err != nil {
		return Result{}, err
	}
	recipient = JvRecipient{Name: name, Email: email, LLCName: llc}

	d, err := s.load(ctx, id)
	if err != nil {
		return Result{}, err
	}

	err = s.notifier.SendJvAgreement(ctx, d, recipient)
	s.recorder.RecordDispatch(dispatchJvAgreement, err == nil)
	if err != nil {
		s.logger.Error("jv agreement dispatch failed", slog.Int64("deal_id", id), slog.String("error", err.Error()))
		return Result{}, failure.Dispatch(err)
	}

	sentAt := s.now().UTC()
	if _, err := s.repo.Update(ctx, id, Patch{SentJvAgreementAt: &sentAt}); err != nil {
		s.logger.Error("jv agreement delivered but send time not stored", slog.Int64("deal_id", id), slog.String("error", err.Error()))
		return Result{}, s.storeError(err)
	}
	return Result{Success: true, Message: "JV agreement sent to " + email}, nil
}

func (s *Service) load(ctx context.Context, id int64) (Deal, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Deal{}, s.storeError(err)
	}
	return d, nil
}

func (s *Service) storeError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return failure.NotFound("deal")
	}
	return failure.Internal(err)
}

type nopRecorder struct{}

func (nopRecorder) RecordDispatch(string, bool) {}
func (nopRecorder) RecordUploadURL(bool)        {}
func (nopRecorder) RecordSubmission()           {}
