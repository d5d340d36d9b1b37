// Package notify posts deal data to the outbound notification webhooks.
// Each call is a single attempt; callers decide whether to retry.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"dealdesk/deal"
)

// DeliveryHeader carries a fresh id per attempt so receivers can correlate
// or deduplicate deliveries.
const DeliveryHeader = "X-Delivery-Id"

var ErrNotConfigured = errors.New("notify: webhook url not configured")

// StatusError reports a non-2xx webhook response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("notify: webhook returned status %d", e.Code)
}

type Dispatcher struct {
	httpClient     *http.Client
	logger         *slog.Logger
	descriptionURL string
	jvURL          string
	newID          func() string
}

// NewDispatcher builds a dispatcher. httpClient carries the call timeout.
func NewDispatcher(httpClient *http.Client, logger *slog.Logger, descriptionURL, jvURL string) *Dispatcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		httpClient:     httpClient,
		logger:         logger,
		descriptionURL: descriptionURL,
		jvURL:          jvURL,
		newID:          uuid.NewString,
	}
}

func (d *Dispatcher) WithIDGenerator(gen func() string) *Dispatcher {
	d.newID = gen
	return d
}

func (d *Dispatcher) SendDealDescription(ctx context.Context, dl deal.Deal) error {
	return d.post(ctx, d.descriptionURL, EventDealDescription, dl.ID, NewDealDescriptionPayload(dl))
}

func (d *Dispatcher) SendJvAgreement(ctx context.Context, dl deal.Deal, recipient deal.JvRecipient) error {
	return d.post(ctx, d.jvURL, EventJvAgreement, dl.ID, NewJvAgreementPayload(dl, recipient))
}

func (d *Dispatcher) post(ctx context.Context, url, event string, dealID int64, payload any) error {
	if url == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: encode %s: %w", event, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	deliveryID := d.newID()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(DeliveryHeader, deliveryID)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: post %s: %w", event, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode}
	}

	d.logger.Info("webhook delivered",
		slog.String("event", event),
		slog.Int64("deal_id", dealID),
		slog.String("delivery_id", deliveryID),
		slog.Int("http_status", resp.StatusCode),
	)
	return nil
}

var _ deal.Notifier = (*Dispatcher)(nil)
