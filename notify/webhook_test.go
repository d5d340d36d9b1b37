package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"dealdesk/deal"
)

func sampleDeal() deal.Deal {
	price := int64(250000)
	jvKey := "1700000000000-jv.pdf"
	return deal.Deal{
		ID:              42,
		Status:          "approved",
		SubmitterName:   "Sam Seller",
		SubmitterEmail:  "sam@example.com",
		PropertyAddress: "12 Elm St",
		AskingPrice:     &price,
		JvAgreementKey:  &jvKey,
		CreatedAt:       time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestDispatcher_SendDealDescription(t *testing.T) {
	var got map[string]any
	var deliveryID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		deliveryID = r.Header.Get(DeliveryHeader)
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	d := NewDispatcher(server.Client(), nil, server.URL, "").WithIDGenerator(func() string { return "delivery-1" })
	if err := d.SendDealDescription(context.Background(), sampleDeal()); err != nil {
		t.Fatalf("send: %v", err)
	}

	if deliveryID != "delivery-1" {
		t.Fatalf("expected delivery id header, got %q", deliveryID)
	}
	if got["submission_id"] != float64(42) {
		t.Fatalf("submission_id = %v", got["submission_id"])
	}
	if got["property_address"] != "12 Elm St" || got["event"] != EventDealDescription {
		t.Fatalf("unexpected payload %v", got)
	}
	if got["asking_price"] != float64(250000) {
		t.Fatalf("asking_price = %v", got["asking_price"])
	}
}

func TestDispatcher_SendJvAgreement(t *testing.T) {
	var got JvAgreementPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := NewDispatcher(server.Client(), nil, "", server.URL)
	err := d.SendJvAgreement(context.Background(), sampleDeal(), deal.JvRecipient{
		Name:    "Jo Partner",
		Email:   "jo@example.com",
		LLCName: "Partner LLC",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.RecipientName != "Jo Partner" || got.RecipientEmail != "jo@example.com" || got.LLCName != "Partner LLC" {
		t.Fatalf("unexpected recipient fields %+v", got)
	}
	if got.SubmissionID != 42 || got.JvAgreementKey == nil || *got.JvAgreementKey != "1700000000000-jv.pdf" {
		t.Fatalf("unexpected deal fields %+v", got)
	}
}

func TestDispatcher_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	d := NewDispatcher(server.Client(), nil, server.URL, server.URL)
	err := d.SendDealDescription(context.Background(), sampleDeal())
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusBadGateway {
		t.Fatalf("expected status error 502, got %v", err)
	}
}

func TestDispatcher_SingleAttemptOnTimeout(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := server.Client()
	client.Timeout = 20 * time.Millisecond
	d := NewDispatcher(client, nil, server.URL, server.URL)

	if err := d.SendDealDescription(context.Background(), sampleDeal()); err == nil {
		t.Fatal("expected timeout error")
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("expected exactly one attempt, got %d", n)
	}
}

func TestDispatcher_NotConfigured(t *testing.T) {
	d := NewDispatcher(nil, nil, "", "")
	if err := d.SendDealDescription(context.Background(), sampleDeal()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
