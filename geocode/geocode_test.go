package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClient_Geocode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("address"); got != "1 Main St, Springfield" {
			t.Errorf("address = %q", got)
		}
		if got := r.URL.Query().Get("key"); got != "k" {
			t.Errorf("key = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"OK","results":[{"geometry":{"location":{"lat":39.78,"lng":-89.65}}}]}`))
	}))
	defer server.Close()

	c := NewClient(server.Client(), nil, server.URL, "k")
	p, err := c.Geocode(context.Background(), " 1 Main St, Springfield ")
	if err != nil {
		t.Fatalf("geocode: %v", err)
	}
	if p.Lat != 39.78 || p.Lng != -89.65 {
		t.Fatalf("unexpected point %+v", p)
	}
}

func TestClient_GeocodeZeroResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	}))
	defer server.Close()

	c := NewClient(server.Client(), nil, server.URL, "k")
	if _, err := c.Geocode(context.Background(), "nowhere"); !errors.Is(err, ErrNoResults) {
		t.Fatalf("expected ErrNoResults, got %v", err)
	}
}

func TestClient_GeocodeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(server.Client(), nil, server.URL, "k")
	if _, err := c.Geocode(context.Background(), "1 Main St"); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestClient_DisabledWithoutKey(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	c := NewClient(server.Client(), nil, server.URL, "")
	if _, err := c.Geocode(context.Background(), "1 Main St"); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
	if called {
		t.Fatal("no request should be made without an api key")
	}
}

func TestClient_TransportErrorHidesKey(t *testing.T) {
	const key = "SECRET-KEY-123"
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	endpoint := server.URL
	server.Close()

	c := NewClient(nil, nil, endpoint, key)
	_, err := c.Geocode(context.Background(), "1 Main St")
	if err == nil {
		t.Fatal("expected error from unreachable geocoder")
	}
	if strings.Contains(err.Error(), key) {
		t.Fatalf("api key leaked into error: %v", err)
	}
	if !strings.Contains(err.Error(), "key=REDACTED") {
		t.Fatalf("expected redacted url in error, got %v", err)
	}
}

func TestClient_TimeoutHidesKeyAndKeepsCause(t *testing.T) {
	const key = "SECRET-KEY-123"
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewClient(server.Client(), nil, server.URL, key)
	_, err := c.Geocode(ctx, "1 Main St")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if strings.Contains(err.Error(), key) {
		t.Fatalf("api key leaked into error: %v", err)
	}
}
