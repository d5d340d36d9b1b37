// Package geocode resolves property addresses to coordinates for new deals.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

var (
	ErrNoResults = errors.New("geocode: no results")
	ErrDisabled  = errors.New("geocode: disabled")
)

type Point struct {
	Lat float64
	Lng float64
}

// Client calls a Google-style geocoding endpoint.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string
	apiKey     string
}

func NewClient(httpClient *http.Client, logger *slog.Logger, endpoint, apiKey string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		endpoint:   endpoint,
		apiKey:     apiKey,
	}
}

type response struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode returns the first match for address. Without an API key it
// returns ErrDisabled and makes no call.
func (c *Client) Geocode(ctx context.Context, address string) (Point, error) {
	if c.apiKey == "" {
		return Point{}, ErrDisabled
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return Point{}, ErrNoResults
	}

	reqURL, err := url.Parse(c.endpoint)
	if err != nil {
		return Point{}, fmt.Errorf("geocode: parse endpoint: %w", err)
	}
	q := reqURL.Query()
	q.Set("address", address)
	q.Set("key", c.apiKey)
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return Point{}, fmt.Errorf("geocode: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Point{}, fmt.Errorf("geocode: call: %w", redactKey(err, reqURL))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Point{}, fmt.Errorf("geocode: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Point{}, fmt.Errorf("geocode: read body: %w", err)
	}

	var parsed response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Point{}, fmt.Errorf("geocode: decode body: %w", err)
	}
	if parsed.Status == "ZERO_RESULTS" || len(parsed.Results) == 0 {
		return Point{}, ErrNoResults
	}
	if parsed.Status != "" && parsed.Status != "OK" {
		c.logger.Warn("geocoder returned non-ok status", slog.String("status", parsed.Status))
		return Point{}, fmt.Errorf("geocode: status %s", parsed.Status)
	}

	loc := parsed.Results[0].Geometry.Location
	return Point{Lat: loc.Lat, Lng: loc.Lng}, nil
}

// redactKey rewrites the URL carried by a transport error so the API key
// never reaches error text or logs.
func redactKey(err error, reqURL *url.URL) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	safe := *reqURL
	q := safe.Query()
	q.Set("key", "REDACTED")
	safe.RawQuery = q.Encode()
	return &url.Error{Op: urlErr.Op, URL: safe.String(), Err: urlErr.Err}
}
