// Package storage hands out presigned URLs for deal documents. Object keys
// are persisted only when a caller attaches them to a deal.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// URLValidity is the lifetime of every presigned URL.
const URLValidity = 60 * time.Minute

var (
	ErrEmptyFilename = errors.New("storage: empty filename")
	ErrEmptyKey      = errors.New("storage: empty object key")
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9.-]`)

// Presigner is the object storage contract. S3Presigner implements it.
type Presigner interface {
	PresignPut(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// Upload is the ephemeral result of a handoff.
type Upload struct {
	URL       string
	ObjectKey string
	ExpiresAt time.Time
}

type Handoff struct {
	presigner Presigner
	bucket    string
	now       func() time.Time
}

func NewHandoff(presigner Presigner, bucket string) *Handoff {
	return &Handoff{
		presigner: presigner,
		bucket:    bucket,
		now:       time.Now,
	}
}

func (h *Handoff) WithClock(now func() time.Time) *Handoff {
	h.now = now
	return h
}

// SanitizeFilename replaces every character outside [A-Za-z0-9.-] with '_'.
func SanitizeFilename(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// ObjectKey prefixes the sanitized name with the millisecond timestamp.
func ObjectKey(now time.Time, filename string) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), SanitizeFilename(filename))
}

// CreateUploadURL signs a PUT URL for a fresh object key.
func (h *Handoff) CreateUploadURL(ctx context.Context, filename string) (Upload, error) {
	if strings.TrimSpace(filename) == "" {
		return Upload{}, ErrEmptyFilename
	}
	now := h.now()
	key := ObjectKey(now, filename)

	url, err := h.presigner.PresignPut(ctx, h.bucket, key, URLValidity)
	if err != nil {
		return Upload{}, err
	}
	return Upload{
		URL:       url,
		ObjectKey: key,
		ExpiresAt: now.Add(URLValidity),
	}, nil
}

// DownloadURL signs a GET URL for an attached document.
func (h *Handoff) DownloadURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	return h.presigner.PresignGet(ctx, h.bucket, key, URLValidity)
}
