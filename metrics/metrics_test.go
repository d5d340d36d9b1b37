package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLogin("success")
	c.RecordLogin("rejected")
	c.RecordLogin("rejected")
	c.RecordDispatch("jv_agreement", false)
	c.RecordUploadURL(true)
	c.RecordSubmission()

	if got := testutil.ToFloat64(c.logins.WithLabelValues("rejected")); got != 2 {
		t.Fatalf("expected 2 rejected logins, got %v", got)
	}
	if got := testutil.ToFloat64(c.dispatches.WithLabelValues("jv_agreement", "failure")); got != 1 {
		t.Fatalf("expected 1 failed dispatch, got %v", got)
	}
	if got := testutil.ToFloat64(c.submissions); got != 1 {
		t.Fatalf("expected 1 submission, got %v", got)
	}
}

func TestHandler_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.ObserveHTTP("GET", "/api/deals", 200, 15*time.Millisecond)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "dealdesk_http_request_duration_seconds") {
		t.Fatalf("expected histogram in exposition, got:\n%s", body)
	}
}
