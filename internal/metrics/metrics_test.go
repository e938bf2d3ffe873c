package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/xiaot623/assistdesk/internal/adapter/vapi"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	return string(body)
}

func TestObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest(vapi.RequestInfo{Resource: "assistant", Method: "GET", Outcome: "ok", Duration: 20 * time.Millisecond})
	m.ObserveRequest(vapi.RequestInfo{Resource: "assistant", Method: "GET", Outcome: "not_found", Duration: 10 * time.Millisecond})

	out := scrape(t, m)
	for _, want := range []string{
		`assistdesk_remote_requests_total{method="GET",outcome="ok",resource="assistant"} 1`,
		`assistdesk_remote_requests_total{method="GET",outcome="not_found",resource="assistant"} 1`,
		`assistdesk_remote_request_duration_seconds_count{method="GET",resource="assistant"} 2`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("metrics output missing %q:\n%s", want, out)
		}
	}
}

func TestCallSessionGauge(t *testing.T) {
	m := New()
	m.CallStarted()
	if out := scrape(t, m); !strings.Contains(out, "assistdesk_call_session_active 1") {
		t.Fatalf("expected active gauge 1:\n%s", out)
	}

	m.CallFinished("completed")
	out := scrape(t, m)
	if !strings.Contains(out, "assistdesk_call_session_active 0") {
		t.Fatalf("expected active gauge 0:\n%s", out)
	}
	if !strings.Contains(out, `assistdesk_call_sessions_total{status="completed"} 1`) {
		t.Fatalf("expected completed session counter:\n%s", out)
	}
}
