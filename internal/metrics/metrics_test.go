package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"penguindash/internal/core"
)

var _ core.Observer = (*Recorder)(nil)

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.ControlChanged(core.ControlMass)
	r.ControlChanged(core.ControlMass)
	r.ControlChanged(core.ControlSpecies)
	r.ViewComputed(42, time.Millisecond)
	r.ExportFinished("succeeded")
	r.ObserveRequest("summary", http.StatusOK)

	if got := testutil.ToFloat64(r.controlEvents.WithLabelValues(core.ControlMass)); got != 2 {
		t.Fatalf("expected 2 mass events, got %v", got)
	}
	if got := testutil.ToFloat64(r.recomputations); got != 1 {
		t.Fatalf("expected 1 recomputation, got %v", got)
	}
	if got := testutil.ToFloat64(r.exports.WithLabelValues("succeeded")); got != 1 {
		t.Fatalf("expected 1 export, got %v", got)
	}
	if got := testutil.ToFloat64(r.requests.WithLabelValues("summary", "200")); got != 1 {
		t.Fatalf("expected 1 request, got %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	sessions := 3
	r.TrackSessions(func() int { return sessions })
	r.ControlChanged(core.ControlSpecies)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	text := string(body)
	for _, want := range []string{
		`penguindash_control_events_total{control="species"} 1`,
		"penguindash_sessions 3",
		"go_goroutines",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in exposition:\n%s", want, text)
		}
	}
}
