package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveResolveCountsByTier(t *testing.T) {
	c := New()
	c.ObserveResolve("memory", OutcomeHit)
	c.ObserveResolve("memory", OutcomeHit)
	c.ObserveResolve("", OutcomeMiss)

	if got := testutil.ToFloat64(c.resolveTotal.WithLabelValues("memory", OutcomeHit)); got != 2 {
		t.Fatalf("expected 2 memory hits, got %v", got)
	}
	if got := testutil.ToFloat64(c.resolveTotal.WithLabelValues("none", OutcomeMiss)); got != 1 {
		t.Fatalf("expected 1 miss, got %v", got)
	}
}

func TestObserveSyncSplitsResults(t *testing.T) {
	c := New()
	c.ObserveSync("replace_all", nil, time.Millisecond)
	c.ObserveSync("replace_all", errors.New("boom"), time.Millisecond)

	if got := testutil.ToFloat64(c.syncTotal.WithLabelValues("replace_all", "ok")); got != 1 {
		t.Fatalf("expected 1 ok, got %v", got)
	}
	if got := testutil.ToFloat64(c.syncTotal.WithLabelValues("replace_all", "error")); got != 1 {
		t.Fatalf("expected 1 error, got %v", got)
	}
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.ObserveResolve("memory", OutcomeHit)
	c.ObserveSync("clear_all", nil, 0)
	c.SetVolatileEntries(3)
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := New()
	c.SetVolatileEntries(4)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "dropview_volatile_entries 4") {
		t.Fatalf("expected gauge in output, got:\n%s", rec.Body.String())
	}
}
