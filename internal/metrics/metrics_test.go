package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCatalogCounters(t *testing.T) {
	reg := NewRegistry()
	c := NewCatalog(reg)

	c.Added("manual")
	c.Added("manual")
	c.Duplicate()
	c.SourceError("carnaval")
	c.RunDone(time.Unix(100, 0), time.Unix(102, 0))

	if got := testutil.ToFloat64(c.added.WithLabelValues("manual")); got != 2 {
		t.Errorf("Expected 2 added, got %v", got)
	}
	if got := testutil.ToFloat64(c.lastRun); got != 102 {
		t.Errorf("Expected last run 102, got %v", got)
	}
}

func TestNilRegistererStillCounts(t *testing.T) {
	v := NewViewer(nil)
	v.Toggle(true)
	v.Toggle(false)
	v.Toggle(true)

	if got := testutil.ToFloat64(v.toggles.WithLabelValues("save")); got != 2 {
		t.Errorf("Expected 2 saves, got %v", got)
	}
}

func TestHandlerExposesViewerMetrics(t *testing.T) {
	reg := NewRegistry()
	v := NewViewer(reg)
	v.Loaded(7)
	v.Request("/", 200)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		"fomoff_viewer_loaded_events 7",
		`fomoff_viewer_requests_total{code="200",route="/"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Metrics output missing %s", want)
		}
	}
}
