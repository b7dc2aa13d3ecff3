// Package metrics holds the Prometheus collectors of both binaries. Each
// process builds its own registry so tests never share global state.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fomoff"

// Catalog instruments the editor.
type Catalog struct {
	added        *prometheus.CounterVec
	duplicates   prometheus.Counter
	rejected     *prometheus.CounterVec
	sourceErrors *prometheus.CounterVec
	lastRun      prometheus.Gauge
	runDuration  prometheus.Histogram
}

// NewCatalog registers editor collectors on reg. A nil reg yields
// collectors that are updated but never exported.
func NewCatalog(reg prometheus.Registerer) *Catalog {
	f := promauto.With(reg)
	return &Catalog{
		added: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "events_added_total",
			Help:      "Events appended to the data store, by source.",
		}, []string{"source"}),
		duplicates: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "duplicates_total",
			Help:      "Candidates skipped because the event already exists.",
		}),
		rejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "rejected_total",
			Help:      "Candidates rejected by validation, by reason.",
		}, []string{"reason"}),
		sourceErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "source_errors_total",
			Help:      "Source fetch failures, by source.",
		}, []string{"source"}),
		lastRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed run.",
		}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a full run over all sources.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (c *Catalog) Added(source string) { c.added.WithLabelValues(source).Inc() }
func (c *Catalog) Duplicate() { c.duplicates.Inc() }
func (c *Catalog) Rejected(reason string) { c.rejected.WithLabelValues(reason).Inc() }
func (c *Catalog) SourceError(source string) { c.sourceErrors.WithLabelValues(source).Inc() }

// RunDone records the end of a run that started at start.
func (c *Catalog) RunDone(start, end time.Time) {
	c.runDuration.Observe(end.Sub(start).Seconds())
	c.lastRun.Set(float64(end.Unix()))
}

// Viewer instruments the read-only page server.
type Viewer struct {
	requests      *prometheus.CounterVec
	toggles       *prometheus.CounterVec
	calendarLinks prometheus.Counter
	exports       prometheus.Counter
	loadedEvents  prometheus.Gauge
	loadFailures  prometheus.Counter
}

func NewViewer(reg prometheus.Registerer) *Viewer {
	f := promauto.With(reg)
	return &Viewer{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "viewer",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		toggles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "viewer",
			Name:      "saved_toggles_total",
			Help:      "Save toggles by direction.",
		}, []string{"action"}),
		calendarLinks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "viewer",
			Name:      "calendar_links_total",
			Help:      "Calendar deep-link redirects served.",
		}),
		exports: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "viewer",
			Name:      "ics_exports_total",
			Help:      "Saved-event iCalendar downloads.",
		}),
		loadedEvents: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "viewer",
			Name:      "loaded_events",
			Help:      "Events in the document loaded at startup.",
		}),
		loadFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "viewer",
			Name:      "load_failures_total",
			Help:      "Failed attempts to load the data store.",
		}),
	}
}

func (v *Viewer) Request(route string, code int) {
	v.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

func (v *Viewer) Toggle(saved bool) {
	action := "unsave"
	if saved {
		action = "save"
	}
	v.toggles.WithLabelValues(action).Inc()
}

func (v *Viewer) CalendarLink() { v.calendarLinks.Inc() }
func (v *Viewer) Export() { v.exports.Inc() }
func (v *Viewer) Loaded(n int) { v.loadedEvents.Set(float64(n)) }
func (v *Viewer) LoadFailed() { v.loadFailures.Inc() }

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler exposes reg in the text exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
