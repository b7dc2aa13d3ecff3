package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/renatojobal/fomoff/internal/auth"
	"github.com/renatojobal/fomoff/internal/config"
	appLog "github.com/renatojobal/fomoff/internal/log"
	"github.com/renatojobal/fomoff/internal/metrics"
	"github.com/renatojobal/fomoff/internal/model"
	"github.com/renatojobal/fomoff/internal/viewer"
)

// Server renders the read-only viewer. The document is loaded once and
// never written back; per-visitor state travels in the query string and
// the saved-set cookie.
type Server struct {
	cfg *config.Config
	mux *http.ServeMux
	loc *time.Location
	now func() time.Time

	client *http.Client
	tmpl   *template.Template

	// doc is nil when loading failed; loadErr says why.
	doc     *model.Document
	loadErr error

	target      time.Time
	countdownMu sync.RWMutex
	countdown   viewer.Countdown
	cron        *cron.Cron

	reg     *prometheus.Registry
	metrics *metrics.Viewer
}

//go:embed all:static
var embeddedStatic embed.FS

//go:embed templates/*.html
var embeddedTemplates embed.FS

type Option func(*Server)

// WithClock replaces time.Now for the countdown.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithRegistry exports viewer metrics on reg and serves it on /metrics.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) { s.reg = reg }
}

// WithHTTPClient sets the client used to fetch a remote data store.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Server) { s.client = c }
}

// NewServer constructs a Server. Call Load before serving.
func NewServer(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		mux:    http.NewServeMux(),
		loc:    cfg.Location(),
		now:    time.Now,
		client: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reg == nil {
		s.reg = metrics.NewRegistry()
	}
	s.metrics = metrics.NewViewer(s.reg)

	target, err := cfg.CountdownInstant()
	if err != nil {
		return nil, err
	}
	s.target = target
	s.tickCountdown()

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	s.tmpl = tmpl

	s.registerRoutes()
	return s, nil
}

// Load fetches the data store once. A failure is remembered and every
// page shows the load-error state; it is not retried.
func (s *Server) Load(ctx context.Context) error {
	src := s.cfg.ViewerDataSource()
	doc, err := LoadDocument(ctx, s.client, src)
	if err != nil {
		s.doc, s.loadErr = nil, err
		s.metrics.LoadFailed()
		appLog.Error("failed to load data store", err, "source", src)
		return err
	}
	s.doc, s.loadErr = doc, nil
	s.metrics.Loaded(len(doc.Events))
	appLog.Info("data store loaded", "source", src, "events", len(doc.Events), "last_updated", doc.LastUpdated)
	return nil
}

// SetDocument installs an already loaded document.
func (s *Server) SetDocument(doc *model.Document) {
	s.doc, s.loadErr = doc, nil
	s.metrics.Loaded(len(doc.Events))
}

// Handler returns the routes wrapped with request logging and, when
// configured, Basic Auth (everything except /health).
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if ba := s.cfg.Viewer.BasicAuth; ba != nil {
		appLog.Info("HTTP basic auth enabled", "user", ba.Username)
		guard := &auth.BasicAuth{
			Username:     ba.Username,
			PasswordHash: ba.PasswordHash,
			Realm:        "FOMOff",
			Exempt:       map[string]bool{"/health": true},
		}
		h = guard.Wrap(h)
	}
	return s.requestLog(h)
}

// LocalHandler is Handler without Basic Auth, for loopback captures.
func (s *Server) LocalHandler() http.Handler {
	return s.requestLog(s.mux)
}

// StartCountdown recomputes the countdown every minute until ctx is done.
func (s *Server) StartCountdown(ctx context.Context) error {
	logger := appLog.CronLogger{}
	c := cron.New(cron.WithLocation(s.loc), cron.WithLogger(logger))
	if _, err := c.AddFunc("@every 60s", s.tickCountdown); err != nil {
		return err
	}
	s.cron = c
	c.Start()

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return nil
}

func (s *Server) tickCountdown() {
	cd := viewer.CountdownTo(s.target, s.now())
	s.countdownMu.Lock()
	s.countdown = cd
	s.countdownMu.Unlock()
}

func (s *Server) currentCountdown() viewer.Countdown {
	s.countdownMu.RLock()
	defer s.countdownMu.RUnlock()
	return s.countdown
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Viewer.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Viewer.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// statusRecorder captures the status code for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		started := time.Now()
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.metrics.Request(route, rec.status)
		appLog.Debug("http request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", time.Since(started).String(),
		)
	})
}

func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static assets not available", http.StatusServiceUnavailable)
		})
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
