package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/renatojobal/fomoff/internal/auth"
	"github.com/renatojobal/fomoff/internal/config"
	"github.com/renatojobal/fomoff/internal/model"
	"github.com/renatojobal/fomoff/internal/viewer"
)

func testDocument() *model.Document {
	price := "$80,000"
	return &model.Document{
		LastUpdated: "2026-02-01T17:30:00.000Z",
		Events: []model.Event{
			{ID: "e1", Name: "Fiesta Blanca", Date: "2026-02-14", StartTime: "18:00", EndTime: "23:00", City: "barranquilla", Category: "fiesta", Venue: "Hotel X", Price: &price},
			{ID: "e2", Name: "Batalla de Flores", Date: "2026-02-14", StartTime: "10:00", EndTime: "16:00", City: "barranquilla", Category: "desfile", Venue: "Vía 40", Official: true},
			{ID: "e3", Name: "Concierto", Date: "2026-02-14", StartTime: "20:00", EndTime: "23:30", City: "santamarta", Category: "fiesta", Venue: "Estadio"},
		},
		Cities: map[string]model.City{
			"barranquilla": {Name: "Barranquilla", Emoji: "🎭", TravelTime: 90},
			"santamarta":   {Name: "Santa Marta", Emoji: "🏖️"},
		},
		Categories: map[string]model.Category{
			"fiesta":  {Name: "Fiesta", Emoji: "🎉"},
			"desfile": {Name: "Desfile", Emoji: "💃"},
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, doc *model.Document) *Server {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	s, err := NewServer(cfg, WithClock(func() time.Time { return now }), WithRegistry(prometheus.NewRegistry()))
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	if doc != nil {
		s.SetDocument(doc)
	}
	return s
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func savedCookie(ids ...string) *http.Cookie {
	return &http.Cookie{Name: viewer.SavedCookie, Value: viewer.SavedSet(ids).Encode()}
}

func TestIndex_ListsAllEvents(t *testing.T) {
	s := newTestServer(t, nil, testDocument())
	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Fiesta Blanca", "Batalla de Flores", "Concierto", `data-ready="true"`, viewer.MsgNoneSaved} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected body to contain %q", want)
		}
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("Expected X-Request-Id header")
	}
}

func TestIndex_Filters(t *testing.T) {
	s := newTestServer(t, nil, testDocument())

	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/?city=barranquilla&afterwork=1", nil))
	body := rec.Body.String()
	if !strings.Contains(body, "Fiesta Blanca") {
		t.Error("Expected Fiesta Blanca in filtered listing")
	}
	if strings.Contains(body, "Batalla de Flores") || strings.Contains(body, "Concierto") {
		t.Error("Expected filtered-out events to be absent")
	}

	rec = do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/?city=cartagena", nil))
	if !strings.Contains(rec.Body.String(), viewer.MsgNoMatches) {
		t.Error("Expected no-matches message")
	}
}

func TestIndex_LoadError(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataFile = filepath.Join(t.TempDir(), "missing.json")
	s := newTestServer(t, cfg, nil)
	if err := s.Load(context.Background()); err == nil {
		t.Fatal("Expected load error for missing file")
	}

	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), viewer.MsgLoadError) {
		t.Error("Expected load error message")
	}

	rec = do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/api/events", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", rec.Code)
	}
}

func TestLoad_FromFileAndURL(t *testing.T) {
	data, err := json.Marshal(testDocument())
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "events.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := LoadDocument(context.Background(), http.DefaultClient, path)
	if err != nil {
		t.Fatalf("LoadDocument(file) failed: %v", err)
	}
	if len(doc.Events) != 3 {
		t.Errorf("Expected 3 events, got %d", len(doc.Events))
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(data)
	}))
	defer ts.Close()

	doc, err = LoadDocument(context.Background(), ts.Client(), ts.URL+"/events.json")
	if err != nil {
		t.Fatalf("LoadDocument(url) failed: %v", err)
	}
	if doc.Cities["santamarta"].Name != "Santa Marta" {
		t.Errorf("Expected Santa Marta, got %q", doc.Cities["santamarta"].Name)
	}
}

func TestDetail(t *testing.T) {
	s := newTestServer(t, nil, testDocument())

	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/events/e2", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Batalla de Flores", viewer.MsgOfficial, "(~90 min desde Santa Marta)", "10:00 - 16:00", viewer.LabelNotSaved} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected detail to contain %q", want)
		}
	}

	rec = do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/events/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestDetail_Conflict(t *testing.T) {
	s := newTestServer(t, nil, testDocument())

	req := httptest.NewRequest(http.MethodGet, "/events/e1", nil)
	req.AddCookie(savedCookie("e1", "e3"))
	body := do(t, s.Handler(), req).Body.String()

	if !strings.Contains(body, viewer.MsgConflict) {
		t.Error("Expected conflict badge for overlapping saved events")
	}
	if !strings.Contains(body, viewer.LabelSaved) {
		t.Error("Expected saved label")
	}
}

func TestCalendarRedirect(t *testing.T) {
	s := newTestServer(t, nil, testDocument())

	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/events/e1/calendar", nil))
	if rec.Code != http.StatusFound {
		t.Fatalf("Expected status 302, got %d", rec.Code)
	}
	loc := rec.Header().Get("Location")
	if !strings.HasPrefix(loc, "https://calendar.google.com/calendar/render?action=TEMPLATE") {
		t.Errorf("Unexpected redirect %q", loc)
	}
	if !strings.Contains(loc, "dates=20260214T180000/20260214T230000") {
		t.Errorf("Expected dates in %q", loc)
	}
}

func TestToggleSave(t *testing.T) {
	s := newTestServer(t, nil, testDocument())

	form := url.Values{"return": {"/?city=barranquilla"}}
	req := httptest.NewRequest(http.MethodPost, "/events/e2/save", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(savedCookie("e1"))
	rec := do(t, s.Handler(), req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("Expected status 303, got %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/?city=barranquilla" {
		t.Errorf("Expected redirect back to listing, got %q", got)
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == viewer.SavedCookie {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("Expected saved cookie to be set")
	}
	saved := viewer.DecodeSaved(cookie.Value)
	if len(saved) != 2 || saved[0] != "e1" || saved[1] != "e2" {
		t.Errorf("Expected [e1 e2], got %v", saved)
	}

	// Toggling again removes it.
	req = httptest.NewRequest(http.MethodPost, "/events/e1/save", nil)
	req.AddCookie(cookie)
	rec = do(t, s.Handler(), req)
	if got := rec.Header().Get("Location"); got != "/" {
		t.Errorf("Expected redirect to /, got %q", got)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == viewer.SavedCookie {
			saved = viewer.DecodeSaved(c.Value)
		}
	}
	if len(saved) != 1 || saved[0] != "e2" {
		t.Errorf("Expected [e2], got %v", saved)
	}
}

func TestToggleSave_UnknownEvent(t *testing.T) {
	s := newTestServer(t, nil, testDocument())
	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodPost, "/events/zzz/save", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestSafeReturn(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/events/e1", "/events/e1"},
		{"//evil.example", "/"},
		{"https://evil.example", "/"},
		{"/\\evil.example", "/"},
	}
	for _, tt := range tests {
		if got := safeReturn(tt.in); got != tt.want {
			t.Errorf("safeReturn(%q): Expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestExportSaved(t *testing.T) {
	s := newTestServer(t, nil, testDocument())

	req := httptest.NewRequest(http.MethodGet, "/my-events.ics", nil)
	req.AddCookie(savedCookie("e1"))
	rec := do(t, s.Handler(), req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("Expected text/calendar, got %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "SUMMARY:Fiesta Blanca") {
		t.Error("Expected saved event in export")
	}
	if strings.Contains(body, "Concierto") {
		t.Error("Expected unsaved event to be left out")
	}
}

func TestCountdownAPI(t *testing.T) {
	s := newTestServer(t, nil, testDocument())

	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/api/countdown", nil))
	var got countdownResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	// 2026-02-10T12:00Z to 2026-02-14T05:00Z.
	if got.Days != 3 || got.Hours != 17 || got.Arrived {
		t.Errorf("Expected 3d 17h, got %+v", got.Countdown)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, nil, testDocument())
	h := s.Handler()

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("Expected 200 OK, got %d %q", rec.Code, rec.Body.String())
	}

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "fomoff_viewer_loaded_events") {
		t.Error("Expected viewer metrics to be exported")
	}
}

func TestStaticAssets(t *testing.T) {
	s := newTestServer(t, nil, testDocument())
	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
}

func TestBasicAuth(t *testing.T) {
	hash, err := auth.HashPassword("s3cret")
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.DefaultConfig()
	cfg.Viewer.BasicAuth = &config.BasicAuthConfig{Username: "admin", PasswordHash: hash}
	h := newTestServer(t, cfg, testDocument()).Handler()

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("admin", "s3cret")
	if rec := do(t, h, req); rec.Code != http.StatusOK {
		t.Errorf("Expected status 200 with credentials, got %d", rec.Code)
	}

	if rec := do(t, h, httptest.NewRequest(http.MethodGet, "/health", nil)); rec.Code != http.StatusOK {
		t.Errorf("Expected /health to bypass auth, got %d", rec.Code)
	}
}
