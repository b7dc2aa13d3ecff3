package web

import (
	"bytes"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/renatojobal/fomoff/internal/ics"
	appLog "github.com/renatojobal/fomoff/internal/log"
	"github.com/renatojobal/fomoff/internal/metrics"
	"github.com/renatojobal/fomoff/internal/model"
	"github.com/renatojobal/fomoff/internal/store"
	"github.com/renatojobal/fomoff/internal/viewer"
)

// savedCookieMaxAge keeps the saved set for ten years.
const savedCookieMaxAge = 10 * 365 * 24 * 60 * 60

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /events/{id}", s.handleDetail)
	s.mux.HandleFunc("GET /events/{id}/calendar", s.handleCalendar)
	s.mux.HandleFunc("POST /events/{id}/save", s.handleToggleSave)
	s.mux.HandleFunc("GET /my-events.ics", s.handleExport)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/countdown", s.handleCountdown)
	s.mux.Handle("GET /metrics", metrics.Handler(s.reg))
	s.mux.Handle("GET /static/", s.staticFileServer())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// stateFromRequest rebuilds the visitor state from the query string and
// the saved-set cookie.
func stateFromRequest(r *http.Request) viewer.State {
	st := viewer.State{Filter: viewer.DefaultFilter(), Saved: savedFromRequest(r)}

	q := r.URL.Query()
	if v := q.Get("city"); v != "" {
		st = viewer.Reduce(st, viewer.SetCity{City: v})
	}
	if v := q.Get("category"); v != "" {
		st = viewer.Reduce(st, viewer.SetCategory{Category: v})
	}
	if v := q.Get("afterwork"); v == "1" || v == "on" || v == "true" {
		st = viewer.Reduce(st, viewer.SetAfterWork{On: true})
	}
	return st
}

func savedFromRequest(r *http.Request) viewer.SavedSet {
	c, err := r.Cookie(viewer.SavedCookie)
	if err != nil {
		return viewer.SavedSet{}
	}
	return viewer.DecodeSaved(c.Value)
}

// filterQuery encodes f back into a query string for links.
func filterQuery(f viewer.Filter) string {
	q := url.Values{}
	if f.City != "" && f.City != viewer.All {
		q.Set("city", f.City)
	}
	if f.Category != "" && f.Category != viewer.All {
		q.Set("category", f.Category)
	}
	if f.AfterWork {
		q.Set("afterwork", "1")
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

type indexData struct {
	viewer.Page
	// Return brings the visitor back to the same filtered listing after
	// toggling a saved event.
	Return        string
	CountdownText string
}

// cardView is a list row plus the path its save form returns to.
type cardView struct {
	viewer.Card
	Return string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	st := stateFromRequest(r)
	page := viewer.BuildPage(s.doc, st, s.currentCountdown(), viewer.PageOptions{Location: s.loc})
	s.render(w, http.StatusOK, "index.html", indexData{
		Page:          page,
		Return:        "/" + filterQuery(page.Filter),
		CountdownText: viewer.ArrivedMessage,
	})
}

type detailData struct {
	viewer.Detail
	Return      string
	MsgOfficial string
	MsgMoreInfo string
	MsgConflict string
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}

	d := viewer.NewDetail(s.doc, e, savedFromRequest(r), viewer.DetailOptions{
		Calendar:      s.calendarOptions(),
		ReferenceCity: s.cfg.Viewer.ReferenceCity,
	})
	s.render(w, http.StatusOK, "detail.html", detailData{
		Detail:      d,
		Return:      "/events/" + url.PathEscape(e.ID),
		MsgOfficial: viewer.MsgOfficial,
		MsgMoreInfo: viewer.MsgMoreInfo,
		MsgConflict: viewer.MsgConflict,
	})
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.metrics.CalendarLink()
	http.Redirect(w, r, viewer.CalendarURL(e, s.calendarOptions()), http.StatusFound)
}

// handleToggleSave flips membership of the event in the saved set and
// sends the visitor back to where the form was posted from.
func (s *Server) handleToggleSave(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}

	st := viewer.Reduce(viewer.State{Saved: savedFromRequest(r)}, viewer.ToggleSaved{ID: e.ID})
	saved := st.Saved.Has(e.ID)
	s.metrics.Toggle(saved)

	http.SetCookie(w, &http.Cookie{
		Name:     viewer.SavedCookie,
		Value:    st.Saved.Encode(),
		Path:     "/",
		MaxAge:   savedCookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	appLog.Debug("saved set toggled", "id", e.ID, "saved", saved, "count", len(st.Saved))

	http.Redirect(w, r, safeReturn(r.FormValue("return")), http.StatusSeeOther)
}

// safeReturn only allows local absolute paths.
func safeReturn(v string) string {
	if v == "" || !strings.HasPrefix(v, "/") || strings.HasPrefix(v, "//") || strings.HasPrefix(v, "/\\") {
		return "/"
	}
	return v
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.doc == nil {
		writeError(w, http.StatusServiceUnavailable, "events not loaded")
		return
	}

	saved := viewer.SavedEvents(s.doc.Events, savedFromRequest(r))
	body, skipped := ics.Export(saved, ics.ExportOptions{
		Location: s.loc,
		Cities:   s.doc.Cities,
		Country:  s.cfg.Viewer.Country,
		Stamp:    s.now(),
	})
	if skipped > 0 {
		appLog.Warn("ics export skipped events with unreadable times", "skipped", skipped)
	}
	s.metrics.Export()

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="fomoff.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	if s.doc == nil {
		writeError(w, http.StatusServiceUnavailable, "events not loaded")
		return
	}
	writeJSON(w, http.StatusOK, s.doc)
}

type countdownResponse struct {
	viewer.Countdown
	Target  time.Time `json:"target"`
	Message string    `json:"message,omitempty"`
}

func (s *Server) handleCountdown(w http.ResponseWriter, _ *http.Request) {
	resp := countdownResponse{Countdown: s.currentCountdown(), Target: s.target}
	if resp.Arrived {
		resp.Message = viewer.ArrivedMessage
	}
	writeJSON(w, http.StatusOK, resp)
}

// lookup resolves {id}, writing 404 (or 503 without a document).
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (model.Event, bool) {
	if s.doc == nil {
		http.Error(w, viewer.MsgLoadError, http.StatusServiceUnavailable)
		return model.Event{}, false
	}
	e, ok := store.Find(s.doc, r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return model.Event{}, false
	}
	return e, true
}

func (s *Server) calendarOptions() viewer.CalendarOptions {
	opts := viewer.CalendarOptions{
		Country:  s.cfg.Viewer.Country,
		Timezone: s.cfg.Timezone,
	}
	if s.doc != nil {
		opts.Cities = s.doc.Cities
	}
	return opts
}

// render executes into a buffer so a template error never leaves a half
// written page.
func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		appLog.Error("template render failed", err, "template", name)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func parseTemplates() (*template.Template, error) {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return nil, err
	}
	return template.New("").Funcs(template.FuncMap{
		"filterLink": func(f viewer.Filter, key, value string) string {
			switch key {
			case "city":
				f.City = value
			case "category":
				f.Category = value
			}
			return "/" + filterQuery(f)
		},
		"pathEscape": url.PathEscape,
		"cardView": func(c viewer.Card, ret string) cardView {
			return cardView{Card: c, Return: ret}
		},
	}).ParseFS(sub, "*.html")
}
