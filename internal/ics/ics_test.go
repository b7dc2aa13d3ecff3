package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/renatojobal/fomoff/internal/model"
)

const feedBody = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//carnaval//ES\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:weekly-1\r\n" +
	"SUMMARY:Verbena del Carnaval\r\n" +
	"LOCATION:Plaza de la Paz\r\n" +
	"DTSTART;TZID=America/Bogota:20260203T190000\r\n" +
	"DTEND;TZID=America/Bogota:20260203T230000\r\n" +
	"RRULE:FREQ=WEEKLY;COUNT=4\r\n" +
	"EXDATE;TZID=America/Bogota:20260210T190000\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:single-1\r\n" +
	"SUMMARY:Lectura del Bando\r\n" +
	"DESCRIPTION:Apertura oficial\\, con desfile\r\n" +
	"DTSTART:20260124T230000Z\r\n" +
	"DTEND:20260125T030000Z\r\n" +
	"URL:https://example.com/bando\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"SUMMARY:Sin identificador\r\n" +
	"DTSTART:20260201T120000Z\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func bogota(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Bogota")
	if err != nil {
		t.Skipf("timezone database unavailable: %v", err)
	}
	return loc
}

func TestParseICS(t *testing.T) {
	events, err := ParseICS(Feed{ID: "carnaval"}, []byte(feedBody))
	if err != nil {
		t.Fatalf("ParseICS failed: %v", err)
	}

	// The VEVENT without UID is skipped.
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}

	var single ParsedEvent
	for _, e := range events {
		if e.UID == "single-1" {
			single = e
		}
	}
	if single.Description != "Apertura oficial, con desfile" {
		t.Errorf("Expected unescaped description, got %q", single.Description)
	}
	if single.URL != "https://example.com/bando" {
		t.Errorf("Expected URL, got %q", single.URL)
	}
	if single.Feed.ID != "carnaval" {
		t.Errorf("Expected feed id carnaval, got %q", single.Feed.ID)
	}
}

func TestParseICS_Empty(t *testing.T) {
	if _, err := ParseICS(Feed{ID: "x"}, nil); err == nil {
		t.Error("Expected error for empty body")
	}
}

func TestExpandOccurrences(t *testing.T) {
	loc := bogota(t)

	events, err := ParseICS(Feed{ID: "carnaval"}, []byte(feedBody))
	if err != nil {
		t.Fatal(err)
	}

	occ, err := ExpandOccurrences(events, ExpandConfig{
		Location:   loc,
		RangeStart: time.Date(2026, 1, 1, 0, 0, 0, 0, loc),
		RangeEnd:   time.Date(2026, 3, 1, 0, 0, 0, 0, loc),
	})
	if err != nil {
		t.Fatalf("ExpandOccurrences failed: %v", err)
	}

	// Bando once, verbena on Feb 3, 17 and 24 (Feb 10 excluded).
	if len(occ) != 4 {
		t.Fatalf("Expected 4 occurrences, got %d", len(occ))
	}

	first := occ[0]
	if first.Summary != "Lectura del Bando" {
		t.Errorf("Expected first occurrence to be the bando, got %q", first.Summary)
	}
	if got := first.Start.Format("2006-01-02 15:04"); got != "2026-01-24 18:00" {
		t.Errorf("Expected local start 2026-01-24 18:00, got %s", got)
	}

	wantDays := []int{3, 17, 24}
	for i, day := range wantDays {
		o := occ[i+1]
		if o.Start.Day() != day || o.Start.Hour() != 19 {
			t.Errorf("Occurrence %d: expected Feb %d 19:00, got %s", i+1, day, o.Start)
		}
		if o.End.Sub(o.Start) != 4*time.Hour {
			t.Errorf("Occurrence %d: expected 4h duration, got %s", i+1, o.End.Sub(o.Start))
		}
	}
}

func TestExpandOccurrences_InvalidRange(t *testing.T) {
	now := time.Now()
	_, err := ExpandOccurrences(nil, ExpandConfig{RangeStart: now, RangeEnd: now.Add(-time.Hour)})
	if err == nil {
		t.Error("Expected error when range end precedes start")
	}
}

func TestExport(t *testing.T) {
	loc := bogota(t)
	url := "https://example.com/batalla"

	events := []model.Event{
		{ID: "abc123", Name: "Batalla de Flores", City: "barranquilla", Venue: "Vía 40",
			Date: "2026-02-14", StartTime: "18:00", EndTime: "23:00", URL: &url},
		{ID: "broken", Name: "Sin hora", City: "barranquilla", Venue: "X",
			Date: "2026-02-14", StartTime: "tarde", EndTime: "23:00"},
	}

	body, skipped := Export(events, ExportOptions{
		Location: loc,
		Cities:   map[string]model.City{"barranquilla": {Name: "Barranquilla"}},
		Country:  "Colombia",
		Stamp:    time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	if skipped != 1 {
		t.Errorf("Expected 1 skipped event, got %d", skipped)
	}

	required := []string{
		"BEGIN:VCALENDAR",
		"PRODID:-//FOMOff//Carnaval events//ES",
		"METHOD:PUBLISH",
		"UID:" + EventUID("abc123"),
		"DTSTART:20260214T230000Z",
		"DTEND:20260215T040000Z",
		"SUMMARY:Batalla de Flores",
		"END:VCALENDAR",
	}
	for _, field := range required {
		if !strings.Contains(body, field) {
			t.Errorf("ICS output missing %s", field)
		}
	}
	if strings.Count(body, "BEGIN:VEVENT") != 1 {
		t.Errorf("Expected exactly one VEVENT, got %d", strings.Count(body, "BEGIN:VEVENT"))
	}
}

func TestEventUID_Stable(t *testing.T) {
	if EventUID("abc") != EventUID("abc") {
		t.Error("Expected stable UID")
	}
	if EventUID("abc") == EventUID("abd") {
		t.Error("Expected distinct UIDs for distinct ids")
	}
}

func TestLocation(t *testing.T) {
	e := model.Event{Venue: "Estadio", City: "santamarta"}
	if got := Location(e, nil, "Colombia"); got != "Estadio, santamarta, Colombia" {
		t.Errorf("Unexpected location %q", got)
	}
	cities := map[string]model.City{"santamarta": {Name: "Santa Marta"}}
	if got := Location(e, cities, ""); got != "Estadio, Santa Marta" {
		t.Errorf("Unexpected location %q", got)
	}
}

func TestFetcher_ConditionalRequests(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir()).WithClient(srv.Client())
	feed := Feed{ID: "carnaval", URL: srv.URL + "/feed.ics?token=secret"}

	first, err := f.Fetch(context.Background(), feed)
	if err != nil {
		t.Fatalf("First fetch failed: %v", err)
	}
	if first.FromCache {
		t.Error("First fetch should not come from cache")
	}

	second, err := f.Fetch(context.Background(), feed)
	if err != nil {
		t.Fatalf("Second fetch failed: %v", err)
	}
	if !second.FromCache {
		t.Error("Expected 304 to reuse cached body")
	}
	if string(second.Body) != feedBody {
		t.Error("Cached body does not match original")
	}
	if hits != 2 {
		t.Errorf("Expected 2 requests, got %d", hits)
	}
}

func TestFetcher_ErrorWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir()).WithClient(srv.Client())
	if _, err := f.Fetch(context.Background(), Feed{ID: "x", URL: srv.URL}); err == nil {
		t.Error("Expected error for 500 without cache")
	}
}

func TestRedactURL(t *testing.T) {
	got := redactURL("https://example.com/private.ics?token=abcd")
	if got != "https://example.com/...(redacted)" {
		t.Errorf("Unexpected redaction %q", got)
	}
	if got := redactURL("not a url"); got != "ics://...(redacted)" {
		t.Errorf("Unexpected redaction %q", got)
	}
}
