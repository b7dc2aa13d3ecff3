package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/renatojobal/fomoff/internal/dates"
	"github.com/renatojobal/fomoff/internal/model"
)

// uidNamespace scopes exported UIDs so the same event id always maps to
// the same calendar UID across exports.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://fomoff.app/events"))

// ExportOptions controls how stored events are rendered into VEVENTs.
type ExportOptions struct {
	// Location interprets the wall-clock date and times of each event.
	Location *time.Location
	// Cities resolves city codes to display names for LOCATION.
	Cities map[string]model.City
	// Country is appended to LOCATION ("Colombia").
	Country string
	// Stamp is written as DTSTAMP.
	Stamp time.Time
}

// EventUID returns the stable calendar UID of a stored event id.
func EventUID(id string) string {
	return uuid.NewSHA1(uidNamespace, []byte(id)).String() + "@fomoff"
}

// Export serializes events as a VCALENDAR. Events whose date or times do
// not parse are skipped and counted in the returned skip total.
func Export(events []model.Event, opts ExportOptions) (string, int) {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//FOMOff//Carnaval events//ES")
	cal.SetXWRCalName("FOMOff - Mis eventos")

	skipped := 0
	for _, e := range events {
		start, end, err := EventSpan(e, loc)
		if err != nil {
			skipped++
			continue
		}

		ve := cal.AddEvent(EventUID(e.ID))
		ve.SetDtStampTime(opts.Stamp)
		ve.SetStartAt(start)
		ve.SetEndAt(end)
		ve.SetSummary(e.Name)
		if e.Description != "" {
			ve.SetDescription(e.Description)
		}
		ve.SetLocation(Location(e, opts.Cities, opts.Country))
		if u := model.Deref(e.URL); u != "" {
			ve.SetURL(u)
		}
	}

	return cal.Serialize(), skipped
}

// EventSpan resolves the stored wall-clock date and times in loc.
func EventSpan(e model.Event, loc *time.Location) (time.Time, time.Time, error) {
	if err := dates.Validate(e.Date); err != nil {
		return time.Time{}, time.Time{}, err
	}
	startMin, err := dates.Minutes(e.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endMin, err := dates.EndMinutes(e.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	day, _ := time.ParseInLocation("2006-01-02", e.Date, loc)
	start := day.Add(time.Duration(startMin) * time.Minute)
	end := day.Add(time.Duration(endMin) * time.Minute)
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("event %s: end %s is not after start %s", e.ID, e.EndTime, e.StartTime)
	}
	return start, end, nil
}

// Location formats "venue, city, country" with the city display name when
// known and the raw code otherwise.
func Location(e model.Event, cities map[string]model.City, country string) string {
	city := e.City
	if c, ok := cities[e.City]; ok && c.Name != "" {
		city = c.Name
	}
	s := e.Venue + ", " + city
	if country != "" {
		s += ", " + country
	}
	return s
}
