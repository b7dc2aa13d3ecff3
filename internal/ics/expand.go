package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "github.com/renatojobal/fomoff/internal/log"
)

const defaultMaxOccurrences = 500

// Occurrence is one concrete instance of a feed event, in the display zone.
type Occurrence struct {
	FeedID      string
	UID         string
	Summary     string
	Description string
	Location    string
	URL         string
	AllDay      bool
	Start       time.Time
	End         time.Time
}

// ExpandConfig bounds recurrence expansion.
type ExpandConfig struct {
	// Location is the zone occurrences are converted to. Nil means UTC.
	Location *time.Location

	// RangeStart and RangeEnd are inclusive.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrences caps a single recurring event.
	MaxOccurrences int
}

// ExpandOccurrences turns parsed events into occurrences inside the window.
// RRULE, EXDATE and RECURRENCE-ID overrides are honored. The result is
// ordered by start time.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) ([]Occurrence, error) {
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return nil, errors.New("expand: range end is before range start")
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MaxOccurrences <= 0 {
		cfg.MaxOccurrences = defaultMaxOccurrences
	}

	base := make([]ParsedEvent, 0, len(events))
	overrides := make(map[string][]ParsedEvent)
	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		base = append(base, ev)
	}

	out := make([]Occurrence, 0)
	for _, ev := range base {
		if ev.RawRRule == "" {
			if o, ok := expandSingle(ev, overrides[ev.UID], cfg); ok {
				out = append(out, o)
			}
			continue
		}
		occ, capped := expandRecurring(ev, overrides[ev.UID], cfg)
		if capped {
			appLog.Warn("expand: recurrence truncated", "uid", ev.UID, "cap", cfg.MaxOccurrences)
		}
		out = append(out, occ...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}

func expandSingle(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) (Occurrence, bool) {
	if o, ok := overrideFor(overrides, ev.Start); ok {
		ev = o
	}
	if !overlaps(ev.Start, ev.End, cfg.RangeStart, cfg.RangeEnd) {
		return Occurrence{}, false
	}
	return toOccurrence(ev, ev.Start, ev.End, cfg.Location), true
}

func expandRecurring(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]Occurrence, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: invalid RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	starts := set.Between(cfg.RangeStart.In(ev.Start.Location()), cfg.RangeEnd.In(ev.Start.Location()), true)
	capped := false
	if len(starts) > cfg.MaxOccurrences {
		starts = starts[:cfg.MaxOccurrences]
		capped = true
	}

	dur := ev.End.Sub(ev.Start)
	out := make([]Occurrence, 0, len(starts))
	for _, s := range starts {
		inst := ev
		end := s.Add(dur)
		if o, ok := overrideFor(overrides, s); ok {
			inst, s, end = o, o.Start, o.End
		}
		out = append(out, toOccurrence(inst, s, end, cfg.Location))
	}
	return out, capped
}

func overrideFor(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

func toOccurrence(ev ParsedEvent, start, end time.Time, loc *time.Location) Occurrence {
	if ev.AllDay {
		// All-day dates are floating; keep the calendar day as written.
		start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
		end = start.Add(24 * time.Hour)
	} else {
		start = start.In(loc)
		end = end.In(loc)
	}
	return Occurrence{
		FeedID:      ev.Feed.ID,
		UID:         ev.UID,
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		URL:         ev.URL,
		AllDay:      ev.AllDay,
		Start:       start,
		End:         end,
	}
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}
