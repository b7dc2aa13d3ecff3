// Package viewer holds the page logic of the read-only event viewer:
// filtering, saved events, conflict detection, calendar links and the
// countdown. Everything here is pure; the web package only renders it.
package viewer

import (
	"sort"

	"github.com/renatojobal/fomoff/internal/dates"
	"github.com/renatojobal/fomoff/internal/model"
)

// All matches every city or category.
const All = "all"

// AfterWorkHour is the first start hour that counts as after work.
const AfterWorkHour = 17

// Filter is the transient listing filter.
type Filter struct {
	City      string
	Category  string
	AfterWork bool
}

// DefaultFilter shows everything.
func DefaultFilter() Filter {
	return Filter{City: All, Category: All}
}

func (f Filter) normalized() Filter {
	if f.City == "" {
		f.City = All
	}
	if f.Category == "" {
		f.Category = All
	}
	return f
}

// Match reports whether e passes every active criterion. An event whose
// start hour cannot be read never passes the after-work criterion.
func (f Filter) Match(e model.Event) bool {
	f = f.normalized()
	if f.City != All && e.City != f.City {
		return false
	}
	if f.Category != All && e.Category != f.Category {
		return false
	}
	if f.AfterWork {
		h, ok := dates.Hour(e.StartTime)
		if !ok || h < AfterWorkHour {
			return false
		}
	}
	return true
}

// FilterEvents returns the events matching f in their original order.
func FilterEvents(events []model.Event, f Filter) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// SortByDate returns a date-ascending copy; ties keep input order.
func SortByDate(events []model.Event) []model.Event {
	out := make([]model.Event, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date < out[j].Date
	})
	return out
}

// Overlaps reports whether two events share a date and their half-open
// [start, end) minute ranges intersect. Unreadable times never overlap.
func Overlaps(a, b model.Event) bool {
	if a.Date != b.Date {
		return false
	}
	aStart, err1 := dates.Minutes(a.StartTime)
	aEnd, err2 := dates.EndMinutes(a.EndTime)
	bStart, err3 := dates.Minutes(b.StartTime)
	bEnd, err4 := dates.EndMinutes(b.EndTime)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return false
	}
	return aStart < bEnd && aEnd > bStart
}

// Conflicts returns the ids of saved events that overlap at least one
// other saved event. Unsaved events are never included.
func Conflicts(events []model.Event, saved SavedSet) map[string]bool {
	picked := make([]model.Event, 0, len(saved))
	for _, e := range events {
		if saved.Has(e.ID) {
			picked = append(picked, e)
		}
	}

	out := make(map[string]bool)
	for i := range picked {
		for j := i + 1; j < len(picked); j++ {
			if picked[i].ID == picked[j].ID {
				continue
			}
			if Overlaps(picked[i], picked[j]) {
				out[picked[i].ID] = true
				out[picked[j].ID] = true
			}
		}
	}
	return out
}

// SavedEvents returns the saved events in date order.
func SavedEvents(events []model.Event, saved SavedSet) []model.Event {
	out := make([]model.Event, 0, len(saved))
	for _, e := range events {
		if saved.Has(e.ID) {
			out = append(out, e)
		}
	}
	return SortByDate(out)
}

// Find returns the event with id.
func Find(events []model.Event, id string) (model.Event, bool) {
	for _, e := range events {
		if e.ID == id {
			return e, true
		}
	}
	return model.Event{}, false
}
