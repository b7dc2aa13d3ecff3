package viewer

import (
	"net/url"
	"strings"

	"github.com/renatojobal/fomoff/internal/dates"
	"github.com/renatojobal/fomoff/internal/model"
)

const calendarBase = "https://calendar.google.com/calendar/render"

// CalendarOptions fills the location and zone parts of a calendar link.
type CalendarOptions struct {
	Cities   map[string]model.City
	Country  string
	Timezone string
}

// CalendarURL builds a Google Calendar "create event" link. The times are
// sent as floating local stamps and interpreted in opts.Timezone.
func CalendarURL(e model.Event, opts CalendarOptions) string {
	day := strings.ReplaceAll(e.Date, "-", "")
	start := day + "T" + strings.Replace(e.StartTime, ":", "", 1) + "00"
	end := day + "T" + strings.Replace(e.EndTime, ":", "", 1) + "00"
	if strings.TrimSpace(e.EndTime) == "24:00" {
		if d, err := dates.Parse(e.Date); err == nil {
			end = d.AddDate(0, 0, 1).Format("20060102") + "T000000"
		}
	}

	city := e.City
	if c, ok := opts.Cities[e.City]; ok && c.Name != "" {
		city = c.Name
	}
	location := e.Venue + ", " + city
	if opts.Country != "" {
		location += ", " + opts.Country
	}

	var b strings.Builder
	b.WriteString(calendarBase)
	b.WriteString("?action=TEMPLATE")
	b.WriteString("&text=" + escape(e.Name))
	b.WriteString("&dates=" + start + "/" + end)
	b.WriteString("&details=" + escape(e.Description))
	b.WriteString("&location=" + escape(location))
	if opts.Timezone != "" {
		b.WriteString("&ctz=" + opts.Timezone)
	}
	return b.String()
}

// escape percent-encodes a component with spaces as %20.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
