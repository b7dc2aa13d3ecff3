package viewer

import (
	"fmt"
	"sort"
	"time"

	"github.com/renatojobal/fomoff/internal/dates"
	"github.com/renatojobal/fomoff/internal/model"
)

const (
	MsgLoadError  = "Error cargando eventos 😢"
	MsgNoMatches  = "No hay eventos con estos filtros 🔍"
	MsgNoneSaved  = "Aún no has agregado eventos. ¡Haz clic en ⭐ para guardar!"
	MsgConflict   = "⚠️ Conflicto"
	MsgOfficial   = "✅ Evento oficial"
	MsgMoreInfo   = "🔗 Más información"
	LabelSaved    = "⭐ Guardado"
	LabelNotSaved = "☆ Guardar"
)

var (
	monthsES   = [12]string{"Ene", "Feb", "Mar", "Abr", "May", "Jun", "Jul", "Ago", "Sep", "Oct", "Nov", "Dic"}
	weekdaysES = [7]string{"Dom", "Lun", "Mar", "Mié", "Jue", "Vie", "Sáb"}
)

// Card is one row of an event list.
type Card struct {
	ID            string
	Name          string
	CityCode      string
	CityName      string
	CityEmoji     string
	CategoryEmoji string
	StartTime     string
	Venue         string
	Price         string
	Day           string
	Month         string
	Weekday       string
	Saved         bool
	Conflict      bool
}

// Detail is the expanded view of one event.
type Detail struct {
	Card
	Description string
	DateLabel   string
	TimeRange   string
	TravelLabel string
	Official    bool
	URL         string
	CalendarURL string
	SaveLabel   string
}

// Option is a filter choice.
type Option struct {
	Code   string
	Label  string
	Active bool
}

// Page is everything the listing template needs.
type Page struct {
	Events       []Card
	Saved        []Card
	Cities       []Option
	Categories   []Option
	Filter       Filter
	LastUpdated  string
	Countdown    Countdown
	EmptyMessage string
	SavedEmpty   string
	LoadError    string
}

// PageOptions carries the environment a page is rendered in.
type PageOptions struct {
	Location *time.Location
}

// BuildPage derives the listing page for doc under state. A nil doc
// yields the load-error page.
func BuildPage(doc *model.Document, state State, cd Countdown, opts PageOptions) Page {
	p := Page{Filter: state.Filter.normalized(), Countdown: cd}
	if doc == nil {
		p.LoadError = MsgLoadError
		return p
	}

	conflicts := Conflicts(doc.Events, state.Saved)

	for _, e := range SortByDate(FilterEvents(doc.Events, p.Filter)) {
		p.Events = append(p.Events, NewCard(doc, e, state.Saved, conflicts))
	}
	if len(p.Events) == 0 {
		p.EmptyMessage = MsgNoMatches
	}

	for _, e := range SavedEvents(doc.Events, state.Saved) {
		p.Saved = append(p.Saved, NewCard(doc, e, state.Saved, conflicts))
	}
	if len(p.Saved) == 0 {
		p.SavedEmpty = MsgNoneSaved
	}

	p.Cities = cityOptions(doc.Cities, p.Filter.City)
	p.Categories = categoryOptions(doc.Categories, p.Filter.Category)
	p.LastUpdated = FormatUpdated(doc.LastUpdated, opts.Location)
	return p
}

// NewCard builds the list row for e. Unknown city or category codes are
// shown raw without an emoji.
func NewCard(doc *model.Document, e model.Event, saved SavedSet, conflicts map[string]bool) Card {
	c := Card{
		ID:        e.ID,
		Name:      e.Name,
		CityCode:  e.City,
		CityName:  e.City,
		StartTime: e.StartTime,
		Venue:     e.Venue,
		Price:     model.Deref(e.Price),
		Saved:     saved.Has(e.ID),
		Conflict:  conflicts[e.ID],
	}
	if city, ok := doc.Cities[e.City]; ok {
		c.CityName = city.Name
		c.CityEmoji = city.Emoji
	}
	if cat, ok := doc.Categories[e.Category]; ok {
		c.CategoryEmoji = cat.Emoji
	}
	if d, err := dates.Parse(e.Date); err == nil {
		c.Day = fmt.Sprint(d.Day())
		c.Month = monthsES[d.Month()-1]
		c.Weekday = weekdaysES[d.Weekday()]
	} else {
		c.Day = e.Date
	}
	return c
}

// DetailOptions configures the detail view.
type DetailOptions struct {
	Calendar CalendarOptions
	// ReferenceCity is where travel times are measured from.
	ReferenceCity string
}

// NewDetail builds the expanded view of e.
func NewDetail(doc *model.Document, e model.Event, saved SavedSet, opts DetailOptions) Detail {
	conflicts := Conflicts(doc.Events, saved)
	d := Detail{
		Card:        NewCard(doc, e, saved, conflicts),
		Description: e.Description,
		TimeRange:   e.StartTime + " - " + e.EndTime,
		Official:    e.Official,
		URL:         model.Deref(e.URL),
		SaveLabel:   LabelNotSaved,
	}
	if d.Saved {
		d.SaveLabel = LabelSaved
	}

	if d.Weekday != "" {
		d.DateLabel = fmt.Sprintf("%s %s de %s", d.Weekday, d.Day, d.Month)
	} else {
		d.DateLabel = e.Date
	}

	if city, ok := doc.Cities[e.City]; ok {
		d.TravelLabel = TravelLabel(city, opts.ReferenceCity)
	}

	cal := opts.Calendar
	if cal.Cities == nil {
		cal.Cities = doc.Cities
	}
	d.CalendarURL = CalendarURL(e, cal)
	return d
}

// TravelLabel describes how far a city is from the reference city.
func TravelLabel(c model.City, reference string) string {
	if c.TravelTime <= 0 {
		return "(Base)"
	}
	return fmt.Sprintf("(~%d min desde %s)", c.TravelTime, reference)
}

// FormatUpdated renders the lastUpdated stamp in loc. Unreadable stamps
// are returned unchanged.
func FormatUpdated(ts string, loc *time.Location) string {
	if ts == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ts
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("2/1/2006, 15:04")
}

func cityOptions(cities map[string]model.City, active string) []Option {
	opts := []Option{{Code: All, Label: "Todas", Active: active == All}}
	for _, code := range sortedKeys(cities) {
		c := cities[code]
		opts = append(opts, Option{Code: code, Label: c.Emoji + " " + c.Name, Active: active == code})
	}
	return opts
}

func categoryOptions(cats map[string]model.Category, active string) []Option {
	opts := []Option{{Code: All, Label: "Todas", Active: active == All}}
	for _, code := range sortedKeys(cats) {
		c := cats[code]
		opts = append(opts, Option{Code: code, Label: c.Emoji + " " + c.Name, Active: active == code})
	}
	return opts
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
