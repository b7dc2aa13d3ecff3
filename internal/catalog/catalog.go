// Package catalog implements the editor operations over the data store:
// adding events, listing them and pulling candidates from sources.
package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/renatojobal/fomoff/internal/config"
	"github.com/renatojobal/fomoff/internal/dates"
	appLog "github.com/renatojobal/fomoff/internal/log"
	"github.com/renatojobal/fomoff/internal/metrics"
	"github.com/renatojobal/fomoff/internal/model"
	"github.com/renatojobal/fomoff/internal/source"
	"github.com/renatojobal/fomoff/internal/store"
)

var (
	ErrMissingArgs      = errors.New("name and date are required")
	ErrInvalidTimeRange = errors.New("start time must be before end time")
	ErrUnknownCity      = errors.New("unknown city")
	ErrUnknownCategory  = errors.New("unknown category")
)

const cityColumn = 12

// SourceFactory builds a fetcher for one configured source.
type SourceFactory func(config.SourceConfig, source.Options) (source.Fetcher, error)

// Editor runs editor operations against the configured data store. Every
// operation loads the file, mutates it in memory and writes it back whole.
type Editor struct {
	cfg        *config.Config
	out        io.Writer
	now        func() time.Time
	normalizer *dates.Normalizer
	metrics    *metrics.Catalog
	sources    SourceFactory
}

type Option func(*Editor)

// WithClock replaces time.Now for stamps and relative dates.
func WithClock(now func() time.Time) Option {
	return func(e *Editor) { e.now = now }
}

func WithMetrics(m *metrics.Catalog) Option {
	return func(e *Editor) { e.metrics = m }
}

func WithSourceFactory(f SourceFactory) Option {
	return func(e *Editor) { e.sources = f }
}

// New creates an Editor writing operator messages to out.
func New(cfg *config.Config, out io.Writer, opts ...Option) *Editor {
	if out == nil {
		out = os.Stdout
	}
	e := &Editor{
		cfg:     cfg,
		out:     out,
		now:     time.Now,
		sources: source.NewFromConfig,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = metrics.NewCatalog(nil)
	}
	e.normalizer = dates.NewNormalizer(cfg.Catalog.DefaultYear)
	e.normalizer.Now = e.now
	return e
}

// Add appends one operator-supplied event and saves the store. It
// reports false without error when the event already exists.
func (e *Editor) Add(c model.Candidate) (bool, error) {
	if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Date) == "" {
		return false, ErrMissingArgs
	}

	doc, err := store.Load(e.cfg.DataFile)
	if err != nil {
		return false, err
	}

	if c.Source == "" {
		c.Source = "manual"
	}
	if _, err := e.insert(doc, c); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			e.metrics.Duplicate()
			fmt.Fprintln(e.out, "⚠️ Event already exists")
			return false, nil
		}
		e.metrics.Rejected(rejectReason(err))
		return false, err
	}

	if err := e.save(doc); err != nil {
		return false, err
	}
	fmt.Fprintln(e.out, "✅ Event added successfully!")
	return true, nil
}

// prepare applies defaults and normalizes the date, which is all the
// identity triple needs.
func (e *Editor) prepare(c model.Candidate) (model.Event, error) {
	if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Date) == "" {
		return model.Event{}, ErrMissingArgs
	}

	d := e.cfg.Catalog.Defaults
	ev := model.Event{
		Name:        strings.TrimSpace(c.Name),
		Description: c.Description,
		City:        orDefault(c.City, d.City),
		Venue:       orDefault(c.Venue, d.Venue),
		StartTime:   orDefault(c.StartTime, d.Start),
		EndTime:     orDefault(c.EndTime, d.End),
		Category:    orDefault(c.Category, d.Category),
		Official:    c.Official,
		Price:       c.Price,
		Source:      orDefault(c.Source, "manual"),
		URL:         c.URL,
	}

	if !e.cfg.Catalog.Strict {
		iso, ok := e.normalizer.Normalize(c.Date)
		if !ok {
			appLog.Warn("date not recognized, storing raw input", "name", ev.Name, "date", c.Date)
			iso = c.Date
		}
		ev.Date = iso
		return ev, nil
	}

	iso, err := e.normalizer.NormalizeStrict(c.Date)
	if err != nil {
		return model.Event{}, err
	}
	ev.Date = iso
	return ev, nil
}

// validate checks times and reference codes. Lenient mode skips it.
func (e *Editor) validate(doc *model.Document, ev model.Event) error {
	if !e.cfg.Catalog.Strict {
		return nil
	}

	start, err := dates.Minutes(ev.StartTime)
	if err != nil {
		return err
	}
	end, err := dates.EndMinutes(ev.EndTime)
	if err != nil {
		return err
	}
	if start >= end {
		return fmt.Errorf("%w: %s-%s", ErrInvalidTimeRange, ev.StartTime, ev.EndTime)
	}

	if len(doc.Cities) > 0 {
		if _, ok := doc.Cities[ev.City]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownCity, ev.City)
		}
	}
	if len(doc.Categories) > 0 {
		if _, ok := doc.Categories[ev.Category]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownCategory, ev.Category)
		}
	}
	return nil
}

// insert builds and appends c to doc without saving. A repeated identity
// is reported as store.ErrDuplicate before the remaining fields are
// validated.
func (e *Editor) insert(doc *model.Document, c model.Candidate) (model.Event, error) {
	ev, err := e.prepare(c)
	if err != nil {
		return model.Event{}, err
	}
	if store.Exists(doc, ev) {
		return model.Event{}, store.ErrDuplicate
	}
	if err := e.validate(doc, ev); err != nil {
		return model.Event{}, err
	}
	added, err := store.Add(doc, ev, e.now())
	if err != nil {
		return model.Event{}, err
	}
	e.metrics.Added(added.Source)
	appLog.Debug("event added", "id", added.ID, "name", added.Name, "date", added.Date, "source", added.Source)
	fmt.Fprintf(e.out, "  + Added: %s (%s)\n", added.Name, added.Date)
	return added, nil
}

func (e *Editor) save(doc *model.Document) error {
	if err := store.Save(e.cfg.DataFile, doc, e.now()); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "✅ Saved %d events\n", len(doc.Events))
	return nil
}

// List prints every event ordered by date. The store is not rewritten.
func (e *Editor) List() error {
	doc, err := store.Load(e.cfg.DataFile)
	if err != nil {
		return err
	}

	fmt.Fprintf(e.out, "\n📅 %d events:\n\n", len(doc.Events))
	for _, ev := range store.SortedByDate(doc.Events) {
		city := runewidth.FillRight(ev.City, cityColumn)
		fmt.Fprintf(e.out, "  %s | %s | %s\n", ev.Date, city, ev.Name)
	}
	return nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrMissingArgs):
		return "missing_args"
	case errors.Is(err, dates.ErrUnparseable):
		return "unparseable_date"
	case errors.Is(err, dates.ErrInvalidDate):
		return "invalid_date"
	case errors.Is(err, dates.ErrInvalidTime):
		return "invalid_time"
	case errors.Is(err, ErrInvalidTimeRange):
		return "time_range"
	case errors.Is(err, ErrUnknownCity):
		return "unknown_city"
	case errors.Is(err, ErrUnknownCategory):
		return "unknown_category"
	case errors.Is(err, store.ErrIDCollision):
		return "id_collision"
	default:
		return "other"
	}
}
