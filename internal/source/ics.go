package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/renatojobal/fomoff/internal/config"
	"github.com/renatojobal/fomoff/internal/ics"
	"github.com/renatojobal/fomoff/internal/model"
)

const defaultICSWindow = 365 * 24 * time.Hour

// icsSource subscribes to an iCalendar feed and maps every occurrence in
// the configured window to one candidate.
type icsSource struct {
	cfg     config.SourceConfig
	opts    Options
	loc     *time.Location
	fetcher *ics.Fetcher
}

func newICSSource(c config.SourceConfig, opts Options) (*icsSource, error) {
	if c.URL == "" {
		return nil, errors.New("ics source requires url")
	}

	loc := opts.Location
	if c.Timezone != "" {
		l, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return nil, fmt.Errorf("ics source %s: %w", c.Name, err)
		}
		loc = l
	}
	if loc == nil {
		loc = time.UTC
	}

	f := ics.NewFetcher(opts.CacheDir)
	if opts.Client != nil {
		f.WithClient(opts.Client)
	}
	return &icsSource{cfg: c, opts: opts, loc: loc, fetcher: f}, nil
}

func (s *icsSource) Name() string { return s.cfg.Name }

func (s *icsSource) Fetch(ctx context.Context) ([]model.Candidate, error) {
	from, to, err := s.window()
	if err != nil {
		return nil, err
	}

	feed := ics.Feed{ID: s.cfg.Name, URL: s.cfg.URL}
	res, err := s.fetcher.Fetch(ctx, feed)
	if err != nil {
		return nil, err
	}

	parsed, err := ics.ParseICS(feed, res.Body)
	if err != nil {
		return nil, err
	}

	occ, err := ics.ExpandOccurrences(parsed, ics.ExpandConfig{
		Location:   s.loc,
		RangeStart: from,
		RangeEnd:   to,
	})
	if err != nil {
		return nil, err
	}

	out := make([]model.Candidate, 0, len(occ))
	for _, o := range occ {
		out = append(out, s.candidate(o))
	}
	return out, nil
}

// window resolves from/to (inclusive dates) in the source zone. Without
// from it starts today; without to it spans a year.
func (s *icsSource) window() (time.Time, time.Time, error) {
	now := s.opts.now().In(s.loc)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	if s.cfg.From != "" {
		t, err := time.ParseInLocation("2006-01-02", s.cfg.From, s.loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("ics source %s: from: %w", s.cfg.Name, err)
		}
		from = t
	}

	to := from.Add(defaultICSWindow)
	if s.cfg.To != "" {
		t, err := time.ParseInLocation("2006-01-02", s.cfg.To, s.loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("ics source %s: to: %w", s.cfg.Name, err)
		}
		to = t.Add(24*time.Hour - time.Second)
	}
	return from, to, nil
}

// candidate maps an occurrence onto a single day. All-day entries and
// entries running past midnight end at 23:59.
func (s *icsSource) candidate(o ics.Occurrence) model.Candidate {
	start := o.Start.Format("15:04")
	end := o.End.Format("15:04")

	sameDay := o.End.Year() == o.Start.Year() && o.End.YearDay() == o.Start.YearDay()
	switch {
	case o.AllDay:
		start, end = "00:00", "23:59"
	case !sameDay || !o.End.After(o.Start):
		end = "23:59"
	}
	if start == end {
		end = "23:59"
	}

	venue := s.cfg.Venue
	if o.Location != "" {
		venue = o.Location
	}

	return model.Candidate{
		Name:        o.Summary,
		Description: o.Description,
		City:        s.cfg.City,
		Venue:       venue,
		Date:        o.Start.Format("2006-01-02"),
		StartTime:   start,
		EndTime:     end,
		Category:    s.cfg.Category,
		Official:    s.cfg.Official,
		URL:         model.StringPtr(o.URL),
		Source:      s.cfg.Name,
	}
}
