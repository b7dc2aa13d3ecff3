package source

import (
	"context"
	"fmt"

	"github.com/renatojobal/fomoff/internal/config"
	appLog "github.com/renatojobal/fomoff/internal/log"
	"github.com/renatojobal/fomoff/internal/model"
)

// webSource is a placeholder for HTML scrapers; each site needs its own
// parser and none is written yet.
type webSource struct {
	cfg  config.SourceConfig
	opts Options
}

func newWebSource(c config.SourceConfig, opts Options) *webSource {
	return &webSource{cfg: c, opts: opts}
}

func (w *webSource) Name() string { return w.cfg.Name }

func (w *webSource) Fetch(ctx context.Context) ([]model.Candidate, error) {
	fmt.Fprintln(w.opts.out(), "   (Web scraping requires specific parser per source)")
	appLog.Debug("web source is a stub", "source", w.cfg.Name, "url", w.cfg.URL)
	return nil, nil
}
