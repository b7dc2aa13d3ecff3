// Package source turns entries of the sources file into event candidates.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/renatojobal/fomoff/internal/config"
	"github.com/renatojobal/fomoff/internal/model"
)

const (
	TypeWeb    = "web"
	TypeManual = "manual"
	TypeICS    = "ics"
)

var ErrUnknownType = errors.New("unknown source type")

// Fetcher produces candidates for one configured source.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]model.Candidate, error)
}

// Options carries what fetchers share across a run.
type Options struct {
	// Out receives operator-facing progress lines.
	Out io.Writer
	// Location is the default zone for ICS occurrences.
	Location *time.Location
	// CacheDir holds the ICS conditional-request cache.
	CacheDir string
	// Now anchors default fetch windows.
	Now func() time.Time
	// Client overrides the HTTP client of network fetchers.
	Client *http.Client
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o Options) out() io.Writer {
	if o.Out == nil {
		return io.Discard
	}
	return o.Out
}

// NewFromConfig picks the fetcher for c.Type. An empty type means web.
func NewFromConfig(c config.SourceConfig, opts Options) (Fetcher, error) {
	switch c.Type {
	case "", TypeWeb:
		return newWebSource(c, opts), nil
	case TypeManual:
		return newManualSource(c), nil
	case TypeICS:
		return newICSSource(c, opts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, c.Type)
	}
}
