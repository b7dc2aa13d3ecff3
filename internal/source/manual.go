package source

import (
	"context"

	"github.com/renatojobal/fomoff/internal/config"
	"github.com/renatojobal/fomoff/internal/model"
)

// manualSource replays the events written inline in the sources file.
type manualSource struct {
	cfg config.SourceConfig
}

func newManualSource(c config.SourceConfig) *manualSource {
	return &manualSource{cfg: c}
}

func (m *manualSource) Name() string { return m.cfg.Name }

// Fetch fills source-level city, category and venue into entries that
// leave them empty.
func (m *manualSource) Fetch(ctx context.Context) ([]model.Candidate, error) {
	out := make([]model.Candidate, 0, len(m.cfg.Events))
	for _, c := range m.cfg.Events {
		if c.City == "" {
			c.City = m.cfg.City
		}
		if c.Category == "" {
			c.Category = m.cfg.Category
		}
		if c.Venue == "" {
			c.Venue = m.cfg.Venue
		}
		if m.cfg.Official {
			c.Official = true
		}
		if c.Source == "" {
			c.Source = m.cfg.Name
		}
		out = append(out, c)
	}
	return out, nil
}
