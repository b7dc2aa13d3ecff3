package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/renatojobal/fomoff/internal/model"
)

// SourceConfig is one entry of the editor's sources file. Only Name,
// Enabled and Type are common; the rest is read by the fetcher of that type.
type SourceConfig struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	// Type selects the fetcher: "web" (default), "manual" or "ics".
	Type string `json:"type,omitempty"`

	URL      string `json:"url,omitempty"`
	City     string `json:"city,omitempty"`
	Category string `json:"category,omitempty"`
	Venue    string `json:"venue,omitempty"`
	Official bool   `json:"official,omitempty"`

	// Timezone overrides the top-level timezone for ICS occurrences.
	Timezone string `json:"timezone,omitempty"`
	// From and To bound ICS recurrence expansion (YYYY-MM-DD, inclusive).
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`

	// Events are inline candidates for the manual source.
	Events []model.Candidate `json:"events,omitempty"`
}

// SourcesFile is the top-level shape of the sources JSON file.
type SourcesFile struct {
	Sources []SourceConfig `json:"sources"`
}

// LoadSources reads and decodes the sources file.
func LoadSources(path string) (*SourcesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	var sf SourcesFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("failed to parse sources file: %w", err)
	}

	return &sf, nil
}

// Enabled returns only enabled sources, in file order.
func (sf *SourcesFile) Enabled() []SourceConfig {
	var enabled []SourceConfig
	for _, src := range sf.Sources {
		if src.Enabled {
			enabled = append(enabled, src)
		}
	}
	return enabled
}
