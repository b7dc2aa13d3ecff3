package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default values shared by DefaultConfig and Normalize.
const (
	DefaultPath            = "fomoff.yaml"
	DefaultDataFile        = "data/events.json"
	DefaultSourcesFile     = "scraper/sources.json"
	DefaultListen          = "127.0.0.1:8080"
	DefaultTimezone        = "America/Bogota"
	DefaultRefreshCron     = "0 */6 * * *"
	DefaultCountdownTarget = "2026-02-14T00:00:00-05:00"
	DefaultYear            = 2026
)

// Defaults holds the values used for fields an operator leaves out of an add.
type Defaults struct {
	City     string `yaml:"city" json:"city"`
	Venue    string `yaml:"venue" json:"venue"`
	Start    string `yaml:"start" json:"start"`
	End      string `yaml:"end" json:"end"`
	Category string `yaml:"category" json:"category"`
}

// CatalogConfig configures the command-line editor.
type CatalogConfig struct {
	// Strict rejects unparseable dates, inverted time ranges and unknown
	// city/category codes. When false, the raw date string is stored as-is.
	Strict bool `yaml:"strict" json:"strict"`

	// DefaultYear is used when a free-text date has no year.
	DefaultYear int `yaml:"default_year" json:"default_year"`

	Defaults Defaults `yaml:"defaults" json:"defaults"`

	// RefreshCron is the schedule for `fomoff watch`.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// CacheDir stores ICS feed bodies and their ETag/Last-Modified metadata.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// MetricsListen, if set, exposes /metrics while watching.
	MetricsListen string `yaml:"metrics_listen" json:"metrics_listen"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the viewer.
// PasswordHash is an Argon2id hash produced by `fomoff-web hash-password`.
type BasicAuthConfig struct {
	Username     string `yaml:"username" json:"username"`
	PasswordHash string `yaml:"password_hash" json:"password_hash"`
}

// ViewerConfig configures the read-only listing page.
type ViewerConfig struct {
	// Listen is the HTTP listen address for the viewer.
	Listen string `yaml:"listen" json:"listen"`

	// DataSource is a file path or an http(s) URL of the data store.
	// Empty means the top-level DataFile.
	DataSource string `yaml:"data_source" json:"data_source"`

	// CountdownTarget is an RFC 3339 instant the header counts down to.
	CountdownTarget string `yaml:"countdown_target" json:"countdown_target"`

	// ReferenceCity is the place travel times are measured from.
	ReferenceCity string `yaml:"reference_city" json:"reference_city"`

	// Country is appended to calendar link locations.
	Country string `yaml:"country" json:"country"`

	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// Config is the top-level application configuration.
type Config struct {
	// DataFile is the shared JSON data store.
	DataFile string `yaml:"data_file" json:"data_file"`

	// SourcesFile is the editor-only JSON list of sources.
	SourcesFile string `yaml:"sources_file" json:"sources_file"`

	// Timezone is the IANA zone of every event's wall-clock times.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	Catalog CatalogConfig `yaml:"catalog" json:"catalog"`
	Viewer  ViewerConfig  `yaml:"viewer" json:"viewer"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		DataFile:    DefaultDataFile,
		SourcesFile: DefaultSourcesFile,
		Timezone:    DefaultTimezone,
		LogLevel:    "info",
		Catalog: CatalogConfig{
			Strict:      true,
			DefaultYear: DefaultYear,
			Defaults:    defaultDefaults(),
			RefreshCron: DefaultRefreshCron,
			CacheDir:    "./cache/ics-cache",
		},
		Viewer: ViewerConfig{
			Listen:          DefaultListen,
			CountdownTarget: DefaultCountdownTarget,
			ReferenceCity:   "Santa Marta",
			Country:         "Colombia",
		},
	}
}

func defaultDefaults() Defaults {
	return Defaults{
		City:     "barranquilla",
		Venue:    "Por confirmar",
		Start:    "18:00",
		End:      "23:00",
		Category: "fiesta",
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.DataFile == "" {
		c.DataFile = DefaultDataFile
	}
	if c.SourcesFile == "" {
		c.SourcesFile = DefaultSourcesFile
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = "info"
	}

	if c.Catalog.DefaultYear <= 0 {
		c.Catalog.DefaultYear = DefaultYear
	}
	d := defaultDefaults()
	if c.Catalog.Defaults.City == "" {
		c.Catalog.Defaults.City = d.City
	}
	if c.Catalog.Defaults.Venue == "" {
		c.Catalog.Defaults.Venue = d.Venue
	}
	if c.Catalog.Defaults.Start == "" {
		c.Catalog.Defaults.Start = d.Start
	}
	if c.Catalog.Defaults.End == "" {
		c.Catalog.Defaults.End = d.End
	}
	if c.Catalog.Defaults.Category == "" {
		c.Catalog.Defaults.Category = d.Category
	}
	if c.Catalog.RefreshCron == "" {
		c.Catalog.RefreshCron = DefaultRefreshCron
	}
	if c.Catalog.CacheDir == "" {
		c.Catalog.CacheDir = "./cache/ics-cache"
	}

	if c.Viewer.Listen == "" {
		c.Viewer.Listen = DefaultListen
	}
	if c.Viewer.CountdownTarget == "" {
		c.Viewer.CountdownTarget = DefaultCountdownTarget
	}
	if c.Viewer.ReferenceCity == "" {
		c.Viewer.ReferenceCity = "Santa Marta"
	}
	if c.Viewer.Country == "" {
		c.Viewer.Country = "Colombia"
	}
	// Empty credentials mean "no auth".
	if c.Viewer.BasicAuth != nil && (c.Viewer.BasicAuth.Username == "" || c.Viewer.BasicAuth.PasswordHash == "") {
		c.Viewer.BasicAuth = nil
	}
}

// ViewerDataSource returns where the viewer reads the data store from.
func (c *Config) ViewerDataSource() string {
	if c.Viewer.DataSource != "" {
		return c.Viewer.DataSource
	}
	return c.DataFile
}

// Location resolves Timezone, falling back to UTC when it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CountdownInstant parses Viewer.CountdownTarget.
func (c *Config) CountdownInstant() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, c.Viewer.CountdownTarget)
	if err != nil {
		return time.Time{}, fmt.Errorf("viewer.countdown_target: %w", err)
	}
	return t, nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
//
// Environment overrides (see ApplyEnv) are applied in both cases.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				cfg.ApplyEnv()
				return cfg, err
			}
			cfg.ApplyEnv()
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()
	cfg.ApplyEnv()

	return cfg, nil
}

// LoadDotEnv loads a .env file from the working directory if present.
// A missing file is not an error.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// PathFromEnv returns FOMOFF_CONFIG or the default config path.
func PathFromEnv() string {
	if p := os.Getenv("FOMOFF_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

// ApplyEnv overrides file values with FOMOFF_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("FOMOFF_DATA_FILE"); v != "" {
		c.DataFile = v
	}
	if v := os.Getenv("FOMOFF_SOURCES_FILE"); v != "" {
		c.SourcesFile = v
	}
	if v := os.Getenv("FOMOFF_LISTEN"); v != "" {
		c.Viewer.Listen = v
	}
	if v := os.Getenv("FOMOFF_LOG_LEVEL"); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".fomoff-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
