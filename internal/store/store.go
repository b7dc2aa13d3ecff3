// Package store reads, mutates and atomically rewrites the shared JSON
// data store. Every caller loads, mutates and saves the whole document;
// nothing is cached between invocations and there is no file locking.
package store

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/text/cases"

	appLog "github.com/renatojobal/fomoff/internal/log"
	"github.com/renatojobal/fomoff/internal/model"
)

const (
	// IDLength is the number of hex characters kept from the identity hash.
	IDLength = 12

	// timestampLayout matches JavaScript's Date.toISOString.
	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

var (
	ErrDuplicate   = errors.New("event already exists")
	ErrIDCollision = errors.New("event id already used by a different event")
)

// New returns an empty document with initialized collections.
func New() *model.Document {
	return &model.Document{
		Events:     []model.Event{},
		Cities:     map[string]model.City{},
		Categories: map[string]model.Category{},
	}
}

// Load reads the data store at path. A missing file yields an empty
// document; malformed JSON is an error so a later Save cannot clobber it.
func Load(path string) (*model.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			appLog.Warn("data store not found, starting empty", "path", path)
			return New(), nil
		}
		return nil, fmt.Errorf("read data store: %w", err)
	}
	return Decode(data)
}

// Decode parses a data store document and fills nil collections.
func Decode(data []byte) (*model.Document, error) {
	doc := New()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parse data store: %w", err)
	}
	if doc.Events == nil {
		doc.Events = []model.Event{}
	}
	if doc.Cities == nil {
		doc.Cities = map[string]model.City{}
	}
	if doc.Categories == nil {
		doc.Categories = map[string]model.Category{}
	}
	return doc, nil
}

// Encode renders doc as two-space indented JSON. Text such as "&" or
// "<" is written as-is rather than as \u escapes.
func Encode(doc *model.Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("marshal data store: %w", err)
	}
	return buf.Bytes(), nil
}

// Save stamps LastUpdated and rewrites path atomically via a temp file in
// the same directory followed by rename.
func Save(path string, doc *model.Document, now time.Time) error {
	doc.LastUpdated = Timestamp(now)

	data, err := Encode(doc)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".events-*.tmp")
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
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Timestamp formats t the way the data store records instants.
func Timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// GenerateID derives the stable identifier of an event from its
// (name, date, city) triple.
func GenerateID(name, date, city string) string {
	sum := sha256.Sum256([]byte(name + "\x00" + date + "\x00" + city))
	return hex.EncodeToString(sum[:])[:IDLength]
}

// SameEvent reports whether two events share the identity triple, with
// names compared under Unicode case folding.
func SameEvent(a, b model.Event) bool {
	return a.Date == b.Date && a.City == b.City && sameName(a.Name, b.Name)
}

func sameName(a, b string) bool {
	c := cases.Fold()
	return c.String(a) == c.String(b)
}

// Exists reports whether doc already holds an event with e's identity.
func Exists(doc *model.Document, e model.Event) bool {
	for _, existing := range doc.Events {
		if SameEvent(existing, e) {
			return true
		}
	}
	return false
}

// Find returns the event with the given id.
func Find(doc *model.Document, id string) (model.Event, bool) {
	for _, e := range doc.Events {
		if e.ID == id {
			return e, true
		}
	}
	return model.Event{}, false
}

// Add appends e to doc unless an event with the same identity exists.
// It assigns the id and addedAt stamp. The document is not saved.
func Add(doc *model.Document, e model.Event, now time.Time) (model.Event, error) {
	if Exists(doc, e) {
		return model.Event{}, ErrDuplicate
	}
	e.ID = GenerateID(e.Name, e.Date, e.City)
	if _, taken := Find(doc, e.ID); taken {
		return model.Event{}, fmt.Errorf("%w: %s", ErrIDCollision, e.ID)
	}
	e.AddedAt = Timestamp(now)
	doc.Events = append(doc.Events, e)
	return e, nil
}

// SortedByDate returns a copy of events ordered by ISO date, keeping the
// original order for events on the same date.
func SortedByDate(events []model.Event) []model.Event {
	out := make([]model.Event, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date < out[j].Date
	})
	return out
}
