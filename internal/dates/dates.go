// Package dates normalizes the free-form dates operators type into the
// ISO calendar dates stored in the data store, and parses wall-clock times.
package dates

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"golang.org/x/text/cases"
)

const isoLayout = "2006-01-02"

var (
	ErrUnparseable = errors.New("unparseable date")
	ErrInvalidDate = errors.New("not a calendar date")
	ErrInvalidTime = errors.New("invalid time of day")
)

var (
	isoPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	// "14 de febrero 2026", "14 feb", "3 de marzo". \w is ASCII-only here
	// as well, so accented text after the day is not consumed.
	spanishPattern = regexp.MustCompile(`(\d{1,2})\s*(?:de\s*)?(\w+)\s*(\d{4})?`)
	clockPattern   = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
)

var spanishMonths = map[string]string{
	"enero": "01", "febrero": "02", "marzo": "03", "abril": "04",
	"mayo": "05", "junio": "06", "julio": "07", "agosto": "08",
	"septiembre": "09", "octubre": "10", "noviembre": "11", "diciembre": "12",
	"ene": "01", "feb": "02", "mar": "03", "abr": "04",
	"may": "05", "jun": "06", "jul": "07", "ago": "08",
	"sep": "09", "oct": "10", "nov": "11", "dic": "12",
}

// Normalizer turns operator input into "YYYY-MM-DD".
type Normalizer struct {
	// DefaultYear fills in a free-text date without a year.
	DefaultYear int
	// Now anchors relative English phrases such as "tomorrow".
	Now func() time.Time

	natural *when.Parser
}

// NewNormalizer builds a Normalizer with the English and common rule sets
// for relative phrases.
func NewNormalizer(defaultYear int) *Normalizer {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Normalizer{
		DefaultYear: defaultYear,
		Now:         time.Now,
		natural:     w,
	}
}

// Normalize returns the ISO date for s and whether any pattern matched.
//
// ISO input is returned unchanged. Spanish "<day> [de] <month> [<year>]"
// maps full or abbreviated month names; a missing year becomes DefaultYear
// and an unknown month becomes "01". Input with no day number is tried as
// an English relative phrase. The result is not checked for being a real
// calendar day; see Validate.
func (n *Normalizer) Normalize(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if isoPattern.MatchString(s) {
		return s, true
	}

	if m := spanishPattern.FindStringSubmatch(cases.Fold().String(s)); m != nil {
		day := m[1]
		if len(day) == 1 {
			day = "0" + day
		}
		month, ok := spanishMonths[m[2]]
		if !ok {
			month = "01"
		}
		year := m[3]
		if year == "" {
			year = strconv.Itoa(n.DefaultYear)
		}
		return fmt.Sprintf("%s-%s-%s", year, month, day), true
	}

	if n.natural != nil {
		now := time.Now()
		if n.Now != nil {
			now = n.Now()
		}
		r, err := n.natural.Parse(s, now)
		if err == nil && r != nil {
			return r.Time.Format(isoLayout), true
		}
	}

	return "", false
}

// NormalizeStrict is Normalize followed by Validate.
func (n *Normalizer) NormalizeStrict(s string) (string, error) {
	iso, ok := n.Normalize(s)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnparseable, s)
	}
	if err := Validate(iso); err != nil {
		return "", err
	}
	return iso, nil
}

// Validate reports whether iso is a real calendar day in YYYY-MM-DD form.
func Validate(iso string) error {
	if !isoPattern.MatchString(iso) {
		return fmt.Errorf("%w: %q", ErrInvalidDate, iso)
	}
	if _, err := time.Parse(isoLayout, iso); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, iso)
	}
	return nil
}

// Minutes parses "HH:MM" into minutes since midnight.
func Minutes(clock string) (int, error) {
	m := clockPattern.FindStringSubmatch(strings.TrimSpace(clock))
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, clock)
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	if h > 23 || min > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, clock)
	}
	return h*60 + min, nil
}

// EndMinutes is Minutes for the end of a range, where "24:00" means the
// end of the day (1440).
func EndMinutes(clock string) (int, error) {
	if strings.TrimSpace(clock) == "24:00" {
		return 24 * 60, nil
	}
	return Minutes(clock)
}

// Hour returns the leading hour of a "HH:MM" string. Unparseable input
// reports ok=false.
func Hour(clock string) (int, bool) {
	head, _, _ := strings.Cut(strings.TrimSpace(clock), ":")
	h, err := strconv.Atoi(head)
	if err != nil {
		return 0, false
	}
	return h, true
}

// Parse turns an ISO date into a time at noon UTC, which keeps weekday and
// day-of-month stable regardless of zone.
func Parse(iso string) (time.Time, error) {
	t, err := time.Parse(isoLayout, iso)
	if err != nil {
		return time.Time{}, err
	}
	return t.Add(12 * time.Hour), nil
}
