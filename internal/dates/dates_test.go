package dates

import (
	"errors"
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	n := NewNormalizer(2026)

	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"iso unchanged", "2026-03-01", "2026-03-01", true},
		{"full spanish", "14 de febrero 2026", "2026-02-14", true},
		{"abbreviated without year", "14 feb", "2026-02-14", true},
		{"single digit day", "3 de marzo", "2026-03-03", true},
		{"upper case month", "21 FEBRERO 2027", "2027-02-21", true},
		{"explicit other year", "1 dic 2025", "2025-12-01", true},
		{"unknown month falls back to january", "5 de carnaval", "2026-01-05", true},
		{"empty", "", "", false},
		{"no pattern", "pronto", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := n.Normalize(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("Normalize(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalize_EnglishRelative(t *testing.T) {
	n := NewNormalizer(2026)
	n.Now = func() time.Time {
		return time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	}

	got, ok := n.Normalize("tomorrow")
	if !ok {
		t.Fatal("Expected relative phrase to parse")
	}
	if got != "2026-02-11" {
		t.Errorf("Expected 2026-02-11, got %q", got)
	}
}

func TestNormalizeStrict(t *testing.T) {
	n := NewNormalizer(2026)

	if got, err := n.NormalizeStrict("14 feb"); err != nil || got != "2026-02-14" {
		t.Errorf("Expected 2026-02-14, got %q (%v)", got, err)
	}

	if _, err := n.NormalizeStrict("pronto"); !errors.Is(err, ErrUnparseable) {
		t.Errorf("Expected ErrUnparseable, got %v", err)
	}

	if _, err := n.NormalizeStrict("31 de febrero"); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("Expected ErrInvalidDate for Feb 31, got %v", err)
	}
}

func TestMinutes(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"18:00", 1080, false},
		{"9:30", 570, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"18h", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := Minutes(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("Minutes(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("Minutes(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestEndMinutes(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"24:00", 1440, false},
		{"23:30", 1410, false},
		{"24:30", 0, true},
		{"25:00", 0, true},
	}

	for _, tt := range tests {
		got, err := EndMinutes(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("EndMinutes(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("EndMinutes(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestHour(t *testing.T) {
	if h, ok := Hour("17:30"); !ok || h != 17 {
		t.Errorf("Expected 17, got %d (%v)", h, ok)
	}
	if _, ok := Hour("tarde"); ok {
		t.Error("Expected non-numeric hour to fail")
	}
}

func TestParse(t *testing.T) {
	d, err := Parse("2026-02-14")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if d.Weekday() != time.Saturday || d.Day() != 14 {
		t.Errorf("Expected Saturday 14, got %s %d", d.Weekday(), d.Day())
	}
}
