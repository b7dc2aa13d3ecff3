package catalog

import (
	"regexp"

	"github.com/renatojobal/fomoff/internal/model"
)

const Usage = `Usage: fomoff add --name="Event Name" --date="2026-02-14" [--city=barranquilla] [--venue="Lugar"] [--start=18:00] [--end=23:00] [--category=fiesta] [--price="$50,000"] [--url=https://...] [--description="..."]`

const Help = `
🎭 FOMOff Scraper

Commands:
  run [--force]     Run all scrapers
  add --name=X ...  Add event manually
  list              List all events
  watch             Run scrapers on the refresh schedule

Examples:
  fomoff run
  fomoff add --name="Fiesta Blanca" --date="2026-02-14" --city=barranquilla --venue="Hotel X" --price="$80,000"
  fomoff add --name="Desfile" --date="15 de febrero"
  fomoff list
`

var flagPattern = regexp.MustCompile(`^--(\w+)=(.+)$`)

// ParseArgs collects --key=value pairs. Anything else, including flags
// with an empty value, is ignored; a repeated key keeps the last value.
func ParseArgs(args []string) map[string]string {
	out := make(map[string]string)
	for _, a := range args {
		if m := flagPattern.FindStringSubmatch(a); m != nil {
			out[m[1]] = m[2]
		}
	}
	return out
}

// CandidateFromArgs maps parsed add arguments onto a candidate.
func CandidateFromArgs(kv map[string]string) model.Candidate {
	return model.Candidate{
		Name:        kv["name"],
		Description: kv["description"],
		City:        kv["city"],
		Venue:       kv["venue"],
		Date:        kv["date"],
		StartTime:   kv["start"],
		EndTime:     kv["end"],
		Category:    kv["category"],
		Price:       model.StringPtr(kv["price"]),
		URL:         model.StringPtr(kv["url"]),
		Source:      "manual",
	}
}

// HasFlag reports whether args contains the bare flag, e.g. "--force".
func HasFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}
