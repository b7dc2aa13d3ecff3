package model

// Event is a single listing in the data store. Date and times are local
// wall-clock values without a zone: Date is "YYYY-MM-DD", StartTime and
// EndTime are "HH:MM" on the same day.
type Event struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	City        string  `json:"city"`
	Venue       string  `json:"venue"`
	Date        string  `json:"date"`
	StartTime   string  `json:"startTime"`
	EndTime     string  `json:"endTime"`
	Category    string  `json:"category"`
	Official    bool    `json:"official"`
	Price       *string `json:"price"`
	Source      string  `json:"source"`
	URL         *string `json:"url"`
	AddedAt     string  `json:"addedAt,omitempty"`
}

// City is static reference data keyed by city code.
type City struct {
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
	// TravelTime is minutes from the reference location; 0 marks the base city.
	TravelTime int `json:"travelTime"`
}

// Category is static reference data keyed by category code.
type Category struct {
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
}

// Document is the whole shared data store file.
type Document struct {
	LastUpdated string              `json:"lastUpdated"`
	Events      []Event             `json:"events"`
	Cities      map[string]City     `json:"cities"`
	Categories  map[string]Category `json:"categories"`
}

// Candidate is an event as supplied by the operator or a source fetcher,
// before normalization, id assignment and dedup.
type Candidate struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	City        string  `json:"city,omitempty"`
	Venue       string  `json:"venue,omitempty"`
	Date        string  `json:"date"`
	StartTime   string  `json:"start,omitempty"`
	EndTime     string  `json:"end,omitempty"`
	Category    string  `json:"category,omitempty"`
	Official    bool    `json:"official,omitempty"`
	Price       *string `json:"price,omitempty"`
	URL         *string `json:"url,omitempty"`
	Source      string  `json:"source,omitempty"`
}

// StringPtr returns nil for an empty string, otherwise a pointer to s.
// Optional display fields are stored as JSON null when absent.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
