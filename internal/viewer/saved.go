package viewer

import (
	"encoding/json"
	"net/url"
)

// SavedCookie is the cookie holding the saved set.
const SavedCookie = "fomoff_saved"

// SavedSet is the ordered list of event ids a visitor saved. Values are
// treated as immutable; Toggle returns a new set.
type SavedSet []string

func (s SavedSet) Has(id string) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

// Toggle appends id when absent and removes it when present.
func (s SavedSet) Toggle(id string) SavedSet {
	out := make(SavedSet, 0, len(s)+1)
	found := false
	for _, v := range s {
		if v == id {
			found = true
			continue
		}
		out = append(out, v)
	}
	if !found {
		out = append(out, id)
	}
	return out
}

// Encode renders the set as a URL-escaped JSON array.
func (s SavedSet) Encode() string {
	if s == nil {
		s = SavedSet{}
	}
	data, _ := json.Marshal([]string(s))
	return url.QueryEscape(string(data))
}

// DecodeSaved parses a cookie value. Anything unreadable is an empty set.
func DecodeSaved(v string) SavedSet {
	if v == "" {
		return SavedSet{}
	}
	raw, err := url.QueryUnescape(v)
	if err != nil {
		return SavedSet{}
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return SavedSet{}
	}

	out := make(SavedSet, 0, len(ids))
	for _, id := range ids {
		if id != "" && !out.Has(id) {
			out = append(out, id)
		}
	}
	return out
}
