// Package locparse extracts structured hints from the free-text
// location description an inspector types alongside an upload. It is a
// light heuristic; consumers must treat the fields as hints, not
// authoritative locations.
package locparse

import "regexp"

var (
	floorPattern = regexp.MustCompile(`(?i)(\d+)F`)
	zonePattern  = regexp.MustCompile(`([A-Z])區`)
)

// LocationHint carries whatever structure could be teased out of a
// description, plus the untouched original for audit.
type LocationHint struct {
	Floor          string `json:"floor,omitempty"`
	Zone           string `json:"zone,omitempty"`
	RawDescription string `json:"rawDescription"`
}

// Parse extracts a floor number ("4F") and a zone letter ("B區") from
// the description. A missing pattern leaves the field empty; the raw
// description is always preserved.
func Parse(description string) LocationHint {
	hint := LocationHint{RawDescription: description}

	if m := floorPattern.FindStringSubmatch(description); m != nil {
		hint.Floor = m[1]
	}
	if m := zonePattern.FindStringSubmatch(description); m != nil {
		hint.Zone = m[1]
	}
	return hint
}
