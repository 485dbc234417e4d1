package analysis

import (
	"fmt"
	"strings"

	"github.com/sitelens/photo-ingest/internal/locparse"
	"github.com/sitelens/photo-ingest/internal/model"
)

// DefaultModel is the vision model used when the config leaves it unset.
const DefaultModel = "claude-sonnet-4-5-20250929"

const defaultMaxTokens = 2048

const analysisInstructions = `You are a construction site inspector reviewing a site photo. Assess the photo together with the context block below.

Rules:
- Answer ONLY based on what is visible in the photo and stated in the context
- Return valid JSON and nothing else, matching this shape:
  {
    "summary": "<one-paragraph description of what the photo shows>",
    "observations": ["<notable conditions, hazards, or quality issues>"],
    "ncr_draft": "<draft non-conformance report text, or null if nothing warrants one>",
    "par_draft": "<draft preventive action request text, or null>"
  }
- Use null for ncr_draft and par_draft when the photo shows no defect or hazard
- Be precise and factual; these drafts feed formal site reports`

// BuildPrompt assembles the vision prompt from a photo record and its
// parsed location hint. Enrichment blobs go in verbatim; the model
// tolerates their provider-specific shapes.
func BuildPrompt(record *model.PhotoRecord, hint locparse.LocationHint) string {
	var b strings.Builder
	b.WriteString(analysisInstructions)
	b.WriteString("\n\nContext:\n")

	if record.Description != "" {
		fmt.Fprintf(&b, "- Inspector note: %s\n", record.Description)
	}
	if record.LocationDescription != "" {
		fmt.Fprintf(&b, "- Location (as written): %s\n", record.LocationDescription)
	}
	if hint.Floor != "" {
		fmt.Fprintf(&b, "- Floor: %s\n", hint.Floor)
	}
	if hint.Zone != "" {
		fmt.Fprintf(&b, "- Zone: %s\n", hint.Zone)
	}
	if record.CapturedAt != nil {
		fmt.Fprintf(&b, "- Captured at: %s\n", record.CapturedAt.Format("2006-01-02 15:04:05"))
	}
	if len(record.ExifData) > 0 {
		fmt.Fprintf(&b, "- Camera metadata: %s\n", record.ExifData)
	}
	if len(record.WeatherData) > 0 {
		fmt.Fprintf(&b, "- Weather at capture time: %s\n", record.WeatherData)
	}
	if len(record.GeoData) > 0 {
		fmt.Fprintf(&b, "- Resolved address: %s\n", record.GeoData)
	}

	return b.String()
}
