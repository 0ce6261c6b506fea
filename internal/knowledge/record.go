// Package knowledge implements the treatment knowledge base: a read-mostly
// store of disease records looked up by normalised label key. Lookups never
// fail on a missing key; they degrade to a synthesized "not found" record so
// the diagnosis path always has advice to render.
package knowledge

import (
	"strings"
	"unicode"
)

// TreatmentRecord is the structured advice for one disease.
type TreatmentRecord struct {
	// DiseaseName is the human-readable name ("Tomato Late Blight").
	DiseaseName string `json:"disease" yaml:"disease"`

	// Crop is the affected crop ("Tomato", "Potato", "Bell Pepper").
	Crop string `json:"crop" yaml:"crop"`

	// Type categorises the pathogen ("Fungal", "Bacterial", "Viral",
	// "Pest", "None").
	Type string `json:"type" yaml:"type"`

	// Severity is a coarse qualifier ("High", "Moderate", "Low", "None").
	Severity string `json:"severity" yaml:"severity"`

	Cause    string `json:"cause" yaml:"cause"`
	Symptoms string `json:"symptoms" yaml:"symptoms"`

	// TreatmentSteps and PreventionSteps are ordered action lists.
	TreatmentSteps  []string `json:"treatment" yaml:"treatment"`
	PreventionSteps []string `json:"prevention" yaml:"prevention"`

	// Found reports whether the record came from the knowledge base or was
	// synthesized for an unmatched key.
	Found bool `json:"found" yaml:"-"`
}

// NormalizeKey canonicalises a disease label for lookup: lower case, with
// every run of underscores or spaces collapsed to a single underscore and
// leading/trailing separators dropped. Cosmetically different spellings of
// the same label ("Tomato___Late_blight", "tomato_late_blight",
// "Tomato Late Blight") all normalise identically.
func NormalizeKey(key string) string {
	fields := strings.FieldsFunc(strings.ToLower(key), func(r rune) bool {
		return r == '_' || unicode.IsSpace(r)
	})
	return strings.Join(fields, "_")
}

// NotFoundRecord synthesizes the fallback record for a key absent from the
// knowledge base. The disease name is derived from the key with separators
// replaced by spaces; the advice is deliberately generic.
func NotFoundRecord(key string) *TreatmentRecord {
	name := "Unknown"
	if norm := NormalizeKey(key); norm != "" {
		name = titleCase(strings.ReplaceAll(norm, "_", " "))
	}
	return &TreatmentRecord{
		DiseaseName: name,
		Crop:        "Unknown",
		Type:        "Unknown",
		Severity:    "Unknown",
		Cause:       "Not in knowledge base",
		Symptoms:    "Unable to determine from available data",
		TreatmentSteps: []string{
			"Please consult a local agricultural expert for accurate diagnosis",
		},
		PreventionSteps: []string{
			"Regular plant inspection recommended",
		},
		Found: false,
	}
}

// titleCase upper-cases the first letter of each space-separated word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
