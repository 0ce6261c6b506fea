package knowledge

import (
	"fmt"
	"strings"
)

// Render formats a treatment record as user-readable markdown. level is the
// confidence band of the diagnosis that produced the record ("high",
// "moderate", "low", "unknown"); a moderate diagnosis gets an explicit
// verification disclaimer.
func Render(rec *TreatmentRecord, level string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "**%s**\n\n", rec.DiseaseName)

	if level == "moderate" {
		b.WriteString("> Moderate confidence. Please verify with additional symptoms.\n\n")
	}

	if rec.Found {
		var meta []string
		if rec.Crop != "" && rec.Crop != "Unknown" {
			meta = append(meta, "**Crop:** "+rec.Crop)
		}
		if rec.Type != "" && rec.Type != "Unknown" {
			meta = append(meta, "**Type:** "+rec.Type)
		}
		if rec.Severity != "" && rec.Severity != "Unknown" {
			meta = append(meta, "**Severity:** "+rec.Severity)
		}
		if len(meta) > 0 {
			b.WriteString(strings.Join(meta, "  |  "))
			b.WriteString("\n\n")
		}

		fmt.Fprintf(&b, "**Cause:** %s\n\n", rec.Cause)
		fmt.Fprintf(&b, "**Symptoms:** %s\n\n", rec.Symptoms)
	}

	b.WriteString("**Treatment:**\n")
	for _, step := range rec.TreatmentSteps {
		fmt.Fprintf(&b, "  - %s\n", step)
	}

	if len(rec.PreventionSteps) > 0 {
		b.WriteString("\n**Prevention:**\n")
		for _, step := range rec.PreventionSteps {
			fmt.Fprintf(&b, "  - %s\n", step)
		}
	}

	return b.String()
}
