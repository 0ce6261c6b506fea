package symptom_test

import (
	"strings"
	"testing"

	"github.com/verdantlabs/leafdoc/internal/symptom"
)

func TestLoadRules_ValidFile(t *testing.T) {
	t.Parallel()

	src := `
rules:
  - keyword: "late blight"
    label: "Tomato___Late_blight"
  - keyword: "mosaic"
    label: "Tomato___mosaic_virus"
`
	rs, err := symptom.LoadRules(strings.NewReader(src))
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if rs.Len() != 2 {
		t.Errorf("Len() = %d, want 2", rs.Len())
	}
}

func TestLoadRules_RejectsUnknownFields(t *testing.T) {
	t.Parallel()

	src := `
rules:
  - keyword: "late blight"
    label: "Tomato___Late_blight"
    weight: 3
`
	if _, err := symptom.LoadRules(strings.NewReader(src)); err == nil {
		t.Error("LoadRules(unknown field): want error, got nil")
	}
}

func TestLoadRules_RejectsInvalidRules(t *testing.T) {
	t.Parallel()

	src := `
rules:
  - keyword: ""
    label: "X"
`
	if _, err := symptom.LoadRules(strings.NewReader(src)); err == nil {
		t.Error("LoadRules(empty keyword): want error, got nil")
	}
}
