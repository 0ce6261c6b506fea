package knowledge_test

import (
	"context"
	"strings"
	"testing"

	"github.com/verdantlabs/leafdoc/internal/knowledge"
)

func defaultStore(t *testing.T) *knowledge.MemStore {
	t.Helper()
	store, err := knowledge.NewMemStore(knowledge.DefaultRecords())
	if err != nil {
		t.Fatalf("NewMemStore(DefaultRecords()): %v", err)
	}
	return store
}

func TestNormalizeKey(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Tomato___Late_blight":  "tomato_late_blight",
		"tomato_late_blight":    "tomato_late_blight",
		"Tomato Late Blight":    "tomato_late_blight",
		"__Tomato__healthy__":   "tomato_healthy",
		"Pepper__bell___healthy": "pepper_bell_healthy",
		"":                      "",
		"___":                   "",
	}
	for in, want := range cases {
		if got := knowledge.NormalizeKey(in); got != want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMemStore_LookupNormalizationIdempotence(t *testing.T) {
	t.Parallel()

	store := defaultStore(t)
	ctx := context.Background()

	a, err := store.Lookup(ctx, "tomato___late_blight")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	b, err := store.Lookup(ctx, "Tomato_Late_Blight")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}

	if !a.Found || !b.Found {
		t.Fatalf("Found: got (%v, %v), want both true", a.Found, b.Found)
	}
	if a.DiseaseName != b.DiseaseName || a.Cause != b.Cause {
		t.Errorf("records differ: %q/%q vs %q/%q", a.DiseaseName, a.Cause, b.DiseaseName, b.Cause)
	}
	if a.DiseaseName != "Tomato Late Blight" {
		t.Errorf("DiseaseName = %q, want %q", a.DiseaseName, "Tomato Late Blight")
	}
}

func TestMemStore_LookupMissSynthesizesRecord(t *testing.T) {
	t.Parallel()

	store := defaultStore(t)

	rec, err := store.Lookup(context.Background(), "Cucumber___Powdery_mildew")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if rec.Found {
		t.Error("Found = true, want false for unknown key")
	}
	if rec.DiseaseName != "Cucumber Powdery Mildew" {
		t.Errorf("DiseaseName = %q, want %q", rec.DiseaseName, "Cucumber Powdery Mildew")
	}
	if len(rec.TreatmentSteps) == 0 || len(rec.PreventionSteps) == 0 {
		t.Error("synthesized record must carry generic treatment and prevention advice")
	}
}

func TestMemStore_RejectsCollidingKeys(t *testing.T) {
	t.Parallel()

	_, err := knowledge.NewMemStore(map[string]knowledge.TreatmentRecord{
		"Tomato___Late_blight": {DiseaseName: "A"},
		"tomato_late_blight":   {DiseaseName: "B"},
	})
	if err == nil {
		t.Error("NewMemStore(colliding keys): want error, got nil")
	}
}

func TestMemStore_KeysSorted(t *testing.T) {
	t.Parallel()

	store := defaultStore(t)

	keys, err := store.Keys(context.Background())
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != len(knowledge.DefaultRecords()) {
		t.Fatalf("Keys() returned %d keys, want %d", len(keys), len(knowledge.DefaultRecords()))
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			t.Fatalf("keys not strictly sorted: %q before %q", keys[i-1], keys[i])
		}
	}
}

func TestRender_FoundRecord(t *testing.T) {
	t.Parallel()

	store := defaultStore(t)
	rec, err := store.Lookup(context.Background(), "Tomato___Leaf_Mold")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}

	out := knowledge.Render(rec, "moderate")
	for _, want := range []string{
		"**Tomato Leaf Mold**",
		"Moderate confidence",
		"**Cause:**",
		"**Treatment:**",
		"**Prevention:**",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() missing %q in:\n%s", want, out)
		}
	}
}

func TestRender_NotFoundRecordOmitsDetails(t *testing.T) {
	t.Parallel()

	out := knowledge.Render(knowledge.NotFoundRecord("mystery_blight"), "unknown")
	if strings.Contains(out, "**Cause:**") {
		t.Errorf("Render(not found) must omit cause section, got:\n%s", out)
	}
	if !strings.Contains(out, "**Treatment:**") {
		t.Errorf("Render(not found) must still carry generic treatment advice, got:\n%s", out)
	}
}
