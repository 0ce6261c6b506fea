package knowledge

import (
	"context"
	"fmt"
	"sort"
)

// MemStore is an immutable in-memory knowledge base keyed by normalised
// label. Safe for concurrent use.
type MemStore struct {
	records map[string]TreatmentRecord
	keys    []string
}

// NewMemStore builds a MemStore from records keyed by disease label. Keys
// are normalised on construction; two keys normalising identically is a
// configuration error.
func NewMemStore(records map[string]TreatmentRecord) (*MemStore, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("knowledge: record set must not be empty")
	}

	byNorm := make(map[string]TreatmentRecord, len(records))
	origin := make(map[string]string, len(records))
	keys := make([]string, 0, len(records))
	for key, rec := range records {
		norm := NormalizeKey(key)
		if norm == "" {
			return nil, fmt.Errorf("knowledge: record key %q normalises to empty", key)
		}
		if prev, ok := origin[norm]; ok {
			return nil, fmt.Errorf("knowledge: keys %q and %q collide after normalisation", prev, key)
		}
		rec.Found = true
		byNorm[norm] = rec
		origin[norm] = key
		keys = append(keys, norm)
	}
	sort.Strings(keys)

	return &MemStore{records: byNorm, keys: keys}, nil
}

// Lookup resolves key to its record, or to the synthesized not-found record
// when the knowledge base has no entry. It never returns an error; the
// signature carries one to satisfy the store contract shared with
// database-backed implementations.
func (s *MemStore) Lookup(_ context.Context, key string) (*TreatmentRecord, error) {
	if rec, ok := s.records[NormalizeKey(key)]; ok {
		out := rec
		return &out, nil
	}
	return NotFoundRecord(key), nil
}

// Keys returns the sorted normalised keys of every record.
func (s *MemStore) Keys(_ context.Context) ([]string, error) {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out, nil
}

// DefaultRecords returns the built-in PlantVillage knowledge base covering
// tomato, potato and bell pepper leaf conditions.
func DefaultRecords() map[string]TreatmentRecord {
	return map[string]TreatmentRecord{
		"Pepper__bell___Bacterial_spot": {
			DiseaseName: "Bell Pepper Bacterial Spot",
			Crop:        "Bell Pepper",
			Type:        "Bacterial",
			Severity:    "Moderate",
			Cause:       "Bacterial infection (Xanthomonas campestris)",
			Symptoms:    "Small water-soaked spots on leaves that turn brown with yellow halos",
			TreatmentSteps: []string{
				"Use copper-based bactericides",
				"Remove infected leaves",
			},
			PreventionSteps: []string{
				"Use disease-free seeds",
				"Avoid overhead irrigation",
			},
		},
		"Pepper__bell___healthy": {
			DiseaseName: "Healthy Bell Pepper",
			Crop:        "Bell Pepper",
			Type:        "None",
			Severity:    "None",
			Cause:       "No disease detected",
			Symptoms:    "Leaves uniformly green, no spots or deformation",
			TreatmentSteps: []string{
				"No treatment required",
			},
			PreventionSteps: []string{
				"Maintain proper watering, nutrition, and plant hygiene",
			},
		},
		"Potato___Early_blight": {
			DiseaseName: "Potato Early Blight",
			Crop:        "Potato",
			Type:        "Fungal",
			Severity:    "Moderate",
			Cause:       "Fungal disease (Alternaria solani)",
			Symptoms:    "Dark spots with concentric rings on older leaves",
			TreatmentSteps: []string{
				"Apply chlorothalonil or copper fungicide",
			},
			PreventionSteps: []string{
				"Practice crop rotation",
				"Remove infected leaves",
			},
		},
		"Potato___Late_blight": {
			DiseaseName: "Potato Late Blight",
			Crop:        "Potato",
			Type:        "Fungal",
			Severity:    "High",
			Cause:       "Fungal infection (Phytophthora infestans)",
			Symptoms:    "Dark water-soaked lesions spreading rapidly across leaves and stems",
			TreatmentSteps: []string{
				"Use systemic fungicides like metalaxyl",
				"Remove infected plants immediately",
			},
			PreventionSteps: []string{
				"Avoid wet foliage",
				"Maintain spacing between plants",
			},
		},
		"Potato___healthy": {
			DiseaseName: "Healthy Potato",
			Crop:        "Potato",
			Type:        "None",
			Severity:    "None",
			Cause:       "No disease detected",
			Symptoms:    "Leaves uniformly green with no lesions",
			TreatmentSteps: []string{
				"No treatment required",
			},
			PreventionSteps: []string{
				"Maintain proper watering and nutrition",
			},
		},
		"Tomato___Bacterial_spot": {
			DiseaseName: "Tomato Bacterial Spot",
			Crop:        "Tomato",
			Type:        "Bacterial",
			Severity:    "Moderate",
			Cause:       "Bacterial infection (Xanthomonas species)",
			Symptoms:    "Small raised scab-like spots on leaves and fruit",
			TreatmentSteps: []string{
				"Apply copper-based bactericides",
			},
			PreventionSteps: []string{
				"Use disease-free seeds",
				"Avoid wet leaves",
			},
		},
		"Tomato___Early_blight": {
			DiseaseName: "Tomato Early Blight",
			Crop:        "Tomato",
			Type:        "Fungal",
			Severity:    "Moderate",
			Cause:       "Fungal disease (Alternaria solani)",
			Symptoms:    "Target-like spots with concentric rings, yellowing around spots",
			TreatmentSteps: []string{
				"Use chlorothalonil or mancozeb sprays",
			},
			PreventionSteps: []string{
				"Crop rotation",
				"Remove infected leaves",
			},
		},
		"Tomato___Late_blight": {
			DiseaseName: "Tomato Late Blight",
			Crop:        "Tomato",
			Type:        "Fungal",
			Severity:    "High",
			Cause:       "Fungal infection (Phytophthora infestans)",
			Symptoms:    "Dark brown spots with white fuzzy growth on leaf undersides",
			TreatmentSteps: []string{
				"Apply systemic fungicides (metalaxyl, copper fungicides)",
			},
			PreventionSteps: []string{
				"Avoid wet foliage",
				"Maintain plant spacing",
			},
		},
		"Tomato___Leaf_Mold": {
			DiseaseName: "Tomato Leaf Mold",
			Crop:        "Tomato",
			Type:        "Fungal",
			Severity:    "Moderate",
			Cause:       "Fungal infection (Passalora fulva)",
			Symptoms:    "Yellow spots on upper leaf surface, olive-green mold underneath",
			TreatmentSteps: []string{
				"Apply fungicides",
				"Remove affected leaves",
			},
			PreventionSteps: []string{
				"Maintain airflow",
				"Avoid overhead watering",
			},
		},
		"Tomato___Septoria_leaf_spot": {
			DiseaseName: "Tomato Septoria Leaf Spot",
			Crop:        "Tomato",
			Type:        "Fungal",
			Severity:    "Moderate",
			Cause:       "Fungal disease (Septoria lycopersici)",
			Symptoms:    "Small circular spots with dark borders, gray centers and black dots",
			TreatmentSteps: []string{
				"Spray with chlorothalonil or mancozeb",
			},
			PreventionSteps: []string{
				"Remove infected leaves",
				"Use crop rotation",
			},
		},
		"Tomato___Spider_mites_Two_spotted_spider_mite": {
			DiseaseName: "Tomato Spider Mites",
			Crop:        "Tomato",
			Type:        "Pest",
			Severity:    "Moderate",
			Cause:       "Pest attack (two-spotted spider mite)",
			Symptoms:    "Stippled yellowing leaves with fine webbing on undersides",
			TreatmentSteps: []string{
				"Use neem oil or miticides",
			},
			PreventionSteps: []string{
				"Maintain humidity",
				"Regularly check leaves",
			},
		},
		"Tomato___Target_Spot": {
			DiseaseName: "Tomato Target Spot",
			Crop:        "Tomato",
			Type:        "Fungal",
			Severity:    "Moderate",
			Cause:       "Fungal infection (Corynespora cassiicola)",
			Symptoms:    "Brown lesions with concentric zones on leaves and fruit",
			TreatmentSteps: []string{
				"Apply copper fungicides",
			},
			PreventionSteps: []string{
				"Avoid wetting leaves",
				"Practice crop rotation",
			},
		},
		"Tomato___YellowLeaf__Curl_Virus": {
			DiseaseName: "Tomato Yellow Leaf Curl Virus",
			Crop:        "Tomato",
			Type:        "Viral",
			Severity:    "High",
			Cause:       "Viral infection transmitted by whiteflies",
			Symptoms:    "Upward curling yellowing leaves, stunted growth",
			TreatmentSteps: []string{
				"No chemical cure; remove infected plants",
			},
			PreventionSteps: []string{
				"Control whiteflies",
				"Use resistant varieties",
			},
		},
		"Tomato___mosaic_virus": {
			DiseaseName: "Tomato Mosaic Virus",
			Crop:        "Tomato",
			Type:        "Viral",
			Severity:    "High",
			Cause:       "Viral infection (tobamovirus)",
			Symptoms:    "Mottled light and dark green leaves, distorted growth, reduced yield",
			TreatmentSteps: []string{
				"Remove infected plants",
			},
			PreventionSteps: []string{
				"Disinfect tools",
				"Avoid handling infected plants",
			},
		},
		"Tomato___healthy": {
			DiseaseName: "Healthy Tomato",
			Crop:        "Tomato",
			Type:        "None",
			Severity:    "None",
			Cause:       "No disease detected",
			Symptoms:    "Leaves uniformly green, no spots, curling or mottling",
			TreatmentSteps: []string{
				"No treatment required",
			},
			PreventionSteps: []string{
				"Maintain proper watering, nutrition, and hygiene",
			},
		},
	}
}
