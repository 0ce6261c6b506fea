package knowledge

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// diseasesFile is the on-disk schema for a knowledge base file.
type diseasesFile struct {
	Diseases map[string]TreatmentRecord `yaml:"diseases"`
}

// LoadFile reads a YAML knowledge base file and builds a MemStore from it.
//
// Expected schema:
//
//	diseases:
//	  Tomato___Late_blight:
//	    disease: "Tomato Late Blight"
//	    crop: "Tomato"
//	    type: "Fungal"
//	    severity: "High"
//	    cause: "Fungal infection (Phytophthora infestans)"
//	    symptoms: "Dark brown spots with white fuzzy growth"
//	    treatment:
//	      - "Apply systemic fungicides"
//	    prevention:
//	      - "Avoid wet foliage"
func LoadFile(path string) (*MemStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("knowledge: open diseases file: %w", err)
	}
	defer f.Close()

	store, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("knowledge: diseases file %q: %w", path, err)
	}
	return store, nil
}

// Load reads YAML disease records from r and builds a MemStore. Unknown
// fields are rejected so schema typos fail loudly.
func Load(r io.Reader) (*MemStore, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file diseasesFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return NewMemStore(file.Diseases)
}
