package symptom

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// rulesFile is the on-disk schema for a symptom rules file.
type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRulesFile reads a YAML rules file and builds a RuleSet from it.
//
// Expected schema:
//
//	rules:
//	  - keyword: "late blight"
//	    label: "Tomato___Late_blight"
//	  - keyword: "concentric rings"
//	    label: "Tomato___Early_blight"
func LoadRulesFile(path string) (*RuleSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("symptom: open rules file: %w", err)
	}
	defer f.Close()

	rs, err := LoadRules(f)
	if err != nil {
		return nil, fmt.Errorf("symptom: rules file %q: %w", path, err)
	}
	return rs, nil
}

// LoadRules reads YAML rules from r and builds a RuleSet. Unknown fields are
// rejected so typos in rule files fail loudly instead of silently dropping
// rules.
func LoadRules(r io.Reader) (*RuleSet, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file rulesFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return NewRuleSet(file.Rules)
}
