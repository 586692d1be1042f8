package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadRules returns the rule sets with the file at Path applied over inline values.
// A file list replaces the inline list only when it is non-empty.
func (r RulesConfig) LoadRules() (RulesConfig, error) {
	if r.Path == "" {
		return r, nil
	}
	raw, err := os.ReadFile(r.Path)
	if err != nil {
		return r, fmt.Errorf("read rules %s: %w", r.Path, err)
	}
	var fileRules RulesConfig
	if err := yaml.Unmarshal(raw, &fileRules); err != nil {
		return r, fmt.Errorf("parse rules %s: %w", r.Path, err)
	}

	out := r
	if fileRules.CategoryMarker != "" {
		out.CategoryMarker = fileRules.CategoryMarker
	}
	if len(fileRules.ExcludableSubjects) > 0 {
		out.ExcludableSubjects = fileRules.ExcludableSubjects
	}
	if len(fileRules.RelevantSubjects) > 0 {
		out.RelevantSubjects = fileRules.RelevantSubjects
	}
	if len(fileRules.DomesticLocations) > 0 {
		out.DomesticLocations = fileRules.DomesticLocations
	}
	return out, nil
}
