package skillgap

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type catalogFile struct {
	Skills []Skill `yaml:"skills"`
}

// DefaultCatalog returns the embedded skill catalogue.
func DefaultCatalog() ([]Skill, error) {
	return ParseCatalog(defaultCatalog)
}

// ParseCatalog decodes and validates a YAML catalogue. Omitted required levels
// fall back to DefaultRequiredLevel.
func ParseCatalog(data []byte) ([]Skill, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Skills))
	skills := make([]Skill, 0, len(file.Skills))
	for i, s := range file.Skills {
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			return nil, fmt.Errorf("catalog skill %d: %w: name is required", i, ErrInvalidInput)
		}
		if _, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("catalog skill %q: %w: duplicate name", s.Name, ErrInvalidInput)
		}
		seen[s.Name] = struct{}{}
		if !s.Importance.Valid() {
			return nil, fmt.Errorf("catalog skill %q: %w: importance %q", s.Name, ErrInvalidInput, s.Importance)
		}
		if s.RequiredLevel == 0 {
			s.RequiredLevel = DefaultRequiredLevel
		}
		if !validLevel(s.CurrentLevel) || !validLevel(s.RequiredLevel) || !validLevel(s.DemandScore) {
			return nil, fmt.Errorf("catalog skill %q: %w: levels must be within [%d,%d]", s.Name, ErrInvalidInput, MinLevel, MaxLevel)
		}
		skills = append(skills, s)
	}
	return skills, nil
}

func validLevel(v int) bool {
	return v >= MinLevel && v <= MaxLevel
}
