// Package skillgap compares a user's skill levels against a catalogue of
// in-demand skills and recommends courses for the largest gaps.
package skillgap

import "time"

const (
	MinLevel = 0
	MaxLevel = 100

	DefaultRequiredLevel = 70
)

// Importance ranks how much a skill matters for the target role.
type Importance string

const (
	ImportanceHigh   Importance = "High"
	ImportanceMedium Importance = "Medium"
	ImportanceLow    Importance = "Low"
)

// Rank orders importance for sorting; higher is more important.
func (i Importance) Rank() int {
	switch i {
	case ImportanceHigh:
		return 3
	case ImportanceMedium:
		return 2
	case ImportanceLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether i is one of the known levels.
func (i Importance) Valid() bool {
	return i.Rank() > 0
}

// Course is a learning resource attached to a skill.
type Course struct {
	Title    string  `json:"title" yaml:"title"`
	Provider string  `json:"provider" yaml:"provider"`
	Duration string  `json:"duration" yaml:"duration"`
	Rating   float64 `json:"rating" yaml:"rating"`
	Students string  `json:"students" yaml:"students"`
	Price    string  `json:"price" yaml:"price"`
	Level    string  `json:"level" yaml:"level"`
}

// Skill is a catalogue entry with its default levels.
type Skill struct {
	Name          string     `yaml:"name"`
	Importance    Importance `yaml:"importance"`
	DemandScore   int        `yaml:"demand_score"`
	CurrentLevel  int        `yaml:"current_level"`
	RequiredLevel int        `yaml:"required_level"`
	Courses       []Course   `yaml:"courses"`
}

// Level is a user's own record for one skill.
type Level struct {
	Skill    string
	Current  int
	Required int
	Updated  time.Time
}

// Gap is one row of the analysis.
type Gap struct {
	Name          string     `json:"name"`
	Importance    Importance `json:"importance"`
	DemandScore   int        `json:"demandScore"`
	CurrentLevel  int        `json:"currentLevel"`
	RequiredLevel int        `json:"requiredLevel"`
	Gap           int        `json:"gap"`
	Courses       []Course   `json:"courses"`
}

// Summary aggregates the gaps for the overview cards.
type Summary struct {
	SkillsToImprove        int `json:"skillsToImprove"`
	CriticalGaps           int `json:"criticalGaps"`
	MediumPriority         int `json:"mediumPriority"`
	CoursesAvailable       int `json:"coursesAvailable"`
	EstimatedLearningHours int `json:"estimatedLearningHours"`
}

// Report is the result of Analyze.
type Report struct {
	Skills  []Gap   `json:"skills"`
	Summary Summary `json:"summary"`
}
