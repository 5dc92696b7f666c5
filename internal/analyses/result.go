package analyses

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"resume-insights/internal/scoring"
)

//go:embed schema/analysis_result.json
var resultSchemaJSON string

var loadResultSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(resultSchemaJSON))
})

// Skills groups the skills the model found.
type Skills struct {
	Technical []string `json:"technical"`
	Soft      []string `json:"soft"`
	Tools     []string `json:"tools"`
}

// Result is the normalized analysis. Every slice is non-nil.
type Result struct {
	Experience      string   `json:"experience"`
	Education       string   `json:"education"`
	Skills          Skills   `json:"skills"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	MissingKeywords []string `json:"missingKeywords"`
	JobMatches      []string `json:"jobMatches"`
}

// AllSkills returns technical, soft and tools skills in that order.
func (r Result) AllSkills() []string {
	out := make([]string, 0, len(r.Skills.Technical)+len(r.Skills.Soft)+len(r.Skills.Tools))
	out = append(out, r.Skills.Technical...)
	out = append(out, r.Skills.Soft...)
	return append(out, r.Skills.Tools...)
}

// ScoringInput maps the result onto the scorer's record.
func (r Result) ScoringInput() scoring.Input {
	return scoring.Input{
		Skills:     r.AllSkills(),
		Experience: r.Experience,
		Education:  r.Education,
		Strengths:  r.Strengths,
		Weaknesses: r.Weaknesses,
	}
}

// SchemaError lists the fields that failed validation.
type SchemaError struct {
	Fields []string
}

func (e *SchemaError) Error() string {
	return "schema mismatch: " + strings.Join(e.Fields, "; ")
}

func (e *SchemaError) Unwrap() error { return ErrSchemaMismatch }

type rawResult struct {
	ATSScore        *float64 `json:"ats_score"`
	ClarityScore    *float64 `json:"clarity_score"`
	Experience      string   `json:"experience"`
	Education       string   `json:"education"`
	Skills          *Skills  `json:"skills"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	MissingKeywords []string `json:"missing_keywords"`
	JobMatches      []string `json:"job_matches"`
}

// Parsed is a validated model response.
type Parsed struct {
	Result          Result
	ReportedATS     *int
	ReportedClarity *int
}

// ValidateResult checks raw model output against the result schema.
func ValidateResult(raw json.RawMessage) error {
	schema, err := loadResultSchema()
	if err != nil {
		return fmt.Errorf("load result schema: %w", err)
	}
	res, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	if res.Valid() {
		return nil
	}
	fields := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		fields = append(fields, e.Field()+": "+e.Description())
	}
	return &SchemaError{Fields: fields}
}

// ParseResult validates and normalizes raw model output. Missing fields become
// empty values. List entries are kept as-is, duplicates included, since the
// scorer counts them.
func ParseResult(raw json.RawMessage) (Parsed, error) {
	if err := ValidateResult(raw); err != nil {
		return Parsed{}, err
	}
	var in rawResult
	if err := json.Unmarshal(raw, &in); err != nil {
		return Parsed{}, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}

	var skills Skills
	if in.Skills != nil {
		skills = *in.Skills
	}
	out := Parsed{
		Result: Result{
			Experience: in.Experience,
			Education:  in.Education,
			Skills: Skills{
				Technical: orEmpty(skills.Technical),
				Soft:      orEmpty(skills.Soft),
				Tools:     orEmpty(skills.Tools),
			},
			Strengths:       orEmpty(in.Strengths),
			Weaknesses:      orEmpty(in.Weaknesses),
			MissingKeywords: orEmpty(in.MissingKeywords),
			JobMatches:      orEmpty(in.JobMatches),
		},
		ReportedATS:     reportedScore(in.ATSScore),
		ReportedClarity: reportedScore(in.ClarityScore),
	}
	return out, nil
}

func orEmpty(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func reportedScore(v *float64) *int {
	if v == nil {
		return nil
	}
	score := scoring.Clamp(int(math.Round(*v)))
	return &score
}
