// Package scoring computes the heuristic ATS, clarity and overall scores for a
// normalized résumé record. Everything here is a pure function of its input.
package scoring

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MinScore = 0
	MaxScore = 100

	// experienceLengthThreshold is exclusive: exactly this many characters
	// earns no length bonus.
	experienceLengthThreshold = 300
	clearSentenceWords        = 25
	minActionVerbs            = 3
)

var (
	numberMentionPattern = regexp.MustCompile(`\d+%|\$\d+|\d+\+`)
	degreePattern        = regexp.MustCompile(`btech|b\.tech|mtech|bachelor|master|degree`)
)

// Input is the normalized résumé record. Nil slices and empty strings are
// valid and mean "not provided".
type Input struct {
	Skills     []string `json:"skills"`
	Experience string   `json:"experience"`
	Education  string   `json:"education"`
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
}

// Scores holds the three bounded results.
type Scores struct {
	ATS     int `json:"atsScore"`
	Clarity int `json:"clarityScore"`
	Overall int `json:"overallScore"`
}

// Breakdown exposes the intermediate counts behind a score. It is used by the
// CLI and the score endpoint to explain a result.
type Breakdown struct {
	SkillCount        int     `json:"skillCount"`
	FoundTools        int     `json:"foundTools"`
	FoundKeywords     int     `json:"foundKeywords"`
	FoundActions      int     `json:"foundActions"`
	PassiveMatches    int     `json:"passiveMatches"`
	NumberMentions    int     `json:"numberMentions"`
	ExperienceLength  int     `json:"experienceLength"`
	AvgSentenceLength float64 `json:"avgSentenceLength"`
	HasBullets        bool    `json:"hasBullets"`
	HasDegree         bool    `json:"hasDegree"`
	StructureComplete bool    `json:"structureComplete"`
	ClearLanguage     bool    `json:"clearLanguage"`
	ATSRaw            int     `json:"atsRaw"`
	ClarityRaw        int     `json:"clarityRaw"`
}

// Score returns the ATS, clarity and overall scores for in.
func Score(in Input) Scores {
	s, _ := Explain(in)
	return s
}

// Explain is Score plus the counts that produced it.
func Explain(in Input) (Scores, Breakdown) {
	text := strings.ToLower(in.Experience + " " + in.Education)
	joinedSkills := strings.ToLower(strings.Join(in.Skills, " "))

	b := Breakdown{
		SkillCount:       len(in.Skills),
		FoundTools:       countPresent(joinedSkills, toolKeywords[:]),
		FoundKeywords:    countPresent(text, industryKeywords[:]),
		FoundActions:     countPresent(text, actionVerbs[:]),
		PassiveMatches:   countPresent(text, passivePhrases[:]),
		NumberMentions:   len(numberMentionPattern.FindAllStringIndex(in.Experience, -1)),
		ExperienceLength: utf8.RuneCountInString(in.Experience),
	}

	words, segments := sentenceStats(in.Experience)
	b.AvgSentenceLength = float64(words) / float64(max(segments, 1))
	// Readability and low-weakness bonuses need experience prose.
	hasProse := strings.TrimSpace(strings.ReplaceAll(in.Experience, ".", "")) != ""
	b.ClearLanguage = hasProse && b.AvgSentenceLength < clearSentenceWords
	b.HasBullets = strings.Contains(in.Experience, "•") || strings.Contains(in.Experience, "- ")
	b.HasDegree = degreePattern.MatchString(text)
	b.StructureComplete = strings.TrimSpace(in.Experience) != "" &&
		strings.TrimSpace(in.Education) != "" &&
		len(in.Strengths) > 0

	ats := b.SkillCount*2 + b.FoundTools*2 + b.FoundKeywords*3 + b.NumberMentions*3
	if b.FoundActions > minActionVerbs {
		ats += 10
	}
	if b.PassiveMatches == 0 {
		ats += 5
	} else {
		ats -= 5
	}
	if hasProse && len(in.Weaknesses) <= 1 {
		ats += 10
	}
	if b.ExperienceLength > experienceLengthThreshold {
		ats += 5
	}
	b.ATSRaw = ats

	clarity := len(in.Strengths)*2 - 3*len(in.Weaknesses)
	clarity += bonus(b.ClearLanguage, 10)
	clarity += bonus(b.HasBullets, 10)
	clarity += bonus(b.HasDegree, 10)
	clarity += bonus(b.StructureComplete, 20)
	b.ClarityRaw = clarity

	out := Scores{
		ATS:     Clamp(ats),
		Clarity: Clamp(clarity),
	}
	out.Overall = Overall(out.ATS, out.Clarity)
	return out, b
}

// Overall averages two bounded scores, rounding halves up.
func Overall(ats, clarity int) int {
	return Clamp(int(math.Round(float64(ats+clarity) / 2)))
}

// Clamp bounds v to [MinScore, MaxScore].
func Clamp(v int) int {
	return min(max(v, MinScore), MaxScore)
}

// sentenceStats splits on '.' and returns the total word count and the number
// of segments. A blank segment, such as the one after a trailing '.', counts
// as one word.
func sentenceStats(experience string) (words, segments int) {
	if experience == "" {
		return 0, 0
	}
	parts := strings.Split(experience, ".")
	for _, p := range parts {
		words += max(len(strings.Fields(p)), 1)
	}
	return words, len(parts)
}

func bonus(ok bool, points int) int {
	if ok {
		return points
	}
	return 0
}
