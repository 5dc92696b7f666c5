package scoring

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func workedExample() Input {
	return Input{
		Skills:     []string{"Docker", "Python"},
		Experience: "Increased sales by 20% and led a team of 5. Developed a new CI/CD pipeline using Docker.",
		Education:  "Bachelor in CS",
		Strengths:  []string{"Strong leader", "Quick learner"},
	}
}

func TestScoreEmptyInput(t *testing.T) {
	got := Score(Input{})
	assert.Equal(t, Scores{ATS: 5, Clarity: 0, Overall: 3}, got)
}

func TestScoreWorkedExample(t *testing.T) {
	got, b := Explain(workedExample())

	assert.Equal(t, 2, b.SkillCount)
	assert.Equal(t, 1, b.FoundTools)
	assert.Equal(t, 1, b.FoundKeywords)
	assert.Equal(t, 3, b.FoundActions)
	assert.Equal(t, 0, b.PassiveMatches)
	assert.Equal(t, 1, b.NumberMentions)
	assert.True(t, b.HasDegree)
	assert.True(t, b.StructureComplete)
	assert.True(t, b.ClearLanguage)
	assert.False(t, b.HasBullets)

	// 2*2 + 1*2 + 1*3 + 1*3 + 0 + 5 + 10 + 0
	assert.Equal(t, 27, got.ATS)
	// 2*2 - 0 + 10 + 0 + 10 + 20
	assert.Equal(t, 44, got.Clarity)
	assert.Equal(t, 36, got.Overall)
}

func TestScoreIsIdempotent(t *testing.T) {
	in := workedExample()
	first := Score(in)
	second := Score(in)
	assert.Equal(t, first, second)
	assert.Equal(t, workedExample(), in, "input must not be mutated")
}

func TestWeaknessBonusBoundary(t *testing.T) {
	base := workedExample()

	one := base
	one.Weaknesses = []string{"Limited cloud exposure"}
	two := base
	two.Weaknesses = []string{"Limited cloud exposure", "No certifications"}

	_, b1 := Explain(one)
	_, b2 := Explain(two)

	// Removing the bonus costs 10 points on top of the per-weakness clarity penalty.
	assert.Equal(t, 27, b1.ATSRaw)
	assert.Equal(t, 17, b2.ATSRaw)
}

func TestExperienceLengthBoundary(t *testing.T) {
	exact := strings.Repeat("a", experienceLengthThreshold)
	over := exact + "b"

	_, atLimit := Explain(Input{Experience: exact})
	_, pastLimit := Explain(Input{Experience: over})

	require.Equal(t, 300, atLimit.ExperienceLength)
	assert.Equal(t, atLimit.ATSRaw+5, pastLimit.ATSRaw)
}

func TestExperienceLengthCountsCharacters(t *testing.T) {
	exp := strings.Repeat("é", experienceLengthThreshold)
	_, b := Explain(Input{Experience: exp})
	assert.Equal(t, 300, b.ExperienceLength)
}

func TestActionBonusNeedsMoreThanThree(t *testing.T) {
	three := Input{Experience: "Developed, built and created things"}
	four := Input{Experience: "Developed, built, created and launched things"}

	s3, _ := Explain(three)
	s4, _ := Explain(four)
	assert.Equal(t, s3.ATS+10, s4.ATS)
}

func TestPassivePhrasePenalty(t *testing.T) {
	active := Input{Experience: "Owned the billing service"}
	passive := Input{Experience: "Responsible for the billing service"}

	assert.Equal(t, Score(active).ATS-10, Score(passive).ATS)
}

func TestATSLowerClamp(t *testing.T) {
	in := Input{
		Experience: "Responsible for things",
		Weaknesses: []string{"a", "b", "c"},
	}
	_, b := Explain(in)
	require.Less(t, b.ATSRaw, 0)
	assert.Equal(t, 0, Score(in).ATS)
}

func TestUpperClamp(t *testing.T) {
	skills := make([]string, 0, 60)
	for i := 0; i < 60; i++ {
		skills = append(skills, "docker")
	}
	strengths := make([]string, 60)
	for i := range strengths {
		strengths[i] = "strength"
	}
	in := Input{
		Skills:     skills,
		Experience: "- Developed APIs. - Built cloud ML pipelines. - Led agile teams and increased revenue 40%.",
		Education:  "Master degree",
		Strengths:  strengths,
	}
	got := Score(in)
	assert.Equal(t, 100, got.ATS)
	assert.Equal(t, 100, got.Clarity)
	assert.Equal(t, 100, got.Overall)
}

func TestNumberMentionsOnlyInExperience(t *testing.T) {
	withEdu := Input{Experience: "Shipped features", Education: "GPA top 5% with $100 scholarship"}
	_, b := Explain(withEdu)
	assert.Equal(t, 0, b.NumberMentions)

	withExp := Input{Experience: "Grew revenue 30%, saved $2000, managed 10+ engineers"}
	_, b = Explain(withExp)
	assert.Equal(t, 3, b.NumberMentions)
}

func TestBulletsAndDegree(t *testing.T) {
	_, b := Explain(Input{Experience: "• Shipped payments", Education: "B.Tech"})
	assert.True(t, b.HasBullets)
	assert.True(t, b.HasDegree)

	_, b = Explain(Input{Experience: "Shipped payments", Education: "Bootcamp"})
	assert.False(t, b.HasBullets)
	assert.False(t, b.HasDegree)
}

func TestLongSentencesLoseClarityBonus(t *testing.T) {
	long := strings.TrimSpace(strings.Repeat("word ", 30)) + "."
	_, b := Explain(Input{Experience: long})
	// 30 words plus the blank segment after the final '.', over two segments.
	assert.InDelta(t, 15.5, b.AvgSentenceLength, 0.001)
	assert.True(t, b.ClearLanguage)

	// 49 words and a trailing '.' average exactly 25, which is not clear.
	_, b = Explain(Input{Experience: strings.TrimSpace(strings.Repeat("word ", 49)) + "."})
	assert.InDelta(t, 25.0, b.AvgSentenceLength, 0.001)
	assert.False(t, b.ClearLanguage)

	_, b = Explain(Input{Experience: strings.TrimSpace(strings.Repeat("word ", 60))})
	assert.False(t, b.ClearLanguage)
}

func TestBounds(t *testing.T) {
	inputs := []Input{
		{},
		workedExample(),
		{Weaknesses: []string{"a", "b", "c", "d", "e", "f", "g"}},
		{Skills: []string{"git", "linux", "keras"}, Experience: "Involved in a project. Tasked with testing."},
	}
	for _, in := range inputs {
		got := Score(in)
		for _, v := range []int{got.ATS, got.Clarity, got.Overall} {
			assert.GreaterOrEqual(t, v, MinScore)
			assert.LessOrEqual(t, v, MaxScore)
		}
		assert.Equal(t, Overall(got.ATS, got.Clarity), got.Overall)
	}
}

func TestTablesAreCopies(t *testing.T) {
	tools := ToolKeywords()
	tools[0] = "changed"
	assert.Equal(t, "git", ToolKeywords()[0])
	assert.Len(t, IndustryKeywords(), 13)
	assert.Len(t, ActionVerbs(), 12)
	assert.Len(t, PassivePhrases(), 3)
}

func TestBonusesNeedExperienceProse(t *testing.T) {
	in := Input{
		Education: "Bachelor of Science",
		Strengths: []string{"Curious", "Organised"},
	}
	s, b := Explain(in)

	assert.False(t, b.ClearLanguage)
	assert.False(t, b.StructureComplete)
	assert.True(t, b.HasDegree)
	// Only the passive-phrase bonus; the low-weakness bonus is withheld.
	assert.Equal(t, 5, b.ATSRaw)
	// Strengths and degree; no clear-language bonus.
	assert.Equal(t, 2*2+10, b.ClarityRaw)
	assert.Equal(t, Scores{ATS: 5, Clarity: 14, Overall: 10}, s)

	_, b = Explain(Input{Experience: " . . ", Education: "Bachelor", Strengths: []string{"x"}})
	assert.False(t, b.ClearLanguage)
	assert.Equal(t, 5, b.ATSRaw)
}
