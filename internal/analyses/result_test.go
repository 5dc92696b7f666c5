package analyses

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResultWorkedExample(t *testing.T) {
	parsed, err := ParseResult(json.RawMessage(workedExampleResponse))
	require.NoError(t, err)

	assert.Equal(t, []string{"Python"}, parsed.Result.Skills.Technical)
	assert.Equal(t, []string{}, parsed.Result.Skills.Soft)
	assert.Equal(t, []string{"Python", "Docker"}, parsed.Result.AllSkills())
	require.NotNil(t, parsed.ReportedATS)
	assert.Equal(t, 72, *parsed.ReportedATS)

	in := parsed.Result.ScoringInput()
	assert.Equal(t, parsed.Result.Experience, in.Experience)
	assert.Equal(t, []string{"Strong leader", "Quick learner"}, in.Strengths)
}

func TestParseResultFillsMissingFields(t *testing.T) {
	parsed, err := ParseResult(json.RawMessage(`{"experience": null, "skills": null}`))
	require.NoError(t, err)

	assert.Empty(t, parsed.Result.Experience)
	assert.Equal(t, []string{}, parsed.Result.Strengths)
	assert.Equal(t, []string{}, parsed.Result.AllSkills())
	assert.Nil(t, parsed.ReportedATS)
	assert.Nil(t, parsed.ReportedClarity)
}

func TestParseResultKeepsDuplicates(t *testing.T) {
	parsed, err := ParseResult(json.RawMessage(`{"skills": {"technical": ["Go", "Go"]}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "Go"}, parsed.Result.Skills.Technical)
}

func TestParseResultClampsReportedScores(t *testing.T) {
	parsed, err := ParseResult(json.RawMessage(`{"ats_score": -4, "clarity_score": 140.2}`))
	require.NoError(t, err)
	assert.Equal(t, 0, *parsed.ReportedATS)
	assert.Equal(t, 100, *parsed.ReportedClarity)
}

func TestValidateResultReportsFields(t *testing.T) {
	cases := map[string]string{
		"list as string":  `{"strengths": "strong"}`,
		"number in list":  `{"weaknesses": [1, 2]}`,
		"skills as list":  `{"skills": ["Go"]}`,
		"score as string": `{"ats_score": "80"}`,
		"top-level array": `[]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			err := ValidateResult(json.RawMessage(raw))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrSchemaMismatch))
		})
	}
}

func TestValidateResultRejectsMalformedJSON(t *testing.T) {
	err := ValidateResult(json.RawMessage(`{"strengths": [`))
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}
