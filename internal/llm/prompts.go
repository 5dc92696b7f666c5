package llm

import (
	_ "embed"
	"strings"
)

var (
	//go:embed prompts/analyze_v1.txt
	analyzeV1 string
	//go:embed prompts/match_v1.txt
	matchV1 string
)

const (
	// DefaultPromptVersion is used when callers pass an unknown version.
	DefaultPromptVersion = "v1"
	// MaxResumeRunes bounds the résumé text sent to a model.
	MaxResumeRunes = 15000

	systemAnalyze = "You are a strict resume evaluator. Respond with JSON only. No markdown. Never omit keys."
	systemMatch   = "You match resumes with job descriptions. Respond with JSON only."
	systemFixJSON = "You are a JSON repair tool. Return only valid JSON that matches the requested format exactly."
)

// PromptTemplate returns the analysis template and whether the version was recognized.
func PromptTemplate(version string) (string, bool) {
	switch strings.TrimSpace(version) {
	case "v1", "":
		return analyzeV1, true
	default:
		return analyzeV1, false
	}
}

// BuildAnalyzePrompt renders the analysis prompt for the given input.
func BuildAnalyzePrompt(input AnalyzeInput) Prompt {
	template, _ := PromptTemplate(input.PromptVersion)
	jd := strings.TrimSpace(input.JobDescription)
	if jd == "" {
		jd = "N/A"
	}
	role := strings.TrimSpace(input.TargetRole)
	if role == "" {
		role = "N/A"
	}
	user := strings.NewReplacer(
		"{{RESUME}}", TruncateRunes(input.ResumeText, MaxResumeRunes),
		"{{JOB_DESCRIPTION}}", jd,
		"{{TARGET_ROLE}}", role,
	).Replace(template)
	return Prompt{System: systemAnalyze, User: user, JSON: true}
}

// BuildMatchPrompt renders the résumé/job description match prompt.
func BuildMatchPrompt(input MatchInput) Prompt {
	user := strings.NewReplacer(
		"{{RESUME}}", TruncateRunes(input.ResumeText, MaxResumeRunes),
		"{{JOB_DESCRIPTION}}", TruncateRunes(input.JobDescription, MaxResumeRunes),
	).Replace(matchV1)
	return Prompt{System: systemMatch, User: user, JSON: true}
}

// BuildFixPrompt asks the model to repair its previous output.
func BuildFixPrompt(original Prompt, raw string) Prompt {
	return Prompt{
		System: systemFixJSON,
		User:   "The following output was requested with these instructions:\n" + original.User + "\n\nFix this output so it is valid JSON in that format. Output JSON only:\n" + raw,
		JSON:   true,
	}
}

// TruncateRunes cuts s to at most n runes.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
