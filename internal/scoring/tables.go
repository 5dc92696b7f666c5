package scoring

import "strings"

// Lookup tables are fixed for the life of the process. They are unexported
// and only handed out as copies.
var (
	toolKeywords = [...]string{
		"git", "docker", "kubernetes", "vscode", "postman", "anaconda", "jupyter",
		"mysql", "mongodb", "linux", "tensorflow", "keras", "pytorch",
	}

	industryKeywords = [...]string{
		"agile", "ci/cd", "cloud", "api", "machine learning", "deep learning",
		"data science", "nlp", "ai", "ml", "computer vision", "react", "node",
	}

	actionVerbs = [...]string{
		"developed", "built", "created", "managed", "led", "designed", "initiated",
		"increased", "launched", "collaborated", "executed", "achieved",
	}

	passivePhrases = [...]string{
		"responsible for", "tasked with", "involved in",
	}
)

// ToolKeywords returns the tool names matched against the skills list.
func ToolKeywords() []string {
	return append([]string(nil), toolKeywords[:]...)
}

// IndustryKeywords returns the keywords matched against experience and education.
func IndustryKeywords() []string {
	return append([]string(nil), industryKeywords[:]...)
}

// ActionVerbs returns the verbs that count toward the action bonus.
func ActionVerbs() []string {
	return append([]string(nil), actionVerbs[:]...)
}

// PassivePhrases returns the phrases that trigger the passive voice penalty.
func PassivePhrases() []string {
	return append([]string(nil), passivePhrases[:]...)
}

// countPresent counts needles that occur in haystack. haystack must already be
// lower-cased.
func countPresent(haystack string, needles []string) int {
	n := 0
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			n++
		}
	}
	return n
}
