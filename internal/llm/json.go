package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON recovers the outermost JSON object from model output. It strips
// markdown code fences and any prose before the first '{' or after the last '}'.
func ExtractJSON(raw string) (json.RawMessage, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("%w: no object found", ErrInvalidJSON)
	}
	candidate := s[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return nil, fmt.Errorf("%w: malformed object", ErrInvalidJSON)
	}
	return json.RawMessage(candidate), nil
}
