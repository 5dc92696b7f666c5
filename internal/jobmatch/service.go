// Package jobmatch extracts job descriptions and scores a résumé against one.
package jobmatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"resume-insights/internal/extract"
	"resume-insights/internal/llm"
	"resume-insights/internal/scoring"
	"resume-insights/internal/shared/telemetry"
)

const maxSuggestions = 3

var mimeByExt = map[string]string{
	".pdf":  extract.MimePDF,
	".docx": extract.MimeDOCX,
	".txt":  extract.MimeText,
}

// Result is the outcome of a match.
type Result struct {
	MatchScore  int      `json:"matchScore"`
	Suggestions []string `json:"suggestions"`
}

type rawResult struct {
	MatchScore  *float64 `json:"match_score"`
	Suggestions []any    `json:"suggestions"`
}

// Service runs job description matching.
type Service struct {
	Matcher llm.Matcher
}

// ExtractJD returns the text of an uploaded job description. The format is
// chosen by file extension.
func ExtractJD(ctx context.Context, fileName string, data []byte) (string, error) {
	mime, ok := mimeByExt[strings.ToLower(filepath.Ext(fileName))]
	if !ok {
		return "", ErrUnsupportedFormat
	}
	text, err := extract.ExtractTextFromBytes(ctx, data, mime, fileName)
	switch {
	case errors.Is(err, extract.ErrNoText):
		return "", ErrEmptyText
	case errors.Is(err, extract.ErrUnsupported):
		return "", ErrUnsupportedFormat
	case err != nil:
		return "", fmt.Errorf("extract %s: %w", fileName, err)
	}
	return text, nil
}

// Match asks the model how well resumeText fits jdText.
func (s *Service) Match(ctx context.Context, resumeText, jdText string) (Result, error) {
	if strings.TrimSpace(resumeText) == "" || strings.TrimSpace(jdText) == "" {
		return Result{}, ErrEmptyText
	}
	if s.Matcher == nil {
		return Result{}, errors.New("matcher not configured")
	}
	raw, err := s.Matcher.MatchJobDescription(ctx, llm.MatchInput{ResumeText: resumeText, JobDescription: jdText})
	if err != nil {
		if errors.Is(err, llm.ErrInvalidJSON) {
			return Result{}, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
		}
		return Result{}, fmt.Errorf("llm match: %w", err)
	}
	res, err := parseResult(raw)
	if err != nil {
		telemetry.Warn("jobmatch.invalid_output", map[string]any{
			"request_id": telemetry.RequestIDFromContext(ctx),
			"error":      err,
			"raw":        telemetry.Truncate(string(raw), 200),
		})
		return Result{}, err
	}
	telemetry.Info("jobmatch.completed", map[string]any{
		"request_id":  telemetry.RequestIDFromContext(ctx),
		"match_score": res.MatchScore,
		"suggestions": len(res.Suggestions),
	})
	return res, nil
}

// parseResult clamps the score and keeps up to three non-empty suggestions.
func parseResult(raw json.RawMessage) (Result, error) {
	var in rawResult
	if err := json.Unmarshal(raw, &in); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	if in.MatchScore == nil {
		return Result{}, fmt.Errorf("%w: match_score missing", ErrInvalidOutput)
	}
	out := Result{
		MatchScore:  scoring.Clamp(int(math.Round(*in.MatchScore))),
		Suggestions: make([]string, 0, maxSuggestions),
	}
	for _, item := range in.Suggestions {
		s, ok := item.(string)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		out.Suggestions = append(out.Suggestions, strings.TrimSpace(s))
		if len(out.Suggestions) == maxSuggestions {
			break
		}
	}
	return out, nil
}
