// Package llm defines the model-facing contracts for résumé analysis and job
// matching, and an Engine that implements them over any text Completer.
package llm

import (
	"context"
	"encoding/json"
	"errors"
)

// Client abstracts LLM providers for resume analysis.
type Client interface {
	AnalyzeResume(ctx context.Context, input AnalyzeInput) (json.RawMessage, error)
}

// Matcher scores a résumé against a job description.
type Matcher interface {
	MatchJobDescription(ctx context.Context, input MatchInput) (json.RawMessage, error)
}

// AnalyzeInput captures the inputs needed for resume analysis.
type AnalyzeInput struct {
	ResumeText     string
	JobDescription string
	PromptVersion  string
	TargetRole     string
}

// MatchInput captures the inputs for a résumé/job description match.
type MatchInput struct {
	ResumeText     string
	JobDescription string
}

type fixJSONKey struct{}

// WithFixJSON returns a context signaling a fix-JSON retry with the given raw output.
func WithFixJSON(ctx context.Context, raw string) context.Context {
	return context.WithValue(ctx, fixJSONKey{}, raw)
}

// FixJSONFromContext returns the raw JSON to repair, if any.
func FixJSONFromContext(ctx context.Context) (string, bool) {
	raw, ok := ctx.Value(fixJSONKey{}).(string)
	return raw, ok
}

var (
	// ErrNotImplemented is returned by the placeholder client.
	ErrNotImplemented = errors.New("LLM not implemented")
	// ErrInvalidJSON is returned when no JSON object can be recovered from model output.
	ErrInvalidJSON = errors.New("invalid JSON from LLM")
)

// PlaceholderClient stands in when no provider is configured.
type PlaceholderClient struct{}

// AnalyzeResume returns ErrNotImplemented.
func (PlaceholderClient) AnalyzeResume(context.Context, AnalyzeInput) (json.RawMessage, error) {
	return nil, ErrNotImplemented
}

// MatchJobDescription returns ErrNotImplemented.
func (PlaceholderClient) MatchJobDescription(context.Context, MatchInput) (json.RawMessage, error) {
	return nil, ErrNotImplemented
}

var (
	_ Client  = PlaceholderClient{}
	_ Matcher = PlaceholderClient{}
)
