package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"resume-insights/internal/shared/telemetry"
)

// Prompt is a provider-neutral request.
type Prompt struct {
	System string
	User   string
	// JSON asks the provider for a JSON-only response where supported.
	JSON bool
}

// Completion is a provider response.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Completer sends a single prompt to a model.
type Completer interface {
	Complete(ctx context.Context, prompt Prompt) (Completion, error)
	Provider() string
	Model() string
}

// Engine implements Client and Matcher on top of a Completer, with one repair
// round when the model returns something that is not a JSON object.
type Engine struct {
	completer Completer
}

// NewEngine wraps c.
func NewEngine(c Completer) *Engine {
	return &Engine{completer: c}
}

func (e *Engine) Provider() string { return e.completer.Provider() }
func (e *Engine) Model() string    { return e.completer.Model() }

// AnalyzeResume runs the analysis prompt and returns the JSON object.
func (e *Engine) AnalyzeResume(ctx context.Context, input AnalyzeInput) (json.RawMessage, error) {
	if strings.TrimSpace(input.ResumeText) == "" {
		return nil, fmt.Errorf("resume text is empty")
	}
	prompt := BuildAnalyzePrompt(input)
	if raw, ok := FixJSONFromContext(ctx); ok {
		return e.repair(ctx, "analyze", prompt, raw)
	}
	return e.run(ctx, "analyze", prompt)
}

// MatchJobDescription runs the match prompt and returns the JSON object.
func (e *Engine) MatchJobDescription(ctx context.Context, input MatchInput) (json.RawMessage, error) {
	if strings.TrimSpace(input.ResumeText) == "" || strings.TrimSpace(input.JobDescription) == "" {
		return nil, fmt.Errorf("resume and job description text are required")
	}
	return e.run(ctx, "match", BuildMatchPrompt(input))
}

func (e *Engine) run(ctx context.Context, task string, prompt Prompt) (json.RawMessage, error) {
	text, err := e.complete(ctx, task, prompt)
	if err != nil {
		return nil, err
	}
	if obj, err := ExtractJSON(text); err == nil {
		return obj, nil
	}
	return e.repair(ctx, task, prompt, text)
}

func (e *Engine) repair(ctx context.Context, task string, prompt Prompt, raw string) (json.RawMessage, error) {
	text, err := e.complete(ctx, task+".fix_json", BuildFixPrompt(prompt, raw))
	if err != nil {
		return nil, err
	}
	return ExtractJSON(text)
}

func (e *Engine) complete(ctx context.Context, task string, prompt Prompt) (string, error) {
	start := time.Now()
	out, err := e.completer.Complete(ctx, prompt)
	fields := map[string]any{
		"task":        task,
		"ai_provider": e.completer.Provider(),
		"ai_model":    e.completer.Model(),
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		fields["error"] = err
		telemetry.Error("llm.request.failed", fields)
		return "", err
	}
	fields["prompt_tokens"] = out.PromptTokens
	fields["completion_tokens"] = out.CompletionTokens
	telemetry.Info("llm.response", fields)
	return out.Text, nil
}

var (
	_ Client  = (*Engine)(nil)
	_ Matcher = (*Engine)(nil)
)
