// Package gemini implements llm.Completer with the Google GenAI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"resume-insights/internal/llm"
)

const defaultModel = "gemini-2.5-flash"

type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client wraps the GenAI models service.
type Client struct {
	models    generator
	modelName string
}

// NewClient creates a Client for the Gemini API backend.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newWithGenerator(client.Models, model), nil
}

func newWithGenerator(g generator, model string) *Client {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	return &Client{models: g, modelName: model}
}

func (c *Client) Provider() string { return "gemini" }
func (c *Client) Model() string    { return c.modelName }

// Complete sends the prompt and joins the text parts of every candidate.
func (c *Client) Complete(ctx context.Context, prompt llm.Prompt) (llm.Completion, error) {
	user := strings.TrimSpace(prompt.User)
	if user == "" {
		return llm.Completion{}, errors.New("prompt must not be empty")
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
		TopP:        genai.Ptr[float32](1),
	}
	if s := strings.TrimSpace(prompt.System); s != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: s}}}
	}
	if prompt.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := c.models.GenerateContent(ctx, c.modelName, genai.Text(user), cfg)
	if err != nil {
		return llm.Completion{}, fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}
	output := strings.TrimSpace(builder.String())
	if output == "" {
		return llm.Completion{}, errors.New("gemini api returned empty response")
	}

	out := llm.Completion{Text: output}
	if resp.UsageMetadata != nil {
		out.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}

var _ llm.Completer = (*Client)(nil)
