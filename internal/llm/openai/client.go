// Package openai implements llm.Completer over the OpenAI Chat Completions
// API. Any compatible endpoint (OpenRouter) works through Options.BaseURL.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"resume-insights/internal/llm"
)

const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"

	// DefaultOpenRouterModel is used when the openrouter provider has no model set.
	DefaultOpenRouterModel = "meta-llama/llama-3-70b-instruct"

	defaultTimeout = 120 * time.Second
)

// Options configures a Client.
type Options struct {
	// Provider is reported in logs; "openai" when empty.
	Provider string
	BaseURL  string
	Timeout  time.Duration
	// Referer is sent as HTTP-Referer, which OpenRouter uses for attribution.
	Referer    string
	HTTPClient *http.Client
}

// Client implements llm.Completer using Chat Completions.
type Client struct {
	apiKey     string
	model      string
	provider   string
	endpoint   string
	referer    string
	httpClient *http.Client
}

// NewClient constructs a new Chat Completions client.
func NewClient(apiKey, model string, opts Options) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("LLM_API_KEY is required")
	}
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	provider := strings.TrimSpace(opts.Provider)
	if provider == "" {
		provider = "openai"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		apiKey:     apiKey,
		model:      strings.TrimSpace(model),
		provider:   provider,
		endpoint:   base + "/chat/completions",
		referer:    strings.TrimSpace(opts.Referer),
		httpClient: httpClient,
	}, nil
}

func (c *Client) Provider() string { return c.provider }
func (c *Client) Model() string    { return c.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    *float32        `json:"temperature,omitempty"`
	TopP           *float32        `json:"top_p,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends prompt as a system+user conversation.
func (c *Client) Complete(ctx context.Context, prompt llm.Prompt) (llm.Completion, error) {
	messages := make([]chatMessage, 0, 2)
	if s := strings.TrimSpace(prompt.System); s != "" {
		messages = append(messages, chatMessage{Role: "system", Content: s})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt.User})

	reqBody := chatRequest{Model: c.model, Messages: messages}
	if !isGPT5(c.model) {
		// gpt-5 models reject sampling overrides.
		zero, one := float32(0), float32(1)
		reqBody.Temperature = &zero
		reqBody.TopP = &one
	}
	if prompt.JSON {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return llm.Completion{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return llm.Completion{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if c.referer != "" {
		req.Header.Set("HTTP-Referer", c.referer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return llm.Completion{}, fmt.Errorf("%s request timeout: %w", c.provider, err)
		}
		return llm.Completion{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return llm.Completion{}, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode >= 400 {
			return llm.Completion{}, fmt.Errorf("%s http status %d: %s", c.provider, resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return llm.Completion{}, fmt.Errorf("%s response parse: %w", c.provider, err)
	}
	if parsed.Error != nil {
		return llm.Completion{}, fmt.Errorf("%s error: %s (%s)", c.provider, parsed.Error.Message, parsed.Error.Type)
	}
	if resp.StatusCode >= 400 {
		return llm.Completion{}, fmt.Errorf("%s http status %d", c.provider, resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return llm.Completion{}, fmt.Errorf("%s response missing choices", c.provider)
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return llm.Completion{}, fmt.Errorf("%s response empty content", c.provider)
	}
	out := llm.Completion{Text: content}
	if parsed.Usage != nil {
		out.PromptTokens = parsed.Usage.PromptTokens
		out.CompletionTokens = parsed.Usage.CompletionTokens
	}
	return out, nil
}

func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5")
}

var _ llm.Completer = (*Client)(nil)
