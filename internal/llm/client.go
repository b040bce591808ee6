// Package llm provides thin clients for remote text-generation
// providers and the prompt/response plumbing the cluster interpreter
// needs. Each provider has its own request/response shape; the Client
// hides that behind a single Generate call.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Provider identifiers accepted by NewClient.
const (
	ProviderOllama     = "ollama"
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

// DefaultTimeout bounds the single outbound generation call.
const DefaultTimeout = 60 * time.Second

// Generator is the capability the interpreter depends on: turn a prompt
// into free text. Implementations are stateless between calls aside
// from their configured endpoint and credentials.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config identifies a remote endpoint, credential and model.
type Config struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
}

// Client is an HTTP Generator over one of the supported providers.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient builds a client for the configured provider. The provider
// name is matched case-insensitively; unknown providers are rejected up
// front rather than at call time.
func NewClient(cfg Config) (*Client, error) {
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	switch cfg.Provider {
	case ProviderOllama, ProviderOpenRouter, ProviderGemini:
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: DefaultTimeout},
	}, nil
}

// Generate sends the prompt to the provider and returns the raw
// response text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	switch c.cfg.Provider {
	case ProviderOllama:
		return c.generateOllama(ctx, prompt)
	case ProviderOpenRouter:
		return c.generateOpenRouter(ctx, prompt)
	case ProviderGemini:
		return c.generateGemini(ctx, prompt)
	}
	return "", fmt.Errorf("unknown provider %q", c.cfg.Provider)
}

// ollamaRequest is the /api/generate request shape.
type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

func (c *Client) generateOllama(ctx context.Context, prompt string) (string, error) {
	body := ollamaRequest{Model: c.cfg.Model, Prompt: prompt, Stream: false}
	var headers http.Header
	if c.cfg.APIKey != "" {
		headers = http.Header{"Authorization": {"Bearer " + c.cfg.APIKey}}
	}
	raw, err := c.post(ctx, c.cfg.BaseURL+"/api/generate", body, headers)
	if err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}
	var resp ollamaResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("ollama: decode response: %w", err)
	}
	return resp.Response, nil
}

// chatRequest is the OpenAI-compatible chat-completions shape used by
// OpenRouter for both GPT- and Claude-family models.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Content string `json:"content"`
}

func (c *Client) generateOpenRouter(ctx context.Context, prompt string) (string, error) {
	body := chatRequest{
		Model:    c.cfg.Model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}
	headers := http.Header{
		"Authorization": {"Bearer " + c.cfg.APIKey},
	}
	raw, err := c.post(ctx, c.cfg.BaseURL+"/chat/completions", body, headers)
	if err != nil {
		return "", fmt.Errorf("openrouter: %w", err)
	}
	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("openrouter: decode response: %w", err)
	}
	if len(resp.Choices) > 0 {
		return resp.Choices[0].Message.Content, nil
	}
	if resp.Content != "" {
		return resp.Content, nil
	}
	return "", fmt.Errorf("openrouter: response carried no content")
}

// geminiRequest is the generateContent request shape.
type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (c *Client) generateGemini(ctx context.Context, prompt string) (string, error) {
	body := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		c.cfg.BaseURL, c.cfg.Model, url.QueryEscape(c.cfg.APIKey))
	raw, err := c.post(ctx, endpoint, body, nil)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	var resp geminiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("gemini: decode response: %w", err)
	}
	if len(resp.Candidates) > 0 && len(resp.Candidates[0].Content.Parts) > 0 {
		return resp.Candidates[0].Content.Parts[0].Text, nil
	}
	return "", fmt.Errorf("gemini: response carried no candidates")
}

// post issues one JSON POST and returns the raw response body. Non-2xx
// statuses are errors; there is no retry, failures fall through to the
// caller's rule-based fallback.
func (c *Client) post(ctx context.Context, endpoint string, body interface{}, headers http.Header) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return raw, nil
}
