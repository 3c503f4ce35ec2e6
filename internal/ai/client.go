package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Generator is the text-generation capability the chat and resume handlers
// depend on. Callers own the fallback: a Generator error never reaches the
// HTTP client.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Client calls an OpenRouter-compatible chat-completions endpoint.
type Client struct {
	HTTPClient *http.Client
	APIURL     string
	APIKey     string
	Model      string
}

func NewClient(apiURL, apiKey, model string) *Client {
	if apiURL == "" {
		apiURL = "https://openrouter.ai/api/v1/chat/completions"
	}
	if model == "" {
		model = "mistralai/mistral-7b-instruct"
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		APIURL:     apiURL,
		APIKey:     apiKey,
		Model:      model,
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.APIKey == "" {
		return "", fmt.Errorf("ai: no api key configured")
	}

	payload := completionRequest{
		Model: c.Model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:   400,
		Temperature: 0.7,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("ai: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("ai: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ai: request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ai: provider status %d", res.StatusCode)
	}

	var parsed completionResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("ai: decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("ai: empty completion")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
