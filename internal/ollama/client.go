// Package ollama talks to a local Ollama server through its
// OpenAI-compatible /v1 API.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Name is the provider name reported by Client.
const Name = "ollama"

// ClientConfig holds the configuration needed to create a Client
type ClientConfig struct {
	Endpoint    string // e.g. http://localhost:11434/v1
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration // 0 means no client-side timeout
	HTTPClient  *http.Client  // optional, overrides Timeout
}

// Client is a chat completion client bound to one model.
type Client struct {
	api         *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// APIError is returned when the server answers with an error status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Status, e.Message)
}

// StatusCode returns the HTTP status of the failed call.
func (e *APIError) StatusCode() int {
	return e.Status
}

// NewClient creates a new Client from ClientConfig
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = strings.TrimRight(cfg.Endpoint, "/")
	apiCfg.HTTPClient = httpClient

	return &Client{
		api:         openai.NewClientWithConfig(apiCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: float32(cfg.Temperature),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return Name
}

// Model returns the model this client sends prompts to.
func (c *Client) Model() string {
	return c.model
}

// Complete sends a single user message and returns the assistant's reply.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", convertError(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("response contained no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// ListModels returns the IDs of the models available on the server.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	list, err := c.api.ListModels(ctx)
	if err != nil {
		return nil, convertError(err)
	}

	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// convertError maps go-openai's error types onto APIError so callers can
// classify failures by HTTP status. Transport errors are wrapped as is.
func convertError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		msg := strings.TrimSpace(apiErr.Message)
		if msg == "" {
			msg = http.StatusText(apiErr.HTTPStatusCode)
		}
		return &APIError{Status: apiErr.HTTPStatusCode, Message: msg}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		msg := strings.TrimSpace(string(reqErr.Body))
		if msg == "" {
			msg = http.StatusText(reqErr.HTTPStatusCode)
		}
		return &APIError{Status: reqErr.HTTPStatusCode, Message: msg}
	}

	return fmt.Errorf("request failed: %w", err)
}
