// Package bedrock sends prompts to models hosted on AWS Bedrock.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"ollama-performance/internal/logger"
)

// Name is the provider name reported by Client.
const Name = "bedrock"

// Family groups models sharing one request/response body format.
type Family string

const (
	FamilyClaude  Family = "claude"
	FamilyLlama   Family = "llama"
	FamilyMistral Family = "mistral"
	FamilyChat    Family = "chat" // OpenAI-style: DeepSeek, Qwen, gpt-oss
	FamilyUnknown Family = ""
)

// ClientConfig holds the configuration needed to create a Bedrock client
type ClientConfig struct {
	Region      string
	AccessKey   string
	SecretKey   string
	ModelID     string
	MaxTokens   int
	Temperature float64
}

// modelInvoker is the subset of bedrockruntime.Client used here.
type modelInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Client wraps the AWS Bedrock Runtime client for a single model
type Client struct {
	runtime     modelInvoker
	modelID     string
	family      Family
	maxTokens   int
	temperature float64
}

// NewClient creates a new Bedrock client from ClientConfig.
// If credentials are empty the default credential chain is used
// (env, shared credentials, IAM role, etc.).
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	family := DetectFamily(cfg.ModelID)
	if family == FamilyUnknown {
		return nil, fmt.Errorf("unsupported model: %s", cfg.ModelID)
	}

	var awsCfg aws.Config
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		loaded, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load default AWS config: %w", err)
		}
		awsCfg = loaded
	} else {
		awsCfg = aws.Config{
			Region:      cfg.Region,
			Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		}
	}

	return newClient(bedrockruntime.NewFromConfig(awsCfg), cfg, family), nil
}

func newClient(runtime modelInvoker, cfg ClientConfig, family Family) *Client {
	return &Client{
		runtime:     runtime,
		modelID:     cfg.ModelID,
		family:      family,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return Name
}

// Model returns the Bedrock model ID.
func (c *Client) Model() string {
	return c.modelID
}

// Complete invokes the model without streaming and returns its text output.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := c.encodeRequest(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to prepare request: %w", err)
	}

	output, err := c.runtime.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		logger.Debug("bedrock invoke failed", "model", c.modelID, "error", err)
		return "", err
	}

	text, err := c.decodeResponse(output.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return text, nil
}

// DetectFamily maps a Bedrock model ID to its body format.
func DetectFamily(modelID string) Family {
	id := strings.ToLower(modelID)
	switch {
	case strings.Contains(id, "claude") || strings.Contains(id, "anthropic"):
		return FamilyClaude
	case strings.Contains(id, "deepseek") || strings.Contains(id, "qwen") || strings.Contains(id, "gpt-oss"):
		return FamilyChat
	case strings.Contains(id, "mistral") || strings.Contains(id, "mixtral"):
		return FamilyMistral
	case strings.Contains(id, "llama") || strings.Contains(id, "meta"):
		return FamilyLlama
	default:
		return FamilyUnknown
	}
}

func (c *Client) encodeRequest(prompt string) ([]byte, error) {
	switch c.family {
	case FamilyClaude:
		return json.Marshal(ClaudeRequest{
			AnthropicVersion: "bedrock-2023-05-31",
			MaxTokens:        c.maxTokens,
			Messages:         []ClaudeMessage{{Role: "user", Content: prompt}},
			Temperature:      c.temperature,
		})
	case FamilyChat:
		return json.Marshal(ChatRequest{
			Messages:    []ClaudeMessage{{Role: "user", Content: prompt}},
			MaxTokens:   c.maxTokens,
			Temperature: c.temperature,
		})
	case FamilyMistral:
		return json.Marshal(MistralRequest{
			Prompt:      "<s>[INST] " + prompt + " [/INST]",
			MaxTokens:   c.maxTokens,
			Temperature: c.temperature,
		})
	case FamilyLlama:
		return json.Marshal(LlamaRequest{
			Prompt:      prompt,
			MaxGenLen:   c.maxTokens,
			Temperature: c.temperature,
		})
	default:
		return nil, fmt.Errorf("unsupported model: %s", c.modelID)
	}
}

func (c *Client) decodeResponse(body []byte) (string, error) {
	switch c.family {
	case FamilyClaude:
		var resp ClaudeResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", err
		}
		var sb strings.Builder
		for _, block := range resp.Content {
			if block.Type == "" || block.Type == "text" {
				sb.WriteString(block.Text)
			}
		}
		return sb.String(), nil
	case FamilyChat:
		var resp ChatResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("response contained no choices")
		}
		return resp.Choices[0].Message.Content, nil
	case FamilyMistral:
		var resp MistralResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", err
		}
		if len(resp.Outputs) == 0 {
			return "", fmt.Errorf("response contained no outputs")
		}
		return resp.Outputs[0].Text, nil
	case FamilyLlama:
		var resp LlamaResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", err
		}
		return resp.Generation, nil
	default:
		return "", fmt.Errorf("unsupported model: %s", c.modelID)
	}
}
