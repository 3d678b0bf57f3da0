package bedrock

// ClaudeRequest represents a request to Claude models
type ClaudeRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	Messages         []ClaudeMessage `json:"messages"`
	Temperature      float64         `json:"temperature,omitempty"`
}

// ClaudeMessage represents a message in Claude request
type ClaudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ClaudeResponse represents a response from Claude models
type ClaudeResponse struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Role       string          `json:"role"`
	Content    []ClaudeContent `json:"content"`
	Model      string          `json:"model"`
	StopReason string          `json:"stop_reason"`
}

// ClaudeContent represents content in Claude response
type ClaudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// LlamaRequest represents a request to Llama models
type LlamaRequest struct {
	Prompt      string  `json:"prompt"`
	MaxGenLen   int     `json:"max_gen_len"`
	Temperature float64 `json:"temperature,omitempty"`
}

// LlamaResponse represents a response from Llama models
type LlamaResponse struct {
	Generation string `json:"generation"`
	StopReason string `json:"stop_reason"`
}

// MistralRequest represents a request to Mistral text models
type MistralRequest struct {
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature,omitempty"`
}

// MistralResponse represents a response from Mistral text models
type MistralResponse struct {
	Outputs []struct {
		Text       string `json:"text"`
		StopReason string `json:"stop_reason"`
	} `json:"outputs"`
}

// ChatRequest is the OpenAI-style body used by DeepSeek, Qwen and gpt-oss models
type ChatRequest struct {
	Messages    []ClaudeMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature,omitempty"`
}

// ChatResponse is the OpenAI-style response of DeepSeek, Qwen and gpt-oss models
type ChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int           `json:"index"`
		Message      ClaudeMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
}
