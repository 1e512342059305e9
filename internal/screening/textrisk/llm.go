package textrisk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// SystemPrompt is the fixed instruction sent with every LLM classification.
const SystemPrompt = "You are a geopolitical risk analyst. Analyze the text for risks (sanctions, war, fraud). " +
	"Return JSON with keys: risk_level (LOW/MEDIUM/HIGH), keywords (list), summary."

// DefaultModel is used when no model is configured.
const DefaultModel = openai.GPT3Dot5Turbo

var (
	ErrEmptyCompletion  = errors.New("llm returned no choices")
	ErrMalformedVerdict = errors.New("llm returned a malformed verdict")
	ErrNoClient         = errors.New("llm client is not configured")
)

// LLMVerdict is the JSON document the model is asked to produce.
type LLMVerdict struct {
	RiskLevel string   `json:"risk_level"`
	Keywords  []string `json:"keywords"`
	Summary   string   `json:"summary"`
}

// LLM classifies text with an external language model.
type LLM interface {
	Analyze(ctx context.Context, text string) (LLMVerdict, error)
}

// OpenAIClient calls an OpenAI-compatible chat completion endpoint in JSON mode.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient returns a nil LLM when apiKey is empty so callers can pass
// the result straight to WithLLM and get the heuristic-only classifier.
func NewOpenAIClient(apiKey, model, baseURL string) LLM {
	if apiKey == "" {
		return nil
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(cfg), model: model}
}

func (c *OpenAIClient) Analyze(ctx context.Context, text string) (LLMVerdict, error) {
	if c == nil || c.client == nil {
		return LLMVerdict{}, ErrNoClient
	}
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return LLMVerdict{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return LLMVerdict{}, ErrEmptyCompletion
	}
	return ParseLLMVerdict(resp.Choices[0].Message.Content)
}

// ParseLLMVerdict decodes and checks a model response.
func ParseLLMVerdict(content string) (LLMVerdict, error) {
	var v LLMVerdict
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &v); err != nil {
		return LLMVerdict{}, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
	}
	if _, ok := ParseLevel(v.RiskLevel); !ok {
		return LLMVerdict{}, fmt.Errorf("%w: risk_level %q", ErrMalformedVerdict, v.RiskLevel)
	}
	return v, nil
}
