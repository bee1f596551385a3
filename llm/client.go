// ABOUTME: OpenAI Chat Completions client with base URL support for compatible providers.
// ABOUTME: Classifies provider failures into retryable and fatal collaborator errors.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/discernus/discernus-sub014/pipeline"
)

// Completion is one model response with its estimated cost.
type Completion struct {
	Text   string
	Model  string
	Cost   float64
	Tokens int64 // total tokens, prompt + completion
}

// Completer is the narrow model-call surface the collaborators build on.
type Completer interface {
	Complete(ctx context.Context, system, user string) (*Completion, error)
}

// Pricing is the per-1000-token price used for cost estimates.
type Pricing struct {
	PromptPerK     float64
	CompletionPerK float64
}

// Config configures a Client. BaseURL is optional and enables
// OpenAI-compatible providers.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int64
	Pricing     Pricing
}

// Client calls the Chat Completions API. It uses /v1/chat/completions, the
// endpoint supported by all OpenAI-compatible providers.
type Client struct {
	api         openai.Client
	model       string
	temperature float64
	maxTokens   int64
	pricing     Pricing
}

// NewClient creates a Chat Completions client from Config.
func NewClient(cfg Config) *Client {
	model := cfg.Model
	if model == "" {
		model = "gpt-4o"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		api:         openai.NewClient(opts...),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		pricing:     cfg.Pricing,
	}
}

// Complete sends one system+user exchange and returns the model's text.
func (c *Client) Complete(ctx context.Context, system, user string) (*Completion, error) {
	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		MaxCompletionTokens: openai.Int(c.maxTokens),
		Temperature:         openai.Float(c.temperature),
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &pipeline.CollaboratorError{Retryable: true, Err: fmt.Errorf("model returned no choices")}
	}

	tokens := resp.Usage.PromptTokens + resp.Usage.CompletionTokens
	cost := float64(resp.Usage.PromptTokens)/1000*c.pricing.PromptPerK +
		float64(resp.Usage.CompletionTokens)/1000*c.pricing.CompletionPerK

	return &Completion{
		Text:   resp.Choices[0].Message.Content,
		Model:  resp.Model,
		Cost:   cost,
		Tokens: tokens,
	}, nil
}

// classifyError maps provider failures to collaborator errors. Rate limits,
// timeouts, and server errors are retryable; auth and request errors are not.
// Transport-level failures are assumed transient.
func classifyError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		retryable := apiErr.StatusCode == 408 ||
			apiErr.StatusCode == 429 ||
			(apiErr.StatusCode >= 500 && apiErr.StatusCode <= 599)
		return &pipeline.CollaboratorError{Retryable: retryable, Err: err}
	}
	return &pipeline.CollaboratorError{Retryable: true, Err: err}
}
