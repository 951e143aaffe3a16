// Package xai implements the content generator on top of the xAI chat
// completions API, which is OpenAI wire compatible.
package xai

import (
	"context"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/mechapengu/postpilot/model"
	"github.com/mechapengu/postpilot/service/generator"
)

const (
	// DefaultBaseURL is the xAI OpenAI-compatible endpoint.
	DefaultBaseURL = "https://api.x.ai/v1"
	// DefaultModel is the grok generation used for drafting posts.
	DefaultModel = "grok-4"

	maxTokens = 300
)

// Client generates post drafts with the grok chat completions API.
type Client struct {
	client  openai.Client
	persona *generator.Persona
	model   string
	baseURL string
	apiKey  string
}

var _ generator.Service = (*Client)(nil)

// Option customizes the client.
type Option func(*Client)

// WithModel overrides the grok model name.
func WithModel(name string) Option {
	return func(c *Client) { c.model = name }
}

// WithBaseURL overrides the API endpoint; tests point it at a local server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithPersona overrides the built-in Mechapengu persona.
func WithPersona(persona *generator.Persona) Option {
	return func(c *Client) { c.persona = persona }
}

// New creates a grok-backed generator.
func New(apiKey string, options ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("xai api key is required")
	}
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		model:   DefaultModel,
		persona: generator.DefaultPersona(),
	}
	for _, opt := range options {
		opt(c)
	}
	c.client = openai.NewClient(
		option.WithAPIKey(c.apiKey),
		option.WithBaseURL(c.baseURL),
	)
	return c, nil
}

// Generate asks grok for the next post given recent history.
func (c *Client) Generate(ctx context.Context, history []string) (*generator.Draft, error) {
	prompt := generator.BuildPrompt(c.persona, history)
	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxTokens: openai.Int(maxTokens),
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %v: %w", err, model.ErrGenerationFailed)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices: %w", model.ErrGenerationFailed)
	}
	return generator.ParseResponse(completion.Choices[0].Message.Content)
}
