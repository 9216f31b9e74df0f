package llmservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"document-qa/internal/config"
)

// ErrGeneration means the language model call failed or timed out.
var ErrGeneration = errors.New("generation failed")

// Client wraps a chat completion model with bounded call timeouts.
type Client struct {
	model   llms.Model
	timeout time.Duration
}

func NewClient(cfg *config.LLMConfig) (*Client, error) {
	var (
		model llms.Model
		err   error
	)
	switch cfg.Provider {
	case "ollama":
		model, err = ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
	case "openai":
		model, err = openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
		)
	default:
		return nil, fmt.Errorf("unknown chat provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat client: %w", err)
	}
	return &Client{model: model, timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}, nil
}

// Generate performs a one-shot completion for the passthrough endpoint.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	response, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	return response, nil
}

// Stream performs a streaming completion, invoking fn for every produced
// fragment. The model call is aborted when fn returns an error.
func (c *Client) Stream(ctx context.Context, system, prompt string, fn func(ctx context.Context, chunk []byte) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}
	_, err := c.model.GenerateContent(ctx, messages, llms.WithStreamingFunc(fn))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	return nil
}
