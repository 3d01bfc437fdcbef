package augment

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ErrRateLimited marks a throttling response from the text-generation
// service. It is the only retryable failure.
var ErrRateLimited = errors.New("rate limited")

// IsRateLimited reports whether err carries a rate-limit signal.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// TextGenerator is the external text-generation service. Generate
// returns the first textual content block of the response verbatim;
// an absent text block yields an empty string, not an error.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ModelConfig selects the model and its invocation parameters.
type ModelConfig struct {
	ID          string  `yaml:"id"`
	APIKey      string  `yaml:"api_key"`
	MaxTokens   int64   `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

type anthropicGenerator struct {
	client anthropic.Client
	cfg    ModelConfig
}

// NewAnthropicGenerator builds the production text generator.
func NewAnthropicGenerator(cfg ModelConfig) TextGenerator {
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}
	return &anthropicGenerator{
		client: anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		cfg:    cfg,
	}
}

func (g *anthropicGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	message, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(g.cfg.ID),
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: anthropic.Float(g.cfg.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apierr *anthropic.Error
		if errors.As(err, &apierr) && apierr.StatusCode == http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return "", fmt.Errorf("model invocation failed: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", nil
}
