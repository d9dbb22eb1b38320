package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

const (
	defaultModel     = "claude-sonnet-4-5-20250929"
	defaultMaxTokens = 1000
)

// Generator wraps the Anthropic SDK to provide simple prompt-based interactions.
type Generator struct {
	client    sdk.Client
	modelName string
	maxTokens int64
	logger    *zap.Logger
}

// NewGenerator creates a new Generator for the Anthropic Messages API.
func NewGenerator(apiKey, model string, maxTokens int, logger *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("anthropic api key is required")
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		client:    sdk.NewClient(option.WithAPIKey(apiKey)),
		modelName: model,
		maxTokens: int64(maxTokens),
		logger:    logger,
	}, nil
}

// GenerateContent sends the prompt as a single user message and returns the
// concatenated text blocks from the reply.
func (g *Generator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if g == nil {
		return "", errors.New("anthropic generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	resp, err := g.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(g.modelName),
		MaxTokens: g.maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic api call: %w", err)
	}

	var builder strings.Builder
	for _, block := range resp.Content {
		if block.Type != "text" {
			continue
		}
		text := strings.TrimSpace(block.Text)
		if text == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(text)
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("anthropic api returned empty response")
	}

	return output, nil
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}
