package llm

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-3-5-haiku-latest"

// AnthropicClient completes prompts with the Anthropic Messages API.
type AnthropicClient struct {
	client sdk.Client
	opts   Options
}

func NewAnthropicClient(apiKey string, opts Options, reqOpts ...option.RequestOption) *AnthropicClient {
	if opts.Model == "" {
		opts.Model = defaultAnthropicModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 2048
	}
	reqOpts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, reqOpts...)
	return &AnthropicClient{client: sdk.NewClient(reqOpts...), opts: opts}
}

// Complete implements Completion.
func (c *AnthropicClient) Complete(ctx context.Context, prompt string) (string, error) {
	params := sdk.MessageNewParams{
		Model:       sdk.Model(c.opts.Model),
		MaxTokens:   int64(c.opts.MaxTokens),
		Temperature: sdk.Float(c.opts.Temperature),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to create message: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", ErrEmptyResponse
	}
	return b.String(), nil
}
