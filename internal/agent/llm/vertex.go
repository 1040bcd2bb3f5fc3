package llm

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

const defaultVertexModel = "gemini-1.5-pro"

// VertexClient completes prompts with a Gemini model on Vertex AI.
type VertexClient struct {
	model      *genai.GenerativeModel
	baseClient *genai.Client
}

func NewVertexClient(ctx context.Context, projectID, region string, opts Options) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}

	name := opts.Model
	if name == "" {
		name = defaultVertexModel
	}
	model := baseClient.GenerativeModel(name)
	model.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr(float32(opts.Temperature)),
	}
	if opts.MaxTokens > 0 {
		model.GenerationConfig.MaxOutputTokens = genai.Ptr(int32(opts.MaxTokens))
	}

	return &VertexClient{model: model, baseClient: baseClient}, nil
}

// Complete implements Completion.
func (c *VertexClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	text := responseText(resp)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
