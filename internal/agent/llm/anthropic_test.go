package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"cloud.google.com/go/vertexai/genai"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicClient_Complete(t *testing.T) {
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/messages")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"id":   "msg_1",
			"type": "message",
			"role": "assistant",
			"content": []map[string]any{
				{"type": "text", "text": "T\tV\tTh\tH\tM\tD\tR\tL"},
			},
			"model":       "claude-3-5-haiku-latest",
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 10, "output_tokens": 5},
		})
	}))
	defer ts.Close()

	c := NewAnthropicClient("test-key", Options{}, option.WithBaseURL(ts.URL), option.WithMaxRetries(0))
	out, err := c.Complete(context.Background(), "page text")
	require.NoError(t, err)
	assert.Equal(t, "T\tV\tTh\tH\tM\tD\tR\tL", out)

	assert.Equal(t, defaultAnthropicModel, body["model"])
	assert.EqualValues(t, 2048, body["max_tokens"])
}

func TestAnthropicClient_EmptyContent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"id": "msg_2", "type": "message", "role": "assistant",
			"content": []map[string]any{}, "model": "m", "stop_reason": "end_turn",
			"usage": map[string]any{"input_tokens": 1, "output_tokens": 0},
		})
	}))
	defer ts.Close()

	c := NewAnthropicClient("k", Options{Model: "m"}, option.WithBaseURL(ts.URL), option.WithMaxRetries(0))
	_, err := c.Complete(context.Background(), "p")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestVertexResponseText(t *testing.T) {
	assert.Empty(t, responseText(nil))
	assert.Empty(t, responseText(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text("a\t"), genai.Text("b")}},
	}}}
	assert.Equal(t, "a\tb", responseText(resp))
}
