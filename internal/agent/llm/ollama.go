package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/feichai0017/paper-extractor/pkg/logger"
)

// OllamaConfig configures the Ollama backend.
type OllamaConfig struct {
	Endpoint    string
	Model       string
	MaxTokens   int
	Temperature float64
	// Timeout bounds one HTTP round trip.
	Timeout     time.Duration
	MaxPoolSize int
	PoolTimeout time.Duration
}

func DefaultOllamaConfig() *OllamaConfig {
	return &OllamaConfig{
		Endpoint:    "http://localhost:11434",
		Model:       "mistral",
		MaxTokens:   2048,
		Temperature: 0,
		Timeout:     300 * time.Second,
		MaxPoolSize: 4,
		PoolTimeout: 30 * time.Second,
	}
}

type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

// OllamaResponse is the non-streaming /api/generate body.
type OllamaResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	TotalDuration   int64  `json:"total_duration,omitempty"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
	Error           string `json:"error,omitempty"`
}

// OllamaClient talks to a single Ollama server.
type OllamaClient struct {
	endpoint    string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

func NewOllamaClient(cfg *OllamaConfig) *OllamaClient {
	return &OllamaClient{
		endpoint:    strings.TrimRight(cfg.Endpoint, "/"),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Complete implements Completion.
func (c *OllamaClient) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody := ollamaRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Options: map[string]any{
			"temperature": c.temperature,
		},
	}
	if c.maxTokens > 0 {
		reqBody.Options["num_predict"] = c.maxTokens
	}

	reqData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/generate", bytes.NewReader(reqData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result OllamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("ollama error: %s", result.Error)
	}
	if strings.TrimSpace(result.Response) == "" {
		return "", ErrEmptyResponse
	}
	return result.Response, nil
}

func (c *OllamaClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// OllamaClientPool bounds the number of in-flight Ollama requests.
type OllamaClientPool struct {
	clients chan *OllamaClient
	config  *OllamaConfig
	logger  logger.Logger
}

func NewOllamaClientPool(cfg *OllamaConfig, log logger.Logger) *OllamaClientPool {
	if cfg.MaxPoolSize < 1 {
		cfg.MaxPoolSize = 1
	}
	if log == nil {
		log = logger.NewNop()
	}
	pool := &OllamaClientPool{
		clients: make(chan *OllamaClient, cfg.MaxPoolSize),
		config:  cfg,
		logger:  log.Named("ollama"),
	}
	for i := 0; i < cfg.MaxPoolSize; i++ {
		pool.clients <- NewOllamaClient(cfg)
	}
	return pool
}

func (p *OllamaClientPool) Get(ctx context.Context) (*OllamaClient, error) {
	var wait <-chan time.Time
	if p.config.PoolTimeout > 0 {
		timer := time.NewTimer(p.config.PoolTimeout)
		defer timer.Stop()
		wait = timer.C
	}

	select {
	case client := <-p.clients:
		return client, nil
	case <-wait:
		return nil, fmt.Errorf("timeout waiting for available client")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *OllamaClientPool) Put(client *OllamaClient) {
	select {
	case p.clients <- client:
	default:
	}
}

// Complete borrows a client for the duration of one request.
func (p *OllamaClientPool) Complete(ctx context.Context, prompt string) (string, error) {
	client, err := p.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get ollama client: %w", err)
	}
	defer p.Put(client)

	start := time.Now()
	out, err := client.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	p.logger.Debug("Ollama completion finished",
		logger.String("model", p.config.Model),
		logger.Duration("duration", time.Since(start)),
	)
	return out, nil
}

func (p *OllamaClientPool) Close() error {
	close(p.clients)
	for client := range p.clients {
		client.Close()
	}
	return nil
}
