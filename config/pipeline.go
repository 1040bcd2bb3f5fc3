package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PipelineConfig holds the extraction pipeline tunables. Zero values in a YAML
// file keep the defaults.
type PipelineConfig struct {
	// SparseThreshold is the native-text length (runes) below which a page is OCRed.
	SparseThreshold int `yaml:"sparse_threshold" json:"sparseThreshold"`
	// MinRelevantLength is the shortest page text (runes) the classifier accepts.
	MinRelevantLength int `yaml:"min_relevant_length" json:"minRelevantLength"`
	// MaxAttempts bounds model calls per page, first try included.
	MaxAttempts int `yaml:"max_attempts" json:"maxAttempts"`
	// Backoff is the wait schedule between attempts; the last entry repeats.
	Backoff []Duration `yaml:"backoff" json:"backoff"`
	// CallTimeout caps a single model call.
	CallTimeout Duration `yaml:"call_timeout" json:"callTimeout"`
	// Aggregation is "merge" (deterministic) or "model".
	Aggregation string `yaml:"aggregation" json:"aggregation"`
	// Concurrency is the number of documents the CLI processes at once.
	Concurrency int `yaml:"concurrency" json:"concurrency"`
}

// Duration lets YAML carry values like "2s" or "5m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("failed to decode duration: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// DefaultPipelineConfig returns three attempts two seconds apart with
// deterministic aggregation.
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		SparseThreshold:   200,
		MinRelevantLength: 100,
		MaxAttempts:       3,
		Backoff:           []Duration{Duration(2 * time.Second)},
		CallTimeout:       Duration(5 * time.Minute),
		Aggregation:       "merge",
		Concurrency:       1,
	}
}

// BackoffSchedule returns Backoff as plain durations.
func (c *PipelineConfig) BackoffSchedule() []time.Duration {
	out := make([]time.Duration, len(c.Backoff))
	for i, d := range c.Backoff {
		out[i] = d.Std()
	}
	return out
}

// LoadPipelineConfig reads path over the defaults. An empty path falls back
// to PIPELINE_CONFIG; if that is unset too the defaults are returned.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	cfg := DefaultPipelineConfig()
	if path == "" {
		loadEnv()
		path = os.Getenv("PIPELINE_CONFIG")
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline config: %w", err)
	}

	var file PipelineConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline config: %w", err)
	}
	cfg.merge(&file)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *PipelineConfig) merge(o *PipelineConfig) {
	if o.SparseThreshold > 0 {
		c.SparseThreshold = o.SparseThreshold
	}
	if o.MinRelevantLength > 0 {
		c.MinRelevantLength = o.MinRelevantLength
	}
	if o.MaxAttempts > 0 {
		c.MaxAttempts = o.MaxAttempts
	}
	if o.Backoff != nil {
		c.Backoff = o.Backoff
	}
	if o.CallTimeout > 0 {
		c.CallTimeout = o.CallTimeout
	}
	if o.Aggregation != "" {
		c.Aggregation = o.Aggregation
	}
	if o.Concurrency > 0 {
		c.Concurrency = o.Concurrency
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c *PipelineConfig) Validate() error {
	switch c.Aggregation {
	case "merge", "model":
	default:
		return fmt.Errorf("unknown aggregation strategy %q", c.Aggregation)
	}
	for _, d := range c.Backoff {
		if d < 0 {
			return fmt.Errorf("negative backoff %s", d.Std())
		}
	}
	return nil
}
