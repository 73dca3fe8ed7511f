package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

type Config struct {
	APIKey          string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model           string        `envconfig:"MODEL" split_words:"true" default:"gemini-2.5-flash"`
	Temperature     float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.4"`
	MaxOutputTokens int32         `envconfig:"MAX_OUTPUT_TOKENS" split_words:"true" default:"2048"`
	Timeout         time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"60s"`
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return errors.New("gemini api key is required")
	}
	if strings.TrimSpace(c.Model) == "" {
		return errors.New("gemini model is required")
	}
	return nil
}

// GenerationConfig returns the per-request generation settings. Tools are
// attached by the chat session.
func (c *Config) GenerationConfig() *genai.GenerateContentConfig {
	temperature := c.Temperature
	return &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: c.MaxOutputTokens,
	}
}

// NewClient creates a Gemini API client bound to the configured timeout.
func NewClient(ctx context.Context, cfg Config) (*genai.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     strings.TrimSpace(cfg.APIKey),
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return client, nil
}
