package n8n

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	logx "github.com/tanpawarit/laia-quote-agent/pkg/logger"
)

const (
	internalTokenHeader  = "X-Internal-Token"
	maxResponseSizeBytes = 1 << 20
)

type Config struct {
	BaseURL       string        `envconfig:"BASE_URL" split_words:"true" default:"http://localhost:5678"`
	User          string        `envconfig:"BASIC_AUTH_USER" split_words:"true"`
	Password      string        `envconfig:"BASIC_AUTH_PASSWORD" split_words:"true"`
	InternalToken string        `envconfig:"INTERNAL_TOKEN" split_words:"true"`
	Timeout       time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"20s"`
}

// Client posts JSON payloads to n8n webhooks.
type Client struct {
	baseURL       string
	user          string
	password      string
	internalToken string
	httpClient    *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errors.New("n8n base url is required")
	}

	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	client := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		user:          strings.TrimSpace(cfg.User),
		password:      cfg.Password,
		internalToken: strings.TrimSpace(cfg.InternalToken),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}

	return client, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

// Call posts payload to the webhook at endpoint and decodes the JSON answer into out.
func (c *Client) Call(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal n8n payload: %w", err)
	}

	target := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build n8n request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.user != "" {
		req.SetBasicAuth(c.user, c.password)
	}
	if c.internalToken != "" {
		req.Header.Set(internalTokenHeader, c.internalToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute n8n request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return fmt.Errorf("read n8n response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("n8n http status=%d body=%s", resp.StatusCode, logx.Truncate(logx.MaskString(string(raw)), 300))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode n8n response: %w", err)
	}
	return nil
}
