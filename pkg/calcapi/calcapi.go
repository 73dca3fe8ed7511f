// Package calcapi calls the traffic-engineering calculation service.
package calcapi

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

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
	logx "github.com/tanpawarit/laia-quote-agent/pkg/logger"
)

const (
	statusOK             = "ok"
	maxResponseSizeBytes = 1 << 20

	detailNotConfigured = "La API de cálculo no está configurada."
	detailRemoteError   = "La API de cálculo devolvió un error."
)

type Config struct {
	URL     string        `envconfig:"URL" split_words:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
}

type Client struct {
	url        string
	token      string
	httpClient *http.Client
}

var _ contractx.Calculator = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	target := strings.TrimSpace(cfg.URL)
	if target != "" {
		if _, err := url.ParseRequestURI(target); err != nil {
			return nil, fmt.Errorf("invalid calculation api url: %w", err)
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		url:   target,
		token: strings.TrimSpace(cfg.Token),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Configured reports whether an endpoint URL was set.
func (c *Client) Configured() bool {
	return c != nil && c.url != ""
}

type runRequest struct {
	Service string             `json:"service"`
	Inputs  map[string]float64 `json:"inputs"`
	Token   string             `json:"token,omitempty"`
}

type runResponse struct {
	Status  string         `json:"status"`
	Outputs map[string]any `json:"outputs"`
	Error   string         `json:"error"`
	Message string         `json:"message"`
}

// Run posts {service, inputs, token}. A non-2xx answer is reported in the
// result; only transport failures return an error.
func (c *Client) Run(ctx context.Context, serviceID string, inputs map[string]float64) (contractx.CalcResult, error) {
	if c.url == "" {
		log.Error().Msg("calculation api url is not configured")
		return contractx.CalcResult{OK: false, Details: detailNotConfigured}, nil
	}
	if inputs == nil {
		inputs = map[string]float64{}
	}

	body, err := json.Marshal(runRequest{Service: serviceID, Inputs: inputs, Token: c.token})
	if err != nil {
		return contractx.CalcResult{}, fmt.Errorf("marshal calculation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return contractx.CalcResult{}, fmt.Errorf("build calculation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	log.Info().
		Str("service", serviceID).
		Interface("inputs", inputs).
		Msg("calling calculation api")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return contractx.CalcResult{}, fmt.Errorf("%w: calculation api: %v", contractx.ErrCollaborator, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return contractx.CalcResult{}, fmt.Errorf("%w: read calculation response: %v", contractx.ErrCollaborator, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		log.Warn().
			Int("status", resp.StatusCode).
			Str("body", logx.Truncate(logx.MaskString(string(raw)), 300)).
			Msg("calculation api request failed")
		return contractx.CalcResult{OK: false, Details: detailRemoteError}, nil
	}

	var parsed runResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return contractx.CalcResult{}, errors.Join(contractx.ErrCollaborator, fmt.Errorf("decode calculation response: %w", err))
	}

	res := contractx.CalcResult{
		OK:      parsed.Status == statusOK,
		Outputs: parsed.Outputs,
		Error:   parsed.Error,
	}
	if !res.OK && res.Error == "" {
		res.Details = parsed.Message
	}
	return res, nil
}
