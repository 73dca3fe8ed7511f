package llm

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
	"github.com/tanpawarit/laia-quote-agent/agent/llm/einochat"
	geminillm "github.com/tanpawarit/laia-quote-agent/agent/llm/gemini"
	configx "github.com/tanpawarit/laia-quote-agent/pkg/config"
	geminix "github.com/tanpawarit/laia-quote-agent/pkg/gemini"
	openrouterx "github.com/tanpawarit/laia-quote-agent/pkg/openrouter"
)

type Provider string

const (
	ProviderGemini     Provider = "gemini"
	ProviderOpenRouter Provider = "openrouter"
)

// Config selects the chat model provider. Provider settings live under their
// own prefixes (GEMINI_*, OPENROUTER_*) and are loaded only when selected.
type Config struct {
	Provider  string `envconfig:"PROVIDER" split_words:"true" default:"gemini"`
	Preflight bool   `envconfig:"PREFLIGHT" split_words:"true" default:"true"`
}

func (c Config) Kind() Provider {
	return Provider(strings.ToLower(strings.TrimSpace(c.Provider)))
}

func (c Config) Validate() error {
	switch c.Kind() {
	case ProviderGemini, ProviderOpenRouter:
		return nil
	default:
		return fmt.Errorf("%w: unknown llm provider %q", contractx.ErrValidation, c.Provider)
	}
}

// NewSessionFactory loads the selected provider's settings and builds its
// session factory.
func NewSessionFactory(ctx context.Context, cfg Config) (contractx.ModelSessionFactory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Kind() {
	case ProviderOpenRouter:
		orCfg, err := configx.New[openrouterx.Config]("OPENROUTER")
		if err != nil {
			return nil, err
		}
		return NewOpenRouterFactory(ctx, *orCfg, cfg.Preflight)
	default:
		gemCfg, err := configx.New[geminix.Config]("GEMINI")
		if err != nil {
			return nil, err
		}
		return NewGeminiFactory(ctx, *gemCfg)
	}
}

func NewGeminiFactory(ctx context.Context, cfg geminix.Config) (*geminillm.Factory, error) {
	client, err := geminix.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	return geminillm.NewFactory(client.Models, cfg.Model, cfg.GenerationConfig())
}

// NewOpenRouterFactory builds the eino chat model, optionally checking first
// that OpenRouter serves the configured model.
func NewOpenRouterFactory(ctx context.Context, cfg openrouterx.Config, preflight bool) (*einochat.Factory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrValidation, err)
	}
	if preflight {
		if err := openrouterx.Preflight(ctx, openrouterx.NewClient(cfg), cfg.Model); err != nil {
			return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
		}
	}

	chatModel, err := cfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create chat model: %v", contractx.ErrModelInvoke, err)
	}
	return einochat.NewFactory(chatModel)
}
