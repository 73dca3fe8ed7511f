// Package api exposes the chat, upload and payment flows over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tanpawarit/laia-quote-agent/agent/agents/checkout"
)

const (
	defaultMaxBodyBytes   = 64 << 10
	multipartOverhead     = 1 << 20
	defaultRequestTimeout = 90 * time.Second
)

// Chat handles conversation turns.
type Chat interface {
	HandleMessage(ctx context.Context, sessionID string, text string) (string, error)
	Reset(ctx context.Context, sessionID string) error
}

// Checkout handles aforo uploads and payment simulation.
type Checkout interface {
	Upload(ctx context.Context, in checkout.Upload) (checkout.UploadResult, error)
	SimulatePayment(ctx context.Context, sessionID string) (checkout.PaymentResult, error)
}

// Observer receives one sample per served request.
type Observer interface {
	ObserveHTTP(route string, code int)
}

type Config struct {
	AgentToken     string
	MaxBodyBytes   int64
	RequestTimeout time.Duration
	// Apology is returned as the chat response when a turn cannot be served.
	Apology string
}

type Deps struct {
	Chat     Chat
	Checkout Checkout
	Observer Observer
	Metrics  http.Handler
}

type handlers struct {
	chat     Chat
	checkout Checkout
	cfg      Config
}

func NewRouter(deps Deps, cfg Config) (http.Handler, error) {
	if deps.Chat == nil {
		return nil, errors.New("chat service is required")
	}
	if deps.Checkout == nil {
		return nil, errors.New("checkout service is required")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}

	h := &handlers{chat: deps.Chat, checkout: deps.Checkout, cfg: cfg}
	protected := chain(AgentKey(cfg.AgentToken), timeout(cfg.RequestTimeout))

	mux := http.NewServeMux()
	route := func(pattern string, handler http.Handler) {
		mux.Handle(pattern, observe(deps.Observer, pattern, handler))
	}

	route("POST /api/chat/send", protected(http.HandlerFunc(h.handleChatSend)))
	route("POST /api/chat/reset", protected(http.HandlerFunc(h.handleChatReset)))
	route("POST /api/aforos/upload", protected(http.HandlerFunc(h.handleAforoUpload)))
	route("POST /api/payments/simulate", protected(http.HandlerFunc(h.handlePaymentSimulate)))
	route("GET /healthz", http.HandlerFunc(handleHealth))
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics)
	}
	return mux, nil
}

type middleware func(http.Handler) http.Handler

func chain(middlewares ...middleware) middleware {
	return func(next http.Handler) http.Handler {
		wrapped := next
		for i := len(middlewares) - 1; i >= 0; i-- {
			wrapped = middlewares[i](wrapped)
		}
		return wrapped
	}
}

func timeout(d time.Duration) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func observe(obs Observer, route string, next http.Handler) http.Handler {
	if obs == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		obs.ObserveHTTP(route, status)
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
