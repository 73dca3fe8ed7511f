// Package orchestrator handles one inbound chat message: it validates the
// request, loads the session, advances the turn and persists the result.
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
	nodex "github.com/tanpawarit/laia-quote-agent/agent/nodes/orchestrator"
	statex "github.com/tanpawarit/laia-quote-agent/agent/state"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrMessageTooLong = nodex.ErrMessageTooLong
	ErrInvalidSession = nodex.ErrInvalidSession
)

type Config struct {
	MaxMessageChars int
	// MaxHistoryTurns caps the stored user/model exchanges per session.
	MaxHistoryTurns int
}

type Orchestrator struct {
	store    statex.Store
	driver   nodex.TurnDriver
	recorder contractx.DialogRecorder

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	maxChars int
	maxTurns int
	now      func() time.Time
}

// New wires the message graph. recorder may be nil to skip the dialog log.
func New(
	store statex.Store,
	driver nodex.TurnDriver,
	recorder contractx.DialogRecorder,
	cfg Config,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if driver == nil {
		return nil, errors.New("turn driver is required")
	}

	maxChars := cfg.MaxMessageChars
	if maxChars <= 0 {
		maxChars = nodex.DefaultMaxMessageChars
	}

	maxTurns := cfg.MaxHistoryTurns
	if maxTurns <= 0 {
		maxTurns = nodex.DefaultMaxHistoryTurns
	}

	o := &Orchestrator{
		store:    store,
		driver:   driver,
		recorder: recorder,
		maxChars: maxChars,
		maxTurns: maxTurns,
		now:      time.Now,
	}

	graphRunner, err := o.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleMessage returns the reply for text. Input and storage problems are
// errors; model failures come back as the apology reply.
func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID string, text string) (string, error) {
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		SessionID: sessionID,
		Text:      text,
	})
	if err != nil {
		return "", err
	}
	return out.Reply, nil
}

// Reset forgets the session's conversation and history.
func (o *Orchestrator) Reset(ctx context.Context, sessionID string) error {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return ErrInvalidSession
	}
	return o.store.Delete(ctx, id)
}
