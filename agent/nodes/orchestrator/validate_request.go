package orchestratornode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
	turnnode "github.com/tanpawarit/laia-quote-agent/agent/nodes/turn"
	statex "github.com/tanpawarit/laia-quote-agent/agent/state"
)

// DefaultMaxMessageChars caps one inbound utterance.
const DefaultMaxMessageChars = 4000

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrMessageTooLong = errors.New("message is too long")
	ErrInvalidSession = statex.ErrInvalidSession
)

// TurnDriver advances one turn against the session conversation.
type TurnDriver interface {
	AdvanceTurn(ctx context.Context, conv *statex.Conversation, utterance string, prior []contractx.Turn) turnnode.TurnOutput
}

type GraphInput struct {
	SessionID string
	Text      string
}

type GraphOutput struct {
	SessionID string
	Reply     string
	Failed    bool
}

type GraphState struct {
	SessionID string
	Text      string
	Now       time.Time

	Session *statex.SessionState
	Turn    turnnode.TurnOutput
}

func ValidateRequest(in GraphInput, maxChars int, nowFn func() time.Time) (*GraphState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxMessageChars
	}
	if n := utf8.RuneCountInString(text); n > maxChars {
		return nil, fmt.Errorf("%w: %d > %d characters", ErrMessageTooLong, n, maxChars)
	}

	return &GraphState{
		SessionID: sessionID,
		Text:      text,
		Now:       nowFn().UTC(),
	}, nil
}
