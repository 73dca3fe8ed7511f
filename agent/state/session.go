package state

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
)

// SessionState is the persisted record of one chat session: the tool-owned
// conversation state plus the externally visible turn history.
type SessionState struct {
	SessionID    string           `json:"session_id"`
	Conversation Conversation     `json:"conversation"`
	History      []contractx.Turn `json:"history,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

func NewSessionState(sessionID string, now time.Time) *SessionState {
	return &SessionState{
		SessionID: sessionID,
		Conversation: Conversation{
			EntityType: EntityPersona,
		},
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

func (s *SessionState) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

func (s *SessionState) Validate() error {
	if s == nil {
		return ErrNilSessionState
	}
	if strings.TrimSpace(s.SessionID) == "" {
		return ErrInvalidSession
	}
	for i, turn := range s.History {
		if turn.Role != contractx.RoleUser && turn.Role != contractx.RoleModel {
			return fmt.Errorf("%w: history[%d] has role %q", contractx.ErrValidation, i, turn.Role)
		}
	}
	return s.Conversation.Validate(nil)
}

// TrimHistory keeps the most recent maxTurns user/model exchanges. The kept
// window always opens on a user entry. maxTurns <= 0 keeps everything.
func TrimHistory(history []contractx.Turn, maxTurns int) []contractx.Turn {
	if maxTurns <= 0 || len(history) <= 2*maxTurns {
		return history
	}
	start := len(history) - 2*maxTurns
	for start < len(history) && history[start].Role != contractx.RoleUser {
		start++
	}
	return append([]contractx.Turn(nil), history[start:]...)
}
