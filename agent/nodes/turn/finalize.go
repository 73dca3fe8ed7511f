package turnnode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
	promptx "github.com/tanpawarit/laia-quote-agent/agent/prompt"
)

// ExtractReply joins the non-empty text fragments of the final response.
func ExtractReply(in *TurnState, prompts promptx.PromptSet) (*TurnState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: turn state is nil", contractx.ErrValidation)
	}

	parts := make([]string, 0, len(in.Reply.Texts))
	for _, t := range in.Reply.Texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		parts = append(parts, t)
	}
	in.Text = strings.TrimSpace(strings.Join(parts, "\n"))
	if in.Text == "" {
		in.Text = prompts.Fallback
	}
	return in, nil
}

// FinalizeHistory rebuilds the persisted history from the session transcript
// without the bootstrap pair, and appends the final reply.
func FinalizeHistory(in *TurnState, prompts promptx.PromptSet) (TurnOutput, error) {
	if in == nil {
		return TurnOutput{}, fmt.Errorf("%w: turn state is nil", contractx.ErrValidation)
	}
	if in.Session == nil {
		return TurnOutput{}, ErrNoSession
	}

	transcript := in.Session.Transcript()
	history := make([]contractx.Turn, 0, len(transcript)+1)
	for _, turn := range transcript {
		if IsBootstrap(turn, prompts) {
			continue
		}
		history = append(history, turn)
	}
	history = append(history, contractx.Turn{Role: contractx.RoleModel, Text: in.Text})

	return TurnOutput{
		Reply:         in.Text,
		History:       history,
		LoopExhausted: in.LoopExhausted,
		Rounds:        in.Rounds,
	}, nil
}

// IsBootstrap matches the seeded instruction turn and its acknowledgment.
func IsBootstrap(turn contractx.Turn, prompts promptx.PromptSet) bool {
	switch turn.Role {
	case contractx.RoleUser:
		if prompts.IdentityMarker != "" && strings.Contains(turn.Text, prompts.IdentityMarker) {
			return true
		}
		return prompts.SystemInstructions != "" && turn.Text == prompts.SystemInstructions
	case contractx.RoleModel:
		return prompts.BootstrapAck != "" && turn.Text == prompts.BootstrapAck
	default:
		return false
	}
}
