package turnnode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
	promptx "github.com/tanpawarit/laia-quote-agent/agent/prompt"
)

var greetingPrefixes = []string{"hola", "buenos", "buenas", "hey"}

// IsGreeting reports whether utterance opens a conversation with a salutation.
func IsGreeting(utterance string) bool {
	s := strings.ToLower(strings.TrimSpace(utterance))
	if s == "" {
		return false
	}
	for _, p := range greetingPrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// Classify builds the turn state and decides the greeting short-circuit.
func Classify(in TurnInput) (*TurnState, error) {
	if in.Conversation == nil {
		return nil, fmt.Errorf("%w: %w", contractx.ErrValidation, ErrNilConversation)
	}

	prior := make([]contractx.Turn, len(in.Prior))
	copy(prior, in.Prior)

	return &TurnState{
		Conversation: in.Conversation,
		Utterance:    in.Utterance,
		Prior:        prior,
		Greeting:     len(prior) == 0 && IsGreeting(in.Utterance),
	}, nil
}

// Greet answers a first-contact salutation without calling the model.
func Greet(in *TurnState, prompts promptx.PromptSet) (TurnOutput, error) {
	if in == nil {
		return TurnOutput{}, fmt.Errorf("%w: turn state is nil", contractx.ErrValidation)
	}
	return TurnOutput{
		Reply: prompts.Greeting,
		History: []contractx.Turn{
			{Role: contractx.RoleUser, Text: in.Utterance},
			{Role: contractx.RoleModel, Text: prompts.Greeting},
		},
		Greeting: true,
	}, nil
}
