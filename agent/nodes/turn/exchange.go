package turnnode

import (
	"context"
	"fmt"
	"time"

	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
	promptx "github.com/tanpawarit/laia-quote-agent/agent/prompt"
)

// SeedHistory prepares the history the model session starts from. An empty
// prior history is replaced by the bootstrap pair carrying the system
// instructions.
func SeedHistory(in *TurnState, prompts promptx.PromptSet) (*TurnState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: turn state is nil", contractx.ErrValidation)
	}

	if len(in.Prior) > 0 {
		in.Seed = in.Prior
		return in, nil
	}
	if prompts.SystemInstructions == "" {
		return nil, contractx.ErrPromptMissing
	}
	in.Seed = []contractx.Turn{
		{Role: contractx.RoleUser, Text: prompts.SystemInstructions},
		{Role: contractx.RoleModel, Text: prompts.BootstrapAck},
	}
	return in, nil
}

// ModelExchange opens the session on the seeded history and sends the utterance.
func ModelExchange(
	ctx context.Context,
	in *TurnState,
	factory contractx.ModelSessionFactory,
	obs Observer,
) (*TurnState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: turn state is nil", contractx.ErrValidation)
	}

	session, err := factory.StartSession(ctx, in.Seed)
	if err != nil {
		return nil, fmt.Errorf("%w: start session: %v", contractx.ErrModelInvoke, err)
	}
	in.Session = session

	started := time.Now()
	reply, err := session.SendText(ctx, in.Utterance)
	obs.ObserveModelCall(time.Since(started), err)
	if err != nil {
		return nil, err
	}
	in.Reply = reply
	return in, nil
}
