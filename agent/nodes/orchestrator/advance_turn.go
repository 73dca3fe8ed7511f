package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
	statex "github.com/tanpawarit/laia-quote-agent/agent/state"
)

// DefaultMaxHistoryTurns bounds the stored history, and with it what the
// model receives as context on the next turn.
const DefaultMaxHistoryTurns = 30

// AdvanceTurn runs the driver on the loaded session and keeps the last
// maxTurns exchanges. The driver never fails; a failed turn keeps the prior
// history and conversation.
func AdvanceTurn(ctx context.Context, in *GraphState, driver TurnDriver, maxTurns int) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	out := driver.AdvanceTurn(ctx, &in.Session.Conversation, in.Text, in.Session.History)
	if maxTurns <= 0 {
		maxTurns = DefaultMaxHistoryTurns
	}
	in.Session.History = statex.TrimHistory(out.History, maxTurns)
	in.Turn = out
	return in, nil
}
