package turnnode

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
)

// ResolveTools executes the tool calls of the current response and feeds the
// results back, for at most maxRounds rounds. Calls run sequentially in model
// order because they share the conversation. Running out of rounds is not an
// error: the last response is used as is.
func ResolveTools(
	ctx context.Context,
	in *TurnState,
	exec ToolExecutor,
	maxRounds int,
	obs Observer,
) (*TurnState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: turn state is nil", contractx.ErrValidation)
	}
	if in.Session == nil {
		return nil, ErrNoSession
	}
	if maxRounds <= 0 {
		maxRounds = MaxToolRounds
	}

	for in.Reply.HasToolCalls() {
		if in.Rounds >= maxRounds {
			in.LoopExhausted = true
			obs.ObserveLoopExhausted()
			log.Warn().
				Int("rounds", in.Rounds).
				Int("pending_calls", len(in.Reply.ToolCalls)).
				Msg("tool loop exhausted")
			break
		}
		in.Rounds++

		results := make([]contractx.ToolResult, 0, len(in.Reply.ToolCalls))
		for _, call := range in.Reply.ToolCalls {
			results = append(results, exec.Execute(ctx, in.Conversation, call))
		}

		started := time.Now()
		reply, err := in.Session.SendToolResults(ctx, results)
		obs.ObserveModelCall(time.Since(started), err)
		if err != nil {
			return nil, err
		}
		in.Reply = reply
	}
	return in, nil
}
