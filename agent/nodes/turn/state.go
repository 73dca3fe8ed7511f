package turnnode

import (
	"context"
	"errors"
	"time"

	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
	statex "github.com/tanpawarit/laia-quote-agent/agent/state"
)

// MaxToolRounds bounds the tool resolution loop of one turn.
const MaxToolRounds = 3

var (
	ErrNilConversation = errors.New("conversation is nil")
	ErrNoSession       = errors.New("model session was not started")
)

// ToolExecutor runs one tool call against the conversation.
type ToolExecutor interface {
	Execute(ctx context.Context, conv *statex.Conversation, call contractx.ToolCall) contractx.ToolResult
}

// Observer receives model exchange and loop samples.
type Observer interface {
	ObserveModelCall(elapsed time.Duration, err error)
	ObserveLoopExhausted()
}

type TurnInput struct {
	Conversation *statex.Conversation
	Utterance    string
	Prior        []contractx.Turn
}

type TurnOutput struct {
	Reply         string
	History       []contractx.Turn
	Greeting      bool
	LoopExhausted bool
	Rounds        int
	Failed        bool
}

type TurnState struct {
	Conversation *statex.Conversation
	Utterance    string
	Prior        []contractx.Turn
	Greeting     bool

	Seed    []contractx.Turn
	Session contractx.ModelSession
	Reply   contractx.ModelReply

	Rounds        int
	LoopExhausted bool
	Text          string
}

type noopObserver struct{}

func (noopObserver) ObserveModelCall(time.Duration, error) {}
func (noopObserver) ObserveLoopExhausted()                 {}

// ObserverOrNoop returns obs, or an observer that discards samples.
func ObserverOrNoop(obs Observer) Observer {
	if obs == nil {
		return noopObserver{}
	}
	return obs
}
