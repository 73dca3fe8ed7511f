// Package driver advances one conversation turn: greeting short-circuit,
// model exchange, bounded tool resolution and history finalization.
package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/huandu/go-clone"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
	turnnode "github.com/tanpawarit/laia-quote-agent/agent/nodes/turn"
	promptx "github.com/tanpawarit/laia-quote-agent/agent/prompt"
	statex "github.com/tanpawarit/laia-quote-agent/agent/state"
	logx "github.com/tanpawarit/laia-quote-agent/pkg/logger"
)

const (
	OutcomeGreeting  = "greeting"
	OutcomeReply     = "reply"
	OutcomeExhausted = "exhausted"
	OutcomeFailed    = "failed"
)

type TurnOutput = turnnode.TurnOutput

// Observer extends the turn node samples with one sample per finished turn.
type Observer interface {
	turnnode.Observer
	ObserveTurn(outcome string, elapsed time.Duration)
}

type Config struct {
	MaxToolRounds int
	Observer      Observer
}

type Driver struct {
	sessions  contractx.ModelSessionFactory
	tools     turnnode.ToolExecutor
	prompts   promptx.PromptSet
	obs       turnnode.Observer
	turns     Observer
	maxRounds int

	runner compose.Runnable[turnnode.TurnInput, turnnode.TurnOutput]
}

func New(
	sessions contractx.ModelSessionFactory,
	tools turnnode.ToolExecutor,
	prompts promptx.PromptSet,
	cfg Config,
) (*Driver, error) {
	if sessions == nil {
		return nil, errors.New("model session factory is required")
	}
	if tools == nil {
		return nil, errors.New("tool executor is required")
	}
	if prompts.SystemInstructions == "" {
		return nil, contractx.ErrPromptMissing
	}

	maxRounds := cfg.MaxToolRounds
	if maxRounds <= 0 {
		maxRounds = turnnode.MaxToolRounds
	}

	d := &Driver{
		sessions:  sessions,
		tools:     tools,
		prompts:   prompts,
		obs:       turnnode.ObserverOrNoop(cfg.Observer),
		turns:     cfg.Observer,
		maxRounds: maxRounds,
	}

	runner, err := d.compileTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	d.runner = runner
	return d, nil
}

// AdvanceTurn processes utterance against conv and the prior history. It
// always returns a reply. On failure the reply is the apology, the history is
// prior unchanged and conv is restored to its state before the turn.
func (d *Driver) AdvanceTurn(
	ctx context.Context,
	conv *statex.Conversation,
	utterance string,
	prior []contractx.Turn,
) (out TurnOutput) {
	started := time.Now()
	var snapshot statex.Conversation
	if conv != nil {
		snapshot = clone.Clone(*conv).(statex.Conversation)
	}

	defer func() {
		if r := recover(); r != nil {
			out = d.fail(conv, snapshot, prior, fmt.Errorf("panic: %v", r))
		}
		d.observeTurn(out, time.Since(started))
	}()

	res, err := d.runner.Invoke(ctx, turnnode.TurnInput{
		Conversation: conv,
		Utterance:    utterance,
		Prior:        prior,
	})
	if err != nil {
		return d.fail(conv, snapshot, prior, err)
	}
	return res
}

func (d *Driver) fail(
	conv *statex.Conversation,
	snapshot statex.Conversation,
	prior []contractx.Turn,
	err error,
) TurnOutput {
	if conv != nil {
		*conv = snapshot
	}
	log.Error().
		Str("error", logx.Truncate(logx.MaskString(err.Error()), 300)).
		Int("prior_turns", len(prior)).
		Msg("turn failed")

	history := make([]contractx.Turn, len(prior))
	copy(history, prior)
	return TurnOutput{
		Reply:   d.prompts.Apology,
		History: history,
		Failed:  true,
	}
}

func (d *Driver) observeTurn(out TurnOutput, elapsed time.Duration) {
	if d.turns == nil {
		return
	}
	outcome := OutcomeReply
	switch {
	case out.Failed:
		outcome = OutcomeFailed
	case out.Greeting:
		outcome = OutcomeGreeting
	case out.LoopExhausted:
		outcome = OutcomeExhausted
	}
	d.turns.ObserveTurn(outcome, elapsed)
}
