package driver

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
	turnnode "github.com/tanpawarit/laia-quote-agent/agent/nodes/turn"
)

func (d *Driver) compileTurnGraph(
	ctx context.Context,
) (compose.Runnable[turnnode.TurnInput, turnnode.TurnOutput], error) {
	graph := compose.NewGraph[turnnode.TurnInput, turnnode.TurnOutput]()

	if err := graph.AddLambdaNode("classify",
		compose.InvokableLambda(func(ctx context.Context, in turnnode.TurnInput) (*turnnode.TurnState, error) {
			return turnnode.Classify(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node classify: %w", err)
	}

	if err := graph.AddLambdaNode("greet",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.TurnState) (turnnode.TurnOutput, error) {
			return turnnode.Greet(in, d.prompts)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node greet: %w", err)
	}

	if err := graph.AddLambdaNode("seed_history",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.TurnState) (*turnnode.TurnState, error) {
			return turnnode.SeedHistory(in, d.prompts)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node seed_history: %w", err)
	}

	if err := graph.AddLambdaNode("model_exchange",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.TurnState) (*turnnode.TurnState, error) {
			return turnnode.ModelExchange(ctx, in, d.sessions, d.obs)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node model_exchange: %w", err)
	}

	if err := graph.AddLambdaNode("resolve_tools",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.TurnState) (*turnnode.TurnState, error) {
			return turnnode.ResolveTools(ctx, in, d.tools, d.maxRounds, d.obs)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node resolve_tools: %w", err)
	}

	if err := graph.AddLambdaNode("extract_reply",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.TurnState) (*turnnode.TurnState, error) {
			return turnnode.ExtractReply(in, d.prompts)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node extract_reply: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_history",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.TurnState) (turnnode.TurnOutput, error) {
			return turnnode.FinalizeHistory(in, d.prompts)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_history: %w", err)
	}

	branch := compose.NewGraphBranch(
		func(ctx context.Context, in *turnnode.TurnState) (string, error) {
			if in == nil {
				return "", fmt.Errorf("%w: turn state is nil", contractx.ErrValidation)
			}
			if in.Greeting {
				return "greet", nil
			}
			return "seed_history", nil
		},
		map[string]bool{
			"greet":        true,
			"seed_history": true,
		},
	)
	if err := graph.AddBranch("classify", branch); err != nil {
		return nil, fmt.Errorf("add turn branch: %w", err)
	}

	edges := [][2]string{
		{compose.START, "classify"},
		{"greet", compose.END},
		{"seed_history", "model_exchange"},
		{"model_exchange", "resolve_tools"},
		{"resolve_tools", "extract_reply"},
		{"extract_reply", "finalize_history"},
		{"finalize_history", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("driver.advance_turn"))
	if err != nil {
		return nil, fmt.Errorf("compile turn graph: %w", err)
	}
	return runner, nil
}
