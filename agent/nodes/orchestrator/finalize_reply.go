package orchestratornode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	reply := strings.TrimSpace(in.Turn.Reply)
	if reply == "" {
		return GraphOutput{}, fmt.Errorf("%w: driver returned empty reply", contractx.ErrValidation)
	}
	return GraphOutput{
		SessionID: in.SessionID,
		Reply:     reply,
		Failed:    in.Turn.Failed,
	}, nil
}
