package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
	logx "github.com/tanpawarit/laia-quote-agent/pkg/logger"
)

const DialogSourceChat = "chat"

// RecordDialog appends the completed turn to the dialog log. Failed turns are
// not recorded, and recorder errors only warn.
func RecordDialog(ctx context.Context, in *GraphState, recorder contractx.DialogRecorder) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if recorder == nil || in.Turn.Failed {
		return in, nil
	}

	err := recorder.RecordDialog(ctx, contractx.Dialog{
		SessionID: in.SessionID,
		UserText:  in.Text,
		Reply:     in.Turn.Reply,
		Source:    DialogSourceChat,
		CreatedAt: in.Now,
	})
	if err != nil {
		log.Warn().
			Str("session_id", in.SessionID).
			Str("err", logx.Truncate(logx.MaskString(err.Error()), 200)).
			Msg("dialog record failed")
	}
	return in, nil
}
