package tool

import (
	"context"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
	statex "github.com/tanpawarit/laia-quote-agent/agent/state"
	logx "github.com/tanpawarit/laia-quote-agent/pkg/logger"
)

func (e *Executor) muBootstrap(ctx context.Context, conv *statex.Conversation, args Args) contractx.ToolResult {
	address := args.String("address")
	if address == "" {
		return errorResult("Falta la dirección.")
	}
	if e.deps.Inferer == nil {
		return noSurveyData()
	}

	inf, err := e.deps.Inferer.Infer(ctx, address)
	if err != nil {
		log.Error().
			Str("error", logx.Truncate(logx.MaskString(err.Error()), 200)).
			Msg("address inference failed")
		return errorResult("No se pudo inferir el contexto vial en este momento.")
	}
	if inf.Status != string(contractx.ToolStatusOK) || inf.Data == nil {
		return noSurveyData()
	}

	d := inf.Data
	conv.Survey.Merge(statex.Survey{
		TipoVia:      d.RoadType,
		Carriles:     d.Lanes,
		ZonaEspecial: d.Zone,
		PendientePct: d.SlopePct,
		Semaforo:     d.HasSignal,
		G:            d.G,
		C:            d.C,
	})

	var arterial any
	if d.IsArterial != nil {
		arterial = *d.IsArterial
	}
	return okResult(map[string]any{
		"prefilled":   conv.Survey.Fields(),
		"is_arterial": arterial,
		"need_more":   statex.NeedsMoreSurvey(conv.Survey),
	})
}

func noSurveyData() contractx.ToolResult {
	return contractx.ToolResult{
		Status:  contractx.ToolStatusNoData,
		Payload: map[string]any{"need_questions": true},
	}
}
