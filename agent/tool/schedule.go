package tool

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
	statex "github.com/tanpawarit/laia-quote-agent/agent/state"
	logx "github.com/tanpawarit/laia-quote-agent/pkg/logger"
)

const defaultAppointmentMinutes = 60

func (e *Executor) findAppointment(ctx context.Context, _ *statex.Conversation, args Args) contractx.ToolResult {
	duration := args.Int("duration_in_minutes", defaultAppointmentMinutes)
	if duration <= 0 {
		duration = defaultAppointmentMinutes
	}

	if e.deps.Calendar == nil {
		return errorResult("No se pudo consultar la agenda en este momento.")
	}

	slot, err := e.deps.Calendar.FindSlot(ctx, duration)
	if err != nil {
		log.Error().
			Str("error", logx.Truncate(logx.MaskString(err.Error()), 200)).
			Int("duration_minutes", duration).
			Msg("find appointment failed")
		return errorResult("No se pudo consultar la agenda en este momento.")
	}
	if slot == nil {
		return contractx.ToolResult{
			Status:  contractx.ToolStatusNoSlots,
			Payload: map[string]any{"message": "No se encontraron citas disponibles en la próxima semana."},
		}
	}

	return okResult(map[string]any{
		"slot": map[string]any{
			"start": slot.Start.Format(time.RFC3339),
			"end":   slot.End.Format(time.RFC3339),
		},
	})
}

// getCalculation runs the calculation collaborator with the μ_h/λ_h inputs
// known so far. Without a configured collaborator it acknowledges the request.
func (e *Executor) getCalculation(ctx context.Context, conv *statex.Conversation, args Args) contractx.ToolResult {
	serviceID := strings.TrimSpace(args.String("service_id"))
	if serviceID == "" {
		return errorResult("Falta service_id.")
	}
	calc := e.calculator()
	if calc == nil {
		return okResult(map[string]any{
			"service_id": serviceID,
			"message":    "Cálculo ejecutado (placeholder).",
		})
	}

	inputs := e.calculationInputs(ctx, conv)
	res, err := calc.Run(ctx, e.deps.Catalog.APIServiceID(serviceID), inputs)
	if err != nil {
		log.Error().
			Str("error", logx.Truncate(logx.MaskString(err.Error()), 200)).
			Str("service_id", serviceID).
			Msg("calculation failed")
		return errorResult("No se pudo ejecutar el cálculo en este momento.")
	}
	if !res.OK {
		msg := res.Error
		if msg == "" {
			msg = res.Details
		}
		if msg == "" {
			msg = "La API de cálculo devolvió un error."
		}
		return errorResult(msg)
	}

	return okResult(map[string]any{
		"service_id": serviceID,
		"outputs":    res.Outputs,
	})
}

// calculationInputs prefers the survey μ_h over the spreadsheet value.
func (e *Executor) calculationInputs(ctx context.Context, conv *statex.Conversation) map[string]float64 {
	inputs := make(map[string]float64, 2)
	if conv.AforoFile != nil && e.deps.Extractor != nil {
		ex, err := e.deps.Extractor.Extract(ctx, conv.AforoFile.Path)
		switch {
		case err != nil:
			log.Warn().Str("error", logx.Truncate(err.Error(), 200)).Msg("aforo extraction failed")
		case ex.Success && ex.Data != nil:
			inputs["lambda_h"] = ex.Data.LambdaH
			inputs["mu_h"] = ex.Data.MuH
		}
	}
	if conv.Survey.MuH != nil {
		inputs["mu_h"] = *conv.Survey.MuH
	}
	return inputs
}

// configurable is implemented by collaborators that can exist without a
// usable endpoint.
type configurable interface {
	Configured() bool
}

// calculator returns the calculation collaborator, or nil when it is absent
// or has no endpoint.
func (e *Executor) calculator() contractx.Calculator {
	calc := e.deps.Calculator
	if calc == nil {
		return nil
	}
	if c, ok := calc.(configurable); ok && !c.Configured() {
		return nil
	}
	return calc
}
