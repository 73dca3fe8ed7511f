package tool

import (
	"context"
	"errors"
	"time"

	"github.com/huandu/go-clone"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
	quotex "github.com/tanpawarit/laia-quote-agent/agent/quote"
	statex "github.com/tanpawarit/laia-quote-agent/agent/state"
	logx "github.com/tanpawarit/laia-quote-agent/pkg/logger"
)

const unknownToolMessage = "unknown tool"

// Handler applies one tool to conv and returns the model-facing result.
// conv is a private copy; the executor commits it only when the status is not error.
type Handler func(ctx context.Context, conv *statex.Conversation, args Args) contractx.ToolResult

// Observer receives one sample per executed tool call.
type Observer interface {
	ObserveToolCall(tool string, status contractx.ToolStatus, elapsed time.Duration)
}

type Deps struct {
	Catalog    *quotex.Catalog
	Inferer    contractx.AddressInferer
	Calendar   contractx.Calendar
	Calculator contractx.Calculator
	Extractor  contractx.AforoExtractor
	Observer   Observer
}

// Executor dispatches tool calls against the registry.
type Executor struct {
	deps      Deps
	handlers  map[string]Handler
	validator *validator
	now       func() time.Time
}

func NewExecutor(deps Deps) (*Executor, error) {
	if deps.Catalog == nil {
		return nil, errors.New("service catalog is required")
	}

	v, err := newValidator(specs)
	if err != nil {
		return nil, err
	}

	e := &Executor{
		deps:      deps,
		validator: v,
		now:       time.Now,
	}
	e.handlers = map[string]Handler{
		ToolSetCustomer:    e.setCustomer,
		ToolSetServices:    e.setServices,
		ToolCaptureClient:  e.captureClient,
		ToolGetCalculation: e.getCalculation,
		ToolFindAppt:       e.findAppointment,
		ToolMuBootstrap:    e.muBootstrap,
	}
	return e, nil
}

// Execute runs call against conv. It never returns an error: every problem is
// reported as a ToolResult with status error, and conv is left untouched then.
func (e *Executor) Execute(ctx context.Context, conv *statex.Conversation, call contractx.ToolCall) contractx.ToolResult {
	started := e.now()
	res := e.execute(ctx, conv, call)
	res.CallID = call.ID
	res.Name = call.Name

	if e.deps.Observer != nil {
		e.deps.Observer.ObserveToolCall(call.Name, res.Status, e.now().Sub(started))
	}
	log.Info().
		Str("tool", call.Name).
		Str("status", string(res.Status)).
		Fields(logx.Mask(map[string]any{"args": map[string]any(call.Args)})).
		Msg("tool executed")
	return res
}

func (e *Executor) execute(ctx context.Context, conv *statex.Conversation, call contractx.ToolCall) contractx.ToolResult {
	handler, ok := e.handlers[call.Name]
	if !ok {
		return errorResult(unknownToolMessage)
	}
	if call.ArgsError != "" {
		return errorResult("Argumentos inválidos: " + call.ArgsError)
	}

	args := Args(call.Args).compact()
	// Absent required fields reach the handler, which answers with its own
	// message for a blank value.
	if err := e.validator.validate(call.Name, args); err != nil && !errors.Is(err, ErrMissingArgs) {
		return errorResult(err.Error())
	}
	if conv == nil {
		return errorResult("sin estado de conversación")
	}

	work := clone.Clone(*conv).(statex.Conversation)
	res := handler(ctx, &work, args)
	if res.Status == "" {
		res.Status = contractx.ToolStatusOK
	}
	if res.IsError() {
		return res
	}
	*conv = work
	return res
}

/* ---------------------------------- helpers --------------------------------- */

func okResult(payload map[string]any) contractx.ToolResult {
	return contractx.ToolResult{Status: contractx.ToolStatusOK, Payload: payload}
}

func errorResult(message string) contractx.ToolResult {
	return contractx.ToolResult{
		Status:  contractx.ToolStatusError,
		Payload: map[string]any{"message": message},
	}
}

func optional(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func nonBlank(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
