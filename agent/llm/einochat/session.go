// Package einochat runs model sessions over any eino tool-calling chat model.
package einochat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
	toolx "github.com/tanpawarit/laia-quote-agent/agent/tool"
)

type Factory struct {
	model einomodel.ToolCallingChatModel
}

var _ contractx.ModelSessionFactory = (*Factory)(nil)

// NewFactory binds the tool registry to chatModel.
func NewFactory(chatModel einomodel.ToolCallingChatModel) (*Factory, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model is nil", contractx.ErrValidation)
	}
	bound, err := chatModel.WithTools(toolx.Infos())
	if err != nil {
		return nil, fmt.Errorf("%w: bind tools: %v", contractx.ErrModelInvoke, err)
	}
	return &Factory{model: bound}, nil
}

func (f *Factory) StartSession(_ context.Context, history []contractx.Turn) (contractx.ModelSession, error) {
	s := &session{
		model:      f.model,
		messages:   make([]*schema.Message, 0, len(history)+4),
		transcript: make([]contractx.Turn, 0, len(history)+1),
	}
	for _, turn := range history {
		if turn.Role == contractx.RoleModel {
			s.messages = append(s.messages, schema.AssistantMessage(turn.Text, nil))
		} else {
			s.messages = append(s.messages, schema.UserMessage(turn.Text))
		}
		s.transcript = append(s.transcript, turn)
	}
	return s, nil
}

type session struct {
	model      einomodel.ToolCallingChatModel
	messages   []*schema.Message
	transcript []contractx.Turn
}

func (s *session) SendText(ctx context.Context, text string) (contractx.ModelReply, error) {
	s.messages = append(s.messages, schema.UserMessage(text))
	s.transcript = append(s.transcript, contractx.Turn{Role: contractx.RoleUser, Text: text})
	return s.generate(ctx)
}

func (s *session) SendToolResults(ctx context.Context, results []contractx.ToolResult) (contractx.ModelReply, error) {
	for _, r := range results {
		content, err := json.Marshal(r.Response())
		if err != nil {
			return contractx.ModelReply{}, fmt.Errorf("%w: marshal tool result for tool=%s: %v", contractx.ErrValidation, r.Name, err)
		}
		s.messages = append(s.messages, schema.ToolMessage(string(content), r.CallID))
	}
	return s.generate(ctx)
}

func (s *session) Transcript() []contractx.Turn {
	out := make([]contractx.Turn, len(s.transcript))
	copy(out, s.transcript)
	return out
}

func (s *session) generate(ctx context.Context) (contractx.ModelReply, error) {
	msg, err := s.model.Generate(ctx, s.messages)
	if err != nil {
		return contractx.ModelReply{}, fmt.Errorf("%w: chat model generate: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil {
		return contractx.ModelReply{}, fmt.Errorf("%w: empty chat model response", contractx.ErrSchemaViolation)
	}
	s.messages = append(s.messages, msg)

	var reply contractx.ModelReply
	if text := strings.TrimSpace(msg.Content); text != "" {
		reply.Texts = []string{msg.Content}
	}
	for _, call := range msg.ToolCalls {
		reply.ToolCalls = append(reply.ToolCalls, toToolCall(call))
	}
	return reply, nil
}

// toToolCall decodes the argument JSON. A decoding failure is carried on the
// call so the executor can answer it with an error result.
func toToolCall(call schema.ToolCall) contractx.ToolCall {
	out := contractx.ToolCall{
		ID:   call.ID,
		Name: strings.TrimSpace(call.Function.Name),
	}
	raw := strings.TrimSpace(call.Function.Arguments)
	if raw == "" {
		return out
	}
	args := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		out.ArgsError = err.Error()
		return out
	}
	out.Args = args
	return out
}
