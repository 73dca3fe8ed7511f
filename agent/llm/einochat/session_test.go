package einochat

import (
	"context"
	"errors"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
	toolx "github.com/tanpawarit/laia-quote-agent/agent/tool"
)

type fakeToolCallingModel struct {
	responses []*schema.Message
	err       error
	idx       int
	tools     []*schema.ToolInfo
	inputs    [][]*schema.Message
}

func (f *fakeToolCallingModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	snapshot := make([]*schema.Message, len(input))
	copy(snapshot, input)
	f.inputs = append(f.inputs, snapshot)
	if f.err != nil {
		return nil, f.err
	}
	if f.idx >= len(f.responses) {
		return nil, errors.New("no fake response left")
	}
	msg := f.responses[f.idx]
	f.idx++
	return msg, nil
}

func (f *fakeToolCallingModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func (f *fakeToolCallingModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	f.tools = tools
	return f, nil
}

func toolCall(id, name, args string) schema.ToolCall {
	return schema.ToolCall{ID: id, Function: schema.FunctionCall{Name: name, Arguments: args}}
}

func TestSessionToolRoundTrip(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{responses: []*schema.Message{
		{
			Role: schema.Assistant,
			ToolCalls: []schema.ToolCall{
				toolCall("c1", toolx.ToolSetCustomer, `{"customer_name":"Ana"}`),
				toolCall("c2", toolx.ToolSetServices, `{"services":[`),
			},
		},
		schema.AssistantMessage("Gracias Ana.", nil),
	}}

	factory, err := NewFactory(fake)
	if err != nil {
		t.Fatalf("NewFactory() error = %v", err)
	}
	if len(fake.tools) != 6 {
		t.Fatalf("bound tools = %d, want 6", len(fake.tools))
	}

	sess, err := factory.StartSession(context.Background(), []contractx.Turn{
		{Role: contractx.RoleUser, Text: "hola"},
		{Role: contractx.RoleModel, Text: "Hola, soy David."},
	})
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}

	reply, err := sess.SendText(context.Background(), "soy Ana")
	if err != nil {
		t.Fatalf("SendText() error = %v", err)
	}
	if len(reply.ToolCalls) != 2 {
		t.Fatalf("tool calls = %d, want 2", len(reply.ToolCalls))
	}
	if reply.ToolCalls[0].Args["customer_name"] != "Ana" || reply.ToolCalls[0].ArgsError != "" {
		t.Fatalf("unexpected first call: %+v", reply.ToolCalls[0])
	}
	if reply.ToolCalls[1].ArgsError == "" {
		t.Fatal("malformed arguments must be reported on the call")
	}

	reply, err = sess.SendToolResults(context.Background(), []contractx.ToolResult{
		{CallID: "c1", Name: toolx.ToolSetCustomer, Status: contractx.ToolStatusOK},
		{CallID: "c2", Name: toolx.ToolSetServices, Status: contractx.ToolStatusError, Payload: map[string]any{"message": "bad"}},
	})
	if err != nil {
		t.Fatalf("SendToolResults() error = %v", err)
	}
	if len(reply.Texts) != 1 || reply.Texts[0] != "Gracias Ana." {
		t.Fatalf("unexpected reply: %+v", reply)
	}

	second := fake.inputs[1]
	if len(second) != 6 {
		t.Fatalf("second request messages = %d, want 6", len(second))
	}
	if second[4].Role != schema.Tool || second[4].ToolCallID != "c1" || second[4].Content != `{"status":"ok"}` {
		t.Fatalf("unexpected tool message: %+v", second[4])
	}
	if len(sess.Transcript()) != 3 {
		t.Fatalf("transcript = %+v", sess.Transcript())
	}
}

func TestSessionGenerateError(t *testing.T) {
	t.Parallel()

	factory, err := NewFactory(&fakeToolCallingModel{err: errors.New("upstream 500")})
	if err != nil {
		t.Fatalf("NewFactory() error = %v", err)
	}
	sess, _ := factory.StartSession(context.Background(), nil)
	if _, err := sess.SendText(context.Background(), "hola"); !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("expected ErrModelInvoke, got %v", err)
	}
}
