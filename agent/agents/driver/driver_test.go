package driver

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
	promptx "github.com/tanpawarit/laia-quote-agent/agent/prompt"
	quotex "github.com/tanpawarit/laia-quote-agent/agent/quote"
	statex "github.com/tanpawarit/laia-quote-agent/agent/state"
	toolx "github.com/tanpawarit/laia-quote-agent/agent/tool"
)

// step is one scripted model response, or a failure when err is set.
type step struct {
	reply contractx.ModelReply
	err   error
	panic bool
}

type fakeFactory struct {
	steps    []step
	starts   int
	calls    int
	seeds    [][]contractx.Turn
	results  [][]contractx.ToolResult
	startErr error
}

func (f *fakeFactory) StartSession(ctx context.Context, history []contractx.Turn) (contractx.ModelSession, error) {
	f.starts++
	if f.startErr != nil {
		return nil, f.startErr
	}
	seed := append([]contractx.Turn(nil), history...)
	f.seeds = append(f.seeds, seed)
	return &fakeSession{factory: f, transcript: append([]contractx.Turn(nil), history...)}, nil
}

func (f *fakeFactory) next() (contractx.ModelReply, error) {
	f.calls++
	if len(f.steps) == 0 {
		return contractx.ModelReply{}, errors.New("no scripted response left")
	}
	s := f.steps[0]
	f.steps = f.steps[1:]
	if s.panic {
		panic("scripted panic")
	}
	return s.reply, s.err
}

type fakeSession struct {
	factory    *fakeFactory
	transcript []contractx.Turn
}

func (s *fakeSession) SendText(ctx context.Context, text string) (contractx.ModelReply, error) {
	s.transcript = append(s.transcript, contractx.Turn{Role: contractx.RoleUser, Text: text})
	return s.factory.next()
}

func (s *fakeSession) SendToolResults(ctx context.Context, results []contractx.ToolResult) (contractx.ModelReply, error) {
	s.factory.results = append(s.factory.results, append([]contractx.ToolResult(nil), results...))
	return s.factory.next()
}

func (s *fakeSession) Transcript() []contractx.Turn {
	return append([]contractx.Turn(nil), s.transcript...)
}

type fakeObserver struct {
	outcomes   []string
	modelCalls int
	exhausted  int
}

func (f *fakeObserver) ObserveModelCall(time.Duration, error) { f.modelCalls++ }
func (f *fakeObserver) ObserveLoopExhausted()                 { f.exhausted++ }
func (f *fakeObserver) ObserveTurn(outcome string, _ time.Duration) {
	f.outcomes = append(f.outcomes, outcome)
}

func text(s ...string) step {
	return step{reply: contractx.ModelReply{Texts: s}}
}

func calls(cs ...contractx.ToolCall) step {
	return step{reply: contractx.ModelReply{ToolCalls: cs}}
}

func newTestDriver(t *testing.T, factory *fakeFactory, obs *fakeObserver) *Driver {
	t.Helper()

	exec, err := toolx.NewExecutor(toolx.Deps{Catalog: quotex.DefaultCatalog()})
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}
	cfg := Config{}
	if obs != nil {
		cfg.Observer = obs
	}
	d, err := New(factory, exec, promptx.DefaultPromptSet(), cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return d
}

func priorHistory() []contractx.Turn {
	return []contractx.Turn{
		{Role: contractx.RoleUser, Text: "Hola"},
		{Role: contractx.RoleModel, Text: promptx.Greeting},
	}
}

func TestAdvanceTurnGreeting(t *testing.T) {
	t.Parallel()

	factory := &fakeFactory{}
	obs := &fakeObserver{}
	d := newTestDriver(t, factory, obs)

	for _, utterance := range []string{"Hola", "  hola, necesito un PMT", "Buenos días", "buenas", "Hey"} {
		out := d.AdvanceTurn(context.Background(), &statex.Conversation{}, utterance, nil)
		if out.Reply != promptx.Greeting || !out.Greeting {
			t.Fatalf("%q: unexpected output: %+v", utterance, out)
		}
		want := []contractx.Turn{
			{Role: contractx.RoleUser, Text: utterance},
			{Role: contractx.RoleModel, Text: promptx.Greeting},
		}
		if !reflect.DeepEqual(out.History, want) {
			t.Fatalf("%q: history = %+v", utterance, out.History)
		}
	}
	if factory.starts != 0 || factory.calls != 0 {
		t.Fatalf("greeting must not reach the model: starts=%d calls=%d", factory.starts, factory.calls)
	}
	if len(obs.outcomes) != 5 || obs.outcomes[0] != OutcomeGreeting {
		t.Fatalf("unexpected outcomes: %v", obs.outcomes)
	}
}

func TestAdvanceTurnNoGreetingWithHistory(t *testing.T) {
	t.Parallel()

	factory := &fakeFactory{steps: []step{text("Dime qué servicio necesitas.")}}
	d := newTestDriver(t, factory, nil)

	prior := priorHistory()
	out := d.AdvanceTurn(context.Background(), &statex.Conversation{}, "hola otra vez", prior)
	if out.Greeting || out.Reply != "Dime qué servicio necesitas." {
		t.Fatalf("unexpected output: %+v", out)
	}
	if factory.calls != 1 {
		t.Fatalf("model calls = %d, want 1", factory.calls)
	}
	if !reflect.DeepEqual(factory.seeds[0], prior) {
		t.Fatalf("session must start from the prior history, got %+v", factory.seeds[0])
	}
	if len(out.History) != len(prior)+2 {
		t.Fatalf("history len = %d, want %d", len(out.History), len(prior)+2)
	}
}

func TestAdvanceTurnToolLoopStarvation(t *testing.T) {
	t.Parallel()

	loop := contractx.ToolCall{ID: "c", Name: toolx.ToolFindAppt, Args: map[string]any{}}
	factory := &fakeFactory{steps: []step{calls(loop), calls(loop), calls(loop), calls(loop), calls(loop)}}
	obs := &fakeObserver{}
	d := newTestDriver(t, factory, obs)

	out := d.AdvanceTurn(context.Background(), &statex.Conversation{}, "¿cuándo pueden venir?", priorHistory())
	if factory.calls != 4 {
		t.Fatalf("model calls = %d, want 4", factory.calls)
	}
	if strings.TrimSpace(out.Reply) == "" || out.Reply != promptx.Fallback {
		t.Fatalf("reply = %q, want fallback", out.Reply)
	}
	if !out.LoopExhausted || out.Rounds != 3 || out.Failed {
		t.Fatalf("unexpected output flags: %+v", out)
	}
	if obs.exhausted != 1 || obs.modelCalls != 4 {
		t.Fatalf("observer exhausted=%d modelCalls=%d", obs.exhausted, obs.modelCalls)
	}
	if obs.outcomes[0] != OutcomeExhausted {
		t.Fatalf("outcome = %s", obs.outcomes[0])
	}
}

func TestAdvanceTurnVehicularScenario(t *testing.T) {
	t.Parallel()

	factory := &fakeFactory{steps: []step{
		calls(contractx.ToolCall{
			ID:   "c1",
			Name: toolx.ToolCaptureClient,
			Args: map[string]any{"requested_services": []any{"SVC_VEH"}, "include_queues": true},
		}),
		text("Listo. ", "", "Queda: Vehicular + Colas. ¿Confirmas?"),
	}}
	d := newTestDriver(t, factory, nil)

	conv := &statex.Conversation{}
	utterance := "Necesito un análisis vehicular y sí, incluye colas"
	out := d.AdvanceTurn(context.Background(), conv, utterance, nil)

	if out.Failed || out.Reply != "Listo. \nQueda: Vehicular + Colas. ¿Confirmas?" {
		t.Fatalf("unexpected output: %+v", out)
	}
	if !reflect.DeepEqual(conv.Services, []string{"SVC_VEH", "SVC_COLAS"}) {
		t.Fatalf("Services = %v", conv.Services)
	}

	seed := factory.seeds[0]
	if len(seed) != 2 || !strings.Contains(seed[0].Text, "## Identidad") || seed[1].Text != promptx.BootstrapAck {
		t.Fatalf("session not seeded with the bootstrap pair: %+v", seed)
	}

	want := []contractx.Turn{
		{Role: contractx.RoleUser, Text: utterance},
		{Role: contractx.RoleModel, Text: out.Reply},
	}
	if !reflect.DeepEqual(out.History, want) {
		t.Fatalf("history = %+v, want %+v", out.History, want)
	}
	for _, turn := range out.History {
		if strings.Contains(turn.Text, "## Identidad") || turn.Text == promptx.BootstrapAck {
			t.Fatalf("bootstrap leaked into history: %+v", turn)
		}
	}

	if len(factory.results) != 1 || factory.results[0][0].Status != contractx.ToolStatusOK || factory.results[0][0].CallID != "c1" {
		t.Fatalf("unexpected tool results: %+v", factory.results)
	}
}

func TestAdvanceTurnModelFailureRestoresState(t *testing.T) {
	t.Parallel()

	factory := &fakeFactory{steps: []step{
		calls(contractx.ToolCall{ID: "c1", Name: toolx.ToolSetCustomer, Args: map[string]any{"customer_name": "Ana"}}),
		{err: errors.New("upstream 503 token=abc")},
	}}
	obs := &fakeObserver{}
	d := newTestDriver(t, factory, obs)

	conv := &statex.Conversation{Services: []string{"SVC_PED"}}
	prior := priorHistory()
	out := d.AdvanceTurn(context.Background(), conv, "Soy Ana", prior)

	if !out.Failed || out.Reply != promptx.Apology {
		t.Fatalf("unexpected output: %+v", out)
	}
	if !reflect.DeepEqual(out.History, prior) {
		t.Fatalf("history = %+v, want prior", out.History)
	}
	if conv.CustomerName != nil || !reflect.DeepEqual(conv.Services, []string{"SVC_PED"}) {
		t.Fatalf("conversation not restored: %+v", conv)
	}
	if obs.outcomes[0] != OutcomeFailed {
		t.Fatalf("outcome = %s", obs.outcomes[0])
	}
}

func TestAdvanceTurnSessionStartFailure(t *testing.T) {
	t.Parallel()

	d := newTestDriver(t, &fakeFactory{startErr: errors.New("dial tcp: timeout")}, nil)
	out := d.AdvanceTurn(context.Background(), &statex.Conversation{}, "cotizar PMT", nil)
	if !out.Failed || out.Reply != promptx.Apology || len(out.History) != 0 {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestAdvanceTurnRecoversPanic(t *testing.T) {
	t.Parallel()

	d := newTestDriver(t, &fakeFactory{steps: []step{{panic: true}}}, nil)
	out := d.AdvanceTurn(context.Background(), &statex.Conversation{}, "cotizar PMT", priorHistory())
	if !out.Failed || out.Reply != promptx.Apology {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestAdvanceTurnUnknownToolKeepsLooping(t *testing.T) {
	t.Parallel()

	factory := &fakeFactory{steps: []step{
		calls(
			contractx.ToolCall{ID: "c1", Name: "drop_database"},
			contractx.ToolCall{ID: "c2", Name: toolx.ToolSetServices, ArgsError: "unexpected end of JSON input"},
		),
		text(),
	}}
	d := newTestDriver(t, factory, nil)

	conv := &statex.Conversation{}
	out := d.AdvanceTurn(context.Background(), conv, "quiero peatonal", priorHistory())
	if out.Failed || out.Reply != promptx.Fallback {
		t.Fatalf("unexpected output: %+v", out)
	}

	results := factory.results[0]
	if len(results) != 2 || results[0].Payload["message"] != "unknown tool" || results[1].Status != contractx.ToolStatusError {
		t.Fatalf("unexpected results: %+v", results)
	}
	if len(conv.Services) != 0 {
		t.Fatalf("state mutated: %+v", conv)
	}
}
