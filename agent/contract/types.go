package contract

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one externally visible history entry.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// ToolCall is a provider-neutral function call requested by the model.
// ArgsError is set when the provider delivered arguments that could not be decoded.
type ToolCall struct {
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name"`
	Args      map[string]any `json:"args,omitempty"`
	ArgsError string         `json:"args_error,omitempty"`
}

type ToolStatus string

const (
	ToolStatusOK      ToolStatus = "ok"
	ToolStatusError   ToolStatus = "error"
	ToolStatusNoData  ToolStatus = "no_data"
	ToolStatusNoSlots ToolStatus = "no_slots"
)

// ToolResult is fed back into the model session; never persisted verbatim.
type ToolResult struct {
	CallID  string         `json:"-"`
	Name    string         `json:"-"`
	Status  ToolStatus     `json:"status"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Response flattens status and payload into the object sent to the model.
func (r ToolResult) Response() map[string]any {
	out := make(map[string]any, len(r.Payload)+1)
	for k, v := range r.Payload {
		out[k] = v
	}
	out["status"] = string(r.Status)
	return out
}

func (r ToolResult) IsError() bool {
	return r.Status == ToolStatusError
}

// ModelReply is the normalized shape of one model response.
type ModelReply struct {
	Texts     []string   `json:"texts,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

func (r ModelReply) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

/* ------------------------------ collaborators ----------------------------- */

// Inference is the address-inference outcome. Nil fields mean unknown.
type Inference struct {
	Status string         `json:"status"` // ok | no_data
	Data   *InferenceData `json:"data,omitempty"`
}

type InferenceData struct {
	RoadType   *string  `json:"road_type,omitempty"`
	Lanes      *int     `json:"lanes,omitempty"`
	Zone       *string  `json:"zone,omitempty"`
	SlopePct   *float64 `json:"slope_pct,omitempty"`
	HasSignal  *bool    `json:"has_signal,omitempty"`
	G          *float64 `json:"g,omitempty"`
	C          *float64 `json:"C,omitempty"`
	IsArterial *bool    `json:"is_arterial,omitempty"`
}

type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type CalcResult struct {
	OK      bool           `json:"ok"`
	Outputs map[string]any `json:"outputs,omitempty"`
	Error   string         `json:"error,omitempty"`
	Details string         `json:"details,omitempty"`
}

type AforoData struct {
	LambdaH float64 `json:"lambda_h"`
	MuH     float64 `json:"mu_h"`
}

type AforoExtraction struct {
	Success bool       `json:"success"`
	Data    *AforoData `json:"data,omitempty"`
	Message string     `json:"message,omitempty"`
}

// Dialog is one recorded turn.
type Dialog struct {
	SessionID string
	UserText  string
	Reply     string
	Source    string
	CreatedAt time.Time
}
