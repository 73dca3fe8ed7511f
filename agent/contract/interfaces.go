package contract

import "context"

// ModelSession wraps one provider chat exchange. Implementations normalize
// provider responses into ModelReply so callers never branch on provider internals.
type ModelSession interface {
	SendText(ctx context.Context, text string) (ModelReply, error)
	SendToolResults(ctx context.Context, results []ToolResult) (ModelReply, error)
	// Transcript returns the seeded history followed by every user text sent,
	// excluding tool round-trips and model replies produced in this session.
	Transcript() []Turn
}

type ModelSessionFactory interface {
	StartSession(ctx context.Context, history []Turn) (ModelSession, error)
}

type AddressInferer interface {
	Infer(ctx context.Context, address string) (Inference, error)
}

type Calendar interface {
	// FindSlot returns nil when no slot is available.
	FindSlot(ctx context.Context, durationMinutes int) (*Slot, error)
}

type Calculator interface {
	Run(ctx context.Context, serviceID string, inputs map[string]float64) (CalcResult, error)
}

type AforoExtractor interface {
	Extract(ctx context.Context, path string) (AforoExtraction, error)
}

type DialogRecorder interface {
	RecordDialog(ctx context.Context, d Dialog) error
}
