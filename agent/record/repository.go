package record

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidQuote = errors.New("invalid quote")
)

// Repository is the quote ledger used by the checkout flow.
type Repository interface {
	contractx.DialogRecorder

	// CreateQuote stores q and its items, filling in the generated ids.
	CreateQuote(ctx context.Context, q *Quote) error
	GetQuote(ctx context.Context, id int64) (*Quote, error)
	// PaymentSession returns the quote's open payment, creating one if needed.
	PaymentSession(ctx context.Context, q *Quote) (*Payment, error)
	// MarkPaid settles p and its quote. Settling twice is a no-op.
	MarkPaid(ctx context.Context, p *Payment) error
}

func validateQuote(q *Quote) error {
	if q == nil {
		return ErrInvalidQuote
	}
	if strings.TrimSpace(q.Number) == "" {
		return errors.Join(ErrInvalidQuote, errors.New("number is required"))
	}
	if strings.TrimSpace(q.CustomerName) == "" {
		return errors.Join(ErrInvalidQuote, errors.New("customer name is required"))
	}
	return nil
}

// NewReference returns prefix followed by n upper-case hex characters,
// e.g. "COT-3F9A1C".
func NewReference(prefix string, n int) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	for len(raw) < n {
		raw += strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	return prefix + strings.ToUpper(raw[:n])
}

func newPayment(q *Quote) *Payment {
	currency := "COP"
	if c, ok := q.Meta["currency"].(string); ok && c != "" {
		currency = c
	}
	return &Payment{
		QuoteID:    q.ID,
		Amount:     q.Total,
		Currency:   currency,
		Gateway:    SimulatedGateway,
		Status:     PaymentCreated,
		GatewayRef: NewReference("SIM-", 10),
	}
}
