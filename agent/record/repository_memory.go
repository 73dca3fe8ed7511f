package record

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/huandu/go-clone"
	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
)

// MemoryRepository keeps records in process memory. Reads and writes copy
// the records so callers never share maps or slices with the repository.
type MemoryRepository struct {
	mu       sync.RWMutex
	quotes   map[int64]*Quote
	payments map[int64]*Payment
	dialogs  []Dialog
	nextID   int64
	now      func() time.Time
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		quotes:   make(map[int64]*Quote, 8),
		payments: make(map[int64]*Payment, 8),
		now:      time.Now,
	}
}

func (m *MemoryRepository) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *MemoryRepository) CreateQuote(ctx context.Context, q *Quote) error {
	if err := validateQuote(q); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.quotes {
		if existing.Number == q.Number {
			return fmt.Errorf("%w: duplicate number %s", ErrInvalidQuote, q.Number)
		}
	}

	now := m.now().UTC()
	q.ID = m.id()
	q.CreatedAt, q.UpdatedAt = now, now
	if q.Status == "" {
		q.Status = QuoteDraft
	}
	for _, it := range q.Items {
		it.ID = m.id()
		it.QuoteID = q.ID
		it.CreatedAt = now
	}
	m.quotes[q.ID] = clone.Clone(q).(*Quote)
	return nil
}

func (m *MemoryRepository) GetQuote(ctx context.Context, id int64) (*Quote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q, ok := m.quotes[id]
	if !ok {
		return nil, fmt.Errorf("%w: quote %d", ErrNotFound, id)
	}
	return clone.Clone(q).(*Quote), nil
}

func (m *MemoryRepository) PaymentSession(ctx context.Context, q *Quote) (*Payment, error) {
	if q == nil || q.ID == 0 {
		return nil, ErrInvalidQuote
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var open *Payment
	for _, p := range m.payments {
		if p.QuoteID == q.ID && p.Status == PaymentCreated && (open == nil || p.ID < open.ID) {
			open = p
		}
	}
	if open != nil {
		return clone.Clone(open).(*Payment), nil
	}

	p := newPayment(q)
	now := m.now().UTC()
	p.ID = m.id()
	p.CreatedAt, p.UpdatedAt = now, now
	m.payments[p.ID] = clone.Clone(p).(*Payment)
	return p, nil
}

func (m *MemoryRepository) MarkPaid(ctx context.Context, p *Payment) error {
	if p == nil || p.ID == 0 {
		return fmt.Errorf("%w: payment", ErrNotFound)
	}
	if p.Status == PaymentPaid {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.payments[p.ID]
	if !ok {
		return fmt.Errorf("%w: payment %d", ErrNotFound, p.ID)
	}
	now := m.now().UTC()
	stored.Status, stored.UpdatedAt = PaymentPaid, now
	if q, ok := m.quotes[stored.QuoteID]; ok {
		q.Status, q.UpdatedAt = QuotePaid, now
	}
	p.Status, p.UpdatedAt = PaymentPaid, now
	return nil
}

func (m *MemoryRepository) RecordDialog(ctx context.Context, d contractx.Dialog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	row := dialogRow(d, m.now)
	row.ID = m.id()
	m.dialogs = append(m.dialogs, *row)
	return nil
}

// Dialogs returns a copy of the recorded dialog log in insertion order.
func (m *MemoryRepository) Dialogs() []Dialog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Dialog, len(m.dialogs))
	copy(out, m.dialogs)
	return out
}
