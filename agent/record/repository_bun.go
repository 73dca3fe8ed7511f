package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
	"github.com/uptrace/bun"
)

// BunRepository stores records in Postgres through bun.
type BunRepository struct {
	db  *bun.DB
	now func() time.Time
}

var _ Repository = (*BunRepository)(nil)

func NewBunRepository(db *bun.DB) (*BunRepository, error) {
	if db == nil {
		return nil, errors.New("bun db is required")
	}
	return &BunRepository{db: db, now: time.Now}, nil
}

// CreateTables creates every record table that does not exist yet.
func CreateTables(ctx context.Context, db bun.IDB) error {
	for _, q := range createTableQueries(db) {
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("create %s: %w", q.GetTableName(), err)
		}
	}
	if _, err := db.NewCreateIndex().Model((*Dialog)(nil)).IfNotExists().
		Index("dialogs_session_id_idx").
		Column("session_id").
		Exec(ctx); err != nil {
		return fmt.Errorf("create dialogs index: %w", err)
	}
	return nil
}

func createTableQueries(db bun.IDB) []*bun.CreateTableQuery {
	const quoteFK = `("quote_id") REFERENCES "quotes" ("id") ON DELETE CASCADE`
	return []*bun.CreateTableQuery{
		db.NewCreateTable().Model((*Quote)(nil)).IfNotExists(),
		db.NewCreateTable().Model((*QuoteItem)(nil)).IfNotExists().ForeignKey(quoteFK),
		db.NewCreateTable().Model((*Payment)(nil)).IfNotExists().ForeignKey(quoteFK),
		db.NewCreateTable().Model((*Dialog)(nil)).IfNotExists(),
	}
}

func (r *BunRepository) CreateQuote(ctx context.Context, q *Quote) error {
	if err := validateQuote(q); err != nil {
		return err
	}
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(q).Returning("id, created_at, updated_at").Exec(ctx); err != nil {
			return fmt.Errorf("insert quote: %w", err)
		}
		if len(q.Items) == 0 {
			return nil
		}
		for _, it := range q.Items {
			it.QuoteID = q.ID
		}
		if _, err := tx.NewInsert().Model(&q.Items).Returning("id").Exec(ctx); err != nil {
			return fmt.Errorf("insert quote items: %w", err)
		}
		return nil
	})
}

func (r *BunRepository) GetQuote(ctx context.Context, id int64) (*Quote, error) {
	q := new(Quote)
	err := r.db.NewSelect().
		Model(q).
		Relation("Items", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("qi.id ASC")
		}).
		Where("q.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: quote %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("select quote: %w", err)
	}
	return q, nil
}

func (r *BunRepository) PaymentSession(ctx context.Context, q *Quote) (*Payment, error) {
	if q == nil || q.ID == 0 {
		return nil, ErrInvalidQuote
	}
	var out *Payment
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing := new(Payment)
		err := tx.NewSelect().
			Model(existing).
			Where("p.quote_id = ?", q.ID).
			Where("p.status = ?", PaymentCreated).
			Order("p.id ASC").
			Limit(1).
			Scan(ctx)
		if err == nil {
			out = existing
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("select payment: %w", err)
		}

		p := newPayment(q)
		if _, err := tx.NewInsert().Model(p).Returning("id, created_at, updated_at").Exec(ctx); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *BunRepository) MarkPaid(ctx context.Context, p *Payment) error {
	if p == nil || p.ID == 0 {
		return fmt.Errorf("%w: payment", ErrNotFound)
	}
	if p.Status == PaymentPaid {
		return nil
	}
	now := r.now().UTC()
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*Payment)(nil)).
			Set("status = ?", PaymentPaid).
			Set("updated_at = ?", now).
			Where("id = ?", p.ID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update payment: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: payment %d", ErrNotFound, p.ID)
		}
		if _, err := tx.NewUpdate().
			Model((*Quote)(nil)).
			Set("status = ?", QuotePaid).
			Set("updated_at = ?", now).
			Where("id = ?", p.QuoteID).
			Exec(ctx); err != nil {
			return fmt.Errorf("update quote: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	p.Status = PaymentPaid
	p.UpdatedAt = now
	return nil
}

func (r *BunRepository) RecordDialog(ctx context.Context, d contractx.Dialog) error {
	row := dialogRow(d, r.now)
	if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert dialog: %w", err)
	}
	return nil
}

func dialogRow(d contractx.Dialog, now func() time.Time) *Dialog {
	created := d.CreatedAt
	if created.IsZero() {
		created = now()
	}
	return &Dialog{
		SessionID: d.SessionID,
		UserQuery: d.UserText,
		Response:  d.Reply,
		Source:    d.Source,
		CreatedAt: created.UTC(),
	}
}
