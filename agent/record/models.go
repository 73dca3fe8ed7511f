// Package record persists quotes, payments and the dialog log.
package record

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	QuoteDraft = "draft"
	QuotePaid  = "paid"

	PaymentCreated = "created"
	PaymentPaid    = "paid"

	SimulatedGateway = "simulated_gateway"
)

type Quote struct {
	bun.BaseModel `bun:"table:quotes,alias:q"`

	ID            int64          `bun:"id,pk,autoincrement" json:"id"`
	Number        string         `bun:"number,unique,notnull" json:"number"`
	CustomerName  string         `bun:"customer_name,notnull" json:"customer_name"`
	CustomerEmail *string        `bun:"customer_email" json:"customer_email,omitempty"`
	Status        string         `bun:"status,notnull,default:'draft'" json:"status"`
	ValidUntil    time.Time      `bun:"valid_until,type:date,nullzero" json:"valid_until"`
	Subtotal      float64        `bun:"subtotal,type:numeric(12,2),notnull,default:0" json:"subtotal"`
	TaxTotal      float64        `bun:"tax_total,type:numeric(12,2),notnull,default:0" json:"tax_total"`
	DiscountTotal float64        `bun:"discount_total,type:numeric(12,2),notnull,default:0" json:"discount_total"`
	Total         float64        `bun:"total,type:numeric(12,2),notnull,default:0" json:"total"`
	Meta          map[string]any `bun:"meta,type:jsonb" json:"meta,omitempty"`
	CreatedAt     time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`

	Items []*QuoteItem `bun:"rel:has-many,join:id=quote_id" json:"items,omitempty"`
}

type QuoteItem struct {
	bun.BaseModel `bun:"table:quote_items,alias:qi"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	QuoteID     int64     `bun:"quote_id,notnull" json:"quote_id"`
	Code        string    `bun:"code" json:"code"`
	Description string    `bun:"description,notnull" json:"description"`
	Quantity    float64   `bun:"quantity,type:numeric(12,2),notnull,default:1" json:"quantity"`
	UnitPrice   float64   `bun:"unit_price,type:numeric(12,2),notnull,default:0" json:"unit_price"`
	TaxRate     float64   `bun:"tax_rate,type:numeric(5,2),notnull,default:0" json:"tax_rate"`
	LineTotal   float64   `bun:"line_total,type:numeric(12,2),notnull,default:0" json:"line_total"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

type Payment struct {
	bun.BaseModel `bun:"table:payments,alias:p"`

	ID         int64          `bun:"id,pk,autoincrement" json:"id"`
	QuoteID    int64          `bun:"quote_id,notnull" json:"quote_id"`
	Gateway    string         `bun:"gateway,notnull" json:"gateway"`
	GatewayRef string         `bun:"gateway_ref,unique,notnull" json:"gateway_ref"`
	Amount     float64        `bun:"amount,type:numeric(12,2),notnull" json:"amount"`
	Currency   string         `bun:"currency,notnull" json:"currency"`
	Status     string         `bun:"status,notnull" json:"status"`
	Payload    map[string]any `bun:"payload,type:jsonb" json:"payload,omitempty"`
	CreatedAt  time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt  time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

type Dialog struct {
	bun.BaseModel `bun:"table:dialogs,alias:d"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	SessionID string    `bun:"session_id,notnull" json:"session_id"`
	UserQuery string    `bun:"user_query" json:"user_query"`
	Response  string    `bun:"response" json:"response"`
	Source    string    `bun:"source" json:"source,omitempty"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}
