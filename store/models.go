package store

import (
	"time"

	"github.com/uptrace/bun"
)

type MenuItemRow struct {
	bun.BaseModel `bun:"table:menu_items,alias:mi"`

	ID          string  `bun:"id,pk"`
	Name        string  `bun:"name,notnull"`
	Description string  `bun:"description"`
	Price       float64 `bun:"price,notnull"`
	Category    string  `bun:"category"`
	Available   bool    `bun:"available,notnull,default:true"`
}

type CustomerRow struct {
	bun.BaseModel `bun:"table:customers,alias:c"`

	Phone         string            `bun:"phone,pk"`
	Name          string            `bun:"name"`
	Email         string            `bun:"email"`
	LoyaltyPoints int               `bun:"loyalty_points"`
	Preferences   map[string]string `bun:"preferences,type:jsonb"`
	UpdatedAt     time.Time         `bun:"updated_at,nullzero,default:now()"`
}

// OrderRow persists a committed order as a single row; the line items live
// in a jsonb column so the commit is one atomic insert.
type OrderRow struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID                  string         `bun:"id,pk"`
	CustomerName        string         `bun:"customer_name,notnull"`
	CustomerPhone       string         `bun:"customer_phone,notnull"`
	Items               []OrderItemDoc `bun:"items,type:jsonb,notnull"`
	TotalAmount         float64        `bun:"total_amount,notnull"`
	PaymentMethod       string         `bun:"payment_method"`
	SpecialInstructions string         `bun:"special_instructions"`
	CallID              string         `bun:"call_id"`
	SessionID           string         `bun:"session_id"`
	OrderTime           time.Time      `bun:"order_time,notnull"`
}

type OrderItemDoc struct {
	MenuItemID    string   `json:"menu_item_id"`
	MenuItemName  string   `json:"menu_item_name"`
	Quantity      int      `json:"quantity"`
	UnitPrice     float64  `json:"unit_price"`
	Modifications []string `json:"modifications,omitempty"`
}

type ReservationRow struct {
	bun.BaseModel `bun:"table:reservations,alias:r"`

	ID            string    `bun:"id,pk"`
	CustomerName  string    `bun:"customer_name,notnull"`
	CustomerPhone string    `bun:"customer_phone,notnull"`
	Date          string    `bun:"date,notnull"`
	Time          string    `bun:"time,notnull"`
	PartySize     int       `bun:"party_size,notnull"`
	CallID        string    `bun:"call_id"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
}

type CallErrorRow struct {
	bun.BaseModel `bun:"table:call_errors,alias:ce"`

	ID            int64     `bun:"id,pk,autoincrement"`
	CorrelationID string    `bun:"correlation_id,notnull"`
	Role          string    `bun:"role"`
	SessionID     string    `bun:"session_id"`
	CustomerPhone string    `bun:"customer_phone"`
	Message       string    `bun:"message,notnull"`
	At            time.Time `bun:"at,notnull"`
}
