package contract

import "time"

// OrderLine is one committed line item. UnitPrice is resolved from the
// catalog at commit time and defaults to 0 until resolved.
type OrderLine struct {
	MenuItemID    string   `json:"menu_item_id"`
	MenuItemName  string   `json:"menu_item_name"`
	Quantity      int      `json:"quantity"`
	UnitPrice     float64  `json:"unit_price"`
	Modifications []string `json:"modifications,omitempty"`
}

func (l OrderLine) Total() float64 {
	return l.UnitPrice * float64(l.Quantity)
}

// Order is the commit payload for a finished draft order. ID is supplied by
// the caller and makes the commit idempotent.
type Order struct {
	ID                  string      `json:"id"`
	CustomerName        string      `json:"customer_name"`
	CustomerPhone       string      `json:"customer_phone"`
	Items               []OrderLine `json:"items"`
	TotalAmount         float64     `json:"total_amount"`
	PaymentMethod       string      `json:"payment_method"`
	SpecialInstructions string      `json:"special_instructions,omitempty"`
	CallID              string      `json:"call_id,omitempty"`
	SessionID           string      `json:"session_id,omitempty"`
	OrderTime           time.Time   `json:"order_time"`
}

// Reservation is the commit payload for a finished draft reservation.
type Reservation struct {
	ID            string    `json:"id"`
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	PartySize     int       `json:"party_size"`
	CallID        string    `json:"call_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
