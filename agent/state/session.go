// Package state holds the per-conversation session record. One SessionState
// exists per call and is exclusively owned by that call's orchestrator.
package state

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	contractx "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/contract"
)

// LineItem is one draft order line. UnitPrice stays 0 until the commit
// resolves it from the catalog.
type LineItem struct {
	ItemID        string   `json:"item_id,omitempty"`
	Name          string   `json:"name"`
	Quantity      int      `json:"quantity"`
	Modifications []string `json:"modifications,omitempty"`
	UnitPrice     float64  `json:"unit_price"`
}

func (li LineItem) Total() float64 {
	return li.UnitPrice * float64(li.Quantity)
}

// SessionState is the mutable per-conversation record: caller identity, the
// draft order/reservation, payment fields and the customer history snapshot.
// OrderTotal is derived and recomputed on every order mutation, never set
// directly.
type SessionState struct {
	// Identity
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
	Authenticated bool   `json:"authenticated,omitempty"`

	// Call context
	SessionID    string    `json:"session_id"`
	CallID       string    `json:"call_id,omitempty"`
	CallerNumber string    `json:"caller_number,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	Intent       string    `json:"intent,omitempty"`

	// Draft order
	Items               []LineItem `json:"items,omitempty"`
	OrderTotal          float64    `json:"order_total"`
	SpecialInstructions string     `json:"special_instructions,omitempty"`

	// Draft reservation
	ReservationDate string `json:"reservation_date,omitempty"`
	ReservationTime string `json:"reservation_time,omitempty"`
	PartySize       int    `json:"party_size,omitempty"`

	// Payment. Card fields are opaque strings, never validated here.
	PaymentMethod string `json:"payment_method,omitempty"`
	CardNumber    string `json:"card_number,omitempty"`
	CardExpiry    string `json:"card_expiry,omitempty"`
	CardCVV       string `json:"card_cvv,omitempty"`

	// Read-only history snapshot populated from the store.
	History contractx.CustomerHistory `json:"history,omitempty"`
}

// New creates the session record for a conversation. Call identifiers are
// threaded explicitly; nothing is read from process-global context.
func New(callID, callerNumber string, now time.Time) *SessionState {
	return &SessionState{
		SessionID:    uuid.NewString(),
		CallID:       callID,
		CallerNumber: callerNumber,
		StartedAt:    now.UTC(),
	}
}

var nonDigit = regexp.MustCompile(`\D`)

// NormalizePhone strips non-digits; 10 digits become "+1"+digits, 11 digits
// starting with 1 become "+"+digits, any other shape is returned unchanged.
func NormalizePhone(raw string) string {
	digits := nonDigit.ReplaceAllString(raw, "")
	switch {
	case len(digits) == 10:
		return "+1" + digits
	case len(digits) == 11 && strings.HasPrefix(digits, "1"):
		return "+" + digits
	default:
		return raw
	}
}

// SetName trims and title-cases the customer name.
func (s *SessionState) SetName(name string) {
	s.CustomerName = titleCase(strings.TrimSpace(name))
}

// SetPhone stores the phone in normalized form.
func (s *SessionState) SetPhone(raw string) {
	s.CustomerPhone = NormalizePhone(raw)
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// SetEmail stores a lower-cased email if it matches a standard address
// pattern. Invalid input leaves the field unchanged and returns false.
func (s *SessionState) SetEmail(email string) bool {
	trimmed := strings.TrimSpace(email)
	if !emailPattern.MatchString(trimmed) {
		return false
	}
	s.CustomerEmail = strings.ToLower(trimmed)
	return true
}

// AddItem appends a line item and recomputes the order total.
func (s *SessionState) AddItem(li LineItem) error {
	if strings.TrimSpace(li.Name) == "" {
		return fmt.Errorf("%w: item name is empty", contractx.ErrValidation)
	}
	if li.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be >= 1", contractx.ErrValidation)
	}
	s.Items = append(s.Items, li)
	s.recomputeTotal()
	return nil
}

// RemoveItem removes the line at index and recomputes the order total.
func (s *SessionState) RemoveItem(index int) error {
	if index < 0 || index >= len(s.Items) {
		return fmt.Errorf("%w: item index %d out of range", contractx.ErrValidation, index)
	}
	s.Items = append(s.Items[:index], s.Items[index+1:]...)
	s.recomputeTotal()
	return nil
}

func (s *SessionState) recomputeTotal() {
	total := 0.0
	for _, li := range s.Items {
		total += li.Total()
	}
	s.OrderTotal = total
}

// SetReservation stores the draft reservation fields. Party size must be
// positive once set.
func (s *SessionState) SetReservation(date, timeOfDay string, partySize int) error {
	if partySize <= 0 {
		return fmt.Errorf("%w: party size must be > 0", contractx.ErrValidation)
	}
	s.ReservationDate = strings.TrimSpace(date)
	s.ReservationTime = strings.TrimSpace(timeOfDay)
	s.PartySize = partySize
	return nil
}

// MergeHistory copies a non-empty lookup snapshot into the session, filling
// the name only when the caller has not given one yet.
func (s *SessionState) MergeHistory(h contractx.CustomerHistory) {
	if h.Empty() {
		return
	}
	s.History = h
	if s.CustomerName == "" && h.Name != "" {
		s.CustomerName = h.Name
	}
}

// Summarize produces the compact digest used to seed a new role's directive.
// Fields appear in a fixed order and empty ones are omitted.
func (s *SessionState) Summarize() string {
	var parts []string

	if s.CustomerName != "" {
		parts = append(parts, "Customer: "+s.CustomerName)
	}
	if s.CustomerPhone != "" {
		parts = append(parts, "Phone: "+s.CustomerPhone)
	}
	if len(s.Items) > 0 {
		parts = append(parts, fmt.Sprintf("Current order: %d items, $%.2f", len(s.Items), s.OrderTotal))
	}
	if s.ReservationDate != "" && s.ReservationTime != "" {
		parts = append(parts, fmt.Sprintf("Reservation: %s at %s for %d", s.ReservationDate, s.ReservationTime, s.PartySize))
	}
	if n := len(s.History.PriorOrders); n > 0 {
		parts = append(parts, fmt.Sprintf("Previous orders: %d", n))
	}
	if s.History.LoyaltyPoints > 0 {
		parts = append(parts, fmt.Sprintf("Loyalty points: %d", s.History.LoyaltyPoints))
	}

	if len(parts) == 0 {
		return "New customer, no prior data"
	}
	return strings.Join(parts, "; ")
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		if len(runes) > 0 {
			runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
		}
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
