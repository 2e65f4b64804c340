package contract

import "time"

// RoleTag identifies one variant of the dialogue state machine. The set is
// closed: transitions are only ever between these five roles.
type RoleTag string

const (
	RoleIntentRouter      RoleTag = "intent_router"
	RoleOrderTaking       RoleTag = "order_taking"
	RoleReservationTaking RoleTag = "reservation_taking"
	RoleConfirmation      RoleTag = "confirmation"
	RoleEndCall           RoleTag = "end_call"
)

// OutcomeKind discriminates the tagged result a tool returns.
type OutcomeKind string

const (
	OutcomeNoOp     OutcomeKind = "noop"
	OutcomeAdvisory OutcomeKind = "advisory"
	OutcomeHandoff  OutcomeKind = "handoff"
)

// Outcome is the result of a tool invocation. Exactly one shape is populated:
// NoOp carries nothing, Advisory carries text for the driving model, Handoff
// carries the next role tag.
type Outcome struct {
	Kind OutcomeKind `json:"kind"`
	Text string      `json:"text,omitempty"`
	Next RoleTag     `json:"next,omitempty"`
}

func NoOp() Outcome {
	return Outcome{Kind: OutcomeNoOp}
}

func Advisory(text string) Outcome {
	return Outcome{Kind: OutcomeAdvisory, Text: text}
}

func Handoff(next RoleTag) Outcome {
	return Outcome{Kind: OutcomeHandoff, Next: next}
}

// ToolCall is the model's decision to invoke a named tool with arguments.
type ToolCall struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

// ModelAction is what the voice model returns for a turn: either a generated
// utterance or a tool call, never both.
type ModelAction struct {
	Utterance string    `json:"utterance,omitempty"`
	ToolCall  *ToolCall `json:"tool_call,omitempty"`
}

// ParamInfo describes one tool parameter for the model.
type ParamInfo struct {
	Type     string `json:"type"`
	Desc     string `json:"desc"`
	Required bool   `json:"required"`
}

// ToolSpec is the model-facing description of a tool.
type ToolSpec struct {
	Name   string               `json:"name"`
	Desc   string               `json:"desc"`
	Params map[string]ParamInfo `json:"params,omitempty"`
}

// MenuItem is one entry of the restaurant catalog.
type MenuItem struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
}

// PriorOrder is a compact view of a past order used in the history snapshot.
type PriorOrder struct {
	OrderID   string    `json:"order_id"`
	Total     float64   `json:"total"`
	OrderTime time.Time `json:"order_time"`
}

// CustomerHistory is the read-only snapshot returned by a customer lookup.
// A zero value means "no data"; absence is never an error.
type CustomerHistory struct {
	Name          string            `json:"name,omitempty"`
	LoyaltyPoints int               `json:"loyalty_points,omitempty"`
	PriorOrders   []PriorOrder      `json:"prior_orders,omitempty"`
	Preferences   map[string]string `json:"preferences,omitempty"`
}

func (h CustomerHistory) Empty() bool {
	return h.Name == "" && h.LoyaltyPoints == 0 && len(h.PriorOrders) == 0 && len(h.Preferences) == 0
}

// ErrorRecord is a best-effort diagnostic row written on failures.
type ErrorRecord struct {
	CorrelationID string    `json:"correlation_id"`
	Role          string    `json:"role"`
	SessionID     string    `json:"session_id"`
	CustomerPhone string    `json:"customer_phone,omitempty"`
	Message       string    `json:"message"`
	At            time.Time `json:"at"`
}
