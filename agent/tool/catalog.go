// Package tool implements the named operations the voice model can invoke.
// Each tool is scoped to one or more roles, mutates SessionState and returns
// a tagged Outcome (NoOp, Advisory or Handoff).
package tool

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	contractx "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/contract"
	statex "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/state"
)

// Tool names. These are what the model sees and calls.
const (
	ToolSetName             = "update_customer_name"
	ToolSetPhone            = "update_customer_phone"
	ToolSetEmail            = "update_customer_email"
	ToolSpecialInstructions = "add_special_instructions"
	ToolCustomerSummary     = "get_customer_summary"
	ToolLoyaltyStatus       = "check_loyalty_status"
	ToolEndCall             = "end_call"

	ToolIntentOrder       = "intent_is_order"
	ToolIntentReservation = "intent_is_reservation"

	ToolAddItem          = "add_item"
	ToolSetPaymentMethod = "set_payment_method"
	ToolFinalizeOrder    = "finalize_order"

	ToolSetReservationDetails   = "set_reservation_details"
	ToolConfirmReservationDraft = "confirm_reservation_draft"

	ToolConfirmOrder       = "confirm_order"
	ToolConfirmReservation = "confirm_reservation"
	ToolRequestCorrection  = "request_correction"
	ToolCancelRequest      = "cancel_request"
)

// Deps carries the collaborators tools may touch. NewID and Now are
// injectable so commits are deterministic under test.
type Deps struct {
	Store   contractx.CustomerStore
	Catalog contractx.Catalog
	Now     func() time.Time
	NewID   func() string
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d Deps) newID() string {
	if d.NewID != nil {
		return d.NewID()
	}
	return uuid.NewString()
}

// Handler executes one tool against the session.
type Handler func(ctx context.Context, deps Deps, st *statex.SessionState, args map[string]any) (contractx.Outcome, error)

type entry struct {
	spec    contractx.ToolSpec
	roles   []contractx.RoleTag // empty means any non-terminal role
	handler Handler
}

func (e entry) allowedFor(tag contractx.RoleTag) bool {
	if tag == contractx.RoleEndCall {
		return false
	}
	if len(e.roles) == 0 {
		return true
	}
	for _, r := range e.roles {
		if r == tag {
			return true
		}
	}
	return false
}

// order of registration fixes the order tools are offered to the model
var registry = []entry{
	{spec: specSetName, handler: setCustomerName},
	{spec: specSetPhone, handler: setCustomerPhone},
	{spec: specSetEmail, handler: setCustomerEmail},
	{spec: specSpecialInstructions, handler: addSpecialInstructions},
	{spec: specCustomerSummary, handler: customerSummary},
	{spec: specLoyaltyStatus, handler: loyaltyStatus},
	{spec: specEndCall, handler: endCall},

	{spec: specIntentOrder, roles: []contractx.RoleTag{contractx.RoleIntentRouter}, handler: intentIsOrder},
	{spec: specIntentReservation, roles: []contractx.RoleTag{contractx.RoleIntentRouter}, handler: intentIsReservation},

	{spec: specAddItem, roles: []contractx.RoleTag{contractx.RoleOrderTaking}, handler: addItem},
	{spec: specSetPaymentMethod, roles: []contractx.RoleTag{contractx.RoleOrderTaking}, handler: setPaymentMethod},
	{spec: specFinalizeOrder, roles: []contractx.RoleTag{contractx.RoleOrderTaking}, handler: finalizeOrder},

	{spec: specSetReservationDetails, roles: []contractx.RoleTag{contractx.RoleReservationTaking}, handler: setReservationDetails},
	{spec: specConfirmReservationDraft, roles: []contractx.RoleTag{contractx.RoleReservationTaking}, handler: confirmReservationDraft},

	{spec: specConfirmOrder, roles: []contractx.RoleTag{contractx.RoleConfirmation}, handler: confirmOrder},
	{spec: specConfirmReservation, roles: []contractx.RoleTag{contractx.RoleConfirmation}, handler: confirmReservation},
	{spec: specRequestCorrection, roles: []contractx.RoleTag{contractx.RoleConfirmation}, handler: requestCorrection},
	{spec: specCancelRequest, roles: []contractx.RoleTag{contractx.RoleConfirmation}, handler: cancelRequest},
}

// SpecsForRole returns the tools offered to the model while the given role
// is active, in registration order.
func SpecsForRole(tag contractx.RoleTag) []contractx.ToolSpec {
	var specs []contractx.ToolSpec
	for _, e := range registry {
		if e.allowedFor(tag) {
			specs = append(specs, e.spec)
		}
	}
	return specs
}

// Invoke dispatches a named call scoped to the active role.
func Invoke(ctx context.Context, deps Deps, tag contractx.RoleTag, st *statex.SessionState, call contractx.ToolCall) (contractx.Outcome, error) {
	name := strings.TrimSpace(call.Tool)
	for _, e := range registry {
		if e.spec.Name != name {
			continue
		}
		if !e.allowedFor(tag) {
			return contractx.Outcome{}, fmt.Errorf("%w: tool=%s role=%s", contractx.ErrToolNotAllowed, name, tag)
		}
		return e.handler(ctx, deps, st, call.Args)
	}
	return contractx.Outcome{}, fmt.Errorf("%w: %s", contractx.ErrUnknownTool, name)
}

/* ------------------------------ arg helpers ------------------------------ */

func stringArg(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	if v, ok := args[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func intArg(args map[string]any, key string) (int, bool) {
	if args == nil {
		return 0, false
	}
	switch v := args[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func stringSliceArg(args map[string]any, key string) []string {
	if args == nil {
		return nil
	}
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}
