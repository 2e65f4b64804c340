package tool

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/contract"
	statex "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/state"
)

// Shared tools, available to every non-terminal role.

func setCustomerName(_ context.Context, _ Deps, st *statex.SessionState, args map[string]any) (contractx.Outcome, error) {
	name := stringArg(args, "name")
	if name == "" {
		return contractx.Advisory("I didn't catch the name. Could you say it again?"), nil
	}
	st.SetName(name)
	return contractx.Advisory(fmt.Sprintf("Got it! I have your name as %s", st.CustomerName)), nil
}

func setCustomerPhone(ctx context.Context, deps Deps, st *statex.SessionState, args map[string]any) (contractx.Outcome, error) {
	phone := stringArg(args, "phone")
	if phone == "" {
		return contractx.Advisory("I didn't catch the phone number. Could you repeat it?"), nil
	}
	st.SetPhone(phone)

	if deps.Store == nil {
		return contractx.Advisory(fmt.Sprintf("Phone number updated to %s.", st.CustomerPhone)), nil
	}

	// Best-effort history lookup. A failed lookup never fails the tool.
	history, err := deps.Store.LookupCustomer(ctx, st.CustomerPhone)
	if err != nil {
		log.Warn().Err(err).Str("phone", st.CustomerPhone).Msg("customer lookup failed")
		return contractx.Advisory(fmt.Sprintf("Phone number updated to %s.", st.CustomerPhone)), nil
	}
	if history.Empty() {
		return contractx.Advisory(fmt.Sprintf("Phone number updated to %s. Welcome to our restaurant!", st.CustomerPhone)), nil
	}

	st.MergeHistory(history)
	return contractx.Advisory(welcomeBack(history)), nil
}

func welcomeBack(h contractx.CustomerHistory) string {
	name := h.Name
	if name == "" {
		name = "valued customer"
	}
	msg := fmt.Sprintf("Welcome back, %s!", name)
	if h.LoyaltyPoints > 0 {
		msg += fmt.Sprintf(" I see you have %d loyalty points.", h.LoyaltyPoints)
	}
	if len(h.PriorOrders) > 0 {
		msg += fmt.Sprintf(" Your last order was on %s.", h.PriorOrders[0].OrderTime.Format("January 2"))
	}
	return msg
}

func setCustomerEmail(_ context.Context, _ Deps, st *statex.SessionState, args map[string]any) (contractx.Outcome, error) {
	email := stringArg(args, "email")
	if !st.SetEmail(email) {
		return contractx.Advisory("That doesn't look like a valid email address. Could you try again?"), nil
	}
	return contractx.Advisory(fmt.Sprintf("Email updated to %s", st.CustomerEmail)), nil
}

func addSpecialInstructions(_ context.Context, _ Deps, st *statex.SessionState, args map[string]any) (contractx.Outcome, error) {
	instructions := stringArg(args, "instructions")
	if instructions == "" {
		return contractx.Advisory("What would you like me to note down?"), nil
	}
	st.SpecialInstructions = instructions
	return contractx.Advisory(fmt.Sprintf("Added special instructions: %s", instructions)), nil
}

func customerSummary(_ context.Context, _ Deps, st *statex.SessionState, _ map[string]any) (contractx.Outcome, error) {
	return contractx.Advisory(st.Summarize()), nil
}

func loyaltyStatus(_ context.Context, _ Deps, st *statex.SessionState, _ map[string]any) (contractx.Outcome, error) {
	if st.History.LoyaltyPoints > 0 {
		return contractx.Advisory(fmt.Sprintf("You have %d loyalty points available!", st.History.LoyaltyPoints)), nil
	}
	return contractx.Advisory("You don't have any loyalty points yet, but you'll start earning them with your next order!"), nil
}

func endCall(_ context.Context, _ Deps, _ *statex.SessionState, _ map[string]any) (contractx.Outcome, error) {
	return contractx.Handoff(contractx.RoleEndCall), nil
}

// IntentRouter tools.

func intentIsOrder(_ context.Context, _ Deps, st *statex.SessionState, _ map[string]any) (contractx.Outcome, error) {
	st.Intent = "order"
	return contractx.Handoff(contractx.RoleOrderTaking), nil
}

func intentIsReservation(_ context.Context, _ Deps, st *statex.SessionState, _ map[string]any) (contractx.Outcome, error) {
	st.Intent = "reservation"
	return contractx.Handoff(contractx.RoleReservationTaking), nil
}
