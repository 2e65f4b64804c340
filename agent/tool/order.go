package tool

import (
	"context"

	contractx "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/contract"
	statex "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/state"
)

// OrderTaking tools.

func addItem(_ context.Context, _ Deps, st *statex.SessionState, args map[string]any) (contractx.Outcome, error) {
	item := stringArg(args, "item")
	quantity, ok := intArg(args, "quantity")
	if !ok {
		quantity = 1
	}

	li := statex.LineItem{
		Name:          item,
		Quantity:      quantity,
		Modifications: stringSliceArg(args, "modifications"),
	}
	if err := st.AddItem(li); err != nil {
		return contractx.Advisory("I couldn't add that one. Which menu item would you like, and how many?"), nil
	}

	// Readiness is a hint only; the confirm tool hard-validates at commit.
	if hint := orderReadiness(st); hint != "" {
		return contractx.Advisory(hint), nil
	}
	return contractx.NoOp(), nil
}

func setPaymentMethod(_ context.Context, _ Deps, st *statex.SessionState, args map[string]any) (contractx.Outcome, error) {
	method := stringArg(args, "method")
	if method == "" {
		return contractx.Advisory("How would you like to pay - cash, card or online?"), nil
	}
	st.PaymentMethod = method
	return contractx.NoOp(), nil
}

func finalizeOrder(_ context.Context, _ Deps, _ *statex.SessionState, _ map[string]any) (contractx.Outcome, error) {
	return contractx.Handoff(contractx.RoleConfirmation), nil
}

func orderReadiness(st *statex.SessionState) string {
	if st.CustomerName != "" && st.CustomerPhone != "" && len(st.Items) > 0 {
		return "You may now confirm the order."
	}
	return ""
}
