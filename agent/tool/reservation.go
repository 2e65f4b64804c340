package tool

import (
	"context"

	contractx "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/contract"
	statex "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/state"
)

// ReservationTaking tools.

func setReservationDetails(_ context.Context, _ Deps, st *statex.SessionState, args map[string]any) (contractx.Outcome, error) {
	date := stringArg(args, "date")
	timeOfDay := stringArg(args, "time")
	partySize, ok := intArg(args, "party_size")
	if !ok {
		return contractx.Advisory("How many people should I book the table for?"), nil
	}

	if err := st.SetReservation(date, timeOfDay, partySize); err != nil {
		return contractx.Advisory("The party size has to be at least one. How many people are coming?"), nil
	}

	if hint := reservationReadiness(st); hint != "" {
		return contractx.Advisory(hint), nil
	}
	return contractx.NoOp(), nil
}

func confirmReservationDraft(_ context.Context, _ Deps, _ *statex.SessionState, _ map[string]any) (contractx.Outcome, error) {
	return contractx.Handoff(contractx.RoleConfirmation), nil
}

func reservationReadiness(st *statex.SessionState) string {
	if st.CustomerName != "" &&
		st.CustomerPhone != "" &&
		st.ReservationDate != "" &&
		st.ReservationTime != "" &&
		st.PartySize > 0 {
		return "You can now use confirm_reservation_draft to save this."
	}
	return ""
}
