package tool

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/contract"
	statex "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/state"
)

// Confirmation tools. These perform the hard completeness validation at
// commit time; the readiness hints earlier in the flow are advisory only.

const commitApology = "Oops, something went wrong on our end. Let me try that again for you."

func confirmOrder(ctx context.Context, deps Deps, st *statex.SessionState, _ map[string]any) (contractx.Outcome, error) {
	if st.CustomerName == "" || st.CustomerPhone == "" || len(st.Items) == 0 {
		return contractx.Advisory("I just need to get your name and phone number to complete this order."), nil
	}

	order := buildOrder(ctx, deps, st)
	if err := deps.Store.CommitOrder(ctx, order); err != nil {
		log.Error().Err(err).Str("order_id", order.ID).Msg("order commit failed")
		deps.Store.LogError(ctx, contractx.ErrorRecord{
			CorrelationID: order.ID,
			Role:          string(contractx.RoleConfirmation),
			SessionID:     st.SessionID,
			CustomerPhone: st.CustomerPhone,
			Message:       fmt.Sprintf("commit order: %v", err),
			At:            deps.now().UTC(),
		})
		return contractx.Advisory(commitApology), nil
	}

	return contractx.Advisory("Perfect! Your order is all set. We'll have it ready for you soon!"), nil
}

// buildOrder resolves unit prices from the catalog at commit time. Items not
// found on the menu keep a zero price.
func buildOrder(ctx context.Context, deps Deps, st *statex.SessionState) contractx.Order {
	priceByName := map[string]contractx.MenuItem{}
	if deps.Catalog != nil {
		if menu, err := deps.Catalog.ListAvailableItems(ctx); err == nil {
			for _, m := range menu {
				priceByName[strings.ToLower(m.Name)] = m
			}
		} else {
			log.Warn().Err(err).Msg("price resolution skipped, menu unavailable")
		}
	}

	lines := make([]contractx.OrderLine, 0, len(st.Items))
	total := 0.0
	for _, li := range st.Items {
		line := contractx.OrderLine{
			MenuItemName:  li.Name,
			Quantity:      li.Quantity,
			Modifications: li.Modifications,
		}
		if m, ok := priceByName[strings.ToLower(li.Name)]; ok {
			line.MenuItemID = m.ID
			line.UnitPrice = m.Price
		}
		total += line.Total()
		lines = append(lines, line)
	}

	method := st.PaymentMethod
	if method == "" {
		method = "cash"
	}

	return contractx.Order{
		ID:                  deps.newID(),
		CustomerName:        st.CustomerName,
		CustomerPhone:       st.CustomerPhone,
		Items:               lines,
		TotalAmount:         total,
		PaymentMethod:       method,
		SpecialInstructions: st.SpecialInstructions,
		CallID:              st.CallID,
		SessionID:           st.SessionID,
		OrderTime:           deps.now().UTC(),
	}
}

func confirmReservation(ctx context.Context, deps Deps, st *statex.SessionState, _ map[string]any) (contractx.Outcome, error) {
	if st.CustomerName == "" || st.CustomerPhone == "" ||
		st.ReservationDate == "" || st.ReservationTime == "" || st.PartySize <= 0 {
		return contractx.Advisory("I just need a few more details to get your table reserved."), nil
	}

	res := contractx.Reservation{
		ID:            deps.newID(),
		CustomerName:  st.CustomerName,
		CustomerPhone: st.CustomerPhone,
		Date:          st.ReservationDate,
		Time:          st.ReservationTime,
		PartySize:     st.PartySize,
		CallID:        st.CallID,
		CreatedAt:     deps.now().UTC(),
	}
	if err := deps.Store.CommitReservation(ctx, res); err != nil {
		log.Error().Err(err).Str("reservation_id", res.ID).Msg("reservation commit failed")
		deps.Store.LogError(ctx, contractx.ErrorRecord{
			CorrelationID: res.ID,
			Role:          string(contractx.RoleConfirmation),
			SessionID:     st.SessionID,
			CustomerPhone: st.CustomerPhone,
			Message:       fmt.Sprintf("commit reservation: %v", err),
			At:            deps.now().UTC(),
		})
		return contractx.Advisory(commitApology), nil
	}

	return contractx.Advisory("Great! Your table is reserved. We're looking forward to seeing you!"), nil
}

func requestCorrection(_ context.Context, _ Deps, st *statex.SessionState, args map[string]any) (contractx.Outcome, error) {
	field := strings.ToLower(stringArg(args, "field"))
	newValue := stringArg(args, "new_value")

	switch field {
	case "name":
		st.SetName(newValue)
	case "phone":
		st.SetPhone(newValue)
	case "email":
		if !st.SetEmail(newValue) {
			return contractx.Advisory("That doesn't look like a valid email address. Could you try again?"), nil
		}
	case "date":
		st.ReservationDate = newValue
	case "time":
		st.ReservationTime = newValue
	case "party_size":
		size, err := strconv.Atoi(newValue)
		if err != nil || size <= 0 {
			return contractx.Advisory("How many people should I book the table for?"), nil
		}
		st.PartySize = size
	default:
		return contractx.Advisory("Just let me know what you'd like to change - your name, phone, email, date, time, or party size."), nil
	}

	return contractx.Advisory(fmt.Sprintf("Got it, changed to %s. Does everything look right now?", newValue)), nil
}

func cancelRequest(_ context.Context, _ Deps, _ *statex.SessionState, _ map[string]any) (contractx.Outcome, error) {
	return contractx.Advisory("No problem! What else can I help you with?"), nil
}
