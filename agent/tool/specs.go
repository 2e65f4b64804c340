package tool

import contractx "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/contract"

var (
	specSetName = contractx.ToolSpec{
		Name: ToolSetName,
		Desc: "Update the customer's name in the session.",
		Params: map[string]contractx.ParamInfo{
			"name": {Type: "string", Desc: "Customer's full name", Required: true},
		},
	}
	specSetPhone = contractx.ToolSpec{
		Name: ToolSetPhone,
		Desc: "Update the customer's phone number and fetch their history.",
		Params: map[string]contractx.ParamInfo{
			"phone": {Type: "string", Desc: "Customer's phone number", Required: true},
		},
	}
	specSetEmail = contractx.ToolSpec{
		Name: ToolSetEmail,
		Desc: "Update the customer's email address.",
		Params: map[string]contractx.ParamInfo{
			"email": {Type: "string", Desc: "Customer's email address", Required: true},
		},
	}
	specSpecialInstructions = contractx.ToolSpec{
		Name: ToolSpecialInstructions,
		Desc: "Add special instructions to the current order or reservation.",
		Params: map[string]contractx.ParamInfo{
			"instructions": {Type: "string", Desc: "Special instructions", Required: true},
		},
	}
	specCustomerSummary = contractx.ToolSpec{
		Name: ToolCustomerSummary,
		Desc: "Get a summary of the current customer session.",
	}
	specLoyaltyStatus = contractx.ToolSpec{
		Name: ToolLoyaltyStatus,
		Desc: "Check the customer's loyalty points and status.",
	}
	specEndCall = contractx.ToolSpec{
		Name: ToolEndCall,
		Desc: "End the call when the request is outside the restaurant's scope or the caller is done.",
	}

	specIntentOrder = contractx.ToolSpec{
		Name: ToolIntentOrder,
		Desc: "The caller wants to order food. Hand off to order taking.",
	}
	specIntentReservation = contractx.ToolSpec{
		Name: ToolIntentReservation,
		Desc: "The caller wants to book a table. Hand off to reservation taking.",
	}

	specAddItem = contractx.ToolSpec{
		Name: ToolAddItem,
		Desc: "Add a menu item to the current order.",
		Params: map[string]contractx.ParamInfo{
			"item":          {Type: "string", Desc: "Menu item name", Required: true},
			"quantity":      {Type: "integer", Desc: "How many", Required: true},
			"modifications": {Type: "array", Desc: "Optional modifications, e.g. no sugar"},
		},
	}
	specSetPaymentMethod = contractx.ToolSpec{
		Name: ToolSetPaymentMethod,
		Desc: "Record how the customer wants to pay.",
		Params: map[string]contractx.ParamInfo{
			"method": {Type: "string", Desc: "cash, card or online", Required: true},
		},
	}
	specFinalizeOrder = contractx.ToolSpec{
		Name: ToolFinalizeOrder,
		Desc: "The order is complete; proceed to confirmation.",
	}

	specSetReservationDetails = contractx.ToolSpec{
		Name: ToolSetReservationDetails,
		Desc: "Record the reservation date, time and party size.",
		Params: map[string]contractx.ParamInfo{
			"date":       {Type: "string", Desc: "Reservation date", Required: true},
			"time":       {Type: "string", Desc: "Reservation time", Required: true},
			"party_size": {Type: "integer", Desc: "Number of guests", Required: true},
		},
	}
	specConfirmReservationDraft = contractx.ToolSpec{
		Name: ToolConfirmReservationDraft,
		Desc: "The reservation details are complete; proceed to confirmation.",
	}

	specConfirmOrder = contractx.ToolSpec{
		Name: ToolConfirmOrder,
		Desc: "Confirm and save the order.",
	}
	specConfirmReservation = contractx.ToolSpec{
		Name: ToolConfirmReservation,
		Desc: "Confirm and save the reservation.",
	}
	specRequestCorrection = contractx.ToolSpec{
		Name: ToolRequestCorrection,
		Desc: "Correct one detail before confirming.",
		Params: map[string]contractx.ParamInfo{
			"field":     {Type: "string", Desc: "One of: name, phone, email, date, time, party_size", Required: true},
			"new_value": {Type: "string", Desc: "The corrected value", Required: true},
		},
	}
	specCancelRequest = contractx.ToolSpec{
		Name: ToolCancelRequest,
		Desc: "Cancel the current request without saving.",
	}
)
