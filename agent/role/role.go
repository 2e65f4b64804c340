// Package role defines the closed set of dialogue roles and the table that
// maps each tag to its directive template and behavior. Role values are
// created fresh on every transition and never mutated in place.
package role

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/contract"
	statex "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/state"
	transcriptx "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/transcript"
)

var (
	//go:embed template/intent_router.txt
	intentRouterRaw string

	//go:embed template/order_taking.txt
	orderTakingRaw string

	//go:embed template/reservation_taking.txt
	reservationTakingRaw string

	//go:embed template/confirmation.txt
	confirmationRaw string

	//go:embed template/end_call.txt
	endCallRaw string
)

// Definition is one row of the role table.
type Definition struct {
	Tag       contractx.RoleTag
	Name      string // human-readable, used for room tagging and logs
	Template  string
	WantsMenu bool // IntentRouter and OrderTaking render the catalog
	Terminal  bool
}

var table = map[contractx.RoleTag]Definition{
	contractx.RoleIntentRouter: {
		Tag:       contractx.RoleIntentRouter,
		Name:      "IntentRouter",
		Template:  intentRouterRaw,
		WantsMenu: true,
	},
	contractx.RoleOrderTaking: {
		Tag:       contractx.RoleOrderTaking,
		Name:      "OrderTaking",
		Template:  orderTakingRaw,
		WantsMenu: true,
	},
	contractx.RoleReservationTaking: {
		Tag:      contractx.RoleReservationTaking,
		Name:     "ReservationTaking",
		Template: reservationTakingRaw,
	},
	contractx.RoleConfirmation: {
		Tag:      contractx.RoleConfirmation,
		Name:     "Confirmation",
		Template: confirmationRaw,
	},
	contractx.RoleEndCall: {
		Tag:      contractx.RoleEndCall,
		Name:     "EndCall",
		Template: endCallRaw,
		Terminal: true,
	},
}

// Lookup returns the definition for a tag.
func Lookup(tag contractx.RoleTag) (Definition, bool) {
	def, ok := table[tag]
	return def, ok
}

// Role is one active dialogue role: its directive, built once at
// construction, and the transcript it accumulates while active.
type Role struct {
	Tag        contractx.RoleTag
	Name       string
	Directive  string
	Terminal   bool
	Transcript []transcriptx.Entry
}

// New constructs a fresh role for a transition. Roles that render the menu
// fetch it from the catalog here; a catalog failure is a construction
// failure, handled by the orchestrator.
func New(ctx context.Context, tag contractx.RoleTag, session *statex.SessionState, catalog contractx.Catalog) (*Role, error) {
	def, ok := table[tag]
	if !ok {
		return nil, fmt.Errorf("%w: unknown role tag=%q", contractx.ErrRoleConstruct, tag)
	}

	directive := strings.TrimSpace(def.Template)
	if def.WantsMenu {
		if catalog == nil {
			return nil, fmt.Errorf("%w: role %s requires a catalog", contractx.ErrRoleConstruct, def.Name)
		}
		items, err := catalog.ListAvailableItems(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: list menu for role %s: %v", contractx.ErrRoleConstruct, def.Name, err)
		}
		directive = strings.ReplaceAll(directive, "{menu}", MenuText(items))
	}

	directive = fmt.Sprintf("You are the %s. %s Current session: %s", def.Name, directive, session.Summarize())

	return &Role{
		Tag:       def.Tag,
		Name:      def.Name,
		Directive: directive,
		Terminal:  def.Terminal,
	}, nil
}

// Append adds entries to the role's transcript.
func (r *Role) Append(entries ...transcriptx.Entry) {
	r.Transcript = append(r.Transcript, entries...)
}

// MenuText renders the catalog grouped by category for directive text.
func MenuText(items []contractx.MenuItem) string {
	if len(items) == 0 {
		return "Menu currently unavailable"
	}

	byCategory := make(map[string][]contractx.MenuItem)
	var order []string
	for _, item := range items {
		category := item.Category
		if category == "" {
			category = "other"
		}
		if _, ok := byCategory[category]; !ok {
			order = append(order, category)
		}
		byCategory[category] = append(byCategory[category], item)
	}

	var b strings.Builder
	for _, category := range order {
		fmt.Fprintf(&b, "\n%s:\n", strings.ToUpper(category))
		for _, item := range byCategory[category] {
			fmt.Fprintf(&b, "- %s: $%.2f - %s\n", item.Name, item.Price, item.Description)
		}
	}
	return b.String()
}
