// Package orchestrator owns the active dialogue role for one conversation.
// It drives the on-enter/on-exit lifecycle, applies tool outcomes, and is the
// error boundary for a turn: internal failures surface as a fixed apology and
// never terminate the session.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/contract"
	rolex "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/role"
	statex "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/state"
	toolx "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/tool"
	transcriptx "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/transcript"
)

// GenericApology is the only text an internal failure ever surfaces.
const GenericApology = "I apologize, I'm having a small technical issue. How else can I help you today?"

const (
	greetInstructions = "Greet the user warmly based on your role and current context."
	exitInstructions  = "Let the user know you're transferring them to a specialist who can better help them."

	// One model/tool round per decision; a tool advisory feeds back into the
	// next decision. The cap keeps a misbehaving model from spinning.
	maxToolRounds = 4
)

var (
	phonePattern = regexp.MustCompile(`\+?1?[-.\s]?\(?[0-9]{3}\)?[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}`)
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
)

var ErrNotStarted = errors.New("orchestrator not started")

type Orchestrator struct {
	model     contractx.VoiceModel
	store     contractx.CustomerStore
	catalog   contractx.Catalog
	metadata  contractx.SessionMetadata
	snapshots statex.SnapshotStore

	session *statex.SessionState
	active  *rolex.Role
	deps    toolx.Deps

	log zerolog.Logger
	now func() time.Time
}

func New(
	model contractx.VoiceModel,
	store contractx.CustomerStore,
	catalog contractx.Catalog,
	metadata contractx.SessionMetadata,
	snapshots statex.SnapshotStore,
	session *statex.SessionState,
	logger zerolog.Logger,
) (*Orchestrator, error) {
	if model == nil {
		return nil, errors.New("voice model is required")
	}
	if store == nil {
		return nil, errors.New("customer store is required")
	}
	if catalog == nil {
		return nil, errors.New("catalog is required")
	}
	if session == nil {
		return nil, errors.New("session state is required")
	}
	if metadata == nil {
		metadata = noopMetadata{}
	}

	return &Orchestrator{
		model:     model,
		store:     store,
		catalog:   catalog,
		metadata:  metadata,
		snapshots: snapshots,
		session:   session,
		deps: toolx.Deps{
			Store:   store,
			Catalog: catalog,
		},
		log: logger.With().Str("session_id", session.SessionID).Logger(),
		now: time.Now,
	}, nil
}

// Start enters the initial IntentRouter role and returns its greeting.
func (o *Orchestrator) Start(ctx context.Context) (string, error) {
	first, err := rolex.New(ctx, contractx.RoleIntentRouter, o.session, o.catalog)
	if err != nil {
		return "", err
	}
	o.active = first
	return o.enterRole(ctx, nil), nil
}

// ActiveRole reports the tag of the currently active role.
func (o *Orchestrator) ActiveRole() contractx.RoleTag {
	if o.active == nil {
		return ""
	}
	return o.active.Tag
}

// Session exposes the conversation's state record. The orchestrator retains
// exclusive ownership; callers must not mutate it.
func (o *Orchestrator) Session() *statex.SessionState {
	return o.session
}

// Done reports whether the conversation reached the terminal EndCall role.
func (o *Orchestrator) Done() bool {
	return o.active != nil && o.active.Terminal
}

// HandleUserTurn processes one caller utterance and returns the assistant's
// reply. It never returns an internal error to the caller: failures are
// logged with a correlation id and mapped to the generic apology.
func (o *Orchestrator) HandleUserTurn(ctx context.Context, utterance string) (string, error) {
	if o.active == nil {
		return "", ErrNotStarted
	}
	if o.Done() {
		return "Thank you for your time, have a wonderful day.", nil
	}

	o.userTurnHook(ctx, utterance)
	o.active.Append(transcriptx.NewMessage(transcriptx.RoleUser, utterance))

	for round := 0; round < maxToolRounds; round++ {
		action, err := o.model.Decide(ctx, o.active.Tag, o.active.Directive, o.active.Transcript, toolx.SpecsForRole(o.active.Tag))
		if err != nil {
			return o.apologize(ctx, "model decide", err), nil
		}

		if action.ToolCall == nil {
			reply := strings.TrimSpace(action.Utterance)
			if reply == "" {
				return o.apologize(ctx, "model reply", fmt.Errorf("%w: empty utterance", contractx.ErrSchemaViolation)), nil
			}
			o.active.Append(transcriptx.NewMessage(transcriptx.RoleAssistant, reply))
			o.persistSnapshot(ctx)
			return reply, nil
		}

		call := *action.ToolCall
		o.active.Append(transcriptx.NewToolCall(call.Tool, renderToolCall(call)))

		outcome, err := toolx.Invoke(ctx, o.deps, o.active.Tag, o.session, call)
		if err != nil {
			return o.apologize(ctx, "tool "+call.Tool, err), nil
		}

		switch outcome.Kind {
		case contractx.OutcomeNoOp:
			o.active.Append(transcriptx.NewToolResult(call.Tool, "ok"))
		case contractx.OutcomeAdvisory:
			o.active.Append(transcriptx.NewToolResult(call.Tool, outcome.Text))
		case contractx.OutcomeHandoff:
			o.active.Append(transcriptx.NewToolResult(call.Tool, "handing off to "+string(outcome.Next)))
			reply := o.transition(ctx, outcome.Next)
			if reply != "" {
				o.persistSnapshot(ctx)
				return reply, nil
			}
			// handoff to the already-active tag is a no-op; keep deciding
		default:
			return o.apologize(ctx, "tool "+call.Tool, fmt.Errorf("unexpected outcome kind=%q", outcome.Kind)), nil
		}
	}

	// The model kept calling tools; close the turn with a spoken reply.
	reply, err := o.model.GenerateUtterance(ctx, o.active.Tag, o.active.Directive, o.active.Transcript, "Briefly tell the caller where things stand and ask what they'd like to do next.")
	if err != nil {
		return o.apologize(ctx, "turn fallback", err), nil
	}
	o.active.Append(transcriptx.NewMessage(transcriptx.RoleAssistant, reply))
	o.persistSnapshot(ctx)
	return reply, nil
}

// transition applies a Handoff outcome: on-exit of the current role,
// construction of the next one, transcript truncate+merge, swap, on-enter.
// It returns the text to speak, or "" when the handoff was a no-op.
func (o *Orchestrator) transition(ctx context.Context, next contractx.RoleTag) string {
	if o.active != nil && o.active.Tag == next {
		return ""
	}

	previous := o.active

	var farewell string
	if previous != nil && next != contractx.RoleEndCall {
		text, err := o.model.GenerateUtterance(ctx, previous.Tag, previous.Directive, previous.Transcript, exitInstructions)
		if err != nil {
			o.log.Warn().Err(err).Str("role", previous.Name).Msg("on-exit utterance failed")
		} else {
			farewell = strings.TrimSpace(text)
		}
	}

	incoming, err := rolex.New(ctx, next, o.session, o.catalog)
	if err != nil {
		correlationID := uuid.NewString()
		o.log.Error().Err(err).
			Str("correlation_id", correlationID).
			Str("next_role", string(next)).
			Msg("role construction failed, keeping current role")
		o.store.LogError(ctx, contractx.ErrorRecord{
			CorrelationID: correlationID,
			Role:          string(o.active.Tag),
			SessionID:     o.session.SessionID,
			CustomerPhone: o.session.CustomerPhone,
			Message:       fmt.Sprintf("construct role %s: %v", next, err),
			At:            o.now().UTC(),
		})
		return GenericApology
	}

	o.active = incoming
	greeting := o.enterRole(ctx, previous)

	if farewell != "" && greeting != "" {
		return farewell + " " + greeting
	}
	if greeting != "" {
		return greeting
	}
	return farewell
}

// enterRole runs the on-enter lifecycle for the already-swapped active role:
// best-effort room tagging, transcript carry-over from the previous role,
// directive injection and the greeting utterance.
func (o *Orchestrator) enterRole(ctx context.Context, previous *rolex.Role) string {
	active := o.active
	o.log.Info().Str("role", active.Name).Msg("entering role")

	if err := o.metadata.TagActiveRole(ctx, o.session.SessionID, active.Name); err != nil {
		o.log.Warn().Err(err).Str("role", active.Name).Msg("failed to tag active role")
	}

	if previous != nil {
		carried := transcriptx.Truncate(previous.Transcript, transcriptx.TruncateOptions{
			KeepToolArtifacts: true,
		})
		active.Transcript = transcriptx.Merge(active.Transcript, carried)
	}

	active.Append(transcriptx.NewMessage(transcriptx.RoleSystem, active.Directive))

	instructions := o.enterInstructions(active)
	greeting, err := o.model.GenerateUtterance(ctx, active.Tag, active.Directive, active.Transcript, instructions)
	if err != nil {
		o.log.Warn().Err(err).Str("role", active.Name).Msg("greeting generation failed")
		return GenericApology
	}
	greeting = strings.TrimSpace(greeting)
	if greeting != "" {
		active.Append(transcriptx.NewMessage(transcriptx.RoleAssistant, greeting))
	}

	if active.Terminal {
		if err := o.metadata.CloseSession(ctx, o.session.SessionID); err != nil {
			o.log.Warn().Err(err).Msg("failed to close session")
		}
	}

	return greeting
}

// enterInstructions picks the greeting instructions for a role. Confirmation
// gets a natural read-back of the draft so the caller hears what they're
// about to commit.
func (o *Orchestrator) enterInstructions(active *rolex.Role) string {
	if active.Tag != contractx.RoleConfirmation {
		return greetInstructions
	}

	switch {
	case len(o.session.Items) > 0:
		return fmt.Sprintf(
			"Casually confirm the order details: %s. Sound natural and friendly, like you're just double-checking you got their order right.",
			naturalOrderSummary(o.session),
		)
	case o.session.ReservationDate != "":
		return fmt.Sprintf(
			"Casually confirm the reservation: %s. Sound warm and welcoming, like you're looking forward to seeing them.",
			naturalReservationSummary(o.session),
		)
	default:
		return "Something seems to be missing. Let me help you complete your order or reservation."
	}
}

// userTurnHook runs after each caller utterance, before the model acts. It
// scans for phone/email patterns and enriches the transcript with whatever a
// best-effort history lookup finds. It never blocks or fails the turn.
func (o *Orchestrator) userTurnHook(ctx context.Context, utterance string) {
	var found []string

	if phone := phonePattern.FindString(utterance); phone != "" {
		normalized := statex.NormalizePhone(phone)
		history, err := o.store.LookupCustomer(ctx, normalized)
		switch {
		case err != nil:
			o.log.Warn().Err(err).Str("phone", normalized).Msg("turn-hook customer lookup failed")
		case !history.Empty():
			o.session.MergeHistory(history)
			found = append(found, fmt.Sprintf("Found %d previous orders for %s", len(history.PriorOrders), normalized))
		}
	}

	if email := emailPattern.FindString(utterance); email != "" {
		found = append(found, "Email provided: "+email)
	}

	if len(found) == 0 {
		return
	}

	o.active.Append(transcriptx.NewMessage(transcriptx.RoleAssistant, "Customer information found: "+strings.Join(found, " | ")))
	o.persistSnapshot(ctx)
}

func (o *Orchestrator) persistSnapshot(ctx context.Context) {
	if o.snapshots == nil || o.active == nil {
		return
	}
	snap := &statex.Snapshot{
		Session:    o.session,
		ActiveRole: o.active.Name,
		Transcript: o.active.Transcript,
		SavedAt:    o.now().UTC(),
	}
	if err := o.snapshots.Save(ctx, snap); err != nil {
		o.log.Warn().Err(err).Msg("snapshot save failed")
	}
}

// apologize is the turn error boundary: log everything with a correlation
// id, record it best-effort, and hand the caller the fixed apology.
func (o *Orchestrator) apologize(ctx context.Context, stage string, err error) string {
	correlationID := uuid.NewString()
	o.log.Error().Err(err).
		Str("correlation_id", correlationID).
		Str("stage", stage).
		Str("role", string(o.ActiveRole())).
		Msg("turn failed")
	o.store.LogError(ctx, contractx.ErrorRecord{
		CorrelationID: correlationID,
		Role:          string(o.ActiveRole()),
		SessionID:     o.session.SessionID,
		CustomerPhone: o.session.CustomerPhone,
		Message:       fmt.Sprintf("%s: %v", stage, err),
		At:            o.now().UTC(),
	})
	return GenericApology
}

func renderToolCall(call contractx.ToolCall) string {
	if len(call.Args) == 0 {
		return call.Tool + "()"
	}
	parts := make([]string, 0, len(call.Args))
	for k, v := range call.Args {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return fmt.Sprintf("%s(%s)", call.Tool, strings.Join(parts, ", "))
}

func naturalOrderSummary(st *statex.SessionState) string {
	items := make([]string, 0, len(st.Items))
	for _, li := range st.Items {
		if li.Quantity > 1 {
			items = append(items, fmt.Sprintf("%d %s", li.Quantity, li.Name))
		} else {
			items = append(items, li.Name)
		}
	}

	text := "your order"
	if len(items) > 0 {
		text = strings.Join(items, ", ")
	}
	if st.CustomerName != "" {
		text += " for " + st.CustomerName
	}
	return text
}

func naturalReservationSummary(st *statex.SessionState) string {
	var parts []string
	if st.ReservationDate != "" {
		parts = append(parts, "on "+st.ReservationDate)
	}
	if st.ReservationTime != "" {
		parts = append(parts, "at "+st.ReservationTime)
	}
	if st.PartySize > 0 {
		people := "people"
		if st.PartySize == 1 {
			people = "person"
		}
		parts = append(parts, fmt.Sprintf("for %d %s", st.PartySize, people))
	}
	if st.CustomerName != "" {
		parts = append(parts, "under "+st.CustomerName)
	}
	if len(parts) == 0 {
		return "your reservation"
	}
	return "table " + strings.Join(parts, " ")
}

type noopMetadata struct{}

func (noopMetadata) TagActiveRole(context.Context, string, string) error { return nil }

func (noopMetadata) CloseSession(context.Context, string) error { return nil }
