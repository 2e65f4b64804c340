package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	contractx "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/contract"
	statex "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/state"
	toolx "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/tool"
	transcriptx "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/transcript"
)

type fakeModel struct {
	actions     []contractx.ModelAction
	decideErr   error
	utterErr    error
	decideCalls int
	seenTools   [][]contractx.ToolSpec
}

func (f *fakeModel) Decide(ctx context.Context, role contractx.RoleTag, directive string, entries []transcriptx.Entry, tools []contractx.ToolSpec) (contractx.ModelAction, error) {
	f.decideCalls++
	f.seenTools = append(f.seenTools, tools)
	if f.decideErr != nil {
		return contractx.ModelAction{}, f.decideErr
	}
	if len(f.actions) == 0 {
		return contractx.ModelAction{Utterance: "Anything else I can help with?"}, nil
	}
	next := f.actions[0]
	f.actions = f.actions[1:]
	return next, nil
}

func (f *fakeModel) GenerateUtterance(ctx context.Context, role contractx.RoleTag, directive string, entries []transcriptx.Entry, instructions string) (string, error) {
	if f.utterErr != nil {
		return "", f.utterErr
	}
	if instructions == exitInstructions {
		return "Let me transfer you.", nil
	}
	return "Hello from " + string(role), nil
}

func (f *fakeModel) script(actions ...contractx.ModelAction) {
	f.actions = append(f.actions, actions...)
}

func say(text string) contractx.ModelAction {
	return contractx.ModelAction{Utterance: text}
}

func callTool(name string, args map[string]any) contractx.ModelAction {
	return contractx.ModelAction{ToolCall: &contractx.ToolCall{Tool: name, Args: args}}
}

type fakeStore struct {
	history      contractx.CustomerHistory
	lookupErr    error
	commitErr    error
	lookups      []string
	orders       []contractx.Order
	reservations []contractx.Reservation
	errorRecords []contractx.ErrorRecord
}

func (f *fakeStore) LookupCustomer(ctx context.Context, phone string) (contractx.CustomerHistory, error) {
	f.lookups = append(f.lookups, phone)
	if f.lookupErr != nil {
		return contractx.CustomerHistory{}, f.lookupErr
	}
	return f.history, nil
}

func (f *fakeStore) CommitOrder(ctx context.Context, order contractx.Order) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.orders = append(f.orders, order)
	return nil
}

func (f *fakeStore) CommitReservation(ctx context.Context, res contractx.Reservation) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.reservations = append(f.reservations, res)
	return nil
}

func (f *fakeStore) LogError(ctx context.Context, rec contractx.ErrorRecord) {
	f.errorRecords = append(f.errorRecords, rec)
}

type fakeCatalog struct {
	items     []contractx.MenuItem
	err       error
	failAfter int // fail once this many calls have succeeded; 0 disables
	calls     int
}

func (f *fakeCatalog) ListAvailableItems(ctx context.Context) ([]contractx.MenuItem, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.failAfter > 0 && f.calls > f.failAfter {
		return nil, fmt.Errorf("menu query failed on call %d", f.calls)
	}
	return f.items, nil
}

type fakeMetadata struct {
	tags   []string
	closed []string
	err    error
}

func (f *fakeMetadata) TagActiveRole(ctx context.Context, sessionID, roleName string) error {
	if f.err != nil {
		return f.err
	}
	f.tags = append(f.tags, roleName)
	return nil
}

func (f *fakeMetadata) CloseSession(ctx context.Context, sessionID string) error {
	f.closed = append(f.closed, sessionID)
	return nil
}

type fakeSnapshots struct {
	saves []statex.Snapshot
	err   error
}

func (f *fakeSnapshots) Save(ctx context.Context, snap *statex.Snapshot) error {
	if f.err != nil {
		return f.err
	}
	f.saves = append(f.saves, *snap)
	return nil
}

func (f *fakeSnapshots) Load(ctx context.Context, sessionID string) (*statex.Snapshot, error) {
	return nil, statex.ErrSnapshotNotFound
}

func (f *fakeSnapshots) Delete(ctx context.Context, sessionID string) error {
	return nil
}

func menu() []contractx.MenuItem {
	return []contractx.MenuItem{
		{ID: "m1", Name: "Latte", Price: 4.50, Description: "double shot", Category: "drinks"},
		{ID: "m2", Name: "Croissant", Price: 3.25, Description: "butter", Category: "bakery"},
	}
}

func newTestOrchestrator(t *testing.T, model *fakeModel, store *fakeStore, catalog *fakeCatalog, metadata *fakeMetadata, snapshots *fakeSnapshots) *Orchestrator {
	t.Helper()

	session := statex.New("call-1", "+15551234567", time.Date(2026, 9, 1, 11, 0, 0, 0, time.UTC))
	var snaps statex.SnapshotStore
	if snapshots != nil {
		snaps = snapshots
	}
	var md contractx.SessionMetadata
	if metadata != nil {
		md = metadata
	}
	o, err := New(model, store, catalog, md, snaps, session, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o
}

func mustStart(t *testing.T, o *Orchestrator) string {
	t.Helper()
	greeting, err := o.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return greeting
}

func TestStartEntersIntentRouter(t *testing.T) {
	t.Parallel()

	metadata := &fakeMetadata{}
	o := newTestOrchestrator(t, &fakeModel{}, &fakeStore{}, &fakeCatalog{items: menu()}, metadata, nil)

	greeting := mustStart(t, o)
	if greeting != "Hello from intent_router" {
		t.Fatalf("greeting = %q", greeting)
	}
	if o.ActiveRole() != contractx.RoleIntentRouter {
		t.Fatalf("active role = %s", o.ActiveRole())
	}
	if len(metadata.tags) != 1 || metadata.tags[0] != "IntentRouter" {
		t.Fatalf("room tags = %v", metadata.tags)
	}
	if o.Done() {
		t.Fatal("fresh conversation must not be done")
	}
}

func TestHandleUserTurnBeforeStart(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, &fakeModel{}, &fakeStore{}, &fakeCatalog{items: menu()}, nil, nil)
	if _, err := o.HandleUserTurn(context.Background(), "hello"); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("got %v, want ErrNotStarted", err)
	}
}

func TestHandleUserTurnPlainReply(t *testing.T) {
	t.Parallel()

	model := &fakeModel{}
	model.script(say("We're open until nine tonight."))
	snapshots := &fakeSnapshots{}
	o := newTestOrchestrator(t, model, &fakeStore{}, &fakeCatalog{items: menu()}, nil, snapshots)
	mustStart(t, o)

	reply, err := o.HandleUserTurn(context.Background(), "How late are you open?")
	if err != nil {
		t.Fatalf("HandleUserTurn: %v", err)
	}
	if reply != "We're open until nine tonight." {
		t.Fatalf("reply = %q", reply)
	}
	if len(snapshots.saves) == 0 {
		t.Fatal("turn must persist a snapshot")
	}
	last := snapshots.saves[len(snapshots.saves)-1]
	if last.ActiveRole != "IntentRouter" {
		t.Errorf("snapshot role = %q", last.ActiveRole)
	}
}

func TestHandleUserTurnAdvisoryFeedsNextDecision(t *testing.T) {
	t.Parallel()

	model := &fakeModel{}
	model.script(
		callTool(toolx.ToolCustomerSummary, nil),
		say("You're a new customer with us."),
	)
	o := newTestOrchestrator(t, model, &fakeStore{}, &fakeCatalog{items: menu()}, nil, nil)
	mustStart(t, o)

	reply, err := o.HandleUserTurn(context.Background(), "What do you know about me?")
	if err != nil {
		t.Fatalf("HandleUserTurn: %v", err)
	}
	if reply != "You're a new customer with us." {
		t.Fatalf("reply = %q", reply)
	}
	if model.decideCalls != 2 {
		t.Fatalf("decide calls = %d, want 2", model.decideCalls)
	}

	// the advisory must be visible to the second decision as a tool result
	var sawAdvisory bool
	for _, e := range o.active.Transcript {
		if e.Type == transcriptx.EntryToolResult && strings.Contains(e.Content, "New customer") {
			sawAdvisory = true
		}
	}
	if !sawAdvisory {
		t.Fatal("advisory text missing from transcript")
	}
}

func TestHandoffAnnouncesAndGreets(t *testing.T) {
	t.Parallel()

	model := &fakeModel{}
	model.script(callTool(toolx.ToolIntentOrder, nil))
	metadata := &fakeMetadata{}
	o := newTestOrchestrator(t, model, &fakeStore{}, &fakeCatalog{items: menu()}, metadata, nil)
	mustStart(t, o)

	reply, err := o.HandleUserTurn(context.Background(), "I'd like to order some food")
	if err != nil {
		t.Fatalf("HandleUserTurn: %v", err)
	}
	if reply != "Let me transfer you. Hello from order_taking" {
		t.Fatalf("reply = %q", reply)
	}
	if o.ActiveRole() != contractx.RoleOrderTaking {
		t.Fatalf("active role = %s", o.ActiveRole())
	}
	if len(metadata.tags) != 2 || metadata.tags[1] != "OrderTaking" {
		t.Fatalf("room tags = %v", metadata.tags)
	}

	// the user's utterance must survive the handoff truncation
	var carried bool
	for _, e := range o.active.Transcript {
		if e.Type == transcriptx.EntryMessage && e.Content == "I'd like to order some food" {
			carried = true
		}
	}
	if !carried {
		t.Fatal("previous transcript window not merged into the new role")
	}
}

func TestSameTagHandoffIsNoOp(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, &fakeModel{}, &fakeStore{}, &fakeCatalog{items: menu()}, nil, nil)
	mustStart(t, o)

	before := o.active
	if got := o.transition(context.Background(), contractx.RoleIntentRouter); got != "" {
		t.Fatalf("same-tag transition produced text %q", got)
	}
	if o.active != before {
		t.Fatal("same-tag transition must not rebuild the role")
	}
}

func TestModelFailureMapsToApology(t *testing.T) {
	t.Parallel()

	model := &fakeModel{decideErr: errors.New("provider 500")}
	store := &fakeStore{}
	o := newTestOrchestrator(t, model, store, &fakeCatalog{items: menu()}, nil, nil)
	mustStart(t, o)

	reply, err := o.HandleUserTurn(context.Background(), "hello?")
	if err != nil {
		t.Fatalf("internal failures must not surface as errors: %v", err)
	}
	if reply != GenericApology {
		t.Fatalf("reply = %q, want the generic apology", reply)
	}
	if len(store.errorRecords) != 1 {
		t.Fatalf("error records = %d, want 1", len(store.errorRecords))
	}
	if store.errorRecords[0].CorrelationID == "" {
		t.Error("error record missing correlation id")
	}
	if o.ActiveRole() != contractx.RoleIntentRouter {
		t.Error("failed turn must not change the active role")
	}
}

func TestRoleConstructionFailureKeepsCurrentRole(t *testing.T) {
	t.Parallel()

	model := &fakeModel{}
	model.script(callTool(toolx.ToolIntentOrder, nil))
	store := &fakeStore{}
	// the catalog serves the intent router once, then fails for order taking
	catalog := &fakeCatalog{items: menu(), failAfter: 1}
	o := newTestOrchestrator(t, model, store, catalog, nil, nil)
	mustStart(t, o)

	reply, err := o.HandleUserTurn(context.Background(), "I want to order")
	if err != nil {
		t.Fatalf("HandleUserTurn: %v", err)
	}
	if !strings.Contains(reply, GenericApology) {
		t.Fatalf("reply = %q, want the generic apology", reply)
	}
	if o.ActiveRole() != contractx.RoleIntentRouter {
		t.Fatalf("active role = %s, want unchanged intent router", o.ActiveRole())
	}
	if len(store.errorRecords) != 1 {
		t.Fatalf("error records = %d, want 1", len(store.errorRecords))
	}
}

func TestUserTurnHookLooksUpSpokenPhone(t *testing.T) {
	t.Parallel()

	model := &fakeModel{}
	model.script(say("Thanks, I found your account."))
	store := &fakeStore{history: contractx.CustomerHistory{
		Name:        "Maria Garcia",
		PriorOrders: []contractx.PriorOrder{{OrderID: "o1", Total: 18.00}},
	}}
	o := newTestOrchestrator(t, model, store, &fakeCatalog{items: menu()}, nil, nil)
	mustStart(t, o)

	if _, err := o.HandleUserTurn(context.Background(), "My number is 555-123-4567"); err != nil {
		t.Fatalf("HandleUserTurn: %v", err)
	}

	if len(store.lookups) != 1 || store.lookups[0] != "+15551234567" {
		t.Fatalf("lookups = %v, want one normalized lookup", store.lookups)
	}
	if o.Session().CustomerName != "Maria Garcia" {
		t.Errorf("history not merged, name = %q", o.Session().CustomerName)
	}

	var enriched bool
	for _, e := range o.active.Transcript {
		if strings.HasPrefix(e.Content, "Customer information found:") {
			enriched = true
		}
	}
	if !enriched {
		t.Fatal("turn hook must add the lookup note to the transcript")
	}
}

func TestUserTurnHookLookupFailureIsSilent(t *testing.T) {
	t.Parallel()

	model := &fakeModel{}
	model.script(say("Could you repeat that?"))
	store := &fakeStore{lookupErr: errors.New("store down")}
	o := newTestOrchestrator(t, model, store, &fakeCatalog{items: menu()}, nil, nil)
	mustStart(t, o)

	reply, err := o.HandleUserTurn(context.Background(), "it's 555-123-4567")
	if err != nil {
		t.Fatalf("HandleUserTurn: %v", err)
	}
	if reply != "Could you repeat that?" {
		t.Fatalf("reply = %q, lookup failure must not derail the turn", reply)
	}
}

func TestToolRoundCapFallsBackToReply(t *testing.T) {
	t.Parallel()

	model := &fakeModel{}
	for i := 0; i < maxToolRounds+2; i++ {
		model.script(callTool(toolx.ToolCustomerSummary, nil))
	}
	o := newTestOrchestrator(t, model, &fakeStore{}, &fakeCatalog{items: menu()}, nil, nil)
	mustStart(t, o)

	reply, err := o.HandleUserTurn(context.Background(), "hello")
	if err != nil {
		t.Fatalf("HandleUserTurn: %v", err)
	}
	if reply == "" {
		t.Fatal("round cap must still produce a spoken reply")
	}
	if model.decideCalls != maxToolRounds {
		t.Fatalf("decide calls = %d, want capped at %d", model.decideCalls, maxToolRounds)
	}
}

func TestCoffeeOrderEndToEnd(t *testing.T) {
	t.Parallel()

	model := &fakeModel{}
	store := &fakeStore{}
	metadata := &fakeMetadata{}
	o := newTestOrchestrator(t, model, store, &fakeCatalog{items: menu()}, metadata, nil)
	mustStart(t, o)

	turn := func(utterance, wantReply string) {
		t.Helper()
		reply, err := o.HandleUserTurn(context.Background(), utterance)
		if err != nil {
			t.Fatalf("turn %q: %v", utterance, err)
		}
		if wantReply != "" && reply != wantReply {
			t.Fatalf("turn %q reply = %q, want %q", utterance, reply, wantReply)
		}
	}

	model.script(callTool(toolx.ToolIntentOrder, nil))
	turn("I'd like to order two lattes", "Let me transfer you. Hello from order_taking")
	if o.ActiveRole() != contractx.RoleOrderTaking {
		t.Fatalf("active role = %s", o.ActiveRole())
	}

	model.script(
		callTool(toolx.ToolAddItem, map[string]any{"item": "Latte", "quantity": float64(2)}),
		say("Two lattes, got it. Can I get your name and number?"),
	)
	turn("Two lattes please", "Two lattes, got it. Can I get your name and number?")

	model.script(
		callTool(toolx.ToolSetName, map[string]any{"name": "john smith"}),
		callTool(toolx.ToolSetPhone, map[string]any{"phone": "555-123-4567"}),
		say("Thanks John! Ready to confirm?"),
	)
	turn("John Smith, 555-123-4567", "Thanks John! Ready to confirm?")

	model.script(callTool(toolx.ToolFinalizeOrder, nil))
	turn("Yes, that's everything", "Let me transfer you. Hello from confirmation")
	if o.ActiveRole() != contractx.RoleConfirmation {
		t.Fatalf("active role = %s", o.ActiveRole())
	}

	model.script(
		callTool(toolx.ToolConfirmOrder, nil),
		callTool(toolx.ToolEndCall, nil),
	)
	turn("Yes, confirm it", "Hello from end_call")

	if !o.Done() {
		t.Fatal("conversation must be done after end call")
	}
	if len(store.orders) != 1 {
		t.Fatalf("orders committed = %d, want 1", len(store.orders))
	}
	order := store.orders[0]
	if order.CustomerName != "John Smith" || order.CustomerPhone != "+15551234567" {
		t.Errorf("order identity = %q %q", order.CustomerName, order.CustomerPhone)
	}
	if order.TotalAmount != 9.00 {
		t.Errorf("order total = %v, want 9.00 from catalog prices", order.TotalAmount)
	}
	if len(metadata.closed) != 1 {
		t.Errorf("sessions closed = %d, want 1", len(metadata.closed))
	}

	// further turns get the fixed farewell, not model calls
	decideBefore := model.decideCalls
	turn("hello?", "Thank you for your time, have a wonderful day.")
	if model.decideCalls != decideBefore {
		t.Error("turns after completion must not invoke the model")
	}
}

func TestCommitFailureStaysInConfirmation(t *testing.T) {
	t.Parallel()

	model := &fakeModel{}
	store := &fakeStore{commitErr: errors.New("db down")}
	o := newTestOrchestrator(t, model, store, &fakeCatalog{items: menu()}, nil, nil)
	mustStart(t, o)

	// reach confirmation with a complete draft
	sess := o.Session()
	sess.SetName("John Smith")
	sess.SetPhone("5551234567")
	if err := sess.AddItem(statex.LineItem{Name: "Latte", Quantity: 1}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	model.script(callTool(toolx.ToolIntentOrder, nil))
	if _, err := o.HandleUserTurn(context.Background(), "order please"); err != nil {
		t.Fatalf("handoff turn: %v", err)
	}
	model.script(callTool(toolx.ToolFinalizeOrder, nil))
	if _, err := o.HandleUserTurn(context.Background(), "that's all"); err != nil {
		t.Fatalf("finalize turn: %v", err)
	}

	model.script(
		callTool(toolx.ToolConfirmOrder, nil),
		say("Sorry about that, shall we try again?"),
	)
	reply, err := o.HandleUserTurn(context.Background(), "confirm it")
	if err != nil {
		t.Fatalf("HandleUserTurn: %v", err)
	}
	if reply != "Sorry about that, shall we try again?" {
		t.Fatalf("reply = %q", reply)
	}
	if o.ActiveRole() != contractx.RoleConfirmation {
		t.Fatalf("active role = %s, want confirmation retained for retry", o.ActiveRole())
	}
	if len(store.orders) != 0 {
		t.Fatal("failed commit must not record an order")
	}
	if len(store.errorRecords) == 0 {
		t.Fatal("failed commit must record an error row")
	}
}
