package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	contractx "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/contract"
	orchestratorx "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/orchestrator"
	statex "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/state"
	transcriptx "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/transcript"
)

type stubModel struct{}

func (stubModel) Decide(ctx context.Context, role contractx.RoleTag, directive string, entries []transcriptx.Entry, tools []contractx.ToolSpec) (contractx.ModelAction, error) {
	return contractx.ModelAction{Utterance: "okay"}, nil
}

func (stubModel) GenerateUtterance(ctx context.Context, role contractx.RoleTag, directive string, entries []transcriptx.Entry, instructions string) (string, error) {
	return "hello", nil
}

type stubStore struct{}

func (stubStore) LookupCustomer(ctx context.Context, phone string) (contractx.CustomerHistory, error) {
	return contractx.CustomerHistory{}, nil
}
func (stubStore) CommitOrder(ctx context.Context, order contractx.Order) error { return nil }

func (stubStore) CommitReservation(ctx context.Context, res contractx.Reservation) error {
	return nil
}

func (stubStore) LogError(ctx context.Context, rec contractx.ErrorRecord) {}

type stubCatalog struct{}

func (stubCatalog) ListAvailableItems(ctx context.Context) ([]contractx.MenuItem, error) {
	return []contractx.MenuItem{{ID: "m1", Name: "Latte", Price: 4.50, Category: "drinks"}}, nil
}

func testBuilder() Builder {
	return func(ctx context.Context, session *statex.SessionState) (*orchestratorx.Orchestrator, error) {
		return orchestratorx.New(stubModel{}, stubStore{}, stubCatalog{}, nil, nil, session, zerolog.Nop())
	}
}

func TestStartCallRegistersSession(t *testing.T) {
	t.Parallel()

	m, err := NewManager(Config{MaxSessions: 2, SessionTimeout: time.Minute}, testBuilder())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	cs, greeting, err := m.StartCall(context.Background(), "call-1", "+15551234567")
	if err != nil {
		t.Fatalf("StartCall: %v", err)
	}
	if greeting != "hello" {
		t.Errorf("greeting = %q", greeting)
	}
	if got, ok := m.GetSession(cs.ID); !ok || got != cs {
		t.Fatal("session not registered")
	}
	if m.ActiveSessionCount() != 1 {
		t.Fatalf("active sessions = %d", m.ActiveSessionCount())
	}

	reply, err := cs.Respond(context.Background(), "hi there")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if reply != "okay" {
		t.Errorf("reply = %q", reply)
	}
}

func TestStartCallAtCapacity(t *testing.T) {
	t.Parallel()

	m, err := NewManager(Config{MaxSessions: 1, SessionTimeout: time.Minute}, testBuilder())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if _, _, err := m.StartCall(context.Background(), "call-1", ""); err != nil {
		t.Fatalf("first StartCall: %v", err)
	}
	if _, _, err := m.StartCall(context.Background(), "call-2", ""); !errors.Is(err, ErrAtCapacity) {
		t.Fatalf("got %v, want ErrAtCapacity", err)
	}
}

func TestLoadAndEndCall(t *testing.T) {
	t.Parallel()

	m, err := NewManager(Config{MaxSessions: 4, SessionTimeout: time.Minute}, testBuilder())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if m.Load() != 0 {
		t.Fatalf("idle load = %v", m.Load())
	}

	cs, _, err := m.StartCall(context.Background(), "call-1", "")
	if err != nil {
		t.Fatalf("StartCall: %v", err)
	}
	if m.Load() != 0.25 {
		t.Fatalf("load = %v, want 0.25", m.Load())
	}

	m.EndCall(cs.ID)
	if m.ActiveSessionCount() != 0 {
		t.Fatal("EndCall must drop the session")
	}
}

func TestCleanupReapsIdleSessions(t *testing.T) {
	t.Parallel()

	m, err := NewManager(Config{MaxSessions: 4, SessionTimeout: 10 * time.Millisecond}, testBuilder())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if _, _, err := m.StartCall(context.Background(), "call-1", ""); err != nil {
		t.Fatalf("StartCall: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	m.CleanupInactiveSessions()
	if m.ActiveSessionCount() != 0 {
		t.Fatal("idle session must be reaped")
	}
}

func TestBuilderFailurePropagates(t *testing.T) {
	t.Parallel()

	failing := func(ctx context.Context, session *statex.SessionState) (*orchestratorx.Orchestrator, error) {
		return nil, errors.New("wiring failed")
	}
	m, err := NewManager(Config{MaxSessions: 1}, failing)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, _, err := m.StartCall(context.Background(), "call-1", ""); err == nil {
		t.Fatal("expected builder error")
	}
	if m.ActiveSessionCount() != 0 {
		t.Fatal("failed start must not leave a session behind")
	}
}
