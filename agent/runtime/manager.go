// Package runtime tracks the live call sessions of one worker process.
package runtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	orchestratorx "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/orchestrator"
	statex "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/state"
)

var ErrAtCapacity = errors.New("maximum concurrent calls reached")

type Config struct {
	MaxSessions    int           `envconfig:"MAX_SESSIONS" split_words:"true" default:"20"`
	SessionTimeout time.Duration `envconfig:"SESSION_TIMEOUT" split_words:"true" default:"30m"`
}

// CallSession pairs one live call with its orchestrator.
type CallSession struct {
	ID           string
	Orchestrator *orchestratorx.Orchestrator
	CreatedAt    time.Time

	mu           sync.Mutex
	lastActivity time.Time
}

// Respond serializes turns for the call and refreshes its activity clock.
func (cs *CallSession) Respond(ctx context.Context, utterance string) (string, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.lastActivity = time.Now()
	return cs.Orchestrator.HandleUserTurn(ctx, utterance)
}

func (cs *CallSession) LastActivity() time.Time {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.lastActivity
}

// Builder constructs an orchestrator for a new call. The runtime stays
// ignorant of the collaborator wiring behind it.
type Builder func(ctx context.Context, session *statex.SessionState) (*orchestratorx.Orchestrator, error)

// Manager registers active calls against a fixed capacity.
type Manager struct {
	cfg   Config
	build Builder

	mu       sync.RWMutex
	sessions map[string]*CallSession
}

func NewManager(cfg Config, build Builder) (*Manager, error) {
	if build == nil {
		return nil, errors.New("session builder is required")
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 20
	}
	return &Manager{
		cfg:      cfg,
		build:    build,
		sessions: make(map[string]*CallSession),
	}, nil
}

// StartCall registers a new call, builds its orchestrator and returns the
// session together with the opening greeting.
func (m *Manager) StartCall(ctx context.Context, callID, callerNumber string) (*CallSession, string, error) {
	m.mu.Lock()
	if len(m.sessions) >= m.cfg.MaxSessions {
		m.mu.Unlock()
		return nil, "", ErrAtCapacity
	}
	m.mu.Unlock()

	state := statex.New(callID, callerNumber, time.Now())
	orch, err := m.build(ctx, state)
	if err != nil {
		return nil, "", err
	}

	greeting, err := orch.Start(ctx)
	if err != nil {
		return nil, "", err
	}

	now := time.Now()
	cs := &CallSession{
		ID:           state.SessionID,
		Orchestrator: orch,
		CreatedAt:    now,
		lastActivity: now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sessions) >= m.cfg.MaxSessions {
		return nil, "", ErrAtCapacity
	}
	m.sessions[cs.ID] = cs
	return cs, greeting, nil
}

func (m *Manager) GetSession(sessionID string) (*CallSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cs, ok := m.sessions[sessionID]
	return cs, ok
}

func (m *Manager) EndCall(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) ActiveSessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Load reports the worker's utilization in [0, 1], used by the dispatcher
// to steer new calls toward the least loaded worker.
func (m *Manager) Load() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return float64(len(m.sessions)) / float64(m.cfg.MaxSessions)
}

// CleanupInactiveSessions drops calls idle past the session timeout.
func (m *Manager) CleanupInactiveSessions() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for id, cs := range m.sessions {
		if now.Sub(cs.LastActivity()) > m.cfg.SessionTimeout || cs.Orchestrator.Done() {
			delete(m.sessions, id)
			log.Info().Str("session_id", id).Msg("reaped inactive session")
		}
	}
}

// StartCleanupRoutine reaps idle and completed sessions once a minute until
// the context is cancelled.
func (m *Manager) StartCleanupRoutine(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CleanupInactiveSessions()
		}
	}
}
