package contract

import (
	"context"

	transcriptx "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/transcript"
)

// VoiceModel is the speech/LLM collaborator. It consumes a system directive
// plus the role's transcript and produces either an utterance or a tool call.
type VoiceModel interface {
	// Decide lets the model act on the conversation so far: it returns a
	// spoken reply, or a decision to invoke one of the offered tools. The
	// role tag selects per-role model overrides.
	Decide(ctx context.Context, role RoleTag, directive string, entries []transcriptx.Entry, tools []ToolSpec) (ModelAction, error)

	// GenerateUtterance produces one spoken line following the given
	// instructions (greetings, handoff announcements, confirmations).
	GenerateUtterance(ctx context.Context, role RoleTag, directive string, entries []transcriptx.Entry, instructions string) (string, error)
}

// CustomerStore is the persistent store collaborator. Commits are idempotent
// by the caller-supplied order/reservation id and are single atomic writes.
type CustomerStore interface {
	// LookupCustomer returns the history snapshot for a normalized phone.
	// An unknown customer yields an empty snapshot, not an error.
	LookupCustomer(ctx context.Context, phone string) (CustomerHistory, error)

	CommitOrder(ctx context.Context, order Order) error
	CommitReservation(ctx context.Context, res Reservation) error

	// LogError is best-effort; failures are swallowed by the implementation.
	LogError(ctx context.Context, rec ErrorRecord)
}

// Catalog lists the menu used to render role directives and resolve prices.
type Catalog interface {
	ListAvailableItems(ctx context.Context) ([]MenuItem, error)
}

// SessionMetadata tags the live call/room with the active role name.
// Failures are logged by the caller and never fatal.
type SessionMetadata interface {
	TagActiveRole(ctx context.Context, sessionID string, roleName string) error
	CloseSession(ctx context.Context, sessionID string) error
}
