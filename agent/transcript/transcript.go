// Package transcript holds the ordered per-role conversation history and the
// truncate/merge algorithm used when handing off between roles.
package transcript

import "github.com/google/uuid"

type EntryType string

const (
	EntryMessage    EntryType = "message"
	EntryToolCall   EntryType = "tool_call"
	EntryToolResult EntryType = "tool_result"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Entry is one turn artifact. Identity is the ID; Merge deduplicates by it.
type Entry struct {
	ID      string    `json:"id"`
	Type    EntryType `json:"type"`
	Role    string    `json:"role,omitempty"`
	Tool    string    `json:"tool,omitempty"`
	Content string    `json:"content"`
}

func (e Entry) isToolArtifact() bool {
	return e.Type == EntryToolCall || e.Type == EntryToolResult
}

func NewMessage(role, content string) Entry {
	return Entry{
		ID:      uuid.NewString(),
		Type:    EntryMessage,
		Role:    role,
		Content: content,
	}
}

func NewToolCall(tool, content string) Entry {
	return Entry{
		ID:      uuid.NewString(),
		Type:    EntryToolCall,
		Tool:    tool,
		Content: content,
	}
}

func NewToolResult(tool, content string) Entry {
	return Entry{
		ID:      uuid.NewString(),
		Type:    EntryToolResult,
		Tool:    tool,
		Content: content,
	}
}

const DefaultKeepLast = 6

// TruncateOptions controls which entries survive a handoff truncation.
type TruncateOptions struct {
	KeepLast          int
	KeepSystem        bool
	KeepToolArtifacts bool
}

// Truncate keeps the most recent KeepLast eligible entries in chronological
// order. System messages are dropped unless KeepSystem; tool calls/results
// are dropped unless KeepToolArtifacts. The returned window never begins
// mid-tool-exchange: leading tool artifacts are removed.
func Truncate(entries []Entry, opts TruncateOptions) []Entry {
	keepLast := opts.KeepLast
	if keepLast <= 0 {
		keepLast = DefaultKeepLast
	}

	eligible := func(e Entry) bool {
		if !opts.KeepSystem && e.Type == EntryMessage && e.Role == RoleSystem {
			return false
		}
		if !opts.KeepToolArtifacts && e.isToolArtifact() {
			return false
		}
		return true
	}

	kept := make([]Entry, 0, keepLast)
	for i := len(entries) - 1; i >= 0 && len(kept) < keepLast; i-- {
		if eligible(entries[i]) {
			kept = append(kept, entries[i])
		}
	}

	// restore chronological order
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}

	// a handoff must never begin mid-tool-exchange
	for len(kept) > 0 && kept[0].isToolArtifact() {
		kept = kept[1:]
	}

	return kept
}

// Merge appends each entry of source, in order, that is not already present
// in target by ID. Target's existing entries and order are unchanged.
func Merge(target, source []Entry) []Entry {
	if len(source) == 0 {
		return target
	}

	seen := make(map[string]struct{}, len(target))
	for _, e := range target {
		seen[e.ID] = struct{}{}
	}

	for _, e := range source {
		if _, ok := seen[e.ID]; ok {
			continue
		}
		target = append(target, e)
		seen[e.ID] = struct{}{}
	}
	return target
}
