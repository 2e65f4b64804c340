package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	transcriptx "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/transcript"
)

var (
	ErrSnapshotNotFound = errors.New("session snapshot not found")
	ErrNilSnapshot      = errors.New("session snapshot is nil")
	ErrInvalidSession   = errors.New("session id is empty")
)

const (
	defaultSnapshotKeyPrefix = "voxtable:session:"
	defaultSnapshotTTL       = 24 * time.Hour
	maxResponseSizeBytes     = 2 << 20
)

// Snapshot is what gets persisted between turns: the session record, the
// active role name and the merged transcript so far.
type Snapshot struct {
	Session    *SessionState       `json:"session"`
	ActiveRole string              `json:"active_role"`
	Transcript []transcriptx.Entry `json:"transcript,omitempty"`
	SavedAt    time.Time           `json:"saved_at"`
}

// SnapshotStore is the persistence contract used by the orchestrator's
// per-turn hook. Persistence is best-effort; a failed save never fails a turn.
type SnapshotStore interface {
	Save(ctx context.Context, snap *Snapshot) error
	Load(ctx context.Context, sessionID string) (*Snapshot, error)
	Delete(ctx context.Context, sessionID string) error
}

// SnapshotOption customizes UpstashSnapshotStore.
type SnapshotOption func(*UpstashSnapshotStore)

func WithKeyPrefix(prefix string) SnapshotOption {
	return func(s *UpstashSnapshotStore) {
		trimmed := strings.TrimSpace(prefix)
		if trimmed != "" {
			s.keyPrefix = trimmed
		}
	}
}

func WithTTL(ttl time.Duration) SnapshotOption {
	return func(s *UpstashSnapshotStore) {
		s.ttl = ttl
	}
}

func WithHTTPClient(client *http.Client) SnapshotOption {
	return func(s *UpstashSnapshotStore) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// UpstashSnapshotStore persists snapshots in Upstash Redis via REST.
type UpstashSnapshotStore struct {
	baseURL    string
	token      string
	httpClient *http.Client
	keyPrefix  string
	ttl        time.Duration
}

type redisRESTResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

type UpstashConfig struct {
	URL     string        `envconfig:"URL" split_words:"true" required:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

func NewUpstashSnapshotStore(cfg UpstashConfig, opts ...SnapshotOption) (*UpstashSnapshotStore, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid redis rest url: %w", err)
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	store := &UpstashSnapshotStore{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		keyPrefix:  defaultSnapshotKeyPrefix,
		ttl:        defaultSnapshotTTL,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}

	if store.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}

	return store, nil
}

func (s *UpstashSnapshotStore) Save(ctx context.Context, snap *Snapshot) error {
	if snap == nil || snap.Session == nil {
		return ErrNilSnapshot
	}

	key, err := s.redisKey(snap.Session.SessionID)
	if err != nil {
		return err
	}

	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now().UTC()
	} else {
		snap.SavedAt = snap.SavedAt.UTC()
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal session snapshot: %w", err)
	}

	cmd := []any{"SET", key, string(payload)}
	if s.ttl > 0 {
		cmd = append(cmd, "EX", ttlSeconds(s.ttl))
	}

	_, err = s.exec(ctx, cmd)
	return err
}

func (s *UpstashSnapshotStore) Load(ctx context.Context, sessionID string) (*Snapshot, error) {
	key, err := s.redisKey(sessionID)
	if err != nil {
		return nil, err
	}

	resp, err := s.exec(ctx, []any{"GET", key})
	if err != nil {
		return nil, err
	}

	result := bytes.TrimSpace(resp.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return nil, ErrSnapshotNotFound
	}

	var encoded string
	if err := json.Unmarshal(result, &encoded); err != nil {
		return nil, fmt.Errorf("decode snapshot payload: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(encoded), &snap); err != nil {
		return nil, fmt.Errorf("unmarshal session snapshot: %w", err)
	}
	if snap.Session == nil {
		return nil, fmt.Errorf("snapshot loaded from store has no session")
	}

	return &snap, nil
}

func (s *UpstashSnapshotStore) Delete(ctx context.Context, sessionID string) error {
	key, err := s.redisKey(sessionID)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, []any{"DEL", key})
	return err
}

func (s *UpstashSnapshotStore) redisKey(sessionID string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", ErrInvalidSession
	}
	return strings.TrimSpace(s.keyPrefix) + sessionID, nil
}

func (s *UpstashSnapshotStore) exec(ctx context.Context, command []any) (*redisRESTResponse, error) {
	if s == nil {
		return nil, errors.New("nil snapshot store")
	}
	if len(command) == 0 {
		return nil, errors.New("empty redis command")
	}

	body, err := json.Marshal(command)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute redis request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read redis response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("redis http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed redisRESTResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode redis response: %w", err)
	}
	if parsed.Error != "" {
		return nil, errors.New(parsed.Error)
	}
	return &parsed, nil
}

func ttlSeconds(ttl time.Duration) int64 {
	seconds := ttl / time.Second
	if ttl%time.Second != 0 {
		seconds++
	}
	if seconds <= 0 {
		return 1
	}
	return int64(seconds)
}
