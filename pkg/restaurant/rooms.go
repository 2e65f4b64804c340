// Package restaurant talks to the voice platform's room API: tagging live
// rooms with the active role and closing them when a call ends.
package restaurant

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

	contractx "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/contract"
)

type RoomsConfig struct {
	URL     string        `split_words:"true" required:"true"`
	Token   string        `split_words:"true" required:"true"`
	Timeout time.Duration `split_words:"true" default:"10s"`
}

// RoomsClient implements contract.SessionMetadata against the room API.
type RoomsClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ contractx.SessionMetadata = (*RoomsClient)(nil)

func NewRoomsClient(cfg RoomsConfig) (*RoomsClient, error) {
	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL == "" {
		return nil, errors.New("rooms url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &RoomsClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   strings.TrimSpace(cfg.Token),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func MustNewRoomsClient(cfg RoomsConfig) *RoomsClient {
	client, err := NewRoomsClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

// TagActiveRole writes the active role name into the room's metadata so
// dashboards and transfer targets can see who is speaking.
func (c *RoomsClient) TagActiveRole(ctx context.Context, sessionID string, roleName string) error {
	payload := map[string]any{
		"metadata": map[string]string{"active_role": roleName},
	}
	return c.post(ctx, fmt.Sprintf("/v1/rooms/%s/metadata", url.PathEscape(sessionID)), payload)
}

// CloseSession ends the room on the platform side.
func (c *RoomsClient) CloseSession(ctx context.Context, sessionID string) error {
	return c.post(ctx, fmt.Sprintf("/v1/rooms/%s/close", url.PathEscape(sessionID)), nil)
}

func (c *RoomsClient) post(ctx context.Context, path string, payload any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode room request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("room request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("room request %s: unexpected status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}
