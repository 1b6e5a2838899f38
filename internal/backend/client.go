// Package backend provides the REST client for the external record store
// that holds candidates, session records and session messages.
package backend

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

	"hiring_assistant_backend/internal/hiring/ports"
	"hiring_assistant_backend/platform/config"
	"hiring_assistant_backend/platform/logger"

	"golang.org/x/time/rate"
)

const (
	defaultRequestsPerSecond = 20.0
	maxErrorBody             = 512
)

// ErrEmptyID is returned when the store answers a create without an id.
var ErrEmptyID = errors.New("backend returned empty id")

// Client is a ports.BackendStore over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Logger
}

// New creates a new backend client.
func New(cfg config.BackendConfig, log *logger.Logger) *Client {
	rps := cfg.GetBackendRateLimit()
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.GetBackendBaseURL(), "/"),
		apiKey:     cfg.GetBackendAPIKey(),
		httpClient: &http.Client{Timeout: cfg.GetExternalCallTimeout()},
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		log:        log,
	}
}

type createCandidateResponse struct {
	ID string `json:"id"`
}

type messageRequest struct {
	Text      string    `json:"text"`
	Creator   string    `json:"creator"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateCandidate creates a candidate record and returns its id.
func (c *Client) CreateCandidate(ctx context.Context, fields ports.CandidateFields) (string, error) {
	var out createCandidateResponse
	if _, err := c.do(ctx, http.MethodPost, "/candidates", fields, &out); err != nil {
		return "", fmt.Errorf("create candidate: %w", err)
	}
	if out.ID == "" {
		return "", ErrEmptyID
	}
	return out.ID, nil
}

// PatchCandidate updates the non-empty fields of a candidate.
func (c *Client) PatchCandidate(ctx context.Context, candidateID string, fields ports.CandidateFields) error {
	if _, err := c.do(ctx, http.MethodPatch, "/candidates/"+url.PathEscape(candidateID), fields, nil); err != nil {
		return fmt.Errorf("patch candidate: %w", err)
	}
	return nil
}

// GetSession returns the store's copy of a session, or nil when it has none.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*ports.SessionRecord, error) {
	var out ports.SessionRecord
	status, err := c.do(ctx, http.MethodGet, "/sessions/"+url.PathEscape(sessionID), nil, &out)
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if out.ID == "" {
		out.ID = sessionID
	}
	return &out, nil
}

// UpdateSession writes status fields to the session record.
func (c *Client) UpdateSession(ctx context.Context, sessionID string, update ports.SessionUpdate) error {
	if _, err := c.do(ctx, http.MethodPatch, "/sessions/"+url.PathEscape(sessionID), update, nil); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// PostMessage appends a message to the session's message log.
func (c *Client) PostMessage(ctx context.Context, sessionID string, msg ports.Message) error {
	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	body := messageRequest{Text: msg.Text, Creator: msg.Creator, CreatedAt: createdAt.UTC()}
	if _, err := c.do(ctx, http.MethodPost, "/sessions/"+url.PathEscape(sessionID)+"/messages", body, nil); err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	return nil
}

// Ping checks that the store answers.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/health", nil, nil)
	return err
}

// do sends one request and decodes a JSON answer into out when non-nil.
// The status code is returned even when err is set.
func (c *Client) do(ctx context.Context, method, path string, in, out any) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit wait: %w", err)
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if resp.StatusCode != http.StatusNotFound {
			c.log.Warn("backend request failed", "method", method, "path", path, "status", resp.StatusCode)
		}
		return resp.StatusCode, fmt.Errorf("backend returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

var _ ports.BackendStore = (*Client)(nil)
