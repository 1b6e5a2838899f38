// Package verifycode provides the one-time code providers used to verify
// applicants' email addresses and phone numbers.
package verifycode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"hiring_assistant_backend/internal/hiring/ports"
	"hiring_assistant_backend/platform/config"
	"hiring_assistant_backend/platform/logger"
)

// ErrUnsupportedChannel is returned for channels a provider cannot deliver to.
var ErrUnsupportedChannel = errors.New("unsupported verification channel")

// RESTProvider delegates code delivery and checks to an external service.
type RESTProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *logger.Logger
}

// NewRESTProvider creates a provider for the configured service.
func NewRESTProvider(cfg config.VerificationConfig, log *logger.Logger) *RESTProvider {
	return &RESTProvider{
		baseURL:    strings.TrimRight(cfg.GetVerifyBaseURL(), "/"),
		apiKey:     cfg.GetVerifyAPIKey(),
		httpClient: &http.Client{Timeout: cfg.GetExternalCallTimeout()},
		log:        log,
	}
}

type sendRequest struct {
	Channel string `json:"channel"`
	Contact string `json:"contact"`
}

type sendResponse struct {
	UserID string `json:"userId"`
	Code   string `json:"code,omitempty"`
}

type validateRequest struct {
	UserID string `json:"userId"`
	Code   string `json:"code"`
}

type validateResponse struct {
	Valid bool `json:"valid"`
}

// SendCode asks the service to deliver a code to contactValue.
func (p *RESTProvider) SendCode(ctx context.Context, channel, contactValue string) (ports.SentCode, error) {
	if channel != "email" && channel != "phone" {
		return ports.SentCode{}, ErrUnsupportedChannel
	}
	var out sendResponse
	if err := p.post(ctx, "/codes/send", sendRequest{Channel: channel, Contact: contactValue}, &out); err != nil {
		return ports.SentCode{}, fmt.Errorf("send code: %w", err)
	}
	if out.UserID == "" {
		return ports.SentCode{}, errors.New("send code: provider returned no user id")
	}
	return ports.SentCode{UserID: out.UserID, Code: out.Code}, nil
}

// ValidateCode checks code for the user the code was sent to.
func (p *RESTProvider) ValidateCode(ctx context.Context, userID, code string) (bool, error) {
	var out validateResponse
	if err := p.post(ctx, "/codes/validate", validateRequest{UserID: userID, Code: code}, &out); err != nil {
		return false, fmt.Errorf("validate code: %w", err)
	}
	return out.Valid, nil
}

func (p *RESTProvider) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		p.log.Warn("verification provider request failed", "path", path, "status", resp.StatusCode)
		return fmt.Errorf("provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

var _ ports.CodeProvider = (*RESTProvider)(nil)
