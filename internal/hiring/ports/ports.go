// Package ports defines the contracts the hiring core consumes.
// Adapters (REST backend, Postgres store, code providers, report generator,
// ADK reasoner) implement these; the core never sees their wire formats.
package ports

import (
	"context"
	"time"

	"hiring_assistant_backend/internal/hiring/domain"
)

// Message creators for BackendStore.PostMessage.
const (
	CreatorUser      = "user"
	CreatorAssistant = "assistant"
	CreatorSystem    = "system"
)

// CandidateFields is the payload for creating or patching a candidate.
// Nil pointers are left untouched on patch.
type CandidateFields struct {
	SessionID      string   `json:"sessionId,omitempty"`
	JobID          string   `json:"jobId,omitempty"`
	CompanyID      string   `json:"companyId,omitempty"`
	FullName       string   `json:"fullName,omitempty"`
	Email          string   `json:"email,omitempty"`
	PhoneNumber    string   `json:"phoneNumber,omitempty"`
	Age            *int     `json:"age,omitempty"`
	FitScore       *float64 `json:"fitScore,omitempty"`
	ProfileSummary *string  `json:"profileSummary,omitempty"`
	ReportPath     *string  `json:"reportPath,omitempty"`
	Status         string   `json:"status,omitempty"`
}

// SessionRecord is the narrow view of the backend's copy of a session.
// Only the fields the core reads are kept.
type SessionRecord struct {
	ID          string `json:"id"`
	CandidateID string `json:"candidateId,omitempty"`
	FullName    string `json:"fullName,omitempty"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Status      string `json:"status,omitempty"`
}

// SessionUpdate is written to the backend session record.
type SessionUpdate struct {
	Status      string     `json:"status,omitempty"`
	CandidateID string     `json:"candidateId,omitempty"`
	Stage       string     `json:"stage,omitempty"`
	ConcludedAt *time.Time `json:"concludedAt,omitempty"`
	Reason      string     `json:"reason,omitempty"`
}

// Message is one entry of a session's message log. A zero CreatedAt is
// stamped by the store on write. Logs are ordered by CreatedAt.
type Message struct {
	Text      string
	Creator   string
	CreatedAt time.Time
}

// BackendStore is the external record store.
type BackendStore interface {
	CreateCandidate(ctx context.Context, fields CandidateFields) (string, error)
	PatchCandidate(ctx context.Context, candidateID string, fields CandidateFields) error
	// GetSession returns nil, nil when the backend has no such session.
	GetSession(ctx context.Context, sessionID string) (*SessionRecord, error)
	UpdateSession(ctx context.Context, sessionID string, update SessionUpdate) error
	PostMessage(ctx context.Context, sessionID string, msg Message) error
}

// SentCode is the provider's answer to a send request.
type SentCode struct {
	UserID string
	Code   string
}

// CodeProvider delivers and checks one-time verification codes.
type CodeProvider interface {
	SendCode(ctx context.Context, channel, contactValue string) (SentCode, error)
	ValidateCode(ctx context.Context, userID, code string) (bool, error)
}

// Report is the generated fit report of a session.
type Report struct {
	Path           string
	FitScore       float64
	ProfileSummary string
}

// ReportGenerator builds the final report for a session. snapshot is a copy
// of the session taken under its lock.
type ReportGenerator interface {
	Generate(ctx context.Context, sessionID string, snapshot *domain.Session) (Report, error)
}

// Reasoner is the conversational agent. Process returns the replies to show
// the user. The caller holds the session lock; tools invoked by the reasoner
// mutate s directly.
type Reasoner interface {
	Process(ctx context.Context, s *domain.Session, userText string) ([]string, error)
}

// HistoryEntry is one conversation turn.
type HistoryEntry struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryStore keeps the conversation transcript of each session.
type HistoryStore interface {
	Append(ctx context.Context, sessionID string, entry HistoryEntry) error
	List(ctx context.Context, sessionID string) ([]HistoryEntry, error)
	Delete(ctx context.Context, sessionID string) error
}
