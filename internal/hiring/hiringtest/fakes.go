// Package hiringtest provides in-memory fakes of the hiring ports for tests.
package hiringtest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"hiring_assistant_backend/internal/hiring/domain"
	"hiring_assistant_backend/internal/hiring/ports"
)

// ErrUnavailable is returned by fakes configured to fail.
var ErrUnavailable = errors.New("collaborator unavailable")

// Message is a message recorded by Backend.PostMessage.
type Message struct {
	SessionID string
	Text      string
	Creator   string
	CreatedAt time.Time
}

// Backend is a BackendStore that records every call.
type Backend struct {
	mu sync.Mutex

	Created  []ports.CandidateFields
	Patches  map[string][]ports.CandidateFields
	Updates  map[string][]ports.SessionUpdate
	Messages []Message
	Sessions map[string]*ports.SessionRecord

	FailCreate bool
	FailPatch  bool
	FailGet    bool
	FailUpdate bool
	FailPost   bool

	nextID int
}

// NewBackend creates an empty fake backend.
func NewBackend() *Backend {
	return &Backend{
		Patches:  make(map[string][]ports.CandidateFields),
		Updates:  make(map[string][]ports.SessionUpdate),
		Sessions: make(map[string]*ports.SessionRecord),
	}
}

func (b *Backend) CreateCandidate(_ context.Context, fields ports.CandidateFields) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailCreate {
		return "", ErrUnavailable
	}
	b.nextID++
	b.Created = append(b.Created, fields)
	return fmt.Sprintf("cand-%d", b.nextID), nil
}

func (b *Backend) PatchCandidate(_ context.Context, candidateID string, fields ports.CandidateFields) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailPatch {
		return ErrUnavailable
	}
	b.Patches[candidateID] = append(b.Patches[candidateID], fields)
	return nil
}

func (b *Backend) GetSession(_ context.Context, sessionID string) (*ports.SessionRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailGet {
		return nil, ErrUnavailable
	}
	rec, ok := b.Sessions[sessionID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (b *Backend) UpdateSession(_ context.Context, sessionID string, update ports.SessionUpdate) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailUpdate {
		return ErrUnavailable
	}
	b.Updates[sessionID] = append(b.Updates[sessionID], update)
	return nil
}

func (b *Backend) PostMessage(_ context.Context, sessionID string, msg ports.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailPost {
		return ErrUnavailable
	}
	b.Messages = append(b.Messages, Message{SessionID: sessionID, Text: msg.Text, Creator: msg.Creator, CreatedAt: msg.CreatedAt})
	return nil
}

// CreateCount returns the number of successful CreateCandidate calls.
func (b *Backend) CreateCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Created)
}

// PatchCount returns the number of PatchCandidate calls for candidateID.
func (b *Backend) PatchCount(candidateID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Patches[candidateID])
}

// UpdateCount returns the number of UpdateSession calls for sessionID.
func (b *Backend) UpdateCount(sessionID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Updates[sessionID])
}

// MessageCount returns the number of posted messages.
func (b *Backend) MessageCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Messages)
}

// Codes is a CodeProvider that accepts a fixed code.
type Codes struct {
	mu sync.Mutex

	ValidCode string
	FailSend  bool
	Sent      []string

	nextUser int
}

// NewCodes creates a provider accepting validCode.
func NewCodes(validCode string) *Codes {
	return &Codes{ValidCode: validCode}
}

func (c *Codes) SendCode(_ context.Context, channel, contactValue string) (ports.SentCode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailSend {
		return ports.SentCode{}, ErrUnavailable
	}
	c.nextUser++
	c.Sent = append(c.Sent, channel+":"+contactValue)
	return ports.SentCode{UserID: fmt.Sprintf("user-%d", c.nextUser), Code: c.ValidCode}, nil
}

func (c *Codes) ValidateCode(_ context.Context, userID, code string) (bool, error) {
	return userID != "" && code == c.ValidCode, nil
}

// SendCount returns the number of codes sent.
func (c *Codes) SendCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Sent)
}

// Reports is a ReportGenerator returning a fixed score.
type Reports struct {
	mu sync.Mutex

	FitScore float64
	Fail     bool
	Calls    int
}

func (r *Reports) Generate(_ context.Context, sessionID string, _ *domain.Session) (ports.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls++
	if r.Fail {
		return ports.Report{}, ErrUnavailable
	}
	return ports.Report{
		Path:           "reports/" + sessionID + ".json",
		FitScore:       r.FitScore,
		ProfileSummary: "summary for " + sessionID,
	}, nil
}

// Reasoner is a scripted Reasoner. OnProcess, when set, runs against the
// session as the real reasoner's tools would.
type Reasoner struct {
	mu sync.Mutex

	Replies   []string
	Fail      bool
	OnProcess func(s *domain.Session, userText string)
	Prompts   []string
}

func (r *Reasoner) Process(_ context.Context, s *domain.Session, userText string) ([]string, error) {
	r.mu.Lock()
	r.Prompts = append(r.Prompts, userText)
	hook := r.OnProcess
	fail := r.Fail
	r.mu.Unlock()

	if fail {
		return nil, ErrUnavailable
	}
	if hook != nil {
		hook(s, userText)
	}
	return append([]string(nil), r.Replies...), nil
}

// Calls returns the number of Process calls.
func (r *Reasoner) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Prompts)
}
