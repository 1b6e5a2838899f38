// Package events provides domain event definitions for the hiring module.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"hiring_assistant_backend/platform/events"
	"hiring_assistant_backend/platform/logger"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Ordered     = events.Ordered
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var (
	NewBaseEvent = events.NewBaseEvent
	BaseEventAt  = events.BaseEventAt
)

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// =============================================================================
// Hiring Domain Events
// =============================================================================

// SessionEvent is an event about one session. Events of a session are
// delivered in publish order.
type SessionEvent interface {
	Ordered
	// AuditSessionID is the id the backend knows the session by.
	AuditSessionID() string
}

func auditSessionID(sessionID, backendSessionID string) string {
	if backendSessionID != "" {
		return backendSessionID
	}
	return sessionID
}

// StageAdvanced is published for every stage transition of a session.
type StageAdvanced struct {
	BaseEvent
	SessionID        string `json:"sessionId"`
	BackendSessionID string `json:"backendSessionId"`
	From             string `json:"from"`
	To               string `json:"to"`
}

func (e StageAdvanced) EventName() string      { return "hiring.stage.advanced" }
func (e StageAdvanced) OrderingKey() string    { return e.SessionID }
func (e StageAdvanced) AuditSessionID() string { return auditSessionID(e.SessionID, e.BackendSessionID) }

// CandidateCreated is published once per session when the backend record exists.
type CandidateCreated struct {
	BaseEvent
	SessionID   string `json:"sessionId"`
	CandidateID string `json:"candidateId"`
	Trigger     string `json:"trigger"`
}

func (e CandidateCreated) EventName() string   { return "hiring.candidate.created" }
func (e CandidateCreated) OrderingKey() string { return e.SessionID }

// VerificationReset is published when a contact correction voids a channel's verification.
type VerificationReset struct {
	BaseEvent
	SessionID        string `json:"sessionId"`
	BackendSessionID string `json:"backendSessionId"`
	Channel          string `json:"channel"`
}

func (e VerificationReset) EventName() string   { return "hiring.verification.reset" }
func (e VerificationReset) OrderingKey() string { return e.SessionID }
func (e VerificationReset) AuditSessionID() string {
	return auditSessionID(e.SessionID, e.BackendSessionID)
}

// ChatTurnCompleted is published after the reasoner answered a user message.
// The event time is when the replies were produced; UserAt is when the user
// message arrived, before any event the turn itself raised.
type ChatTurnCompleted struct {
	BaseEvent
	SessionID        string    `json:"sessionId"`
	BackendSessionID string    `json:"backendSessionId"`
	UserText         string    `json:"userText"`
	UserAt           time.Time `json:"userAt"`
	Replies          []string  `json:"replies"`
}

func (e ChatTurnCompleted) EventName() string   { return "hiring.chat.turn_completed" }
func (e ChatTurnCompleted) OrderingKey() string { return e.SessionID }
func (e ChatTurnCompleted) AuditSessionID() string {
	return auditSessionID(e.SessionID, e.BackendSessionID)
}

// SessionConcluded is published exactly once per session.
type SessionConcluded struct {
	BaseEvent
	SessionID        string  `json:"sessionId"`
	BackendSessionID string  `json:"backendSessionId"`
	FinalStatus      string  `json:"finalStatus"`
	Reason           string  `json:"reason"`
	CandidateID      string  `json:"candidateId,omitempty"`
	FitScore         float64 `json:"fitScore"`
}

func (e SessionConcluded) EventName() string   { return "hiring.session.concluded" }
func (e SessionConcluded) OrderingKey() string { return e.SessionID }
func (e SessionConcluded) AuditSessionID() string {
	return auditSessionID(e.SessionID, e.BackendSessionID)
}
