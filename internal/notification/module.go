// Package notification subscribes to hiring events and mirrors them to the
// backend record store as session messages. Concluded sessions with a
// candidate also get a recruiter follow-up task.
package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hiring_assistant_backend/internal/events"
	"hiring_assistant_backend/internal/hiring/ports"
	"hiring_assistant_backend/internal/scheduler"
	"hiring_assistant_backend/platform/logger"
)

const defaultFollowUpDelay = 24 * time.Hour

// Module handles hiring events.
type Module struct {
	backend       ports.BackendStore
	followUps     scheduler.FollowUpScheduler
	followUpDelay time.Duration
	log           *logger.Logger
	now           func() time.Time
}

// New creates the module. followUps may be nil, which disables recruiter
// follow-up tasks.
func New(backend ports.BackendStore, followUps scheduler.FollowUpScheduler, followUpDelay time.Duration, log *logger.Logger) *Module {
	if followUpDelay <= 0 {
		followUpDelay = defaultFollowUpDelay
	}
	return &Module{
		backend:       backend,
		followUps:     followUps,
		followUpDelay: followUpDelay,
		log:           log,
		now:           time.Now,
	}
}

// RegisterHandlers subscribes the module to the events it handles.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.StageAdvanced{}.EventName(), m)
	bus.Subscribe(events.ChatTurnCompleted{}.EventName(), m)
	bus.Subscribe(events.VerificationReset{}.EventName(), m)
	bus.Subscribe(events.SessionConcluded{}.EventName(), m)
}

// Handle implements events.Handler.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.StageAdvanced:
		return m.handleStageAdvanced(ctx, e)
	case events.ChatTurnCompleted:
		return m.handleChatTurnCompleted(ctx, e)
	case events.VerificationReset:
		return m.handleVerificationReset(ctx, e)
	case events.SessionConcluded:
		return m.handleSessionConcluded(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleStageAdvanced(ctx context.Context, e events.StageAdvanced) error {
	text := fmt.Sprintf("Stage advanced from %s to %s.", e.From, e.To)
	return m.post(ctx, e, text, ports.CreatorSystem, e.OccurredAt())
}

// handleChatTurnCompleted logs the user message at the time it arrived, so
// it sorts before anything the turn raised. Replies follow the event time in
// reply order.
func (m *Module) handleChatTurnCompleted(ctx context.Context, e events.ChatTurnCompleted) error {
	userAt := e.UserAt
	if userAt.IsZero() {
		userAt = e.OccurredAt()
	}
	if err := m.post(ctx, e, e.UserText, ports.CreatorUser, userAt); err != nil {
		return err
	}
	step := 0
	for _, reply := range e.Replies {
		if strings.TrimSpace(reply) == "" {
			continue
		}
		step++
		if err := m.post(ctx, e, reply, ports.CreatorAssistant, offset(e.OccurredAt(), step)); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) handleVerificationReset(ctx context.Context, e events.VerificationReset) error {
	text := fmt.Sprintf("Contact %s changed; verification of that channel was reset.", e.Channel)
	return m.post(ctx, e, text, ports.CreatorSystem, e.OccurredAt())
}

func (m *Module) handleSessionConcluded(ctx context.Context, e events.SessionConcluded) error {
	text := fmt.Sprintf("Session concluded with status %q (%s).", e.FinalStatus, e.Reason)
	if e.CandidateID != "" {
		text += fmt.Sprintf(" Candidate %s, fit score %.1f.", e.CandidateID, e.FitScore)
	}
	postErr := m.post(ctx, e, text, ports.CreatorSystem, e.OccurredAt())

	if e.CandidateID == "" || m.followUps == nil {
		return postErr
	}
	payload := scheduler.SessionFollowUpPayload{
		SessionID:   e.AuditSessionID(),
		CandidateID: e.CandidateID,
		FinalStatus: e.FinalStatus,
		FitScore:    e.FitScore,
	}
	if err := m.followUps.ScheduleSessionFollowUp(ctx, payload, m.now().Add(m.followUpDelay)); err != nil {
		m.log.Error("failed to schedule recruiter follow-up", "sessionId", e.SessionID, "error", err)
		if postErr == nil {
			return err
		}
	}
	return postErr
}

func (m *Module) post(ctx context.Context, e events.SessionEvent, text, creator string, at time.Time) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	target := e.AuditSessionID()
	msg := ports.Message{Text: text, Creator: creator, CreatedAt: at}
	if err := m.backend.PostMessage(ctx, target, msg); err != nil {
		m.log.ExternalCallFailed("backend", "post_message", target, err)
		return err
	}
	return nil
}

// offset keeps messages stamped from one event apart at store precision.
// A zero base stays zero so the store stamps the message itself.
func offset(base time.Time, step int) time.Time {
	if base.IsZero() {
		return base
	}
	return base.Add(time.Duration(step) * time.Microsecond)
}
