// Package service runs chat turns against registry-owned sessions.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"hiring_assistant_backend/internal/events"
	"hiring_assistant_backend/internal/hiring/domain"
	"hiring_assistant_backend/internal/hiring/history"
	"hiring_assistant_backend/internal/hiring/lifecycle"
	"hiring_assistant_backend/internal/hiring/ports"
	"hiring_assistant_backend/internal/hiring/registry"
	"hiring_assistant_backend/internal/hiring/transport"
	"hiring_assistant_backend/platform/apperr"
	"hiring_assistant_backend/platform/logger"
	"hiring_assistant_backend/platform/sanitize"
)

const (
	maxMessageLength = 4000
	greetingPrompt   = "The applicant just opened the chat. Greet them and ask whether they would like to apply."
	// ReasonUserEnded is used when the applicant ends the conversation.
	ReasonUserEnded = "user_ended"
)

// Service starts sessions, runs chat turns and ends sessions.
type Service struct {
	registry  *registry.Registry
	lifecycle *lifecycle.Manager
	reasoner  ports.Reasoner
	history   ports.HistoryStore
	bus       events.Bus
	log       *logger.Logger
	lockWait  time.Duration
	now       func() time.Time
}

// Options tune the service. Zero values fall back to defaults.
type Options struct {
	// LockWait bounds how long a request waits for a busy session.
	LockWait time.Duration
	Now      func() time.Time
}

// New creates the service. history may be nil.
func New(reg *registry.Registry, lc *lifecycle.Manager, reasoner ports.Reasoner, hist ports.HistoryStore, bus events.Bus, log *logger.Logger, opts Options) *Service {
	if opts.LockWait <= 0 {
		opts.LockWait = 90 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		registry:  reg,
		lifecycle: lc,
		reasoner:  reasoner,
		history:   hist,
		bus:       bus,
		log:       log,
		lockWait:  opts.LockWait,
		now:       opts.Now,
	}
}

// Start creates a session and lets the reasoner greet the applicant.
func (s *Service) Start(ctx context.Context, req transport.StartSessionRequest) (*domain.Session, []string, error) {
	id := uuid.NewString()
	s.registry.GetOrCreate(id)

	var replies []string
	var snapshot *domain.Session
	err := s.withSession(ctx, id, func(sess *domain.Session) error {
		eng := sess.Engagement
		eng.JobID = strings.TrimSpace(req.JobID)
		eng.CompanyID = strings.TrimSpace(req.CompanyID)
		eng.Language = strings.TrimSpace(req.Language)
		eng.BackendSessionID = strings.TrimSpace(req.BackendSessionID)

		out, err := s.reasoner.Process(ctx, sess, greetingPrompt)
		if err != nil {
			s.log.ExternalCallFailed("reasoner", "greeting", id, err)
		} else {
			replies = out
			s.record(ctx, sess.ID, history.RoleAssistant, out...)
		}
		snapshot = sess.Clone()
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("session started", "sessionId", id, "jobId", req.JobID)
	return snapshot, replies, nil
}

// Send runs one chat turn. Concluded sessions reject new messages.
func (s *Service) Send(ctx context.Context, id, text string) (transport.ChatResponse, error) {
	const op = "service.Send"
	text = sanitize.Truncate(sanitize.Text(text), maxMessageLength)
	if text == "" {
		return transport.ChatResponse{}, apperr.Validation("message is empty").WithOp(op)
	}

	var (
		resp      transport.ChatResponse
		backendID string
	)
	userAt := s.now()
	err := s.withSession(ctx, id, func(sess *domain.Session) error {
		backendID = lifecycle.BackendSessionID(sess)
		if sess.Conclusion != domain.ConclusionNotStarted {
			return apperr.AlreadyCompleted("session already concluded").WithOp(op)
		}
		s.registry.Touch(id)
		s.record(ctx, id, history.RoleUser, text)

		replies, err := s.reasoner.Process(ctx, sess, text)
		if err != nil {
			s.log.ExternalCallFailed("reasoner", "process", id, err)
			return apperr.ExternalUnavailable("reasoner", err).WithOp(op)
		}
		s.record(ctx, id, history.RoleAssistant, replies...)
		if sess.IsConcluded() {
			s.registry.Untrack(id)
		} else {
			s.registry.Touch(id)
		}

		resp = transport.ChatResponse{
			Replies:   replies,
			Stage:     string(sess.CurrentStage),
			Concluded: sess.IsConcluded(),
		}
		return nil
	})
	if err != nil {
		return transport.ChatResponse{}, err
	}

	s.publish(ctx, events.ChatTurnCompleted{
		BaseEvent:        events.BaseEventAt(s.now()),
		SessionID:        id,
		BackendSessionID: backendID,
		UserText:         text,
		UserAt:           userAt,
		Replies:          resp.Replies,
	})
	return resp, nil
}

// End concludes the session. Repeated calls report the stored status.
func (s *Service) End(ctx context.Context, id, reason string) (lifecycle.Outcome, error) {
	if strings.TrimSpace(reason) == "" {
		reason = ReasonUserEnded
	}
	var out lifecycle.Outcome
	err := s.withSession(ctx, id, func(sess *domain.Session) error {
		out = s.lifecycle.Conclude(ctx, sess, reason)
		return nil
	})
	if err != nil {
		return lifecycle.Outcome{}, err
	}
	s.registry.Untrack(id)
	return out, nil
}

// Snapshot returns a copy of the session, including sessions the sweeper
// already concluded.
func (s *Service) Snapshot(ctx context.Context, id string) (*domain.Session, error) {
	sess, err := s.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, apperr.NotFound("session not found").WithOp("service.Snapshot")
	}
	return sess, nil
}

// ConcludeIdle is the sweeper's conclusion hook.
func (s *Service) ConcludeIdle(ctx context.Context, sess *domain.Session, reason string) {
	out := s.lifecycle.Conclude(ctx, sess, reason)
	s.log.Info("idle session concluded", "sessionId", sess.ID, "status", out.Status, "alreadyConcluded", out.AlreadyConcluded)
}

func (s *Service) withSession(ctx context.Context, id string, fn func(*domain.Session) error) error {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()
	err := s.registry.WithSession(lockCtx, id, fn)
	if err == context.DeadlineExceeded && ctx.Err() == nil {
		return apperr.New(apperr.KindExternalUnavailable, "session is busy, try again").WithOp("service.withSession")
	}
	return err
}

func (s *Service) record(ctx context.Context, id, role string, texts ...string) {
	if s.history == nil {
		return
	}
	for _, text := range texts {
		entry := ports.HistoryEntry{Role: role, Text: text, Timestamp: s.now()}
		if err := s.history.Append(ctx, id, entry); err != nil {
			s.log.ExternalCallFailed("history", "append", id, err)
			return
		}
	}
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, event)
}
