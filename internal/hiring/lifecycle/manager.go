// Package lifecycle owns the backend candidate of a session: early and
// on-demand creation, the report patch and the one-shot conclusion.
//
// Every method expects the caller to hold the session's registry lock.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"hiring_assistant_backend/internal/events"
	"hiring_assistant_backend/internal/hiring/domain"
	"hiring_assistant_backend/internal/hiring/ports"
	"hiring_assistant_backend/platform/apperr"
	"hiring_assistant_backend/platform/logger"
)

const defaultExternalTimeout = 15 * time.Second

// Candidate creation triggers, carried on CandidateCreated events.
const (
	TriggerEarly      = "early"
	TriggerOnDemand   = "on_demand"
	TriggerConclusion = "conclusion"
)

// Options tune the manager. Zero values fall back to defaults.
type Options struct {
	ExternalTimeout time.Duration
	Now             func() time.Time
}

// Manager implements the candidate lifecycle of a session.
type Manager struct {
	backend ports.BackendStore
	reports ports.ReportGenerator
	history ports.HistoryStore
	bus     events.Bus
	log     *logger.Logger
	timeout time.Duration
	now     func() time.Time

	reasonerMu sync.RWMutex
	reasoner   ports.Reasoner
}

// Outcome is the result of Conclude.
type Outcome struct {
	Status           string
	CandidateID      string
	AlreadyConcluded bool
}

// New creates a Manager. history may be nil, which skips the transcript
// rescan during recovery.
func New(backend ports.BackendStore, reports ports.ReportGenerator, history ports.HistoryStore, bus events.Bus, log *logger.Logger, opts Options) *Manager {
	if opts.ExternalTimeout <= 0 {
		opts.ExternalTimeout = defaultExternalTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		backend: backend,
		reports: reports,
		history: history,
		bus:     bus,
		log:     log,
		timeout: opts.ExternalTimeout,
		now:     opts.Now,
	}
}

// SetReasoner wires the reasoner used for the last recovery step. The
// reasoner depends on tools that depend on the manager, so it is injected
// after construction.
func (m *Manager) SetReasoner(r ports.Reasoner) {
	m.reasonerMu.Lock()
	defer m.reasonerMu.Unlock()
	m.reasoner = r
}

func (m *Manager) getReasoner() ports.Reasoner {
	m.reasonerMu.RLock()
	defer m.reasonerMu.RUnlock()
	return m.reasoner
}

// CreateEarly creates the candidate from the collected contact details with a
// zero score and no report. It returns the existing id when one is recorded.
func (m *Manager) CreateEarly(ctx context.Context, s *domain.Session) (string, error) {
	if s.IsConcluded() {
		return s.CandidateID(), apperr.AlreadyCompleted("session already concluded").WithOp("lifecycle.CreateEarly")
	}
	return m.createCandidate(ctx, s, TriggerEarly, nil)
}

// EnsureCreated returns the candidate id, creating the candidate if the
// contact details allow it. It returns "" instead of an error when they don't.
func (m *Manager) EnsureCreated(ctx context.Context, s *domain.Session) string {
	if s.HasCandidate() {
		return s.CandidateID()
	}
	id, err := m.createCandidate(ctx, s, TriggerOnDemand, nil)
	if err != nil {
		if apperr.Is(err, apperr.KindMissingRequiredField) {
			m.log.Info("candidate not created on demand", "sessionId", s.ID, "missing", apperr.MissingFields(err))
		} else {
			m.log.Warn("candidate creation on demand failed", "sessionId", s.ID, "error", err)
		}
		return ""
	}
	return id
}

// PatchWithReport generates the fit report and attaches it to the existing
// candidate. A candidate is patched with a report at most once.
func (m *Manager) PatchWithReport(ctx context.Context, s *domain.Session) (ports.Report, error) {
	const op = "lifecycle.PatchWithReport"
	if s.Report != nil {
		return reportFromRef(s.Report), apperr.AlreadyCompleted("report already attached").WithOp(op)
	}
	if !s.HasCandidate() {
		return ports.Report{}, apperr.MissingRequiredField("candidate_id").WithOp(op)
	}

	report, err := m.generateReport(ctx, s)
	if err != nil {
		return ports.Report{}, err
	}
	if err := m.patchReport(ctx, s, report, ""); err != nil {
		return ports.Report{}, err
	}
	return report, nil
}

// Conclude finalizes the session once. Later calls return the stored status
// without side effects. Failures of collaborators are logged; a status is
// always returned.
func (m *Manager) Conclude(ctx context.Context, s *domain.Session, reason string) (out Outcome) {
	switch s.Conclusion {
	case domain.ConclusionConcluded:
		return Outcome{Status: s.FinalStatus, CandidateID: s.CandidateID(), AlreadyConcluded: true}
	case domain.ConclusionConcluding:
		return Outcome{Status: s.FinalStatus, CandidateID: s.CandidateID(), AlreadyConcluded: true}
	}

	s.Conclusion = domain.ConclusionConcluding
	s.FinalStatus = s.DeriveFinalStatus()
	base := context.WithoutCancel(ctx)
	log := m.log.WithSessionID(s.ID)

	defer func() {
		if r := recover(); r != nil {
			log.Error("conclusion panicked; status kept", "panic", fmt.Sprint(r), "status", s.FinalStatus)
		}
		s.Conclusion = domain.ConclusionConcluded
		s.UpdatedAt = m.now()
		out = Outcome{Status: s.FinalStatus, CandidateID: s.CandidateID()}
	}()

	log.Info("concluding session", "reason", reason, "status", s.FinalStatus, "stage", s.CurrentStage)

	report, reportErr := m.generateReport(base, s)
	if reportErr != nil {
		log.Warn("report generation failed; concluding without report", "error", reportErr)
	}

	if !s.HasCandidate() {
		m.recoverContacts(base, s)
	}

	if s.HasCandidate() {
		if reportErr == nil && s.Report == nil {
			_ = m.patchReport(base, s, report, s.FinalStatus)
		}
	} else {
		var withReport *ports.Report
		if reportErr == nil {
			withReport = &report
		}
		if _, err := m.createCandidate(base, s, TriggerConclusion, withReport); err != nil {
			log.Warn("concluding without candidate", "error", err)
		} else if withReport != nil && s.Report == nil {
			s.Report = refFromReport(report)
		}
	}

	m.persistConclusion(base, s, reason)

	var fitScore float64
	if s.Report != nil {
		fitScore = s.Report.FitScore
	}
	m.publish(base, events.SessionConcluded{
		BaseEvent:        events.BaseEventAt(m.now()),
		SessionID:        s.ID,
		BackendSessionID: BackendSessionID(s),
		FinalStatus:      s.FinalStatus,
		Reason:           reason,
		CandidateID:      s.CandidateID(),
		FitScore:         fitScore,
	})
	return Outcome{Status: s.FinalStatus, CandidateID: s.CandidateID()}
}

func (m *Manager) createCandidate(ctx context.Context, s *domain.Session, trigger string, report *ports.Report) (string, error) {
	const op = "lifecycle.createCandidate"
	if s.HasCandidate() {
		return s.CandidateID(), nil
	}
	if missing := domain.MissingContactFields(s); len(missing) > 0 {
		return "", apperr.MissingRequiredField(missing...).WithOp(op)
	}

	fields := candidateFields(s)
	zero := 0.0
	fields.FitScore = &zero
	if report != nil {
		fields.FitScore = &report.FitScore
		fields.ProfileSummary = &report.ProfileSummary
		fields.ReportPath = &report.Path
		fields.Status = s.FinalStatus
	}

	cctx, cancel := m.callContext(ctx)
	defer cancel()
	id, err := m.backend.CreateCandidate(cctx, fields)
	if err == nil && id == "" {
		err = errors.New("backend returned empty candidate id")
	}
	if err != nil {
		m.log.ExternalCallFailed("backend", "create_candidate", s.ID, err)
		return "", apperr.ExternalUnavailable("backend", err).WithOp(op)
	}

	s.RecordCandidate(id, m.now())
	m.log.Info("candidate created", "sessionId", s.ID, "candidateId", id, "trigger", trigger)
	m.publish(ctx, events.CandidateCreated{
		BaseEvent:   events.BaseEventAt(m.now()),
		SessionID:   s.ID,
		CandidateID: id,
		Trigger:     trigger,
	})
	return id, nil
}

func (m *Manager) generateReport(ctx context.Context, s *domain.Session) (ports.Report, error) {
	cctx, cancel := m.callContext(ctx)
	defer cancel()
	report, err := m.reports.Generate(cctx, s.ID, s.Clone())
	if err != nil {
		m.log.ExternalCallFailed("report", "generate", s.ID, err)
		return ports.Report{}, apperr.ExternalUnavailable("report generator", err).WithOp("lifecycle.generateReport")
	}
	return report, nil
}

func (m *Manager) patchReport(ctx context.Context, s *domain.Session, report ports.Report, status string) error {
	fields := ports.CandidateFields{
		FitScore:       &report.FitScore,
		ProfileSummary: &report.ProfileSummary,
		ReportPath:     &report.Path,
		Status:         status,
	}
	cctx, cancel := m.callContext(ctx)
	defer cancel()
	if err := m.backend.PatchCandidate(cctx, s.CandidateID(), fields); err != nil {
		m.log.ExternalCallFailed("backend", "patch_candidate", s.ID, err)
		return apperr.ExternalUnavailable("backend", err).WithOp("lifecycle.patchReport")
	}
	s.Report = refFromReport(report)
	s.UpdatedAt = m.now()
	return nil
}

func (m *Manager) persistConclusion(ctx context.Context, s *domain.Session, reason string) {
	now := m.now()
	update := ports.SessionUpdate{
		Status:      s.FinalStatus,
		CandidateID: s.CandidateID(),
		Stage:       string(s.CurrentStage),
		ConcludedAt: &now,
		Reason:      reason,
	}
	cctx, cancel := m.callContext(ctx)
	defer cancel()
	if err := m.backend.UpdateSession(cctx, BackendSessionID(s), update); err != nil {
		m.log.ExternalCallFailed("backend", "update_session", s.ID, err)
	}
}

func (m *Manager) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.timeout)
}

func (m *Manager) publish(ctx context.Context, event events.Event) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(ctx, event)
}

// BackendSessionID is the id of the session record in the backend store.
func BackendSessionID(s *domain.Session) string {
	if s.Engagement != nil && s.Engagement.BackendSessionID != "" {
		return s.Engagement.BackendSessionID
	}
	return s.ID
}

func candidateFields(s *domain.Session) ports.CandidateFields {
	fields := ports.CandidateFields{SessionID: BackendSessionID(s)}
	if s.Engagement != nil {
		fields.JobID = s.Engagement.JobID
		fields.CompanyID = s.Engagement.CompanyID
	}
	if app := s.Application; app != nil {
		fields.FullName = deref(app.FullName)
		fields.Email = deref(app.Email)
		fields.PhoneNumber = deref(app.PhoneNumber)
		fields.Age = app.Age
	}
	return fields
}

func refFromReport(r ports.Report) *domain.ReportRef {
	return &domain.ReportRef{Path: r.Path, FitScore: r.FitScore, ProfileSummary: r.ProfileSummary}
}

func reportFromRef(r *domain.ReportRef) ports.Report {
	return ports.Report{Path: r.Path, FitScore: r.FitScore, ProfileSummary: r.ProfileSummary}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
