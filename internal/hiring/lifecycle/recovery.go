package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"hiring_assistant_backend/internal/hiring/domain"
	"hiring_assistant_backend/internal/hiring/history"
)

// Recovery sources, logged when recovery fills the last gap.
const (
	recoveredFromBackend  = "backend_session"
	recoveredFromHistory  = "history_rescan"
	recoveredFromReasoner = "reasoner_reprompt"
)

// recoverContacts tries, in order, the backend session record, the stored
// transcript and one reasoner re-prompt to fill the contact details needed to
// create a candidate. It stops as soon as a candidate id is known or nothing
// is missing. Returns whether the session became creatable.
func (m *Manager) recoverContacts(ctx context.Context, s *domain.Session) bool {
	log := m.log.WithSessionID(s.ID)
	done := func() bool {
		return s.HasCandidate() || len(domain.MissingContactFields(s)) == 0
	}
	if done() {
		return true
	}

	if m.recoverFromBackend(ctx, s) && done() {
		log.Info("contact details recovered", "source", recoveredFromBackend, "candidateId", s.CandidateID())
		return true
	}
	if m.recoverFromHistory(ctx, s) && done() {
		log.Info("contact details recovered", "source", recoveredFromHistory)
		return true
	}
	if m.recoverFromReasoner(ctx, s) && done() {
		log.Info("contact details recovered", "source", recoveredFromReasoner)
		return true
	}

	log.Info("contact recovery exhausted", "missing", domain.MissingContactFields(s))
	return false
}

func (m *Manager) recoverFromBackend(ctx context.Context, s *domain.Session) bool {
	cctx, cancel := m.callContext(ctx)
	defer cancel()
	rec, err := m.backend.GetSession(cctx, BackendSessionID(s))
	if err != nil {
		m.log.ExternalCallFailed("backend", "get_session", s.ID, err)
		return false
	}
	if rec == nil {
		return false
	}
	changed := false
	if rec.CandidateID != "" && s.RecordCandidate(rec.CandidateID, m.now()) {
		changed = true
	}
	if m.fillContacts(s, rec.FullName, rec.Email, rec.PhoneNumber) {
		changed = true
	}
	return changed
}

func (m *Manager) recoverFromHistory(ctx context.Context, s *domain.Session) bool {
	if m.history == nil {
		return false
	}
	cctx, cancel := m.callContext(ctx)
	defer cancel()
	entries, err := m.history.List(cctx, s.ID)
	if err != nil {
		m.log.ExternalCallFailed("history", "list", s.ID, err)
		return false
	}
	found := history.ExtractContacts(entries)
	if found.Empty() {
		return false
	}
	return m.fillContacts(s, found.FullName, found.Email, found.PhoneNumber)
}

// recoverFromReasoner asks the reasoner once to record whatever contact
// details it can find in the conversation. Its tools write to s directly.
func (m *Manager) recoverFromReasoner(ctx context.Context, s *domain.Session) bool {
	r := m.getReasoner()
	if r == nil {
		return false
	}
	before := len(domain.MissingContactFields(s))
	prompt := recoveryPrompt(domain.MissingContactFields(s))

	cctx, cancel := m.callContext(ctx)
	defer cancel()
	if _, err := r.Process(cctx, s, prompt); err != nil {
		m.log.ExternalCallFailed("reasoner", "recovery_prompt", s.ID, err)
		return false
	}
	return s.HasCandidate() || len(domain.MissingContactFields(s)) < before
}

func recoveryPrompt(missing []string) string {
	return fmt.Sprintf(
		"The session is ending. Review the conversation and save the applicant's %s "+
			"using the save tools if they were mentioned. Do not ask the user anything.",
		strings.Join(missing, ", "),
	)
}

// fillContacts sets only absent contact fields. Values that fail
// normalization are ignored.
func (m *Manager) fillContacts(s *domain.Session, name, email, phoneNumber string) bool {
	now := m.now()
	app := s.EnsureApplication()
	filled := false
	if app.FullName == nil && name != "" {
		if v, err := domain.NormalizeName(name); err == nil {
			app.FullName = &v
			filled = true
		}
	}
	if app.Email == nil && email != "" {
		if _, err := s.SetEmail(email, now); err == nil {
			filled = true
		}
	}
	if app.PhoneNumber == nil && phoneNumber != "" {
		if _, err := s.SetPhone(phoneNumber, now); err == nil {
			filled = true
		}
	}
	if filled {
		s.UpdatedAt = now
	}
	return filled
}
