// Package tools executes the actions the reasoner may request on a session.
// Every tool validates its input, applies it through the transition engine
// and returns a human-readable result instead of an error.
package tools

import (
	"context"
	"fmt"
	"time"

	"hiring_assistant_backend/internal/events"
	"hiring_assistant_backend/internal/hiring/domain"
	"hiring_assistant_backend/internal/hiring/lifecycle"
	"hiring_assistant_backend/internal/hiring/verification"
	"hiring_assistant_backend/platform/apperr"
	"hiring_assistant_backend/platform/logger"
)

// Service is the tool facade. The caller holds the session lock for every call.
type Service struct {
	lifecycle *lifecycle.Manager
	verify    *verification.Flow
	bus       events.Bus
	log       *logger.Logger
	now       func() time.Time
}

// New creates the facade. now defaults to time.Now.
func New(lc *lifecycle.Manager, verify *verification.Flow, bus events.Bus, log *logger.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{lifecycle: lc, verify: verify, bus: bus, log: log, now: now}
}

// QualificationInput carries eligibility answers. Nil fields were not answered.
type QualificationInput struct {
	AgeConfirmed      *bool
	WorkAuthorization *bool
	ShiftPreference   *string
	AvailabilityStart *string
	Transportation    *bool
	HoursPreference   *string
}

// BackgroundInput carries optional employment background.
type BackgroundInput struct {
	YearsExperience  *int
	PreviousEmployer *string
	PreviousRole     *string
	Skills           *string
	Education        *string
}

// GiveConsent records the applicant's consent and correlation ids.
func (t *Service) GiveConsent(ctx context.Context, s *domain.Session, consent bool, jobID, language string) string {
	if !consent {
		return "Consent not given. The application cannot continue without it."
	}
	facts := domain.Facts{ConsentGiven: domain.Bool(true)}
	if jobID != "" {
		facts.JobID = &jobID
	}
	if language != "" {
		facts.Language = &language
	}
	return t.applyAndReport(ctx, s, facts, "Consent recorded.")
}

// SaveQualification records eligibility answers.
func (t *Service) SaveQualification(ctx context.Context, s *domain.Session, in QualificationInput) string {
	facts := domain.Facts{
		AgeConfirmed:      in.AgeConfirmed,
		WorkAuthorization: in.WorkAuthorization,
		ShiftPreference:   in.ShiftPreference,
		AvailabilityStart: in.AvailabilityStart,
		Transportation:    in.Transportation,
		HoursPreference:   in.HoursPreference,
	}
	msg := t.applyAndReport(ctx, s, facts, "Qualification answers saved.")
	if s.Qualification != nil && s.Qualification.Status == domain.QualificationDisqualified {
		return msg + " The applicant does not meet the eligibility requirements."
	}
	return msg
}

// SaveName records the applicant's full name.
func (t *Service) SaveName(ctx context.Context, s *domain.Session, name string) string {
	return t.applyAndReport(ctx, s, domain.Facts{FullName: &name}, "Name saved.")
}

// SaveEmail records the email address. Changing an existing address on a
// created candidate is handled as a correction.
func (t *Service) SaveEmail(ctx context.Context, s *domain.Session, email string) string {
	if s.HasCandidate() && s.ContactValue(domain.ChannelEmail) != "" {
		return t.UpdateContact(ctx, s, domain.ChannelEmail, email)
	}
	return t.applyAndReport(ctx, s, domain.Facts{Email: &email}, "Email saved.")
}

// SavePhone records the phone number with the same correction rule as SaveEmail.
func (t *Service) SavePhone(ctx context.Context, s *domain.Session, phoneNumber string) string {
	if s.HasCandidate() && s.ContactValue(domain.ChannelPhone) != "" {
		return t.UpdateContact(ctx, s, domain.ChannelPhone, phoneNumber)
	}
	return t.applyAndReport(ctx, s, domain.Facts{PhoneNumber: &phoneNumber}, "Phone number saved.")
}

// SaveAge records the applicant's age.
func (t *Service) SaveAge(ctx context.Context, s *domain.Session, age int) string {
	return t.applyAndReport(ctx, s, domain.Facts{Age: &age}, "Age saved.")
}

// SaveBackground records optional experience and education details.
func (t *Service) SaveBackground(ctx context.Context, s *domain.Session, in BackgroundInput) string {
	facts := domain.Facts{
		YearsExperience:  in.YearsExperience,
		PreviousEmployer: in.PreviousEmployer,
		PreviousRole:     in.PreviousRole,
		Skills:           in.Skills,
		Education:        in.Education,
	}
	return t.applyAndReport(ctx, s, facts, "Background saved.")
}

// CreateCandidateEarly creates the candidate record as soon as contact
// details are complete.
func (t *Service) CreateCandidateEarly(ctx context.Context, s *domain.Session) string {
	id, err := t.lifecycle.CreateEarly(ctx, s)
	if err != nil {
		return errorMessage(err)
	}
	t.advance(ctx, s)
	return fmt.Sprintf("Candidate record %s is in place. %s", id, progress(s))
}

// SendCode sends a one-time code to the email address or phone number.
func (t *Service) SendCode(ctx context.Context, s *domain.Session, ch domain.Channel) string {
	if err := t.verify.Send(ctx, s, ch); err != nil {
		if missing := apperr.MissingFields(err); len(missing) > 0 && s.ContactValue(ch) != "" {
			return "Please complete your application first: provide your " + joinLabels(missing) + "."
		}
		return errorMessage(err)
	}
	return fmt.Sprintf("A verification code was sent to %s. Ask the applicant to enter it.", s.ContactValue(ch))
}

// ValidateCode checks the code the applicant entered for ch.
func (t *Service) ValidateCode(ctx context.Context, s *domain.Session, ch domain.Channel, code string) string {
	ok, err := t.verify.Validate(ctx, s, ch, code)
	if err != nil {
		return errorMessage(err)
	}
	if !ok {
		return "That code is not correct. The applicant can try again or request a new code."
	}
	t.advance(ctx, s)
	return fmt.Sprintf("The %s is verified. %s", label(contactKey(ch)), progress(s))
}

// UpdateContact corrects the email address or phone number. A verified value
// that changes must be verified again.
func (t *Service) UpdateContact(ctx context.Context, s *domain.Session, ch domain.Channel, value string) string {
	reset, err := t.verify.Correct(ctx, s, ch, value)
	if err != nil {
		return errorMessage(err)
	}
	if reset {
		t.publish(ctx, events.VerificationReset{
			BaseEvent:        events.BaseEventAt(t.now()),
			SessionID:        s.ID,
			BackendSessionID: lifecycle.BackendSessionID(s),
			Channel:          string(ch),
		})
	}
	t.advance(ctx, s)
	msg := fmt.Sprintf("The %s was updated.", label(contactKey(ch)))
	if reset {
		msg += " It needs to be verified again."
	}
	return msg + " " + progress(s)
}

// SkipVerification marks ch as not verified on purpose.
func (t *Service) SkipVerification(ctx context.Context, s *domain.Session, ch domain.Channel) string {
	if err := t.verify.Skip(s, ch); err != nil {
		return errorMessage(err)
	}
	t.lifecycle.EnsureCreated(ctx, s)
	t.advance(ctx, s)
	return fmt.Sprintf("Verification of the %s skipped. %s", label(contactKey(ch)), progress(s))
}

// PatchCandidateWithReport attaches the fit report to the candidate.
func (t *Service) PatchCandidateWithReport(ctx context.Context, s *domain.Session) string {
	report, err := t.lifecycle.PatchWithReport(ctx, s)
	if err != nil {
		return errorMessage(err)
	}
	return fmt.Sprintf("Report attached with a fit score of %.2f.", report.FitScore)
}

// ConcludeSession ends the conversation. Repeated calls report the stored status.
func (t *Service) ConcludeSession(ctx context.Context, s *domain.Session, reason string) string {
	if reason == "" {
		reason = "user_ended"
	}
	out := t.lifecycle.Conclude(ctx, s, reason)
	if out.AlreadyConcluded {
		return "The session was already concluded with status " + out.Status + "."
	}
	return "Session concluded with status " + out.Status + "."
}

// Progress reports the current stage and what blocks the next one.
func (t *Service) Progress(s *domain.Session) string {
	return progress(s)
}

func (t *Service) applyAndReport(ctx context.Context, s *domain.Session, facts domain.Facts, ok string) string {
	if s.IsConcluded() {
		return "The session has already concluded."
	}
	if _, err := t.apply(ctx, s, facts); err != nil {
		return errorMessage(err)
	}
	return ok + " " + progress(s)
}

// apply runs the transition engine and publishes what changed.
func (t *Service) apply(ctx context.Context, s *domain.Session, facts domain.Facts) (domain.AdvanceResult, error) {
	res, err := domain.Advance(s, facts, t.now())
	if err != nil {
		return res, err
	}
	for _, ch := range res.ResetChannels {
		t.publish(ctx, events.VerificationReset{
			BaseEvent:        events.BaseEventAt(t.now()),
			SessionID:        s.ID,
			BackendSessionID: lifecycle.BackendSessionID(s),
			Channel:          string(ch),
		})
	}
	for _, tr := range res.Transitions {
		t.log.Info("stage advanced", "sessionId", s.ID, "from", tr.From, "to", tr.To)
		t.publish(ctx, events.StageAdvanced{
			BaseEvent:        events.BaseEventAt(t.now()),
			SessionID:        s.ID,
			BackendSessionID: lifecycle.BackendSessionID(s),
			From:             string(tr.From),
			To:               string(tr.To),
		})
	}
	return res, nil
}

// advance re-checks the guards without new facts.
func (t *Service) advance(ctx context.Context, s *domain.Session) {
	if _, err := t.apply(ctx, s, domain.Facts{}); err != nil {
		t.log.Warn("stage re-check failed", "sessionId", s.ID, "error", err)
	}
}

func (t *Service) publish(ctx context.Context, event events.Event) {
	if t.bus == nil {
		return
	}
	t.bus.Publish(ctx, event)
}

func contactKey(ch domain.Channel) string {
	if ch == domain.ChannelPhone {
		return "phone_number"
	}
	return "email"
}
