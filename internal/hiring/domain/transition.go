package domain

import (
	"time"

	"hiring_assistant_backend/platform/apperr"
)

// Facts are newly observed values for a session. Nil fields were not observed.
type Facts struct {
	ConsentGiven *bool
	JobID        *string
	CompanyID    *string
	Language     *string

	AgeConfirmed      *bool
	WorkAuthorization *bool
	ShiftPreference   *string
	AvailabilityStart *string
	Transportation    *bool
	HoursPreference   *string

	FullName         *string
	Email            *string
	PhoneNumber      *string
	Age              *int
	YearsExperience  *int
	PreviousEmployer *string
	PreviousRole     *string
	Skills           *string
	Education        *string

	SkipVerification []Channel
}

// Transition records one stage change.
type Transition struct {
	From Stage
	To   Stage
}

// AdvanceResult lists the transitions performed by Advance and the channels
// whose verification was reset by a contact change.
type AdvanceResult struct {
	Transitions   []Transition
	ResetChannels []Channel
}

// Advanced reports whether at least one transition happened.
func (r AdvanceResult) Advanced() bool {
	return len(r.Transitions) > 0
}

// Advance applies facts to s and moves current_stage forward while the guard
// of the current stage holds. Invalid contact facts are rejected before
// anything is written. The stage never moves backwards.
func Advance(s *Session, facts Facts, now time.Time) (AdvanceResult, error) {
	var result AdvanceResult

	normalized, err := normalizeFacts(facts)
	if err != nil {
		return result, err
	}

	resets, err := applyFacts(s, normalized, now)
	if err != nil {
		return result, err
	}
	result.ResetChannels = resets

	for !s.CurrentStage.IsTerminal() {
		if !guardHolds(s) {
			break
		}
		from := s.CurrentStage
		to, ok := from.Next()
		if !ok {
			break
		}
		markCompleted(s, from)
		s.CurrentStage = to
		ensureStageRecord(s, to)
		result.Transitions = append(result.Transitions, Transition{From: from, To: to})
	}

	if result.Advanced() {
		s.UpdatedAt = now
	}
	return result, nil
}

// GuardBlockReason explains why the current stage cannot advance yet, or ""
// when the guard holds or the stage is terminal.
func GuardBlockReason(s *Session) string {
	switch s.CurrentStage {
	case StageEngagement:
		if s.Engagement == nil || !s.Engagement.ConsentGiven {
			return "consent not given"
		}
	case StageQualification:
		q := s.Qualification
		if q == nil || q.Status != QualificationQualified {
			return "eligibility not confirmed"
		}
		if q.ShiftPreference == nil || q.AvailabilityStart == nil {
			return "shift preference and availability start required"
		}
	case StageApplication:
		if missing := MissingContactFields(s); len(missing) > 0 {
			return "missing contact details"
		}
	case StageVerification:
		if !s.HasCandidate() {
			return "candidate record not created"
		}
		v := s.Verification
		if v == nil || !v.Email.Resolved() || !v.Phone.Resolved() {
			return "verification pending"
		}
	}
	return ""
}

func guardHolds(s *Session) bool {
	return GuardBlockReason(s) == ""
}

// MissingContactFields lists which of full_name, email and phone_number are absent.
func MissingContactFields(s *Session) []string {
	var missing []string
	app := s.Application
	if app == nil || app.FullName == nil || *app.FullName == "" {
		missing = append(missing, "full_name")
	}
	if app == nil || app.Email == nil || *app.Email == "" {
		missing = append(missing, "email")
	}
	if app == nil || app.PhoneNumber == nil || *app.PhoneNumber == "" {
		missing = append(missing, "phone_number")
	}
	return missing
}

func markCompleted(s *Session, stage Stage) {
	switch stage {
	case StageEngagement:
		s.ensureEngagement().Completed = true
	case StageQualification:
		s.EnsureQualification().Completed = true
	case StageApplication:
		s.EnsureApplication().Completed = true
	case StageVerification:
		s.EnsureVerification().Completed = true
	}
}

func ensureStageRecord(s *Session, stage Stage) {
	switch stage {
	case StageQualification:
		s.EnsureQualification()
	case StageApplication:
		s.EnsureApplication()
	case StageVerification:
		s.EnsureVerification()
	}
}

func normalizeFacts(f Facts) (Facts, error) {
	if f.Email != nil {
		v, err := NormalizeEmail(*f.Email)
		if err != nil {
			return f, err
		}
		f.Email = &v
	}
	if f.PhoneNumber != nil {
		v, err := NormalizePhone(*f.PhoneNumber)
		if err != nil {
			return f, err
		}
		f.PhoneNumber = &v
	}
	if f.FullName != nil {
		v, err := NormalizeName(*f.FullName)
		if err != nil {
			return f, err
		}
		f.FullName = &v
	}
	if f.Age != nil {
		if err := ValidateAge(*f.Age); err != nil {
			return f, err
		}
	}
	if f.YearsExperience != nil && *f.YearsExperience < 0 {
		return f, apperr.InvalidFormat("years_experience")
	}
	return f, nil
}

func applyFacts(s *Session, f Facts, now time.Time) ([]Channel, error) {
	eng := s.ensureEngagement()
	if f.ConsentGiven != nil && *f.ConsentGiven {
		// consent is never withdrawn by a later fact
		eng.ConsentGiven = true
	}
	setString(&eng.JobID, f.JobID)
	setString(&eng.CompanyID, f.CompanyID)
	setString(&eng.Language, f.Language)

	if f.hasQualification() {
		q := s.EnsureQualification()
		setPtr(&q.AgeConfirmed, f.AgeConfirmed)
		setPtr(&q.WorkAuthorization, f.WorkAuthorization)
		setPtr(&q.ShiftPreference, f.ShiftPreference)
		setPtr(&q.AvailabilityStart, f.AvailabilityStart)
		setPtr(&q.Transportation, f.Transportation)
		setPtr(&q.HoursPreference, f.HoursPreference)
		q.refreshStatus()
	}

	var resets []Channel
	if f.Email != nil {
		reset, err := s.SetEmail(*f.Email, now)
		if err != nil {
			return nil, err
		}
		if reset {
			resets = append(resets, ChannelEmail)
		}
	}
	if f.PhoneNumber != nil {
		reset, err := s.SetPhone(*f.PhoneNumber, now)
		if err != nil {
			return nil, err
		}
		if reset {
			resets = append(resets, ChannelPhone)
		}
	}

	if f.hasApplication() {
		app := s.EnsureApplication()
		setPtr(&app.FullName, f.FullName)
		setPtr(&app.Age, f.Age)
		setPtr(&app.YearsExperience, f.YearsExperience)
		setPtr(&app.PreviousEmployer, f.PreviousEmployer)
		setPtr(&app.PreviousRole, f.PreviousRole)
		setPtr(&app.Skills, f.Skills)
		setPtr(&app.Education, f.Education)
	}

	if len(f.SkipVerification) > 0 {
		v := s.EnsureVerification()
		for _, ch := range f.SkipVerification {
			rec := v.Channel(ch)
			if !rec.Verified {
				rec.Status = ChannelSkipped
			}
		}
	}

	s.UpdatedAt = now
	return resets, nil
}

func (f Facts) hasQualification() bool {
	return f.AgeConfirmed != nil || f.WorkAuthorization != nil || f.ShiftPreference != nil ||
		f.AvailabilityStart != nil || f.Transportation != nil || f.HoursPreference != nil
}

func (f Facts) hasApplication() bool {
	return f.FullName != nil || f.Age != nil || f.YearsExperience != nil || f.PreviousEmployer != nil ||
		f.PreviousRole != nil || f.Skills != nil || f.Education != nil
}

func setPtr[T any](dst **T, src *T) {
	if src == nil {
		return
	}
	v := *src
	*dst = &v
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
