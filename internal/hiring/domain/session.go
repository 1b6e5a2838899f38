// Package domain holds the stage model of the hiring conversation and the
// rules that move a session between stages. It has no I/O.
package domain

import "time"

// EngagementState holds consent and correlation ids for the conversation.
type EngagementState struct {
	ConsentGiven     bool    `json:"consentGiven"`
	JobID            string  `json:"jobId,omitempty"`
	CompanyID        string  `json:"companyId,omitempty"`
	Language         string  `json:"language,omitempty"`
	BackendSessionID string  `json:"backendSessionId,omitempty"`
	CandidateID      *string `json:"candidateId,omitempty"`
	UserID           *string `json:"userId,omitempty"`
	Completed        bool    `json:"completed"`
}

// QualificationState holds eligibility answers. Nil pointers are unanswered.
type QualificationState struct {
	AgeConfirmed      *bool               `json:"ageConfirmed,omitempty"`
	WorkAuthorization *bool               `json:"workAuthorization,omitempty"`
	ShiftPreference   *string             `json:"shiftPreference,omitempty"`
	AvailabilityStart *string             `json:"availabilityStart,omitempty"`
	Transportation    *bool               `json:"transportation,omitempty"`
	HoursPreference   *string             `json:"hoursPreference,omitempty"`
	Status            QualificationStatus `json:"status"`
	Completed         bool                `json:"completed"`
}

// refreshStatus derives Status from the eligibility answers.
func (q *QualificationState) refreshStatus() {
	switch {
	case isFalse(q.AgeConfirmed) || isFalse(q.WorkAuthorization):
		q.Status = QualificationDisqualified
	case isTrue(q.AgeConfirmed) && isTrue(q.WorkAuthorization):
		q.Status = QualificationQualified
	default:
		q.Status = QualificationPending
	}
}

// ApplicationState holds the applicant's contact details and optional
// employment background.
type ApplicationState struct {
	FullName         *string `json:"fullName,omitempty"`
	Email            *string `json:"email,omitempty"`
	PhoneNumber      *string `json:"phoneNumber,omitempty"`
	Age              *int    `json:"age,omitempty"`
	YearsExperience  *int    `json:"yearsExperience,omitempty"`
	PreviousEmployer *string `json:"previousEmployer,omitempty"`
	PreviousRole     *string `json:"previousRole,omitempty"`
	Skills           *string `json:"skills,omitempty"`
	Education        *string `json:"education,omitempty"`
	Completed        bool    `json:"completed"`
}

// Channel identifies a verifiable contact channel.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPhone Channel = "phone"
)

// ChannelStatus is the verification progress of one channel.
type ChannelStatus string

const (
	ChannelNotSent  ChannelStatus = "not_sent"
	ChannelCodeSent ChannelStatus = "code_sent"
	ChannelVerified ChannelStatus = "verified"
	ChannelFailed   ChannelStatus = "failed"
	ChannelSkipped  ChannelStatus = "skipped"
)

// ChannelVerification is the per-channel verification record.
type ChannelVerification struct {
	UserID          string        `json:"userId,omitempty"`
	Code            string        `json:"code,omitempty"`
	ForVerification string        `json:"forVerification,omitempty"`
	Verified        bool          `json:"verified"`
	Status          ChannelStatus `json:"status"`
}

// Resolved reports whether the channel no longer blocks completion.
func (c ChannelVerification) Resolved() bool {
	return c.Verified || c.Status == ChannelSkipped
}

// reset forgets a previous verification of this channel.
func (c *ChannelVerification) reset() {
	c.Verified = false
	c.ForVerification = ""
	c.Code = ""
	c.Status = ChannelNotSent
}

// VerificationState holds the email and phone verification records.
type VerificationState struct {
	Email     ChannelVerification `json:"email"`
	Phone     ChannelVerification `json:"phone"`
	Completed bool                `json:"completed"`
}

// Channel returns the record for ch.
func (v *VerificationState) Channel(ch Channel) *ChannelVerification {
	if ch == ChannelPhone {
		return &v.Phone
	}
	return &v.Email
}

func newVerificationState() *VerificationState {
	return &VerificationState{
		Email: ChannelVerification{Status: ChannelNotSent},
		Phone: ChannelVerification{Status: ChannelNotSent},
	}
}

// Session is the per-visitor conversation state. It is owned by the session
// registry and must only be mutated under that session's lock.
type Session struct {
	ID           string    `json:"id"`
	CurrentStage Stage     `json:"currentStage"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	Engagement    *EngagementState    `json:"engagement,omitempty"`
	Qualification *QualificationState `json:"qualification,omitempty"`
	Application   *ApplicationState   `json:"application,omitempty"`
	Verification  *VerificationState  `json:"verification,omitempty"`

	CandidateCreated bool            `json:"candidateCreated"`
	Report           *ReportRef      `json:"report,omitempty"`
	Conclusion       ConclusionState `json:"conclusion"`
	FinalStatus      string          `json:"finalStatus,omitempty"`
}

// ReportRef records the report attached to the candidate.
type ReportRef struct {
	Path           string  `json:"path"`
	FitScore       float64 `json:"fitScore"`
	ProfileSummary string  `json:"profileSummary"`
}

// NewSession starts a session in Engagement.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:           id,
		CurrentStage: StageEngagement,
		CreatedAt:    now,
		UpdatedAt:    now,
		Engagement:   &EngagementState{},
	}
}

// EnsureQualification returns the qualification record, creating it if needed.
func (s *Session) EnsureQualification() *QualificationState {
	if s.Qualification == nil {
		s.Qualification = &QualificationState{Status: QualificationPending}
	}
	return s.Qualification
}

// EnsureApplication returns the application record, creating it if needed.
func (s *Session) EnsureApplication() *ApplicationState {
	if s.Application == nil {
		s.Application = &ApplicationState{}
	}
	return s.Application
}

// EnsureVerification returns the verification record, creating it if needed.
func (s *Session) EnsureVerification() *VerificationState {
	if s.Verification == nil {
		s.Verification = newVerificationState()
	}
	return s.Verification
}

func (s *Session) ensureEngagement() *EngagementState {
	if s.Engagement == nil {
		s.Engagement = &EngagementState{}
	}
	return s.Engagement
}

// CandidateID returns the backend candidate id, or "" when none exists.
func (s *Session) CandidateID() string {
	if s.Engagement == nil || s.Engagement.CandidateID == nil {
		return ""
	}
	return *s.Engagement.CandidateID
}

// HasCandidate reports whether a backend candidate exists for the session.
func (s *Session) HasCandidate() bool {
	return s.CandidateCreated || s.CandidateID() != ""
}

// RecordCandidate stores the candidate id. The id is set at most once;
// later calls are ignored and report false.
func (s *Session) RecordCandidate(id string, now time.Time) bool {
	if id == "" || s.HasCandidate() {
		return false
	}
	eng := s.ensureEngagement()
	eng.CandidateID = &id
	s.CandidateCreated = true
	s.UpdatedAt = now
	return true
}

// IsConcluded reports whether conclusion has finished.
func (s *Session) IsConcluded() bool {
	return s.Conclusion == ConclusionConcluded
}

// DeriveFinalStatus maps the deepest completed stage to a final status.
func (s *Session) DeriveFinalStatus() string {
	switch {
	case s.CurrentStage == StageCompleted:
		return FinalStatusCompleted
	case s.Application != nil && s.Application.Completed:
		return FinalStatusCompleted
	case s.Qualification != nil && s.Qualification.Completed:
		return FinalStatusQualifiedPending
	case s.Engagement != nil && s.Engagement.ConsentGiven:
		return FinalStatusPaused
	default:
		return FinalStatusEarlyExit
	}
}

// Clone returns a deep copy safe to read without the session lock.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.Engagement != nil {
		e := *s.Engagement
		e.CandidateID = cloneString(s.Engagement.CandidateID)
		e.UserID = cloneString(s.Engagement.UserID)
		out.Engagement = &e
	}
	if s.Qualification != nil {
		q := *s.Qualification
		q.AgeConfirmed = cloneBool(s.Qualification.AgeConfirmed)
		q.WorkAuthorization = cloneBool(s.Qualification.WorkAuthorization)
		q.ShiftPreference = cloneString(s.Qualification.ShiftPreference)
		q.AvailabilityStart = cloneString(s.Qualification.AvailabilityStart)
		q.Transportation = cloneBool(s.Qualification.Transportation)
		q.HoursPreference = cloneString(s.Qualification.HoursPreference)
		out.Qualification = &q
	}
	if s.Application != nil {
		a := *s.Application
		a.FullName = cloneString(s.Application.FullName)
		a.Email = cloneString(s.Application.Email)
		a.PhoneNumber = cloneString(s.Application.PhoneNumber)
		a.Age = cloneInt(s.Application.Age)
		a.YearsExperience = cloneInt(s.Application.YearsExperience)
		a.PreviousEmployer = cloneString(s.Application.PreviousEmployer)
		a.PreviousRole = cloneString(s.Application.PreviousRole)
		a.Skills = cloneString(s.Application.Skills)
		a.Education = cloneString(s.Application.Education)
		out.Application = &a
	}
	if s.Verification != nil {
		v := *s.Verification
		out.Verification = &v
	}
	if s.Report != nil {
		r := *s.Report
		out.Report = &r
	}
	return &out
}

func isTrue(b *bool) bool  { return b != nil && *b }
func isFalse(b *bool) bool { return b != nil && !*b }

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneBool(v *bool) *bool {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Str returns a pointer to v. Convenience for building facts.
func Str(v string) *string { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
