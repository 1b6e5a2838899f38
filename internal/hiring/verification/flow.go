// Package verification issues and checks one-time codes for the applicant's
// email and phone number.
package verification

import (
	"context"
	"time"

	"hiring_assistant_backend/internal/hiring/domain"
	"hiring_assistant_backend/internal/hiring/ports"
	"hiring_assistant_backend/platform/apperr"
	"hiring_assistant_backend/platform/logger"
)

const defaultTimeout = 15 * time.Second

// CandidateEnsurer returns the session's candidate id, creating the candidate
// when possible, or "" when the contact details are incomplete.
type CandidateEnsurer interface {
	EnsureCreated(ctx context.Context, s *domain.Session) string
}

// Options tune the flow. Zero values fall back to defaults.
type Options struct {
	ExternalTimeout time.Duration
	Now             func() time.Time
}

// Flow runs the per-channel verification state machine. The caller holds the
// session lock.
type Flow struct {
	candidates CandidateEnsurer
	codes      ports.CodeProvider
	backend    ports.BackendStore
	log        *logger.Logger
	timeout    time.Duration
	now        func() time.Time
}

// New creates a Flow. backend may be nil, which skips syncing corrected
// contact details to the candidate record.
func New(candidates CandidateEnsurer, codes ports.CodeProvider, backend ports.BackendStore, log *logger.Logger, opts Options) *Flow {
	if opts.ExternalTimeout <= 0 {
		opts.ExternalTimeout = defaultTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Flow{
		candidates: candidates,
		codes:      codes,
		backend:    backend,
		log:        log,
		timeout:    opts.ExternalTimeout,
		now:        opts.Now,
	}
}

// Send requests a code for ch. The candidate must exist first; when it cannot
// be created no code is requested.
func (f *Flow) Send(ctx context.Context, s *domain.Session, ch domain.Channel) error {
	const op = "verification.Send"
	if s.IsConcluded() {
		return apperr.AlreadyCompleted("session already concluded").WithOp(op)
	}
	value := s.ContactValue(ch)
	if value == "" {
		return apperr.MissingRequiredField(contactField(ch)).WithOp(op)
	}
	if f.candidates.EnsureCreated(ctx, s) == "" {
		missing := domain.MissingContactFields(s)
		if len(missing) == 0 {
			return apperr.ExternalUnavailable("backend", nil).WithOp(op)
		}
		return apperr.MissingRequiredField(missing...).WithOp(op)
	}

	rec := s.EnsureVerification().Channel(ch)
	if rec.Verified && rec.ForVerification == value {
		return apperr.AlreadyCompleted(string(ch) + " already verified").WithOp(op)
	}

	cctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	sent, err := f.codes.SendCode(cctx, string(ch), value)
	if err != nil {
		f.log.ExternalCallFailed("code_provider", "send_code", s.ID, err)
		return apperr.ExternalUnavailable("verification provider", err).WithOp(op)
	}

	rec.UserID = sent.UserID
	rec.Code = sent.Code
	rec.ForVerification = value
	rec.Verified = false
	rec.Status = domain.ChannelCodeSent
	s.UpdatedAt = f.now()
	f.log.Info("verification code sent", "sessionId", s.ID, "channel", ch)
	return nil
}

// Validate checks code for ch. It reports true only when the provider
// confirms the code; any other answer marks the channel failed and
// eligible for a resend.
func (f *Flow) Validate(ctx context.Context, s *domain.Session, ch domain.Channel, code string) (bool, error) {
	const op = "verification.Validate"
	if s.Verification == nil {
		return false, apperr.Validation("no code has been sent").WithOp(op)
	}
	rec := s.Verification.Channel(ch)
	if rec.Verified {
		return true, nil
	}
	if rec.UserID == "" || rec.Status == domain.ChannelNotSent {
		return false, apperr.Validation("no code has been sent").WithOp(op)
	}
	if rec.ForVerification != s.ContactValue(ch) {
		rec.Status = domain.ChannelNotSent
		rec.Code = ""
		return false, apperr.Validation(string(ch) + " changed since the code was sent").WithOp(op)
	}

	cctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	ok, err := f.codes.ValidateCode(cctx, rec.UserID, code)
	if err != nil {
		f.log.ExternalCallFailed("code_provider", "validate_code", s.ID, err)
		return false, apperr.ExternalUnavailable("verification provider", err).WithOp(op)
	}

	rec.Verified = ok
	if ok {
		rec.Status = domain.ChannelVerified
	} else {
		rec.Status = domain.ChannelFailed
	}
	s.UpdatedAt = f.now()
	return ok, nil
}

// Correct replaces the contact value for ch. A value different from the one
// verified resets that channel. The candidate record is updated best effort.
func (f *Flow) Correct(ctx context.Context, s *domain.Session, ch domain.Channel, raw string) (bool, error) {
	if s.IsConcluded() {
		return false, apperr.AlreadyCompleted("session already concluded").WithOp("verification.Correct")
	}
	var (
		reset bool
		err   error
	)
	now := f.now()
	if ch == domain.ChannelPhone {
		reset, err = s.SetPhone(raw, now)
	} else {
		reset, err = s.SetEmail(raw, now)
	}
	if err != nil {
		return false, err
	}
	if reset {
		f.log.Info("verification reset by contact change", "sessionId", s.ID, "channel", ch)
	}
	f.syncCandidate(ctx, s, ch)
	return reset, nil
}

// Skip marks ch as explicitly skipped, which resolves it for completion.
func (f *Flow) Skip(s *domain.Session, ch domain.Channel) error {
	const op = "verification.Skip"
	if s.IsConcluded() {
		return apperr.AlreadyCompleted("session already concluded").WithOp(op)
	}
	rec := s.EnsureVerification().Channel(ch)
	if rec.Verified {
		return apperr.AlreadyCompleted(string(ch) + " already verified").WithOp(op)
	}
	rec.Status = domain.ChannelSkipped
	rec.Code = ""
	s.UpdatedAt = f.now()
	return nil
}

func (f *Flow) syncCandidate(ctx context.Context, s *domain.Session, ch domain.Channel) {
	if f.backend == nil || !s.HasCandidate() {
		return
	}
	var fields ports.CandidateFields
	if ch == domain.ChannelPhone {
		fields.PhoneNumber = s.ContactValue(ch)
	} else {
		fields.Email = s.ContactValue(ch)
	}
	cctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	if err := f.backend.PatchCandidate(cctx, s.CandidateID(), fields); err != nil {
		f.log.ExternalCallFailed("backend", "patch_candidate", s.ID, err)
	}
}

func contactField(ch domain.Channel) string {
	if ch == domain.ChannelPhone {
		return "phone_number"
	}
	return "email"
}
