package verification

import (
	"context"
	"testing"
	"time"

	"hiring_assistant_backend/internal/hiring/domain"
	"hiring_assistant_backend/internal/hiring/hiringtest"
	"hiring_assistant_backend/internal/hiring/lifecycle"
	"hiring_assistant_backend/platform/apperr"
	"hiring_assistant_backend/platform/logger"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixture struct {
	backend *hiringtest.Backend
	codes   *hiringtest.Codes
	flow    *Flow
}

func newFixture() *fixture {
	backend := hiringtest.NewBackend()
	codes := hiringtest.NewCodes("123456")
	opts := lifecycle.Options{Now: func() time.Time { return testNow }}
	manager := lifecycle.New(backend, &hiringtest.Reports{}, nil, nil, logger.Discard(), opts)
	flow := New(manager, codes, backend, logger.Discard(), Options{Now: opts.Now})
	return &fixture{backend: backend, codes: codes, flow: flow}
}

func applicant() *domain.Session {
	s := domain.NewSession("s1", testNow)
	s.CurrentStage = domain.StageVerification
	app := s.EnsureApplication()
	app.FullName = domain.Str("Jane Doe")
	app.Email = domain.Str("jane@x.com")
	app.PhoneNumber = domain.Str("+16502530000")
	s.EnsureVerification()
	return s
}

func TestSendRefusedWithoutCandidateDetails(t *testing.T) {
	f := newFixture()
	s := domain.NewSession("s1", testNow)
	s.EnsureApplication().Email = domain.Str("jane@x.com")

	err := f.flow.Send(context.Background(), s, domain.ChannelEmail)
	if !apperr.Is(err, apperr.KindMissingRequiredField) {
		t.Fatalf("Send() error = %v, want missing required field", err)
	}
	if f.codes.SendCount() != 0 {
		t.Fatalf("code requested without candidate")
	}
	if f.backend.CreateCount() != 0 {
		t.Fatalf("candidate created with incomplete details")
	}
}

func TestSendCreatesCandidateOnDemand(t *testing.T) {
	f := newFixture()
	s := applicant()

	if err := f.flow.Send(context.Background(), s, domain.ChannelEmail); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if f.backend.CreateCount() != 1 || !s.HasCandidate() {
		t.Fatalf("candidate not created before sending")
	}
	rec := s.Verification.Email
	if rec.Status != domain.ChannelCodeSent || rec.UserID == "" || rec.Code != "123456" {
		t.Fatalf("record = %+v", rec)
	}
	if rec.ForVerification != "jane@x.com" {
		t.Fatalf("for_verification = %q", rec.ForVerification)
	}

	if err := f.flow.Send(context.Background(), s, domain.ChannelPhone); err != nil {
		t.Fatalf("Send(phone) error = %v", err)
	}
	if f.backend.CreateCount() != 1 {
		t.Fatalf("second send created another candidate")
	}
}

func TestSendProviderFailure(t *testing.T) {
	f := newFixture()
	f.codes.FailSend = true
	s := applicant()

	err := f.flow.Send(context.Background(), s, domain.ChannelPhone)
	if !apperr.Is(err, apperr.KindExternalUnavailable) {
		t.Fatalf("Send() error = %v", err)
	}
	if s.Verification.Phone.Status != domain.ChannelNotSent {
		t.Fatalf("status = %q after failed send", s.Verification.Phone.Status)
	}
}

func TestValidateStateMachine(t *testing.T) {
	f := newFixture()
	s := applicant()
	ctx := context.Background()

	if _, err := f.flow.Validate(ctx, s, domain.ChannelEmail, "123456"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("validate before send: %v", err)
	}

	_ = f.flow.Send(ctx, s, domain.ChannelEmail)
	ok, err := f.flow.Validate(ctx, s, domain.ChannelEmail, "000000")
	if err != nil || ok {
		t.Fatalf("wrong code = %v, %v", ok, err)
	}
	if s.Verification.Email.Status != domain.ChannelFailed || s.Verification.Email.Verified {
		t.Fatalf("wrong code record = %+v", s.Verification.Email)
	}

	if err := f.flow.Send(ctx, s, domain.ChannelEmail); err != nil {
		t.Fatalf("resend after failure: %v", err)
	}
	ok, err = f.flow.Validate(ctx, s, domain.ChannelEmail, "123456")
	if err != nil || !ok {
		t.Fatalf("right code = %v, %v", ok, err)
	}
	if s.Verification.Email.Status != domain.ChannelVerified || !s.Verification.Email.Verified {
		t.Fatalf("verified record = %+v", s.Verification.Email)
	}

	if err := f.flow.Send(ctx, s, domain.ChannelEmail); !apperr.Is(err, apperr.KindAlreadyCompleted) {
		t.Fatalf("send after verification: %v", err)
	}
}

func TestCorrectionResetsVerifiedChannel(t *testing.T) {
	tests := []struct {
		name    string
		channel domain.Channel
		value   string
	}{
		{name: "email", channel: domain.ChannelEmail, value: "jane.doe@x.com"},
		{name: "phone", channel: domain.ChannelPhone, value: "+16502530001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			s := applicant()
			ctx := context.Background()
			_ = f.flow.Send(ctx, s, tt.channel)
			if ok, _ := f.flow.Validate(ctx, s, tt.channel, "123456"); !ok {
				t.Fatalf("setup: channel not verified")
			}

			reset, err := f.flow.Correct(ctx, s, tt.channel, tt.value)
			if err != nil || !reset {
				t.Fatalf("Correct() = %v, %v; want reset", reset, err)
			}
			rec := s.Verification.Channel(tt.channel)
			if rec.Verified || rec.ForVerification != "" || rec.Status != domain.ChannelNotSent {
				t.Fatalf("record after correction = %+v", rec)
			}
			if s.ContactValue(tt.channel) != tt.value {
				t.Fatalf("value = %q", s.ContactValue(tt.channel))
			}
			if f.backend.PatchCount(s.CandidateID()) != 1 {
				t.Fatalf("candidate not synced")
			}
		})
	}
}

func TestCorrectionRejectsInvalidValue(t *testing.T) {
	f := newFixture()
	s := applicant()
	if _, err := f.flow.Correct(context.Background(), s, domain.ChannelEmail, "not-an-email"); !apperr.Is(err, apperr.KindInvalidFormat) {
		t.Fatalf("Correct() error = %v", err)
	}
	if s.ContactValue(domain.ChannelEmail) != "jane@x.com" {
		t.Fatalf("invalid value written")
	}
}

func TestValidateAfterUnverifiedChangeNeedsResend(t *testing.T) {
	f := newFixture()
	s := applicant()
	ctx := context.Background()
	_ = f.flow.Send(ctx, s, domain.ChannelPhone)
	if _, err := f.flow.Correct(ctx, s, domain.ChannelPhone, "+16502530001"); err != nil {
		t.Fatalf("Correct() error = %v", err)
	}

	if _, err := f.flow.Validate(ctx, s, domain.ChannelPhone, "123456"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("validate stale code: %v", err)
	}
	if s.Verification.Phone.Verified {
		t.Fatalf("stale code verified the new number")
	}
}

func TestSkip(t *testing.T) {
	f := newFixture()
	s := applicant()
	if err := f.flow.Skip(s, domain.ChannelPhone); err != nil {
		t.Fatalf("Skip() error = %v", err)
	}
	if !s.Verification.Phone.Resolved() {
		t.Fatalf("skipped channel not resolved")
	}
}

func TestConcludedSessionRejectsVerificationChanges(t *testing.T) {
	f := newFixture()
	s := applicant()
	s.Conclusion = domain.ConclusionConcluded
	ctx := context.Background()

	if err := f.flow.Skip(s, domain.ChannelPhone); !apperr.Is(err, apperr.KindAlreadyCompleted) {
		t.Fatalf("Skip() error = %v, want already completed", err)
	}
	if s.Verification.Phone.Resolved() {
		t.Fatalf("concluded session skipped a channel")
	}

	reset, err := f.flow.Correct(ctx, s, domain.ChannelEmail, "jane.doe@x.com")
	if !apperr.Is(err, apperr.KindAlreadyCompleted) || reset {
		t.Fatalf("Correct() = %v, %v; want already completed", reset, err)
	}
	if s.ContactValue(domain.ChannelEmail) != "jane@x.com" {
		t.Fatalf("concluded session changed email to %q", s.ContactValue(domain.ChannelEmail))
	}
	if f.backend.PatchCount(s.CandidateID()) != 0 {
		t.Fatalf("candidate patched after conclusion")
	}
}
