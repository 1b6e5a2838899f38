package tools

import (
	"context"
	"strings"
	"testing"
	"time"

	"hiring_assistant_backend/internal/events"
	"hiring_assistant_backend/internal/hiring/domain"
	"hiring_assistant_backend/internal/hiring/hiringtest"
	"hiring_assistant_backend/internal/hiring/lifecycle"
	"hiring_assistant_backend/internal/hiring/verification"
	"hiring_assistant_backend/platform/apperr"
	"hiring_assistant_backend/platform/logger"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixture struct {
	backend *hiringtest.Backend
	codes   *hiringtest.Codes
	bus     *hiringtest.Bus
	tools   *Service
}

func newFixture() *fixture {
	now := func() time.Time { return testNow }
	backend := hiringtest.NewBackend()
	codes := hiringtest.NewCodes("4242")
	bus := &hiringtest.Bus{}
	lc := lifecycle.New(backend, &hiringtest.Reports{FitScore: 81}, nil, bus, logger.Discard(), lifecycle.Options{Now: now})
	flow := verification.New(lc, codes, backend, logger.Discard(), verification.Options{Now: now})
	return &fixture{
		backend: backend,
		codes:   codes,
		bus:     bus,
		tools:   New(lc, flow, bus, logger.Discard(), now),
	}
}

func TestFullConversation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	s := domain.NewSession("s1", testNow)

	f.tools.GiveConsent(ctx, s, true, "job-7", "en")
	if s.CurrentStage != domain.StageQualification {
		t.Fatalf("stage after consent = %s", s.CurrentStage)
	}

	f.tools.SaveQualification(ctx, s, QualificationInput{
		AgeConfirmed:      domain.Bool(true),
		WorkAuthorization: domain.Bool(true),
	})
	if s.CurrentStage != domain.StageQualification {
		t.Fatalf("advanced without shift preference")
	}
	f.tools.SaveQualification(ctx, s, QualificationInput{
		ShiftPreference:   domain.Str("nights"),
		AvailabilityStart: domain.Str("next week"),
	})
	if s.CurrentStage != domain.StageApplication {
		t.Fatalf("stage after qualification = %s", s.CurrentStage)
	}

	msg := f.tools.SaveName(ctx, s, "Jane Doe")
	if !strings.Contains(msg, "email address and phone number") {
		t.Fatalf("SaveName() = %q", msg)
	}
	f.tools.SaveEmail(ctx, s, "Jane@X.com")
	f.tools.SavePhone(ctx, s, "(650) 253-0000")
	if s.CurrentStage != domain.StageVerification {
		t.Fatalf("stage after contacts = %s", s.CurrentStage)
	}

	msg = f.tools.SendCode(ctx, s, domain.ChannelEmail)
	if !strings.Contains(msg, "jane@x.com") {
		t.Fatalf("SendCode() = %q", msg)
	}
	msg = f.tools.ValidateCode(ctx, s, domain.ChannelEmail, "0000")
	if !strings.Contains(msg, "not correct") {
		t.Fatalf("ValidateCode(wrong) = %q", msg)
	}
	f.tools.ValidateCode(ctx, s, domain.ChannelEmail, "4242")
	f.tools.SkipVerification(ctx, s, domain.ChannelPhone)
	if s.CurrentStage != domain.StageCompleted {
		t.Fatalf("stage after verification = %s (%s)", s.CurrentStage, domain.GuardBlockReason(s))
	}

	if got := len(f.bus.Named(events.StageAdvanced{}.EventName())); got != 4 {
		t.Fatalf("stage events = %d, want 4", got)
	}
	if got := len(f.bus.Named(events.CandidateCreated{}.EventName())); got != 1 {
		t.Fatalf("candidate events = %d, want 1", got)
	}

	msg = f.tools.ConcludeSession(ctx, s, "")
	if !strings.Contains(msg, domain.FinalStatusCompleted) {
		t.Fatalf("ConcludeSession() = %q", msg)
	}
	msg = f.tools.ConcludeSession(ctx, s, "")
	if !strings.Contains(msg, "already concluded") {
		t.Fatalf("second ConcludeSession() = %q", msg)
	}
	if f.backend.CreateCount() != 1 {
		t.Fatalf("creates = %d", f.backend.CreateCount())
	}
}

func TestSendCodeAsksToCompleteApplication(t *testing.T) {
	f := newFixture()
	s := domain.NewSession("s1", testNow)
	s.CurrentStage = domain.StageApplication
	f.tools.SaveEmail(context.Background(), s, "jane@x.com")

	msg := f.tools.SendCode(context.Background(), s, domain.ChannelEmail)
	if !strings.Contains(msg, "complete your application first") {
		t.Fatalf("SendCode() = %q", msg)
	}
	if f.codes.SendCount() != 0 {
		t.Fatalf("code requested")
	}
}

func TestInvalidInputsReturnCorrectiveMessages(t *testing.T) {
	tests := []struct {
		name string
		run  func(*Service, *domain.Session) string
		want string
	}{
		{
			name: "email",
			run:  func(t *Service, s *domain.Session) string { return t.SaveEmail(context.Background(), s, "jane@") },
			want: "valid email address",
		},
		{
			name: "phone",
			run:  func(t *Service, s *domain.Session) string { return t.SavePhone(context.Background(), s, "12") },
			want: "valid phone number",
		},
		{
			name: "age",
			run:  func(t *Service, s *domain.Session) string { return t.SaveAge(context.Background(), s, 9) },
			want: "valid age",
		},
		{
			name: "create early without details",
			run:  func(t *Service, s *domain.Session) string { return t.CreateCandidateEarly(context.Background(), s) },
			want: "Please provide your full name, email address and phone number.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			s := domain.NewSession("s1", testNow)
			if got := tt.run(f.tools, s); !strings.Contains(got, tt.want) {
				t.Fatalf("message = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestUpdateContactPublishesReset(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	s := domain.NewSession("s1", testNow)
	s.CurrentStage = domain.StageApplication
	f.tools.SaveName(ctx, s, "Jane Doe")
	f.tools.SaveEmail(ctx, s, "jane@x.com")
	f.tools.SavePhone(ctx, s, "+16502530000")
	f.tools.SendCode(ctx, s, domain.ChannelPhone)
	f.tools.ValidateCode(ctx, s, domain.ChannelPhone, "4242")

	msg := f.tools.SavePhone(ctx, s, "+16502530001")
	if !strings.Contains(msg, "verified again") {
		t.Fatalf("SavePhone() = %q", msg)
	}
	if s.Verification.Phone.Verified {
		t.Fatalf("phone still verified")
	}
	if s.CurrentStage != domain.StageVerification {
		t.Fatalf("stage = %s, corrections must not regress", s.CurrentStage)
	}
	if got := len(f.bus.Named(events.VerificationReset{}.EventName())); got != 1 {
		t.Fatalf("reset events = %d, want 1", got)
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{apperr.MissingRequiredField("phone_number"), "Please provide your phone number."},
		{apperr.InvalidFormat("email"), "That email address doesn't look right. Please provide a valid email address."},
		{apperr.ExternalUnavailable("backend", nil), msgRetryLater},
		{apperr.AlreadyCompleted("report already attached"), "Report already attached."},
	}
	for _, tt := range tests {
		if got := errorMessage(tt.err); got != tt.want {
			t.Errorf("errorMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
