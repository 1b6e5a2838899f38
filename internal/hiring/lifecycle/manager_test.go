package lifecycle

import (
	"context"
	"strings"
	"testing"
	"time"

	"hiring_assistant_backend/internal/hiring/domain"
	"hiring_assistant_backend/internal/hiring/hiringtest"
	"hiring_assistant_backend/internal/hiring/history"
	"hiring_assistant_backend/internal/hiring/ports"
	"hiring_assistant_backend/platform/apperr"
	"hiring_assistant_backend/platform/logger"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixture struct {
	backend *hiringtest.Backend
	reports *hiringtest.Reports
	history *history.MemoryStore
	manager *Manager
}

func newFixture() *fixture {
	f := &fixture{
		backend: hiringtest.NewBackend(),
		reports: &hiringtest.Reports{FitScore: 72.5},
		history: history.NewMemoryStore(),
	}
	f.manager = New(f.backend, f.reports, f.history, nil, logger.Discard(), Options{
		ExternalTimeout: time.Second,
		Now:             func() time.Time { return testNow },
	})
	return f
}

func sessionWithContacts(id string, name, email, phone string) *domain.Session {
	s := domain.NewSession(id, testNow)
	s.CurrentStage = domain.StageApplication
	app := s.EnsureApplication()
	if name != "" {
		app.FullName = domain.Str(name)
	}
	if email != "" {
		app.Email = domain.Str(email)
	}
	if phone != "" {
		app.PhoneNumber = domain.Str(phone)
	}
	return s
}

func TestCreateEarlyWithoutPhoneCreatesNothing(t *testing.T) {
	f := newFixture()
	s := sessionWithContacts("s1", "Jane Doe", "jane@x.com", "")

	id, err := f.manager.CreateEarly(context.Background(), s)
	if !apperr.Is(err, apperr.KindMissingRequiredField) {
		t.Fatalf("CreateEarly() error = %v, want missing required field", err)
	}
	if id != "" {
		t.Fatalf("id = %q, want empty", id)
	}
	if got := apperr.MissingFields(err); len(got) != 1 || got[0] != "phone_number" {
		t.Fatalf("missing fields = %v", got)
	}
	if f.backend.CreateCount() != 0 {
		t.Fatalf("candidate created without phone")
	}
	if s.HasCandidate() {
		t.Fatalf("session records a candidate")
	}
}

func TestCreateEarlyIsIdempotent(t *testing.T) {
	f := newFixture()
	s := sessionWithContacts("s1", "Jane Doe", "jane@x.com", "+16502530000")

	first, err := f.manager.CreateEarly(context.Background(), s)
	if err != nil {
		t.Fatalf("CreateEarly() error = %v", err)
	}
	second, err := f.manager.CreateEarly(context.Background(), s)
	if err != nil || second != first {
		t.Fatalf("second CreateEarly() = %q, %v; want %q", second, err, first)
	}
	if f.backend.CreateCount() != 1 {
		t.Fatalf("creates = %d, want 1", f.backend.CreateCount())
	}
	created := f.backend.Created[0]
	if created.FitScore == nil || *created.FitScore != 0 || created.ReportPath != nil {
		t.Fatalf("early candidate should have zero score and no report: %+v", created)
	}
}

func TestEnsureCreatedReturnsEmptyOnFailure(t *testing.T) {
	f := newFixture()
	s := sessionWithContacts("s1", "Jane Doe", "", "")
	if id := f.manager.EnsureCreated(context.Background(), s); id != "" {
		t.Fatalf("EnsureCreated() = %q, want empty", id)
	}

	s = sessionWithContacts("s2", "Jane Doe", "jane@x.com", "+16502530000")
	f.backend.FailCreate = true
	if id := f.manager.EnsureCreated(context.Background(), s); id != "" {
		t.Fatalf("EnsureCreated() with failing backend = %q", id)
	}
	f.backend.FailCreate = false
	if id := f.manager.EnsureCreated(context.Background(), s); id == "" {
		t.Fatalf("EnsureCreated() did not create once the backend recovered")
	}
}

func TestPatchWithReportOnce(t *testing.T) {
	f := newFixture()
	s := sessionWithContacts("s1", "Jane Doe", "jane@x.com", "+16502530000")

	if _, err := f.manager.PatchWithReport(context.Background(), s); !apperr.Is(err, apperr.KindMissingRequiredField) {
		t.Fatalf("patch without candidate: %v", err)
	}

	id := f.manager.EnsureCreated(context.Background(), s)
	report, err := f.manager.PatchWithReport(context.Background(), s)
	if err != nil {
		t.Fatalf("PatchWithReport() error = %v", err)
	}
	if report.FitScore != 72.5 || s.Report == nil {
		t.Fatalf("report not recorded: %+v", s.Report)
	}
	if _, err := f.manager.PatchWithReport(context.Background(), s); !apperr.Is(err, apperr.KindAlreadyCompleted) {
		t.Fatalf("second patch: %v", err)
	}
	if f.backend.PatchCount(id) != 1 {
		t.Fatalf("patches = %d, want 1", f.backend.PatchCount(id))
	}
}

func TestConcludeIsOneShot(t *testing.T) {
	tests := []struct {
		name    string
		session func() *domain.Session
		early   bool
		status  string
	}{
		{
			name:    "creates candidate at conclusion",
			session: func() *domain.Session { return sessionWithContacts("s1", "Jane Doe", "jane@x.com", "+16502530000") },
			status:  domain.FinalStatusEarlyExit,
		},
		{
			name: "patches early candidate",
			session: func() *domain.Session {
				s := sessionWithContacts("s2", "Jane Doe", "jane@x.com", "+16502530000")
				s.Engagement.ConsentGiven = true
				return s
			},
			early:  true,
			status: domain.FinalStatusPaused,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			s := tt.session()
			if tt.early {
				if _, err := f.manager.CreateEarly(context.Background(), s); err != nil {
					t.Fatalf("CreateEarly() error = %v", err)
				}
			}

			first := f.manager.Conclude(context.Background(), s, "user_ended")
			if first.Status != tt.status || first.AlreadyConcluded {
				t.Fatalf("first Conclude() = %+v, want status %q", first, tt.status)
			}
			for i := 0; i < 4; i++ {
				again := f.manager.Conclude(context.Background(), s, "idle_timeout")
				if again.Status != first.Status || !again.AlreadyConcluded {
					t.Fatalf("call %d = %+v, want %q already concluded", i+2, again, first.Status)
				}
			}

			id := s.CandidateID()
			sideEffects := f.backend.CreateCount() + f.backend.PatchCount(id)
			if tt.early {
				sideEffects--
			}
			if sideEffects != 1 {
				t.Fatalf("conclusion side effects = %d, want 1", sideEffects)
			}
			if f.backend.UpdateCount(s.ID) != 1 {
				t.Fatalf("session updates = %d, want 1", f.backend.UpdateCount(s.ID))
			}
			if f.reports.Calls != 1 {
				t.Fatalf("reports generated = %d, want 1", f.reports.Calls)
			}
			if !s.IsConcluded() {
				t.Fatalf("session not marked concluded")
			}
		})
	}
}

func TestConcludeStuckInApplicationWithOnlyName(t *testing.T) {
	f := newFixture()
	s := sessionWithContacts("s1", "Jane Doe", "", "")

	out := f.manager.Conclude(context.Background(), s, "idle_timeout")
	if out.Status != domain.FinalStatusEarlyExit {
		t.Fatalf("status = %q, want %q", out.Status, domain.FinalStatusEarlyExit)
	}
	if out.CandidateID != "" || f.backend.CreateCount() != 0 {
		t.Fatalf("candidate created with incomplete contacts")
	}
	if !s.IsConcluded() {
		t.Fatalf("session not concluded")
	}
	if f.backend.UpdateCount(s.ID) != 1 {
		t.Fatalf("conclusion not persisted")
	}
}

func TestConcludeSurvivesCollaboratorFailures(t *testing.T) {
	f := newFixture()
	f.reports.Fail = true
	f.backend.FailCreate = true
	f.backend.FailUpdate = true
	f.backend.FailGet = true
	s := sessionWithContacts("s1", "Jane Doe", "jane@x.com", "+16502530000")
	s.EnsureQualification().Completed = true

	out := f.manager.Conclude(context.Background(), s, "user_ended")
	if out.Status != domain.FinalStatusQualifiedPending {
		t.Fatalf("status = %q", out.Status)
	}
	if !s.IsConcluded() || s.Report != nil {
		t.Fatalf("unexpected state: concluded=%v report=%+v", s.IsConcluded(), s.Report)
	}
}

func TestConcludeIgnoresCancelledContext(t *testing.T) {
	f := newFixture()
	s := sessionWithContacts("s1", "Jane Doe", "jane@x.com", "+16502530000")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f.manager.Conclude(ctx, s, "shutdown")
	if f.backend.CreateCount() != 1 {
		t.Fatalf("cancelled caller context aborted conclusion")
	}
}

func TestConcludeRecoversFromBackendSession(t *testing.T) {
	f := newFixture()
	s := sessionWithContacts("s1", "Jane Doe", "", "")
	s.Engagement.BackendSessionID = "backend-1"
	f.backend.Sessions["backend-1"] = &ports.SessionRecord{
		ID:          "backend-1",
		Email:       "Jane@X.com",
		PhoneNumber: "+1 650 253 0000",
	}

	out := f.manager.Conclude(context.Background(), s, "user_ended")
	if out.CandidateID == "" || f.backend.CreateCount() != 1 {
		t.Fatalf("candidate not created from backend contacts: %+v", out)
	}
	created := f.backend.Created[0]
	if created.Email != "jane@x.com" || created.PhoneNumber != "+16502530000" {
		t.Fatalf("created = %+v", created)
	}
	if created.ReportPath == nil {
		t.Fatalf("conclusion candidate missing report")
	}
}

func TestConcludeAdoptsBackendCandidate(t *testing.T) {
	f := newFixture()
	s := sessionWithContacts("s1", "", "", "")
	f.backend.Sessions["s1"] = &ports.SessionRecord{ID: "s1", CandidateID: "cand-existing"}

	out := f.manager.Conclude(context.Background(), s, "user_ended")
	if out.CandidateID != "cand-existing" {
		t.Fatalf("candidate = %q", out.CandidateID)
	}
	if f.backend.CreateCount() != 0 {
		t.Fatalf("duplicate candidate created")
	}
	if f.backend.PatchCount("cand-existing") != 1 {
		t.Fatalf("existing candidate not patched with report")
	}
}

func TestConcludeRecoversFromHistory(t *testing.T) {
	f := newFixture()
	s := sessionWithContacts("s1", "", "", "")
	ctx := context.Background()
	for _, e := range []ports.HistoryEntry{
		{Role: history.RoleAssistant, Text: "What is your name?"},
		{Role: history.RoleUser, Text: "My name is Jane Doe"},
		{Role: history.RoleUser, Text: "reach me at jane@x.com or 650-253-0000"},
	} {
		_ = f.history.Append(ctx, s.ID, e)
	}
	reasoner := &hiringtest.Reasoner{}
	f.manager.SetReasoner(reasoner)

	out := f.manager.Conclude(ctx, s, "user_ended")
	if out.CandidateID == "" {
		t.Fatalf("candidate not created from transcript")
	}
	if got := *s.Application.FullName; got != "Jane Doe" {
		t.Fatalf("name = %q", got)
	}
	if reasoner.Calls() != 0 {
		t.Fatalf("reasoner re-prompted although history sufficed")
	}
}

func TestConcludeDoesNotTakeDateAsPhone(t *testing.T) {
	f := newFixture()
	s := sessionWithContacts("s1", "", "", "")
	ctx := context.Background()
	for _, e := range []ports.HistoryEntry{
		{Role: history.RoleUser, Text: "My name is Jane Doe, email jane@x.com"},
		{Role: history.RoleUser, Text: "I can start on 2025-06-01"},
	} {
		_ = f.history.Append(ctx, s.ID, e)
	}

	out := f.manager.Conclude(ctx, s, "user_ended")
	if out.CandidateID != "" || f.backend.CreateCount() != 0 {
		t.Fatalf("candidate created from a date: id=%q creates=%d", out.CandidateID, f.backend.CreateCount())
	}
	if s.Application.PhoneNumber != nil {
		t.Fatalf("phone = %q, want unset", *s.Application.PhoneNumber)
	}
	if got := *s.Application.Email; got != "jane@x.com" {
		t.Fatalf("email = %q", got)
	}
}

func TestConcludeRepromptsReasonerOnce(t *testing.T) {
	f := newFixture()
	s := sessionWithContacts("s1", "Jane Doe", "", "")
	reasoner := &hiringtest.Reasoner{}
	f.manager.SetReasoner(reasoner)

	out := f.manager.Conclude(context.Background(), s, "user_ended")
	if reasoner.Calls() != 1 {
		t.Fatalf("reasoner calls = %d, want 1", reasoner.Calls())
	}
	if !strings.Contains(reasoner.Prompts[0], "email") || !strings.Contains(reasoner.Prompts[0], "phone_number") {
		t.Fatalf("prompt does not list missing fields: %q", reasoner.Prompts[0])
	}
	if out.CandidateID != "" || out.Status != domain.FinalStatusEarlyExit {
		t.Fatalf("outcome = %+v", out)
	}
}

func TestConcludeReasonerRecoveryFillsContacts(t *testing.T) {
	f := newFixture()
	s := sessionWithContacts("s1", "Jane Doe", "jane@x.com", "")
	reasoner := &hiringtest.Reasoner{OnProcess: func(s *domain.Session, _ string) {
		_, _ = s.SetPhone("+16502530000", testNow)
	}}
	f.manager.SetReasoner(reasoner)

	out := f.manager.Conclude(context.Background(), s, "user_ended")
	if out.CandidateID == "" || f.backend.CreateCount() != 1 {
		t.Fatalf("candidate not created after reasoner recovery: %+v", out)
	}
}

func TestConcludeFromReasonerToolIsNoop(t *testing.T) {
	f := newFixture()
	s := sessionWithContacts("s1", "Jane Doe", "", "")
	var nested Outcome
	reasoner := &hiringtest.Reasoner{OnProcess: func(s *domain.Session, _ string) {
		nested = f.manager.Conclude(context.Background(), s, "reasoner")
	}}
	f.manager.SetReasoner(reasoner)

	f.manager.Conclude(context.Background(), s, "user_ended")
	if !nested.AlreadyConcluded {
		t.Fatalf("nested conclusion ran: %+v", nested)
	}
	if f.backend.UpdateCount(s.ID) != 1 {
		t.Fatalf("session updates = %d, want 1", f.backend.UpdateCount(s.ID))
	}
}
