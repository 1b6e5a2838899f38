package notification

import (
	"context"
	"errors"
	"slices"
	"sort"
	"testing"
	"time"

	"hiring_assistant_backend/internal/events"
	"hiring_assistant_backend/internal/hiring/hiringtest"
	"hiring_assistant_backend/internal/hiring/ports"
	"hiring_assistant_backend/internal/scheduler"
	"hiring_assistant_backend/platform/logger"
)

type scheduled struct {
	payload scheduler.SessionFollowUpPayload
	runAt   time.Time
}

type fakeFollowUps struct {
	calls []scheduled
	err   error
}

func (f *fakeFollowUps) ScheduleSessionFollowUp(_ context.Context, payload scheduler.SessionFollowUpPayload, runAt time.Time) error {
	f.calls = append(f.calls, scheduled{payload: payload, runAt: runAt})
	return f.err
}

func newTestModule(backend *hiringtest.Backend, followUps scheduler.FollowUpScheduler) *Module {
	m := New(backend, followUps, time.Hour, logger.Discard())
	m.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return m
}

func TestStageAdvancedPostsSystemMessage(t *testing.T) {
	backend := hiringtest.NewBackend()
	m := newTestModule(backend, nil)

	err := m.Handle(context.Background(), events.StageAdvanced{SessionID: "s1", BackendSessionID: "b1", From: "engagement", To: "qualification"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(backend.Messages) != 1 {
		t.Fatalf("messages = %+v", backend.Messages)
	}
	msg := backend.Messages[0]
	if msg.SessionID != "b1" || msg.Creator != ports.CreatorSystem {
		t.Fatalf("message = %+v", msg)
	}
}

func TestChatTurnPostsUserAndAssistantMessages(t *testing.T) {
	backend := hiringtest.NewBackend()
	m := newTestModule(backend, nil)

	err := m.Handle(context.Background(), events.ChatTurnCompleted{
		SessionID: "s1",
		UserText:  "hi",
		Replies:   []string{"hello", " ", "how can I help?"},
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	want := []hiringtest.Message{
		{SessionID: "s1", Text: "hi", Creator: ports.CreatorUser},
		{SessionID: "s1", Text: "hello", Creator: ports.CreatorAssistant},
		{SessionID: "s1", Text: "how can I help?", Creator: ports.CreatorAssistant},
	}
	if len(backend.Messages) != len(want) {
		t.Fatalf("messages = %+v", backend.Messages)
	}
	for i := range want {
		if backend.Messages[i] != want[i] {
			t.Fatalf("message %d = %+v, want %+v", i, backend.Messages[i], want[i])
		}
	}
}

func TestSessionConcludedSchedulesFollowUp(t *testing.T) {
	tests := []struct {
		name          string
		event         events.SessionConcluded
		followUps     *fakeFollowUps
		wantScheduled int
	}{
		{
			name:          "with candidate",
			event:         events.SessionConcluded{SessionID: "s1", FinalStatus: "Completed", Reason: "agent", CandidateID: "c1", FitScore: 81},
			followUps:     &fakeFollowUps{},
			wantScheduled: 1,
		},
		{
			name:          "without candidate",
			event:         events.SessionConcluded{SessionID: "s1", FinalStatus: "Early Exit", Reason: "idle"},
			followUps:     &fakeFollowUps{},
			wantScheduled: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := hiringtest.NewBackend()
			m := newTestModule(backend, tt.followUps)

			if err := m.Handle(context.Background(), tt.event); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if backend.MessageCount() != 1 {
				t.Fatalf("messages = %+v", backend.Messages)
			}
			if len(tt.followUps.calls) != tt.wantScheduled {
				t.Fatalf("scheduled = %+v", tt.followUps.calls)
			}
			if tt.wantScheduled == 0 {
				return
			}
			call := tt.followUps.calls[0]
			if call.payload.CandidateID != "c1" || call.payload.SessionID != "s1" || call.payload.FitScore != 81 {
				t.Fatalf("payload = %+v", call.payload)
			}
			if want := m.now().Add(time.Hour); !call.runAt.Equal(want) {
				t.Fatalf("runAt = %v, want %v", call.runAt, want)
			}
		})
	}
}

func TestSessionConcludedReportsFailures(t *testing.T) {
	backend := hiringtest.NewBackend()
	followUps := &fakeFollowUps{err: errors.New("redis down")}
	m := newTestModule(backend, followUps)

	event := events.SessionConcluded{SessionID: "s1", FinalStatus: "Completed", CandidateID: "c1"}
	if err := m.Handle(context.Background(), event); err == nil {
		t.Fatalf("schedule failure not reported")
	}

	backend.FailPost = true
	followUps.err = nil
	if err := m.Handle(context.Background(), event); err == nil {
		t.Fatalf("post failure not reported")
	}
	if len(followUps.calls) != 2 {
		t.Fatalf("follow-up skipped after post failure: %d calls", len(followUps.calls))
	}
}

func TestRegisterHandlersSubscribesThroughBus(t *testing.T) {
	backend := hiringtest.NewBackend()
	bus := events.NewInMemoryBus(logger.Discard())
	newTestModule(backend, nil).RegisterHandlers(bus)

	err := bus.PublishSync(context.Background(), events.VerificationReset{SessionID: "s1", Channel: "email"})
	if err != nil {
		t.Fatalf("PublishSync() error = %v", err)
	}
	if backend.MessageCount() != 1 {
		t.Fatalf("messages = %+v", backend.Messages)
	}
}

func TestAuditTrailFollowsEventTime(t *testing.T) {
	backend := hiringtest.NewBackend()
	bus := events.NewInMemoryBus(logger.Discard())
	newTestModule(backend, nil).RegisterHandlers(bus)
	ctx := context.Background()
	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	// A turn that advances the stage and ends the session, then a late second turn.
	bus.Publish(ctx, events.StageAdvanced{BaseEvent: events.BaseEventAt(t0.Add(time.Second)), SessionID: "s1", From: "verification", To: "conclusion"})
	bus.Publish(ctx, events.SessionConcluded{BaseEvent: events.BaseEventAt(t0.Add(2 * time.Second)), SessionID: "s1", FinalStatus: "Completed", Reason: "agent"})
	bus.Publish(ctx, events.ChatTurnCompleted{
		BaseEvent: events.BaseEventAt(t0.Add(3 * time.Second)),
		SessionID: "s1",
		UserText:  "that's everything",
		UserAt:    t0,
		Replies:   []string{"Thanks!", "Goodbye."},
	})
	bus.Publish(ctx, events.ChatTurnCompleted{
		BaseEvent: events.BaseEventAt(t0.Add(5 * time.Second)),
		SessionID: "s1",
		UserText:  "one more thing",
		UserAt:    t0.Add(4 * time.Second),
		Replies:   []string{"The session has ended."},
	})
	bus.Wait()

	delivered := make([]string, 0, len(backend.Messages))
	for _, msg := range backend.Messages {
		delivered = append(delivered, msg.Text)
	}
	wantDelivered := []string{
		"Stage advanced from verification to conclusion.",
		`Session concluded with status "Completed" (agent).`,
		"that's everything", "Thanks!", "Goodbye.",
		"one more thing", "The session has ended.",
	}
	if !slices.Equal(delivered, wantDelivered) {
		t.Fatalf("delivery order = %q, want %q", delivered, wantDelivered)
	}

	stored := append([]hiringtest.Message(nil), backend.Messages...)
	sort.SliceStable(stored, func(i, j int) bool { return stored[i].CreatedAt.Before(stored[j].CreatedAt) })
	trail := make([]string, 0, len(stored))
	for _, msg := range stored {
		if msg.CreatedAt.IsZero() {
			t.Fatalf("message %q has no time", msg.Text)
		}
		trail = append(trail, msg.Text)
	}
	wantTrail := []string{
		"that's everything",
		"Stage advanced from verification to conclusion.",
		`Session concluded with status "Completed" (agent).`,
		"Thanks!", "Goodbye.",
		"one more thing", "The session has ended.",
	}
	if !slices.Equal(trail, wantTrail) {
		t.Fatalf("stored order = %q, want %q", trail, wantTrail)
	}
}
