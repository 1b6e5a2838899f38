package scheduler

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"hiring_assistant_backend/internal/hiring/hiringtest"
	"hiring_assistant_backend/internal/hiring/ports"
	"hiring_assistant_backend/platform/logger"

	"github.com/hibiken/asynq"
)

func TestParseSessionFollowUpPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		wantErr bool
	}{
		{name: "valid", payload: []byte(`{"sessionId":"s1","candidateId":"c1","finalStatus":"Completed","fitScore":72.5}`)},
		{name: "missing candidate", payload: []byte(`{"sessionId":"s1"}`), wantErr: true},
		{name: "not json", payload: []byte(`nope`), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSessionFollowUpPayload(asynq.NewTask(TaskSessionFollowUp, tt.payload))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSessionFollowUpPayload() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && (got.SessionID != "s1" || got.CandidateID != "c1" || got.FitScore != 72.5) {
				t.Fatalf("payload = %+v", got)
			}
		})
	}
}

func TestFollowUpHandlerPostsSystemNote(t *testing.T) {
	backend := hiringtest.NewBackend()
	w := newHandlers(backend, logger.Discard())

	task, err := NewSessionFollowUpTask(SessionFollowUpPayload{SessionID: "s1", CandidateID: "c1", FinalStatus: "Completed", FitScore: 80})
	if err != nil {
		t.Fatalf("NewSessionFollowUpTask() error = %v", err)
	}
	if err := w.mux.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("ProcessTask() error = %v", err)
	}

	if len(backend.Messages) != 1 {
		t.Fatalf("messages = %+v", backend.Messages)
	}
	msg := backend.Messages[0]
	if msg.SessionID != "s1" || msg.Creator != ports.CreatorSystem || !strings.Contains(msg.Text, "c1") {
		t.Fatalf("message = %+v", msg)
	}
}

func TestFollowUpHandlerErrors(t *testing.T) {
	backend := hiringtest.NewBackend()
	backend.FailPost = true
	w := newHandlers(backend, logger.Discard())

	task, _ := NewSessionFollowUpTask(SessionFollowUpPayload{SessionID: "s1", CandidateID: "c1"})
	if err := w.mux.ProcessTask(context.Background(), task); err == nil {
		t.Fatalf("backend failure not reported")
	}

	bad := asynq.NewTask(TaskSessionFollowUp, []byte(`{}`))
	if err := w.mux.ProcessTask(context.Background(), bad); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("invalid payload error = %v, want SkipRetry", err)
	}
}

type fakePruner struct {
	mu      sync.Mutex
	cutoffs []time.Time
	err     error
}

func (p *fakePruner) DeleteMessagesBefore(_ context.Context, before time.Time) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cutoffs = append(p.cutoffs, before)
	return 3, p.err
}

func TestMessageCleanupUsesRetention(t *testing.T) {
	pruner := &fakePruner{}
	var buf bytes.Buffer
	c := NewMessageCleanup(pruner, logger.NewWithWriter("production", &buf), time.Hour, 24*time.Hour)
	now := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.cleanup(context.Background())

	if len(pruner.cutoffs) != 1 || !pruner.cutoffs[0].Equal(now.Add(-24*time.Hour)) {
		t.Fatalf("cutoffs = %v", pruner.cutoffs)
	}
	if !strings.Contains(buf.String(), "deleted messages") {
		t.Fatalf("log = %q", buf.String())
	}

	pruner.err = errors.New("db down")
	buf.Reset()
	c.cleanup(context.Background())
	if !strings.Contains(buf.String(), "cleanup failed") {
		t.Fatalf("failure not logged: %q", buf.String())
	}
}

func TestMessageCleanupRunStopsOnCancel(t *testing.T) {
	pruner := &fakePruner{}
	c := NewMessageCleanup(pruner, logger.Discard(), time.Hour, 0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
	if c.retention != defaultMessageRetention {
		t.Fatalf("retention = %v", c.retention)
	}
}
