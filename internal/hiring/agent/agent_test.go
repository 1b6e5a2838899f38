package agent

import (
	"context"
	"iter"
	"sync"
	"testing"
	"time"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"hiring_assistant_backend/internal/hiring/domain"
	"hiring_assistant_backend/internal/hiring/hiringtest"
	"hiring_assistant_backend/internal/hiring/lifecycle"
	"hiring_assistant_backend/internal/hiring/tools"
	"hiring_assistant_backend/internal/hiring/verification"
	"hiring_assistant_backend/platform/logger"
)

// scriptedLLM calls one tool on a fresh user message, then answers with text
// once the tool result is in the conversation.
type scriptedLLM struct {
	mu    sync.Mutex
	call  *genai.FunctionCall
	reply string
	calls int
}

func (m *scriptedLLM) Name() string { return "scripted" }

func (m *scriptedLLM) GenerateContent(_ context.Context, req *model.LLMRequest, _ bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		m.mu.Lock()
		m.calls++
		m.mu.Unlock()

		last := req.Contents[len(req.Contents)-1]
		answered := false
		for _, p := range last.Parts {
			if p.FunctionResponse != nil {
				answered = true
			}
		}
		var part *genai.Part
		if answered || m.call == nil {
			part = genai.NewPartFromText(m.reply)
		} else {
			part = &genai.Part{FunctionCall: m.call}
		}
		yield(&model.LLMResponse{Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{part}}}, nil)
	}
}

func newAgent(t *testing.T, llm model.LLM) (*Agent, *hiringtest.Backend) {
	t.Helper()
	now := func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }
	backend := hiringtest.NewBackend()
	lc := lifecycle.New(backend, &hiringtest.Reports{}, nil, nil, logger.Discard(), lifecycle.Options{Now: now})
	flow := verification.New(lc, hiringtest.NewCodes("1"), backend, logger.Discard(), verification.Options{Now: now})
	a, err := New(llm, tools.New(lc, flow, nil, logger.Discard(), now), nil, logger.Discard())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a, backend
}

func TestProcessRunsToolAgainstBoundSession(t *testing.T) {
	llm := &scriptedLLM{
		call:  &genai.FunctionCall{ID: "call-1", Name: "save_email", Args: map[string]any{"email": "Jane@X.com"}},
		reply: "Thanks, what is your phone number?",
	}
	a, _ := newAgent(t, llm)
	s := domain.NewSession("s1", time.Now())
	s.CurrentStage = domain.StageApplication

	replies, err := a.Process(context.Background(), s, "my email is Jane@X.com")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if got := s.ContactValue(domain.ChannelEmail); got != "jane@x.com" {
		t.Fatalf("email = %q", got)
	}
	if len(replies) == 0 || replies[len(replies)-1] != llm.reply {
		t.Fatalf("replies = %v", replies)
	}
	if _, ok := a.bound("s1"); ok {
		t.Fatalf("session still bound after the run")
	}

	if err := a.Forget(context.Background(), "s1"); err != nil {
		t.Fatalf("Forget() error = %v", err)
	}
}

func TestProcessReplyWithoutTools(t *testing.T) {
	a, _ := newAgent(t, &scriptedLLM{reply: "Hi! Want to apply?"})
	s := domain.NewSession("s1", time.Now())

	for i := 0; i < 2; i++ {
		replies, err := a.Process(context.Background(), s, "hello")
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		if len(replies) != 1 || replies[0] != "Hi! Want to apply?" {
			t.Fatalf("replies = %v", replies)
		}
	}
}

func TestParseChannel(t *testing.T) {
	if ch, ok := parseChannel("phone"); !ok || ch != domain.ChannelPhone {
		t.Fatalf("parseChannel(phone) = %q, %v", ch, ok)
	}
	if _, ok := parseChannel("fax"); ok {
		t.Fatalf("parseChannel(fax) accepted")
	}
}
