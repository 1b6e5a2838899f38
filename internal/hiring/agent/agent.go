// Package agent implements the hiring reasoner on the ADK runtime. The LLM
// decides which tool to call; the tools run against the session bound to the
// current run.
package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"hiring_assistant_backend/internal/hiring/domain"
	"hiring_assistant_backend/internal/hiring/ports"
	"hiring_assistant_backend/internal/hiring/tools"
	"hiring_assistant_backend/platform/logger"
)

const appName = "hiring_assistant"

// Agent is a ports.Reasoner backed by an ADK llmagent.
type Agent struct {
	runner         *runner.Runner
	sessionService session.Service
	tools          *tools.Service
	history        ports.HistoryStore
	log            *logger.Logger

	mu       sync.Mutex
	bindings map[string]*domain.Session
	created  map[string]bool
	forget   map[string]bool
}

// New builds the agent over llm. history may be nil; it is only used to give
// nested runs the conversation so far.
func New(llm model.LLM, facade *tools.Service, history ports.HistoryStore, log *logger.Logger) (*Agent, error) {
	a := &Agent{
		sessionService: session.InMemoryService(),
		tools:          facade,
		history:        history,
		log:            log,
		bindings:       make(map[string]*domain.Session),
		created:        make(map[string]bool),
		forget:         make(map[string]bool),
	}

	toolset, err := a.buildTools()
	if err != nil {
		return nil, fmt.Errorf("failed to build hiring tools: %w", err)
	}

	adkAgent, err := llmagent.New(llmagent.Config{
		Name:        "HiringAssistant",
		Model:       llm,
		Description: "Conversational recruiter that guides applicants from consent to a verified application.",
		Instruction: systemPrompt,
		Tools:       toolset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create hiring agent: %w", err)
	}

	r, err := runner.New(runner.Config{
		AppName:        appName,
		Agent:          adkAgent,
		SessionService: a.sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create hiring runner: %w", err)
	}
	a.runner = r
	return a, nil
}

// Process runs one turn for s and returns the assistant's replies. The caller
// holds the session lock. A call made while a run for s is already in flight
// (a tool concluding the session triggers recovery) runs in a throwaway ADK
// session seeded with the transcript.
func (a *Agent) Process(ctx context.Context, s *domain.Session, userText string) ([]string, error) {
	a.mu.Lock()
	_, busy := a.bindings[s.ID]
	a.mu.Unlock()

	if busy {
		return a.processNested(ctx, s, userText)
	}

	if err := a.ensureADKSession(ctx, s.ID); err != nil {
		return nil, err
	}
	a.bind(s.ID, s)
	defer a.release(context.WithoutCancel(ctx), s.ID)
	return a.run(ctx, s.ID, s.ID, userText)
}

func (a *Agent) processNested(ctx context.Context, s *domain.Session, userText string) ([]string, error) {
	runID := s.ID + ":" + uuid.NewString()
	if _, err := a.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   appName,
		UserID:    s.ID,
		SessionID: runID,
	}); err != nil {
		return nil, fmt.Errorf("failed to create nested session: %w", err)
	}
	defer func() {
		if err := a.sessionService.Delete(ctx, &session.DeleteRequest{
			AppName:   appName,
			UserID:    s.ID,
			SessionID: runID,
		}); err != nil {
			a.log.Warn("failed to delete nested agent session", "sessionId", s.ID, "error", err)
		}
	}()

	a.bind(runID, s)
	defer a.unbind(runID)
	return a.run(ctx, s.ID, runID, a.withTranscript(ctx, s.ID, userText))
}

func (a *Agent) withTranscript(ctx context.Context, sessionID, prompt string) string {
	if a.history == nil {
		return prompt
	}
	entries, err := a.history.List(ctx, sessionID)
	if err != nil || len(entries) == 0 {
		return prompt
	}
	var b strings.Builder
	b.WriteString("Conversation so far:\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%s: %s\n", e.Role, e.Text)
	}
	b.WriteString("\n")
	b.WriteString(prompt)
	return b.String()
}

func (a *Agent) run(ctx context.Context, userID, sessionID, text string) ([]string, error) {
	msg := &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{{Text: text}},
	}
	runConfig := agent.RunConfig{StreamingMode: agent.StreamingModeNone}

	var replies []string
	for event, err := range a.runner.Run(ctx, userID, sessionID, msg, runConfig) {
		if err != nil {
			return replies, fmt.Errorf("hiring agent run failed: %w", err)
		}
		if event == nil || event.Content == nil {
			continue
		}
		var parts []string
		for _, part := range event.Content.Parts {
			if part != nil && strings.TrimSpace(part.Text) != "" {
				parts = append(parts, strings.TrimSpace(part.Text))
			}
		}
		if len(parts) > 0 {
			replies = append(replies, strings.Join(parts, "\n"))
		}
	}
	return replies, nil
}

func (a *Agent) ensureADKSession(ctx context.Context, sessionID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.created[sessionID] {
		return nil
	}
	if _, err := a.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   appName,
		UserID:    sessionID,
		SessionID: sessionID,
	}); err != nil {
		return fmt.Errorf("failed to create agent session: %w", err)
	}
	a.created[sessionID] = true
	return nil
}

// Forget drops the ADK conversation of a finished session. While a run for
// the session is in flight the drop is deferred until the run returns.
func (a *Agent) Forget(ctx context.Context, sessionID string) error {
	a.mu.Lock()
	if _, busy := a.bindings[sessionID]; busy {
		a.forget[sessionID] = true
		a.mu.Unlock()
		return nil
	}
	known := a.created[sessionID]
	delete(a.created, sessionID)
	a.mu.Unlock()
	if !known {
		return nil
	}
	return a.sessionService.Delete(ctx, &session.DeleteRequest{
		AppName:   appName,
		UserID:    sessionID,
		SessionID: sessionID,
	})
}

func (a *Agent) bind(runID string, s *domain.Session) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bindings[runID] = s
}

func (a *Agent) release(ctx context.Context, sessionID string) {
	a.mu.Lock()
	delete(a.bindings, sessionID)
	pending := a.forget[sessionID]
	delete(a.forget, sessionID)
	a.mu.Unlock()
	if !pending {
		return
	}
	if err := a.Forget(ctx, sessionID); err != nil {
		a.log.Warn("failed to drop agent session", "sessionId", sessionID, "error", err)
	}
}

func (a *Agent) unbind(runID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.bindings, runID)
}

func (a *Agent) bound(runID string) (*domain.Session, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.bindings[runID]
	return s, ok
}
