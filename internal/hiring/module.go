// Package hiring provides the conversational hiring module.
package hiring

import (
	"context"
	"fmt"

	"hiring_assistant_backend/internal/events"
	"hiring_assistant_backend/internal/hiring/agent"
	"hiring_assistant_backend/internal/hiring/handler"
	"hiring_assistant_backend/internal/hiring/lifecycle"
	"hiring_assistant_backend/internal/hiring/ports"
	"hiring_assistant_backend/internal/hiring/registry"
	"hiring_assistant_backend/internal/hiring/service"
	"hiring_assistant_backend/internal/hiring/tools"
	"hiring_assistant_backend/internal/hiring/verification"
	apphttp "hiring_assistant_backend/internal/http"
	"hiring_assistant_backend/platform/config"
	"hiring_assistant_backend/platform/logger"
	"hiring_assistant_backend/platform/validator"

	"google.golang.org/adk/model"
)

// Deps are the collaborators the module is built from.
type Deps struct {
	Backend ports.BackendStore
	Codes   ports.CodeProvider
	Reports ports.ReportGenerator
	History ports.HistoryStore
	LLM     model.LLM
	Bus     events.Bus
}

// Module represents the hiring domain module.
type Module struct {
	handler  *handler.Handler
	service  *service.Service
	registry *registry.Registry
	sweeper  *registry.Sweeper
	agent    *agent.Agent
	log      *logger.Logger
}

// NewModule creates the hiring module with all dependencies wired.
func NewModule(deps Deps, cfg config.SessionConfig, tokens config.TokenConfig, val *validator.Validator, log *logger.Logger) (*Module, error) {
	reg := registry.New(nil)
	lc := lifecycle.New(deps.Backend, deps.Reports, deps.History, deps.Bus, log, lifecycle.Options{
		ExternalTimeout: cfg.GetExternalCallTimeout(),
	})
	flow := verification.New(lc, deps.Codes, deps.Backend, log, verification.Options{
		ExternalTimeout: cfg.GetExternalCallTimeout(),
	})
	facade := tools.New(lc, flow, deps.Bus, log, nil)

	reasoner, err := agent.New(deps.LLM, facade, deps.History, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize hiring agent: %w", err)
	}
	lc.SetReasoner(reasoner)

	svc := service.New(reg, lc, reasoner, deps.History, deps.Bus, log, service.Options{})
	sweeper := registry.NewSweeper(reg, svc.ConcludeIdle, log, registry.SweeperOptions{
		Interval:      cfg.GetSessionSweepInterval(),
		IdleThreshold: cfg.GetSessionIdleThreshold(),
		Timeout:       cfg.GetExternalCallTimeout(),
		Concurrency:   cfg.GetSweepConcurrency(),
	})

	m := &Module{
		handler:  handler.New(svc, val, tokens),
		service:  svc,
		registry: reg,
		sweeper:  sweeper,
		agent:    reasoner,
		log:      log,
	}
	if deps.Bus != nil {
		m.RegisterHandlers(deps.Bus)
	}
	return m, nil
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "hiring"
}

// Service returns the session service for external use
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterHandlers drops the reasoner's conversation once a session concludes.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.SessionConcluded{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.SessionConcluded)
		if !ok {
			return nil
		}
		return m.agent.Forget(ctx, e.SessionID)
	}))
}

// Start launches the idle-session sweeper.
func (m *Module) Start(ctx context.Context) {
	m.sweeper.Start(ctx)
}

// Stop halts the sweeper and waits for in-flight conclusions.
func (m *Module) Stop() {
	m.sweeper.Stop()
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	sessions := ctx.V1.Group("/sessions")
	if ctx.StartLimiter != nil {
		m.handler.RegisterRoutes(sessions, ctx.StartLimiter.RateLimit())
		return
	}
	m.handler.RegisterRoutes(sessions)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
