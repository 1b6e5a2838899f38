package scheduler

import (
	"context"
	"fmt"

	"hiring_assistant_backend/internal/hiring/ports"
	"hiring_assistant_backend/platform/config"
	"hiring_assistant_backend/platform/logger"

	"github.com/hibiken/asynq"
)

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	backend ports.BackendStore
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, backend ports.BackendStore, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := newHandlers(backend, log)
	w.server = server
	return w, nil
}

func newHandlers(backend ports.BackendStore, log *logger.Logger) *Worker {
	mux := asynq.NewServeMux()
	w := &Worker{
		mux:     mux,
		backend: backend,
		log:     log,
	}
	mux.HandleFunc(TaskSessionFollowUp, w.handleSessionFollowUp)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleSessionFollowUp(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseSessionFollowUpPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	note := followUpNote(payload)
	if err := w.backend.PostMessage(ctx, payload.SessionID, ports.Message{Text: note, Creator: ports.CreatorSystem}); err != nil {
		w.log.ExternalCallFailed("backend", "post_message", payload.SessionID, err)
		return err
	}

	w.log.Info("recruiter follow-up posted", "sessionId", payload.SessionID, "candidateId", payload.CandidateID)
	return nil
}

func followUpNote(p SessionFollowUpPayload) string {
	return fmt.Sprintf("Recruiter follow-up due: candidate %s finished with status %q and fit score %.1f.",
		p.CandidateID, p.FinalStatus, p.FitScore)
}
