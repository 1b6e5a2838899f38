package registry

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"hiring_assistant_backend/internal/hiring/domain"
	"hiring_assistant_backend/platform/logger"
)

// ReasonTimedOut is the conclusion reason used for idle sessions.
const ReasonTimedOut = "timed out"

const (
	defaultSweepInterval = 60 * time.Second
	defaultIdleThreshold = 2 * time.Minute
	defaultSweepTimeout  = 15 * time.Second
	defaultSweepFanOut   = 4
)

// ConcludeFunc concludes a session. It runs with the session lock held.
type ConcludeFunc func(ctx context.Context, s *domain.Session, reason string)

// SweeperOptions tune the sweeper. Zero values fall back to defaults.
type SweeperOptions struct {
	Interval      time.Duration
	IdleThreshold time.Duration
	// Timeout bounds each conclusion, including the wait for the session lock.
	Timeout     time.Duration
	Concurrency int
}

// Sweeper periodically concludes sessions that have been idle longer than
// the threshold. Concluded sessions stop being tracked but stay in the
// registry for late reads.
type Sweeper struct {
	registry *Registry
	conclude ConcludeFunc
	log      *logger.Logger
	opts     SweeperOptions

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewSweeper creates a stopped sweeper.
func NewSweeper(registry *Registry, conclude ConcludeFunc, log *logger.Logger, opts SweeperOptions) *Sweeper {
	if opts.Interval <= 0 {
		opts.Interval = defaultSweepInterval
	}
	if opts.IdleThreshold <= 0 {
		opts.IdleThreshold = defaultIdleThreshold
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultSweepTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultSweepFanOut
	}
	return &Sweeper{registry: registry, conclude: conclude, log: log, opts: opts}
}

// Start runs the sweep loop in the background until Stop or ctx is done.
// Starting a running sweeper is a no-op.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.stopped = make(chan struct{})

	go s.run(runCtx, s.stopped)
	s.log.Info("session sweeper started", "interval", s.opts.Interval, "idleThreshold", s.opts.IdleThreshold)
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, stopped := s.cancel, s.stopped
	s.cancel, s.stopped = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-stopped
	s.log.Info("session sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context, stopped chan struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce concludes every currently idle session and returns how many
// were concluded.
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	idle := s.registry.Idle(s.opts.IdleThreshold)
	if len(idle) == 0 {
		return 0
	}

	var (
		mu        sync.Mutex
		concluded int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	for _, id := range idle {
		g.Go(func() error {
			if s.sweepSession(gctx, id) {
				mu.Lock()
				concluded++
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if concluded > 0 {
		s.log.Info("idle sessions concluded", "count", concluded)
	}
	return concluded
}

func (s *Sweeper) sweepSession(ctx context.Context, id string) bool {
	cctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	swept := false
	err := s.registry.WithSession(cctx, id, func(sess *domain.Session) error {
		// A chat turn may have touched the session while we waited for the lock.
		last, tracked := s.registry.LastActivity(id)
		if !tracked {
			return nil
		}
		if s.registry.now().Sub(last) <= s.opts.IdleThreshold {
			return nil
		}
		s.conclude(cctx, sess, ReasonTimedOut)
		s.registry.Untrack(id)
		swept = true
		return nil
	})
	if err != nil {
		s.log.Warn("idle session not concluded", "sessionId", id, "error", err)
	}
	return swept
}
