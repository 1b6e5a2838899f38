package scheduler

import (
	"context"
	"time"

	"hiring_assistant_backend/platform/logger"
)

const (
	defaultMessageCleanupInterval = time.Hour
	defaultMessageRetention       = 90 * 24 * time.Hour
)

// MessagePruner deletes stored session messages older than a cutoff.
type MessagePruner interface {
	DeleteMessagesBefore(ctx context.Context, before time.Time) (int64, error)
}

// MessageCleanup periodically removes old session messages.
type MessageCleanup struct {
	store     MessagePruner
	log       *logger.Logger
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

func NewMessageCleanup(store MessagePruner, log *logger.Logger, interval, retention time.Duration) *MessageCleanup {
	if interval <= 0 {
		interval = defaultMessageCleanupInterval
	}
	if retention <= 0 {
		retention = defaultMessageRetention
	}

	return &MessageCleanup{
		store:     store,
		log:       log,
		interval:  interval,
		retention: retention,
		now:       time.Now,
	}
}

func (c *MessageCleanup) Run(ctx context.Context) {
	if c == nil || c.store == nil {
		return
	}

	c.cleanup(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *MessageCleanup) cleanup(ctx context.Context) {
	deleted, err := c.store.DeleteMessagesBefore(ctx, c.now().Add(-c.retention))
	if err != nil {
		c.log.Warn("session message cleanup failed", "error", err)
		return
	}

	if deleted > 0 {
		c.log.Info("session message cleanup deleted messages", "deleted", deleted)
	}
}
