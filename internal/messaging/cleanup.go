package messaging

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ChatCleanup prunes global chat messages older than the retention window
type ChatCleanup struct {
	service   *Service
	retention time.Duration
	interval  time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

func NewChatCleanup(service *Service, retention, interval time.Duration, logger *zap.Logger) *ChatCleanup {
	if interval <= 0 {
		interval = time.Hour
	}
	return &ChatCleanup{
		service:   service,
		retention: retention,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
	}
}

// Start runs one pass immediately and then one per interval until ctx ends
func (c *ChatCleanup) Start(ctx context.Context) {
	if c.retention <= 0 {
		c.logger.Info("chat retention disabled")
		return
	}
	c.logger.Info("starting chat cleanup",
		zap.Duration("retention", c.retention),
		zap.Duration("interval", c.interval),
	)

	c.RunOnce(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.RunOnce(ctx)
		case <-ctx.Done():
			c.logger.Info("stopping chat cleanup")
			return
		}
	}
}

func (c *ChatCleanup) RunOnce(ctx context.Context) {
	start := time.Now()
	removed, err := c.service.PruneChat(ctx, c.now().Add(-c.retention))
	if err != nil {
		c.logger.Error("chat cleanup failed", zap.Error(err))
		return
	}
	c.logger.Info("chat cleanup completed",
		zap.Int64("removed", removed),
		zap.Duration("took", time.Since(start)),
	)
}
