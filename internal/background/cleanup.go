package background

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper removes expired entries and reports how many were dropped
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// CleanupManager periodically sweeps expired sessions
type CleanupManager struct {
	name     string
	sweeper  Sweeper
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(name string, sweeper Sweeper, logger *slog.Logger, interval time.Duration) *CleanupManager {
	return &CleanupManager{
		name:     name,
		sweeper:  sweeper,
		logger:   logger.With(slog.String("task", name)),
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the sweep immediately and then on every tick until stopped
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	removed, err := cm.sweeper.Sweep(cleanupCtx)
	if err != nil {
		cm.logger.Error("cleanup failed", slog.Any("error", err))
		return
	}

	if removed > 0 {
		cm.logger.Info("cleanup completed", slog.Int64("removed", removed))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
