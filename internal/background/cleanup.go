package background

import (
	"context"
	"log/slog"
	"time"
)

// ExpiredDeleter removes rows past their retention window
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// CleanupManager periodically purges expired verification codes and reset
// tokens that are past the retention window.
type CleanupManager struct {
	codes    ExpiredDeleter
	tokens   ExpiredDeleter
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewCleanupManager creates a new CleanupManager
func NewCleanupManager(codes, tokens ExpiredDeleter, logger *slog.Logger, interval time.Duration) *CleanupManager {
	return &CleanupManager{
		codes:    codes,
		tokens:   tokens,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the cleanup loop in a background goroutine
func (m *CleanupManager) Start(ctx context.Context) {
	go func() {
		defer close(m.doneCh)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.logger.Info("cleanup manager started", slog.Duration("interval", m.interval))

		// One pass at startup so a long interval doesn't delay the first purge.
		m.runCleanup(ctx)

		for {
			select {
			case <-ticker.C:
				m.runCleanup(ctx)
			case <-m.stopCh:
				m.logger.Info("cleanup manager stopped")
				return
			case <-ctx.Done():
				m.logger.Info("cleanup manager stopped: context cancelled")
				return
			}
		}
	}()
}

// Stop signals the cleanup loop to exit and waits for it to finish
func (m *CleanupManager) Stop() {
	close(m.stopCh)
	<-m.doneCh
}

func (m *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	codes, err := m.codes.DeleteExpired(cleanupCtx)
	if err != nil {
		m.logger.Error("failed to purge expired verification codes", slog.Any("error", err))
	} else if codes > 0 {
		m.logger.Info("purged expired verification codes", slog.Int64("count", codes))
	}

	tokens, err := m.tokens.DeleteExpired(cleanupCtx)
	if err != nil {
		m.logger.Error("failed to purge expired reset tokens", slog.Any("error", err))
	} else if tokens > 0 {
		m.logger.Info("purged expired reset tokens", slog.Int64("count", tokens))
	}
}
