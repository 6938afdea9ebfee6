package logging

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type CleanupScheduler struct {
	cleaner  *Cleaner
	logger   *zap.Logger
	ticker   *time.Ticker
	stop     chan struct{}
	stopOnce sync.Once
}

func NewCleanupScheduler(cleaner *Cleaner, interval time.Duration, logger *zap.Logger) *CleanupScheduler {
	return &CleanupScheduler{
		cleaner: cleaner,
		logger:  logger,
		ticker:  time.NewTicker(interval),
		stop:    make(chan struct{}),
	}
}

func (s *CleanupScheduler) Start() {
	go func() {
		s.runCleanup()
		for {
			select {
			case <-s.ticker.C:
				s.runCleanup()
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *CleanupScheduler) runCleanup() {
	select {
	case <-s.stop:
		return
	default:
	}

	deleted, err := s.cleaner.Cleanup()
	if err != nil {
		s.logger.Warn("log cleanup failed", zap.Error(err))
	} else if deleted > 0 {
		s.logger.Info("removed old log files", zap.Int("count", deleted))
	}
}

func (s *CleanupScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.ticker.Stop()
		close(s.stop)
	})
}
