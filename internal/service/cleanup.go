package service

import (
	"context"
	"log"
	"sync"
	"time"

	"creatorhub-api/internal/repository"
)

// CleanupConfig holds configuration for the cleanup scheduler.
type CleanupConfig struct {
	// CleanupInterval is how often expired blocks are swept.
	// Default: 10 minutes
	CleanupInterval time.Duration
}

// DefaultCleanupConfig returns default cleanup configuration.
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{
		CleanupInterval: 10 * time.Minute,
	}
}

// CleanupScheduler periodically removes expired visitor blocks. Unlock
// rows are intentionally NOT swept: entitlement expiry is passive and
// every read filters on expires_at.
type CleanupScheduler struct {
	blocks    repository.BlockRepository
	config    CleanupConfig
	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
}

// NewCleanupScheduler creates a new cleanup scheduler.
func NewCleanupScheduler(blocks repository.BlockRepository, config CleanupConfig) *CleanupScheduler {
	if config.CleanupInterval == 0 {
		config.CleanupInterval = 10 * time.Minute
	}

	return &CleanupScheduler{
		blocks: blocks,
		config: config,
		stopCh: make(chan struct{}),
	}
}

// Start begins the cleanup scheduler.
func (s *CleanupScheduler) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.config.CleanupInterval)
	s.mu.Unlock()

	log.Printf("[CleanupScheduler] Started - Interval: %v", s.config.CleanupInterval)

	go s.run()
}

// run is the main cleanup loop.
func (s *CleanupScheduler) run() {
	for {
		select {
		case <-s.ticker.C:
			s.runCleanup()
		case <-s.stopCh:
			log.Printf("[CleanupScheduler] Stopped")
			return
		}
	}
}

// runCleanup performs the actual cleanup.
func (s *CleanupScheduler) runCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	deleted, err := s.blocks.DeleteExpired(ctx, time.Now())
	if err != nil {
		log.Printf("[CleanupScheduler] Error during cleanup: %v", err)
		return
	}

	if deleted > 0 {
		log.Printf("[CleanupScheduler] Cleaned up %d expired blocks", deleted)
	}
}

// Stop stops the cleanup scheduler.
func (s *CleanupScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
	})
}

// RunNow triggers an immediate cleanup run.
func (s *CleanupScheduler) RunNow() (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	return s.blocks.DeleteExpired(ctx, time.Now())
}
