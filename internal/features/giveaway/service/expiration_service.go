package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"giveaway-bot/internal/common/logger"
	"giveaway-bot/internal/common/metrics"
	"giveaway-bot/internal/features/giveaway/repository"
)

// Interval of the pass that removes active records already present in the archive.
const cleanupInterval = 30 * time.Minute

// ExpirationService is the periodic sweep. It is the only way giveaways
// whose in-process wait was lost to a restart get completed.
type ExpirationService struct {
	ctx      context.Context
	cancel   context.CancelFunc
	giveaway *GiveawayService
	repo     repository.GiveawayRepository
	metrics  *metrics.Collector
	interval time.Duration
	log      zerolog.Logger
	wg       sync.WaitGroup
}

func NewExpirationService(giveaway *GiveawayService, m *metrics.Collector) *ExpirationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &ExpirationService{
		ctx:      ctx,
		cancel:   cancel,
		giveaway: giveaway,
		repo:     giveaway.repo,
		metrics:  m,
		interval: giveaway.cfg.SweepInterval,
		log:      logger.Component("sweep"),
	}
}

// Start runs one sweep immediately, then one per interval.
func (s *ExpirationService) Start() {
	s.log.Info().Dur("interval", s.interval).Msg("Starting expiration service")
	s.wg.Add(2)

	go func() {
		defer s.wg.Done()
		s.sweep()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.ctx.Done():
				return
			}
		}
	}()

	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := s.CleanupInconsistentData(s.ctx); err != nil {
					s.log.Error().Err(err).Msg("Error cleaning up inconsistent data")
				}
			case <-s.ctx.Done():
				return
			}
		}
	}()
}

func (s *ExpirationService) Stop() {
	s.log.Info().Msg("Stopping expiration service")
	s.cancel()
	s.wg.Wait()
	s.log.Info().Msg("Expiration service stopped")
}

func (s *ExpirationService) sweep() {
	if _, err := s.ProcessExpiredGiveaways(s.ctx); err != nil {
		s.log.Error().Err(err).Msg("Error processing expired giveaways")
	}
}

// ProcessExpiredGiveaways launches a completion for every active giveaway
// ending before the next sweep and returns how many were launched.
func (s *ExpirationService) ProcessExpiredGiveaways(ctx context.Context) (int, error) {
	giveaways, err := s.repo.FindAll(ctx)
	s.metrics.RecordSweep(err)
	if err != nil {
		return 0, fmt.Errorf("failed to list active giveaways: %w", err)
	}

	horizon := s.giveaway.clock.Now().Add(s.interval).Unix()
	launched := 0
	for _, g := range giveaways {
		if g.Ending >= horizon {
			continue
		}
		if s.giveaway.launch(g) {
			launched++
		}
	}

	s.log.Debug().Int("active", len(giveaways)).Int("launched", launched).Msg("Sweep finished")
	return launched, nil
}

// CleanupInconsistentData drops active records that already have an archive
// copy, which happens when a record is restored by hand without removing the
// archived one.
func (s *ExpirationService) CleanupInconsistentData(ctx context.Context) (int, error) {
	giveaways, err := s.repo.FindAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active giveaways: %w", err)
	}

	removed := 0
	for _, g := range giveaways {
		_, err := s.repo.FindArchived(ctx, g.ID)
		if errors.Is(err, repository.ErrGiveawayNotFound) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("failed to check archive for %s: %w", g.ID, err)
		}
		if err := s.repo.Delete(ctx, g.ID); err != nil {
			return removed, fmt.Errorf("failed to delete %s: %w", g.ID, err)
		}
		s.log.Warn().Str("giveaway_id", g.ID).Msg("Removed active giveaway that was already archived")
		removed++
	}
	return removed, nil
}
