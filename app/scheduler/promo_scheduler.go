// Package scheduler runs background jobs that dispatch scheduled promo campaigns
package scheduler

import (
	"context"
	"fmt"
	"time"

	businessflow "github.com/amirphl/Injera-Promo/business_flow"
	"github.com/amirphl/Injera-Promo/config"
	"github.com/amirphl/Injera-Promo/models"
	"github.com/amirphl/Injera-Promo/repository"
	"github.com/amirphl/Injera-Promo/utils"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const dueRunsOrder = "scheduled_at ASC, id ASC"

// PromoScheduler periodically picks up scheduled campaign runs that are due and dispatches them
type PromoScheduler struct {
	runRepo     repository.PromoCampaignRunRepository
	flow        businessflow.PromoCampaignFlow
	rc          *redis.Client
	cfg         config.SchedulerConfig
	cacheConfig config.CacheConfig
	clock       utils.Clock
	logger      *logrus.Logger
}

// NewPromoScheduler creates a scheduler. rc may be nil, in which case only the database
// claim guards against double dispatch.
func NewPromoScheduler(
	runRepo repository.PromoCampaignRunRepository,
	flow businessflow.PromoCampaignFlow,
	rc *redis.Client,
	cfg config.SchedulerConfig,
	cacheConfig config.CacheConfig,
	clock utils.Clock,
	logger *logrus.Logger,
) *PromoScheduler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Minute
	}
	if clock == nil {
		clock = utils.SystemClock{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &PromoScheduler{
		runRepo:     runRepo,
		flow:        flow,
		rc:          rc,
		cfg:         cfg,
		cacheConfig: cacheConfig,
		clock:       clock,
		logger:      logger,
	}
}

// Start launches the scheduler loop in a background goroutine and returns a stop function
func (s *PromoScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.cfg.PollInterval)
		defer ticker.Stop()

		s.RunOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()

	s.logger.WithField("poll_interval", s.cfg.PollInterval.String()).Info("promo scheduler started")

	return func() {
		cancel()
		<-done
		s.logger.Info("promo scheduler stopped")
	}
}

// RunOnce dispatches every run that is due now and returns how many were executed
func (s *PromoScheduler) RunOnce(ctx context.Context) int {
	now := s.clock.Now()
	status := models.PromoRunStatusScheduled
	due, err := s.runRepo.ByFilter(ctx, models.PromoCampaignRunFilter{
		Status:         &status,
		ScheduledUntil: &now,
	}, dueRunsOrder, s.cfg.BatchSize, 0)
	if err != nil {
		s.logger.WithError(err).Error("scheduler: list due campaign runs failed")
		return 0
	}
	if len(due) == 0 {
		return 0
	}
	s.logger.WithField("due", len(due)).Info("scheduler: campaign runs due")

	executed := 0
	for _, run := range due {
		if ctx.Err() != nil {
			return executed
		}
		if s.execute(ctx, run) {
			executed++
		}
	}
	return executed
}

func (s *PromoScheduler) execute(ctx context.Context, run *models.PromoCampaignRun) bool {
	log := s.logger.WithFields(logrus.Fields{
		"campaign_run": run.UUID.String(),
		"platform":     run.Platform.String(),
	})

	release, ok := s.lock(ctx, run.ID)
	if !ok {
		log.Debug("scheduler: campaign run locked by another worker")
		return false
	}
	defer release()

	started := s.clock.Now()
	result, err := s.flow.ExecuteRun(ctx, run.ID)
	if err != nil {
		if businessflow.IsCampaignRunNotDue(err) {
			log.Debug("scheduler: campaign run no longer due")
			return false
		}
		if businessflow.IsNoCustomersMatched(err) {
			log.Info("scheduler: campaign run matched no customers")
			return true
		}
		log.WithError(err).Error("scheduler: campaign run failed")
		return true
	}

	log.WithFields(logrus.Fields{
		"audience": result.AudienceSize,
		"sent":     result.Sent,
		"failed":   result.Failed,
		"elapsed":  s.clock.Now().Sub(started).String(),
	}).Info("scheduler: campaign run completed")
	return true
}

// lock takes a per-run redis lock. Without redis it always succeeds.
func (s *PromoScheduler) lock(ctx context.Context, runID uint) (func(), bool) {
	if s.rc == nil {
		return func() {}, true
	}
	key := s.cacheConfig.RedisPrefix + fmt.Sprintf("promo:run:%d:lock", runID)
	ok, err := s.rc.SetNX(ctx, key, "1", s.cfg.LockTTL).Result()
	if err != nil {
		// the database claim still prevents double dispatch
		s.logger.WithError(err).Warn("scheduler: redis lock unavailable")
		return func() {}, true
	}
	if !ok {
		return nil, false
	}
	return func() { _ = s.rc.Del(context.Background(), key).Err() }, true
}
