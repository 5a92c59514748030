package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pushline/push-api/internal/model"
	"github.com/pushline/push-api/internal/repository"
	"github.com/pushline/push-api/internal/service/dispatch"
	"github.com/pushline/push-api/pkg/logger"
	"github.com/pushline/push-api/pkg/metrics"
)

// Dispatcher is the slice of the dispatch engine the scheduler drives.
type Dispatcher interface {
	Dispatch(ctx context.Context, n *model.Notification, domainIDs []uuid.UUID) (*dispatch.Result, error)
}

type SchedulerConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// Scheduler claims due scheduled notifications and hands them to the
// dispatch engine. The claim is a single atomic update at the store, so
// concurrent scheduler instances never dispatch the same notification twice.
type Scheduler struct {
	notifications repository.NotificationRepository
	dispatcher    Dispatcher
	config        SchedulerConfig
	logger        *logger.Logger
	metrics       *metrics.Metrics
}

func NewScheduler(
	notifications repository.NotificationRepository,
	dispatcher Dispatcher,
	config SchedulerConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Scheduler {
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}

	return &Scheduler{
		notifications: notifications,
		dispatcher:    dispatcher,
		config:        config,
		logger:        logger,
		metrics:       metrics,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	s.logger.Info("starting scheduler", "poll_interval", s.config.PollInterval.String())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shutting down scheduler")
			return
		case <-ticker.C:
			if _, err := s.PollAndDispatchDue(ctx); err != nil {
				s.logger.Error(err, "poll iteration failed")
				s.observePoll("error")
				continue
			}
			s.observePoll("success")
		}
	}
}

// PollAndDispatchDue claims up to BatchSize due notifications and dispatches
// each. Per-notification dispatch failures are logged and skipped; the poll
// itself only fails when the claim query does.
func (s *Scheduler) PollAndDispatchDue(ctx context.Context) (int, error) {
	claimed, err := s.notifications.ClaimDue(ctx, time.Now(), s.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to claim due notifications: %w", err)
	}
	if len(claimed) == 0 {
		return 0, nil
	}

	if s.metrics != nil {
		s.metrics.SchedulerClaims.Add(float64(len(claimed)))
	}

	processed := 0
	for _, n := range claimed {
		if _, err := s.dispatcher.Dispatch(ctx, n, nil); err != nil {
			s.logger.Error(err, "failed to dispatch scheduled notification",
				"notification_id", n.ID.String(),
				"client_id", n.ClientID.String())
			continue
		}
		processed++
	}

	s.logger.Info("processed scheduled notifications",
		"claimed", len(claimed), "dispatched", processed)
	return len(claimed), nil
}

func (s *Scheduler) observePoll(status string) {
	if s.metrics != nil {
		s.metrics.SchedulerPolls.WithLabelValues(status).Inc()
	}
}
