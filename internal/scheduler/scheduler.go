// Package scheduler runs the cooldown-based remediation state machine:
// OPEN rate_limiting incidents whose cooldown has elapsed are transitioned
// to RESOLVED with computed resolution metrics. It does not touch IAM,
// unlock accounts, or make any destructive change.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/telhawk-systems/mfa-sentinel/internal/logging"
	"github.com/telhawk-systems/mfa-sentinel/internal/metrics"
	"github.com/telhawk-systems/mfa-sentinel/internal/models"
	"github.com/telhawk-systems/mfa-sentinel/internal/notification"
	"github.com/telhawk-systems/mfa-sentinel/internal/store"
)

// resolutionNotes is the fixed note written on every assisted resolution.
const resolutionNotes = "Cooldown period completed. Rate limiting cleared. User may attempt re-authentication."

// Config configures the remediation scheduler.
type Config struct {
	Interval    time.Duration
	Environment string
}

// Scheduler periodically resolves rate_limiting incidents past their
// cooldown.
type Scheduler struct {
	mu       sync.Mutex
	store    store.Store
	channel  notification.Channel
	sink     metrics.Sink
	logger   *logging.Logger
	interval time.Duration
	env      string

	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
	now      func() time.Time
}

// New creates a remediation scheduler.
func New(st store.Store, channel notification.Channel, sink metrics.Sink, logger *logging.Logger, cfg Config) *Scheduler {
	if cfg.Interval == 0 {
		cfg.Interval = 5 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{
		store:    st,
		channel:  channel,
		sink:     sink,
		logger:   logger,
		interval: cfg.Interval,
		env:      cfg.Environment,
		now:      time.Now,
	}
}

// Start begins the periodic remediation loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "remediation scheduler starting",
		"interval", s.interval.String())

	s.wg.Add(1)
	go s.run(ctx)
	return nil
}

// Stop gracefully stops the remediation loop.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler not running")
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.ErrorContext(ctx, "remediation pass failed", logging.Error(err))
			}
		}
	}
}

// RunOnce performs a single remediation pass. Eligible counts the incidents
// matched by the query; Processed counts only transitions that fully
// succeeded. A failure on one incident never blocks the others.
func (s *Scheduler) RunOnce(ctx context.Context) (*models.RemediationSummary, error) {
	open, err := s.store.QueryOpen(ctx, models.ScenarioRateLimiting)
	if err != nil {
		return nil, fmt.Errorf("query open incidents: %w", err)
	}

	now := s.now().UTC()
	var eligible []*models.Incident
	for _, inc := range open {
		if inc.CooldownElapsed(now) {
			eligible = append(eligible, inc)
		}
	}

	summary := &models.RemediationSummary{Eligible: len(eligible)}
	if len(eligible) == 0 {
		s.logger.DebugContext(ctx, "no incidents eligible for remediation")
		return summary, nil
	}

	for _, inc := range eligible {
		if err := s.remediate(ctx, inc, now); err != nil {
			if errors.Is(err, store.ErrPreconditionFailed) {
				// Already resolved elsewhere; not an error, not processed.
				s.logger.DebugContext(ctx, "incident already resolved",
					logging.IncidentID(inc.IncidentID))
				continue
			}
			s.logger.ErrorContext(ctx, "failed to remediate incident",
				logging.IncidentID(inc.IncidentID), logging.Error(err))
			continue
		}
		summary.Processed++
	}

	s.logger.InfoContext(ctx, "remediation pass complete",
		"processed", summary.Processed,
		"eligible", summary.Eligible,
	)
	return summary, nil
}

// remediate resolves one incident: conditional store update first, then the
// best-effort notification and metrics.
func (s *Scheduler) remediate(ctx context.Context, inc *models.Incident, now time.Time) error {
	resolutionSeconds := now.Unix() - inc.CreatedAt
	if resolutionSeconds < 0 {
		resolutionSeconds = 0
	}

	res := &models.Resolution{
		ResolvedAt:            now.Format(time.RFC3339),
		ResolutionTimeSeconds: resolutionSeconds,
		ResolutionNotes:       resolutionNotes,
		RemediationType:       models.RemediationAssistedAuto,
	}

	if err := s.store.Resolve(ctx, inc.IncidentID, res); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "incident resolved",
		logging.IncidentID(inc.IncidentID),
		"resolution_time_seconds", resolutionSeconds,
	)

	if err := s.channel.Publish(ctx, notification.SubjectResolved, notification.NewResolutionMessage(inc, resolutionSeconds)); err != nil {
		s.logger.WarnContext(ctx, "failed to publish resolution notification",
			logging.IncidentID(inc.IncidentID), logging.Error(err))
	}

	dims := map[string]string{
		"scenario":    string(inc.Scenario),
		"environment": s.env,
	}
	if err := s.sink.Record(metrics.MetricIncidentResolved, 1, "Count", dims); err != nil {
		s.logger.WarnContext(ctx, "failed to record resolution metric",
			logging.IncidentID(inc.IncidentID), logging.Error(err))
	}
	if err := s.sink.Record(metrics.MetricResolutionTimeSeconds, float64(resolutionSeconds), "Seconds", dims); err != nil {
		s.logger.WarnContext(ctx, "failed to record resolution time metric",
			logging.IncidentID(inc.IncidentID), logging.Error(err))
	}

	return nil
}
