package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/portent/internal/common"
	"github.com/ternarybob/portent/internal/interfaces"
	"github.com/ternarybob/portent/internal/models"
)

// Service runs pipeline passes forever, one at a time. The next wake-up is
// computed from the moment the previous pass finished, so passes never overlap.
type Service struct {
	runner       interfaces.PassRunner
	schedule     cron.Schedule
	scheduleExpr string
	runOnStartup bool
	logger       arbor.ILogger
	now          func() time.Time

	mu       sync.Mutex // Protects status and lifecycle fields
	status   models.SchedulerStatus
	started  bool
	cancel   context.CancelFunc
	done     chan struct{}
	trigger  chan struct{}
	stopOnce sync.Once
}

// NewService creates a scheduler for the given runner
func NewService(runner interfaces.PassRunner, config *common.SchedulerConfig, logger arbor.ILogger) (*Service, error) {
	schedule, err := common.ParseSchedule(config.Schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", config.Schedule, err)
	}

	return &Service{
		runner:       runner,
		schedule:     schedule,
		scheduleExpr: config.Schedule,
		runOnStartup: config.RunOnStartup,
		logger:       logger,
		now:          time.Now,
		status: models.SchedulerStatus{
			State:    models.StateIdle,
			Schedule: config.Schedule,
		},
		trigger: make(chan struct{}, 1),
	}, nil
}

// Start launches the loop in the background
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.started = true

	done := s.done
	common.SafeGo(s.logger, "scheduler-loop", func() {
		defer close(done)
		s.loop(ctx)
	})

	s.logger.Info().
		Str("schedule", s.scheduleExpr).
		Bool("run_on_startup", s.runOnStartup).
		Msg("Scheduler started")

	return nil
}

// Stop cancels the loop and waits for it to exit. An in-flight pass sees a
// cancelled context. Safe to call more than once.
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.status.State = models.StateStopped
		s.mu.Unlock()
		return nil
	}
	done := s.done
	s.mu.Unlock()

	s.stopOnce.Do(func() {
		s.cancel()
		s.logger.Info().Msg("Scheduler stopping")
	})
	<-done

	s.mu.Lock()
	s.status.State = models.StateStopped
	s.status.NextRun = nil
	s.mu.Unlock()

	return nil
}

// TriggerNow wakes the loop for an immediate pass
func (s *Service) TriggerNow() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.status.State == models.StateRunning:
		return interfaces.ErrPassInProgress
	case !s.started || s.status.State == models.StateStopped:
		return fmt.Errorf("scheduler not running")
	}

	select {
	case s.trigger <- struct{}{}:
		s.logger.Info().Msg("Manual pass triggered")
	default:
		// A trigger is already pending
	}
	return nil
}

// Status returns a copy of the loop status
func (s *Service) Status() models.SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Service) loop(ctx context.Context) {
	if s.runOnStartup {
		s.runPass(ctx)
	}

	for {
		if ctx.Err() != nil {
			return
		}

		next := s.schedule.Next(s.now())
		s.mu.Lock()
		s.status.NextRun = &next
		s.mu.Unlock()

		s.logger.Debug().Str("next_run", next.Format(time.RFC3339)).Msg("Waiting for next pass")

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.trigger:
			timer.Stop()
		case <-timer.C:
		}

		s.runPass(ctx)
	}
}

// runPass executes one pass and records its outcome. Panics are contained
// so the loop survives a misbehaving pass.
func (s *Service) runPass(ctx context.Context) {
	started := s.now()

	s.mu.Lock()
	s.status.State = models.StateRunning
	s.status.LastStarted = &started
	s.status.NextRun = nil
	// A trigger accepted before Running was set is served by this pass
	select {
	case <-s.trigger:
	default:
	}
	s.mu.Unlock()

	s.logger.Info().Msg("🚀 Pipeline pass started")

	result, err := s.execute(ctx)

	finished := s.now()
	duration := finished.Sub(started)

	s.mu.Lock()
	s.status.State = models.StateIdle
	s.status.Passes++
	s.status.LastFinished = &finished
	s.status.LastDuration = duration.String()
	if result != nil {
		s.status.LastRunID = result.RunID
	}
	if err != nil {
		s.status.Failures++
		s.status.LastError = err.Error()
	} else {
		s.status.LastError = ""
	}
	s.mu.Unlock()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.logger.Warn().Dur("duration", duration).Msg("Pipeline pass cancelled")
			return
		}
		s.logger.Error().Err(err).Dur("duration", duration).Msg("❌ Pipeline pass failed")
		return
	}

	s.logger.Info().Dur("duration", duration).Msg("✅ Pipeline pass completed")
}

func (s *Service) execute(ctx context.Context) (result *models.AggregateResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", common.StackTrace()).
				Msg("PANIC RECOVERED in pipeline pass")
			result = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return s.runner.Run(ctx)
}
