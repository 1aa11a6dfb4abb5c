package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Scheduler wraps gocron for the two recurring jobs the daemon needs: the
// evaluation tick and the daily boundary.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler creates a new scheduler instance.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s}, nil
}

// ScheduleTick registers the recurring evaluation tick. Delivery is
// at-least-once; the task must tolerate redundant invocations.
func (s *Scheduler) ScheduleTick(interval time.Duration, task func()) (string, error) {
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithName("evaluation-tick"),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create tick job: %w", err)
	}
	return job.ID().String(), nil
}

// ScheduleDailyBoundary registers the daily schedule-regeneration job. It
// fires shortly after local midnight so the evaluation lands firmly inside
// the new calendar day.
func (s *Scheduler) ScheduleDailyBoundary(task func()) (string, error) {
	job, err := s.scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 0, 15))),
		gocron.NewTask(task),
		gocron.WithName("daily-boundary"),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create daily boundary job: %w", err)
	}
	return job.ID().String(), nil
}

// Start begins the scheduler.
func (s *Scheduler) Start(ctx context.Context) {
	slog.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}
