// Package scheduler runs crawl jobs on cron schedules.
package scheduler

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"github.com/chida-tennis/chida-crawler/internal/logger"
)

var (
	ErrEmptyJobName  = errors.New("job name is required")
	ErrEmptyCronExpr = errors.New("cron expression is required")
)

// Service wraps a gocron scheduler. Jobs run in singleton mode: a run that
// is still going when the next one is due causes that next run to be
// skipped, never to overlap.
type Service struct {
	scheduler gocron.Scheduler
	stopOnce  sync.Once
	stopErr   error
}

// New creates a scheduler evaluating cron expressions in loc.
func New(loc *time.Location) (*Service, error) {
	if loc == nil {
		loc = time.Local
	}
	sched, err := gocron.NewScheduler(
		gocron.WithLocation(loc),
		gocron.WithGlobalJobOptions(
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithEventListeners(
				gocron.AfterJobRunsWithPanic(func(jobID uuid.UUID, jobName string, recoverData any) {
					logger.Error("Scheduler job panicked", logger.Fields{
						"job_id":   jobID.String(),
						"job_name": jobName,
						"panic":    recoverData,
					}, nil)
				}),
			),
		),
	)
	if err != nil {
		return nil, err
	}
	logger.Debug("Scheduler initialized", logger.Fields{"location": loc.String()})
	return &Service{scheduler: sched}, nil
}

// Start begins running scheduled jobs.
func (s *Service) Start() {
	logger.Info("Scheduler starting", nil)
	s.scheduler.Start()
}

// Stop shuts down the scheduler, waiting for running jobs to return.
func (s *Service) Stop() error {
	s.stopOnce.Do(func() {
		logger.Info("Scheduler stopping", nil)
		s.stopErr = s.scheduler.Shutdown()
	})
	return s.stopErr
}

// AddJob registers task under name. Five-field expressions are standard
// cron; six-field expressions carry a leading seconds field.
func (s *Service) AddJob(name, cronExpr string, task func()) (gocron.Job, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyJobName
	}
	if strings.TrimSpace(cronExpr) == "" {
		return nil, ErrEmptyCronExpr
	}
	fields := logger.Fields{"job_name": name, "cron": cronExpr}

	wrappedTask := func() {
		logger.Debug("Scheduler job started", fields)
		task()
		logger.Debug("Scheduler job completed", fields)
	}

	withSeconds := len(strings.Fields(cronExpr)) == 6
	job, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, withSeconds),
		gocron.NewTask(wrappedTask),
		gocron.WithName(name),
	)
	if err != nil {
		logger.Error("Failed to register scheduler job", fields, err)
		return nil, err
	}
	logger.Info("Scheduler job registered", fields)
	return job, nil
}
