package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"

	"mis-analytics/internal/logger"
)

// Job is a unit of background work
type Job interface {
	Run() error
	Name() string
}

// Scheduler runs jobs on cron schedules. Schedules use the standard five
// field syntax plus descriptors such as "@hourly" and "@every 30m".
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
}

func New(ctx context.Context) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		ctx:  ctx,
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info(s.ctx, "Scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop waits for running jobs to finish
func (s *Scheduler) Stop() {
	done := s.cron.Stop()
	<-done.Done()
	logger.Info(s.ctx, "Scheduler stopped")
}

func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		logger.Debug(s.ctx, "Running job", "job", job.Name())
		if err := job.Run(); err != nil {
			logger.ErrorWithErr(s.ctx, "Job failed", err, "job", job.Name())
			return
		}
		logger.Debug(s.ctx, "Job completed", "job", job.Name())
	})
	if err != nil {
		return err
	}

	logger.Info(s.ctx, "Job registered", "schedule", schedule, "job", job.Name())
	return nil
}

// RunNow executes a job immediately, outside its schedule
func (s *Scheduler) RunNow(job Job) error {
	logger.Info(s.ctx, "Running job immediately", "job", job.Name())
	return job.Run()
}
