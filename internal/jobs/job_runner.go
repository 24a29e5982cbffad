package jobs

import (
	"context"
	"time"

	"school-resources-backend/internal/config"
	"school-resources-backend/internal/logger"
	"school-resources-backend/internal/repository/postgres"
	"school-resources-backend/internal/service"
)

// jobTimeout bounds a single run of any job.
const jobTimeout = 5 * time.Minute

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	store    *postgres.Store
	services *Services
	config   *config.Config
	clock    service.Clock
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Email      service.EmailService
	Reconciler *service.Reconciler
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(store *postgres.Store, services *Services, cfg *config.Config, clock service.Clock) *JobRunner {
	if clock == nil {
		clock = time.Now
	}
	return &JobRunner{
		store:    store,
		services: services,
		config:   cfg,
		clock:    clock,
	}
}

// Config returns the configuration the runner was built with
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// today is the current calendar day in the loans timezone.
func (jr *JobRunner) today() time.Time {
	loc := jr.config.Location()
	y, m, d := jr.clock().In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	logger.Info("Starting job", "job", jobName)
	jobFunc(ctx)
	logger.Info("Job completed", "job", jobName, "duration_ms", time.Since(start).Milliseconds())
}

// RunAllJobs runs every job once, in dependency order (for manual execution)
func (jr *JobRunner) RunAllJobs() {
	jr.MarkOverdueLoans()
	jr.SendOverdueReminders()
	jr.ReconcileReturnedLoans()
}
