package background

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gstledger/internal/repositories"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

const stalePaymentsJob = "stale-payment-monitor"

// StalePaymentConfig controls the stale payment monitor.
type StalePaymentConfig struct {
	Interval time.Duration
	MaxAge   time.Duration
}

// JobScheduler runs read-only housekeeping jobs. No job changes payment state.
type JobScheduler struct {
	scheduler    gocron.Scheduler
	transactions repositories.TransactionRepository
	stale        StalePaymentConfig
	logger       *zap.Logger
	jobs         map[string]gocron.Job
	mu           sync.RWMutex
	now          func() time.Time
}

func NewJobScheduler(transactions repositories.TransactionRepository, stale StalePaymentConfig, logger *zap.Logger) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	js := &JobScheduler{
		scheduler:    scheduler,
		transactions: transactions,
		stale:        stale,
		logger:       logger,
		jobs:         make(map[string]gocron.Job),
		now:          time.Now,
	}

	if err := js.registerJobs(); err != nil {
		_ = scheduler.Shutdown()
		return nil, err
	}
	return js, nil
}

func (js *JobScheduler) Start() {
	js.logger.Info("starting background job scheduler", zap.Int("jobs", len(js.jobs)))
	js.scheduler.Start()
}

func (js *JobScheduler) Stop() error {
	js.logger.Info("stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs() error {
	js.mu.Lock()
	defer js.mu.Unlock()

	job, err := js.scheduler.NewJob(
		gocron.DurationJob(js.stale.Interval),
		gocron.NewTask(js.runStalePaymentCheck),
		gocron.WithName(stalePaymentsJob),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s job: %w", stalePaymentsJob, err)
	}
	js.jobs[stalePaymentsJob] = job
	return nil
}

func (js *JobScheduler) runStalePaymentCheck() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := js.CheckStalePayments(ctx); err != nil {
		js.logger.Error("stale payment check failed", zap.Error(err))
	}
}

// CheckStalePayments counts transactions that have stayed INITIATED longer than MaxAge
// and logs a warning when there are any.
func (js *JobScheduler) CheckStalePayments(ctx context.Context) (int, error) {
	cutoff := js.now().UTC().Add(-js.stale.MaxAge)
	count, err := js.transactions.CountInitiatedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		js.logger.Warn("transactions awaiting gateway callback",
			zap.Int("count", count),
			zap.Duration("older_than", js.stale.MaxAge),
		)
	}
	return count, nil
}

// GetJobStatus returns information about scheduled jobs
func (js *JobScheduler) GetJobStatus() map[string]interface{} {
	js.mu.RLock()
	defer js.mu.RUnlock()

	jobs := make([]map[string]interface{}, 0, len(js.jobs))
	for name, job := range js.jobs {
		entry := map[string]interface{}{"name": name}
		if next, err := job.NextRun(); err == nil {
			entry["next_run"] = next
		}
		if last, err := job.LastRun(); err == nil && !last.IsZero() {
			entry["last_run"] = last
		}
		jobs = append(jobs, entry)
	}

	return map[string]interface{}{
		"total_jobs": len(js.jobs),
		"jobs":       jobs,
	}
}
