// Package jobs runs the periodic maintenance tasks of the service.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"STUDYHUB_BACK-END/internal/metrics"
)

// Job names used in logs and metrics
const (
	JobExpirePurchases = "expire_purchases"
	JobSweepLimiters   = "sweep_rate_limiters"
	JobSweepStates     = "sweep_oauth_states"
)

// Expirer rejects purchases left unpaid for too long
type Expirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

// Sweeper drops stale in-memory entries and returns how many it removed
type Sweeper interface {
	Sweep() int
}

// Scheduler wraps a cron runner
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
}

// NewScheduler creates a scheduler; each run is bounded by timeout
func NewScheduler(timeout time.Duration) *Scheduler {
	logger := cronLogger{}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		timeout: timeout,
	}
}

// ExpirePurchases schedules e.ExpireStale on schedule
func (s *Scheduler) ExpirePurchases(schedule string, e Expirer) error {
	return s.add(JobExpirePurchases, schedule, ExpireRun(e, s.timeout))
}

// Sweep schedules sw.Sweep on schedule under name
func (s *Scheduler) Sweep(name, schedule string, sw Sweeper) error {
	return s.add(name, schedule, func() {
		removed := sw.Sweep()
		metrics.RecordJobRun(name, true)
		if removed > 0 {
			log.WithFields(log.Fields{"job": name, "removed": removed}).Debug("sweep finished")
		}
	})
}

func (s *Scheduler) add(name, schedule string, fn func()) error {
	if _, err := s.cron.AddFunc(schedule, fn); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, schedule, err)
	}
	log.WithFields(log.Fields{"job": name, "schedule": schedule}).Info("job scheduled")
	return nil
}

// Start runs the scheduler in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs or until ctx is done
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		log.Warn("jobs still running at shutdown")
	}
}

// ExpireRun returns the function executed by the expire job
func ExpireRun(e Expirer, timeout time.Duration) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		start := time.Now()
		n, err := e.ExpireStale(ctx)
		metrics.RecordJobRun(JobExpirePurchases, err == nil)

		entry := log.WithFields(log.Fields{"job": JobExpirePurchases, "expired": n, "duration": time.Since(start)})
		if err != nil {
			entry.WithError(err).Error("job failed")
			return
		}
		if n > 0 {
			entry.Info("stale purchases expired")
		}
	}
}

// cronLogger adapts logrus to cron.Logger
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.WithFields(fields(keysAndValues)).Debug("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.WithFields(fields(keysAndValues)).WithError(err).Error("cron: " + msg)
}

func fields(kv []interface{}) log.Fields {
	f := log.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
