package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// JournalSweepJobName is the scheduler name of the stale transition sweep
const JournalSweepJobName = "journal_sweep"

// JournalSweeper marks transitions that never finished as failed. Implemented by
// service.TransitionService.
type JournalSweeper interface {
	SweepStale(ctx context.Context) (int64, error)
}

// JournalSweepJob finds lifecycle transitions left pending by a crashed or killed process so
// an admin can see and retry them.
type JournalSweepJob struct {
	sweeper JournalSweeper
	logger  *zap.Logger
	timeout time.Duration
}

func NewJournalSweepJob(sweeper JournalSweeper, logger *zap.Logger, timeout time.Duration) *JournalSweepJob {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &JournalSweepJob{sweeper: sweeper, logger: logger, timeout: timeout}
}

// Run performs one sweep. It returns the number of entries marked failed.
func (j *JournalSweepJob) Run() int64 {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	swept, err := j.sweeper.SweepStale(ctx)
	if err != nil {
		j.logger.Error("journal sweep failed", zap.Error(err))
		return 0
	}
	if swept > 0 {
		j.logger.Info("journal sweep completed", zap.Int64("abandoned", swept))
	}
	return swept
}

// RegisterJournalSweepJob schedules the sweep. When runOnStartup is set, one sweep also runs
// immediately in the background so entries abandoned by the previous process surface quickly.
func RegisterJournalSweepJob(scheduler *Scheduler, sweeper JournalSweeper, logger *zap.Logger, cronExpr string, runOnStartup bool) error {
	job := NewJournalSweepJob(sweeper, logger, time.Minute)
	if runOnStartup {
		go job.Run()
	}
	return scheduler.AddJob(JournalSweepJobName, cronExpr, func() { job.Run() })
}
