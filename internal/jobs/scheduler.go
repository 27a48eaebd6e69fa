// Package jobs runs the API's periodic background work on a robfig/cron scheduler.
package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// cronLogger routes cron's own messages (skipped overlaps, recovered panics) to zap
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}

// Scheduler keeps named cron entries so jobs can be listed and removed by name
type Scheduler struct {
	cron    *cron.Cron
	logger  *zap.Logger
	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// NewScheduler takes six-field expressions with a seconds column. A job still running when its
// next tick arrives is skipped for that tick.
func NewScheduler(logger *zap.Logger) *Scheduler {
	cl := cronLogger{sugar: logger.Named("cron").Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger:  logger,
		entries: make(map[string]cron.EntryID),
	}
}

func (s *Scheduler) Start() {
	s.logger.Info("job scheduler started", zap.Strings("jobs", s.JobNames()))
	s.cron.Start()
}

// Stop returns a context that is done when in-flight jobs have returned
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("job scheduler stopping")
	return s.cron.Stop()
}

// AddJob schedules fn under name. spec is a cron expression ("0 */5 * * * *") or a
// descriptor ("@every 5m").
func (s *Scheduler) AddJob(name string, spec string, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.entries[name]; taken {
		return fmt.Errorf("job %s already exists", name)
	}

	id, err := s.cron.AddFunc(spec, func() {
		began := time.Now()
		fn()
		s.logger.Debug("job run finished",
			zap.String("job_name", name),
			zap.Duration("duration", time.Since(began)))
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", spec, name, err)
	}
	s.entries[name] = id

	s.logger.Info("job scheduled",
		zap.String("job_name", name),
		zap.String("schedule", spec))
	return nil
}

func (s *Scheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.entries[name]
	if !ok {
		return fmt.Errorf("job %s not found", name)
	}
	s.cron.Remove(id)
	delete(s.entries, name)
	return nil
}

// JobNames is sorted
func (s *Scheduler) JobNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
