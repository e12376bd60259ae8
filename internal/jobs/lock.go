// Package jobs serializes pipeline-mutating jobs within and across processes.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"reddot-watch/newsdesk/internal/errs"
)

// Lock admits one mutating job at a time. The mutex covers goroutines of this
// process and the file lock covers other processes sharing the database.
type Lock struct {
	mu   sync.Mutex
	file *flock.Flock
}

// NewLock creates a lock backed by the file at path.
func NewLock(path string) *Lock {
	return &Lock{file: flock.New(path)}
}

// Run executes fn while holding the lock. It fails with errs.ErrBusy instead
// of waiting when another job holds it. fn receives a fresh run id.
func (l *Lock) Run(ctx context.Context, job string, fn func(ctx context.Context, runID string) error) error {
	if !l.mu.TryLock() {
		return errs.Wrap(errs.ErrBusy, job, "a job is already running in this process", nil)
	}
	defer l.mu.Unlock()

	ok, err := l.file.TryLock()
	if err != nil {
		return fmt.Errorf("acquire job lock %s: %w", l.file.Path(), err)
	}
	if !ok {
		return errs.Wrap(errs.ErrBusy, job, "a job is already running in another process, lock held on "+l.file.Path(), nil)
	}
	defer func() {
		if err := l.file.Unlock(); err != nil {
			log.Warn().Err(err).Str("lock", l.file.Path()).Msg("Failed to release job lock")
		}
	}()

	runID := uuid.NewString()
	logger := log.With().Str("job", job).Str("run_id", runID).Logger()
	start := time.Now()
	logger.Info().Msg("Job started")

	err = fn(logger.WithContext(ctx), runID)

	event := logger.Info()
	if err != nil {
		event = logger.Error().Err(err)
	}
	event.Dur("duration", time.Since(start)).Msg("Job finished")
	return err
}
