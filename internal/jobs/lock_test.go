package jobs

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"reddot-watch/newsdesk/internal/errs"
)

func TestLockRejectsConcurrentJobs(t *testing.T) {
	lock := NewLock(filepath.Join(t.TempDir(), "newsdesk.lock"))
	ctx := context.Background()

	var inner error
	var runID string
	err := lock.Run(ctx, "ingest", func(ctx context.Context, id string) error {
		runID = id
		inner = lock.Run(ctx, "cluster", func(context.Context, string) error { return nil })
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !errors.Is(inner, errs.ErrBusy) {
		t.Fatalf("expected busy error, got %v", inner)
	}
	if runID == "" {
		t.Fatalf("expected a run id")
	}

	if err := lock.Run(ctx, "cluster", func(context.Context, string) error { return nil }); err != nil {
		t.Fatalf("lock should be free after the job: %v", err)
	}
}

func TestLockRejectsOtherHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "newsdesk.lock")
	first, second := NewLock(path), NewLock(path)
	ctx := context.Background()

	err := first.Run(ctx, "reset", func(ctx context.Context, _ string) error {
		return second.Run(ctx, "ingest", func(context.Context, string) error { return nil })
	})
	if !errors.Is(err, errs.ErrBusy) {
		t.Fatalf("expected busy error from second holder, got %v", err)
	}
	if !strings.Contains(err.Error(), path) {
		t.Fatalf("busy error should name the lock file, got %v", err)
	}
}

func TestLockReturnsJobError(t *testing.T) {
	lock := NewLock(filepath.Join(t.TempDir(), "newsdesk.lock"))
	boom := errors.New("boom")
	if err := lock.Run(context.Background(), "cluster", func(context.Context, string) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected job error, got %v", err)
	}
}
