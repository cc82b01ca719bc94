package jobs

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakePurger struct {
	cutoff  time.Time
	deleted int64
	err     error
}

func (f *fakePurger) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.deleted, f.err
}

func TestNotificationCleanupArgsKind(t *testing.T) {
	t.Parallel()

	if got := (NotificationCleanupArgs{}).Kind(); got != "notification_cleanup" {
		t.Fatalf("Kind() = %q, want %q", got, "notification_cleanup")
	}
}

func TestNewNotificationCleanupWorkerRetention(t *testing.T) {
	t.Parallel()

	if w := NewNotificationCleanupWorker(nil, 0); w.retention != DefaultNotificationRetention {
		t.Fatalf("retention = %s, want %s", w.retention, DefaultNotificationRetention)
	}
	want := 7 * 24 * time.Hour
	if w := NewNotificationCleanupWorker(nil, want); w.retention != want {
		t.Fatalf("retention = %s, want %s", w.retention, want)
	}
}

func TestNotificationCleanupWorkerWork(t *testing.T) {
	t.Parallel()

	purger := &fakePurger{deleted: 12}
	w := NewNotificationCleanupWorker(purger, 48*time.Hour)

	if err := w.Work(context.Background(), nil); err != nil {
		t.Fatalf("Work() error = %v", err)
	}

	wantCutoff := time.Now().UTC().Add(-48 * time.Hour)
	if d := purger.cutoff.Sub(wantCutoff); d < -time.Minute || d > time.Minute {
		t.Fatalf("cutoff = %s, want about %s", purger.cutoff, wantCutoff)
	}
}

func TestNotificationCleanupWorkerWork_Errors(t *testing.T) {
	t.Parallel()

	var w *NotificationCleanupWorker
	if err := w.Work(context.Background(), nil); err == nil {
		t.Fatal("Work() on nil worker must error")
	}

	failing := NewNotificationCleanupWorker(&fakePurger{err: errors.New("db down")}, time.Hour)
	if err := failing.Work(context.Background(), nil); err == nil {
		t.Fatal("Work() must propagate purge errors")
	}
}
