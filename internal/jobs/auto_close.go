// Package jobs defines the River Queue jobs: the daily auto-close sweep and
// notification retention cleanup.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"fixflow.io/fixflow/internal/domain"
	apperrors "fixflow.io/fixflow/internal/pkg/errors"
	"fixflow.io/fixflow/internal/pkg/logger"
)

const (
	// DefaultAutoCloseCutoffDays is how long a COMPLETED request may sit
	// without customer reaction before the sweep closes it.
	DefaultAutoCloseCutoffDays = 3

	// autoCloseBatchLimit caps one sweep run; anything left over is picked
	// up by the next run.
	autoCloseBatchLimit = 500
)

// AutoCloseArgs is the periodic job that closes stale COMPLETED requests.
type AutoCloseArgs struct{}

// Kind returns the job kind identifier for the auto-close sweep.
func (AutoCloseArgs) Kind() string { return "auto_close_sweep" }

// InsertOpts ensures at most one sweep is enqueued within the same day.
func (AutoCloseArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: 1,
		UniqueOpts: river.UniqueOpts{
			ByPeriod: 24 * time.Hour,
			ByQueue:  true,
			ByArgs:   true,
		},
	}
}

// StatusCloser is the slice of the lifecycle use case the sweep needs.
type StatusCloser interface {
	UpdateStatus(ctx context.Context, requestID string, target domain.Status, reason string, actor domain.Actor) (*domain.MaintenanceRequest, error)
}

// CandidateLister selects requests eligible for auto-close.
type CandidateLister interface {
	ListAutoCloseCandidates(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
}

// AutoCloseWorker closes COMPLETED requests whose completion date is older
// than the cutoff. Each request is closed in its own transaction through the
// same transition path as a manual close, so the sweep produces the same
// history rows and events and respects the same guards.
type AutoCloseWorker struct {
	river.WorkerDefaults[AutoCloseArgs]
	lifecycle  StatusCloser
	candidates CandidateLister
	cutoffDays int
}

// NewAutoCloseWorker creates the sweep worker. Non-positive cutoffDays falls
// back to the 3-day default.
func NewAutoCloseWorker(lifecycle StatusCloser, candidates CandidateLister, cutoffDays int) *AutoCloseWorker {
	if cutoffDays <= 0 {
		cutoffDays = DefaultAutoCloseCutoffDays
	}
	return &AutoCloseWorker{
		lifecycle:  lifecycle,
		candidates: candidates,
		cutoffDays: cutoffDays,
	}
}

// Work runs one sweep. A failure on one request is logged and skipped; it
// must not stall the rest of the batch.
func (w *AutoCloseWorker) Work(ctx context.Context, _ *river.Job[AutoCloseArgs]) error {
	if w == nil || w.lifecycle == nil || w.candidates == nil {
		return fmt.Errorf("auto-close worker is not initialized")
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -w.cutoffDays)
	ids, err := w.candidates.ListAutoCloseCandidates(ctx, cutoff, autoCloseBatchLimit)
	if err != nil {
		return fmt.Errorf("list auto-close candidates before %s: %w", cutoff.Format(time.RFC3339), err)
	}

	reason := "auto-closed after customer inactivity"
	closed, skipped := 0, 0
	for _, id := range ids {
		if _, err := w.lifecycle.UpdateStatus(ctx, id, domain.StatusClosed, reason, domain.System()); err != nil {
			// A request can legitimately move between candidate selection
			// and the close attempt; a stale transition is not a failure.
			if appErr, ok := apperrors.IsAppError(err); ok {
				logger.Info("auto-close skipped request",
					zap.String("request_id", id),
					zap.String("code", appErr.Code),
				)
				skipped++
				continue
			}
			logger.Warn("auto-close failed for request",
				zap.String("request_id", id),
				zap.Error(err),
			)
			skipped++
			continue
		}
		closed++
	}

	logger.Info("auto-close sweep completed",
		zap.Int("candidates", len(ids)),
		zap.Int("closed", closed),
		zap.Int("skipped", skipped),
		zap.String("cutoff", cutoff.Format(time.RFC3339)),
	)
	return nil
}
