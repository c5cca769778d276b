package recognize

import (
	"context"
	"log/slog"
	"time"

	"planthealth/pkg/functions"
	"planthealth/pkg/storage"
)

const defaultPresignExpiry = 15 * time.Minute

// Worker runs recognition invocations: it presigns a download URL for
// the stored image, calls the model, and records the outcome on the
// execution. Failures mark the execution failed and are never retried.
type Worker struct {
	executions    functions.ExecutionStore
	images        storage.ObjectStore
	model         Identifier
	presignExpiry time.Duration
}

// NewWorker builds a recognition worker.
func NewWorker(executions functions.ExecutionStore, images storage.ObjectStore, model Identifier) *Worker {
	return &Worker{
		executions:    executions,
		images:        images,
		model:         model,
		presignExpiry: defaultPresignExpiry,
	}
}

// Handle processes one invocation.
func (w *Worker) Handle(ctx context.Context, inv functions.Invocation) error {
	url, err := w.images.PresignGet(ctx, inv.FileID, w.presignExpiry)
	if err != nil {
		return w.fail(ctx, inv, err)
	}
	payload, err := w.model.Identify(ctx, url)
	if err != nil {
		return w.fail(ctx, inv, err)
	}
	if err := w.executions.Complete(ctx, inv.ExecutionID, payload); err != nil {
		slog.Error("failed to record execution result", "execution_id", inv.ExecutionID, "err", err)
		return err
	}
	return nil
}

func (w *Worker) fail(ctx context.Context, inv functions.Invocation, cause error) error {
	if err := w.executions.Fail(ctx, inv.ExecutionID, cause.Error()); err != nil {
		slog.Error("failed to record execution failure", "execution_id", inv.ExecutionID, "err", err)
	}
	return cause
}
