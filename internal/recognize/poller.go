package recognize

import (
	"context"
	"errors"
	"fmt"
	"time"

	"planthealth/pkg/domain"
	"planthealth/pkg/functions"
)

var (
	// ErrRecognitionFailed wraps the error message the function reported.
	ErrRecognitionFailed = errors.New("recognition failed")

	// ErrRecognitionTimeout is returned when an execution does not reach
	// a terminal status within the poll deadline.
	ErrRecognitionTimeout = errors.New("recognition timed out")
)

const (
	defaultPollInterval = time.Second
	defaultPollTimeout  = 2 * time.Minute
)

// Poller submits a recognition execution and blocks until it reaches a
// terminal status, checking at a fixed interval. Each call owns exactly
// one execution; concurrent calls poll independently.
type Poller struct {
	executions functions.ExecutionStore
	invoker    functions.Invoker
	interval   time.Duration
	timeout    time.Duration
}

// NewPoller builds a poller. Non-positive interval or timeout fall back
// to the defaults (1s / 2m).
func NewPoller(executions functions.ExecutionStore, invoker functions.Invoker, interval, timeout time.Duration) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if timeout <= 0 {
		timeout = defaultPollTimeout
	}
	return &Poller{
		executions: executions,
		invoker:    invoker,
		interval:   interval,
		timeout:    timeout,
	}
}

// Run invokes the recognition function for a stored image and waits for
// the result. It occupies the calling goroutine for the duration of the
// remote run; ctx cancellation aborts the wait (the execution itself
// keeps running to completion).
func (p *Poller) Run(ctx context.Context, fileID string) ([]domain.DataPlant, error) {
	exec, err := p.executions.Create(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("create execution: %w", err)
	}
	if err := p.invoker.Invoke(ctx, functions.Invocation{ExecutionID: exec.ID, FileID: fileID}); err != nil {
		return nil, fmt.Errorf("invoke recognition: %w", err)
	}

	deadline := time.Now().Add(p.timeout)
	for {
		current, ok, err := p.executions.Get(ctx, exec.ID)
		if err != nil {
			return nil, fmt.Errorf("poll execution: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("execution %s vanished", exec.ID)
		}
		switch current.Status {
		case functions.StatusCompleted:
			return Normalize(current.Response)
		case functions.StatusFailed:
			return nil, fmt.Errorf("%w: %s", ErrRecognitionFailed, current.ErrorMessage)
		}
		if time.Now().After(deadline) {
			return nil, ErrRecognitionTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.interval):
		}
	}
}
