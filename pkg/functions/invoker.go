package functions

import "context"

// Invocation is a request to run the recognition function against a
// stored image. The image key carries the stored file id.
type Invocation struct {
	ExecutionID string `json:"executionId"`
	FileID      string `json:"image"`
}

// Invoker hands an invocation to whatever runs the function.
type Invoker interface {
	Invoke(ctx context.Context, inv Invocation) error
}

// Handler processes a single invocation.
type Handler func(ctx context.Context, inv Invocation) error

// InProcInvoker runs the handler in-process on a background goroutine.
// Used by tests and single-binary deployments without a broker.
type InProcInvoker struct {
	handler Handler
}

// NewInProcInvoker builds an in-process invoker.
func NewInProcInvoker(handler Handler) *InProcInvoker {
	return &InProcInvoker{handler: handler}
}

// Invoke schedules the handler. The invocation outlives the caller's
// context, matching how a broker-backed run would behave.
func (i *InProcInvoker) Invoke(_ context.Context, inv Invocation) error {
	go func() {
		_ = i.handler(context.Background(), inv)
	}()
	return nil
}
