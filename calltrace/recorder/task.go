package recorder

import (
	"context"
	"fmt"
)

// Task is the handle of a goroutine-launched instrumented call. It
// implements serialize.Awaiter, so a Task that ends up inside another
// record serializes to the "<coroutine>" sentinel instead of blocking on
// its result.
type Task struct {
	done   chan struct{}
	result any
	err    error
}

// Go runs fn in a new goroutine and records its completion as an async
// record. args are bound against sig for the record only; fn receives them
// through its closure. A panic inside fn is recorded and surfaced as the
// task's error rather than crashing the process.
func (r *Recorder) Go(ctx context.Context, sig Signature, fn func(context.Context) (any, error), args ...any) *Task {
	call, ctx := r.Begin(ctx, sig, KindAsync, args...)

	t := &Task{done: make(chan struct{})}

	go func() {
		defer close(t.done)
		defer func() {
			if recovered := recover(); recovered != nil {
				call.EndPanic(recovered)
				t.err = fmt.Errorf("panic: %v", recovered)
			}
		}()

		t.result, t.err = fn(ctx)
		call.End(t.result, t.err)
	}()

	return t
}

// Await blocks until the task completes or ctx is done, and returns the
// task's outcome.
func (t *Task) Await(ctx context.Context) (any, error) {
	if t == nil {
		return nil, nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.done:
		return t.result, t.err
	}
}
