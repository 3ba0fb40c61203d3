package recorder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kyralabs/lib-calltrace/calltrace/log"
	"go.opentelemetry.io/otel/trace"
)

func timeFromNanos(ns int64) time.Time {
	return time.Unix(0, ns)
}

type callContextKey struct{}

// ContextWithCall returns a child context carrying the in-flight call.
func ContextWithCall(ctx context.Context, call *Call) context.Context {
	return context.WithValue(ctx, callContextKey{}, call)
}

// CallFromContext returns the in-flight call attached to ctx, or nil. This
// is the explicit opt-in mechanism for locals capture: instrumented code
// fetches its call and records the locals it wants logged.
func CallFromContext(ctx context.Context) *Call {
	call, _ := ctx.Value(callContextKey{}).(*Call)

	return call
}

// Call is the scoped state of one instrumented invocation. Begin it, record
// locals as the function runs, then End it exactly once; every exit path of
// the WrapN helpers does this automatically.
//
// All methods are safe on a nil receiver and safe for concurrent use, so an
// instrumented function may hand its Call to goroutines it spawns.
type Call struct {
	rec     *Recorder
	sig     Signature
	kind    Kind
	started int64 // nanoseconds, from the recorder clock
	args    map[string]any
	argsErr error

	traceID string
	spanID  string

	mu     sync.Mutex
	locals map[string]any
	ended  bool
}

// Begin starts a call record, binds args against the signature, and returns
// the call plus a child context carrying it. Binding failures are captured
// as a structured error inside the record; Begin itself never fails.
func (r *Recorder) Begin(ctx context.Context, sig Signature, kind Kind, args ...any) (*Call, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	if r == nil {
		return nil, ctx
	}

	call := &Call{
		rec:     r,
		sig:     sig,
		kind:    kind,
		started: r.clock().UnixNano(),
	}

	call.args, call.argsErr = sig.bind(args)

	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		call.traceID = sc.TraceID().String()
		call.spanID = sc.SpanID().String()
	}

	return call, ContextWithCall(ctx, call)
}

// SetLocal records a named local variable for inclusion in the record.
func (c *Call) SetLocal(name string, value any) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.locals == nil {
		c.locals = make(map[string]any)
	}

	c.locals[name] = value
}

// End emits the call record with the given outcome. Only the first End (or
// EndPanic) emits; later calls are no-ops.
func (c *Call) End(ret any, err error) {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}

	c.emit(ret, errMsg)
}

// EndPanic emits an error record for a panicking call. The caller re-panics
// with the original value afterwards; EndPanic itself never panics.
func (c *Call) EndPanic(recovered any) {
	c.emit(nil, fmt.Sprintf("panic: %v", recovered))
}

// emit serializes the captured state and writes one log record. Any failure
// inside serialization or the sink is recovered: the instrumented call's
// outcome always wins over a logging problem.
func (c *Call) emit(ret any, errMsg string) {
	if c == nil || c.rec == nil {
		return
	}

	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return
	}

	c.ended = true
	locals := c.locals
	c.mu.Unlock()

	defer func() {
		_ = recover()
	}()

	rec := c.rec
	now := rec.clock()

	record := Record{
		ID:          rec.newID(),
		Timestamp:   now,
		Function:    c.sig.Name,
		Kind:        c.kind,
		Args:        c.serializedArgs(),
		Locals:      rec.serializer.Locals(locals),
		ReturnValue: rec.serializer.Value(ret),
		Error:       errMsg,
		Duration:    now.Sub(timeFromNanos(c.started)),
		TraceID:     c.traceID,
		SpanID:      c.spanID,
	}

	level, msg := rec.level, "function executed"
	if errMsg != "" {
		level, msg = log.LevelError, "function execution failed"
	}

	rec.logger.Log(context.Background(), level, msg,
		log.String("function", record.Function),
		log.Any("record", record),
	)
}

// serializedArgs renders the bound arguments, or the structured binding
// error when binding failed.
func (c *Call) serializedArgs() any {
	if c.argsErr != nil {
		return map[string]any{
			"_error": fmt.Sprintf("failed to bind arguments: %v", c.argsErr),
		}
	}

	out := make(map[string]any, len(c.args))
	for name, v := range c.args {
		out[name] = c.rec.serializer.Named(v, name)
	}

	return out
}
