package recorder

import (
	"context"
)

// The WrapN helpers package the wrap-call-emit pattern for functions of N
// arguments returning (R, error). A record is emitted on every exit path:
// normal return, error return, and panic. Errors and panics propagate to
// the caller unchanged after the record is emitted.
//
// The wrapped function receives a context carrying its Call, so it can
// record locals via CallFromContext(ctx).SetLocal(...).

// Wrap1 instruments a one-argument function.
func Wrap1[A1, R any](
	r *Recorder, sig Signature, fn func(context.Context, A1) (R, error),
) func(context.Context, A1) (R, error) {
	return func(ctx context.Context, a1 A1) (ret R, err error) {
		call, ctx := r.Begin(ctx, sig, KindSync, a1)
		defer end(call, &ret, &err)

		return fn(ctx, a1)
	}
}

// Wrap2 instruments a two-argument function.
func Wrap2[A1, A2, R any](
	r *Recorder, sig Signature, fn func(context.Context, A1, A2) (R, error),
) func(context.Context, A1, A2) (R, error) {
	return func(ctx context.Context, a1 A1, a2 A2) (ret R, err error) {
		call, ctx := r.Begin(ctx, sig, KindSync, a1, a2)
		defer end(call, &ret, &err)

		return fn(ctx, a1, a2)
	}
}

// Wrap3 instruments a three-argument function.
func Wrap3[A1, A2, A3, R any](
	r *Recorder, sig Signature, fn func(context.Context, A1, A2, A3) (R, error),
) func(context.Context, A1, A2, A3) (R, error) {
	return func(ctx context.Context, a1 A1, a2 A2, a3 A3) (ret R, err error) {
		call, ctx := r.Begin(ctx, sig, KindSync, a1, a2, a3)
		defer end(call, &ret, &err)

		return fn(ctx, a1, a2, a3)
	}
}

// end emits the record for a completed wrapped call. On panic the record is
// emitted first, then the original panic value is re-raised unchanged.
func end[R any](call *Call, ret *R, err *error) {
	if recovered := recover(); recovered != nil {
		call.EndPanic(recovered)
		panic(recovered)
	}

	call.End(*ret, *err)
}
