package calltrace

import (
	"context"

	"github.com/kyralabs/lib-calltrace/calltrace/log"
	"go.opentelemetry.io/otel/trace"
)

type carrierContextKey string

// CarrierContextKey is the context key under which the request-scoped
// carrier is stored.
var CarrierContextKey = carrierContextKey("calltrace_carrier")

// Carrier holds the request-scoped facilities attached to a context.
type Carrier struct {
	HeaderID string
	Tracer   trace.Tracer
	Logger   log.Logger
}

// clone returns a copy of the carrier stored in ctx, or an empty carrier.
// Carriers are copied on write so derived contexts never mutate their parent.
func clone(ctx context.Context) *Carrier {
	if existing, ok := ctx.Value(CarrierContextKey).(*Carrier); ok && existing != nil {
		copied := *existing
		return &copied
	}

	return &Carrier{}
}

// ContextWithLogger returns a child context carrying the given logger.
func ContextWithLogger(ctx context.Context, logger log.Logger) context.Context {
	carrier := clone(ctx)
	carrier.Logger = logger

	return context.WithValue(ctx, CarrierContextKey, carrier)
}

// LoggerFromContext extracts the logger from ctx. It never returns nil: when
// no logger is attached, a no-op logger is returned.
//
//nolint:ireturn
func LoggerFromContext(ctx context.Context) log.Logger {
	if carrier, ok := ctx.Value(CarrierContextKey).(*Carrier); ok && carrier.Logger != nil {
		return carrier.Logger
	}

	return &log.NopLogger{}
}

// ContextWithTracer returns a child context carrying the given tracer.
func ContextWithTracer(ctx context.Context, tracer trace.Tracer) context.Context {
	carrier := clone(ctx)
	carrier.Tracer = tracer

	return context.WithValue(ctx, CarrierContextKey, carrier)
}

// TracerFromContext extracts the tracer from ctx, or nil when absent.
func TracerFromContext(ctx context.Context) trace.Tracer {
	if carrier, ok := ctx.Value(CarrierContextKey).(*Carrier); ok {
		return carrier.Tracer
	}

	return nil
}

// ContextWithHeaderID returns a child context carrying the correlation ID.
func ContextWithHeaderID(ctx context.Context, headerID string) context.Context {
	carrier := clone(ctx)
	carrier.HeaderID = headerID

	return context.WithValue(ctx, CarrierContextKey, carrier)
}

// HeaderIDFromContext extracts the correlation ID from ctx, or "" when absent.
func HeaderIDFromContext(ctx context.Context) string {
	if carrier, ok := ctx.Value(CarrierContextKey).(*Carrier); ok {
		return carrier.HeaderID
	}

	return ""
}
