// Package calltrace provides shared plumbing for the calltrace instrumentation
// library: request-scoped context carriers for logger, tracer, and correlation
// ID, plus small validation helpers used by the middleware adapters.
//
// Typical usage at request ingress:
//
//	ctx = calltrace.ContextWithLogger(ctx, logger)
//	ctx = calltrace.ContextWithHeaderID(ctx, requestID)
//
// The instrumentation core lives in subpackages: sensitive (detection and
// masking), serialize (bounded safe serialization), and recorder (call
// records). This root package is intentionally dependency-light.
package calltrace
