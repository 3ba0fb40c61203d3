// Package log defines the backend-neutral logging interface used by the
// recorder and middleware, along with typed logging fields.
//
// Adapters (such as the zap package) implement Logger so instrumentation
// output stays consistent across backends.
package log
