// Package recorder emits one structured log record per instrumented
// function invocation: bound arguments, explicitly captured locals, return
// value, and failure, all passed through the safe serializer so secret
// material is masked before it reaches the sink.
//
// A Recorder is an explicit, caller-constructed instance; there is no
// package-level default. The scoped Call type guarantees record emission on
// every exit path, and the generic WrapN helpers package the common
// wrap-call-emit pattern. Failures inside the recorder are always recovered
// locally: instrumentation can slow a call down, but it can never change
// its outcome.
package recorder
