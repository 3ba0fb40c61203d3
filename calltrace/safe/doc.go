// Package safe provides error-returning wrappers around operations that
// would otherwise panic, currently regex compilation with a bounded cache.
//
// Caller-supplied detector patterns go through safe.Compile so an invalid
// pattern surfaces as an error at construction time instead of a panic at
// masking time.
package safe
