// Package sensitive detects and masks secret-looking values before they
// reach a log sink.
//
// Detection is two-phase: a name heuristic (does the associated variable or
// parameter name contain a secret-suggesting keyword?) and a content
// heuristic (does the value itself look like a token, hex blob, bearer
// credential, or base64 secret?). Name-based detection wins and skips the
// content patterns.
//
// The detector is pure and stateless beyond its immutable keyword and
// pattern tables, so a single instance is safe for concurrent use. It never
// returns an error and never panics: any failure during inspection degrades
// to "not sensitive" so instrumentation can never break the code it
// observes.
package sensitive
