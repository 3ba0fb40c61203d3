package recorder

import (
	"time"
)

// Kind distinguishes synchronous calls from goroutine-launched ones.
type Kind string

const (
	KindSync  Kind = "sync"
	KindAsync Kind = "async"
)

// Record is the structured result of one instrumented invocation. Args,
// Locals, and ReturnValue hold serializer output and are JSON-safe.
type Record struct {
	ID          string        `json:"id"`
	Timestamp   time.Time     `json:"timestamp"`
	Function    string        `json:"function"`
	Kind        Kind          `json:"kind"`
	Args        any           `json:"args"`
	Locals      any           `json:"locals"`
	ReturnValue any           `json:"return_value"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
	TraceID     string        `json:"trace_id,omitempty"`
	SpanID      string        `json:"span_id,omitempty"`
}
