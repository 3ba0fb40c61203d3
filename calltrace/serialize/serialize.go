package serialize

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kyralabs/lib-calltrace/calltrace/sensitive"
	"github.com/shopspring/decimal"
)

// Sentinels for pending asynchronous values. Serialization reports their
// category and never resolves, receives from, or waits on them.
const (
	SentinelCoroutine = "<coroutine>"
	SentinelFuture    = "<future>"
	SentinelAwaitable = "<awaitable>"

	// sentinelMaxDepth replaces subtrees beyond the depth limit. A fixed
	// sentinel is used instead of a repr: a repr of a deep structure could
	// leak the very values the detector exists to hide.
	sentinelMaxDepth = "<max depth>"
)

const (
	defaultMaxElements = 5
	defaultMaxDepth    = 16

	// maxReprLen bounds the textual placeholder for exotic values.
	maxReprLen = 100
)

// Awaiter is a pending computation that can be resolved later. The
// recorder's Task implements it. Serialization reports such values as
// "<coroutine>" without calling Await.
type Awaiter interface {
	Await(ctx context.Context) (any, error)
}

// doneWaiter matches context.Context and similar waitable handles.
type doneWaiter interface {
	Done() <-chan struct{}
}

// Serializer transforms values into JSON-safe trees. It is stateless beyond
// its configuration and safe for concurrent use.
type Serializer struct {
	detector    *sensitive.Detector
	maxElements int
	maxDepth    int
	masking     bool
}

// Option customizes a Serializer under construction.
type Option func(*Serializer)

// WithMaxElements overrides the per-collection element cap.
func WithMaxElements(n int) Option {
	return func(s *Serializer) {
		if n > 0 {
			s.maxElements = n
		}
	}
}

// WithMaxDepth overrides the recursion depth limit.
func WithMaxDepth(n int) Option {
	return func(s *Serializer) {
		if n > 0 {
			s.maxDepth = n
		}
	}
}

// WithoutMasking disables the sensitive-value detector. Values still pass
// through bounding and placeholder conversion.
func WithoutMasking() Option {
	return func(s *Serializer) {
		s.masking = false
	}
}

// New builds a Serializer over the given detector. A nil detector selects
// the default detector tables.
func New(detector *sensitive.Detector, opts ...Option) *Serializer {
	if detector == nil {
		detector = sensitive.Default()
	}

	s := &Serializer{
		detector:    detector,
		maxElements: defaultMaxElements,
		maxDepth:    defaultMaxDepth,
		masking:     true,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Value serializes v with no name context.
func (s *Serializer) Value(v any) any {
	return s.serialize(v, "", 0)
}

// Named serializes v using name as the sensitivity context, so
// Named(secret, "password") masks even when the value matches no content
// pattern.
func (s *Serializer) Named(v any, name string) any {
	return s.serialize(v, name, 0)
}

// Locals serializes a map of captured local variables. Names following the
// double-underscore internal convention (leading or trailing "__") are
// excluded; each remaining value is serialized with its own name as context.
func (s *Serializer) Locals(locals map[string]any) map[string]any {
	out := make(map[string]any, len(locals))

	for name, v := range locals {
		if strings.HasPrefix(name, "__") || strings.HasSuffix(name, "__") {
			continue
		}

		out[name] = s.serialize(v, name, 0)
	}

	return out
}

// serialize dispatches over a closed set of value categories. The order is
// significant: strings consult the detector first, scalars can never hold
// secrets under this design and pass unchanged, pending asynchronous values
// collapse to sentinels before any structural inspection, and everything
// unrecognized lands in the placeholder arm.
func (s *Serializer) serialize(v any, name string, depth int) any {
	if v == nil {
		return nil
	}

	if depth > s.maxDepth {
		return sentinelMaxDepth
	}

	switch t := v.(type) {
	case string:
		return s.maskString(t, name)
	case []byte:
		return s.maskString(string(t), name)
	case bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64,
		json.Number:
		return t
	case decimal.Decimal:
		return json.Number(t.String())
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case time.Duration:
		return t.String()
	case uuid.UUID:
		return t.String()
	}

	if _, ok := v.(Awaiter); ok {
		return SentinelCoroutine
	}

	if _, ok := v.(doneWaiter); ok {
		return SentinelAwaitable
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Chan:
		return SentinelFuture
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		// Dereference counts against the depth limit so pointer cycles
		// terminate.
		return s.serialize(rv.Elem().Interface(), name, depth+1)
	case reflect.Slice, reflect.Array:
		return s.serializeSequence(rv, name, depth)
	case reflect.Map:
		return s.serializeMap(rv, depth)
	default:
		return placeholder(v)
	}
}

func (s *Serializer) maskString(value, name string) any {
	if !s.masking {
		return value
	}

	return s.detector.MaskIfSensitive(value, name)
}

// serializeSequence keeps only the first maxElements entries. Remaining
// elements are discarded silently; no truncation marker is emitted.
func (s *Serializer) serializeSequence(rv reflect.Value, name string, depth int) []any {
	n := rv.Len()
	if n > s.maxElements {
		n = s.maxElements
	}

	out := make([]any, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, s.serialize(rv.Index(i).Interface(), name, depth+1))
	}

	return out
}

// serializeMap keeps at most maxElements entries, selected and emitted in
// sorted key order since Go maps have no stable iteration order. Each key is
// stringified and becomes the name context for its value, so nested
// sensitive keys are still detected.
func (s *Serializer) serializeMap(rv reflect.Value, depth int) map[string]any {
	keys := rv.MapKeys()

	names := make([]string, 0, len(keys))
	byName := make(map[string]reflect.Value, len(keys))

	for _, k := range keys {
		name := stringifyKey(k.Interface())
		if _, dup := byName[name]; !dup {
			names = append(names, name)
		}

		byName[name] = k
	}

	sort.Strings(names)

	if len(names) > s.maxElements {
		names = names[:s.maxElements]
	}

	out := make(map[string]any, len(names))
	for _, name := range names {
		out[name] = s.serialize(rv.MapIndex(byName[name]).Interface(), name, depth+1)
	}

	return out
}

// placeholder renders an unrecognized value as "<TypeName: repr>" with the
// repr truncated. Panics from custom Stringer implementations are swallowed.
func placeholder(v any) (out string) {
	defer func() {
		if recover() != nil {
			out = fmt.Sprintf("<%T>", v)
		}
	}()

	repr := fmt.Sprint(v)
	if runes := []rune(repr); len(runes) > maxReprLen {
		repr = string(runes[:maxReprLen])
	}

	return fmt.Sprintf("<%T: %s>", v, repr)
}

// stringifyKey renders a map key, swallowing Stringer panics.
func stringifyKey(k any) (out string) {
	defer func() {
		if recover() != nil {
			out = fmt.Sprintf("<%T>", k)
		}
	}()

	return fmt.Sprint(k)
}
