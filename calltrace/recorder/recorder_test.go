package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kyralabs/lib-calltrace/calltrace/log"
	"github.com/kyralabs/lib-calltrace/calltrace/serialize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedEntry struct {
	level  log.Level
	msg    string
	fields []log.Field
}

// captureLogger is an in-memory log.Logger for asserting emitted records.
type captureLogger struct {
	mu      sync.Mutex
	entries []capturedEntry
}

func (l *captureLogger) Log(_ context.Context, level log.Level, msg string, fields ...log.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, capturedEntry{level: level, msg: msg, fields: fields})
}

//nolint:ireturn
func (l *captureLogger) With(_ ...log.Field) log.Logger { return l }

//nolint:ireturn
func (l *captureLogger) WithGroup(_ string) log.Logger { return l }

func (l *captureLogger) Enabled(_ log.Level) bool { return true }

func (l *captureLogger) Sync(_ context.Context) error { return nil }

func (l *captureLogger) all() []capturedEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]capturedEntry, len(l.entries))
	copy(out, l.entries)

	return out
}

// records extracts the Record payloads from captured entries.
func (l *captureLogger) records(t *testing.T) []Record {
	t.Helper()

	var out []Record

	for _, entry := range l.all() {
		for _, f := range entry.fields {
			if f.Key != "record" {
				continue
			}

			rec, ok := f.Value.(Record)
			require.True(t, ok, "record field must hold a Record")
			out = append(out, rec)
		}
	}

	return out
}

// text renders every captured record as JSON, approximating what a sink
// would persist.
func (l *captureLogger) text(t *testing.T) string {
	t.Helper()

	encoded, err := json.Marshal(l.records(t))
	require.NoError(t, err)

	return string(encoded)
}

func TestEndToEndAuthScenario(t *testing.T) {
	t.Parallel()

	sink := &captureLogger{}
	rec := New(sink)

	auth := Wrap2(rec, NewSignature("auth", P("username"), P("password")),
		func(ctx context.Context, username, _ string) (string, error) {
			apiKey := "sk_live_1234567890abcdef"
			CallFromContext(ctx).SetLocal("api_key", apiKey)

			return "ok " + username, nil
		})

	out, err := auth(context.Background(), "john", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "ok john", out)

	text := sink.text(t)
	assert.Contains(t, text, "****")
	assert.NotContains(t, text, "secret123")
	assert.NotContains(t, text, "sk_live_1234567890abcdef")
	assert.Contains(t, text, "john", "non-sensitive argument survives")

	records := sink.records(t)
	require.Len(t, records, 1)
	assert.Equal(t, "auth", records[0].Function)
	assert.Equal(t, KindSync, records[0].Kind)
	assert.Equal(t, "ok john", records[0].ReturnValue)
}

func TestEndToEndAddScenario(t *testing.T) {
	t.Parallel()

	sink := &captureLogger{}
	rec := New(sink)

	add := Wrap2(rec, NewSignature("add", P("x"), P("y")),
		func(_ context.Context, x, y int) (int, error) {
			return x + y, nil
		})

	out, err := add(context.Background(), 5, 3)
	require.NoError(t, err)
	assert.Equal(t, 8, out)

	records := sink.records(t)
	require.Len(t, records, 1)

	args, ok := records[0].Args.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 5, args["x"])
	assert.Equal(t, 3, args["y"])
	assert.Equal(t, 8, records[0].ReturnValue, "numbers are never masked")
}

func TestErrorPropagation(t *testing.T) {
	t.Parallel()

	sink := &captureLogger{}
	rec := New(sink)

	boom := errors.New("boom")

	fail := Wrap1(rec, NewSignature("fail", P("input")),
		func(_ context.Context, _ string) (string, error) {
			return "", boom
		})

	_, err := fail(context.Background(), "x")
	require.ErrorIs(t, err, boom, "the original error must reach the caller unchanged")

	entries := sink.all()
	require.Len(t, entries, 1)
	assert.Equal(t, log.LevelError, entries[0].level)

	records := sink.records(t)
	require.Len(t, records, 1)
	assert.Contains(t, records[0].Error, "boom")
}

func TestPanicPropagation(t *testing.T) {
	t.Parallel()

	sink := &captureLogger{}
	rec := New(sink)

	explode := Wrap1(rec, NewSignature("explode", P("input")),
		func(_ context.Context, _ int) (int, error) {
			panic("kaput")
		})

	assert.PanicsWithValue(t, "kaput", func() {
		_, _ = explode(context.Background(), 1)
	})

	records := sink.records(t)
	require.Len(t, records, 1, "a record is emitted before the panic propagates")
	assert.Contains(t, records[0].Error, "kaput")
}

func TestArgumentBinding(t *testing.T) {
	t.Parallel()

	t.Run("defaults fill unsupplied optional parameters", func(t *testing.T) {
		t.Parallel()

		sink := &captureLogger{}
		rec := New(sink)

		call, _ := rec.Begin(context.Background(),
			NewSignature("greet", P("name"), PDefault("greeting", "hello")),
			KindSync, "ada")
		call.End("hello ada", nil)

		records := sink.records(t)
		require.Len(t, records, 1)

		args, ok := records[0].Args.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "ada", args["name"])
		assert.Equal(t, "hello", args["greeting"])
	})

	t.Run("arity mismatch yields a structured error, not a panic", func(t *testing.T) {
		t.Parallel()

		sink := &captureLogger{}
		rec := New(sink)

		call, _ := rec.Begin(context.Background(),
			NewSignature("narrow", P("only")),
			KindSync, "a", "b", "c")
		call.End(nil, nil)

		records := sink.records(t)
		require.Len(t, records, 1)

		args, ok := records[0].Args.(map[string]any)
		require.True(t, ok)
		assert.Contains(t, args["_error"], "failed to bind arguments")
	})

	t.Run("missing required argument yields a structured error", func(t *testing.T) {
		t.Parallel()

		sink := &captureLogger{}
		rec := New(sink)

		call, _ := rec.Begin(context.Background(),
			NewSignature("needy", P("required")),
			KindSync)
		call.End(nil, nil)

		records := sink.records(t)
		require.Len(t, records, 1)

		args, ok := records[0].Args.(map[string]any)
		require.True(t, ok)
		assert.Contains(t, args["_error"], `"required"`)
	})
}

func TestCallEmitsExactlyOnce(t *testing.T) {
	t.Parallel()

	sink := &captureLogger{}
	rec := New(sink)

	call, _ := rec.Begin(context.Background(), NewSignature("once"), KindSync)
	call.End("first", nil)
	call.End("second", nil)
	call.EndPanic("third")

	require.Len(t, sink.records(t), 1)
	assert.Equal(t, "first", sink.records(t)[0].ReturnValue)
}

func TestLocalsFiltering(t *testing.T) {
	t.Parallel()

	sink := &captureLogger{}
	rec := New(sink)

	call, _ := rec.Begin(context.Background(), NewSignature("work"), KindSync)
	call.SetLocal("visible", 1)
	call.SetLocal("__hidden", 2)
	call.SetLocal("hidden__", 3)
	call.End(nil, nil)

	records := sink.records(t)
	require.Len(t, records, 1)

	locals, ok := records[0].Locals.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, locals, "visible")
	assert.NotContains(t, locals, "__hidden")
	assert.NotContains(t, locals, "hidden__")
}

func TestAsyncTask(t *testing.T) {
	t.Parallel()

	sink := &captureLogger{}
	rec := New(sink)

	task := rec.Go(context.Background(),
		NewSignature("fetch", P("url")),
		func(_ context.Context) (any, error) {
			return "payload", nil
		},
		"https://example.com")

	result, err := task.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "payload", result)

	records := sink.records(t)
	require.Len(t, records, 1)
	assert.Equal(t, KindAsync, records[0].Kind)
	assert.Equal(t, "payload", records[0].ReturnValue)
}

func TestTaskSerializesAsSentinelWithoutBlocking(t *testing.T) {
	t.Parallel()

	sink := &captureLogger{}
	rec := New(sink)

	release := make(chan struct{})
	task := rec.Go(context.Background(), NewSignature("slow"),
		func(_ context.Context) (any, error) {
			<-release
			return nil, nil
		})

	done := make(chan any, 1)
	go func() {
		done <- rec.Serializer().Value(task)
	}()

	select {
	case out := <-done:
		assert.Equal(t, serialize.SentinelCoroutine, out)
	case <-time.After(2 * time.Second):
		t.Fatal("serializing a pending task must not block")
	}

	close(release)

	_, err := task.Await(context.Background())
	require.NoError(t, err)
}

func TestTaskPanicSurfacesAsError(t *testing.T) {
	t.Parallel()

	sink := &captureLogger{}
	rec := New(sink)

	task := rec.Go(context.Background(), NewSignature("doomed"),
		func(_ context.Context) (any, error) {
			panic("async kaput")
		})

	_, err := task.Await(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "async kaput")

	records := sink.records(t)
	require.Len(t, records, 1)
	assert.Contains(t, records[0].Error, "async kaput")
}

func TestAwaitHonorsContext(t *testing.T) {
	t.Parallel()

	sink := &captureLogger{}
	rec := New(sink)

	release := make(chan struct{})
	defer close(release)

	task := rec.Go(context.Background(), NewSignature("stuck"),
		func(_ context.Context) (any, error) {
			<-release
			return nil, nil
		})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := task.Await(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNilSafety(t *testing.T) {
	t.Parallel()

	t.Run("nil recorder", func(t *testing.T) {
		t.Parallel()

		var rec *Recorder

		call, ctx := rec.Begin(context.Background(), NewSignature("noop"), KindSync)
		require.NotNil(t, ctx)

		assert.NotPanics(t, func() {
			call.SetLocal("x", 1)
			call.End(nil, nil)
			call.EndPanic("v")
		})
	})

	t.Run("nil logger drops records silently", func(t *testing.T) {
		t.Parallel()

		rec := New(nil)
		call, _ := rec.Begin(context.Background(), NewSignature("dropped"), KindSync)

		assert.NotPanics(t, func() { call.End("x", nil) })
	})

	t.Run("nil task awaits to nil", func(t *testing.T) {
		t.Parallel()

		var task *Task

		result, err := task.Await(context.Background())
		require.NoError(t, err)
		assert.Nil(t, result)
	})
}

func TestWithClock(t *testing.T) {
	t.Parallel()

	sink := &captureLogger{}
	frozen := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	rec := New(sink, WithClock(func() time.Time { return frozen }))

	call, _ := rec.Begin(context.Background(), NewSignature("timed"), KindSync)
	call.End(nil, nil)

	records := sink.records(t)
	require.Len(t, records, 1)
	assert.Equal(t, frozen, records[0].Timestamp)
	assert.Equal(t, time.Duration(0), records[0].Duration)
}

func TestWithSerializer(t *testing.T) {
	t.Parallel()

	sink := &captureLogger{}
	rec := New(sink, WithSerializer(serialize.New(nil, serialize.WithoutMasking())))

	call, _ := rec.Begin(context.Background(),
		NewSignature("plain", P("password")), KindSync, "secret123")
	call.End(nil, nil)

	records := sink.records(t)
	require.Len(t, records, 1)

	args, ok := records[0].Args.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "secret123", args["password"], "masking disabled by configuration")
}

func TestLoggingFailureDoesNotMaskOutcome(t *testing.T) {
	t.Parallel()

	rec := New(&panicLogger{})

	wrapped := Wrap1(rec, NewSignature("resilient", P("input")),
		func(_ context.Context, s string) (string, error) {
			return s + "!", nil
		})

	out, err := wrapped(context.Background(), "ok")
	require.NoError(t, err)
	assert.Equal(t, "ok!", out, "a panicking sink must not change the call outcome")
}

// panicLogger simulates a broken sink.
type panicLogger struct{}

func (l *panicLogger) Log(_ context.Context, _ log.Level, _ string, _ ...log.Field) {
	panic("sink is broken")
}

//nolint:ireturn
func (l *panicLogger) With(_ ...log.Field) log.Logger { return l }

//nolint:ireturn
func (l *panicLogger) WithGroup(_ string) log.Logger { return l }

func (l *panicLogger) Enabled(_ log.Level) bool { return true }

func (l *panicLogger) Sync(_ context.Context) error { return nil }

func TestRecordJSONShape(t *testing.T) {
	t.Parallel()

	sink := &captureLogger{}
	rec := New(sink)

	call, _ := rec.Begin(context.Background(),
		NewSignature("shape", P("n")), KindSync, 7)
	call.End(fmt.Sprintf("%d!", 7), nil)

	records := sink.records(t)
	require.Len(t, records, 1)

	encoded, err := json.Marshal(records[0])
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(encoded, &decoded))

	for _, key := range []string{"id", "timestamp", "function", "kind", "args", "locals", "return_value", "duration"} {
		assert.Contains(t, decoded, key)
	}

	assert.NotContains(t, decoded, "error", "empty error is omitted")
}
