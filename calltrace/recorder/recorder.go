package recorder

import (
	"time"

	"github.com/google/uuid"
	"github.com/kyralabs/lib-calltrace/calltrace/log"
	"github.com/kyralabs/lib-calltrace/calltrace/serialize"
)

// Recorder emits call records to a structured logger. Construct one
// explicitly and thread it through call sites; the zero value and nil are
// safe no-ops.
type Recorder struct {
	logger     log.Logger
	serializer *serialize.Serializer
	level      log.Level
	clock      func() time.Time
	newID      func() string
}

// Option customizes a Recorder under construction.
type Option func(*Recorder)

// WithSerializer replaces the default serializer, e.g. to install a custom
// detector or disable masking.
func WithSerializer(s *serialize.Serializer) Option {
	return func(r *Recorder) {
		if s != nil {
			r.serializer = s
		}
	}
}

// WithLevel sets the level used for successful-call records. Failure
// records always log at error level.
func WithLevel(level log.Level) Option {
	return func(r *Recorder) {
		r.level = level
	}
}

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(r *Recorder) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// New builds a Recorder over the given logger. A nil logger drops all
// records.
func New(logger log.Logger, opts ...Option) *Recorder {
	if logger == nil {
		logger = log.NewNop()
	}

	r := &Recorder{
		logger:     logger,
		serializer: serialize.New(nil),
		level:      log.LevelInfo,
		clock:      time.Now,
		newID:      func() string { return uuid.New().String() },
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Serializer returns the serializer records pass through.
func (r *Recorder) Serializer() *serialize.Serializer {
	if r == nil {
		return serialize.New(nil)
	}

	return r.serializer
}
