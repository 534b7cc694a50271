// Package builder accumulates row-oriented input into immutable, chunked
// columns. Scalar and string builders produce a single chunk on Finish; list
// builders flatten whole sub-columns into one contiguous child array per
// list column.
//
// Builders are single-writer and single-use: Finish consumes the builder and
// any further call on it panics with ErrBuilderFinished.
package builder

import (
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"

	"github.com/TFMV/chunky/column"
)

// Logic errors. These are raised as panics because they signal a broken
// caller invariant rather than bad input data.
var (
	ErrBuilderFinished = errors.New("builder already finished")
	ErrUnsupportedType = errors.New("unsupported list element type")
)

// DefaultUtf8BytesFactor is the number of payload bytes reserved per value
// when a string builder is sized without a byte estimate.
const DefaultUtf8BytesFactor = 5

// ChunkedBuilder is the append/finish contract shared by the scalar and
// string builders. N is the value type accepted by the builder.
type ChunkedBuilder[N any] interface {
	AppendValue(v N)
	AppendNull()
	// AppendOption appends v when ok is true and a null slot otherwise.
	AppendOption(v N, ok bool)
	Len() int
	Finish() *column.Column
}

func appendOption[N any](b ChunkedBuilder[N], v N, ok bool) {
	if ok {
		b.AppendValue(v)
	} else {
		b.AppendNull()
	}
}

// ---------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------

type options struct {
	mem             memory.Allocator
	logger          *zap.Logger
	utf8BytesFactor int
}

// Option configures a builder.
type Option func(*options)

// WithAllocator sets the allocator used for value and validity buffers.
func WithAllocator(mem memory.Allocator) Option {
	return func(o *options) { o.mem = mem }
}

// WithLogger sets the logger used to report capacity misses.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithUtf8BytesFactor overrides DefaultUtf8BytesFactor for builders that
// derive a byte capacity from a value capacity.
func WithUtf8BytesFactor(factor int) Option {
	return func(o *options) {
		if factor > 0 {
			o.utf8BytesFactor = factor
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		mem:             memory.DefaultAllocator,
		logger:          zap.NewNop(),
		utf8BytesFactor: DefaultUtf8BytesFactor,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ---------------------------------------------------------------------
// Building / Finished state
// ---------------------------------------------------------------------

type state struct {
	kind     string
	name     string
	finished bool
}

func (s *state) check() {
	if s.finished {
		panic(fmt.Errorf("%w: %s builder %q", ErrBuilderFinished, s.kind, s.name))
	}
}

func (s *state) finish() {
	s.check()
	s.finished = true
}

// observeFinish records metrics for a finished chunk and logs when the
// builder outgrew its row capacity hint.
func observeFinish(o options, s *state, length, capacity int) {
	rowsAppended.WithLabelValues(s.kind).Add(float64(length))
	chunksFinished.WithLabelValues(s.kind).Inc()
	if length > capacity {
		o.logger.Debug("builder outgrew capacity hint",
			zap.String("kind", s.kind),
			zap.String("name", s.name),
			zap.Int("capacity", capacity),
			zap.Int("len", length))
	}
}
