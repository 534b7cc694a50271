// Package functions holds operations over finished columns: row-wise string
// concatenation, multi-key argsort and the covariance family.
package functions

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/TFMV/chunky/builder"
	"github.com/TFMV/chunky/column"
)

// DefaultScratchCapacity is the initial size of the per-row concatenation buffer.
const DefaultScratchCapacity = 128

// broadcastSource yields one optional string per output row. Unit-length
// inputs repeat a single value; all other inputs stream their rows.
type broadcastSource struct {
	cursor *column.StringCursor
	value  string
	valid  bool
}

func (s *broadcastSource) next() (string, bool) {
	if s.cursor == nil {
		return s.value, s.valid
	}
	v, valid, ok := s.cursor.Next()
	if !ok {
		panic("functions: streaming source exhausted before output length")
	}
	return v, valid
}

// ConcatStr casts every column to strings and concatenates them row by row,
// separated by delimiter. Columns of length one are broadcast to the output
// length, which is the longest input length. A null in any input makes the
// output row null.
func ConcatStr(ctx context.Context, cols []*column.Column, delimiter string, opts ...Option) (*column.Column, error) {
	o := newOptions(opts)
	if len(cols) == 0 {
		return nil, column.Errorf(column.ErrNoData, "expected multiple columns in concat_str")
	}
	length := 0
	for _, c := range cols {
		length = max(length, c.Len())
	}
	for _, c := range cols {
		if c.Len() != 1 && c.Len() != length {
			return nil, column.Errorf(column.ErrShapeMismatch,
				"all columns in concat_str should have equal length or unit length: %q has %d, want %d",
				c.Name(), c.Len(), length)
		}
	}

	strs := make([]*column.Column, 0, len(cols))
	defer func() {
		for _, s := range strs {
			s.Release()
		}
	}()
	for _, c := range cols {
		s, err := column.CastUtf8(ctx, c, o.mem)
		if err != nil {
			return nil, fmt.Errorf("concat_str: %w", err)
		}
		strs = append(strs, s)
	}

	sources := make([]*broadcastSource, len(strs))
	bytesCap := 0
	for i, s := range strs {
		if s.Len() == 1 {
			v := s.Get(0)
			sources[i] = &broadcastSource{value: v.Str(), valid: !v.IsNull()}
			continue
		}
		cursor, err := s.Cursor()
		if err != nil {
			return nil, err
		}
		sources[i] = &broadcastSource{cursor: cursor}
		bytesCap += s.ValuesSize()
	}

	b := builder.NewUtf8Bytes(cols[0].Name(), length, bytesCap, o.builderOpts...)
	buf := make([]byte, 0, o.scratch)
	for row := 0; row < length; row++ {
		hasNull := false
		for i, src := range sources {
			v, valid := src.next()
			if !valid {
				hasNull = true
			}
			if hasNull {
				continue
			}
			if i > 0 {
				buf = append(buf, delimiter...)
			}
			buf = append(buf, v...)
		}
		if hasNull {
			b.AppendNull()
		} else {
			b.AppendValue(buf)
		}
		buf = buf[:0]
	}
	return b.Finish(), nil
}

// ---------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------

type options struct {
	mem         memory.Allocator
	scratch     int
	builderOpts []builder.Option
}

// Option configures a function call.
type Option func(*options)

// WithAllocator sets the allocator for casts and output columns.
func WithAllocator(mem memory.Allocator) Option {
	return func(o *options) {
		o.mem = mem
		o.builderOpts = append(o.builderOpts, builder.WithAllocator(mem))
	}
}

// WithBuilderOptions forwards options to the builders creating outputs.
func WithBuilderOptions(opts ...builder.Option) Option {
	return func(o *options) { o.builderOpts = append(o.builderOpts, opts...) }
}

// WithScratchCapacity sets the initial size of ConcatStr's row buffer.
func WithScratchCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.scratch = n
		}
	}
}

func newOptions(opts []Option) options {
	o := options{mem: memory.DefaultAllocator, scratch: DefaultScratchCapacity}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
