package builder

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"go.uber.org/zap"

	"github.com/TFMV/chunky/column"
)

// Utf8 builds a single-chunk string column.
type Utf8 struct {
	state
	builder       *array.StringBuilder
	field         column.Field
	capacity      int
	bytesCapacity int
	opts          options
}

// NewUtf8 creates a string builder sized for capacity rows holding
// bytesCapacity bytes of payload in total. Both are hints; underestimates
// only cost reallocations.
func NewUtf8(name string, capacity, bytesCapacity int, opts ...Option) *Utf8 {
	o := newOptions(opts)
	b := array.NewStringBuilder(o.mem)
	b.Reserve(capacity)
	b.ReserveData(bytesCapacity)
	return &Utf8{
		state:         state{kind: column.Utf8.String(), name: name},
		builder:       b,
		field:         column.Field{Name: name, Type: column.Utf8},
		capacity:      capacity,
		bytesCapacity: bytesCapacity,
		opts:          o,
	}
}

func (b *Utf8) AppendValue(s string) {
	b.check()
	b.builder.Append(s)
}

// AppendBytes appends v as one string value without converting it to a
// string first. v is copied and may be reused by the caller.
func (b *Utf8) AppendBytes(v []byte) {
	b.check()
	b.builder.BinaryBuilder.Append(v)
}

func (b *Utf8) AppendNull() {
	b.check()
	b.builder.AppendNull()
}

func (b *Utf8) AppendOption(s string, ok bool) {
	appendOption[string](b, s, ok)
}

// AppendValues appends vals in one call; see Primitive.AppendValues.
func (b *Utf8) AppendValues(vals []string, valid []bool) {
	b.check()
	b.builder.AppendValues(vals, valid)
}

func (b *Utf8) Len() int { return b.builder.Len() }

func (b *Utf8) Finish() *column.Column {
	b.finish()
	length, size := b.builder.Len(), b.builder.DataLen()
	arr := b.builder.NewArray()
	b.builder.Release()
	observeFinish(b.opts, &b.state, length, b.capacity)
	if size > b.bytesCapacity {
		b.opts.logger.Debug("string builder outgrew byte capacity hint",
			zap.String("name", b.field.Name),
			zap.Int("bytes_capacity", b.bytesCapacity),
			zap.Int("bytes", size))
	}
	return column.New(b.field, []arrow.Array{arr})
}

// Utf8Bytes adapts a Utf8 builder to accept byte slices, borrowed or owned,
// as values. It forwards every call and adds no semantics of its own.
type Utf8Bytes struct {
	b *Utf8
}

// NewUtf8Bytes creates a byte-slice adapter over a new Utf8 builder.
func NewUtf8Bytes(name string, capacity, bytesCapacity int, opts ...Option) *Utf8Bytes {
	return &Utf8Bytes{b: NewUtf8(name, capacity, bytesCapacity, opts...)}
}

func (a *Utf8Bytes) AppendValue(v []byte) { a.b.AppendBytes(v) }
func (a *Utf8Bytes) AppendNull()          { a.b.AppendNull() }
func (a *Utf8Bytes) Len() int             { return a.b.Len() }
func (a *Utf8Bytes) Finish() *column.Column {
	return a.b.Finish()
}

func (a *Utf8Bytes) AppendOption(v []byte, ok bool) {
	appendOption[[]byte](a, v, ok)
}

var (
	_ ChunkedBuilder[int64]  = (*Primitive[int64])(nil)
	_ ChunkedBuilder[bool]   = (*Primitive[bool])(nil)
	_ ChunkedBuilder[string] = (*Utf8)(nil)
	_ ChunkedBuilder[[]byte] = (*Utf8Bytes)(nil)
)
