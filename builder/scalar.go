package builder

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/TFMV/chunky/column"
)

// arrowPrimitiveBuilder is the subset of arrow's fixed-width builders used
// by Primitive. Boolean and every numeric builder satisfy it.
type arrowPrimitiveBuilder[T any] interface {
	array.Builder
	Append(T)
	AppendValues([]T, []bool)
}

// Primitive builds a single-chunk column of fixed-width values: booleans or
// any numeric type.
type Primitive[T any] struct {
	state
	builder  arrowPrimitiveBuilder[T]
	field    column.Field
	capacity int
	opts     options
}

// NewNumeric creates a numeric builder. capacity is a pre-allocation hint,
// not a bound.
func NewNumeric[T column.Numeric](name string, capacity int, opts ...Option) *Primitive[T] {
	return newPrimitive[T](column.Field{Name: name, Type: column.NumericType[T]()}, capacity, opts)
}

// NewBoolean creates a boolean builder.
func NewBoolean(name string, capacity int, opts ...Option) *Primitive[bool] {
	return newPrimitive[bool](column.Field{Name: name, Type: column.Boolean}, capacity, opts)
}

func newPrimitive[T any](field column.Field, capacity int, opts []Option) *Primitive[T] {
	o := newOptions(opts)
	b := array.NewBuilder(o.mem, field.Type.Arrow()).(arrowPrimitiveBuilder[T])
	b.Reserve(capacity)
	return &Primitive[T]{
		state:    state{kind: field.Type.String(), name: field.Name},
		builder:  b,
		field:    field,
		capacity: capacity,
		opts:     o,
	}
}

func (b *Primitive[T]) AppendValue(v T) {
	b.check()
	b.builder.Append(v)
}

func (b *Primitive[T]) AppendNull() {
	b.check()
	b.builder.AppendNull()
}

func (b *Primitive[T]) AppendOption(v T, ok bool) {
	appendOption[T](b, v, ok)
}

// AppendValues appends vals in one call. valid marks null slots with false;
// a nil valid means every value is present.
func (b *Primitive[T]) AppendValues(vals []T, valid []bool) {
	b.check()
	b.builder.AppendValues(vals, valid)
}

func (b *Primitive[T]) Len() int { return b.builder.Len() }

func (b *Primitive[T]) Finish() *column.Column {
	return column.New(b.field, []arrow.Array{b.finishArray()})
}

func (b *Primitive[T]) finishArray() arrow.Array {
	b.finish()
	length := b.builder.Len()
	arr := b.builder.NewArray()
	b.builder.Release()
	observeFinish(b.opts, &b.state, length, b.capacity)
	return arr
}
