package builder

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/TFMV/chunky/column"
)

// ListBuilder is the capability shared by every list builder variant. Each
// appended sub-column becomes exactly one list row.
type ListBuilder interface {
	// AppendOptSeries appends c as one list row, or a null row when c is nil.
	AppendOptSeries(c *column.Column) error
	// AppendSeries flattens every chunk of c into one contiguous run of the
	// child values and closes a valid list row over it. Element nulls of c
	// stay element nulls; an empty c yields an empty, non-null row.
	AppendSeries(c *column.Column) error
	// AppendNull appends a null list row without touching the child values.
	AppendNull()
	Len() int
	Finish() *column.Column
}

// valuesSink appends one physical chunk of a sub-column to the child values
// of a list builder.
type valuesSink interface {
	// appendBulk copies every slot of chunk, which must contain no nulls.
	appendBulk(chunk arrow.Array)
	// appendEach copies chunk slot by slot honouring bitmap.
	appendEach(chunk arrow.Array, bitmap []byte)
}

// listCore holds the outer offsets and validity of a list column.
type listCore struct {
	state
	builder  *array.ListBuilder
	values   valuesSink
	field    column.Field
	capacity int
	opts     options
}

func newListCore(name string, elem column.DataType, capacity int, o options) listCore {
	b := array.NewListBuilder(o.mem, elem.Arrow())
	b.Reserve(capacity)
	field := column.Field{Name: name, Type: column.List(elem)}
	return listCore{
		state:    state{kind: field.Type.String(), name: name},
		builder:  b,
		field:    field,
		capacity: capacity,
		opts:     o,
	}
}

func (l *listCore) AppendNull() {
	l.check()
	l.builder.AppendNull()
}

func (l *listCore) AppendOptSeries(c *column.Column) error {
	if c == nil {
		l.AppendNull()
		return nil
	}
	return l.AppendSeries(c)
}

func (l *listCore) AppendSeries(c *column.Column) error {
	l.check()
	elem := l.field.Type.Elem()
	if !c.DataType().Equal(elem) {
		return column.Errorf(column.ErrSchemaMismatch, "cannot append %s sub-column %q to %s builder %q",
			c.DataType(), c.Name(), l.field.Type, l.field.Name)
	}

	// Arrow records the row's start offset when the slot is opened; the end
	// offset follows from the values appended below.
	l.builder.Append(true)

	// The path is chosen once per sub-column from its total null count.
	if c.NullCount() == 0 {
		for i := 0; i < c.NumChunks(); i++ {
			l.values.appendBulk(c.Chunk(i))
		}
		flattenPath.WithLabelValues(l.kind, "bulk").Inc()
		return nil
	}
	for i := 0; i < c.NumChunks(); i++ {
		chunk := c.Chunk(i)
		_, bitmap := column.Validity(chunk)
		l.values.appendEach(chunk, bitmap)
	}
	flattenPath.WithLabelValues(l.kind, "per_element").Inc()
	return nil
}

func (l *listCore) Len() int { return l.builder.Len() }

func (l *listCore) Finish() *column.Column {
	l.finish()
	length := l.builder.Len()
	arr := l.builder.NewArray()
	l.builder.Release()
	observeFinish(l.opts, &l.state, length, l.capacity)
	return column.New(l.field, []arrow.Array{arr})
}

// ---------------------------------------------------------------------
// Numeric lists
// ---------------------------------------------------------------------

// numericArray is the read side of arrow's numeric arrays.
type numericArray[T column.Numeric] interface {
	arrow.Array
	Value(i int) T
}

// numericValues returns the value buffer of a numeric chunk as a typed slice,
// adjusted for the chunk's offset.
func numericValues[T column.Numeric](chunk arrow.Array) []T {
	if chunk.Len() == 0 {
		return nil
	}
	data := chunk.Data()
	off := data.Offset()
	return arrow.GetData[T](data.Buffers()[1].Bytes())[off : off+chunk.Len()]
}

type numericSink[T column.Numeric] struct {
	builder arrowPrimitiveBuilder[T]
}

func (s numericSink[T]) appendBulk(chunk arrow.Array) {
	s.builder.AppendValues(numericValues[T](chunk), nil)
}

func (s numericSink[T]) appendEach(chunk arrow.Array, bitmap []byte) {
	arr := chunk.(numericArray[T])
	for i := 0; i < arr.Len(); i++ {
		if column.ValidAt(chunk, bitmap, i) {
			s.builder.Append(arr.Value(i))
		} else {
			s.builder.AppendNull()
		}
	}
}

// ListNumeric builds list columns with numeric elements.
type ListNumeric[T column.Numeric] struct {
	listCore
}

// NewListNumeric creates a numeric list builder for capacity rows holding
// valueCapacity elements in total.
func NewListNumeric[T column.Numeric](name string, capacity, valueCapacity int, opts ...Option) *ListNumeric[T] {
	core := newListCore(name, column.NumericType[T](), capacity, newOptions(opts))
	vb := core.builder.ValueBuilder().(arrowPrimitiveBuilder[T])
	vb.Reserve(valueCapacity)
	core.values = numericSink[T]{builder: vb}
	return &ListNumeric[T]{listCore: core}
}

// AppendSlice appends vals as one non-null list row. A nil slice is an
// empty row; use AppendOptSlice for a null row.
func (l *ListNumeric[T]) AppendSlice(vals []T) {
	l.check()
	l.builder.Append(true)
	l.values.(numericSink[T]).builder.AppendValues(vals, nil)
}

// AppendOptSlice appends vals as one list row when ok is true and a null row
// otherwise.
func (l *ListNumeric[T]) AppendOptSlice(vals []T, ok bool) {
	if !ok {
		l.AppendNull()
		return
	}
	l.AppendSlice(vals)
}

// ---------------------------------------------------------------------
// Utf8 lists
// ---------------------------------------------------------------------

type utf8Sink struct {
	builder *array.StringBuilder
}

func (s utf8Sink) appendBulk(chunk arrow.Array) {
	arr := chunk.(*array.String)
	if arr.Len() == 0 {
		return
	}
	offsets := arr.ValueOffsets()
	s.builder.Reserve(arr.Len())
	s.builder.ReserveData(int(offsets[len(offsets)-1] - offsets[0]))
	for i := 0; i < arr.Len(); i++ {
		s.builder.Append(arr.Value(i))
	}
}

func (s utf8Sink) appendEach(chunk arrow.Array, bitmap []byte) {
	arr := chunk.(*array.String)
	for i := 0; i < arr.Len(); i++ {
		if column.ValidAt(chunk, bitmap, i) {
			s.builder.Append(arr.Value(i))
		} else {
			s.builder.AppendNull()
		}
	}
}

// ListUtf8 builds list columns with string elements.
type ListUtf8 struct {
	listCore
}

// NewListUtf8 creates a string list builder for capacity rows holding
// valueCapacity strings and bytesCapacity payload bytes in total.
func NewListUtf8(name string, capacity, valueCapacity, bytesCapacity int, opts ...Option) *ListUtf8 {
	core := newListCore(name, column.Utf8, capacity, newOptions(opts))
	vb := core.builder.ValueBuilder().(*array.StringBuilder)
	vb.Reserve(valueCapacity)
	vb.ReserveData(bytesCapacity)
	core.values = utf8Sink{builder: vb}
	return &ListUtf8{listCore: core}
}

// ---------------------------------------------------------------------
// Boolean lists
// ---------------------------------------------------------------------

type booleanSink struct {
	builder *array.BooleanBuilder
}

func (s booleanSink) appendBulk(chunk arrow.Array) {
	arr := chunk.(*array.Boolean)
	s.builder.Reserve(arr.Len())
	for i := 0; i < arr.Len(); i++ {
		s.builder.UnsafeAppend(arr.Value(i))
	}
}

func (s booleanSink) appendEach(chunk arrow.Array, bitmap []byte) {
	arr := chunk.(*array.Boolean)
	for i := 0; i < arr.Len(); i++ {
		if column.ValidAt(chunk, bitmap, i) {
			s.builder.Append(arr.Value(i))
		} else {
			s.builder.AppendNull()
		}
	}
}

// ListBoolean builds list columns with boolean elements.
type ListBoolean struct {
	listCore
}

// NewListBoolean creates a boolean list builder.
func NewListBoolean(name string, capacity, valueCapacity int, opts ...Option) *ListBoolean {
	core := newListCore(name, column.Boolean, capacity, newOptions(opts))
	vb := core.builder.ValueBuilder().(*array.BooleanBuilder)
	vb.Reserve(valueCapacity)
	core.values = booleanSink{builder: vb}
	return &ListBoolean{listCore: core}
}

var (
	_ ListBuilder = (*ListNumeric[int64])(nil)
	_ ListBuilder = (*ListUtf8)(nil)
	_ ListBuilder = (*ListBoolean)(nil)
)
