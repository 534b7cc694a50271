// Package column defines the immutable, chunked, null-aware columns produced
// by the builders in package builder, together with their logical types.
package column

import (
	"fmt"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// RevMapping decodes categorical codes back to their strings.
type RevMapping interface {
	Decode(code uint32) (string, bool)
}

// Column is a named, typed sequence of values split into one or more
// physical chunks. A Column is never mutated after construction; operations
// that extend or rename it return a new Column sharing the same chunks.
type Column struct {
	field  Field
	chunks []arrow.Array
	// starts[i] is the logical row index of the first slot of chunks[i].
	starts []int
	length int
	nulls  int
	rev    RevMapping
}

// New takes ownership of chunks and wraps them in a Column. Every chunk must
// have the physical type of field.Type.
func New(field Field, chunks []arrow.Array) *Column {
	want := field.Type.Arrow()
	c := &Column{
		field:  field,
		chunks: chunks,
		starts: make([]int, len(chunks)),
	}
	for i, chunk := range chunks {
		if !arrow.TypeEqual(chunk.DataType(), want) {
			panic(fmt.Sprintf("column: chunk %d of %q has type %s, want %s", i, field.Name, chunk.DataType(), want))
		}
		c.starts[i] = c.length
		c.length += chunk.Len()
		c.nulls += chunk.NullN()
	}
	return c
}

// NewCategorical wraps uint32 code chunks whose strings are decoded by rev.
func NewCategorical(name string, chunks []arrow.Array, rev RevMapping) *Column {
	c := New(Field{Name: name, Type: Categorical}, chunks)
	c.rev = rev
	return c
}

// FromArrow wraps arrow chunks, deriving the logical type from the first
// chunk's physical type. At least one chunk is required.
func FromArrow(name string, chunks ...arrow.Array) (*Column, error) {
	if len(chunks) == 0 {
		return nil, Errorf(ErrNoData, "column %q has no chunks", name)
	}
	dt, err := TypeFromArrow(chunks[0].DataType())
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", name, err)
	}
	for i, chunk := range chunks[1:] {
		if !arrow.TypeEqual(chunk.DataType(), chunks[0].DataType()) {
			return nil, Errorf(ErrSchemaMismatch, "column %q: chunk %d has type %s, want %s",
				name, i+1, chunk.DataType(), chunks[0].DataType())
		}
	}
	return New(Field{Name: name, Type: dt}, chunks), nil
}

func (c *Column) Name() string            { return c.field.Name }
func (c *Column) Field() Field            { return c.field }
func (c *Column) DataType() DataType      { return c.field.Type }
func (c *Column) Len() int                { return c.length }
func (c *Column) NullCount() int          { return c.nulls }
func (c *Column) NumChunks() int          { return len(c.chunks) }
func (c *Column) Chunk(i int) arrow.Array { return c.chunks[i] }
func (c *Column) RevMapping() RevMapping  { return c.rev }
func (c *Column) IsEmpty() bool           { return c.length == 0 }
func (c *Column) HasValidity() bool       { return c.nulls > 0 }
func (c *Column) Chunks() []arrow.Array   { return append([]arrow.Array(nil), c.chunks...) }
func (c *Column) ChunkLens() []int        { return chunkLens(c.chunks) }
func (c *Column) String() string          { return fmt.Sprintf("%s [%d rows]", c.field, c.length) }

func chunkLens(chunks []arrow.Array) []int {
	lens := make([]int, len(chunks))
	for i, chunk := range chunks {
		lens[i] = chunk.Len()
	}
	return lens
}

// shared returns a new Column over the same chunks. Each chunk is retained
// so the new Column can be released independently.
func (c *Column) shared(field Field, chunks []arrow.Array) *Column {
	for _, chunk := range chunks {
		chunk.Retain()
	}
	out := New(field, chunks)
	out.rev = c.rev
	return out
}

// Rename returns a Column with a new name sharing this column's chunks.
func (c *Column) Rename(name string) *Column {
	return c.shared(Field{Name: name, Type: c.field.Type}, c.Chunks())
}

// Append returns a Column holding the chunks of c followed by the chunks of
// other. No values are copied.
func (c *Column) Append(other *Column) (*Column, error) {
	if !c.field.Type.Equal(other.field.Type) {
		return nil, Errorf(ErrSchemaMismatch, "cannot append %s to %s", other.field.Type, c.field.Type)
	}
	if c.field.Type.Kind() == KindCategorical && c.rev != other.rev {
		return nil, Errorf(ErrSchemaMismatch, "cannot append categoricals from different string caches")
	}
	chunks := make([]arrow.Array, 0, len(c.chunks)+len(other.chunks))
	chunks = append(chunks, c.chunks...)
	chunks = append(chunks, other.chunks...)
	return c.shared(c.field, chunks), nil
}

// Rechunk returns a single-chunk copy of the column.
func (c *Column) Rechunk(mem memory.Allocator) (*Column, error) {
	if len(c.chunks) == 1 {
		return c.shared(c.field, c.Chunks()), nil
	}
	var merged arrow.Array
	if len(c.chunks) == 0 {
		merged = array.MakeArrayOfNull(mem, c.field.Type.Arrow(), 0)
	} else {
		var err error
		merged, err = array.Concatenate(c.chunks, mem)
		if err != nil {
			return nil, fmt.Errorf("rechunk %q: %w", c.field.Name, err)
		}
	}
	out := New(c.field, []arrow.Array{merged})
	out.rev = c.rev
	return out, nil
}

// Release releases every chunk held by the column.
func (c *Column) Release() {
	for _, chunk := range c.chunks {
		chunk.Release()
	}
}

// locate maps a logical row to a chunk and an index inside it.
func (c *Column) locate(i int) (chunk, j int) {
	chunk = sort.Search(len(c.starts), func(k int) bool { return c.starts[k] > i }) - 1
	return chunk, i - c.starts[chunk]
}

// IsNull reports whether row i is null.
func (c *Column) IsNull(i int) bool {
	if i < 0 || i >= c.length {
		panic(fmt.Sprintf("column: index %d out of range [0, %d) in %q", i, c.length, c.field.Name))
	}
	k, j := c.locate(i)
	return c.chunks[k].IsNull(j)
}

// Get returns the logical value at row i. List rows are returned as a
// single-chunk Column sharing the list's child values.
//
// Categorical codes are decoded through the column's string cache. Get panics
// when a code is no longer in the cache, e.g. after the cache was Reset; use
// CastUtf8 to get that condition back as ErrOutOfBounds.
func (c *Column) Get(i int) AnyValue {
	if i < 0 || i >= c.length {
		panic(fmt.Sprintf("column: index %d out of range [0, %d) in %q", i, c.length, c.field.Name))
	}
	k, j := c.locate(i)
	return c.valueAt(c.chunks[k], j)
}

func (c *Column) valueAt(arr arrow.Array, j int) AnyValue {
	if arr.IsNull(j) {
		return Null()
	}
	switch a := arr.(type) {
	case *array.Boolean:
		return Bool(a.Value(j))
	case *array.Int8:
		return Int(int64(a.Value(j)))
	case *array.Int16:
		return Int(int64(a.Value(j)))
	case *array.Int32:
		return Int(int64(a.Value(j)))
	case *array.Int64:
		return Int(a.Value(j))
	case *array.Uint8:
		return Uint(uint64(a.Value(j)))
	case *array.Uint16:
		return Uint(uint64(a.Value(j)))
	case *array.Uint32:
		if c.field.Type.Kind() == KindCategorical {
			s, ok := c.rev.Decode(a.Value(j))
			if !ok {
				panic(fmt.Sprintf("column: categorical code %d of %q not in string cache", a.Value(j), c.field.Name))
			}
			return Str(s)
		}
		return Uint(uint64(a.Value(j)))
	case *array.Uint64:
		return Uint(a.Value(j))
	case *array.Float32:
		return Float(float64(a.Value(j)))
	case *array.Float64:
		return Float(a.Value(j))
	case *array.String:
		return Str(a.Value(j))
	case *array.List:
		start, end := a.ValueOffsets(j)
		values := array.NewSlice(a.ListValues(), start, end)
		return ListOf(New(Field{Name: c.field.Name, Type: c.field.Type.Elem()}, []arrow.Array{values}))
	default:
		panic(fmt.Sprintf("column: unexpected chunk type %T in %q", arr, c.field.Name))
	}
}

// Values returns every logical value in row order. It panics in the same
// cases as Get.
func (c *Column) Values() []AnyValue {
	out := make([]AnyValue, 0, c.length)
	for _, chunk := range c.chunks {
		for j := 0; j < chunk.Len(); j++ {
			out = append(out, c.valueAt(chunk, j))
		}
	}
	return out
}

// ValuesSize returns the total number of payload bytes across all chunks of a
// Utf8 column and zero for every other type.
func (c *Column) ValuesSize() int {
	size := 0
	for _, chunk := range c.chunks {
		s, ok := chunk.(*array.String)
		if !ok || s.Len() == 0 {
			continue
		}
		offsets := s.ValueOffsets()
		size += int(offsets[len(offsets)-1] - offsets[0])
	}
	return size
}

// ---------------------------------------------------------------------
// Validity
// ---------------------------------------------------------------------

// Validity returns the null count and validity bitmap of a physical array.
// A nil bitmap means every slot is valid. The bitmap is not adjusted for the
// array's offset; use ValidAt to test individual slots.
func Validity(arr arrow.Array) (nullCount int, bitmap []byte) {
	nullCount = arr.NullN()
	if nullCount == 0 {
		return 0, nil
	}
	return nullCount, arr.NullBitmapBytes()
}

// ValidAt reports whether slot i of arr is valid according to bitmap, as
// returned by Validity.
func ValidAt(arr arrow.Array, bitmap []byte, i int) bool {
	if bitmap == nil {
		return true
	}
	return bitutil.BitIsSet(bitmap, arr.Data().Offset()+i)
}
