package column

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/compute"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// CastUtf8 returns c represented as strings. Utf8 columns are shared rather
// than copied; categorical columns are decoded through their string cache.
// List columns cannot be cast.
func CastUtf8(ctx context.Context, c *Column, mem memory.Allocator) (*Column, error) {
	dt := c.field.Type
	switch {
	case dt.Kind() == KindUtf8:
		return c.shared(c.field, c.Chunks()), nil
	case dt.Kind() == KindCategorical:
		return decodeCategorical(c, mem)
	case dt.Kind() == KindBoolean || dt.IsNumeric():
	default:
		return nil, Errorf(ErrInvalidOperation, "cannot cast %q of type %s to str", c.field.Name, dt)
	}

	ctx = compute.WithAllocator(ctx, mem)
	opts := compute.SafeCastOptions(arrow.BinaryTypes.String)
	chunks := make([]arrow.Array, 0, len(c.chunks))
	for i, chunk := range c.chunks {
		out, err := compute.CastArray(ctx, chunk, opts)
		if err != nil {
			for _, done := range chunks {
				done.Release()
			}
			return nil, fmt.Errorf("cast chunk %d of %q to str: %w", i, c.field.Name, err)
		}
		chunks = append(chunks, out)
	}
	return New(Field{Name: c.field.Name, Type: Utf8}, chunks), nil
}

func decodeCategorical(c *Column, mem memory.Allocator) (*Column, error) {
	chunks := make([]arrow.Array, 0, len(c.chunks))
	for _, chunk := range c.chunks {
		codes := chunk.(*array.Uint32)
		b := array.NewStringBuilder(mem)
		b.Reserve(codes.Len())
		for i := 0; i < codes.Len(); i++ {
			if codes.IsNull(i) {
				b.AppendNull()
				continue
			}
			s, ok := c.rev.Decode(codes.Value(i))
			if !ok {
				b.Release()
				for _, done := range chunks {
					done.Release()
				}
				return nil, Errorf(ErrOutOfBounds, "categorical code %d of %q not in string cache", codes.Value(i), c.field.Name)
			}
			b.Append(s)
		}
		chunks = append(chunks, b.NewArray())
		b.Release()
	}
	return New(Field{Name: c.field.Name, Type: Utf8}, chunks), nil
}
