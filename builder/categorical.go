package builder

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/TFMV/chunky/categorical"
	"github.com/TFMV/chunky/column"
)

// Categorical builds a categorical column: strings are interned through a
// StringCache and stored as uint32 codes.
type Categorical struct {
	codes *Primitive[uint32]
	cache *categorical.StringCache
	name  string
}

// NewCategorical creates a categorical builder. Builders that must produce
// comparable codes share one cache; a nil cache gives the builder a private
// one.
func NewCategorical(name string, capacity int, cache *categorical.StringCache, opts ...Option) *Categorical {
	if cache == nil {
		cache = categorical.NewStringCache()
	}
	codes := newPrimitive[uint32](column.Field{Name: name, Type: column.Categorical}, capacity, opts)
	return &Categorical{codes: codes, cache: cache, name: name}
}

func (b *Categorical) AppendValue(s string) {
	b.codes.check()
	b.codes.AppendValue(b.cache.Encode(s))
}

func (b *Categorical) AppendNull() { b.codes.AppendNull() }

func (b *Categorical) AppendOption(s string, ok bool) {
	appendOption[string](b, s, ok)
}

func (b *Categorical) Len() int { return b.codes.Len() }

func (b *Categorical) Finish() *column.Column {
	return column.NewCategorical(b.name, []arrow.Array{b.codes.finishArray()}, b.cache)
}

var _ ChunkedBuilder[string] = (*Categorical)(nil)
