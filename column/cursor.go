package column

import "github.com/apache/arrow-go/v18/arrow/array"

// StringCursor pulls the values of a Utf8 column one row at a time, crossing
// chunk boundaries transparently.
type StringCursor struct {
	chunks []*array.String
	chunk  int
	pos    int
}

// Cursor returns a StringCursor positioned before the first row. The column
// must be of type Utf8.
func (c *Column) Cursor() (*StringCursor, error) {
	if c.field.Type.Kind() != KindUtf8 {
		return nil, Errorf(ErrSchemaMismatch, "cursor over %q requires str, got %s", c.field.Name, c.field.Type)
	}
	cur := &StringCursor{chunks: make([]*array.String, 0, len(c.chunks))}
	for _, chunk := range c.chunks {
		cur.chunks = append(cur.chunks, chunk.(*array.String))
	}
	return cur, nil
}

// Next returns the next value. valid is false for a null row; ok is false
// once the column is exhausted.
func (cur *StringCursor) Next() (s string, valid, ok bool) {
	for cur.chunk < len(cur.chunks) && cur.pos >= cur.chunks[cur.chunk].Len() {
		cur.chunk++
		cur.pos = 0
	}
	if cur.chunk >= len(cur.chunks) {
		return "", false, false
	}
	arr := cur.chunks[cur.chunk]
	i := cur.pos
	cur.pos++
	if arr.IsNull(i) {
		return "", false, true
	}
	return arr.Value(i), true, true
}
