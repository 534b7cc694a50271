package builder

import "github.com/TFMV/chunky/column"

// FromSlice builds a single-chunk numeric column from vals. valid must be
// nil (no nulls) or have the same length as vals.
func FromSlice[T column.Numeric](name string, vals []T, valid []bool, opts ...Option) *column.Column {
	b := NewNumeric[T](name, len(vals), opts...)
	b.AppendValues(vals, valid)
	return b.Finish()
}

// BooleanFromSlice builds a single-chunk boolean column.
func BooleanFromSlice(name string, vals []bool, valid []bool, opts ...Option) *column.Column {
	b := NewBoolean(name, len(vals), opts...)
	b.AppendValues(vals, valid)
	return b.Finish()
}

// Utf8FromSlice builds a single-chunk string column sized exactly for the
// payload of vals.
func Utf8FromSlice(name string, vals []string, valid []bool, opts ...Option) *column.Column {
	size := 0
	for i, s := range vals {
		if valid == nil || valid[i] {
			size += len(s)
		}
	}
	b := NewUtf8(name, len(vals), size, opts...)
	b.AppendValues(vals, valid)
	return b.Finish()
}

// Concat returns a column whose chunks are the chunks of cols in order,
// shared rather than copied. It is mainly used to build multi-chunk inputs.
func Concat(cols ...*column.Column) (*column.Column, error) {
	if len(cols) == 0 {
		return nil, column.Errorf(column.ErrNoData, "concat needs at least one column")
	}
	out := cols[0].Rename(cols[0].Name())
	for _, c := range cols[1:] {
		next, err := out.Append(c)
		out.Release()
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out, nil
}
