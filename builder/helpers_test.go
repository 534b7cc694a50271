package builder

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TFMV/chunky/column"
)

// requirePanicsWith runs fn and requires it to panic with an error wrapping target.
func requirePanicsWith(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected panic")
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		require.True(t, errors.Is(err, target), "panic %v does not wrap %v", err, target)
	}()
	fn()
}

// int64Chunked builds a column with one chunk per element of parts.
func int64Chunked(t *testing.T, name string, parts ...[]int64) *column.Column {
	t.Helper()
	cols := make([]*column.Column, len(parts))
	for i, p := range parts {
		cols[i] = FromSlice(name, p, nil)
	}
	out, err := Concat(cols...)
	require.NoError(t, err)
	return out
}

// listRow returns the values of list row i, or nil when the row is null.
func listRow(t *testing.T, c *column.Column, i int) []column.AnyValue {
	t.Helper()
	v := c.Get(i)
	if v.IsNull() {
		return nil
	}
	require.Equal(t, column.ListValue, v.Kind())
	return v.List().Values()
}
