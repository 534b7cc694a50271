package functions

import (
	"slices"

	"github.com/TFMV/chunky/builder"
	"github.com/TFMV/chunky/column"
)

// ArgSortBy returns the row indices that sort the columns in by, compared in
// order of appearance: the first column decides until it finds duplicates,
// then the next column breaks ties, and so on. reverse[i] sorts by[i] in
// descending order. Nulls sort before values in ascending order. Ties left
// after the last column keep their original order.
func ArgSortBy(by []*column.Column, reverse []bool, opts ...Option) (*column.Column, error) {
	if len(by) != len(reverse) {
		return nil, column.Errorf(column.ErrShapeMismatch,
			"the amount of ordering booleans: %d does not match amount of columns: %d", len(reverse), len(by))
	}
	if len(by) == 0 {
		return nil, column.Errorf(column.ErrNoData, "argsort_by needs at least one column")
	}
	length := by[0].Len()
	for _, c := range by[1:] {
		if c.Len() != length {
			return nil, column.Errorf(column.ErrShapeMismatch,
				"argsort_by columns differ in length: %q has %d, want %d", c.Name(), c.Len(), length)
		}
	}
	for _, c := range by {
		if c.DataType().Kind() == column.KindList {
			return nil, column.Errorf(column.ErrInvalidOperation, "cannot sort by list column %q", c.Name())
		}
	}
	o := newOptions(opts)

	keys := make([][]column.AnyValue, len(by))
	for i, c := range by {
		keys[i] = c.Values()
	}
	idx := make([]uint32, length)
	for i := range idx {
		idx[i] = uint32(i)
	}
	slices.SortStableFunc(idx, func(a, b uint32) int {
		for k, col := range keys {
			cmp := column.Compare(col[a], col[b])
			if reverse[k] {
				cmp = -cmp
			}
			if cmp != 0 {
				return cmp
			}
		}
		return 0
	})

	return builder.FromSlice(by[0].Name(), idx, nil, o.builderOpts...), nil
}
