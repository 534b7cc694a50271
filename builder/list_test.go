package builder

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/TFMV/chunky/column"
)

func TestListBuilder(t *testing.T) {
	builder := NewListNumeric[int64]("a", 10, 5)

	// s1 holds two chunks
	s1 := int64Chunked(t, "a", []int64{1, 2, 3}, []int64{4, 5, 6})
	s2 := FromSlice("b", []int64{4, 5, 6}, nil)
	require.Equal(t, 2, s1.NumChunks())

	require.NoError(t, builder.AppendSeries(s1))
	require.NoError(t, builder.AppendSeries(s2))
	ls := builder.Finish()
	defer ls.Release()

	assert.True(t, ls.DataType().Equal(column.List(column.Int64)))
	require.Equal(t, 1, ls.NumChunks())

	// many chunks are aggregated to one run in the child values
	row0 := listRow(t, ls, 0)
	assert.Len(t, row0, 6)
	assert.Equal(t, column.Int(4), row0[3])
	assert.Len(t, listRow(t, ls, 1), 3)

	list := ls.Chunk(0).(*array.List)
	assert.Equal(t, 9, list.ListValues().Len())
	assert.Equal(t, []int32{0, 6, 9}, list.Offsets())
}

func TestListStrBuilder(t *testing.T) {
	builder := NewListUtf8("a", 10, 10, 50)
	require.NoError(t, builder.AppendSeries(Utf8FromSlice("", []string{"foo", "bar"}, nil)))
	ca := builder.Finish()
	defer ca.Release()

	assert.Equal(t, []column.AnyValue{column.Str("foo"), column.Str("bar")}, listRow(t, ca, 0))
}

func TestListThreeRowStates(t *testing.T) {
	cases := []struct {
		name  string
		elem  column.DataType
		empty *column.Column
		one   *column.Column
		want  column.AnyValue
	}{
		{"numeric", column.Int32, FromSlice[int32]("e", nil, nil), FromSlice("o", []int32{7}, nil), column.Int(7)},
		{"utf8", column.Utf8, Utf8FromSlice("e", nil, nil), Utf8FromSlice("o", []string{"v"}, nil), column.Str("v")},
		{"boolean", column.Boolean, BooleanFromSlice("e", nil, nil), BooleanFromSlice("o", []bool{true}, nil), column.Bool(true)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := NewListBuilder(tc.elem, 4, 3, tc.name)
			b.AppendNull()
			require.NoError(t, b.AppendSeries(tc.empty))
			require.NoError(t, b.AppendSeries(tc.one))
			assert.Equal(t, 3, b.Len())

			ls := b.Finish()
			defer ls.Release()

			require.Equal(t, 3, ls.Len())
			assert.Equal(t, 1, ls.NullCount())

			assert.True(t, ls.Get(0).IsNull(), "null list")

			empty := ls.Get(1)
			require.Equal(t, column.ListValue, empty.Kind(), "empty list is not null")
			assert.Equal(t, 0, empty.List().Len())

			one := ls.Get(2)
			require.Equal(t, column.ListValue, one.Kind())
			assert.Equal(t, []column.AnyValue{tc.want}, one.List().Values())
		})
	}
}

func TestListPreservesElementNulls(t *testing.T) {
	first := FromSlice("x", []int64{1, 0, 3}, []bool{true, false, true})
	second := FromSlice("x", []int64{0, 5}, []bool{false, true})
	sub, err := Concat(first, second)
	require.NoError(t, err)

	b := NewListNumeric[int64]("l", 1, 5)
	require.NoError(t, b.AppendSeries(sub))
	ls := b.Finish()
	defer ls.Release()

	assert.Equal(t, 0, ls.NullCount(), "element nulls do not make the row null")
	assert.Equal(t, []column.AnyValue{
		column.Int(1), column.Null(), column.Int(3), column.Null(), column.Int(5),
	}, listRow(t, ls, 0))
}

func TestListUtf8AndBooleanAcrossChunks(t *testing.T) {
	strs, err := Concat(
		Utf8FromSlice("s", []string{"a", "b"}, []bool{true, false}),
		Utf8FromSlice("s", []string{"c"}, nil),
	)
	require.NoError(t, err)
	bools, err := Concat(
		BooleanFromSlice("b", []bool{true}, nil),
		BooleanFromSlice("b", []bool{false, true}, []bool{true, false}),
	)
	require.NoError(t, err)

	ls := NewListBuilder(column.Utf8, 3, 1, "ls")
	require.NoError(t, ls.AppendSeries(strs))
	lsCol := ls.Finish()
	assert.Equal(t, []column.AnyValue{column.Str("a"), column.Null(), column.Str("c")}, listRow(t, lsCol, 0))

	lb := NewListBuilder(column.Boolean, 3, 1, "lb")
	require.NoError(t, lb.AppendSeries(bools))
	lbCol := lb.Finish()
	assert.Equal(t, []column.AnyValue{column.Bool(true), column.Bool(false), column.Null()}, listRow(t, lbCol, 0))
}

func TestListBulkMatchesSingleChunk(t *testing.T) {
	chunked := int64Chunked(t, "x", []int64{1, 2}, []int64{3}, []int64{4, 5, 6})
	single := FromSlice("x", []int64{1, 2, 3, 4, 5, 6}, nil)

	a := NewListNumeric[int64]("l", 2, 6)
	require.NoError(t, a.AppendSeries(chunked))
	a.AppendNull()
	fromChunked := a.Finish()
	defer fromChunked.Release()

	b := NewListNumeric[int64]("l", 2, 6)
	require.NoError(t, b.AppendSeries(single))
	b.AppendNull()
	fromSingle := b.Finish()
	defer fromSingle.Release()

	assert.True(t, array.Equal(fromChunked.Chunk(0), fromSingle.Chunk(0)))
	assert.Equal(t,
		fromSingle.Chunk(0).(*array.List).ListValues().Data().Buffers()[1].Bytes(),
		fromChunked.Chunk(0).(*array.List).ListValues().Data().Buffers()[1].Bytes())
}

func TestListFlattenPathIsChosenPerCall(t *testing.T) {
	const kind = "list[u16]"
	bulk := flattenPath.WithLabelValues(kind, "bulk")
	each := flattenPath.WithLabelValues(kind, "per_element")
	bulkBefore, eachBefore := testutil.ToFloat64(bulk), testutil.ToFloat64(each)

	b := NewListNumeric[uint16]("paths", 3, 6)
	require.NoError(t, b.AppendSeries(FromSlice("x", []uint16{1, 2}, nil)))
	require.NoError(t, b.AppendSeries(FromSlice("x", []uint16{1, 2}, []bool{true, false})))
	require.NoError(t, b.AppendSeries(FromSlice("x", []uint16{3}, nil)))
	b.Finish().Release()

	assert.Equal(t, 2.0, testutil.ToFloat64(bulk)-bulkBefore)
	assert.Equal(t, 1.0, testutil.ToFloat64(each)-eachBefore)
}

func TestListAppendOptSeries(t *testing.T) {
	b := NewListBuilder(column.Float64, 2, 2, "opt")
	require.NoError(t, b.AppendOptSeries(nil))
	require.NoError(t, b.AppendOptSeries(FromSlice("x", []float64{0.5}, nil)))
	ls := b.Finish()
	defer ls.Release()

	assert.True(t, ls.Get(0).IsNull())
	assert.Equal(t, []column.AnyValue{column.Float(0.5)}, listRow(t, ls, 1))
}

func TestListAppendSlice(t *testing.T) {
	b := NewListNumeric[int8]("s", 2, 3)
	b.AppendSlice([]int8{1, 2})
	b.AppendSlice(nil)
	ls := b.Finish()
	defer ls.Release()

	assert.Equal(t, []column.AnyValue{column.Int(1), column.Int(2)}, listRow(t, ls, 0))
	assert.Equal(t, 0, ls.Get(1).List().Len())
}

func TestListRejectsMismatchedSubColumn(t *testing.T) {
	b := NewListBuilder(column.Int64, 2, 2, "l")
	err := b.AppendSeries(Utf8FromSlice("s", []string{"x"}, nil))
	require.ErrorIs(t, err, column.ErrSchemaMismatch)
	assert.Equal(t, 0, b.Len(), "rejected input leaves the builder untouched")

	err = b.AppendSeries(FromSlice("i", []int32{1}, nil))
	require.ErrorIs(t, err, column.ErrSchemaMismatch)

	ls := b.Finish()
	defer ls.Release()
	assert.Equal(t, 0, ls.Len())
}

func TestListBuilderFactory(t *testing.T) {
	assert.IsType(t, &ListBoolean{}, NewListBuilder(column.Boolean, 1, 1, "b"))
	assert.IsType(t, &ListUtf8{}, NewListBuilder(column.Utf8, 1, 1, "s"))
	assert.IsType(t, &ListNumeric[float32]{}, NewListBuilder(column.Float32, 1, 1, "f"))
	assert.IsType(t, &ListNumeric[uint64]{}, NewListBuilder(column.Uint64, 1, 1, "u"))

	requirePanicsWith(t, ErrUnsupportedType, func() { NewListBuilder(column.List(column.Int64), 1, 1, "nested") })
	requirePanicsWith(t, ErrUnsupportedType, func() { NewListBuilder(column.Categorical, 1, 1, "cat") })
}

func TestListFlattenProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numChunks := rapid.IntRange(1, 5).Draw(t, "chunks")
		parts := make([]*column.Column, numChunks)
		var wantVals []int64
		var wantValid []bool
		for i := range parts {
			n := rapid.IntRange(0, 10).Draw(t, "n")
			vals := rapid.SliceOfN(rapid.Int64(), n, n).Draw(t, "vals")
			valid := rapid.SliceOfN(rapid.Bool(), n, n).Draw(t, "valid")
			parts[i] = FromSlice("x", vals, valid)
			wantVals = append(wantVals, vals...)
			wantValid = append(wantValid, valid...)
		}
		sub, err := Concat(parts...)
		require.NoError(t, err)

		b := NewListNumeric[int64]("l", 2, 0)
		b.AppendNull()
		require.NoError(t, b.AppendSeries(sub))
		ls := b.Finish()
		defer ls.Release()

		row := ls.Get(1)
		require.Equal(t, column.ListValue, row.Kind())
		got := row.List()
		require.Equal(t, sub.Len(), got.Len())
		require.Equal(t, sub.NullCount(), got.NullCount())
		for i := range wantVals {
			if wantValid[i] {
				assert.Equal(t, column.Int(wantVals[i]), got.Get(i))
			} else {
				assert.True(t, got.Get(i).IsNull())
			}
		}
	})
}

func TestListAppendOptSlice(t *testing.T) {
	b := NewListNumeric[int32]("s", 3, 2)
	b.AppendOptSlice([]int32{7}, true)
	b.AppendOptSlice(nil, false)
	b.AppendOptSlice(nil, true)
	ls := b.Finish()
	defer ls.Release()

	assert.Equal(t, []column.AnyValue{column.Int(7)}, listRow(t, ls, 0))
	assert.True(t, ls.Get(1).IsNull())
	assert.False(t, ls.Get(2).IsNull())
	assert.Equal(t, 0, ls.Get(2).List().Len())
}

func TestListFlattensSlicedChunks(t *testing.T) {
	full := FromSlice("x", []int64{10, 11, 12, 13, 14}, nil)
	withNulls := FromSlice("x", []int64{20, 0, 22, 23, 24}, []bool{true, false, true, true, true})

	sliced, err := column.FromArrow("x", array.NewSlice(full.Chunk(0), 1, 4))
	require.NoError(t, err)
	slicedNulls, err := column.FromArrow("x", array.NewSlice(withNulls.Chunk(0), 1, 4))
	require.NoError(t, err)
	require.Equal(t, 1, slicedNulls.NullCount())

	b := NewListNumeric[int64]("l", 2, 6)
	require.NoError(t, b.AppendSeries(sliced))
	require.NoError(t, b.AppendSeries(slicedNulls))
	ls := b.Finish()
	defer ls.Release()

	assert.Equal(t, []column.AnyValue{column.Int(11), column.Int(12), column.Int(13)}, listRow(t, ls, 0))
	assert.Equal(t, []column.AnyValue{column.Null(), column.Int(22), column.Int(23)}, listRow(t, ls, 1))
}

func TestListFlattensSlicedStringChunks(t *testing.T) {
	src := Utf8FromSlice("s", []string{"a", "", "c", "d"}, []bool{true, false, true, true})
	sliced, err := column.FromArrow("s", array.NewSlice(src.Chunk(0), 1, 4))
	require.NoError(t, err)

	b := NewListBuilder(column.Utf8, 3, 1, "l")
	require.NoError(t, b.AppendSeries(sliced))
	ls := b.Finish()
	defer ls.Release()

	assert.Equal(t, []column.AnyValue{column.Null(), column.Str("c"), column.Str("d")}, listRow(t, ls, 0))
}
