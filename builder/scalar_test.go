package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/TFMV/chunky/categorical"
	"github.com/TFMV/chunky/column"
)

func TestPrimitiveBuilder(t *testing.T) {
	b := NewNumeric[uint32]("foo", 6)
	values := []struct {
		v  uint32
		ok bool
	}{{1, true}, {0, false}, {2, true}, {3, true}, {0, false}, {4, true}}
	for _, val := range values {
		b.AppendOption(val.v, val.ok)
	}
	assert.Equal(t, 6, b.Len())

	ca := b.Finish()
	defer ca.Release()

	assert.Equal(t, "foo", ca.Name())
	assert.True(t, ca.DataType().Equal(column.Uint32))
	assert.Equal(t, 1, ca.NumChunks())
	assert.Equal(t, 2, ca.NullCount())
	for i, val := range values {
		if !val.ok {
			assert.True(t, ca.Get(i).IsNull(), "row %d", i)
			continue
		}
		assert.Equal(t, column.Uint(uint64(val.v)), ca.Get(i), "row %d", i)
	}
}

func TestBooleanBuilder(t *testing.T) {
	b := NewBoolean("flags", 3)
	b.AppendValue(true)
	b.AppendNull()
	b.AppendValue(false)

	ca := b.Finish()
	defer ca.Release()

	assert.True(t, ca.DataType().Equal(column.Boolean))
	assert.Equal(t, []column.AnyValue{column.Bool(true), column.Null(), column.Bool(false)}, ca.Values())
}

func TestCapacityIsAdvisory(t *testing.T) {
	b := NewNumeric[int64]("grow", 2)
	for i := 0; i < 1000; i++ {
		b.AppendValue(int64(i))
	}
	ca := b.Finish()
	defer ca.Release()

	assert.Equal(t, 1000, ca.Len())
	assert.Equal(t, 1, ca.NumChunks())
	assert.Equal(t, column.Int(999), ca.Get(999))
}

func TestCapacityMissIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	b := NewUtf8("s", 1, 1, WithLogger(logger))
	b.AppendValue("hello")
	b.AppendValue("world")
	b.Finish().Release()

	assert.Equal(t, 1, logs.FilterMessage("builder outgrew capacity hint").Len())
	assert.Equal(t, 1, logs.FilterMessage("string builder outgrew byte capacity hint").Len())

	fits := NewNumeric[int8]("fits", 4, WithLogger(logger))
	fits.AppendValue(1)
	fits.Finish().Release()
	assert.Equal(t, 1, logs.FilterMessage("builder outgrew capacity hint").Len())
}

func TestFinishConsumesBuilder(t *testing.T) {
	t.Run("primitive", func(t *testing.T) {
		b := NewNumeric[float64]("f", 1)
		b.AppendValue(1.5)
		b.Finish().Release()

		requirePanicsWith(t, ErrBuilderFinished, func() { b.AppendValue(2) })
		requirePanicsWith(t, ErrBuilderFinished, func() { b.AppendNull() })
		requirePanicsWith(t, ErrBuilderFinished, func() { b.Finish() })
	})

	t.Run("utf8", func(t *testing.T) {
		b := NewUtf8("s", 1, 1)
		b.Finish().Release()
		requirePanicsWith(t, ErrBuilderFinished, func() { b.AppendValue("x") })
		requirePanicsWith(t, ErrBuilderFinished, func() { b.Finish() })
	})

	t.Run("list", func(t *testing.T) {
		b := NewListBuilder(column.Int64, 1, 1, "l")
		b.Finish().Release()
		requirePanicsWith(t, ErrBuilderFinished, func() { b.AppendNull() })
		requirePanicsWith(t, ErrBuilderFinished, func() { _ = b.AppendSeries(FromSlice("x", []int64{1}, nil)) })
		requirePanicsWith(t, ErrBuilderFinished, func() { b.Finish() })
	})
}

func TestUtf8Builder(t *testing.T) {
	b := NewUtf8("words", 4, 8)
	b.AppendValue("foo")
	b.AppendOption("", false)
	b.AppendOption("bar", true)

	scratch := []byte("spam")
	b.AppendBytes(scratch)
	scratch[0] = 'S'

	ca := b.Finish()
	defer ca.Release()

	assert.True(t, ca.DataType().Equal(column.Utf8))
	assert.Equal(t, []column.AnyValue{
		column.Str("foo"), column.Null(), column.Str("bar"), column.Str("spam"),
	}, ca.Values())
	assert.Equal(t, len("foobarspam"), ca.ValuesSize())
}

func TestUtf8BytesAdapter(t *testing.T) {
	b := NewUtf8Bytes("raw", 2, 0)
	b.AppendValue([]byte("a"))
	b.AppendOption(nil, false)
	b.AppendOption([]byte("bc"), true)
	assert.Equal(t, 3, b.Len())

	ca := b.Finish()
	defer ca.Release()
	assert.Equal(t, []column.AnyValue{column.Str("a"), column.Null(), column.Str("bc")}, ca.Values())
}

func TestCategoricalBuilder(t *testing.T) {
	for _, shared := range []bool{false, true} {
		var cache1, cache2 *categorical.StringCache
		if shared {
			cache1 = categorical.NewStringCache()
			cache2 = cache1
		}

		// Two builders check that a shared cache does not disturb either
		// builder's values.
		b1 := NewCategorical("foo", 10, cache1)
		b2 := NewCategorical("foo", 10, cache2)
		for _, v := range []struct {
			s  string
			ok bool
		}{{"", false}, {"hello", true}, {"vietnam", true}} {
			b1.AppendOption(v.s, v.ok)
		}
		b2.AppendValue("hello")
		b2.AppendNull()
		b2.AppendValue("world")

		ca := b1.Finish()
		assert.True(t, ca.DataType().Equal(column.Categorical))
		assert.Equal(t, []column.AnyValue{column.Null(), column.Str("hello"), column.Str("vietnam")}, ca.Values())

		cb := b2.Finish()
		assert.Equal(t, []column.AnyValue{column.Str("hello"), column.Null(), column.Str("world")}, cb.Values())

		if shared {
			assert.Equal(t, ca.Chunk(0).(interface{ Value(int) uint32 }).Value(1),
				cb.Chunk(0).(interface{ Value(int) uint32 }).Value(0),
				"shared cache assigns one code per string")
			assert.Equal(t, 3, cache1.Len())
		}
		ca.Release()
		cb.Release()
	}
}

func TestRoundTripProperty(t *testing.T) {
	t.Run("numeric", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			n := rapid.IntRange(0, 64).Draw(t, "n")
			vals := rapid.SliceOfN(rapid.Int64(), n, n).Draw(t, "vals")
			valid := rapid.SliceOfN(rapid.Bool(), n, n).Draw(t, "valid")

			b := NewNumeric[int64]("x", rapid.IntRange(0, 8).Draw(t, "cap"))
			for i := range vals {
				b.AppendOption(vals[i], valid[i])
			}
			ca := b.Finish()
			defer ca.Release()

			require.Equal(t, n, ca.Len())
			for i := range vals {
				if valid[i] {
					assert.Equal(t, column.Int(vals[i]), ca.Get(i))
				} else {
					assert.True(t, ca.Get(i).IsNull())
				}
			}
		})
	})

	t.Run("boolean", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			n := rapid.IntRange(0, 130).Draw(t, "n")
			vals := rapid.SliceOfN(rapid.Bool(), n, n).Draw(t, "vals")
			valid := rapid.SliceOfN(rapid.Bool(), n, n).Draw(t, "valid")

			b := NewBoolean("x", 0)
			for i := range vals {
				b.AppendOption(vals[i], valid[i])
			}
			ca := b.Finish()
			defer ca.Release()

			for i := range vals {
				if valid[i] {
					assert.Equal(t, column.Bool(vals[i]), ca.Get(i))
				} else {
					assert.True(t, ca.Get(i).IsNull())
				}
			}
		})
	})

	t.Run("utf8", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			n := rapid.IntRange(0, 32).Draw(t, "n")
			vals := rapid.SliceOfN(rapid.String(), n, n).Draw(t, "vals")
			valid := rapid.SliceOfN(rapid.Bool(), n, n).Draw(t, "valid")

			b := NewUtf8("x", n, 0)
			for i := range vals {
				b.AppendOption(vals[i], valid[i])
			}
			ca := b.Finish()
			defer ca.Release()

			for i := range vals {
				if valid[i] {
					assert.Equal(t, column.Str(vals[i]), ca.Get(i))
				} else {
					assert.True(t, ca.Get(i).IsNull())
				}
			}
		})
	})
}
