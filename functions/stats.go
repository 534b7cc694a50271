package functions

import (
	"math"

	"github.com/TFMV/chunky/column"
)

// floats returns the values of a float column with nulls marked invalid.
func floats(c *column.Column) (vals []float64, valid []bool) {
	vals = make([]float64, c.Len())
	valid = make([]bool, c.Len())
	for i, v := range c.Values() {
		vals[i], valid[i] = v.Float64()
	}
	return vals, valid
}

func mean(vals []float64, valid []bool) (float64, int) {
	var sum float64
	n := 0
	for i, v := range vals {
		if valid[i] {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}

// Cov computes the sample covariance of two float columns. Rows where either
// side is null are skipped. ok is false when the lengths differ, the columns
// are not floats, or fewer than two rows remain.
func Cov(a, b *column.Column) (float64, bool) {
	if a.Len() != b.Len() || !a.DataType().IsFloat() || !b.DataType().IsFloat() {
		return 0, false
	}
	av, aok := floats(a)
	bv, bok := floats(b)
	ma, na := mean(av, aok)
	mb, nb := mean(bv, bok)
	if na == 0 || nb == 0 {
		return 0, false
	}

	var sum float64
	n := 0
	for i := range av {
		if !aok[i] || !bok[i] {
			continue
		}
		sum += (av[i] - ma) * (bv[i] - mb)
		n++
	}
	if n < 2 {
		return 0, false
	}
	return sum / float64(n-1), true
}

// std returns the sample standard deviation of the non-null values.
func std(vals []float64, valid []bool) (float64, bool) {
	m, n := mean(vals, valid)
	if n < 2 {
		return 0, false
	}
	var ss float64
	for i, v := range vals {
		if valid[i] {
			ss += (v - m) * (v - m)
		}
	}
	return math.Sqrt(ss / float64(n-1)), true
}

// PearsonCorr computes the Pearson correlation of two float columns.
func PearsonCorr(a, b *column.Column) (float64, bool) {
	cov, ok := Cov(a, b)
	if !ok {
		return 0, false
	}
	sa, ok := std(floats(a))
	if !ok {
		return 0, false
	}
	sb, ok := std(floats(b))
	if !ok {
		return 0, false
	}
	return cov / (sa * sb), true
}
