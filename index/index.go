// Package index builds secondary indexes over finished columns: a bitmap of
// null rows and per-value row bitmaps backed by roaring.
package index

import (
	"fmt"
	"math"
	"slices"
	"sync"

	roaring "github.com/RoaringBitmap/roaring"
	bloom "github.com/bits-and-blooms/bloom/v3"
	murmur3 "github.com/spaolacci/murmur3"

	"github.com/TFMV/chunky/column"
)

// ---------------------------------------------------------------------
// Strategy: Defines which indexing strategy to use
// ---------------------------------------------------------------------

type Strategy int

const (
	RoaringBitmap Strategy = iota
	HashIndex
	Bloom
	SortedColumn
)

func (s Strategy) String() string {
	switch s {
	case RoaringBitmap:
		return "roaring"
	case HashIndex:
		return "hash"
	case Bloom:
		return "bloom"
	case SortedColumn:
		return "sorted"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ---------------------------------------------------------------------
// Index: The interface every strategy implements
// ---------------------------------------------------------------------

type Index interface {
	// Add records that row holds value. value must not be null.
	Add(row uint32, value column.AnyValue) error
	// Search returns the rows holding value. The result must not be modified.
	Search(value column.AnyValue) *roaring.Bitmap
	// Cardinality is the number of distinct values indexed.
	Cardinality() int
	Clear()
}

type Settings struct {
	// BloomFilterFPRate is the desired false-positive rate for the Bloom filter.
	BloomFilterFPRate float64
	// HashIndexSize is a sizing hint for the hash index.
	HashIndexSize int
}

func DefaultSettings() Settings {
	return Settings{BloomFilterFPRate: 0.01}
}

func newIndex(strategy Strategy, settings Settings, rows int) (Index, error) {
	switch strategy {
	case RoaringBitmap:
		return newRoaringIndex(), nil
	case HashIndex:
		return newHashIndex(settings.HashIndexSize), nil
	case Bloom:
		return newBloomIndex(rows, settings.BloomFilterFPRate), nil
	case SortedColumn:
		return newSortedIndex(rows), nil
	default:
		return nil, column.Errorf(column.ErrInvalidOperation, "unsupported index strategy: %v", strategy)
	}
}

// ---------------------------------------------------------------------
// Column scans
// ---------------------------------------------------------------------

func checkRows(c *column.Column) error {
	if c.Len() > math.MaxUint32 {
		return column.Errorf(column.ErrOutOfBounds, "column %q has %d rows, index rows are uint32", c.Name(), c.Len())
	}
	return nil
}

// Nulls returns the positions of the null rows of c across all chunks.
func Nulls(c *column.Column) *roaring.Bitmap {
	bm := roaring.New()
	if !c.HasValidity() {
		return bm
	}
	row := uint32(0)
	for _, chunk := range c.Chunks() {
		n, bitmap := column.Validity(chunk)
		if n == 0 {
			row += uint32(chunk.Len())
			continue
		}
		for i := 0; i < chunk.Len(); i++ {
			if !column.ValidAt(chunk, bitmap, i) {
				bm.Add(row)
			}
			row++
		}
	}
	return bm
}

// ValueIndex maps every distinct non-null value of a column to its rows.
type ValueIndex struct {
	name     string
	strategy Strategy
	idx      Index
	nulls    *roaring.Bitmap
}

// Build indexes every row of c with the given strategy. List columns cannot
// be indexed.
func Build(c *column.Column, strategy Strategy, settings Settings) (*ValueIndex, error) {
	if c.DataType().Kind() == column.KindList {
		return nil, column.Errorf(column.ErrInvalidOperation, "cannot index list column %q", c.Name())
	}
	if err := checkRows(c); err != nil {
		return nil, err
	}
	idx, err := newIndex(strategy, settings, c.Len())
	if err != nil {
		return nil, err
	}
	vi := &ValueIndex{name: c.Name(), strategy: strategy, idx: idx, nulls: roaring.New()}
	for row, v := range c.Values() {
		if v.IsNull() {
			vi.nulls.Add(uint32(row))
			continue
		}
		if err := idx.Add(uint32(row), v); err != nil {
			return nil, fmt.Errorf("index %q row %d: %w", c.Name(), row, err)
		}
	}
	// Sort eagerly so concurrent searches never mutate the index.
	if s, ok := idx.(*sortedIndex); ok {
		s.sort()
	}
	return vi, nil
}

func (vi *ValueIndex) Name() string           { return vi.name }
func (vi *ValueIndex) Strategy() Strategy     { return vi.strategy }
func (vi *ValueIndex) Cardinality() int       { return vi.idx.Cardinality() }
func (vi *ValueIndex) NullRows() []uint32     { return vi.nulls.ToArray() }
func (vi *ValueIndex) Nulls() *roaring.Bitmap { return vi.nulls.Clone() }

// Search returns the rows equal to value in ascending order. Searching for
// null returns the null rows.
func (vi *ValueIndex) Search(value column.AnyValue) []uint32 {
	if value.IsNull() {
		return vi.NullRows()
	}
	bm := vi.idx.Search(value)
	if bm == nil {
		return nil
	}
	return bm.ToArray()
}

// ---------------------------------------------------------------------
// Manager: indexes per column and strategy
// ---------------------------------------------------------------------

type Manager struct {
	mu       sync.RWMutex
	indexes  map[string]map[Strategy]*ValueIndex
	settings Settings
}

func NewManager(settings Settings) *Manager {
	return &Manager{
		indexes:  make(map[string]map[Strategy]*ValueIndex),
		settings: settings,
	}
}

// CreateIndex builds an index over c and registers it under the column's name,
// replacing any index of the same strategy.
func (m *Manager) CreateIndex(c *column.Column, strategy Strategy) (*ValueIndex, error) {
	vi, err := Build(c, strategy, m.settings)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexes[c.Name()] == nil {
		m.indexes[c.Name()] = make(map[Strategy]*ValueIndex)
	}
	m.indexes[c.Name()][strategy] = vi
	return vi, nil
}

func (m *Manager) GetIndex(name string, strategy Strategy) (*ValueIndex, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	vi, ok := m.indexes[name][strategy]
	return vi, ok
}

// ---------------------------------------------------------------------
// 1) Roaring Bitmap Index
//
//    Maps each distinct value -> roaring.Bitmap of rows.
// ---------------------------------------------------------------------

type roaringIndex struct {
	values map[any]*roaring.Bitmap
}

func newRoaringIndex() *roaringIndex {
	return &roaringIndex{values: make(map[any]*roaring.Bitmap)}
}

func key(v column.AnyValue) (any, error) {
	k, ok := v.Key()
	if !ok || v.IsNull() {
		return nil, column.Errorf(column.ErrInvalidOperation, "value %s cannot be indexed", v)
	}
	return k, nil
}

func (r *roaringIndex) Add(row uint32, value column.AnyValue) error {
	k, err := key(value)
	if err != nil {
		return err
	}
	bm, ok := r.values[k]
	if !ok {
		bm = roaring.New()
		r.values[k] = bm
	}
	bm.Add(row)
	return nil
}

func (r *roaringIndex) Search(value column.AnyValue) *roaring.Bitmap {
	k, err := key(value)
	if err != nil {
		return nil
	}
	return r.values[k]
}

func (r *roaringIndex) Cardinality() int { return len(r.values) }
func (r *roaringIndex) Clear()           { r.values = make(map[any]*roaring.Bitmap) }

// ---------------------------------------------------------------------
// 2) Hash Index
//
//    Buckets values by their murmur3 hash; each bucket maps value -> rows.
// ---------------------------------------------------------------------

type hashIndex struct {
	size     int
	buckets  map[uint64]map[any]*roaring.Bitmap
	distinct int
}

func newHashIndex(sizeHint int) *hashIndex {
	return &hashIndex{
		size:    sizeHint,
		buckets: make(map[uint64]map[any]*roaring.Bitmap, sizeHint),
	}
}

// fingerprint encodes the kind alongside the canonical value so equal
// renderings of different kinds never collide and equal floats hash alike.
func fingerprint(v column.AnyValue) []byte {
	return fmt.Appendf(nil, "%d:%s", v.Kind(), v.Canonical())
}

func (h *hashIndex) Add(row uint32, value column.AnyValue) error {
	k, err := key(value)
	if err != nil {
		return err
	}
	sum := murmur3.Sum64(fingerprint(value))
	sub, ok := h.buckets[sum]
	if !ok {
		sub = make(map[any]*roaring.Bitmap)
		h.buckets[sum] = sub
	}
	bm, ok := sub[k]
	if !ok {
		bm = roaring.New()
		sub[k] = bm
		h.distinct++
	}
	bm.Add(row)
	return nil
}

func (h *hashIndex) Search(value column.AnyValue) *roaring.Bitmap {
	k, err := key(value)
	if err != nil {
		return nil
	}
	return h.buckets[murmur3.Sum64(fingerprint(value))][k]
}

func (h *hashIndex) Cardinality() int { return h.distinct }

func (h *hashIndex) Clear() {
	h.buckets = make(map[uint64]map[any]*roaring.Bitmap, h.size)
	h.distinct = 0
}

// ---------------------------------------------------------------------
// 3) Bloom Filter Index
//
//    A roaring index fronted by a bloom filter that rejects absent values
//    before touching the map.
// ---------------------------------------------------------------------

type bloomIndex struct {
	*roaringIndex
	filter   *bloom.BloomFilter
	capacity uint
	fpRate   float64
}

func newBloomIndex(capacity int, fpRate float64) *bloomIndex {
	if capacity < 1 {
		capacity = 1
	}
	if fpRate <= 0 || fpRate >= 1 {
		fpRate = DefaultSettings().BloomFilterFPRate
	}
	return &bloomIndex{
		roaringIndex: newRoaringIndex(),
		filter:       bloom.NewWithEstimates(uint(capacity), fpRate),
		capacity:     uint(capacity),
		fpRate:       fpRate,
	}
}

func (b *bloomIndex) Add(row uint32, value column.AnyValue) error {
	if err := b.roaringIndex.Add(row, value); err != nil {
		return err
	}
	b.filter.Add(fingerprint(value))
	return nil
}

func (b *bloomIndex) Search(value column.AnyValue) *roaring.Bitmap {
	if value.IsNull() || !b.filter.Test(fingerprint(value)) {
		return nil
	}
	return b.roaringIndex.Search(value)
}

func (b *bloomIndex) Clear() {
	b.roaringIndex.Clear()
	b.filter = bloom.NewWithEstimates(b.capacity, b.fpRate)
}

// ---------------------------------------------------------------------
// 4) Sorted Column Index
//
//    Keeps (value, row) entries ordered by value; lookups binary search for
//    the run of equal values.
// ---------------------------------------------------------------------

type sortedEntry struct {
	value column.AnyValue
	row   uint32
}

type sortedIndex struct {
	entries []sortedEntry
	sorted  bool
}

func newSortedIndex(rows int) *sortedIndex {
	return &sortedIndex{entries: make([]sortedEntry, 0, rows), sorted: true}
}

func (s *sortedIndex) Add(row uint32, value column.AnyValue) error {
	if _, err := key(value); err != nil {
		return err
	}
	s.entries = append(s.entries, sortedEntry{value: value, row: row})
	s.sorted = false
	return nil
}

func (s *sortedIndex) sort() {
	if s.sorted {
		return
	}
	slices.SortStableFunc(s.entries, func(a, b sortedEntry) int {
		return column.Compare(a.value, b.value)
	})
	s.sorted = true
}

func (s *sortedIndex) Search(value column.AnyValue) *roaring.Bitmap {
	s.sort()
	left, found := slices.BinarySearchFunc(s.entries, value, func(e sortedEntry, v column.AnyValue) int {
		return column.Compare(e.value, v)
	})
	if !found {
		return nil
	}
	bm := roaring.New()
	for i := left; i < len(s.entries) && column.Compare(s.entries[i].value, value) == 0; i++ {
		bm.Add(s.entries[i].row)
	}
	return bm
}

func (s *sortedIndex) Cardinality() int {
	s.sort()
	n := 0
	for i := range s.entries {
		if i == 0 || column.Compare(s.entries[i-1].value, s.entries[i].value) != 0 {
			n++
		}
	}
	return n
}

func (s *sortedIndex) Clear() {
	s.entries = s.entries[:0]
	s.sorted = true
}
