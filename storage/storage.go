// Package storage persists columns as Arrow IPC files.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/golang/groupcache/lru"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/TFMV/chunky/column"
)

// Compression selects the IPC body compression codec.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionLZ4  Compression = "lz4"
	CompressionZstd Compression = "zstd"
)

// ParseCompression accepts "", "none", "lz4" and "zstd".
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(s); c {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionLZ4, CompressionZstd:
		return c, nil
	default:
		return "", fmt.Errorf("unknown compression %q", s)
	}
}

// ---------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------

type options struct {
	mem         memory.Allocator
	logger      *zap.Logger
	compression Compression
	cacheSize   int
	breaker     gobreaker.Settings
}

type Option func(*options)

func WithAllocator(mem memory.Allocator) Option { return func(o *options) { o.mem = mem } }
func WithLogger(l *zap.Logger) Option           { return func(o *options) { o.logger = l } }
func WithCompression(c Compression) Option      { return func(o *options) { o.compression = c } }

// WithCacheSize keeps up to n loaded files in memory. Zero disables caching.
func WithCacheSize(n int) Option { return func(o *options) { o.cacheSize = n } }

// WithBreaker overrides the circuit breaker guarding file writes.
func WithBreaker(s gobreaker.Settings) Option { return func(o *options) { o.breaker = s } }

// ---------------------------------------------------------------------
// Storage
// ---------------------------------------------------------------------

// Storage saves and loads columns. Repeated write failures open a circuit
// breaker so later saves fail fast with gobreaker.ErrOpenState.
type Storage struct {
	opts    options
	breaker *gobreaker.CircuitBreaker[int]

	mu    sync.Mutex
	cache *lru.Cache
}

// New creates a Storage.
func New(opts ...Option) *Storage {
	o := options{
		mem:         memory.DefaultAllocator,
		logger:      zap.NewNop(),
		compression: CompressionNone,
		breaker: gobreaker.Settings{
			Name:    "chunky-storage",
			Timeout: 5 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(&o)
	}
	s := &Storage{
		opts:    o,
		breaker: gobreaker.NewCircuitBreaker[int](o.breaker),
	}
	if o.cacheSize > 0 {
		s.cache = lru.New(o.cacheSize)
		s.cache.OnEvicted = func(_ lru.Key, v interface{}) {
			releaseAll(v.([]*column.Column))
		}
	}
	return s
}

func releaseAll(cols []*column.Column) {
	for _, c := range cols {
		c.Release()
	}
}

func validate(cols []*column.Column) error {
	if len(cols) == 0 {
		return column.Errorf(column.ErrNoData, "no columns to save")
	}
	for _, c := range cols[1:] {
		if c.Len() != cols[0].Len() {
			return column.Errorf(column.ErrShapeMismatch, "column %q has %d rows, %q has %d",
				c.Name(), c.Len(), cols[0].Name(), cols[0].Len())
		}
	}
	return nil
}

// prepare returns columns ready to write: categoricals decoded to Utf8 and,
// when chunk boundaries differ, everything rechunked into one chunk.
func (s *Storage) prepare(ctx context.Context, cols []*column.Column) ([]*column.Column, error) {
	out := make([]*column.Column, 0, len(cols))
	fail := func(err error) ([]*column.Column, error) {
		releaseAll(out)
		return nil, err
	}
	for _, c := range cols {
		if c.DataType().Kind() == column.KindCategorical {
			dec, err := column.CastUtf8(ctx, c, s.opts.mem)
			if err != nil {
				return fail(err)
			}
			out = append(out, dec)
			continue
		}
		out = append(out, c.Rename(c.Name()))
	}

	lens := out[0].ChunkLens()
	aligned := true
	for _, c := range out[1:] {
		if !slices.Equal(c.ChunkLens(), lens) {
			aligned = false
			break
		}
	}
	if aligned {
		return out, nil
	}
	for i, c := range out {
		one, err := c.Rechunk(s.opts.mem)
		if err != nil {
			return fail(err)
		}
		c.Release()
		out[i] = one
	}
	return out, nil
}

func schemaOf(cols []*column.Column) *arrow.Schema {
	fields := make([]arrow.Field, len(cols))
	for i, c := range cols {
		fields[i] = arrow.Field{Name: c.Name(), Type: c.DataType().Arrow(), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

func (s *Storage) writerOptions(schema *arrow.Schema) []ipc.Option {
	opts := []ipc.Option{ipc.WithSchema(schema), ipc.WithAllocator(s.opts.mem)}
	switch s.opts.compression {
	case CompressionLZ4:
		opts = append(opts, ipc.WithLZ4())
	case CompressionZstd:
		opts = append(opts, ipc.WithZstd())
	}
	return opts
}

// Save writes equal-length columns to path as an Arrow IPC file with one
// record batch per chunk. Categorical columns are stored as strings.
func (s *Storage) Save(ctx context.Context, path string, cols ...*column.Column) error {
	if err := validate(cols); err != nil {
		return err
	}
	prepared, err := s.prepare(ctx, cols)
	if err != nil {
		return fmt.Errorf("prepare columns for %q: %w", path, err)
	}
	defer releaseAll(prepared)

	batches, err := s.breaker.Execute(func() (int, error) {
		return s.write(path, prepared)
	})
	if err != nil {
		return err
	}

	s.invalidate(path)
	s.opts.logger.Debug("saved columns",
		zap.String("path", path),
		zap.Int("columns", len(prepared)),
		zap.Int("rows", prepared[0].Len()),
		zap.Int("batches", batches),
	)
	return nil
}

func (s *Storage) write(path string, cols []*column.Column) (n int, err error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create file %q: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close file %q: %w", path, cerr)
		}
	}()

	schema := schemaOf(cols)
	writer, err := ipc.NewFileWriter(file, s.writerOptions(schema)...)
	if err != nil {
		return 0, fmt.Errorf("failed to create Arrow file writer: %w", err)
	}

	for i := 0; i < cols[0].NumChunks(); i++ {
		arrs := make([]arrow.Array, len(cols))
		for j, c := range cols {
			arrs[j] = c.Chunk(i)
		}
		rec := array.NewRecord(schema, arrs, int64(arrs[0].Len()))
		err := writer.Write(rec)
		rec.Release()
		if err != nil {
			_ = writer.Close()
			return n, fmt.Errorf("failed to write record %d to Arrow file: %w", i, err)
		}
		n++
	}
	if err := writer.Close(); err != nil {
		return n, fmt.Errorf("failed to finish Arrow file %q: %w", path, err)
	}
	return n, nil
}

// Load reads every record batch of the IPC file at path, one chunk per batch.
// The caller owns the returned columns and releases them when done.
func (s *Storage) Load(path string) ([]*column.Column, error) {
	if cols, ok := s.cached(path); ok {
		return cols, nil
	}

	cols, err := s.read(path)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.mu.Lock()
		s.cache.Add(path, share(cols))
		s.mu.Unlock()
	}
	return cols, nil
}

func (s *Storage) read(path string) ([]*column.Column, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %q: %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	reader, err := ipc.NewFileReader(file, ipc.WithAllocator(s.opts.mem))
	if err != nil {
		return nil, fmt.Errorf("failed to create Arrow file reader: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()

	schema := reader.Schema()
	fields := make([]column.Field, schema.NumFields())
	for i, f := range schema.Fields() {
		dt, err := column.TypeFromArrow(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q of %q: %w", f.Name, path, err)
		}
		fields[i] = column.Field{Name: f.Name, Type: dt}
	}

	chunks := make([][]arrow.Array, len(fields))
	release := func() {
		for _, cs := range chunks {
			for _, c := range cs {
				c.Release()
			}
		}
	}
	n := reader.NumRecords()
	for i := 0; i < n; i++ {
		rec, err := reader.RecordAt(i)
		if err != nil {
			release()
			return nil, fmt.Errorf("failed to read record %d from file: %w", i, err)
		}
		for j := range fields {
			arr := rec.Column(j)
			arr.Retain()
			chunks[j] = append(chunks[j], arr)
		}
		rec.Release()
	}

	cols := make([]*column.Column, len(fields))
	for i, f := range fields {
		cols[i] = column.New(f, chunks[i])
	}
	s.opts.logger.Debug("loaded columns",
		zap.String("path", path),
		zap.Int("columns", len(cols)),
		zap.Int("batches", n),
	)
	return cols, nil
}

// share returns new Column values over the same chunks.
func share(cols []*column.Column) []*column.Column {
	out := make([]*column.Column, len(cols))
	for i, c := range cols {
		out[i] = c.Rename(c.Name())
	}
	return out
}

func (s *Storage) cached(path string) ([]*column.Column, bool) {
	if s.cache == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.cache.Get(path)
	if !ok {
		return nil, false
	}
	return share(v.([]*column.Column)), true
}

func (s *Storage) invalidate(path string) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	s.cache.Remove(path)
	s.mu.Unlock()
}

// Close drops every cached file.
func (s *Storage) Close() {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	s.cache.Clear()
	s.mu.Unlock()
}

// IsBreakerOpen reports whether err came from an open write breaker.
func IsBreakerOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// ---------------------------------------------------------------------
// Package-level helpers
// ---------------------------------------------------------------------

// Save writes cols to path with default options.
func Save(path string, cols ...*column.Column) error {
	return New().Save(context.Background(), path, cols...)
}

// Load reads path with default options.
func Load(path string) ([]*column.Column, error) {
	return New().Load(path)
}
