package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/docopt/docopt.go"
	"go.uber.org/zap"

	"github.com/TFMV/chunky/builder"
	"github.com/TFMV/chunky/categorical"
	"github.com/TFMV/chunky/column"
	"github.com/TFMV/chunky/config"
	"github.com/TFMV/chunky/functions"
	"github.com/TFMV/chunky/index"
	"github.com/TFMV/chunky/storage"
)

// env carries what every command needs.
type env struct {
	cfg    config.Config
	logger *zap.Logger
	store  *storage.Storage
	out    io.Writer
}

func run(arguments docopt.Opts, out io.Writer) error {
	cfg := config.Default()
	if path, _ := arguments.String("--config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return err
		}
	}
	logger, err := cfg.Logger()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	e := &env{
		cfg:    cfg,
		logger: logger,
		store:  storage.New(cfg.StorageOptions(logger)...),
		out:    out,
	}
	defer e.store.Close()

	file, _ := arguments.String("<file>")
	switch {
	case flag(arguments, "demo"):
		rows, err := arguments.Int("--rows")
		if err != nil {
			return fmt.Errorf("--rows: %w", err)
		}
		return e.demo(file, rows)
	case flag(arguments, "inspect"):
		limit, err := arguments.Int("--limit")
		if err != nil {
			return fmt.Errorf("--limit: %w", err)
		}
		return e.inspect(file, limit)
	case flag(arguments, "concat"):
		sep, _ := arguments.String("--sep")
		dest, _ := arguments.String("--out")
		return e.concat(file, strs(arguments, "<column>"), sep, dest)
	case flag(arguments, "argsort"):
		return e.argsort(file, strs(arguments, "<column>"), flag(arguments, "--desc"))
	case flag(arguments, "corr"):
		a, _ := arguments.String("<a>")
		b, _ := arguments.String("<b>")
		return e.corr(file, a, b)
	case flag(arguments, "search"):
		name, _ := arguments.String("<name>")
		value, _ := arguments.String("<value>")
		strategy, _ := arguments.String("--strategy")
		return e.search(file, name, value, strategy)
	default:
		return fmt.Errorf("no command given")
	}
}

func flag(arguments docopt.Opts, key string) bool {
	v, _ := arguments.Bool(key)
	return v
}

func strs(arguments docopt.Opts, key string) []string {
	v, _ := arguments[key].([]string)
	return v
}

// ---------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------

// demo writes a two-chunk sample file exercising every builder.
func (e *env) demo(path string, rows int) error {
	if rows < 1 {
		return fmt.Errorf("--rows must be positive, got %d", rows)
	}
	opts := e.cfg.BuilderOptions(e.logger)
	cache := categorical.NewStringCache()
	colors := []string{"red", "green", "blue"}

	var chunks [][]*column.Column
	for part := 0; part < 2; part++ {
		ids := builder.NewNumeric[int64]("id", rows, opts...)
		scores := builder.NewNumeric[float64]("score", rows, opts...)
		names := builder.NewUtf8("name", rows, rows*8, opts...)
		active := builder.NewBoolean("active", rows, opts...)
		color := builder.NewCategorical("color", rows, cache, opts...)
		tags := builder.NewListBuilder(column.Utf8, rows*2, rows, "tags", opts...)

		for i := 0; i < rows; i++ {
			n := part*rows + i
			ids.AppendValue(int64(n))
			scores.AppendOption(float64(n)*1.5, n%4 != 3)
			names.AppendValue("user-" + strconv.Itoa(n))
			active.AppendValue(n%2 == 0)
			color.AppendValue(colors[n%len(colors)])
			switch n % 3 {
			case 0:
				tags.AppendNull()
			case 1:
				if err := tags.AppendSeries(builder.Utf8FromSlice("", nil, nil)); err != nil {
					return err
				}
			default:
				sub := builder.Utf8FromSlice("", []string{"t" + strconv.Itoa(n), ""}, []bool{true, false})
				if err := tags.AppendSeries(sub); err != nil {
					return err
				}
			}
		}
		chunks = append(chunks, []*column.Column{
			ids.Finish(), names.Finish(), scores.Finish(), active.Finish(), color.Finish(), tags.Finish(),
		})
	}

	cols := make([]*column.Column, len(chunks[0]))
	for i := range cols {
		var err error
		if cols[i], err = builder.Concat(chunks[0][i], chunks[1][i]); err != nil {
			return err
		}
	}
	if err := e.store.Save(context.Background(), path, cols...); err != nil {
		return err
	}
	e.logger.Info("wrote demo file", zap.String("path", path), zap.Int("rows", cols[0].Len()))
	fmt.Fprintf(e.out, "wrote %d rows to %s\n", cols[0].Len(), path)
	return nil
}

func (e *env) inspect(path string, limit int) error {
	cols, err := e.store.Load(path)
	if err != nil {
		return err
	}
	for _, c := range cols {
		fmt.Fprintf(e.out, "%s nulls=%d chunks=%v\n", c, c.NullCount(), c.ChunkLens())
		n := min(limit, c.Len())
		vals := make([]string, n)
		for i := 0; i < n; i++ {
			vals[i] = render(c.Get(i))
		}
		fmt.Fprintf(e.out, "  [%s]\n", strings.Join(vals, ", "))
	}
	return nil
}

func render(v column.AnyValue) string {
	if v.Kind() != column.ListValue {
		return v.String()
	}
	items := v.List().Values()
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func (e *env) concat(path string, names []string, sep, dest string) error {
	cols, err := e.pick(path, names)
	if err != nil {
		return err
	}
	out, err := functions.ConcatStr(context.Background(), cols, sep, e.cfg.FunctionOptions(e.logger)...)
	if err != nil {
		return err
	}
	defer out.Release()
	if dest != "" {
		return e.store.Save(context.Background(), dest, out)
	}
	for _, v := range out.Values() {
		fmt.Fprintln(e.out, v)
	}
	return nil
}

func (e *env) argsort(path string, names []string, desc bool) error {
	cols, err := e.pick(path, names)
	if err != nil {
		return err
	}
	reverse := make([]bool, len(cols))
	for i := range reverse {
		reverse[i] = desc
	}
	idx, err := functions.ArgSortBy(cols, reverse, e.cfg.FunctionOptions(e.logger)...)
	if err != nil {
		return err
	}
	for _, v := range idx.Values() {
		fmt.Fprintln(e.out, v)
	}
	return nil
}

func (e *env) corr(path, a, b string) error {
	cols, err := e.pick(path, []string{a, b})
	if err != nil {
		return err
	}
	cov, ok := functions.Cov(cols[0], cols[1])
	if !ok {
		return column.Errorf(column.ErrInvalidOperation, "cov(%s, %s) is undefined", a, b)
	}
	corr, _ := functions.PearsonCorr(cols[0], cols[1])
	fmt.Fprintf(e.out, "cov=%g pearson=%g\n", cov, corr)
	return nil
}

func (e *env) search(path, name, raw, strategy string) error {
	s, err := parseStrategy(strategy)
	if err != nil {
		return err
	}
	cols, err := e.pick(path, []string{name})
	if err != nil {
		return err
	}
	value, err := parseValue(cols[0].DataType(), raw)
	if err != nil {
		return err
	}
	vi, err := index.NewManager(e.cfg.IndexSettings()).CreateIndex(cols[0], s)
	if err != nil {
		return err
	}
	rows := vi.Search(value)
	e.logger.Debug("index search",
		zap.String("column", name),
		zap.Stringer("strategy", s),
		zap.Int("cardinality", vi.Cardinality()),
		zap.Int("matches", len(rows)),
	)
	for _, r := range rows {
		fmt.Fprintln(e.out, r)
	}
	return nil
}

// pick loads path and returns the named columns in the order given.
func (e *env) pick(path string, names []string) ([]*column.Column, error) {
	cols, err := e.store.Load(path)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*column.Column, len(cols))
	for _, c := range cols {
		byName[c.Name()] = c
	}
	out := make([]*column.Column, len(names))
	for i, n := range names {
		c, ok := byName[n]
		if !ok {
			return nil, column.Errorf(column.ErrNoData, "column %q not found in %s", n, path)
		}
		out[i] = c
	}
	return out, nil
}

func parseStrategy(s string) (index.Strategy, error) {
	for _, st := range []index.Strategy{index.RoaringBitmap, index.HashIndex, index.Bloom, index.SortedColumn} {
		if st.String() == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown index strategy %q", s)
}

func parseValue(dt column.DataType, raw string) (column.AnyValue, error) {
	if raw == "null" {
		return column.Null(), nil
	}
	switch {
	case dt.Kind() == column.KindBoolean:
		b, err := strconv.ParseBool(raw)
		return column.Bool(b), err
	case dt.IsFloat():
		f, err := strconv.ParseFloat(raw, 64)
		return column.Float(f), err
	case dt.IsNumeric() && dt.IsSigned():
		i, err := strconv.ParseInt(raw, 10, 64)
		return column.Int(i), err
	case dt.IsNumeric():
		u, err := strconv.ParseUint(raw, 10, 64)
		return column.Uint(u), err
	case dt.Kind() == column.KindUtf8:
		return column.Str(raw), nil
	default:
		return column.AnyValue{}, column.Errorf(column.ErrInvalidOperation, "cannot search %s columns", dt)
	}
}
