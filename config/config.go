// Package config loads the YAML configuration shared by the chunky tools and
// turns it into options for the other packages.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/TFMV/chunky/builder"
	"github.com/TFMV/chunky/functions"
	"github.com/TFMV/chunky/index"
	"github.com/TFMV/chunky/storage"
)

type Config struct {
	Builder   BuilderConfig   `yaml:"builder"`
	Functions FunctionsConfig `yaml:"functions"`
	Storage   StorageConfig   `yaml:"storage"`
	Index     IndexConfig     `yaml:"index"`
	Log       LogConfig       `yaml:"log"`
}

type BuilderConfig struct {
	// Utf8BytesFactor is the expected average byte length of a string value
	// inside a list, used to size list value buffers.
	Utf8BytesFactor int `yaml:"utf8_bytes_factor"`
}

type FunctionsConfig struct {
	ConcatScratchBytes int `yaml:"concat_scratch_bytes"`
}

type StorageConfig struct {
	Compression string `yaml:"compression"`
	CacheSize   int    `yaml:"cache_size"`
}

type IndexConfig struct {
	BloomFPRate   float64 `yaml:"bloom_fp_rate"`
	HashIndexSize int     `yaml:"hash_index_size"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Builder:   BuilderConfig{Utf8BytesFactor: builder.DefaultUtf8BytesFactor},
		Functions: FunctionsConfig{ConcatScratchBytes: functions.DefaultScratchCapacity},
		Storage:   StorageConfig{Compression: string(storage.CompressionNone)},
		Index:     IndexConfig{BloomFPRate: index.DefaultSettings().BloomFilterFPRate},
		Log:       LogConfig{Level: "info"},
	}
}

// Load reads the YAML file at path over the defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %q: %w", path, err)
	}
	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return Config{}, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML from r over the defaults and validates the result.
// Unknown keys are rejected.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Builder.Utf8BytesFactor < 1 {
		return fmt.Errorf("builder.utf8_bytes_factor must be positive, got %d", c.Builder.Utf8BytesFactor)
	}
	if c.Functions.ConcatScratchBytes < 0 {
		return fmt.Errorf("functions.concat_scratch_bytes must not be negative, got %d", c.Functions.ConcatScratchBytes)
	}
	if _, err := storage.ParseCompression(c.Storage.Compression); err != nil {
		return fmt.Errorf("storage.compression: %w", err)
	}
	if c.Storage.CacheSize < 0 {
		return fmt.Errorf("storage.cache_size must not be negative, got %d", c.Storage.CacheSize)
	}
	if c.Index.BloomFPRate <= 0 || c.Index.BloomFPRate >= 1 {
		return fmt.Errorf("index.bloom_fp_rate must be in (0, 1), got %g", c.Index.BloomFPRate)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Logger builds the zap logger described by the log section.
func (c Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func (c Config) BuilderOptions(logger *zap.Logger) []builder.Option {
	return []builder.Option{
		builder.WithLogger(logger),
		builder.WithUtf8BytesFactor(c.Builder.Utf8BytesFactor),
	}
}

func (c Config) FunctionOptions(logger *zap.Logger) []functions.Option {
	return []functions.Option{
		functions.WithBuilderOptions(c.BuilderOptions(logger)...),
		functions.WithScratchCapacity(c.Functions.ConcatScratchBytes),
	}
}

func (c Config) StorageOptions(logger *zap.Logger) []storage.Option {
	comp, _ := storage.ParseCompression(c.Storage.Compression)
	return []storage.Option{
		storage.WithLogger(logger),
		storage.WithCompression(comp),
		storage.WithCacheSize(c.Storage.CacheSize),
	}
}

func (c Config) IndexSettings() index.Settings {
	return index.Settings{
		BloomFilterFPRate: c.Index.BloomFPRate,
		HashIndexSize:     c.Index.HashIndexSize,
	}
}
