// Package config holds the settings of a run and loads them from YAML.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"
	"reduction.dev/linedup/dedup"
	"reduction.dev/linedup/logging"
	"reduction.dev/linedup/storage/objstore"
	"reduction.dev/linedup/util/fileu"
)

const DefaultChunkCapacity = 1_000_000

// The object representing run configuration. Field tags name the keys of the
// YAML config file.
type Config struct {
	// Input and Output are paths, "-" or s3:// URIs.
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
	// Where spill units are written: a directory, memory:// or s3://bucket/prefix.
	TempLocation  string `yaml:"temp_location"`
	ChunkCapacity int    `yaml:"chunk_capacity"`
	SortWorkers   int    `yaml:"sort_workers"`
	ChunkStrategy string `yaml:"chunk_strategy"`
	// One byte, either literal or as a Go escape like \n, \t or \x00.
	Delimiter   string   `yaml:"delimiter"`
	LogLevel    string   `yaml:"log_level"`
	MetricsAddr string   `yaml:"metrics_addr"`
	Progress    bool     `yaml:"progress"`
	S3          S3Config `yaml:"s3"`
}

type S3Config struct {
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

func Default() *Config {
	return &Config{
		Input:         fileu.StdioPath,
		Output:        fileu.StdioPath,
		TempLocation:  filepath.Join(os.TempDir(), "linedup"),
		ChunkCapacity: DefaultChunkCapacity,
		SortWorkers:   runtime.GOMAXPROCS(0),
		ChunkStrategy: string(dedup.StrategySort),
		Delimiter:     string(dedup.DefaultDelimiter),
		LogLevel:      "info",
	}
}

// Load returns the defaults overlaid with the YAML file at path. Keys missing
// from the file keep their default. An empty path returns the defaults.
func Load(ctx context.Context, path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	data, err := fileu.ReadFile(ctx, path, fileu.Options{})
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := c.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Unmarshal overlays YAML data onto c. Unknown keys are an error.
func (c *Config) Unmarshal(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid config document: %w", err)
	}
	return nil
}

func (c *Config) Validate() (err error) {
	if c.Input == "" {
		err = errors.Join(err, fmt.Errorf("input is required"))
	}
	if c.Output == "" {
		err = errors.Join(err, fmt.Errorf("output is required"))
	}
	if c.TempLocation == "" {
		err = errors.Join(err, fmt.Errorf("temp location is required"))
	}
	if c.ChunkCapacity < 1 {
		err = errors.Join(err, fmt.Errorf("chunk capacity must be at least 1, got %d", c.ChunkCapacity))
	}
	if c.SortWorkers < 1 {
		err = errors.Join(err, fmt.Errorf("sort workers must be at least 1, got %d", c.SortWorkers))
	}
	if _, parseErr := dedup.ParseChunkStrategy(c.ChunkStrategy); parseErr != nil {
		err = errors.Join(err, parseErr)
	}
	if _, parseErr := ParseDelimiter(c.Delimiter); parseErr != nil {
		err = errors.Join(err, parseErr)
	}
	if _, parseErr := logging.ParseLevel(c.LogLevel); parseErr != nil {
		err = errors.Join(err, parseErr)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", dedup.ErrConfig, err)
	}
	return nil
}

func (c *Config) S3Options() objstore.ClientOptions {
	return objstore.ClientOptions{
		Region:          c.S3.Region,
		Endpoint:        c.S3.Endpoint,
		AccessKeyID:     c.S3.AccessKeyID,
		SecretAccessKey: c.S3.SecretAccessKey,
		UsePathStyle:    c.S3.UsePathStyle,
	}
}

// ParseDelimiter accepts a single byte or a Go character escape for one.
func ParseDelimiter(s string) (byte, error) {
	if len(s) == 1 {
		return s[0], nil
	}
	if len(s) == 0 || s[0] != '\\' {
		return 0, fmt.Errorf("delimiter must be a single byte, got %q", s)
	}
	value, _, tail, err := strconv.UnquoteChar(s, '\'')
	if err != nil || tail != "" || value > 0xFF {
		return 0, fmt.Errorf("delimiter must be a single byte, got %q", s)
	}
	return byte(value), nil
}
