// Package streamconfig loads stream buffer settings from YAML.
//
//	source:
//	  frequency: 300     # milliseconds
//	  chunk_size: 5
//	  rate_limit: 1024   # bytes per second, 0 is unlimited
//	sink:
//	  limit: 1048576
//	log_level: debug
//
// Every numeric setting must be a non-negative whole number. A missing
// setting keeps the stream default.
package streamconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/trickstertwo/xlog"
	"gopkg.in/yaml.v3"

	"github.com/akmistry/go-streambuf/streambuffer"
	"github.com/akmistry/go-streambuf/streamlog"
)

type Config struct {
	Source   SourceConfig
	Sink     SinkConfig
	LogLevel string

	level xlog.Level
}

type SourceConfig struct {
	Frequency       time.Duration
	ChunkSize       int
	InitialSize     int
	IncrementAmount int
	HighWaterMark   int
	RateLimit       int
}

type SinkConfig struct {
	InitialSize     int
	IncrementAmount int
	Limit           int
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Source:   SourceConfig{Frequency: streambuffer.DefaultFrequency},
		LogLevel: "info",
		level:    xlog.LevelInfo,
	}
}

// number holds a numeric setting as written, so that validation can name the
// offending key.
type number struct {
	node *yaml.Node
}

func (n *number) UnmarshalYAML(node *yaml.Node) error {
	n.node = node
	return nil
}

type fileConfig struct {
	Source struct {
		Frequency       number `yaml:"frequency"`
		ChunkSize       number `yaml:"chunk_size"`
		InitialSize     number `yaml:"initial_size"`
		IncrementAmount number `yaml:"increment_amount"`
		HighWaterMark   number `yaml:"high_water_mark"`
		RateLimit       number `yaml:"rate_limit"`
	} `yaml:"source"`
	Sink struct {
		InitialSize     number `yaml:"initial_size"`
		IncrementAmount number `yaml:"increment_amount"`
		Limit           number `yaml:"limit"`
	} `yaml:"sink"`
	LogLevel string `yaml:"log_level"`
}

// Parse decodes a YAML document. Unknown keys are rejected, and a numeric
// setting that is not a non-negative whole number fails with a
// *streambuffer.OptionError.
func Parse(data []byte) (*Config, error) {
	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("streamconfig: %w", err)
	}

	c := Default()
	p := parser{}
	if fc.Source.Frequency.node != nil {
		ms := p.whole("source.frequency", fc.Source.Frequency)
		c.Source.Frequency = time.Duration(ms) * time.Millisecond
	}
	c.Source.ChunkSize = p.whole("source.chunk_size", fc.Source.ChunkSize)
	c.Source.InitialSize = p.whole("source.initial_size", fc.Source.InitialSize)
	c.Source.IncrementAmount = p.whole("source.increment_amount", fc.Source.IncrementAmount)
	c.Source.HighWaterMark = p.whole("source.high_water_mark", fc.Source.HighWaterMark)
	c.Source.RateLimit = p.whole("source.rate_limit", fc.Source.RateLimit)
	c.Sink.InitialSize = p.whole("sink.initial_size", fc.Sink.InitialSize)
	c.Sink.IncrementAmount = p.whole("sink.increment_amount", fc.Sink.IncrementAmount)
	c.Sink.Limit = p.whole("sink.limit", fc.Sink.Limit)
	if p.err != nil {
		return nil, fmt.Errorf("streamconfig: %w", p.err)
	}

	if fc.LogLevel != "" {
		level, err := streamlog.ParseLevel(fc.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("streamconfig: log_level: %w", err)
		}
		c.LogLevel = fc.LogLevel
		c.level = level
	}
	return c, nil
}

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("streamconfig: %w", err)
	}
	return Parse(data)
}

// parser keeps the first validation error.
type parser struct {
	err error
}

func (p *parser) whole(option string, n number) int {
	if p.err != nil || n.node == nil {
		return 0
	}
	v, err := wholeNumber(option, n.node)
	if err != nil {
		p.err = err
	}
	return v
}

func wholeNumber(option string, node *yaml.Node) (int, error) {
	invalid := func() error {
		var v interface{}
		if err := node.Decode(&v); err != nil {
			v = node.Value
		}
		return &streambuffer.OptionError{Option: option, Value: v}
	}

	if node.Kind != yaml.ScalarNode {
		return 0, invalid()
	}
	switch node.ShortTag() {
	case "!!int":
		var i int64
		if err := node.Decode(&i); err != nil || i < 0 || i > math.MaxInt32 {
			return 0, invalid()
		}
		return int(i), nil
	case "!!float":
		var f float64
		if err := node.Decode(&f); err != nil || f < 0 || f > math.MaxInt32 || f != math.Trunc(f) {
			return 0, invalid()
		}
		return int(f), nil
	}
	return 0, invalid()
}

// Level returns the configured log level.
func (c *Config) Level() xlog.Level {
	return c.level
}

func (c *Config) SourceOptions() []streambuffer.SourceOption {
	s := c.Source
	return []streambuffer.SourceOption{
		streambuffer.WithFrequency(s.Frequency),
		streambuffer.WithChunkSize(s.ChunkSize),
		streambuffer.WithInitialSize(s.InitialSize),
		streambuffer.WithIncrementAmount(s.IncrementAmount),
		streambuffer.WithHighWaterMark(s.HighWaterMark),
		streambuffer.WithRateLimit(s.RateLimit),
	}
}

func (c *Config) SinkOptions() []streambuffer.SinkOption {
	s := c.Sink
	return []streambuffer.SinkOption{
		streambuffer.WithInitialSize(s.InitialSize),
		streambuffer.WithIncrementAmount(s.IncrementAmount),
		streambuffer.WithLimit(s.Limit),
	}
}
