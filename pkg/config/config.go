package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	Prod = "prod"
	Dev  = "dev"
	Test = "test"
)

const (
	OverflowSaturate = "saturate"
	OverflowFail     = "fail"
)

const (
	DefaultEpsilon     = 0.0001
	DefaultDelta       = 0.9999
	DefaultHash        = "xxh3"
	DefaultMaxCounters = 1 << 28
)

// RecommendedDecayRatio is a per-call ratio suited to long streams. Decay is off by default.
const RecommendedDecayRatio = 0.002

var ErrInvalidConfig = errors.New("invalid configuration")

type Cms struct {
	Cms Box `yaml:"cms" toml:"cms"`
}

func (c *Cms) IsProd() bool {
	return c.Cms.Env == Prod
}

func (c *Cms) IsDev() bool {
	return c.Cms.Env == Dev
}

func (c *Cms) IsTest() bool {
	return c.Cms.Env == Test
}

type Box struct {
	Env      string   `yaml:"env" toml:"env"`
	Logs     Logs     `yaml:"logs" toml:"logs"`
	Sketch   Sketch   `yaml:"sketch" toml:"sketch"`
	Registry Registry `yaml:"registry" toml:"registry"`
	Server   Server   `yaml:"server" toml:"server"`
}

type Logs struct {
	Level      string `yaml:"level" toml:"level"`               // zerolog level name: debug, info, warn, error
	Stats      bool   `yaml:"stats" toml:"stats"`               // periodic stats lines from the server
	File       string `yaml:"file" toml:"file"`                 // rolled log file, stderr when empty
	MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb"`   // size which triggers a roll
	MaxBackups int    `yaml:"max_backups" toml:"max_backups"`   // rolled files to keep
	MaxAgeDays int    `yaml:"max_age_days" toml:"max_age_days"` // days to keep rolled files
}

type Sketch struct {
	Epsilon     float64 `yaml:"epsilon" toml:"epsilon"`           // width = ceil(2/epsilon)
	Delta       float64 `yaml:"delta" toml:"delta"`               // depth = ceil(ln(1-delta)/ln(0.5))
	DecayRatio  float64 `yaml:"decay_ratio" toml:"decay_ratio"`   // 0 disables decay, otherwise weight = exp(-decay_ratio)
	Hash        string  `yaml:"hash" toml:"hash"`                 // xxh3, xxhash, metro or fnv1
	Seed        uint64  `yaml:"seed" toml:"seed"`                 // initial value passed to the hash function
	Overflow    string  `yaml:"overflow" toml:"overflow"`         // saturate or fail
	MaxCounters int     `yaml:"max_counters" toml:"max_counters"` // ceiling for depth*width
}

type Registry struct {
	MemLimit          int64   `yaml:"mem_limit" toml:"mem_limit"`                   // bytes of counters over all sketches, 0 means unbounded
	EvictionThreshold float64 `yaml:"eviction_threshold" toml:"eviction_threshold"` // share of mem_limit above which idle sketches are evicted
}

type Server struct {
	Addr         string        `yaml:"addr" toml:"addr"`
	Name         string        `yaml:"name" toml:"name"`
	ReadTimeout  time.Duration `yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" toml:"write_timeout"`
	RateLimit    float64       `yaml:"rate_limit" toml:"rate_limit"` // requests per second, 0 disables limiting
	RateBurst    int           `yaml:"rate_burst" toml:"rate_burst"`
}

// Default returns a config filled with the defaults used when no file is given.
func Default() *Cms {
	return &Cms{
		Cms: Box{
			Env:  Dev,
			Logs: Logs{
				Level:      "info",
				MaxSizeMB:  100,
				MaxBackups: 3,
				MaxAgeDays: 28,
			},
			Sketch: Sketch{
				Epsilon:     DefaultEpsilon,
				Delta:       DefaultDelta,
				Hash:        DefaultHash,
				Overflow:    OverflowSaturate,
				MaxCounters: DefaultMaxCounters,
			},
			Registry: Registry{
				EvictionThreshold: 1,
			},
			Server: Server{
				Addr:         ":8020",
				Name:         "count-min-sketch",
				ReadTimeout:  5 * time.Second,
				WriteTimeout: 5 * time.Second,
				RateBurst:    1,
			},
		},
	}
}

// Validate checks values which can be rejected without building a sketch.
func (c *Cms) Validate() error {
	switch c.Cms.Env {
	case Prod, Dev, Test:
	default:
		return fmt.Errorf("%w: env must be one of prod, dev, test, got %q", ErrInvalidConfig, c.Cms.Env)
	}
	if err := c.Cms.Sketch.Validate(); err != nil {
		return err
	}
	if err := c.Cms.Registry.Validate(); err != nil {
		return err
	}
	if c.Cms.Server.RateLimit < 0 || c.Cms.Server.RateBurst < 0 {
		return fmt.Errorf("%w: server.rate_limit and server.rate_burst cannot be negative", ErrInvalidConfig)
	}
	return nil
}

func (s *Sketch) Validate() error {
	if !(s.Epsilon > 0) {
		return fmt.Errorf("%w: sketch.epsilon must be > 0, got %v", ErrInvalidConfig, s.Epsilon)
	}
	if !(s.Delta > 0) || s.Delta >= 1 {
		return fmt.Errorf("%w: sketch.delta must be in (0, 1), got %v", ErrInvalidConfig, s.Delta)
	}
	if math.IsNaN(s.DecayRatio) || math.IsInf(s.DecayRatio, 0) || s.DecayRatio < 0 {
		return fmt.Errorf("%w: sketch.decay_ratio must be a finite value >= 0, got %v", ErrInvalidConfig, s.DecayRatio)
	}
	switch s.Overflow {
	case OverflowSaturate, OverflowFail:
	default:
		return fmt.Errorf("%w: sketch.overflow must be %s or %s, got %q", ErrInvalidConfig, OverflowSaturate, OverflowFail, s.Overflow)
	}
	if s.MaxCounters < 0 {
		return fmt.Errorf("%w: sketch.max_counters cannot be negative", ErrInvalidConfig)
	}
	return nil
}

func (r *Registry) Validate() error {
	if r.MemLimit < 0 {
		return fmt.Errorf("%w: registry.mem_limit cannot be negative", ErrInvalidConfig)
	}
	if !(r.EvictionThreshold > 0) || r.EvictionThreshold > 1 {
		return fmt.Errorf("%w: registry.eviction_threshold must be in (0, 1], got %v", ErrInvalidConfig, r.EvictionThreshold)
	}
	return nil
}

// LoadConfig reads YAML (or TOML for a .toml path) on top of Default() and validates the result.
func LoadConfig(path string) (*Cms, error) {
	path, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute config filepath: %w", err)
	}

	if _, err = os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err = toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal toml from %s: %w", path, err)
		}
	} else if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml from %s: %w", path, err)
	}

	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}

	return cfg, nil
}
