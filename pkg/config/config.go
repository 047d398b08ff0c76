// Package config loads camml.toml, the file that holds search settings,
// expert priors and backend addresses shared by the CLI and the API server.
//
// A minimal file:
//
//	[search]
//	seed = 7
//	chains = 4
//	anneal_epochs = 2000
//
//	[prior]
//	tiers = [[0, 1], [2, 3, 4]]
//	forbidden = [[4, 0]]
//
//	[learner]
//	kind = "wallace"
//
// Keys that are absent keep their defaults. Unknown keys are an error so that
// typos do not silently fall back to defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/camml/pkg/cache"
	"github.com/matzehuels/camml/pkg/errors"
	"github.com/matzehuels/camml/pkg/learner"
	"github.com/matzehuels/camml/pkg/search"
	"github.com/matzehuels/camml/pkg/store"
	"github.com/matzehuels/camml/pkg/tom"
)

// =============================================================================
// Backend Names
// =============================================================================

const (
	CacheNone  = "none"
	CacheFile  = "file"
	CacheRedis = "redis"

	StoreNone   = "none"
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreMongo  = "mongo"
)

// DefaultAddr is the API server listen address.
const DefaultAddr = ":8080"

// =============================================================================
// Config
// =============================================================================

// Config is the decoded configuration file.
type Config struct {
	Search  search.Options `toml:"search"`
	Policy  search.Policy  `toml:"policy"`
	Prior   search.Prior   `toml:"prior"`
	Learner LearnerConfig  `toml:"learner"`
	Cache   CacheConfig    `toml:"cache"`
	Store   StoreConfig    `toml:"store"`
	Server  ServerConfig   `toml:"server"`
}

// LearnerConfig selects the local-model learner.
type LearnerConfig struct {
	Kind            string `toml:"kind"` // "dual", "cpt" or "wallace"
	MaxCombinations int    `toml:"max_combinations"`
}

// CacheConfig selects the result cache backend.
type CacheConfig struct {
	Backend string            `toml:"backend"`
	Dir     string            `toml:"dir"` // file backend; empty uses the XDG cache dir
	TTL     Duration          `toml:"ttl"`
	Prefix  string            `toml:"prefix"` // namespaces keys on a shared Redis server
	Redis   cache.RedisConfig `toml:"redis"`
}

// StoreConfig selects where finished runs are kept.
type StoreConfig struct {
	Backend string            `toml:"backend"`
	Dir     string            `toml:"dir"`
	Mongo   store.MongoConfig `toml:"mongo"`
}

// ServerConfig configures `camml serve`.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Duration decodes TOML strings such as "72h".
type Duration struct{ time.Duration }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Search:  search.DefaultOptions(),
		Policy:  search.DefaultPolicy(),
		Learner: LearnerConfig{Kind: "dual", MaxCombinations: learner.DefaultMaxCombinations},
		Cache:   CacheConfig{Backend: CacheFile, TTL: Duration{cache.TTLResult}},
		Store:   StoreConfig{Backend: StoreFile},
		Server:  ServerConfig{Addr: DefaultAddr},
	}
}

// Load reads path on top of the defaults. An empty path returns Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(string(data))
}

// Parse decodes TOML text on top of the defaults and validates the result.
func Parse(text string) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(text, cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown config keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SearchOptions returns the search options with the top-level [policy] and
// [prior] tables applied.
func (c *Config) SearchOptions() search.Options {
	o := c.Search
	o.Policy = c.Policy
	o.Prior = c.Prior
	return o
}

// NewLearner builds the configured learner.
func (c *Config) NewLearner() (tom.ModelLearner, error) {
	return learner.New(c.Learner.Kind, c.Learner.MaxCombinations)
}

// Validate checks everything that does not depend on the dataset. The
// prior is checked against the variable count when a search starts.
func (c *Config) Validate() error {
	if _, err := c.NewLearner(); err != nil {
		return err
	}
	if c.Learner.MaxCombinations < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "learner.max_combinations must not be negative")
	}
	if err := c.Policy.Validate(); err != nil {
		return err
	}
	o := c.SearchOptions()
	o.Prior = search.Prior{}
	if err := o.Validate(0); err != nil {
		return err
	}

	switch c.Cache.Backend {
	case CacheNone, CacheFile:
	case CacheRedis:
		if c.Cache.Redis.Addr == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache.redis.addr is required for the redis backend")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q (must be one of: none, file, redis)", c.Cache.Backend)
	}
	if c.Cache.TTL.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.ttl must not be negative")
	}

	switch c.Store.Backend {
	case StoreNone, StoreMemory, StoreFile:
	case StoreMongo:
		if c.Store.Mongo.URI == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "store.mongo.uri is required for the mongo backend")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown store backend %q (must be one of: none, memory, file, mongo)", c.Store.Backend)
	}
	return nil
}
