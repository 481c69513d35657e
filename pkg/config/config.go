// Package config loads sceneguard settings from TOML.
//
// Every tunable of the layout engine lives here so a job can be reproduced
// from its config file alone. Missing keys keep their defaults:
//
//	[frame]
//	width = 14.0
//	height = 8.0
//	margin = 0.06
//
//	[layout]
//	tolerance = 0.1
//	max_iterations = 10
//
//	[reflow]
//	scale_factor = 0.85
//
//	[pipeline]
//	scene_duration = 10.0
//	max_escalations = 2
//
//	[cache]
//	backend = "file"
//
//	[store]
//	backend = "sqlite"
package config

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/sceneguard/pkg/cache"
	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/frame"
	"github.com/matzehuels/sceneguard/pkg/posmap"
	"github.com/matzehuels/sceneguard/pkg/reflow"
	"github.com/matzehuels/sceneguard/pkg/store"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	appName = "sceneguard"

	DefaultSceneDuration  = 10.0
	DefaultMaxEscalations = 2
	DefaultCacheBackend   = BackendFile
	DefaultStoreBackend   = BackendSQLite
	DefaultCachePrefix    = "sceneguard:"

	mongoOpenTimeout = 15 * time.Second
)

// Backend names.
const (
	BackendNone   = "none"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// =============================================================================
// Types
// =============================================================================

// Config is the full settings tree.
type Config struct {
	Frame    frame.Config   `toml:"frame"`
	Layout   posmap.Options `toml:"layout"`
	Reflow   reflow.Options `toml:"reflow"`
	Pipeline Pipeline       `toml:"pipeline"`
	Cache    Cache          `toml:"cache"`
	Store    Store          `toml:"store"`
}

// Pipeline holds multi-scene orchestration settings.
type Pipeline struct {
	// SceneDuration is used for scenes that do not declare one.
	SceneDuration float64 `toml:"scene_duration"`

	// MaxEscalations bounds the extra reflow rounds for a scene that is still
	// degraded after optimization.
	MaxEscalations int `toml:"max_escalations"`

	// Concurrency caps scenes processed at once; 0 means GOMAXPROCS.
	Concurrency int `toml:"concurrency"`

	SkipOptimize bool `toml:"skip_optimize"`
	SkipReflow   bool `toml:"skip_reflow"`
}

// Cache selects the result cache backend.
type Cache struct {
	Backend  string `toml:"backend"`
	Dir      string `toml:"dir,omitempty"`
	RedisURL string `toml:"redis_url,omitempty"`
	Prefix   string `toml:"prefix,omitempty"`
}

// Store selects where run history is kept.
type Store struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path,omitempty"`

	// MongoURI and Database configure the mongo backend.
	MongoURI string `toml:"mongo_uri,omitempty"`
	Database string `toml:"database,omitempty"`
}

// =============================================================================
// Loading
// =============================================================================

// Default returns the stock configuration.
func Default() *Config {
	c := &Config{Frame: frame.DefaultConfig()}
	c.SetDefaults()
	return c
}

// DefaultPath returns ~/.config/sceneguard/config.toml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get config dir: %w", err)
	}
	return filepath.Join(dir, appName, "config.toml"), nil
}

// Load reads the config at path. An empty path loads the default location,
// and a missing default file yields [Default]. Unknown keys are rejected so
// typos do not silently fall back to defaults.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := Parse(string(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s", path)
	}
	return c, nil
}

// Parse decodes TOML text, applies defaults and validates the result.
func Parse(text string) (*Config, error) {
	c := &Config{Frame: frame.DefaultConfig()}
	md, err := toml.Decode(text, c)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode toml")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := rejectExplicitZeros(md, c); err != nil {
		return nil, err
	}
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// rejectExplicitZeros fails on tuning keys written as 0. SetDefaults reads
// zero as unset, so such a key would silently take its default.
func rejectExplicitZeros(md toml.MetaData, c *Config) error {
	l, r, p := c.Layout, c.Reflow, c.Pipeline
	zeros := []struct {
		key  []string
		zero bool
	}{
		{[]string{"layout", "tolerance"}, l.Tolerance == 0},
		{[]string{"layout", "max_iterations"}, l.MaxIterations == 0},
		{[]string{"layout", "critical_area"}, l.CriticalArea == 0},
		{[]string{"layout", "penalty_scale"}, l.PenaltyScale == 0},
		{[]string{"layout", "fit_fill"}, l.FitFill == 0},
		{[]string{"layout", "ramp"}, l.Ramp == 0},
		{[]string{"layout", "grid_rows"}, l.GridRows == 0},
		{[]string{"layout", "grid_cols"}, l.GridCols == 0},
		{[]string{"reflow", "buffer"}, r.Buffer == 0},
		{[]string{"reflow", "crowded_threshold"}, r.CrowdedThreshold == 0},
		{[]string{"reflow", "redistribute_threshold"}, r.RedistributeThreshold == 0},
		{[]string{"reflow", "scale_factor"}, r.ScaleFactor == 0},
		{[]string{"reflow", "priority_threshold"}, r.PriorityThreshold == 0},
		{[]string{"reflow", "min_font_size"}, r.MinFontSize == 0},
		{[]string{"reflow", "stack_min_font_size"}, r.StackMinFontSize == 0},
		{[]string{"reflow", "stack_fill"}, r.StackFill == 0},
		{[]string{"reflow", "max_per_region"}, r.MaxPerRegion == 0},
		{[]string{"reflow", "fit_fill"}, r.FitFill == 0},
		{[]string{"pipeline", "scene_duration"}, p.SceneDuration == 0},
		{[]string{"pipeline", "max_escalations"}, p.MaxEscalations == 0},
	}
	for _, z := range zeros {
		if z.zero && md.IsDefined(z.key...) {
			return errors.New(errors.ErrCodeInvalidConfig,
				"%s = 0 is not allowed; remove the key to use the default", strings.Join(z.key, "."))
		}
	}
	return nil
}

// SetDefaults fills zero fields with defaults.
func (c *Config) SetDefaults() {
	c.Layout.SetDefaults()
	c.Reflow.SetDefaults()
	if c.Pipeline.SceneDuration == 0 {
		c.Pipeline.SceneDuration = DefaultSceneDuration
	}
	if c.Pipeline.MaxEscalations == 0 {
		c.Pipeline.MaxEscalations = DefaultMaxEscalations
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = DefaultCacheBackend
	}
	if c.Cache.Prefix == "" {
		c.Cache.Prefix = DefaultCachePrefix
	}
	if c.Store.Backend == "" {
		c.Store.Backend = DefaultStoreBackend
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Frame.Validate(); err != nil {
		return err
	}
	if err := c.Layout.Validate(); err != nil {
		return err
	}
	if err := c.Reflow.Validate(); err != nil {
		return err
	}
	if !(c.Pipeline.SceneDuration > 0) {
		return errors.New(errors.ErrCodeInvalidConfig, "scene_duration must be > 0, got %g", c.Pipeline.SceneDuration)
	}
	if c.Pipeline.MaxEscalations < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "max_escalations must be >= 0, got %d", c.Pipeline.MaxEscalations)
	}
	if c.Pipeline.Concurrency < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "concurrency must be >= 0, got %d", c.Pipeline.Concurrency)
	}
	switch c.Cache.Backend {
	case BackendNone, BackendFile:
	case BackendRedis:
		if c.Cache.RedisURL == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache backend redis needs redis_url")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}
	switch c.Store.Backend {
	case BackendNone, BackendFile, BackendSQLite:
	case BackendMongo:
		if c.Store.MongoURI == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "store backend mongo needs mongo_uri")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown store backend %q", c.Store.Backend)
	}
	return nil
}

// Write encodes c as TOML.
func (c *Config) Write(w io.Writer) error {
	enc := toml.NewEncoder(w)
	enc.Indent = ""
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

// =============================================================================
// Backends
// =============================================================================

// SafeFrame builds the configured frame.
func (c *Config) SafeFrame() (*frame.SafeFrame, error) {
	return frame.New(c.Frame)
}

// CacheDir returns the file cache directory, defaulting to the user cache
// directory.
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("get cache dir: %w", err)
	}
	return filepath.Join(dir, appName), nil
}

// OpenCache opens the configured result cache.
func (c *Config) OpenCache() (cache.Cache, error) {
	switch c.Cache.Backend {
	case BackendNone:
		return cache.NewNullCache(), nil
	case BackendRedis:
		return cache.NewRedisCache(c.Cache.RedisURL, c.Cache.Prefix)
	default:
		dir, err := c.CacheDir()
		if err != nil {
			return nil, err
		}
		return cache.NewFileCache(dir)
	}
}

// StorePath returns the run store location: a directory for the file
// backend, a database file for sqlite.
func (c *Config) StorePath() (string, error) {
	if c.Store.Path != "" {
		return c.Store.Path, nil
	}
	base, err := dataDir()
	if err != nil {
		return "", err
	}
	if c.Store.Backend == BackendSQLite {
		return filepath.Join(base, "runs.db"), nil
	}
	return filepath.Join(base, "runs"), nil
}

// OpenStore opens the configured run store. The none backend returns a nil
// store, which the pipeline treats as "do not record".
func (c *Config) OpenStore() (store.Store, error) {
	switch c.Store.Backend {
	case BackendNone:
		return nil, nil
	case BackendMongo:
		ctx, cancel := context.WithTimeout(context.Background(), mongoOpenTimeout)
		defer cancel()
		return store.OpenMongo(ctx, c.Store.MongoURI, c.Store.Database)
	}
	path, err := c.StorePath()
	if err != nil {
		return nil, err
	}
	if c.Store.Backend == BackendSQLite {
		return store.OpenSQLite(path)
	}
	return store.NewFileStore(path)
}

// dataDir follows XDG_DATA_HOME on Unix and the config directory elsewhere.
func dataDir() (string, error) {
	if runtime.GOOS != "windows" && runtime.GOOS != "darwin" {
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home dir: %w", err)
		}
		return filepath.Join(home, ".local", "share", appName), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get config dir: %w", err)
	}
	return filepath.Join(dir, appName), nil
}
