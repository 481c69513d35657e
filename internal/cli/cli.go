// Package cli implements the sceneguard command-line interface.
//
// Every command that lays out a plan goes through one [pipeline.Runner]
// built from the loaded configuration, so the CLI, the HTTP server and
// library callers share the cache, the run store and the tunables.
//
// # Commands
//
//   - layout: place every scene of a plan and write the result JSON
//   - check: grade scenes for overflow without placing anything
//   - render: draw a scene at one instant, or its conflict graph
//   - export: write renderer-facing positions (JSON or a Manim module)
//   - inspect: scrub through a laid-out plan in the terminal
//   - serve: run the HTTP API
//   - history: list and show recorded runs
//   - cache, config, completion: housekeeping
//
// All commands accept --config and --verbose (-v).
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sceneguard/pkg/cache"
	"github.com/matzehuels/sceneguard/pkg/config"
	"github.com/matzehuels/sceneguard/pkg/pipeline"
	"github.com/matzehuels/sceneguard/pkg/plan"
	"github.com/matzehuels/sceneguard/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

const appName = "sceneguard"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	verbose    bool
	cfg        *config.Config
}

// New creates a CLI logging to w at level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// config loads the configuration once per process. An explicit --config
// must exist; the default location may be absent.
func (c *CLI) config() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// runnerFlags are the storage switches shared by commands that run layouts.
type runnerFlags struct {
	noCache bool
	noStore bool
	refresh bool
}

// newRunner builds a pipeline runner from the configuration. Backends that
// fail to open are logged and replaced by no-ops: a layout does not need a
// cache or a history to succeed.
func (c *CLI) newRunner(f runnerFlags) (*pipeline.Runner, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}

	var rc cache.Cache = cache.NewNullCache()
	if !f.noCache {
		if opened, err := cfg.OpenCache(); err != nil {
			c.Logger.Warn("cache disabled", "err", err)
		} else {
			rc = opened
		}
	}

	var st store.Store
	if !f.noStore {
		if opened, err := cfg.OpenStore(); err != nil {
			c.Logger.Warn("run history disabled", "err", err)
		} else {
			st = opened
		}
	}

	return pipeline.NewRunner(rc, nil, st, c.Logger), nil
}

// pipelineOptions converts the configuration into pipeline options.
func (c *CLI) pipelineOptions() (pipeline.Options, error) {
	cfg, err := c.config()
	if err != nil {
		return pipeline.Options{}, err
	}
	opts := pipeline.OptionsFromConfig(cfg)
	opts.Logger = c.Logger
	return opts, nil
}

// =============================================================================
// Inputs
// =============================================================================

// loadResult lays out the plan at path, or loads a recorded run when runID
// is set. Cached layouts make repeated render and export calls cheap.
func (c *CLI) loadResult(ctx context.Context, path, runID string, f runnerFlags) (*pipeline.Result, error) {
	if path == "" && runID == "" {
		return nil, fmt.Errorf("either a plan file or --run is required")
	}
	runner, err := c.newRunner(f)
	if err != nil {
		return nil, err
	}
	defer runner.Close()

	if runID != "" {
		return runner.LoadRun(ctx, runID)
	}

	p, err := loadPlan(path)
	if err != nil {
		return nil, err
	}
	opts, err := c.pipelineOptions()
	if err != nil {
		return nil, err
	}
	opts.Refresh = f.refresh
	return runner.Execute(ctx, p, opts)
}

func loadPlan(path string) (*plan.Plan, error) {
	p, err := plan.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load plan %s: %w", path, err)
	}
	return p, nil
}

// artifactCache opens the configured cache for rendered artifacts. Failures
// degrade to a null cache.
func (c *CLI) artifactCache(disabled bool) cache.Cache {
	if disabled {
		return cache.NewNullCache()
	}
	cfg, err := c.config()
	if err != nil {
		return cache.NewNullCache()
	}
	opened, err := cfg.OpenCache()
	if err != nil {
		c.Logger.Debug("artifact cache disabled", "err", err)
		return cache.NewNullCache()
	}
	return opened
}
