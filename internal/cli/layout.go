package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sceneguard/pkg/pipeline"
)

// layoutCommand creates the layout command.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output      string
		flags       runnerFlags
		skipOpt     bool
		skipReflow  bool
		duration    float64
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "layout [plan.yaml]",
		Short: "Place every scene of a plan and write the result",
		Long: `Place every scene of a plan and write the result.

Each scene is graded for overflow, reflowed if needed, placed element by
element with conflict resolution, and optimized. Scenes that still collide are
escalated to a stronger reflow strategy. Overfull scenes are split into
continuation scenes named <scene>~2, <scene>~3, ...

The result JSON holds the final placements, per-scene reports, reflow history
and transition plans. Results are cached and every run is recorded in the
history unless disabled.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.pipelineOptions()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("skip-optimize") {
				opts.SkipOptimize = skipOpt
			}
			if cmd.Flags().Changed("skip-reflow") {
				opts.SkipReflow = skipReflow
			}
			if duration > 0 {
				opts.SceneDuration = duration
			}
			if concurrency > 0 {
				opts.Concurrency = concurrency
			}
			opts.Refresh = flags.refresh
			return c.runLayout(cmd.Context(), args[0], output, opts, flags)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <plan>.layout.json)")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "disable the result cache")
	cmd.Flags().BoolVar(&flags.noStore, "no-history", false, "do not record the run")
	cmd.Flags().BoolVar(&flags.refresh, "refresh", false, "recompute even when cached")
	cmd.Flags().BoolVar(&skipOpt, "skip-optimize", false, "skip the optimization pass")
	cmd.Flags().BoolVar(&skipReflow, "skip-reflow", false, "place scenes without reflow")
	cmd.Flags().Float64Var(&duration, "duration", 0, "default scene duration in seconds")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "scenes laid out in parallel (0: unlimited)")

	return cmd
}

func (c *CLI) runLayout(ctx context.Context, input, output string, opts pipeline.Options, flags runnerFlags) error {
	p, err := loadPlan(input)
	if err != nil {
		return err
	}
	runner, err := c.newRunner(flags)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	prog := newProgress(loggerFromContext(ctx))
	spin := newSpinner(ctx, fmt.Sprintf("Laying out %d scenes...", len(p.Scenes)))
	spin.start()
	res, err := runner.Execute(ctx, p, opts)
	if err != nil {
		spin.fail("Layout failed")
		return fmt.Errorf("layout %s: %w", input, err)
	}
	spin.stop()
	prog.done("laid out plan", "plan", res.Plan, "cached", res.CacheInfo.LayoutHit)

	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + ".layout.json"
	}
	if err := writeJSONFile(output, res); err != nil {
		return err
	}

	if res.Degraded() {
		printWarning("Layout complete with unresolved conflicts")
	} else {
		printSuccess("Layout complete")
	}
	printFile(output)
	printStats(res.Stats, res.CacheInfo.LayoutHit)
	printNewline()
	printScenes(res)
	if res.RunID != "" {
		printDetail("run %s", res.RunID)
	}
	printNewline()
	printNextStep("Render", fmt.Sprintf("%s render %s --scene %s", appName, input, res.Scenes[0].ID))
	return nil
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
