package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sceneguard/pkg/cache"
	"github.com/matzehuels/sceneguard/pkg/pipeline"
	"github.com/matzehuels/sceneguard/pkg/posmap"
	"github.com/matzehuels/sceneguard/pkg/render"
	"github.com/matzehuels/sceneguard/pkg/render/conflictgraph"
	"github.com/matzehuels/sceneguard/pkg/render/snapshot"
)

// renderOpts holds the flags of the render command.
type renderOpts struct {
	output   string
	runID    string
	scene    string
	at       float64 // seconds from scene start; < 0 picks the midpoint
	formats  []string
	graph    bool
	detailed bool
	regions  bool
	scale    float64
	flags    runnerFlags
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{at: -1}
	var formats string

	cmd := &cobra.Command{
		Use:   "render [plan.yaml]",
		Short: "Draw a scene at one instant, or its conflict graph",
		Long: `Draw a laid-out scene.

By default render draws the frame at one instant: canvas, safe area, the
boxes of every element on screen and any overlap that remains. --time is
measured from the start of the scene and defaults to its midpoint.

With --graph, render draws the scene's conflict graph instead: one node per
element and one edge per pair that collides at some sampled instant.

The plan is laid out first (cached results are reused); --run renders a
recorded run instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formats)
			for _, f := range opts.formats {
				if err := render.ValidateFormat(f); err != nil {
					return err
				}
			}
			var input string
			if len(args) > 0 {
				input = args[0]
			}
			return c.runRender(cmd.Context(), input, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output base path (default: <plan>.<scene>)")
	cmd.Flags().StringVar(&opts.runID, "run", "", "render a recorded run instead of a plan")
	cmd.Flags().StringVarP(&opts.scene, "scene", "s", "", "output scene ID (default: first scene)")
	cmd.Flags().Float64VarP(&opts.at, "time", "t", -1, "seconds from scene start")
	cmd.Flags().StringVarP(&formats, "format", "f", render.FormatSVG, "output formats, comma separated: svg, png, pdf")
	cmd.Flags().BoolVar(&opts.graph, "graph", false, "draw the conflict graph")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "add kind, region and window to graph nodes")
	cmd.Flags().BoolVar(&opts.regions, "regions", false, "outline placement regions")
	cmd.Flags().Float64Var(&opts.scale, "scale", 0, "pixels per scene unit (svg) or zoom factor (png)")
	cmd.Flags().BoolVar(&opts.flags.noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, input string, opts renderOpts) error {
	res, err := c.loadResult(ctx, input, opts.runID, runnerFlags{noCache: opts.flags.noCache, noStore: true})
	if err != nil {
		return err
	}
	sr, err := pickScene(res, opts.scene)
	if err != nil {
		return err
	}
	pm, err := sr.Map(posmap.Options{})
	if err != nil {
		return fmt.Errorf("restore scene %s: %w", sr.ID, err)
	}

	at := opts.at
	if at < 0 {
		at = (sr.End - sr.Start) / 2
	}

	artifacts := c.artifactCache(opts.flags.noCache)
	defer artifacts.Close()
	svg, err := renderArtifact(ctx, artifacts, sr, pm, at, opts)
	if err != nil {
		return err
	}

	base := opts.output
	if base == "" {
		base = defaultRenderBase(input, opts.runID, sr.ID, at, opts.graph)
	}
	for _, format := range opts.formats {
		data, err := render.Convert(svg, format, pngScale(opts.scale))
		if err != nil {
			return fmt.Errorf("convert to %s: %w", format, err)
		}
		path := base + "." + format
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}

	if opts.graph {
		printSuccess("Rendered conflict graph of %s", sr.ID)
	} else {
		printSuccess("Rendered %s at t=%.2fs", sr.ID, at)
		if n := len(pm.CollisionsAt(sr.Start + at)); n > 0 {
			printWarning("%d overlaps on screen", n)
		}
	}
	return nil
}

// renderArtifact returns the scene's SVG, reading and filling the artifact
// cache. Keys cover the scene's placements, so a changed layout never hits a
// stale drawing.
func renderArtifact(ctx context.Context, c cache.Cache, sr *pipeline.SceneResult, pm *posmap.PositionMap, at float64, opts renderOpts) ([]byte, error) {
	snap, err := json.Marshal(sr.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("encode scene: %w", err)
	}
	kind := "snapshot"
	if opts.graph {
		kind = "conflictgraph"
	}
	key := cache.NewDefaultKeyer().ArtifactKey(cache.Hash(snap), cache.ArtifactKeyOpts{
		Format: fmt.Sprintf("%s:svg:detailed=%t:regions=%t:scale=%g", kind, opts.detailed, opts.regions, opts.scale),
		Scene:  sr.ID,
		Time:   at,
	})
	if data, ok, err := c.Get(ctx, key); err == nil && ok {
		return data, nil
	}

	var svg []byte
	if opts.graph {
		dot := conflictgraph.ToDOT(pm, conflictgraph.Options{Detailed: opts.detailed, Dependencies: true})
		if svg, err = conflictgraph.RenderSVG(ctx, dot); err != nil {
			return nil, fmt.Errorf("render conflict graph: %w", err)
		}
	} else {
		sopts := []snapshot.Option{snapshot.WithTitle(sr.ID)}
		if opts.regions {
			sopts = append(sopts, snapshot.WithRegions())
		}
		if opts.scale > 0 {
			sopts = append(sopts, snapshot.WithScale(opts.scale))
		}
		svg = snapshot.RenderSVG(pm, sr.Start+at, sopts...)
	}
	_ = c.Set(ctx, key, svg, cache.TTLArtifact)
	return svg, nil
}

// pickScene returns the named output scene, or the first one.
func pickScene(res *pipeline.Result, id string) (*pipeline.SceneResult, error) {
	if len(res.Scenes) == 0 {
		return nil, fmt.Errorf("result has no scenes")
	}
	if id == "" {
		return &res.Scenes[0], nil
	}
	sr, ok := res.Scene(id)
	if !ok {
		ids := make([]string, len(res.Scenes))
		for i := range res.Scenes {
			ids[i] = res.Scenes[i].ID
		}
		return nil, fmt.Errorf("unknown scene %q (have: %s)", id, strings.Join(ids, ", "))
	}
	return sr, nil
}

func defaultRenderBase(input, runID, scene string, at float64, graph bool) string {
	stem := runID
	if input != "" {
		stem = strings.TrimSuffix(input, filepath.Ext(input))
	}
	// '~' in continuation IDs is awkward in file names.
	scene = strings.ReplaceAll(scene, "~", "-")
	if graph {
		return stem + "." + scene + ".graph"
	}
	return stem + "." + scene + ".t" + strconv.FormatFloat(at, 'f', 2, 64)
}

func pngScale(scale float64) float64 {
	if scale > 0 && scale < 10 {
		return scale
	}
	return 2
}

// parseFormats splits a comma-separated format list; empty means svg.
func parseFormats(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{render.FormatSVG}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			out = append(out, f)
		}
	}
	return out
}
