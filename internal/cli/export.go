package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sceneguard/pkg/export"
)

// exportCommand creates the export command.
func (c *CLI) exportCommand() *cobra.Command {
	var (
		output string
		format string
		runID  string
		flags  runnerFlags
	)

	cmd := &cobra.Command{
		Use:   "export [plan.yaml]",
		Short: "Write element positions for a renderer",
		Long: `Write the final element positions of a laid-out plan.

  json   every element's center, size and window, per scene
  manim  a Python module with ELEMENT_POSITIONS, SCENES and a
         safe_position helper that clips points into the safe area

Times are relative to the start of each scene.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var input string
			if len(args) > 0 {
				input = args[0]
			}
			flags.noStore = true
			res, err := c.loadResult(cmd.Context(), input, runID, flags)
			if err != nil {
				return err
			}
			doc, err := export.FromResult(res)
			if err != nil {
				return err
			}

			if output == "-" {
				return export.Write(os.Stdout, doc, format)
			}
			if output == "" {
				stem := runID
				if input != "" {
					stem = strings.TrimSuffix(input, filepath.Ext(input))
				}
				output = stem + exportExt(format)
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			if err := export.Write(f, doc, format); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close %s: %w", output, err)
			}
			printSuccess("Exported %d scenes", len(doc.Scenes))
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, - for stdout (default: <plan>.positions.json or _positions.py)")
	cmd.Flags().StringVarP(&format, "format", "f", export.FormatManim, "export format: manim, json")
	cmd.Flags().StringVar(&runID, "run", "", "export a recorded run instead of a plan")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "disable the result cache")
	return cmd
}

func exportExt(format string) string {
	if format == export.FormatJSON {
		return ".positions.json"
	}
	return "_positions.py"
}
