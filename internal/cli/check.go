package cli

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/matzehuels/sceneguard/pkg/pipeline"
)

// checkCommand creates the check command.
func (c *CLI) checkCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check [plan.yaml]",
		Short: "Grade each scene of a plan for overflow",
		Long: `Grade each scene of a plan for overflow without placing anything.

For every scene, check reports the elements that leave the safe area, the
pairs that collide while both are on screen, the crowded regions, the overall
severity and the reflow strategy a layout run would try first.

With --strict, any overflow or skipped element makes the command fail, which
suits CI checks of generated plans.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadPlan(args[0])
			if err != nil {
				return err
			}
			opts, err := c.pipelineOptions()
			if err != nil {
				return err
			}
			res, err := pipeline.Check(cmd.Context(), p, opts)
			if err != nil {
				return err
			}
			printCheck(res)
			if res.Clean() {
				printSuccess("No overflow in %d scenes", len(res.Scenes))
				return nil
			}
			if strict {
				return fmt.Errorf("plan %s needs reflow", res.Plan)
			}
			printWarning("Some scenes need reflow; layout will remediate them")
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when any scene overflows")
	return cmd
}

func printCheck(res *pipeline.CheckResult) {
	rows := make([][]string, 0, len(res.Scenes))
	for _, s := range res.Scenes {
		rows = append(rows, []string{
			s.ID,
			fmt.Sprint(s.Elements),
			fmt.Sprint(len(s.Overflow.OutOfBounds)),
			fmt.Sprint(len(s.Overflow.Collisions)),
			fmt.Sprint(len(s.Overflow.CrowdedRegions)),
			severityLabel(s.Overflow.Severity),
			s.Strategy,
		})
	}
	fmt.Println(renderTable(
		[]string{"Scene", "Elements", "Outside", "Collisions", "Crowded", "Severity", "Strategy"},
		rows,
		[]text.Align{text.AlignLeft, text.AlignRight, text.AlignRight, text.AlignRight, text.AlignRight},
	))
	for _, s := range res.Scenes {
		if len(s.Skipped) > 0 {
			printWarning("%s: skipped %s", s.ID, strings.Join(s.Skipped, ", "))
		}
	}
}
