package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/matzehuels/sceneguard/pkg/store"
)

// historyCommand creates the history command and its subcommands.
func (c *CLI) historyCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded layout runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				printInfo("No runs recorded")
				return nil
			}
			fmt.Println(renderTable(
				[]string{"ID", "Created", "Plan", "Scenes", "Elements", "Collisions", "Status"},
				historyRows(runs),
				[]text.Align{text.AlignLeft, text.AlignLeft, text.AlignLeft, text.AlignRight, text.AlignRight, text.AlignRight, text.AlignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to list (0 for all)")

	cmd.AddCommand(c.historyShowCommand())
	cmd.AddCommand(c.historyDeleteCommand())
	return cmd
}

func (c *CLI) historyShowCommand() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			run, err := st.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if raw {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(run)
			}
			printKeyValue("ID", run.ID)
			printKeyValue("Created", run.CreatedAt.Local().Format(time.DateTime))
			printKeyValue("Plan", run.Plan)
			printKeyValue("Plan hash", shortHash(run.PlanHash))
			printKeyValue("Status", statusLabel(run.Status))
			printKeyValue("Scenes", fmt.Sprint(run.Scenes))
			printKeyValue("Elements", fmt.Sprint(run.Elements))
			printKeyValue("Collisions", fmt.Sprint(run.Collisions))
			printKeyValue("Unresolved", fmt.Sprint(run.Unresolved))
			printKeyValue("Reflows", fmt.Sprint(run.Reflows))
			printNewline()
			printNextStep("Render a scene", "sceneguard render --run "+run.ID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "json", false, "print the stored run as JSON")
	return cmd
}

func (c *CLI) historyDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>...",
		Short: "Delete recorded runs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			for _, id := range args {
				if err := st.Delete(cmd.Context(), id); err != nil {
					return err
				}
				printSuccess("Deleted %s", id)
			}
			return nil
		},
	}
}

// openStore opens the configured run store; unlike layout commands, the
// history commands fail when no store is configured.
func (c *CLI) openStore() (store.Store, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	st, err := cfg.OpenStore()
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("run history is disabled (store backend %q)", cfg.Store.Backend)
	}
	return st, nil
}

func historyRows(runs []*store.Run) [][]string {
	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{
			r.ID,
			r.CreatedAt.Local().Format(time.DateTime),
			r.Plan,
			fmt.Sprint(r.Scenes),
			fmt.Sprint(r.Elements),
			fmt.Sprint(r.Collisions),
			statusLabel(r.Status),
		}
	}
	return rows
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
