package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/zonemap/internal/model"
	"github.com/sells-group/zonemap/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded assignment runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent assignment runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("store"); err != nil {
			return err
		}
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		policy, _ := cmd.Flags().GetString("policy")

		runs, err := st.ListRuns(ctx, store.RunFilter{Policy: policy, Limit: limit})
		if err != nil {
			return eris.Wrap(err, "runs: list")
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs found.") //nolint:errcheck
			return nil
		}
		formatRunsList(cmd.OutOrStdout(), runs)
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show a run with its per-parcel rows as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("store"); err != nil {
			return err
		}
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "runs: show %s", args[0])
		}
		return writeRunJSON(cmd.OutOrStdout(), run)
	},
}

func init() {
	runsListCmd.Flags().Int("limit", 20, "maximum number of runs to show")
	runsListCmd.Flags().String("policy", "", "only show runs with this policy")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes run headers as an aligned table.
func formatRunsList(w io.Writer, runs []model.AssignmentRun) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPOLICY\tPARCELS\tMATCHED\tRATE\tCREATED\tSOURCES") //nolint:errcheck
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.1f%%\t%s\t%s -> %s\n", //nolint:errcheck
			truncateID(r.ID),
			r.Policy,
			r.ParcelCount,
			r.MatchedCount,
			r.MatchRate()*100,
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.ParcelsSource,
			r.ZoningSource,
		)
	}
	tw.Flush() //nolint:errcheck
}

func writeRunJSON(w io.Writer, run *model.AssignmentRun) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(run); err != nil {
		return eris.Wrap(err, "runs: encode run")
	}
	return nil
}

// truncateID shortens a UUID for table display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
