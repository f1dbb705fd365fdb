package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"dxf-normalizer/internal/normalizer/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded normalization runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		repo, closeDB, err := openHistory(cmd.Context())
		if err != nil {
			return err
		}
		defer closeDB()

		runs, err := repo.List(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			cmd.Println("No runs recorded.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tINPUT\tSOURCE\tCIRCLES\tLOOPS\tPOLYLINES\tWARNINGS\tCREATED")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
				r.ID, r.InputName, r.Source, r.Circles, r.Loops, r.Polylines, r.Warnings,
				r.CreatedAt)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to show, -1 for all")
	rootCmd.AddCommand(historyCmd)
}

// openHistory opens and migrates the run database named by the config.
func openHistory(ctx context.Context) (*history.Repository, func(), error) {
	db, err := history.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	repo := history.New(db)
	if err := repo.Init(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("init db: %w", err)
	}
	return repo, func() { db.Close() }, nil
}
