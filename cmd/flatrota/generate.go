package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/flatrota/internal/period"
	"github.com/dukerupert/flatrota/internal/store"
)

// newGenerateCmd runs generation against the database on behalf of actor,
// with the same authorization as the HTTP endpoint.
func newGenerateCmd(g *globalFlags) *cobra.Command {
	var taskID, actor int64
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the periods of a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, logger, err := g.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			svc := period.NewService(store.NewTaskStore(db), store.NewPeriodStore(db), store.NewMembership(db),
				period.WithLogger(logger.With("component", "period")),
			)
			periods, err := svc.Generate(cmd.Context(), taskID, actor)
			if err != nil {
				return fmt.Errorf("generate task %d: %s: %w", taskID, period.Kind(err), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "generated %d periods for task %d\n", len(periods), taskID)
			return nil
		},
	}
	cmd.Flags().Int64Var(&taskID, "task", 0, "Task id")
	cmd.Flags().Int64Var(&actor, "actor", 0, "User id acting as task creator or flat owner")
	cmd.MarkFlagRequired("task")
	cmd.MarkFlagRequired("actor")
	return cmd
}
