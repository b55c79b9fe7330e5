package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/flatrota/internal/cadence"
	"github.com/dukerupert/flatrota/internal/model"
	"github.com/dukerupert/flatrota/internal/period"
)

const dateLayout = "2006-01-02"

type planFlags struct {
	unit    string
	value   int
	start   string
	end     string
	roster  string
	max     int
	jsonOut bool
}

// newPlanCmd previews the periods a task would get, without a database.
func newPlanCmd() *cobra.Command {
	f := &planFlags{}
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Preview the periods generation would create",
		Example: `  flatrota plan --unit WEEK --value 1 --start 2024-03-01 --end 2024-04-01 --roster 1,2,3
  flatrota plan --unit DAY --value 7 --start 2024-01-01 --end 2024-01-29 --roster 10,20 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := f.task()
			if err != nil {
				return err
			}
			periods, err := period.Plan(task, f.max)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if f.jsonOut {
				type row struct {
					Start      string `json:"start_date"`
					End        string `json:"end_date"`
					AssignedTo int64  `json:"assigned_to"`
				}
				rows := make([]row, 0, len(periods))
				for _, p := range periods {
					rows = append(rows, row{p.StartDate.Format(dateLayout), p.EndDate.Format(dateLayout), p.AssignedTo})
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tSTART\tEND\tASSIGNEE")
			for i, p := range periods {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", i+1, p.StartDate.Format(dateLayout), p.EndDate.Format(dateLayout), p.AssignedTo)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&f.unit, "unit", "", "Cadence unit (DAY or WEEK)")
	cmd.Flags().IntVar(&f.value, "value", 1, "Cadence value")
	cmd.Flags().StringVar(&f.start, "start", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.end, "end", "", "End date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.roster, "roster", "", "Comma-separated member ids in rotation order")
	cmd.Flags().IntVar(&f.max, "max", period.MaxPeriods, fmt.Sprintf("Maximum periods to plan, at most %d", period.MaxPeriods))
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "Print JSON instead of a table")
	cmd.MarkFlagRequired("unit")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
	return cmd
}

func (f *planFlags) task() (*model.Task, error) {
	unit, err := cadence.ParseUnit(f.unit)
	if err != nil {
		return nil, err
	}
	if !unit.Supported() {
		return nil, fmt.Errorf("--unit %s: %w", unit, cadence.ErrUnsupportedCadence)
	}
	start, err := time.ParseInLocation(dateLayout, f.start, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("--start: %w", err)
	}
	end, err := time.ParseInLocation(dateLayout, f.end, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("--end: %w", err)
	}
	roster, err := parseRoster(f.roster)
	if err != nil {
		return nil, err
	}
	task := &model.Task{
		CadenceUnit:  unit,
		CadenceValue: f.value,
		StartDate:    start,
		EndDate:      end,
		Roster:       roster,
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}
	return task, nil
}

func parseRoster(s string) ([]int64, error) {
	var roster []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("--roster: invalid member id %q", part)
		}
		roster = append(roster, id)
	}
	return roster, nil
}
