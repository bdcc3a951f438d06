package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"mission-planner/internal/display"
	"mission-planner/internal/parser"
	"mission-planner/internal/supervisor"
)

func newSimulateCmd(a *app) *cobra.Command {
	var (
		planFile string
		names    []string
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run plans from a file on the arena, one rover per plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSimulate(cmd.Context(), cmd.OutOrStdout(), planFile, names)
		},
	}
	cmd.Flags().StringVarP(&planFile, "plan-file", "f", "", "JSON file with one or more plans")
	cmd.Flags().StringSliceVarP(&names, "name", "n", nil, "only run the named plans (repeatable)")
	_ = cmd.MarkFlagRequired("plan-file")
	return cmd
}

func (a *app) runSimulate(ctx context.Context, out io.Writer, file string, names []string) error {
	w, reg, err := a.setup()
	if err != nil {
		return err
	}
	plans, err := parser.LoadPlansFromFile(file, reg)
	if err != nil {
		return err
	}
	if len(names) > 0 {
		selected, missing := parser.SelectPlansByNames(plans, names)
		if len(missing) > 0 {
			fmt.Fprintf(out, "Missing missions: %v\n", missing)
		}
		plans = selected
	}
	if len(plans) == 0 {
		return errors.New("no missions to run")
	}

	fmt.Fprint(out, display.FormatPlansCatalog(file, plans, w))
	results, err := supervisor.RunFleet(ctx, plans, w, supervisor.FromConfig(a.cfg), a.log)

	failed := 0
	for _, r := range results {
		if r.MissionID == "" {
			continue
		}
		fmt.Fprintln(out, display.FormatResult(r))
		if !r.Succeeded() {
			failed++
		}
	}
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d mission(s) did not succeed", failed, len(results))
	}
	return nil
}
