package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "run <graph> <text...>",
		Short: "Run a graph once and print the solution",
		Example: `  triage run customerService "产品质量太差了"
  triage run recommendedPlaces "附近的咖啡店" --json`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			svc, err := newServices(ctx, a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer svc.close(context.Background())

			out, err := svc.runner.Run(ctx, args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"run_id":   out.RunID,
					"solution": out.Solution,
					"path":     out.Path,
					"state":    out.State,
				})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out.Solution)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print run ID, path and final state as JSON")
	return cmd
}
