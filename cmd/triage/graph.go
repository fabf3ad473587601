package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/triage/internal/workflows"
	"github.com/randalmurphal/triage/pkg/triage"
	"github.com/randalmurphal/triage/pkg/triage/classifier"
)

// offline stands in for the model when graphs are only inspected.
var offline = classifier.Func(func(context.Context, string, []string, []string) (string, error) {
	return "", errors.New("graph built for inspection only")
})

func newGraphCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "graph [name]",
		Short: "Print a graph diagram, or list the shipped graphs",
		Long: `Prints the named graph as PlantUML (default) or Mermaid.
Without a name, lists the shipped graphs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, d := range workflows.Definitions() {
					fmt.Fprintln(out, d.Name)
				}
				return nil
			}

			f, err := triage.ParseDiagramFormat(format)
			if err != nil {
				return err
			}
			for _, d := range workflows.Definitions() {
				if d.Name != args[0] {
					continue
				}
				g, err := d.Build(offline)
				if err != nil {
					return err
				}
				diagram, err := g.Diagram(f)
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(out, diagram)
				return err
			}
			return fmt.Errorf("unknown graph %q", args[0])
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(triage.FormatPlantUML), "Diagram format: plantuml or mermaid")
	return cmd
}
