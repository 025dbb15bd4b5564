package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"histeq/internal/equalize"
	"histeq/internal/metrics"
)

func newInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "List the available enhancement methods and the reported metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, "Enhancement methods:")
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, name := range equalize.Names() {
				algorithm, ok := equalize.Get(name)
				if !ok {
					continue
				}
				fmt.Fprintf(tw, "  %s\t%s\n", name, algorithm.GetDescription())
				for _, param := range algorithm.GetParameterInfo() {
					fmt.Fprintf(tw, "    %s\t%s, default %v. %s\n",
						param.Name, param.Type, param.Default, param.Description)
				}
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			fmt.Fprintln(out, "\nHeadline metrics:")
			tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			metricInfo := metrics.Info()
			for _, key := range metrics.ReportKeys {
				info, ok := metricInfo[key]
				if !ok {
					continue
				}
				direction := "lower is better"
				if info.HigherBetter {
					direction = "higher is better"
				}
				fmt.Fprintf(tw, "  %s\t%s\t(%s)\n", key, info.Description, direction)
			}
			return tw.Flush()
		},
	}
}
