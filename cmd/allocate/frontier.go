package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/pipeline"
)

var frontierModel string

var frontierCmd = &cobra.Command{
	Use:   "frontier",
	Short: "Print the efficient frontier",
	RunE:  runFrontier,
}

func init() {
	frontierCmd.Flags().StringVar(&frontierModel, "model", "historical", "historical or black-litterman")
	rootCmd.AddCommand(frontierCmd)
}

func runFrontier(cmd *cobra.Command, args []string) error {
	model, err := pipeline.ParseModel(frontierModel)
	if err != nil {
		return err
	}
	return withSession(func(ctx context.Context, s *session) error {
		res, err := s.pipeline.Run(ctx, pipeline.Request{Model: model, Frontier: true})
		if err != nil {
			return err
		}

		f := res.Frontier
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Efficient frontier (%s): %d of %d targets feasible\n\n", res.Model, len(f.Points), f.Requested)

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "#\tTARGET\tRETURN\tVOLATILITY")
		for _, p := range f.Points {
			fmt.Fprintf(w, "%d\t%.2f%%\t%.2f%%\t%.2f%%\n", p.Index, f.Targets[p.Index]*100, p.Return*100, p.Volatility*100)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Fprintf(out, "\nMax Sharpe: %.2f at %.2f%% volatility\n", res.Performance.Sharpe, res.Performance.Volatility*100)
		return nil
	})
}
