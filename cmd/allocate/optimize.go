package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/pipeline"
	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/report"
	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/storage/archive"
)

var (
	optimizeModel      string
	optimizeNoFrontier bool
	optimizeChart      string
	optimizeJSON       string
	optimizePublish    bool
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Find the maximum-Sharpe portfolio",
	Long: `Fetch prices, estimate the risk model, derive expected returns and solve
for the maximum-Sharpe portfolio. Use --model ask to be prompted for the
Black-Litterman model.`,
	RunE: runOptimize,
}

func init() {
	optimizeCmd.Flags().StringVar(&optimizeModel, "model", "", "historical, black-litterman or ask (default from config)")
	optimizeCmd.Flags().BoolVar(&optimizeNoFrontier, "no-frontier", false, "skip the efficient frontier")
	optimizeCmd.Flags().StringVar(&optimizeChart, "chart", "", "write the frontier chart PNG to this path")
	optimizeCmd.Flags().StringVar(&optimizeJSON, "json", "", "write the result document to this path")
	optimizeCmd.Flags().BoolVar(&optimizePublish, "publish", false, "publish artifacts to the configured output")

	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	return withSession(func(ctx context.Context, s *session) error {
		model, err := chooseModel(optimizeModel, s.cfg.BlackLitterman.Enabled, cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}

		res, err := s.pipeline.Run(ctx, pipeline.Request{Model: model, Frontier: !optimizeNoFrontier})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if err := report.WriteText(out, res); err != nil {
			return err
		}

		if optimizeChart != "" {
			png, err := report.FrontierChart(res)
			if err != nil {
				return fmt.Errorf("rendering chart: %w", err)
			}
			if err := os.WriteFile(optimizeChart, png, 0o644); err != nil {
				return fmt.Errorf("writing chart: %w", err)
			}
			fmt.Fprintf(out, "\nChart written to %s\n", optimizeChart)
		}
		if optimizeJSON != "" {
			doc, err := report.JSON(res)
			if err != nil {
				return err
			}
			if err := os.WriteFile(optimizeJSON, doc, 0o644); err != nil {
				return fmt.Errorf("writing result: %w", err)
			}
		}

		if optimizePublish {
			store, err := archive.Open(archive.Config{
				Type: s.cfg.Output.Type,
				Path: s.cfg.Output.Path,
				S3:   archive.S3Config(s.cfg.Output.S3),
			})
			if err != nil {
				return fmt.Errorf("opening output: %w", err)
			}
			written, err := report.Publish(ctx, store, res)
			if err != nil {
				return err
			}
			s.log.Info("run published",
				zap.String("run_id", res.RunID),
				zap.String("output", s.cfg.Output.Type),
				zap.Strings("files", written),
			)
			fmt.Fprintf(out, "\nPublished to %s\n", report.RunDir(res))
		}
		return nil
	})
}

// chooseModel resolves the --model flag. An empty flag falls back to the
// config; "ask" prompts on in until it gets a yes or no.
func chooseModel(flag string, blEnabled bool, in io.Reader, out io.Writer) (pipeline.Model, error) {
	switch strings.ToLower(strings.TrimSpace(flag)) {
	case "":
		if blEnabled {
			return pipeline.ModelBlackLitterman, nil
		}
		return pipeline.ModelHistorical, nil
	case "ask":
		useBL, err := askYesNo(in, out, "Do you want to use the advanced Black-Litterman model? (yes/no): ")
		if err != nil {
			return "", err
		}
		if useBL {
			return pipeline.ModelBlackLitterman, nil
		}
		return pipeline.ModelHistorical, nil
	default:
		return pipeline.ParseModel(flag)
	}
}

func askYesNo(in io.Reader, out io.Writer, prompt string) (bool, error) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return false, err
			}
			return false, io.ErrUnexpectedEOF
		}
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "yes", "y":
			return true, nil
		case "no", "n":
			return false, nil
		default:
			fmt.Fprintln(out, "Invalid input. Please enter 'yes' or 'no'.")
		}
	}
}
