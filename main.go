package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"accident-analytics/config"
	"accident-analytics/models"
	"accident-analytics/pipeline"
	"accident-analytics/services"
	"accident-analytics/utils"
)

// app holds what every subcommand needs once flags are parsed.
type app struct {
	cfg    *config.Config
	logger *utils.Logger
	runner *pipeline.Runner
}

func main() {
	a := &app{}
	var input string

	root := &cobra.Command{
		Use:           "accident-analytics",
		Short:         "Clean, explore and model Bogotá road accident severity",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if input != "" {
				cfg.InputPath = input
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			logger, err := utils.NewLoggerWith(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				logger.Warn("[config] %v, using info", err)
			}
			a.cfg, a.logger = cfg, logger
			a.runner = pipeline.NewRunner(cfg, logger, utils.NewMetrics())
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.runner.FlushMetrics(); err != nil {
				a.logger.Error("%v", err)
			}
			a.logger.Sync()
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&input, "input", "i", "", "raw extract (.xlsx or .csv), overrides INPUT_PATH")

	root.AddCommand(
		newPrepareCmd(a),
		newExploreCmd(a),
		newTrainCmd(a),
		newScoreCmd(a),
		newDashboardCmd(a),
		newRunCmd(a),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func newPrepareCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prepare",
		Short: "Normalize the raw extract and write the cleaned dataset and metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a.logger.Info("=== Data preparation starting ===")
			_, err := a.runner.Prepare(ctx)
			return err
		},
	}
}

func newExploreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "explore",
		Short: "Summarize the cleaned dataset and build the feature matrix",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a.logger.Info("=== Exploratory analysis starting ===")
			_, _, err := a.runner.Explore(ctx)
			return err
		},
	}
}

func newTrainCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Fit the severity classifier and write the evaluation and modeling report",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a.logger.Info("=== Training starting (seed %d, test fraction %.2f) ===", a.cfg.RandomSeed, a.cfg.TestFraction)
			report, err := a.runner.Train(ctx)
			if err != nil {
				return err
			}
			printSummary(report)
			return nil
		},
	}
}

func newScoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "score [file]",
		Short: "Score a raw extract (or the cleaned dataset) with the trained model",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			_, err := a.runner.Score(ctx, path)
			return err
		},
	}
}

func newDashboardCmd(a *app) *cobra.Command {
	var (
		localities  []string
		severities  []string
		top         int
		listOptions bool
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Print the filtered dashboard view",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			if listOptions {
				options, err := a.runner.LocalityOptions(ctx)
				if err != nil {
					return err
				}
				for _, name := range options {
					fmt.Println(name)
				}
				return nil
			}

			var filter services.DashboardFilter
			if cmd.Flags().Changed("locality") {
				filter.Localities = append([]string{}, localities...)
			}
			if cmd.Flags().Changed("severity") {
				filter.Severities = []models.Target{}
				for _, s := range severities {
					t, err := parseSeverity(s)
					if err != nil {
						return err
					}
					filter.Severities = append(filter.Severities, t)
				}
			}
			_, err := a.runner.Dashboard(ctx, filter, top)
			return err
		},
	}

	cmd.Flags().StringSliceVarP(&localities, "locality", "l", nil, "locality names to include (default all)")
	cmd.Flags().StringSliceVarP(&severities, "severity", "s", nil, "severity classes to include: high, low (default both)")
	cmd.Flags().IntVar(&top, "top", 0, "number of localities to rank (default TOP_N_LOCALITIES)")
	cmd.Flags().BoolVar(&listOptions, "list-localities", false, "list the locality names available for --locality")
	return cmd
}

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run prepare, explore and train in sequence",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a.logger.Info("=== Accident severity pipeline starting ===")
			a.logger.Info("Config: input %s | output %s | test fraction %.2f | seed %d | C %.2f",
				a.cfg.InputPath, a.cfg.OutputDir, a.cfg.TestFraction, a.cfg.RandomSeed, a.cfg.Regularization)
			report, err := a.runner.Run(ctx)
			if err != nil {
				return err
			}
			printSummary(report)
			return nil
		},
	}
}

func parseSeverity(s string) (models.Target, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "1":
		return models.TargetHigh, nil
	case "low", "0":
		return models.TargetLow, nil
	}
	return models.TargetUndefined, fmt.Errorf("invalid --severity %q (want high or low)", s)
}

func printSummary(r *models.EvaluationReport) {
	auc := "undefined"
	if r.AUCDefined {
		auc = fmt.Sprintf("%.4f", r.AUC)
	}
	fmt.Printf("\n  Run %s | ROC AUC %s | recall(high) %.2f | precision(high) %.2f | accuracy %.2f\n\n",
		r.RunID, auc, r.Classes[models.TargetHigh].Recall, r.Classes[models.TargetHigh].Precision, r.Accuracy)
}
