package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/unroll/driver"
	"github.com/gnoswap-labs/unroll/formatter"
	"github.com/gnoswap-labs/unroll/internal/config"
	tt "github.com/gnoswap-labs/unroll/internal/types"
)

type runOptions struct {
	jsonOutput  bool
	outPath     string
	quiet       bool
	scopes      []string
	maxSteps    int
	concurrency int
	watch       bool
}

// newRunCmd: unroll run [paths...]
func newRunCmd(global *globalOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Walk design files, unrolling loops with constant bounds",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usageError(errors.New("please provide file or directory paths"))
			}
			return runUnroll(cmd, global, opts, args)
		},
	}
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output reports in JSON format")
	cmd.Flags().StringVarP(&opts.outPath, "output", "o", "", "Output path (default stdout)")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Only print issues and summaries")
	cmd.Flags().StringSliceVar(&opts.scopes, "scope", nil, "Dotted scope path to walk (repeatable)")
	cmd.Flags().IntVar(&opts.maxSteps, "max-steps", 0, "Step budget of a walk (overrides max_steps)")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "Files processed at once (default one per CPU)")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Rerun whenever a design file changes")
	return cmd
}

// loadConfig reads the configuration named by --config, or the default
// file when it exists, and applies flag overrides.
func loadConfig(global *globalOptions, opts *runOptions) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if global.cfgFile != "" {
		cfg, err = config.Load(global.cfgFile)
	} else {
		cfg, err = config.LoadOrDefault(config.DefaultPath)
	}
	if err != nil {
		return cfg, err
	}

	if len(opts.scopes) > 0 {
		cfg.Scopes = opts.scopes
	}
	if opts.maxSteps != 0 {
		cfg.MaxSteps = opts.maxSteps
	}
	if opts.concurrency != 0 {
		cfg.Concurrency = opts.concurrency
	}
	if err := cfg.Validate(Version); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func runUnroll(cmd *cobra.Command, global *globalOptions, opts *runOptions, paths []string) error {
	cfg, err := loadConfig(global, opts)
	if err != nil {
		return usageError(err)
	}
	level, _ := cfg.Level()
	if err := global.setupLogger(level); err != nil {
		return err
	}
	logger := global.logger
	defer func() { _ = logger.Sync() }()

	var runner driver.Runner = driver.NewEngine(cfg, logger)
	if opts.watch {
		runner = driver.NewCache(runner)
	}
	driverOpts := driver.Options{Concurrency: cfg.Concurrency}
	if !opts.jsonOutput && !opts.quiet {
		driverOpts.Progress = cmd.ErrOrStderr()
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), global.timeout)
	defer cancel()

	reports, runErr := driver.ProcessFiles(ctx, logger, runner, paths, driverOpts)
	if runErr != nil {
		logger.Error("Error processing files", zap.Error(runErr))
	}
	if err := writeReports(cmd.OutOrStdout(), reports, opts); err != nil {
		return err
	}

	if opts.watch {
		return watchPaths(cmd, logger, runner, paths, opts)
	}

	switch {
	case runErr != nil:
		return &ExitError{Code: ExitFailure, Err: runErr}
	case anyDegraded(reports):
		return &ExitError{Code: ExitDegraded}
	}
	return nil
}

func anyDegraded(reports []*tt.Report) bool {
	for _, r := range reports {
		if r.AnyErrors {
			return true
		}
	}
	return false
}

// writeReports prints reports as text or JSON, to stdout or --output.
func writeReports(stdout io.Writer, reports []*tt.Report, opts *runOptions) error {
	w := stdout
	if opts.outPath != "" {
		f, err := os.Create(opts.outPath)
		if err != nil {
			return fmt.Errorf("error creating output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if opts.jsonOutput {
		if reports == nil {
			reports = []*tt.Report{}
		}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		encoder.SetEscapeHTML(false)
		if err := encoder.Encode(reports); err != nil {
			return fmt.Errorf("error marshaling reports to JSON: %w", err)
		}
		return nil
	}

	for _, r := range reports {
		if _, err := fmt.Fprint(w, formatter.FormatReport(r, opts.quiet)); err != nil {
			return err
		}
	}
	if len(reports) > 1 {
		if _, err := fmt.Fprint(w, formatter.FormatTotals(reports)); err != nil {
			return err
		}
	}
	return nil
}

// watchPaths reruns changed files until the process is interrupted.
func watchPaths(cmd *cobra.Command, logger *zap.Logger, runner driver.Runner, paths []string, opts *runOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	w, err := driver.NewWatcher(runner, logger, func(r *tt.Report) {
		if err := writeReports(out, []*tt.Report{r}, opts); err != nil {
			logger.Error("Error writing report", zap.String("file", r.Filename), zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(paths...); err != nil {
		return err
	}
	logger.Info("Watching for changes", zap.Strings("paths", paths))
	return w.Run(ctx)
}
