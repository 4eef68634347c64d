package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultTimeout = 5 * time.Minute

// Process exit codes.
const (
	ExitOK       = 0
	ExitFailure  = 1 // a design failed to load or a run error occurred
	ExitUsage    = 2 // invalid options or configuration
	ExitDegraded = 3 // at least one walk ran out of steps
)

// ExitError carries the exit code a failed command should end the process
// with.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

func usageError(err error) error { return &ExitError{Code: ExitUsage, Err: err} }

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// globalOptions are shared by every subcommand.
type globalOptions struct {
	cfgFile string
	timeout time.Duration
	verbose bool

	logger *zap.Logger
}

// setupLogger replaces the logger with one at level. --verbose always
// selects the development logger at debug level.
func (o *globalOptions) setupLogger(level zapcore.Level) error {
	cfg := zap.NewProductionConfig()
	if o.verbose {
		cfg = zap.NewDevelopmentConfig()
		level = zapcore.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("error building logger: %w", err)
	}
	o.logger = logger
	return nil
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{logger: zap.NewNop()}
	run := newRunCmd(opts)

	rootCmd := &cobra.Command{
		Use:              "unroll [paths...]",
		Short:            "unroll - constant-driven loop unrolling over design files",
		Args:             cobra.ArbitraryArgs,
		TraverseChildren: true, // Prioritize subcommands
		SilenceUsage:     true,
		SilenceErrors:    true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setupLogger(zapcore.InfoLevel)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// display help when only 'unroll' is entered
			if len(args) == 0 {
				return cmd.Help()
			}
			// Format: unroll [path1 path2 ...] => behaves like the run subcommand
			return run.RunE(cmd, args)
		},
	}
	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "Configuration file (default .unroll.yaml when present)")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", defaultTimeout, "Timeout for a run")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	// the root command accepts the run flags as well
	rootCmd.Flags().AddFlagSet(run.Flags())

	rootCmd.AddCommand(run)
	rootCmd.AddCommand(newDumpCmd(opts))
	rootCmd.AddCommand(newInitCmd(opts))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// Execute runs the command line of the process.
func Execute() error {
	return NewRootCmd().Execute()
}
