package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/unroll/internal/ast"
	"github.com/gnoswap-labs/unroll/internal/loader"
)

// newDumpCmd: unroll dump <file> --ast-json <file|->
func newDumpCmd(global *globalOptions) *cobra.Command {
	var (
		astJSON string
		scopes  []string
	)
	cmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "Write the resolved tree of a design file as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if astJSON == "" {
				return usageError(errors.New("--ast-json is required"))
			}
			root, err := loader.Load(args[0])
			if err != nil {
				return err
			}
			selected, err := loader.SelectScopes(root, scopes)
			if err != nil {
				return usageError(err)
			}
			if err := dumpScopes(cmd.OutOrStdout(), astJSON, selected...); err != nil {
				return err
			}
			global.logger.Debug("Dumped design", zap.String("file", args[0]), zap.Int("scopes", len(selected)))
			return nil
		},
	}
	cmd.Flags().StringVar(&astJSON, "ast-json", "", "Output file for the JSON tree, or - for stdout")
	cmd.Flags().StringSliceVar(&scopes, "ast-json-scope", nil, "Dotted scope path to dump (repeatable)")
	return cmd
}

func dumpScopes(stdout io.Writer, target string, scopes ...*ast.Scope) error {
	if target == "-" {
		return loader.Encode(stdout, scopes...)
	}
	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", target, err)
	}
	if err := loader.Encode(f, scopes...); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
