package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the tool version, checked against the require constraint of
// configuration files. Release builds set it with -ldflags.
var Version = "0.1.0"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "unroll %s\n", Version)
			return err
		},
	}
}
