package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/unroll/internal/config"
)

// newInitCmd: unroll init
func newInitCmd(global *globalOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := global.cfgFile
			if path == "" {
				path = config.DefaultPath
			}
			if err := initConfigurationFile(path, force); err != nil {
				global.logger.Error("Error initializing config file", zap.Error(err))
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created: %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration file")
	return cmd
}

func initConfigurationFile(configurationPath string, force bool) error {
	if !force {
		if _, err := os.Stat(configurationPath); err == nil {
			return fmt.Errorf("%s already exists, use --force to overwrite", configurationPath)
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	cfg := config.Default()
	cfg.Require = ">= " + Version
	return config.Write(configurationPath, cfg)
}
