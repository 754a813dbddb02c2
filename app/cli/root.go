// Package cli wires configuration, storage and the HTTP server into the
// taskforest command.
package cli

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"taskforest/app/config"
)

// CLI holds state shared by all subcommands.
type CLI struct {
	configDir string
	verbose   bool

	cfg    config.Config
	logger *zap.Logger
}

// Execute runs the taskforest command tree.
func Execute(ctx context.Context) error {
	c := &CLI{}
	return c.RootCommand().ExecuteContext(ctx)
}

// RootCommand builds the root command with all subcommands attached.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "taskforest",
		Short:        "taskforest serves per-user task trees",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(c.configDir)
			if err != nil {
				return err
			}
			if c.verbose {
				cfg.LogLevel = zapcore.DebugLevel.String()
			}
			logger, err := config.NewLogger(cfg)
			if err != nil {
				return err
			}
			c.cfg, c.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				c.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&c.configDir, "config-dir", ".", "directory holding the .env file")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.provisionCommand())

	return root
}
