// Package commands holds the command line entry points of the decision
// service.
package commands

import (
	"github.com/spf13/cobra"
	"github.com/zeu5/tablesim-decider/config"
	"go.uber.org/zap"
)

var (
	configPath string
	logLevel   string
	seed       uint64

	cfg    config.Config
	logger *zap.Logger
)

func GetRootCommand() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:           "tablesim-decider",
		Short:         "Action selection and episode monitoring for the table manipulation task",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}
			if seed != 0 {
				cfg.Decision.Seed = seed
			}
			logger, err = config.NewLogger(cfg.Logging)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				logger.Sync()
			}
		},
	}
	rootCommand.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the YAML configuration file")
	rootCommand.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	rootCommand.PersistentFlags().Uint64Var(&seed, "seed", 0, "Seed for stochastic selection and placement (0 uses the clock)")
	// adding the subcommands here
	rootCommand.AddCommand(ServeCommand())
	rootCommand.AddCommand(ReplayCommand())
	rootCommand.AddCommand(FootprintCommand())
	rootCommand.AddCommand(HistoryCommand())
	return rootCommand
}
