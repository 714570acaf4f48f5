package main

import (
	"sync"

	"github.com/spf13/cobra"

	"raisebar/internal/config"
)

type commandContext struct {
	envFile *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		// A file named on the command line is loaded first so it wins over .env
		if c.envFile != nil && *c.envFile != "" {
			if err := config.LoadEnvFile(*c.envFile); err != nil {
				c.configErr = err
				return
			}
		}
		cfg := config.Load()
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func newRootCommand() *cobra.Command {
	var envFile string
	ctx := &commandContext{envFile: &envFile}

	serve := newServeCommand(ctx)

	rootCmd := &cobra.Command{
		Use:           "raisebar",
		Short:         "Two-player rap battle server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: serve.RunE,
	}
	rootCmd.Flags().AddFlagSet(serve.Flags())

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Environment file loaded before .env")

	rootCmd.AddCommand(serve)
	rootCmd.AddCommand(newJudgeCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))

	return rootCmd
}
