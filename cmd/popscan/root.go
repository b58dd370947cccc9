package main

import (
	"github.com/spf13/cobra"

	"github.com/kdimtricp/popscan/internal/app"
	"github.com/kdimtricp/popscan/internal/config"
)

type commandContext struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	loaded bool
}

func (c *commandContext) ensureConfig() (config.Config, error) {
	if c.loaded {
		return *c.cfg, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if !c.verbose {
		cfg.Log.Level = "warn"
	}
	app.ConfigureLogging(cfg, "popscan")
	c.cfg = &cfg
	c.loaded = true
	return cfg, nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "popscan",
		Short:         "Identify movies and shows from on-screen text",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configPath, "config", "c", "", "Configuration file path (YAML or TOML)")
	rootCmd.PersistentFlags().BoolVarP(&ctx.verbose, "verbose", "v", false, "Log at the configured level instead of warnings only")

	rootCmd.AddCommand(newScanCommand(ctx))
	rootCmd.AddCommand(newCandidatesCommand())
	rootCmd.AddCommand(newCheckCommand(ctx))

	return rootCmd
}
