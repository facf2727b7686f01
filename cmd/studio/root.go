package main

import (
	"os"

	"github.com/spf13/cobra"

	"carpet-studio/internal/app"
	"carpet-studio/internal/config"
	"carpet-studio/internal/logging"
)

type cli struct {
	configPath string
	app        *app.App
}

func (c *cli) root() *cobra.Command {
	root := &cobra.Command{
		Use:          "studio",
		Short:        "Carpet scene product photos from the command line",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.open(cmd)
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", os.Getenv("CARPET_CONFIG"), "config file (default ./config.yaml when present)")

	root.AddCommand(c.promptCmd(), c.generateCmd(), c.settingsCmd())
	return root
}

func (c *cli) open(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogLevel, cmd.ErrOrStderr())

	a, err := app.New(cmd.Context(), cfg, logger, app.Options{UserAgent: "carpet-studio-cli"})
	if err != nil {
		return err
	}
	c.app = a
	return nil
}

func (c *cli) close() error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close()
	c.app = nil
	return err
}
