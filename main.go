package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"draftsync/commands"
	"draftsync/config"
	"draftsync/utils"

	"github.com/urfave/cli/v3"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	version = "dev"
	commit  = "HEAD"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "draftsync",
		Usage:     "Synced message drafts service",
		UsageText: "draftsync [global options] command [command options]",
		Version:   fmt.Sprintf("%s (%s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error); overrides log.level",
				Sources:     cli.EnvVars("DRAFTSYNC_LOG_LEVEL"),
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("DRAFTSYNC_CONFIG"),
				Value:       "config.toml",
				Destination: &flags.ConfigPath,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			cfg, err := config.LoadConfig(flags.ConfigPath, c.IsSet("config"))
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			flags.Config = cfg

			level := cfg.Log.Level
			if flags.LogLevel != "" {
				level = flags.LogLevel
			}
			utils.ConfigureLog(level, cfg.Log.Format)
			return ctx, nil
		},
	}

	app = commands.NewServeCmd(flags).Register(app)
	app = commands.NewUserCmd(flags).Register(app)
	app = commands.NewStreamCmd(flags).Register(app)

	if err := app.Run(ctx, os.Args); err != nil {
		utils.Log.Error("%v", err)
		stop()
		os.Exit(1)
	}
}
