// Package cli provides the command-line interface for uiharness.
package cli

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/uiharness/pkg/config"
	"github.com/devicelab-dev/uiharness/pkg/logger"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Config file (default: uiharness.yaml in the working directory, else built-in)",
		EnvVars: []string{"UIHARNESS_CONFIG"},
	},
	&cli.StringFlag{
		Name:    "host",
		Usage:   "Address to listen on (serve)",
		EnvVars: []string{"UIHARNESS_HOST"},
	},
	&cli.IntFlag{
		Name:    "port",
		Usage:   "Port to listen on (serve)",
		EnvVars: []string{"UIHARNESS_PORT"},
	},
	&cli.StringFlag{
		Name:    "url",
		Aliases: []string{"u"},
		Usage:   "Server URL for client commands",
		Value:   "http://127.0.0.1:8080",
		EnvVars: []string{"UIHARNESS_URL"},
	},
	&cli.StringFlag{
		Name:    "log-level",
		Usage:   "Log level (trace, debug, info, warn, error)",
		EnvVars: []string{"UIHARNESS_LOG_LEVEL"},
	},
	&cli.StringFlag{
		Name:    "log-file",
		Usage:   "Also write logs to this file",
		EnvVars: []string{"UIHARNESS_LOG_FILE"},
	},
	&cli.BoolFlag{
		Name:  "no-ansi",
		Usage: "Disable ANSI colors",
	},
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "uiharness",
		Usage:   "Scriptable UI state engine for driving end-to-end test clients",
		Version: Version,
		Description: `uiharness serves a simulated app UI (text elements, a counter with tap
triggers, a scrollable list) over HTTP so that UI test clients can tap,
read texts and scroll without a device.

Examples:
  uiharness serve
  uiharness --config app.yaml serve --settle async
  uiharness tap --text +
  uiharness texts txtCount
  uiharness run episode.yaml`,
		Flags: GlobalFlags,
		Before: func(c *cli.Context) error {
			if c.Bool("no-ansi") {
				colorsEnabled = false
			}
			return nil
		},
		Commands: []*cli.Command{
			serveCommand,
			layoutCommand,
			runCommand,
			tapCommand,
			resetCommand,
			textsCommand,
			scrollCommand,
			statusCommand,
			hierarchyCommand,
		},
	}
}

// Execute runs the CLI.
func Execute() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads --config (or uiharness.yaml in the working directory)
// and applies global flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadFromDir(".")
	}
	if err != nil {
		return nil, err
	}

	if c.IsSet("host") {
		cfg.Server.Host = c.String("host")
	}
	if c.IsSet("port") {
		cfg.Server.Port = c.Int("port")
	}
	if c.IsSet("log-level") {
		cfg.Logging.Level = c.String("log-level")
	}
	if c.IsSet("log-file") {
		cfg.Logging.File = c.String("log-file")
	}
	return cfg, nil
}

// initClientLogging sets up logging for commands that do not load a config.
func initClientLogging(c *cli.Context) error {
	level := c.String("log-level")
	if level == "" {
		level = "warn"
	}
	return logger.Init(level, c.String("log-file"))
}
