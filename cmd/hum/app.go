package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/exedev/hum/internal/config"
)

// version is set via ldflags at build time by GoReleaser.
// e.g. -ldflags "-X main.version=1.2.3"
var version = "dev"

// newApp creates the CLI application with all flags and commands.
func newApp() *cli.Command {
	return &cli.Command{
		Name:        "hum",
		Usage:       "Interactive terminal AI assistant",
		Version:     version,
		UsageText:   "hum [global options] command [command options] [arguments...]",
		Description: "hum streams answers from an AI model into your terminal, with shell and file tools on tap",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
			},
			&cli.StringFlag{
				Name:    "model",
				Aliases: []string{"m"},
				Usage:   "Model to use (overrides config)",
			},
			&cli.StringFlag{
				Name:    "workdir",
				Aliases: []string{"w"},
				Usage:   "Working directory for file and shell tools",
			},
			&cli.BoolFlag{
				Name:  "no-tools",
				Usage: "Disable the built-in tools",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Verbose logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "chat",
				Usage:     "Start an interactive chat session",
				ArgsUsage: "[initial prompt]",
				Action:    cmdChat,
			},
			{
				Name:  "log",
				Usage: "Show the transcript of the most recent session",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 100, Usage: "Number of entries to show"},
					&cli.BoolFlag{Name: "json", Usage: "One JSON object per entry"},
					&cli.BoolFlag{Name: "sessions", Usage: "List stored sessions instead of entries"},
				},
				Action: cmdLog,
			},
			{
				Name:   "config",
				Usage:  "Show current configuration",
				Action: cmdConfig,
			},
			{
				Name:   "init",
				Usage:  "Write a default config file",
				Action: cmdInit,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			// Default action: treat remaining args as the opening prompt.
			args := cmd.Args().Slice()
			return runChat(ctx, cmd, strings.Join(args, " "))
		},
	}
}

func loadConfigFromCmd(cmd *cli.Command) (*config.Config, error) {
	path := cmd.String("config")
	if path == "" {
		path = config.DefaultPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if model := cmd.String("model"); model != "" {
		cfg.Provider.Model = model
	}
	if wd := cmd.String("workdir"); wd != "" {
		cfg.Tools.WorkDir = wd
	}
	if cmd.Bool("no-tools") {
		cfg.Tools.Enabled = false
	}
	return cfg, nil
}
