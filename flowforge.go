package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/flowforge/cmd"
)

const (
	version = "0.1.0"
)

func main() {
	app := &cli.App{
		Name:    "flowforge",
		Usage:   "Turn plain-language automation requests into n8n workflows",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE` (default: ./flowforge.toml or ~/.flowforge.toml)",
				EnvVars: []string{"FLOWFORGE_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load environment variables from `FILE` before reading configuration",
			},
		},
		Commands: []*cli.Command{
			cmd.ServeCommand(),
			cmd.ConfigCommand(),
			cmd.PromptsCommand(),
			cmd.ValidateCommand(),
			cmd.GenerateCommand(),
			cmd.DebugCommand(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
