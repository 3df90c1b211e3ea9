package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/flowforge/internal/api"
)

// ServeCommand returns the CLI command for starting the API server
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the FlowForge API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the API server (overrides server.port)",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, closer, err := loadConfig(c)
	if err != nil {
		return err
	}
	defer closer.Close()

	if port := c.Int("port"); port > 0 {
		cfg.Server.Port = port
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	gen, err := newGenerator(cfg, store)
	if err != nil {
		return err
	}

	server, err := api.NewServer(cfg, store, gen)
	if err != nil {
		return err
	}
	log.Info().
		Int("port", cfg.Server.Port).
		Str("prompts_dir", store.Dir()).
		Str("backend", cfg.LLM.Backend).
		Strs("models", cfg.LLM.Models).
		Msg("FlowForge configured")
	return server.Start()
}
