package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/flowforge/internal/llm"
)

// DebugCommand returns troubleshooting helpers for model output.
func DebugCommand() *cli.Command {
	return &cli.Command{
		Name:  "debug",
		Usage: "Troubleshooting helpers",
		Subcommands: []*cli.Command{
			{
				Name:  "repair-json",
				Usage: "Extract and repair JSON from a saved model answer",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Read the answer from `FILE` (\"-\" for stdin)",
						Value:   "-",
					},
				},
				Action: runRepairJSON,
			},
		},
	}
}

func runRepairJSON(c *cli.Context) error {
	raw, err := readContent(c.App.Reader, c.String("file"))
	if err != nil {
		return err
	}

	extracted, ok := llm.ExtractJSON(llm.StripCodeFences(raw))
	if !ok {
		return llm.ErrNotJSON
	}
	repaired, stats, err := llm.RepairJSON(extracted)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer, repaired)

	summary, _ := json.Marshal(stats)
	fmt.Fprintln(c.App.ErrWriter, labelStyle.Render(strings.TrimSpace(string(summary))))
	return nil
}
