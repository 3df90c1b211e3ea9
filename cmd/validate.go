package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/urfave/cli/v2"

	"github.com/flowforge/internal/generator"
)

// ValidateCommand returns the validate command
func ValidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Check whether a request describes a trigger, process and action",
		ArgsUsage: "PROMPT",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the raw result as JSON",
			},
		},
		Action: runValidate,
	}
}

// GenerateCommand returns the generate command
func GenerateCommand() *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Usage:     "Validate a request, then generate an n8n workflow and setup guide",
		ArgsUsage: "PROMPT",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "model", Aliases: []string{"m"}, Usage: "Model to generate with (default: first of llm.models)"},
			&cli.StringFlag{Name: "trigger", Usage: "Override the matched trigger tool"},
			&cli.StringFlag{Name: "process", Usage: "Override the matched process tool"},
			&cli.StringFlag{Name: "action", Usage: "Override the matched action tool"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write the workflow JSON to `FILE` instead of stdout"},
			&cli.BoolFlag{Name: "raw", Usage: "Print the guide as plain markdown"},
		},
		Action: runGenerate,
	}
}

// commandService builds a generator for one-shot CLI commands.
func commandService(c *cli.Context) (*generator.Service, io.Closer, error) {
	cfg, closer, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	store, err := openStore(cfg)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	gen, err := newGenerator(cfg, store)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	return gen, closer, nil
}

func promptArg(c *cli.Context) (string, error) {
	prompt := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if prompt == "" {
		return "", errors.New("missing required argument: PROMPT")
	}
	return prompt, nil
}

func runValidate(c *cli.Context) error {
	prompt, err := promptArg(c)
	if err != nil {
		return err
	}
	gen, closer, err := commandService(c)
	if err != nil {
		return err
	}
	defer closer.Close()

	result, err := gen.Validate(c.Context, prompt)
	if err != nil {
		return err
	}

	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printValidation(c.App.Writer, result)
	if !result.Valid {
		return cli.Exit("", 2)
	}
	return nil
}

func printValidation(w io.Writer, r generator.ValidationResult) {
	if r.Valid {
		fmt.Fprintln(w, okStyle.Render("✓ Request is a complete automation"))
	} else {
		fmt.Fprintln(w, errorStyle.Render("✗ Request is incomplete"))
	}
	fmt.Fprintln(w, field("trigger", describe(r.ExtractedTriggerText, r.MatchedTriggerTool)))
	fmt.Fprintln(w, field("process", describe(r.ExtractedProcessText, r.MatchedProcessTool)))
	fmt.Fprintln(w, field("action", describe(r.ExtractedActionText, r.MatchedActionTool)))
	if r.Feedback != nil && *r.Feedback != "" {
		fmt.Fprintln(w, field("feedback", warnStyle.Render(*r.Feedback)))
	}
	for _, s := range r.Suggestions {
		fmt.Fprintln(w, field("suggestion", s))
	}
}

func describe(extracted *string, tool string) string {
	text := "-"
	if extracted != nil && *extracted != "" {
		text = fmt.Sprintf("%q", *extracted)
	}
	return text + " → " + headerStyle.Render(tool)
}

func runGenerate(c *cli.Context) error {
	prompt, err := promptArg(c)
	if err != nil {
		return err
	}
	gen, closer, err := commandService(c)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}

	validation, err := gen.Validate(ctx, prompt)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	printValidation(c.App.ErrWriter, validation)
	if !validation.Valid {
		return cli.Exit("request is incomplete, refine it and try again", 2)
	}

	model := c.String("model")
	if model == "" {
		models := gen.Models()
		if len(models) == 0 {
			return errors.New("no models configured")
		}
		model = models[0]
	}

	req := generator.GenerateRequest{
		UserPrompt:               prompt,
		SelectedTriggerTool:      firstNonEmpty(c.String("trigger"), validation.MatchedTriggerTool),
		SelectedProcessLogicTool: firstNonEmpty(c.String("process"), validation.MatchedProcessTool),
		SelectedActionTool:       firstNonEmpty(c.String("action"), validation.MatchedActionTool),
		Model:                    model,
		AIExtractedTrigger:       deref(validation.ExtractedTriggerText),
		AIExtractedProcess:       deref(validation.ExtractedProcessText),
		AIExtractedAction:        deref(validation.ExtractedActionText),
	}
	result, err := gen.Generate(ctx, req)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	if out := c.String("out"); out != "" {
		if err := os.WriteFile(out, []byte(result.WorkflowJSON+"\n"), 0644); err != nil {
			return fmt.Errorf("failed to write workflow: %w", err)
		}
		fmt.Fprintln(c.App.ErrWriter, okStyle.Render("Workflow written to "+out))
	} else {
		fmt.Fprintln(c.App.Writer, result.WorkflowJSON)
	}

	if result.GuideMarkdown == "" {
		return nil
	}
	return renderMarkdown(c.App.ErrWriter, result.GuideMarkdown, c.Bool("raw"))
}

// renderMarkdown prints md for a terminal, falling back to plain text.
func renderMarkdown(w io.Writer, md string, raw bool) error {
	if !raw {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err == nil {
			if out, err := renderer.Render(md); err == nil {
				_, err = io.WriteString(w, out)
				return err
			}
		}
	}
	_, err := fmt.Fprintln(w, md)
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
