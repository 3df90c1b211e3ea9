package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/flowforge/internal/prompts"
)

// PromptsCommand returns the prompts command
func PromptsCommand() *cli.Command {
	typeUsage := "TYPE is one of: " + strings.Join(typeNames(), ", ")
	return &cli.Command{
		Name:  "prompts",
		Usage: "Inspect and edit the versioned prompt store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Prompt store directory (overrides prompts.dir)",
			},
		},
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List prompt types with their versions",
				Action: runPromptsList,
			},
			{
				Name:        "show",
				Usage:       "Print a prompt version",
				ArgsUsage:   "TYPE",
				Description: typeUsage,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "version",
						Aliases: []string{"v"},
						Usage:   "Version to show (default: active)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text, json or yaml",
						Value:   "text",
					},
				},
				Action: runPromptsShow,
			},
			{
				Name:        "add",
				Usage:       "Add a new active version from a file or stdin",
				ArgsUsage:   "TYPE",
				Description: typeUsage,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Read content from `FILE` (\"-\" for stdin)",
						Value:   "-",
					},
					&cli.StringFlag{
						Name:     "message",
						Aliases:  []string{"m"},
						Usage:    "Change description",
						Required: true,
					},
				},
				Action: runPromptsAdd,
			},
			{
				Name:        "activate",
				Usage:       "Make an existing version the active one",
				ArgsUsage:   "TYPE VERSION",
				Description: typeUsage,
				Action:      runPromptsActivate,
			},
			{
				Name:        "render",
				Usage:       "Fill the active prompt with sample values and print it",
				ArgsUsage:   "TYPE",
				Description: typeUsage + ". Variables without a value become N/A.",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "var",
						Usage: "Placeholder value as `NAME=VALUE`, repeatable",
					},
				},
				Action: runPromptsRender,
			},
			{
				Name:  "init",
				Usage: "Create empty prompt documents, optionally seeding initial versions",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "seed",
						Usage: "Directory with <type>.md files to load as version 1",
					},
				},
				Action: runPromptsInit,
			},
		},
	}
}

func typeNames() []string {
	var names []string
	for _, t := range prompts.AllTypes() {
		names = append(names, string(t))
	}
	return names
}

// promptEnv is the store named by --dir or prompts.dir together with the
// configured token estimator.
type promptEnv struct {
	store     *prompts.Store
	estimator prompts.TokenEstimator
}

// promptStore opens the prompt store. The returned closer flushes the log
// file and must be closed once the command is done.
func promptStore(c *cli.Context) (*promptEnv, io.Closer, error) {
	cfg, closer, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}

	dir := cfg.Prompts.Dir
	if override := c.String("dir"); override != "" {
		dir = override
	}
	store, err := prompts.NewStore(dir)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	return &promptEnv{store: store, estimator: prompts.NewTokenEstimator(cfg.Tokens.Encoding)}, closer, nil
}

func typeArg(c *cli.Context) (prompts.PromptType, error) {
	if c.NArg() < 1 {
		return "", fmt.Errorf("missing required argument: TYPE (%s)", strings.Join(typeNames(), ", "))
	}
	return prompts.ParseType(c.Args().Get(0))
}

func runPromptsList(c *cli.Context) error {
	env, closer, err := promptStore(c)
	if err != nil {
		return err
	}
	defer closer.Close()
	store := env.store
	w := c.App.Writer

	fmt.Fprintln(w, headerStyle.Render("Prompts in "+store.Dir()))
	for _, t := range prompts.AllTypes() {
		fmt.Fprintln(w, sectionStyle.Render(t.DisplayName()))
		fmt.Fprintln(w, field("file", t.Filename()))

		set, err := store.ReadSet(t)
		if errors.Is(err, prompts.ErrCorruptSet) {
			fmt.Fprintln(w, errorStyle.Render("corrupt: "+err.Error()))
			continue
		}
		if err != nil {
			return err
		}

		active, fallback, ok := set.Active()
		if !ok {
			fmt.Fprintln(w, field("versions", warnStyle.Render("none")))
			continue
		}
		activeLabel := okStyle.Render(fmt.Sprintf("v%d", active.Version))
		if fallback {
			activeLabel = warnStyle.Render(fmt.Sprintf("v%d (latest, none flagged)", active.Version))
		}
		fmt.Fprintln(w, field("versions", strconv.Itoa(len(set))))
		fmt.Fprintln(w, field("active", activeLabel))
		fmt.Fprintln(w, field("modified", active.LastModifiedAt.Format("2006-01-02 15:04:05Z07:00")))
		fmt.Fprintln(w, field("tokens", "~"+strconv.Itoa(env.estimator.Estimate(active.Content))))
		if vars := t.Tokens(); len(vars) > 0 {
			fmt.Fprintln(w, field("variables", strings.Join(vars, " ")))
		}
	}
	return nil
}

func runPromptsShow(c *cli.Context) error {
	t, err := typeArg(c)
	if err != nil {
		return err
	}
	env, closer, err := promptStore(c)
	if err != nil {
		return err
	}
	defer closer.Close()
	store := env.store

	var v prompts.PromptVersion
	if want := c.Int("version"); want > 0 {
		set, err := store.ReadSet(t)
		if err != nil {
			return err
		}
		found, ok := set.Find(want)
		if !ok {
			return fmt.Errorf("%w: %s v%d", prompts.ErrVersionNotFound, t, want)
		}
		v = found
	} else {
		active, err := store.Active(t)
		if err != nil {
			return err
		}
		v = *active
	}

	return writeVersion(c.App.Writer, v, c.String("format"))
}

func writeVersion(w io.Writer, v prompts.PromptVersion, format string) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "", "text":
		_, err := io.WriteString(w, v.Content)
		if err == nil && !strings.HasSuffix(v.Content, "\n") {
			_, err = io.WriteString(w, "\n")
		}
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func runPromptsAdd(c *cli.Context) error {
	t, err := typeArg(c)
	if err != nil {
		return err
	}
	content, err := readContent(c.App.Reader, c.String("file"))
	if err != nil {
		return err
	}
	if strings.TrimSpace(content) == "" {
		return errors.New("prompt content cannot be empty")
	}

	env, closer, err := promptStore(c)
	if err != nil {
		return err
	}
	defer closer.Close()
	store := env.store
	v, err := store.AddVersion(t, content, c.String("message"))
	if err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer, okStyle.Render(fmt.Sprintf("Added %s v%d (active)", t, v.Version)))
	for _, name := range prompts.Undeclared(t, content) {
		fmt.Fprintln(c.App.Writer, warnStyle.Render(fmt.Sprintf("warning: %s is not a known variable for %s", prompts.Token(name), t)))
	}
	return nil
}

func readContent(stdin io.Reader, path string) (string, error) {
	if path == "" || path == "-" {
		if stdin == nil {
			stdin = os.Stdin
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func runPromptsActivate(c *cli.Context) error {
	t, err := typeArg(c)
	if err != nil {
		return err
	}
	if c.NArg() < 2 {
		return errors.New("missing required argument: VERSION")
	}
	version, err := strconv.Atoi(c.Args().Get(1))
	if err != nil || version <= 0 {
		return fmt.Errorf("invalid version %q", c.Args().Get(1))
	}

	env, closer, err := promptStore(c)
	if err != nil {
		return err
	}
	defer closer.Close()
	store := env.store
	v, err := store.Activate(t, version)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, okStyle.Render(fmt.Sprintf("Activated %s v%d", t, v.Version)))
	return nil
}

func runPromptsRender(c *cli.Context) error {
	t, err := typeArg(c)
	if err != nil {
		return err
	}
	values := make(map[string]string)
	for _, kv := range c.StringSlice("var") {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("invalid --var %q, expected NAME=VALUE", kv)
		}
		values[strings.TrimSpace(name)] = value
	}

	env, closer, err := promptStore(c)
	if err != nil {
		return err
	}
	defer closer.Close()
	store := env.store
	active, err := store.Active(t)
	if err != nil {
		return err
	}

	filled := prompts.FillPrompt(t, active.Content, values)
	fmt.Fprintln(c.App.Writer, filled)
	fmt.Fprintln(c.App.ErrWriter, labelStyle.Render(fmt.Sprintf("%s v%d, ~%d tokens", t, active.Version, env.estimator.Estimate(filled))))
	return nil
}

func runPromptsInit(c *cli.Context) error {
	env, closer, err := promptStore(c)
	if err != nil {
		return err
	}
	defer closer.Close()
	store := env.store
	if err := store.Initialize(); err != nil {
		return err
	}
	created := 0
	if seed := c.String("seed"); seed != "" {
		if created, err = store.Seed(seed); err != nil {
			return err
		}
	}
	fmt.Fprintln(c.App.Writer, okStyle.Render(fmt.Sprintf("Initialized %s (%d version(s) seeded)", store.Dir(), created)))
	return nil
}
