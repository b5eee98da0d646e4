package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/vaultgraph/internal"
	pkgconfig "github.com/starford/vaultgraph/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadIfExists(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	// The flag wins over the file.
	if vault := cmd.String("vault"); vault != "" {
		cfg.Vault.Path = vault
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func renderGraph(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.IsSet("steps") {
		cfg.Render.Steps = int(cmd.Int("steps"))
	}
	if cmd.IsSet("output") {
		cfg.Render.Output = cmd.String("output")
	}
	if cmd.IsSet("format") {
		cfg.Render.Format = cmd.String("format")
	}
	if cmd.IsSet("width") {
		cfg.Render.Width = int(cmd.Int("width"))
	}
	if cmd.IsSet("height") {
		cfg.Render.Height = int(cmd.Int("height"))
	}
	if err := cfg.Render.Validate(); err != nil {
		return fmt.Errorf("render: %w", err)
	}

	// The image may go to stdout, so logs go to stderr.
	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithLogOutput(os.Stderr),
	}
	if err := internal.Render(ctx, os.Stdout, opts...); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithLogOutput(os.Stderr),
	}
	if err := internal.ServeMCP(ctx, opts...); err != nil {
		return fmt.Errorf("mcp error: %w", err)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "vaultgraph",
		Usage:  "Knowledge graph of a Markdown vault with live force-directed layout",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "vault",
				Usage:   "Vault directory (overrides vault.path)",
				Sources: cli.EnvVars("VAULT_PATH"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the graph over HTTP with live SSE updates",
				Action: serve,
			},
			{
				Name:   "render",
				Usage:  "Settle the layout and write one SVG or PNG image",
				Action: renderGraph,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "steps", Usage: "Layout steps before drawing"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file, - for stdout"},
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "svg or png"},
					&cli.IntFlag{Name: "width", Usage: "Image width in pixels"},
					&cli.IntFlag{Name: "height", Usage: "Image height in pixels"},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Expose the graph to MCP clients over stdio",
				Action: serveMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
