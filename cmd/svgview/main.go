package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/svgview/internal"
	"github.com/starford/svgview/internal/clipboard"
	"github.com/starford/svgview/internal/commands"
	"github.com/starford/svgview/internal/loop"
	"github.com/starford/svgview/internal/notify"
	"github.com/starford/svgview/internal/raster"
	"github.com/starford/svgview/internal/settings"
	"github.com/starford/svgview/internal/storage"
	"github.com/starford/svgview/internal/workspace"
	pkgconfig "github.com/starford/svgview/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}
	if path := cmd.String("config"); fileExists(path) {
		opts = append(opts, internal.WithConfigFile(path))
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// stdout carries the MCP protocol, so logs go to stderr.
	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithLogOutput(os.Stderr),
		internal.WithMCP(os.Stdin, os.Stdout),
	}
	if path := cmd.String("config"); fileExists(path) {
		opts = append(opts, internal.WithConfigFile(path))
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

// oneShot builds a command service over the workspace for commands that do
// not open panels.
func oneShot(cmd *cli.Command, clip clipboard.Clipboard) (*commands.Service, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel}))

	root := cfg.Workspace.Root
	if r := cmd.String("root"); r != "" {
		root = r
	}
	store, err := storage.NewFS(root)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}
	rasterizer, err := raster.New(cfg.Raster.Options())
	if err != nil {
		return nil, nil, fmt.Errorf("init rasterizer: %w", err)
	}

	l := loop.New(logger)
	notifier := notify.Writer(os.Stderr)
	svc := commands.New(commands.Deps{
		Documents:  workspace.New(store, l, logger),
		Settings:   settings.Static(cfg.Viewer),
		Rasterizer: rasterizer,
		Clipboard:  clip,
		Saver:      commands.NewSaver(store, notifier, logger),
		Notifier:   notifier,
		Loop:       l,
		Logger:     logger,
	})
	return svc, l.Close, nil
}

func export(ctx context.Context, cmd *cli.Command) error {
	files := cmd.Args().Slice()
	if len(files) == 0 {
		return fmt.Errorf("export: at least one SVG file is required")
	}
	svc, done, err := oneShot(cmd, &clipboard.Memory{})
	if err != nil {
		return err
	}
	defer done()

	args := commands.Args{URIs: files, Width: cmd.String("width"), Height: cmd.String("height")}
	id := commands.SaveAs
	var prompt commands.Prompter
	switch {
	case args.Width != "" || args.Height != "":
		id = commands.SaveAsSize
	case cmd.Bool("ask"):
		id = commands.SaveAsSize
		prompt = commands.NewTerminal(os.Stdin, os.Stderr)
	}

	res, err := svc.Execute(ctx, id, args, prompt)
	for _, out := range res.Outputs {
		fmt.Fprintln(os.Stdout, out)
	}
	return err
}

func copyDataURI(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("copy: exactly one SVG file is required")
	}
	var clip clipboard.Clipboard = clipboard.NewTerminal(os.Stderr)
	if cmd.Bool("print") {
		clip = &clipboard.Memory{}
	}
	svc, done, err := oneShot(cmd, clip)
	if err != nil {
		return err
	}
	defer done()

	res, err := svc.Execute(ctx, commands.CopyDUI, commands.Args{URIs: cmd.Args().Slice()}, nil)
	if err != nil {
		return err
	}
	if res.DataURI != "" {
		fmt.Fprintln(os.Stdout, res.DataURI)
	}
	return nil
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}
	rootFlag := &cli.StringFlag{
		Name:  "root",
		Usage: "Workspace root (overrides workspace.root)",
	}

	cmd := &cli.Command{
		Name:   "svgview",
		Usage:  "Live SVG preview panels in the browser, PNG export and data URIs",
		Action: serve,
		Flags:  []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Run the HTTP server and serve MCP tools on stdio",
				Action: serveMCP,
			},
			{
				Name:      "export",
				Usage:     "Rasterise SVG files to sibling PNG files",
				ArgsUsage: "FILE...",
				Action:    export,
				Flags: []cli.Flag{
					rootFlag,
					&cli.StringFlag{Name: "width", Usage: "Output width in pixels"},
					&cli.StringFlag{Name: "height", Usage: "Output height in pixels"},
					&cli.BoolFlag{Name: "ask", Usage: "Prompt for width and height"},
				},
			},
			{
				Name:      "copy",
				Usage:     "Copy an SVG file as a data URI to the terminal clipboard",
				ArgsUsage: "FILE",
				Action:    copyDataURI,
				Flags: []cli.Flag{
					rootFlag,
					&cli.BoolFlag{Name: "print", Usage: "Only print the data URI"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
