// Command fillin renders bracket-placeholder patterns from data files,
// SQL rows, the command line or HTTP requests.
//
// Usage:
//
//	fillin render "Hello [Name]" --set Name=Ada
//	fillin render -f invoice.md -d invoice.json -o invoice.html --markdown
//	fillin query "SELECT * FROM invoices" -f reminder.txt
//	fillin serve --port 8080
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/sambeau/fillin/config"
	"github.com/sambeau/fillin/pkg/fillin"
	"github.com/sambeau/fillin/pkg/logger"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

// CLI defines the command-line interface.
type CLI struct {
	Render  RenderCmd  `cmd:"" help:"Render a pattern from data files and name=value pairs."`
	Query   QueryCmd   `cmd:"" help:"Render a pattern once per SQL result row."`
	Check   CheckCmd   `cmd:"" help:"Parse a pattern and list its terms without rendering."`
	Watch   WatchCmd   `cmd:"" help:"Re-render a pattern file whenever it or its data changes."`
	Repl    ReplCmd    `cmd:"" help:"Start an interactive pattern shell."`
	Serve   ServeCmd   `cmd:"" help:"Start the HTTP rendering service."`
	Notify  NotifyCmd  `cmd:"" help:"Render and send one email per record."`
	Version VersionCmd `cmd:"" help:"Show version information."`

	Config    string `short:"c" help:"Path to config file (default: FILLIN_CONFIG, ./fillin.yaml, ~/.config/fillin/fillin.yaml)." type:"path"`
	Profile   string `short:"p" help:"Config profile to apply."`
	Culture   string `help:"Culture for numbers and dates (e.g. en-GB, de-DE). Overrides the config."`
	LogLevel  string `help:"Log level (debug, info, warn, error). Overrides the config."`
	LogFormat string `help:"Log format (simple, text, json). Overrides the config."`
	LogFile   string `help:"Log file path. Overrides the config."`
}

// app carries everything a command needs. Commands receive it through
// kong's Run binding.
type app struct {
	ctx        context.Context
	cfg        *config.Config
	configPath string
	engine     *fillin.Engine
	logger     *slog.Logger
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
	getenv     func(string) string
	environ    []string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, os.Getenv, os.Environ()); err != nil {
		fmt.Fprintf(os.Stderr, "fillin: error: %v\n", err)
		os.Exit(1)
	}
}

// run parses args and executes the selected command.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, getenv func(string) string, environ []string) error {
	cli := CLI{}
	parser, err := kong.New(&cli,
		kong.Name("fillin"),
		kong.Description("fillin - bracket-placeholder pattern rendering"),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	a, cleanup, err := newApp(ctx, &cli, stdin, stdout, stderr, getenv, environ)
	if err != nil {
		return err
	}
	defer cleanup()

	return kctx.Run(a)
}

// newApp loads configuration, applies command-line overrides, and builds the
// logger and engine.
func newApp(ctx context.Context, cli *CLI, stdin io.Reader, stdout, stderr io.Writer, getenv func(string) string, environ []string) (*app, func(), error) {
	noop := func() {}

	cfg, path, err := config.LoadWithPath(cli.Config, getenv)
	if err != nil {
		return nil, noop, err
	}
	if path != "" {
		if err := config.LoadDotEnvForConfig(path); err != nil {
			return nil, noop, err
		}
	}
	if cli.Profile != "" {
		if err := config.ApplyProfile(cfg, cli.Profile); err != nil {
			return nil, noop, err
		}
	}

	if cli.Culture != "" {
		cfg.Culture = cli.Culture
	}
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}
	if cli.LogFormat != "" {
		cfg.Logging.Format = cli.LogFormat
	}
	if cli.LogFile != "" {
		cfg.Logging.Output = cli.LogFile
	}

	log, cleanup, err := newLogger(cfg.Logging, stdout, stderr)
	if err != nil {
		return nil, noop, err
	}
	for _, w := range config.Warnings(cfg) {
		log.Debug("config warning", "warning", w)
	}

	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		cleanup()
		return nil, noop, err
	}

	return &app{
		ctx:        ctx,
		cfg:        cfg,
		configPath: path,
		engine:     fillin.New(fillin.WithConfig(engineCfg), fillin.WithLogger(log)),
		logger:     log,
		stdin:      stdin,
		stdout:     stdout,
		stderr:     stderr,
		getenv:     getenv,
		environ:    environ,
	}, cleanup, nil
}

// newLogger builds the logger from the logging config.
// Priority: command-line flags > config file > defaults
func newLogger(cfg config.LoggingConfig, stdout, stderr io.Writer) (*slog.Logger, func(), error) {
	level, err := logger.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	if !logger.ValidFormat(cfg.Format) {
		return nil, nil, fmt.Errorf("unknown log format %q (want simple, text or json)", cfg.Format)
	}

	var w io.Writer
	cleanup := func() {}
	switch cfg.Output {
	case "", "stderr":
		w = stderr
	case "stdout":
		w = stdout
	default:
		f, closeFile, err := logger.OpenLogFile(cfg.Output)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		w, cleanup = f, closeFile
	}
	return logger.Init(level, w, cfg.Format), cleanup, nil
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(a *app) error {
	fmt.Fprintf(a.stdout, "fillin version %s\n", version())
	return nil
}

func version() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			return info.Main.Version
		}
	}
	return Version
}
