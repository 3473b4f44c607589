// Command caldera-lsp is the Language Server Protocol entry point: it
// wires the same store/query/rules stack cmd/caldera assembles for batch
// analysis into an editor-facing session, speaking LSP over stdio.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/caldera-dev/caldera/config"
	"github.com/caldera-dev/caldera/lsp"
	"github.com/caldera-dev/caldera/query"
	"github.com/caldera-dev/caldera/rules"
	"github.com/caldera-dev/caldera/rules/builtin"
	"github.com/caldera-dev/caldera/store"
	"github.com/caldera-dev/caldera/vfs"
)

var version = "dev"

// LevelTrace is a custom log level below debug for verbose tracing.
const LevelTrace = slog.Level(-8)

// isCleanShutdown reports whether err represents a normal client
// disconnect rather than a real failure. LSP clients commonly close stdio
// on exit, which should not be logged as fatal.
func isCleanShutdown(err error) bool {
	if errors.Is(err, io.EOF) {
		return true
	}
	if errors.Is(err, os.ErrClosed) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "broken pipe") || strings.Contains(errStr, "EPIPE")
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "caldera-lsp: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("caldera-lsp", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		logLevel   = fs.String("log-level", "info", "log level: error|warn|info|debug|trace")
		logFile    = fs.String("log-file", "", "log file path (empty to log to stderr)")
		moduleRoot = fs.String("module-root", "", "workspace root for file resolution (default: current directory)")
		configPath = fs.String("config", "", "path to caldera.toml (default: <module-root>/caldera.toml if present)")
		showVer    = fs.Bool("version", false, "print version and exit")
		_          = fs.Bool("stdio", false, "use stdio transport (default, accepted for editor compatibility)")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: caldera-lsp [options]\n\n")
		fmt.Fprintf(os.Stderr, "Language Server Protocol front end for caldera.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.SetOutput(os.Stderr)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		fs.Usage()
		return fmt.Errorf("parse flags: %w", err)
	}

	if *showVer {
		fmt.Printf("caldera-lsp %s\n", version)
		return nil
	}

	logger, cleanup, err := setupLogger(*logLevel, *logFile)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer cleanup()

	logger.Info("starting caldera-lsp",
		slog.String("version", version),
		slog.String("log_level", *logLevel),
	)

	root := *moduleRoot
	if root == "" {
		root, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("getwd: %w", err)
		}
	}

	canonicalRoot := root
	if absRoot, err := filepath.Abs(root); err == nil {
		if resolved, err := filepath.EvalSymlinks(absRoot); err == nil {
			absRoot = resolved
		}
		canonicalRoot = filepath.Clean(absRoot)
		if canonicalRoot != root {
			logger.Debug("canonicalized module root",
				slog.String("original", root),
				slog.String("canonical", canonicalRoot),
			)
		}
	}

	if info, err := os.Stat(canonicalRoot); err != nil {
		logger.Warn("module root does not exist; analysis may fail",
			slog.String("path", canonicalRoot),
			slog.String("error", err.Error()),
		)
	} else if !info.IsDir() {
		logger.Warn("module root is not a directory; analysis may fail",
			slog.String("path", canonicalRoot),
		)
	}

	fsys, err := vfs.NewOS(canonicalRoot)
	if err != nil {
		return fmt.Errorf("open module root %s: %w", canonicalRoot, err)
	}

	resolvedConfigPath := *configPath
	if resolvedConfigPath == "" {
		resolvedConfigPath = filepath.Join(canonicalRoot, "caldera.toml")
	}
	var fileCfg config.File
	if _, statErr := os.Stat(resolvedConfigPath); statErr == nil {
		fileCfg, err = config.Load(resolvedConfigPath)
		if err != nil {
			return fmt.Errorf("load %s: %w", resolvedConfigPath, err)
		}
	}
	resolved := config.Resolve(config.File{}, fileCfg, config.FromEnvironment())

	st := store.New(fsys)
	engine := query.NewEngine(query.WithLogger(logger))
	engine.SetFileRevisionSource(st)

	reg := rules.NewRegistry()
	if err := builtin.Register(reg); err != nil {
		return fmt.Errorf("register built-in rules: %w", err)
	}

	checker := &rules.Checker{
		Engine:   engine,
		Registry: reg,
		Syntax:   builtin.LineSyntaxProvider{},
		Store:    st,
		Logger:   logger,
	}
	cfg := lsp.Config{ModuleRoot: canonicalRoot}
	srv := lsp.NewServer(logger, cfg, fsys, st, engine, checker)
	srv.SetSelection(resolved.RuleSelection())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.RunStdio() }()

	logger.Info("running on stdio")

	select {
	case err := <-errCh:
		if err != nil {
			if isCleanShutdown(err) {
				logger.Debug("client closed connection")
			} else {
				return fmt.Errorf("run server: %w", err)
			}
		}
		logger.Info("server shutdown complete")
		return nil
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", slog.String("signal", sig.String()))
		srv.Shutdown()
		if err := srv.Close(); err != nil {
			logger.Warn("error closing connection", slog.String("error", err.Error()))
		}

		if err := os.Stdin.Close(); err != nil {
			logger.Debug("error closing stdin", slog.String("error", err.Error()))
		}

		select {
		case err := <-errCh:
			if err != nil {
				logger.Debug("RunStdio returned after close", slog.String("error", err.Error()))
			}
		case <-time.After(5 * time.Second):
			logger.Warn("shutdown timed out, forcing exit")
		}

		logger.Info("server shutdown complete")
		return nil
	}
}

func setupLogger(level, logFile string) (*slog.Logger, func(), error) {
	var slogLevel slog.Level
	switch level {
	case "error":
		slogLevel = slog.LevelError
	case "warn":
		slogLevel = slog.LevelWarn
	case "info":
		slogLevel = slog.LevelInfo
	case "debug":
		slogLevel = slog.LevelDebug
	case "trace":
		slogLevel = LevelTrace
	default:
		return nil, nil, fmt.Errorf("invalid log level: %q", level)
	}

	var w io.Writer = os.Stderr
	cleanup := func() {}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		cleanup = func() { _ = f.Close() }
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     slogLevel,
		AddSource: true,
	})

	return slog.New(handler), cleanup, nil
}
