package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/caldera-dev/caldera/config"
	"github.com/caldera-dev/caldera/query"
	"github.com/caldera-dev/caldera/rules"
	"github.com/caldera-dev/caldera/rules/builtin"
	"github.com/caldera-dev/caldera/store"
	"github.com/caldera-dev/caldera/vfs"
	"github.com/caldera-dev/caldera/walk"
)

// analysis is every piece of wiring a subcommand needs, assembled once per
// invocation by setupAnalysis.
type analysis struct {
	fs       *vfs.OS
	store    *store.Store
	engine   *query.Engine
	registry *rules.Registry
	checker  *rules.Checker
	cfg      config.Resolved
	roots    []string
	dir      string
}

func setupAnalysis(cmd *cobra.Command, args []string) (*analysis, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getwd: %w", err)
	}

	cfg, err := resolveConfig(cmd, dir)
	if err != nil {
		return nil, err
	}

	fsys, err := vfs.NewOS(dir)
	if err != nil {
		return nil, fmt.Errorf("open workspace root %s: %w", dir, err)
	}
	canonicalDir, err := fsys.Canonicalize(dir)
	if err != nil {
		return nil, fmt.Errorf("canonicalize workspace root %s: %w", dir, err)
	}

	st := store.New(fsys)
	engine := query.NewEngine()
	engine.SetFileRevisionSource(st)

	reg := rules.NewRegistry()
	if err := builtin.Register(reg); err != nil {
		return nil, fmt.Errorf("register built-in rules: %w", err)
	}

	checker := &rules.Checker{
		Engine:   engine,
		Registry: reg,
		Syntax:   builtin.LineSyntaxProvider{},
		Store:    st,
		Logger:   slog.Default(),
	}

	roots := args
	if len(roots) == 0 {
		roots = []string{"."}
	}

	return &analysis{
		fs:       fsys,
		store:    st,
		engine:   engine,
		registry: reg,
		checker:  checker,
		cfg:      cfg,
		roots:    roots,
		dir:      canonicalDir,
	}, nil
}

func resolveConfig(cmd *cobra.Command, dir string) (config.Resolved, error) {
	var fileCfg config.File
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = filepath.Join(dir, "caldera.toml")
	}
	if _, err := os.Stat(configPath); err == nil {
		loaded, err := config.Load(configPath)
		if err != nil {
			return config.Resolved{}, fmt.Errorf("load %s: %w", configPath, err)
		}
		fileCfg = loaded
	}

	cli := cliOverrides(cmd)
	return config.Resolve(cli, fileCfg, config.FromEnvironment()), nil
}

func cliOverrides(cmd *cobra.Command) config.File {
	var f config.File
	if v, _ := cmd.Flags().GetStringSlice("select"); len(v) > 0 {
		f.Select = v
	}
	if v, _ := cmd.Flags().GetStringSlice("ignore"); len(v) > 0 {
		f.Ignore = v
	}
	if v, _ := cmd.Flags().GetInt("line-length"); v > 0 {
		f.LineLength = v
	}
	if v, _ := cmd.Flags().GetString("target-version"); v != "" {
		f.TargetVersion = v
	}
	if v, _ := cmd.Flags().GetString("output-format"); v != "" {
		f.OutputFormat = v
	}
	if cmd.Flags().Changed("respect-gitignore") {
		v, _ := cmd.Flags().GetBool("respect-gitignore")
		f.RespectGitignore = &v
	}
	return f
}

func (a *analysis) walkOptions() walk.Options {
	var patterns []walk.PatternRule
	patterns = append(patterns, walk.Includes(a.cfg.Include...)...)
	patterns = append(patterns, walk.Excludes(a.cfg.Exclude...)...)
	return walk.Options{
		Extensions:       []string{".py", ".pyi"},
		Patterns:         patterns,
		RespectGitignore: a.cfg.RespectGitignore,
	}
}
