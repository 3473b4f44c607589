package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caldera-dev/caldera/cachefile"
	"github.com/caldera-dev/caldera/diag"
	"github.com/caldera-dev/caldera/location"
	"github.com/caldera-dev/caldera/rules"
	"github.com/caldera-dev/caldera/store"
	"github.com/caldera-dev/caldera/walk"
)

var checkCmd = &cobra.Command{
	Use:   "check [paths...]",
	Short: "Lint a workspace and report diagnostics",
	Args:  cobra.ArbitraryArgs,
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().Bool("cache", true, "reuse a diagnostics cache side file (json output only)")
	checkCmd.Flags().String("cache-file", ".caldera_cache", "path to the diagnostics cache side file")
}

func runCheck(cmd *cobra.Command, args []string) error {
	a, err := setupAnalysis(cmd, args)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	files, diagnostics := walk.Walk(ctx, a.fs, a.store, a.roots, a.walkOptions())

	selection := a.cfg.RuleSelection()
	renderer := diag.NewRenderer(
		diag.WithSourceProvider(storeSourceProvider{fs: a.fs}),
		diag.WithExcerpts(a.cfg.OutputFormat == "full"),
		diag.WithModuleRoot(a.dir),
	)

	if a.cfg.OutputFormat == "json" {
		return runCheckJSON(ctx, cmd, a, selection, files, diagnostics, renderer)
	}

	for _, file := range files {
		fileDiags, err := a.checker.Check(ctx, selection, file)
		if err != nil {
			return fmt.Errorf("check %s: %w", file, err)
		}
		diagnostics = append(diagnostics, fileDiags...)
	}

	collector := diag.NewCollectorUnlimited()
	collector.CollectAll(diagnostics)
	result := collector.Result()

	out := cmd.OutOrStdout()
	switch a.cfg.OutputFormat {
	case "grouped":
		fmt.Fprintln(out, renderer.FormatGrouped(result))
	default:
		fmt.Fprintln(out, renderer.FormatResult(result))
	}

	if result.HasErrors() {
		return errDiagnosticsFound
	}
	return nil
}

// runCheckJSON is the one path that consults the on-disk diagnostics
// cache: cached entries are opaque serialized JSON, so they can only ever
// feed the json renderer without a round trip back through a full
// diag.Diagnostic. Every other output format runs the checker directly.
func runCheckJSON(ctx context.Context, cmd *cobra.Command, a *analysis, selection rules.RuleSelection, files []store.File, walkDiags []diag.Diagnostic, renderer *diag.Renderer) error {
	useCache, _ := cmd.Flags().GetBool("cache")
	cachePath, _ := cmd.Flags().GetString("cache-file")
	ruleSetHash := selection.Fingerprint()

	var cache *cachefile.Cache
	if useCache {
		cache = cachefile.ReadFile(cachePath, ruleSetHash)
	} else {
		cache = cachefile.New(ruleSetHash)
	}

	var entries []json.RawMessage
	hasErrors := false

	for _, d := range walkDiags {
		entries = append(entries, renderer.FormatDiagnosticJSON(d))
		if d.Severity() == diag.Error {
			hasErrors = true
		}
	}

	for _, file := range files {
		fileEntries, fileHasErrors, err := checkFileJSON(ctx, a, renderer, selection, file, cache)
		if err != nil {
			return fmt.Errorf("check %s: %w", file, err)
		}
		entries = append(entries, fileEntries...)
		hasErrors = hasErrors || fileHasErrors
	}

	if useCache {
		if err := cache.WriteFile(cachePath); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "caldera: warning: failed to write cache:", err)
		}
	}

	if entries == nil {
		entries = []json.RawMessage{}
	}
	if err := json.NewEncoder(cmd.OutOrStdout()).Encode(entries); err != nil {
		return fmt.Errorf("encode diagnostics: %w", err)
	}

	if hasErrors {
		return errDiagnosticsFound
	}
	return nil
}

// checkFileJSON consults cache for file's current content hash before
// falling back to a:checker.Check, storing the freshly serialized result
// back into cache on a miss. A cache entry packs every diagnostic for one
// file into a single JSON array value, so cache.Lookup/Store deal in
// whole-file units rather than per-diagnostic ones.
func checkFileJSON(ctx context.Context, a *analysis, renderer *diag.Renderer, selection rules.RuleSelection, file store.File, cache *cachefile.Cache) ([]json.RawMessage, bool, error) {
	hash, haveHash := contentHashOf(a, file)
	if haveHash {
		if packed, hit := cache.Lookup(hash); hit {
			return unpackEntries(packed)
		}
	}

	diagnostics, err := a.checker.Check(ctx, selection, file)
	if err != nil {
		return nil, false, err
	}

	hasErrors := false
	entries := make([]json.RawMessage, 0, len(diagnostics))
	for _, d := range diagnostics {
		entries = append(entries, renderer.FormatDiagnosticJSON(d))
		if d.Severity() == diag.Error {
			hasErrors = true
		}
	}

	if haveHash {
		if packed, err := json.Marshal(entries); err == nil {
			cache.Store(hash, packed)
		}
	}

	return entries, hasErrors, nil
}

func unpackEntries(packed []byte) ([]json.RawMessage, bool, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(packed, &entries); err != nil {
		return nil, false, nil
	}
	hasErrors := false
	for _, raw := range entries {
		var sev struct {
			Severity string `json:"severity"`
		}
		if err := json.Unmarshal(raw, &sev); err == nil && sev.Severity == "error" {
			hasErrors = true
		}
	}
	return entries, hasErrors, nil
}

func contentHashOf(a *analysis, file store.File) (string, bool) {
	path, ok := a.store.Path(file)
	if !ok {
		return "", false
	}
	content, err := a.fs.ReadFile(path.String())
	if err != nil {
		return "", false
	}
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:]), true
}

// storeSourceProvider adapts a vfs.System to diag.SourceProvider for the
// text renderers' source excerpts. Unlike an LSP session's incrementally
// built in-memory map, the CLI has already walked the whole workspace
// before rendering, so reading straight through the filesystem is simpler
// than threading store.File handles through the renderer.
type storeSourceProvider struct {
	fs interface {
		ReadFile(path string) ([]byte, error)
	}
}

func (p storeSourceProvider) Content(span location.Span) ([]byte, bool) {
	content, err := p.fs.ReadFile(span.Source.String())
	if err != nil {
		return nil, false
	}
	return content, true
}
