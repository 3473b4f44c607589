package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caldera-dev/caldera/diag"
	"github.com/caldera-dev/caldera/rules"
	"github.com/caldera-dev/caldera/walk"
)

var formatCmd = &cobra.Command{
	Use:   "format [paths...]",
	Short: "Apply available autofixes to a workspace",
	Args:  cobra.ArbitraryArgs,
	RunE:  runFormat,
}

func init() {
	formatCmd.Flags().Bool("unsafe-fixes", false, "also apply fixes marked unsafe")
	formatCmd.Flags().Bool("check", false, "report what would change without writing (exit 1 if anything would)")
}

func runFormat(cmd *cobra.Command, args []string) error {
	a, err := setupAnalysis(cmd, args)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	files, walkDiags := walk.Walk(ctx, a.fs, a.store, a.roots, a.walkOptions())
	selection := a.cfg.RuleSelection()

	var diagnostics []diag.Diagnostic
	diagnostics = append(diagnostics, walkDiags...)
	for _, file := range files {
		fileDiags, err := a.checker.Check(ctx, selection, file)
		if err != nil {
			return fmt.Errorf("check %s: %w", file, err)
		}
		diagnostics = append(diagnostics, fileDiags...)
	}

	mode := rules.ApplySafeOnly
	if unsafe, _ := cmd.Flags().GetBool("unsafe-fixes"); unsafe {
		mode = rules.ApplyIncludeUnsafe
	}

	checkOnly, _ := cmd.Flags().GetBool("check")
	if checkOnly {
		return reportFormatCheck(cmd, diagnostics, mode)
	}

	result, err := rules.ApplyFixes(ctx, a.checker.Logger, a.store, a.fs, diagnostics, mode)
	if err != nil {
		return fmt.Errorf("apply fixes: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d file(s) changed, %d edit(s) applied\n", result.FilesChanged, result.EditsApplied)
	for _, skipped := range result.Skipped {
		fmt.Fprintf(out, "skipped %s: %s\n", skipped.Diagnostic.ID(), skipped.Reason)
	}

	return nil
}

// reportFormatCheck answers `caldera format --check` without writing
// anything: it counts how many diagnostics carry a fix mode would apply
// and reports non-zero via errDiagnosticsFound if any would change,
// mirroring gofmt -l and black --check rather than rewriting files.
func reportFormatCheck(cmd *cobra.Command, diagnostics []diag.Diagnostic, mode rules.ApplyMode) error {
	changed := make(map[string]bool)
	for _, d := range diagnostics {
		fix, ok := d.Fix()
		if !ok {
			continue
		}
		if !applicableUnder(mode, fix.Applicability()) {
			continue
		}
		changed[d.File().String()] = true
	}

	out := cmd.OutOrStdout()
	for file := range changed {
		fmt.Fprintln(out, file)
	}

	if len(changed) > 0 {
		return errDiagnosticsFound
	}
	return nil
}

func applicableUnder(mode rules.ApplyMode, a diag.Applicability) bool {
	switch a {
	case diag.Safe:
		return true
	case diag.Unsafe:
		return mode == rules.ApplyIncludeUnsafe
	default:
		return false
	}
}
