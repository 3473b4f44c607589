package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/jsonc"

	"github.com/caldera-dev/caldera/diag"
	"github.com/caldera-dev/caldera/rules"
)

// VersionProvenance records where a resolved target-version value came
// from, so a rule that consulted it can attach the provenance to its
// diagnostics.
type VersionProvenance int

const (
	// ProvenanceDefault means no layer specified a version; the tool's
	// built-in default was used.
	ProvenanceDefault VersionProvenance = iota
	// ProvenanceEnvironment means the version came from the
	// CALDERA_TARGET_VERSION environment variable.
	ProvenanceEnvironment
	// ProvenanceConfigFile means the version came from caldera.toml's
	// target-version key.
	ProvenanceConfigFile
	// ProvenanceCommandLine means the version came from an explicit CLI
	// flag, the highest-precedence source.
	ProvenanceCommandLine
	// ProvenanceVirtualenvMetadata means the version was inferred from an
	// active virtualenv's installed interpreter metadata. Reserved for a
	// future CLI driver that inspects pyvenv.cfg; this core only defines
	// the provenance tag.
	ProvenanceVirtualenvMetadata
	// ProvenanceInstallationLayout means the version was inferred from the
	// layout of an installed package (e.g. a `py3.11` site-packages
	// directory name). Reserved for the same reason as above.
	ProvenanceInstallationLayout
)

// String returns a human-readable label, used in diagnostic details.
func (p VersionProvenance) String() string {
	switch p {
	case ProvenanceEnvironment:
		return "environment"
	case ProvenanceConfigFile:
		return "config-file"
	case ProvenanceCommandLine:
		return "command-line"
	case ProvenanceVirtualenvMetadata:
		return "virtualenv-metadata"
	case ProvenanceInstallationLayout:
		return "installation-layout"
	default:
		return "default"
	}
}

// TargetVersion is a resolved Python target version together with which
// layer supplied it.
type TargetVersion struct {
	Value      string
	Provenance VersionProvenance
}

// File is the shape of a parsed caldera.toml project file or a JSONC
// editor settings block. Every field is optional; Resolve fills gaps from
// lower-precedence layers.
type File struct {
	Select           []string `toml:"select" json:"select"`
	Ignore           []string `toml:"ignore" json:"ignore"`
	LineLength       int      `toml:"line-length" json:"lineLength"`
	TargetVersion    string   `toml:"target-version" json:"targetVersion"`
	OutputFormat     string   `toml:"output-format" json:"outputFormat"`
	Include          []string `toml:"include" json:"include"`
	Exclude          []string `toml:"exclude" json:"exclude"`
	RespectGitignore *bool    `toml:"respect-gitignore" json:"respectGitignore"`
}

// Load parses a TOML project file at path.
func Load(path string) (File, error) {
	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return File{}, fmt.Errorf("config: load %s: %w", path, err)
	}
	return f, nil
}

// ParseJSONC parses a JSONC-encoded settings block (comments and trailing
// commas permitted), the shape an editor embeds in its own configuration
// rather than a standalone caldera.toml.
func ParseJSONC(data []byte) (File, error) {
	var f File
	clean := jsonc.ToJSON(data)
	if err := json.Unmarshal(clean, &f); err != nil {
		return File{}, fmt.Errorf("config: parse jsonc: %w", err)
	}
	return f, nil
}

// FromEnvironment reads the small subset of settings caldera also accepts
// as environment variables: CALDERA_TARGET_VERSION and
// CALDERA_LINE_LENGTH. Both are optional.
func FromEnvironment() File {
	var f File
	f.TargetVersion = os.Getenv("CALDERA_TARGET_VERSION")
	if v := os.Getenv("CALDERA_LINE_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.LineLength = n
		}
	}
	return f
}

// Resolved is the fully merged configuration, with TargetVersion carrying
// its provenance for diagnostics to consult.
type Resolved struct {
	Select           []string
	Ignore           []string
	LineLength       int
	TargetVersion    TargetVersion
	OutputFormat     string
	Include          []string
	Exclude          []string
	RespectGitignore bool
}

const defaultLineLength = 88
const defaultTargetVersion = "3.12"
const defaultOutputFormat = "full"

// Resolve merges cli, file, and env layers in precedence order:
// command-line over config file over environment over built-in default.
// Each layer may be the zero File if that source was absent.
func Resolve(cli, file, env File) Resolved {
	r := Resolved{
		LineLength:   defaultLineLength,
		OutputFormat: defaultOutputFormat,
		TargetVersion: TargetVersion{
			Value:      defaultTargetVersion,
			Provenance: ProvenanceDefault,
		},
		RespectGitignore: true,
	}

	for _, layer := range []struct {
		f          File
		provenance VersionProvenance
	}{
		{env, ProvenanceEnvironment},
		{file, ProvenanceConfigFile},
		{cli, ProvenanceCommandLine},
	} {
		applyLayer(&r, layer.f, layer.provenance)
	}

	return r
}

func applyLayer(r *Resolved, f File, provenance VersionProvenance) {
	if len(f.Select) > 0 {
		r.Select = f.Select
	}
	if len(f.Ignore) > 0 {
		r.Ignore = f.Ignore
	}
	if f.LineLength > 0 {
		r.LineLength = f.LineLength
	}
	if f.TargetVersion != "" {
		r.TargetVersion = TargetVersion{Value: f.TargetVersion, Provenance: provenance}
	}
	if f.OutputFormat != "" {
		r.OutputFormat = f.OutputFormat
	}
	if len(f.Include) > 0 {
		r.Include = f.Include
	}
	if len(f.Exclude) > 0 {
		r.Exclude = f.Exclude
	}
	if f.RespectGitignore != nil {
		r.RespectGitignore = *f.RespectGitignore
	}
}

var categoryByName = map[string]rules.Category{
	"correctness": rules.CategoryCorrectness,
	"style":       rules.CategoryStyle,
	"import":      rules.CategoryImport,
	"performance": rules.CategoryPerformance,
}

// RuleSelection builds a rules.RuleSelection from the resolved Select and
// Ignore lists. Each entry is interpreted as a category name if it matches
// one of the four known categories, otherwise as a rule ID in "lint:name"
// or bare "name" form. Select entries are applied before Ignore entries,
// so an ignored rule or category always wins over a selected one with the
// same or broader scope — matching the CLI convention of `--ignore`
// overriding `--select` for the same name.
func (r Resolved) RuleSelection() rules.RuleSelection {
	sel := rules.DefaultSelection()
	sel = applyToggles(sel, r.Select, true)
	sel = applyToggles(sel, r.Ignore, false)
	return sel
}

func applyToggles(sel rules.RuleSelection, names []string, enabled bool) rules.RuleSelection {
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if cat, ok := categoryByName[strings.ToLower(name)]; ok {
			sel = sel.WithCategory(cat, enabled)
			continue
		}
		sel = sel.WithRule(diag.Lint(strings.TrimPrefix(name, "lint:")), enabled)
	}
	return sel
}
