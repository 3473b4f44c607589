package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/caldera-dev/caldera/diag"
	"github.com/caldera-dev/caldera/rules"
	"github.com/caldera-dev/caldera/store"
)

func TestLoadParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "caldera.toml")
	content := `
select = ["style"]
ignore = ["lint:line-too-long"]
line-length = 100
target-version = "3.11"
output-format = "json"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"style"}, f.Select)
	require.Equal(t, []string{"lint:line-too-long"}, f.Ignore)
	require.Equal(t, 100, f.LineLength)
	require.Equal(t, "3.11", f.TargetVersion)
	require.Equal(t, "json", f.OutputFormat)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestParseJSONCAllowsCommentsAndTrailingCommas(t *testing.T) {
	data := []byte(`{
		// editor-embedded settings
		"lineLength": 100,
		"select": ["correctness"], // trailing comma below
	}`)
	f, err := ParseJSONC(data)
	require.NoError(t, err)
	require.Equal(t, 100, f.LineLength)
	require.Equal(t, []string{"correctness"}, f.Select)
}

func TestResolvePrecedenceCommandLineWinsOverFileOverEnv(t *testing.T) {
	cli := File{LineLength: 120}
	file := File{LineLength: 100, TargetVersion: "3.10"}
	env := File{TargetVersion: "3.9", OutputFormat: "compact"}

	r := Resolve(cli, file, env)

	require.Equal(t, 120, r.LineLength, "cli line-length should win")
	require.Equal(t, "3.10", r.TargetVersion.Value, "file target-version should win over env")
	require.Equal(t, ProvenanceConfigFile, r.TargetVersion.Provenance)
	require.Equal(t, "compact", r.OutputFormat, "env-only field should still apply")
}

func TestResolveDefaultsWhenNoLayerSpecifiesAnything(t *testing.T) {
	r := Resolve(File{}, File{}, File{})
	require.Equal(t, defaultLineLength, r.LineLength)
	require.Equal(t, defaultTargetVersion, r.TargetVersion.Value)
	require.Equal(t, ProvenanceDefault, r.TargetVersion.Provenance)
	require.True(t, r.RespectGitignore)
}

func TestRuleSelectionMapsCategoriesAndRuleIDs(t *testing.T) {
	r := Resolved{
		Select: []string{"style"},
		Ignore: []string{"lint:line-too-long"},
	}
	sel := r.RuleSelection()

	styleRule := fakeRule{category: rules.CategoryStyle, name: "trailing-whitespace"}
	require.True(t, sel.Allows(styleRule))

	correctnessRule := fakeRule{category: rules.CategoryCorrectness, name: "undefined-name"}
	require.True(t, sel.Allows(correctnessRule), "unselected categories default to enabled")

	ignoredRule := fakeRule{category: rules.CategoryStyle, name: "line-too-long"}
	require.False(t, sel.Allows(ignoredRule), "explicit ignore overrides category selection")
}

type fakeRule struct {
	category rules.Category
	name     string
}

func (r fakeRule) ID() diag.ID                                { return diag.Lint(r.name) }
func (r fakeRule) Category() rules.Category                   { return r.category }
func (r fakeRule) Run(ctx *rules.Context, file store.File) error { return nil }
