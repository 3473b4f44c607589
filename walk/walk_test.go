package walk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/caldera-dev/caldera/store"
	"github.com/caldera-dev/caldera/vfs"
)

func paths(t *testing.T, st *store.Store, files []store.File) []string {
	t.Helper()
	out := make([]string, len(files))
	for i, f := range files {
		p, ok := st.Path(f)
		require.True(t, ok)
		out[i] = p.String()
	}
	return out
}

func TestWalkDiscoversMatchingExtensions(t *testing.T) {
	fs := vfs.NewMemory()
	fs.Set("/proj/a.py", []byte("x = 1\n"))
	fs.Set("/proj/b.pyi", []byte("x: int\n"))
	fs.Set("/proj/readme.txt", []byte("hello\n"))
	st := store.New(fs)

	files, diags := Walk(context.Background(), fs, st, []string{"/proj"}, Options{
		Extensions: []string{".py", ".pyi"},
	})
	require.Empty(t, diags)
	got := paths(t, st, files)
	require.ElementsMatch(t, []string{"/proj/a.py", "/proj/b.pyi"}, got)
}

func TestWalkRespectsGitignore(t *testing.T) {
	fs := vfs.NewMemory()
	fs.Set("/proj/.gitignore", []byte("build/\n*.pyc\n"))
	fs.Set("/proj/a.py", []byte("x = 1\n"))
	fs.Set("/proj/build/generated.py", []byte("y = 2\n"))
	fs.Set("/proj/cache.pyc", []byte("binary"))
	st := store.New(fs)

	files, diags := Walk(context.Background(), fs, st, []string{"/proj"}, Options{
		Extensions:       []string{".py", ".pyc"},
		RespectGitignore: true,
	})
	require.Empty(t, diags)
	got := paths(t, st, files)
	require.ElementsMatch(t, []string{"/proj/a.py"}, got)
}

func TestWalkNestedGitignoreOverridesParent(t *testing.T) {
	fs := vfs.NewMemory()
	fs.Set("/proj/.gitignore", []byte("*.py\n"))
	fs.Set("/proj/pkg/.gitignore", []byte("!keep.py\n"))
	fs.Set("/proj/skip.py", []byte("x = 1\n"))
	fs.Set("/proj/pkg/keep.py", []byte("y = 2\n"))
	st := store.New(fs)

	files, diags := Walk(context.Background(), fs, st, []string{"/proj"}, Options{
		Extensions:       []string{".py"},
		RespectGitignore: true,
	})
	require.Empty(t, diags)
	got := paths(t, st, files)
	require.ElementsMatch(t, []string{"/proj/pkg/keep.py"}, got)
}

func TestWalkAppliesIncludeExcludePatternsByIndex(t *testing.T) {
	fs := vfs.NewMemory()
	fs.Set("/proj/src/a.py", []byte("x = 1\n"))
	fs.Set("/proj/src/a_generated.py", []byte("x = 1\n"))
	fs.Set("/proj/vendor/b.py", []byte("x = 1\n"))
	st := store.New(fs)

	patterns := append(Excludes("**"), Includes("src/**")...)
	patterns = append(patterns, Excludes("**/*_generated.py")...)

	files, diags := Walk(context.Background(), fs, st, []string{"/proj"}, Options{
		Extensions: []string{".py"},
		Patterns:   patterns,
	})
	require.Empty(t, diags)
	got := paths(t, st, files)
	require.ElementsMatch(t, []string{"/proj/src/a.py"}, got)
}

func TestWalkResultIsSortedAndDeterministic(t *testing.T) {
	fs := vfs.NewMemory()
	fs.Set("/proj/z.py", []byte("1\n"))
	fs.Set("/proj/a.py", []byte("1\n"))
	fs.Set("/proj/m.py", []byte("1\n"))
	st := store.New(fs)

	files, _ := Walk(context.Background(), fs, st, []string{"/proj"}, Options{Extensions: []string{".py"}})
	require.Len(t, files, 3)
	for i := 1; i < len(files); i++ {
		require.Less(t, files[i-1].String(), files[i].String())
	}
}
