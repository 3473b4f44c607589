package vfs

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/caldera-dev/caldera/location"
)

// OS is the real-filesystem backend. All paths are resolved relative to an
// [os.Root] rooted at Dir: kernel-enforced containment instead of
// string-based path validation, which closes the TOCTOU window a
// check-then-open approach leaves open.
type OS struct {
	mu   sync.Mutex
	root *os.Root
	dir  string
}

// NewOS opens an OS backend rooted at dir. dir must exist and be a
// directory.
func NewOS(dir string) (*OS, error) {
	canonical, err := location.CanonicalizePathForSourceID(dir)
	if err != nil {
		return nil, err
	}
	root, err := os.OpenRoot(canonical)
	if err != nil {
		return nil, err
	}
	return &OS{root: root, dir: canonical}, nil
}

// Close releases the underlying root handle.
func (o *OS) Close() error {
	return o.root.Close()
}

func (o *OS) rel(path string) string {
	if filepath.IsAbs(path) {
		if r, err := filepath.Rel(o.dir, path); err == nil {
			return filepath.Clean(r)
		}
	}
	return filepath.Clean(path)
}

func translateOpenError(path string, err error) error {
	if errors.Is(err, fs.ErrInvalid) {
		return &WalkError{Path: path, Kind: WalkErrIO, Err: errors.New("path escapes backend root")}
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) && pathErr.Err != nil && strings.Contains(pathErr.Err.Error(), "escapes") {
		return &WalkError{Path: path, Kind: WalkErrIO, Err: errors.New("path escapes backend root")}
	}
	if errors.Is(err, fs.ErrNotExist) {
		return ErrDeleted
	}
	return err
}

func (o *OS) Metadata(path string) (Info, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	fi, err := o.root.Stat(o.rel(path))
	if err != nil {
		return Info{}, translateOpenError(path, err)
	}
	kind := EntryFile
	if fi.IsDir() {
		kind = EntryDir
	} else if fi.Mode()&os.ModeSymlink != 0 {
		kind = EntrySymlink
	}
	return Info{Kind: kind, Size: fi.Size(), ModTime: fi.ModTime()}, nil
}

func (o *OS) Canonicalize(path string) (string, error) {
	if filepath.IsAbs(path) {
		return location.CanonicalizePathForSourceID(path)
	}
	return location.CanonicalizePathForSourceID(filepath.Join(o.dir, path))
}

func (o *OS) ReadFile(path string) ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	f, err := o.root.Open(o.rel(path))
	if err != nil {
		return nil, translateOpenError(path, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (o *OS) ReadNotebook(path string) (*Notebook, error) {
	return nil, ErrNotSupported
}

func (o *OS) Exists(path string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	_, err := o.root.Stat(o.rel(path))
	return err == nil
}

func (o *OS) CaseSensitive() bool {
	return runtimeCaseSensitive
}

func (o *OS) CurrentDirectory() (string, error) {
	return o.dir, nil
}

func (o *OS) ReadDir(path string) ([]DirEntry, error) {
	o.mu.Lock()
	f, err := o.root.Open(o.rel(path))
	o.mu.Unlock()
	if err != nil {
		return nil, translateOpenError(path, err)
	}
	defer f.Close()

	names, err := f.(interface{ Readdirnames(int) ([]string, error) }).Readdirnames(-1)
	if err != nil {
		return nil, err
	}

	entries := make([]DirEntry, 0, len(names))
	for _, name := range names {
		childPath := filepath.Join(path, name)
		info, ierr := o.Metadata(childPath)
		if ierr != nil {
			entries = append(entries, DirEntry{Path: childPath, Err: &WalkError{Path: childPath, Kind: WalkErrIO, Err: ierr}})
			continue
		}
		entries = append(entries, DirEntry{Path: childPath, Info: info})
	}
	return entries, nil
}

func (o *OS) WalkDir(path string, opts WalkOptions, fn WalkFunc) error {
	visited := map[string]bool{}
	return o.walk(path, opts, visited, fn)
}

func (o *OS) walk(path string, opts WalkOptions, visited map[string]bool, fn WalkFunc) error {
	info, err := o.Metadata(path)
	if err != nil {
		return fn(DirEntry{Path: path, Err: &WalkError{Path: path, Kind: WalkErrIO, Err: err}})
	}

	if info.Kind == EntrySymlink {
		if !opts.FollowSymlinks {
			return fn(DirEntry{Path: path, Info: info})
		}
		if visited[path] {
			return fn(DirEntry{Path: path, Err: &WalkError{Path: path, Kind: WalkErrLoop, Err: errors.New("symlink loop")}})
		}
		visited[path] = true
	}

	if info.Kind != EntryDir {
		return fn(DirEntry{Path: path, Info: info})
	}

	entries, err := o.ReadDir(path)
	if err != nil {
		return fn(DirEntry{Path: path, Err: &WalkError{Path: path, Kind: WalkErrIO, Err: err}})
	}
	if err := fn(DirEntry{Path: path, Info: info}); err != nil {
		if errors.Is(err, fs.SkipDir) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if err := o.walk(e.Path, opts, visited, fn); err != nil {
			return err
		}
	}
	return nil
}

func (o *OS) Glob(pattern string) ([]string, error) {
	return filepath.Glob(filepath.Join(o.dir, pattern))
}

func (o *OS) WriteFile(path string, content []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	f, err := o.root.Create(o.rel(path))
	if err != nil {
		return translateOpenError(path, err)
	}
	defer f.Close()
	_, err = f.Write(content)
	return err
}

func (o *OS) CreateNewFile(path string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	f, err := o.root.Create(o.rel(path))
	if err != nil {
		return translateOpenError(path, err)
	}
	return f.Close()
}

func (o *OS) CreateDirectoryAll(path string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.root.Mkdir(o.rel(path), 0o755)
}

var _ System = (*OS)(nil)
var _ Writable = (*OS)(nil)
