package vfs

import (
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process backend over a path-keyed map, used for
// LSP-opened-but-unsaved buffers and tests. Paths are normalized with
// path.Clean and always treated as "/"-rooted and case-sensitive.
type Memory struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemory creates an empty Memory backend.
func NewMemory() *Memory {
	return &Memory{files: make(map[string][]byte)}
}

func normalizeMemPath(p string) string {
	p = path.Clean("/" + strings.TrimPrefix(p, "/"))
	return p
}

// Set installs or overwrites content at path, creating it if absent.
func (m *Memory) Set(path string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[normalizeMemPath(path)] = append([]byte(nil), content...)
}

// Delete removes path, if present.
func (m *Memory) Delete(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, normalizeMemPath(path))
}

func (m *Memory) Metadata(p string) (Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.files[normalizeMemPath(p)]
	if !ok {
		return Info{}, ErrDeleted
	}
	return Info{Kind: EntryFile, Size: int64(len(content)), ModTime: time.Time{}}, nil
}

func (m *Memory) Canonicalize(p string) (string, error) {
	return normalizeMemPath(p), nil
}

func (m *Memory) ReadFile(p string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.files[normalizeMemPath(p)]
	if !ok {
		return nil, ErrDeleted
	}
	return append([]byte(nil), content...), nil
}

func (m *Memory) ReadNotebook(p string) (*Notebook, error) {
	return nil, ErrNotSupported
}

func (m *Memory) Exists(p string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.files[normalizeMemPath(p)]
	return ok
}

func (m *Memory) CaseSensitive() bool {
	return true
}

func (m *Memory) CurrentDirectory() (string, error) {
	return "/", nil
}

func (m *Memory) ReadDir(dir string) ([]DirEntry, error) {
	dir = normalizeMemPath(dir)
	prefix := dir
	if prefix != "/" {
		prefix += "/"
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := map[string]bool{}
	var entries []DirEntry
	for p, content := range m.files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := strings.TrimPrefix(p, prefix)
		if rest == "" {
			continue
		}
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			child := prefix + rest[:idx]
			if !seen[child] {
				seen[child] = true
				entries = append(entries, DirEntry{Path: child, Info: Info{Kind: EntryDir}})
			}
			continue
		}
		entries = append(entries, DirEntry{Path: p, Info: Info{Kind: EntryFile, Size: int64(len(content))}})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func (m *Memory) WalkDir(dir string, opts WalkOptions, fn WalkFunc) error {
	entries, err := m.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Info.Kind == EntryDir {
			if err := fn(e); err != nil {
				if err == fs.SkipDir {
					continue
				}
				return err
			}
			if err := m.WalkDir(e.Path, opts, fn); err != nil {
				return err
			}
			continue
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) Glob(pattern string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []string
	for p := range m.files {
		if ok, _ := path.Match(pattern, p); ok {
			matches = append(matches, p)
		}
	}
	sort.Strings(matches)
	return matches, nil
}

func (m *Memory) WriteFile(p string, content []byte) error {
	m.Set(p, content)
	return nil
}

func (m *Memory) CreateNewFile(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := normalizeMemPath(p)
	if _, ok := m.files[key]; ok {
		return fs.ErrExist
	}
	m.files[key] = nil
	return nil
}

func (m *Memory) CreateDirectoryAll(p string) error {
	return nil // directories are implicit in the path-keyed map
}

var _ System = (*Memory)(nil)
var _ Writable = (*Memory)(nil)
