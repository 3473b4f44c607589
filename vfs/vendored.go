package vfs

import (
	"bytes"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zip"
)

// Vendored is a read-only backend over a zip archive supplied at
// construction, used for the bundled typeshed-style stub catalog. It uses
// klauspost/compress/zip rather than the standard library's archive/zip: a
// drop-in replacement with faster deflate decoding.
//
// A single mutex serializes lookups against the shared *zip.Reader.
type Vendored struct {
	mu      sync.Mutex
	reader  *zip.Reader
	byPath  map[string]*zip.File
	modTime time.Time
}

// NewVendored opens data as a zip archive.
func NewVendored(data []byte) (*Vendored, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	v := &Vendored{reader: r, byPath: make(map[string]*zip.File, len(r.File))}
	for _, f := range r.File {
		v.byPath[normalizeVendoredPath(f.Name)] = f
	}
	return v, nil
}

// normalizeVendoredPath removes "." and ".." components, rejects escaping
// the archive root, and preserves a trailing slash as the sole signal that
// a lookup names a directory (in-archive directory entries are identified
// by a trailing "/"). Idempotent: normalize(normalize(p)) == normalize(p).
func normalizeVendoredPath(p string) string {
	trailingSlash := strings.HasSuffix(p, "/") && p != "/"
	p = strings.TrimPrefix(p, "/")
	cleaned := path.Clean(p)
	if cleaned == "." {
		cleaned = ""
	}
	// path.Clean collapses ".." at the root to "..", which we treat as
	// escaping the archive: callers see it as simply not found.
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		cleaned = ""
	}
	if trailingSlash && cleaned != "" {
		cleaned += "/"
	}
	return cleaned
}

func (v *Vendored) Metadata(p string) (Info, error) {
	key := normalizeVendoredPath(p)
	v.mu.Lock()
	defer v.mu.Unlock()

	f, ok := v.byPath[key]
	if !ok {
		// Try as a directory prefix.
		dirKey := key
		if dirKey != "" && !strings.HasSuffix(dirKey, "/") {
			dirKey += "/"
		}
		for name := range v.byPath {
			if strings.HasPrefix(name, dirKey) {
				return Info{Kind: EntryDir}, nil
			}
		}
		return Info{}, ErrDeleted
	}
	if strings.HasSuffix(key, "/") {
		return Info{Kind: EntryDir}, nil
	}
	return Info{Kind: EntryFile, Size: int64(f.UncompressedSize64), ModTime: f.Modified}, nil
}

func (v *Vendored) Canonicalize(p string) (string, error) {
	return normalizeVendoredPath(p), nil
}

func (v *Vendored) ReadFile(p string) ([]byte, error) {
	key := normalizeVendoredPath(p)
	v.mu.Lock()
	f, ok := v.byPath[key]
	v.mu.Unlock()
	if !ok || strings.HasSuffix(key, "/") {
		return nil, ErrDeleted
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (v *Vendored) ReadNotebook(p string) (*Notebook, error) {
	return nil, ErrNotSupported
}

func (v *Vendored) Exists(p string) bool {
	_, err := v.Metadata(p)
	return err == nil
}

func (v *Vendored) CaseSensitive() bool {
	return true
}

func (v *Vendored) CurrentDirectory() (string, error) {
	return "", nil
}

func (v *Vendored) ReadDir(dir string) ([]DirEntry, error) {
	key := normalizeVendoredPath(dir)
	if key != "" && !strings.HasSuffix(key, "/") {
		key += "/"
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	seen := map[string]bool{}
	var entries []DirEntry
	for name := range v.byPath {
		if !strings.HasPrefix(name, key) || name == key {
			continue
		}
		rest := strings.TrimPrefix(name, key)
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			child := key + rest[:idx+1]
			if !seen[child] {
				seen[child] = true
				entries = append(entries, DirEntry{Path: child, Info: Info{Kind: EntryDir}})
			}
			continue
		}
		entries = append(entries, DirEntry{Path: name, Info: Info{Kind: EntryFile}})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func (v *Vendored) WalkDir(dir string, opts WalkOptions, fn WalkFunc) error {
	entries, err := v.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := fn(e); err != nil {
			if err == fs.SkipDir && e.Info.Kind == EntryDir {
				continue
			}
			return err
		}
		if e.Info.Kind == EntryDir {
			if err := v.WalkDir(e.Path, opts, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

func (v *Vendored) Glob(pattern string) ([]string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	var matches []string
	for name := range v.byPath {
		if ok, _ := path.Match(pattern, name); ok {
			matches = append(matches, name)
		}
	}
	sort.Strings(matches)
	return matches, nil
}

var _ System = (*Vendored)(nil)
