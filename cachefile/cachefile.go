package cachefile

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// magic identifies a caldera diagnostics cache file. It is checked before
// anything else; a file that does not start with it is not a cache file
// at all (or is from an incompatible future format) and is discarded
// without inspecting the rest of its bytes.
var magic = [8]byte{'C', 'L', 'D', 'R', 'C', 'A', 'C', 'H'}

// version is bumped whenever the on-disk layout changes incompatibly. A
// cache written by a different version is discarded rather than parsed
// defensively field-by-field.
const version uint32 = 1

// Cache holds the diagnostics recorded for one rule-set hash, keyed by
// the content hash of the file they were computed from. Diagnostics are
// kept as opaque serialized bytes (typically the output of
// [diag.Renderer.FormatDiagnosticJSON] or FormatResultJSON) rather than
// parsed back into diag.Diagnostic values: the cache's only job is to
// let a caller skip re-running rules and re-emit an identical result,
// not to reconstruct diagnostic objects for further analysis.
type Cache struct {
	RuleSetHash string
	entries     map[string][]byte
}

// New returns an empty cache scoped to ruleSetHash. Entries stored under
// one RuleSetHash are never visible after reloading the cache under a
// different one; see [Read].
func New(ruleSetHash string) *Cache {
	return &Cache{RuleSetHash: ruleSetHash, entries: make(map[string][]byte)}
}

// Lookup returns the serialized diagnostics previously stored for
// fileHash, if any.
func (c *Cache) Lookup(fileHash string) ([]byte, bool) {
	b, ok := c.entries[fileHash]
	return b, ok
}

// Store records serialized diagnostics for fileHash, overwriting any
// existing entry.
func (c *Cache) Store(fileHash string, diagnostics []byte) {
	c.entries[fileHash] = diagnostics
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Write serializes the cache as a header (magic, version, rule-set hash)
// followed by one (file-hash, serialized-diagnostics) entry per cached
// file.
func (c *Cache) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(magic[:]); err != nil {
		return fmt.Errorf("cachefile: write magic: %w", err)
	}
	if err := binary.Write(bw, binary.BigEndian, version); err != nil {
		return fmt.Errorf("cachefile: write version: %w", err)
	}
	if err := writeString(bw, c.RuleSetHash); err != nil {
		return fmt.Errorf("cachefile: write rule-set hash: %w", err)
	}
	if err := binary.Write(bw, binary.BigEndian, uint32(len(c.entries))); err != nil {
		return fmt.Errorf("cachefile: write entry count: %w", err)
	}
	for fileHash, diagnostics := range c.entries {
		if err := writeString(bw, fileHash); err != nil {
			return fmt.Errorf("cachefile: write file hash: %w", err)
		}
		if err := writeBytes(bw, diagnostics); err != nil {
			return fmt.Errorf("cachefile: write diagnostics: %w", err)
		}
	}
	return bw.Flush()
}

// WriteFile writes the cache to path, replacing any existing file.
func (c *Cache) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cachefile: create %s: %w", path, err)
	}
	defer f.Close()
	if err := c.Write(f); err != nil {
		return err
	}
	return f.Close()
}

// ErrIncompatible is returned by Read when the stream's magic, version,
// or rule-set hash does not match what the caller expects. Callers that
// treat the cache as a pure optimization should not surface this error;
// see [ReadFile], which discards it and returns an empty cache instead.
var ErrIncompatible = errors.New("cachefile: incompatible or corrupt cache")

// Read parses a cache stream written by Write. If the stream's rule-set
// hash does not equal wantRuleSetHash, or the magic/version do not
// match, or the stream is truncated or malformed, Read returns
// ErrIncompatible (wrapped with more detail) and a nil Cache. It never
// returns a partially populated Cache.
func Read(r io.Reader, wantRuleSetHash string) (*Cache, error) {
	var gotMagic [8]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil {
		return nil, fmt.Errorf("%w: read magic: %v", ErrIncompatible, err)
	}
	if gotMagic != magic {
		return nil, fmt.Errorf("%w: bad magic", ErrIncompatible)
	}

	var gotVersion uint32
	if err := binary.Read(r, binary.BigEndian, &gotVersion); err != nil {
		return nil, fmt.Errorf("%w: read version: %v", ErrIncompatible, err)
	}
	if gotVersion != version {
		return nil, fmt.Errorf("%w: version %d, want %d", ErrIncompatible, gotVersion, version)
	}

	ruleSetHash, err := readString(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read rule-set hash: %v", ErrIncompatible, err)
	}
	if ruleSetHash != wantRuleSetHash {
		return nil, fmt.Errorf("%w: rule-set hash mismatch", ErrIncompatible)
	}

	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("%w: read entry count: %v", ErrIncompatible, err)
	}

	c := New(ruleSetHash)
	for i := uint32(0); i < count; i++ {
		fileHash, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("%w: read file hash: %v", ErrIncompatible, err)
		}
		diagnostics, err := readBytes(r)
		if err != nil {
			return nil, fmt.Errorf("%w: read diagnostics: %v", ErrIncompatible, err)
		}
		c.entries[fileHash] = diagnostics
	}

	// A cache file with trailing garbage after its declared entries is
	// exactly as untrustworthy as one with too few; treat it the same way.
	if extra, _ := r.Read(make([]byte, 1)); extra != 0 {
		return nil, fmt.Errorf("%w: trailing data after entries", ErrIncompatible)
	}

	return c, nil
}

// ReadFile loads the cache at path for wantRuleSetHash. Any failure —
// missing file, corruption, a version or rule-set mismatch — is treated
// as a cold cache rather than an error: ReadFile always returns a usable
// (possibly empty) *Cache scoped to wantRuleSetHash.
func ReadFile(path, wantRuleSetHash string) *Cache {
	f, err := os.Open(path)
	if err != nil {
		return New(wantRuleSetHash)
	}
	defer f.Close()

	c, err := Read(bufio.NewReader(f), wantRuleSetHash)
	if err != nil {
		return New(wantRuleSetHash)
	}
	return c
}

func writeString(w io.Writer, s string) error {
	return writeBytes(w, []byte(s))
}

func writeBytes(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readString(r io.Reader) (string, error) {
	b, err := readBytes(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// maxEntrySize bounds a single length-prefixed field, so a corrupt
// length word (e.g. from a truncated or foreign file) cannot make Read
// attempt a multi-gigabyte allocation.
const maxEntrySize = 64 << 20

func readBytes(r io.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, err
	}
	if length > maxEntrySize {
		return nil, fmt.Errorf("field length %d exceeds %d byte limit", length, maxEntrySize)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
