package lsp

import (
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
)

// URIToPath converts a file:// URI to a filesystem path.
//
// On POSIX systems: file:///path/to/file -> /path/to/file
// On Windows: file:///C:/path/to/file -> C:\path\to\file
func URIToPath(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse URI %q: %w", uri, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("not a file URI: %s", uri)
	}

	path := u.Path
	if runtime.GOOS == "windows" {
		if len(path) >= 3 && path[0] == '/' && isWindowsDriveLetter(path[1]) && path[2] == ':' {
			path = path[1:]
		}
		path = filepath.FromSlash(path)
	}

	return path, nil
}

// PathToURI converts a filesystem path to a file:// URI.
func PathToURI(path string) string {
	if !filepath.IsAbs(path) {
		if absPath, err := filepath.Abs(path); err == nil {
			path = absPath
		}
	}

	path = filepath.ToSlash(path)
	if runtime.GOOS == "windows" && len(path) >= 2 && isWindowsDriveLetter(path[0]) && path[1] == ':' {
		path = "/" + path
	}

	u := url.URL{Scheme: "file", Path: path}
	return u.String()
}

func isWindowsDriveLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func hasURIScheme(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != ""
}

// isPythonURI reports whether uri refers to a Python source or stub file.
// Detection uses filepath.Ext on the decoded filesystem path, not the raw
// URI suffix, to avoid false positives from query strings or fragments.
func isPythonURI(uri string) bool {
	path, err := URIToPath(uri)
	if err != nil {
		return false
	}
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".py" || ext == ".pyi"
}

// normalizeLineEndings converts CRLF and bare CR line endings to LF so
// downstream byte-offset arithmetic only ever has to consider "\n".
func normalizeLineEndings(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return text
}
