// Package scan finds source files to analyze under a directory tree.
package scan

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// DefaultMaxSize skips files larger than this many bytes.
const DefaultMaxSize = 1 << 20

// ErrTooLarge is returned by ReadSource for files over the size limit.
var ErrTooLarge = errors.New("scan: file too large")

// FileVisit describes one source file found by Walk.
type FileVisit struct {
	// Root-relative path using forward slashes (e.g., "src/App.java").
	Path string
	// Filesystem path as passed to os.Open.
	AbsPath string
	// Lowercased extension (e.g., ".java").
	Ext  string
	Size int64
}

// Options filter what Walk reports.
type Options struct {
	// Extensions to keep, lowercased with the dot; empty keeps every file.
	Extensions []string
	// MaxSize skips larger files; <= 0 means DefaultMaxSize.
	MaxSize int64
}

var skipDirs = map[string]bool{
	".git": true, ".hg": true, ".svn": true, "node_modules": true, "vendor": true,
	"target": true, "build": true, "dist": true, ".next": true, ".cache": true,
	"__pycache__": true, ".venv": true, ".idea": true,
}

// Walk returns the source files under root in lexical order. A root that is
// a regular file yields just that file. Unreadable entries are skipped.
func Walk(root string, opts Options) ([]FileVisit, error) {
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	if !info.IsDir() {
		return []FileVisit{{
			Path:    filepath.ToSlash(filepath.Base(root)),
			AbsPath: root,
			Ext:     strings.ToLower(filepath.Ext(root)),
			Size:    info.Size(),
		}}, nil
	}

	var out []FileVisit
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if len(opts.Extensions) > 0 && !slices.Contains(opts.Extensions, ext) {
			return nil
		}
		fi, err := d.Info()
		if err != nil || fi.Size() > opts.MaxSize {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		out = append(out, FileVisit{
			Path:    filepath.ToSlash(rel),
			AbsPath: path,
			Ext:     ext,
			Size:    fi.Size(),
		})
		return nil
	})
	return out, err
}

// ReadSource reads a file as text, refusing files over maxSize bytes
// (DefaultMaxSize when maxSize <= 0).
func ReadSource(path string, maxSize int64) (string, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return readLimited(f, path, maxSize)
}

// ReadAll reads r (typically stdin) under the same size limit.
func ReadAll(r io.Reader, name string, maxSize int64) (string, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return readLimited(r, name, maxSize)
}

func readLimited(r io.Reader, name string, maxSize int64) (string, error) {
	b, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return "", fmt.Errorf("scan: read %s: %w", name, err)
	}
	if int64(len(b)) > maxSize {
		return "", fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, name, maxSize)
	}
	return string(b), nil
}
