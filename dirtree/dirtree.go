// Package dirtree walks a directory tree one directory at a time, handing each directory's
// subdirectories and files to a callback.
package dirtree

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// IndexFile is the name of the generated listing. It's output, not content, so it's never listed.
const IndexFile = "index.html"

// ErrNotDir is returned by CheckRoot when the root exists but isn't a directory.
var ErrNotDir = errors.New("not a directory")

// Dir is a single directory visited by Walk.
type Dir struct {
	Path    string   // absolute path of the directory
	Rel     string   // path relative to the root, slash-separated; "." for the root itself
	Subdirs []string // names of subdirectories, in name order
	Files   []string // names of everything else (including symlinks), in name order
}

// IsRoot reports whether d is the root of the walk.
func (d Dir) IsRoot() bool { return d.Rel == "." }

// CheckRoot makes root absolute and verifies that it exists and is a directory.
func CheckRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("root %q: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("root: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("root %s: %w", abs, ErrNotDir)
	}
	return abs, nil
}

// Walk calls fn for root and every directory beneath it, parents before children.
// Symlinks are not followed: a link to a directory shows up in Files.
// A non-nil error from fn or from reading a directory stops the walk and is returned.
func Walk(root string, fn func(Dir) error) error {
	root, err := CheckRoot(root)
	if err != nil {
		return err
	}
	return walk(root, ".", fn)
}

func walk(path, rel string, fn func(Dir) error) error {
	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("reading directory %s: %w", path, err)
	}
	d := Dir{Path: path, Rel: rel}
	for _, e := range entries {
		if e.IsDir() {
			d.Subdirs = append(d.Subdirs, e.Name())
		} else {
			d.Files = append(d.Files, e.Name())
		}
	}
	if err := fn(d); err != nil {
		return err
	}
	for _, name := range d.Subdirs {
		childRel := name
		if rel != "." {
			childRel = rel + "/" + name
		}
		if err := walk(filepath.Join(path, name), childRel, fn); err != nil {
			return err
		}
	}
	return nil
}

// Prune drops IndexFile from d's files. It reports false if nothing is left to list,
// in which case no page should be generated for d.
// d is not modified; the returned Dir has its own Files slice.
func Prune(d Dir) (Dir, bool) {
	files := make([]string, 0, len(d.Files))
	for _, f := range d.Files {
		if f != IndexFile {
			files = append(files, f)
		}
	}
	d.Files = files
	return d, len(d.Files) > 0 || len(d.Subdirs) > 0
}
