// Package generate writes an index.html listing into every non-empty directory of a tree,
// then an optional 404 page at the root.
package generate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gitlab.com/efronlicht/dirindex/dirtree"
	"gitlab.com/efronlicht/dirindex/listing"
	"go.uber.org/zap"
)

// DefaultNotFound is where the 404 page goes, relative to the root, unless configured otherwise.
const DefaultNotFound = "404.html"

// ErrOutsideRoot is returned by New when the 404 page would be written outside the root.
var ErrOutsideRoot = errors.New("path must be inside root")

// ErrListingPath is returned by New when the 404 page would overwrite a listing written in the same run.
var ErrListingPath = fmt.Errorf("path must not be named %s", dirtree.IndexFile)

// Config describes one run.
type Config struct {
	Root     string // directory to index
	Prefix   string // URL prefix; normalized to end in exactly one slash
	NotFound string // 404 page path relative to Root; "" means don't write one
	Width    int    // name column width; 0 means listing.DefaultWidth
	Metadata bool   // list modification times and sizes
	Readme   bool   // embed README.md below each listing
	ModTimer listing.ModTimer
}

// Stats summarizes a run.
type Stats struct {
	Pages    int  // index.html files written
	Skipped  int  // directories with nothing to list
	NotFound bool // whether the 404 page was written
}

// Generator writes the listings for a single root. Build one with New.
type Generator struct {
	root         string
	notFoundPath string // absolute; "" for none
	prefix       string
	renderer     *listing.Renderer
	logger       *zap.Logger
}

// New validates cfg. Nothing is written until Run.
func New(cfg Config, logger *zap.Logger) (*Generator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	root, err := dirtree.CheckRoot(cfg.Root)
	if err != nil {
		return nil, err
	}
	if cfg.Width != 0 && cfg.Width < listing.MinWidth {
		return nil, fmt.Errorf("width %d: must be at least %d", cfg.Width, listing.MinWidth)
	}
	g := &Generator{root: root, prefix: listing.NormalizePrefix(cfg.Prefix), logger: logger}
	if cfg.NotFound != "" {
		if g.notFoundPath, err = insideRoot(root, cfg.NotFound); err != nil {
			return nil, fmt.Errorf("404 page %q: %w", cfg.NotFound, err)
		}
		if filepath.Base(g.notFoundPath) == dirtree.IndexFile {
			return nil, fmt.Errorf("404 page %q: %w", cfg.NotFound, ErrListingPath)
		}
	}
	g.renderer = listing.NewRenderer(listing.Options{
		Prefix:   g.prefix,
		Width:    cfg.Width,
		Metadata: cfg.Metadata,
		Readme:   cfg.Readme,
		ModTimer: cfg.ModTimer,
	}, logger)
	return g, nil
}

// Root is the absolute path of the tree g indexes.
func (g *Generator) Root() string { return g.root }

// Prefix is the normalized URL prefix.
func (g *Generator) Prefix() string { return g.prefix }

// NotFoundPath is the absolute path of the 404 page, or "" if there isn't one.
func (g *Generator) NotFoundPath() string { return g.notFoundPath }

// Run writes every listing, then the 404 page. The first error stops the run; pages already written stay written.
func (g *Generator) Run() (Stats, error) {
	var stats Stats
	err := dirtree.Walk(g.root, func(d dirtree.Dir) error {
		d, ok := dirtree.Prune(d)
		if !ok {
			stats.Skipped++
			g.logger.Debug("nothing to list", zap.String("dir", d.Path))
			return nil
		}
		page, err := g.renderer.Render(d.Path, d.Rel, d.Subdirs, d.Files)
		if err != nil {
			return fmt.Errorf("rendering %s: %w", d.Path, err)
		}
		if err := g.write(filepath.Join(d.Path, dirtree.IndexFile), page); err != nil {
			return err
		}
		stats.Pages++
		return nil
	})
	if err != nil {
		return stats, err
	}
	if g.notFoundPath != "" {
		if err := g.write(g.notFoundPath, listing.RenderNotFound(g.prefix)); err != nil {
			return stats, err
		}
		stats.NotFound = true
	}
	return stats, nil
}

func (g *Generator) write(path string, b []byte) error {
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	g.logger.Info("generated", zap.String("path", path))
	return nil
}

// insideRoot joins rel onto root and makes sure the result, symlinks and all, stays inside root.
// An absolute rel is taken as-is, so it must already point inside root.
func insideRoot(root, rel string) (string, error) {
	path := filepath.Join(root, rel)
	if filepath.IsAbs(rel) {
		path = filepath.Clean(rel)
	}
	resolvedRoot, err := resolve(root)
	if err != nil {
		return "", err
	}
	resolved, err := resolve(path)
	if err != nil {
		return "", err
	}
	r, err := filepath.Rel(resolvedRoot, resolved)
	if err != nil || r == "." || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return path, nil
}

// resolve evaluates the symlinks in the longest existing prefix of path; the rest is kept as written.
func resolve(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	parent := filepath.Dir(path)
	if parent == path {
		return path, nil
	}
	resolvedParent, err := resolve(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, filepath.Base(path)), nil
}
