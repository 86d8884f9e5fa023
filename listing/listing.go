// Package listing renders directory listings: one line per entry, sorted, wrapped in a fixed
// HTML document. It also renders the not-found page.
package listing

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// DefaultWidth is the width of the name column, in runes, including a directory's trailing slash.
const DefaultWidth = 50

// MinWidth is the narrowest name column that still leaves room for a truncated name: one rune, "...", and "/".
const MinWidth = 5

// TimeFormat is how modification times appear in a listing. Times are always UTC.
const TimeFormat = "2006-01-02 15:04:05 MST"

// ParentLine links to the parent directory. It heads every non-root listing and is never sorted.
const ParentLine = `<a href="..">../</a>`

// Entry is a single file or directory in a listing.
type Entry struct {
	Name    string
	IsDir   bool
	Size    int64     // files only
	ModTime time.Time // only in metadata mode
}

// Options control how entries are rendered.
type Options struct {
	Prefix   string   // already normalized: see NormalizePrefix
	Width    int      // name column width; 0 means DefaultWidth
	Metadata bool     // add modification time and size columns
	Readme   bool     // embed a rendered README.md below the listing
	ModTimer ModTimer // source of modification times in metadata mode; nil means FSModTimer
}

func (o Options) width() int {
	if o.Width == 0 {
		return DefaultWidth
	}
	return o.Width
}

// NormalizePrefix makes sure p ends in exactly one slash. The empty prefix becomes "/".
func NormalizePrefix(p string) string { return strings.TrimRight(p, "/") + "/" }

// DisplayName is the name a page is titled with: prefix for the root (rel == "." or ""), prefix+rel otherwise.
func DisplayName(prefix, rel string) string {
	if rel == "." || rel == "" {
		return prefix
	}
	return prefix + filepath.ToSlash(rel)
}

// Truncate shortens name to at most width runes, replacing the tail with "...".
func Truncate(name string, width int) string {
	if utf8.RuneCountInString(name) <= width {
		return name
	}
	runes := []rune(name)
	return string(runes[:max(width-3, 0)]) + "..."
}

// Line renders e as one line of the listing.
func (o Options) Line(e Entry) string {
	width := o.width()
	nameWidth := width
	if e.IsDir {
		nameWidth-- // room for the slash
	}
	display := Truncate(e.Name, nameWidth)
	title := HTMLEscape(e.Name)
	if e.IsDir {
		display += "/"
		title += "/"
	}
	link := fmt.Sprintf(`<a href="%s" title="%s">%s</a>`, PathEscape(e.Name), title, HTMLEscape(display))
	if !o.Metadata {
		return link
	}
	padding := strings.Repeat(" ", max(width-utf8.RuneCountInString(display), 0))
	line := link + padding + " " + e.ModTime.UTC().Format(TimeFormat)
	if !e.IsDir {
		line += fmt.Sprintf(" %10d", e.Size)
	}
	return line
}

// Lines renders entries, sorted by their rendered text. Files and directories are not grouped.
// Non-root listings get ParentLine first.
func (o Options) Lines(entries []Entry, root bool) []string {
	lines := make([]string, 0, len(entries)+1)
	for _, e := range entries {
		lines = append(lines, o.Line(e))
	}
	slices.Sort(lines)
	if !root {
		lines = append([]string{ParentLine}, lines...)
	}
	return lines
}

// Page is a rendered listing, ready for RenderPage.
type Page struct {
	DisplayName string
	Lines       []string
	Readme      []byte // html fragment; nil for none
}

// Renderer turns a directory's contents into a listing page.
type Renderer struct {
	opts   Options
	logger *zap.Logger
}

// NewRenderer returns a Renderer. A nil logger discards everything.
func NewRenderer(opts Options, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ModTimer == nil {
		opts.ModTimer = FSModTimer{}
	}
	return &Renderer{opts: opts, logger: logger}
}

// Options returns the options r renders with.
func (r *Renderer) Options() Options { return r.opts }

// Entries describes the named subdirectories and files of dir.
// Sizes and modification times are only looked up in metadata mode.
func (r *Renderer) Entries(dir string, subdirs, files []string) ([]Entry, error) {
	entries := make([]Entry, 0, len(subdirs)+len(files))
	for _, name := range files {
		entries = append(entries, Entry{Name: name})
	}
	for _, name := range subdirs {
		entries = append(entries, Entry{Name: name, IsDir: true})
	}
	if !r.opts.Metadata {
		return entries, nil
	}
	for i := range entries {
		e := &entries[i]
		path := filepath.Join(dir, e.Name)
		if !e.IsDir {
			info, err := os.Stat(path)
			if err != nil {
				return nil, fmt.Errorf("stat %s: %w", path, err)
			}
			e.Size = info.Size()
		}
		t, err := r.opts.ModTimer.ModTime(path)
		if err != nil {
			return nil, fmt.Errorf("modification time of %s: %w", path, err)
		}
		e.ModTime = t
	}
	return entries, nil
}

// Page builds the listing for dir, which sits at rel (slash-separated, "." for the root) under the root.
func (r *Renderer) Page(dir, rel string, subdirs, files []string) (Page, error) {
	entries, err := r.Entries(dir, subdirs, files)
	if err != nil {
		return Page{}, err
	}
	isRoot := rel == "." || rel == ""
	p := Page{
		DisplayName: DisplayName(r.opts.Prefix, rel),
		Lines:       r.opts.Lines(entries, isRoot),
	}
	if r.opts.Readme && slices.Contains(files, ReadmeFile) {
		readme, err := RenderReadme(filepath.Join(dir, ReadmeFile))
		if err != nil {
			return Page{}, err
		}
		r.logger.Debug("rendered readme", zap.String("dir", dir), zap.Int("bytes", len(readme)))
		p.Readme = readme
	}
	return p, nil
}

// Render is Page followed by RenderPage.
func (r *Renderer) Render(dir, rel string, subdirs, files []string) ([]byte, error) {
	p, err := r.Page(dir, rel, subdirs, files)
	if err != nil {
		return nil, err
	}
	return RenderPage(p), nil
}

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Directory listing for %[1]s</title>
  <style>html { color-scheme: light dark; }</style>
</head>
<body>
<h1>Directory listing for <code>%[1]s</code></h1>
<hr>
<pre>
%[2]s
</pre>
<hr>
%[3]s</body>
</html>
`

// RenderPage writes out the full HTML document for p.
func RenderPage(p Page) []byte {
	var readme string
	if len(p.Readme) > 0 {
		readme = "<article>\n" + strings.TrimSpace(string(p.Readme)) + "\n</article>\n<hr>\n"
	}
	return fmt.Appendf(nil, pageTemplate, HTMLEscape(p.DisplayName), strings.Join(p.Lines, "\n"), readme)
}

const notFoundTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Not found</title>
  <style>html { color-scheme: light dark; }</style>
</head>
<body>
<h1>Page not found</h1>
<p>Root directory: <a href="%[1]s">%[1]s</a></p>
</body>
</html>
`

// RenderNotFound writes out the 404 page, linking back to prefix.
func RenderNotFound(prefix string) []byte {
	return fmt.Appendf(nil, notFoundTemplate, HTMLEscape(prefix))
}
