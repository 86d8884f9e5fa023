package listing

import (
	"bytes"
	"fmt"
	"os"

	"github.com/PuerkitoBio/goquery"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/sourcegraph/syntaxhighlight"
)

// ReadmeFile is rendered below a listing when Options.Readme is set. It's still listed like any other file.
const ReadmeFile = "README.md"

// RenderReadme renders the markdown file at path as an HTML fragment.
// Raw HTML in the markdown is dropped; fenced code blocks with a language are syntax-highlighted.
func RenderReadme(path string) ([]byte, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading readme: %w", err)
	}
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.SkipHTML,
	})
	rendered := markdown.ToHTML(markdown.NormalizeNewlines(src), nil, renderer)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rendered))
	if err != nil {
		return nil, fmt.Errorf("parsing rendered readme %s: %w", path, err)
	}
	// replace code blocks with highlighted versions.
	doc.Find(`code[class*="language-"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var highlighted []byte
		highlighted, err = syntaxhighlight.AsHTML([]byte(s.Text()))
		if err != nil {
			return false
		}
		s.SetHtml(string(highlighted))
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("highlighting readme %s: %w", path, err)
	}
	// goquery wraps the fragment in <html><head></head><body>; we only want what's inside.
	body, err := doc.Find("body").Html()
	if err != nil {
		return nil, fmt.Errorf("serializing readme %s: %w", path, err)
	}
	return []byte(body), nil
}
