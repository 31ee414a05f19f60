// Package docsite renders the sandexec command reference as Markdown and HTML.
package docsite

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// IndexPage is the name of the landing page.
const IndexPage = "index"

// defaultTemplate wraps each rendered page when no template file is given.
const defaultTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}} · sandexec</title>
</head>
<body>
<main>
{{.Content}}
</main>
</body>
</html>
`

// Page is one reference page. Name is a slash-free file stem; links between
// pages use "<name>.md".
type Page struct {
	Name     string
	Markdown []byte
}

// Generator writes reference pages to an output directory.
type Generator struct {
	OutputDir string
	md        goldmark.Markdown
	tmpl      *template.Template
}

// PageData holds data passed to the HTML template.
type PageData struct {
	Title   string
	Content template.HTML
}

// NewGenerator creates a generator writing to outputDir. An empty
// templateFile uses the built-in page template.
func NewGenerator(outputDir, templateFile string) (*Generator, error) {
	g := &Generator{OutputDir: outputDir}

	g.md = goldmark.New(
		goldmark.WithExtensions(
			extension.Table,
			extension.Linkify,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
		),
	)

	tmplContent := defaultTemplate
	if templateFile != "" {
		data, err := os.ReadFile(templateFile)
		if err != nil {
			return nil, fmt.Errorf("reading template: %w", err)
		}
		tmplContent = string(data)
	}

	var err error
	g.tmpl, err = template.New("docs").Parse(tmplContent)
	if err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}
	return g, nil
}

// WriteMarkdown writes each page as <OutputDir>/<name>.md.
func (g *Generator) WriteMarkdown(pages []Page) error {
	if err := os.MkdirAll(g.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	for _, p := range pages {
		path := filepath.Join(g.OutputDir, p.Name+".md")
		if err := os.WriteFile(path, p.Markdown, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return nil
}

// WriteHTML renders every page to HTML using pretty URLs.
func (g *Generator) WriteHTML(pages []Page) error {
	for _, p := range pages {
		out, err := g.Render(p)
		if err != nil {
			return err
		}

		path := MapPath(g.OutputDir, p.Name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", path, err)
		}
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return nil
}

// Render converts one page to a complete HTML document.
func (g *Generator) Render(p Page) ([]byte, error) {
	var htmlBuf bytes.Buffer
	if err := g.md.Convert(p.Markdown, &htmlBuf); err != nil {
		return nil, fmt.Errorf("converting %s: %w", p.Name, err)
	}

	data := PageData{
		Title:   ExtractTitle(p.Markdown, p.Name),
		Content: template.HTML(RewriteLinks(htmlBuf.String(), p.Name == IndexPage)),
	}

	var out bytes.Buffer
	if err := g.tmpl.Execute(&out, data); err != nil {
		return nil, fmt.Errorf("executing template for %s: %w", p.Name, err)
	}
	return out.Bytes(), nil
}

var h1Regex = regexp.MustCompile(`(?m)^#\s+(.+)$`)

// mdLinkRegex matches relative href attributes that point to .md files.
// Captures: (1) page name (2) optional anchor
var mdLinkRegex = regexp.MustCompile(`href="([A-Za-z0-9_.-]+)\.md(#[^"]*)?"`)

// RewriteLinks turns links to sibling .md pages into pretty URLs. Every
// page except the index lives one directory down, so fromIndex picks the
// relative prefix.
func RewriteLinks(html string, fromIndex bool) string {
	return mdLinkRegex.ReplaceAllStringFunc(html, func(match string) string {
		sub := mdLinkRegex.FindStringSubmatch(match)
		name, anchor := sub[1], sub[2]

		prefix := "../"
		if fromIndex {
			prefix = "./"
		}
		if name == IndexPage {
			return fmt.Sprintf(`href="%s%s"`, prefix, anchor)
		}
		return fmt.Sprintf(`href="%s%s/%s"`, prefix, name, anchor)
	})
}

// ExtractTitle returns the first H1 heading, falling back to name.
func ExtractTitle(content []byte, name string) string {
	if m := h1Regex.FindSubmatch(content); len(m) > 1 {
		return strings.TrimSpace(string(m[1]))
	}
	return name
}

// MapPath returns the HTML output path for a page.
// The index stays at index.html; other pages become <name>/index.html.
func MapPath(outputDir, name string) string {
	if name == IndexPage {
		return filepath.Join(outputDir, "index.html")
	}
	return filepath.Join(outputDir, name, "index.html")
}
