// Package parser turns Markdown note pages into models.Page values.
//
// A page is YAML frontmatter followed by heading-delimited prose with fenced
// code examples. An example's expected output is quoted as a second fenced
// block immediately after it (see transcript pairing rules on PageParser).
package parser

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/luizgsa21/notectl/internal/models"
)

// PageParser parses Markdown pages.
//
// Transcript pairing: a fenced code block in a runnable language binds the
// next fenced block as its transcript when that block follows within blank
// lines plus at most one prose line beginning with "Output" or "Running",
// and either carries the info string "output" or is a console/text/untagged
// block whose first line starts with "$ ".
type PageParser struct {
	markdown goldmark.Markdown
}

// NewPageParser returns a parser with a default goldmark instance.
func NewPageParser() *PageParser {
	return &PageParser{
		markdown: goldmark.New(),
	}
}

// ParseFile parses the page at path. The slug is the filename without the
// .md extension.
func (p *PageParser) ParseFile(path string) (*models.Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer f.Close()

	slug := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	page, err := p.Parse(f, slug)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	page.Path = path
	return page, nil
}

// Parse parses a page from r using the given slug.
func (p *PageParser) Parse(r io.Reader, slug string) (*models.Page, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}

	// Normalize CRLF so line scanning and transcript raws are stable
	content = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))

	page := &models.Page{Slug: slug}
	body, frontmatter := extractFrontmatter(content)
	if frontmatter != nil {
		if err := yaml.Unmarshal(frontmatter, &page.Frontmatter); err != nil {
			return nil, fmt.Errorf("parse frontmatter: %w", err)
		}
	}
	page.Body = string(body)

	doc := p.markdown.Parser().Parse(text.NewReader(body))

	page.Sections = extractSections(doc, body)

	examples, err := extractExamples(body)
	if err != nil {
		return nil, err
	}
	page.Examples = examples

	page.Title = resolveTitle(page)
	return page, nil
}

// resolveTitle picks the display title: frontmatter wins, then the first H1,
// then the slug itself.
func resolveTitle(page *models.Page) string {
	if page.Frontmatter.Title != "" {
		return page.Frontmatter.Title
	}
	for _, sec := range page.Sections {
		if sec.Level == 1 {
			return sec.Heading
		}
	}
	return page.Slug
}

// extractSections walks the goldmark AST collecting headings, then assigns
// each heading the prose between it and the next heading.
func extractSections(doc ast.Node, source []byte) []models.Section {
	var sections []models.Section

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		sections = append(sections, models.Section{
			Heading: extractText(heading, source),
			Level:   heading.Level,
			Line:    headingLine(heading, source),
		})
		return ast.WalkContinue, nil
	})

	// Fill Content by slicing the body between consecutive heading lines.
	// Goldmark segments do not cover fence interiors uniformly, so slicing
	// by line is the reliable route (same tradeoff the line scanner makes).
	lines := strings.Split(string(source), "\n")
	for i := range sections {
		start := sections[i].Line // first line after the heading, 0-based into lines is sections[i].Line
		end := len(lines)
		if i+1 < len(sections) {
			end = sections[i+1].Line - 1
		}
		if start > end {
			start = end
		}
		sections[i].Content = strings.TrimSpace(strings.Join(lines[start:end], "\n"))
	}

	return sections
}

// headingLine returns the 1-based line number of a heading node.
func headingLine(heading *ast.Heading, source []byte) int {
	if heading.Lines().Len() == 0 {
		return 0
	}
	seg := heading.Lines().At(0)
	return 1 + bytes.Count(source[:seg.Start], []byte("\n"))
}

// extractText extracts plain text from an AST node's direct children.
func extractText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
		}
	}
	return buf.String()
}

// Fence describes one fenced block found by the line scanner. The checker
// consumes these directly for rules that look at every fence, not just the
// runnable examples.
type Fence struct {
	Info    string // full info string after the backticks
	Body    string // content between the fences
	Line    int    // 1-based line of the opening fence
	EndLine int    // 1-based line of the closing fence
}

// extractExamples scans the body line by line for fenced blocks and pairs
// runnable examples with their transcripts. Line scanning is more reliable
// than the AST here because transcript pairing depends on what sits between
// blocks, not just the blocks themselves.
func extractExamples(body []byte) ([]models.CodeExample, error) {
	fences, err := ScanFences(body)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(string(body), "\n")

	var examples []models.CodeExample
	langOrdinals := make(map[string]int)
	consumed := make(map[int]bool) // fence indexes used as transcripts

	for i, f := range fences {
		if consumed[i] {
			continue
		}

		lang, name := SplitInfo(f.Info)
		if !(models.CodeExample{Language: lang}).Runnable() {
			continue
		}

		if name == "" {
			langOrdinals[lang]++
			name = fmt.Sprintf("%s-%d", lang, langOrdinals[lang])
		}

		ex := models.CodeExample{
			Name:     name,
			Language: lang,
			Source:   f.Body,
			Line:     f.Line,
		}

		if i+1 < len(fences) {
			next := fences[i+1]
			if transcriptFollows(lines, f.EndLine, next) {
				ex.Transcript = parseTranscript(next.Body)
				consumed[i+1] = true
			}
		}

		examples = append(examples, ex)
	}

	return examples, nil
}

// ScanFences finds every top-level fenced block. Longer fences may enclose
// shorter ones (a ```` fence can quote ``` lines), so the closing fence must
// be at least as long as the opener.
func ScanFences(body []byte) ([]Fence, error) {
	lines := strings.Split(string(body), "\n")

	var fences []Fence
	var open *Fence
	var openLen int
	var buf []string

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		ticks := leadingBackticks(trimmed)

		if open == nil {
			if ticks >= 3 {
				open = &Fence{Info: strings.TrimSpace(trimmed[ticks:]), Line: i + 1}
				openLen = ticks
				buf = buf[:0]
			}
			continue
		}

		// Inside a fence: close only on a bare fence line of >= opening length
		if ticks >= openLen && strings.TrimSpace(trimmed[ticks:]) == "" {
			open.Body = strings.Join(buf, "\n")
			open.EndLine = i + 1
			fences = append(fences, *open)
			open = nil
			continue
		}
		buf = append(buf, line)
	}

	if open != nil {
		return nil, fmt.Errorf("unclosed code fence opened at line %d", open.Line)
	}
	return fences, nil
}

// leadingBackticks counts leading backticks of a trimmed line.
func leadingBackticks(s string) int {
	n := 0
	for n < len(s) && s[n] == '`' {
		n++
	}
	return n
}

// SplitInfo splits a fence info string into language and optional name.
func SplitInfo(info string) (lang, name string) {
	fields := strings.Fields(info)
	if len(fields) == 0 {
		return "", ""
	}
	lang = fields[0]
	if len(fields) > 1 {
		name = fields[1]
	}
	return lang, name
}

// transcriptFollows reports whether the next fence binds as a transcript of
// a block that closed at endLine. Between the two blocks only blank lines
// and at most one prose line starting with "Output" or "Running" may appear.
func transcriptFollows(lines []string, endLine int, next Fence) bool {
	proseSeen := false
	for i := endLine; i < next.Line-1; i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		if proseSeen {
			return false
		}
		if !strings.HasPrefix(trimmed, "Output") && !strings.HasPrefix(trimmed, "Running") {
			return false
		}
		proseSeen = true
	}
	return isTranscriptFence(next)
}

// isTranscriptFence reports whether a fence looks like an output transcript:
// tagged "output", or an untagged/console/text block opening with a command.
func isTranscriptFence(f Fence) bool {
	lang, _ := SplitInfo(f.Info)
	if lang == "output" {
		return true
	}
	switch lang {
	case "", "console", "text":
		first, _, _ := strings.Cut(f.Body, "\n")
		return strings.HasPrefix(first, "$ ")
	}
	return false
}

// parseTranscript splits a transcript block into commands and output lines.
func parseTranscript(raw string) *models.Transcript {
	t := &models.Transcript{Raw: raw}
	for _, line := range strings.Split(raw, "\n") {
		if cmd, ok := strings.CutPrefix(line, "$ "); ok {
			t.Commands = append(t.Commands, cmd)
			continue
		}
		t.Output = append(t.Output, line)
	}
	return t
}

// extractFrontmatter extracts a YAML frontmatter block delimited by ---
// lines. Returns the body without frontmatter and the frontmatter bytes,
// or the original content and nil when no complete block is present.
func extractFrontmatter(content []byte) ([]byte, []byte) {
	lines := bytes.Split(content, []byte("\n"))

	if len(lines) < 3 || !bytes.Equal(bytes.TrimSpace(lines[0]), []byte("---")) {
		return content, nil
	}

	for i := 1; i < len(lines); i++ {
		if bytes.Equal(bytes.TrimSpace(lines[i]), []byte("---")) {
			frontmatter := bytes.Join(lines[1:i], []byte("\n"))
			body := bytes.Join(lines[i+1:], []byte("\n"))
			return body, frontmatter
		}
	}

	// No closing delimiter: treat the whole thing as body
	return content, nil
}
