// Package models defines the core data types for a notes corpus: pages,
// sections, code examples, and the transcripts that record what an example
// is expected to print when run.
package models

import (
	"fmt"
	"regexp"
	"strings"
)

// Frontmatter holds the YAML metadata block at the top of a page.
type Frontmatter struct {
	// Title overrides the first H1 heading when set
	Title string `yaml:"title"`

	// Topics tags the page for search (e.g. "reflection", "threads")
	Topics []string `yaml:"topics"`

	// Book names the source the notes were taken from
	Book string `yaml:"book"`

	// Chapter is the chapter number or name within the book
	Chapter string `yaml:"chapter"`

	// Draft excludes the page from indexing and checking when true
	Draft bool `yaml:"draft"`
}

// Page represents a single Markdown page in the corpus.
type Page struct {
	// Slug is the page identifier, derived from the filename (without .md)
	Slug string

	// Path is the path the page was loaded from (may be empty for in-memory pages)
	Path string

	// Title is the display title (frontmatter title, else first H1, else slug)
	Title string

	// Frontmatter is the parsed YAML metadata block
	Frontmatter Frontmatter

	// Sections are the heading-delimited prose sections, in document order
	Sections []Section

	// Examples are the fenced code blocks, in document order
	Examples []CodeExample

	// Body is the raw Markdown content with frontmatter stripped
	Body string
}

// Section is a heading-delimited region of a page.
type Section struct {
	// Heading is the heading text without the leading # markers
	Heading string

	// Level is the heading level (1-6)
	Level int

	// Content is the prose between this heading and the next
	Content string

	// Line is the 1-based line of the heading within the page body
	Line int
}

// CodeExample is a fenced code block, optionally paired with the transcript
// that records its expected output.
type CodeExample struct {
	// Name identifies the example within its page. Taken from the fence
	// info string ("```c mutex1.c") when present, else synthesized as
	// <language>-<ordinal>.
	Name string

	// Language is the first word of the fence info string
	Language string

	// Source is the code between the fences, without the fence lines
	Source string

	// Transcript is the paired expected-output block, nil if none was found
	Transcript *Transcript

	// Line is the 1-based line of the opening fence within the page body
	Line int
}

// Transcript is a literal terminal session quoted as the expected output of
// an example. Lines beginning with "$ " are commands; everything else is
// output attributed to the most recent command.
type Transcript struct {
	// Raw is the transcript block exactly as written
	Raw string

	// Commands are the "$ "-prefixed lines with the prefix stripped
	Commands []string

	// Output is every non-command line, in order
	Output []string
}

// slugPattern matches lowercase words separated by single hyphens.
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Runnable reports whether the example is in a language the corpus expects
// to carry a transcript for. Prose-adjacent fences (plain text, diagrams,
// shell fragments inside transcripts) are not runnable.
func (e CodeExample) Runnable() bool {
	switch e.Language {
	case "go", "c", "sh", "bash":
		return true
	}
	return false
}

// HasTranscript reports whether the example carries an expected-output block.
func (e CodeExample) HasTranscript() bool {
	return e.Transcript != nil
}

// Validate checks structural requirements of a parsed page:
// a non-empty slug in slug form, a title, and unique example names.
func (p *Page) Validate() error {
	if p.Slug == "" {
		return fmt.Errorf("page has no slug")
	}
	if !slugPattern.MatchString(p.Slug) {
		return fmt.Errorf("page slug %q is not lowercase-hyphenated", p.Slug)
	}
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("page %s has no title (frontmatter title or H1 heading required)", p.Slug)
	}

	seen := make(map[string]bool, len(p.Examples))
	for _, ex := range p.Examples {
		if ex.Name == "" {
			return fmt.Errorf("page %s has an unnamed example at line %d", p.Slug, ex.Line)
		}
		if seen[ex.Name] {
			return fmt.Errorf("page %s has duplicate example name %q", p.Slug, ex.Name)
		}
		seen[ex.Name] = true
	}

	return nil
}

// Example returns the example with the given name, or nil.
func (p *Page) Example(name string) *CodeExample {
	for i := range p.Examples {
		if p.Examples[i].Name == name {
			return &p.Examples[i]
		}
	}
	return nil
}

// SectionExamples returns the examples whose opening fence falls inside
// section i, determined by the line range from its heading to the next one.
func (p *Page) SectionExamples(i int) []CodeExample {
	if i < 0 || i >= len(p.Sections) {
		return nil
	}
	start := p.Sections[i].Line
	end := int(^uint(0) >> 1)
	if i+1 < len(p.Sections) {
		end = p.Sections[i+1].Line
	}

	var examples []CodeExample
	for _, ex := range p.Examples {
		if ex.Line > start && ex.Line < end {
			examples = append(examples, ex)
		}
	}
	return examples
}

// TranscriptCount returns the number of examples carrying transcripts.
func (p *Page) TranscriptCount() int {
	n := 0
	for _, ex := range p.Examples {
		if ex.HasTranscript() {
			n++
		}
	}
	return n
}
