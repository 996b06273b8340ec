package parser

import (
	"strings"
	"testing"
)

const mutexPage = `---
title: POSIX Mutexes
topics: [threads, mutexes]
book: TLPI
chapter: "30"
---

# Protecting Shared Variables

Threads share the process address space, so unsynchronized updates to a
global are lost.

## Incrementing Without a Lock

` + "```c thread_incr.c" + `
static int glob = 0;

static void *threadFunc(void *arg) {
    int loops = *((int *) arg);
    for (int j = 0; j < loops; j++)
        glob++;
    return NULL;
}
` + "```" + `

Running two threads with 10 million loops each loses updates:

` + "```" + `
$ ./thread_incr 10000000
glob = 16517656
` + "```" + `

## Incrementing With a Mutex

` + "```c thread_incr_mutex.c" + `
static pthread_mutex_t mtx = PTHREAD_MUTEX_INITIALIZER;
` + "```" + `

Output is now deterministic:

` + "```output" + `
glob = 20000000
` + "```" + `
`

func TestParsePage(t *testing.T) {
	p := NewPageParser()
	page, err := p.Parse(strings.NewReader(mutexPage), "posix-mutexes")
	if err != nil {
		t.Fatalf("failed to parse page: %v", err)
	}

	if page.Title != "POSIX Mutexes" {
		t.Errorf("expected frontmatter title, got %q", page.Title)
	}
	if page.Frontmatter.Book != "TLPI" {
		t.Errorf("expected book TLPI, got %q", page.Frontmatter.Book)
	}
	if len(page.Frontmatter.Topics) != 2 {
		t.Errorf("expected 2 topics, got %v", page.Frontmatter.Topics)
	}

	if len(page.Sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(page.Sections))
	}
	if page.Sections[0].Level != 1 || page.Sections[0].Heading != "Protecting Shared Variables" {
		t.Errorf("unexpected first section: %+v", page.Sections[0])
	}
	if page.Sections[1].Heading != "Incrementing Without a Lock" {
		t.Errorf("unexpected second section heading: %q", page.Sections[1].Heading)
	}

	if len(page.Examples) != 2 {
		t.Fatalf("expected 2 examples, got %d", len(page.Examples))
	}

	first := page.Examples[0]
	if first.Name != "thread_incr.c" || first.Language != "c" {
		t.Errorf("unexpected first example identity: %q %q", first.Name, first.Language)
	}
	if !strings.Contains(first.Source, "glob++") {
		t.Errorf("first example source missing body: %q", first.Source)
	}
	if first.Transcript == nil {
		t.Fatal("expected first example to bind the console transcript")
	}
	if len(first.Transcript.Commands) != 1 || first.Transcript.Commands[0] != "./thread_incr 10000000" {
		t.Errorf("unexpected transcript commands: %v", first.Transcript.Commands)
	}
	if len(first.Transcript.Output) != 1 || first.Transcript.Output[0] != "glob = 16517656" {
		t.Errorf("unexpected transcript output: %v", first.Transcript.Output)
	}

	second := page.Examples[1]
	if second.Transcript == nil {
		t.Fatal("expected second example to bind the output-tagged transcript")
	}
	if second.Transcript.Output[0] != "glob = 20000000" {
		t.Errorf("unexpected output transcript: %v", second.Transcript.Output)
	}
}

func TestTitleFallsBackToHeading(t *testing.T) {
	page, err := NewPageParser().Parse(strings.NewReader("# Reflection\n\nBody.\n"), "go-reflection")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if page.Title != "Reflection" {
		t.Errorf("expected H1 title fallback, got %q", page.Title)
	}
}

func TestTitleFallsBackToSlug(t *testing.T) {
	page, err := NewPageParser().Parse(strings.NewReader("just prose, no headings\n"), "scratch")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if page.Title != "scratch" {
		t.Errorf("expected slug title fallback, got %q", page.Title)
	}
}

func TestExampleNameSynthesis(t *testing.T) {
	md := "# T\n\n```go\npackage main\n```\n\nmore prose\n\n```go\npackage other\n```\n"
	page, err := NewPageParser().Parse(strings.NewReader(md), "t")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(page.Examples) != 2 {
		t.Fatalf("expected 2 examples, got %d", len(page.Examples))
	}
	if page.Examples[0].Name != "go-1" || page.Examples[1].Name != "go-2" {
		t.Errorf("unexpected synthesized names: %q %q", page.Examples[0].Name, page.Examples[1].Name)
	}
}

func TestTranscriptDoesNotBindAcrossProse(t *testing.T) {
	md := "# T\n\n```go\npackage main\n```\n\nA full paragraph of discussion sits between the blocks.\n\n```\n$ go run main.go\nhi\n```\n"
	page, err := NewPageParser().Parse(strings.NewReader(md), "t")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(page.Examples) != 1 {
		t.Fatalf("expected 1 example, got %d", len(page.Examples))
	}
	if page.Examples[0].Transcript != nil {
		t.Error("expected no transcript binding across arbitrary prose")
	}
}

func TestUntaggedBlockWithoutCommandIsNotTranscript(t *testing.T) {
	md := "# T\n\n```go\npackage main\n```\n\n```\nnot a console session\n```\n"
	page, err := NewPageParser().Parse(strings.NewReader(md), "t")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if page.Examples[0].Transcript != nil {
		t.Error("untagged block without $ prefix must not bind as transcript")
	}
}

func TestUnclosedFence(t *testing.T) {
	md := "# T\n\n```go\npackage main\n"
	_, err := NewPageParser().Parse(strings.NewReader(md), "t")
	if err == nil {
		t.Fatal("expected error for unclosed fence")
	}
	if !strings.Contains(err.Error(), "unclosed code fence") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLongerFenceQuotesShorter(t *testing.T) {
	md := "# T\n\n````sh\n$ cat snippet\n```go\npackage main\n```\n````\n"
	page, err := NewPageParser().Parse(strings.NewReader(md), "t")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(page.Examples) != 1 {
		t.Fatalf("expected 1 example, got %d", len(page.Examples))
	}
	if !strings.Contains(page.Examples[0].Source, "```go") {
		t.Errorf("expected inner fence preserved in source, got %q", page.Examples[0].Source)
	}
}

func TestFrontmatterWithoutClosingDelimiter(t *testing.T) {
	md := "---\ntitle: broken\n\n# Heading\n"
	page, err := NewPageParser().Parse(strings.NewReader(md), "t")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if page.Frontmatter.Title != "" {
		t.Errorf("expected no frontmatter parsed, got title %q", page.Frontmatter.Title)
	}
	if page.Title != "Heading" {
		t.Errorf("expected body to retain heading, got title %q", page.Title)
	}
}

func TestCRLFInput(t *testing.T) {
	md := strings.ReplaceAll(mutexPage, "\n", "\r\n")
	page, err := NewPageParser().Parse(strings.NewReader(md), "posix-mutexes")
	if err != nil {
		t.Fatalf("parse CRLF input: %v", err)
	}
	if len(page.Examples) != 2 {
		t.Errorf("expected 2 examples from CRLF input, got %d", len(page.Examples))
	}
}
