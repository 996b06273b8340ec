package display

import (
	"bytes"
	"strings"
	"testing"

	"github.com/luizgsa21/notectl/internal/models"
)

func TestWarningDisplay(t *testing.T) {
	var buf bytes.Buffer
	Warning{
		Title:      "Pages share a slug",
		Message:    "Slugs must be unique across the corpus",
		Pages:      []string{"docs/threads.md", "docs/old/threads.md"},
		Suggestion: "Rename one of the files",
	}.Display(&buf)

	out := buf.String()
	for _, want := range []string{"Warning: Pages share a slug", "Affected pages:", "1. docs/threads.md", "2. docs/old/threads.md", "Suggestion:"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestWarningSingularPage(t *testing.T) {
	var buf bytes.Buffer
	Warning{Title: "t", Pages: []string{"a.md"}}.Display(&buf)
	if !strings.Contains(buf.String(), "Affected page:") {
		t.Errorf("expected singular form, got: %s", buf.String())
	}
}

func TestPrintFinding(t *testing.T) {
	var buf bytes.Buffer
	PrintFinding(&buf, models.Finding{
		Rule:     "transcript-shape",
		Severity: models.SeverityError,
		Page:     "posix-mutexes",
		Example:  "mutex1.c",
		Line:     42,
		Message:  "console transcript does not start with a command",
	})

	out := buf.String()
	if !strings.Contains(out, "posix-mutexes#mutex1.c:42") {
		t.Errorf("missing location in: %s", out)
	}
	if !strings.Contains(out, "[error/transcript-shape]") {
		t.Errorf("missing tag in: %s", out)
	}
}

func TestPrintReportSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintReportSummary(&buf, 4, 0, 0)
	if !strings.Contains(buf.String(), "4 pages checked, no findings") {
		t.Errorf("unexpected clean summary: %s", buf.String())
	}

	buf.Reset()
	PrintReportSummary(&buf, 4, 2, 1)
	if !strings.Contains(buf.String(), "2 errors") || !strings.Contains(buf.String(), "1 warnings") {
		t.Errorf("unexpected summary: %s", buf.String())
	}
}

func TestProgressIndicator(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressIndicator(&buf, 2)
	p.Start()
	p.Step("docs/go-reflection.md")
	p.Step("docs/posix-mutexes.md")
	p.Complete()

	out := buf.String()
	for _, want := range []string{"[1/2] go-reflection.md", "[2/2] posix-mutexes.md", "Checked 2 pages"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in: %s", want, out)
		}
	}
}
