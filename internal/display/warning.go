package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/luizgsa21/notectl/internal/models"
)

// Warning represents a user-facing warning message
type Warning struct {
	Title      string   // Main warning title
	Message    string   // Detailed explanation (optional)
	Pages      []string // Related pages (optional)
	Suggestion string   // Action to take (optional)
}

// Display shows a formatted warning in yellow
func (w Warning) Display(out io.Writer) {
	var b strings.Builder

	b.WriteString("\x1b[33m")
	b.WriteString("⚠️  Warning: ")
	b.WriteString(w.Title)
	b.WriteString("\n")

	if w.Message != "" {
		b.WriteString("    ")
		b.WriteString(w.Message)
		b.WriteString("\n")
	}

	if len(w.Pages) > 0 {
		b.WriteString("    ")
		if len(w.Pages) == 1 {
			b.WriteString("Affected page:\n")
		} else {
			b.WriteString("Affected pages:\n")
		}
		for i, page := range w.Pages {
			b.WriteString("      ")
			b.WriteString(fmt.Sprintf("%d. %s", i+1, page))
			b.WriteString("\n")
		}
	}

	if w.Suggestion != "" {
		b.WriteString("    Suggestion:\n")
		b.WriteString("    ")
		b.WriteString(w.Suggestion)
		b.WriteString("\n")
	}

	b.WriteString("\x1b[0m")
	fmt.Fprint(out, b.String())
}

// PrintFinding renders one checker finding as a single line:
// page[:line] [severity/rule] message
func PrintFinding(out io.Writer, f models.Finding) {
	location := f.Page
	if f.Example != "" {
		location += "#" + f.Example
	}
	if f.Line > 0 {
		location += fmt.Sprintf(":%d", f.Line)
	}

	tag := fmt.Sprintf("[%s/%s]", f.Severity, f.Rule)
	if f.Severity == models.SeverityError {
		tag = "\x1b[31m" + tag + "\x1b[0m"
	} else {
		tag = "\x1b[33m" + tag + "\x1b[0m"
	}

	fmt.Fprintf(out, "%s %s %s\n", location, tag, f.Message)
}

// PrintReportSummary renders the closing line of a check run.
func PrintReportSummary(out io.Writer, pages, errors, warnings int) {
	if errors == 0 && warnings == 0 {
		fmt.Fprintf(out, "\x1b[32m✓\x1b[0m %d pages checked, no findings\n", pages)
		return
	}
	fmt.Fprintf(out, "%d pages checked: \x1b[31m%d errors\x1b[0m, \x1b[33m%d warnings\x1b[0m\n",
		pages, errors, warnings)
}
