package models

import "time"

// Severity classifies a finding.
type Severity string

const (
	// SeverityError findings fail a check run
	SeverityError Severity = "error"

	// SeverityWarn findings are reported but do not fail the run
	SeverityWarn Severity = "warn"
)

// Finding is a single fidelity problem located in a page.
type Finding struct {
	// Rule is the name of the check that produced this finding
	Rule string

	// Severity is error or warn
	Severity Severity

	// Page is the slug of the affected page
	Page string

	// Example names the affected example, empty for page-level findings
	Example string

	// Line is the 1-based line in the page body, 0 if not line-specific
	Line int

	// Message describes the problem
	Message string
}

// CheckReport aggregates the findings for one page.
type CheckReport struct {
	// Page is the slug of the checked page
	Page string

	// Path is the file the page was loaded from
	Path string

	// Findings holds every finding, errors and warnings mixed, in rule order
	Findings []Finding

	// Duration is how long the rules took for this page
	Duration time.Duration
}

// ErrorCount returns the number of error-severity findings.
func (r *CheckReport) ErrorCount() int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			n++
		}
	}
	return n
}

// WarnCount returns the number of warn-severity findings.
func (r *CheckReport) WarnCount() int {
	return len(r.Findings) - r.ErrorCount()
}

// Clean reports whether the page produced no findings at all.
func (r *CheckReport) Clean() bool {
	return len(r.Findings) == 0
}
