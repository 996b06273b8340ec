// Package checker runs the documentation fidelity rules over parsed pages.
//
// A check run verifies what the corpus promises about itself: runnable
// examples carry transcripts, transcripts look like real terminal sessions,
// intra-corpus links resolve, and transcripts still match any recorded
// golden output. It does not compile or run the quoted snippets; those
// target external runtimes the corpus only describes.
package checker

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/luizgsa21/notectl/internal/config"
	"github.com/luizgsa21/notectl/internal/inspect"
	"github.com/luizgsa21/notectl/internal/models"
	"github.com/luizgsa21/notectl/internal/parser"
)

// Rule names, as referenced by check.disabled_rules in .notectl.yaml.
const (
	RuleTranscriptPresent = "transcript-present"
	RuleTranscriptShape   = "transcript-shape"
	RuleLanguageTag       = "language-tag"
	RuleLinkResolve       = "link-resolve"
	RuleUniqueSlug        = "unique-slug"
	RuleGolden            = "golden"
)

// Checker evaluates fidelity rules against pages of one corpus.
type Checker struct {
	root     string
	cfg      config.CheckConfig
	disabled map[string]bool
	runnable map[string]bool
}

// New creates a Checker for the corpus rooted at root.
func New(root string, cfg config.CheckConfig) *Checker {
	c := &Checker{
		root:     root,
		cfg:      cfg,
		disabled: make(map[string]bool),
	}
	for _, rule := range cfg.DisabledRules {
		c.disabled[rule] = true
	}
	if len(cfg.RunnableLanguages) > 0 {
		c.runnable = make(map[string]bool)
		for _, lang := range cfg.RunnableLanguages {
			c.runnable[lang] = true
		}
	}
	return c
}

// isRunnable applies the configured language override, falling back to the
// model default.
func (c *Checker) isRunnable(ex models.CodeExample) bool {
	if c.runnable != nil {
		return c.runnable[ex.Language]
	}
	return ex.Runnable()
}

// CorpusFiles returns the set of known page paths, used by CheckPage for
// link resolution.
func CorpusFiles(pages []*models.Page) map[string]bool {
	files := make(map[string]bool, len(pages))
	for _, p := range pages {
		if p.Path != "" {
			files[filepath.Clean(p.Path)] = true
		}
	}
	return files
}

// CrossFindings evaluates the rules that need the whole corpus at once,
// keyed by slug. Currently that is unique-slug.
func (c *Checker) CrossFindings(pages []*models.Page) map[string][]models.Finding {
	findings := make(map[string][]models.Finding)
	if c.disabled[RuleUniqueSlug] {
		return findings
	}

	slugs := make(map[string][]string, len(pages)) // slug -> paths
	for _, p := range pages {
		slugs[p.Slug] = append(slugs[p.Slug], p.Path)
	}
	for slug, paths := range slugs {
		if len(paths) > 1 {
			findings[slug] = append(findings[slug], models.Finding{
				Rule:     RuleUniqueSlug,
				Severity: models.SeverityError,
				Page:     slug,
				Message:  fmt.Sprintf("slug %q is shared by %s", slug, strings.Join(paths, ", ")),
			})
		}
	}
	return findings
}

// CheckCorpus checks every page serially, including the cross-page rules,
// and returns one report per page in input order. The check command runs
// the same pieces concurrently through the page registry.
func (c *Checker) CheckCorpus(pages []*models.Page) []*models.CheckReport {
	files := CorpusFiles(pages)
	cross := c.CrossFindings(pages)

	reports := make([]*models.CheckReport, 0, len(pages))
	for _, p := range pages {
		r := c.CheckPage(p, files)
		r.Findings = append(r.Findings, cross[p.Slug]...)
		c.Finalize(r)
		reports = append(reports, r)
	}
	return reports
}

// CheckPage runs the per-page rules. corpusFiles, when non-nil, is the set
// of known page paths used for link resolution.
func (c *Checker) CheckPage(page *models.Page, corpusFiles map[string]bool) *models.CheckReport {
	start := time.Now()
	r := &models.CheckReport{Page: page.Slug, Path: page.Path}

	if err := page.Validate(); err != nil {
		r.Findings = append(r.Findings, models.Finding{
			Rule:     "page-valid",
			Severity: models.SeverityError,
			Page:     page.Slug,
			Message:  err.Error(),
		})
	}

	if !c.disabled[RuleTranscriptPresent] {
		c.checkTranscriptPresent(page, r)
	}
	if !c.disabled[RuleTranscriptShape] {
		c.checkTranscriptShape(page, r)
	}
	if !c.disabled[RuleLanguageTag] {
		c.checkLanguageTags(page, r)
	}
	if !c.disabled[RuleLinkResolve] && corpusFiles != nil {
		c.checkLinks(page, corpusFiles, r)
	}
	if !c.disabled[RuleGolden] {
		c.checkGolden(page, r)
	}

	r.Duration = time.Since(start)
	return r
}

// Finalize applies strict promotion. Call exactly once per report, after
// all findings are appended.
func (c *Checker) Finalize(r *models.CheckReport) {
	if !c.cfg.Strict {
		return
	}
	for i := range r.Findings {
		r.Findings[i].Severity = models.SeverityError
	}
}

func (c *Checker) checkTranscriptPresent(page *models.Page, r *models.CheckReport) {
	for _, ex := range page.Examples {
		if c.isRunnable(ex) && !ex.HasTranscript() {
			r.Findings = append(r.Findings, models.Finding{
				Rule:     RuleTranscriptPresent,
				Severity: models.SeverityWarn,
				Page:     page.Slug,
				Example:  ex.Name,
				Line:     ex.Line,
				Message:  fmt.Sprintf("runnable %s example has no expected-output transcript", ex.Language),
			})
		}
	}
}

func (c *Checker) checkTranscriptShape(page *models.Page, r *models.CheckReport) {
	for _, ex := range page.Examples {
		t := ex.Transcript
		if t == nil || len(t.Commands) == 0 {
			// Output-only transcripts (tagged "output") have no commands to order
			continue
		}
		first, _, _ := strings.Cut(t.Raw, "\n")
		if !strings.HasPrefix(first, "$ ") {
			r.Findings = append(r.Findings, models.Finding{
				Rule:     RuleTranscriptShape,
				Severity: models.SeverityError,
				Page:     page.Slug,
				Example:  ex.Name,
				Line:     ex.Line,
				Message:  "console transcript must open with a $-prefixed command line",
			})
		}
	}
}

// checkLanguageTags flags fences with no info string that are not bound
// transcripts: an untagged block is either an unlabeled snippet or a
// transcript that forgot its command line.
func (c *Checker) checkLanguageTags(page *models.Page, r *models.CheckReport) {
	fences, err := parser.ScanFences([]byte(page.Body))
	if err != nil {
		// The parser already rejected unscannable bodies
		return
	}

	bound := make(map[int]bool)
	for _, ex := range page.Examples {
		if ex.Transcript != nil {
			for _, f := range fences {
				if f.Body == ex.Transcript.Raw {
					bound[f.Line] = true
				}
			}
		}
	}

	for _, f := range fences {
		if f.Info != "" || bound[f.Line] {
			continue
		}
		r.Findings = append(r.Findings, models.Finding{
			Rule:     RuleLanguageTag,
			Severity: models.SeverityWarn,
			Page:     page.Slug,
			Line:     f.Line,
			Message:  "fenced block has no language tag",
		})
	}
}

// linkPattern captures Markdown link targets.
var linkPattern = regexp.MustCompile(`\]\(([^)\s]+)\)`)

func (c *Checker) checkLinks(page *models.Page, corpusFiles map[string]bool, r *models.CheckReport) {
	// Links inside code fences are quoted text, not navigation
	body := stripFences(page.Body)

	for _, match := range linkPattern.FindAllStringSubmatch(body, -1) {
		target := match[1]
		if strings.Contains(target, "://") || strings.HasPrefix(target, "#") || strings.HasPrefix(target, "mailto:") {
			continue
		}
		target, _, _ = strings.Cut(target, "#")
		if !strings.HasSuffix(target, ".md") {
			continue
		}

		resolved := target
		if !filepath.IsAbs(target) && page.Path != "" {
			resolved = filepath.Join(filepath.Dir(page.Path), target)
		}
		resolved = filepath.Clean(resolved)

		if corpusFiles[resolved] {
			continue
		}
		if _, err := os.Stat(resolved); err == nil {
			continue
		}

		r.Findings = append(r.Findings, models.Finding{
			Rule:     RuleLinkResolve,
			Severity: models.SeverityError,
			Page:     page.Slug,
			Message:  fmt.Sprintf("link target %s does not resolve", match[1]),
		})
	}
}

// stripFences blanks out fenced block interiors, preserving line count.
func stripFences(body string) string {
	lines := strings.Split(body, "\n")
	inFence := false
	fenceLen := 0
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		ticks := 0
		for ticks < len(trimmed) && trimmed[ticks] == '`' {
			ticks++
		}
		if !inFence {
			if ticks >= 3 {
				inFence = true
				fenceLen = ticks
				lines[i] = ""
			}
			continue
		}
		lines[i] = ""
		if ticks >= fenceLen && strings.TrimSpace(trimmed[ticks:]) == "" {
			inFence = false
		}
	}
	return strings.Join(lines, "\n")
}

// checkGolden compares stored transcript output against recorded golden
// files at <golden_dir>/<slug>/<example>.out. Missing golden files are not
// findings: the rule only fires when a recording exists to diverge from.
func (c *Checker) checkGolden(page *models.Page, r *models.CheckReport) {
	goldenDir := c.cfg.GoldenDir
	if goldenDir == "" {
		return
	}
	if !filepath.IsAbs(goldenDir) {
		goldenDir = filepath.Join(c.root, goldenDir)
	}

	for _, ex := range page.Examples {
		if ex.Transcript == nil {
			continue
		}
		goldenPath := filepath.Join(goldenDir, page.Slug, ex.Name+".out")
		want, err := os.ReadFile(goldenPath)
		if err != nil {
			continue
		}

		got := strings.Join(ex.Transcript.Output, "\n")
		if diff := inspect.DiffLines(string(want), got); diff != "" {
			r.Findings = append(r.Findings, models.Finding{
				Rule:     RuleGolden,
				Severity: models.SeverityError,
				Page:     page.Slug,
				Example:  ex.Name,
				Line:     ex.Line,
				Message:  fmt.Sprintf("transcript diverges from %s:\n%s", goldenPath, diff),
			})
		}
	}
}
