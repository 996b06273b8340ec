package checker

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luizgsa21/notectl/internal/config"
	"github.com/luizgsa21/notectl/internal/models"
	"github.com/luizgsa21/notectl/internal/parser"
)

func parsePage(t *testing.T, slug, md string) *models.Page {
	t.Helper()
	page, err := parser.NewPageParser().Parse(strings.NewReader(md), slug)
	require.NoError(t, err)
	return page
}

func findRules(r *models.CheckReport) []string {
	var rules []string
	for _, f := range r.Findings {
		rules = append(rules, f.Rule)
	}
	return rules
}

func TestTranscriptPresent(t *testing.T) {
	page := parsePage(t, "threads", "# Threads\n\n```c thread_incr.c\nint main(void) {}\n```\n")
	c := New(t.TempDir(), config.CheckConfig{GoldenDir: "testdata/golden"})

	r := c.CheckPage(page, nil)
	require.Len(t, r.Findings, 1)
	assert.Equal(t, RuleTranscriptPresent, r.Findings[0].Rule)
	assert.Equal(t, models.SeverityWarn, r.Findings[0].Severity)
	assert.Equal(t, "thread_incr.c", r.Findings[0].Example)
}

func TestTranscriptPresentSatisfied(t *testing.T) {
	md := "# Threads\n\n```c thread_incr.c\nint main(void) {}\n```\n\n```\n$ ./thread_incr\nglob = 20000000\n```\n"
	page := parsePage(t, "threads", md)
	c := New(t.TempDir(), config.CheckConfig{})

	r := c.CheckPage(page, nil)
	assert.True(t, r.Clean(), "unexpected findings: %v", r.Findings)
}

func TestTranscriptShape(t *testing.T) {
	// Transcript whose first line is output, with a command buried below
	md := "# Threads\n\n```c t.c\nint main(void) {}\n```\n\n```output\nglob = 1\n$ ./t\n```\n"
	page := parsePage(t, "threads", md)
	require.NotNil(t, page.Examples[0].Transcript, "fixture must bind the transcript")

	c := New(t.TempDir(), config.CheckConfig{})
	r := c.CheckPage(page, nil)
	assert.Contains(t, findRules(r), RuleTranscriptShape)
}

func TestLanguageTag(t *testing.T) {
	// Untagged block that is not a transcript (no $ prefix, not bound)
	md := "# T\n\n```\nplain snippet\n```\n"
	page := parsePage(t, "t", md)
	c := New(t.TempDir(), config.CheckConfig{})

	r := c.CheckPage(page, nil)
	assert.Contains(t, findRules(r), RuleLanguageTag)
}

func TestLanguageTagSkipsBoundTranscripts(t *testing.T) {
	md := "# T\n\n```go\npackage main\n```\n\n```\n$ go run x.go\nhi\n```\n"
	page := parsePage(t, "t", md)
	c := New(t.TempDir(), config.CheckConfig{})

	r := c.CheckPage(page, nil)
	assert.NotContains(t, findRules(r), RuleLanguageTag)
}

func TestLinkResolve(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "docs", "go-reflection.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(existing), 0755))
	require.NoError(t, os.WriteFile(existing, []byte("# R\n"), 0644))

	md := "# T\n\nSee [reflection](go-reflection.md) and [gone](missing-page.md)\nand [the web](https://example.com/page.md) and [an anchor](#section).\n"
	page := parsePage(t, "t", md)
	page.Path = filepath.Join(root, "docs", "t.md")

	c := New(root, config.CheckConfig{})
	corpus := map[string]bool{filepath.Clean(existing): true}
	r := c.CheckPage(page, corpus)

	var linkFindings []models.Finding
	for _, f := range r.Findings {
		if f.Rule == RuleLinkResolve {
			linkFindings = append(linkFindings, f)
		}
	}
	require.Len(t, linkFindings, 1)
	assert.Contains(t, linkFindings[0].Message, "missing-page.md")
}

func TestLinkResolveIgnoresFencedLinks(t *testing.T) {
	md := "# T\n\n```md\n[quoted](not-a-real-page.md)\n```\n"
	page := parsePage(t, "t", md)
	page.Path = filepath.Join(t.TempDir(), "t.md")

	c := New(filepath.Dir(page.Path), config.CheckConfig{})
	r := c.CheckPage(page, map[string]bool{})
	assert.NotContains(t, findRules(r), RuleLinkResolve)
}

func TestGolden(t *testing.T) {
	root := t.TempDir()
	goldenPath := filepath.Join(root, "testdata", "golden", "threads", "thread_incr.c.out")
	require.NoError(t, os.MkdirAll(filepath.Dir(goldenPath), 0755))
	require.NoError(t, os.WriteFile(goldenPath, []byte("glob = 20000000\n"), 0644))

	md := "# Threads\n\n```c thread_incr.c\nint main(void) {}\n```\n\n```\n$ ./thread_incr\nglob = 16517656\n```\n"
	page := parsePage(t, "threads", md)

	c := New(root, config.CheckConfig{GoldenDir: "testdata/golden"})
	r := c.CheckPage(page, nil)

	rules := findRules(r)
	require.Contains(t, rules, RuleGolden)
	for _, f := range r.Findings {
		if f.Rule == RuleGolden {
			assert.Contains(t, f.Message, "- glob = 20000000")
			assert.Contains(t, f.Message, "+ glob = 16517656")
		}
	}
}

func TestGoldenMatchIsClean(t *testing.T) {
	root := t.TempDir()
	goldenPath := filepath.Join(root, "testdata", "golden", "threads", "thread_incr.c.out")
	require.NoError(t, os.MkdirAll(filepath.Dir(goldenPath), 0755))
	require.NoError(t, os.WriteFile(goldenPath, []byte("glob = 20000000\n"), 0644))

	md := "# Threads\n\n```c thread_incr.c\nint main(void) {}\n```\n\n```\n$ ./thread_incr\nglob = 20000000\n```\n"
	page := parsePage(t, "threads", md)

	c := New(root, config.CheckConfig{GoldenDir: "testdata/golden"})
	r := c.CheckPage(page, nil)
	assert.NotContains(t, findRules(r), RuleGolden)
}

func TestUniqueSlugAcrossCorpus(t *testing.T) {
	a := parsePage(t, "threads", "# A\n")
	a.Path = "docs/threads.md"
	b := parsePage(t, "threads", "# B\n")
	b.Path = "docs/old/threads.md"

	c := New(t.TempDir(), config.CheckConfig{})
	reports := c.CheckCorpus([]*models.Page{a, b})

	require.Len(t, reports, 2)
	for _, r := range reports {
		assert.Contains(t, findRules(r), RuleUniqueSlug)
	}
}

func TestStrictPromotesWarnings(t *testing.T) {
	page := parsePage(t, "threads", "# Threads\n\n```c t.c\nint main(void) {}\n```\n")
	c := New(t.TempDir(), config.CheckConfig{Strict: true})

	reports := c.CheckCorpus([]*models.Page{page})
	require.Len(t, reports, 1)
	require.NotEmpty(t, reports[0].Findings)
	for _, f := range reports[0].Findings {
		assert.Equal(t, models.SeverityError, f.Severity)
	}
}

func TestDisabledRules(t *testing.T) {
	page := parsePage(t, "threads", "# Threads\n\n```c t.c\nint main(void) {}\n```\n")
	c := New(t.TempDir(), config.CheckConfig{DisabledRules: []string{RuleTranscriptPresent}})

	reports := c.CheckCorpus([]*models.Page{page})
	assert.True(t, reports[0].Clean(), "disabled rule still fired: %v", reports[0].Findings)
}

func TestRunnableLanguageOverride(t *testing.T) {
	page := parsePage(t, "t", "# T\n\n```c t.c\nint main(void) {}\n```\n")
	c := New(t.TempDir(), config.CheckConfig{RunnableLanguages: []string{"go"}})

	r := c.CheckPage(page, nil)
	assert.NotContains(t, findRules(r), RuleTranscriptPresent)
}
