package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/luizgsa21/notectl/internal/filelock"
	"github.com/luizgsa21/notectl/internal/parser"
)

// NewFmtCommand creates and returns the fmt subcommand
func NewFmtCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fmt [page-file]...",
		Short: "Normalize page formatting",
		Long: `Rewrite pages into canonical form: frontmatter keys in standard order
(title, topics, book, chapter, draft), LF line endings, no trailing
whitespace outside fenced code blocks, at most one consecutive blank
line, and a single trailing newline. Fenced code blocks and transcripts
are left byte-for-byte intact. Writes are atomic, so a concurrent
reader never sees a half-written page.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFmt(cmd, args)
		},
		SilenceUsage: true,
	}

	cmd.Flags().Bool("check", false, "list pages needing formatting without rewriting them")

	return cmd
}

func runFmt(cmd *cobra.Command, args []string) error {
	env, err := newAppEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	paths := args
	if len(paths) == 0 {
		paths, err = env.ScanCorpus()
		if err != nil {
			return err
		}
	}

	checkOnly, _ := cmd.Flags().GetBool("check")
	out := cmd.OutOrStdout()

	changed := 0
	for _, path := range paths {
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		formatted, err := formatPage(src)
		if err != nil {
			return fmt.Errorf("format %s: %w", path, err)
		}
		if bytes.Equal(src, formatted) {
			continue
		}
		changed++

		rel := path
		if r, err := filepath.Rel(env.Root, path); err == nil {
			rel = r
		}
		if checkOnly {
			fmt.Fprintln(out, rel)
			continue
		}
		if err := filelock.AtomicWrite(path, formatted); err != nil {
			return err
		}
		env.Log.Infof("formatted %s", rel)
	}

	if checkOnly && changed > 0 {
		return fmt.Errorf("%d pages need formatting", changed)
	}
	if !checkOnly {
		fmt.Fprintf(out, "Formatted %d of %d pages\n", changed, len(paths))
	}
	return nil
}

// formatPage canonicalizes a page, leaving fenced block bodies untouched.
func formatPage(src []byte) ([]byte, error) {
	normalized := bytes.ReplaceAll(src, []byte("\r\n"), []byte("\n"))

	normalized, err := normalizeFrontmatter(normalized)
	if err != nil {
		return nil, err
	}

	fences, err := parser.ScanFences(normalized)
	if err != nil {
		return nil, err
	}
	inFence := make(map[int]bool)
	for _, f := range fences {
		for line := f.Line; line <= f.EndLine; line++ {
			inFence[line] = true
		}
	}

	lines := bytes.Split(normalized, []byte("\n"))
	var result [][]byte
	blankRun := 0
	for i, line := range lines {
		lineNo := i + 1
		if !inFence[lineNo] {
			line = bytes.TrimRight(line, " \t")
			if len(line) == 0 {
				blankRun++
				if blankRun > 1 {
					continue
				}
			} else {
				blankRun = 0
			}
		} else {
			blankRun = 0
		}
		result = append(result, line)
	}

	// Single trailing newline
	for len(result) > 0 && len(result[len(result)-1]) == 0 {
		result = result[:len(result)-1]
	}
	result = append(result, nil)

	return bytes.Join(result, []byte("\n")), nil
}

// frontmatterRank orders the known metadata keys; unknown keys sort after
// them, keeping their relative order.
var frontmatterRank = map[string]int{
	"title":   0,
	"topics":  1,
	"book":    2,
	"chapter": 3,
	"draft":   4,
}

// normalizeFrontmatter rewrites the frontmatter block with keys in canonical
// order. Values, styles, and unknown keys pass through untouched. Pages
// without a complete frontmatter block come back unchanged.
func normalizeFrontmatter(src []byte) ([]byte, error) {
	lines := bytes.Split(src, []byte("\n"))
	if len(lines) < 3 || !bytes.Equal(bytes.TrimSpace(lines[0]), []byte("---")) {
		return src, nil
	}
	end := -1
	for i := 1; i < len(lines); i++ {
		if bytes.Equal(bytes.TrimSpace(lines[i]), []byte("---")) {
			end = i
			break
		}
	}
	if end == -1 {
		return src, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(bytes.Join(lines[1:end], []byte("\n")), &doc); err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return src, nil
	}
	mapping := doc.Content[0]

	type pair struct{ key, value *yaml.Node }
	pairs := make([]pair, 0, len(mapping.Content)/2)
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		pairs = append(pairs, pair{mapping.Content[i], mapping.Content[i+1]})
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return keyRank(pairs[i].key.Value) < keyRank(pairs[j].key.Value)
	})
	mapping.Content = mapping.Content[:0]
	for _, p := range pairs {
		mapping.Content = append(mapping.Content, p.key, p.value)
	}

	block, err := yaml.Marshal(mapping)
	if err != nil {
		return nil, fmt.Errorf("render frontmatter: %w", err)
	}

	var out bytes.Buffer
	out.WriteString("---\n")
	out.Write(block)
	out.WriteString("---")
	if end+1 < len(lines) {
		out.WriteString("\n")
		out.Write(bytes.Join(lines[end+1:], []byte("\n")))
	}
	return out.Bytes(), nil
}

func keyRank(key string) int {
	if rank, ok := frontmatterRank[key]; ok {
		return rank
	}
	return len(frontmatterRank)
}
