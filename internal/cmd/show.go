package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/luizgsa21/notectl/internal/fileutil"
	"github.com/luizgsa21/notectl/internal/models"
	"github.com/luizgsa21/notectl/internal/parser"
)

// NewShowCommand creates and returns the show subcommand
func NewShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <slug>",
		Short: "Show a page's sections, examples, and transcripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, args[0])
		},
		SilenceUsage: true,
	}

	cmd.Flags().Bool("source", false, "include example source code")

	return cmd
}

func runShow(cmd *cobra.Command, slug string) error {
	env, err := newAppEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	paths, err := fileutil.ScanPages(env.CorpusDir(), fileutil.DefaultScanOptions())
	if err != nil {
		return err
	}

	var page *models.Page
	p := parser.NewPageParser()
	for _, path := range paths {
		if fileutil.Slug(path) != slug {
			continue
		}
		page, err = p.ParseFile(path)
		if err != nil {
			return err
		}
		break
	}
	if page == nil {
		return fmt.Errorf("no page with slug %q under %s", slug, env.CorpusDir())
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n", page.Title)
	if page.Frontmatter.Book != "" {
		fmt.Fprintf(out, "  %s", page.Frontmatter.Book)
		if page.Frontmatter.Chapter != "" {
			fmt.Fprintf(out, ", chapter %s", page.Frontmatter.Chapter)
		}
		fmt.Fprintln(out)
	}
	if len(page.Frontmatter.Topics) > 0 {
		fmt.Fprintf(out, "  topics: %s\n", strings.Join(page.Frontmatter.Topics, ", "))
	}

	fmt.Fprintln(out, "\nSections:")
	for i, sec := range page.Sections {
		fmt.Fprintf(out, "  %s%s", strings.Repeat("  ", sec.Level-1), sec.Heading)
		if names := exampleNames(page.SectionExamples(i)); len(names) > 0 {
			fmt.Fprintf(out, "  [%s]", strings.Join(names, ", "))
		}
		fmt.Fprintln(out)
	}

	if len(page.Examples) == 0 {
		return nil
	}
	fmt.Fprintln(out, "\nExamples:")
	showSource, _ := cmd.Flags().GetBool("source")
	for _, ex := range page.Examples {
		transcript := "no transcript"
		if t := ex.Transcript; t != nil {
			transcript = fmt.Sprintf("%d commands, %d output lines", len(t.Commands), len(t.Output))
		}
		fmt.Fprintf(out, "  %s (%s, line %d): %s\n", ex.Name, ex.Language, ex.Line, transcript)
		if showSource {
			for _, line := range strings.Split(ex.Source, "\n") {
				fmt.Fprintf(out, "      %s\n", line)
			}
		}
	}
	return nil
}

func exampleNames(examples []models.CodeExample) []string {
	names := make([]string, len(examples))
	for i, ex := range examples {
		names[i] = ex.Name
	}
	return names
}
