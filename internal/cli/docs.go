package cli

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tessro/sandexec/internal/docsite"
)

var (
	docsOut      string
	docsHTML     bool
	docsTemplate string
)

var docsCmd = &cobra.Command{
	Use:    "docs",
	Short:  "Generate the command reference",
	Long:   "Write one Markdown page per command, and optionally render them to HTML.",
	Args:   cobra.NoArgs,
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		gen, err := docsite.NewGenerator(docsOut, docsTemplate)
		if err != nil {
			return err
		}

		pages := referencePages(rootCmd)
		if err := gen.WriteMarkdown(pages); err != nil {
			return err
		}
		if docsHTML {
			if err := gen.WriteHTML(pages); err != nil {
				return err
			}
		}

		fmt.Printf("🐚 Wrote %d pages to %s\n", len(pages), docsOut)
		return nil
	},
}

// referencePages builds an index page plus one page per visible command.
func referencePages(root *cobra.Command) []docsite.Page {
	var cmds []*cobra.Command
	var walk func(c *cobra.Command)
	walk = func(c *cobra.Command) {
		for _, sub := range c.Commands() {
			if !sub.IsAvailableCommand() || sub.IsAdditionalHelpTopicCommand() {
				continue
			}
			cmds = append(cmds, sub)
			walk(sub)
		}
	}
	walk(root)

	var index bytes.Buffer
	fmt.Fprintf(&index, "# %s\n\n%s\n\n## Commands\n\n", root.Name(), root.Long)
	for _, c := range cmds {
		fmt.Fprintf(&index, "- [%s](%s.md): %s\n", c.CommandPath(), pageName(c), c.Short)
	}

	pages := []docsite.Page{{Name: docsite.IndexPage, Markdown: index.Bytes()}}
	for _, c := range cmds {
		pages = append(pages, docsite.Page{Name: pageName(c), Markdown: commandMarkdown(c)})
	}
	return pages
}

func pageName(c *cobra.Command) string {
	return strings.ReplaceAll(c.CommandPath(), " ", "-")
}

func commandMarkdown(c *cobra.Command) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# %s\n\n%s\n\n", c.CommandPath(), c.Short)
	fmt.Fprintf(&b, "```\n%s\n```\n\n", c.UseLine())
	if c.Long != "" {
		fmt.Fprintf(&b, "%s\n\n", c.Long)
	}
	if flags := c.NonInheritedFlags().FlagUsages(); flags != "" {
		fmt.Fprintf(&b, "## Flags\n\n```\n%s```\n\n", flags)
	}
	if flags := c.InheritedFlags().FlagUsages(); flags != "" {
		fmt.Fprintf(&b, "## Global flags\n\n```\n%s```\n\n", flags)
	}
	fmt.Fprintf(&b, "[Back to index](%s.md)\n", docsite.IndexPage)
	return b.Bytes()
}

func init() {
	docsCmd.Flags().StringVarP(&docsOut, "out", "o", "docs", "output directory")
	docsCmd.Flags().BoolVar(&docsHTML, "html", false, "also render HTML pages")
	docsCmd.Flags().StringVar(&docsTemplate, "template", "", "HTML page template (default built-in)")
	rootCmd.AddCommand(docsCmd)
}
