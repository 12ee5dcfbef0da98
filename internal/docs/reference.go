// Package docs renders a markdown command reference from a registry.
package docs

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/template"

	"guildkit/internal/command"
	"guildkit/internal/config"
)

// DefaultTemplate wraps the generated sections when no template is given.
const DefaultTemplate = "# Commands\n\n{{ .CommandSections }}"

// Sections renders every entry grouped by category, in help order. Usage and
// examples are expanded with prefix.
func Sections(entries []*command.Entry, prefix string) string {
	sorted := append([]*command.Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		wi, wj := config.CategoryWeight(sorted[i].Category), config.CategoryWeight(sorted[j].Category)
		if wi != wj {
			return wi < wj
		}
		if sorted[i].Category != sorted[j].Category {
			return sorted[i].Category < sorted[j].Category
		}
		return sorted[i].Name < sorted[j].Name
	})

	var buf bytes.Buffer
	current := ""
	for _, e := range sorted {
		if e.Category != current {
			if current != "" {
				buf.WriteString("\n")
			}
			current = e.Category
			fmt.Fprintf(&buf, "### %s\n\n", current)
		}
		fmt.Fprintf(&buf, "- **%s** - %s\n", e.Name, e.Description)
		fmt.Fprintf(&buf, "  - Usage: `%s`\n", config.Template(e.Usage, prefix, e.Name))
		if len(e.Aliases) > 0 {
			fmt.Fprintf(&buf, "  - Aliases: %s\n", strings.Join(e.Aliases, ", "))
		}
		if e.Slash {
			fmt.Fprintf(&buf, "  - Slash: `/%s`\n", e.Name)
		}
	}
	return buf.String()
}

// Render executes tmpl with the generated sections as .CommandSections.
func Render(w io.Writer, tmpl string, entries []*command.Entry, prefix string) error {
	if tmpl == "" {
		tmpl = DefaultTemplate
	}
	t, err := template.New("reference").Parse(tmpl)
	if err != nil {
		return fmt.Errorf("parse template: %w", err)
	}
	return t.Execute(w, struct{ CommandSections string }{Sections(entries, prefix)})
}
