// Package render writes stored tab groups out as JSON, YAML, or the markdown
// dialect understood by the exportfile parser.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/HendryAvila/tabvault/internal/model"
)

// Format is an output encoding.
type Format string

const (
	JSON     Format = "json"
	YAML     Format = "yaml"
	Markdown Format = "markdown"
)

// Formats lists every supported output format.
var Formats = []Format{JSON, YAML, Markdown}

// ParseFormat accepts a format name, case-insensitively. "md" and "yml" are
// accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json", "":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	case "markdown", "md":
		return Markdown, nil
	}
	return "", fmt.Errorf("render: unknown format %q", s)
}

// FilterByLabel keeps groups whose label contains label, ignoring case.
// An empty label keeps every group; unlabeled groups never match otherwise.
func FilterByLabel(groups []model.TabGroup, label string) []model.TabGroup {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return groups
	}
	out := []model.TabGroup{}
	for _, g := range groups {
		if g.Label != nil && strings.Contains(strings.ToLower(*g.Label), label) {
			out = append(out, g)
		}
	}
	return out
}

// Write encodes session to w in the given format.
func Write(w io.Writer, format Format, session *model.Session) error {
	switch format {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(session); err != nil {
			return fmt.Errorf("render: json: %w", err)
		}
		return nil
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(session); err != nil {
			return fmt.Errorf("render: yaml: %w", err)
		}
		return enc.Close()
	case Markdown:
		return writeMarkdown(w, session.Groups)
	}
	return fmt.Errorf("render: unknown format %q", format)
}

// createdLayout matches the creation annotation written by the extension.
const createdLayout = "1/2/2006, 3:04:05 PM"

var lineFlattener = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

func writeMarkdown(w io.Writer, groups []model.TabGroup) error {
	var b strings.Builder
	for _, g := range groups {
		b.WriteString("---\n")
		fmt.Fprintf(&b, "## %d tabs\n", len(g.Tabs))
		fmt.Fprintf(&b, "> Created %s\n", g.CreatedAt.UTC().Format(createdLayout))
		if g.Label != nil && strings.TrimSpace(*g.Label) != "" {
			fmt.Fprintf(&b, "> %s\n", lineFlattener.Replace(strings.TrimSpace(*g.Label)))
		}
		b.WriteString("\n")
		for _, t := range g.Tabs {
			title := strings.TrimSpace(lineFlattener.Replace(t.Title))
			if title == "" {
				title = t.URL
			}
			fmt.Fprintf(&b, "[%s](%s)\n", title, t.URL)
		}
		b.WriteString("\n")
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("render: markdown: %w", err)
	}
	return nil
}
