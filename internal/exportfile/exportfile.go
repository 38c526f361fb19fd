// Package exportfile parses the plain-text exports produced by the tab-group
// extension. Two dialects exist: a pipe-delimited list ("URL | Title") and a
// markdown document with one "---" section per group.
//
// Identifiers are assigned by position in the file, so parsing byte-identical
// content always yields identical group and tab ids. Reordering the input
// changes them.
package exportfile

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/HendryAvila/tabvault/internal/model"
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// Format is an export dialect.
type Format string

const (
	Pipe     Format = "pipe"
	Markdown Format = "markdown"
)

// Markers that together identify the markdown dialect.
const (
	separatorMarker = "---"
	headingMarker   = "##"
	quoteMarker     = ">"
	tabCountWord    = "tabs"
)

// Detect classifies content. Anything that is not clearly markdown is
// treated as the pipe dialect.
func Detect(content string) Format {
	if strings.Contains(content, separatorMarker) &&
		strings.Contains(content, headingMarker) &&
		strings.Contains(content, tabCountWord) {
		return Markdown
	}
	return Pipe
}

// Report describes what a parse produced and what it skipped.
type Report struct {
	Format       Format `json:"format"`
	Groups       int    `json:"groups"`
	Tabs         int    `json:"tabs"`
	SkippedLines int    `json:"skipped_lines"` // tab lines with an unparseable url
	IgnoredLines int    `json:"ignored_lines"` // header or descriptive text
}

// Parser turns export text into a session.
type Parser struct {
	Log *zap.Logger
}

func (p Parser) log() *zap.Logger {
	if p.Log == nil {
		return zap.NewNop()
	}
	return p.Log
}

// Parse detects the dialect of content and parses it. path is recorded as
// the session's source.
func (p Parser) Parse(content, path string) (*model.Session, *Report) {
	session := model.NewSession(model.ExportFileSource(path))
	report := &Report{Format: Detect(content)}

	now := timeNow().UTC()
	switch report.Format {
	case Markdown:
		session.Groups = p.parseMarkdown(content, now, report)
	default:
		session.Groups = p.parsePipe(content, now, report)
	}

	report.Groups = len(session.Groups)
	report.Tabs = session.TotalTabs()
	return session, report
}

// ParseFile reads and parses the export file at path.
func (p Parser) ParseFile(path string) (*model.Session, *Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("exportfile: read %s: %w", path, err)
	}
	session, report := p.Parse(string(data), path)
	p.log().Info("parsed export file",
		zap.String("path", path),
		zap.String("format", string(report.Format)),
		zap.Int("groups", report.Groups),
		zap.Int("tabs", report.Tabs),
		zap.Int("skipped_lines", report.SkippedLines))
	return session, report, nil
}

// Parse is a convenience for Parser{}.Parse.
func Parse(content, path string) (*model.Session, *Report) {
	return Parser{}.Parse(content, path)
}

// ─── Shared helpers ──────────────────────────────────────────────────────────

// groupBuilder accumulates tabs for the group currently being parsed and
// assigns positional ids when the group is closed.
type groupBuilder struct {
	prefix string
	now    time.Time
	groups []model.TabGroup
	tabs   []model.Tab
	label  *string
}

func (b *groupBuilder) addTab(url, title string) {
	g := len(b.groups)
	b.tabs = append(b.tabs, model.Tab{
		ID:      fmt.Sprintf("tab-%d-%d", g, len(b.tabs)),
		URL:     url,
		Title:   title,
		AddedAt: b.now,
	})
}

// flush closes the current group if it has tabs. Empty groups are discarded.
func (b *groupBuilder) flush() {
	if len(b.tabs) > 0 {
		b.groups = append(b.groups, model.TabGroup{
			ID:        fmt.Sprintf("%s-%d", b.prefix, len(b.groups)),
			Label:     b.label,
			CreatedAt: b.now,
			Tabs:      b.tabs,
		})
	}
	b.tabs = nil
	b.label = nil
}

func (b *groupBuilder) result() []model.TabGroup {
	b.flush()
	if b.groups == nil {
		return []model.TabGroup{}
	}
	return b.groups
}

// splitLines splits on \n and drops a trailing \r from each line.
func splitLines(content string) []string {
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
