package exportfile

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/HendryAvila/tabvault/internal/model"
)

const pipeGroupPrefix = "pipe-import"

// parsePipe reads "URL | Title" lines. A blank line closes the current group.
// A line that is a bare URL becomes a tab with an empty title; any other line
// without a separator is descriptive text and is ignored.
func (p Parser) parsePipe(content string, now time.Time, report *Report) []model.TabGroup {
	log := p.log()
	b := &groupBuilder{prefix: pipeGroupPrefix, now: now}

	for n, raw := range splitLines(content) {
		line := strings.TrimSpace(raw)
		if line == "" {
			b.flush()
			continue
		}

		rawURL, title, ok := splitPipe(line)
		if !ok {
			if strings.ContainsAny(line, " \t") {
				report.IgnoredLines++
				continue
			}
			u, err := model.ParseURL(line)
			if err != nil {
				report.IgnoredLines++
				continue
			}
			b.addTab(u, "")
			continue
		}

		u, err := model.ParseURL(rawURL)
		if err != nil {
			report.SkippedLines++
			log.Warn("skipping export line with invalid url",
				zap.Int("line", n+1), zap.String("url", rawURL), zap.Error(err))
			continue
		}
		b.addTab(u, title)
	}
	return b.result()
}

// splitPipe splits a line at its first " | ", falling back to the first bare "|".
func splitPipe(line string) (url, title string, ok bool) {
	if before, after, found := strings.Cut(line, " | "); found {
		return strings.TrimSpace(before), strings.TrimSpace(after), true
	}
	if before, after, found := strings.Cut(line, "|"); found {
		return strings.TrimSpace(before), strings.TrimSpace(after), true
	}
	return "", "", false
}
