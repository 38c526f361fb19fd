package exportfile

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/HendryAvila/tabvault/internal/model"
)

const markdownGroupPrefix = "markdown-import"

// mdSection holds the annotations seen since the last separator or heading.
type mdSection struct {
	headed  bool
	heading string
	created string // first quote line: creation annotation, kept verbatim
	quotes  int
}

// parseMarkdown reads the sectioned dialect:
//
//	---
//	## 3 tabs
//	> Created 10/10/2025, 5:33:09 AM
//	> Optional label
//
//	[Title](https://example.com)
//
// The heading is a tab count and never becomes the label. The creation
// annotation is retained but not converted; groups are stamped with parse time.
func (p Parser) parseMarkdown(content string, now time.Time, report *Report) []model.TabGroup {
	log := p.log()
	b := &groupBuilder{prefix: markdownGroupPrefix, now: now}
	var sec mdSection

	for n, raw := range splitLines(content) {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			continue

		case line == separatorMarker:
			if sec.created != "" {
				log.Debug("markdown group annotation", zap.String("heading", sec.heading), zap.String("created", sec.created))
			}
			b.flush()
			sec = mdSection{}

		case strings.HasPrefix(line, headingMarker):
			sec = mdSection{headed: true, heading: strings.TrimSpace(strings.TrimLeft(line, "#"))}

		case strings.HasPrefix(line, quoteMarker):
			// Annotations only count below a heading.
			if !sec.headed {
				continue
			}
			sec.quotes++
			text := strings.TrimSpace(strings.TrimPrefix(line, quoteMarker))
			switch sec.quotes {
			case 1:
				sec.created = text
			case 2:
				if text != "" {
					label := text
					b.label = &label
				}
			}

		default:
			title, rawURL, ok := splitLink(line)
			if !ok {
				report.IgnoredLines++
				continue
			}
			u, err := model.ParseURL(rawURL)
			if err != nil {
				report.SkippedLines++
				log.Warn("skipping markdown link with invalid url",
					zap.Int("line", n+1), zap.String("url", rawURL), zap.Error(err))
				continue
			}
			b.addTab(u, title)
		}
	}
	return b.result()
}

// splitLink parses "[title](url)". The split is at the last "](" so that
// titles keep their own brackets.
func splitLink(line string) (title, url string, ok bool) {
	if !strings.HasPrefix(line, "[") || !strings.HasSuffix(line, ")") {
		return "", "", false
	}
	idx := strings.LastIndex(line, "](")
	if idx < 1 {
		return "", "", false
	}
	title = line[1:idx]
	url = strings.TrimSuffix(line[idx+2:], ")")
	return strings.TrimSpace(title), strings.TrimSpace(url), true
}
