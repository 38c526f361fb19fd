// Package search ranks the tabs of an in-memory session by fuzzy match
// against a query.
package search

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/HendryAvila/tabvault/internal/model"
)

// Field selects what a query is matched against.
type Field string

const (
	FieldTitle Field = "title"
	FieldURL   Field = "url"
	FieldAll   Field = "all"
)

// ParseField maps a name to a Field. The empty string means FieldAll.
func ParseField(name string) (Field, error) {
	switch f := Field(strings.ToLower(strings.TrimSpace(name))); f {
	case "", FieldAll:
		return FieldAll, nil
	case FieldTitle, FieldURL:
		return f, nil
	default:
		return "", fmt.Errorf("search: unknown field %q (want title, url or all)", name)
	}
}

// Result is one matching tab.
type Result struct {
	Tab     model.Tab `json:"tab"`
	GroupID string    `json:"group_id"`
	Score   int       `json:"score"`
}

type entry struct {
	tab     model.Tab
	groupID string
}

// tabSource adapts the flattened tabs to fuzzy.Source.
type tabSource struct {
	entries []entry
	field   func(model.Tab) string
}

func (s tabSource) String(i int) string { return s.field(s.entries[i].tab) }
func (s tabSource) Len() int            { return len(s.entries) }

// Tabs returns the tabs in s matching query, best first. Ties keep session
// order. limit <= 0 returns every match.
func Tabs(s *model.Session, query string, field Field, limit int) []Result {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	var entries []entry
	for _, g := range s.Groups {
		for _, t := range g.Tabs {
			entries = append(entries, entry{tab: t, groupID: g.ID})
		}
	}

	var fields []func(model.Tab) string
	switch field {
	case FieldTitle:
		fields = append(fields, func(t model.Tab) string { return t.Title })
	case FieldURL:
		fields = append(fields, func(t model.Tab) string { return t.URL })
	default:
		fields = append(fields,
			func(t model.Tab) string { return t.Title },
			func(t model.Tab) string { return t.URL })
	}

	best := make(map[int]int)
	for _, f := range fields {
		for _, m := range fuzzy.FindFrom(query, tabSource{entries: entries, field: f}) {
			if prev, ok := best[m.Index]; !ok || m.Score > prev {
				best[m.Index] = m.Score
			}
		}
	}

	results := make([]Result, 0, len(best))
	order := make([]int, 0, len(best))
	for idx := range best {
		order = append(order, idx)
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if best[a] != best[b] {
			return best[a] > best[b]
		}
		return a < b
	})
	for _, idx := range order {
		results = append(results, Result{Tab: entries[idx].tab, GroupID: entries[idx].groupID, Score: best[idx]})
	}

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
