// Package dedup removes duplicate tabs from a session under one of four
// policies. Every policy returns a new session and leaves its input alone.
package dedup

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/HendryAvila/tabvault/internal/model"
	"github.com/HendryAvila/tabvault/internal/textnorm"
)

// Strategy selects how duplicates are recognized.
type Strategy string

const (
	// ExactURL compares raw URL strings.
	ExactURL Strategy = "exact-url"
	// NormalizedURL compares URLs after textnorm.URL.
	NormalizedURL Strategy = "normalized-url"
	// URLAndTitle compares the normalized URL and normalized title together.
	URLAndTitle Strategy = "url-and-title"
	// FuzzyURL treats normalized URLs at or above a similarity threshold as equal.
	FuzzyURL Strategy = "fuzzy-url"
)

// Strategies lists every strategy in documentation order.
var Strategies = []Strategy{ExactURL, NormalizedURL, URLAndTitle, FuzzyURL}

// DefaultThreshold is the FuzzyURL similarity used when none is configured.
const DefaultThreshold = 0.9

// FuzzyGroupID is the id of the single group FuzzyURL produces.
const FuzzyGroupID = "deduped"

// ParseStrategy accepts the dashed names and their underscore variants.
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-"))
	for _, known := range Strategies {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("dedup: unknown strategy %q", name)
}

// Policy is a strategy plus its parameters.
type Policy struct {
	Strategy  Strategy
	Threshold float64 // FuzzyURL only, in [0,1]
}

// Validate checks that the policy can be applied.
func (p Policy) Validate() error {
	if _, err := ParseStrategy(string(p.Strategy)); err != nil {
		return err
	}
	if p.Strategy == FuzzyURL && (p.Threshold < 0 || p.Threshold > 1) {
		return fmt.Errorf("dedup: fuzzy threshold %v outside [0,1]", p.Threshold)
	}
	return nil
}

// Result is a deduplicated session and an audit of what was removed.
type Result struct {
	OriginalCount     int            `json:"original_count"`
	DeduplicatedCount int            `json:"deduplicated_count"`
	Removed           []model.Tab    `json:"removed"`
	Session           *model.Session `json:"session"`
}

// Apply deduplicates s under p.
func Apply(s *model.Session, p Policy) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	switch p.Strategy {
	case ExactURL:
		return byKey(s, func(t model.Tab) string { return t.URL }), nil
	case NormalizedURL:
		return byKey(s, func(t model.Tab) string { return textnorm.URL(t.URL) }), nil
	case URLAndTitle:
		type pair struct{ url, title string }
		return byKey(s, func(t model.Tab) pair {
			return pair{textnorm.URL(t.URL), textnorm.Title(t.Title)}
		}), nil
	default:
		return fuzzy(s, p.Threshold), nil
	}
}

// byKey keeps the first tab seen for each key, scanning groups and tabs in
// order. Group structure is preserved; a group may end up empty.
func byKey[K comparable](s *model.Session, key func(model.Tab) K) *Result {
	out := s.Clone()
	seen := make(map[K]struct{})
	removed := []model.Tab{}

	for gi := range out.Groups {
		kept := out.Groups[gi].Tabs[:0]
		for _, tab := range out.Groups[gi].Tabs {
			k := key(tab)
			if _, dup := seen[k]; dup {
				removed = append(removed, tab)
				continue
			}
			seen[k] = struct{}{}
			kept = append(kept, tab)
		}
		out.Groups[gi].Tabs = kept
	}

	return &Result{
		OriginalCount:     s.TotalTabs(),
		DeduplicatedCount: out.TotalTabs(),
		Removed:           removed,
		Session:           out,
	}
}

// fuzzy compares each tab's normalized URL against every kept one. All kept
// tabs are placed in a single group, so original grouping is lost.
func fuzzy(s *model.Session, threshold float64) *Result {
	type keptTab struct {
		url string
		tab model.Tab
	}
	var kept []keptTab
	removed := []model.Tab{}

	for _, g := range s.Clone().Groups {
		for _, tab := range g.Tabs {
			norm := textnorm.URL(tab.URL)
			dup := false
			for _, k := range kept {
				if Similarity(norm, k.url) >= threshold {
					dup = true
					break
				}
			}
			if dup {
				removed = append(removed, tab)
				continue
			}
			kept = append(kept, keptTab{url: norm, tab: tab})
		}
	}

	out := &model.Session{
		Version:    s.Version,
		Source:     s.Source,
		Groups:     []model.TabGroup{},
		CreatedAt:  s.CreatedAt,
		ImportedAt: s.ImportedAt,
	}
	if len(kept) > 0 {
		tabs := make([]model.Tab, len(kept))
		for i, k := range kept {
			tabs[i] = k.tab
		}
		out.Groups = append(out.Groups, model.TabGroup{
			ID:        FuzzyGroupID,
			CreatedAt: s.CreatedAt,
			Tabs:      tabs,
		})
	}

	return &Result{
		OriginalCount:     s.TotalTabs(),
		DeduplicatedCount: out.TotalTabs(),
		Removed:           removed,
		Session:           out,
	}
}

// Similarity scores a and b in [0,1] as one minus their edit distance over
// the longer length in runes. Two empty strings are identical.
func Similarity(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(longest)
}
