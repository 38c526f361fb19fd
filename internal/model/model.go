// Package model defines the canonical tab data shared by every stage of
// tabvault: recovered or parsed tabs, the groups they were saved in, and the
// session that carries them through normalization, dedup, and import.
//
// The JSON form of these types is the canonical session serialization used
// for snapshots: all timestamps are encoded as epoch milliseconds.
package model

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

// FormatVersion is the version stamped on every Session produced by tabvault.
const FormatVersion = 1

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// ─── Timestamps ──────────────────────────────────────────────────────────────

// Year bounds of representable timestamps. Anything outside falls back to the epoch.
const (
	minYear = -262143
	maxYear = 262142
)

// FromUnixMillis converts an epoch-millisecond timestamp to a UTC time.
// Out-of-range values map to the Unix epoch instead of failing.
func FromUnixMillis(ms int64) time.Time {
	secs := ms / 1000
	nsecs := (ms % 1000) * int64(time.Millisecond)
	t := time.Unix(secs, nsecs).UTC()
	if y := t.Year(); y < minYear || y > maxYear {
		return time.Unix(0, 0).UTC()
	}
	return t
}

// ─── URLs ────────────────────────────────────────────────────────────────────

// schemes that require a host to be meaningful.
var hostSchemes = map[string]bool{
	"http": true, "https": true, "ftp": true, "ws": true, "wss": true,
}

// ParseURL validates raw as an absolute URL and returns its canonical form:
// lowercase scheme and host, and an explicit "/" path when a host is present
// without one. Relative references, empty hosts on network schemes, and
// scheme-only strings are rejected.
func ParseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if !u.IsAbs() {
		return "", fmt.Errorf("url %q is not absolute", raw)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if hostSchemes[u.Scheme] && u.Host == "" {
		return "", fmt.Errorf("url %q has no host", raw)
	}
	if u.Host == "" && u.Opaque == "" && u.Path == "" {
		return "", fmt.Errorf("url %q has nothing after the scheme", raw)
	}
	u.Host = strings.ToLower(u.Host)
	if u.Host != "" && u.Path == "" && u.Opaque == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

// ─── Types ───────────────────────────────────────────────────────────────────

// Tab is a single saved browser tab. URL always holds a validated absolute URL.
type Tab struct {
	ID         string    `json:"id" yaml:"id"`
	URL        string    `json:"url" yaml:"url"`
	Title      string    `json:"title" yaml:"title"`
	FaviconURL *string   `json:"favicon_url" yaml:"favicon_url,omitempty"`
	AddedAt    time.Time `json:"-" yaml:"added_at"`
}

// Domain returns the lowercase host of the tab's URL, or "" when it has none
// (about:blank and friends).
func (t Tab) Domain() string {
	u, err := url.Parse(t.URL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// TabGroup is a named set of tabs saved together. Tab order is save order.
type TabGroup struct {
	ID        string    `json:"id" yaml:"id"`
	Label     *string   `json:"label" yaml:"label,omitempty"`
	CreatedAt time.Time `json:"-" yaml:"created_at"`
	Tabs      []Tab     `json:"tabs" yaml:"tabs"`
	Pinned    bool      `json:"pinned" yaml:"pinned"`
	Locked    bool      `json:"locked" yaml:"locked"`
	Starred   bool      `json:"starred" yaml:"starred"`
}

// TabCount returns the number of tabs in the group.
func (g TabGroup) TabCount() int { return len(g.Tabs) }

// Clone returns a deep copy of the group.
func (g TabGroup) Clone() TabGroup {
	c := g
	if g.Label != nil {
		label := *g.Label
		c.Label = &label
	}
	c.Tabs = make([]Tab, len(g.Tabs))
	for i, t := range g.Tabs {
		c.Tabs[i] = t.clone()
	}
	return c
}

func (t Tab) clone() Tab {
	c := t
	if t.FaviconURL != nil {
		fav := *t.FaviconURL
		c.FaviconURL = &fav
	}
	return c
}

// SourceKind tags where a Session came from.
type SourceKind string

const (
	SourceBrowser    SourceKind = "browser"
	SourceExportFile SourceKind = "export_file"
	SourceNative     SourceKind = "native"
	SourceUnknown    SourceKind = "unknown"
)

// Source describes the origin of a Session. Browser and Profile are set for
// SourceBrowser, Path for SourceExportFile and SourceNative.
type Source struct {
	Kind    SourceKind `json:"kind" yaml:"kind"`
	Browser string     `json:"browser,omitempty" yaml:"browser,omitempty"`
	Profile string     `json:"profile,omitempty" yaml:"profile,omitempty"`
	Path    string     `json:"path,omitempty" yaml:"path,omitempty"`
}

// BrowserSource returns a source for a browser profile.
func BrowserSource(browser, profile string) Source {
	return Source{Kind: SourceBrowser, Browser: browser, Profile: profile}
}

// ExportFileSource returns a source for a plain-text export file.
func ExportFileSource(path string) Source {
	return Source{Kind: SourceExportFile, Path: path}
}

// NativeSource returns a source for tabvault's own serialized sessions.
func NativeSource(path string) Source {
	return Source{Kind: SourceNative, Path: path}
}

// UnknownSource returns the source used for merged or store-derived sessions.
func UnknownSource() Source {
	return Source{Kind: SourceUnknown}
}

// String renders the source for logs and listings.
func (s Source) String() string {
	switch s.Kind {
	case SourceBrowser:
		return fmt.Sprintf("%s/%s", s.Browser, s.Profile)
	case SourceExportFile, SourceNative:
		return fmt.Sprintf("%s:%s", s.Kind, s.Path)
	default:
		return string(SourceUnknown)
	}
}

// Session is one complete snapshot of tab data from a single source.
type Session struct {
	Version    int        `json:"version" yaml:"version"`
	Source     Source     `json:"source" yaml:"source"`
	Groups     []TabGroup `json:"groups" yaml:"groups"`
	CreatedAt  time.Time  `json:"-" yaml:"created_at"`
	ImportedAt time.Time  `json:"-" yaml:"imported_at"`
}

// NewSession returns an empty session stamped with the current time.
func NewSession(source Source) *Session {
	now := timeNow().UTC()
	return &Session{
		Version:    FormatVersion,
		Source:     source,
		Groups:     []TabGroup{},
		CreatedAt:  now,
		ImportedAt: now,
	}
}

// TotalTabs returns the number of tabs across all groups.
func (s *Session) TotalTabs() int {
	n := 0
	for _, g := range s.Groups {
		n += len(g.Tabs)
	}
	return n
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	c := *s
	c.Groups = make([]TabGroup, len(s.Groups))
	for i, g := range s.Groups {
		c.Groups[i] = g.Clone()
	}
	return &c
}

// DomainCount is a domain and the number of tabs pointing at it.
type DomainCount struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

// SessionStats summarizes a session.
type SessionStats struct {
	TotalGroups   int           `json:"total_groups"`
	TotalTabs     int           `json:"total_tabs"`
	EarliestGroup *time.Time    `json:"earliest_group,omitempty"`
	LatestGroup   *time.Time    `json:"latest_group,omitempty"`
	TopDomains    []DomainCount `json:"top_domains"`
}

// topDomainLimit caps the domains reported by Stats.
const topDomainLimit = 10

// Stats computes group/tab totals, the group time range, and the ten most
// common domains.
func (s *Session) Stats() SessionStats {
	stats := SessionStats{TotalGroups: len(s.Groups), TotalTabs: s.TotalTabs()}

	counts := make(map[string]int)
	for _, g := range s.Groups {
		created := g.CreatedAt
		if stats.EarliestGroup == nil || created.Before(*stats.EarliestGroup) {
			stats.EarliestGroup = &created
		}
		if stats.LatestGroup == nil || created.After(*stats.LatestGroup) {
			stats.LatestGroup = &created
		}
		for _, t := range g.Tabs {
			if d := t.Domain(); d != "" {
				counts[d]++
			}
		}
	}
	stats.TopDomains = TopDomains(counts, topDomainLimit)
	return stats
}

// TopDomains sorts domain counts descending (ties by name) and keeps at most limit.
func TopDomains(counts map[string]int, limit int) []DomainCount {
	out := make([]DomainCount, 0, len(counts))
	for d, c := range counts {
		out = append(out, DomainCount{Domain: d, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Domain < out[j].Domain
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Merge combines sessions into one: highest version, unknown source, all
// groups in input order, earliest creation time, and imported now.
func Merge(sessions []*Session) *Session {
	merged := NewSession(UnknownSource())
	if len(sessions) == 0 {
		merged.Version = 0
		return merged
	}

	merged.Version = 0
	first := true
	for _, s := range sessions {
		if s.Version > merged.Version {
			merged.Version = s.Version
		}
		if first || s.CreatedAt.Before(merged.CreatedAt) {
			merged.CreatedAt = s.CreatedAt
			first = false
		}
		for _, g := range s.Groups {
			merged.Groups = append(merged.Groups, g.Clone())
		}
	}
	return merged
}

// ─── JSON ────────────────────────────────────────────────────────────────────

// MarshalJSON encodes the tab with added_at as epoch milliseconds.
func (t Tab) MarshalJSON() ([]byte, error) {
	type alias Tab
	return json.Marshal(struct {
		alias
		AddedAt int64 `json:"added_at"`
	}{alias(t), t.AddedAt.UnixMilli()})
}

// UnmarshalJSON decodes a tab and rejects URLs that are not absolute.
func (t *Tab) UnmarshalJSON(b []byte) error {
	type alias Tab
	aux := struct {
		*alias
		AddedAt int64 `json:"added_at"`
	}{alias: (*alias)(t)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	canonical, err := ParseURL(t.URL)
	if err != nil {
		return fmt.Errorf("tab %s: %w", t.ID, err)
	}
	t.URL = canonical
	t.AddedAt = FromUnixMillis(aux.AddedAt)
	return nil
}

// MarshalJSON encodes the group with created_at as epoch milliseconds.
func (g TabGroup) MarshalJSON() ([]byte, error) {
	type alias TabGroup
	a := alias(g)
	if a.Tabs == nil {
		a.Tabs = []Tab{}
	}
	return json.Marshal(struct {
		alias
		CreatedAt int64 `json:"created_at"`
	}{a, g.CreatedAt.UnixMilli()})
}

// UnmarshalJSON decodes a group.
func (g *TabGroup) UnmarshalJSON(b []byte) error {
	type alias TabGroup
	aux := struct {
		*alias
		CreatedAt int64 `json:"created_at"`
	}{alias: (*alias)(g)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	g.CreatedAt = FromUnixMillis(aux.CreatedAt)
	return nil
}

// MarshalJSON encodes the session with epoch-millisecond timestamps.
func (s Session) MarshalJSON() ([]byte, error) {
	type alias Session
	a := alias(s)
	if a.Groups == nil {
		a.Groups = []TabGroup{}
	}
	return json.Marshal(struct {
		alias
		CreatedAt  int64 `json:"created_at"`
		ImportedAt int64 `json:"imported_at"`
	}{a, s.CreatedAt.UnixMilli(), s.ImportedAt.UnixMilli()})
}

// UnmarshalJSON decodes a session.
func (s *Session) UnmarshalJSON(b []byte) error {
	type alias Session
	aux := struct {
		*alias
		CreatedAt  int64 `json:"created_at"`
		ImportedAt int64 `json:"imported_at"`
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	s.CreatedAt = FromUnixMillis(aux.CreatedAt)
	s.ImportedAt = FromUnixMillis(aux.ImportedAt)
	if s.Source.Kind == "" {
		s.Source = UnknownSource()
	}
	return nil
}
