// Package textnorm canonicalizes tab titles and URLs so that trivially
// different copies of the same page compare equal.
package textnorm

import (
	"net/url"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/HendryAvila/tabvault/internal/model"
)

// trackingPrefix marks query parameters that carry campaign tracking only.
const trackingPrefix = "utm_"

// titleSuffixes are site names that pages append to their titles.
var titleSuffixes = []string{
	" - Google Search",
	" | Twitter",
	" on X",
	" - YouTube",
	" on YouTube",
	" - Wikipedia",
	" - Reddit",
	" | LinkedIn",
	" - Stack Overflow",
	" | GitHub",
	" | daily.dev",
	" | DEV Community",
	" | Hacker News",
	" | Medium",
	" – Frontend Masters Blog",
	" | InfoWorld",
	" | Product Hunt",
}

// Title returns the NFC form of s with whitespace collapsed and known site
// suffixes removed. Title(Title(s)) == Title(s).
func Title(s string) string {
	s = strings.Join(strings.Fields(norm.NFC.String(s)), " ")
	for {
		suffix := longestSuffix(s)
		if suffix == "" {
			return s
		}
		s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
	}
}

func longestSuffix(s string) string {
	best := ""
	for _, suf := range titleSuffixes {
		if len(suf) > len(best) && strings.HasSuffix(s, suf) {
			best = suf
		}
	}
	return best
}

// URL returns a canonical form of raw: lowercase scheme and host, no
// fragment, no utm_* parameters, remaining parameters sorted by name, and
// at most one trailing slash removed from a non-root path. Input that does
// not parse as an absolute URL is only lowercased.
func URL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() {
		return strings.ToLower(raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	u.RawQuery = filterQuery(u.RawQuery)
	u.ForceQuery = false

	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimSuffix(u.Path, "/")
		u.RawPath = strings.TrimSuffix(u.RawPath, "/")
	}
	return u.String()
}

type queryParam struct {
	name string // decoded, used for ordering
	raw  string // original "name=value" text
}

// filterQuery drops tracking parameters and sorts the rest by name while
// keeping each pair's original encoding. Pairs with equal names keep their
// relative order.
func filterQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	var params []queryParam
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		name, _, _ := strings.Cut(pair, "=")
		if decoded, err := url.QueryUnescape(name); err == nil {
			name = decoded
		}
		if strings.HasPrefix(name, trackingPrefix) {
			continue
		}
		params = append(params, queryParam{name: name, raw: pair})
	}
	sort.SliceStable(params, func(i, j int) bool { return params[i].name < params[j].name })

	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.raw
	}
	return strings.Join(parts, "&")
}

// Session returns a copy of s with every tab title and URL normalized. The
// input is not modified.
func Session(s *model.Session) *model.Session {
	out := s.Clone()
	for gi := range out.Groups {
		tabs := out.Groups[gi].Tabs
		for ti := range tabs {
			tabs[ti].Title = Title(tabs[ti].Title)
			tabs[ti].URL = URL(tabs[ti].URL)
		}
	}
	return out
}
