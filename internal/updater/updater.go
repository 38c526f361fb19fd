// Package updater asks the GitHub Releases API whether a newer tabvault
// release exists. It only reports; installing a release is left to the
// user's package manager or a manual download.
package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	githubRepo   = "HendryAvila/tabvault"
	releaseURL   = "https://api.github.com/repos/" + githubRepo + "/releases/latest"
	checkTimeout = 10 * time.Second
)

// Package vars for test injection.
var (
	releaseEndpoint = releaseURL
	httpClient      = &http.Client{Timeout: checkTimeout}
)

// release holds the fields we read from a GitHub release.
type release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// Result describes the running version against the latest release.
type Result struct {
	CurrentVersion  string `json:"current_version"`
	LatestVersion   string `json:"latest_version"`
	UpdateAvailable bool   `json:"update_available"`
	ReleaseURL      string `json:"release_url"`
}

// Check fetches the latest release and compares it with current.
// Development builds ("dev") never report an update.
func Check(ctx context.Context, current string) (*Result, error) {
	result := &Result{CurrentVersion: normalizeVersion(current)}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, releaseEndpoint, nil)
	if err != nil {
		return result, fmt.Errorf("updater: build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "tabvault/"+current)

	resp, err := httpClient.Do(req)
	if err != nil {
		return result, fmt.Errorf("updater: fetch latest release: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return result, fmt.Errorf("updater: GitHub API returned %d", resp.StatusCode)
	}

	var rel release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return result, fmt.Errorf("updater: decode release: %w", err)
	}

	result.LatestVersion = normalizeVersion(rel.TagName)
	result.ReleaseURL = rel.HTMLURL
	result.UpdateAvailable = isNewer(result.CurrentVersion, result.LatestVersion)
	return result, nil
}

func normalizeVersion(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}

// isNewer compares major.minor.patch numerically. Pre-release and build
// suffixes on a part are ignored.
func isNewer(current, latest string) bool {
	if current == "" || latest == "" || current == "dev" {
		return false
	}
	c, l := versionParts(current), versionParts(latest)
	for i := range c {
		if l[i] != c[i] {
			return l[i] > c[i]
		}
	}
	return false
}

func versionParts(v string) [3]int {
	var parts [3]int
	for i, field := range strings.SplitN(v, ".", 3) {
		end := strings.IndexFunc(field, func(r rune) bool { return r < '0' || r > '9' })
		if end >= 0 {
			field = field[:end]
		}
		parts[i], _ = strconv.Atoi(field)
	}
	return parts
}
