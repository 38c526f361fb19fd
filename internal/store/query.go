package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/HendryAvila/tabvault/internal/model"
)

const topDomainLimit = 10

// ─── Groups ──────────────────────────────────────────────────────────────────

// AllGroups returns every group, newest first, each with its tabs in saved order.
func (s *Store) AllGroups(ctx context.Context) ([]model.TabGroup, error) {
	groups, err := s.queryGroups(ctx, `
		SELECT id, label, created_at, pinned, locked, starred
		FROM tab_groups
		ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("store: all groups: %w", err)
	}

	byGroup, err := s.queryTabsByGroup(ctx, `
		SELECT group_id, id, url, title, favicon_url, added_at
		FROM tabs
		ORDER BY group_id, position`)
	if err != nil {
		return nil, fmt.Errorf("store: all tabs: %w", err)
	}

	for i := range groups {
		if tabs, ok := byGroup[groups[i].ID]; ok {
			groups[i].Tabs = tabs
		}
	}
	return groups, nil
}

// Group returns one group with its tabs.
func (s *Store) Group(ctx context.Context, id string) (*model.TabGroup, error) {
	groups, err := s.queryGroups(ctx, `
		SELECT id, label, created_at, pinned, locked, starred
		FROM tab_groups
		WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("store: group %s: %w", id, err)
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: group %s", ErrNotFound, id)
	}
	tabs, err := s.TabsForGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	g := groups[0]
	g.Tabs = tabs
	return &g, nil
}

// TabsForGroup returns a group's tabs in saved order.
func (s *Store) TabsForGroup(ctx context.Context, groupID string) ([]model.Tab, error) {
	byGroup, err := s.queryTabsByGroup(ctx, `
		SELECT group_id, id, url, title, favicon_url, added_at
		FROM tabs
		WHERE group_id = ?
		ORDER BY position`, groupID)
	if err != nil {
		return nil, fmt.Errorf("store: tabs for %s: %w", groupID, err)
	}
	if tabs, ok := byGroup[groupID]; ok {
		return tabs, nil
	}
	return []model.Tab{}, nil
}

// Session returns the whole archive as one session. Its timestamps come from
// the stored data (oldest group, latest import that added anything) so that
// an unchanged archive always serializes to the same bytes.
func (s *Store) Session(ctx context.Context) (*model.Session, error) {
	groups, err := s.AllGroups(ctx)
	if err != nil {
		return nil, err
	}
	session := model.NewSession(model.UnknownSource())
	session.Groups = groups

	var oldest, lastImport sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MIN(created_at) FROM tab_groups`).Scan(&oldest); err != nil {
		return nil, fmt.Errorf("store: session: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(imported_at) FROM import_runs WHERE groups_inserted + tabs_inserted > 0`).Scan(&lastImport); err != nil {
		return nil, fmt.Errorf("store: session: %w", err)
	}
	session.CreatedAt = model.FromUnixMillis(oldest.Int64)
	session.ImportedAt = model.FromUnixMillis(lastImport.Int64)
	return session, nil
}

func (s *Store) queryGroups(ctx context.Context, query string, args ...any) ([]model.TabGroup, error) {
	rows, err := s.queryItHook(ctx, s.db, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	groups := []model.TabGroup{}
	for rows.Next() {
		var (
			g       model.TabGroup
			label   sql.NullString
			created int64
		)
		if err := rows.Scan(&g.ID, &label, &created, &g.Pinned, &g.Locked, &g.Starred); err != nil {
			return nil, err
		}
		if label.Valid {
			g.Label = &label.String
		}
		g.CreatedAt = model.FromUnixMillis(created)
		g.Tabs = []model.Tab{}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (s *Store) queryTabsByGroup(ctx context.Context, query string, args ...any) (map[string][]model.Tab, error) {
	rows, err := s.queryItHook(ctx, s.db, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string][]model.Tab)
	for rows.Next() {
		var (
			groupID string
			t       model.Tab
			favicon sql.NullString
			added   int64
		)
		if err := rows.Scan(&groupID, &t.ID, &t.URL, &t.Title, &favicon, &added); err != nil {
			return nil, err
		}
		if favicon.Valid {
			t.FaviconURL = &favicon.String
		}
		t.AddedAt = model.FromUnixMillis(added)
		out[groupID] = append(out[groupID], t)
	}
	return out, rows.Err()
}

// ─── Search ──────────────────────────────────────────────────────────────────

const hitColumns = `t.id, t.url, t.title, t.favicon_url, t.added_at, t.group_id, g.label`

// SearchByURL returns tabs whose URL contains substr. Matching ignores ASCII case.
func (s *Store) SearchByURL(ctx context.Context, substr string, limit int) ([]TabHit, error) {
	return s.searchLike(ctx, "t.url", substr, limit)
}

// SearchByTitle returns tabs whose title contains substr. Matching ignores ASCII case.
func (s *Store) SearchByTitle(ctx context.Context, substr string, limit int) ([]TabHit, error) {
	return s.searchLike(ctx, "t.title", substr, limit)
}

func (s *Store) searchLike(ctx context.Context, column, substr string, limit int) ([]TabHit, error) {
	limit = s.clampLimit(limit)
	query := `SELECT ` + hitColumns + `
		FROM tabs t
		JOIN tab_groups g ON g.id = t.group_id
		WHERE ` + column + ` LIKE ? ESCAPE '\'
		ORDER BY g.created_at DESC, t.position
		LIMIT ?`

	rows, err := s.queryItHook(ctx, s.db, query, "%"+escapeLike(substr)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("store: search %s: %w", column, err)
	}
	defer func() { _ = rows.Close() }()

	hits := []TabHit{}
	for rows.Next() {
		h, err := scanHit(rows)
		if err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Search runs a full-text query over tab titles and URLs. An empty query
// returns the most recently added tabs instead.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	limit = s.clampLimit(limit)

	ftsQuery := sanitizeFTS(query)
	if ftsQuery == "" {
		return s.searchRecent(ctx, limit)
	}

	rows, err := s.queryItHook(ctx, s.db, `
		SELECT `+hitColumns+`, fts.rank
		FROM tabs_fts fts
		JOIN tabs t ON t.seq = fts.rowid
		JOIN tab_groups g ON g.id = t.group_id
		WHERE tabs_fts MATCH ?
		ORDER BY fts.rank
		LIMIT ?`, ftsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		h, err := scanHit(rows, &r.Rank)
		if err != nil {
			return nil, err
		}
		r.TabHit = h
		results = append(results, r)
	}
	return results, rows.Err()
}

// searchRecent returns the newest tabs without FTS, used as fallback when
// the query is empty or whitespace-only.
func (s *Store) searchRecent(ctx context.Context, limit int) ([]SearchResult, error) {
	rows, err := s.queryItHook(ctx, s.db, `
		SELECT `+hitColumns+`, 0 AS rank
		FROM tabs t
		JOIN tab_groups g ON g.id = t.group_id
		ORDER BY t.added_at DESC, t.position
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent tabs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		h, err := scanHit(rows, &r.Rank)
		if err != nil {
			return nil, err
		}
		r.TabHit = h
		results = append(results, r)
	}
	return results, rows.Err()
}

func scanHit(rows rowScanner, extra ...any) (TabHit, error) {
	var (
		h       TabHit
		favicon sql.NullString
		label   sql.NullString
		added   int64
	)
	dest := append([]any{&h.Tab.ID, &h.Tab.URL, &h.Tab.Title, &favicon, &added, &h.GroupID, &label}, extra...)
	if err := rows.Scan(dest...); err != nil {
		return TabHit{}, err
	}
	if favicon.Valid {
		h.Tab.FaviconURL = &favicon.String
	}
	if label.Valid {
		h.GroupLabel = &label.String
	}
	h.Tab.AddedAt = model.FromUnixMillis(added)
	return h, nil
}

func (s *Store) clampLimit(limit int) int {
	if limit <= 0 {
		limit = 20
	}
	if limit > s.cfg.MaxSearchResults {
		limit = s.cfg.MaxSearchResults
	}
	return limit
}

// ─── Stats ───────────────────────────────────────────────────────────────────

// Stats returns archive totals, the group time range, and the top domains.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	var oldest, newest sql.NullInt64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), MIN(created_at), MAX(created_at) FROM tab_groups`,
	).Scan(&stats.TotalGroups, &oldest, &newest); err != nil {
		return nil, fmt.Errorf("store: stats: %w", err)
	}
	if oldest.Valid {
		t := model.FromUnixMillis(oldest.Int64)
		stats.Oldest = &t
	}
	if newest.Valid {
		t := model.FromUnixMillis(newest.Int64)
		stats.Newest = &t
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tabs`).Scan(&stats.TotalTabs); err != nil {
		return nil, fmt.Errorf("store: stats: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM import_runs`).Scan(&stats.ImportRuns); err != nil {
		return nil, fmt.Errorf("store: stats: %w", err)
	}

	rows, err := s.queryItHook(ctx, s.db, `SELECT url FROM tabs`)
	if err != nil {
		return nil, fmt.Errorf("store: stats domains: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var t model.Tab
		if err := rows.Scan(&t.URL); err != nil {
			return nil, err
		}
		if d := t.Domain(); d != "" {
			counts[d]++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	stats.TopDomains = model.TopDomains(counts, topDomainLimit)
	return stats, nil
}

// ImportRuns lists recorded imports, newest first.
func (s *Store) ImportRuns(ctx context.Context, limit int) ([]ImportRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.queryItHook(ctx, s.db, `
		SELECT id, source, groups_inserted, groups_skipped, tabs_inserted, tabs_skipped, imported_at
		FROM import_runs
		ORDER BY imported_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: import runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := []ImportRun{}
	for rows.Next() {
		var (
			r  ImportRun
			at int64
		)
		if err := rows.Scan(&r.ID, &r.Source, &r.GroupsInserted, &r.GroupsSkipped, &r.TabsInserted, &r.TabsSkipped, &at); err != nil {
			return nil, err
		}
		r.ImportedAt = model.FromUnixMillis(at)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// sanitizeFTS wraps each word in quotes for safe FTS5 queries.
// "rust book" → `"rust" "book"`
func sanitizeFTS(query string) string {
	var words []string
	for _, w := range strings.Fields(query) {
		w = strings.ReplaceAll(w, `"`, "")
		if w == "" {
			continue
		}
		words = append(words, `"`+w+`"`)
	}
	return strings.Join(words, " ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
