package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HendryAvila/tabvault/internal/model"
)

// sourceManual tags groups created directly rather than imported.
const sourceManual = "manual"

func txError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransaction, op, err)
}

// ─── Import ──────────────────────────────────────────────────────────────────

// InsertSession merges session into the store in a single transaction.
//
// Each group is inserted only if its id is absent. A newly inserted group has
// its tabs inserted the same way; a group that already exists has all of its
// tabs counted as skipped without touching them. Any storage failure rolls
// the whole session back and is returned wrapped in ErrTransaction.
func (s *Store) InsertSession(ctx context.Context, session *model.Session) (*InsertStats, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.beginTxHook(ctx)
	if err != nil {
		return nil, txError("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	stats := &InsertStats{RunID: uuid.NewString()}

	for _, g := range session.Groups {
		inserted, err := s.insertGroupRow(ctx, tx, g, string(session.Source.Kind), session.Source)
		if err != nil {
			return nil, txError("insert group "+g.ID, err)
		}
		if !inserted {
			stats.GroupsSkipped++
			stats.TabsSkipped += len(g.Tabs)
			continue
		}
		stats.GroupsInserted++

		for pos, t := range g.Tabs {
			ok, err := s.insertTabRow(ctx, tx, g.ID, pos, t)
			if err != nil {
				return nil, txError("insert tab "+t.ID, err)
			}
			if ok {
				stats.TabsInserted++
			} else {
				stats.TabsSkipped++
			}
		}
	}

	if _, err := s.execHook(ctx, tx,
		`INSERT INTO import_runs (id, source, groups_inserted, groups_skipped, tabs_inserted, tabs_skipped, imported_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		stats.RunID, session.Source.String(),
		stats.GroupsInserted, stats.GroupsSkipped, stats.TabsInserted, stats.TabsSkipped,
		timeNow().UnixMilli(),
	); err != nil {
		return nil, txError("record import run", err)
	}

	if err := s.commitHook(tx); err != nil {
		return nil, txError("commit", err)
	}

	s.log.Info("session imported",
		zap.String("run_id", stats.RunID),
		zap.String("source", session.Source.String()),
		zap.Int("groups_inserted", stats.GroupsInserted),
		zap.Int("groups_skipped", stats.GroupsSkipped),
		zap.Int("tabs_inserted", stats.TabsInserted),
		zap.Int("tabs_skipped", stats.TabsSkipped))
	return stats, nil
}

// InsertGroup stores a single hand-made group with its tabs. It reports
// false when a group with the same id already exists.
func (s *Store) InsertGroup(ctx context.Context, g model.TabGroup) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.beginTxHook(ctx)
	if err != nil {
		return false, txError("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	inserted, err := s.insertGroupRow(ctx, tx, g, sourceManual, model.Source{})
	if err != nil {
		return false, txError("insert group "+g.ID, err)
	}
	if !inserted {
		return false, nil
	}
	for pos, t := range g.Tabs {
		if _, err := s.insertTabRow(ctx, tx, g.ID, pos, t); err != nil {
			return false, txError("insert tab "+t.ID, err)
		}
	}
	if err := s.commitHook(tx); err != nil {
		return false, txError("commit", err)
	}
	return true, nil
}

// DeleteGroup removes a group and, by cascade, its tabs.
func (s *Store) DeleteGroup(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.execHook(ctx, s.db, `DELETE FROM tab_groups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete group %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: group %s", ErrNotFound, id)
	}
	return nil
}

// ReplaceTabs rewrites the tabs of an existing group, in the given order.
// It is used to persist deduplication results.
func (s *Store) ReplaceTabs(ctx context.Context, groupID string, tabs []model.Tab) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.beginTxHook(ctx)
	if err != nil {
		return txError("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM tab_groups WHERE id = ?`, groupID).Scan(&exists); err != nil {
		return txError("lookup group "+groupID, err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: group %s", ErrNotFound, groupID)
	}

	if _, err := s.execHook(ctx, tx, `DELETE FROM tabs WHERE group_id = ?`, groupID); err != nil {
		return txError("clear tabs", err)
	}
	for pos, t := range tabs {
		if _, err := s.execHook(ctx, tx,
			`INSERT INTO tabs (id, group_id, url, title, favicon_url, added_at, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.ID, groupID, t.URL, t.Title, t.FaviconURL, t.AddedAt.UnixMilli(), pos,
		); err != nil {
			return txError("insert tab "+t.ID, err)
		}
	}
	if err := s.commitHook(tx); err != nil {
		return txError("commit", err)
	}
	return nil
}

// ─── Row helpers ─────────────────────────────────────────────────────────────

func (s *Store) insertGroupRow(ctx context.Context, tx *sql.Tx, g model.TabGroup, sourceType string, src model.Source) (bool, error) {
	res, err := s.execHook(ctx, tx,
		`INSERT OR IGNORE INTO tab_groups
			(id, label, created_at, pinned, locked, starred, source_type, source_browser, source_profile, source_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Label, g.CreatedAt.UnixMilli(), g.Pinned, g.Locked, g.Starred,
		sourceType, nullable(src.Browser), nullable(src.Profile), nullable(src.Path),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) insertTabRow(ctx context.Context, tx *sql.Tx, groupID string, pos int, t model.Tab) (bool, error) {
	res, err := s.execHook(ctx, tx,
		`INSERT OR IGNORE INTO tabs (id, group_id, url, title, favicon_url, added_at, position)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, groupID, t.URL, t.Title, t.FaviconURL, t.AddedAt.UnixMilli(), pos,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
