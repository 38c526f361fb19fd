// Package pipeline runs a session through tabvault's stages after it has been
// produced by recovery or an export parser:
//
//	normalize (optional) → dedup (optional) → import
//
// Each stage returns a new session, so the caller's session is never
// modified. Import is the only stage with side effects and it is idempotent.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/HendryAvila/tabvault/internal/dedup"
	"github.com/HendryAvila/tabvault/internal/model"
	"github.com/HendryAvila/tabvault/internal/store"
	"github.com/HendryAvila/tabvault/internal/textnorm"
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// ErrRestructuringPolicy is returned when a dedup policy that discards group
// structure is used for anything other than a preview.
var ErrRestructuringPolicy = errors.New("pipeline: fuzzy-url dedup merges all groups and cannot be persisted")

// Importer merges a session into durable storage.
type Importer interface {
	InsertSession(ctx context.Context, session *model.Session) (*store.InsertStats, error)
}

// Options selects the optional stages.
type Options struct {
	Normalize bool
	Dedup     *dedup.Policy
	// DryRun runs every stage except the import.
	DryRun bool
	Log    *zap.Logger
}

// DedupSummary reports what the dedup stage removed.
type DedupSummary struct {
	Strategy          dedup.Strategy `json:"strategy"`
	OriginalCount     int            `json:"original_count"`
	DeduplicatedCount int            `json:"deduplicated_count"`
	Removed           int            `json:"removed"`
}

// Report describes one Ingest run.
type Report struct {
	Groups     int                `json:"groups"`
	Tabs       int                `json:"tabs"`
	Normalized bool               `json:"normalized"`
	Dedup      *DedupSummary      `json:"dedup,omitempty"`
	Import     *store.InsertStats `json:"import,omitempty"`
	Elapsed    time.Duration      `json:"elapsed"`
}

// Ingest runs session through the selected stages and imports the result.
// The returned session is the one that was (or, on a dry run, would have
// been) imported.
func Ingest(ctx context.Context, imp Importer, session *model.Session, opts Options) (*model.Session, *Report, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	start := timeNow()
	report := &Report{}

	current := session
	if opts.Normalize {
		current = textnorm.Session(current)
		report.Normalized = true
	}

	if opts.Dedup != nil {
		if opts.Dedup.Strategy == dedup.FuzzyURL && !opts.DryRun {
			return nil, nil, ErrRestructuringPolicy
		}
		res, err := dedup.Apply(current, *opts.Dedup)
		if err != nil {
			return nil, nil, fmt.Errorf("pipeline: dedup: %w", err)
		}
		current = res.Session
		report.Dedup = summarize(opts.Dedup.Strategy, res)
		log.Debug("dedup stage", zap.String("strategy", string(opts.Dedup.Strategy)), zap.Int("removed", len(res.Removed)))
	}

	report.Groups = len(current.Groups)
	report.Tabs = current.TotalTabs()

	if !opts.DryRun {
		stats, err := imp.InsertSession(ctx, current)
		if err != nil {
			return nil, nil, fmt.Errorf("pipeline: import: %w", err)
		}
		report.Import = stats
	}

	report.Elapsed = timeNow().Sub(start)
	return current, report, nil
}

// ─── Stored dedup ────────────────────────────────────────────────────────────

// Archive is the part of the store that dedup rewrites.
type Archive interface {
	Session(ctx context.Context) (*model.Session, error)
	ReplaceTabs(ctx context.Context, groupID string, tabs []model.Tab) error
}

// ApplyDedup deduplicates the stored archive under policy and rewrites every
// group that lost tabs. Groups left empty are kept so that re-importing their
// source still recognizes them. With dryRun nothing is written.
func ApplyDedup(ctx context.Context, archive Archive, policy dedup.Policy, dryRun bool, log *zap.Logger) (*dedup.Result, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if policy.Strategy == dedup.FuzzyURL && !dryRun {
		return nil, ErrRestructuringPolicy
	}

	current, err := archive.Session(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline: read archive: %w", err)
	}
	res, err := dedup.Apply(current, policy)
	if err != nil {
		return nil, fmt.Errorf("pipeline: dedup: %w", err)
	}
	if dryRun || len(res.Removed) == 0 {
		return res, nil
	}

	rewritten := 0
	for i, g := range res.Session.Groups {
		if len(g.Tabs) == len(current.Groups[i].Tabs) {
			continue
		}
		if err := archive.ReplaceTabs(ctx, g.ID, g.Tabs); err != nil {
			return nil, fmt.Errorf("pipeline: rewrite group %s: %w", g.ID, err)
		}
		rewritten++
	}
	log.Info("dedup applied",
		zap.String("strategy", string(policy.Strategy)),
		zap.Int("removed", len(res.Removed)),
		zap.Int("groups_rewritten", rewritten))
	return res, nil
}

func summarize(s dedup.Strategy, res *dedup.Result) *DedupSummary {
	return &DedupSummary{
		Strategy:          s,
		OriginalCount:     res.OriginalCount,
		DeduplicatedCount: res.DeduplicatedCount,
		Removed:           len(res.Removed),
	}
}
