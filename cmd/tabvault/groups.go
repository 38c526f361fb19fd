package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/HendryAvila/tabvault/internal/dedup"
	"github.com/HendryAvila/tabvault/internal/model"
	"github.com/HendryAvila/tabvault/internal/pipeline"
	"github.com/HendryAvila/tabvault/internal/store"
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// ─── add ─────────────────────────────────────────────────────────────────────

func newAddCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add URL...",
		Short: "Save a new tab group by hand",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			label, _ := cmd.Flags().GetString("label")
			now := timeNow().UTC().Truncate(time.Millisecond)

			g := model.TabGroup{ID: uuid.NewString(), CreatedAt: now}
			if label = strings.TrimSpace(label); label != "" {
				g.Label = &label
			}
			for _, raw := range args {
				u, err := model.ParseURL(raw)
				if err != nil {
					return fmt.Errorf("invalid URL %q: %w", raw, err)
				}
				g.Tabs = append(g.Tabs, model.Tab{ID: uuid.NewString(), URL: u, Title: u, AddedAt: now})
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if _, err := st.InsertGroup(cmd.Context(), g); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added group %s with %d tabs\n", g.ID, len(g.Tabs))
			return nil
		},
	}
	cmd.Flags().StringP("label", "l", "", "Group label.")
	return cmd
}

// ─── delete ──────────────────────────────────────────────────────────────────

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete GROUP_ID...",
		Short: "Remove tab groups and their tabs from the archive",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			out := cmd.OutOrStdout()
			for _, id := range args {
				err := st.DeleteGroup(cmd.Context(), id)
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("no group with id %q", id)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "deleted %s\n", id)
			}
			return nil
		},
	}
}

// ─── dedup ───────────────────────────────────────────────────────────────────

func newDedupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dedup",
		Short: "Find duplicate tabs in the archive, and remove them with --apply",
		Long: "Strategies:\n" +
			"  exact-url       identical URL strings\n" +
			"  normalized-url  URLs equal after dropping tracking parameters, fragments, and trailing slashes\n" +
			"  url-and-title   normalized URL and normalized title both equal\n" +
			"  fuzzy-url       normalized URLs at least --threshold similar (preview only)\n" +
			"The first copy of each tab, in newest-group order, is kept.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			strategy, err := dedup.ParseStrategy(flagOrString(cmd, "strategy", string(a.cfg.Dedup.Strategy)))
			if err != nil {
				return err
			}
			policy := dedup.Policy{Strategy: strategy, Threshold: flagOrFloat64(cmd, "threshold", a.cfg.Dedup.Threshold)}
			apply, _ := cmd.Flags().GetBool("apply")
			verbose, _ := cmd.Flags().GetBool("verbose")

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			res, err := pipeline.ApplyDedup(cmd.Context(), st, policy, !apply, a.log.Named("dedup"))
			if errors.Is(err, pipeline.ErrRestructuringPolicy) {
				return fmt.Errorf("%s merges groups and can only be previewed; drop --apply", strategy)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			removed := len(res.Removed)
			verb := "would remove"
			if apply {
				verb = "removed"
			}
			fmt.Fprintf(out, "%s: %d tabs, %s %d duplicates (%d remain)\n",
				strategy, res.OriginalCount, verb, removed, res.DeduplicatedCount)
			if verbose {
				for _, t := range res.Removed {
					fmt.Fprintf(out, "  - %s\n    %s\n", truncate(t.Title, 80), t.URL)
				}
			}
			if !apply && removed > 0 && strategy != dedup.FuzzyURL {
				fmt.Fprintln(out, "run again with --apply to remove them")
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringP("strategy", "s", string(dedup.NormalizedURL), "exact-url, normalized-url, url-and-title, or fuzzy-url (default from config).")
	f.Float64("threshold", dedup.DefaultThreshold, "Similarity threshold for fuzzy-url, in [0,1].")
	f.Bool("apply", false, "Remove the duplicates from the archive.")
	f.BoolP("verbose", "v", false, "List every duplicate.")
	return cmd
}
