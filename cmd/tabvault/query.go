package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/tabvault/internal/render"
	"github.com/HendryAvila/tabvault/internal/search"
	"github.com/HendryAvila/tabvault/internal/store"
)

const dateLayout = "2006-01-02 15:04"

// ─── search ──────────────────────────────────────────────────────────────────

func newSearchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [QUERY]",
		Short: "Search archived tabs by title and URL",
		Long: "Modes:\n" +
			"  fts    full-text match on words in titles and URLs (default)\n" +
			"  fuzzy  typo-tolerant match, ranked; --field picks title, url, or all\n" +
			"  url    URLs containing QUERY\n" +
			"  title  titles containing QUERY\n" +
			"With no QUERY, fts lists the most recently added tabs.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			mode, _ := cmd.Flags().GetString("mode")
			limit := flagOrInt(cmd, "limit", a.cfg.SearchLimit)

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			var hits []store.TabHit
			switch strings.ToLower(mode) {
			case "fts", "":
				results, err := st.Search(ctx, query, limit)
				if err != nil {
					return err
				}
				for _, r := range results {
					hits = append(hits, r.TabHit)
				}
			case "url":
				if hits, err = st.SearchByURL(ctx, query, limit); err != nil {
					return err
				}
			case "title":
				if hits, err = st.SearchByTitle(ctx, query, limit); err != nil {
					return err
				}
			case "fuzzy":
				name, _ := cmd.Flags().GetString("field")
				field, err := search.ParseField(name)
				if err != nil {
					return err
				}
				session, err := st.Session(ctx)
				if err != nil {
					return err
				}
				results := search.Tabs(session, query, field, limit)
				if len(results) == 0 {
					fmt.Fprintln(out, "No tabs found.")
					return nil
				}
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					rows = append(rows, []string{strconv.Itoa(r.Score), r.GroupID, truncate(r.Tab.Title, 50), r.Tab.URL})
				}
				renderTable(out, []string{"Score", "Group", "Title", "URL"}, rows)
				return nil
			default:
				return fmt.Errorf("unknown mode %q (want fts, fuzzy, url, or title)", mode)
			}

			if len(hits) == 0 {
				fmt.Fprintln(out, "No tabs found.")
				return nil
			}
			rows := make([][]string, 0, len(hits))
			for _, h := range hits {
				rows = append(rows, []string{labelOrDash(h.GroupLabel), truncate(h.Tab.Title, 50), h.Tab.URL})
			}
			renderTable(out, []string{"Group", "Title", "URL"}, rows)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringP("mode", "m", "fts", "fts, fuzzy, url, or title.")
	f.String("field", "all", "Fuzzy mode only: title, url, or all.")
	f.IntP("limit", "n", 20, "Maximum results (default from config).")
	return cmd
}

// ─── list ────────────────────────────────────────────────────────────────────

func newListCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived tab groups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			label, _ := cmd.Flags().GetString("label")
			limit, _ := cmd.Flags().GetInt("limit")
			withTabs, _ := cmd.Flags().GetBool("tabs")

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			groups, err := st.AllGroups(cmd.Context())
			if err != nil {
				return err
			}
			groups = render.FilterByLabel(groups, label)
			out := cmd.OutOrStdout()
			if len(groups) == 0 {
				fmt.Fprintln(out, "No tab groups found.")
				return nil
			}
			if limit > 0 && len(groups) > limit {
				groups = groups[:limit]
			}

			if withTabs {
				for _, g := range groups {
					fmt.Fprintf(out, "%s  %s  (%d tabs, %s)\n", g.ID, labelOrDash(g.Label), len(g.Tabs), g.CreatedAt.Format(dateLayout))
					for _, t := range g.Tabs {
						fmt.Fprintf(out, "    %s\n      %s\n", truncate(t.Title, 80), t.URL)
					}
				}
				return nil
			}

			rows := make([][]string, 0, len(groups))
			for _, g := range groups {
				rows = append(rows, []string{g.ID, labelOrDash(g.Label), strconv.Itoa(len(g.Tabs)), g.CreatedAt.Format(dateLayout), groupFlags(g.Pinned, g.Starred, g.Locked)})
			}
			renderTable(out, []string{"ID", "Label", "Tabs", "Created", "Flags"}, rows)
			return nil
		},
	}
	f := cmd.Flags()
	f.String("label", "", "Only groups whose label contains this text.")
	f.IntP("limit", "n", 0, "Show at most this many groups (0 for all).")
	f.Bool("tabs", false, "Print every tab under its group.")
	return cmd
}

func groupFlags(pinned, starred, locked bool) string {
	var flags []string
	if pinned {
		flags = append(flags, "pinned")
	}
	if starred {
		flags = append(flags, "starred")
	}
	if locked {
		flags = append(flags, "locked")
	}
	return strings.Join(flags, ",")
}

// ─── stats ───────────────────────────────────────────────────────────────────

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show archive totals and the most saved sites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			stats, err := st.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Archive:     %s\n", st.Path())
			fmt.Fprintf(out, "Groups:      %d\n", stats.TotalGroups)
			fmt.Fprintf(out, "Tabs:        %d\n", stats.TotalTabs)
			fmt.Fprintf(out, "Import runs: %d\n", stats.ImportRuns)
			if stats.Oldest != nil && stats.Newest != nil {
				fmt.Fprintf(out, "Range:       %s to %s\n", stats.Oldest.Format(dateLayout), stats.Newest.Format(dateLayout))
			}
			if len(stats.TopDomains) > 0 {
				rows := make([][]string, 0, len(stats.TopDomains))
				for _, d := range stats.TopDomains {
					rows = append(rows, []string{d.Domain, strconv.Itoa(d.Count)})
				}
				renderTable(out, []string{"Domain", "Tabs"}, rows)
			}
			return nil
		},
	}
}

// ─── runs ────────────────────────────────────────────────────────────────────

func newRunsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded imports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.ImportRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No imports recorded.")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				rows = append(rows, []string{
					r.ImportedAt.Local().Format(dateLayout),
					r.Source,
					fmt.Sprintf("%d/%d", r.GroupsInserted, r.GroupsInserted+r.GroupsSkipped),
					fmt.Sprintf("%d/%d", r.TabsInserted, r.TabsInserted+r.TabsSkipped),
					shortID(r.ID),
				})
			}
			renderTable(out, []string{"When", "Source", "New groups", "New tabs", "Run"}, rows)
			return nil
		},
	}
	cmd.Flags().IntP("limit", "n", 20, "Show at most this many runs.")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
