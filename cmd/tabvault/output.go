package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/HendryAvila/tabvault/internal/dedup"
	"github.com/HendryAvila/tabvault/internal/pipeline"
)

// ─── Flags ───────────────────────────────────────────────────────────────────

// The flagOr helpers return the flag's value when it was given on the
// command line and fallback (usually from config) otherwise.

func flagOrString(cmd *cobra.Command, name, fallback string) string {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	return fallback
}

func flagOrInt(cmd *cobra.Command, name string, fallback int) int {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetInt(name)
		return v
	}
	return fallback
}

func flagOrFloat64(cmd *cobra.Command, name string, fallback float64) float64 {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetFloat64(name)
		return v
	}
	return fallback
}

// addIngestFlags registers the pipeline stage flags shared by recover,
// import, and watch.
func addIngestFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Bool("normalize", false, "Canonicalize titles and URLs before importing.")
	f.String("dedup", "", "Remove duplicates before importing: exact-url, normalized-url, or url-and-title. fuzzy-url needs --dry-run.")
	f.Float64("threshold", dedup.DefaultThreshold, "Similarity threshold for fuzzy-url, in [0,1].")
	f.Bool("dry-run", false, "Report what would be imported without writing.")
}

func (a *app) ingestOptions(cmd *cobra.Command) (pipeline.Options, error) {
	normalize, _ := cmd.Flags().GetBool("normalize")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	opts := pipeline.Options{Normalize: normalize, DryRun: dryRun, Log: a.log.Named("pipeline")}

	name, _ := cmd.Flags().GetString("dedup")
	if name == "" {
		return opts, nil
	}
	strategy, err := dedup.ParseStrategy(name)
	if err != nil {
		return opts, err
	}
	policy := dedup.Policy{Strategy: strategy, Threshold: flagOrFloat64(cmd, "threshold", a.cfg.Dedup.Threshold)}
	if err := policy.Validate(); err != nil {
		return opts, err
	}
	opts.Dedup = &policy
	return opts, nil
}

// ─── Output ──────────────────────────────────────────────────────────────────

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func renderTable(w io.Writer, headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(w, t.String())
}

func printReport(w io.Writer, r *pipeline.Report) {
	fmt.Fprintf(w, "  %d groups, %d tabs\n", r.Groups, r.Tabs)
	if r.Normalized {
		fmt.Fprintln(w, "  normalized titles and URLs")
	}
	if d := r.Dedup; d != nil {
		fmt.Fprintf(w, "  dedup %s: %d → %d tabs (%d removed)\n", d.Strategy, d.OriginalCount, d.DeduplicatedCount, d.Removed)
	}
	if s := r.Import; s != nil {
		fmt.Fprintf(w, "  imported %d groups, %d tabs; already present %d groups, %d tabs\n",
			s.GroupsInserted, s.TabsInserted, s.GroupsSkipped, s.TabsSkipped)
	} else {
		fmt.Fprintln(w, "  dry run, nothing imported")
	}
}

func labelOrDash(label *string) string {
	if label == nil || *label == "" {
		return "-"
	}
	return *label
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
