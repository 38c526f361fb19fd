package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/HendryAvila/tabvault/internal/model"
	"github.com/HendryAvila/tabvault/internal/pipeline"
	"github.com/HendryAvila/tabvault/internal/recovery"
	"github.com/HendryAvila/tabvault/internal/watch"
)

func addStoreFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("browser", "", "chrome, edge, brave, or comet (default from config).")
	f.String("profile", "", "Browser profile directory (default from config).")
	f.String("store-path", "", "Read this extension storage directory instead of resolving one.")
}

// ─── recover ─────────────────────────────────────────────────────────────────

func newRecoverCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Import tab groups from a browser's extension storage",
		Long: "Reads the tab-group extension's storage directory (a copy is read when the\n" +
			"browser holds its lock) and imports every group into the archive. Running it\n" +
			"again only adds groups that are new.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ingest, err := a.ingestOptions(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if all, _ := cmd.Flags().GetBool("all"); all {
				return a.recoverAll(cmd.Context(), out, ingest)
			}

			opts, err := a.recoveryOptions(cmd)
			if err != nil {
				return err
			}
			if resolveOnly, _ := cmd.Flags().GetBool("resolve-only"); resolveOnly {
				opts.DryRun = true
				res, err := recovery.Recover(opts)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, res.Path)
				return nil
			}

			var imp pipeline.Importer
			if !ingest.DryRun {
				st, err := a.openStore()
				if err != nil {
					return err
				}
				defer st.Close()
				imp = st
			}
			return recoverOnce(cmd.Context(), out, opts, imp, ingest)
		},
	}
	addStoreFlags(cmd)
	cmd.Flags().Bool("all", false, "Recover every store that detect finds.")
	cmd.Flags().Bool("resolve-only", false, "Print the resolved store path without opening it.")
	addIngestFlags(cmd)
	return cmd
}

func recoverOnce(ctx context.Context, out io.Writer, opts recovery.Options, imp pipeline.Importer, ingest pipeline.Options) error {
	res, err := recovery.Recover(opts)
	if err != nil {
		return err
	}
	printRecovered(out, res)
	_, report, err := pipeline.Ingest(ctx, imp, res.Session, ingest)
	if err != nil {
		return err
	}
	printReport(out, report)
	return nil
}

func printRecovered(out io.Writer, res *recovery.Result) {
	fmt.Fprintf(out, "%s (%s)\n", res.Session.Source, res.Path)
	if res.Copied {
		fmt.Fprintln(out, "  store was locked, read a copy")
	}
	if r := res.Report; r.SkippedTabs > 0 || r.SkippedEntries > 0 || r.DroppedGroups > 0 {
		fmt.Fprintf(out, "  skipped %d tabs with invalid URLs, %d unreadable records, %d empty groups\n",
			r.SkippedTabs, r.SkippedEntries, r.DroppedGroups)
	}
}

// recoverAll extracts every detected store concurrently, then imports the
// sessions one at a time in detection order.
func (a *app) recoverAll(ctx context.Context, out io.Writer, ingest pipeline.Options) error {
	found := recovery.DetectStores(a.goos, a.dirs())
	if len(found) == 0 {
		fmt.Fprintln(out, "No extension stores found.")
		return nil
	}

	results := make([]*recovery.Result, len(found))
	var g errgroup.Group
	for i, d := range found {
		g.Go(func() error {
			source := model.BrowserSource(string(d.Browser), d.Profile)
			res, err := recovery.Extract(d.Path, source, a.log.Named("recovery"))
			if err != nil {
				return fmt.Errorf("%s %s: %w", d.Browser.DisplayName(), d.Profile, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var imp pipeline.Importer
	if !ingest.DryRun {
		st, err := a.openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		imp = st
	}
	for _, res := range results {
		printRecovered(out, res)
		_, report, err := pipeline.Ingest(ctx, imp, res.Session, ingest)
		if err != nil {
			return err
		}
		printReport(out, report)
	}
	return nil
}

// ─── detect ──────────────────────────────────────────────────────────────────

func newDetectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "List the extension stores present on this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			found := recovery.DetectStores(a.goos, a.dirs())
			out := cmd.OutOrStdout()
			if len(found) == 0 {
				fmt.Fprintln(out, "No extension stores found.")
				return nil
			}
			rows := make([][]string, 0, len(found))
			for _, d := range found {
				rows = append(rows, []string{d.Browser.DisplayName(), d.Profile, d.Path})
			}
			renderTable(out, []string{"Browser", "Profile", "Path"}, rows)
			return nil
		},
	}
}

// ─── watch ───────────────────────────────────────────────────────────────────

func newWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Recover now, then again whenever the extension store changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ingest, err := a.ingestOptions(cmd)
			if err != nil {
				return err
			}
			opts, err := a.recoveryOptions(cmd)
			if err != nil {
				return err
			}
			debounce, _ := cmd.Flags().GetDuration("debounce")

			resolve := opts
			resolve.DryRun = true
			res, err := recovery.Recover(resolve)
			if err != nil {
				return err
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if err := recoverOnce(ctx, out, opts, st, ingest); err != nil {
				return err
			}

			w, err := watch.New(res.Path, debounce, a.log.Named("watch"))
			if err != nil {
				return err
			}
			a.log.Info("watching extension store", zap.String("path", res.Path))
			return w.Run(ctx, func(ctx context.Context) error {
				return recoverOnce(ctx, out, opts, st, ingest)
			})
		},
	}
	addStoreFlags(cmd)
	cmd.Flags().Duration("debounce", watch.DefaultDebounce, "Quiet period before re-reading the store.")
	addIngestFlags(cmd)
	return cmd
}
