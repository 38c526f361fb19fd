package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/tabvault/internal/snapshot"
	"github.com/HendryAvila/tabvault/internal/store"
)

// ─── init ────────────────────────────────────────────────────────────────────

func newInitCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the archive database and, optionally, the snapshot repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			path := st.Path()
			if err := st.Close(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "archive ready at %s\n", path)

			if withGit, _ := cmd.Flags().GetBool("snapshots"); withGit {
				m := a.snapshots()
				if err := m.Init(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(out, "snapshot repository ready at %s\n", m.RepoPath)
			}
			return nil
		},
	}
	cmd.Flags().Bool("snapshots", false, "Also initialize the git repository used by snapshot.")
	return cmd
}

// ─── snapshot ────────────────────────────────────────────────────────────────

func newSnapshotCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Commit the whole archive to the snapshot git repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			m := a.snapshots()
			if err := ensureRepo(cmd, m); err != nil {
				return err
			}
			hash, err := m.Snapshot(cmd.Context(), st)
			out := cmd.OutOrStdout()
			if errors.Is(err, snapshot.ErrUnchanged) {
				fmt.Fprintln(out, "archive unchanged since the last snapshot")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "snapshot %s written to %s\n", hash, m.Path())
			return nil
		},
	}
}

// ensureRepo initializes the snapshot repository on first use.
func ensureRepo(cmd *cobra.Command, m *snapshot.Manager) error {
	if _, err := os.Stat(filepath.Join(m.RepoPath, ".git")); err == nil {
		return nil
	}
	return m.Init(cmd.Context())
}

// ─── restore ─────────────────────────────────────────────────────────────────

func newRestoreCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Import the latest snapshot, or the one at --commit, into the archive",
		Long: "Restoring only adds groups missing from the archive; nothing already\n" +
			"archived is changed or removed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			commit, _ := cmd.Flags().GetString("commit")

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			m := a.snapshots()
			var stats *store.InsertStats
			if commit != "" {
				stats, err = m.RestoreFromCommit(cmd.Context(), st, commit)
			} else {
				stats, err = m.Restore(cmd.Context(), st)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %d groups, %d tabs; already present %d groups, %d tabs\n",
				stats.GroupsInserted, stats.TabsInserted, stats.GroupsSkipped, stats.TabsSkipped)
			return nil
		},
	}
	cmd.Flags().String("commit", "", "Restore the snapshot recorded in this commit.")
	return cmd
}

// ─── snapshots ───────────────────────────────────────────────────────────────

func newSnapshotsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List snapshot commits, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			entries, err := a.snapshots().List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No snapshots yet.")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%s  %s\n", e.Hash, e.Message)
			}
			return nil
		},
	}
	cmd.Flags().IntP("limit", "n", 10, "Show at most this many snapshots.")
	return cmd
}
