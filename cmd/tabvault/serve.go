package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/tabvault/internal/server"
	"github.com/HendryAvila/tabvault/internal/updater"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server (stdio transport)",
		Long: "Add to your AI tool's MCP config:\n\n" +
			"  {\n" +
			"    \"mcpServers\": {\n" +
			"      \"tabvault\": {\n" +
			"        \"command\": \"tabvault\",\n" +
			"        \"args\": [\"serve\"]\n" +
			"      }\n" +
			"    }\n" +
			"  }",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			opts, err := a.recoveryOptions(cmd)
			if err != nil {
				return err
			}
			s := server.New(st, server.Options{
				Recovery: opts,
				Dedup:    a.cfg.Dedup,
				Log:      a.log.Named("mcp"),
			})
			// stdout carries the protocol; everything else goes to stderr.
			return server.Serve(s)
		},
	}
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version, and with --check compare it to the latest release",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tabvault %s (%s/%s)\n", server.Version, runtime.GOOS, runtime.GOARCH)

			if check, _ := cmd.Flags().GetBool("check"); !check {
				return nil
			}
			res, err := updater.Check(cmd.Context(), server.Version)
			if err != nil {
				return err
			}
			if res.UpdateAvailable {
				fmt.Fprintf(out, "update available: v%s → v%s\n%s\n", res.CurrentVersion, res.LatestVersion, res.ReleaseURL)
			} else {
				fmt.Fprintln(out, "up to date")
			}
			return nil
		},
	}
	cmd.Flags().Bool("check", false, "Ask GitHub whether a newer release exists.")
	return cmd
}
