package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HendryAvila/tabvault/internal/exportfile"
	"github.com/HendryAvila/tabvault/internal/model"
	"github.com/HendryAvila/tabvault/internal/pipeline"
	"github.com/HendryAvila/tabvault/internal/render"
)

// ─── import ──────────────────────────────────────────────────────────────────

func newImportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Import pipe or markdown exports, or tabvault JSON sessions",
		Long: "Text exports are detected by content. Files ending in .json are read as\n" +
			"sessions written by 'tabvault export --format json'. Importing the same file\n" +
			"again adds nothing.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ingest, err := a.ingestOptions(cmd)
			if err != nil {
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

			out := cmd.OutOrStdout()
			parser := exportfile.Parser{Log: a.log.Named("exportfile")}
			for _, path := range args {
				session, err := loadSession(parser, path, out)
				if err != nil {
					return err
				}
				_, report, err := pipeline.Ingest(cmd.Context(), imp, session, ingest)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				printReport(out, report)
			}
			return nil
		},
	}
	addIngestFlags(cmd)
	return cmd
}

// loadSession reads one import file and prints what was found in it.
func loadSession(parser exportfile.Parser, path string, out io.Writer) (*model.Session, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		var session model.Session
		if err := json.Unmarshal(data, &session); err != nil {
			return nil, fmt.Errorf("%s is not a tabvault session: %w", path, err)
		}
		session.Source = model.NativeSource(path)
		fmt.Fprintf(out, "%s (json session)\n", path)
		return &session, nil
	}

	session, report, err := parser.ParseFile(path)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "%s (%s export)\n", path, report.Format)
	if report.SkippedLines > 0 {
		fmt.Fprintf(out, "  skipped %d lines with invalid URLs\n", report.SkippedLines)
	}
	return session, nil
}

// ─── export ──────────────────────────────────────────────────────────────────

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the archive as JSON, YAML, or markdown",
		Long: "Markdown output uses the extension's own export layout, so it can be\n" +
			"re-imported here or into the extension.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			name, _ := cmd.Flags().GetString("format")
			format, err := render.ParseFormat(name)
			if err != nil {
				return err
			}
			label, _ := cmd.Flags().GetString("label")
			output, _ := cmd.Flags().GetString("output")

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			session, err := st.Session(cmd.Context())
			if err != nil {
				return err
			}
			session.Groups = render.FilterByLabel(session.Groups, label)

			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create %s: %w", output, err)
				}
				defer func() {
					if cerr := f.Close(); cerr != nil && err == nil {
						err = fmt.Errorf("close %s: %w", output, cerr)
					}
				}()
				w = f
			}
			if err := render.Write(w, format, session); err != nil {
				return err
			}
			if output != "" {
				a.log.Info("exported archive",
					zap.String("path", output),
					zap.String("format", string(format)),
					zap.Int("groups", len(session.Groups)))
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringP("format", "f", string(render.JSON), "Output format: "+formatList())
	f.String("label", "", "Only groups whose label contains this text.")
	f.StringP("output", "o", "", "Write to this file instead of stdout.")
	return cmd
}

func formatList() string {
	names := make([]string, len(render.Formats))
	for i, f := range render.Formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
