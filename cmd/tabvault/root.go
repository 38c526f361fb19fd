package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/HendryAvila/tabvault/internal/config"
	"github.com/HendryAvila/tabvault/internal/logging"
	"github.com/HendryAvila/tabvault/internal/recovery"
	"github.com/HendryAvila/tabvault/internal/snapshot"
	"github.com/HendryAvila/tabvault/internal/store"
)

// app carries the resolved configuration into every subcommand.
type app struct {
	v   *viper.Viper
	cfg config.Config
	log *zap.Logger

	// goos and dirs feed store path resolution.
	goos string
	dirs func() recovery.BaseDirs
}

func newApp() *app {
	a := &app{
		v:    viper.New(),
		log:  zap.NewNop(),
		goos: runtime.GOOS,
		dirs: recovery.DefaultBaseDirs,
	}
	config.SetDefaults(a.v)
	return a
}

func newRootCmd() *cobra.Command {
	return newApp().rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "tabvault",
		Short:        "Recover, deduplicate, and archive browser tab groups",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.load()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.log.Sync()
		},
	}

	pf := cmd.PersistentFlags()
	pf.String("config", "", "Config file path (optional).")
	pf.String("data-dir", "", "Directory holding the archive database.")
	pf.String("log-level", "info", "Log level: debug, info, warn, or error.")
	pf.Bool("log-pretty", true, "Human readable logs instead of JSON.")
	_ = a.v.BindPFlag(config.KeyConfig, pf.Lookup("config"))
	_ = a.v.BindPFlag(config.KeyDataDir, pf.Lookup("data-dir"))
	_ = a.v.BindPFlag(config.KeyLogLevel, pf.Lookup("log-level"))
	_ = a.v.BindPFlag(config.KeyLogPretty, pf.Lookup("log-pretty"))

	cmd.AddCommand(newInitCmd(a))
	cmd.AddCommand(newRecoverCmd(a))
	cmd.AddCommand(newDetectCmd(a))
	cmd.AddCommand(newWatchCmd(a))
	cmd.AddCommand(newImportCmd(a))
	cmd.AddCommand(newExportCmd(a))
	cmd.AddCommand(newSearchCmd(a))
	cmd.AddCommand(newListCmd(a))
	cmd.AddCommand(newStatsCmd(a))
	cmd.AddCommand(newRunsCmd(a))
	cmd.AddCommand(newAddCmd(a))
	cmd.AddCommand(newDeleteCmd(a))
	cmd.AddCommand(newDedupCmd(a))
	cmd.AddCommand(newSnapshotCmd(a))
	cmd.AddCommand(newRestoreCmd(a))
	cmd.AddCommand(newSnapshotsCmd(a))
	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// load resolves configuration and builds the logger. It runs before every
// subcommand.
func (a *app) load() error {
	config.BindEnv(a.v)
	if err := config.ReadFile(a.v); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logging.New(cfg.Log.Level, cfg.Log.Pretty)
	return nil
}

// openStore opens the archive. The caller closes it.
func (a *app) openStore() (*store.Store, error) {
	st, err := store.New(a.cfg.StoreConfig(), a.log.Named("store"))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return st, nil
}

// recoveryOptions applies --browser, --profile, and --store-path over the
// configured defaults.
func (a *app) recoveryOptions(cmd *cobra.Command) (recovery.Options, error) {
	opts := a.cfg.RecoveryOptions()
	if cmd.Flags().Lookup("browser") != nil && cmd.Flags().Changed("browser") {
		name, _ := cmd.Flags().GetString("browser")
		b, err := recovery.ParseBrowser(name)
		if err != nil {
			return opts, err
		}
		opts.Browser = b
	}
	if cmd.Flags().Lookup("profile") != nil {
		opts.Profile = flagOrString(cmd, "profile", opts.Profile)
	}
	if cmd.Flags().Lookup("store-path") != nil {
		opts.StorePath, _ = cmd.Flags().GetString("store-path")
	}
	dirs := a.dirs()
	opts.GOOS = a.goos
	opts.Dirs = &dirs
	opts.Logger = a.log.Named("recovery")
	return opts, nil
}

func (a *app) snapshots() *snapshot.Manager {
	return snapshot.New(a.cfg.SnapshotDir, a.cfg.SnapshotFilename, a.log.Named("snapshot"))
}
