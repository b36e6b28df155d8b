package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sotnwiki/app/internal/app/bootstrap"
	"sotnwiki/app/internal/config"
	"sotnwiki/app/internal/db"
	"sotnwiki/app/internal/leaderboard"
	applog "sotnwiki/app/internal/log"
	"sotnwiki/app/internal/seed"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

type cliOptions struct {
	dbPath   string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:   "wikictl",
		Short: "Administer the SotN wiki database",
		Long: `wikictl runs maintenance tasks against the wiki database.

Configuration is read from the environment (and a .env file) like the server;
--db overrides DB_PATH.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "path to the SQLite database (defaults to DB_PATH)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (defaults to LOG_LEVEL)")

	root.AddCommand(
		newMigrateCmd(opts),
		newSeedCmd(opts),
		newBackupCmd(opts),
	)

	return root
}

func newMigrateCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}

			gormDB, err := db.Open(db.Options{Path: cfg.DBPath, Logger: db.NewGormLogger(logger)})
			if err != nil {
				return eris.Wrap(err, "opening database")
			}
			defer func() {
				if closeErr := db.Close(gormDB); closeErr != nil {
					logger.WithError(closeErr).Error("closing database")
				}
			}()

			if err := bootstrap.Migrate(cmd.Context(), gormDB, logger); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "schema applied to %s\n", cfg.DBPath)
			return nil
		},
	}
}

func newSeedCmd(opts *cliOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load characters, pages and runs from a YAML file",
		Long: `Loads a YAML seed document. Existing characters and page titles are
skipped, runs are always added.

Example:
  wikictl seed --file seed.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			document, err := seed.ParseFile(file)
			if err != nil {
				return err
			}

			return opts.withApp(cmd.Context(), func(app bootstrap.Result, logger *logrus.Logger) error {
				loader, err := seed.NewLoader(app.Pages, app.Characters, app.Runs, logger)
				if err != nil {
					return err
				}

				result, err := loader.Load(cmd.Context(), document)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "characters created: %d\npages created: %d\npages skipped: %d\nruns created: %d\n",
					result.CharactersCreated, result.PagesCreated, result.PagesSkipped, result.RunsCreated)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "seed file to load")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func newBackupCmd(opts *cliOptions) *cobra.Command {
	var (
		category string
		show     bool
		list     bool
	)

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot leaderboards into CvsBackup rows",
		Long: `Without --category every category listed in BACKUP_CATEGORIES (or every
archive category) is backed up. --show prints the latest stored snapshot of
--category instead of taking a new one, --list lists stored snapshots (of
--category when given).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd.Context(), func(app bootstrap.Result, _ *logrus.Logger) error {
				out := cmd.OutOrStdout()

				if show && list {
					return eris.New("--show and --list are mutually exclusive")
				}
				if show {
					return showLatestBackup(cmd, app.Backups, category)
				}
				if list {
					return listBackups(cmd, app.Backups, category)
				}

				if name := strings.TrimSpace(category); name != "" {
					backup, err := app.Backups.BackupCategory(cmd.Context(), name)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "backup %d stored for %s\n", backup.ID, backup.CategoryName)
					return nil
				}

				backups, err := app.Backups.BackupAll(cmd.Context())
				for _, backup := range backups {
					fmt.Fprintf(out, "backup %d stored for %s\n", backup.ID, backup.CategoryName)
				}
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "single category to back up, e.g. CvsAlucardAnyNSC")
	cmd.Flags().BoolVar(&show, "show", false, "print the latest snapshot of --category")
	cmd.Flags().BoolVar(&list, "list", false, "list stored snapshots, newest first")

	return cmd
}

func showLatestBackup(cmd *cobra.Command, backups *leaderboard.BackupService, category string) error {
	if strings.TrimSpace(category) == "" {
		return eris.New("--show requires --category")
	}

	backup, err := backups.Latest(cmd.Context(), category)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if backup == nil {
		fmt.Fprintf(out, "no backups stored for %s\n", category)
		return nil
	}

	runs, err := leaderboard.DecodeRuns(backup)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "backup %d taken %s\n", backup.ID, backup.CreatedAt.UTC().Format(time.RFC3339))
	for i, run := range runs {
		fmt.Fprintf(out, "%3d. %-10s %-20s %s\n", i+1, run.FormattedTime, run.Runner, run.Platform)
	}
	return nil
}

func listBackups(cmd *cobra.Command, backups *leaderboard.BackupService, category string) error {
	stored, err := backups.List(cmd.Context(), category)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(stored) == 0 {
		fmt.Fprintln(out, "no backups stored")
		return nil
	}

	for _, backup := range stored {
		fmt.Fprintf(out, "%5d  %-22s %s\n", backup.ID, backup.CategoryName, backup.CreatedAt.UTC().Format(time.RFC3339))
	}
	return nil
}

func (o *cliOptions) load() (config.Config, *logrus.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, eris.Wrap(err, "loading configuration")
	}
	if path := strings.TrimSpace(o.dbPath); path != "" {
		cfg.DBPath = path
	}
	if level := strings.TrimSpace(o.logLevel); level != "" {
		cfg.LogLevel = level
	}

	logger, err := applog.NewLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, eris.Wrap(err, "initialising logger")
	}
	logger.SetOutput(os.Stderr)

	return *cfg, logger, nil
}

func (o *cliOptions) withApp(ctx context.Context, fn func(bootstrap.Result, *logrus.Logger) error) error {
	cfg, logger, err := o.load()
	if err != nil {
		return err
	}
	// the CLI never runs the scheduler
	cfg.BackupSchedule = ""

	app, err := bootstrap.Build(ctx, bootstrap.Dependencies{Config: cfg, Logger: logger})
	if err != nil {
		return eris.Wrap(err, "bootstrapping application")
	}
	defer func() {
		if closeErr := app.Cleanup(); closeErr != nil {
			logger.WithError(closeErr).Error("closing application resources")
		}
	}()

	return fn(app, logger)
}
