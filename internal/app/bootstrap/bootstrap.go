package bootstrap

import (
	"context"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"sotnwiki/app/internal/config"
	"sotnwiki/app/internal/db"
	apphttp "sotnwiki/app/internal/http"
	"sotnwiki/app/internal/leaderboard"
	"sotnwiki/app/internal/markup"
	"sotnwiki/app/internal/wiki"
)

type Dependencies struct {
	Config    config.Config
	Logger    *logrus.Logger
	SentryHub *sentry.Hub
}

type Result struct {
	Pages       wiki.PageService
	Submissions wiki.ContentSubmissionService
	Characters  wiki.CharacterRepository
	Runs        leaderboard.RunService
	Backups     *leaderboard.BackupService
	// Scheduler is nil when BACKUP_SCHEDULE is empty.
	Scheduler  *leaderboard.Scheduler
	HTTPServer *apphttp.Server
	Database   *gorm.DB
	Cleanup    func() error
}

// Migrate applies every schema owned by the application.
func Migrate(ctx context.Context, gormDB *gorm.DB, logger *logrus.Logger) error {
	if err := wiki.Migrate(ctx, gormDB, logger); err != nil {
		return eris.Wrap(err, "running wiki migrations")
	}
	if err := leaderboard.Migrate(ctx, gormDB, logger); err != nil {
		return eris.Wrap(err, "running leaderboard migrations")
	}
	return nil
}

// Build composes the wiki application layers and returns the constructed components.
func Build(ctx context.Context, deps Dependencies) (Result, error) {
	gormDB, err := db.Open(db.Options{
		Path:   deps.Config.DBPath,
		Logger: db.NewGormLogger(deps.Logger),
	})
	if err != nil {
		return Result{}, eris.Wrap(err, "opening database")
	}

	closeOnError := func(wrapper error) (Result, error) {
		if closeErr := db.Close(gormDB); closeErr != nil && deps.Logger != nil {
			deps.Logger.WithError(closeErr).Error("closing database after bootstrap failure")
		}
		return Result{}, wrapper
	}

	if err := Migrate(ctx, gormDB, deps.Logger); err != nil {
		return closeOnError(err)
	}

	wikiRepo, err := wiki.NewRepository(gormDB, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating wiki repository"))
	}

	unitOfWork, err := wiki.NewUnitOfWorkFactory(gormDB, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating unit of work factory"))
	}

	pages, err := wiki.NewPageService(wikiRepo.Pages(), wikiRepo.Submissions(), unitOfWork, deps.Logger, deps.SentryHub)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating page service"))
	}

	submissions, err := wiki.NewContentSubmissionService(wikiRepo.Submissions(), pages, unitOfWork, deps.Logger, deps.SentryHub)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating content submission service"))
	}

	boardRepo, err := leaderboard.NewRepository(gormDB, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating leaderboard repository"))
	}

	runs, err := leaderboard.NewRunService(boardRepo.Runs(), deps.Logger, deps.SentryHub)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating run service"))
	}

	backups, err := leaderboard.NewBackupService(boardRepo.Runs(), boardRepo.Backups(), deps.Config.BackupCategories, deps.Logger, deps.SentryHub)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating backup service"))
	}

	var scheduler *leaderboard.Scheduler
	if schedule := strings.TrimSpace(deps.Config.BackupSchedule); schedule != "" {
		scheduler, err = leaderboard.NewScheduler(backups, schedule, deps.Logger)
		if err != nil {
			return closeOnError(eris.Wrap(err, "creating backup scheduler"))
		}
	}

	httpServer, err := apphttp.NewServer(apphttp.Options{
		Pages:       pages,
		Submissions: submissions,
		Runs:        runs,
		Renderer:    markup.NewRenderer(),
		Database:    gormDB,
		Logger:      deps.Logger,
		SentryHub:   deps.SentryHub,
		RateLimiter: apphttp.RateLimiterSettings{
			Burst:             deps.Config.RateLimit.Burst,
			RequestsPerSecond: deps.Config.RateLimit.RequestsPerSecond,
			ClientTTL:         deps.Config.RateLimit.ClientTTL,
		},
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "initialising http server"))
	}

	cleanup := func() error {
		httpServer.Close()
		return db.Close(gormDB)
	}

	return Result{
		Pages:       pages,
		Submissions: submissions,
		Characters:  wikiRepo.Characters(),
		Runs:        runs,
		Backups:     backups,
		Scheduler:   scheduler,
		HTTPServer:  httpServer,
		Database:    gormDB,
		Cleanup:     cleanup,
	}, nil
}
