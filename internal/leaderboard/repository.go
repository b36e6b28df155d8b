package leaderboard

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RunRepository defines persistence operations for speedruns.
type RunRepository interface {
	Add(ctx context.Context, run *Run) error
	GetRunsInCategory(ctx context.Context, categoryName string) ([]LeaderboardRun, error)
	GetWorldRecordInCategory(ctx context.Context, categoryName string) (*LeaderboardRun, error)
	ListRuns(ctx context.Context, categories ...Category) ([]LeaderboardRun, error)
}

// BackupRepository defines persistence operations for archived leaderboards.
type BackupRepository interface {
	Add(ctx context.Context, backup *CvsBackup) error
	Latest(ctx context.Context, categoryName string) (*CvsBackup, error)
	List(ctx context.Context, categoryName string) ([]CvsBackup, error)
}

// GormRepository persists runs and backups using a Gorm connection.
type GormRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewRepository constructs a Gorm-backed leaderboard repository.
func NewRepository(db *gorm.DB, logger *logrus.Logger) (*GormRepository, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &GormRepository{db: db, logger: logger}, nil
}

// Runs returns the run repository view.
func (r *GormRepository) Runs() RunRepository {
	return &gormRunRepository{r}
}

// Backups returns the backup repository view.
func (r *GormRepository) Backups() BackupRepository {
	return &gormBackupRepository{r}
}

type gormRunRepository struct{ *GormRepository }

type gormBackupRepository struct{ *GormRepository }

var (
	_ RunRepository    = (*gormRunRepository)(nil)
	_ BackupRepository = (*gormBackupRepository)(nil)
)

// Add inserts a new run.
func (r *gormRunRepository) Add(ctx context.Context, run *Run) error {
	if run == nil {
		return eris.New("run is nil")
	}

	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		r.logError(logrus.Fields{"category": run.Category.String(), "runner": run.Runner}, err, "adding run")
		return eris.Wrapf(err, "adding run in category: %s", run.Category)
	}

	return nil
}

// GetRunsInCategory returns the runs whose category equals categoryName exactly, fastest first.
func (r *gormRunRepository) GetRunsInCategory(ctx context.Context, categoryName string) ([]LeaderboardRun, error) {
	if err := requireArgument("categoryName", categoryName); err != nil {
		return nil, err
	}

	var rows []leaderboardRow
	err := r.leaderboardQuery(ctx).
		Where("category = ?", categoryName).
		Order("time ASC").
		Find(&rows).Error
	if err != nil {
		r.logError(logrus.Fields{"category": categoryName}, err, "fetching runs in category")
		return nil, eris.Wrapf(err, "fetching runs in category: %s", categoryName)
	}

	return toLeaderboardRuns(rows), nil
}

// GetWorldRecordInCategory returns the first run of the category ordered by time descending,
// or nil when the category has no runs.
func (r *gormRunRepository) GetWorldRecordInCategory(ctx context.Context, categoryName string) (*LeaderboardRun, error) {
	if err := requireArgument("categoryName", categoryName); err != nil {
		return nil, err
	}

	var rows []leaderboardRow
	err := r.leaderboardQuery(ctx).
		Where("category = ?", categoryName).
		Order("time DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		r.logError(logrus.Fields{"category": categoryName}, err, "fetching world record")
		return nil, eris.Wrapf(err, "fetching world record in category: %s", categoryName)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	record := toLeaderboardRun(rows[0])
	return &record, nil
}

// ListRuns returns the runs of the given categories grouped by category, fastest first.
// Without categories every run is returned.
func (r *gormRunRepository) ListRuns(ctx context.Context, categories ...Category) ([]LeaderboardRun, error) {
	query := r.leaderboardQuery(ctx)
	if len(categories) > 0 {
		names := make([]string, 0, len(categories))
		for _, category := range categories {
			names = append(names, category.String())
		}
		query = query.Where("category IN ?", names)
	}

	var rows []leaderboardRow
	if err := query.Order("category ASC").Order("time ASC").Find(&rows).Error; err != nil {
		r.logError(logrus.Fields{"categories": categories}, err, "listing runs")
		return nil, eris.Wrap(err, "listing runs")
	}

	return toLeaderboardRuns(rows), nil
}

func (r *gormRunRepository) leaderboardQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&Run{}).Select(leaderboardColumns)
}

// Add validates and inserts a backup.
func (r *gormBackupRepository) Add(ctx context.Context, backup *CvsBackup) error {
	if backup == nil {
		return eris.New("backup is nil")
	}
	if err := backup.Validate(); err != nil {
		return err
	}

	if err := r.db.WithContext(ctx).Create(backup).Error; err != nil {
		r.logError(logrus.Fields{"category": backup.CategoryName}, err, "adding backup")
		return eris.Wrapf(err, "adding backup for category: %s", backup.CategoryName)
	}

	return nil
}

// Latest returns the newest backup of the category, or nil when none exists.
func (r *gormBackupRepository) Latest(ctx context.Context, categoryName string) (*CvsBackup, error) {
	if err := requireArgument("categoryName", categoryName); err != nil {
		return nil, err
	}

	var backup CvsBackup
	err := r.db.WithContext(ctx).
		Where("category_name = ?", categoryName).
		Order("created_at DESC").
		Order("id DESC").
		First(&backup).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"category": categoryName}, err, "fetching latest backup")
		return nil, eris.Wrapf(err, "fetching latest backup for category: %s", categoryName)
	}

	return &backup, nil
}

// List returns the backups of the category, newest first. An empty name lists every backup.
func (r *gormBackupRepository) List(ctx context.Context, categoryName string) ([]CvsBackup, error) {
	var backups []CvsBackup

	query := r.db.WithContext(ctx)
	if name := strings.TrimSpace(categoryName); name != "" {
		query = query.Where("category_name = ?", name)
	}

	if err := query.Order("created_at DESC").Order("id DESC").Find(&backups).Error; err != nil {
		r.logError(logrus.Fields{"category": categoryName}, err, "listing backups")
		return nil, eris.Wrap(err, "listing backups")
	}

	return backups, nil
}

func (r *GormRepository) logError(fields logrus.Fields, err error, message string) {
	if r.logger == nil {
		return
	}

	entry := r.logger.WithField("error", err.Error()).WithField("component", "leaderboard.repository")
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}
