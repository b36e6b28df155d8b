package leaderboard

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// BackupService snapshots category leaderboards into CvsBackup rows.
type BackupService struct {
	reporter
	runs       RunRepository
	backups    BackupRepository
	categories []Category
}

// NewBackupService validates the configured category names. Without names every
// archive category is backed up.
func NewBackupService(runs RunRepository, backups BackupRepository, categoryNames []string, logger *logrus.Logger, hub *sentry.Hub) (*BackupService, error) {
	if runs == nil {
		return nil, eris.New("run repository is required")
	}
	if backups == nil {
		return nil, eris.New("backup repository is required")
	}

	categories := make([]Category, 0, len(categoryNames))
	for _, name := range categoryNames {
		category, err := ParseCategory(strings.TrimSpace(name))
		if err != nil {
			return nil, eris.Wrap(err, "configuring backup categories")
		}
		categories = append(categories, category)
	}
	if len(categories) == 0 {
		categories = ArchiveCategories()
	}

	return &BackupService{
		reporter:   reporter{logger: logger, hub: hub, component: "leaderboard.backup"},
		runs:       runs,
		backups:    backups,
		categories: categories,
	}, nil
}

// Categories returns the categories covered by BackupAll.
func (s *BackupService) Categories() []Category {
	return append([]Category(nil), s.categories...)
}

// BackupCategory stores the category's current leaderboard as a JSON snapshot.
func (s *BackupService) BackupCategory(ctx context.Context, categoryName string) (*CvsBackup, error) {
	category, err := ParseCategory(strings.TrimSpace(categoryName))
	if err != nil {
		return nil, err
	}

	runs, err := s.runs.GetRunsInCategory(ctx, category.String())
	if err != nil {
		s.recordError(logrus.Fields{"category": category.String()}, err, "loading runs for backup")
		return nil, eris.Wrapf(err, "loading runs for backup: %s", category)
	}

	payload, err := json.Marshal(runs)
	if err != nil {
		return nil, eris.Wrapf(err, "encoding runs for backup: %s", category)
	}

	backup := &CvsBackup{CategoryName: category.String(), Runs: string(payload)}
	if err := s.backups.Add(ctx, backup); err != nil {
		s.recordError(logrus.Fields{"category": category.String()}, err, "storing backup")
		return nil, eris.Wrapf(err, "storing backup: %s", category)
	}

	s.logInfo(logrus.Fields{"category": category.String(), "runs": len(runs), "backup_id": backup.ID}, "leaderboard backed up")
	return backup, nil
}

// BackupAll backs up every configured category. It continues past failures and
// returns the backups that were stored together with the first error.
func (s *BackupService) BackupAll(ctx context.Context) ([]CvsBackup, error) {
	backups := make([]CvsBackup, 0, len(s.categories))
	var firstErr error

	for _, category := range s.categories {
		if err := ctx.Err(); err != nil {
			return backups, eris.Wrap(err, "backing up leaderboards")
		}

		backup, err := s.BackupCategory(ctx, category.String())
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		backups = append(backups, *backup)
	}

	return backups, firstErr
}

// Latest returns the newest backup of the category, or nil when none exists.
func (s *BackupService) Latest(ctx context.Context, categoryName string) (*CvsBackup, error) {
	backup, err := s.backups.Latest(ctx, strings.TrimSpace(categoryName))
	if err != nil {
		return nil, eris.Wrapf(err, "fetching latest backup: %s", categoryName)
	}
	return backup, nil
}

// List returns the stored backups of the category, newest first. An empty name lists every category.
func (s *BackupService) List(ctx context.Context, categoryName string) ([]CvsBackup, error) {
	backups, err := s.backups.List(ctx, categoryName)
	if err != nil {
		return nil, eris.Wrapf(err, "listing backups: %s", categoryName)
	}
	return backups, nil
}

// DecodeRuns returns the leaderboard rows stored in the backup.
func DecodeRuns(backup *CvsBackup) ([]LeaderboardRun, error) {
	if backup == nil {
		return nil, eris.New("backup is nil")
	}

	var runs []LeaderboardRun
	if err := json.Unmarshal([]byte(backup.Runs), &runs); err != nil {
		return nil, eris.Wrapf(err, "decoding backup %d", backup.ID)
	}
	return runs, nil
}
