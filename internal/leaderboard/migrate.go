package leaderboard

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Migrate applies the leaderboard schema.
func Migrate(ctx context.Context, db *gorm.DB, logger *logrus.Logger) error {
	if db == nil {
		return eris.New("gorm DB is required")
	}

	logFields := logrus.Fields{"component": "leaderboard.migrate"}
	if logger != nil {
		logger.WithFields(logFields).Info("applying leaderboard schema")
	}

	if err := db.WithContext(ctx).AutoMigrate(&Run{}, &CvsBackup{}); err != nil {
		if logger != nil {
			logger.WithFields(logFields).WithField("error", err.Error()).Error("leaderboard schema migration failed")
		}
		return eris.Wrap(err, "auto migrating leaderboard schema")
	}

	return nil
}
