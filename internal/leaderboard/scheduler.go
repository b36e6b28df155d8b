package leaderboard

import (
	"context"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

const defaultBackupTimeout = 5 * time.Minute

// Scheduler runs BackupAll on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	backups *BackupService
	logger  *logrus.Logger
	timeout time.Duration
	entry   cron.EntryID
}

// NewScheduler registers the backup job on schedule. Standard five-field specs and
// descriptors such as @daily are accepted.
func NewScheduler(backups *BackupService, schedule string, logger *logrus.Logger) (*Scheduler, error) {
	if backups == nil {
		return nil, eris.New("backup service is required")
	}
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		return nil, eris.New("backup schedule is required")
	}

	adapter := cronLogger{logger: logger}
	c := cron.New(
		cron.WithLogger(adapter),
		cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
	)

	s := &Scheduler{cron: c, backups: backups, logger: logger, timeout: defaultBackupTimeout}

	id, err := c.AddFunc(schedule, s.run)
	if err != nil {
		return nil, eris.Wrapf(err, "parsing backup schedule %q", schedule)
	}
	s.entry = id

	return s, nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"component": "leaderboard.scheduler",
			"next_run":  s.cron.Entry(s.entry).Next,
		}).Info("backup scheduler started")
	}
}

// Stop halts the scheduler and waits for a running backup until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "waiting for running backup")
	}
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	started := time.Now()
	backups, err := s.backups.BackupAll(ctx)

	if s.logger == nil {
		return
	}
	entry := s.logger.WithFields(logrus.Fields{
		"component":   "leaderboard.scheduler",
		"backups":     len(backups),
		"duration_ms": time.Since(started).Milliseconds(),
	})
	if err != nil {
		entry.WithField("error", err.Error()).Error("scheduled backup failed")
		return
	}
	entry.Info("scheduled backup complete")
}

type cronLogger struct {
	logger *logrus.Logger
}

var _ cron.Logger = cronLogger{}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.WithFields(cronFields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	if l.logger == nil {
		return
	}
	fields := cronFields(keysAndValues)
	if err != nil {
		fields["error"] = err.Error()
	}
	l.logger.WithFields(fields).Error(msg)
}

func cronFields(keysAndValues []interface{}) logrus.Fields {
	fields := logrus.Fields{"component": "cron"}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields[key] = keysAndValues[i+1]
	}
	return fields
}
