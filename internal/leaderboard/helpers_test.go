package leaderboard

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"sotnwiki/app/internal/db"
)

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setupRepository(t *testing.T) *GormRepository {
	t.Helper()

	path := filepath.Join(t.TempDir(), "leaderboard.db")
	gormDB, err := db.Open(db.Options{Path: path})
	if err != nil {
		t.Fatalf("db.Open returned error: %v", err)
	}

	t.Cleanup(func() {
		if closeErr := db.Close(gormDB); closeErr != nil {
			t.Fatalf("closing database failed: %v", closeErr)
		}
	})

	if err := Migrate(context.Background(), gormDB, silentLogger()); err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}

	repo, err := NewRepository(gormDB, silentLogger())
	if err != nil {
		t.Fatalf("NewRepository returned error: %v", err)
	}

	return repo
}

var submittedOn = time.Date(2019, time.March, 14, 0, 0, 0, 0, time.UTC)

func mustAddRun(t *testing.T, runs RunRepository, category Category, runner string, d time.Duration) *Run {
	t.Helper()

	run := &Run{
		Category:    category,
		Time:        d,
		Runner:      runner,
		Platform:    "PS1",
		VideoURL:    "https://example.com/" + runner,
		SubmittedOn: submittedOn,
	}
	if err := runs.Add(context.Background(), run); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	return run
}

type stubRunRepository struct {
	runs            []LeaderboardRun
	added           []*Run
	listCategories  []Category
	requestedByName []string
	err             error
}

var _ RunRepository = (*stubRunRepository)(nil)

func (s *stubRunRepository) Add(_ context.Context, run *Run) error {
	if s.err != nil {
		return s.err
	}
	s.added = append(s.added, run)
	return nil
}

func (s *stubRunRepository) GetRunsInCategory(_ context.Context, categoryName string) ([]LeaderboardRun, error) {
	s.requestedByName = append(s.requestedByName, categoryName)
	if s.err != nil {
		return nil, s.err
	}
	return FilterCategory(s.runs, Category(categoryName)), nil
}

func (s *stubRunRepository) GetWorldRecordInCategory(_ context.Context, categoryName string) (*LeaderboardRun, error) {
	s.requestedByName = append(s.requestedByName, categoryName)
	if s.err != nil {
		return nil, s.err
	}
	runs := FilterCategory(s.runs, Category(categoryName))
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

func (s *stubRunRepository) ListRuns(_ context.Context, categories ...Category) ([]LeaderboardRun, error) {
	s.listCategories = append([]Category(nil), categories...)
	if s.err != nil {
		return nil, s.err
	}
	return s.runs, nil
}
