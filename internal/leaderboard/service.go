package leaderboard

import (
	"context"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// RunService exposes leaderboard queries and run submission.
type RunService interface {
	GetCvsRuns(ctx context.Context) ([]LeaderboardRun, error)
	GetSrComRuns(ctx context.Context) ([]LeaderboardRun, error)
	GetRunsInCategory(ctx context.Context, categoryName string) ([]LeaderboardRun, error)
	GetWorldRecordInCategory(ctx context.Context, categoryName string) (*LeaderboardRun, error)
	AddRun(ctx context.Context, input RunInput) (*Run, error)
}

// RunInput describes a run to record.
type RunInput struct {
	Category    string
	Time        time.Duration
	Runner      string
	Platform    string
	VideoURL    string
	SubmittedOn time.Time
}

type runService struct {
	reporter
	runs RunRepository
	now  func() time.Time
}

var _ RunService = (*runService)(nil)

// NewRunService wires the run service with its repository.
func NewRunService(runs RunRepository, logger *logrus.Logger, hub *sentry.Hub) (RunService, error) {
	if runs == nil {
		return nil, eris.New("run repository is required")
	}

	return &runService{
		reporter: reporter{logger: logger, hub: hub, component: "leaderboard.runs"},
		runs:     runs,
		now:      time.Now,
	}, nil
}

// GetCvsRuns returns every run of the CV speedruns archive categories.
func (s *runService) GetCvsRuns(ctx context.Context) ([]LeaderboardRun, error) {
	runs, err := s.runs.ListRuns(ctx, ArchiveCategories()...)
	if err != nil {
		s.recordError(nil, err, "listing archive runs")
		return nil, eris.Wrap(err, "listing archive runs")
	}
	return runs, nil
}

// GetSrComRuns returns every run of the speedrun.com categories.
func (s *runService) GetSrComRuns(ctx context.Context) ([]LeaderboardRun, error) {
	runs, err := s.runs.ListRuns(ctx, CurrentCategories()...)
	if err != nil {
		s.recordError(nil, err, "listing current runs")
		return nil, eris.Wrap(err, "listing current runs")
	}
	return runs, nil
}

func (s *runService) GetRunsInCategory(ctx context.Context, categoryName string) ([]LeaderboardRun, error) {
	if err := requireArgument("categoryName", categoryName); err != nil {
		return nil, err
	}

	runs, err := s.runs.GetRunsInCategory(ctx, categoryName)
	if err != nil {
		s.recordError(logrus.Fields{"category": categoryName}, err, "fetching runs in category")
		return nil, eris.Wrapf(err, "fetching runs in category: %s", categoryName)
	}
	return runs, nil
}

func (s *runService) GetWorldRecordInCategory(ctx context.Context, categoryName string) (*LeaderboardRun, error) {
	if err := requireArgument("categoryName", categoryName); err != nil {
		return nil, err
	}

	record, err := s.runs.GetWorldRecordInCategory(ctx, categoryName)
	if err != nil {
		s.recordError(logrus.Fields{"category": categoryName}, err, "fetching world record")
		return nil, eris.Wrapf(err, "fetching world record in category: %s", categoryName)
	}
	return record, nil
}

// AddRun validates and stores a run. A zero SubmittedOn is replaced by the current time.
func (s *runService) AddRun(ctx context.Context, input RunInput) (*Run, error) {
	category, err := ParseCategory(strings.TrimSpace(input.Category))
	if err != nil {
		return nil, err
	}
	if input.Time <= 0 {
		return nil, eris.Wrap(ErrInvalidArgument, "time must be positive")
	}
	if err := requireArgument("runner", input.Runner); err != nil {
		return nil, err
	}

	submittedOn := input.SubmittedOn
	if submittedOn.IsZero() {
		submittedOn = s.now().UTC()
	}

	run := &Run{
		Category:    category,
		Time:        input.Time,
		Runner:      strings.TrimSpace(input.Runner),
		Platform:    strings.TrimSpace(input.Platform),
		VideoURL:    strings.TrimSpace(input.VideoURL),
		SubmittedOn: submittedOn,
	}

	if err := s.runs.Add(ctx, run); err != nil {
		s.recordError(logrus.Fields{"category": category.String(), "runner": run.Runner}, err, "adding run")
		return nil, eris.Wrap(err, "adding run")
	}

	s.logInfo(logrus.Fields{"category": category.String(), "runner": run.Runner, "time": FormatTime(run.Time)}, "run recorded")
	return run, nil
}

// FilterCategory keeps the runs whose category equals category exactly.
func FilterCategory(runs []LeaderboardRun, category Category) []LeaderboardRun {
	filtered := make([]LeaderboardRun, 0, len(runs))
	for _, run := range runs {
		if run.Category == category {
			filtered = append(filtered, run)
		}
	}
	return filtered
}

type reporter struct {
	logger    *logrus.Logger
	hub       *sentry.Hub
	component string
}

func (r reporter) recordError(fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	if r.logger != nil {
		entry := r.logger.WithField("error", err.Error()).WithField("component", r.component)
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		entry.Error(message)
	}

	if r.hub != nil {
		r.hub.CaptureException(err)
	}
}

func (r reporter) logInfo(fields logrus.Fields, message string) {
	if r.logger == nil {
		return
	}
	r.logger.WithField("component", r.component).WithFields(fields).Info(message)
}
