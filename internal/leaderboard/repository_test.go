package leaderboard

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rotisserie/eris"
)

func TestNewRepositoryRequiresDatabase(t *testing.T) {
	t.Parallel()

	if _, err := NewRepository(nil, nil); err == nil {
		t.Fatalf("expected error when database is nil")
	}
}

func TestGetRunsInCategoryMatchesCategoryExactly(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	runs := setupRepository(t).Runs()

	mustAddRun(t, runs, AlucardAnyNSC, "slowpoke", 21*time.Minute)
	mustAddRun(t, runs, CvsAlucardAnyNSC, "archived", 19*time.Minute)
	mustAddRun(t, runs, AlucardAnyNSC, "speedy", 17*time.Minute+420*time.Millisecond)

	got, err := runs.GetRunsInCategory(ctx, "AlucardAnyNSC")
	if err != nil {
		t.Fatalf("GetRunsInCategory returned error: %v", err)
	}

	want := []LeaderboardRun{
		{
			Runner:        "speedy",
			Category:      AlucardAnyNSC,
			Time:          17*time.Minute + 420*time.Millisecond,
			FormattedTime: "17:00.420",
			Platform:      "PS1",
			VideoURL:      "https://example.com/speedy",
			SubmittedOn:   submittedOn,
		},
		{
			Runner:        "slowpoke",
			Category:      AlucardAnyNSC,
			Time:          21 * time.Minute,
			FormattedTime: "21:00",
			Platform:      "PS1",
			VideoURL:      "https://example.com/slowpoke",
			SubmittedOn:   submittedOn,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected runs (-want +got):\n%s", diff)
	}

	archived, err := runs.GetRunsInCategory(ctx, "CvsAlucardAnyNSC")
	if err != nil {
		t.Fatalf("GetRunsInCategory returned error: %v", err)
	}
	if len(archived) != 1 || archived[0].Runner != "archived" {
		t.Fatalf("expected only the archived run, got %#v", archived)
	}

	unknown, err := runs.GetRunsInCategory(ctx, "alucardanynsc")
	if err != nil {
		t.Fatalf("GetRunsInCategory returned error: %v", err)
	}
	if len(unknown) != 0 {
		t.Fatalf("expected no runs for a differently cased name, got %d", len(unknown))
	}
}

func TestRunQueriesRequireCategoryName(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	runs := setupRepository(t).Runs()

	for _, name := range []string{"", "   "} {
		if _, err := runs.GetRunsInCategory(ctx, name); !eris.Is(err, ErrInvalidArgument) {
			t.Fatalf("GetRunsInCategory(%q): expected ErrInvalidArgument, got %v", name, err)
		}
		if _, err := runs.GetWorldRecordInCategory(ctx, name); !eris.Is(err, ErrInvalidArgument) {
			t.Fatalf("GetWorldRecordInCategory(%q): expected ErrInvalidArgument, got %v", name, err)
		}
	}
}

func TestGetWorldRecordInCategoryReturnsFirstRunByDescendingTime(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	runs := setupRepository(t).Runs()

	mustAddRun(t, runs, RichterAny, "first", 7*time.Minute)
	mustAddRun(t, runs, RichterAny, "second", 9*time.Minute)
	mustAddRun(t, runs, CvsRichterAny, "other", 30*time.Minute)

	record, err := runs.GetWorldRecordInCategory(ctx, "RichterAny")
	if err != nil {
		t.Fatalf("GetWorldRecordInCategory returned error: %v", err)
	}
	if record == nil {
		t.Fatalf("expected a record")
	}
	if record.Runner != "second" || record.Time != 9*time.Minute {
		t.Fatalf("expected the 9 minute run, got %#v", record)
	}
}

func TestGetWorldRecordInCategoryReturnsNilWhenEmpty(t *testing.T) {
	t.Parallel()

	record, err := setupRepository(t).Runs().GetWorldRecordInCategory(context.Background(), "Alucard100")
	if err != nil {
		t.Fatalf("GetWorldRecordInCategory returned error: %v", err)
	}
	if record != nil {
		t.Fatalf("expected nil record, got %#v", record)
	}
}

func TestListRunsFiltersByCategories(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	runs := setupRepository(t).Runs()

	mustAddRun(t, runs, AlucardAnyNSC, "a", 20*time.Minute)
	mustAddRun(t, runs, CvsAlucardAnyNSC, "b", 22*time.Minute)
	mustAddRun(t, runs, CvsRichterAny, "c", 8*time.Minute)

	archived, err := runs.ListRuns(ctx, ArchiveCategories()...)
	if err != nil {
		t.Fatalf("ListRuns returned error: %v", err)
	}

	var runners []string
	for _, run := range archived {
		runners = append(runners, run.Runner)
	}
	if diff := cmp.Diff([]string{"b", "c"}, runners); diff != "" {
		t.Fatalf("unexpected runners (-want +got):\n%s", diff)
	}

	all, err := runs.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns returned error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(all))
	}
}

func TestBackupRepositoryValidatesAndOrders(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backups := setupRepository(t).Backups()

	if err := backups.Add(ctx, &CvsBackup{CategoryName: "Any", Runs: "[]"}); !eris.Is(err, ErrInvalidBackup) {
		t.Fatalf("expected ErrInvalidBackup for short category name, got %v", err)
	}
	if err := backups.Add(ctx, &CvsBackup{CategoryName: "CvsRichterAny"}); !eris.Is(err, ErrInvalidBackup) {
		t.Fatalf("expected ErrInvalidBackup for missing runs, got %v", err)
	}

	older := &CvsBackup{CategoryName: "CvsRichterAny", Runs: `[{"runner":"old"}]`}
	newer := &CvsBackup{CategoryName: "CvsRichterAny", Runs: `[{"runner":"new"}]`}
	other := &CvsBackup{CategoryName: "CvsAlucard100", Runs: `[]`}
	for _, backup := range []*CvsBackup{older, newer, other} {
		if err := backups.Add(ctx, backup); err != nil {
			t.Fatalf("Add returned error: %v", err)
		}
	}

	latest, err := backups.Latest(ctx, "CvsRichterAny")
	if err != nil {
		t.Fatalf("Latest returned error: %v", err)
	}
	if latest == nil || latest.ID != newer.ID {
		t.Fatalf("expected newest backup %d, got %#v", newer.ID, latest)
	}

	missing, err := backups.Latest(ctx, "CvsAlucardAnyNSC")
	if err != nil {
		t.Fatalf("Latest returned error: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil backup, got %#v", missing)
	}

	richter, err := backups.List(ctx, "CvsRichterAny")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(richter) != 2 {
		t.Fatalf("expected 2 backups for category, got %d", len(richter))
	}

	all, err := backups.List(ctx, "")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 backups, got %d", len(all))
	}
}
