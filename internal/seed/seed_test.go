package seed

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"

	"sotnwiki/app/internal/db"
	"sotnwiki/app/internal/leaderboard"
	"sotnwiki/app/internal/wiki"
)

const sampleSeed = `
characters:
  - Alucard
  - Richter
pages:
  - title: Main Page
    content: "# Welcome"
    published: true
  - title: Alucard Any% NSC
    character: Alucard
    content: Route notes.
  - title: Maria
    character: Maria
runs:
  - category: CvsAlucardAnyNSC
    time: 17m42s
    runner: Mecha
    platform: PS1
    video: https://example.com/mecha
    date: "2009-06-01"
  - category: AlucardAnyNSC
    time: 16m58s500ms
    runner: Hobbes
`

type fixture struct {
	loader *Loader
	pages  wiki.PageService
	runs   leaderboard.RunService
}

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setupFixture(t *testing.T) fixture {
	t.Helper()

	ctx := context.Background()
	logger := silentLogger()

	gormDB, err := db.Open(db.Options{Path: filepath.Join(t.TempDir(), "seed.db")})
	if err != nil {
		t.Fatalf("db.Open returned error: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := db.Close(gormDB); closeErr != nil {
			t.Fatalf("closing database failed: %v", closeErr)
		}
	})

	if err := wiki.Migrate(ctx, gormDB, logger); err != nil {
		t.Fatalf("wiki.Migrate returned error: %v", err)
	}
	if err := leaderboard.Migrate(ctx, gormDB, logger); err != nil {
		t.Fatalf("leaderboard.Migrate returned error: %v", err)
	}

	repo, err := wiki.NewRepository(gormDB, logger)
	if err != nil {
		t.Fatalf("wiki.NewRepository returned error: %v", err)
	}
	factory, err := wiki.NewUnitOfWorkFactory(gormDB, logger)
	if err != nil {
		t.Fatalf("NewUnitOfWorkFactory returned error: %v", err)
	}
	pages, err := wiki.NewPageService(repo.Pages(), repo.Submissions(), factory, logger, nil)
	if err != nil {
		t.Fatalf("NewPageService returned error: %v", err)
	}

	runRepo, err := leaderboard.NewRepository(gormDB, logger)
	if err != nil {
		t.Fatalf("leaderboard.NewRepository returned error: %v", err)
	}
	runs, err := leaderboard.NewRunService(runRepo.Runs(), logger, nil)
	if err != nil {
		t.Fatalf("NewRunService returned error: %v", err)
	}

	loader, err := NewLoader(pages, repo.Characters(), runs, logger)
	if err != nil {
		t.Fatalf("NewLoader returned error: %v", err)
	}

	return fixture{loader: loader, pages: pages, runs: runs}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	if _, err := Parse(strings.NewReader("pagez:\n  - title: x\n")); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestParseEmptyDocument(t *testing.T) {
	t.Parallel()

	file, err := Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(file.Pages) != 0 || len(file.Runs) != 0 {
		t.Fatalf("expected empty document, got %#v", file)
	}
}

func TestParseFileReadsDocument(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(sampleSeed), 0o600); err != nil {
		t.Fatalf("writing seed file failed: %v", err)
	}

	file, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile returned error: %v", err)
	}

	want := []string{"Alucard", "Richter"}
	if diff := cmp.Diff(want, file.Characters); diff != "" {
		t.Fatalf("unexpected characters (-want +got):\n%s", diff)
	}
	if len(file.Pages) != 3 || len(file.Runs) != 2 {
		t.Fatalf("expected 3 pages and 2 runs, got %d and %d", len(file.Pages), len(file.Runs))
	}
}

func TestLoadIsIdempotentForPagesAndCharacters(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fx := setupFixture(t)

	file, err := Parse(strings.NewReader(sampleSeed))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	first, err := fx.loader.Load(ctx, file)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	want := Result{CharactersCreated: 3, PagesCreated: 3, RunsCreated: 2}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Fatalf("unexpected first result (-want +got):\n%s", diff)
	}

	second, err := fx.loader.Load(ctx, file)
	if err != nil {
		t.Fatalf("second Load returned error: %v", err)
	}
	if second.CharactersCreated != 0 || second.PagesCreated != 0 || second.PagesSkipped != 3 {
		t.Fatalf("expected second load to skip existing rows, got %#v", second)
	}

	page, err := fx.pages.GetPageByTitle(ctx, "Alucard Any% NSC")
	if err != nil {
		t.Fatalf("GetPageByTitle returned error: %v", err)
	}
	if page.GeneralCharacter == nil || page.GeneralCharacter.Name != "Alucard" {
		t.Fatalf("expected page linked to Alucard, got %#v", page.GeneralCharacter)
	}

	maria, err := fx.pages.GetPageByTitle(ctx, "Maria")
	if err != nil {
		t.Fatalf("GetPageByTitle returned error: %v", err)
	}
	if maria.Content != wiki.DefaultPageContent {
		t.Fatalf("expected placeholder content, got %q", maria.Content)
	}

	archived, err := fx.runs.GetRunsInCategory(ctx, "CvsAlucardAnyNSC")
	if err != nil {
		t.Fatalf("GetRunsInCategory returned error: %v", err)
	}
	if len(archived) != 2 {
		t.Fatalf("expected runs to be added on every load, got %d", len(archived))
	}
	wantDate := time.Date(2009, time.June, 1, 0, 0, 0, 0, time.UTC)
	if !archived[0].SubmittedOn.Equal(wantDate) || archived[0].Time != 17*time.Minute+42*time.Second {
		t.Fatalf("unexpected archived run %#v", archived[0])
	}
}

func TestLoadRejectsInvalidRun(t *testing.T) {
	t.Parallel()

	fx := setupFixture(t)

	file := &File{Runs: []RunSeed{{Category: "RichterAny", Time: "fast", Runner: "x"}}}
	if _, err := fx.loader.Load(context.Background(), file); err == nil {
		t.Fatalf("expected error for invalid duration")
	}

	file = &File{Runs: []RunSeed{{Category: "Maria", Time: "5m", Runner: "x"}}}
	if _, err := fx.loader.Load(context.Background(), file); err == nil {
		t.Fatalf("expected error for unknown category")
	}
}
