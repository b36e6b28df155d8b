package wiki

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

func TestNewRepositoryRequiresDatabase(t *testing.T) {
	t.Parallel()

	if _, err := NewRepository(nil, nil); err == nil {
		t.Fatalf("expected error when database is nil")
	}
}

func TestGetByTitleReturnsNilForMissingPage(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)

	page, err := repo.Pages().GetByTitle(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetByTitle returned error: %v", err)
	}
	if page != nil {
		t.Fatalf("expected nil page for missing title, got %#v", page)
	}
}

func TestCreatePageRoundTrip(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	ctx := context.Background()

	original := &Page{Title: " Alucard ", Content: "Son of Dracula."}
	if err := repo.Pages().Create(ctx, original); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if original.Title != "Alucard" {
		t.Fatalf("expected title trimmed to 'Alucard', got %q", original.Title)
	}

	stored, err := repo.Pages().GetByTitle(ctx, "Alucard")
	if err != nil {
		t.Fatalf("GetByTitle returned error: %v", err)
	}
	if stored == nil {
		t.Fatalf("expected stored page to be present")
	}
	if stored.Content != "Son of Dracula." {
		t.Fatalf("expected content to be preserved, got %q", stored.Content)
	}
	if stored.LastEdit != nil {
		t.Fatalf("expected new page to have no last edit, got %v", stored.LastEdit)
	}
}

func TestCreatePageRejectsDuplicateTitle(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	mustCreatePage(t, repo, "Main Page", "first")

	err := repo.Pages().Create(context.Background(), &Page{Title: "Main Page", Content: "second"})
	if !eris.Is(err, ErrDuplicateTitle) {
		t.Fatalf("expected ErrDuplicateTitle, got %v", err)
	}
}

func TestListPagesReturnsAlphabeticalOrder(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	ctx := context.Background()

	for _, title := range []string{"Zombie", "Alucard", "Maria"} {
		mustCreatePage(t, repo, title, "content")
	}

	listed, err := repo.Pages().ListPages(ctx)
	if err != nil {
		t.Fatalf("ListPages returned error: %v", err)
	}

	expectedOrder := []string{"Alucard", "Maria", "Zombie"}
	if len(listed) != len(expectedOrder) {
		t.Fatalf("expected %d pages, got %d", len(expectedOrder), len(listed))
	}

	for idx, title := range expectedOrder {
		if listed[idx].Title != title {
			t.Fatalf("expected title %q at index %d, got %q", title, idx, listed[idx].Title)
		}
	}

	count, err := repo.Pages().CountPages(ctx)
	if err != nil {
		t.Fatalf("CountPages returned error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 pages, got %d", count)
	}
}

func TestFindPagesMatchesSubstring(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	ctx := context.Background()

	expected := mustCreatePage(t, repo, "mayhem", "cntnt")
	mustCreatePage(t, repo, "pagea", "cntnta")
	mustCreatePage(t, repo, "page", "cntnt")

	result, err := repo.Pages().FindPages(ctx, "mayhem")
	if err != nil {
		t.Fatalf("FindPages returned error: %v", err)
	}
	if len(result) != 1 || result[0].ID != expected.ID {
		t.Fatalf("expected only the mayhem page, got %#v", result)
	}

	result, err = repo.Pages().FindPages(ctx, "PAG")
	if err != nil {
		t.Fatalf("FindPages returned error: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected case-insensitive match on 2 pages, got %d", len(result))
	}
	if result[0].Title != "page" || result[1].Title != "pagea" {
		t.Fatalf("expected results ordered by title, got %q, %q", result[0].Title, result[1].Title)
	}
}

func TestFindPagesTreatsWildcardsLiterally(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	ctx := context.Background()

	mustCreatePage(t, repo, "100% Run", "content")
	mustCreatePage(t, repo, "Any Run", "content")

	result, err := repo.Pages().FindPages(ctx, "%")
	if err != nil {
		t.Fatalf("FindPages returned error: %v", err)
	}
	if len(result) != 1 || result[0].Title != "100% Run" {
		t.Fatalf("expected percent sign to match literally, got %#v", result)
	}
}

func TestSubmissionLifecycleInRepository(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	ctx := context.Background()
	page := mustCreatePage(t, repo, "Richter", "Vampire hunter.")

	pageID := page.ID
	submission := &PageContentSubmission{Content: "Belmont clan.", PageEditID: &pageID}
	if err := repo.Submissions().Add(ctx, submission); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if submission.ID == uuid.Nil {
		t.Fatalf("expected submission id to be assigned")
	}

	stored, err := repo.Submissions().GetByID(ctx, submission.ID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if stored == nil || !stored.IsPending() {
		t.Fatalf("expected stored pending submission, got %#v", stored)
	}

	reloaded, err := repo.Pages().GetByTitle(ctx, "Richter")
	if err != nil {
		t.Fatalf("GetByTitle returned error: %v", err)
	}
	if len(reloaded.Pending) != 1 || reloaded.Pending[0].ID != submission.ID {
		t.Fatalf("expected page to preload its pending submission, got %#v", reloaded.Pending)
	}

	stored.archive(reloaded, reloaded.Content)
	if err := repo.Submissions().Update(ctx, stored); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	archived, err := repo.Pages().GetByTitle(ctx, "Richter")
	if err != nil {
		t.Fatalf("GetByTitle returned error: %v", err)
	}
	if len(archived.Pending) != 0 {
		t.Fatalf("expected no pending submissions after archive, got %d", len(archived.Pending))
	}

	history, err := repo.Submissions().ListHistory(ctx, page.ID)
	if err != nil {
		t.Fatalf("ListHistory returned error: %v", err)
	}
	if len(history) != 1 || history[0].Content != "Vampire hunter." || !history[0].IsArchived() {
		t.Fatalf("expected archived revision holding the previous content, got %#v", history)
	}

	if err := repo.Submissions().Delete(ctx, stored); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if err := repo.Submissions().Delete(ctx, stored); !eris.Is(err, ErrSubmissionNotFound) {
		t.Fatalf("expected ErrSubmissionNotFound on second delete, got %v", err)
	}
}

func TestCharacterRepositoryRoundTrip(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	ctx := context.Background()

	character := &Character{Name: " Alucard "}
	if err := repo.Characters().Create(ctx, character); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	byName, err := repo.Characters().GetByName(ctx, "Alucard")
	if err != nil {
		t.Fatalf("GetByName returned error: %v", err)
	}
	if byName == nil || byName.ID != character.ID {
		t.Fatalf("expected character by name, got %#v", byName)
	}

	missing, err := repo.Characters().GetByID(ctx, character.ID+100)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing character, got %#v", missing)
	}
}
