package wiki

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"sotnwiki/app/internal/db"
)

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setupDatabase(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "wiki.db")
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

	return gormDB
}

func setupRepository(t *testing.T) (*GormRepository, *gorm.DB) {
	t.Helper()

	gormDB := setupDatabase(t)

	repo, err := NewRepository(gormDB, silentLogger())
	if err != nil {
		t.Fatalf("NewRepository returned error: %v", err)
	}

	return repo, gormDB
}

func mustCreatePage(t *testing.T, repo *GormRepository, title, content string) *Page {
	t.Helper()

	page := &Page{Title: title, Content: content, IsPublished: true}
	if err := repo.Pages().Create(context.Background(), page); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	return page
}

// memoryStore backs the stub repositories and counts every persistence access.
type memoryStore struct {
	pages       map[string]*Page
	submissions map[uuid.UUID]*PageContentSubmission
	accesses    int
	adds        []*PageContentSubmission
	pageUpdates int
	subUpdates  int
	deletes     int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		pages:       map[string]*Page{},
		submissions: map[uuid.UUID]*PageContentSubmission{},
	}
}

func (m *memoryStore) addPage(page *Page) *Page {
	if page.ID == 0 {
		page.ID = uint(len(m.pages) + 1)
	}
	m.pages[page.Title] = page
	return page
}

type stubPageRepository struct{ store *memoryStore }

func (r *stubPageRepository) GetByTitle(_ context.Context, title string) (*Page, error) {
	r.store.accesses++
	page, ok := r.store.pages[title]
	if !ok {
		return nil, nil
	}
	return page, nil
}

func (r *stubPageRepository) FindPages(_ context.Context, substring string) ([]Page, error) {
	r.store.accesses++
	var pages []Page
	for title, page := range r.store.pages {
		if strings.Contains(title, substring) {
			pages = append(pages, *page)
		}
	}
	return pages, nil
}

func (r *stubPageRepository) ListPages(_ context.Context) ([]Page, error) {
	r.store.accesses++
	var pages []Page
	for _, page := range r.store.pages {
		pages = append(pages, *page)
	}
	return pages, nil
}

func (r *stubPageRepository) CountPages(_ context.Context) (int64, error) {
	r.store.accesses++
	return int64(len(r.store.pages)), nil
}

func (r *stubPageRepository) Create(_ context.Context, page *Page) error {
	r.store.accesses++
	r.store.addPage(page)
	return nil
}

func (r *stubPageRepository) Update(_ context.Context, page *Page) error {
	r.store.accesses++
	r.store.pageUpdates++
	r.store.pages[page.Title] = page
	return nil
}

type stubSubmissionRepository struct{ store *memoryStore }

func (r *stubSubmissionRepository) Add(_ context.Context, submission *PageContentSubmission) error {
	r.store.accesses++
	if submission.ID == uuid.Nil {
		submission.ID = uuid.New()
	}
	r.store.submissions[submission.ID] = submission
	r.store.adds = append(r.store.adds, submission)
	return nil
}

func (r *stubSubmissionRepository) Update(_ context.Context, submission *PageContentSubmission) error {
	r.store.accesses++
	r.store.subUpdates++
	r.store.submissions[submission.ID] = submission
	return nil
}

func (r *stubSubmissionRepository) Delete(_ context.Context, submission *PageContentSubmission) error {
	r.store.accesses++
	r.store.deletes++
	delete(r.store.submissions, submission.ID)
	return nil
}

func (r *stubSubmissionRepository) GetByID(_ context.Context, id uuid.UUID) (*PageContentSubmission, error) {
	r.store.accesses++
	submission, ok := r.store.submissions[id]
	if !ok {
		return nil, nil
	}
	return submission, nil
}

func (r *stubSubmissionRepository) ListHistory(_ context.Context, pageID uint) ([]PageContentSubmission, error) {
	r.store.accesses++
	var result []PageContentSubmission
	for _, submission := range r.store.submissions {
		if submission.PageHistoryID != nil && *submission.PageHistoryID == pageID {
			result = append(result, *submission)
		}
	}
	return result, nil
}

type stubCharacterRepository struct{ store *memoryStore }

func (r *stubCharacterRepository) GetByID(_ context.Context, _ uint) (*Character, error) {
	r.store.accesses++
	return nil, nil
}

func (r *stubCharacterRepository) GetByName(_ context.Context, _ string) (*Character, error) {
	r.store.accesses++
	return nil, nil
}

func (r *stubCharacterRepository) Create(_ context.Context, _ *Character) error {
	r.store.accesses++
	return nil
}

type stubUnitOfWork struct {
	store     *memoryStore
	commits   int
	rollbacks int
	commitErr error
}

func (u *stubUnitOfWork) Pages() PageRepository {
	return &stubPageRepository{u.store}
}

func (u *stubUnitOfWork) Submissions() SubmissionRepository {
	return &stubSubmissionRepository{u.store}
}

func (u *stubUnitOfWork) Characters() CharacterRepository {
	return &stubCharacterRepository{u.store}
}

func (u *stubUnitOfWork) Commit() error {
	if u.commitErr != nil {
		return u.commitErr
	}
	u.commits++
	return nil
}

func (u *stubUnitOfWork) Rollback() error {
	u.rollbacks++
	return nil
}

// stubWorkflow wires a submission service over the memory store and records every
// unit of work it hands out.
type stubWorkflow struct {
	store     *memoryStore
	begun     []*stubUnitOfWork
	commitErr error
	service   ContentSubmissionService
}

func newStubWorkflow(t *testing.T) *stubWorkflow {
	t.Helper()

	w := &stubWorkflow{store: newMemoryStore()}
	factory := func(context.Context) (UnitOfWork, error) {
		uow := &stubUnitOfWork{store: w.store, commitErr: w.commitErr}
		w.begun = append(w.begun, uow)
		return uow, nil
	}

	pages, err := NewPageService(&stubPageRepository{w.store}, &stubSubmissionRepository{w.store}, factory, silentLogger(), nil)
	if err != nil {
		t.Fatalf("NewPageService returned error: %v", err)
	}

	service, err := NewContentSubmissionService(&stubSubmissionRepository{w.store}, pages, factory, silentLogger(), nil)
	if err != nil {
		t.Fatalf("NewContentSubmissionService returned error: %v", err)
	}
	w.service = service

	return w
}

func (w *stubWorkflow) commits() int {
	total := 0
	for _, uow := range w.begun {
		total += uow.commits
	}
	return total
}

var (
	_ PageRepository       = (*stubPageRepository)(nil)
	_ SubmissionRepository = (*stubSubmissionRepository)(nil)
	_ CharacterRepository  = (*stubCharacterRepository)(nil)
	_ UnitOfWork           = (*stubUnitOfWork)(nil)
)
