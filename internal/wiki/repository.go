package wiki

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PageRepository defines persistence operations for wiki pages.
type PageRepository interface {
	GetByTitle(ctx context.Context, title string) (*Page, error)
	FindPages(ctx context.Context, substring string) ([]Page, error)
	ListPages(ctx context.Context) ([]Page, error)
	CountPages(ctx context.Context) (int64, error)
	Create(ctx context.Context, page *Page) error
	Update(ctx context.Context, page *Page) error
}

// SubmissionRepository defines persistence operations for page content submissions.
type SubmissionRepository interface {
	Add(ctx context.Context, submission *PageContentSubmission) error
	Update(ctx context.Context, submission *PageContentSubmission) error
	Delete(ctx context.Context, submission *PageContentSubmission) error
	GetByID(ctx context.Context, id uuid.UUID) (*PageContentSubmission, error)
	ListHistory(ctx context.Context, pageID uint) ([]PageContentSubmission, error)
}

// CharacterRepository defines persistence operations for characters.
type CharacterRepository interface {
	GetByID(ctx context.Context, id uint) (*Character, error)
	GetByName(ctx context.Context, name string) (*Character, error)
	Create(ctx context.Context, character *Character) error
}

// GormRepository persists pages, submissions and characters using a Gorm connection.
// Bound to a transaction it serves as the unit of work's repository set.
type GormRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewRepository constructs a Gorm-backed repository implementation.
func NewRepository(db *gorm.DB, logger *logrus.Logger) (*GormRepository, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &GormRepository{db: db, logger: logger}, nil
}

// Pages returns the page repository view.
func (r *GormRepository) Pages() PageRepository {
	return &gormPageRepository{r}
}

// Submissions returns the submission repository view.
func (r *GormRepository) Submissions() SubmissionRepository {
	return &gormSubmissionRepository{r}
}

// Characters returns the character repository view.
func (r *GormRepository) Characters() CharacterRepository {
	return &gormCharacterRepository{r}
}

type gormPageRepository struct{ *GormRepository }

type gormSubmissionRepository struct{ *GormRepository }

type gormCharacterRepository struct{ *GormRepository }

var (
	_ PageRepository       = (*gormPageRepository)(nil)
	_ SubmissionRepository = (*gormSubmissionRepository)(nil)
	_ CharacterRepository  = (*gormCharacterRepository)(nil)
)

func orderByCreated(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC")
}

// GetByTitle returns the page with its character and pending submissions, or nil when not found.
func (r *gormPageRepository) GetByTitle(ctx context.Context, title string) (*Page, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return nil, eris.Wrap(ErrInvalidArgument, "title is required")
	}

	var page Page
	err := r.db.WithContext(ctx).
		Preload("GeneralCharacter").
		Preload("Pending", orderByCreated).
		First(&page, "title = ?", trimmed).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"title": trimmed}, err, "fetching page by title")
		return nil, eris.Wrapf(err, "fetching page by title: %s", trimmed)
	}

	return &page, nil
}

// FindPages returns pages whose title contains substring, ignoring ASCII case.
// An empty substring matches every page.
func (r *gormPageRepository) FindPages(ctx context.Context, substring string) ([]Page, error) {
	var pages []Page

	pattern := "%" + escapeLike(strings.TrimSpace(substring)) + "%"
	err := r.db.WithContext(ctx).
		Where(`title LIKE ? ESCAPE '\'`, pattern).
		Order("title ASC").
		Find(&pages).Error
	if err != nil {
		r.logError(logrus.Fields{"substring": substring}, err, "finding pages")
		return nil, eris.Wrapf(err, "finding pages matching: %s", substring)
	}

	return pages, nil
}

// ListPages returns every page ordered by title.
func (r *gormPageRepository) ListPages(ctx context.Context) ([]Page, error) {
	var pages []Page

	if err := r.db.WithContext(ctx).Order("title ASC").Find(&pages).Error; err != nil {
		r.logError(nil, err, "listing pages")
		return nil, eris.Wrap(err, "listing pages")
	}

	return pages, nil
}

// CountPages returns the number of stored pages.
func (r *gormPageRepository) CountPages(ctx context.Context) (int64, error) {
	var count int64

	if err := r.db.WithContext(ctx).Model(&Page{}).Count(&count).Error; err != nil {
		r.logError(nil, err, "counting pages")
		return 0, eris.Wrap(err, "counting pages")
	}

	return count, nil
}

// Create inserts a new page. Associations are not written.
func (r *gormPageRepository) Create(ctx context.Context, page *Page) error {
	if page == nil {
		return eris.New("page is nil")
	}

	page.Title = strings.TrimSpace(page.Title)
	if page.Title == "" {
		return eris.Wrap(ErrInvalidArgument, "title is required")
	}

	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(page).Error; err != nil {
		if eris.Is(err, gorm.ErrDuplicatedKey) {
			return eris.Wrapf(ErrDuplicateTitle, "creating page: %s", page.Title)
		}
		r.logError(logrus.Fields{"title": page.Title}, err, "creating page")
		return eris.Wrapf(err, "creating page: %s", page.Title)
	}

	return nil
}

// Update writes every column of an existing page. Associations are not written.
func (r *gormPageRepository) Update(ctx context.Context, page *Page) error {
	if page == nil {
		return eris.New("page is nil")
	}
	if page.ID == 0 {
		return eris.New("page id is required for update")
	}

	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(page).Error; err != nil {
		r.logError(logrus.Fields{"title": page.Title}, err, "updating page")
		return eris.Wrapf(err, "updating page: %s", page.Title)
	}

	return nil
}

// Add inserts a new submission.
func (r *gormSubmissionRepository) Add(ctx context.Context, submission *PageContentSubmission) error {
	if submission == nil {
		return eris.New("submission is nil")
	}

	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(submission).Error; err != nil {
		r.logError(logrus.Fields{"submission_id": submission.ID.String()}, err, "adding submission")
		return eris.Wrap(err, "adding submission")
	}

	return nil
}

// Update writes every column of an existing submission, including cleared foreign keys.
func (r *gormSubmissionRepository) Update(ctx context.Context, submission *PageContentSubmission) error {
	if submission == nil {
		return eris.New("submission is nil")
	}
	if submission.ID == uuid.Nil {
		return eris.New("submission id is required for update")
	}

	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(submission).Error; err != nil {
		r.logError(logrus.Fields{"submission_id": submission.ID.String()}, err, "updating submission")
		return eris.Wrapf(err, "updating submission: %s", submission.ID)
	}

	return nil
}

// Delete removes the submission row. Deleting a missing row returns ErrSubmissionNotFound.
func (r *gormSubmissionRepository) Delete(ctx context.Context, submission *PageContentSubmission) error {
	if submission == nil {
		return eris.New("submission is nil")
	}

	result := r.db.WithContext(ctx).Delete(&PageContentSubmission{}, "id = ?", submission.ID)
	if result.Error != nil {
		r.logError(logrus.Fields{"submission_id": submission.ID.String()}, result.Error, "deleting submission")
		return eris.Wrapf(result.Error, "deleting submission: %s", submission.ID)
	}
	if result.RowsAffected == 0 {
		return eris.Wrapf(ErrSubmissionNotFound, "deleting submission: %s", submission.ID)
	}

	return nil
}

// GetByID returns the submission or nil when not found.
func (r *gormSubmissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*PageContentSubmission, error) {
	var submission PageContentSubmission

	err := r.db.WithContext(ctx).First(&submission, "id = ?", id).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"submission_id": id.String()}, err, "fetching submission")
		return nil, eris.Wrapf(err, "fetching submission: %s", id)
	}

	return &submission, nil
}

// ListHistory returns the page's archived revisions, oldest first.
func (r *gormSubmissionRepository) ListHistory(ctx context.Context, pageID uint) ([]PageContentSubmission, error) {
	var history []PageContentSubmission

	err := r.db.WithContext(ctx).
		Where("page_history_id = ?", pageID).
		Order("created_at ASC").
		Find(&history).Error
	if err != nil {
		r.logError(logrus.Fields{"page_id": pageID}, err, "listing page history")
		return nil, eris.Wrapf(err, "listing history of page %d", pageID)
	}

	return history, nil
}

// GetByID returns the character or nil when not found.
func (r *gormCharacterRepository) GetByID(ctx context.Context, id uint) (*Character, error) {
	var character Character

	err := r.db.WithContext(ctx).First(&character, id).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"character_id": id}, err, "fetching character")
		return nil, eris.Wrapf(err, "fetching character: %d", id)
	}

	return &character, nil
}

// GetByName returns the character or nil when not found.
func (r *gormCharacterRepository) GetByName(ctx context.Context, name string) (*Character, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, eris.Wrap(ErrInvalidArgument, "name is required")
	}

	var character Character

	err := r.db.WithContext(ctx).First(&character, "name = ?", trimmed).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"character": trimmed}, err, "fetching character by name")
		return nil, eris.Wrapf(err, "fetching character by name: %s", trimmed)
	}

	return &character, nil
}

// Create inserts a new character.
func (r *gormCharacterRepository) Create(ctx context.Context, character *Character) error {
	if character == nil {
		return eris.New("character is nil")
	}

	character.Name = strings.TrimSpace(character.Name)
	if character.Name == "" {
		return eris.Wrap(ErrInvalidArgument, "name is required")
	}

	if err := r.db.WithContext(ctx).Create(character).Error; err != nil {
		r.logError(logrus.Fields{"character": character.Name}, err, "creating character")
		return eris.Wrapf(err, "creating character: %s", character.Name)
	}

	return nil
}

func (r *GormRepository) logError(fields logrus.Fields, err error, message string) {
	if r.logger == nil {
		return
	}

	entry := r.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
