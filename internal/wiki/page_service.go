package wiki

import (
	"context"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// DefaultPageContent is stored for pages created without content.
const DefaultPageContent = `# This page is empty

There is currently no content in this page. Use the edit page button to edit and submit new content. Please adhere to the site templates.

This wiki uses Markdown, for reference visit [CommonMark](https://commonmark.org/help/).
`

// ErrCharacterNotFound is returned when a page references an unknown character.
var ErrCharacterNotFound = eris.New("character not found")

// PageService provides lookups and creation of wiki pages.
type PageService interface {
	GetPageByTitle(ctx context.Context, title string) (*Page, error)
	FindPages(ctx context.Context, substring string) ([]Page, error)
	ListPages(ctx context.Context) ([]Page, error)
	CountPages(ctx context.Context) (int64, error)
	CreatePage(ctx context.Context, input CreatePageInput) (*Page, error)
	GetHistory(ctx context.Context, title string) ([]PageContentSubmission, error)
}

// CreatePageInput describes a new page.
type CreatePageInput struct {
	CharacterID *uint
	Title       string
	Content     string
	IsPublished bool
}

type pageService struct {
	reporter
	pages       PageRepository
	submissions SubmissionRepository
	unitOfWork  UnitOfWorkFactory
}

var _ PageService = (*pageService)(nil)

// NewPageService wires the page service with its dependencies.
func NewPageService(pages PageRepository, submissions SubmissionRepository, unitOfWork UnitOfWorkFactory, logger *logrus.Logger, hub *sentry.Hub) (PageService, error) {
	if pages == nil {
		return nil, eris.New("page repository is required")
	}
	if submissions == nil {
		return nil, eris.New("submission repository is required")
	}
	if unitOfWork == nil {
		return nil, eris.New("unit of work factory is required")
	}

	return &pageService{
		reporter:    reporter{logger: logger, hub: hub, component: "wiki.pages"},
		pages:       pages,
		submissions: submissions,
		unitOfWork:  unitOfWork,
	}, nil
}

// GetPageByTitle returns the page with its pending submissions or ErrPageNotFound.
func (s *pageService) GetPageByTitle(ctx context.Context, title string) (*Page, error) {
	if err := requireArgument("title", title); err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(title)
	page, err := s.pages.GetByTitle(ctx, trimmed)
	if err != nil {
		s.recordError(logrus.Fields{"title": trimmed}, err, "retrieving page")
		return nil, eris.Wrapf(err, "retrieving page: %s", trimmed)
	}
	if page == nil {
		return nil, eris.Wrapf(ErrPageNotFound, "retrieving page: %s", trimmed)
	}

	return page, nil
}

func (s *pageService) FindPages(ctx context.Context, substring string) ([]Page, error) {
	pages, err := s.pages.FindPages(ctx, substring)
	if err != nil {
		s.recordError(logrus.Fields{"substring": substring}, err, "finding pages")
		return nil, eris.Wrap(err, "finding pages")
	}

	return pages, nil
}

func (s *pageService) ListPages(ctx context.Context) ([]Page, error) {
	pages, err := s.pages.ListPages(ctx)
	if err != nil {
		s.recordError(nil, err, "listing pages")
		return nil, eris.Wrap(err, "listing pages")
	}

	return pages, nil
}

func (s *pageService) CountPages(ctx context.Context) (int64, error) {
	count, err := s.pages.CountPages(ctx)
	if err != nil {
		s.recordError(nil, err, "counting pages")
		return 0, eris.Wrap(err, "counting pages")
	}

	return count, nil
}

func (s *pageService) CreatePage(ctx context.Context, input CreatePageInput) (*Page, error) {
	if err := requireArgument("title", input.Title); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	content := input.Content
	if strings.TrimSpace(content) == "" {
		content = DefaultPageContent
	}

	uow, err := s.unitOfWork(ctx)
	if err != nil {
		s.recordError(logrus.Fields{"title": title}, err, "starting unit of work")
		return nil, eris.Wrap(err, "starting unit of work")
	}
	defer s.rollback(uow)

	existing, err := uow.Pages().GetByTitle(ctx, title)
	if err != nil {
		s.recordError(logrus.Fields{"title": title}, err, "checking for existing page")
		return nil, eris.Wrapf(err, "checking for existing page: %s", title)
	}
	if existing != nil {
		return nil, eris.Wrapf(ErrDuplicateTitle, "creating page: %s", title)
	}

	page := &Page{
		Title:       title,
		Content:     content,
		IsPublished: input.IsPublished,
	}

	if input.CharacterID != nil {
		character, err := uow.Characters().GetByID(ctx, *input.CharacterID)
		if err != nil {
			s.recordError(logrus.Fields{"character_id": *input.CharacterID}, err, "resolving page character")
			return nil, eris.Wrap(err, "resolving page character")
		}
		if character == nil {
			return nil, eris.Wrapf(ErrCharacterNotFound, "resolving character %d", *input.CharacterID)
		}
		page.GeneralCharacterID = &character.ID
		page.GeneralCharacter = character
	}

	if err := uow.Pages().Create(ctx, page); err != nil {
		s.recordError(logrus.Fields{"title": title}, err, "creating page")
		return nil, eris.Wrapf(err, "creating page: %s", title)
	}

	if err := uow.Commit(); err != nil {
		s.recordError(logrus.Fields{"title": title}, err, "committing page creation")
		return nil, eris.Wrap(err, "committing page creation")
	}

	s.logInfo(logrus.Fields{"title": title, "page_id": page.ID}, "page created")
	return page, nil
}

// GetHistory returns the archived revisions of the titled page, oldest first.
func (s *pageService) GetHistory(ctx context.Context, title string) ([]PageContentSubmission, error) {
	page, err := s.GetPageByTitle(ctx, title)
	if err != nil {
		return nil, err
	}

	history, err := s.submissions.ListHistory(ctx, page.ID)
	if err != nil {
		s.recordError(logrus.Fields{"title": page.Title}, err, "listing page history")
		return nil, eris.Wrapf(err, "listing page history: %s", page.Title)
	}

	return history, nil
}
