package wiki

import (
	"context"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// ContentSubmissionService runs the edit review workflow: editors submit content
// against a page, reviewers publish or dismiss it. Publishing swaps the page's live
// content and keeps the previous text as a history record.
type ContentSubmissionService interface {
	SubmitEdit(ctx context.Context, content, title string) (*PageContentSubmission, error)
	PublishEdit(ctx context.Context, title, content string, id uuid.UUID) error
	SubmitAndPublishEdit(ctx context.Context, content, title string) (*PageContentSubmission, error)
	DismissEdit(ctx context.Context, id uuid.UUID) error
	GetPageContentSubmissionByID(ctx context.Context, id uuid.UUID) (*PageContentSubmission, error)
	GetSubmissions(ctx context.Context, title string) ([]PageContentSubmission, error)
}

type contentSubmissionService struct {
	reporter
	submissions SubmissionRepository
	pageService PageService
	unitOfWork  UnitOfWorkFactory
	now         func() time.Time
}

var _ ContentSubmissionService = (*contentSubmissionService)(nil)

// NewContentSubmissionService wires the submission workflow with its dependencies.
func NewContentSubmissionService(submissions SubmissionRepository, pageService PageService, unitOfWork UnitOfWorkFactory, logger *logrus.Logger, hub *sentry.Hub) (ContentSubmissionService, error) {
	if submissions == nil {
		return nil, eris.New("submission repository is required")
	}
	if pageService == nil {
		return nil, eris.New("page service is required")
	}
	if unitOfWork == nil {
		return nil, eris.New("unit of work factory is required")
	}

	return &contentSubmissionService{
		reporter:    reporter{logger: logger, hub: hub, component: "wiki.submissions"},
		submissions: submissions,
		pageService: pageService,
		unitOfWork:  unitOfWork,
		now:         time.Now,
	}, nil
}

// SubmitEdit stores content as a pending edit of the titled page.
func (s *contentSubmissionService) SubmitEdit(ctx context.Context, content, title string) (*PageContentSubmission, error) {
	if err := requireArgument("title", title); err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)

	uow, err := s.begin(ctx, title)
	if err != nil {
		return nil, err
	}
	defer s.rollback(uow)

	page, err := s.resolvePage(ctx, uow, title)
	if err != nil {
		return nil, err
	}

	pageID := page.ID
	submission := &PageContentSubmission{
		Content:    content,
		PageEditID: &pageID,
		PageEdit:   page,
	}

	if err := uow.Submissions().Add(ctx, submission); err != nil {
		s.recordError(logrus.Fields{"title": title}, err, "adding submission")
		return nil, eris.Wrapf(err, "submitting edit for page: %s", title)
	}

	if err := s.commit(uow, title); err != nil {
		return nil, err
	}

	s.logInfo(logrus.Fields{"title": title, "submission_id": submission.ID.String()}, "edit submitted")
	return submission, nil
}

// PublishEdit publishes the pending submission id as the titled page's new content.
func (s *contentSubmissionService) PublishEdit(ctx context.Context, title, content string, id uuid.UUID) error {
	if err := requireArgument("title", title); err != nil {
		return err
	}
	if err := requireArgument("content", content); err != nil {
		return err
	}

	title = strings.TrimSpace(title)

	uow, err := s.begin(ctx, title)
	if err != nil {
		return err
	}
	defer s.rollback(uow)

	submission, err := uow.Submissions().GetByID(ctx, id)
	if err != nil {
		s.recordError(logrus.Fields{"submission_id": id.String()}, err, "retrieving submission")
		return eris.Wrapf(err, "retrieving submission: %s", id)
	}
	if submission == nil {
		return eris.Wrapf(ErrSubmissionNotFound, "publishing submission: %s", id)
	}

	page, err := s.resolvePage(ctx, uow, title)
	if err != nil {
		return err
	}

	if !submission.IsPending() || *submission.PageEditID != page.ID {
		return eris.Wrapf(ErrSubmissionNotPending, "publishing submission %s to page %s", id, title)
	}

	s.publish(page, submission, content)

	if err := uow.Pages().Update(ctx, page); err != nil {
		s.recordError(logrus.Fields{"title": title}, err, "updating published page")
		return eris.Wrapf(err, "updating published page: %s", title)
	}

	if err := uow.Submissions().Update(ctx, submission); err != nil {
		s.recordError(logrus.Fields{"submission_id": id.String()}, err, "archiving submission")
		return eris.Wrapf(err, "archiving submission: %s", id)
	}

	if err := s.commit(uow, title); err != nil {
		return err
	}

	s.logInfo(logrus.Fields{"title": title, "submission_id": id.String()}, "edit published")
	return nil
}

// SubmitAndPublishEdit replaces the titled page's content directly and returns the
// history record holding the previous content.
func (s *contentSubmissionService) SubmitAndPublishEdit(ctx context.Context, content, title string) (*PageContentSubmission, error) {
	if err := requireArgument("title", title); err != nil {
		return nil, err
	}
	if err := requireArgument("content", content); err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)

	uow, err := s.begin(ctx, title)
	if err != nil {
		return nil, err
	}
	defer s.rollback(uow)

	page, err := s.resolvePage(ctx, uow, title)
	if err != nil {
		return nil, err
	}

	submission := &PageContentSubmission{}
	s.publish(page, submission, content)

	if err := uow.Pages().Update(ctx, page); err != nil {
		s.recordError(logrus.Fields{"title": title}, err, "updating published page")
		return nil, eris.Wrapf(err, "updating published page: %s", title)
	}

	if err := uow.Submissions().Add(ctx, submission); err != nil {
		s.recordError(logrus.Fields{"title": title}, err, "adding history record")
		return nil, eris.Wrapf(err, "adding history record for page: %s", title)
	}

	if err := s.commit(uow, title); err != nil {
		return nil, err
	}

	s.logInfo(logrus.Fields{"title": title, "submission_id": submission.ID.String()}, "edit submitted and published")
	return submission, nil
}

// DismissEdit deletes the submission. A second call for the same id fails with ErrSubmissionNotFound.
func (s *contentSubmissionService) DismissEdit(ctx context.Context, id uuid.UUID) error {
	uow, err := s.begin(ctx, "")
	if err != nil {
		return err
	}
	defer s.rollback(uow)

	submission, err := uow.Submissions().GetByID(ctx, id)
	if err != nil {
		s.recordError(logrus.Fields{"submission_id": id.String()}, err, "retrieving submission")
		return eris.Wrapf(err, "retrieving submission: %s", id)
	}
	if submission == nil {
		return eris.Wrapf(ErrSubmissionNotFound, "dismissing submission: %s", id)
	}

	if err := uow.Submissions().Delete(ctx, submission); err != nil {
		s.recordError(logrus.Fields{"submission_id": id.String()}, err, "deleting submission")
		return eris.Wrapf(err, "dismissing submission: %s", id)
	}

	if err := s.commit(uow, ""); err != nil {
		return err
	}

	s.logInfo(logrus.Fields{"submission_id": id.String()}, "edit dismissed")
	return nil
}

func (s *contentSubmissionService) GetPageContentSubmissionByID(ctx context.Context, id uuid.UUID) (*PageContentSubmission, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		s.recordError(logrus.Fields{"submission_id": id.String()}, err, "retrieving submission")
		return nil, eris.Wrapf(err, "retrieving submission: %s", id)
	}
	if submission == nil {
		return nil, eris.Wrapf(ErrSubmissionNotFound, "retrieving submission: %s", id)
	}

	return submission, nil
}

// GetSubmissions returns the pending submissions of the titled page.
func (s *contentSubmissionService) GetSubmissions(ctx context.Context, title string) ([]PageContentSubmission, error) {
	if err := requireArgument("title", title); err != nil {
		return nil, err
	}

	page, err := s.pageService.GetPageByTitle(ctx, title)
	if err != nil {
		return nil, err
	}

	return page.Pending, nil
}

// publish archives the page's current content into submission and makes content live.
func (s *contentSubmissionService) publish(page *Page, submission *PageContentSubmission, content string) {
	submission.archive(page, page.Content)

	editedAt := s.now()
	page.Content = content
	page.LastEdit = &editedAt
}

func (s *contentSubmissionService) resolvePage(ctx context.Context, uow UnitOfWork, title string) (*Page, error) {
	page, err := uow.Pages().GetByTitle(ctx, title)
	if err != nil {
		s.recordError(logrus.Fields{"title": title}, err, "retrieving page")
		return nil, eris.Wrapf(err, "retrieving page: %s", title)
	}
	if page == nil {
		return nil, eris.Wrapf(ErrPageNotFound, "retrieving page: %s", title)
	}

	return page, nil
}

func (s *contentSubmissionService) begin(ctx context.Context, title string) (UnitOfWork, error) {
	uow, err := s.unitOfWork(ctx)
	if err != nil {
		s.recordError(logrus.Fields{"title": title}, err, "starting unit of work")
		return nil, eris.Wrap(err, "starting unit of work")
	}
	return uow, nil
}

func (s *contentSubmissionService) commit(uow UnitOfWork, title string) error {
	if err := uow.Commit(); err != nil {
		s.recordError(logrus.Fields{"title": title}, err, "committing unit of work")
		return eris.Wrap(err, "committing unit of work")
	}
	return nil
}
