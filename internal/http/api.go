package http

import (
	"context"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"sotnwiki/app/internal/leaderboard"
	"sotnwiki/app/internal/wiki"
)

const (
	submissionsTag = "Submissions"
	leaderboardTag = "Leaderboards"
)

type submissionView struct {
	ID        string    `json:"id" doc:"Submission identifier"`
	Content   string    `json:"content"`
	State     string    `json:"state" enum:"pending,archived"`
	PageID    uint      `json:"page_id"`
	CreatedAt time.Time `json:"created_at"`
}

type pageTitleInput struct {
	Title string `path:"title" doc:"Page title"`
}

type contentBody struct {
	Content string `json:"content" doc:"Page content in Markdown"`
}

type submitEditInput struct {
	Title string `path:"title" doc:"Page title"`
	Body  contentBody
}

type submissionIDInput struct {
	ID string `path:"id" doc:"Submission identifier"`
}

type publishSubmissionInput struct {
	ID   string `path:"id" doc:"Submission identifier"`
	Body struct {
		Title   string `json:"title" doc:"Title of the page the submission belongs to"`
		Content string `json:"content" doc:"Content to publish, usually the submission's content"`
	}
}

type submissionResponse struct {
	Body submissionView
}

type historyResponse struct {
	Body struct {
		Title     string           `json:"title"`
		Revisions []submissionView `json:"revisions"`
	}
}

type submissionListResponse struct {
	Body struct {
		Title       string           `json:"title"`
		Submissions []submissionView `json:"submissions"`
	}
}

type categoryInput struct {
	Category string `path:"category" doc:"Exact category name, e.g. CvsAlucardAnyNSC"`
}

type runsResponse struct {
	Body struct {
		Category string                       `json:"category"`
		Runs     []leaderboard.LeaderboardRun `json:"runs"`
	}
}

type worldRecordResponse struct {
	Body leaderboard.LeaderboardRun
}

func (s *Server) registerSubmissionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-page-submissions",
		Method:      stdhttp.MethodGet,
		Path:        "/api/pages/{title}/submissions",
		Summary:     "List pending submissions of a page",
		Tags:        []string{submissionsTag},
	}, s.listSubmissionsHandler)

	huma.Register(s.api, huma.Operation{
		OperationID:   "submit-edit",
		Method:        stdhttp.MethodPost,
		Path:          "/api/pages/{title}/submissions",
		Summary:       "Submit an edit for review",
		Tags:          []string{submissionsTag},
		DefaultStatus: stdhttp.StatusCreated,
	}, s.submitEditHandler)

	huma.Register(s.api, huma.Operation{
		OperationID:   "submit-and-publish-edit",
		Method:        stdhttp.MethodPost,
		Path:          "/api/pages/{title}/publish",
		Summary:       "Publish new content directly",
		Tags:          []string{submissionsTag},
		DefaultStatus: stdhttp.StatusCreated,
	}, s.submitAndPublishHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-page-history",
		Method:      stdhttp.MethodGet,
		Path:        "/api/pages/{title}/history",
		Summary:     "List archived revisions of a page, oldest first",
		Tags:        []string{submissionsTag},
	}, s.pageHistoryHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-submission",
		Method:      stdhttp.MethodGet,
		Path:        "/api/submissions/{id}",
		Summary:     "Fetch a submission",
		Tags:        []string{submissionsTag},
	}, s.getSubmissionHandler)

	huma.Register(s.api, huma.Operation{
		OperationID:   "publish-submission",
		Method:        stdhttp.MethodPost,
		Path:          "/api/submissions/{id}/publish",
		Summary:       "Publish a pending submission",
		Tags:          []string{submissionsTag},
		DefaultStatus: stdhttp.StatusNoContent,
	}, s.publishSubmissionHandler)

	huma.Register(s.api, huma.Operation{
		OperationID:   "dismiss-submission",
		Method:        stdhttp.MethodDelete,
		Path:          "/api/submissions/{id}",
		Summary:       "Dismiss a submission",
		Tags:          []string{submissionsTag},
		DefaultStatus: stdhttp.StatusNoContent,
	}, s.dismissSubmissionHandler)
}

func (s *Server) registerLeaderboardAPIRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-category-runs",
		Method:      stdhttp.MethodGet,
		Path:        "/api/leaderboards/{category}",
		Summary:     "List runs of a category, fastest first",
		Tags:        []string{leaderboardTag},
	}, s.categoryRunsHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-category-world-record",
		Method:      stdhttp.MethodGet,
		Path:        "/api/leaderboards/{category}/world-record",
		Summary:     "Fetch the world record of a category",
		Tags:        []string{leaderboardTag},
	}, s.worldRecordHandler)
}

func (s *Server) listSubmissionsHandler(ctx context.Context, input *pageTitleInput) (*submissionListResponse, error) {
	submissions, err := s.submissions.GetSubmissions(ctx, input.Title)
	if err != nil {
		return nil, s.apiError(ctx, err, "listing submissions", logrus.Fields{"title": input.Title})
	}

	resp := &submissionListResponse{}
	resp.Body.Title = strings.TrimSpace(input.Title)
	resp.Body.Submissions = make([]submissionView, 0, len(submissions))
	for i := range submissions {
		resp.Body.Submissions = append(resp.Body.Submissions, toSubmissionView(&submissions[i]))
	}

	return resp, nil
}

func (s *Server) pageHistoryHandler(ctx context.Context, input *pageTitleInput) (*historyResponse, error) {
	history, err := s.pages.GetHistory(ctx, input.Title)
	if err != nil {
		return nil, s.apiError(ctx, err, "listing page history", logrus.Fields{"title": input.Title})
	}

	resp := &historyResponse{}
	resp.Body.Title = strings.TrimSpace(input.Title)
	resp.Body.Revisions = make([]submissionView, 0, len(history))
	for i := range history {
		resp.Body.Revisions = append(resp.Body.Revisions, toSubmissionView(&history[i]))
	}

	return resp, nil
}

func (s *Server) submitEditHandler(ctx context.Context, input *submitEditInput) (*submissionResponse, error) {
	submission, err := s.submissions.SubmitEdit(ctx, input.Body.Content, input.Title)
	if err != nil {
		return nil, s.apiError(ctx, err, "submitting edit", logrus.Fields{"title": input.Title})
	}

	return &submissionResponse{Body: toSubmissionView(submission)}, nil
}

func (s *Server) submitAndPublishHandler(ctx context.Context, input *submitEditInput) (*submissionResponse, error) {
	record, err := s.submissions.SubmitAndPublishEdit(ctx, input.Body.Content, input.Title)
	if err != nil {
		return nil, s.apiError(ctx, err, "publishing edit", logrus.Fields{"title": input.Title})
	}

	return &submissionResponse{Body: toSubmissionView(record)}, nil
}

func (s *Server) getSubmissionHandler(ctx context.Context, input *submissionIDInput) (*submissionResponse, error) {
	id, err := parseSubmissionID(input.ID)
	if err != nil {
		return nil, err
	}

	submission, err := s.submissions.GetPageContentSubmissionByID(ctx, id)
	if err != nil {
		return nil, s.apiError(ctx, err, "fetching submission", logrus.Fields{"submission_id": input.ID})
	}

	return &submissionResponse{Body: toSubmissionView(submission)}, nil
}

func (s *Server) publishSubmissionHandler(ctx context.Context, input *publishSubmissionInput) (*struct{}, error) {
	id, err := parseSubmissionID(input.ID)
	if err != nil {
		return nil, err
	}

	if err := s.submissions.PublishEdit(ctx, input.Body.Title, input.Body.Content, id); err != nil {
		return nil, s.apiError(ctx, err, "publishing submission", logrus.Fields{"submission_id": input.ID, "title": input.Body.Title})
	}

	return &struct{}{}, nil
}

func (s *Server) dismissSubmissionHandler(ctx context.Context, input *submissionIDInput) (*struct{}, error) {
	id, err := parseSubmissionID(input.ID)
	if err != nil {
		return nil, err
	}

	if err := s.submissions.DismissEdit(ctx, id); err != nil {
		return nil, s.apiError(ctx, err, "dismissing submission", logrus.Fields{"submission_id": input.ID})
	}

	return &struct{}{}, nil
}

func (s *Server) categoryRunsHandler(ctx context.Context, input *categoryInput) (*runsResponse, error) {
	runs, err := s.runs.GetRunsInCategory(ctx, input.Category)
	if err != nil {
		return nil, s.apiError(ctx, err, "listing category runs", logrus.Fields{"category": input.Category})
	}

	resp := &runsResponse{}
	resp.Body.Category = input.Category
	resp.Body.Runs = runs
	return resp, nil
}

func (s *Server) worldRecordHandler(ctx context.Context, input *categoryInput) (*worldRecordResponse, error) {
	record, err := s.runs.GetWorldRecordInCategory(ctx, input.Category)
	if err != nil {
		return nil, s.apiError(ctx, err, "fetching world record", logrus.Fields{"category": input.Category})
	}
	if record == nil {
		return nil, huma.Error404NotFound("No runs have been recorded in this category.")
	}

	return &worldRecordResponse{Body: *record}, nil
}

// apiError converts a service error into a huma status error, reporting server faults.
func (s *Server) apiError(ctx context.Context, err error, message string, fields logrus.Fields) error {
	status, detail := classifyError(err)
	if status >= stdhttp.StatusInternalServerError {
		s.recordError(ctx, err, message, fields)
	}
	return huma.NewError(status, detail)
}

func parseSubmissionID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, huma.Error400BadRequest("submission id must be a UUID")
	}
	return id, nil
}

func toSubmissionView(submission *wiki.PageContentSubmission) submissionView {
	view := submissionView{
		ID:        submission.ID.String(),
		Content:   submission.Content,
		CreatedAt: submission.CreatedAt,
	}

	switch {
	case submission.IsPending():
		view.State = "pending"
		view.PageID = *submission.PageEditID
	case submission.IsArchived():
		view.State = "archived"
		view.PageID = *submission.PageHistoryID
	}

	return view
}
