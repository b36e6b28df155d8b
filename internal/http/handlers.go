package http

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"sotnwiki/app/internal/db"
	"sotnwiki/app/internal/http/templates"
	"sotnwiki/app/internal/leaderboard"
	"sotnwiki/app/internal/wiki"
)

const (
	htmlContentType      = "text/html; charset=utf-8"
	mainPageTitle        = "Main Page"
	errorFallbackMessage = "We couldn't process your request right now."

	// siteTag marks operations that answer with rendered HTML.
	siteTag = "Site"
)

type htmlResponse struct {
	Status      int
	ContentType string `header:"Content-Type"`
	Body        []byte
}

type wikiInput struct {
	Title string `path:"title"`
}

type searchInput struct {
	Query string `query:"q"`
}

type healthResponse struct {
	Status int
	Body   struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
}

func (s *Server) registerHomeRoute() {
	huma.Get(s.api, "/", s.homeHandler, htmlOperation("Main page", stdhttp.StatusInternalServerError))
}

func (s *Server) registerWikiRoute() {
	huma.Get(s.api, "/wiki/{title}", s.wikiHandler, htmlOperation(
		"Fetch wiki page",
		stdhttp.StatusBadRequest,
		stdhttp.StatusNotFound,
		stdhttp.StatusInternalServerError,
	))
}

func (s *Server) registerSearchRoute() {
	huma.Get(s.api, "/search", s.searchHandler, htmlOperation(
		"Search pages by title",
		stdhttp.StatusInternalServerError,
	))
}

func (s *Server) registerLeaderboardRoutes() {
	huma.Get(s.api, "/leaderboards/current", s.currentLeaderboardHandler, htmlOperation(
		"Current speedrun.com leaderboard",
		stdhttp.StatusInternalServerError,
	))
	huma.Get(s.api, "/leaderboards/archive", s.archiveLeaderboardHandler, htmlOperation(
		"CV speedruns archive leaderboard",
		stdhttp.StatusInternalServerError,
	))
}

func (s *Server) registerHealthRoute() {
	huma.Get(s.api, "/healthz", s.healthHandler, func(op *huma.Operation) {
		op.Summary = "Health check"
	})
}

func (s *Server) homeHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	content := wiki.DefaultPageContent
	page, err := s.pages.GetPageByTitle(ctx, mainPageTitle)
	switch {
	case err == nil:
		content = page.Content
	case !eris.Is(err, wiki.ErrPageNotFound):
		s.recordError(ctx, err, "loading main page", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, "We couldn't load the wiki right now.")
	}

	mainHTML, err := s.renderer.Render(content)
	if err != nil {
		s.recordError(ctx, err, "rendering main page content", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	count, err := s.pages.CountPages(ctx)
	if err != nil {
		s.recordError(ctx, err, "counting pages", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, "We couldn't load the wiki right now.")
	}

	pages, err := s.pages.ListPages(ctx)
	if err != nil {
		s.recordError(ctx, err, "listing pages", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, "We couldn't load the wiki right now.")
	}

	data := templates.HomePageData{
		MainPageHTML:       mainHTML,
		FormattedPageCount: formatCount(count),
		Pages:              pageLinks(pages),
	}

	body, err := renderComponent(ctx, templates.HomePage(data))
	if err != nil {
		s.recordError(ctx, err, "rendering home page", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, "We couldn't render the homepage.")
	}

	return newHTMLResponse(stdhttp.StatusOK, body), nil
}

func (s *Server) wikiHandler(ctx context.Context, input *wikiInput) (*htmlResponse, error) {
	title := strings.TrimSpace(input.Title)
	page, err := s.pages.GetPageByTitle(ctx, title)
	if err != nil {
		status, message := classifyError(err)
		if status >= stdhttp.StatusInternalServerError {
			s.recordError(ctx, err, "loading wiki page", logrus.Fields{"title": title})
		}
		return s.renderErrorResponse(ctx, status, message)
	}

	html, err := s.renderer.Render(page.Content)
	if err != nil {
		s.recordError(ctx, err, "rendering page content", logrus.Fields{"title": title})
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	data := templates.WikiPageData{
		Title:        page.Title,
		HTML:         html,
		CreatedOn:    page.CreatedAt,
		LastEdit:     page.LastEdit,
		PendingEdits: len(page.Pending),
		Unpublished:  !page.IsPublished,
	}
	if page.GeneralCharacter != nil {
		data.Character = page.GeneralCharacter.Name
	}

	body, err := renderComponent(ctx, templates.WikiPage(data))
	if err != nil {
		s.recordError(ctx, err, "rendering wiki page", logrus.Fields{"title": title})
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	return newHTMLResponse(stdhttp.StatusOK, body), nil
}

func (s *Server) searchHandler(ctx context.Context, input *searchInput) (*htmlResponse, error) {
	query := strings.TrimSpace(input.Query)
	data := templates.SearchPageData{Query: query}

	if query != "" {
		pages, err := s.pages.FindPages(ctx, query)
		if err != nil {
			s.recordError(ctx, err, "search request failed", logrus.Fields{"query": query})
			return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, "We couldn't search the wiki right now.")
		}
		data.Results = pageLinks(pages)
	}

	body, err := renderComponent(ctx, templates.SearchPage(data))
	if err != nil {
		s.recordError(ctx, err, "rendering search page", logrus.Fields{"query": query})
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, "We couldn't render search results right now.")
	}

	return newHTMLResponse(stdhttp.StatusOK, body), nil
}

func (s *Server) currentLeaderboardHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	return s.leaderboardPage(ctx, "Leaderboards", leaderboard.AlucardAnyNSC, s.runs.GetSrComRuns)
}

func (s *Server) archiveLeaderboardHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	return s.leaderboardPage(ctx, "CV Speedruns Archive", leaderboard.CvsAlucardAnyNSC, s.runs.GetCvsRuns)
}

func (s *Server) leaderboardPage(
	ctx context.Context,
	heading string,
	category leaderboard.Category,
	load func(context.Context) ([]leaderboard.LeaderboardRun, error),
) (*htmlResponse, error) {
	runs, err := load(ctx)
	if err != nil {
		s.recordError(ctx, err, "loading leaderboard", logrus.Fields{"category": category.String()})
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, "We couldn't load the leaderboard right now.")
	}

	filtered := leaderboard.FilterCategory(runs, category)
	data := templates.LeaderboardPageData{
		Heading:  heading,
		Category: category.String(),
		Rows:     make([]templates.LeaderboardRow, 0, len(filtered)),
	}
	for i, run := range filtered {
		data.Rows = append(data.Rows, templates.LeaderboardRow{
			Rank:        i + 1,
			Runner:      run.Runner,
			Time:        run.FormattedTime,
			Platform:    run.Platform,
			VideoURL:    run.VideoURL,
			SubmittedOn: run.SubmittedOn,
		})
	}

	body, err := renderComponent(ctx, templates.LeaderboardPage(data))
	if err != nil {
		s.recordError(ctx, err, "rendering leaderboard", logrus.Fields{"category": category.String()})
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	return newHTMLResponse(stdhttp.StatusOK, body), nil
}

func (s *Server) healthHandler(ctx context.Context, _ *struct{}) (*healthResponse, error) {
	resp := &healthResponse{}
	resp.Body.Status = "ok"
	resp.Body.Database = "ok"
	resp.Status = stdhttp.StatusOK

	if err := db.Ping(ctx, s.db); err != nil {
		s.recordError(ctx, err, "pinging database", nil)
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
		resp.Status = stdhttp.StatusServiceUnavailable
	}

	return resp, nil
}

func pageLinks(pages []wiki.Page) []templates.PageLink {
	links := make([]templates.PageLink, 0, len(pages))
	for _, page := range pages {
		links = append(links, templates.PageLink{Title: page.Title, URL: templates.WikiURL(page.Title)})
	}
	return links
}

func newHTMLResponse(status int, body []byte) *htmlResponse {
	return &htmlResponse{
		Status:      status,
		ContentType: htmlContentType,
		Body:        body,
	}
}

func htmlOperation(summary string, statuses ...int) func(op *huma.Operation) {
	return func(op *huma.Operation) {
		if summary != "" {
			op.Summary = summary
		}
		op.Tags = append(op.Tags, siteTag)
		if op.Responses == nil {
			op.Responses = map[string]*huma.Response{}
		}

		statusCodes := append([]int{stdhttp.StatusOK}, statuses...)
		for _, status := range statusCodes {
			code := strconv.Itoa(status)
			op.Responses[code] = &huma.Response{
				Description: stdhttp.StatusText(status),
				Content: map[string]*huma.MediaType{
					htmlContentType: {
						Schema: &huma.Schema{Type: "string"},
					},
				},
			}
		}
	}
}

// classifyError maps service errors onto a status code and a user facing message.
func classifyError(err error) (int, string) {
	switch {
	case err == nil:
		return stdhttp.StatusInternalServerError, errorFallbackMessage
	case eris.Is(err, wiki.ErrInvalidArgument), eris.Is(err, leaderboard.ErrInvalidArgument):
		return stdhttp.StatusBadRequest, invalidArgumentMessage(err)
	case eris.Is(err, wiki.ErrPageNotFound):
		return stdhttp.StatusNotFound, wiki.ErrPageNotFound.Error()
	case eris.Is(err, wiki.ErrSubmissionNotFound):
		return stdhttp.StatusNotFound, "Submission not found."
	case eris.Is(err, leaderboard.ErrUnknownCategory):
		return stdhttp.StatusNotFound, "Unknown leaderboard category."
	case eris.Is(err, wiki.ErrSubmissionNotPending):
		return stdhttp.StatusConflict, "The submission is no longer pending for this page."
	case eris.Is(err, wiki.ErrDuplicateTitle):
		return stdhttp.StatusConflict, "A page with this title already exists."
	default:
		return stdhttp.StatusInternalServerError, errorFallbackMessage
	}
}

// invalidArgumentMessage returns the "<param> is required" wrap text when present.
func invalidArgumentMessage(err error) string {
	for _, part := range strings.Split(err.Error(), ": ") {
		if strings.HasSuffix(part, " is required") || strings.HasSuffix(part, " must be positive") {
			return part
		}
	}
	return "Invalid request."
}

func (s *Server) renderErrorResponse(ctx context.Context, status int, message string) (*htmlResponse, error) {
	label := fmt.Sprintf("%d %s", status, stdhttp.StatusText(status))
	template := templates.ErrorPage(templates.ErrorPageData{
		StatusLabel: label,
		Message:     message,
	})

	body, err := renderComponent(ctx, template)
	if err != nil {
		s.recordError(ctx, err, "rendering error page", logrus.Fields{"status": status})
		fallback := []byte(fmt.Sprintf("<html><body><h1>%s</h1><p>%s</p></body></html>", label, message))
		return newHTMLResponse(status, fallback), nil
	}

	return newHTMLResponse(status, body), nil
}

func (s *Server) recordError(ctx context.Context, err error, message string, fields logrus.Fields) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if fields != nil {
			entry = entry.WithFields(fields)
		}
		if requestID := RequestIDFromContext(ctx); requestID != "" {
			entry = entry.WithField("request_id", requestID)
		}
		entry.Error(message)
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	if s.sentry != nil {
		s.sentry.CaptureException(err)
	}
}

func formatCount(count int64) string {
	return strconv.FormatInt(count, 10)
}
