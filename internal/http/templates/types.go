package templates

import "time"

// SiteName is shown in page titles and the header.
const SiteName = "SotN Wiki"

// DefaultFooterNote is shown in the shared layout when a page does not supply custom text.
const DefaultFooterNote = "Community maintained knowledge for Castlevania: Symphony of the Night speedrunners."

// PageLink points at a wiki page.
type PageLink struct {
	Title string
	URL   string
}

// HomePageData contains dynamic values rendered on the landing page.
type HomePageData struct {
	MainPageHTML       string
	FormattedPageCount string
	Pages              []PageLink
}

// WikiPageData contains the dynamic values for a wiki entry.
type WikiPageData struct {
	Title        string
	HTML         string
	Character    string
	CreatedOn    time.Time
	LastEdit     *time.Time
	PendingEdits int
	Unpublished  bool
}

// SearchPageData bundles template data for the search results page.
type SearchPageData struct {
	Query        string
	Results      []PageLink
	ErrorMessage string
}

// LeaderboardRow is one ranked run.
type LeaderboardRow struct {
	Rank        int
	Runner      string
	Time        string
	Platform    string
	VideoURL    string
	SubmittedOn time.Time
}

// LeaderboardPageData holds a single category leaderboard.
type LeaderboardPageData struct {
	Heading  string
	Category string
	Rows     []LeaderboardRow
}

// ErrorPageData holds information for rendering an error view.
type ErrorPageData struct {
	StatusLabel string
	Message     string
}
