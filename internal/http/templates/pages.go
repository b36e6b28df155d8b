package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// Layout wraps body in the shared document chrome.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		w := &writer{w: out}
		w.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>`)
		if title != "" && title != SiteName {
			w.text(title + " • " + SiteName)
		} else {
			w.text(SiteName)
		}
		w.raw(`</title></head><body><header><nav>`)
		w.link("/", SiteName)
		w.raw(` `)
		w.link("/leaderboards/current", "Leaderboards")
		w.raw(` `)
		w.link("/leaderboards/archive", "CVS Archive")
		w.raw(`<form action="/search" method="get" role="search"><input type="search" name="q" placeholder="Search pages" aria-label="Search pages"></form></nav></header><main>`)
		w.component(ctx, body)
		w.raw(`</main><footer><p>`)
		w.text(DefaultFooterNote)
		w.raw(`</p></footer></body></html>`)
		return w.err
	})
}

// HomePage renders the landing page with the Main Page content and the page index.
func HomePage(data HomePageData) templ.Component {
	return Layout(SiteName, templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<section class="main-page">`)
		w.component(ctx, RawHTML(data.MainPageHTML))
		w.raw(`</section><section class="page-index"><h2>All pages</h2><p class="page-count">`)
		w.text(data.FormattedPageCount + " pages")
		w.raw(`</p><ul>`)
		for _, page := range data.Pages {
			w.raw(`<li>`)
			w.link(page.URL, page.Title)
			w.raw(`</li>`)
		}
		w.raw(`</ul></section>`)
		return w.err
	}))
}

// WikiPage renders a single wiki entry.
func WikiPage(data WikiPageData) templ.Component {
	return Layout(data.Title, templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<article><h1>`)
		w.text(data.Title)
		w.raw(`</h1>`)
		if data.Unpublished {
			w.raw(`<p class="notice">This page has not been published yet.</p>`)
		}
		w.raw(`<dl class="page-meta">`)
		if data.Character != "" {
			w.raw(`<dt>Character</dt><dd>`)
			w.text(data.Character)
			w.raw(`</dd>`)
		}
		w.raw(`<dt>Created</dt><dd>`)
		w.date(data.CreatedOn)
		w.raw(`</dd>`)
		if data.LastEdit != nil {
			w.raw(`<dt>Last edit</dt><dd>`)
			w.date(*data.LastEdit)
			w.raw(`</dd>`)
		}
		if data.PendingEdits > 0 {
			w.raw(`<dt>Pending edits</dt><dd>`)
			w.text(fmt.Sprintf("%d", data.PendingEdits))
			w.raw(`</dd>`)
		}
		w.raw(`</dl><div class="page-content">`)
		w.component(ctx, RawHTML(data.HTML))
		w.raw(`</div></article>`)
		return w.err
	}))
}

// SearchPage renders search results for a title query.
func SearchPage(data SearchPageData) templ.Component {
	return Layout("Search", templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<h1>Search</h1><form action="/search" method="get"><input type="search" name="q" value="`)
		w.text(data.Query)
		w.raw(`"><button type="submit">Search</button></form>`)

		switch {
		case data.ErrorMessage != "":
			w.raw(`<p class="error">`)
			w.text(data.ErrorMessage)
			w.raw(`</p>`)
		case data.Query == "":
		case len(data.Results) == 0:
			w.raw(`<p>No pages match `)
			w.raw(`<q>`)
			w.text(data.Query)
			w.raw(`</q>.</p>`)
		default:
			w.raw(`<ul class="search-results">`)
			for _, result := range data.Results {
				w.raw(`<li>`)
				w.link(result.URL, result.Title)
				w.raw(`</li>`)
			}
			w.raw(`</ul>`)
		}
		return w.err
	}))
}

// LeaderboardPage renders a ranked table of runs.
func LeaderboardPage(data LeaderboardPageData) templ.Component {
	return Layout(data.Heading, templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<h1>`)
		w.text(data.Heading)
		w.raw(`</h1><p class="category">`)
		w.text(data.Category)
		w.raw(`</p>`)

		if len(data.Rows) == 0 {
			w.raw(`<p>No runs have been recorded in this category.</p>`)
			return w.err
		}

		w.raw(`<table class="leaderboard"><thead><tr><th>Rank</th><th>Runner</th><th>Time</th><th>Platform</th><th>Date</th><th>Video</th></tr></thead><tbody>`)
		for _, row := range data.Rows {
			w.raw(`<tr><td>`)
			w.text(fmt.Sprintf("%d", row.Rank))
			w.raw(`</td><td>`)
			w.text(row.Runner)
			w.raw(`</td><td>`)
			w.text(row.Time)
			w.raw(`</td><td>`)
			w.text(row.Platform)
			w.raw(`</td><td>`)
			if !row.SubmittedOn.IsZero() {
				w.date(row.SubmittedOn)
			}
			w.raw(`</td><td>`)
			if url := templ.URL(row.VideoURL); row.VideoURL != "" && url != templ.FailedSanitizationURL {
				w.link(string(url), "watch")
			}
			w.raw(`</td></tr>`)
		}
		w.raw(`</tbody></table>`)
		return w.err
	}))
}

// ErrorPage renders a status page.
func ErrorPage(data ErrorPageData) templ.Component {
	return Layout(data.StatusLabel, templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<section class="error"><h1>`)
		w.text(data.StatusLabel)
		w.raw(`</h1><p>`)
		w.text(data.Message)
		w.raw(`</p><p>`)
		w.link("/", "Back to the main page")
		w.raw(`</p></section>`)
		return w.err
	}))
}
