package templates

import (
	"context"
	"io"
	"net/url"
	"time"

	"github.com/a-h/templ"
)

const dateLayout = "2006-01-02"

// RawHTML returns a templ component that writes the provided HTML without escaping.
func RawHTML(html string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, err := io.WriteString(w, html)
		return err
	})
}

// WikiURL returns the path of the titled page.
func WikiURL(title string) string {
	return "/wiki/" + url.PathEscape(title)
}

// writer keeps the first write error so components can be written top to bottom.
type writer struct {
	w   io.Writer
	err error
}

func (w *writer) raw(s string) {
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.w, s)
}

func (w *writer) text(s string) {
	w.raw(templ.EscapeString(s))
}

func (w *writer) link(href, label string) {
	w.raw(`<a href="`)
	w.text(href)
	w.raw(`">`)
	w.text(label)
	w.raw(`</a>`)
}

func (w *writer) date(t time.Time) {
	w.raw(`<time datetime="`)
	w.text(t.UTC().Format(time.RFC3339))
	w.raw(`">`)
	w.text(t.UTC().Format(dateLayout))
	w.raw(`</time>`)
}

func (w *writer) component(ctx context.Context, c templ.Component) {
	if w.err != nil || c == nil {
		return
	}
	w.err = c.Render(ctx, w.w)
}
