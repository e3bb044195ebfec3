package splatcard

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

func (v ViewFuncs) withDefaults() ViewFuncs {
	if v.AdminLogin == nil {
		v.AdminLogin = AdminLoginView
	}
	if v.AdminDashboard == nil {
		v.AdminDashboard = AdminDashboardView
	}
	if v.NotFound == nil {
		v.NotFound = NotFoundView
	}
	if v.ServerError == nil {
		v.ServerError = ServerErrorView
	}
	return v
}

const pageStyle = `body{font-family:system-ui,sans-serif;margin:2rem auto;max-width:60rem;color:#222}` +
	`table{border-collapse:collapse;width:100%}td,th{border-bottom:1px solid #ddd;padding:.4rem;text-align:left}` +
	`form.inline{display:inline}.msg{background:#eef6ff;padding:.5rem 1rem}`

func page(title string, body func(w io.Writer) error) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!doctype html><html lang="en"><head><meta charset="utf-8"><title>%s</title><style>%s</style></head><body>`,
			templ.EscapeString(title), pageStyle); err != nil {
			return err
		}
		if err := body(w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

func csrfField(token string) string {
	return `<input type="hidden" name="_csrf" value="` + templ.EscapeString(token) + `">`
}

// AdminLoginView is the default password form.
func AdminLoginView(showError bool, csrfToken string) templ.Component {
	return page("splatcard admin", func(w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<h1>splatcard admin</h1>`)
		if showError {
			b.WriteString(`<p class="msg">Wrong password.</p>`)
		}
		b.WriteString(`<form method="post" action="/admin/login/">`)
		b.WriteString(csrfField(csrfToken))
		b.WriteString(`<input type="password" name="password" placeholder="Password" autofocus> <button>Log in</button></form>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// AdminDashboardView lists cached assets and render cache actions.
func AdminDashboardView(d Dashboard, csrfToken string) templ.Component {
	return page("splatcard admin", func(w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<h1>splatcard admin</h1>`)
		if d.Message != "" {
			fmt.Fprintf(&b, `<p class="msg">%s</p>`, templ.EscapeString(d.Message))
		}

		fmt.Fprintf(&b, `<h2>Render cache (%s)</h2>`, templ.EscapeString(d.CacheBackend))
		for _, action := range []struct{ path, label string }{
			{"/admin/renders/clear/", "Clear all renders"},
			{"/admin/renders/purge/", "Purge expired renders"},
		} {
			fmt.Fprintf(&b, `<form class="inline" method="post" action="%s">%s<button>%s</button></form> `,
				action.path, csrfField(csrfToken), action.label)
		}

		b.WriteString(`<h2>Upload asset</h2><form method="post" action="/admin/assets/upload/" enctype="multipart/form-data">`)
		b.WriteString(csrfField(csrfToken))
		b.WriteString(`<input name="name" placeholder="Asset name"> <input name="display_name" placeholder="Display name"> <input type="file" name="image" accept="image/*"> <button>Upload</button></form>`)

		fmt.Fprintf(&b, `<h2>Cached assets (%d, %s)</h2>`, len(d.Assets), FormatBytes(d.TotalBytes))
		b.WriteString(`<table><tr><th>Name</th><th>Display name</th><th>Source</th><th>Size</th></tr>`)
		for _, s := range d.Assets {
			fmt.Fprintf(&b, `<tr><td><a href="/api/assets/%s/">%s</a></td><td>%s</td><td>%s</td><td>%s</td></tr>`,
				templ.EscapeString(PathEscape(s.Name)), templ.EscapeString(s.Name),
				templ.EscapeString(s.DisplayName), templ.EscapeString(s.SourceType), FormatBytes(s.Size))
		}
		b.WriteString(`</table>`)

		b.WriteString(`<form method="post" action="/admin/logout/">`)
		b.WriteString(csrfField(csrfToken))
		b.WriteString(`<button>Log out</button></form>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

// NotFoundView is the default 404 page.
func NotFoundView() templ.Component {
	return page("Not found", func(w io.Writer) error {
		_, err := io.WriteString(w, `<h1>Not found</h1>`)
		return err
	})
}

// ServerErrorView is the default 5xx page.
func ServerErrorView() templ.Component {
	return page("Server error", func(w io.Writer) error {
		_, err := io.WriteString(w, `<h1>Something went wrong</h1>`)
		return err
	})
}
