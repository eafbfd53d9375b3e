// Package views renders the HTML pages. Components are built directly on
// the templ runtime so markup and escaping stay explicit.
package views

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/a-h/templ"

	appI18n "github.com/pavelanni/gradeboard/internal/i18n"
	"github.com/pavelanni/gradeboard/internal/model"
)

const styles = `<style>
body{font-family:sans-serif;margin:2rem auto;max-width:70rem;padding:0 1rem}
table.board{border-collapse:collapse;width:100%}
table.board th,table.board td{border:1px solid #ccc;padding:.4rem .6rem;text-align:center}
td.cell-pass{background:#c8e6c9}
td.cell-fail{background:#ffcdd2}
td.cell-error{background:#ffe0b2}
td.cell-running{background:#e3f2fd;color:#888}
td.cell-missing{background:#f5f5f5;color:#999;text-align:left}
.cell-button{background:none;border:1px dashed #999;cursor:pointer;padding:.2rem .6rem}
.toolbar{margin:1rem 0;display:flex;gap:.5rem;flex-wrap:wrap}
.error{color:#b00020}
form.stacked label{display:block;margin:.5rem 0}
form.stacked input[type=text],form.stacked textarea{width:100%;box-sizing:border-box}
.prompt-overlay{position:fixed;inset:0;background:rgba(0,0,0,.4);display:flex;align-items:center;justify-content:center}
.prompt-modal{background:#fff;padding:1.5rem;border-radius:6px;min-width:20rem;position:relative}
.prompt-close{position:absolute;top:.3rem;right:.5rem;border:none;background:none;font-size:1.2rem;cursor:pointer}
.prompt-option{display:block;margin:.4rem 0}
.prompt-example{margin-left:.5rem;color:#666}
.prompt-tiles{display:flex;gap:.8rem}
.prompt-tile{display:flex;flex-direction:column;padding:.8rem 1rem;cursor:pointer}
.prompt-details{font-size:.85rem;color:#666}
</style>`

// page wraps body in the shared layout. refresh > 0 adds a meta refresh so
// pages with in-flight runs repaint themselves.
func page(title string, user *model.User, refresh int, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		fmt.Fprintf(w, `<!DOCTYPE html><html><head><meta charset="utf-8"><title>%s | %s</title>`,
			templ.EscapeString(title), templ.EscapeString(appI18n.T(ctx, "AppTitle")))
		if refresh > 0 {
			fmt.Fprintf(w, `<meta http-equiv="refresh" content="%d">`, refresh)
		}
		fmt.Fprint(w, styles)
		fmt.Fprint(w, `</head><body>`)
		fmt.Fprintf(w, `<header><h1><a href="/" style="text-decoration:none;color:inherit">%s</a></h1>`,
			templ.EscapeString(appI18n.T(ctx, "AppTitle")))
		if user != nil {
			fmt.Fprintf(w, `<form method="post" action="/logout" style="float:right"><span>%s</span> <button type="submit">%s</button></form>`,
				templ.EscapeString(user.DisplayName), templ.EscapeString(appI18n.T(ctx, "Logout")))
		}
		fmt.Fprint(w, `</header><main>`)
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		fmt.Fprint(w, `</main></body></html>`)
		return nil
	})
}

// LoginPage renders the sign-in form, with an error line when errMsg is set.
func LoginPage(errMsg string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if errMsg != "" {
			fmt.Fprintf(w, `<p class="error">%s</p>`, templ.EscapeString(errMsg))
		}
		fmt.Fprint(w, `<form method="post" action="/login" class="stacked">`)
		fmt.Fprintf(w, `<label>%s <input type="text" name="username" autofocus></label>`,
			templ.EscapeString(appI18n.T(ctx, "Username")))
		fmt.Fprintf(w, `<label>%s <input type="password" name="password"></label>`,
			templ.EscapeString(appI18n.T(ctx, "Password")))
		fmt.Fprintf(w, `<button type="submit">%s</button></form>`,
			templ.EscapeString(appI18n.T(ctx, "SignIn")))
		return nil
	})
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return page(appI18n.T(ctx, "SignIn"), nil, 0, body).Render(ctx, w)
	})
}

// BoardSummary is one live board on the dashboard.
type BoardSummary struct {
	ID           string
	AssignmentID string
	Students     int
	CreatedAt    time.Time
}

// GatherStatus reports the in-flight or last finished gather.
type GatherStatus struct {
	Running bool
	Err     string
}

// DashboardData feeds the index page.
type DashboardData struct {
	User     *model.User
	Config   model.GradeConfig
	Boards   []BoardSummary
	Sessions []model.GradeSession
	Gather   GatherStatus
	Prompt   templ.Component // active modal, or nil
}

// DashboardPage renders the gather form, live boards and saved runs.
func DashboardPage(d DashboardData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if d.Gather.Err != "" {
			fmt.Fprintf(w, `<p class="error">%s</p>`, templ.EscapeString(d.Gather.Err))
		}
		if d.Gather.Running {
			fmt.Fprintf(w, `<p>%s</p>`, templ.EscapeString(appI18n.T(ctx, "Gathering")))
		}

		fmt.Fprint(w, `<form method="post" action="/gather" class="stacked">`)
		fmt.Fprintf(w, `<label>%s <input type="text" name="assignment_id" required></label>`,
			templ.EscapeString(appI18n.T(ctx, "AssignmentID")))
		fmt.Fprintf(w, `<label>%s <input type="text" name="impl_name" value="%s" required></label>`,
			templ.EscapeString(appI18n.T(ctx, "ImplFileName")), templ.EscapeString(d.Config.ImplName))
		fmt.Fprintf(w, `<label>%s <input type="text" name="test_name" value="%s" required></label>`,
			templ.EscapeString(appI18n.T(ctx, "TestFileName")), templ.EscapeString(d.Config.TestName))
		fmt.Fprintf(w, `<label>%s <input type="text" name="gold_id" required></label>`,
			templ.EscapeString(appI18n.T(ctx, "GoldID")))
		fmt.Fprintf(w, `<label>%s <textarea name="coal" rows="3"></textarea></label>`,
			templ.EscapeString(appI18n.T(ctx, "CoalRefs")))
		fmt.Fprintf(w, `<button type="submit">%s</button></form>`,
			templ.EscapeString(appI18n.T(ctx, "Gather")))

		if len(d.Boards) > 0 {
			fmt.Fprintf(w, `<h2>%s</h2><ul>`, templ.EscapeString(appI18n.T(ctx, "Dashboard")))
			for _, b := range d.Boards {
				fmt.Fprintf(w, `<li><a href="/board/%s">%s</a> (%s, %s)</li>`,
					templ.EscapeString(b.ID),
					templ.EscapeString(appI18n.Td(ctx, "BoardN", map[string]any{"ID": shortID(b.ID)})),
					templ.EscapeString(b.AssignmentID),
					templ.EscapeString(appI18n.Tp(ctx, "StudentsGathered", b.Students)))
			}
			fmt.Fprint(w, `</ul>`)
		}

		fmt.Fprintf(w, `<h2>%s</h2>`, templ.EscapeString(appI18n.T(ctx, "SavedSessions")))
		if len(d.Sessions) == 0 {
			fmt.Fprintf(w, `<p>%s</p>`, templ.EscapeString(appI18n.T(ctx, "NoSavedSessions")))
		} else {
			fmt.Fprint(w, `<ul>`)
			for _, s := range d.Sessions {
				fmt.Fprintf(w, `<li><a href="/session/%s/export">%s</a> (%s, %s)</li>`,
					templ.EscapeString(s.ID),
					templ.EscapeString(appI18n.Td(ctx, "BoardN", map[string]any{"ID": shortID(s.ID)})),
					templ.EscapeString(s.AssignmentID),
					templ.EscapeString(s.CreatedAt.Format("2006-01-02 15:04")))
			}
			fmt.Fprint(w, `</ul>`)
		}

		if d.Prompt != nil {
			return d.Prompt.Render(ctx, w)
		}
		return nil
	})
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		refresh := 0
		if d.Gather.Running || d.Prompt != nil {
			refresh = 2
		}
		return page(appI18n.T(ctx, "Dashboard"), d.User, refresh, body).Render(ctx, w)
	})
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
