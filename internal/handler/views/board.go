package views

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/pavelanni/gradeboard/internal/board"
	appI18n "github.com/pavelanni/gradeboard/internal/i18n"
	"github.com/pavelanni/gradeboard/internal/model"
)

// BoardPage renders one grading table. prompt is the active modal, or nil.
func BoardPage(user *model.User, v board.View, prompt templ.Component, canDraft bool) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		fmt.Fprintf(w, `<h2>%s</h2>`,
			templ.EscapeString(appI18n.Td(ctx, "BoardN", map[string]any{"ID": shortID(v.ID)})))

		fmt.Fprint(w, `<div class="toolbar">`)
		runButton(w, v.ID, "/run/all", nil, appI18n.T(ctx, "RunAll"))
		fmt.Fprintf(w, `<a href="/board/%s/export" download>%s</a>`,
			templ.EscapeString(v.ID), templ.EscapeString(appI18n.T(ctx, "Export")))
		fmt.Fprintf(w, `<form method="post" action="/board/%s/save"><button type="submit">%s</button></form>`,
			templ.EscapeString(v.ID), templ.EscapeString(appI18n.T(ctx, "SaveResults")))
		fmt.Fprint(w, `</div>`)

		fmt.Fprint(w, `<table class="board"><thead><tr>`)
		fmt.Fprintf(w, `<th>%s</th>`, templ.EscapeString(appI18n.T(ctx, "Student")))
		for ci, col := range v.Columns {
			fmt.Fprintf(w, `<th>%s<br>`, templ.EscapeString(col))
			runButton(w, v.ID, "/run/column", map[string]int{"col": ci}, appI18n.T(ctx, "RunColumn"))
			fmt.Fprint(w, `</th>`)
		}
		fmt.Fprintf(w, `<th>%s</th></tr></thead><tbody>`, templ.EscapeString(appI18n.T(ctx, "Feedback")))

		for ri, row := range v.Rows {
			fmt.Fprintf(w, `<tr><td style="text-align:left"><strong>%s</strong><br>`,
				templ.EscapeString(row.Student))
			if row.Runnable {
				runButton(w, v.ID, "/run/row", map[string]int{"row": ri}, appI18n.T(ctx, "RunRow"))
			}
			fmt.Fprint(w, `</td>`)

			if !row.Runnable {
				fmt.Fprintf(w, `<td class="cell-missing" colspan="%d">%s</td>`,
					len(v.Columns), templ.EscapeString(appI18n.T(ctx, "NoSubmission")))
			} else {
				for ci, c := range row.Cells {
					renderCell(ctx, w, v.ID, ri, ci, c)
				}
			}

			fmt.Fprint(w, `<td>`)
			fmt.Fprintf(w, `<form method="post" action="/board/%s/feedback">`, templ.EscapeString(v.ID))
			fmt.Fprintf(w, `<input type="hidden" name="row" value="%d">`, ri)
			fmt.Fprintf(w, `<textarea name="text" rows="2">%s</textarea><br>`, templ.EscapeString(row.Feedback))
			fmt.Fprint(w, `<button type="submit" name="action" value="save">OK</button>`)
			if canDraft && row.Runnable {
				fmt.Fprintf(w, ` <button type="submit" name="action" value="draft">%s</button>`,
					templ.EscapeString(appI18n.T(ctx, "Feedback")))
			}
			fmt.Fprint(w, `</form></td></tr>`)
		}
		fmt.Fprint(w, `</tbody></table>`)

		if prompt != nil {
			return prompt.Render(ctx, w)
		}
		return nil
	})
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		refresh := 0
		if anyRunning(v) || prompt != nil {
			refresh = 1
		}
		return page(appI18n.T(ctx, "Dashboard"), user, refresh, body).Render(ctx, w)
	})
}

func renderCell(ctx context.Context, w io.Writer, boardID string, ri, ci int, c board.CellView) {
	switch c.State {
	case board.CellRunning:
		fmt.Fprintf(w, `<td class="cell-running">%s</td>`,
			templ.EscapeString(appI18n.T(ctx, "RunningCell")))
	case board.CellFinished:
		class := "cell-fail"
		if c.Passed {
			class = "cell-pass"
		}
		fmt.Fprintf(w, `<td class="%s" title="%s">%s</td>`,
			class, templ.EscapeString(c.Tooltip), templ.EscapeString(c.Tooltip))
	default:
		fmt.Fprint(w, `<td>`)
		runButton(w, boardID, "/run/cell", map[string]int{"row": ri, "col": ci},
			appI18n.T(ctx, "Run"))
		fmt.Fprint(w, `</td>`)
	}
}

func runButton(w io.Writer, boardID, action string, fields map[string]int, label string) {
	fmt.Fprintf(w, `<form method="post" action="/board/%s%s" style="display:inline">`,
		templ.EscapeString(boardID), action)
	for name, value := range fields {
		fmt.Fprintf(w, `<input type="hidden" name="%s" value="%d">`, name, value)
	}
	fmt.Fprintf(w, `<button type="submit" class="cell-button">%s</button></form>`,
		templ.EscapeString(label))
}

func anyRunning(v board.View) bool {
	for _, r := range v.Rows {
		for _, c := range r.Cells {
			if c.State == board.CellRunning {
				return true
			}
		}
	}
	return false
}
