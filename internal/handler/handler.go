// Package handler wires the HTTP surface: the dashboard, the grading
// boards, the modal prompt endpoints and authentication.
package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pavelanni/gradeboard/internal/board"
	"github.com/pavelanni/gradeboard/internal/drive"
	"github.com/pavelanni/gradeboard/internal/export"
	"github.com/pavelanni/gradeboard/internal/feedback"
	"github.com/pavelanni/gradeboard/internal/gather"
	"github.com/pavelanni/gradeboard/internal/handler/views"
	appI18n "github.com/pavelanni/gradeboard/internal/i18n"
	"github.com/pavelanni/gradeboard/internal/model"
	"github.com/pavelanni/gradeboard/internal/prompt"
	"github.com/pavelanni/gradeboard/internal/retry"
	"github.com/pavelanni/gradeboard/internal/runner"
	"github.com/pavelanni/gradeboard/internal/store"
	"github.com/pavelanni/gradeboard/internal/target"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	registry *board.Registry
	handle   *drive.Handle
	run      runner.Runner
	policy   retry.Policy
	prompts  *prompt.Manager
	feedback *feedback.Client // nil when no model is configured
	config   model.GradeConfig

	mu        sync.Mutex
	gathering bool
	gatherErr string
}

// New creates a new Handler.
func New(s *store.Store, handle *drive.Handle, run runner.Runner, policy retry.Policy, fb *feedback.Client, cfg model.GradeConfig) (*Handler, error) {
	return &Handler{
		store:    s,
		registry: board.NewRegistry(),
		handle:   handle,
		run:      run,
		policy:   policy,
		prompts:  prompt.NewManager(),
		feedback: fb,
		config:   cfg,
	}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/login", h.handleLoginPage)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Get("/", h.handleIndex)
		r.Post("/gather", h.handleGather)

		r.Get("/board/{boardID}", h.handleBoardPage)
		r.Post("/board/{boardID}/run/cell", h.handleRunCell)
		r.Post("/board/{boardID}/run/row", h.handleRunRow)
		r.Post("/board/{boardID}/run/column", h.handleRunColumn)
		r.Post("/board/{boardID}/run/all", h.handleRunAll)
		r.Post("/board/{boardID}/feedback", h.handleFeedback)
		r.Get("/board/{boardID}/export", h.handleExport)
		r.Post("/board/{boardID}/save", h.handleSave)

		r.Get("/session/{sessionID}/export", h.handleSessionExport)

		r.Post("/prompt/{promptID}/submit", h.handlePromptSubmit)
		r.Post("/prompt/{promptID}/dismiss", h.handlePromptDismiss)
	})
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.ListGradeSessions()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var summaries []views.BoardSummary
	for _, b := range h.registry.List() {
		v := b.View()
		summaries = append(summaries, views.BoardSummary{
			ID:           b.ID,
			AssignmentID: b.AssignmentID,
			Students:     len(v.Rows),
			CreatedAt:    b.CreatedAt,
		})
	}

	h.mu.Lock()
	status := views.GatherStatus{Running: h.gathering, Err: h.gatherErr}
	h.mu.Unlock()

	data := views.DashboardData{
		User:     model.UserFromContext(r.Context()),
		Config:   h.config,
		Boards:   summaries,
		Sessions: sessions,
		Gather:   status,
		Prompt:   h.activePromptComponent(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.DashboardPage(data).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleGather(w http.ResponseWriter, r *http.Request) {
	assignmentID := strings.TrimSpace(r.FormValue("assignment_id"))
	cfg := target.Config{
		ImplName: strings.TrimSpace(r.FormValue("impl_name")),
		TestName: strings.TrimSpace(r.FormValue("test_name")),
		GoldID:   strings.TrimSpace(r.FormValue("gold_id")),
		Entry:    h.config.Entry,
	}
	if assignmentID == "" || cfg.ImplName == "" || cfg.TestName == "" || cfg.GoldID == "" {
		http.Error(w, "assignment, file names and gold id are required", http.StatusBadRequest)
		return
	}
	coal, err := parseCoalRefs(r.FormValue("coal"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	cfg.Coal = coal

	h.mu.Lock()
	if h.gathering {
		h.mu.Unlock()
		http.Error(w, "a gather is already in progress", http.StatusConflict)
		return
	}
	h.gathering = true
	h.gatherErr = ""
	h.mu.Unlock()

	go h.runGather(assignmentID, cfg)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// parseCoalRefs parses "name:id" lines into comparison references.
func parseCoalRefs(raw string) ([]target.Ref, error) {
	var refs []target.Ref
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name, id, ok := strings.Cut(line, ":")
		name, id = strings.TrimSpace(name), strings.TrimSpace(id)
		if !ok || name == "" || id == "" {
			return nil, fmt.Errorf("invalid comparison reference %q, want name:id", line)
		}
		refs = append(refs, target.Ref{Name: name, ID: id})
	}
	return refs, nil
}

// runGather fetches submissions, asks the grader what to do with students
// who have no final submission, and publishes the finished board.
func (h *Handler) runGather(assignmentID string, cfg target.Config) {
	ctx := context.Background()

	finish := func(errMsg string) {
		h.mu.Lock()
		h.gathering = false
		h.gatherErr = errMsg
		h.mu.Unlock()
	}

	g := gather.New(h.handle, h.policy)
	subs, err := g.Gather(ctx, assignmentID)
	if err != nil {
		slog.Error("gather failed", "assignment", assignmentID, "error", err)
		finish("gather failed: " + err.Error())
		return
	}

	var missing []string
	for name, files := range subs {
		if files == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		include, err := h.askIncludeMissing(ctx, len(missing))
		if err != nil {
			finish("prompt failed: " + err.Error())
			return
		}
		if !include {
			for _, name := range missing {
				delete(subs, name)
			}
		}
	}

	builder := target.NewBuilder(h.handle, h.run, h.policy, cfg)
	b := board.New(uuid.NewString(), assignmentID, builder.Names(), subs, builder.Build)
	h.registry.Add(b)
	slog.Info("board ready", "board", b.ID, "assignment", assignmentID, "students", len(subs))
	finish("")
}

// askIncludeMissing shows a modal on the dashboard and blocks until the
// grader answers. Dismissal counts as "leave them out".
func (h *Handler) askIncludeMissing(ctx context.Context, count int) (bool, error) {
	p, err := prompt.New(h.prompts, prompt.Config{
		Title: appI18n.T(ctx, "IncludeMissingTitle"),
		Style: prompt.StyleRadio,
		Options: []prompt.Option{
			{Message: appI18n.T(ctx, "IncludeMissingYes"), Value: "include"},
			{Message: appI18n.T(ctx, "IncludeMissingNo"), Value: "skip"},
		},
	})
	if err != nil {
		return false, err
	}
	pd, err := p.Show()
	if err != nil {
		return false, err
	}
	slog.Info("waiting for grader decision on missing submissions", "count", count)
	v, err := pd.Await(ctx)
	if err != nil {
		return false, err
	}
	return v != nil && *v == "include", nil
}

func (h *Handler) board(w http.ResponseWriter, r *http.Request) *board.Board {
	b := h.registry.Get(chi.URLParam(r, "boardID"))
	if b == nil {
		http.Error(w, "board not found", http.StatusNotFound)
	}
	return b
}

func (h *Handler) handleBoardPage(w http.ResponseWriter, r *http.Request) {
	b := h.board(w, r)
	if b == nil {
		return
	}
	page := views.BoardPage(model.UserFromContext(r.Context()), b.View(),
		h.activePromptComponent(), h.feedback != nil)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleRunCell(w http.ResponseWriter, r *http.Request) {
	b := h.board(w, r)
	if b == nil {
		return
	}
	row, err1 := strconv.Atoi(r.FormValue("row"))
	col, err2 := strconv.Atoi(r.FormValue("col"))
	if err1 != nil || err2 != nil {
		http.Error(w, "invalid cell coordinates", http.StatusBadRequest)
		return
	}
	go func() {
		if err := b.RunCell(context.Background(), row, col); err != nil {
			slog.Error("run cell", "board", b.ID, "row", row, "col", col, "error", err)
		}
	}()
	http.Redirect(w, r, "/board/"+b.ID, http.StatusSeeOther)
}

func (h *Handler) handleRunRow(w http.ResponseWriter, r *http.Request) {
	b := h.board(w, r)
	if b == nil {
		return
	}
	row, err := strconv.Atoi(r.FormValue("row"))
	if err != nil {
		http.Error(w, "invalid row", http.StatusBadRequest)
		return
	}
	go func() {
		if err := b.RunRow(context.Background(), row); err != nil {
			slog.Error("run row", "board", b.ID, "row", row, "error", err)
		}
	}()
	http.Redirect(w, r, "/board/"+b.ID, http.StatusSeeOther)
}

func (h *Handler) handleRunColumn(w http.ResponseWriter, r *http.Request) {
	b := h.board(w, r)
	if b == nil {
		return
	}
	col, err := strconv.Atoi(r.FormValue("col"))
	if err != nil {
		http.Error(w, "invalid column", http.StatusBadRequest)
		return
	}
	go func() {
		if err := b.RunColumn(context.Background(), col); err != nil {
			slog.Error("run column", "board", b.ID, "col", col, "error", err)
		}
	}()
	http.Redirect(w, r, "/board/"+b.ID, http.StatusSeeOther)
}

func (h *Handler) handleRunAll(w http.ResponseWriter, r *http.Request) {
	b := h.board(w, r)
	if b == nil {
		return
	}
	go func() {
		if err := b.RunAll(context.Background()); err != nil {
			slog.Error("run all", "board", b.ID, "error", err)
		}
	}()
	http.Redirect(w, r, "/board/"+b.ID, http.StatusSeeOther)
}

func (h *Handler) handleFeedback(w http.ResponseWriter, r *http.Request) {
	b := h.board(w, r)
	if b == nil {
		return
	}
	row, err := strconv.Atoi(r.FormValue("row"))
	if err != nil {
		http.Error(w, "invalid row", http.StatusBadRequest)
		return
	}

	switch r.FormValue("action") {
	case "draft":
		if h.feedback == nil {
			http.Error(w, "no feedback model configured", http.StatusBadRequest)
			return
		}
		v := b.View()
		if row < 0 || row >= len(v.Rows) {
			http.Error(w, "invalid row", http.StatusBadRequest)
			return
		}
		student := v.Rows[row].Student
		go func() {
			results := b.Results()[student]
			if len(results) == 0 {
				slog.Warn("no finished runs to draft feedback from", "student", student)
				return
			}
			draft, err := h.feedback.DraftFeedback(context.Background(), student, results)
			if err != nil {
				slog.Error("draft feedback", "student", student, "error", err)
				return
			}
			if err := b.SetFeedback(row, draft.Feedback); err != nil {
				slog.Error("set feedback", "student", student, "error", err)
			}
		}()
	default:
		if err := b.SetFeedback(row, r.FormValue("text")); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	http.Redirect(w, r, "/board/"+b.ID, http.StatusSeeOther)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	b := h.board(w, r)
	if b == nil {
		return
	}
	data, err := export.Marshal(export.Export(b.Results()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "results-"+b.AssignmentID+".json"))
	if _, err := w.Write(data); err != nil {
		slog.Error("write export", "board", b.ID, "error", err)
	}
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	b := h.board(w, r)
	if b == nil {
		return
	}
	data, err := export.Marshal(export.Export(b.Results()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	err = h.store.SaveGradeSession(model.GradeSession{
		ID:           b.ID,
		AssignmentID: b.AssignmentID,
		Students:     len(b.View().Rows),
		Exported:     string(data),
		CreatedAt:    b.CreatedAt,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleSessionExport(w http.ResponseWriter, r *http.Request) {
	gs, err := h.store.GetGradeSession(chi.URLParam(r, "sessionID"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if gs == nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "results-"+gs.AssignmentID+".json"))
	if _, err := w.Write([]byte(gs.Exported)); err != nil {
		slog.Error("write session export", "session", gs.ID, "error", err)
	}
}

func (h *Handler) handlePromptSubmit(w http.ResponseWriter, r *http.Request) {
	if err := h.prompts.Submit(chi.URLParam(r, "promptID"), r.FormValue("value")); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.redirectBack(w, r)
}

func (h *Handler) handlePromptDismiss(w http.ResponseWriter, r *http.Request) {
	if err := h.prompts.Dismiss(chi.URLParam(r, "promptID")); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.redirectBack(w, r)
}

func (h *Handler) redirectBack(w http.ResponseWriter, r *http.Request) {
	to := r.Referer()
	if to == "" {
		to = "/"
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// activePromptComponent returns the visible prompt's modal, or nil.
func (h *Handler) activePromptComponent() templ.Component {
	p := h.prompts.Active()
	if p == nil {
		return nil
	}
	return p.Component()
}
