package board

import (
	"sort"
	"sync"

	"github.com/pavelanni/gradeboard/internal/runner"
)

// CellView is an immutable snapshot of one cell for rendering.
type CellView struct {
	State   CellState
	Passed  bool
	Tooltip string
}

// RowView is an immutable snapshot of one row.
type RowView struct {
	Student  string
	Runnable bool
	Feedback string
	Cells    []CellView
}

// View is an immutable snapshot of the whole board.
type View struct {
	ID           string
	AssignmentID string
	Columns      []string
	Rows         []RowView
}

// View snapshots the board under the lock for rendering.
func (b *Board) View() View {
	b.mu.Lock()
	defer b.mu.Unlock()

	v := View{ID: b.ID, AssignmentID: b.AssignmentID, Columns: b.Columns}
	for _, r := range b.rows {
		rv := RowView{
			Student:  r.student,
			Runnable: len(r.cells) > 0,
			Feedback: r.feedback,
		}
		for _, c := range r.cells {
			cv := CellView{State: c.state}
			if c.state == CellFinished {
				switch {
				case c.runErr != nil:
					cv.Tooltip = "run failed: " + c.runErr.Error()
				default:
					cv.Passed = runner.Passed(c.result)
					cv.Tooltip = runner.Summarize(c.result)
				}
			}
			rv.Cells = append(rv.Cells, cv)
		}
		v.Rows = append(v.Rows, rv)
	}
	return v
}

// Registry is the in-memory set of live boards, keyed by board id.
type Registry struct {
	mu     sync.RWMutex
	boards map[string]*Board
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{boards: make(map[string]*Board)}
}

// Add registers a board.
func (r *Registry) Add(b *Board) {
	r.mu.Lock()
	r.boards[b.ID] = b
	r.mu.Unlock()
}

// Get returns the board with the given id, or nil.
func (r *Registry) Get(id string) *Board {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.boards[id]
}

// List returns all live boards, newest first.
func (r *Registry) List() []*Board {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Board, 0, len(r.boards))
	for _, b := range r.boards {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
