// Package board holds the server-side state of one grading table: one row
// per student, one column per target, and a per-cell run state machine.
package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/pavelanni/gradeboard/internal/drive"
	"github.com/pavelanni/gradeboard/internal/runner"
	"github.com/pavelanni/gradeboard/internal/target"
)

// PollInterval is the tick of the run-all loop.
const PollInterval = 50 * time.Millisecond

// CellState is the lifecycle of a single grading cell.
type CellState int

const (
	// CellPending means the target has not been run yet; the cell is clickable.
	CellPending CellState = iota
	// CellRunning means a run is in flight; the cell is disabled.
	CellRunning
	// CellFinished means the run completed and the cell is colored by outcome.
	CellFinished
)

var (
	ErrOutOfRange  = errors.New("board: cell out of range")
	ErrNotRunnable = errors.New("board: row has no runnable targets")
	ErrCellBusy    = errors.New("board: cell already running")
)

type cell struct {
	state  CellState
	result runner.Result
	runErr error
}

type row struct {
	student  string
	targets  []target.Target
	cells    []*cell
	feedback string
}

// Board is safe for concurrent use; every state mutation happens under one
// mutex, runs themselves happen outside it.
type Board struct {
	ID           string
	AssignmentID string
	Columns      []string
	CreatedAt    time.Time

	mu   sync.Mutex
	rows []*row
}

// New builds a board from gathered submissions. Students are sorted by
// name; a student whose submission yields no targets (missing role files or
// no submission at all) gets a row with no interactive cells.
func New(id, assignmentID string, columns []string, subs map[string][]drive.File, build func([]drive.File) []target.Target) *Board {
	students := make([]string, 0, len(subs))
	for name := range subs {
		students = append(students, name)
	}
	sort.Strings(students)

	b := &Board{
		ID:           id,
		AssignmentID: assignmentID,
		Columns:      columns,
		CreatedAt:    time.Now(),
	}
	for _, name := range students {
		r := &row{student: name, targets: build(subs[name])}
		for range r.targets {
			r.cells = append(r.cells, &cell{})
		}
		b.rows = append(b.rows, r)
	}
	return b
}

// RunCell runs one pending cell to completion. Finished and running cells
// are left alone.
func (b *Board) RunCell(ctx context.Context, rowIdx, colIdx int) error {
	b.mu.Lock()
	if rowIdx < 0 || rowIdx >= len(b.rows) {
		b.mu.Unlock()
		return ErrOutOfRange
	}
	r := b.rows[rowIdx]
	if len(r.cells) == 0 {
		b.mu.Unlock()
		return ErrNotRunnable
	}
	if colIdx < 0 || colIdx >= len(r.cells) {
		b.mu.Unlock()
		return ErrOutOfRange
	}
	c := r.cells[colIdx]
	switch c.state {
	case CellRunning:
		b.mu.Unlock()
		return ErrCellBusy
	case CellFinished:
		b.mu.Unlock()
		return nil
	}
	c.state = CellRunning
	eval := r.targets[colIdx].Eval
	b.mu.Unlock()

	res, err := eval(ctx)

	b.mu.Lock()
	c.state = CellFinished
	c.result = res
	c.runErr = err
	b.mu.Unlock()

	if err != nil {
		slog.Error("target run failed", "board", b.ID, "student", r.student,
			"target", r.targets[colIdx].Name, "error", err)
	}
	return err
}

// cellCoord addresses one cell for the run-all loop.
type cellCoord struct {
	row, col int
}

// RunRow runs every cell in a row, in column order.
func (b *Board) RunRow(ctx context.Context, rowIdx int) error {
	return b.runSequence(ctx, b.coords(func(r, c int) bool { return r == rowIdx }))
}

// RunColumn runs every cell in a column, in row order.
func (b *Board) RunColumn(ctx context.Context, colIdx int) error {
	return b.runSequence(ctx, b.coords(func(r, c int) bool { return c == colIdx }))
}

// RunAll runs every cell on the board, row-major.
func (b *Board) RunAll(ctx context.Context) error {
	return b.runSequence(ctx, b.coords(func(r, c int) bool { return true }))
}

func (b *Board) coords(keep func(row, col int) bool) []cellCoord {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []cellCoord
	for ri, r := range b.rows {
		for ci := range r.cells {
			if keep(ri, ci) {
				out = append(out, cellCoord{row: ri, col: ci})
			}
		}
	}
	return out
}

// runSequence drives the polling loop: advance through the coordinates in
// order, running each not-yet-finished cell and waiting for it to finish
// before moving on. Cells started independently (manual clicks) are simply
// waited for, not restarted.
func (b *Board) runSequence(ctx context.Context, coords []cellCoord) error {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for _, cc := range coords {
		for {
			switch b.cellState(cc.row, cc.col) {
			case CellFinished:
			case CellPending:
				if err := b.RunCell(ctx, cc.row, cc.col); err != nil && !errors.Is(err, ErrCellBusy) {
					return fmt.Errorf("run cell %d/%d: %w", cc.row, cc.col, err)
				}
			}
			if b.cellState(cc.row, cc.col) == CellFinished {
				break
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

func (b *Board) cellState(rowIdx, colIdx int) CellState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rows[rowIdx].cells[colIdx].state
}

// SetFeedback attaches reviewer/LLM feedback text to a row.
func (b *Board) SetFeedback(rowIdx int, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if rowIdx < 0 || rowIdx >= len(b.rows) {
		return ErrOutOfRange
	}
	b.rows[rowIdx].feedback = text
	return nil
}

// Results returns the finished results keyed by student then target name.
// Cells that never ran, rows with no targets, and runs that failed at the
// transport level are omitted.
func (b *Board) Results() map[string]map[string]runner.Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]map[string]runner.Result)
	for _, r := range b.rows {
		for ci, c := range r.cells {
			if c.state != CellFinished || c.result == nil {
				continue
			}
			if out[r.student] == nil {
				out[r.student] = make(map[string]runner.Result)
			}
			out[r.student][r.targets[ci].Name] = c.result
		}
	}
	return out
}
