package board

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pavelanni/gradeboard/internal/drive"
	"github.com/pavelanni/gradeboard/internal/runner"
	"github.com/pavelanni/gradeboard/internal/target"
)

// stubEval returns a canned result and records run order.
type runLog struct {
	mu    sync.Mutex
	order []string
}

func (l *runLog) record(name string) {
	l.mu.Lock()
	l.order = append(l.order, name)
	l.mu.Unlock()
}

func (l *runLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.order...)
}

func passingTarget(name string, log *runLog) target.Target {
	return target.Target{Name: name, Eval: func(ctx context.Context) (runner.Result, error) {
		if log != nil {
			log.record(name)
		}
		return runner.Success{Checks: []runner.Check{{
			Name:     "t",
			Outcomes: []runner.Outcome{{Result: runner.OutcomeSuccess}},
		}}}, nil
	}}
}

func failingTarget(name string) target.Target {
	return target.Target{Name: name, Eval: func(ctx context.Context) (runner.Result, error) {
		return runner.Failure{ErrorName: "TypeError", Stack: "boom"}, nil
	}}
}

// newTestBoard builds a two-student board: alice runnable, bob not.
func newTestBoard(t *testing.T, log *runLog) *Board {
	t.Helper()
	subs := map[string][]drive.File{
		"alice": {},
		"bob":   nil,
	}
	build := func(files []drive.File) []target.Target {
		if files == nil {
			return nil
		}
		return []target.Target{
			passingTarget("test", log),
			failingTarget("gold"),
		}
	}
	return New("b1", "hw1", []string{"test", "gold"}, subs, build)
}

func TestNewBoardSortsAndMarksRunnable(t *testing.T) {
	b := newTestBoard(t, nil)
	v := b.View()

	if len(v.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(v.Rows))
	}
	if v.Rows[0].Student != "alice" || v.Rows[1].Student != "bob" {
		t.Errorf("rows not sorted: %q, %q", v.Rows[0].Student, v.Rows[1].Student)
	}
	if !v.Rows[0].Runnable {
		t.Error("alice should be runnable")
	}
	if v.Rows[1].Runnable || len(v.Rows[1].Cells) != 0 {
		t.Error("bob should render with no interactive cells")
	}
}

func TestRunCellTransitions(t *testing.T) {
	b := newTestBoard(t, nil)

	if got := b.View().Rows[0].Cells[0].State; got != CellPending {
		t.Fatalf("expected pending, got %v", got)
	}

	if err := b.RunCell(context.Background(), 0, 0); err != nil {
		t.Fatalf("RunCell: %v", err)
	}
	cv := b.View().Rows[0].Cells[0]
	if cv.State != CellFinished {
		t.Fatalf("expected finished, got %v", cv.State)
	}
	if !cv.Passed {
		t.Error("expected green cell for passing target")
	}
	if cv.Tooltip != "1/1 outcomes passed" {
		t.Errorf("unexpected tooltip %q", cv.Tooltip)
	}

	// Finished cells are left alone.
	if err := b.RunCell(context.Background(), 0, 0); err != nil {
		t.Fatalf("RunCell on finished cell: %v", err)
	}
}

func TestRunCellFailureColorsRed(t *testing.T) {
	b := newTestBoard(t, nil)
	if err := b.RunCell(context.Background(), 0, 1); err != nil {
		t.Fatalf("RunCell: %v", err)
	}
	cv := b.View().Rows[0].Cells[1]
	if cv.Passed {
		t.Error("expected red cell for failure envelope")
	}
	if cv.Tooltip != "TypeError" {
		t.Errorf("unexpected tooltip %q", cv.Tooltip)
	}
}

func TestRunCellValidation(t *testing.T) {
	b := newTestBoard(t, nil)

	if err := b.RunCell(context.Background(), 5, 0); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
	if err := b.RunCell(context.Background(), 0, 5); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
	// bob has no runnable cells.
	if err := b.RunCell(context.Background(), 1, 0); !errors.Is(err, ErrNotRunnable) {
		t.Errorf("expected ErrNotRunnable, got %v", err)
	}
}

func TestRunAllSerializesInOrder(t *testing.T) {
	log := &runLog{}
	b := newTestBoard(t, log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.RunAll(ctx); err != nil {
		t.Fatalf("RunAll: %v", err)
	}

	// Only alice's passing target records; order within the row is by column.
	order := log.snapshot()
	if len(order) != 1 || order[0] != "test" {
		t.Errorf("unexpected run order %v", order)
	}

	v := b.View()
	for ci, cv := range v.Rows[0].Cells {
		if cv.State != CellFinished {
			t.Errorf("cell %d not finished after RunAll", ci)
		}
	}
}

func TestRunAllWaitsForBusyCell(t *testing.T) {
	release := make(chan struct{})
	slow := target.Target{Name: "slow", Eval: func(ctx context.Context) (runner.Result, error) {
		<-release
		return runner.Success{}, nil
	}}
	subs := map[string][]drive.File{"alice": {}}
	b := New("b2", "hw1", []string{"slow"}, subs, func([]drive.File) []target.Target {
		return []target.Target{slow}
	})

	// Start a manual run, then a RunAll that must wait for it.
	go func() { _ = b.RunCell(context.Background(), 0, 0) }()
	for b.View().Rows[0].Cells[0].State != CellRunning {
		time.Sleep(time.Millisecond)
	}

	done := make(chan error, 1)
	go func() { done <- b.RunAll(context.Background()) }()

	select {
	case err := <-done:
		t.Fatalf("RunAll finished before the busy cell did: %v", err)
	case <-time.After(3 * PollInterval):
	}

	close(release)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RunAll: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("RunAll did not finish after the busy cell completed")
	}
}

func TestRunRowAndColumnScopes(t *testing.T) {
	log := &runLog{}
	subs := map[string][]drive.File{"alice": {}, "carol": {}}
	build := func([]drive.File) []target.Target {
		return []target.Target{passingTarget("test", log), passingTarget("gold", log)}
	}
	b := New("b3", "hw1", []string{"test", "gold"}, subs, build)

	if err := b.RunColumn(context.Background(), 0); err != nil {
		t.Fatalf("RunColumn: %v", err)
	}
	if got := log.snapshot(); len(got) != 2 {
		t.Fatalf("expected 2 runs after RunColumn, got %v", got)
	}

	if err := b.RunRow(context.Background(), 0); err != nil {
		t.Fatalf("RunRow: %v", err)
	}
	// Row 0: column 0 already finished, so only one more run.
	if got := log.snapshot(); len(got) != 3 {
		t.Fatalf("expected 3 runs after RunRow, got %v", got)
	}
}

func TestResultsOmitsUnfinished(t *testing.T) {
	b := newTestBoard(t, nil)
	if err := b.RunCell(context.Background(), 0, 0); err != nil {
		t.Fatalf("RunCell: %v", err)
	}

	results := b.Results()
	if len(results) != 1 {
		t.Fatalf("expected results for 1 student, got %d", len(results))
	}
	alice := results["alice"]
	if len(alice) != 1 {
		t.Fatalf("expected 1 target result, got %d", len(alice))
	}
	if _, ok := alice["test"]; !ok {
		t.Error("missing 'test' result")
	}
	if _, ok := results["bob"]; ok {
		t.Error("bob should be omitted entirely")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if r.Get("nope") != nil {
		t.Error("expected nil for unknown board")
	}

	b1 := New("b1", "hw1", nil, nil, func([]drive.File) []target.Target { return nil })
	time.Sleep(time.Millisecond)
	b2 := New("b2", "hw2", nil, nil, func([]drive.File) []target.Target { return nil })
	r.Add(b1)
	r.Add(b2)

	if r.Get("b1") != b1 {
		t.Error("Get(b1) mismatch")
	}
	list := r.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 boards, got %d", len(list))
	}
	if list[0].ID != "b2" {
		t.Errorf("expected newest first, got %q", list[0].ID)
	}
}
