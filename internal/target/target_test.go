package target

import (
	"context"
	"testing"
	"time"

	"github.com/pavelanni/gradeboard/internal/drive"
	"github.com/pavelanni/gradeboard/internal/retry"
	"github.com/pavelanni/gradeboard/internal/runner"
)

// recordingRunner captures the sources each Run call received.
type recordingRunner struct {
	calls  [][]string
	result runner.Result
}

func (r *recordingRunner) Run(ctx context.Context, sources []string, entry string, subs map[string]string) (runner.Result, error) {
	r.calls = append(r.calls, sources)
	return r.result, nil
}

func testConfig() Config {
	return Config{
		ImplName: "impl.go",
		TestName: "test.go",
		GoldID:   "gold-id",
		Coal:     []Ref{{Name: "v1", ID: "coal-v1"}, {Name: "v2", ID: "coal-v2"}},
		Entry:    "main.RunTests",
	}
}

func newFixture(t *testing.T) (*drive.Mem, *drive.Handle) {
	t.Helper()
	m := drive.NewMem()
	m.AddFolder("", "sub", "final-submission")
	m.AddFile("sub", "impl-id", "impl.go", "impl source")
	m.AddFile("sub", "test-id", "test.go", "test source")
	m.AddFile("", "gold-id", "gold.go", "gold source")
	m.AddFile("", "coal-v1", "coal1.go", "coal v1 source")
	m.AddFile("", "coal-v2", "coal2.go", "coal v2 source")
	var h drive.Handle
	h.Publish(m)
	return m, &h
}

func submissionFiles(t *testing.T, m *drive.Mem) []drive.File {
	t.Helper()
	entries, err := m.ListFolder(context.Background(), "sub")
	if err != nil {
		t.Fatalf("ListFolder: %v", err)
	}
	var files []drive.File
	for _, e := range entries {
		files = append(files, e.(drive.File))
	}
	return files
}

func TestBuildTargetOrder(t *testing.T) {
	m, h := newFixture(t)
	rec := &recordingRunner{result: runner.Success{}}
	b := NewBuilder(h, rec, retry.Policy{Base: time.Microsecond}, testConfig())

	targets := b.Build(submissionFiles(t, m))
	if len(targets) != 4 {
		t.Fatalf("expected 4 targets, got %d", len(targets))
	}
	want := []string{"test", "gold", "coal-v1", "coal-v2"}
	for i, w := range want {
		if targets[i].Name != w {
			t.Errorf("target %d = %q, want %q", i, targets[i].Name, w)
		}
	}
	if names := b.Names(); len(names) != 4 || names[2] != "coal-v1" {
		t.Errorf("unexpected Names(): %v", names)
	}
}

func TestBuildMissingRole(t *testing.T) {
	m := drive.NewMem()
	m.AddFolder("", "sub", "final-submission")
	m.AddFile("sub", "impl-id", "impl.go", "impl source")
	// No test.go.
	var h drive.Handle
	h.Publish(m)

	b := NewBuilder(&h, &recordingRunner{}, retry.Policy{}, testConfig())
	if targets := b.Build(submissionFiles(t, m)); targets != nil {
		t.Fatalf("expected no targets, got %d", len(targets))
	}

	// Empty submission is also non-runnable.
	if targets := b.Build(nil); targets != nil {
		t.Fatalf("expected no targets for nil files, got %d", len(targets))
	}
}

func TestEvalSourceSelection(t *testing.T) {
	m, h := newFixture(t)
	rec := &recordingRunner{result: runner.Success{}}
	b := NewBuilder(h, rec, retry.Policy{Base: time.Microsecond}, testConfig())
	targets := b.Build(submissionFiles(t, m))

	tests := []struct {
		name     string
		index    int
		wantImpl string
	}{
		{"test runs own impl", 0, "impl source"},
		{"gold runs gold reference", 1, "gold source"},
		{"coal runs named reference", 2, "coal v1 source"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec.calls = nil
			if _, err := targets[tt.index].Eval(context.Background()); err != nil {
				t.Fatalf("Eval: %v", err)
			}
			if len(rec.calls) != 1 {
				t.Fatalf("expected 1 run, got %d", len(rec.calls))
			}
			sources := rec.calls[0]
			if len(sources) != 2 {
				t.Fatalf("expected 2 sources, got %d", len(sources))
			}
			if sources[0] != tt.wantImpl {
				t.Errorf("impl source = %q, want %q", sources[0], tt.wantImpl)
			}
			if sources[1] != "test source" {
				t.Errorf("test source = %q", sources[1])
			}
		})
	}
}

func TestEvalReruns(t *testing.T) {
	m, h := newFixture(t)
	rec := &recordingRunner{result: runner.Success{}}
	b := NewBuilder(h, rec, retry.Policy{Base: time.Microsecond}, testConfig())
	targets := b.Build(submissionFiles(t, m))

	for i := 0; i < 3; i++ {
		if _, err := targets[0].Eval(context.Background()); err != nil {
			t.Fatalf("Eval #%d: %v", i, err)
		}
	}
	if len(rec.calls) != 3 {
		t.Errorf("expected 3 runs (no caching), got %d", len(rec.calls))
	}
}
