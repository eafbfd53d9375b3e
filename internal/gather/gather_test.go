package gather

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pavelanni/gradeboard/internal/drive"
	"github.com/pavelanni/gradeboard/internal/retry"
)

func fastPolicy() retry.Policy {
	return retry.Policy{MaxRetries: 2, Base: time.Microsecond}
}

// seedAssignment builds hw1 with alice (impl+test in final-submission) and
// bob (no final-submission folder).
func seedAssignment(t *testing.T) *drive.Mem {
	t.Helper()
	m := drive.NewMem()
	m.AddFolder("", "hw1", "homework-1")

	m.AddFolder("hw1", "alice", "alice")
	m.AddFolder("alice", "alice-final", FinalSubmissionFolder)
	m.AddFile("alice-final", "alice-impl", "impl.go", "package main")
	m.AddFile("alice-final", "alice-test", "test.go", "package main")

	m.AddFolder("hw1", "bob", "bob")
	m.AddFolder("bob", "bob-drafts", "drafts")
	return m
}

func newHandle(api drive.API) *drive.Handle {
	var h drive.Handle
	h.Publish(api)
	return &h
}

func TestGatherSubmissions(t *testing.T) {
	m := seedAssignment(t)
	g := New(newHandle(m), fastPolicy())

	subs, err := g.Gather(context.Background(), "hw1")
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("expected 2 students, got %d", len(subs))
	}

	alice, ok := subs["alice"]
	if !ok {
		t.Fatal("missing alice")
	}
	if len(alice) != 2 {
		t.Fatalf("expected 2 files for alice, got %d", len(alice))
	}

	bob, ok := subs["bob"]
	if !ok {
		t.Fatal("missing bob")
	}
	if bob != nil {
		t.Errorf("expected nil submission for bob, got %d files", len(bob))
	}
}

func TestGatherCaseSensitiveFolderName(t *testing.T) {
	m := drive.NewMem()
	m.AddFolder("", "hw1", "homework-1")
	m.AddFolder("hw1", "carol", "carol")
	// Wrong case must not match.
	m.AddFolder("carol", "carol-final", "Final-Submission")

	g := New(newHandle(m), fastPolicy())
	subs, err := g.Gather(context.Background(), "hw1")
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if subs["carol"] != nil {
		t.Error("expected nil submission for mismatched folder case")
	}
}

func TestGatherEmptyFinalSubmission(t *testing.T) {
	m := drive.NewMem()
	m.AddFolder("", "hw1", "homework-1")
	m.AddFolder("hw1", "dave", "dave")
	m.AddFolder("dave", "dave-final", FinalSubmissionFolder)

	g := New(newHandle(m), fastPolicy())
	subs, err := g.Gather(context.Background(), "hw1")
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	files, ok := subs["dave"]
	if !ok {
		t.Fatal("missing dave")
	}
	if files == nil {
		t.Error("expected empty (non-nil) file list for an empty final submission")
	}
	if len(files) != 0 {
		t.Errorf("expected 0 files, got %d", len(files))
	}
}

func TestGatherNotReady(t *testing.T) {
	g := New(&drive.Handle{}, fastPolicy())
	if _, err := g.Gather(context.Background(), "hw1"); !errors.Is(err, drive.ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

// flakyDrive fails listing calls a fixed number of times before delegating.
type flakyDrive struct {
	*drive.Mem
	failures int
}

func (f *flakyDrive) ListFolder(ctx context.Context, id string) ([]drive.Entry, error) {
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("transient listing error")
	}
	return f.Mem.ListFolder(ctx, id)
}

func TestGatherRetriesTransientErrors(t *testing.T) {
	f := &flakyDrive{Mem: seedAssignment(t), failures: 2}
	g := New(newHandle(f), fastPolicy())

	subs, err := g.Gather(context.Background(), "hw1")
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("expected 2 students, got %d", len(subs))
	}
}

func TestGatherFailsAfterRetryBudget(t *testing.T) {
	f := &flakyDrive{Mem: seedAssignment(t), failures: 100}
	g := New(newHandle(f), fastPolicy())

	if _, err := g.Gather(context.Background(), "hw1"); err == nil {
		t.Fatal("expected gather to fail once retries are exhausted")
	}
}
