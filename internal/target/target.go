// Package target turns a student's submission into runnable grading
// targets: the student's tests against their own implementation, against
// the gold reference, and against any extra comparison references.
package target

import (
	"context"
	"fmt"

	"github.com/pavelanni/gradeboard/internal/drive"
	"github.com/pavelanni/gradeboard/internal/retry"
	"github.com/pavelanni/gradeboard/internal/runner"
)

// Ref names an extra comparison implementation ("coal") by drive file id.
type Ref struct {
	Name string
	ID   string
}

// Config describes how targets are assembled for every student.
type Config struct {
	ImplName string // exact file name of the implementation role
	TestName string // exact file name of the test role
	GoldID   string // drive id of the gold reference implementation
	Coal     []Ref  // extra comparison references, in display order
	Entry    string // entry function the runner invokes, e.g. "main.RunTests"
}

// Target is a lazily runnable pairing of a test artifact against an
// implementation artifact. Eval reruns on every invocation; results are
// not cached here.
type Target struct {
	Name string
	Eval func(ctx context.Context) (runner.Result, error)
}

// Builder constructs targets bound to the drive and the sandbox runner.
type Builder struct {
	handle *drive.Handle
	run    runner.Runner
	policy retry.Policy
	cfg    Config
}

// NewBuilder creates a Builder.
func NewBuilder(handle *drive.Handle, run runner.Runner, policy retry.Policy, cfg Config) *Builder {
	return &Builder{handle: handle, run: run, policy: policy, cfg: cfg}
}

// Names returns the column names targets are built under, in order.
func (b *Builder) Names() []string {
	names := []string{"test", "gold"}
	for _, ref := range b.cfg.Coal {
		names = append(names, "coal-"+ref.Name)
	}
	return names
}

// Build returns the targets for one submission, or nil when either the
// implementation or the test file is missing (a non-runnable row).
func (b *Builder) Build(files []drive.File) []Target {
	var impl, test drive.File
	for _, f := range files {
		switch f.Name() {
		case b.cfg.ImplName:
			impl = f
		case b.cfg.TestName:
			test = f
		}
	}
	if impl == nil || test == nil {
		return nil
	}

	targets := []Target{
		{Name: "test", Eval: b.evalAgainst(test, fileSource{file: impl})},
		{Name: "gold", Eval: b.evalAgainst(test, idSource{id: b.cfg.GoldID})},
	}
	for _, ref := range b.cfg.Coal {
		targets = append(targets, Target{
			Name: "coal-" + ref.Name,
			Eval: b.evalAgainst(test, idSource{id: ref.ID}),
		})
	}
	return targets
}

// implSource resolves the implementation artifact for a target.
type implSource interface {
	fetch(ctx context.Context, b *Builder) (string, error)
}

// fileSource reads an already-located submission file.
type fileSource struct {
	file drive.File
}

func (s fileSource) fetch(ctx context.Context, b *Builder) (string, error) {
	return retry.Do(ctx, b.policy, "fetch file contents",
		func(ctx context.Context) (string, error) {
			return s.file.Contents(ctx)
		})
}

// idSource looks a file up by drive id first (gold and coal references).
type idSource struct {
	id string
}

func (s idSource) fetch(ctx context.Context, b *Builder) (string, error) {
	api, err := b.handle.API()
	if err != nil {
		return "", err
	}
	f, err := retry.Do(ctx, b.policy, "fetch file by id",
		func(ctx context.Context) (drive.File, error) {
			return api.GetFileByID(ctx, s.id)
		})
	if err != nil {
		return "", fmt.Errorf("resolve reference %s: %w", s.id, err)
	}
	return retry.Do(ctx, b.policy, "fetch reference contents",
		func(ctx context.Context) (string, error) {
			return f.Contents(ctx)
		})
}

// evalAgainst builds the deferred run: fetch implementation and test
// contents, then execute the test suite against that implementation.
func (b *Builder) evalAgainst(test drive.File, impl implSource) func(ctx context.Context) (runner.Result, error) {
	return func(ctx context.Context) (runner.Result, error) {
		implSrc, err := impl.fetch(ctx, b)
		if err != nil {
			return nil, err
		}
		testSrc, err := retry.Do(ctx, b.policy, "fetch test contents",
			func(ctx context.Context) (string, error) {
				return test.Contents(ctx)
			})
		if err != nil {
			return nil, err
		}
		return b.run.Run(ctx, []string{implSrc, testSrc}, b.cfg.Entry, nil)
	}
}
