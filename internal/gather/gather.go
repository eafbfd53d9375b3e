// Package gather walks an assignment folder on the remote drive and
// collects each student's final submission files.
package gather

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pavelanni/gradeboard/internal/drive"
	"github.com/pavelanni/gradeboard/internal/retry"
)

// FinalSubmissionFolder is the exact, case-sensitive name of the subfolder
// that holds a student's graded files.
const FinalSubmissionFolder = "final-submission"

// Gatherer fetches submissions from the drive, retrying each listing call.
type Gatherer struct {
	handle *drive.Handle
	policy retry.Policy
}

// New creates a Gatherer reading through the given drive handle.
func New(handle *drive.Handle, policy retry.Policy) *Gatherer {
	return &Gatherer{handle: handle, policy: policy}
}

// Gather lists the assignment folder's student subfolders and, for each,
// the files inside its final-submission folder. A student without a
// final-submission folder maps to nil. Per-student fetches fan out without
// a concurrency cap; if any fetch fails after exhausting retries, the whole
// gather fails.
func (g *Gatherer) Gather(ctx context.Context, assignmentFolderID string) (map[string][]drive.File, error) {
	api, err := g.handle.API()
	if err != nil {
		return nil, err
	}

	entries, err := retry.Do(ctx, g.policy, "list assignment folder",
		func(ctx context.Context) ([]drive.Entry, error) {
			return api.ListFolder(ctx, assignmentFolderID)
		})
	if err != nil {
		return nil, fmt.Errorf("list assignment folder %s: %w", assignmentFolderID, err)
	}

	submissions := make(map[string][]drive.File)
	var mu sync.Mutex

	eg, ctx := errgroup.WithContext(ctx)
	for _, entry := range entries {
		folder, ok := entry.(drive.Folder)
		if !ok {
			continue
		}
		eg.Go(func() error {
			files, err := g.gatherStudent(ctx, api, folder)
			if err != nil {
				return fmt.Errorf("gather %s: %w", folder.Name(), err)
			}
			mu.Lock()
			submissions[folder.Name()] = files
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return submissions, nil
}

// gatherStudent returns the files in the student's final-submission folder,
// or nil if that folder does not exist.
func (g *Gatherer) gatherStudent(ctx context.Context, api drive.API, student drive.Folder) ([]drive.File, error) {
	children, err := retry.Do(ctx, g.policy, "list student folder",
		func(ctx context.Context) ([]drive.Entry, error) {
			return api.ListFolder(ctx, student.UniqueID())
		})
	if err != nil {
		return nil, err
	}

	var final drive.Folder
	for _, child := range children {
		f, ok := child.(drive.Folder)
		if ok && f.Name() == FinalSubmissionFolder {
			final = f
			break
		}
	}
	if final == nil {
		slog.Info("student has no final submission", "student", student.Name())
		return nil, nil
	}

	entries, err := retry.Do(ctx, g.policy, "list final submission",
		func(ctx context.Context) ([]drive.Entry, error) {
			return api.ListFolder(ctx, final.UniqueID())
		})
	if err != nil {
		return nil, err
	}

	// Non-nil even when empty: nil is reserved for "no submission".
	files := make([]drive.File, 0, len(entries))
	for _, entry := range entries {
		if f, ok := entry.(drive.File); ok {
			files = append(files, f)
		}
	}
	return files, nil
}
