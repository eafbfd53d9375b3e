// Package drive defines the remote file-storage interface the grading
// pipeline reads submissions from, plus the startup handle that publishes
// the concrete backend once it is available.
package drive

import (
	"context"
	"errors"
	"sync"
)

// ErrNotReady is returned for calls made before a backend has been published.
var ErrNotReady = errors.New("drive: storage API not ready")

// Entry is a named object in the drive, either a file or a folder.
type Entry interface {
	Name() string
	UniqueID() string
}

// File is an entry whose contents can be fetched. Contents is a remote call
// and may be wrapped in a retry by the caller.
type File interface {
	Entry
	Contents(ctx context.Context) (string, error)
}

// Folder is an entry that contains other entries.
type Folder interface {
	Entry
	Folder()
}

// API is the remote-storage surface the pipeline depends on.
type API interface {
	GetFileByID(ctx context.Context, id string) (File, error)
	ListFolder(ctx context.Context, id string) ([]Entry, error)
}

// Handle gates access to the API until a backend is published at startup.
// Publish is one-shot; later calls replace the backend.
type Handle struct {
	mu  sync.RWMutex
	api API
}

// Publish makes the backend available to callers.
func (h *Handle) Publish(api API) {
	h.mu.Lock()
	h.api = api
	h.mu.Unlock()
}

// API returns the published backend, or ErrNotReady.
func (h *Handle) API() (API, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.api == nil {
		return nil, ErrNotReady
	}
	return h.api, nil
}
