package drive

import (
	"context"
	"fmt"
	"sync"
)

// Mem is an in-memory drive. It backs the --demo serve mode and the
// pipeline tests.
type Mem struct {
	mu      sync.RWMutex
	files   map[string]*MemFile
	folders map[string]*MemFolder
}

// MemFile is an in-memory file entry.
type MemFile struct {
	FileName string
	ID       string
	Body     string
}

func (f *MemFile) Name() string     { return f.FileName }
func (f *MemFile) UniqueID() string { return f.ID }

func (f *MemFile) Contents(ctx context.Context) (string, error) {
	return f.Body, nil
}

// MemFolder is an in-memory folder entry.
type MemFolder struct {
	FolderName string
	ID         string
	children   []Entry
}

func (f *MemFolder) Name() string     { return f.FolderName }
func (f *MemFolder) UniqueID() string { return f.ID }
func (f *MemFolder) Folder()          {}

// NewMem creates an empty in-memory drive.
func NewMem() *Mem {
	return &Mem{
		files:   make(map[string]*MemFile),
		folders: make(map[string]*MemFolder),
	}
}

// AddFolder registers a folder under the given parent ("" for a root folder).
func (m *Mem) AddFolder(parentID, id, name string) *MemFolder {
	m.mu.Lock()
	defer m.mu.Unlock()
	f := &MemFolder{FolderName: name, ID: id}
	m.folders[id] = f
	if parent, ok := m.folders[parentID]; ok {
		parent.children = append(parent.children, f)
	}
	return f
}

// AddFile registers a file in the given folder.
func (m *Mem) AddFile(folderID, id, name, body string) *MemFile {
	m.mu.Lock()
	defer m.mu.Unlock()
	f := &MemFile{FileName: name, ID: id, Body: body}
	m.files[id] = f
	if parent, ok := m.folders[folderID]; ok {
		parent.children = append(parent.children, f)
	}
	return f
}

// GetFileByID returns the file with the given id.
func (m *Mem) GetFileByID(ctx context.Context, id string) (File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[id]
	if !ok {
		return nil, fmt.Errorf("drive: no file with id %q", id)
	}
	return f, nil
}

// ListFolder returns the immediate children of the folder with the given id.
func (m *Mem) ListFolder(ctx context.Context, id string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.folders[id]
	if !ok {
		return nil, fmt.Errorf("drive: no folder with id %q", id)
	}
	out := make([]Entry, len(f.children))
	copy(out, f.children)
	return out, nil
}
