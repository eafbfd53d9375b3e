package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks JSON over HTTP to a remote drive service:
//
//	GET {base}/folders/{id}/children  -> [{"id": ..., "name": ..., "folder": bool}]
//	GET {base}/files/{id}             -> {"id": ..., "name": ...}
//	GET {base}/files/{id}/contents    -> raw file text
//
// Transient failures are not retried here; callers wrap calls in retry.Do.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a drive client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

type entryMeta struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Folder bool   `json:"folder"`
}

// remoteFile is a file entry whose contents are fetched on demand.
type remoteFile struct {
	meta entryMeta
	c    *Client
}

func (f *remoteFile) Name() string     { return f.meta.Name }
func (f *remoteFile) UniqueID() string { return f.meta.ID }

func (f *remoteFile) Contents(ctx context.Context) (string, error) {
	body, err := f.c.get(ctx, "/files/"+url.PathEscape(f.meta.ID)+"/contents")
	if err != nil {
		return "", err
	}
	return string(body), nil
}

type remoteFolder struct {
	meta entryMeta
}

func (f *remoteFolder) Name() string     { return f.meta.Name }
func (f *remoteFolder) UniqueID() string { return f.meta.ID }
func (f *remoteFolder) Folder()          {}

// GetFileByID fetches file metadata by id.
func (c *Client) GetFileByID(ctx context.Context, id string) (File, error) {
	body, err := c.get(ctx, "/files/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	var meta entryMeta
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("decode file %s: %w", id, err)
	}
	return &remoteFile{meta: meta, c: c}, nil
}

// ListFolder fetches the immediate children of a folder.
func (c *Client) ListFolder(ctx context.Context, id string) ([]Entry, error) {
	body, err := c.get(ctx, "/folders/"+url.PathEscape(id)+"/children")
	if err != nil {
		return nil, err
	}
	var metas []entryMeta
	if err := json.Unmarshal(body, &metas); err != nil {
		return nil, fmt.Errorf("decode folder %s: %w", id, err)
	}
	entries := make([]Entry, 0, len(metas))
	for _, m := range metas {
		if m.Folder {
			entries = append(entries, &remoteFolder{meta: m})
		} else {
			entries = append(entries, &remoteFile{meta: m, c: c})
		}
	}
	return entries, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("drive request %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("drive request %s: status %d", path, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("drive response %s: %w", path, err)
	}
	return body, nil
}
