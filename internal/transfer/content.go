package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/skydrift/skydrift/internal/files"
	"github.com/skydrift/skydrift/internal/remote"
)

// ErrRemoteChanged means the server rejected an upload precondition: the
// remote content changed since the etag the client presented. The upload
// becomes a conflict, never an overwrite.
var ErrRemoteChanged = errors.New("remote content changed since last sync")

const (
	// transferTimeout bounds one content transfer.
	transferTimeout = 30 * time.Minute

	contentDirPerm  = 0o700
	contentFilePerm = 0o600
)

// Transferer executes individual content operations. ContentClient is the
// HTTP implementation; tests substitute their own.
type Transferer interface {
	Download(ctx context.Context, p DownloadParams) error
	Upload(ctx context.Context, p UploadParams) error
	Remove(ctx context.Context, p RemoveParams) error
	CreateFolder(ctx context.Context, p CreateFolderParams) error
	Move(ctx context.Context, p MoveParams) error
	Copy(ctx context.Context, p CopyParams) error
}

// NodeSaver persists node updates after a successful transfer. *storage.Store
// satisfies it.
type NodeSaver interface {
	SaveNode(account string, node *files.Node) error
}

// ContentClient moves file content over the server's content API.
type ContentClient struct {
	baseURL  string
	username string
	password string

	// saveRoot is the base directory of the managed local tree.
	saveRoot string

	store NodeSaver
	http  *http.Client
}

// NewContentClient creates a content client. saveRoot is where downloads
// are materialized, per files.DefaultSavePath.
func NewContentClient(baseURL, username, password, saveRoot string, store NodeSaver) *ContentClient {
	return &ContentClient{
		baseURL:  baseURL,
		username: username,
		password: password,
		saveRoot: saveRoot,
		store:    store,
		http:     &http.Client{Timeout: transferTimeout},
	}
}

func (c *ContentClient) contentURL(remotePath string) string {
	return c.baseURL + "/api/v1/content?path=" + url.QueryEscape(remotePath)
}

// Download fetches content to the node's storage path (or the default
// save path when none is set) and persists the refreshed node row.
func (c *ContentClient) Download(ctx context.Context, p DownloadParams) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.contentURL(p.Node.RemotePath), nil)
	if err != nil {
		return fmt.Errorf("building download request: %w", err)
	}

	req.SetBasicAuth(c.username, c.password)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", remote.ErrHostUnavailable, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return err
	}

	target := p.Node.StoragePath
	if target == "" {
		target = files.DefaultSavePath(c.saveRoot, p.Account, p.Node.RemotePath)
	}

	if err := os.MkdirAll(filepath.Dir(target), contentDirPerm); err != nil {
		return fmt.Errorf("creating download directory: %w", err)
	}

	// Write to a temp name first so a torn download never masquerades
	// as a synchronized copy.
	tmp := target + ".part"

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, contentFilePerm)
	if err != nil {
		return fmt.Errorf("creating download file: %w", err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)

		return fmt.Errorf("%w: writing download: %v", remote.ErrHostUnavailable, err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing download file: %w", err)
	}

	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("moving download into place: %w", err)
	}

	now := time.Now().UnixMilli()
	p.Node.StoragePath = target
	p.Node.Etag = etagFromHeader(resp.Header)
	p.Node.LastSyncData = now
	p.Node.LocalModifiedAt = now

	if info, err := os.Stat(target); err == nil {
		p.Node.Length = info.Size()
		p.Node.LocalModifiedAt = info.ModTime().UnixMilli()
	}

	return c.store.SaveNode(p.Account, p.Node)
}

// Upload sends the local copy to the server. Unless ForceOverwrite is
// set, the request carries an If-Match precondition with the last etag
// the client saw (the conflict etag when one is stamped), so an unnoticed
// remote change surfaces as ErrRemoteChanged instead of being clobbered.
func (c *ContentClient) Upload(ctx context.Context, p UploadParams) error {
	src, err := os.Open(p.Node.StoragePath)
	if err != nil {
		return fmt.Errorf("opening local copy: %w", err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("reading local copy: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.contentURL(p.Node.RemotePath), src)
	if err != nil {
		return fmt.Errorf("building upload request: %w", err)
	}

	req.SetBasicAuth(c.username, c.password)
	req.ContentLength = info.Size()

	if !p.ForceOverwrite {
		guard := p.Node.ConflictEtag
		if guard == "" {
			guard = p.Node.Etag
		}

		if guard != "" {
			req.Header.Set("If-Match", `"`+guard+`"`)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", remote.ErrHostUnavailable, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return err
	}

	now := time.Now().UnixMilli()
	p.Node.Etag = etagFromHeader(resp.Header)
	p.Node.ConflictEtag = ""
	p.Node.LastSyncData = now
	p.Node.LocalModifiedAt = info.ModTime().UnixMilli()
	p.Node.Length = info.Size()

	if p.Behaviour == BehaviourMove {
		managed := files.DefaultSavePath(c.saveRoot, p.Account, p.Node.RemotePath)
		if managed != p.Node.StoragePath {
			if err := os.MkdirAll(filepath.Dir(managed), contentDirPerm); err == nil {
				if err := os.Rename(p.Node.StoragePath, managed); err == nil {
					p.Node.StoragePath = managed
				}
			}
		}
	}

	return c.store.SaveNode(p.Account, p.Node)
}

// Fetch reads remote content into memory without materializing it. Used
// for conflict previews, where the remote bytes are compared, not kept.
func (c *ContentClient) Fetch(ctx context.Context, remotePath string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.contentURL(remotePath), nil)
	if err != nil {
		return nil, fmt.Errorf("building fetch request: %w", err)
	}

	req.SetBasicAuth(c.username, c.password)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", remote.ErrHostUnavailable, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading fetch body: %v", remote.ErrHostUnavailable, err)
	}

	return data, nil
}

// Remove deletes a remote file or folder.
func (c *ContentClient) Remove(ctx context.Context, p RemoveParams) error {
	endpoint := c.baseURL + "/api/v1/files?path=" + url.QueryEscape(p.Node.RemotePath)

	return c.simpleRequest(ctx, http.MethodDelete, endpoint, nil)
}

// CreateFolder creates a remote folder.
func (c *ContentClient) CreateFolder(ctx context.Context, p CreateFolderParams) error {
	endpoint := c.baseURL + "/api/v1/folders?path=" + url.QueryEscape(p.RemotePath)

	return c.simpleRequest(ctx, http.MethodPost, endpoint, nil)
}

// Move renames or relocates a remote node.
func (c *ContentClient) Move(ctx context.Context, p MoveParams) error {
	endpoint := c.baseURL + "/api/v1/files/move?path=" + url.QueryEscape(p.Node.RemotePath) +
		"&destination=" + url.QueryEscape(p.TargetPath)

	return c.simpleRequest(ctx, http.MethodPost, endpoint, nil)
}

// Copy duplicates a remote node.
func (c *ContentClient) Copy(ctx context.Context, p CopyParams) error {
	endpoint := c.baseURL + "/api/v1/files/copy?path=" + url.QueryEscape(p.Node.RemotePath) +
		"&destination=" + url.QueryEscape(p.TargetPath)

	return c.simpleRequest(ctx, http.MethodPost, endpoint, nil)
}

func (c *ContentClient) simpleRequest(ctx context.Context, method, endpoint string, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	req.SetBasicAuth(c.username, c.password)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", remote.ErrHostUnavailable, err)
	}
	defer resp.Body.Close()

	return classifyStatus(resp.StatusCode)
}

func classifyStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusPreconditionFailed:
		return ErrRemoteChanged
	case status == http.StatusNotFound:
		return remote.ErrNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return remote.ErrUnauthorized
	case status >= 500:
		return fmt.Errorf("%w: server returned %d", remote.ErrHostUnavailable, status)
	default:
		return fmt.Errorf("unexpected status %d", status)
	}
}

func etagFromHeader(h http.Header) string {
	etag := h.Get("ETag")
	if len(etag) >= 2 && etag[0] == 'W' && etag[1] == '/' {
		etag = etag[2:]
	}

	if len(etag) >= 2 && etag[0] == '"' && etag[len(etag)-1] == '"' {
		etag = etag[1 : len(etag)-1]
	}

	return etag
}
