// Package remote talks to the cloud storage server: folder listings,
// single-file metadata and the change-notification stream. The engine
// consumes it through the Lister and FileFetcher interfaces so tests can
// substitute mocks.
package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/skydrift/skydrift/internal/files"
)

const (
	// requestTimeout bounds a single metadata request. Content transfers
	// have their own budget in the transfer layer.
	requestTimeout = 60 * time.Second

	// maxListingBytes caps a listing response body. A folder listing is
	// metadata only; anything larger is a misbehaving server.
	maxListingBytes = 32 * 1024 * 1024
)

// Listing is a fresh remote folder listing: the folder's own metadata
// followed by its direct children, in server order.
type Listing struct {
	Folder   *files.Node
	Children []*files.Node
}

// Lister fetches remote folder listings.
type Lister interface {
	// ListFolder returns the listing for a remote folder path. When
	// changeToken is non-empty and still matches on the server, it
	// returns ErrNotModified without reading a payload.
	ListFolder(ctx context.Context, remotePath, changeToken string) (*Listing, error)
}

// FileFetcher fetches metadata for one remote file.
type FileFetcher interface {
	FetchFile(ctx context.Context, remotePath string) (*files.Node, error)
}

// Client is the HTTP implementation of Lister and FileFetcher against the
// server's JSON metadata API.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
}

// NewClient creates a client for the given server. Credentials are sent
// as basic auth; the server side issues app passwords per device.
func NewClient(baseURL, username, password string) *Client {
	return &Client{
		baseURL:  baseURL,
		username: username,
		password: password,
		http:     &http.Client{Timeout: requestTimeout},
	}
}

// ListFolder implements Lister.
func (c *Client) ListFolder(ctx context.Context, remotePath, changeToken string) (*Listing, error) {
	endpoint := c.baseURL + "/api/v1/folders?path=" + url.QueryEscape(remotePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building listing request: %w", err)
	}

	req.SetBasicAuth(c.username, c.password)
	if changeToken != "" {
		req.Header.Set("If-None-Match", etagQuote(changeToken))
	}

	body, status, err := c.do(req)
	if err != nil {
		return nil, err
	}

	if status == http.StatusNotModified {
		return nil, ErrNotModified
	}

	folderJSON := gjson.GetBytes(body, "folder")
	if !folderJSON.Exists() {
		return nil, fmt.Errorf("listing for %s: response has no folder object", remotePath)
	}

	listing := &Listing{Folder: nodeFromJSON(folderJSON)}

	for _, childJSON := range gjson.GetBytes(body, "children").Array() {
		listing.Children = append(listing.Children, nodeFromJSON(childJSON))
	}

	return listing, nil
}

// FetchFile implements FileFetcher.
func (c *Client) FetchFile(ctx context.Context, remotePath string) (*files.Node, error) {
	endpoint := c.baseURL + "/api/v1/files?path=" + url.QueryEscape(remotePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building file request: %w", err)
	}

	req.SetBasicAuth(c.username, c.password)

	body, _, err := c.do(req)
	if err != nil {
		return nil, err
	}

	fileJSON := gjson.GetBytes(body, "file")
	if !fileJSON.Exists() {
		return nil, fmt.Errorf("metadata for %s: response has no file object", remotePath)
	}

	return nodeFromJSON(fileJSON), nil
}

// do executes a request and classifies the response status into the
// sentinel error taxonomy. The caller only sees a body for 2xx and the
// status for 304.
func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return nil, 0, req.Context().Err()
		}

		return nil, 0, fmt.Errorf("%w: %v", ErrHostUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return nil, resp.StatusCode, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, resp.StatusCode, ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, resp.StatusCode, ErrUnauthorized
	case resp.StatusCode >= 500:
		return nil, resp.StatusCode, fmt.Errorf("%w: server returned %d", ErrHostUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, resp.StatusCode, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL.Path)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxListingBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: reading response: %v", ErrHostUnavailable, err)
	}

	return body, resp.StatusCode, nil
}

// nodeFromJSON builds a Node from one metadata object. Paths are
// normalized here so the rest of the client never sees a denormalized
// server path.
func nodeFromJSON(v gjson.Result) *files.Node {
	folder := v.Get("folder").Bool()

	n := &files.Node{
		RemoteID:         v.Get("id").String(),
		RemotePath:       files.NormalizeRemotePath(v.Get("path").String(), folder),
		Folder:           folder,
		MimeType:         v.Get("mime_type").String(),
		Length:           v.Get("length").Int(),
		ModifiedAt:       v.Get("mtime").Int(),
		Etag:             etagUnquote(v.Get("etag").String()),
		SharedByLink:     v.Get("shared_by_link").Bool(),
		SharedWithSharee: v.Get("shared_with_sharee").Bool(),
	}

	if folder {
		n.MimeType = "DIR"
	}

	return n
}

// etagQuote wraps a bare token in the double quotes HTTP validators use.
func etagQuote(token string) string {
	if len(token) >= 2 && token[0] == '"' {
		return token
	}

	return `"` + token + `"`
}

// etagUnquote strips validator quotes and any weak prefix from a server
// etag so tokens compare equal regardless of transport dressing.
func etagUnquote(etag string) string {
	if len(etag) >= 2 && etag[0] == 'W' && etag[1] == '/' {
		etag = etag[2:]
	}

	if len(etag) >= 2 && etag[0] == '"' && etag[len(etag)-1] == '"' {
		etag = etag[1 : len(etag)-1]
	}

	return etag
}
