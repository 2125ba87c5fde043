package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skydrift/skydrift/internal/files"
)

const listingBody = `{
	"folder": {"id": "d100", "path": "/Photos", "folder": true, "etag": "\"tree-9\"", "mtime": 1700000000000},
	"children": [
		{"id": "f101", "path": "/Photos/beach.jpg", "folder": false, "mime_type": "image/jpeg", "length": 2048, "etag": "\"img-3\"", "mtime": 1700000100000, "shared_by_link": true},
		{"id": "d102", "path": "/Photos/2024", "folder": true, "etag": "\"tree-4\"", "mtime": 1700000200000}
	]
}`

func TestListFolder(t *testing.T) {
	var gotAuth, gotIfNoneMatch string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotIfNoneMatch = r.Header.Get("If-None-Match")

		assert.Equal(t, "/api/v1/folders", r.URL.Path)
		assert.Equal(t, "/Photos/", r.URL.Query().Get("path"))

		w.Write([]byte(listingBody))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "ana@example.com", "app-password")

	listing, err := c.ListFolder(context.Background(), "/Photos/", "tree-8")
	require.NoError(t, err)

	assert.NotEmpty(t, gotAuth)
	assert.Equal(t, `"tree-8"`, gotIfNoneMatch)

	require.NotNil(t, listing.Folder)
	assert.Equal(t, "d100", listing.Folder.RemoteID)
	assert.Equal(t, "/Photos/", listing.Folder.RemotePath)
	assert.True(t, listing.Folder.Folder)
	assert.Equal(t, "DIR", listing.Folder.MimeType)
	assert.Equal(t, "tree-9", listing.Folder.Etag)

	require.Len(t, listing.Children, 2)
	assert.Equal(t, "/Photos/beach.jpg", listing.Children[0].RemotePath)
	assert.Equal(t, "img-3", listing.Children[0].Etag)
	assert.Equal(t, int64(2048), listing.Children[0].Length)
	assert.True(t, listing.Children[0].SharedByLink)
	assert.Equal(t, "/Photos/2024/", listing.Children[1].RemotePath)
	assert.True(t, listing.Children[1].Folder)
}

func TestListFolderNotModified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "u", "p")

	_, err := c.ListFolder(context.Background(), "/Photos/", "tree-9")
	assert.ErrorIs(t, err, ErrNotModified)
}

func TestListFolderErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"not found", http.StatusNotFound, ErrNotFound},
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", http.StatusForbidden, ErrUnauthorized},
		{"server error", http.StatusInternalServerError, ErrHostUnavailable},
		{"bad gateway", http.StatusBadGateway, ErrHostUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "u", "p")

			_, err := c.ListFolder(context.Background(), "/Photos/", "")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestListFolderHostDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := NewClient(srv.URL, "u", "p")

	_, err := c.ListFolder(context.Background(), "/", "")
	assert.ErrorIs(t, err, ErrHostUnavailable)
}

func TestFetchFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/files", r.URL.Path)
		w.Write([]byte(`{"file": {"id": "f7", "path": "/notes.txt", "etag": "W/\"weak-1\"", "length": 12, "mtime": 5}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "u", "p")

	n, err := c.FetchFile(context.Background(), "/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "f7", n.RemoteID)
	assert.Equal(t, "weak-1", n.Etag)
	assert.False(t, n.Folder)
}

func TestResultCodeFor(t *testing.T) {
	tests := []struct {
		err  error
		want files.ResultCode
	}{
		{nil, files.ResultOK},
		{ErrNotModified, files.ResultNotModified},
		{ErrNotFound, files.ResultFileNotFound},
		{ErrUnauthorized, files.ResultUnauthorized},
		{ErrHostUnavailable, files.ResultHostUnavailable},
		{context.Canceled, files.ResultCancelled},
		{assert.AnError, files.ResultUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ResultCodeFor(tt.err))
	}
}

func TestEtagQuoteUnquote(t *testing.T) {
	assert.Equal(t, `"abc"`, etagQuote("abc"))
	assert.Equal(t, `"abc"`, etagQuote(`"abc"`))
	assert.Equal(t, "abc", etagUnquote(`"abc"`))
	assert.Equal(t, "abc", etagUnquote(`W/"abc"`))
	assert.Equal(t, "abc", etagUnquote("abc"))
}
