package files

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNodeName(t *testing.T) {
	tests := []struct {
		path   string
		folder bool
		want   string
	}{
		{"/", true, "/"},
		{"/Photos/", true, "Photos"},
		{"/Photos/2024/", true, "2024"},
		{"/Photos/beach.jpg", false, "beach.jpg"},
		{"/notes.txt", false, "notes.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			n := &Node{RemotePath: tt.path, Folder: tt.folder}
			assert.Equal(t, tt.want, n.Name())
		})
	}
}

func TestParentRemotePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/", "/"},
		{"/Photos/", "/"},
		{"/Photos/2024/", "/Photos/"},
		{"/Photos/beach.jpg", "/Photos/"},
		{"/notes.txt", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, ParentRemotePath(tt.path))
		})
	}
}

func TestIdentityKey(t *testing.T) {
	withID := &Node{RemoteID: "00000042oc", RemotePath: "/a.txt"}
	assert.Equal(t, "00000042oc", withID.IdentityKey())

	legacy := &Node{RemotePath: "/a.txt"}
	assert.Equal(t, "/a.txt", legacy.IdentityKey())
}

func TestCopyLocalProperties(t *testing.T) {
	local := &Node{
		LocalID:          7,
		ParentID:         1,
		RemoteID:         "id7",
		RemotePath:       "/doc.md",
		Etag:             "local-etag",
		TreeEtag:         "tree",
		StoragePath:      "/data/acc/doc.md",
		LocalModifiedAt:  111,
		LastSyncData:     222,
		ConflictEtag:     "conflicted",
		SharedByLink:     true,
		AvailableOffline: true,
	}

	merged := &Node{
		RemoteID:   "id7",
		RemotePath: "/doc.md",
		Etag:       "server-etag",
		ModifiedAt: 999,
	}
	merged.CopyLocalProperties(local)

	assert.Equal(t, int64(7), merged.LocalID)
	assert.Equal(t, int64(1), merged.ParentID)
	assert.Equal(t, "/data/acc/doc.md", merged.StoragePath)
	assert.Equal(t, int64(111), merged.LocalModifiedAt)
	assert.Equal(t, int64(222), merged.LastSyncData)
	assert.Equal(t, "tree", merged.TreeEtag)
	assert.Equal(t, "conflicted", merged.ConflictEtag)
	assert.True(t, merged.SharedByLink)
	assert.True(t, merged.AvailableOffline)

	// Server-authoritative fields stay as fetched.
	assert.Equal(t, "server-etag", merged.Etag)
	assert.Equal(t, int64(999), merged.ModifiedAt)
}

func TestResultCodeIsSuccess(t *testing.T) {
	assert.True(t, ResultOK.IsSuccess())
	assert.True(t, ResultNotModified.IsSuccess())
	assert.False(t, ResultSyncConflict.IsSuccess())
	assert.False(t, ResultCancelled.IsSuccess())
	assert.False(t, ResultHostUnavailable.IsSuccess())
}
