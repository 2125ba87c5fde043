// Package files holds the data model shared by the reconciliation engine,
// the repository and the transfer layer: file/folder nodes, sync decisions
// and reconciliation results.
package files

import (
	"path"
	"strings"
)

// PathSeparator terminates every folder's remote path. A remote path ends
// with it if and only if the node is a folder.
const PathSeparator = "/"

// RootPath is the remote path of the account root. It always exists in the
// repository.
const RootPath = "/"

// Node is one file or folder as the client knows it: authoritative server
// properties merged with local-only state. Instances are built from remote
// listing entries and enriched with the matching repository row before
// being persisted again.
type Node struct {
	// LocalID is the repository-assigned key. Zero means the node has
	// never been persisted.
	LocalID int64 `json:"local_id"`

	// ParentID is the LocalID of the parent folder node.
	ParentID int64 `json:"parent_id"`

	// RemoteID is the server-assigned identity, stable across renames.
	// Empty on legacy rows that predate ID tracking.
	RemoteID string `json:"remote_id"`

	// RemotePath is the current logical path, unique within an account.
	// Always prefixed by the parent's RemotePath.
	RemotePath string `json:"remote_path"`

	Folder   bool   `json:"folder"`
	MimeType string `json:"mime_type"`
	Length   int64  `json:"length"`

	// ModifiedAt is the server-reported modification time in Unix
	// milliseconds.
	ModifiedAt int64 `json:"modified_at"`

	// Etag is the server change token for this node.
	Etag string `json:"etag"`

	// TreeEtag summarizes the whole subtree below a folder. It is only
	// written when a reconciliation pass visited every descendant, so a
	// stale value is always safe: it can cause a redundant expansion but
	// never a skipped one.
	TreeEtag string `json:"tree_etag"`

	// StoragePath is where the content lives on the device. Empty means
	// not materialized. Never trusted blindly: before concluding a file
	// has no local copy, the engine probes the default save path.
	StoragePath string `json:"storage_path"`

	// LocalModifiedAt is the device-observed modification time of the
	// materialized copy, Unix milliseconds.
	LocalModifiedAt int64 `json:"local_modified_at"`

	// LastSyncProps and LastSyncData are the timestamps of the last
	// property and content synchronizations, Unix milliseconds.
	LastSyncProps int64 `json:"last_sync_props"`
	LastSyncData  int64 `json:"last_sync_data"`

	// ConflictEtag, when set, records the remote etag observed at the
	// moment a local/remote divergence was detected. Local content must
	// not be overwritten while it is set.
	ConflictEtag string `json:"conflict_etag,omitempty"`

	SharedByLink     bool `json:"shared_by_link"`
	SharedWithSharee bool `json:"shared_with_sharee"`
	AvailableOffline bool `json:"available_offline"`
}

// IsRoot reports whether the node is the account root folder.
func (n *Node) IsRoot() bool {
	return n.RemotePath == RootPath
}

// Down reports whether a local copy is registered for the node. Whether
// that copy still exists on disk is a separate check.
func (n *Node) Down() bool {
	return n.StoragePath != ""
}

// InConflict reports whether the node carries an unresolved conflict marker.
func (n *Node) InConflict() bool {
	return n.ConflictEtag != ""
}

// Name returns the last segment of the remote path.
func (n *Node) Name() string {
	if n.IsRoot() {
		return PathSeparator
	}

	return path.Base(strings.TrimSuffix(n.RemotePath, PathSeparator))
}

// ParentPath returns the remote path of the node's parent folder,
// including the trailing separator.
func (n *Node) ParentPath() string {
	return ParentRemotePath(n.RemotePath)
}

// CopyLocalProperties carries the local-only state of a repository row
// onto a node freshly built from server data. Server-authoritative fields
// are left untouched.
func (n *Node) CopyLocalProperties(local *Node) {
	n.LocalID = local.LocalID
	n.ParentID = local.ParentID
	n.StoragePath = local.StoragePath
	n.LocalModifiedAt = local.LocalModifiedAt
	n.LastSyncData = local.LastSyncData
	n.TreeEtag = local.TreeEtag
	n.ConflictEtag = local.ConflictEtag
	n.SharedByLink = local.SharedByLink
	n.SharedWithSharee = local.SharedWithSharee
	n.AvailableOffline = local.AvailableOffline
}

// IdentityKey returns the key used to correlate local rows with remote
// entries: the remote ID when present, the remote path otherwise.
func (n *Node) IdentityKey() string {
	if n.RemoteID != "" {
		return n.RemoteID
	}

	return n.RemotePath
}

// ParentRemotePath returns the parent folder path of a remote path,
// with the trailing separator. The root is its own parent.
func ParentRemotePath(remotePath string) string {
	trimmed := strings.TrimSuffix(remotePath, PathSeparator)
	if trimmed == "" {
		return RootPath
	}

	parent := path.Dir(trimmed)
	if parent == PathSeparator {
		return RootPath
	}

	return parent + PathSeparator
}
