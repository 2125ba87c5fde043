// Package engine is the reconciliation core: it compares the cached tree
// against the server's tree, decides per-file actions, records conflicts
// and fans out transfer requests. It never moves content itself.
package engine

import "github.com/skydrift/skydrift/internal/files"

// Decide classifies one file and returns the action to take. Pure: no
// I/O, no side effects. The caller performs marker writes and transfer
// requests based on the decision.
//
// Parameters:
//   - local: the repository row, or nil when the file was never cached
//   - remote: freshly fetched server metadata, or nil in push-only mode
//   - hasLocalCopy: whether a materialized copy actually exists on disk
//     (the storage path is registered and the file is still there)
//   - pushOnly: the caller asserts the server side is unchanged; no
//     server comparison is computed
func Decide(local, remote *files.Node, hasLocalCopy, pushOnly bool) files.SyncDecision {
	// Never cached: the whole file is new to this device.
	if local == nil {
		return files.SyncDecision{Action: files.ActionDownload, Node: remote}
	}

	// No local copy: easy decision, nothing to compare.
	if !hasLocalCopy {
		return files.SyncDecision{Action: files.ActionDownload, Node: local}
	}

	serverChanged := false

	switch {
	case pushOnly:
		// asserted unchanged
	case local.Etag == "":
		// Legacy row predating etag tracking: fall back to comparing
		// the server mtime against the last data sync.
		serverChanged = remote.ModifiedAt != local.LastSyncData
	default:
		serverChanged = remote.Etag != local.Etag
	}

	localChanged := local.LocalModifiedAt > local.LastSyncData

	switch {
	case localChanged && serverChanged:
		return files.SyncDecision{Action: files.ActionConflict, Node: local}

	case localChanged:
		return files.SyncDecision{Action: files.ActionUpload, Node: local}

	case serverChanged:
		return files.SyncDecision{Action: files.ActionDownload, Node: local}

	default:
		return files.SyncDecision{Action: files.ActionNone, Node: local}
	}
}
