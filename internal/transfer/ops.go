// Package transfer moves file content between device and server. The
// reconciliation engine only enqueues requests here; execution is
// asynchronous and completion is reported through the event bus, never
// back to the caller.
package transfer

import "github.com/skydrift/skydrift/internal/files"

// OpKind tags an operation variant. One executor switch dispatches on it;
// there is no operation class hierarchy.
type OpKind int

const (
	OpDownload OpKind = iota
	OpUpload
	OpRemove
	OpCreateFolder
	OpMove
	OpCopy
)

func (k OpKind) String() string {
	switch k {
	case OpDownload:
		return "download"
	case OpUpload:
		return "upload"
	case OpRemove:
		return "remove"
	case OpCreateFolder:
		return "create_folder"
	case OpMove:
		return "move"
	case OpCopy:
		return "copy"
	default:
		return "unknown"
	}
}

// LocalBehaviour says what happens to the source copy after an upload.
type LocalBehaviour int

const (
	// BehaviourKeep leaves the local copy where it is.
	BehaviourKeep LocalBehaviour = iota

	// BehaviourMove relocates the copy into the managed tree after a
	// successful upload.
	BehaviourMove
)

// DownloadParams carries everything a download needs.
type DownloadParams struct {
	Node    *files.Node
	Account string
}

// UploadParams carries everything an upload needs.
type UploadParams struct {
	Node      *files.Node
	Account   string
	Behaviour LocalBehaviour

	// ForceOverwrite skips the etag precondition. Only set by explicit
	// user choices ("keep local" conflict resolution), never by the
	// automatic engine.
	ForceOverwrite bool
}

// RemoveParams removes a remote file or folder.
type RemoveParams struct {
	Node    *files.Node
	Account string
}

// CreateFolderParams creates a remote folder.
type CreateFolderParams struct {
	RemotePath string
	Account    string
}

// MoveParams renames or moves a remote node.
type MoveParams struct {
	Node       *files.Node
	TargetPath string
	Account    string
}

// CopyParams copies a remote node.
type CopyParams struct {
	Node       *files.Node
	TargetPath string
	Account    string
}

// Operation is one queued transfer request: a kind plus exactly one
// non-nil parameter struct matching it.
type Operation struct {
	Kind OpKind

	Download     *DownloadParams
	Upload       *UploadParams
	Remove       *RemoveParams
	CreateFolder *CreateFolderParams
	Move         *MoveParams
	Copy         *CopyParams
}

// remotePath returns the path the operation acts on, for logging and
// event emission.
func (op Operation) remotePath() string {
	switch op.Kind {
	case OpDownload:
		return op.Download.Node.RemotePath
	case OpUpload:
		return op.Upload.Node.RemotePath
	case OpRemove:
		return op.Remove.Node.RemotePath
	case OpCreateFolder:
		return op.CreateFolder.RemotePath
	case OpMove:
		return op.Move.Node.RemotePath
	case OpCopy:
		return op.Copy.Node.RemotePath
	default:
		return ""
	}
}

// account returns the account the operation belongs to.
func (op Operation) account() string {
	switch op.Kind {
	case OpDownload:
		return op.Download.Account
	case OpUpload:
		return op.Upload.Account
	case OpRemove:
		return op.Remove.Account
	case OpCreateFolder:
		return op.CreateFolder.Account
	case OpMove:
		return op.Move.Account
	case OpCopy:
		return op.Copy.Account
	default:
		return ""
	}
}
