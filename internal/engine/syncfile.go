package engine

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/skydrift/skydrift/internal/files"
	"github.com/skydrift/skydrift/internal/remote"
	"github.com/skydrift/skydrift/internal/transfer"
)

// Repository is the slice of the on-device store the engine needs.
// *storage.Store satisfies it.
type Repository interface {
	GetByPath(account, remotePath string) (*files.Node, error)
	GetChildren(account string, folder *files.Node) ([]*files.Node, error)
	SaveFolderBatch(account string, folder *files.Node, children, orphans []*files.Node) error
	SaveConflictMarker(account string, node *files.Node, etag string) error
	RemoveFolder(account string, folder *files.Node, cascade, deleteLocalCopies bool) error
	LastUploadStatus(account, remotePath string) (files.UploadStatus, error)
}

// TransferRequester enqueues content transfers. Requests are
// fire-and-forget; outcomes surface on the event bus. *transfer.Queue
// satisfies it.
type TransferRequester interface {
	RequestDownload(node *files.Node, account string)
	RequestUpload(node *files.Node, account string, behaviour transfer.LocalBehaviour)
}

// FileSynchronizer classifies one file via Decide and carries out the
// bookkeeping the decision implies: conflict markers, etag stamps and
// transfer requests. Content never moves here.
type FileSynchronizer struct {
	account  string
	local    *files.Node
	remote   *files.Node
	pushOnly bool

	repo      Repository
	fetcher   remote.FileFetcher
	transfers TransferRequester
	logger    *slog.Logger
}

// NewFileSynchronizer prepares a single-file pass. local is the cached
// row (nil when never cached), remoteNode is fresh server metadata (nil
// when unknown; it is fetched on demand unless pushOnly asserts the
// server side unchanged).
func NewFileSynchronizer(
	account string,
	local, remoteNode *files.Node,
	pushOnly bool,
	repo Repository,
	fetcher remote.FileFetcher,
	transfers TransferRequester,
	logger *slog.Logger,
) *FileSynchronizer {
	return &FileSynchronizer{
		account:   account,
		local:     local,
		remote:    remoteNode,
		pushOnly:  pushOnly,
		repo:      repo,
		fetcher:   fetcher,
		transfers: transfers,
		logger:    logger,
	}
}

// Run executes the pass and reports the outcome as a result code.
// ResultSyncConflict means a marker was recorded; everything else that
// is not a success code means the pass could not classify the file.
func (s *FileSynchronizer) Run(ctx context.Context) files.ResultCode {
	local, remoteNode := s.local, s.remote

	hasLocalCopy := local != nil && local.Down() && fileExists(local.StoragePath)

	// The decision needs the server side only when there is something
	// local to compare it against.
	if hasLocalCopy && remoteNode == nil && !s.pushOnly {
		fetched, err := s.fetcher.FetchFile(ctx, local.RemotePath)
		if err != nil {
			code := remote.ResultCodeFor(err)
			s.logger.Warn("fetching remote file metadata",
				slog.String("path", local.RemotePath),
				slog.String("result", code.String()),
				slog.String("error", err.Error()),
			)

			return code
		}

		fetched.LastSyncProps = time.Now().UnixMilli()
		remoteNode = fetched
	}

	decision := Decide(local, remoteNode, hasLocalCopy, s.pushOnly)
	if decision.Node == nil {
		return files.ResultFileNotFound
	}

	if decision.Action == files.ActionConflict {
		if err := s.repo.SaveConflictMarker(s.account, local, remoteNode.Etag); err != nil {
			s.logger.Error("recording conflict marker",
				slog.String("path", local.RemotePath),
				slog.String("error", err.Error()),
			)

			return files.ResultUnknown
		}

		s.logger.Info("conflict detected",
			slog.String("path", local.RemotePath),
			slog.String("remote_etag", remoteNode.Etag),
		)

		return files.ResultSyncConflict
	}

	// Clean pass over a previously conflicted file: wash out the stale
	// marker before acting on the new decision.
	if local != nil && local.InConflict() {
		if err := s.repo.SaveConflictMarker(s.account, local, ""); err != nil {
			s.logger.Warn("clearing conflict marker",
				slog.String("path", local.RemotePath),
				slog.String("error", err.Error()),
			)
		}
	}

	switch decision.Action {
	case files.ActionDownload:
		node := decision.Node
		if remoteNode != nil {
			// The download keeps the local row but adopts the server
			// identity, so a concurrent rename still correlates.
			node.RemoteID = remoteNode.RemoteID
		}

		s.transfers.RequestDownload(node, s.account)

	case files.ActionUpload:
		if s.pushOnly {
			// The server was asserted unchanged, not observed. Stamp the
			// last seen etag so the upload still carries its precondition
			// and an unnoticed remote change fails into a conflict.
			decision.Node.ConflictEtag = decision.Node.Etag
		}

		s.transfers.RequestUpload(decision.Node, s.account, transfer.BehaviourKeep)

	case files.ActionNone, files.ActionConflict:
		// Conflict handled above; nothing to do on a no-op.
	}

	return files.ResultOK
}

func fileExists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && !info.IsDir()
}
