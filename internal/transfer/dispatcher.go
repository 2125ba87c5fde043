package transfer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/skydrift/skydrift/internal/events"
	"github.com/skydrift/skydrift/internal/files"
	"github.com/skydrift/skydrift/internal/remote"
)

// opQueueSize buffers pending operations so the engine can enqueue a
// whole folder's worth of requests without waiting on transfers.
const opQueueSize = 256

// StatusRecorder persists the outcome of upload attempts so later passes
// can skip files blocked on user action. *storage.Store satisfies it.
type StatusRecorder interface {
	SetLastUploadStatus(account, remotePath string, status files.UploadStatus) error
}

// Queue is the transfer dispatcher: an operation channel drained by a
// single worker. Requests are fire-and-forget; progress and completion go
// out on the event bus.
type Queue struct {
	ops      chan Operation
	exec     Transferer
	statuses StatusRecorder
	bus      *events.Bus
	logger   *slog.Logger
}

// NewQueue creates a dispatcher around a Transferer.
func NewQueue(exec Transferer, statuses StatusRecorder, bus *events.Bus, logger *slog.Logger) *Queue {
	return &Queue{
		ops:      make(chan Operation, opQueueSize),
		exec:     exec,
		statuses: statuses,
		bus:      bus,
		logger:   logger,
	}
}

// RequestDownload enqueues a download for a node.
func (q *Queue) RequestDownload(node *files.Node, account string) {
	q.Request(Operation{Kind: OpDownload, Download: &DownloadParams{Node: node, Account: account}})
}

// RequestUpload enqueues an upload for a node.
func (q *Queue) RequestUpload(node *files.Node, account string, behaviour LocalBehaviour) {
	q.Request(Operation{Kind: OpUpload, Upload: &UploadParams{Node: node, Account: account, Behaviour: behaviour}})
}

// Request enqueues an arbitrary operation.
func (q *Queue) Request(op Operation) {
	q.ops <- op
}

// Pending returns the number of queued operations.
func (q *Queue) Pending() int {
	return len(q.ops)
}

// Run drains the queue until ctx is cancelled. One operation executes at
// a time; transfers already started are allowed to finish their HTTP call
// (bounded by the per-transfer timeout) but no new one starts after
// cancellation.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case op := <-q.ops:
			q.execute(ctx, op)
		}
	}
}

func (q *Queue) execute(ctx context.Context, op Operation) {
	q.bus.Publish(events.Event{
		Kind:       events.KindTransferStarted,
		Account:    op.account(),
		RemotePath: op.remotePath(),
	})

	var err error

	switch op.Kind {
	case OpDownload:
		err = q.exec.Download(ctx, *op.Download)
	case OpUpload:
		err = q.exec.Upload(ctx, *op.Upload)
		q.recordUploadStatus(*op.Upload, err)
	case OpRemove:
		err = q.exec.Remove(ctx, *op.Remove)
	case OpCreateFolder:
		err = q.exec.CreateFolder(ctx, *op.CreateFolder)
	case OpMove:
		err = q.exec.Move(ctx, *op.Move)
	case OpCopy:
		err = q.exec.Copy(ctx, *op.Copy)
	default:
		q.logger.Warn("unknown transfer operation", slog.Int("kind", int(op.Kind)))
		return
	}

	if err != nil {
		q.logger.Warn("transfer failed",
			slog.String("op", op.Kind.String()),
			slog.String("path", op.remotePath()),
			slog.String("error", err.Error()),
		)
	}

	q.bus.Publish(events.Event{
		Kind:       events.KindTransferFinished,
		Account:    op.account(),
		RemotePath: op.remotePath(),
		Success:    err == nil,
	})
}

func (q *Queue) recordUploadStatus(p UploadParams, err error) {
	status := classifyUploadError(err)

	if recErr := q.statuses.SetLastUploadStatus(p.Account, p.Node.RemotePath, status); recErr != nil {
		q.logger.Warn("recording upload status",
			slog.String("path", p.Node.RemotePath),
			slog.String("error", recErr.Error()),
		)
	}
}

// classifyUploadError maps an upload failure onto the persisted status
// taxonomy. Statuses that require user action block the file from
// automatic re-sync until the user intervenes.
func classifyUploadError(err error) files.UploadStatus {
	switch {
	case err == nil:
		return files.UploadSucceeded
	case errors.Is(err, ErrRemoteChanged):
		return files.UploadConflictError
	case errors.Is(err, remote.ErrUnauthorized):
		return files.UploadCredentialError
	case errors.Is(err, remote.ErrNotFound):
		return files.UploadFileNotFound
	case errors.Is(err, remote.ErrHostUnavailable):
		return files.UploadNetworkError
	default:
		return files.UploadFileError
	}
}
