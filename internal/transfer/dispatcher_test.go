package transfer

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skydrift/skydrift/internal/events"
	"github.com/skydrift/skydrift/internal/files"
	"github.com/skydrift/skydrift/internal/remote"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeTransferer records executed operations and returns scripted errors.
type fakeTransferer struct {
	mu        sync.Mutex
	executed  []OpKind
	uploadErr error
}

func (f *fakeTransferer) record(k OpKind) {
	f.mu.Lock()
	f.executed = append(f.executed, k)
	f.mu.Unlock()
}

func (f *fakeTransferer) ops() []OpKind {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]OpKind(nil), f.executed...)
}

func (f *fakeTransferer) Download(context.Context, DownloadParams) error {
	f.record(OpDownload)
	return nil
}

func (f *fakeTransferer) Upload(context.Context, UploadParams) error {
	f.record(OpUpload)
	return f.uploadErr
}

func (f *fakeTransferer) Remove(context.Context, RemoveParams) error {
	f.record(OpRemove)
	return nil
}

func (f *fakeTransferer) CreateFolder(context.Context, CreateFolderParams) error {
	f.record(OpCreateFolder)
	return nil
}

func (f *fakeTransferer) Move(context.Context, MoveParams) error {
	f.record(OpMove)
	return nil
}

func (f *fakeTransferer) Copy(context.Context, CopyParams) error {
	f.record(OpCopy)
	return nil
}

type fakeRecorder struct {
	mu       sync.Mutex
	statuses map[string]files.UploadStatus
}

func (f *fakeRecorder) SetLastUploadStatus(_, remotePath string, status files.UploadStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.statuses == nil {
		f.statuses = make(map[string]files.UploadStatus)
	}

	f.statuses[remotePath] = status

	return nil
}

func (f *fakeRecorder) status(remotePath string) files.UploadStatus {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.statuses[remotePath]
}

func drainUntil(t *testing.T, ch chan events.Event, kind events.Kind) events.Event {
	t.Helper()

	for {
		select {
		case e := <-ch:
			if e.Kind == kind {
				return e
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("no %s event", kind)
		}
	}
}

func TestQueueExecutesAndPublishes(t *testing.T) {
	exec := &fakeTransferer{}
	rec := &fakeRecorder{}
	bus := events.NewBus()

	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	q := NewQueue(exec, rec, bus, quietLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go q.Run(ctx)

	node := &files.Node{RemotePath: "/a.txt", StoragePath: "/dev/null"}
	q.RequestDownload(node, "acc")

	started := drainUntil(t, sub, events.KindTransferStarted)
	assert.Equal(t, "/a.txt", started.RemotePath)
	assert.Equal(t, "acc", started.Account)

	finished := drainUntil(t, sub, events.KindTransferFinished)
	assert.True(t, finished.Success)
	assert.Equal(t, []OpKind{OpDownload}, exec.ops())
}

func TestQueueRecordsUploadSuccess(t *testing.T) {
	exec := &fakeTransferer{}
	rec := &fakeRecorder{}
	bus := events.NewBus()

	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	q := NewQueue(exec, rec, bus, quietLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go q.Run(ctx)

	q.RequestUpload(&files.Node{RemotePath: "/u.txt"}, "acc", BehaviourKeep)

	finished := drainUntil(t, sub, events.KindTransferFinished)
	assert.True(t, finished.Success)
	assert.Equal(t, files.UploadSucceeded, rec.status("/u.txt"))
}

func TestQueueRecordsUploadConflict(t *testing.T) {
	exec := &fakeTransferer{uploadErr: ErrRemoteChanged}
	rec := &fakeRecorder{}
	bus := events.NewBus()

	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	q := NewQueue(exec, rec, bus, quietLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go q.Run(ctx)

	q.RequestUpload(&files.Node{RemotePath: "/c.txt"}, "acc", BehaviourKeep)

	finished := drainUntil(t, sub, events.KindTransferFinished)
	assert.False(t, finished.Success)
	assert.Equal(t, files.UploadConflictError, rec.status("/c.txt"))
	assert.True(t, rec.status("/c.txt").RequiresUserAction())
}

func TestClassifyUploadError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want files.UploadStatus
	}{
		{"nil", nil, files.UploadSucceeded},
		{"precondition", ErrRemoteChanged, files.UploadConflictError},
		{"credentials", remote.ErrUnauthorized, files.UploadCredentialError},
		{"not found", remote.ErrNotFound, files.UploadFileNotFound},
		{"host down", remote.ErrHostUnavailable, files.UploadNetworkError},
		{"other", assert.AnError, files.UploadFileError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyUploadError(tt.err))
		})
	}
}

func TestQueueStopsOnCancel(t *testing.T) {
	exec := &fakeTransferer{}
	q := NewQueue(exec, &fakeRecorder{}, events.NewBus(), quietLogger)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		q.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}

	// Requests after shutdown stay queued, nothing executes.
	q.RequestDownload(&files.Node{RemotePath: "/late.txt"}, "acc")
	require.Equal(t, 1, q.Pending())
	assert.Empty(t, exec.ops())
}
