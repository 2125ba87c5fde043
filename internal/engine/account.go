package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/skydrift/skydrift/internal/files"
)

const (
	// maxTraversalDepth bounds a full-account walk. A listing that keeps
	// producing deeper folders past this point is misbehaving.
	maxTraversalDepth = 100

	// defaultFolderWorkers is how many folders of one depth level
	// reconcile concurrently during a full-account pass.
	defaultFolderWorkers = 4
)

// AccountSyncer drives reconciliation across a whole account. The full
// pass is an iterative breadth-first worklist over the folder tree, with
// each folder visited at most once per pass, keyed by server identity.
// Folders whose subtree token still matches are visited push-only.
type AccountSyncer struct {
	account    string
	reconciler *FolderReconciler
	logger     *slog.Logger
	workers    int

	mu       sync.Mutex
	inflight map[string]bool
	visited  map[string]bool
	detached sync.WaitGroup
}

// NewAccountSyncer creates a driver for one account.
func NewAccountSyncer(account string, reconciler *FolderReconciler, logger *slog.Logger) *AccountSyncer {
	return &AccountSyncer{
		account:    account,
		reconciler: reconciler,
		logger:     logger,
		workers:    defaultFolderWorkers,
		inflight:   make(map[string]bool),
		visited:    make(map[string]bool),
	}
}

type folderWork struct {
	remotePath string
	pushOnly   bool
}

// SyncAll reconciles the whole account, starting at the root. Folder
// failures are logged and counted but do not stop the walk; rejected
// credentials and cancellation do.
func (s *AccountSyncer) SyncAll(ctx context.Context) error {
	syncTime := time.Now().UnixMilli()
	started := time.Now()

	visited := map[string]bool{files.RootPath: true}
	frontier := []folderWork{{remotePath: files.RootPath}}

	var failed int

	for depth := 0; len(frontier) > 0; depth++ {
		if depth > maxTraversalDepth {
			s.logger.Warn("account walk exceeded depth bound, stopping",
				slog.Int("depth", depth),
				slog.Int("unvisited", len(frontier)),
			)

			break
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.workers)

		var mu sync.Mutex

		var next []folderWork

		for _, w := range frontier {
			w := w
			g.Go(func() error {
				res := s.reconciler.Reconcile(gctx, ReconcileRequest{
					Account:         s.account,
					RemotePath:      w.remotePath,
					SyncTime:        syncTime,
					PushOnly:        w.pushOnly,
					SyncContents:    true,
					FullAccountPass: true,
				})

				switch res.Code {
				case files.ResultCancelled:
					return context.Cause(gctx)
				case files.ResultUnauthorized:
					return fmt.Errorf("reconciling %s: credentials rejected", w.remotePath)
				}

				if !res.IsSuccess() {
					mu.Lock()
					failed++
					mu.Unlock()

					return nil
				}

				mu.Lock()
				defer mu.Unlock()

				for _, pending := range res.FoldersToVisit {
					key := pending.Node.IdentityKey()
					if visited[key] {
						continue
					}

					visited[key] = true

					next = append(next, folderWork{
						remotePath: pending.Node.RemotePath,
						pushOnly:   !pending.Changed,
					})
				}

				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}

		frontier = next
	}

	s.logger.Info("account pass finished",
		slog.String("account", s.account),
		slog.Int("folders_visited", len(visited)),
		slog.Int("folders_failed", failed),
		slog.String("took", time.Since(started).Round(time.Millisecond).String()),
	)

	return nil
}

// SyncFolder runs a user-triggered pass over one folder, descending into
// changed subfolders through the scheduler, and waits for the detached
// passes to drain before returning.
func (s *AccountSyncer) SyncFolder(ctx context.Context, remotePath string, pushOnly bool) *files.ReconcileResult {
	// Each run gets a fresh visited set; identities seen by an earlier
	// run are fair game again.
	s.mu.Lock()
	s.visited = make(map[string]bool)
	s.mu.Unlock()

	res := s.reconciler.Reconcile(ctx, ReconcileRequest{
		Account:      s.account,
		RemotePath:   remotePath,
		PushOnly:     pushOnly,
		SyncContents: true,
	})

	s.Wait()

	return res
}

// Wait blocks until every detached folder pass has drained. Called on
// shutdown so in-flight passes finish their committed writes.
func (s *AccountSyncer) Wait() {
	s.detached.Wait()
}

// ScheduleFolder implements FolderScheduler: it runs a detached pass over
// a subfolder, deduplicating paths already in flight. Each folder
// identity is descended into at most once per run and never past the
// depth bound, so a cyclic server listing cannot spawn passes without
// end.
func (s *AccountSyncer) ScheduleFolder(ctx context.Context, account, remotePath, remoteID string, pushOnly bool) {
	if pathDepth(remotePath) > maxTraversalDepth {
		s.logger.Warn("refusing folder pass past depth bound", slog.String("path", remotePath))
		return
	}

	key := remoteID
	if key == "" {
		key = remotePath
	}

	s.mu.Lock()
	if s.inflight[remotePath] || s.visited[key] {
		s.mu.Unlock()
		return
	}

	s.visited[key] = true
	s.inflight[remotePath] = true
	s.mu.Unlock()

	s.detached.Add(1)

	go func() {
		defer s.detached.Done()
		defer func() {
			s.mu.Lock()
			delete(s.inflight, remotePath)
			s.mu.Unlock()
		}()

		s.reconciler.Reconcile(ctx, ReconcileRequest{
			Account:      account,
			RemotePath:   remotePath,
			PushOnly:     pushOnly,
			SyncContents: true,
		})
	}()
}

// pathDepth counts the folder levels of a remote path. The root is depth
// zero.
func pathDepth(remotePath string) int {
	return strings.Count(strings.TrimSuffix(remotePath, files.PathSeparator), files.PathSeparator)
}
