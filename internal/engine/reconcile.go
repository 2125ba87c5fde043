package engine

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/skydrift/skydrift/internal/events"
	"github.com/skydrift/skydrift/internal/files"
	"github.com/skydrift/skydrift/internal/remote"
)

// FolderScheduler queues detached passes over subfolders discovered
// during a folder sync. remoteID carries the folder's server identity so
// the scheduler can refuse to descend into the same folder twice.
// AccountSyncer satisfies it.
type FolderScheduler interface {
	ScheduleFolder(ctx context.Context, account, remotePath, remoteID string, pushOnly bool)
}

// ReconcileRequest describes one folder pass.
type ReconcileRequest struct {
	Account    string
	RemotePath string

	// SyncTime stamps LastSyncProps on every row the pass touches. Zero
	// means now; a full-account run shares one stamp across all folders.
	SyncTime int64

	// PushOnly skips the remote listing entirely: only local edits are
	// considered, for pushing ahead of a metered or offline window.
	PushOnly bool

	// SyncContents extends the pass from metadata to file content.
	// Available-offline files sync their content regardless.
	SyncContents bool

	// FullAccountPass collects subfolders into the result's worklist
	// instead of dispatching them to the scheduler.
	FullAccountPass bool
}

// ReconcilerDeps are the collaborators a FolderReconciler needs.
// Scheduler and Filter may be nil; the rest are required.
type ReconcilerDeps struct {
	Repo      Repository
	Lister    remote.Lister
	Fetcher   remote.FileFetcher
	Transfers TransferRequester
	Scheduler FolderScheduler
	Filter    *Filter
	Bus       *events.Bus
	SaveRoot  string
	Logger    *slog.Logger
}

// FolderReconciler brings one cached folder in line with the server: it
// fetches the remote listing, merges it against the repository rows,
// persists the result in a single batch and fans out per-file content
// syncs. Each pass is self-contained; recursion happens through the
// scheduler or the caller's worklist, never inside the pass.
type FolderReconciler struct {
	repo      Repository
	lister    remote.Lister
	fetcher   remote.FileFetcher
	transfers TransferRequester
	scheduler FolderScheduler
	filter    *Filter
	bus       *events.Bus
	saveRoot  string
	logger    *slog.Logger
}

// NewFolderReconciler creates a reconciler from its dependencies.
func NewFolderReconciler(deps ReconcilerDeps) *FolderReconciler {
	return &FolderReconciler{
		repo:      deps.Repo,
		lister:    deps.Lister,
		fetcher:   deps.Fetcher,
		transfers: deps.Transfers,
		scheduler: deps.Scheduler,
		filter:    deps.Filter,
		bus:       deps.Bus,
		saveRoot:  deps.SaveRoot,
		logger:    deps.Logger,
	}
}

// SetScheduler wires the dispatcher for detached subfolder passes. It is
// separate from construction because the scheduler itself drives this
// reconciler.
func (r *FolderReconciler) SetScheduler(s FolderScheduler) {
	r.scheduler = s
}

// fileToSync is one file queued for the content fan-out. remote is nil
// when the server side is known unchanged.
type fileToSync struct {
	local    *files.Node
	remote   *files.Node
	pushOnly bool
}

type pendingDispatch struct {
	remotePath string
	remoteID   string
	pushOnly   bool
}

// syncPlan is what a merge leaves behind for the later phases of the
// pass: files whose content needs a look, subfolders to descend into.
type syncPlan struct {
	files   []fileToSync
	folders []pendingDispatch
}

// Reconcile runs one folder pass. Cancellation is honored at exactly two
// points: before the remote fetch and before the content fan-out. In
// both cases the returned result carries ResultCancelled and every write
// already committed stays committed.
func (r *FolderReconciler) Reconcile(ctx context.Context, req ReconcileRequest) *files.ReconcileResult {
	res := &files.ReconcileResult{ForgottenLocalFiles: map[string]string{}}

	if req.SyncTime == 0 {
		req.SyncTime = time.Now().UnixMilli()
	}

	if ctx.Err() != nil {
		res.Code = files.ResultCancelled
		return res
	}

	localFolder, err := r.repo.GetByPath(req.Account, req.RemotePath)
	if err != nil {
		r.logger.Error("reading cached folder",
			slog.String("path", req.RemotePath),
			slog.String("error", err.Error()),
		)

		res.Code = files.ResultUnknown

		return res
	}

	if localFolder == nil {
		r.logger.Warn("folder not cached, nothing to reconcile", slog.String("path", req.RemotePath))
		res.Code = files.ResultFileNotFound

		return res
	}

	var plan *syncPlan

	if req.PushOnly {
		plan, err = r.planFromCache(req, localFolder, res)
		if err != nil {
			res.Code = files.ResultUnknown
			return res
		}

		res.Code = files.ResultOK
	} else {
		listing, listErr := r.lister.ListFolder(ctx, req.RemotePath, localFolder.TreeEtag)

		switch {
		case errors.Is(listErr, remote.ErrNotModified):
			// Nothing changed below this folder. Local edits may still
			// need pushing, so the pass degrades to cache-only.
			plan, err = r.planFromCache(req, localFolder, res)
			if err != nil {
				res.Code = files.ResultUnknown
				return res
			}

			res.Code = files.ResultNotModified

		case errors.Is(listErr, remote.ErrNotFound):
			r.removeVanishedFolder(req.Account, localFolder)
			res.Code = files.ResultFileNotFound

			return res

		case listErr != nil:
			res.Code = remote.ResultCodeFor(listErr)
			r.logger.Warn("listing remote folder",
				slog.String("path", req.RemotePath),
				slog.String("result", res.Code.String()),
				slog.String("error", listErr.Error()),
			)

			return res

		default:
			plan, err = r.merge(req, localFolder, listing, res)
			if err != nil {
				r.logger.Error("persisting merged folder",
					slog.String("path", req.RemotePath),
					slog.String("error", err.Error()),
				)

				res.Code = files.ResultUnknown

				return res
			}

			res.Code = files.ResultOK
		}
	}

	if ctx.Err() != nil {
		res.Code = files.ResultCancelled
		return res
	}

	r.syncContents(ctx, req, plan, res)

	if res.Code == files.ResultCancelled {
		return res
	}

	r.dispatchSubfolders(ctx, req, plan)

	r.bus.Publish(events.Event{
		Kind:       events.KindFolderSynced,
		Account:    req.Account,
		RemotePath: req.RemotePath,
		Success:    res.IsSuccess(),
		Conflicts:  res.ConflictsFound,
		Failures:   res.FailedFileSyncs,
	})

	r.logger.Info("folder pass finished",
		slog.String("path", req.RemotePath),
		slog.String("result", res.Code.String()),
		slog.Int("conflicts", res.ConflictsFound),
		slog.Int("failed_files", res.FailedFileSyncs),
	)

	return res
}

// planFromCache builds the sync plan from repository rows alone, for
// push-only passes and not-modified listings.
func (r *FolderReconciler) planFromCache(req ReconcileRequest, folder *files.Node, res *files.ReconcileResult) (*syncPlan, error) {
	children, err := r.repo.GetChildren(req.Account, folder)
	if err != nil {
		return nil, err
	}

	plan := &syncPlan{}

	for _, child := range children {
		r.classify(req, child, nil, res, plan)
	}

	res.Children = children

	return plan, nil
}

// merge reconciles a fresh listing against the cached rows and persists
// the outcome in one repository batch. It returns the plan for the
// content fan-out.
func (r *FolderReconciler) merge(req ReconcileRequest, localFolder *files.Node, listing *remote.Listing, res *files.ReconcileResult) (*syncPlan, error) {
	plan := &syncPlan{}

	updated := *listing.Folder
	updated.CopyLocalProperties(localFolder)
	updated.LastSyncProps = req.SyncTime

	localChildren, err := r.repo.GetChildren(req.Account, localFolder)
	if err != nil {
		return nil, err
	}

	byRemoteID := make(map[string]*files.Node, len(localChildren))
	byPath := make(map[string]*files.Node, len(localChildren))

	for _, c := range localChildren {
		if c.RemoteID != "" {
			byRemoteID[c.RemoteID] = c
		}

		byPath[c.RemotePath] = c
	}

	claimed := make(map[int64]bool)

	var children []*files.Node

	foldersToExpand := 0

	for _, rc := range listing.Children {
		if r.filter != nil && !r.filter.Allow(rc.RemotePath) {
			// Filtered out: the cached row, if any, is neither refreshed
			// nor orphaned. The path simply does not take part.
			if m := byPath[rc.RemotePath]; m != nil {
				claimed[m.LocalID] = true
			}

			if rc.RemoteID != "" {
				if m := byRemoteID[rc.RemoteID]; m != nil {
					claimed[m.LocalID] = true
				}
			}

			continue
		}

		merged := *rc
		merged.LastSyncProps = req.SyncTime

		// Server identity wins the match; path is the legacy fallback.
		// On a rename both can hit different rows, and the row matched
		// by identity is the real one: the path row goes stale and
		// falls out as an orphan.
		var match *files.Node
		if rc.RemoteID != "" {
			match = byRemoteID[rc.RemoteID]
		}

		if match == nil {
			match = byPath[rc.RemotePath]
		}

		if match != nil {
			claimed[match.LocalID] = true
			merged.CopyLocalProperties(match)

			// The content etag only advances when the content itself is
			// synchronized, so a later pass still sees the difference.
			merged.Etag = match.Etag
		} else {
			merged.ParentID = updated.LocalID
			merged.Etag = ""

			if updated.AvailableOffline {
				merged.AvailableOffline = true
			}
		}

		if !merged.Folder {
			r.adoptLocalCopy(req.Account, &merged, res)
		}

		serverUnchanged := r.classify(req, &merged, rc, res, plan)
		if merged.Folder && !serverUnchanged {
			foldersToExpand++
		}

		children = append(children, &merged)
	}

	var orphans []*files.Node

	for _, lc := range localChildren {
		if !claimed[lc.LocalID] {
			orphans = append(orphans, lc)
		}
	}

	// The subtree token is only trustworthy when nothing below still
	// needs expansion. Left stale, the worst case is a redundant listing
	// on the next pass, never a skipped one.
	if foldersToExpand == 0 {
		updated.TreeEtag = updated.Etag
	}

	if err := r.repo.SaveFolderBatch(req.Account, &updated, children, orphans); err != nil {
		return nil, err
	}

	res.Children = children

	return plan, nil
}

// classify routes one merged child into the sync plan and reports
// whether its server side is unchanged. remoteChild is nil when no fresh
// listing entry exists for it.
func (r *FolderReconciler) classify(req ReconcileRequest, local, remoteChild *files.Node, res *files.ReconcileResult, plan *syncPlan) bool {
	var serverUnchanged bool
	if local.Folder {
		serverUnchanged = remoteChild == nil || local.TreeEtag == remoteChild.Etag
	} else {
		serverUnchanged = remoteChild == nil || local.Etag == remoteChild.Etag
	}

	shouldSync := req.SyncContents || local.AvailableOffline

	if local.Folder {
		if req.FullAccountPass {
			res.FoldersToVisit = append(res.FoldersToVisit, files.PendingFolder{
				Node:    local,
				Changed: !serverUnchanged,
			})
		} else if shouldSync {
			plan.folders = append(plan.folders, pendingDispatch{
				remotePath: local.RemotePath,
				remoteID:   local.RemoteID,
				pushOnly:   serverUnchanged,
			})
		}

		return serverUnchanged
	}

	if !shouldSync {
		return serverUnchanged
	}

	if r.blockedForRetry(req.Account, local.RemotePath) {
		r.logger.Debug("skipping file blocked on user action", slog.String("path", local.RemotePath))
		return serverUnchanged
	}

	item := fileToSync{local: local, pushOnly: serverUnchanged}
	if !serverUnchanged {
		item.remote = remoteChild
	}

	plan.files = append(plan.files, item)

	return serverUnchanged
}

// blockedForRetry reports whether the last upload attempt for a path
// failed in a way only the user can fix. Such files sit out automatic
// passes until the user intervenes.
func (r *FolderReconciler) blockedForRetry(account, remotePath string) bool {
	status, err := r.repo.LastUploadStatus(account, remotePath)
	if err != nil {
		r.logger.Warn("reading last upload status",
			slog.String("path", remotePath),
			slog.String("error", err.Error()),
		)

		return false
	}

	return status.RequiresUserAction()
}

// adoptLocalCopy recovers a materialized copy the row does not know
// about, and drops tracking of copies kept outside the managed tree.
func (r *FolderReconciler) adoptLocalCopy(account string, n *files.Node, res *files.ReconcileResult) {
	if n.StoragePath != "" {
		if !strings.HasPrefix(n.StoragePath, r.saveRoot+string(os.PathSeparator)) {
			// The bytes stay where the user put them, but the engine
			// stops tracking a path it does not manage.
			res.ForgottenLocalFiles[n.RemotePath] = n.StoragePath
			n.StoragePath = ""
		}

		return
	}

	candidate := files.DefaultSavePath(r.saveRoot, account, n.RemotePath)

	info, err := os.Stat(candidate)
	if err != nil || info.IsDir() {
		return
	}

	n.StoragePath = candidate

	// Stamp the copy as in sync as of its mtime, so it is neither
	// re-downloaded nor treated as a fresh local edit.
	n.LastSyncData = info.ModTime().UnixMilli()
	n.LocalModifiedAt = info.ModTime().UnixMilli()
}

// removeVanishedFolder handles a listing 404: the folder is gone on the
// server, so the cached subtree goes too.
func (r *FolderReconciler) removeVanishedFolder(account string, folder *files.Node) {
	deleteCopies := folder.StoragePath == "" || strings.HasPrefix(folder.StoragePath, r.saveRoot)

	if err := r.repo.RemoveFolder(account, folder, true, deleteCopies); err != nil {
		r.logger.Error("removing vanished folder",
			slog.String("path", folder.RemotePath),
			slog.String("error", err.Error()),
		)

		return
	}

	r.logger.Info("removed folder no longer on server", slog.String("path", folder.RemotePath))
}

// syncContents runs the per-file fan-out sequentially. A failing file
// never aborts the batch; it is counted and the pass moves on.
func (r *FolderReconciler) syncContents(ctx context.Context, req ReconcileRequest, plan *syncPlan, res *files.ReconcileResult) {
	for _, f := range plan.files {
		if ctx.Err() != nil {
			res.Code = files.ResultCancelled
			return
		}

		sync := NewFileSynchronizer(
			req.Account, f.local, f.remote, f.pushOnly,
			r.repo, r.fetcher, r.transfers, r.logger,
		)

		switch code := sync.Run(ctx); {
		case code == files.ResultSyncConflict:
			res.ConflictsFound++
			r.bus.Publish(events.Event{
				Kind:       events.KindConflictFound,
				Account:    req.Account,
				RemotePath: f.local.RemotePath,
			})

		case !code.IsSuccess():
			res.FailedFileSyncs++
			r.logger.Warn("file sync failed",
				slog.String("path", f.local.RemotePath),
				slog.String("result", code.String()),
			)
		}
	}
}

func (r *FolderReconciler) dispatchSubfolders(ctx context.Context, req ReconcileRequest, plan *syncPlan) {
	if r.scheduler == nil {
		return
	}

	for _, d := range plan.folders {
		r.scheduler.ScheduleFolder(ctx, req.Account, d.remotePath, d.remoteID, d.pushOnly)
	}
}
