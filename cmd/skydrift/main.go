package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/skydrift/skydrift/internal/config"
	"github.com/skydrift/skydrift/internal/engine"
	"github.com/skydrift/skydrift/internal/events"
	"github.com/skydrift/skydrift/internal/files"
	"github.com/skydrift/skydrift/internal/logging"
	"github.com/skydrift/skydrift/internal/remote"
	"github.com/skydrift/skydrift/internal/storage"
	"github.com/skydrift/skydrift/internal/transfer"
	"github.com/skydrift/skydrift/internal/watcher"
)

var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.NewLogger(cfg.Environment, cfg.LogLevel)
	logger.Info("skydrift starting",
		slog.String("version", Version),
		slog.String("account", cfg.Account),
		slog.String("server", cfg.ServerURL),
		slog.String("sync_dir", cfg.SyncDir),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.DataDir, cfg.SyncDir)
	if err != nil {
		return fmt.Errorf("opening metadata store: %w", err)
	}
	defer store.Close()

	if err := store.InitAccount(cfg.Account); err != nil {
		return fmt.Errorf("initializing account: %w", err)
	}

	if conflicted, err := store.ConflictedNodes(cfg.Account); err == nil {
		for _, node := range conflicted {
			logger.Warn("unresolved conflict from a previous run",
				slog.String("path", node.RemotePath),
				slog.String("remote_etag", node.ConflictEtag),
			)
		}
	}

	filter, err := engine.LoadFilter(cfg.FilterFile)
	if err != nil {
		return fmt.Errorf("loading selective-sync filter: %w", err)
	}

	if filter != nil {
		logger.Info("selective sync active", slog.String("file", cfg.FilterFile))
	}

	bus := events.NewBus()

	metadata := remote.NewClient(cfg.ServerURL, cfg.Account, cfg.Password)
	content := transfer.NewContentClient(cfg.ServerURL, cfg.Account, cfg.Password, cfg.SyncDir, store)
	queue := transfer.NewQueue(content, store, bus, logger)

	reconciler := engine.NewFolderReconciler(engine.ReconcilerDeps{
		Repo:      store,
		Lister:    metadata,
		Fetcher:   metadata,
		Transfers: queue,
		Filter:    filter,
		Bus:       bus,
		SaveRoot:  cfg.SyncDir,
		Logger:    logger,
	})

	syncer := engine.NewAccountSyncer(cfg.Account, reconciler, logger)
	reconciler.SetScheduler(syncer)

	defer syncer.Wait()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		queue.Run(gctx)
		return nil
	})

	conflictSub := bus.Subscribe()

	g.Go(func() error {
		defer bus.Unsubscribe(conflictSub)
		observeConflicts(gctx, conflictSub, store, content, cfg.Account, logger)

		return nil
	})

	var localEdits <-chan struct{}

	if cfg.EnableWatcher {
		w := watcher.New(cfg.Account, cfg.SyncDir, store, logger)
		localEdits = w.C

		g.Go(func() error {
			if err := w.Watch(gctx); err != nil && gctx.Err() == nil {
				return fmt.Errorf("file watcher: %w", err)
			}

			return nil
		})
	}

	var remoteChanges <-chan remote.ChangeNotice

	if cfg.EnableNotifications {
		notifier := remote.NewNotifier(cfg.WebSocketURL(), cfg.Account, cfg.Password, logger)
		remoteChanges = notifier.C

		g.Go(func() error {
			notifier.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		return syncLoop(gctx, cfg, syncer, localEdits, remoteChanges, logger)
	})

	return g.Wait()
}

// syncLoop drives reconciliation: a full account pass at startup and on
// every interval tick, a push-only pass when local edits settle, and a
// targeted folder pass when the server announces a change.
func syncLoop(
	ctx context.Context,
	cfg *config.Config,
	syncer *engine.AccountSyncer,
	localEdits <-chan struct{},
	remoteChanges <-chan remote.ChangeNotice,
	logger *slog.Logger,
) error {
	runFull := func() error {
		if err := syncer.SyncAll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return err
		}

		return nil
	}

	if err := runFull(); err != nil {
		return fmt.Errorf("initial sync: %w", err)
	}

	ticker := time.NewTicker(cfg.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			if err := runFull(); err != nil {
				logger.Warn("periodic sync failed", slog.String("error", err.Error()))
			}

		case <-localEdits:
			res := syncer.SyncFolder(ctx, files.RootPath, true)
			if !res.IsSuccess() && res.Code != files.ResultCancelled {
				logger.Warn("push pass failed", slog.String("result", res.Code.String()))
			}

		case notice := <-remoteChanges:
			res := syncer.SyncFolder(ctx, notice.RemotePath, false)
			if !res.IsSuccess() && res.Code != files.ResultCancelled {
				logger.Warn("change-notice pass failed",
					slog.String("path", notice.RemotePath),
					slog.String("result", res.Code.String()),
				)
			}
		}
	}
}

// observeConflicts logs a divergence summary for every conflict the
// engine records, so the user sees how far the two sides have drifted.
// Returns when ctx is cancelled or the subscription channel closes.
func observeConflicts(
	ctx context.Context,
	sub <-chan events.Event,
	store *storage.Store,
	content *transfer.ContentClient,
	account string,
	logger *slog.Logger,
) {
	for {
		select {
		case <-ctx.Done():
			return

		case e, ok := <-sub:
			if !ok {
				return
			}

			if e.Kind != events.KindConflictFound {
				continue
			}

			node, err := store.GetByPath(account, e.RemotePath)
			if err != nil || node == nil || !node.Down() {
				continue
			}

			local, err := os.ReadFile(node.StoragePath)
			if err != nil {
				continue
			}

			remoteBytes, err := content.Fetch(ctx, e.RemotePath)
			if err != nil {
				logger.Debug("fetching remote side of conflict",
					slog.String("path", e.RemotePath),
					slog.String("error", err.Error()),
				)

				continue
			}

			localOnly, remoteOnly := engine.DiffStats(local, remoteBytes)
			logger.Warn("conflict needs manual resolution",
				slog.String("path", e.RemotePath),
				slog.Int("local_only_chars", localOnly),
				slog.Int("remote_only_chars", remoteOnly),
			)
		}
	}
}
