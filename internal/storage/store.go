// Package storage is the on-device file repository: cached node metadata
// for every synchronized account, persisted in a single bbolt database.
// Every write the reconciliation engine performs on a folder goes through
// one transaction, so an external reader never observes a half-updated
// folder.
package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/skydrift/skydrift/internal/files"
)

const (
	// storeDirPerm is the permission mode for the store directory.
	storeDirPerm = fs.FileMode(0o700)

	// storeFilePerm is the permission mode for the database file.
	storeFilePerm = fs.FileMode(0o600)

	// storeOpenTimeout is the maximum time to wait for the bolt file lock.
	storeOpenTimeout = 5 * time.Second
)

func nodesBucket(account string) []byte {
	return []byte("account:" + account + ":nodes")
}

func pathIndexBucket(account string) []byte {
	return []byte("account:" + account + ":by_path")
}

func remoteIndexBucket(account string) []byte {
	return []byte("account:" + account + ":by_remote_id")
}

func uploadsBucket(account string) []byte {
	return []byte("account:" + account + ":uploads")
}

// Store wraps the bbolt database holding cached file metadata.
type Store struct {
	db *bolt.DB

	// saveRoot is the base of the managed local tree. Removal operations
	// only ever delete materialized copies beneath it; copies kept
	// elsewhere belong to the user.
	saveRoot string
}

// Open opens the store at <dir>/metadata.db, creating it if needed.
// saveRoot is the base directory of the managed local tree.
func Open(dir, saveRoot string) (*Store, error) {
	return OpenAt(filepath.Join(dir, "metadata.db"), saveRoot)
}

// OpenAt opens a store database at the given path. Useful for tests that
// need an isolated database.
func OpenAt(path, saveRoot string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), storeDirPerm); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := bolt.Open(path, storeFilePerm, &bolt.Options{Timeout: storeOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening store db: %w", err)
	}

	return &Store{db: db, saveRoot: saveRoot}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// InitAccount ensures the buckets and the root folder row exist for an
// account. Call once per account before reconciling.
func (s *Store) InitAccount(account string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{
			nodesBucket(account),
			pathIndexBucket(account),
			remoteIndexBucket(account),
			uploadsBucket(account),
		} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}

		paths := tx.Bucket(pathIndexBucket(account))
		if paths.Get([]byte(files.RootPath)) != nil {
			return nil
		}

		root := &files.Node{
			RemotePath: files.RootPath,
			Folder:     true,
			MimeType:   "DIR",
		}

		return putNode(tx, account, root)
	})
}

// GetByPath returns the node stored at a remote path, or nil.
func (s *Store) GetByPath(account, remotePath string) (*files.Node, error) {
	var node *files.Node

	err := s.db.View(func(tx *bolt.Tx) error {
		n, err := getByPath(tx, account, remotePath)
		if err != nil {
			return err
		}

		node = n

		return nil
	})

	return node, err
}

// GetByID returns the node with the given local ID, or nil.
func (s *Store) GetByID(account string, localID int64) (*files.Node, error) {
	var node *files.Node

	err := s.db.View(func(tx *bolt.Tx) error {
		n, err := getByID(tx, account, localID)
		if err != nil {
			return err
		}

		node = n

		return nil
	})

	return node, err
}

// GetByRemoteID returns the node with the given server identity, or nil.
func (s *Store) GetByRemoteID(account, remoteID string) (*files.Node, error) {
	var node *files.Node

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(remoteIndexBucket(account))
		if b == nil {
			return nil
		}

		v := b.Get([]byte(remoteID))
		if v == nil {
			return nil
		}

		n, err := getByID(tx, account, int64(binary.BigEndian.Uint64(v)))
		if err != nil {
			return err
		}

		node = n

		return nil
	})

	return node, err
}

// GetChildren returns the direct children of a folder node, ordered by
// remote path.
func (s *Store) GetChildren(account string, folder *files.Node) ([]*files.Node, error) {
	var children []*files.Node

	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		children, err = getChildren(tx, account, folder)

		return err
	})

	return children, err
}

// SaveNode upserts a single node, maintaining both indexes. A zero
// LocalID gets a fresh one assigned.
func (s *Store) SaveNode(account string, node *files.Node) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putNode(tx, account, node)
	})
}

// SaveFolderBatch persists the outcome of one folder reconciliation in a
// single transaction: the folder node itself, every merged child, and the
// removal of the orphaned rows a remote listing no longer accounts for.
// Orphaned folders cascade to their descendants. Materialized copies of
// orphans under the managed tree are deleted from disk as well.
func (s *Store) SaveFolderBatch(account string, folder *files.Node, children []*files.Node, orphans []*files.Node) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := putNode(tx, account, folder); err != nil {
			return fmt.Errorf("saving folder %s: %w", folder.RemotePath, err)
		}

		for _, child := range children {
			child.ParentID = folder.LocalID
			if err := putNode(tx, account, child); err != nil {
				return fmt.Errorf("saving child %s: %w", child.RemotePath, err)
			}
		}

		for _, orphan := range orphans {
			if err := s.removeNode(tx, account, orphan, true, true); err != nil {
				return fmt.Errorf("removing orphan %s: %w", orphan.RemotePath, err)
			}
		}

		return nil
	})
}

// SaveConflictMarker records or clears the conflict marker on a node.
// Passing an empty etag clears the marker on the node and on every
// ancestor folder, so a clean pass over a file washes out stale markers
// left higher up the tree.
func (s *Store) SaveConflictMarker(account string, node *files.Node, etag string) error {
	node.ConflictEtag = etag

	return s.db.Update(func(tx *bolt.Tx) error {
		stored, err := getByPath(tx, account, node.RemotePath)
		if err != nil {
			return err
		}

		if stored != nil {
			stored.ConflictEtag = etag
			if err := putNode(tx, account, stored); err != nil {
				return err
			}

			node.LocalID = stored.LocalID
		}

		if etag != "" {
			return nil
		}

		// Clearing: walk up the ancestor chain.
		for p := files.ParentRemotePath(node.RemotePath); ; p = files.ParentRemotePath(p) {
			ancestor, err := getByPath(tx, account, p)
			if err != nil {
				return err
			}

			if ancestor != nil && ancestor.ConflictEtag != "" {
				ancestor.ConflictEtag = ""
				if err := putNode(tx, account, ancestor); err != nil {
					return err
				}
			}

			if p == files.RootPath {
				return nil
			}
		}
	})
}

// RemoveFolder deletes a folder row. With cascade, every descendant row
// goes with it; with deleteLocalCopies, materialized files under the
// managed tree are removed from disk too.
func (s *Store) RemoveFolder(account string, folder *files.Node, cascade, deleteLocalCopies bool) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return s.removeNode(tx, account, folder, cascade, deleteLocalCopies)
	})
}

// RemoveFile deletes a single file row and, optionally, its local copy.
func (s *Store) RemoveFile(account string, node *files.Node, deleteLocalCopy bool) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return s.removeNode(tx, account, node, false, deleteLocalCopy)
	})
}

// SetLastUploadStatus records the outcome of the most recent upload
// attempt for a remote path.
func (s *Store) SetLastUploadStatus(account, remotePath string, status files.UploadStatus) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(uploadsBucket(account))
		if b == nil {
			return fmt.Errorf("uploads bucket not initialized for account %s", account)
		}

		var v [8]byte
		binary.BigEndian.PutUint64(v[:], uint64(status))

		return b.Put([]byte(remotePath), v[:])
	})
}

// LastUploadStatus returns the recorded outcome of the most recent upload
// attempt for a remote path, or UploadUnknown.
func (s *Store) LastUploadStatus(account, remotePath string) (files.UploadStatus, error) {
	status := files.UploadUnknown

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(uploadsBucket(account))
		if b == nil {
			return nil
		}

		v := b.Get([]byte(remotePath))
		if v != nil {
			status = files.UploadStatus(binary.BigEndian.Uint64(v))
		}

		return nil
	})

	return status, err
}

// ConflictedNodes returns every node carrying a conflict marker, for the
// surrounding application to present.
func (s *Store) ConflictedNodes(account string) ([]*files.Node, error) {
	var conflicted []*files.Node

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(nodesBucket(account))
		if b == nil {
			return nil
		}

		return b.ForEach(func(_, v []byte) error {
			var n files.Node
			if err := json.Unmarshal(v, &n); err != nil {
				return err
			}

			if n.InConflict() {
				conflicted = append(conflicted, &n)
			}

			return nil
		})
	})

	return conflicted, err
}

func getByID(tx *bolt.Tx, account string, localID int64) (*files.Node, error) {
	b := tx.Bucket(nodesBucket(account))
	if b == nil {
		return nil, nil
	}

	v := b.Get(idKey(localID))
	if v == nil {
		return nil, nil
	}

	n := &files.Node{}
	if err := json.Unmarshal(v, n); err != nil {
		return nil, err
	}

	return n, nil
}

func getByPath(tx *bolt.Tx, account, remotePath string) (*files.Node, error) {
	b := tx.Bucket(pathIndexBucket(account))
	if b == nil {
		return nil, nil
	}

	v := b.Get([]byte(remotePath))
	if v == nil {
		return nil, nil
	}

	return getByID(tx, account, int64(binary.BigEndian.Uint64(v)))
}

func getChildren(tx *bolt.Tx, account string, folder *files.Node) ([]*files.Node, error) {
	b := tx.Bucket(pathIndexBucket(account))
	if b == nil {
		return nil, nil
	}

	var children []*files.Node

	prefix := []byte(folder.RemotePath)
	c := b.Cursor()

	for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
		p := string(k)
		if p == folder.RemotePath {
			continue
		}

		if files.ParentRemotePath(p) != folder.RemotePath {
			// Deeper descendant, not a direct child.
			continue
		}

		n, err := getByID(tx, account, int64(binary.BigEndian.Uint64(v)))
		if err != nil {
			return nil, err
		}

		if n != nil {
			children = append(children, n)
		}
	}

	return children, nil
}

func putNode(tx *bolt.Tx, account string, node *files.Node) error {
	nodes := tx.Bucket(nodesBucket(account))
	if nodes == nil {
		return fmt.Errorf("nodes bucket not initialized for account %s", account)
	}

	if node.LocalID == 0 {
		seq, err := nodes.NextSequence()
		if err != nil {
			return err
		}

		node.LocalID = int64(seq)
	}

	// A rename leaves a stale path index entry behind; a file recreated
	// under the same path leaves a stale remote-id entry. Drop both
	// before writing the new mappings.
	paths := tx.Bucket(pathIndexBucket(account))

	prev, err := getByID(tx, account, node.LocalID)
	if err != nil {
		return err
	}

	if prev != nil && prev.RemotePath != node.RemotePath {
		if err := paths.Delete([]byte(prev.RemotePath)); err != nil {
			return err
		}
	}

	if prev != nil && prev.RemoteID != "" && prev.RemoteID != node.RemoteID {
		if err := tx.Bucket(remoteIndexBucket(account)).Delete([]byte(prev.RemoteID)); err != nil {
			return err
		}
	}

	data, err := json.Marshal(node)
	if err != nil {
		return err
	}

	if err := nodes.Put(idKey(node.LocalID), data); err != nil {
		return err
	}

	if err := paths.Put([]byte(node.RemotePath), idKey(node.LocalID)); err != nil {
		return err
	}

	if node.RemoteID != "" {
		remotes := tx.Bucket(remoteIndexBucket(account))
		if err := remotes.Put([]byte(node.RemoteID), idKey(node.LocalID)); err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) removeNode(tx *bolt.Tx, account string, node *files.Node, cascade, deleteLocalCopies bool) error {
	if node.Folder && cascade {
		children, err := getChildren(tx, account, node)
		if err != nil {
			return err
		}

		for _, child := range children {
			if err := s.removeNode(tx, account, child, cascade, deleteLocalCopies); err != nil {
				return err
			}
		}
	}

	if deleteLocalCopies && !node.Folder && node.Down() && s.managesCopy(node.StoragePath) {
		if err := os.Remove(node.StoragePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("deleting local copy %s: %w", node.StoragePath, err)
		}
	}

	nodes := tx.Bucket(nodesBucket(account))
	paths := tx.Bucket(pathIndexBucket(account))

	if err := nodes.Delete(idKey(node.LocalID)); err != nil {
		return err
	}

	if err := paths.Delete([]byte(node.RemotePath)); err != nil {
		return err
	}

	if node.RemoteID != "" {
		if err := tx.Bucket(remoteIndexBucket(account)).Delete([]byte(node.RemoteID)); err != nil {
			return err
		}
	}

	return tx.Bucket(uploadsBucket(account)).Delete([]byte(node.RemotePath))
}

// managesCopy reports whether a storage path lies under the managed
// tree. Copies the user keeps elsewhere are untracked, never deleted.
func (s *Store) managesCopy(path string) bool {
	return s.saveRoot != "" && strings.HasPrefix(path, s.saveRoot+string(os.PathSeparator))
}

func hasPrefix(k, prefix []byte) bool {
	return len(k) >= len(prefix) && string(k[:len(prefix)]) == string(prefix)
}

func idKey(localID int64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], uint64(localID))

	return k[:]
}
