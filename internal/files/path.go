package files

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeRemotePath brings a server-supplied path into canonical form:
// NFC unicode normalization, a single leading separator, and no "." or
// ".." segments. Folder paths keep their trailing separator. Servers are
// not trusted to send composed unicode; two listings of the same file must
// map to the same repository row.
func NormalizeRemotePath(remotePath string, folder bool) string {
	p := norm.NFC.String(remotePath)

	trailing := folder || strings.HasSuffix(p, PathSeparator)

	p = filepath.ToSlash(p)
	if !strings.HasPrefix(p, PathSeparator) {
		p = PathSeparator + p
	}

	// Clean collapses duplicate separators and resolves dot segments,
	// dropping the trailing separator in the process.
	p = filepath.Clean(p)
	if p == "." || p == PathSeparator {
		return RootPath
	}

	if trailing {
		p += PathSeparator
	}

	return p
}

// IsParentPath reports whether parent is an ancestor folder path of child.
func IsParentPath(parent, child string) bool {
	if !strings.HasSuffix(parent, PathSeparator) {
		parent += PathSeparator
	}

	return child != parent && strings.HasPrefix(child, parent)
}

// DefaultSavePath returns the deterministic on-device location for a
// remote path: <baseDir>/<accountName>/<remotePath>. This is where
// downloads land and where the recovery heuristic looks for orphaned
// copies after a cache wipe or reinstall.
func DefaultSavePath(baseDir, accountName, remotePath string) string {
	rel := strings.TrimPrefix(remotePath, PathSeparator)
	rel = strings.TrimSuffix(rel, PathSeparator)

	return filepath.Join(baseDir, accountName, filepath.FromSlash(rel))
}
