package engine

import (
	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffPreview renders a colored text preview of how the local copy of a
// conflicted file diverges from the remote content. It is presentation
// only: resolution always stays with the user, the engine never merges.
func DiffPreview(local, remote []byte) string {
	dmp := diffmatchpatch.New()

	diffs := dmp.DiffMain(string(local), string(remote), false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	return dmp.DiffPrettyText(diffs)
}

// DiffStats counts the characters each side holds that the other does
// not, for a one-line summary of how far a conflict has drifted.
func DiffStats(local, remote []byte) (localOnly, remoteOnly int) {
	dmp := diffmatchpatch.New()

	for _, d := range dmp.DiffMain(string(local), string(remote), false) {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			localOnly += len(d.Text)
		case diffmatchpatch.DiffInsert:
			remoteOnly += len(d.Text)
		case diffmatchpatch.DiffEqual:
		}
	}

	return localOnly, remoteOnly
}
