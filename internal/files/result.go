package files

// ResultCode classifies the outcome of a reconciliation pass or of a
// single-file synchronization. Remote-call failures are converted into
// codes at the point of call; nothing escapes the engine as a raw error.
type ResultCode int

const (
	// ResultOK means the pass completed without a blocking failure.
	ResultOK ResultCode = iota

	// ResultFileNotFound means the remote folder or file no longer
	// exists. Terminal: the local copy is removed, not retried.
	ResultFileNotFound

	// ResultNotModified means the server answered the listing request
	// with a change-token match and sent no payload.
	ResultNotModified

	// ResultSyncConflict means local and remote content diverged and a
	// conflict marker was recorded.
	ResultSyncConflict

	// ResultHostUnavailable covers transient transport failures:
	// timeouts, 5xx, unreachable host. The caller decides retry policy.
	ResultHostUnavailable

	// ResultUnauthorized means the server rejected the credentials.
	ResultUnauthorized

	// ResultCancelled means cancellation was requested at a suspension
	// point. Always returned as a well-formed result, never an error.
	ResultCancelled

	// ResultUnknown is the fallback for unclassified failures.
	ResultUnknown
)

var resultNames = map[ResultCode]string{
	ResultOK:              "ok",
	ResultFileNotFound:    "file_not_found",
	ResultNotModified:     "not_modified",
	ResultSyncConflict:    "sync_conflict",
	ResultHostUnavailable: "host_unavailable",
	ResultUnauthorized:    "unauthorized",
	ResultCancelled:       "cancelled",
	ResultUnknown:         "unknown",
}

func (c ResultCode) String() string {
	if name, ok := resultNames[c]; ok {
		return name
	}

	return "unknown"
}

// IsSuccess reports whether the code counts as a successful pass.
// NotModified is a success: it means there was nothing to do.
func (c ResultCode) IsSuccess() bool {
	return c == ResultOK || c == ResultNotModified
}

// Action is what the decision unit asks the caller to do for one file.
type Action int

const (
	// ActionNone means nothing changed on either side.
	ActionNone Action = iota

	// ActionDownload means the server side changed, or no local copy
	// exists yet.
	ActionDownload

	// ActionUpload means only the local side changed.
	ActionUpload

	// ActionConflict means both sides changed and the divergence was
	// recorded rather than resolved.
	ActionConflict
)

func (a Action) String() string {
	switch a {
	case ActionDownload:
		return "download"
	case ActionUpload:
		return "upload"
	case ActionConflict:
		return "conflict"
	default:
		return "none"
	}
}

// SyncDecision is the outcome of classifying one file: the action to take
// and the node to take it on. The decision unit never performs the
// transfer itself.
type SyncDecision struct {
	Action Action
	Node   *Node
}

// PendingFolder is a subfolder recorded during a full-account pass for the
// driver to schedule separately, together with whether the server reported
// changes beneath it.
type PendingFolder struct {
	Node    *Node
	Changed bool
}

// ReconcileResult is the outcome of one folder pass.
type ReconcileResult struct {
	Code ResultCode

	// Children are the merged direct children after a successful merge.
	Children []*Node

	// ConflictsFound and FailedFileSyncs count per-file outcomes of the
	// content-sync fan-out. Failures never abort the batch.
	ConflictsFound  int
	FailedFileSyncs int

	// ForgottenLocalFiles maps remote path to local storage path for
	// files kept outside the managed tree that could not be relocated.
	ForgottenLocalFiles map[string]string

	// FoldersToVisit lists subfolders still to be reconciled by the
	// caller when the pass is part of a full-account run.
	FoldersToVisit []PendingFolder
}

// IsSuccess reports whether the pass completed.
func (r *ReconcileResult) IsSuccess() bool {
	return r.Code.IsSuccess()
}
