package remote

import (
	"context"
	"errors"

	"github.com/skydrift/skydrift/internal/files"
)

// Sentinel errors returned by the remote services. The engine converts
// them into result codes at the point of call.
var (
	// ErrNotModified means the server matched the supplied change token
	// and sent no listing payload.
	ErrNotModified = errors.New("remote folder not modified")

	// ErrNotFound means the remote file or folder does not exist.
	ErrNotFound = errors.New("remote file not found")

	// ErrUnauthorized means the server rejected the credentials.
	ErrUnauthorized = errors.New("remote credentials rejected")

	// ErrHostUnavailable covers transient transport failures: timeouts,
	// 5xx responses, unreachable host.
	ErrHostUnavailable = errors.New("remote host unavailable")
)

// ResultCodeFor maps a remote-call error onto the result taxonomy.
func ResultCodeFor(err error) files.ResultCode {
	switch {
	case err == nil:
		return files.ResultOK
	case errors.Is(err, ErrNotModified):
		return files.ResultNotModified
	case errors.Is(err, ErrNotFound):
		return files.ResultFileNotFound
	case errors.Is(err, ErrUnauthorized):
		return files.ResultUnauthorized
	case errors.Is(err, ErrHostUnavailable):
		return files.ResultHostUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return files.ResultCancelled
	default:
		return files.ResultUnknown
	}
}
