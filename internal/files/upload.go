package files

// UploadStatus classifies the outcome of the last upload attempt for a
// file. The reconciliation engine skips files whose last attempt failed
// with a class that needs user action, so automatic passes do not loop on
// a known-bad file.
type UploadStatus int

const (
	UploadUnknown UploadStatus = iota
	UploadSucceeded
	UploadCredentialError
	UploadFolderError
	UploadFileNotFound
	UploadFileError
	UploadPrivilegeError
	UploadConflictError
	UploadNetworkError
)

func (s UploadStatus) String() string {
	switch s {
	case UploadSucceeded:
		return "succeeded"
	case UploadCredentialError:
		return "credential_error"
	case UploadFolderError:
		return "folder_error"
	case UploadFileNotFound:
		return "file_not_found"
	case UploadFileError:
		return "file_error"
	case UploadPrivilegeError:
		return "privilege_error"
	case UploadConflictError:
		return "conflict_error"
	case UploadNetworkError:
		return "network_error"
	default:
		return "unknown"
	}
}

// RequiresUserAction reports whether the status blocks further automatic
// sync attempts until the user intervenes. Network errors do not block:
// they are retried on the next pass.
func (s UploadStatus) RequiresUserAction() bool {
	switch s {
	case UploadCredentialError,
		UploadFolderError,
		UploadFileNotFound,
		UploadFileError,
		UploadPrivilegeError,
		UploadConflictError:
		return true
	default:
		return false
	}
}
