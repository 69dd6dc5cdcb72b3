package upload

import (
	"errors"
)

// ErrNotRegular indicates the path exists but is not a regular file.
var ErrNotRegular = errors.New("not a regular file")

// FileError reports a failure reading the local side of an upload.
//
// Provider failures are returned as *provider.ProviderError instead, so
// callers can tell a bad local path from a failed PUT.
type FileError struct {
	Op   string // open, stat, read, readdir
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return "upload: " + e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// IsFileError reports whether err came from the local filesystem side.
func IsFileError(err error) bool {
	var fe *FileError
	return errors.As(err, &fe)
}
