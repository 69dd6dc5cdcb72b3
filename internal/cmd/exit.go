package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"

	"github.com/3leaps/nimbusup/pkg/output"
	"github.com/3leaps/nimbusup/pkg/provider"
	"github.com/3leaps/nimbusup/pkg/upload"
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: %v (exit code %d)", e.Message, e.Err, e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitError creates an error that will cause the CLI to exit with the given code.
func exitError(code int, message string, err error) error {
	return &ExitError{Code: code, Message: message, Err: err}
}

// exitCodeOf returns the exit code carried by err, or ExitInvalidArgument for
// errors raised by flag parsing.
func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return foundry.ExitInvalidArgument
}

// classifyUploadError maps an upload failure to an exit code and a record code.
func classifyUploadError(err error) (int, string) {
	switch {
	case errors.Is(err, context.Canceled):
		return foundry.ExitSignalInt, output.ErrCodeCanceled
	case upload.IsFileError(err):
		return foundry.ExitFileReadError, output.ErrCodeInvalidPath
	case provider.IsAccessDenied(err):
		return foundry.ExitExternalServiceUnavailable, output.ErrCodeAccessDenied
	case provider.IsInvalidCredentials(err):
		return foundry.ExitExternalServiceUnavailable, output.ErrCodeInvalidCredentials
	case provider.IsBucketNotFound(err):
		return foundry.ExitExternalServiceUnavailable, output.ErrCodeBucketNotFound
	case provider.IsThrottled(err):
		return foundry.ExitExternalServiceUnavailable, output.ErrCodeThrottled
	case provider.IsProviderUnavailable(err):
		return foundry.ExitExternalServiceUnavailable, output.ErrCodeProviderUnavailable
	case provider.IsEntityTooLarge(err):
		return foundry.ExitExternalServiceUnavailable, output.ErrCodeTooLarge
	case isWriteError(err):
		return foundry.ExitFileWriteError, output.ErrCodeInternal
	case provider.IsProviderError(err):
		return foundry.ExitExternalServiceUnavailable, output.ErrCodeProvider
	default:
		return foundry.ExitExternalServiceUnavailable, output.ErrCodeInternal
	}
}

func isWriteError(err error) bool {
	var writeErr *output.WriteError
	return errors.As(err, &writeErr)
}
