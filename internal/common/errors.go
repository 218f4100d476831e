// Package common provides shared utilities and types used across the application.
package common

import "errors"

// Application error kinds. Callers classify failures with errors.Is; all
// deeper errors wrap one of these sentinels.
var (
	// ErrNotFound indicates the transaction is absent or not owned by the
	// requesting user.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates the request itself is invalid, e.g. an
	// installment count below two or a series action on an unlinked row.
	// Not retryable.
	ErrValidation = errors.New("validation failed")

	// ErrConflict indicates a concurrent update already holds the lock for
	// the target transaction. The caller may retry.
	ErrConflict = errors.New("concurrent update in progress")

	// ErrStoreFailure indicates the underlying persistence operation failed.
	ErrStoreFailure = errors.New("store operation failed")
)

// IsRetryable reports whether the caller may usefully re-issue the request.
// Only lock conflicts qualify; validation and not-found errors are final.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}
