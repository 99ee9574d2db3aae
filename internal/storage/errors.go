package storage

import "errors"

// Sentinel errors for the storage package. Using sentinels instead of ad-hoc
// fmt.Errorf allows callers to match with errors.Is for reliable error handling.
var (
	// ErrEmptyProjectID is returned when a key without a project ID is saved.
	ErrEmptyProjectID = errors.New("state key has empty project ID")

	// ErrNegativeCount is returned when a record violates non_delegate_count >= 0.
	ErrNegativeCount = errors.New("non_delegate_count must be >= 0")
)
