package dbmigration

import (
	"errors"
	"fmt"
)

var (
	// ErrInconsistentHistory is matched by every [InconsistentHistoryError].
	ErrInconsistentHistory = errors.New("inconsistent history")

	// ErrNoChangeSetsToRevert is returned when a rollback asks for more change sets than have been
	// applied.
	ErrNoChangeSetsToRevert = errors.New("no change sets to revert")

	// ErrDuplicateVersion is returned by the loader when two up files, or two down files, share a
	// version.
	ErrDuplicateVersion = errors.New("duplicate version")

	// ErrMismatchedDownFile is returned by the loader when a down file names a different change
	// set than the up file with the same version.
	ErrMismatchedDownFile = errors.New("down file name does not match up file")

	// ErrOutOfRange is returned when a subset or a count exceeds the bounds of a collection.
	ErrOutOfRange = errors.New("out of range")

	// ErrGroupMismatch is returned when two collections of different groups are compared.
	ErrGroupMismatch = errors.New("group mismatch")
)

// VersionMismatchError is returned when the local ordering of change sets contradicts the recorded
// history at some position, for example when a change set was inserted before one that was
// already applied. Repairing it requires editing either the local files or the tracking table.
type VersionMismatchError struct {
	Local   int32
	Applied int32
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("version mismatch: local %d, applied %d", e.Local, e.Applied)
}

// Reasons reported by [InconsistentHistoryError].
const (
	ReasonNameMismatch    = "name mismatch"
	ReasonUpSQLMismatch   = "up SQL mismatch"
	ReasonDownSQLMismatch = "down SQL mismatch"
	ReasonHistoryAhead    = "history ahead of local files"
)

// InconsistentHistoryError is returned when an applied change set no longer matches its local
// definition, or when the database holds change sets the local files do not.
type InconsistentHistoryError struct {
	Reason  string
	Version int32
}

func (e *InconsistentHistoryError) Error() string {
	return fmt.Sprintf("inconsistent history at version %d: %s", e.Version, e.Reason)
}

func (e *InconsistentHistoryError) Is(target error) bool {
	return target == ErrInconsistentHistory
}

// EncodingError is returned when a change-set file is not valid UTF-8.
type EncodingError struct {
	Filename string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("%s: invalid UTF-8 content", e.Filename)
}
