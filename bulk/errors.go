// ABOUTME: Error taxonomy for bulk dispatch
// ABOUTME: Collaborator outages, partial batches, and unconfirmed deletes
package bulk

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCollaboratorUnavailable means persistence or export failed; the whole
	// batch was abandoned and the records are unchanged.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")

	// ErrUnconfirmedDelete is a caller bug: delete must be acknowledged first.
	ErrUnconfirmedDelete = errors.New("delete requested without confirmation")

	ErrNoSelection = errors.New("no records selected")

	ErrInvalidAction = errors.New("invalid bulk action")
)

// CollaboratorError carries the failing call and its cause.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrCollaboratorUnavailable, e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

func (e *CollaboratorError) Is(target error) bool {
	return target == ErrCollaboratorUnavailable
}

// PartialBatchFailure lists ids that were not found or not applicable. It is
// non-fatal: the rest of the batch was applied.
type PartialBatchFailure struct {
	Action string
	IDs    []string
}

func (e *PartialBatchFailure) Error() string {
	return fmt.Sprintf("%s skipped %d record(s): %s", e.Action, len(e.IDs), strings.Join(e.IDs, ", "))
}
