package domain

import (
	"errors"
	"fmt"
)

var (
	ErrTaskNotFound       = errors.New("task not found")
	ErrAttachmentNotFound = errors.New("attachment not found")
	ErrObjectNotFound     = errors.New("stored object not found")
	ErrEmptyBatch         = errors.New("upload batch is empty")
	ErrForbidden          = errors.New("only the uploader may delete an attachment")
)

// InvalidFormatError rejects a declared media type that is not on the
// allow-list. The type is reported back verbatim so the caller can see
// what was declared.
type InvalidFormatError struct {
	MediaType string
}

func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("media type %q is not allowed", e.MediaType)
}

// QuotaExceededError carries the totals the quota check computed so the
// boundary layer can render them.
type QuotaExceededError struct {
	CurrentSize   int64
	AttemptedSize int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("task attachment quota exceeded: current=%d attempted=%d", e.CurrentSize, e.AttemptedSize)
}

// StorageError wraps a failed object store operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("object store %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// RepositoryError wraps a failed metadata store operation.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("attachment repository %s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error { return e.Err }
