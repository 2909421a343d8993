package simplefs

import (
	"errors"
	"fmt"

	"github.com/deploymenttheory/go-simplefs/internal/disk"
)

// Errors returned by volume operations
var (
	// Session errors
	ErrNotMounted     = errors.New("volume not mounted")
	ErrAlreadyMounted = errors.New("volume already mounted")

	// On-disk structure errors
	ErrCorruptSuperblock = errors.New("unformatted or corrupt superblock")
	ErrSizeMismatch      = errors.New("superblock block count does not match device size")
	ErrCorruptInode      = errors.New("inode references a block outside the data region")

	// Caller errors
	ErrInvalidInode    = errors.New("invalid inode")
	ErrOffsetBeyondEOF = errors.New("offset beyond end of file")
	ErrInvalidArgument = errors.New("invalid argument")

	// Space errors
	ErrNoFreeInode           = errors.New("no free inode")
	ErrNoFreeBlock           = errors.New("volume full")
	ErrFileSizeLimitExceeded = errors.New("exceeds maximum file size")

	// ErrIOError is the device failure every block I/O error unwraps to
	ErrIOError = disk.ErrIOError
)

// FSError represents an error with the volume operation and object that caused it
type FSError struct {
	Err       error  // The underlying error
	Operation string // The operation that caused the error
	Object    string // The inode or block the operation was performed on
	Detail    string // Additional details about the error
}

// Error implements the error interface
func (e *FSError) Error() string {
	if e.Object != "" && e.Detail != "" {
		return fmt.Sprintf("%s: %s [%s]: %v", e.Operation, e.Object, e.Detail, e.Err)
	} else if e.Object != "" {
		return fmt.Sprintf("%s: %s: %v", e.Operation, e.Object, e.Err)
	} else if e.Detail != "" {
		return fmt.Sprintf("%s: %v [%s]", e.Operation, e.Err, e.Detail)
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error
func (e *FSError) Unwrap() error {
	return e.Err
}

// NewFSError creates a new FSError with the given details
func NewFSError(err error, operation string, object string, detail string) error {
	return &FSError{
		Err:       err,
		Operation: operation,
		Object:    object,
		Detail:    detail,
	}
}

// IsNotMounted returns true if the operation needed a mounted volume
func IsNotMounted(err error) bool {
	return errors.Is(err, ErrNotMounted)
}

// IsInvalidData returns true if the error indicates damaged on-disk structures
func IsInvalidData(err error) bool {
	return errors.Is(err, ErrCorruptSuperblock) || errors.Is(err, ErrSizeMismatch) ||
		errors.Is(err, ErrCorruptInode)
}

// IsInvalidInput returns true if the caller passed an unusable inode, offset or buffer
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInode) || errors.Is(err, ErrOffsetBeyondEOF) ||
		errors.Is(err, ErrInvalidArgument)
}

// IsSpaceError returns true if the error indicates space-related issues
func IsSpaceError(err error) bool {
	return errors.Is(err, ErrNoFreeInode) || errors.Is(err, ErrNoFreeBlock) ||
		errors.Is(err, ErrFileSizeLimitExceeded)
}

// IsIOError returns true if the error came from the block device
func IsIOError(err error) bool {
	return disk.IsIOError(err)
}

func inodeName(n int) string {
	return fmt.Sprintf("inode(%d)", n)
}

func blockName(index uint32) string {
	return fmt.Sprintf("block(%d)", index)
}
