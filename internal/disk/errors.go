package disk

import (
	"errors"
	"fmt"
)

// Block device errors
var (
	ErrInvalidBlockSize = errors.New("invalid block size")
	ErrInvalidBlockAddr = errors.New("invalid block address")
	ErrIOError          = errors.New("I/O error")
	ErrDeviceClosed     = errors.New("device is closed")
)

// DeviceError carries the operation and block that failed
type DeviceError struct {
	Err       error  // The underlying error
	Operation string // The operation that caused the error
	Object    string // The block or path the operation was performed on
	Detail    string // Additional details about the error
}

// Error implements the error interface
func (e *DeviceError) Error() string {
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
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// NewDeviceError creates a new DeviceError with the given details
func NewDeviceError(err error, operation string, object string, detail string) error {
	return &DeviceError{
		Err:       err,
		Operation: operation,
		Object:    object,
		Detail:    detail,
	}
}

// IsIOError returns true if the error came from the storage underneath the device
func IsIOError(err error) bool {
	return errors.Is(err, ErrIOError) || errors.Is(err, ErrDeviceClosed)
}

func blockName(index uint32) string {
	return fmt.Sprintf("block(%d)", index)
}
