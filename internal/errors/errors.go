package errors

import (
	"errors"
)

var (
	// General Errors
	ErrInvalidArgument = errors.New("invalid argument")

	// Configuration Errors
	ErrConfigRead      = errors.New("error reading config file")
	ErrConfigParse     = errors.New("error parsing config")
	ErrInvalidConfig   = errors.New("invalid configuration value")
	ErrStorageProvider = errors.New("unsupported storage provider")

	// Device Errors
	ErrDeviceNotFound = errors.New("volume image not found")
	ErrDeviceExists   = errors.New("volume image already exists")

	// Compression Errors
	ErrCompressionFailed      = errors.New("compression failed")
	ErrUnsupportedCompression = errors.New("unsupported compression format")
	ErrDecompressionFailed    = errors.New("decompression failed")
	ErrInvalidImage           = errors.New("image is corrupted or not a volume image")

	// Hash Errors
	ErrInvalidHasher  = errors.New("invalid hasher")
	ErrChecksumFailed = errors.New("checksum mismatch")

	// File Errors
	ErrFileReadError  = errors.New("error reading file")
	ErrFileWriteError = errors.New("error writing to file")

	// Storage Errors
	ErrObjectNotFound = errors.New("object not found")
	ErrUploadFailed   = errors.New("upload failed")
	ErrDownloadFailed = errors.New("download failed")

	// Report Errors
	ErrUnsupportedFormat = errors.New("unsupported output format")

	// Workflow Errors
	ErrWorkflowLoad     = errors.New("failed to load workflow")
	ErrWorkflowInvalid  = errors.New("invalid workflow")
	ErrUnknownStepType  = errors.New("unknown step type")
	ErrMissingParameter = errors.New("missing step parameter")
	ErrStepFailed       = errors.New("workflow step failed")
	ErrNoDeviceOpen     = errors.New("no volume image open")
	ErrTemplateRender   = errors.New("failed to render template")
)
