// Package objectstore keeps exported volume images in S3 or a local directory
package objectstore

import (
	"fmt"
	"io"

	apperrors "github.com/deploymenttheory/go-simplefs/internal/errors"
)

// ObjectNotFoundErr is returned when a bucket has no object at key
type ObjectNotFoundErr struct {
	Bucket string
	Key    string
}

func (err *ObjectNotFoundErr) Error() string {
	return fmt.Sprintf(
		"object not found (bucket=%s) (key=%s)",
		err.Bucket,
		err.Key,
	)
}

// Unwrap lets errors.Is match apperrors.ErrObjectNotFound
func (err *ObjectNotFoundErr) Unwrap() error {
	return apperrors.ErrObjectNotFound
}

// ObjectStore is a flat bucket/key blob store
type ObjectStore interface {
	PutObject(bucket, key string, data io.ReadSeeker) error
	GetObject(bucket, key string) (io.ReadCloser, error)
	ListObjects(bucket, prefix string) ([]string, error)
	DeleteObject(bucket, key string) error
}
