package objectstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/deploymenttheory/go-simplefs/internal/fsutil"
)

// DirObjectStore keeps each bucket as a directory under Root and each key as a file path
type DirObjectStore struct {
	Root string
}

func (ds *DirObjectStore) path(bucket, key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid object key `%s`", key)
	}
	return filepath.Join(ds.Root, bucket, clean), nil
}

func (ds *DirObjectStore) PutObject(bucket, key string, data io.ReadSeeker) error {
	path, err := ds.path(bucket, key)
	if err != nil {
		return err
	}
	f, err := fsutil.CreateFileWithDirs(path)
	if err != nil {
		return fmt.Errorf("putting object in bucket `%s` at key `%s`: %w", bucket, key, err)
	}
	if _, err := io.Copy(f, data); err != nil {
		f.Close()
		return fmt.Errorf("putting object in bucket `%s` at key `%s`: %w", bucket, key, err)
	}
	return f.Close()
}

func (ds *DirObjectStore) GetObject(bucket, key string) (io.ReadCloser, error) {
	path, err := ds.path(bucket, key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ObjectNotFoundErr{Bucket: bucket, Key: key}
		}
		return nil, fmt.Errorf("getting object from bucket `%s` at key `%s`: %w", bucket, key, err)
	}
	return f, nil
}

func (ds *DirObjectStore) ListObjects(bucket, prefix string) ([]string, error) {
	root := filepath.Join(ds.Root, bucket)
	var keys []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				return filepath.SkipDir
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return keys, fmt.Errorf("listing objects in bucket `%s` with prefix `%s`: %w", bucket, prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (ds *DirObjectStore) DeleteObject(bucket, key string) error {
	path, err := ds.path(bucket, key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return &ObjectNotFoundErr{Bucket: bucket, Key: key}
		}
		return fmt.Errorf("deleting object `%s` from bucket `%s`: %w", key, bucket, err)
	}
	return nil
}
