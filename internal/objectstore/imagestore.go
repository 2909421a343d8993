package objectstore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/deploymenttheory/go-simplefs/internal/config"
	apperrors "github.com/deploymenttheory/go-simplefs/internal/errors"
	"github.com/deploymenttheory/go-simplefs/internal/fsutil"
	"github.com/deploymenttheory/go-simplefs/internal/imageutil"
	"github.com/deploymenttheory/go-simplefs/internal/logger"
)

// localBucket is the bucket directory used by the local provider
const localBucket = "images"

// ImageStore pushes and pulls exported images and their manifests under a key prefix
type ImageStore struct {
	Objects ObjectStore
	Bucket  string
	Prefix  string
}

// NewFromConfig returns the image store selected by storage.provider
func NewFromConfig(cfg config.AppConfig) (*ImageStore, error) {
	storage, err := config.GetStorageConfig(cfg)
	if err != nil {
		return nil, err
	}

	switch sc := storage.(type) {
	case config.S3Config:
		if sc.Bucket == "" {
			return nil, fmt.Errorf("%w: storage.s3.bucket is not set", apperrors.ErrInvalidConfig)
		}
		client, err := NewS3ObjectStore(sc)
		if err != nil {
			return nil, err
		}
		return &ImageStore{Objects: client, Bucket: sc.Bucket, Prefix: sc.Prefix}, nil
	case config.LocalStoreConfig:
		return &ImageStore{Objects: &DirObjectStore{Root: sc.Dir}, Bucket: localBucket}, nil
	default:
		return nil, fmt.Errorf("%w: %T", apperrors.ErrStorageProvider, storage)
	}
}

func (is *ImageStore) key(name string) string {
	return path.Join(is.Prefix, name)
}

// Push uploads the image file at imagePath and, if present, its manifest
func (is *ImageStore) Push(imagePath string) (string, error) {
	name := filepath.Base(imagePath)
	if err := is.putFile(imagePath, is.key(name)); err != nil {
		return "", err
	}

	manifestPath := imageutil.ManifestPath(imagePath)
	if fsutil.FileExists(manifestPath) {
		if err := is.putFile(manifestPath, is.key(name+imageutil.ManifestSuffix)); err != nil {
			return "", err
		}
	}

	logger.LogInfo("Pushed volume image", map[string]interface{}{
		"bucket": is.Bucket,
		"key":    is.key(name),
	})
	return is.key(name), nil
}

func (is *ImageStore) putFile(localPath, key string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrFileReadError, err)
	}
	defer f.Close()

	if err := is.Objects.PutObject(is.Bucket, key, f); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrUploadFailed, err)
	}
	return nil
}

// Pull downloads image name, and its manifest when the store has one, into dir
func (is *ImageStore) Pull(name, dir string) (string, error) {
	localPath := filepath.Join(dir, name)
	if err := is.getFile(is.key(name), localPath); err != nil {
		return "", err
	}

	err := is.getFile(is.key(name+imageutil.ManifestSuffix), imageutil.ManifestPath(localPath))
	if err != nil && !isNotFound(err) {
		return "", err
	}

	logger.LogInfo("Pulled volume image", map[string]interface{}{
		"bucket": is.Bucket,
		"key":    is.key(name),
		"path":   localPath,
	})
	return localPath, nil
}

func (is *ImageStore) getFile(key, localPath string) error {
	body, err := is.Objects.GetObject(is.Bucket, key)
	if err != nil {
		return err
	}
	defer body.Close()

	f, err := fsutil.CreateFileWithDirs(localPath)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrFileWriteError, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return fmt.Errorf("%w: %v", apperrors.ErrDownloadFailed, err)
	}
	return f.Close()
}

// List returns the names of stored images, without their manifests
func (is *ImageStore) List() ([]string, error) {
	prefix := is.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	keys, err := is.Objects.ListObjects(is.Bucket, prefix)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, key := range keys {
		if strings.HasSuffix(key, imageutil.ManifestSuffix) {
			continue
		}
		names = append(names, strings.TrimPrefix(key, prefix))
	}
	return names, nil
}

// Manifest fetches and decodes the manifest stored for image name
func (is *ImageStore) Manifest(name string) (imageutil.Manifest, error) {
	body, err := is.Objects.GetObject(is.Bucket, is.key(name+imageutil.ManifestSuffix))
	if err != nil {
		return imageutil.Manifest{}, err
	}
	defer body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return imageutil.Manifest{}, fmt.Errorf("%w: %v", apperrors.ErrDownloadFailed, err)
	}
	return imageutil.UnmarshalManifest(buf.Bytes())
}

func isNotFound(err error) bool {
	var notFound *ObjectNotFoundErr
	return errors.As(err, &notFound)
}
