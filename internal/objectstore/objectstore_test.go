package objectstore

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/deploymenttheory/go-simplefs/internal/config"
	apperrors "github.com/deploymenttheory/go-simplefs/internal/errors"
	"github.com/deploymenttheory/go-simplefs/internal/imageutil"
)

type objectStoreFake map[[2]string][]byte

func (osf objectStoreFake) PutObject(bucket, key string, data io.ReadSeeker) error {
	var b bytes.Buffer
	if _, err := io.Copy(&b, data); err != nil {
		return err
	}
	osf[[2]string{bucket, key}] = b.Bytes()
	return nil
}

func (osf objectStoreFake) GetObject(bucket, key string) (io.ReadCloser, error) {
	data, found := osf[[2]string{bucket, key}]
	if !found {
		return nil, &ObjectNotFoundErr{Bucket: bucket, Key: key}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (osf objectStoreFake) ListObjects(bucket, prefix string) ([]string, error) {
	var out []string
	for key := range osf {
		if key[0] == bucket && strings.HasPrefix(key[1], prefix) {
			out = append(out, key[1])
		}
	}
	sort.Strings(out)
	return out, nil
}

func (osf objectStoreFake) DeleteObject(bucket, key string) error {
	k := [2]string{bucket, key}
	if _, found := osf[k]; !found {
		return &ObjectNotFoundErr{Bucket: bucket, Key: key}
	}
	delete(osf, k)
	return nil
}

func TestDirObjectStore(t *testing.T) {
	store := &DirObjectStore{Root: t.TempDir()}

	keys, err := store.ListObjects("bucket", "")
	if err != nil || len(keys) != 0 {
		t.Fatalf("ListObjects on an empty store = %v, %v", keys, err)
	}

	if err := store.PutObject("bucket", "a/one", strings.NewReader("1")); err != nil {
		t.Fatalf("PutObject failed: %v", err)
	}
	if err := store.PutObject("bucket", "b/two", strings.NewReader("22")); err != nil {
		t.Fatalf("PutObject failed: %v", err)
	}

	body, err := store.GetObject("bucket", "b/two")
	if err != nil {
		t.Fatalf("GetObject failed: %v", err)
	}
	data, _ := io.ReadAll(body)
	body.Close()
	if string(data) != "22" {
		t.Errorf("GetObject = %q; want 22", data)
	}

	keys, _ = store.ListObjects("bucket", "a/")
	if len(keys) != 1 || keys[0] != "a/one" {
		t.Errorf("ListObjects(a/) = %v", keys)
	}

	if err := store.DeleteObject("bucket", "a/one"); err != nil {
		t.Fatalf("DeleteObject failed: %v", err)
	}
	_, err = store.GetObject("bucket", "a/one")
	var notFound *ObjectNotFoundErr
	if !errors.As(err, &notFound) || !errors.Is(err, apperrors.ErrObjectNotFound) {
		t.Errorf("GetObject after delete: got %v", err)
	}
	if err := store.DeleteObject("bucket", "a/one"); !isNotFound(err) {
		t.Errorf("second DeleteObject: got %v", err)
	}

	for _, key := range []string{"", "../escape", "/abs"} {
		if err := store.PutObject("bucket", key, strings.NewReader("x")); err == nil {
			t.Errorf("PutObject accepted key %q", key)
		}
	}
}

func writeImage(t *testing.T, dir string) string {
	t.Helper()

	imagePath := filepath.Join(dir, "volume.img.gz")
	if err := os.WriteFile(imagePath, []byte("compressed"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := imageutil.WriteManifest(imagePath, imageutil.Manifest{
		Compression: imageutil.Gzip,
		BlockCount:  20,
		RawChecksum: "sha256:abcd",
	}); err != nil {
		t.Fatal(err)
	}
	return imagePath
}

func TestImageStorePushPull(t *testing.T) {
	fake := objectStoreFake{}
	store := &ImageStore{Objects: fake, Bucket: "volumes", Prefix: "images"}
	imagePath := writeImage(t, t.TempDir())

	key, err := store.Push(imagePath)
	if err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if key != "images/volume.img.gz" {
		t.Errorf("Push key = %s", key)
	}
	if _, ok := fake[[2]string{"volumes", "images/volume.img.gz.manifest.json"}]; !ok {
		t.Error("manifest was not pushed")
	}

	names, err := store.List()
	if err != nil || len(names) != 1 || names[0] != "volume.img.gz" {
		t.Errorf("List() = %v, %v", names, err)
	}

	manifest, err := store.Manifest("volume.img.gz")
	if err != nil || manifest.BlockCount != 20 {
		t.Errorf("Manifest() = %+v, %v", manifest, err)
	}

	dir := t.TempDir()
	localPath, err := store.Pull("volume.img.gz", dir)
	if err != nil {
		t.Fatalf("Pull failed: %v", err)
	}
	data, _ := os.ReadFile(localPath)
	if string(data) != "compressed" {
		t.Errorf("pulled image = %q", data)
	}
	if m, err := imageutil.ReadManifest(localPath); err != nil || m.RawChecksum != "sha256:abcd" {
		t.Errorf("pulled manifest = %+v, %v", m, err)
	}

	if _, err := store.Pull("missing.img", dir); !isNotFound(err) {
		t.Errorf("Pull of a missing image: got %v", err)
	}
}

func TestImageStoreWithoutManifest(t *testing.T) {
	store := &ImageStore{Objects: &DirObjectStore{Root: t.TempDir()}, Bucket: localBucket}

	imagePath := filepath.Join(t.TempDir(), "bare.img")
	os.WriteFile(imagePath, []byte("raw"), 0644)
	if _, err := store.Push(imagePath); err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	dir := t.TempDir()
	if _, err := store.Pull("bare.img", dir); err != nil {
		t.Fatalf("Pull without a manifest failed: %v", err)
	}
	if _, err := os.Stat(imageutil.ManifestPath(filepath.Join(dir, "bare.img"))); !os.IsNotExist(err) {
		t.Error("Pull created a manifest that was never pushed")
	}
}

func TestNewFromConfig(t *testing.T) {
	var cfg config.AppConfig
	cfg.Storage.Provider = "local"
	cfg.Storage.Local.Dir = t.TempDir()

	store, err := NewFromConfig(cfg)
	if err != nil {
		t.Fatalf("local provider: %v", err)
	}
	if _, ok := store.Objects.(*DirObjectStore); !ok {
		t.Errorf("local provider built %T", store.Objects)
	}

	cfg.Storage.Provider = ""
	store, err = NewFromConfig(cfg)
	if err != nil {
		t.Fatalf("empty provider: %v", err)
	}
	if dir, ok := store.Objects.(*DirObjectStore); !ok || dir.Root != cfg.Storage.Local.Dir {
		t.Errorf("empty provider built %#v", store.Objects)
	}

	cfg.Storage.Provider = "s3"
	if _, err := NewFromConfig(cfg); !errors.Is(err, apperrors.ErrInvalidConfig) {
		t.Errorf("s3 without bucket: got %v", err)
	}

	cfg.Storage.S3 = config.S3Config{
		Bucket:     "volumes",
		Region:     "us-east-1",
		AccessKey:  "key",
		SecretKey:  "secret",
		Endpoint:   "localhost:9000",
		DisableSSL: true,
		Prefix:     "images/",
	}
	store, err = NewFromConfig(cfg)
	if err != nil {
		t.Fatalf("s3 provider: %v", err)
	}
	if _, ok := store.Objects.(*S3ObjectStore); !ok || store.Bucket != "volumes" {
		t.Errorf("s3 provider built %T for bucket %s", store.Objects, store.Bucket)
	}

	cfg.Storage.Provider = "gcs"
	if _, err := NewFromConfig(cfg); !errors.Is(err, apperrors.ErrStorageProvider) {
		t.Errorf("unknown provider: got %v", err)
	}
}
