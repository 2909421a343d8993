package imageutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/deploymenttheory/go-simplefs/internal/disk"
	apperrors "github.com/deploymenttheory/go-simplefs/internal/errors"
	"github.com/deploymenttheory/go-simplefs/internal/fsutil"
)

// ImageName returns the file name of an exported image, e.g. "volume.img.xz"
func ImageName(base string, c Compression) string {
	return base + ".img" + c.Extension()
}

// ExportFile exports dev to path and writes the manifest next to it
func ExportFile(dev disk.BlockDevice, path string, opts Options) (Manifest, error) {
	f, err := fsutil.CreateFileWithDirs(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", apperrors.ErrFileWriteError, err)
	}

	m, err := Export(dev, f, opts)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("%w: %v", apperrors.ErrFileWriteError, closeErr)
	}
	if err != nil {
		os.Remove(path)
		return Manifest{}, err
	}

	if err := WriteManifest(path, m); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// ImportFile decodes the image at src into a raw image at dst.
// A manifest stored next to src, when present, is used to verify the result.
func ImportFile(src, dst string) (Manifest, error) {
	in, err := os.Open(src)
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", apperrors.ErrFileReadError, err)
	}
	defer in.Close()

	var expected *Manifest
	if fsutil.FileExists(ManifestPath(src)) {
		m, err := ReadManifest(src)
		if err != nil {
			return Manifest{}, err
		}
		expected = &m
	}

	if err := fsutil.CreateDirIfNotExists(filepath.Dir(dst)); err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", apperrors.ErrFileWriteError, err)
	}
	tmp := dst + ".partial"
	out, err := os.Create(tmp)
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", apperrors.ErrFileWriteError, err)
	}

	m, err := Import(in, out, expected)
	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("%w: %v", apperrors.ErrFileWriteError, closeErr)
	}
	if err != nil {
		os.Remove(tmp)
		return Manifest{}, err
	}

	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return Manifest{}, fmt.Errorf("%w: %v", apperrors.ErrFileWriteError, err)
	}
	return m, nil
}
