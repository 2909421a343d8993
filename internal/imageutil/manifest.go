package imageutil

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	apperrors "github.com/deploymenttheory/go-simplefs/internal/errors"
	"github.com/deploymenttheory/go-simplefs/internal/fsutil"
	"github.com/deploymenttheory/go-simplefs/internal/simplefs"
)

// ManifestSuffix is appended to an image name to name its manifest
const ManifestSuffix = ".manifest.json"

// Manifest describes an exported volume image
type Manifest struct {
	Compression     Compression          `json:"compression"`
	BlockSize       uint32               `json:"block_size"`
	BlockCount      uint32               `json:"block_count"`
	RawSize         int64                `json:"raw_size"`
	RawChecksum     string               `json:"raw_checksum"`
	ArchiveSize     int64                `json:"archive_size,omitempty"`
	ArchiveChecksum string               `json:"archive_checksum,omitempty"`
	Superblock      *simplefs.Superblock `json:"superblock,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
}

// ManifestPath returns the manifest file name for an image file
func ManifestPath(imagePath string) string {
	return imagePath + ManifestSuffix
}

// MarshalManifest encodes a manifest as indented JSON
func MarshalManifest(m Manifest) ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// UnmarshalManifest decodes a manifest
func UnmarshalManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("%w: manifest: %v", apperrors.ErrInvalidImage, err)
	}
	return m, nil
}

// WriteManifest writes m next to the image at imagePath
func WriteManifest(imagePath string, m Manifest) error {
	data, err := MarshalManifest(m)
	if err != nil {
		return err
	}
	f, err := fsutil.CreateFileWithDirs(ManifestPath(imagePath))
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrFileWriteError, err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrFileWriteError, err)
	}
	return nil
}

// ReadManifest reads the manifest stored next to the image at imagePath
func ReadManifest(imagePath string) (Manifest, error) {
	data, err := os.ReadFile(ManifestPath(imagePath))
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", apperrors.ErrFileReadError, err)
	}
	return UnmarshalManifest(data)
}
