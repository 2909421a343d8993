// Package imageutil exports block devices to compressed, checksummed volume images and back
package imageutil

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/deploymenttheory/go-simplefs/internal/cryptoutil"
	"github.com/deploymenttheory/go-simplefs/internal/disk"
	apperrors "github.com/deploymenttheory/go-simplefs/internal/errors"
	"github.com/deploymenttheory/go-simplefs/internal/logger"
	"github.com/deploymenttheory/go-simplefs/internal/simplefs"
)

// Options control how an image is exported
type Options struct {
	Compression Compression
	Checksum    cryptoutil.HashAlgorithm
}

// DefaultOptions returns gzip compression with sha256 checksums
func DefaultOptions() Options {
	return Options{Compression: Gzip, Checksum: cryptoutil.SHA256}
}

// countingWriter counts bytes passed through to w
type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// Export streams every block of dev through the chosen compressor into w
func Export(dev disk.BlockDevice, w io.Writer, opts Options) (Manifest, error) {
	if opts.Checksum == "" {
		opts.Checksum = cryptoutil.SHA256
	}
	rawHash, err := cryptoutil.NewHashWriter(opts.Checksum)
	if err != nil {
		return Manifest{}, err
	}
	archiveHash, err := cryptoutil.NewHashWriter(opts.Checksum)
	if err != nil {
		return Manifest{}, err
	}

	archive := &countingWriter{w: io.MultiWriter(w, archiveHash)}
	compressor, err := newCompressor(archive, opts.Compression)
	if err != nil {
		return Manifest{}, err
	}
	raw := io.MultiWriter(compressor, rawHash)

	for index := uint32(0); index < dev.GetBlockCount(); index++ {
		block, err := dev.ReadBlock(index)
		if err != nil {
			compressor.Close()
			return Manifest{}, fmt.Errorf("export block %d: %w", index, err)
		}
		if _, err := raw.Write(block); err != nil {
			compressor.Close()
			return Manifest{}, fmt.Errorf("%w: %v", apperrors.ErrCompressionFailed, err)
		}
	}
	if err := compressor.Close(); err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", apperrors.ErrCompressionFailed, err)
	}

	m := Manifest{
		Compression:     opts.Compression,
		BlockSize:       dev.GetBlockSize(),
		BlockCount:      dev.GetBlockCount(),
		RawSize:         rawHash.Written(),
		RawChecksum:     rawHash.Checksum(),
		ArchiveSize:     archive.n,
		ArchiveChecksum: archiveHash.Checksum(),
		CreatedAt:       time.Now().UTC(),
	}
	if sb, err := simplefs.ReadSuperblock(dev); err == nil {
		m.Superblock = &sb
	}

	logger.LogDebug("Exported volume image", map[string]interface{}{
		"blocks":       m.BlockCount,
		"compression":  string(m.Compression),
		"archive_size": m.ArchiveSize,
	})
	return m, nil
}

// Import decodes an image from r and writes the raw blocks to w.
// When expected is non-nil its compression is used and the raw checksum is verified against it;
// otherwise the compression is detected from the leading bytes.
func Import(r io.Reader, w io.Writer, expected *Manifest) (Manifest, error) {
	algorithm := cryptoutil.SHA256
	if expected != nil && expected.RawChecksum != "" {
		if _, a := cryptoutil.ParseHashWithAlgorithm(expected.RawChecksum); a != "" {
			algorithm = a
		}
	}
	rawHash, err := cryptoutil.NewHashWriter(algorithm)
	if err != nil {
		return Manifest{}, err
	}

	buffered := bufio.NewReader(r)
	var compression Compression
	if expected != nil && expected.Compression != "" {
		compression = expected.Compression
	} else {
		header, err := buffered.Peek(magicLen)
		if err != nil && err != io.EOF {
			return Manifest{}, fmt.Errorf("%w: %v", apperrors.ErrFileReadError, err)
		}
		compression = DetectFormat(header)
	}

	decompressor, err := newDecompressor(buffered, compression)
	if err != nil {
		return Manifest{}, err
	}
	defer decompressor.Close()

	written, err := io.Copy(io.MultiWriter(w, rawHash), decompressor)
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", apperrors.ErrDecompressionFailed, err)
	}
	if written == 0 || written%disk.BlockSize != 0 {
		return Manifest{}, fmt.Errorf("%w: %d bytes is not a whole number of %d-byte blocks",
			apperrors.ErrInvalidImage, written, disk.BlockSize)
	}

	m := Manifest{
		Compression: compression,
		BlockSize:   disk.BlockSize,
		BlockCount:  uint32(written / disk.BlockSize),
		RawSize:     written,
		RawChecksum: rawHash.Checksum(),
		CreatedAt:   time.Now().UTC(),
	}

	if expected != nil {
		if err := Verify(*expected, m); err != nil {
			return m, err
		}
	}
	return m, nil
}

// Verify compares the raw contents recorded in expected with actual
func Verify(expected, actual Manifest) error {
	if expected.RawSize != 0 && expected.RawSize != actual.RawSize {
		return fmt.Errorf("%w: raw size %d, expected %d", apperrors.ErrChecksumFailed, actual.RawSize, expected.RawSize)
	}
	if expected.RawChecksum != "" && !strings.EqualFold(expected.RawChecksum, actual.RawChecksum) {
		return fmt.Errorf("%w: raw checksum %s, expected %s", apperrors.ErrChecksumFailed, actual.RawChecksum, expected.RawChecksum)
	}
	return nil
}
