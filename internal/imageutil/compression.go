package imageutil

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/ulikunitz/xz"

	apperrors "github.com/deploymenttheory/go-simplefs/internal/errors"
)

// Compression is the codec wrapped around an exported image
type Compression string

const (
	None  Compression = "none"
	Gzip  Compression = "gzip"
	Bzip2 Compression = "bzip2"
	XZ    Compression = "xz"
)

var magicNumbers = map[Compression][]byte{
	Gzip:  {0x1F, 0x8B},
	Bzip2: {0x42, 0x5A, 0x68},
	XZ:    {0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00},
}

// magicLen is the longest magic number
const magicLen = 6

// ParseCompression validates a compression name
func ParseCompression(name string) (Compression, error) {
	switch c := Compression(strings.ToLower(name)); c {
	case None, Gzip, Bzip2, XZ:
		return c, nil
	case "":
		return None, nil
	default:
		return "", fmt.Errorf("%w: %s", apperrors.ErrUnsupportedCompression, name)
	}
}

// DetectFormat identifies the compression of an image from its first bytes.
// Anything without a known magic number is treated as a raw image.
func DetectFormat(header []byte) Compression {
	for format, magic := range magicNumbers {
		if bytes.HasPrefix(header, magic) {
			return format
		}
	}
	return None
}

// Extension returns the file suffix used for the compression
func (c Compression) Extension() string {
	switch c {
	case Gzip:
		return ".gz"
	case Bzip2:
		return ".bz2"
	case XZ:
		return ".xz"
	default:
		return ""
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// newCompressor wraps w; closing the result flushes the codec but not w
func newCompressor(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case None:
		return nopWriteCloser{w}, nil
	case Gzip:
		return gzip.NewWriter(w), nil
	case Bzip2:
		bzip2Writer, err := bzip2.NewWriter(w, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrCompressionFailed, err)
		}
		return bzip2Writer, nil
	case XZ:
		xzWriter, err := xz.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrCompressionFailed, err)
		}
		return xzWriter, nil
	default:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedCompression, c)
	}
}

// newDecompressor wraps r for reading the decoded image
func newDecompressor(r io.Reader, c Compression) (io.ReadCloser, error) {
	switch c {
	case None:
		return io.NopCloser(r), nil
	case Gzip:
		gzipReader, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrDecompressionFailed, err)
		}
		return gzipReader, nil
	case Bzip2:
		bzip2Reader, err := bzip2.NewReader(r, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrDecompressionFailed, err)
		}
		return bzip2Reader, nil
	case XZ:
		xzReader, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrDecompressionFailed, err)
		}
		return io.NopCloser(xzReader), nil
	default:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedCompression, c)
	}
}
