package simplefs

import (
	"fmt"
	"io"
)

const copyChunkSize = 16 * 1024

// CopyIn streams r into inode n starting at offset 0 and returns the bytes stored
func CopyIn(v *Volume, n int, r io.Reader) (int64, error) {
	buf := make([]byte, copyChunkSize)
	var offset int64
	for {
		nr, readErr := r.Read(buf)
		if nr > 0 {
			nw, err := v.Write(n, buf, nr, int(offset))
			offset += int64(nw)
			if err != nil {
				return offset, err
			}
		}
		if readErr == io.EOF {
			return offset, nil
		}
		if readErr != nil {
			return offset, fmt.Errorf("copy in to %s: %w", inodeName(n), readErr)
		}
	}
}

// CopyOut streams the whole contents of inode n to w and returns the bytes copied
func CopyOut(v *Volume, n int, w io.Writer) (int64, error) {
	var offset int64
	for {
		data, err := v.Read(n, copyChunkSize, int(offset))
		if err != nil {
			return offset, err
		}
		if len(data) == 0 {
			return offset, nil
		}
		nw, err := w.Write(data)
		offset += int64(nw)
		if err != nil {
			return offset, fmt.Errorf("copy out of %s: %w", inodeName(n), err)
		}
	}
}
