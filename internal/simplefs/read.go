package simplefs

import (
	"fmt"
)

// Read returns up to length bytes of inode n starting at offset.
// The result is shorter than length when the file ends first, and empty at end of file.
func (v *Volume) Read(n, length, offset int) ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.checkMounted("read"); err != nil {
		return nil, err
	}
	if length < 0 || offset < 0 {
		return nil, NewFSError(ErrInvalidArgument, "read", inodeName(n),
			fmt.Sprintf("length %d offset %d", length, offset))
	}
	ino, err := v.loadValidInode(n, "read")
	if err != nil {
		return nil, err
	}
	size := int(ino.Size)
	if offset > size {
		return nil, NewFSError(ErrOffsetBeyondEOF, "read", inodeName(n),
			fmt.Sprintf("offset %d, size %d", offset, size))
	}

	remaining := min(length, size-offset)
	out := make([]byte, 0, remaining)
	pos := offset
	for remaining > 0 {
		blockIndex := pos / BlockSize
		if blockIndex >= PointersPerInode {
			return nil, NewFSError(ErrCorruptInode, "read", inodeName(n),
				fmt.Sprintf("size %d exceeds %d direct blocks", size, PointersPerInode))
		}
		within := pos % BlockSize
		chunk := min(BlockSize-within, remaining)

		ptr := ino.Direct[blockIndex]
		switch {
		case ptr == 0:
			out = append(out, make([]byte, chunk)...)
		case !v.sb.isDataBlock(ptr):
			return nil, NewFSError(ErrCorruptInode, "read", inodeName(n),
				fmt.Sprintf("direct[%d] = %d", blockIndex, ptr))
		default:
			block, err := v.dev.ReadBlock(ptr)
			if err != nil {
				return nil, NewFSError(err, "read", inodeName(n), blockName(ptr))
			}
			out = append(out, block[within:within+chunk]...)
		}

		pos += chunk
		remaining -= chunk
	}
	return out, nil
}
