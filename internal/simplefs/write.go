package simplefs

import (
	"fmt"

	"github.com/deploymenttheory/go-simplefs/internal/logger"
)

// Write copies length bytes of data into inode n at offset, allocating data blocks as needed.
// offset may equal the current size to append but never exceed it.
//
// Bytes written before a failure stay committed: the returned count covers them and the
// error explains why the write stopped. The file grows to offset+written and never shrinks.
func (v *Volume) Write(n int, data []byte, length, offset int) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.checkMounted("write"); err != nil {
		return 0, err
	}
	if data == nil || length < 0 || offset < 0 || length > len(data) {
		return 0, NewFSError(ErrInvalidArgument, "write", inodeName(n),
			fmt.Sprintf("length %d offset %d buffer %d", length, offset, len(data)))
	}
	ino, err := v.loadValidInode(n, "write")
	if err != nil {
		return 0, err
	}
	if offset > int(ino.Size) {
		return 0, NewFSError(ErrOffsetBeyondEOF, "write", inodeName(n),
			fmt.Sprintf("offset %d, size %d", offset, ino.Size))
	}
	if length == 0 {
		return 0, nil
	}

	written := 0
	var writeErr error
	for written < length {
		pos := offset + written
		blockIndex := pos / BlockSize
		if blockIndex >= PointersPerInode {
			writeErr = NewFSError(ErrFileSizeLimitExceeded, "write", inodeName(n),
				fmt.Sprintf("offset %d needs direct block %d, max %d bytes", pos, blockIndex, MaxFileSize))
			break
		}
		within := pos % BlockSize
		chunk := min(BlockSize-within, length-written)

		ptr := ino.Direct[blockIndex]
		fresh := ptr == 0
		var block []byte
		if fresh {
			ptr, err = v.getFreeBlock()
			if err != nil {
				writeErr = err
				break
			}
			block = make([]byte, BlockSize)
		} else {
			if !v.sb.isDataBlock(ptr) {
				writeErr = NewFSError(ErrCorruptInode, "write", inodeName(n),
					fmt.Sprintf("direct[%d] = %d", blockIndex, ptr))
				break
			}
			block, err = v.dev.ReadBlock(ptr)
			if err != nil {
				writeErr = NewFSError(err, "write", inodeName(n), blockName(ptr))
				break
			}
		}

		copy(block[within:], data[written:written+chunk])
		if err := v.dev.WriteBlock(ptr, block); err != nil {
			if fresh {
				v.releaseBlock(ptr)
			}
			writeErr = NewFSError(err, "write", inodeName(n), blockName(ptr))
			break
		}
		if fresh {
			ino.Direct[blockIndex] = ptr
		}
		written += chunk
	}

	if end := offset + written; end > int(ino.Size) {
		ino.Size = uint32(end)
	}
	if err := saveInode(v.dev, v.sb, n, ino); err != nil && writeErr == nil {
		writeErr = err
	}

	if writeErr != nil {
		logger.LogDebug("Write stopped early", map[string]interface{}{
			"inode":   n,
			"written": written,
			"length":  length,
			"error":   writeErr.Error(),
		})
	}
	return written, writeErr
}
