package simplefs

import (
	"github.com/deploymenttheory/go-simplefs/internal/logger"
)

// CreateInode allocates the lowest-numbered free inode and persists it as an empty file
func (v *Volume) CreateInode() (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.checkMounted("create inode"); err != nil {
		return 0, err
	}

	for ordinal := uint32(0); ordinal < v.sb.InodeBlockCount; ordinal++ {
		index := ordinal + 1
		block, err := readInodeBlock(v.dev, index, "create inode")
		if err != nil {
			return 0, err
		}
		for slot := 0; slot < InodesPerBlock; slot++ {
			if getInode(block, slot).Valid {
				continue
			}
			putInode(block, slot, Inode{Valid: true})
			if err := v.dev.WriteBlock(index, block); err != nil {
				return 0, NewFSError(err, "create inode", blockName(index), "inode table")
			}
			n := int(ordinal)*InodesPerBlock + slot
			logger.LogDebug("Created inode", map[string]interface{}{"inode": n})
			return n, nil
		}
	}
	return 0, NewFSError(ErrNoFreeInode, "create inode", "", "")
}

// DeleteInode releases every data block of inode n and marks it free
func (v *Volume) DeleteInode(n int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.checkMounted("delete inode"); err != nil {
		return err
	}
	ino, err := v.loadValidInode(n, "delete inode")
	if err != nil {
		return err
	}

	released := 0
	for _, ptr := range ino.Direct {
		if ptr == 0 {
			continue
		}
		if v.sb.isDataBlock(ptr) {
			v.free.markFree(ptr)
			released++
		}
	}

	if err := saveInode(v.dev, v.sb, n, Inode{}); err != nil {
		return err
	}
	logger.LogDebug("Deleted inode", map[string]interface{}{
		"inode":           n,
		"released_blocks": released,
	})
	return nil
}

// getFreeBlock claims the lowest free block
func (v *Volume) getFreeBlock() (uint32, error) {
	index, ok := v.free.firstFree()
	if !ok {
		return 0, NewFSError(ErrNoFreeBlock, "allocate block", "", "")
	}
	v.free.markUsed(index)
	return index, nil
}

func (v *Volume) releaseBlock(index uint32) {
	v.free.markFree(index)
}
