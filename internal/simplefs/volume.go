// Package simplefs implements a single-volume block file storage engine: a superblock,
// a fixed inode table and files of up to 14 direct data blocks.
package simplefs

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/deploymenttheory/go-simplefs/internal/disk"
	"github.com/deploymenttheory/go-simplefs/internal/logger"
)

// Volume is a handle on at most one mounted device.
// Every exported method holds the volume lock for its whole duration.
type Volume struct {
	mu      sync.Mutex
	dev     disk.BlockDevice
	sb      Superblock
	free    *freeBlockMap
	session uuid.UUID
	mounted bool
}

// Usage summarizes block and inode consumption of the mounted volume
type Usage struct {
	BlockCount      uint32 `json:"block_count" plist:"block_count"`
	InodeBlockCount uint32 `json:"inode_block_count" plist:"inode_block_count"`
	DataBlocks      uint32 `json:"data_blocks" plist:"data_blocks"`
	FreeBlocks      uint32 `json:"free_blocks" plist:"free_blocks"`
	InodeCount      uint32 `json:"inode_count" plist:"inode_count"`
	UsedInodes      uint32 `json:"used_inodes" plist:"used_inodes"`
}

// New returns an unmounted volume
func New() *Volume {
	return &Volume{}
}

func (v *Volume) checkMounted(operation string) error {
	if !v.mounted {
		return NewFSError(ErrNotMounted, operation, "", "")
	}
	return nil
}

func checkBlockSize(dev disk.BlockDevice, operation string) error {
	if dev == nil {
		return NewFSError(ErrInvalidArgument, operation, "", "no device")
	}
	if dev.GetBlockSize() != BlockSize {
		return NewFSError(ErrInvalidArgument, operation, "",
			fmt.Sprintf("device block size %d, need %d", dev.GetBlockSize(), BlockSize))
	}
	return nil
}

// Format writes a fresh superblock and an empty inode table to dev.
// Data blocks are left untouched.
func (v *Volume) Format(dev disk.BlockDevice) (Superblock, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.mounted {
		return Superblock{}, NewFSError(ErrAlreadyMounted, "format", "", "unmount before formatting")
	}
	if err := checkBlockSize(dev, "format"); err != nil {
		return Superblock{}, err
	}

	sb := NewSuperblock(dev.GetBlockCount())
	if sb.BlockCount < sb.DataStart() {
		return Superblock{}, NewFSError(ErrInvalidArgument, "format", "",
			fmt.Sprintf("%d blocks cannot hold a superblock and %d inode blocks", sb.BlockCount, sb.InodeBlockCount))
	}

	if err := dev.WriteBlock(0, sb.marshal()); err != nil {
		return Superblock{}, NewFSError(err, "format", blockName(0), "superblock")
	}

	empty := make([]byte, BlockSize)
	for index := uint32(1); index <= sb.InodeBlockCount; index++ {
		if err := dev.WriteBlock(index, empty); err != nil {
			return Superblock{}, NewFSError(err, "format", blockName(index), "inode table")
		}
	}

	logger.LogDebug("Formatted volume", map[string]interface{}{
		"blocks":       sb.BlockCount,
		"inode_blocks": sb.InodeBlockCount,
		"inodes":       sb.InodeCount,
	})
	return sb, nil
}

// Mount validates the superblock on dev and rebuilds the free-block map from every valid inode
func (v *Volume) Mount(dev disk.BlockDevice) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.mounted {
		return NewFSError(ErrAlreadyMounted, "mount", "", "")
	}
	if err := checkBlockSize(dev, "mount"); err != nil {
		return err
	}

	sb, err := readSuperblock(dev, "mount")
	if err != nil {
		return err
	}
	if sb.BlockCount != dev.GetBlockCount() {
		return NewFSError(ErrSizeMismatch, "mount", blockName(0),
			fmt.Sprintf("superblock says %d blocks, device has %d", sb.BlockCount, dev.GetBlockCount()))
	}

	free, err := buildFreeBlockMap(dev, sb)
	if err != nil {
		return err
	}

	v.dev = dev
	v.sb = sb
	v.free = free
	v.session = uuid.New()
	v.mounted = true

	logger.LogDebug("Mounted volume", map[string]interface{}{
		"session":     v.session.String(),
		"blocks":      sb.BlockCount,
		"free_blocks": free.freeCount(),
	})
	return nil
}

// Unmount drops the session state; nothing is written to the device
func (v *Volume) Unmount() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.checkMounted("unmount"); err != nil {
		return err
	}

	logger.LogDebug("Unmounted volume", map[string]interface{}{"session": v.session.String()})
	v.dev = nil
	v.sb = Superblock{}
	v.free = nil
	v.session = uuid.Nil
	v.mounted = false
	return nil
}

// Mounted reports whether a device is mounted
func (v *Volume) Mounted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mounted
}

// SessionID identifies the current mount; uuid.Nil when unmounted
func (v *Volume) SessionID() uuid.UUID {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.session
}

// Superblock returns the mounted geometry
func (v *Volume) Superblock() (Superblock, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.checkMounted("superblock"); err != nil {
		return Superblock{}, err
	}
	return v.sb, nil
}

// Stat counts free blocks and allocated inodes
func (v *Volume) Stat() (Usage, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.checkMounted("stat"); err != nil {
		return Usage{}, err
	}

	usage := Usage{
		BlockCount:      v.sb.BlockCount,
		InodeBlockCount: v.sb.InodeBlockCount,
		DataBlocks:      v.sb.DataBlockCount(),
		FreeBlocks:      uint32(v.free.freeCount()),
		InodeCount:      v.sb.InodeCount,
	}
	for index := uint32(1); index <= v.sb.InodeBlockCount; index++ {
		block, err := readInodeBlock(v.dev, index, "stat")
		if err != nil {
			return Usage{}, err
		}
		for slot := 0; slot < InodesPerBlock; slot++ {
			if getInode(block, slot).Valid {
				usage.UsedInodes++
			}
		}
	}
	return usage, nil
}

// GetSize returns the size in bytes of an allocated inode
func (v *Volume) GetSize(n int) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.checkMounted("get size"); err != nil {
		return 0, err
	}
	ino, err := v.loadValidInode(n, "get size")
	if err != nil {
		return 0, err
	}
	return int(ino.Size), nil
}

// ReadSuperblock reads and validates the superblock of dev without mounting it
func ReadSuperblock(dev disk.BlockDevice) (Superblock, error) {
	return readSuperblock(dev, "read superblock")
}

func readSuperblock(dev disk.BlockDevice, operation string) (Superblock, error) {
	block, err := dev.ReadBlock(0)
	if err != nil {
		return Superblock{}, NewFSError(err, operation, blockName(0), "superblock")
	}
	sb, err := unmarshalSuperblock(block)
	if err != nil {
		return Superblock{}, err
	}
	if err := sb.Validate(); err != nil {
		return Superblock{}, err
	}
	return sb, nil
}

// buildFreeBlockMap marks the superblock, the inode table and every block referenced by
// a valid inode as occupied. All 14 pointers of every valid inode are inspected; pointers
// outside the data region are skipped.
func buildFreeBlockMap(dev disk.BlockDevice, sb Superblock) (*freeBlockMap, error) {
	free := newFreeBlockMap(sb.BlockCount)
	for index := uint32(0); index <= sb.InodeBlockCount; index++ {
		free.markUsed(index)
	}

	for index := uint32(1); index <= sb.InodeBlockCount; index++ {
		block, err := readInodeBlock(dev, index, "mount")
		if err != nil {
			return nil, err
		}
		for slot := 0; slot < InodesPerBlock; slot++ {
			ino := getInode(block, slot)
			if !ino.Valid {
				continue
			}
			n := int(index-1)*InodesPerBlock + slot
			for i, ptr := range ino.Direct {
				if ptr == 0 {
					continue
				}
				if !sb.isDataBlock(ptr) {
					logger.LogWarn("Skipping direct pointer outside the data region", map[string]interface{}{
						"inode":   n,
						"pointer": i,
						"block":   ptr,
					})
					continue
				}
				if !free.markUsed(ptr) {
					logger.LogWarn("Block referenced more than once", map[string]interface{}{
						"inode": n,
						"block": ptr,
					})
				}
			}
		}
	}
	return free, nil
}
