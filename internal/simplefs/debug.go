package simplefs

import (
	"fmt"

	"github.com/deploymenttheory/go-simplefs/internal/disk"
)

// DebugReport is a read-only snapshot of a volume's superblock and allocated inodes
type DebugReport struct {
	Superblock Superblock    `json:"superblock" plist:"superblock"`
	Inodes     []InodeReport `json:"inodes" plist:"inodes"`
}

// InodeReport describes one valid inode
type InodeReport struct {
	Number int      `json:"inode" plist:"inode"`
	Size   uint32   `json:"size" plist:"size"`
	Blocks []uint32 `json:"blocks" plist:"blocks"`
}

// DebugDump reads the superblock and inode table of dev without mounting it
func (v *Volume) DebugDump(dev disk.BlockDevice) (*DebugReport, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := checkBlockSize(dev, "debug"); err != nil {
		return nil, err
	}
	sb, err := readSuperblock(dev, "debug")
	if err != nil {
		return nil, err
	}
	if sb.BlockCount > dev.GetBlockCount() {
		return nil, NewFSError(ErrSizeMismatch, "debug", blockName(0),
			fmt.Sprintf("superblock says %d blocks, device has %d", sb.BlockCount, dev.GetBlockCount()))
	}

	report := &DebugReport{Superblock: sb, Inodes: []InodeReport{}}
	for index := uint32(1); index <= sb.InodeBlockCount; index++ {
		block, err := readInodeBlock(dev, index, "debug")
		if err != nil {
			return nil, err
		}
		for slot := 0; slot < InodesPerBlock; slot++ {
			ino := getInode(block, slot)
			if !ino.Valid {
				continue
			}
			entry := InodeReport{
				Number: int(index-1)*InodesPerBlock + slot,
				Size:   ino.Size,
				Blocks: []uint32{},
			}
			for _, ptr := range ino.Direct {
				if ptr != 0 {
					entry.Blocks = append(entry.Blocks, ptr)
				}
			}
			report.Inodes = append(report.Inodes, entry)
		}
	}
	return report, nil
}
