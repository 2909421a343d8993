// layout.go
/*
On-disk layout of a simplefs volume:

	block 0                              superblock
	blocks 1 ..= InodeBlockCount         inode table, 64 records per block
	blocks InodeBlockCount+1 .. end      data blocks, reachable only through inode pointers

All fields are little-endian unsigned 32-bit integers.
*/
package simplefs

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-simplefs/internal/disk"
)

const (
	// BlockSize is the size of every volume block in bytes
	BlockSize = disk.BlockSize

	// Magic identifies a formatted volume
	Magic uint32 = 0xF0F03410

	// InodesPerBlock is the number of inode records packed into one inode block
	InodesPerBlock = 64

	// PointersPerInode is the number of direct block pointers in an inode
	PointersPerInode = 14

	// InodeSize is the encoded size of one inode record
	InodeSize = BlockSize / InodesPerBlock

	// MaxFileSize is the largest file the direct pointers can address
	MaxFileSize = PointersPerInode * BlockSize

	superblockSize = 16
)

// Superblock describes the geometry of a volume
type Superblock struct {
	Magic           uint32 `json:"magic" plist:"magic"`
	BlockCount      uint32 `json:"block_count" plist:"block_count"`
	InodeBlockCount uint32 `json:"inode_block_count" plist:"inode_block_count"`
	InodeCount      uint32 `json:"inode_count" plist:"inode_count"`
}

// Inode is one file record
type Inode struct {
	Valid  bool
	Size   uint32
	Direct [PointersPerInode]uint32
}

// inodeBlocksFor reserves a tenth of the volume, rounded up, for the inode table
func inodeBlocksFor(blockCount uint32) uint32 {
	return uint32((uint64(blockCount) + 9) / 10)
}

// NewSuperblock computes the geometry of a volume of blockCount blocks
func NewSuperblock(blockCount uint32) Superblock {
	inodeBlocks := inodeBlocksFor(blockCount)
	return Superblock{
		Magic:           Magic,
		BlockCount:      blockCount,
		InodeBlockCount: inodeBlocks,
		InodeCount:      inodeBlocks * InodesPerBlock,
	}
}

// Validate checks the magic number and that the geometry fields agree with each other
func (sb Superblock) Validate() error {
	if sb.Magic != Magic {
		return NewFSError(ErrCorruptSuperblock, "validate superblock", blockName(0),
			fmt.Sprintf("magic 0x%08X", sb.Magic))
	}
	expected := NewSuperblock(sb.BlockCount)
	if sb.InodeBlockCount != expected.InodeBlockCount || sb.InodeCount != expected.InodeCount {
		return NewFSError(ErrCorruptSuperblock, "validate superblock", blockName(0),
			fmt.Sprintf("%d blocks cannot have %d inode blocks and %d inodes",
				sb.BlockCount, sb.InodeBlockCount, sb.InodeCount))
	}
	return nil
}

// DataStart is the first block that may hold file data
func (sb Superblock) DataStart() uint32 {
	return sb.InodeBlockCount + 1
}

// DataBlockCount is the number of blocks available for file data
func (sb Superblock) DataBlockCount() uint32 {
	if sb.BlockCount <= sb.DataStart() {
		return 0
	}
	return sb.BlockCount - sb.DataStart()
}

func (sb Superblock) isDataBlock(index uint32) bool {
	return index > sb.InodeBlockCount && index < sb.BlockCount
}

func (sb Superblock) marshal() []byte {
	buf := make([]byte, BlockSize)
	binary.LittleEndian.PutUint32(buf[0:4], sb.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], sb.BlockCount)
	binary.LittleEndian.PutUint32(buf[8:12], sb.InodeBlockCount)
	binary.LittleEndian.PutUint32(buf[12:16], sb.InodeCount)
	return buf
}

func unmarshalSuperblock(block []byte) (Superblock, error) {
	if len(block) < superblockSize {
		return Superblock{}, NewFSError(ErrCorruptSuperblock, "read superblock", blockName(0),
			fmt.Sprintf("need %d bytes, got %d", superblockSize, len(block)))
	}
	return Superblock{
		Magic:           binary.LittleEndian.Uint32(block[0:4]),
		BlockCount:      binary.LittleEndian.Uint32(block[4:8]),
		InodeBlockCount: binary.LittleEndian.Uint32(block[8:12]),
		InodeCount:      binary.LittleEndian.Uint32(block[12:16]),
	}, nil
}

// BlockCount returns how many data blocks the inode references
func (ino Inode) BlockCount() int {
	count := 0
	for _, ptr := range ino.Direct {
		if ptr != 0 {
			count++
		}
	}
	return count
}

// putInode encodes ino into the record for slot inside an inode block
func putInode(block []byte, slot int, ino Inode) {
	rec := block[slot*InodeSize : (slot+1)*InodeSize]
	var valid uint32
	if ino.Valid {
		valid = 1
	}
	binary.LittleEndian.PutUint32(rec[0:4], valid)
	binary.LittleEndian.PutUint32(rec[4:8], ino.Size)
	for i, ptr := range ino.Direct {
		binary.LittleEndian.PutUint32(rec[8+4*i:12+4*i], ptr)
	}
}

// getInode decodes the record for slot inside an inode block
func getInode(block []byte, slot int) Inode {
	rec := block[slot*InodeSize : (slot+1)*InodeSize]
	ino := Inode{
		Valid: binary.LittleEndian.Uint32(rec[0:4]) != 0,
		Size:  binary.LittleEndian.Uint32(rec[4:8]),
	}
	for i := range ino.Direct {
		ino.Direct[i] = binary.LittleEndian.Uint32(rec[8+4*i : 12+4*i])
	}
	return ino
}

// inodeLocation maps an inode number to its table block and slot
func inodeLocation(n int) (uint32, int) {
	return uint32(1 + n/InodesPerBlock), n % InodesPerBlock
}
