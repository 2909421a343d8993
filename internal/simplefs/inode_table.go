package simplefs

import (
	"fmt"

	"github.com/deploymenttheory/go-simplefs/internal/disk"
)

func checkInodeNumber(sb Superblock, n int, operation string) error {
	if n < 0 || n >= int(sb.InodeCount) {
		return NewFSError(ErrInvalidInode, operation, inodeName(n),
			fmt.Sprintf("out of range, volume has %d inodes", sb.InodeCount))
	}
	return nil
}

func readInodeBlock(dev disk.BlockDevice, index uint32, operation string) ([]byte, error) {
	block, err := dev.ReadBlock(index)
	if err != nil {
		return nil, NewFSError(err, operation, blockName(index), "inode table")
	}
	return block, nil
}

// loadInode reads the single table block holding inode n
func loadInode(dev disk.BlockDevice, sb Superblock, n int) (Inode, error) {
	if err := checkInodeNumber(sb, n, "load inode"); err != nil {
		return Inode{}, err
	}
	index, slot := inodeLocation(n)
	block, err := readInodeBlock(dev, index, "load inode")
	if err != nil {
		return Inode{}, err
	}
	return getInode(block, slot), nil
}

// saveInode rewrites inode n in place, preserving the other 63 records of its block
func saveInode(dev disk.BlockDevice, sb Superblock, n int, ino Inode) error {
	if err := checkInodeNumber(sb, n, "save inode"); err != nil {
		return err
	}
	index, slot := inodeLocation(n)
	block, err := readInodeBlock(dev, index, "save inode")
	if err != nil {
		return err
	}
	putInode(block, slot, ino)
	if err := dev.WriteBlock(index, block); err != nil {
		return NewFSError(err, "save inode", inodeName(n), blockName(index))
	}
	return nil
}

// LoadInode returns the record for inode n, valid or not
func (v *Volume) LoadInode(n int) (Inode, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.checkMounted("load inode"); err != nil {
		return Inode{}, err
	}
	return loadInode(v.dev, v.sb, n)
}

// SaveInode overwrites the record for inode n.
// The free-block map is not updated; callers own the consistency of the pointers they store.
func (v *Volume) SaveInode(n int, ino Inode) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.checkMounted("save inode"); err != nil {
		return err
	}
	return saveInode(v.dev, v.sb, n, ino)
}

// loadValidInode loads inode n and rejects it when it is not allocated
func (v *Volume) loadValidInode(n int, operation string) (Inode, error) {
	if err := checkInodeNumber(v.sb, n, operation); err != nil {
		return Inode{}, err
	}
	ino, err := loadInode(v.dev, v.sb, n)
	if err != nil {
		return Inode{}, err
	}
	if !ino.Valid {
		return Inode{}, NewFSError(ErrInvalidInode, operation, inodeName(n), "not allocated")
	}
	return ino, nil
}
