package simplefs

import (
	"errors"
	"testing"
)

func TestNewSuperblockGeometry(t *testing.T) {
	tests := []struct {
		blocks          uint32
		wantInodeBlocks uint32
	}{
		{2, 1},
		{10, 1},
		{11, 2},
		{20, 2},
		{30, 3},
		{100, 10},
		{101, 11},
	}

	for _, tt := range tests {
		sb := NewSuperblock(tt.blocks)
		if sb.InodeBlockCount != tt.wantInodeBlocks {
			t.Errorf("NewSuperblock(%d).InodeBlockCount = %d; want %d", tt.blocks, sb.InodeBlockCount, tt.wantInodeBlocks)
		}
		if sb.InodeCount != tt.wantInodeBlocks*InodesPerBlock {
			t.Errorf("NewSuperblock(%d).InodeCount = %d; want %d", tt.blocks, sb.InodeCount, tt.wantInodeBlocks*InodesPerBlock)
		}
		if sb.Magic != Magic {
			t.Errorf("NewSuperblock(%d).Magic = 0x%08X", tt.blocks, sb.Magic)
		}
	}
}

func TestSuperblockEncoding(t *testing.T) {
	sb := NewSuperblock(20)
	block := sb.marshal()

	if len(block) != BlockSize {
		t.Fatalf("marshal produced %d bytes; want %d", len(block), BlockSize)
	}
	// little-endian magic
	if block[0] != 0x10 || block[1] != 0x34 || block[2] != 0xF0 || block[3] != 0xF0 {
		t.Errorf("unexpected magic bytes % X", block[0:4])
	}

	decoded, err := unmarshalSuperblock(block)
	if err != nil {
		t.Fatalf("unmarshalSuperblock failed: %v", err)
	}
	if decoded != sb {
		t.Errorf("decoded %+v; want %+v", decoded, sb)
	}

	if _, err := unmarshalSuperblock(block[:8]); !errors.Is(err, ErrCorruptSuperblock) {
		t.Errorf("short superblock: got %v; want ErrCorruptSuperblock", err)
	}
}

func TestSuperblockValidate(t *testing.T) {
	tests := []struct {
		name    string
		sb      Superblock
		wantErr bool
	}{
		{"fresh", NewSuperblock(20), false},
		{"bad magic", Superblock{Magic: 0xDEADBEEF, BlockCount: 20, InodeBlockCount: 2, InodeCount: 128}, true},
		{"zeroed", Superblock{}, true},
		{"wrong inode blocks", Superblock{Magic: Magic, BlockCount: 20, InodeBlockCount: 5, InodeCount: 320}, true},
		{"wrong inode count", Superblock{Magic: Magic, BlockCount: 20, InodeBlockCount: 2, InodeCount: 100}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sb.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrCorruptSuperblock) {
				t.Errorf("Validate() error = %v; want ErrCorruptSuperblock", err)
			}
		})
	}
}

func TestInodeEncoding(t *testing.T) {
	block := make([]byte, BlockSize)
	ino := Inode{Valid: true, Size: 12345}
	ino.Direct[0] = 3
	ino.Direct[13] = 19

	putInode(block, 63, ino)
	putInode(block, 62, Inode{Valid: true, Size: 1})

	if got := getInode(block, 63); got != ino {
		t.Errorf("getInode(63) = %+v; want %+v", got, ino)
	}
	if got := getInode(block, 0); got.Valid || got.Size != 0 {
		t.Errorf("untouched slot decoded as %+v", got)
	}
	if got := getInode(block, 62); got.Size != 1 {
		t.Errorf("neighbouring slot was overwritten: %+v", got)
	}

	// valid | size | direct[0] at the start of the last record
	rec := block[63*InodeSize:]
	if rec[0] != 1 || rec[4] != 0x39 || rec[5] != 0x30 || rec[8] != 3 {
		t.Errorf("unexpected record bytes % X", rec[:12])
	}
	if got := ino.BlockCount(); got != 2 {
		t.Errorf("BlockCount() = %d; want 2", got)
	}
}

func TestInodeLocation(t *testing.T) {
	tests := []struct {
		n         int
		wantBlock uint32
		wantSlot  int
	}{
		{0, 1, 0},
		{63, 1, 63},
		{64, 2, 0},
		{127, 2, 63},
		{130, 3, 2},
	}

	for _, tt := range tests {
		block, slot := inodeLocation(tt.n)
		if block != tt.wantBlock || slot != tt.wantSlot {
			t.Errorf("inodeLocation(%d) = (%d, %d); want (%d, %d)", tt.n, block, slot, tt.wantBlock, tt.wantSlot)
		}
	}
}

func TestDataRegion(t *testing.T) {
	sb := NewSuperblock(20)

	if sb.DataStart() != 3 || sb.DataBlockCount() != 17 {
		t.Errorf("DataStart() = %d, DataBlockCount() = %d; want 3, 17", sb.DataStart(), sb.DataBlockCount())
	}
	for _, index := range []uint32{0, 1, 2, 20, 21} {
		if sb.isDataBlock(index) {
			t.Errorf("block %d reported as a data block", index)
		}
	}
	for _, index := range []uint32{3, 10, 19} {
		if !sb.isDataBlock(index) {
			t.Errorf("block %d not reported as a data block", index)
		}
	}
}
