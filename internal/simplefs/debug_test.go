package simplefs

import (
	"errors"
	"testing"

	"github.com/deploymenttheory/go-simplefs/internal/disk"
)

func TestDebugDump(t *testing.T) {
	v, dev := mountedVolume(t, 20)

	a := mustCreate(t, v)
	b := mustCreate(t, v)
	mustCreate(t, v)
	mustWrite(t, v, a, pattern(1, BlockSize+10), 0)
	mustWrite(t, v, b, []byte("hi"), 0)
	if err := v.DeleteInode(2); err != nil {
		t.Fatal(err)
	}
	v.Unmount()

	report, err := New().DebugDump(dev)
	if err != nil {
		t.Fatalf("DebugDump failed: %v", err)
	}
	if report.Superblock != NewSuperblock(20) {
		t.Errorf("superblock = %+v", report.Superblock)
	}
	if len(report.Inodes) != 2 {
		t.Fatalf("got %d inodes; want 2", len(report.Inodes))
	}

	first := report.Inodes[0]
	if first.Number != a || first.Size != BlockSize+10 || len(first.Blocks) != 2 || first.Blocks[0] != 3 || first.Blocks[1] != 4 {
		t.Errorf("inode %d = %+v", a, first)
	}
	second := report.Inodes[1]
	if second.Number != b || second.Size != 2 || len(second.Blocks) != 1 || second.Blocks[0] != 5 {
		t.Errorf("inode %d = %+v", b, second)
	}
}

func TestDebugDumpErrors(t *testing.T) {
	if _, err := New().DebugDump(disk.NewMemoryDevice(20)); !errors.Is(err, ErrCorruptSuperblock) {
		t.Errorf("unformatted device: got %v; want ErrCorruptSuperblock", err)
	}

	dev := disk.NewMemoryDevice(10)
	dev.WriteBlock(0, NewSuperblock(40).marshal())
	if _, err := New().DebugDump(dev); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("truncated device: got %v; want ErrSizeMismatch", err)
	}
}
