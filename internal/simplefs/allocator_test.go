package simplefs

import (
	"errors"
	"testing"
)

func TestCreateInodeNumbering(t *testing.T) {
	v, _ := mountedVolume(t, 20)

	last := -1
	for i := 0; i < 128; i++ {
		n, err := v.CreateInode()
		if err != nil {
			t.Fatalf("CreateInode #%d failed: %v", i, err)
		}
		if n != i || n <= last {
			t.Fatalf("CreateInode #%d returned %d after %d", i, n, last)
		}
		last = n
	}

	_, err := v.CreateInode()
	if !errors.Is(err, ErrNoFreeInode) {
		t.Fatalf("CreateInode on a full table: got %v; want ErrNoFreeInode", err)
	}
	if !IsSpaceError(err) {
		t.Error("IsSpaceError should classify ErrNoFreeInode")
	}
}

func TestCreateInodeSecondTableBlock(t *testing.T) {
	v, _ := mountedVolume(t, 20)

	for i := 0; i < 64; i++ {
		mustCreate(t, v)
	}
	n := mustCreate(t, v)
	if n != 64 {
		t.Fatalf("first inode of the second table block = %d; want 64", n)
	}

	ino, err := v.LoadInode(64)
	if err != nil || !ino.Valid || ino.Size != 0 || ino.BlockCount() != 0 {
		t.Errorf("LoadInode(64) = %+v, %v", ino, err)
	}
}

func TestCreateInodeReusesLowestSlot(t *testing.T) {
	v, _ := mountedVolume(t, 20)

	for i := 0; i < 5; i++ {
		mustCreate(t, v)
	}
	if err := v.DeleteInode(2); err != nil {
		t.Fatal(err)
	}
	if n := mustCreate(t, v); n != 2 {
		t.Errorf("CreateInode after deleting 2 returned %d", n)
	}
	if n := mustCreate(t, v); n != 5 {
		t.Errorf("CreateInode returned %d; want 5", n)
	}
}

func TestDeleteInode(t *testing.T) {
	v, _ := mountedVolume(t, 20)
	n := mustCreate(t, v)
	mustWrite(t, v, n, pattern(9, 3*BlockSize), 0)
	before := freeBlocks(t, v)

	if err := v.DeleteInode(n); err != nil {
		t.Fatalf("DeleteInode failed: %v", err)
	}
	if got := freeBlocks(t, v); got != before+3 {
		t.Errorf("free blocks after delete = %d; want %d", got, before+3)
	}

	if _, err := v.GetSize(n); !errors.Is(err, ErrInvalidInode) {
		t.Errorf("GetSize after delete: got %v; want ErrInvalidInode", err)
	}
	if err := v.DeleteInode(n); !errors.Is(err, ErrInvalidInode) {
		t.Errorf("second DeleteInode: got %v; want ErrInvalidInode", err)
	}

	ino, _ := v.LoadInode(n)
	if ino != (Inode{}) {
		t.Errorf("deleted inode record not zeroed: %+v", ino)
	}
}

func TestDeleteInodeReleasesEveryPointer(t *testing.T) {
	v, _ := mountedVolume(t, 20)
	n := mustCreate(t, v)

	ino := Inode{Valid: true, Size: 10}
	ino.Direct[3] = 10
	ino.Direct[13] = 11
	if err := v.SaveInode(n, ino); err != nil {
		t.Fatal(err)
	}
	v.free.markUsed(10)
	v.free.markUsed(11)

	if err := v.DeleteInode(n); err != nil {
		t.Fatalf("DeleteInode failed: %v", err)
	}
	if !v.free.isFree(10) || !v.free.isFree(11) {
		t.Error("DeleteInode stopped before the last direct pointer")
	}
}

func TestDeleteOutOfRange(t *testing.T) {
	v, _ := mountedVolume(t, 20)

	for _, n := range []int{-1, 128, 1 << 20} {
		if err := v.DeleteInode(n); !errors.Is(err, ErrInvalidInode) {
			t.Errorf("DeleteInode(%d): got %v; want ErrInvalidInode", n, err)
		}
		if _, err := v.LoadInode(n); !errors.Is(err, ErrInvalidInode) {
			t.Errorf("LoadInode(%d): got %v; want ErrInvalidInode", n, err)
		}
		if err := v.SaveInode(n, Inode{}); !errors.Is(err, ErrInvalidInode) {
			t.Errorf("SaveInode(%d): got %v; want ErrInvalidInode", n, err)
		}
	}
}

func TestGetFreeBlock(t *testing.T) {
	v, _ := mountedVolume(t, 12)

	// 12 blocks: superblock, 2 inode blocks, data blocks 3..11
	for want := uint32(3); want < 12; want++ {
		got, err := v.getFreeBlock()
		if err != nil {
			t.Fatalf("getFreeBlock failed: %v", err)
		}
		if got != want {
			t.Fatalf("getFreeBlock() = %d; want %d", got, want)
		}
	}
	if _, err := v.getFreeBlock(); !errors.Is(err, ErrNoFreeBlock) {
		t.Errorf("getFreeBlock on a full volume: got %v; want ErrNoFreeBlock", err)
	}

	v.releaseBlock(5)
	if got, _ := v.getFreeBlock(); got != 5 {
		t.Errorf("getFreeBlock() = %d after releasing 5", got)
	}
}
