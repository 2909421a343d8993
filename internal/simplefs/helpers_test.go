package simplefs

import (
	"bytes"
	"testing"

	"github.com/deploymenttheory/go-simplefs/internal/disk"
)

// faultyDevice fails writes for which failWrite returns true
type faultyDevice struct {
	*disk.MemoryDevice
	failWrite func(index uint32) bool
}

func (d *faultyDevice) WriteBlock(index uint32, data []byte) error {
	if d.failWrite != nil && d.failWrite(index) {
		return disk.NewDeviceError(disk.ErrIOError, "WriteBlock", blockName(index), "injected failure")
	}
	return d.MemoryDevice.WriteBlock(index, data)
}

// mountedVolume formats and mounts a fresh memory device of the given size
func mountedVolume(t *testing.T, blocks uint32) (*Volume, *disk.MemoryDevice) {
	t.Helper()

	dev := disk.NewMemoryDevice(blocks)
	v := New()
	if _, err := v.Format(dev); err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if err := v.Mount(dev); err != nil {
		t.Fatalf("Mount failed: %v", err)
	}
	return v, dev
}

func mustCreate(t *testing.T, v *Volume) int {
	t.Helper()

	n, err := v.CreateInode()
	if err != nil {
		t.Fatalf("CreateInode failed: %v", err)
	}
	return n
}

func mustWrite(t *testing.T, v *Volume, n int, data []byte, offset int) {
	t.Helper()

	written, err := v.Write(n, data, len(data), offset)
	if err != nil {
		t.Fatalf("Write(%d, %d bytes, offset %d) failed: %v", n, len(data), offset, err)
	}
	if written != len(data) {
		t.Fatalf("Write(%d) wrote %d bytes; want %d", n, written, len(data))
	}
}

// pattern returns length bytes that differ between seeds and positions
func pattern(seed byte, length int) []byte {
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = seed + byte(i%251)
	}
	return buf
}

func freeBlocks(t *testing.T, v *Volume) uint32 {
	t.Helper()

	usage, err := v.Stat()
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	return usage.FreeBlocks
}

func assertContent(t *testing.T, v *Volume, n int, want []byte) {
	t.Helper()

	got, err := v.Read(n, len(want)+1, 0)
	if err != nil {
		t.Fatalf("Read(%d) failed: %v", n, err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("inode %d holds %d bytes that differ from the %d expected", n, len(got), len(want))
	}
}
