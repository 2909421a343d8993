package disk

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileDeviceReadWriteBlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "volume.img")

	device, err := CreateFileDevice(path, 8)
	if err != nil {
		t.Fatalf("failed to create file device: %v", err)
	}
	defer device.Close()

	if device.GetBlockCount() != 8 {
		t.Fatalf("unexpected block count: got %d, want 8", device.GetBlockCount())
	}

	data := make([]byte, BlockSize)
	for i := range data {
		data[i] = byte(i % 256)
	}

	if err := device.WriteBlock(3, data); err != nil {
		t.Fatalf("WriteBlock failed: %v", err)
	}

	readBack, err := device.ReadBlock(3)
	if err != nil {
		t.Fatalf("ReadBlock failed: %v", err)
	}
	if !bytes.Equal(data, readBack) {
		t.Error("block read back does not match block written")
	}

	stats := device.Stats()
	if stats.Reads != 1 || stats.Writes != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestOpenFileDeviceKeepsContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "volume.img")

	device, err := CreateFileDevice(path, 4)
	if err != nil {
		t.Fatal(err)
	}
	block := bytes.Repeat([]byte{0xAB}, BlockSize)
	if err := device.WriteBlock(1, block); err != nil {
		t.Fatal(err)
	}
	if err := device.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenFileDevice(path)
	if err != nil {
		t.Fatalf("failed to reopen device: %v", err)
	}
	defer reopened.Close()

	if reopened.GetBlockCount() != 4 {
		t.Errorf("unexpected block count: got %d, want 4", reopened.GetBlockCount())
	}
	readBack, err := reopened.ReadBlock(1)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(block, readBack) {
		t.Error("contents did not survive reopening")
	}
}

func TestOpenFileDeviceTooSmall(t *testing.T) {
	tempFile, err := os.CreateTemp(t.TempDir(), "simplefs-dev-test")
	if err != nil {
		t.Fatal(err)
	}
	tempFile.Write(make([]byte, 100))
	tempFile.Close()

	_, err = OpenFileDevice(tempFile.Name())
	if !errors.Is(err, ErrInvalidBlockSize) {
		t.Errorf("expected ErrInvalidBlockSize, got: %v", err)
	}
}

func TestDeviceRejectsBadRequests(t *testing.T) {
	path := filepath.Join(t.TempDir(), "volume.img")
	fileDevice, err := CreateFileDevice(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer fileDevice.Close()

	devices := map[string]BlockDevice{
		"file":   fileDevice,
		"memory": NewMemoryDevice(2),
	}

	for name, device := range devices {
		if _, err := device.ReadBlock(2); !errors.Is(err, ErrInvalidBlockAddr) {
			t.Errorf("%s: expected ErrInvalidBlockAddr on read, got: %v", name, err)
		}
		if err := device.WriteBlock(5, make([]byte, BlockSize)); !errors.Is(err, ErrInvalidBlockAddr) {
			t.Errorf("%s: expected ErrInvalidBlockAddr on write, got: %v", name, err)
		}
		if err := device.WriteBlock(0, []byte{0x00}); !errors.Is(err, ErrInvalidBlockSize) {
			t.Errorf("%s: expected ErrInvalidBlockSize, got: %v", name, err)
		}
	}
}

func TestClosedDevice(t *testing.T) {
	device := NewMemoryDevice(1)
	device.Close()

	_, err := device.ReadBlock(0)
	if !IsIOError(err) {
		t.Errorf("expected I/O error after close, got: %v", err)
	}
}

func TestMemoryDeviceReturnsCopies(t *testing.T) {
	device := NewMemoryDevice(1)

	buf, err := device.ReadBlock(0)
	if err != nil {
		t.Fatal(err)
	}
	buf[0] = 0xFF

	again, _ := device.ReadBlock(0)
	if again[0] != 0 {
		t.Error("mutating a read buffer changed the device contents")
	}
}

func TestSeekBlock(t *testing.T) {
	tests := []struct {
		index    uint32
		expected int64
	}{
		{0, 0},
		{1, 4096},
		{2, 8192},
		{100, 409600},
	}
	for _, tt := range tests {
		if offset := SeekBlock(tt.index); offset != tt.expected {
			t.Errorf("SeekBlock(%d) = %d; want %d", tt.index, offset, tt.expected)
		}
	}
}

func TestIOStatsString(t *testing.T) {
	s := IOStats{Reads: 3, Writes: 2}
	want := "3 disk block reads\n2 disk block writes"
	if s.String() != want {
		t.Errorf("String() = %q; want %q", s.String(), want)
	}
}
