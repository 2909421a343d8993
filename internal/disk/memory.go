package disk

import (
	"fmt"
	"sync"
)

// MemoryDevice is a BlockDevice held entirely in memory
type MemoryDevice struct {
	mu     sync.Mutex
	blocks [][]byte
	closed bool
	stats  counters
}

// NewMemoryDevice returns a zero-filled device of the given number of blocks
func NewMemoryDevice(blocks uint32) *MemoryDevice {
	d := &MemoryDevice{blocks: make([][]byte, blocks)}
	for i := range d.blocks {
		d.blocks[i] = make([]byte, BlockSize)
	}
	return d
}

func (d *MemoryDevice) ReadBlock(index uint32) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, NewDeviceError(ErrDeviceClosed, "ReadBlock", blockName(index), "")
	}
	if index >= uint32(len(d.blocks)) {
		return nil, NewDeviceError(ErrInvalidBlockAddr, "ReadBlock", blockName(index), fmt.Sprintf("device has %d blocks", len(d.blocks)))
	}

	buf := make([]byte, BlockSize)
	copy(buf, d.blocks[index])
	d.stats.reads.Add(1)
	return buf, nil
}

func (d *MemoryDevice) WriteBlock(index uint32, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return NewDeviceError(ErrDeviceClosed, "WriteBlock", blockName(index), "")
	}
	if index >= uint32(len(d.blocks)) {
		return NewDeviceError(ErrInvalidBlockAddr, "WriteBlock", blockName(index), fmt.Sprintf("device has %d blocks", len(d.blocks)))
	}
	if len(data) != BlockSize {
		return NewDeviceError(ErrInvalidBlockSize, "WriteBlock", blockName(index), fmt.Sprintf("data size %d does not match block size %d", len(data), BlockSize))
	}

	copy(d.blocks[index], data)
	d.stats.writes.Add(1)
	return nil
}

func (d *MemoryDevice) GetBlockSize() uint32 {
	return BlockSize
}

func (d *MemoryDevice) GetBlockCount() uint32 {
	return uint32(len(d.blocks))
}

// Stats returns the block reads and writes served so far
func (d *MemoryDevice) Stats() IOStats {
	return d.stats.snapshot()
}

func (d *MemoryDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	return nil
}
