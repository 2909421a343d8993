// Package disk provides the fixed-block-size devices a simplefs volume lives on.
package disk

// BlockSize is the size of every block on every device, in bytes
const BlockSize = 4096

// BlockDevice is raw, synchronous, fixed-size block I/O
type BlockDevice interface {
	// ReadBlock reads the block at index and returns a BlockSize buffer
	ReadBlock(index uint32) ([]byte, error)

	// WriteBlock writes exactly BlockSize bytes to the block at index
	WriteBlock(index uint32, data []byte) error

	// GetBlockSize returns the size of blocks in bytes
	GetBlockSize() uint32

	// GetBlockCount returns the total number of blocks
	GetBlockCount() uint32

	// Close releases resources associated with the device
	Close() error
}

// StatsProvider is implemented by devices that count their block I/O
type StatsProvider interface {
	Stats() IOStats
}
