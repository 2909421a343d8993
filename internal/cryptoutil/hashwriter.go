package cryptoutil

import (
	"hash"
)

// HashWriter implements io.Writer and provides methods to access the underlying hash
type HashWriter struct {
	algorithm HashAlgorithm
	hash      hash.Hash
	written   int64
}

// Write implements io.Writer
func (hw *HashWriter) Write(p []byte) (n int, err error) {
	n, err = hw.hash.Write(p)
	hw.written += int64(n)
	return n, err
}

// SumHex returns the current hash value as a hex-encoded string
func (hw *HashWriter) SumHex() string {
	return Bytes2Hex(hw.hash.Sum(nil))
}

// Checksum returns the current hash value prefixed with the algorithm
func (hw *HashWriter) Checksum() string {
	return FormatHash(hw.algorithm, hw.SumHex())
}

// Written returns the number of bytes hashed so far
func (hw *HashWriter) Written() int64 {
	return hw.written
}

// Reset resets the hash state
func (hw *HashWriter) Reset() {
	hw.hash.Reset()
	hw.written = 0
}

// NewHashWriter creates a new HashWriter with the given hash algorithm
func NewHashWriter(algorithm HashAlgorithm) (*HashWriter, error) {
	hasher, err := NewHasher(algorithm)
	if err != nil {
		return nil, err
	}
	return hasher.NewHashWriter(), nil
}
