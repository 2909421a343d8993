package simplefs

// freeBlockMap is the in-memory record of which blocks are occupied.
// It is rebuilt from the inode table on every mount and never written to disk.
type freeBlockMap struct {
	used []bool
	free int
}

func newFreeBlockMap(blocks uint32) *freeBlockMap {
	return &freeBlockMap{
		used: make([]bool, blocks),
		free: int(blocks),
	}
}

// markUsed reports whether the block was free before the call
func (m *freeBlockMap) markUsed(index uint32) bool {
	if index >= uint32(len(m.used)) || m.used[index] {
		return false
	}
	m.used[index] = true
	m.free--
	return true
}

func (m *freeBlockMap) markFree(index uint32) {
	if index >= uint32(len(m.used)) || !m.used[index] {
		return
	}
	m.used[index] = false
	m.free++
}

func (m *freeBlockMap) isFree(index uint32) bool {
	return index < uint32(len(m.used)) && !m.used[index]
}

// firstFree scans from block 0 for the lowest free entry
func (m *freeBlockMap) firstFree() (uint32, bool) {
	if m.free == 0 {
		return 0, false
	}
	for i, used := range m.used {
		if !used {
			return uint32(i), true
		}
	}
	return 0, false
}

func (m *freeBlockMap) freeCount() int {
	return m.free
}

func (m *freeBlockMap) size() int {
	return len(m.used)
}
