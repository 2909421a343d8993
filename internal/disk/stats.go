package disk

import (
	"fmt"
	"sync/atomic"
)

// IOStats counts the block operations a device has served
type IOStats struct {
	Reads  uint64 `json:"reads"`
	Writes uint64 `json:"writes"`
}

// String renders the counters the way the device reports them on close
func (s IOStats) String() string {
	return fmt.Sprintf("%d disk block reads\n%d disk block writes", s.Reads, s.Writes)
}

type counters struct {
	reads  atomic.Uint64
	writes atomic.Uint64
}

func (c *counters) snapshot() IOStats {
	return IOStats{Reads: c.reads.Load(), Writes: c.writes.Load()}
}
