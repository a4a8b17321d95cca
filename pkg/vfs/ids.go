package vfs

import "sync"

// monotonicID is a counter guarded by its own lock, independent of the
// global VFS lock so minting an id never contends with unrelated lock
// holders. The VFS keeps two of these — one for device ids, one for inode
// ids — per spec's "ID allocators" component.
type monotonicID struct {
	mu   sync.Mutex
	next uint64
}

func newMonotonicID() *monotonicID {
	return &monotonicID{next: 1}
}

// value atomically returns the current counter and increments it. Overflow
// is undefined, as with the 64-bit counters this mirrors.
func (a *monotonicID) value() uint64 {
	a.mu.Lock()
	id := a.next
	a.next++
	a.mu.Unlock()
	return id
}

func (a *monotonicID) newDeviceID() DeviceID {
	return DeviceID(a.value())
}

func (a *monotonicID) newInodeID() InodeID {
	return InodeID(a.value())
}
