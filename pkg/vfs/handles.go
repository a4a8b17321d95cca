package vfs

// Descriptor is the per-open state created by Open and destroyed by Close.
// It must not outlive the inode it references.
type Descriptor struct {
	Path    string
	TNode   *TNode
	Inode   *Inode
	SeekPos uint64
	Mode    OpenMode
}

// handleTable maps handles to open descriptors. All operations are called
// with the global VFS lock already held.
type handleTable struct {
	entries map[Handle]*Descriptor
	next    Handle
}

func newHandleTable() *handleTable {
	return &handleTable{
		entries: make(map[Handle]*Descriptor),
		next:    MinHandle,
	}
}

// insert allocates a fresh handle for fd and returns it.
func (t *handleTable) insert(fd *Descriptor) Handle {
	h := t.next
	t.next++
	t.entries[h] = fd
	return h
}

// lookup returns the descriptor for h, or nil if h is unknown.
func (t *handleTable) lookup(h Handle) *Descriptor {
	return t.entries[h]
}

// delete removes h from the table.
func (t *handleTable) delete(h Handle) {
	delete(t.entries, h)
}
