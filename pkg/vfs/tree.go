package vfs

import "github.com/google/uuid"

// BrokenTime is a calendar-broken-down modification timestamp, the shape
// Inode.ModTime is kept in (year/month/day/hour/minute/second), distinct
// from the POSIX seconds+nanoseconds Stat timestamps a TNode carries.
type BrokenTime struct {
	Year, Month, Day, Hour, Min, Sec int
}

// TNode is one named entry in a directory: a name bound to an inode, plus
// the stat record and parent back-reference. A TNode may appear as a child
// of at most one parent (invariant 4).
type TNode struct {
	Name   string
	Inode  *Inode
	Stat   Stat
	Parent *TNode // non-owning; the root's parent is the root itself
}

// Inode is one file object. Children is populated only when Type is
// traversable (folder or mount point); it is the single owning reference
// from a directory to its entries.
type Inode struct {
	Type     NodeType
	Perm     uint32 // permission bits only, S_IRWXU|S_IRWXG|S_IRWXO masked
	Size     uint64
	ModTime  BrokenTime
	RefCount int

	Provider *Provider
	Priv     interface{} // opaque back-end-private data

	Children []*TNode

	// Mountpoint is set (non-owning) when this inode is the root of a
	// mounted back-end; it names the tnode that now owns this inode.
	Mountpoint *TNode

	// MountEpoch tags a mounted provider root with a fresh generation
	// token, so a handle opened before an unmount/remount can be told
	// apart from one opened after. Zero for any non-mount-root inode.
	MountEpoch uuid.UUID
}

// findChild returns the child tnode named name, or nil.
func (ino *Inode) findChild(name string) *TNode {
	for _, c := range ino.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// addChild appends tn to ino's child vector. Caller must hold the VFS lock
// and must have verified tn isn't already a child of another parent.
func (ino *Inode) addChild(tn *TNode) {
	ino.Children = append(ino.Children, tn)
}

// removeChild detaches the child named name from ino's child vector.
func (ino *Inode) removeChild(name string) {
	for i, c := range ino.Children {
		if c.Name == name {
			ino.Children = append(ino.Children[:i], ino.Children[i+1:]...)
			return
		}
	}
}

// Detach removes tn from its parent's child vector. Back-ends call this
// from RmNode once they've dropped the backing object, the way
// original_source's per-filesystem rmnode implementations unlink the
// tnode from its directory as part of removal. A no-op on the root, which
// has no parent to detach from.
func (tn *TNode) Detach() {
	if tn.Parent == nil || tn.Parent == tn {
		return
	}
	tn.Parent.Inode.removeChild(tn.Name)
}

// newInode allocates an inode of the given type with fresh device/inode ids
// recorded into tnode-facing stat by the caller; the inode itself only
// tracks what the provider and tree model need.
func newInode(typ NodeType, perm uint32, provider *Provider) *Inode {
	ino := &Inode{
		Type:     typ,
		Perm:     perm & PermMask,
		Provider: provider,
	}
	if typ.IsTraversable() {
		ino.Children = nil
	}
	return ino
}
