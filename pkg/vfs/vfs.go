package vfs

import (
	"sync"

	"github.com/google/uuid"
)

// VFS bundles the tree, the provider registry, both id allocators, the
// handle table and the single coarse lock that protects all of it. One
// VFS lives for the lifetime of the running kernel; TTYHandle records the
// reserved handle the read-clamp exception (§4.5 read) checks against.
type VFS struct {
	mu sync.Mutex

	Config Config

	Root *TNode

	providers *registry
	deviceIDs *monotonicID
	inodeIDs  *monotonicID
	handles   *handleTable
	clock     Clock

	// TTYHandle is the handle mount wiring assigns to the TTY device; read
	// skips the size-clamp for it, letting a blocking TTY read ask for more
	// than the inode's currently-known size.
	TTYHandle Handle
}

// New builds a fresh VFS with just its root folder in place — the
// root-of-everything invariant (exactly one tnode names the root; its
// parent reference is itself). Mounting back-ends onto it is a separate,
// caller-driven step (see package boot for the well-known wiring).
func New(cfg Config) *VFS {
	v := &VFS{
		Config:    cfg,
		providers: newRegistry(),
		deviceIDs: newMonotonicID(),
		inodeIDs:  newMonotonicID(),
		handles:   newHandleTable(),
		clock:     SystemClock(),
		TTYHandle: InvalidHandle,
	}

	rootIno := newInode(NodeFolder, 0777, nil)
	rootIno.RefCount = 0
	devID := v.deviceIDs.newDeviceID()
	inoID := v.inodeIDs.newInodeID()
	v.Root = &TNode{
		Name:  "",
		Inode: rootIno,
		Stat: Stat{
			Dev:   devID,
			Ino:   inoID,
			Mode:  S_IFDIR | 0777,
			Nlink: 1,
		},
		Parent: nil,
	}
	v.Root.Parent = v.Root // the root's parent reference is itself, per invariant 1
	return v
}

// SetClock overrides the Clock used by Create for atime/mtime/ctime
// stamping. Intended for tests; boot wiring leaves the system clock in
// place.
func (v *VFS) SetClock(c Clock) {
	v.clock = c
}

// RegisterProvider adds a back-end to the registry. Call only during boot
// wiring, before any task can race a Mount against the registry.
func (v *VFS) RegisterProvider(p *Provider) {
	v.providers.Register(p)
}

// lockedResolve is resolvePath called with v.mu already held by the caller.
func (v *VFS) lockedResolve(p string, flags ResolveFlag, finalType NodeType) (*TNode, FsError) {
	return v.resolvePath(v.Root, p, flags, finalType)
}

// NewInodeID mints a fresh inode id from the shared allocator. Back-end
// packages that build tnodes of their own (a lazily-discovered FAT entry,
// say) use this instead of reaching into VFS internals they have no access
// to from outside the package.
func (v *VFS) NewInodeID() InodeID {
	return v.inodeIDs.newInodeID()
}

// NewDeviceID mints a fresh device id, one per mounted back-end instance.
func (v *VFS) NewDeviceID() DeviceID {
	return v.deviceIDs.newDeviceID()
}

// newMountEpoch mints a fresh mount-generation token. Exposed so callers
// (and tests) can detect a handle surviving across an unmount/remount of
// the inode it was opened against — a gap original_source's kernel has no
// concept of at all.
func newMountEpoch() uuid.UUID {
	return uuid.New()
}
