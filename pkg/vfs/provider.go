package vfs

// MaxNameLen bounds a provider name and a tnode's name, mirroring the fixed
// buffers original_source declares for vfs_fsinfo_t.name and vfs_tnode_t.name.
const MaxNameLen = 64

// MaxPathLen bounds a path string passed into the resolver.
const MaxPathLen = 1024

// Provider is a filesystem back-end's capability set (§4.5/§6). Dispatch is
// by value of the inode's Provider reference, never by type assertion or
// embedding — any optional field left nil means the back-end doesn't
// support that operation.
type Provider struct {
	// Name identifies the provider for Mount's fsname lookup.
	Name string

	// Temporary back-ends (RAMFS, TTYFS, PIPEFS) require no backing block
	// device; Mount skips the device-inode validation for them.
	Temporary bool

	// Mount returns the root inode of a freshly mounted instance. device is
	// nil for temporary providers.
	Mount func(device *Inode) (*Inode, error)

	// Open lets a back-end lazily materialize a child under dir, or confirm
	// the tnode already resolved for path. When dir is the inode of an
	// already-resolved tnode, (nil, nil) keeps that tnode; when dir is an
	// ancestor asked to materialize path, (nil, nil) is a genuine miss.
	Open func(dir *Inode, path string) (*TNode, error)

	// Read copies bytes from ino at off into buf, returning bytes copied.
	Read func(ino *Inode, off uint64, buf []byte) (int, error)

	// Write copies bytes from buf into ino at off, returning bytes copied.
	Write func(ino *Inode, off uint64, buf []byte) (int, error)

	// Sync flushes metadata (size, perms) to the backing store. Optional.
	Sync func(ino *Inode) error

	// Refresh repopulates the back-end's view of ino's children. Optional.
	Refresh func(ino *Inode) error

	// GetDent enumerates back-end children by index; ok is false at end of
	// stream. Optional — inodes whose children are fully materialized by
	// Refresh/Open don't need it.
	GetDent func(ino *Inode, i int) (de DirEnt, ok bool)

	// RmNode removes the backing object and detaches tn. Optional.
	RmNode func(tn *TNode) error

	// Ioctl is back-end specific. Optional.
	Ioctl func(ino *Inode, request int64, arg int64) (int64, error)
}

// registry is the named list of installed providers. Registrations happen
// only during init, so Lookup deliberately takes no lock (matches
// original_source: vfs_get_fs never touches vfs_lock).
type registry struct {
	providers []*Provider
}

func newRegistry() *registry {
	return &registry{}
}

// Register appends a provider to the registry.
func (r *registry) Register(p *Provider) {
	r.providers = append(r.providers, p)
}

// Lookup returns the first provider whose name matches, bounded to
// MaxNameLen bytes the way strncmp(name, fs->name, sizeof(fs->name)) does.
func (r *registry) Lookup(name string) (*Provider, FsError) {
	bounded := name
	if len(bounded) > MaxNameLen {
		bounded = bounded[:MaxNameLen]
	}
	for _, p := range r.providers {
		pn := p.Name
		if len(pn) > MaxNameLen {
			pn = pn[:MaxNameLen]
		}
		if pn == bounded {
			return p, EOKAY
		}
	}
	return nil, EProviderUnknown
}
