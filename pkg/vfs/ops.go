package vfs

import (
	"strings"

	"github.com/golang/glog"
)

// Create resolves path under CREATE|ErrOnExist and, on success, stamps
// atime/mtime/ctime with the clock's "now" (nanosecond fields are always
// zero, matching original_source's hpet-derived second resolution).
func (v *VFS) Create(path string, typ NodeType) FsError {
	v.mu.Lock()
	defer v.mu.Unlock()

	tn, fse := v.lockedResolve(path, Create|ErrOnExist, typ)
	if fse != EOKAY {
		return fse
	}

	now := v.clock.NowSeconds()
	ts := Timespec{Sec: now, Nsec: 0}
	tn.Stat.Atim = ts
	tn.Stat.Mtim = ts
	tn.Stat.Ctim = ts
	return EOKAY
}

// Mount looks up fsname's provider, validates the device and mount point,
// then swaps the mount point's placeholder inode for the provider's root.
func (v *VFS) Mount(device, mountPath, fsname string) FsError {
	v.mu.Lock()
	defer v.mu.Unlock()

	provider, fse := v.providers.Lookup(fsname)
	if fse != EOKAY {
		return fse
	}

	var devIno *Inode
	if !provider.Temporary {
		devTn, fse := v.lockedResolve(device, NoCreate, 0)
		if fse != EOKAY {
			return fse
		}
		if devTn.Inode.Type != NodeBlockDevice {
			glog.Warningf("vfs: mount device %q is not a block device", device)
			return EWrongType
		}
		devIno = devTn.Inode
	}

	at, fse := v.lockedResolve(mountPath, NoCreate, 0)
	if fse != EOKAY {
		return fse
	}
	if at.Inode.Type != NodeFolder || len(at.Inode.Children) != 0 {
		glog.Warningf("vfs: mount point %q is not an empty folder", mountPath)
		return EWrongType
	}

	rootIno, err := provider.Mount(devIno)
	if err != nil {
		return FsErr(err)
	}

	rootIno.Mountpoint = at
	rootIno.MountEpoch = newMountEpoch()
	at.Inode = rootIno

	glog.Infof("vfs: mounted %s at %s as %s", device, mountPath, fsname)
	return EOKAY
}

// Open resolves path, lazily materializing it through a provider-bearing
// ancestor if the tree doesn't already know it, then allocates a
// descriptor and a fresh handle.
func (v *VFS) Open(path string, mode OpenMode) (Handle, FsError) {
	v.mu.Lock()
	defer v.mu.Unlock()

	tn, fse := v.lockedResolve(path, NoCreate, 0)
	if fse == EOKAY && tn.Stat.Nlink == 0 {
		// Pending-delete: unlinked but still attached because an earlier
		// handle keeps its refcount above zero. A fresh open must not see
		// it, even though path resolution otherwise would.
		fse = ENotFound
	}
	if fse != EOKAY {
		tn, fse = v.openViaAncestor(path)
		if fse != EOKAY {
			return InvalidHandle, fse
		}
	} else if tn.Inode.Provider != nil && tn.Inode.Provider.Open != nil {
		opened, err := tn.Inode.Provider.Open(tn.Inode, path)
		if err != nil {
			return InvalidHandle, FsErr(err)
		}
		if opened != nil {
			tn = opened
		}
	}

	tn.Inode.RefCount++

	fd := &Descriptor{
		Path:    path,
		TNode:   tn,
		Inode:   tn.Inode,
		SeekPos: 0,
		Mode:    mode,
	}
	tn.Stat.Size = tn.Inode.Size

	h := v.handles.insert(fd)
	return h, EOKAY
}

// openViaAncestor walks from path's parent upward until some ancestor
// resolves, then asks that ancestor's provider (if it has one) to
// materialize path; an ancestor that resolves but carries no provider
// fails the walk outright rather than continuing further up. This matches
// original_source's walk order and early-stop exactly.
func (v *VFS) openViaAncestor(path string) (*TNode, FsError) {
	cur := path
	for {
		parent, _, isRoot := getParentDir(cur)
		if cur == parent {
			return nil, ENotFound
		}
		ancestor, fse := v.lockedResolve(parent, NoCreate, 0)
		if fse == EOKAY {
			if ancestor.Inode.Provider == nil || ancestor.Inode.Provider.Open == nil {
				return nil, ENotFound
			}
			tn, err := ancestor.Inode.Provider.Open(ancestor.Inode, path)
			if err != nil {
				return nil, FsErr(err)
			}
			if tn == nil {
				return nil, ENotFound
			}
			return tn, EOKAY
		}
		if isRoot {
			return nil, ENotFound
		}
		cur = parent
	}
}

// Close releases a descriptor. It reads every field it needs off the
// descriptor before dropping it from the table — original_source's C frees
// the descriptor first and dereferences it afterward, which is the
// use-after-free spec.md §9 flags; this fixes the order instead of
// reproducing the bug.
func (v *VFS) Close(h Handle) FsError {
	v.mu.Lock()
	defer v.mu.Unlock()

	fd := v.handles.lookup(h)
	if fd == nil {
		return EBadHandle
	}

	ino := fd.Inode
	tn := fd.TNode
	ino.RefCount--

	v.handles.delete(h)

	if ino.RefCount == 0 && tn.Stat.Nlink == 0 && ino.Provider != nil && ino.Provider.RmNode != nil {
		if err := ino.Provider.RmNode(tn); err != nil {
			glog.Errorf("vfs: rmnode failed for %q: %+v", fd.Path, err)
			return FsErr(err)
		}
	}
	return EOKAY
}

// Read delegates to the provider, clamping len to the inode's known size
// unless h is the reserved TTY handle (which may block past it).
func (v *VFS) Read(h Handle, buf []byte) (int, FsError) {
	v.mu.Lock()
	defer v.mu.Unlock()

	fd := v.handles.lookup(h)
	if fd == nil {
		return 0, EBadHandle
	}

	length := len(buf)
	if h != v.TTYHandle {
		if fd.SeekPos+uint64(length) > fd.Inode.Size {
			if fd.Inode.Size < fd.SeekPos {
				length = 0
			} else {
				length = int(fd.Inode.Size - fd.SeekPos)
			}
			if length == 0 {
				return 0, EOKAY
			}
		}
	}

	if fd.Inode.Provider == nil || fd.Inode.Provider.Read == nil {
		return 0, EOKAY
	}
	n, err := fd.Inode.Provider.Read(fd.Inode, fd.SeekPos, buf[:length])
	if err != nil {
		return 0, EOKAY
	}
	fd.SeekPos += uint64(n)
	return n, EOKAY
}

// Write delegates to the provider, growing the inode (and syncing it) when
// the write extends past the current size.
func (v *VFS) Write(h Handle, buf []byte) (int, FsError) {
	v.mu.Lock()
	defer v.mu.Unlock()

	fd := v.handles.lookup(h)
	if fd == nil {
		return 0, EBadHandle
	}
	if fd.Mode.IsReadOnly() {
		return 0, EReadOnly
	}

	ino := fd.Inode
	length := len(buf)
	if fd.SeekPos+uint64(length) > ino.Size {
		ino.Size = fd.SeekPos + uint64(length)
		if ino.Provider != nil && ino.Provider.Sync != nil {
			if err := ino.Provider.Sync(ino); err != nil {
				glog.Warningf("vfs: sync failed growing inode: %+v", err)
			}
		}
	}

	n := 0
	if ino.Provider != nil && ino.Provider.Write != nil {
		written, err := ino.Provider.Write(ino, fd.SeekPos, buf)
		if err != nil {
			n = 0
		} else {
			n = written
		}
	}
	fd.SeekPos += uint64(n)
	fd.TNode.Stat.Size = ino.Size
	return n, EOKAY
}

// Seek computes a new position per whence (SEEK_END is subtractive, not
// additive — preserved from original_source for wire compatibility) and
// fails if it lands outside [0, size].
func (v *VFS) Seek(h Handle, pos int64, whence Whence) (int64, FsError) {
	v.mu.Lock()
	defer v.mu.Unlock()

	fd := v.handles.lookup(h)
	if fd == nil {
		return -1, EBadHandle
	}

	var offset int64
	switch whence {
	case SeekSet:
		offset = pos
	case SeekCur:
		offset = int64(fd.SeekPos) + pos
	case SeekEnd:
		offset = int64(fd.Inode.Size) - pos
	default:
		return -1, EINVAL
	}

	if offset < 0 || offset > int64(fd.Inode.Size) {
		return -1, EOutOfBounds
	}

	fd.SeekPos = uint64(offset)
	return offset, EOKAY
}

// Tell returns the file's current size, not its seek position — preserved
// deliberately per spec.md §9; some callers rely on this.
func (v *VFS) Tell(h Handle) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	fd := v.handles.lookup(h)
	if fd == nil {
		return 0
	}
	return fd.Inode.Size
}

// GetDent copies the next child's name/type/size/time into a DirEnt.
// Returns (entry, 1) on success, (zero, 0) at end of stream, (zero, -1) if
// the handle's inode isn't traversable.
func (v *VFS) GetDent(h Handle) (DirEnt, int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	fd := v.handles.lookup(h)
	if fd == nil {
		return DirEnt{}, -1
	}

	if !fd.Inode.Type.IsTraversable() {
		return DirEnt{}, -1
	}

	if fd.SeekPos >= uint64(len(fd.Inode.Children)) {
		return DirEnt{}, 0
	}

	child := fd.Inode.Children[fd.SeekPos]
	de := DirEnt{
		Name: child.Name,
		Type: child.Inode.Type,
		Size: child.Inode.Size,
		Time: child.Inode.ModTime,
	}
	fd.SeekPos++
	return de, 1
}

// Refresh repopulates the back-end's view of the handle's inode, then
// walks provider.GetDent, creating/updating a tnode for each reported
// entry. Used once after mount to materialize an initial directory.
func (v *VFS) Refresh(h Handle) FsError {
	v.mu.Lock()
	defer v.mu.Unlock()

	fd := v.handles.lookup(h)
	if fd == nil {
		return EBadHandle
	}

	ino := fd.Inode
	if ino.Provider == nil {
		return EOKAY
	}
	if ino.Provider.Refresh != nil {
		if err := ino.Provider.Refresh(ino); err != nil {
			return FsErr(err)
		}
	}
	if ino.Provider.GetDent == nil {
		return EOKAY
	}

	for i := 0; ; i++ {
		de, ok := ino.Provider.GetDent(ino, i)
		if !ok {
			break
		}
		childPath := strings.TrimSuffix(fd.Path, "/") + "/" + de.Name
		tn, fse := v.lockedResolve(childPath, Create, de.Type)
		if fse != EOKAY {
			glog.Warningf("vfs: refresh failed creating %q: %s", childPath, fse)
			continue
		}
		tn.Inode.ModTime = de.Time
		tn.Inode.Size = de.Size
	}
	return EOKAY
}

// Unlink drops path's single link. Additional hard links aren't
// implemented (spec.md §9: Nlink is only ever set to 1 by this codebase),
// so Nlink > 1 is treated as "remove the other links first" and Nlink == 0
// as an already-unlinked name.
func (v *VFS) Unlink(path string) FsError {
	v.mu.Lock()
	defer v.mu.Unlock()

	tn, fse := v.lockedResolve(path, NoCreate, 0)
	if fse != EOKAY {
		return fse
	}

	if tn.Stat.Nlink > 1 {
		return EBackendFailure
	}
	if tn.Stat.Nlink == 0 {
		return ENotFound
	}
	tn.Stat.Nlink = 0

	if tn.Inode.RefCount == 0 && tn.Inode.Provider != nil && tn.Inode.Provider.RmNode != nil {
		if err := tn.Inode.Provider.RmNode(tn); err != nil {
			return FsErr(err)
		}
	}
	return EOKAY
}

// Chmod masks perms by the permission bits and writes them to both the
// inode and the tnode's stat mode, syncing the back-end afterward.
func (v *VFS) Chmod(h Handle, perms uint32) FsError {
	v.mu.Lock()
	defer v.mu.Unlock()

	fd := v.handles.lookup(h)
	if fd == nil {
		return EBadHandle
	}
	if fd.Mode.IsReadOnly() {
		return EReadOnly
	}

	masked := perms & PermMask
	fd.Inode.Perm = masked
	fd.TNode.Stat.Mode |= masked

	if fd.Inode.Provider != nil && fd.Inode.Provider.Sync != nil {
		if err := fd.Inode.Provider.Sync(fd.Inode); err != nil {
			return FsErr(err)
		}
	}
	return EOKAY
}

// Ioctl delegates to the provider's Ioctl, if it has one.
func (v *VFS) Ioctl(h Handle, request int64, arg int64) (int64, FsError) {
	v.mu.Lock()
	defer v.mu.Unlock()

	fd := v.handles.lookup(h)
	if fd == nil {
		return -1, EBadHandle
	}
	if fd.Inode.Provider == nil || fd.Inode.Provider.Ioctl == nil {
		return -1, ENOSYS
	}
	ret, err := fd.Inode.Provider.Ioctl(fd.Inode, request, arg)
	if err != nil {
		return -1, FsErr(err)
	}
	return ret, EOKAY
}

// MountEpoch reports the mount-generation token of h's inode, if it is the
// root of a mounted provider. Returns EWrongType for any other inode.
func (v *VFS) MountEpoch(h Handle) (mountEpoch string, fse FsError) {
	v.mu.Lock()
	defer v.mu.Unlock()

	fd := v.handles.lookup(h)
	if fd == nil {
		return "", EBadHandle
	}
	if fd.Inode.Mountpoint == nil {
		return "", EWrongType
	}
	return fd.Inode.MountEpoch.String(), EOKAY
}
