package vfs

import (
	"path"
	"strings"
)

// ResolveFlag is the policy a path resolution is carried out under.
type ResolveFlag int

const (
	// NoCreate fails the resolution on the first missing component.
	NoCreate ResolveFlag = 0
	// Create allocates missing components (folders for intermediates, the
	// caller-supplied type for the final component).
	Create ResolveFlag = 1 << 0
	// ErrOnExist fails CREATE if the final component already exists.
	ErrOnExist ResolveFlag = 1 << 1
)

// splitPath normalizes path, collapsing trailing slashes and empty
// components, and returns its non-empty components.
func splitPath(p string) []string {
	clean := path.Clean("/" + p)
	if clean == "/" {
		return nil
	}
	parts := strings.Split(strings.TrimPrefix(clean, "/"), "/")
	out := parts[:0]
	for _, c := range parts {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// getParentDir returns the parent path and basename of p. If p names a
// top-level entry (no real parent component), parent is "/" and root
// reports true, matching original_source's vfs_get_parent_dir fallback.
func getParentDir(p string) (parent, base string, root bool) {
	comps := splitPath(p)
	if len(comps) == 0 {
		return "/", "", true
	}
	if len(comps) == 1 {
		return "/", comps[0], true
	}
	return "/" + strings.Join(comps[:len(comps)-1], "/"), comps[len(comps)-1], false
}

// resolvePath walks path's components from root, per flags. finalType is
// only consulted when flags includes Create and the final component is
// missing.
func (v *VFS) resolvePath(root *TNode, p string, flags ResolveFlag, finalType NodeType) (*TNode, FsError) {
	comps := splitPath(p)
	cur := root
	for i, comp := range comps {
		isLast := i == len(comps)-1

		if !cur.Inode.Type.IsTraversable() {
			return nil, ENotFound
		}

		child := cur.Inode.findChild(comp)
		if child == nil {
			if flags&Create == 0 {
				return nil, ENotFound
			}
			typ := NodeFolder
			if isLast {
				typ = finalType
			}
			// A freshly-created entry inherits its parent directory's
			// back-end, so read/write dispatch on it without anyone having
			// to mount anything new; the provider learns of it lazily, at
			// first open (see Provider.Open).
			ino := newInode(typ, 0755, cur.Inode.Provider)
			tn := &TNode{
				Name:   comp,
				Inode:  ino,
				Parent: cur,
				Stat: Stat{
					Dev:   cur.Stat.Dev,
					Ino:   v.inodeIDs.newInodeID(),
					Mode:  typeToIFMT(typ) | (0755 & PermMask),
					Nlink: 1,
				},
			}
			cur.Inode.addChild(tn)
			cur = tn
			continue
		}

		if isLast && flags&ErrOnExist != 0 {
			return nil, EAlreadyExists
		}
		cur = child
	}
	return cur, EOKAY
}
