// Package ramfs is an in-memory filesystem provider backed by
// afero.MemMapFs. It needs no block device (Temporary is true) and is the
// back-end the root folder and every scratch file in the test scenarios
// live on.
package ramfs

import (
	"io"
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/yeahnye/HanOS/pkg/vfs"
)

// provider closes over the in-memory filesystem every mounted instance
// reads and writes through. A real block-device-backed provider would key
// this per device id; ramfs has exactly one, created fresh at Mount time.
type provider struct {
	fs   afero.Fs
	self *vfs.Provider
}

// New builds a ramfs Provider ready for vfs.RegisterProvider.
func New() *vfs.Provider {
	p := &provider{}
	pv := &vfs.Provider{
		Name:      "ramfs",
		Temporary: true,
		Mount:     p.mount,
		Open:      p.open,
		Read:      p.read,
		Write:     p.write,
		Sync:      p.sync,
		Refresh:   p.refresh,
		GetDent:   p.getDent,
		RmNode:    p.rmNode,
	}
	p.self = pv
	return pv
}

func (p *provider) mount(device *vfs.Inode) (*vfs.Inode, error) {
	p.fs = afero.NewMemMapFs()
	if err := p.fs.MkdirAll("/", 0777); err != nil {
		return nil, errors.Wrap(err, "ramfs: mount")
	}
	root := &vfs.Inode{Type: vfs.NodeFolder, Perm: 0777, Priv: "/", Provider: p.self}
	return root, nil
}

// open is ramfs's only per-open hook: the first time an inode is opened it
// learns its own backing path, and a plain file gets its backing object
// created if this is the first open after a bare Create. It never builds a
// tnode itself — ramfs relies entirely on refresh/getdent for that — so it
// always declines the lazy-materialize half of the contract.
func (p *provider) open(ino *vfs.Inode, path string) (*vfs.TNode, error) {
	if ino.Priv != nil {
		return nil, nil
	}
	ino.Priv = path
	if ino.Type == vfs.NodeFile {
		if _, err := p.fs.Stat(path); os.IsNotExist(err) {
			f, err := p.fs.Create(path)
			if err != nil {
				return nil, errors.Wrapf(err, "ramfs: open %q", path)
			}
			f.Close()
		}
	} else if ino.Type.IsTraversable() {
		if err := p.fs.MkdirAll(path, 0777); err != nil {
			return nil, errors.Wrapf(err, "ramfs: open %q", path)
		}
	}
	return nil, nil
}

func (p *provider) read(ino *vfs.Inode, off uint64, buf []byte) (int, error) {
	path, _ := ino.Priv.(string)
	f, err := p.fs.Open(path)
	if err != nil {
		return 0, errors.Wrapf(err, "ramfs: read %q", path)
	}
	defer f.Close()

	n, err := f.ReadAt(buf, int64(off))
	if err != nil && err != io.EOF {
		return n, errors.Wrapf(err, "ramfs: read %q", path)
	}
	return n, nil
}

func (p *provider) write(ino *vfs.Inode, off uint64, buf []byte) (int, error) {
	path, _ := ino.Priv.(string)
	f, err := p.fs.OpenFile(path, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return 0, errors.Wrapf(err, "ramfs: write %q", path)
	}
	defer f.Close()

	n, err := f.WriteAt(buf, int64(off))
	if err != nil {
		return n, errors.Wrapf(err, "ramfs: write %q", path)
	}
	return n, nil
}

func (p *provider) sync(ino *vfs.Inode) error {
	path, ok := ino.Priv.(string)
	if !ok {
		return nil
	}
	now := time.Now()
	return p.fs.Chtimes(path, now, now)
}

func (p *provider) refresh(ino *vfs.Inode) error {
	return nil // afero.MemMapFs has no separate cache to repopulate
}

func (p *provider) getDent(ino *vfs.Inode, i int) (vfs.DirEnt, bool) {
	path, ok := ino.Priv.(string)
	if !ok {
		return vfs.DirEnt{}, false
	}
	entries, err := afero.ReadDir(p.fs, path)
	if err != nil || i >= len(entries) {
		return vfs.DirEnt{}, false
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].Name() < entries[b].Name() })
	fi := entries[i]
	typ := vfs.NodeFile
	if fi.IsDir() {
		typ = vfs.NodeFolder
	}
	return vfs.DirEnt{Name: fi.Name(), Type: typ, Size: uint64(fi.Size())}, true
}

func (p *provider) rmNode(tn *vfs.TNode) error {
	path, ok := tn.Inode.Priv.(string)
	if !ok {
		return nil
	}
	if err := p.fs.RemoveAll(path); err != nil {
		return errors.Wrapf(err, "ramfs: rmnode %q", path)
	}
	tn.Detach()
	return nil
}
