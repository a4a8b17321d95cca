// Package fatfs is a minimal FAT12/16-shaped on-disk filesystem, reading
// and writing through a providers/blockdev device. Block 0 holds a fixed
// directory table (one entry per file, no sub-directories, no free-space
// bitmap); files are given a fixed block run at creation rather than a
// growable cluster chain — "minimal" in the same sense original_source's
// own fs/fat32.h reference is a reduced, teaching-sized FAT, not a
// spec-complete one. Every device transfer is bounded by a weighted
// semaphore of maxConcurrentTransfers slots rather than a plain mutex.
// Calls that arrive through the VFS are made under its global lock, so
// those transfers still run one at a time.
package fatfs

import (
	"bytes"
	"context"
	"encoding/binary"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"github.com/yeahnye/HanOS/pkg/vfs"
	"github.com/yeahnye/HanOS/providers/blockdev"
)

// maxConcurrentTransfers bounds how many goroutines may be mid-ReadAt or
// mid-WriteAt against the backing device at once.
const maxConcurrentTransfers = 4

// fileBlocks is the fixed block run every created file is given; writes
// past it fail rather than extending the chain, the corner this
// implementation cuts to stay minimal.
const fileBlocks = 4

// entryRecord is the fixed on-disk shape of one directory entry, as
// written into block 0.
type entryRecord struct {
	Name      [32]byte
	Size      uint32
	StartBlk  uint32
	NumBlocks uint32
	Used      uint8
	_         [3]byte // pad to a round 48 bytes
}

type dirEntry struct {
	name      string
	size      uint32
	startBlk  uint32
	numBlocks uint32
}

// fsState is the live, in-memory state of one mounted fatfs instance.
// fatfs supports one live mount at a time, the same simplification
// providers/ramfs, providers/ttyfs and providers/pipefs make.
type fsState struct {
	mu   sync.Mutex
	dev  *blockdev.Device
	sem  *semaphore.Weighted
	next uint32 // next unused block, 0 and block 0 itself are reserved
	dirs []dirEntry
}

// fileHandle is what a file inode's Priv points to once opened: the
// mounted instance plus the name of the directory entry it binds to.
// It deliberately keeps the name rather than a *dirEntry — fs.dirs is
// append-grown by open() for every new file, which can reallocate the
// backing array and strand a cached pointer pointing at a stale copy.
type fileHandle struct {
	fs   *fsState
	name string
}

// lookup returns the live directory entry for name. Provider calls are
// already serialized by the VFS's global lock, so this needs no locking
// of its own beyond what callers already hold — the same assumption
// read/write already made before this existed.
func (fs *fsState) lookup(name string) (*dirEntry, bool) {
	for i := range fs.dirs {
		if fs.dirs[i].name == name {
			return &fs.dirs[i], true
		}
	}
	return nil, false
}

type provider struct {
	fs   *fsState
	self *vfs.Provider
}

// New builds a fatfs Provider ready for vfs.RegisterProvider.
func New() *vfs.Provider {
	p := &provider{}
	pv := &vfs.Provider{
		Name:    "fatfs",
		Mount:   p.mount,
		Open:    p.open,
		Read:    p.read,
		Write:   p.write,
		Sync:    p.sync,
		GetDent: p.getDent,
		RmNode:  p.rmNode,
	}
	p.self = pv
	return pv
}

func (p *provider) mount(device *vfs.Inode) (*vfs.Inode, error) {
	dev, ok := device.Priv.(*blockdev.Device)
	if !ok {
		return nil, errors.New("fatfs: mount device has no block device bound to it")
	}
	fs := &fsState{
		dev:  dev,
		sem:  semaphore.NewWeighted(maxConcurrentTransfers),
		next: 1,
	}
	p.fs = fs
	return &vfs.Inode{Type: vfs.NodeFolder, Perm: 0755, Priv: fs, Provider: p.self}, nil
}

// open binds a file inode to its directory entry the first time it's
// opened, creating the entry (and allocating its fixed block run) if this
// is a freshly vfs.Create'd file that has never been bound before.
func (p *provider) open(ino *vfs.Inode, path string) (*vfs.TNode, error) {
	if _, isRoot := ino.Priv.(*fsState); isRoot {
		return nil, nil
	}
	if ino.Priv != nil {
		return nil, nil
	}

	fs := p.fs
	name := baseName(path)

	fs.mu.Lock()
	defer fs.mu.Unlock()

	for i := range fs.dirs {
		if fs.dirs[i].name == name {
			ino.Priv = &fileHandle{fs: fs, name: name}
			ino.Size = uint64(fs.dirs[i].size)
			return nil, nil
		}
	}

	if int(fs.next)+fileBlocks > fs.dev.NumBlocks() {
		return nil, errors.Errorf("fatfs: device exhausted allocating %q", name)
	}
	entry := dirEntry{name: name, startBlk: fs.next, numBlocks: fileBlocks}
	fs.next += fileBlocks
	fs.dirs = append(fs.dirs, entry)
	if err := fs.persistLocked(); err != nil {
		return nil, err
	}
	ino.Priv = &fileHandle{fs: fs, name: name}
	return nil, nil
}

func (p *provider) read(ino *vfs.Inode, off uint64, buf []byte) (int, error) {
	fh, ok := ino.Priv.(*fileHandle)
	if !ok {
		return 0, errors.New("fatfs: read against an unbound inode")
	}
	entry, ok := fh.fs.lookup(fh.name)
	if !ok {
		return 0, errors.Errorf("fatfs: read against removed entry %q", fh.name)
	}

	ctx := context.Background()
	if err := fh.fs.sem.Acquire(ctx, 1); err != nil {
		return 0, errors.Wrap(err, "fatfs: read")
	}
	defer fh.fs.sem.Release(1)

	devOff := uint64(entry.startBlk)*uint64(fh.fs.dev.BlockSize()) + off
	return fh.fs.dev.ReadAt(devOff, buf)
}

func (p *provider) write(ino *vfs.Inode, off uint64, buf []byte) (int, error) {
	fh, ok := ino.Priv.(*fileHandle)
	if !ok {
		return 0, errors.New("fatfs: write against an unbound inode")
	}
	entry, ok := fh.fs.lookup(fh.name)
	if !ok {
		return 0, errors.Errorf("fatfs: write against removed entry %q", fh.name)
	}
	capacity := uint64(entry.numBlocks) * uint64(fh.fs.dev.BlockSize())
	if off+uint64(len(buf)) > capacity {
		return 0, errors.Errorf("fatfs: write at %d len %d exceeds fixed run of %d bytes", off, len(buf), capacity)
	}

	ctx := context.Background()
	if err := fh.fs.sem.Acquire(ctx, 1); err != nil {
		return 0, errors.Wrap(err, "fatfs: write")
	}
	defer fh.fs.sem.Release(1)

	devOff := uint64(entry.startBlk)*uint64(fh.fs.dev.BlockSize()) + off
	n, err := fh.fs.dev.WriteAt(devOff, buf)
	if err != nil {
		return n, err
	}
	if end := uint32(off) + uint32(n); end > entry.size {
		entry.size = end
		ino.Size = uint64(end)
	}
	return n, nil
}

func (p *provider) sync(ino *vfs.Inode) error {
	fs, ok := ino.Priv.(*fsState)
	if !ok {
		if fh, ok := ino.Priv.(*fileHandle); ok {
			fs = fh.fs
		} else {
			return nil
		}
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.persistLocked()
}

func (p *provider) getDent(ino *vfs.Inode, i int) (vfs.DirEnt, bool) {
	fs, ok := ino.Priv.(*fsState)
	if !ok {
		return vfs.DirEnt{}, false
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	names := make([]string, len(fs.dirs))
	for i, e := range fs.dirs {
		names[i] = e.name
	}
	sort.Strings(names)
	if i >= len(names) {
		return vfs.DirEnt{}, false
	}
	for _, e := range fs.dirs {
		if e.name == names[i] {
			return vfs.DirEnt{Name: e.name, Type: vfs.NodeFile, Size: uint64(e.size)}, true
		}
	}
	return vfs.DirEnt{}, false
}

func (p *provider) rmNode(tn *vfs.TNode) error {
	fh, ok := tn.Inode.Priv.(*fileHandle)
	if !ok {
		return nil
	}
	fs := fh.fs
	fs.mu.Lock()
	defer fs.mu.Unlock()

	for i := range fs.dirs {
		if fs.dirs[i].name == tn.Name {
			fs.dirs = append(fs.dirs[:i], fs.dirs[i+1:]...)
			break
		}
	}
	if err := fs.persistLocked(); err != nil {
		return err
	}
	tn.Detach()
	return nil
}

// persistLocked serializes the directory table into block 0. Caller must
// hold fs.mu.
func (fs *fsState) persistLocked() error {
	var buf bytes.Buffer
	for _, e := range fs.dirs {
		var rec entryRecord
		copy(rec.Name[:], e.name)
		rec.Size = e.size
		rec.StartBlk = e.startBlk
		rec.NumBlocks = e.numBlocks
		rec.Used = 1
		if err := binary.Write(&buf, binary.LittleEndian, &rec); err != nil {
			return errors.Wrap(err, "fatfs: encode directory table")
		}
	}
	block := make([]byte, fs.dev.BlockSize())
	copy(block, buf.Bytes())
	_, err := fs.dev.WriteAt(0, block)
	return errors.Wrap(err, "fatfs: persist directory table")
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
