// Package blockdev is a synthetic, memory-backed block device registry.
// It gives mount()'s "device must be a block device" validation (spec.md
// §4.5) a real inode to check, and gives providers/fatfs something to
// format and read/write through. Mounted at /disk by boot wiring, each
// registered device then shows up as a child entry the way a real kernel
// would enumerate /dev entries for attached disks.
package blockdev

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/yeahnye/HanOS/pkg/vfs"
)

// Device is one block-addressable memory region, read and written at byte
// granularity but backed by fixed-size blocks internally.
type Device struct {
	mu        sync.Mutex
	blockSize int
	blocks    [][]byte
	pool      *bufPool
}

func newDevice(numBlocks, blockSize int) *Device {
	blocks := make([][]byte, numBlocks)
	for i := range blocks {
		blocks[i] = make([]byte, blockSize)
	}
	return &Device{blockSize: blockSize, blocks: blocks, pool: newBufPool(blockSize)}
}

// Size is the device's total addressable byte range.
func (d *Device) Size() uint64 {
	return uint64(len(d.blocks) * d.blockSize)
}

// BlockSize reports the device's block granularity, the unit fatfs lays
// its own on-disk structures out in.
func (d *Device) BlockSize() int { return d.blockSize }

// NumBlocks reports the device's total block count.
func (d *Device) NumBlocks() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.blocks)
}

// ReadAt copies len(buf) bytes starting at byte offset off, clamped to the
// device's size, crossing block boundaries as needed by copying straight
// out of each backing block.
func (d *Device) ReadAt(off uint64, buf []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	total := d.Size()
	if off >= total {
		return 0, nil
	}
	n := len(buf)
	if off+uint64(n) > total {
		n = int(total - off)
	}

	copied := 0
	for copied < n {
		blockIdx := int((off + uint64(copied)) / uint64(d.blockSize))
		blockOff := int((off + uint64(copied)) % uint64(d.blockSize))
		want := n - copied
		if want > d.blockSize-blockOff {
			want = d.blockSize - blockOff
		}
		copy(buf[copied:copied+want], d.blocks[blockIdx][blockOff:blockOff+want])
		copied += want
	}
	return copied, nil
}

// WriteAt writes len(buf) bytes starting at byte offset off, growing no
// further than the device's fixed capacity.
func (d *Device) WriteAt(off uint64, buf []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	total := d.Size()
	if off >= total {
		return 0, errors.Errorf("blockdev: write at %d past device end %d", off, total)
	}
	n := len(buf)
	if off+uint64(n) > total {
		n = int(total - off)
	}

	staging := d.pool.get(d.blockSize)
	defer d.pool.put(staging)

	copied := 0
	for copied < n {
		blockIdx := int((off + uint64(copied)) / uint64(d.blockSize))
		blockOff := int((off + uint64(copied)) % uint64(d.blockSize))
		want := n - copied
		if want > d.blockSize-blockOff {
			want = d.blockSize - blockOff
		}
		copy(d.blocks[blockIdx][blockOff:blockOff+want], buf[copied:copied+want])
		copied += want
	}
	return copied, nil
}

// Registry holds every block device boot wiring has registered, and
// produces the vfs.Provider that exposes them under a mount point.
type Registry struct {
	mu      sync.Mutex
	devices map[string]*Device
	self    *vfs.Provider
}

// NewRegistry builds an empty device registry.
func NewRegistry() *Registry {
	return &Registry{devices: make(map[string]*Device)}
}

// Register creates a fresh memory-backed device of numBlocks blocks of
// blockSize bytes each, files it under name, and returns it.
func (r *Registry) Register(name string, numBlocks, blockSize int) *Device {
	r.mu.Lock()
	defer r.mu.Unlock()

	d := newDevice(numBlocks, blockSize)
	r.devices[name] = d
	return d
}

// Provider builds the vfs.Provider backing this registry's mount point.
// Call it once; the returned value is what RegisterProvider and this
// Registry's device inodes both reference.
func (r *Registry) Provider() *vfs.Provider {
	pv := &vfs.Provider{
		Name:      "blockdev",
		Temporary: true,
		Mount:     r.mount,
		Open:      r.open,
		Read:      r.read,
		Write:     r.write,
		GetDent:   r.getDent,
	}
	r.self = pv
	return pv
}

func (r *Registry) mount(device *vfs.Inode) (*vfs.Inode, error) {
	return &vfs.Inode{Type: vfs.NodeFolder, Perm: 0755, Provider: r.self}, nil
}

func (r *Registry) open(ino *vfs.Inode, path string) (*vfs.TNode, error) {
	if ino.Priv != nil || ino.Type != vfs.NodeBlockDevice {
		return nil, nil
	}
	name := baseName(path)
	r.mu.Lock()
	d, ok := r.devices[name]
	r.mu.Unlock()
	if !ok {
		return nil, errors.Errorf("blockdev: no such device %q", name)
	}
	ino.Priv = d
	ino.Size = d.Size()
	return nil, nil
}

func (r *Registry) read(ino *vfs.Inode, off uint64, buf []byte) (int, error) {
	d, ok := ino.Priv.(*Device)
	if !ok {
		return 0, errors.Errorf("blockdev: read against an unopened device inode")
	}
	return d.ReadAt(off, buf)
}

func (r *Registry) write(ino *vfs.Inode, off uint64, buf []byte) (int, error) {
	d, ok := ino.Priv.(*Device)
	if !ok {
		return 0, errors.Errorf("blockdev: write against an unopened device inode")
	}
	return d.WriteAt(off, buf)
}

func (r *Registry) getDent(ino *vfs.Inode, i int) (vfs.DirEnt, bool) {
	r.mu.Lock()
	names := make([]string, 0, len(r.devices))
	for name := range r.devices {
		names = append(names, name)
	}
	r.mu.Unlock()
	sort.Strings(names)

	if i >= len(names) {
		return vfs.DirEnt{}, false
	}
	name := names[i]
	r.mu.Lock()
	d := r.devices[name]
	r.mu.Unlock()
	return vfs.DirEnt{Name: name, Type: vfs.NodeBlockDevice, Size: d.Size()}, true
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
