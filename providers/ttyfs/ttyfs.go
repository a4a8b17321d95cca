// Package ttyfs is the pseudo-terminal provider mounted at /dev/tty. It
// needs no block device (Temporary is true) and is the concrete back-end
// behind the VFS's TTYHandle read-clamp exception: a read against it may
// legitimately ask for more bytes than the device's currently-known size,
// since new input can arrive after the read begins.
package ttyfs

import (
	"bytes"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/yeahnye/HanOS/pkg/vfs"
)

// provider holds the one line buffer a mounted tty instance reads and
// writes through. Real line discipline (echo, canonical-mode editing,
// signal keys) belongs to a terminal driver above this layer; ttyfs only
// gives the VFS something byte-addressable to dispatch to.
type provider struct {
	mu   sync.Mutex
	buf  bytes.Buffer
	rows uint16
	cols uint16
	self *vfs.Provider
}

// New builds a ttyfs Provider ready for vfs.RegisterProvider.
func New() *vfs.Provider {
	p := &provider{rows: 24, cols: 80}
	pv := &vfs.Provider{
		Name:      "ttyfs",
		Temporary: true,
		Mount:     p.mount,
		Open:      p.open,
		Read:      p.read,
		Write:     p.write,
		Ioctl:     p.ioctl,
	}
	p.self = pv
	return pv
}

func (p *provider) mount(device *vfs.Inode) (*vfs.Inode, error) {
	return &vfs.Inode{Type: vfs.NodeCharDevice, Perm: 0666, Provider: p.self}, nil
}

// open has nothing to materialize lazily — ttyfs is a single device inode
// with no children — so it always keeps the already-resolved tnode.
func (p *provider) open(ino *vfs.Inode, path string) (*vfs.TNode, error) {
	return nil, nil
}

// read copies out whatever is presently buffered, starting at off bytes
// into the stream, without removing it from the buffer. It never blocks — a console with nothing
// typed yet simply returns zero bytes, leaving "wait for input" to whatever
// scheduler primitive sits above the VFS, which original_source names but
// never implements here either.
func (p *provider) read(ino *vfs.Inode, off uint64, out []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	all := p.buf.Bytes()
	if off >= uint64(len(all)) {
		return 0, nil
	}
	n := copy(out, all[off:])
	return n, nil
}

// ioctl supports the two window-size requests real terminal drivers expose
// via TIOCGWINSZ/TIOCSWINSZ, packing rows/cols into a single int64 (cols in
// the high 16 bits, rows in the low 16) since the VFS's Ioctl signature has
// no room for an out-parameter struct.
func (p *provider) ioctl(ino *vfs.Inode, request int64, arg int64) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch request {
	case int64(unix.TIOCGWINSZ):
		return int64(p.cols)<<16 | int64(p.rows), nil
	case int64(unix.TIOCSWINSZ):
		p.cols = uint16(arg >> 16)
		p.rows = uint16(arg & 0xffff)
		return 0, nil
	default:
		return -1, errors.Errorf("ttyfs: unsupported ioctl request %#x", request)
	}
}

func (p *provider) write(ino *vfs.Inode, off uint64, in []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if off != uint64(p.buf.Len()) {
		return 0, errors.New("ttyfs: write must append at the current stream end")
	}
	n, err := p.buf.Write(in)
	if err != nil {
		return n, errors.Wrap(err, "ttyfs: write")
	}
	ino.Size = uint64(p.buf.Len())
	return n, nil
}
