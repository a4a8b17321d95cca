// Package pipefs is the anonymous-pipe provider mounted at /dev/pipe. Each
// mounted instance is a fixed-capacity byte buffer shared by whichever
// handles end up reading and writing it. Temporary is true — a pipe needs
// no backing block device.
//
// Reads and writes are addressed by the handle's seek position like any
// other file, rather than consumed FIFO-style off the front of the buffer:
// the dispatcher's Read clamps length to the inode's known size using that
// same seek position (the TTY handle is the one documented exception), so a
// pipe that shrank out from under a reader on every Read would defeat that
// clamp instead of cooperating with it. The boundedness — writes past
// capacity are rejected — is what actually distinguishes a pipe from a
// plain file here.
package pipefs

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/yeahnye/HanOS/pkg/vfs"
)

// DefaultCapacity is the buffer size a freshly mounted pipe gets.
const DefaultCapacity = 4096

// provider is one pipe instance's backing buffer.
type provider struct {
	mu       sync.Mutex
	capacity int
	data     []byte
	self     *vfs.Provider
}

// New builds a pipefs Provider ready for vfs.RegisterProvider.
func New() *vfs.Provider {
	p := &provider{capacity: DefaultCapacity}
	pv := &vfs.Provider{
		Name:      "pipefs",
		Temporary: true,
		Mount:     p.mount,
		Open:      p.open,
		Read:      p.read,
		Write:     p.write,
	}
	p.self = pv
	return pv
}

func (p *provider) mount(device *vfs.Inode) (*vfs.Inode, error) {
	return &vfs.Inode{Type: vfs.NodePipe, Perm: 0600, Provider: p.self}, nil
}

// open has nothing to materialize lazily — a pipe is a single device inode
// with no children — so it always keeps the already-resolved tnode.
func (p *provider) open(ino *vfs.Inode, path string) (*vfs.TNode, error) {
	return nil, nil
}

func (p *provider) read(ino *vfs.Inode, off uint64, out []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if off >= uint64(len(p.data)) {
		return 0, nil
	}
	n := copy(out, p.data[off:])
	return n, nil
}

// write fails when off is already at or past capacity, and cuts a write
// that would cross capacity short to the room left, returning that shorter
// count; it never wraps around.
func (p *provider) write(ino *vfs.Inode, off uint64, in []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if off >= uint64(p.capacity) {
		return 0, errors.New("pipefs: buffer full")
	}
	room := p.capacity - int(off)
	n := len(in)
	if n > room {
		n = room
	}
	end := int(off) + n
	if end > len(p.data) {
		grown := make([]byte, end)
		copy(grown, p.data)
		p.data = grown
	}
	copy(p.data[off:end], in[:n])
	ino.Size = uint64(len(p.data))
	return n, nil
}
