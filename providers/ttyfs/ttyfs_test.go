package ttyfs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/yeahnye/HanOS/pkg/vfs"
	"github.com/yeahnye/HanOS/providers/ttyfs"
)

func TestTTYReadPastKnownSizeDoesNotClamp(t *testing.T) {
	v := vfs.New(vfs.DefaultConfig())
	v.RegisterProvider(ttyfs.New())
	require.Equal(t, vfs.EOKAY, v.Create("/tty", vfs.NodeFolder))
	require.Equal(t, vfs.EOKAY, v.Mount("tty", "/tty", "ttyfs"))

	h, fse := v.Open("/tty", vfs.ModeReadWrite)
	require.Equal(t, vfs.EOKAY, fse)
	defer v.Close(h)
	v.TTYHandle = h

	// size is 0 until something is written, yet a read against TTYHandle
	// asks for more than that without being clamped to it.
	buf := make([]byte, 64)
	n, fse := v.Read(h, buf)
	require.Equal(t, vfs.EOKAY, fse)
	assert.Equal(t, 0, n)

	n, fse = v.Write(h, []byte("login: "))
	require.Equal(t, vfs.EOKAY, fse)
	assert.Equal(t, 7, n)

	_, fse = v.Seek(h, 0, vfs.SeekSet)
	require.Equal(t, vfs.EOKAY, fse)
	n, fse = v.Read(h, buf)
	require.Equal(t, vfs.EOKAY, fse)
	assert.Equal(t, "login: ", string(buf[:n]))
}

func TestTTYWriteMustAppendAtStreamEnd(t *testing.T) {
	v := vfs.New(vfs.DefaultConfig())
	v.RegisterProvider(ttyfs.New())
	require.Equal(t, vfs.EOKAY, v.Create("/tty", vfs.NodeFolder))
	require.Equal(t, vfs.EOKAY, v.Mount("tty", "/tty", "ttyfs"))

	h, fse := v.Open("/tty", vfs.ModeReadWrite)
	require.Equal(t, vfs.EOKAY, fse)
	defer v.Close(h)

	v.Write(h, []byte("abc"))
	_, fse = v.Seek(h, 0, vfs.SeekSet)
	require.Equal(t, vfs.EOKAY, fse)

	n, fse := v.Write(h, []byte("x"))
	// the dispatcher maps any provider error to EOKAY/0 bytes, not a
	// distinct FsError
	assert.Equal(t, vfs.EOKAY, fse)
	assert.Equal(t, 0, n)
}

func TestTTYWinsizeIoctlRoundTrip(t *testing.T) {
	v := vfs.New(vfs.DefaultConfig())
	v.RegisterProvider(ttyfs.New())
	require.Equal(t, vfs.EOKAY, v.Create("/tty", vfs.NodeFolder))
	require.Equal(t, vfs.EOKAY, v.Mount("tty", "/tty", "ttyfs"))

	h, fse := v.Open("/tty", vfs.ModeReadWrite)
	require.Equal(t, vfs.EOKAY, fse)
	defer v.Close(h)

	ret, fse := v.Ioctl(h, int64(unix.TIOCGWINSZ), 0)
	require.Equal(t, vfs.EOKAY, fse)
	assert.Equal(t, int64(80)<<16|24, ret)

	packed := int64(132)<<16 | 43
	_, fse = v.Ioctl(h, int64(unix.TIOCSWINSZ), packed)
	require.Equal(t, vfs.EOKAY, fse)

	ret, fse = v.Ioctl(h, int64(unix.TIOCGWINSZ), 0)
	require.Equal(t, vfs.EOKAY, fse)
	assert.Equal(t, packed, ret)
}
