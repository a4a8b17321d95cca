package blockdev_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeahnye/HanOS/pkg/vfs"
	"github.com/yeahnye/HanOS/providers/blockdev"
)

func TestDeviceWriteReadCrossesBlockBoundary(t *testing.T) {
	r := blockdev.NewRegistry()
	d := r.Register("disk0", 4, 16)
	require.Equal(t, uint64(64), d.Size())
	assert.Equal(t, 16, d.BlockSize())
	assert.Equal(t, 4, d.NumBlocks())

	payload := make([]byte, 40)
	for i := range payload {
		payload[i] = byte(i + 1)
	}
	n, err := d.WriteAt(10, payload)
	require.NoError(t, err)
	assert.Equal(t, 40, n)

	buf := make([]byte, 40)
	n, err = d.ReadAt(10, buf)
	require.NoError(t, err)
	assert.Equal(t, 40, n)
	assert.Equal(t, payload, buf)
}

func TestDeviceReadWriteClampToDeviceSize(t *testing.T) {
	r := blockdev.NewRegistry()
	d := r.Register("disk0", 2, 8)

	buf := make([]byte, 100)
	n, err := d.ReadAt(12, buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = d.ReadAt(16, buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = d.WriteAt(16, []byte("x"))
	assert.Error(t, err)
}

func TestRegistryGetDentListsDevicesSorted(t *testing.T) {
	v := vfs.New(vfs.DefaultConfig())
	r := blockdev.NewRegistry()
	r.Register("zdisk", 1, 8)
	r.Register("adisk", 1, 8)
	v.RegisterProvider(r.Provider())

	require.Equal(t, vfs.EOKAY, v.Create("/disk", vfs.NodeFolder))
	require.Equal(t, vfs.EOKAY, v.Mount("", "/disk", "blockdev"))

	h, fse := v.Open("/disk", vfs.ModeReadWrite)
	require.Equal(t, vfs.EOKAY, fse)
	defer v.Close(h)
	require.Equal(t, vfs.EOKAY, v.Refresh(h))

	var names []string
	for {
		de, status := v.GetDent(h)
		if status != 1 {
			break
		}
		names = append(names, de.Name)
	}
	assert.Equal(t, []string{"adisk", "zdisk"}, names)
}

func TestDeviceOpenBindsPrivThenReadWriteThroughVFS(t *testing.T) {
	v := vfs.New(vfs.DefaultConfig())
	r := blockdev.NewRegistry()
	r.Register("ramdisk0", 4, 16)
	v.RegisterProvider(r.Provider())

	require.Equal(t, vfs.EOKAY, v.Create("/disk", vfs.NodeFolder))
	require.Equal(t, vfs.EOKAY, v.Mount("", "/disk", "blockdev"))

	dh, fse := v.Open("/disk", vfs.ModeReadWrite)
	require.Equal(t, vfs.EOKAY, fse)
	require.Equal(t, vfs.EOKAY, v.Refresh(dh))
	require.Equal(t, vfs.EOKAY, v.Close(dh))

	h, fse := v.Open("/disk/ramdisk0", vfs.ModeReadWrite)
	require.Equal(t, vfs.EOKAY, fse)
	defer v.Close(h)

	n, fse := v.Write(h, []byte("hello"))
	require.Equal(t, vfs.EOKAY, fse)
	assert.Equal(t, 5, n)

	_, fse = v.Seek(h, 0, vfs.SeekSet)
	require.Equal(t, vfs.EOKAY, fse)

	buf := make([]byte, 5)
	n, fse = v.Read(h, buf)
	require.Equal(t, vfs.EOKAY, fse)
	assert.Equal(t, "hello", string(buf[:n]))
}
