package fatfs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeahnye/HanOS/pkg/vfs"
	"github.com/yeahnye/HanOS/providers/blockdev"
	"github.com/yeahnye/HanOS/providers/fatfs"
)

// mountFatfs wires a blockdev registry and a fatfs provider the way boot
// wiring does: register a device, mount blockdev at /disk, refresh it so
// the device shows up as a child, open+close that child once to bind its
// Priv to the *blockdev.Device, then mount fatfs on top of it.
func mountFatfs(t *testing.T) *vfs.VFS {
	t.Helper()
	v := vfs.New(vfs.DefaultConfig())

	registry := blockdev.NewRegistry()
	registry.Register("ramdisk0", 12, 64)
	v.RegisterProvider(registry.Provider())
	v.RegisterProvider(fatfs.New())

	require.Equal(t, vfs.EOKAY, v.Create("/disk", vfs.NodeFolder))
	require.Equal(t, vfs.EOKAY, v.Mount("", "/disk", "blockdev"))

	dh, fse := v.Open("/disk", vfs.ModeReadWrite)
	require.Equal(t, vfs.EOKAY, fse)
	require.Equal(t, vfs.EOKAY, v.Refresh(dh))
	require.Equal(t, vfs.EOKAY, v.Close(dh))

	devh, fse := v.Open("/disk/ramdisk0", vfs.ModeReadWrite)
	require.Equal(t, vfs.EOKAY, fse)
	require.Equal(t, vfs.EOKAY, v.Close(devh))

	require.Equal(t, vfs.EOKAY, v.Create("/mnt", vfs.NodeFolder))
	require.Equal(t, vfs.EOKAY, v.Mount("/disk/ramdisk0", "/mnt", "fatfs"))
	return v
}

func TestFatfsCreateThenWriteReadRoundTrip(t *testing.T) {
	v := mountFatfs(t)

	require.Equal(t, vfs.EOKAY, v.Create("/mnt/A.TXT", vfs.NodeFile))
	h, fse := v.Open("/mnt/A.TXT", vfs.ModeReadWrite)
	require.Equal(t, vfs.EOKAY, fse)
	defer v.Close(h)

	payload := []byte("minimal fat contents")
	n, fse := v.Write(h, payload)
	require.Equal(t, vfs.EOKAY, fse)
	assert.Equal(t, len(payload), n)

	_, fse = v.Seek(h, 0, vfs.SeekSet)
	require.Equal(t, vfs.EOKAY, fse)

	buf := make([]byte, len(payload))
	n, fse = v.Read(h, buf)
	require.Equal(t, vfs.EOKAY, fse)
	assert.Equal(t, payload, buf[:n])
}

func TestFatfsWritePastFixedRunFails(t *testing.T) {
	v := mountFatfs(t)

	require.Equal(t, vfs.EOKAY, v.Create("/mnt/BIG.BIN", vfs.NodeFile))
	h, fse := v.Open("/mnt/BIG.BIN", vfs.ModeReadWrite)
	require.Equal(t, vfs.EOKAY, fse)
	defer v.Close(h)

	// fixed run is 4 blocks * 64 bytes = 256 bytes; this write overruns it.
	big := make([]byte, 300)
	n, fse := v.Write(h, big)
	require.Equal(t, vfs.EOKAY, fse)
	assert.Equal(t, 0, n)
}

func TestFatfsReopenBindsToSameEntry(t *testing.T) {
	v := mountFatfs(t)

	require.Equal(t, vfs.EOKAY, v.Create("/mnt/B.TXT", vfs.NodeFile))
	h, fse := v.Open("/mnt/B.TXT", vfs.ModeReadWrite)
	require.Equal(t, vfs.EOKAY, fse)
	v.Write(h, []byte("persisted"))
	require.Equal(t, vfs.EOKAY, v.Close(h))

	h2, fse := v.Open("/mnt/B.TXT", vfs.ModeReadWrite)
	require.Equal(t, vfs.EOKAY, fse)
	defer v.Close(h2)

	buf := make([]byte, 9)
	n, fse := v.Read(h2, buf)
	require.Equal(t, vfs.EOKAY, fse)
	assert.Equal(t, "persisted", string(buf[:n]))
}

// Refresh only updates tnodes that Create already placed in the tree, so
// GetDent lists them in creation order, not in fatfs's sorted getDent order.
func TestFatfsGetDentListsFilesInTreeOrder(t *testing.T) {
	v := mountFatfs(t)

	require.Equal(t, vfs.EOKAY, v.Create("/mnt/Z.TXT", vfs.NodeFile))
	require.Equal(t, vfs.EOKAY, v.Create("/mnt/A.TXT", vfs.NodeFile))
	for _, name := range []string{"/mnt/Z.TXT", "/mnt/A.TXT"} {
		h, fse := v.Open(name, vfs.ModeReadWrite)
		require.Equal(t, vfs.EOKAY, fse)
		require.Equal(t, vfs.EOKAY, v.Close(h))
	}

	mh, fse := v.Open("/mnt", vfs.ModeReadWrite)
	require.Equal(t, vfs.EOKAY, fse)
	defer v.Close(mh)
	require.Equal(t, vfs.EOKAY, v.Refresh(mh))

	var names []string
	for {
		de, status := v.GetDent(mh)
		if status != 1 {
			break
		}
		names = append(names, de.Name)
	}
	assert.Equal(t, []string{"Z.TXT", "A.TXT"}, names)
}

func TestFatfsUnlinkRemovesEntryOnClose(t *testing.T) {
	v := mountFatfs(t)

	require.Equal(t, vfs.EOKAY, v.Create("/mnt/GONE.TXT", vfs.NodeFile))
	h, fse := v.Open("/mnt/GONE.TXT", vfs.ModeReadWrite)
	require.Equal(t, vfs.EOKAY, fse)

	require.Equal(t, vfs.EOKAY, v.Unlink("/mnt/GONE.TXT"))
	require.Equal(t, vfs.EOKAY, v.Close(h))

	_, fse = v.Open("/mnt/GONE.TXT", vfs.ModeReadWrite)
	assert.NotEqual(t, vfs.EOKAY, fse)
}
