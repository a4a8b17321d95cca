// Package boot wires a fresh vfs.VFS the way original_source's vfs_init
// does: register every back-end, mount RAMFS at the root and refresh it,
// lay out /disk and /dev, then mount TTYFS at /dev/tty (capturing its
// handle as the VFS's TTYHandle) and PIPEFS at /dev/pipe. It also
// registers a synthetic block device and mounts fatfs on it, a step
// original_source's own boot sequence doesn't take (fat32 is registered
// but never mounted there) and this codebase adds so the FAT-shaped
// back-end has somewhere live to be exercised from.
package boot

import (
	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/yeahnye/HanOS/pkg/vfs"
	"github.com/yeahnye/HanOS/providers/blockdev"
	"github.com/yeahnye/HanOS/providers/fatfs"
	"github.com/yeahnye/HanOS/providers/pipefs"
	"github.com/yeahnye/HanOS/providers/ramfs"
	"github.com/yeahnye/HanOS/providers/ttyfs"
)

// Disks exposes the block devices registered during boot, so a caller
// (test or CLI) can mount additional filesystems onto them after the
// fact.
type Disks struct {
	Registry *blockdev.Registry
}

// New builds a VFS, registers every back-end, and performs the boot
// mount/refresh sequence. The returned Disks lets a caller reach the
// registered "ramdisk0" device directly.
func New(cfg vfs.Config) (*vfs.VFS, *Disks, error) {
	v := vfs.New(cfg)

	disks := blockdev.NewRegistry()
	disks.Register("ramdisk0", 256, 512)

	v.RegisterProvider(fatfs.New())
	v.RegisterProvider(ramfs.New())
	v.RegisterProvider(ttyfs.New())
	v.RegisterProvider(pipefs.New())
	v.RegisterProvider(disks.Provider())

	if fse := v.Mount("", "/", "ramfs"); fse != vfs.EOKAY {
		return nil, nil, errors.Errorf("boot: mount ramfs at /: %s", fse)
	}

	if h, fse := v.Open("/", vfs.ModeReadWrite); fse == vfs.EOKAY {
		if fse := v.Refresh(h); fse != vfs.EOKAY {
			glog.Warningf("boot: refresh / failed: %s", fse)
		}
		v.Close(h)
	}

	if fse := v.Create("/disk", vfs.NodeFolder); fse != vfs.EOKAY && fse != vfs.EAlreadyExists {
		return nil, nil, errors.Errorf("boot: create /disk: %s", fse)
	}
	if fse := v.Create("/dev", vfs.NodeFolder); fse != vfs.EOKAY && fse != vfs.EAlreadyExists {
		return nil, nil, errors.Errorf("boot: create /dev: %s", fse)
	}
	if fse := v.Mount("", "/disk", "blockdev"); fse != vfs.EOKAY {
		return nil, nil, errors.Errorf("boot: mount blockdev at /disk: %s", fse)
	}
	if h, fse := v.Open("/disk", vfs.ModeReadWrite); fse == vfs.EOKAY {
		if fse := v.Refresh(h); fse != vfs.EOKAY {
			glog.Warningf("boot: refresh /disk failed: %s", fse)
		}
		v.Close(h)
	}

	// Opening the device once binds its Priv to the registered *blockdev.Device
	// (blockdev's Open hook does the binding); fatfs.Mount needs that bound
	// before it can read/write through it.
	if dh, fse := v.Open("/disk/ramdisk0", vfs.ModeReadWrite); fse == vfs.EOKAY {
		v.Close(dh)
	} else {
		return nil, nil, errors.Errorf("boot: open /disk/ramdisk0: %s", fse)
	}

	if fse := v.Create("/mnt", vfs.NodeFolder); fse != vfs.EOKAY {
		return nil, nil, errors.Errorf("boot: create /mnt: %s", fse)
	}
	if fse := v.Mount("/disk/ramdisk0", "/mnt", "fatfs"); fse != vfs.EOKAY {
		return nil, nil, errors.Errorf("boot: mount fatfs at /mnt: %s", fse)
	}

	if fse := v.Create("/dev/tty", vfs.NodeFolder); fse != vfs.EOKAY {
		return nil, nil, errors.Errorf("boot: create /dev/tty: %s", fse)
	}
	if fse := v.Mount("tty", "/dev/tty", "ttyfs"); fse != vfs.EOKAY {
		return nil, nil, errors.Errorf("boot: mount ttyfs at /dev/tty: %s", fse)
	}
	h, fse := v.Open("/dev/tty", vfs.ModeReadWrite)
	if fse != vfs.EOKAY {
		return nil, nil, errors.Errorf("boot: open /dev/tty: %s", fse)
	}
	v.TTYHandle = h

	if fse := v.Create("/dev/pipe", vfs.NodeFolder); fse != vfs.EOKAY {
		return nil, nil, errors.Errorf("boot: create /dev/pipe: %s", fse)
	}
	if fse := v.Mount("", "/dev/pipe", "pipefs"); fse != vfs.EOKAY {
		return nil, nil, errors.Errorf("boot: mount pipefs at /dev/pipe: %s", fse)
	}

	glog.Infof("boot: VFS initialization finished")
	return v, &Disks{Registry: disks}, nil
}
