// Package vfs implements the kernel's virtual file system core: a single
// hierarchical namespace rooted at "/", a uniform open/read/write/seek/
// close/getdent/chmod/ioctl/mount/unlink/refresh surface, and a provider
// contract that dispatches byte-level work to pluggable back-ends (FAT-like,
// RAMFS, TTY, pipe). All structural mutation of the tree, the handle table
// or any inode/tnode field happens under the single global Lock.
package vfs
