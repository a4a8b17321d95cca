// Copyright 2019 Compl Yue
// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vfs

import (
	"fmt"
	"runtime"
	"syscall"

	"github.com/golang/glog"
)

// FsError is the taxonomy of failures a VFS operation can surface. It is a
// syscall.Errno under the hood so callers that expect POSIX-flavored errno
// values (chmod, mount, open) get something they already know how to read.
type FsError syscall.Errno

const (
	// EOKAY is the placeholder for "no error".
	EOKAY = FsError(0)

	// ENotFound: path resolution failed under NO_CREATE.
	ENotFound = FsError(syscall.ENOENT)
	// EAlreadyExists: CREATE|ERR_ON_EXIST collided with an existing name.
	EAlreadyExists = FsError(syscall.EEXIST)
	// EWrongType: mount device isn't a block device, mount target isn't an
	// empty folder, or getdent was attempted on a non-traversable inode.
	EWrongType = FsError(syscall.ENOTDIR)
	// EBadHandle: the handle isn't present in the open-file table.
	EBadHandle = FsError(syscall.EBADF)
	// EReadOnly: write/chmod attempted through a read-only descriptor.
	EReadOnly = FsError(syscall.EROFS)
	// EOutOfBounds: seek computed an offset outside [0, size].
	EOutOfBounds = FsError(syscall.EINVAL)
	// EBackendFailure: a provider op returned -1/err.
	EBackendFailure = FsError(syscall.EIO)
	// EProviderUnknown: no filesystem registered under the requested name.
	EProviderUnknown = FsError(syscall.ENODEV)

	// legacy aliases kept from the source taxonomy, used by back-ends.
	EEXIST    = EAlreadyExists
	EINVAL    = FsError(syscall.EINVAL)
	EIO       = EBackendFailure
	ENOENT    = ENotFound
	ENOSYS    = FsError(syscall.ENOSYS)
	ENOTDIR   = EWrongType
	ENOTEMPTY = FsError(syscall.ENOTEMPTY)
	ERANGE    = FsError(syscall.ERANGE)
	ENOSPC    = FsError(syscall.ENOSPC)
	ENOATTR   = FsError(syscall.ENODATA)
)

// Error implements the builtin error interface.
func (fse FsError) Error() string {
	return syscall.Errno(fse).Error()
}

// Repr returns the const name of the error value, used in logs and tests.
func (fse FsError) Repr() string {
	switch fse {
	case EOKAY:
		return "EOKAY"
	case EAlreadyExists:
		return "EAlreadyExists"
	case EWrongType:
		return "EWrongType"
	case EBadHandle:
		return "EBadHandle"
	case EReadOnly:
		return "EReadOnly"
	case EOutOfBounds:
		return "EOutOfBounds"
	case EBackendFailure:
		return "EBackendFailure"
	case EProviderUnknown:
		return "EProviderUnknown"
	case ENotFound:
		return "ENotFound"
	case EINVAL:
		return "EINVAL"
	case ENOSYS:
		return "ENOSYS"
	case ENOTEMPTY:
		return "ENOTEMPTY"
	case ERANGE:
		return "ERANGE"
	case ENOSPC:
		return "ENOSPC"
	case ENOATTR:
		return "ENOATTR"
	}
	panic(fmt.Sprintf("Unexpected file system error number %#x on %s %s - %+v",
		int(fse), runtime.GOOS, runtime.GOARCH, syscall.Errno(fse)))
}

// FsErr converts an arbitrary error from a back-end into the portable
// FsError taxonomy, logging anything it doesn't recognize before falling
// back to EIO.
func FsErr(err error) FsError {
	switch fse := err.(type) {
	case nil:
		return EOKAY
	case FsError:
		return fse
	case syscall.Errno:
		return translateSysErrno(fse)
	default:
		glog.Errorf("Unexpected backend error [%T] - %+v", err, err)
	}
	return EBackendFailure
}
