// Copyright 2018 The Kura Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package blockstore

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

var ErrImageLocked = errors.New("image is in use by another process")

// imageDevice maps an image file into memory. Blocks are slices of the
// mapping, so writes reach the file through the page cache and Sync only
// needs to msync.
type imageDevice struct {
	f    *os.File
	data []byte
}

// OpenImage opens or creates the image at path, growing it to ImageSize if
// it is shorter, and maps it read-write. The file is locked against other
// nufs processes for as long as the device is open.
//
// With private set the mapping is copy-on-write: blocks can be modified but
// nothing is ever written back to the file, and the lock is shared.
func OpenImage(path string, private bool) (Device, error) {
	flags := os.O_RDWR | os.O_CREATE
	lock, mapping := unix.LOCK_EX, unix.MAP_SHARED
	if private {
		flags = os.O_RDONLY
		lock, mapping = unix.LOCK_SH, unix.MAP_PRIVATE
	}

	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, err
	}

	if err := unix.Flock(int(f.Fd()), lock|unix.LOCK_NB); err != nil {
		f.Close()
		if err == unix.EWOULDBLOCK {
			return nil, fmt.Errorf("%s: %w", path, ErrImageLocked)
		}
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if fi.Size() < ImageSize {
		if private {
			f.Close()
			return nil, fmt.Errorf("%s: image is %d bytes, expected %d", path, fi.Size(), ImageSize)
		}
		if err := f.Truncate(ImageSize); err != nil {
			f.Close()
			return nil, err
		}
	}

	data, err := unix.Mmap(int(f.Fd()), 0, ImageSize, unix.PROT_READ|unix.PROT_WRITE, mapping)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap %s: %v", path, err)
	}
	return &imageDevice{f: f, data: data}, nil
}

func (d *imageDevice) Block(n int) ([]byte, error) {
	if n < 0 || n >= BlockCount {
		return nil, ErrInvalidBlock
	}
	off := n * BlockSize
	return d.data[off : off+BlockSize : off+BlockSize], nil
}

func (d *imageDevice) Sync() error {
	return unix.Msync(d.data, unix.MS_SYNC)
}

func (d *imageDevice) Close() error {
	if err := unix.Munmap(d.data); err != nil {
		d.f.Close()
		return err
	}
	d.data = nil

	unix.Flock(int(d.f.Fd()), unix.LOCK_UN)
	return d.f.Close()
}
