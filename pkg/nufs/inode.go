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

package nufs

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/kurafs/nufs/pkg/bitmap"
	"github.com/kurafs/nufs/pkg/blockstore"
)

// Type distinguishes files from directories. The values are part of the
// on-disk format.
type Type int32

const (
	File      Type = 0
	Directory Type = 1
)

func (t Type) String() string {
	switch t {
	case File:
		return "file"
	case Directory:
		return "directory"
	default:
		return fmt.Sprintf("Type(%d)", int32(t))
	}
}

const (
	// InodeCount is the capacity of the inode table.
	InodeCount = 256
	// InodeSize is the size of an encoded inode record. Record i starts at
	// byte i*InodeSize of the inode table block.
	InodeSize = 16
	// RootInum is the inode of the root directory. It is allocated at format
	// time and never freed.
	RootInum = 0

	inodeTableBlock = 1
)

// Mode bits, tagged with the file type the way stat(2) reports it.
const (
	modeTypeMask = unix.S_IFMT
	modeDir      = unix.S_IFDIR
	modeFile     = unix.S_IFREG
	modePerm     = 07777
)

// Inode is the metadata of one file or directory. All content lives in the
// single data block Block; Size counts its valid bytes.
type Inode struct {
	Type  Type
	Mode  uint32
	Size  int
	Block int
}

// IsDir reports whether the inode is a directory.
func (i Inode) IsDir() bool {
	return i.Type == Directory
}

func (i Inode) encode(b []byte) {
	binary.LittleEndian.PutUint32(b[0:4], uint32(i.Type))
	binary.LittleEndian.PutUint32(b[4:8], i.Mode)
	binary.LittleEndian.PutUint32(b[8:12], uint32(int32(i.Size)))
	binary.LittleEndian.PutUint32(b[12:16], uint32(int32(i.Block)))
}

func decodeInode(b []byte) Inode {
	return Inode{
		Type:  Type(int32(binary.LittleEndian.Uint32(b[0:4]))),
		Mode:  binary.LittleEndian.Uint32(b[4:8]),
		Size:  int(int32(binary.LittleEndian.Uint32(b[8:12]))),
		Block: int(int32(binary.LittleEndian.Uint32(b[12:16]))),
	}
}

func checkInum(inum int) error {
	if inum < 0 || inum >= InodeCount {
		return fmt.Errorf("inode %d: %w", inum, ErrInvalidArgument)
	}
	return nil
}

func (f *Filesystem) inodeBitmap() (bitmap.Bitmap, error) {
	return f.store.InodeBitmap()
}

// record returns the slice of the inode table holding inode inum.
func (f *Filesystem) record(inum int) ([]byte, error) {
	if err := checkInum(inum); err != nil {
		return nil, err
	}
	table, err := f.store.Block(inodeTableBlock)
	if err != nil {
		return nil, err
	}
	off := inum * InodeSize
	return table[off : off+InodeSize], nil
}

// allocInode claims the lowest free inode number. The record's previous
// contents are stale; the caller must write a complete inode before use.
func (f *Filesystem) allocInode() (int, error) {
	inodes, err := f.inodeBitmap()
	if err != nil {
		return 0, err
	}
	inum, ok := inodes.FirstClear(InodeCount)
	if !ok {
		return 0, ErrOutOfInodes
	}
	inodes.Set(inum, true)

	f.logger.Debugf("allocated inode %d", inum)
	return inum, nil
}

// releaseInum clears the bitmap bit of an inode that was never given a data
// block.
func (f *Filesystem) releaseInum(inum int) error {
	if err := checkInum(inum); err != nil {
		return err
	}
	inodes, err := f.inodeBitmap()
	if err != nil {
		return err
	}
	inodes.Set(inum, false)
	return nil
}

// freeInode releases inode inum and its data block. The record itself is
// left as is.
func (f *Filesystem) freeInode(inum int) error {
	if err := checkInum(inum); err != nil {
		return err
	}
	if inum == RootInum {
		return fmt.Errorf("free root inode: %w", ErrInvalidArgument)
	}
	inodes, err := f.inodeBitmap()
	if err != nil {
		return err
	}
	if !inodes.Get(inum) {
		return fmt.Errorf("free inode %d: not allocated: %w", inum, ErrInvalidArgument)
	}

	ino, err := f.getInode(inum)
	if err != nil {
		return err
	}
	if err := f.store.Free(ino.Block); err != nil {
		return fmt.Errorf("free inode %d: %w", inum, err)
	}
	inodes.Set(inum, false)

	f.logger.Debugf("freed inode %d (block %d)", inum, ino.Block)
	return nil
}

// getInode returns a copy of inode inum; changes are persisted with
// putInode.
func (f *Filesystem) getInode(inum int) (Inode, error) {
	b, err := f.record(inum)
	if err != nil {
		return Inode{}, err
	}
	return decodeInode(b), nil
}

func (f *Filesystem) putInode(inum int, ino Inode) error {
	b, err := f.record(inum)
	if err != nil {
		return err
	}
	ino.encode(b)
	return nil
}

// block returns the data block of ino.
func (f *Filesystem) block(ino Inode) ([]byte, error) {
	if ino.Block <= inodeTableBlock || ino.Block >= blockstore.BlockCount {
		return nil, fmt.Errorf("data block %d: %w", ino.Block, ErrInvalidArgument)
	}
	return f.store.Block(ino.Block)
}
