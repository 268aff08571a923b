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
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/kurafs/nufs/pkg/blockstore"
)

// Directory block layout:
//
//   header  [0, 40)    name [32]byte | num_entries int32 | inode_num int32
//   entry i [40+36i,)  name [32]byte | inum int32
//
// Names are NUL-padded. Entries are packed and unordered; "." and ".." are
// written first by dirInit and, since they are never deleted, stay in slots
// 0 and 1.
const (
	// NameMax is the longest name, in bytes, a directory entry can hold.
	NameMax = 30

	nameFieldSize = 32
	dirHeaderSize = nameFieldSize + 8
	dirEntrySize  = nameFieldSize + 4

	// DirCapacity is the number of entries, "." and ".." included, that fit
	// in a directory block.
	DirCapacity = (blockstore.BlockSize - dirHeaderSize) / dirEntrySize
	// DirSize is the size reported for every directory.
	DirSize = blockstore.BlockSize - dirHeaderSize
)

type dirBlock []byte

func decodeName(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func encodeName(b []byte, name string) {
	n := copy(b[:nameFieldSize-1], name)
	for i := n; i < nameFieldSize; i++ {
		b[i] = 0
	}
}

func (d dirBlock) name() string { return decodeName(d[:nameFieldSize]) }

func (d dirBlock) setName(name string) { encodeName(d[:nameFieldSize], name) }

func (d dirBlock) numEntries() int {
	return int(int32(binary.LittleEndian.Uint32(d[nameFieldSize:])))
}

func (d dirBlock) setNumEntries(n int) {
	binary.LittleEndian.PutUint32(d[nameFieldSize:], uint32(n))
}

func (d dirBlock) inum() int {
	return int(int32(binary.LittleEndian.Uint32(d[nameFieldSize+4:])))
}

func (d dirBlock) setInum(inum int) {
	binary.LittleEndian.PutUint32(d[nameFieldSize+4:], uint32(inum))
}

func (d dirBlock) entry(i int) (name string, inum int) {
	e := d[dirHeaderSize+i*dirEntrySize:]
	return decodeName(e[:nameFieldSize]), int(int32(binary.LittleEndian.Uint32(e[nameFieldSize:])))
}

func (d dirBlock) setEntry(i int, name string, inum int) {
	e := d[dirHeaderSize+i*dirEntrySize:]
	encodeName(e[:nameFieldSize], name)
	binary.LittleEndian.PutUint32(e[nameFieldSize:], uint32(inum))
}

// find returns the slot holding name, or -1.
func (d dirBlock) find(name string) int {
	for i := 0; i < d.numEntries(); i++ {
		if n, _ := d.entry(i); n == name {
			return i
		}
	}
	return -1
}

// dirInit formats b as an empty directory holding "." and "..".
func dirInit(b []byte, name string, self, parent int) {
	d := dirBlock(b)
	d.setName(name)
	d.setInum(self)
	d.setNumEntries(2)
	d.setEntry(0, ".", self)
	d.setEntry(1, "..", parent)
}

// checkName validates a name about to be linked into a directory.
func checkName(name string) error {
	switch {
	case name == "" || strings.Contains(name, "/") || strings.IndexByte(name, 0) >= 0:
		return fmt.Errorf("name %q: %w", name, ErrInvalidArgument)
	case len(name) > NameMax:
		return fmt.Errorf("name %q: %w", name, ErrNameTooLong)
	}
	return nil
}

// dirBlockOf returns the directory block of dir after checking its header.
func (f *Filesystem) dirBlockOf(dir Inode) (dirBlock, error) {
	if !dir.IsDir() {
		return nil, ErrNotADirectory
	}
	b, err := f.block(dir)
	if err != nil {
		return nil, err
	}
	d := dirBlock(b)
	if n := d.numEntries(); n < 0 || n > DirCapacity {
		return nil, fmt.Errorf("directory block %d holds %d entries: %w", dir.Block, n, ErrCapacityExceeded)
	}
	return d, nil
}

// dirLookup returns the inode number name refers to in dir. "/" refers to
// dir itself, and a name with a leading slash also matches the entry
// without it.
func (f *Filesystem) dirLookup(dir Inode, name string) (int, error) {
	d, err := f.dirBlockOf(dir)
	if err != nil {
		return 0, err
	}
	if name == "/" {
		return d.inum(), nil
	}

	stripped := ""
	if strings.HasPrefix(name, "/") {
		stripped = name[1:]
	}
	for i := 0; i < d.numEntries(); i++ {
		n, inum := d.entry(i)
		if n == name || (stripped != "" && n == stripped) {
			return inum, nil
		}
	}
	return 0, fmt.Errorf("%q in %q: %w", name, d.name(), ErrNotFound)
}

// dirPut links name to inum in dir.
func (f *Filesystem) dirPut(dir Inode, name string, inum int) error {
	if err := checkName(name); err != nil {
		return err
	}
	d, err := f.dirBlockOf(dir)
	if err != nil {
		return err
	}
	if d.find(name) >= 0 {
		return fmt.Errorf("%q in %q: %w", name, d.name(), ErrAlreadyExists)
	}
	n := d.numEntries()
	if n >= DirCapacity {
		return fmt.Errorf("%q in %q: directory full: %w", name, d.name(), ErrCapacityExceeded)
	}

	d.setEntry(n, name, inum)
	d.setNumEntries(n + 1)
	return nil
}

// dirDelete unlinks name from dir and frees the inode it referred to. The
// last entry moves into the vacated slot, so entry order is not preserved.
func (f *Filesystem) dirDelete(dir Inode, name string) error {
	d, err := f.dirBlockOf(dir)
	if err != nil {
		return err
	}
	i := d.find(name)
	if i < 0 {
		return fmt.Errorf("%q in %q: %w", name, d.name(), ErrNotFound)
	}

	_, inum := d.entry(i)
	if err := f.freeInode(inum); err != nil {
		return err
	}

	last := d.numEntries() - 1
	if i != last {
		lname, linum := d.entry(last)
		d.setEntry(i, lname, linum)
	}
	d.setNumEntries(last)
	return nil
}

// dirList returns the names in dir, "." and ".." included, in unspecified
// order. The slice is a snapshot owned by the caller.
func (f *Filesystem) dirList(dir Inode) ([]string, error) {
	d, err := f.dirBlockOf(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, d.numEntries())
	for i := 0; i < d.numEntries(); i++ {
		name, _ := d.entry(i)
		names = append(names, name)
	}
	return names, nil
}
