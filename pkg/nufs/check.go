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
	"fmt"
	"path"

	"github.com/kurafs/nufs/pkg/blockstore"
)

// Problem is an inconsistency found by Check.
type Problem struct {
	Inum int
	Path string // empty if the inode is unreachable
	Msg  string
}

func (p Problem) String() string {
	if p.Path == "" {
		return fmt.Sprintf("inode %d: %s", p.Inum, p.Msg)
	}
	return fmt.Sprintf("%s (inode %d): %s", p.Path, p.Inum, p.Msg)
}

type checker struct {
	f        *Filesystem
	problems []Problem
	seen     map[int]string // inum -> first path
	owner    map[int]int    // block -> inum
}

func (c *checker) report(inum int, p, format string, args ...interface{}) {
	c.problems = append(c.problems, Problem{Inum: inum, Path: p, Msg: fmt.Sprintf(format, args...)})
}

// Check walks the tree and verifies the on-disk invariants: the inode bitmap
// marks exactly the reachable inodes, every reachable inode owns one
// allocated block, and every directory is within capacity, has unique names
// and correct "." and ".." entries. It does not repair anything.
func (f *Filesystem) Check() ([]Problem, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	c := &checker{f: f, seen: make(map[int]string), owner: make(map[int]int)}
	if err := c.walk(RootInum, RootInum, "/"); err != nil {
		return nil, err
	}

	inodes, err := f.inodeBitmap()
	if err != nil {
		return nil, err
	}
	for inum := 0; inum < InodeCount; inum++ {
		_, reached := c.seen[inum]
		switch {
		case reached && !inodes.Get(inum):
			c.report(inum, c.seen[inum], "reachable but not marked allocated")
		case !reached && inodes.Get(inum):
			c.report(inum, "", "marked allocated but unreachable")
		}
	}
	for n := inodeTableBlock + 1; n < blockstore.BlockCount; n++ {
		if _, owned := c.owner[n]; f.store.Allocated(n) && !owned {
			c.report(-1, "", "block %d allocated but unused", n)
		}
	}
	if !f.store.Allocated(0) || !f.store.Allocated(inodeTableBlock) {
		c.report(-1, "", "metadata blocks not marked allocated")
	}
	return c.problems, nil
}

func (c *checker) walk(inum, parent int, p string) error {
	if first, ok := c.seen[inum]; ok {
		c.report(inum, p, "also linked at %s", first)
		return nil
	}
	c.seen[inum] = p

	ino, err := c.f.getInode(inum)
	if err != nil {
		return err
	}
	if ino.Block <= inodeTableBlock || ino.Block >= blockstore.BlockCount {
		c.report(inum, p, "data block %d out of range", ino.Block)
		return nil
	}
	if owner, ok := c.owner[ino.Block]; ok {
		c.report(inum, p, "block %d shared with inode %d", ino.Block, owner)
	} else {
		c.owner[ino.Block] = inum
	}
	if !c.f.store.Allocated(ino.Block) {
		c.report(inum, p, "block %d not marked allocated", ino.Block)
	}
	if ino.Size < 0 || ino.Size > blockstore.BlockSize {
		c.report(inum, p, "size %d exceeds a block", ino.Size)
	}

	switch ino.Type {
	case File:
		if ino.Mode&modeTypeMask != modeFile {
			c.report(inum, p, "file mode %#o lacks S_IFREG", ino.Mode)
		}
		return nil
	case Directory:
		if ino.Mode&modeTypeMask != modeDir {
			c.report(inum, p, "directory mode %#o lacks S_IFDIR", ino.Mode)
		}
	default:
		c.report(inum, p, "unknown type %v", ino.Type)
		return nil
	}

	b, err := c.f.block(ino)
	if err != nil {
		return err
	}
	d := dirBlock(b)
	n := d.numEntries()
	if n < 2 || n > DirCapacity {
		c.report(inum, p, "%d entries, expected 2 to %d", n, DirCapacity)
		return nil
	}
	if d.inum() != inum {
		c.report(inum, p, "header names inode %d", d.inum())
	}

	names := make(map[string]bool, n)
	var children []int
	var childNames []string
	for i := 0; i < n; i++ {
		name, child := d.entry(i)
		if names[name] {
			c.report(inum, p, "duplicate entry %q", name)
			continue
		}
		names[name] = true

		switch name {
		case ".":
			if child != inum {
				c.report(inum, p, "\".\" refers to inode %d", child)
			}
		case "..":
			if child != parent {
				c.report(inum, p, "\"..\" refers to inode %d, expected %d", child, parent)
			}
		default:
			if checkInum(child) != nil {
				c.report(inum, p, "entry %q refers to inode %d", name, child)
				continue
			}
			children = append(children, child)
			childNames = append(childNames, name)
		}
	}
	if !names["."] || !names[".."] {
		c.report(inum, p, "missing \".\" or \"..\"")
	}

	for i, child := range children {
		if err := c.walk(child, inum, path.Join(p, childNames[i])); err != nil {
			return err
		}
	}
	return nil
}
