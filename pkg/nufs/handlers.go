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
	"errors"
	"fmt"

	"github.com/kurafs/nufs/pkg/blockstore"
)

// DefaultMode is the mode of a file created implicitly by Write.
const DefaultMode = 0777

// Attr is what Getattr reports about an inode.
type Attr struct {
	Inum  int
	Type  Type
	Mode  uint32 // permission bits tagged with S_IFDIR or S_IFREG
	Size  int
	Nlink int
	Block int
}

// Resolve returns the inode number path refers to.
func (f *Filesystem) Resolve(path string) (int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.resolve(path)
}

// Access checks that path exists. Permissions are not enforced.
func (f *Filesystem) Access(path string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	_, err := f.resolve(path)
	return err
}

// Getattr returns the attributes of path. Directories count one link per
// child directory on top of their own entry and ".".
func (f *Filesystem) Getattr(path string) (Attr, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	inum, ino, err := f.resolveInode(path)
	if err != nil {
		return Attr{}, err
	}
	attr := Attr{
		Inum:  inum,
		Type:  ino.Type,
		Mode:  ino.Mode,
		Size:  ino.Size,
		Nlink: 1,
		Block: ino.Block,
	}
	if ino.IsDir() {
		subdirs, err := f.subdirs(ino)
		if err != nil {
			return Attr{}, err
		}
		attr.Nlink = 2 + subdirs
	}
	return attr, nil
}

func (f *Filesystem) subdirs(dir Inode) (int, error) {
	d, err := f.dirBlockOf(dir)
	if err != nil {
		return 0, err
	}
	count := 0
	for i := 0; i < d.numEntries(); i++ {
		name, inum := d.entry(i)
		if name == "." || name == ".." {
			continue
		}
		child, err := f.getInode(inum)
		if err != nil {
			return 0, err
		}
		if child.IsDir() {
			count++
		}
	}
	return count, nil
}

// Readdir lists the names in directory path, "." and ".." included. The
// order is unspecified.
func (f *Filesystem) Readdir(path string) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	_, ino, err := f.resolveInode(path)
	if err != nil {
		return nil, err
	}
	if !ino.IsDir() {
		return nil, fmt.Errorf("readdir %q: %w", path, ErrNotADirectory)
	}
	return f.dirList(ino)
}

// Create makes an empty file at path.
func (f *Filesystem) Create(path string, mode uint32) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.logger.Debugf("create %q mode %#o", path, mode)
	return f.mknod(path, File, mode)
}

// Mkdir makes an empty directory at path.
func (f *Filesystem) Mkdir(path string, mode uint32) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.logger.Debugf("mkdir %q mode %#o", path, mode)
	return f.mknod(path, Directory, mode)
}

// mknod allocates an inode and a block for a new object and links it into
// the parent of path. On failure nothing stays allocated.
func (f *Filesystem) mknod(path string, typ Type, mode uint32) (int, error) {
	pinum, parent, leaf, err := f.resolveParent(path)
	if err != nil {
		return 0, err
	}
	if err := checkName(leaf); err != nil {
		return 0, err
	}
	if _, err := f.dirLookup(parent, leaf); err == nil {
		return 0, fmt.Errorf("%q: %w", path, ErrAlreadyExists)
	} else if !errors.Is(err, ErrNotFound) {
		return 0, err
	}

	inum, err := f.allocInode()
	if err != nil {
		return 0, fmt.Errorf("%q: %w", path, err)
	}
	blk, err := f.store.Alloc()
	if err != nil {
		if rerr := f.releaseInum(inum); rerr != nil {
			f.logger.Errorf("release inode %d: %v", inum, rerr)
		}
		return 0, fmt.Errorf("%q: %w", path, err)
	}

	ino := Inode{Type: typ, Mode: modeFile | mode&modePerm, Block: blk}
	if typ == Directory {
		b, err := f.store.Block(blk)
		if err != nil {
			return 0, f.rollback(inum, err)
		}
		dirInit(b, leaf, inum, pinum)
		ino.Mode = modeDir | mode&modePerm
		ino.Size = DirSize
	}
	if err := f.putInode(inum, ino); err != nil {
		return 0, f.rollback(inum, err)
	}
	if err := f.dirPut(parent, leaf, inum); err != nil {
		return 0, f.rollback(inum, err)
	}
	return inum, nil
}

// rollback frees a freshly allocated inode whose link failed and returns
// cause.
func (f *Filesystem) rollback(inum int, cause error) error {
	f.logger.Warnf("rolling back inode %d: %v", inum, cause)
	if err := f.freeInode(inum); err != nil {
		f.logger.Errorf("roll back inode %d: %v", inum, err)
	}
	return cause
}

// Unlink removes the file at path.
func (f *Filesystem) Unlink(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.logger.Debugf("unlink %q", path)
	return f.remove(path, false)
}

// Rmdir removes the directory at path, which must hold nothing but "." and
// "..".
func (f *Filesystem) Rmdir(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.logger.Debugf("rmdir %q", path)
	return f.remove(path, true)
}

func (f *Filesystem) remove(path string, dir bool) error {
	_, parent, leaf, err := f.resolveParent(path)
	if err != nil {
		return err
	}
	inum, err := f.dirLookup(parent, leaf)
	if err != nil {
		return err
	}
	ino, err := f.getInode(inum)
	if err != nil {
		return err
	}

	switch {
	case dir && !ino.IsDir():
		return fmt.Errorf("rmdir %q: %w", path, ErrNotADirectory)
	case !dir && ino.IsDir():
		return fmt.Errorf("unlink %q: %w", path, ErrIsDirectory)
	case dir:
		d, err := f.dirBlockOf(ino)
		if err != nil {
			return err
		}
		if d.numEntries() != 2 {
			f.logger.Warnf("rmdir %q: %d entries", path, d.numEntries())
			return fmt.Errorf("rmdir %q: %w", path, ErrNotEmpty)
		}
	}
	return f.dirDelete(parent, leaf)
}

// Rename moves from to to by copying the object's block into a new inode
// linked at to and then deleting from; the inode number changes. A file
// replaces an existing file at to. Directories keep their contents, and
// their children are repointed at the new inode.
func (f *Filesystem) Rename(from, to string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.logger.Debugf("rename %q to %q", from, to)

	_, fparent, fleaf, err := f.resolveParent(from)
	if err != nil {
		return err
	}
	finum, err := f.dirLookup(fparent, fleaf)
	if err != nil {
		return err
	}
	fino, err := f.getInode(finum)
	if err != nil {
		return err
	}
	if from == to {
		return nil
	}

	tpinum, tparent, tleaf, err := f.resolveParent(to)
	if err != nil {
		return err
	}
	if err := checkName(tleaf); err != nil {
		return err
	}
	if fino.IsDir() {
		if err := f.checkNotBeneath(tpinum, finum); err != nil {
			return fmt.Errorf("rename %q to %q: %w", from, to, err)
		}
	}

	tinum, err := f.dirLookup(tparent, tleaf)
	switch {
	case err == nil:
		if tinum == finum {
			return nil
		}
		tino, err := f.getInode(tinum)
		if err != nil {
			return err
		}
		if fino.IsDir() || tino.IsDir() {
			return fmt.Errorf("rename %q to %q: %w", from, to, ErrAlreadyExists)
		}
		// The target keeps its inode and block, so nothing is lost if
		// the copy fails.
		if err := f.overwrite(tinum, tino, fino); err != nil {
			return err
		}
		return f.dirDelete(fparent, fleaf)
	case !errors.Is(err, ErrNotFound):
		return err
	}

	src, err := f.block(fino)
	if err != nil {
		return err
	}
	buf := make([]byte, blockstore.BlockSize)
	copy(buf, src)

	inum, err := f.mknod(to, fino.Type, fino.Mode)
	if err != nil {
		return err
	}
	ino, err := f.getInode(inum)
	if err != nil {
		return err
	}
	dst, err := f.block(ino)
	if err != nil {
		return err
	}
	copy(dst, buf)
	ino.Size = fino.Size
	if err := f.putInode(inum, ino); err != nil {
		return err
	}
	if ino.IsDir() {
		if err := f.rehome(dirBlock(dst), tleaf, inum, tpinum); err != nil {
			return err
		}
	}

	return f.dirDelete(fparent, fleaf)
}

// overwrite replaces the contents and mode of file dst with those of src.
func (f *Filesystem) overwrite(inum int, dst, src Inode) error {
	from, err := f.block(src)
	if err != nil {
		return err
	}
	to, err := f.block(dst)
	if err != nil {
		return err
	}
	copy(to, from)
	dst.Mode = src.Mode
	dst.Size = src.Size
	return f.putInode(inum, dst)
}

// checkNotBeneath fails if dir is inum or one of its descendants, found by
// following ".." entries up to the root.
func (f *Filesystem) checkNotBeneath(dir, inum int) error {
	cur := dir
	for i := 0; i < InodeCount; i++ {
		if cur == inum {
			return fmt.Errorf("directory %d beneath itself: %w", inum, ErrInvalidArgument)
		}
		if cur == RootInum {
			return nil
		}
		ino, err := f.getInode(cur)
		if err != nil {
			return err
		}
		if cur, err = f.dirLookup(ino, ".."); err != nil {
			return err
		}
	}
	return fmt.Errorf("directory %d: \"..\" chain does not reach the root: %w", dir, ErrInvalidArgument)
}

// rehome fixes up a directory block copied to inode inum under parent: the
// header, "." and "..", and the ".." of every child directory.
func (f *Filesystem) rehome(d dirBlock, name string, inum, parent int) error {
	d.setName(name)
	d.setInum(inum)
	for i := 0; i < d.numEntries(); i++ {
		n, child := d.entry(i)
		switch n {
		case ".":
			d.setEntry(i, n, inum)
		case "..":
			d.setEntry(i, n, parent)
		default:
			cino, err := f.getInode(child)
			if err != nil {
				return err
			}
			if !cino.IsDir() {
				continue
			}
			cd, err := f.dirBlockOf(cino)
			if err != nil {
				return err
			}
			if j := cd.find(".."); j >= 0 {
				cd.setEntry(j, "..", inum)
			}
		}
	}
	return nil
}

// Read copies into p the bytes of file path starting at off and returns the
// count. Reading at or past the end of the file yields zero bytes.
func (f *Filesystem) Read(path string, p []byte, off int64) (int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if off < 0 {
		return 0, fmt.Errorf("read %q at %d: %w", path, off, ErrInvalidArgument)
	}
	_, ino, err := f.resolveInode(path)
	if err != nil {
		return 0, err
	}
	if ino.IsDir() {
		return 0, fmt.Errorf("read %q: %w", path, ErrIsDirectory)
	}
	if ino.Size < 0 || ino.Size > blockstore.BlockSize {
		return 0, fmt.Errorf("read %q: recorded size %d: %w", path, ino.Size, ErrCapacityExceeded)
	}
	if off >= int64(ino.Size) {
		return 0, nil
	}
	b, err := f.block(ino)
	if err != nil {
		return 0, err
	}
	return copy(p, b[off:ino.Size]), nil
}

// Write copies data into file path at off, creating the file with
// DefaultMode if it does not exist. The file's size becomes len(data), even
// when that shortens it.
func (f *Filesystem) Write(path string, data []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.logger.Debugf("write %q: %d bytes at %d", path, len(data), off)

	if off < 0 {
		return 0, fmt.Errorf("write %q at %d: %w", path, off, ErrInvalidArgument)
	}
	if off > blockstore.BlockSize || int64(len(data)) > blockstore.BlockSize-off {
		f.logger.Warnf("write %q: %d bytes at %d overflow the block", path, len(data), off)
		return 0, fmt.Errorf("write %q: %w", path, ErrCapacityExceeded)
	}

	inum, err := f.resolve(path)
	if errors.Is(err, ErrNotFound) {
		inum, err = f.mknod(path, File, DefaultMode)
	}
	if err != nil {
		return 0, err
	}
	ino, err := f.getInode(inum)
	if err != nil {
		return 0, err
	}
	if ino.IsDir() {
		return 0, fmt.Errorf("write %q: %w", path, ErrIsDirectory)
	}

	b, err := f.block(ino)
	if err != nil {
		return 0, err
	}
	copy(b[off:], data)
	ino.Size = len(data)
	if err := f.putInode(inum, ino); err != nil {
		return 0, err
	}
	return len(data), nil
}

// Truncate sets the recorded size of file path. Bytes exposed by growing
// the file are whatever the block already holds.
func (f *Filesystem) Truncate(path string, size int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.logger.Debugf("truncate %q to %d", path, size)

	switch {
	case size < 0:
		return fmt.Errorf("truncate %q to %d: %w", path, size, ErrInvalidArgument)
	case size > blockstore.BlockSize:
		return fmt.Errorf("truncate %q to %d: %w", path, size, ErrCapacityExceeded)
	}
	inum, ino, err := f.resolveInode(path)
	if err != nil {
		return err
	}
	if ino.IsDir() {
		return fmt.Errorf("truncate %q: %w", path, ErrIsDirectory)
	}
	ino.Size = int(size)
	return f.putInode(inum, ino)
}

// Chmod is not supported; mode bits are fixed at creation.
func (f *Filesystem) Chmod(path string, mode uint32) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if _, err := f.resolve(path); err != nil {
		return err
	}
	return fmt.Errorf("chmod %q: %w", path, ErrNotSupported)
}

// Utimens accepts and discards new timestamps; none are stored.
func (f *Filesystem) Utimens(path string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	_, err := f.resolve(path)
	return err
}
