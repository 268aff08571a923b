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
	"strings"
)

// segments splits path into its components. A single leading slash is
// skipped and "/" yields no components; any other empty component, from
// doubled or trailing slashes, makes the path malformed.
func segments(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("empty path: %w", ErrInvalidArgument)
	}
	if path == "/" {
		return nil, nil
	}
	segs := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for _, s := range segs {
		if s == "" {
			return nil, fmt.Errorf("path %q: empty component: %w", path, ErrInvalidArgument)
		}
	}
	return segs, nil
}

// splitPath separates path into the path of its parent directory and the
// final component. The root, and leaves naming "." or "..", have no parent
// entry to operate on.
func splitPath(path string) (parent, leaf string, err error) {
	segs, err := segments(path)
	if err != nil {
		return "", "", err
	}
	if len(segs) == 0 {
		return "", "", fmt.Errorf("path %q has no parent: %w", path, ErrInvalidArgument)
	}
	leaf = segs[len(segs)-1]
	if leaf == "." || leaf == ".." {
		return "", "", fmt.Errorf("path %q: %w", path, ErrInvalidArgument)
	}
	return "/" + strings.Join(segs[:len(segs)-1], "/"), leaf, nil
}

// resolve walks path from the root and returns the inode number it names.
// Nothing is cached between calls.
func (f *Filesystem) resolve(path string) (int, error) {
	segs, err := segments(path)
	if err != nil {
		return 0, err
	}

	cur := RootInum
	for i, name := range segs {
		ino, err := f.getInode(cur)
		if err != nil {
			return 0, err
		}
		if !ino.IsDir() {
			return 0, fmt.Errorf("%q: %w", "/"+strings.Join(segs[:i], "/"), ErrNotADirectory)
		}
		if cur, err = f.dirLookup(ino, name); err != nil {
			return 0, fmt.Errorf("resolve %q: %w", path, err)
		}
	}
	return cur, nil
}

// resolveInode is resolve followed by a read of the inode.
func (f *Filesystem) resolveInode(path string) (int, Inode, error) {
	inum, err := f.resolve(path)
	if err != nil {
		return 0, Inode{}, err
	}
	ino, err := f.getInode(inum)
	if err != nil {
		return 0, Inode{}, err
	}
	return inum, ino, nil
}

// resolveParent splits path and resolves its parent, which must be a
// directory.
func (f *Filesystem) resolveParent(path string) (pinum int, parent Inode, leaf string, err error) {
	ppath, leaf, err := splitPath(path)
	if err != nil {
		return 0, Inode{}, "", err
	}
	pinum, parent, err = f.resolveInode(ppath)
	if err != nil {
		return 0, Inode{}, "", err
	}
	if !parent.IsDir() {
		return 0, Inode{}, "", fmt.Errorf("%q: %w", ppath, ErrNotADirectory)
	}
	return pinum, parent, leaf, nil
}
