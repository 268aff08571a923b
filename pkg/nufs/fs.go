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
	"sync"

	"github.com/kurafs/nufs/pkg/blockstore"
	"github.com/kurafs/nufs/pkg/log"
)

// ErrUnformatted is returned by Load for a store that holds no filesystem.
var ErrUnformatted = errors.New("image holds no filesystem")

// rootMode is the mode given to the root directory at format time.
const rootMode = 0755

// Filesystem is a tree of files and directories kept in a block store. It
// owns the store: the inode table, both bitmaps and every directory block
// are only touched through it. Mutating operations are serialized; lookups
// and reads may run concurrently with each other.
type Filesystem struct {
	logger *log.Logger
	store  *blockstore.Store

	mu sync.RWMutex
}

// New returns the filesystem held in store, formatting it first if the store
// is fresh.
func New(logger *log.Logger, store *blockstore.Store) (*Filesystem, error) {
	f := &Filesystem{logger: logger, store: store}
	if !f.formatted() {
		if err := f.format(); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Load returns the filesystem held in store without modifying it.
func Load(logger *log.Logger, store *blockstore.Store) (*Filesystem, error) {
	f := &Filesystem{logger: logger, store: store}
	if !f.formatted() {
		return nil, ErrUnformatted
	}
	return f, nil
}

// formatted reports whether the inode table block has been claimed.
func (f *Filesystem) formatted() bool {
	return f.store.Allocated(inodeTableBlock)
}

// format lays out an empty filesystem: the inode table in block 1 and the
// root directory, inode 0, in the next free block.
func (f *Filesystem) format() error {
	n, err := f.store.Alloc()
	if err != nil {
		return fmt.Errorf("format: allocate inode table: %w", err)
	}
	if n != inodeTableBlock {
		return fmt.Errorf("format: inode table landed in block %d: %w", n, ErrInvalidArgument)
	}

	inodes, err := f.inodeBitmap()
	if err != nil {
		return err
	}
	for i := 0; i < InodeCount; i++ {
		inodes.Set(i, false)
	}
	inodes.Set(RootInum, true)

	blk, err := f.store.Alloc()
	if err != nil {
		return fmt.Errorf("format: allocate root directory: %w", err)
	}
	b, err := f.store.Block(blk)
	if err != nil {
		return err
	}
	dirInit(b, "/", RootInum, RootInum)

	root := Inode{Type: Directory, Mode: modeDir | rootMode, Size: DirSize, Block: blk}
	if err := f.putInode(RootInum, root); err != nil {
		return err
	}

	f.logger.Infof("formatted filesystem (root directory in block %d)", blk)
	return nil
}

// Stats summarizes allocation state.
type Stats struct {
	BlockSize  int
	Blocks     int
	FreeBlocks int
	Inodes     int
	FreeInodes int
	NameMax    int
}

// Statfs reports block and inode usage.
func (f *Filesystem) Statfs() (Stats, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	inodes, err := f.inodeBitmap()
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		BlockSize:  blockstore.BlockSize,
		Blocks:     blockstore.BlockCount,
		FreeBlocks: f.store.FreeBlocks(),
		Inodes:     InodeCount,
		FreeInodes: InodeCount - inodes.Count(InodeCount),
		NameMax:    NameMax,
	}, nil
}

// Sync flushes the underlying store.
func (f *Filesystem) Sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.store.Sync()
}

// Close syncs and closes the underlying store.
func (f *Filesystem) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.store.Close()
}
