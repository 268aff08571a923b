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

// Package blockstore provides fixed-size block storage over a disk image.
//
// An image holds BlockCount blocks of BlockSize bytes. Block 0 is reserved
// for allocation metadata: the block bitmap occupies its first BitmapSize
// bytes and the inode bitmap the next BitmapSize bytes. The inode bitmap is
// kept here so both bitmaps persist with the image, but only its owner, the
// inode table, interprets it.
//
// Blocks are handed out as mutable byte slices backed by a Device; writes to
// a slice are writes to the image, made durable by Sync.
package blockstore

import (
	"errors"
	"fmt"

	"github.com/kurafs/nufs/pkg/bitmap"
	"github.com/kurafs/nufs/pkg/log"
)

const (
	BlockSize  = 4096
	BlockCount = 256
	ImageSize  = BlockSize * BlockCount

	// BitmapSize is the size in bytes of a bitmap tracking BlockCount items.
	BitmapSize = BlockCount / 8
)

var (
	ErrOutOfSpace   = errors.New("no free blocks")
	ErrInvalidBlock = errors.New("block number out of range")
	ErrNotAllocated = errors.New("block not allocated")
)

// Device is the storage backing a Store.
type Device interface {
	// Block returns the mutable contents of block n, BlockSize bytes long.
	Block(n int) ([]byte, error)
	// Sync makes all changes made through returned blocks durable.
	Sync() error
	Close() error
}

// Store allocates blocks of a Device. It is not safe for concurrent use;
// callers serialize access.
//
// Block 0 is fetched from the device on every access rather than cached, so
// devices that track dirty blocks see each bitmap update.
type Store struct {
	logger *log.Logger
	dev    Device
}

// Open wraps dev, reserving block 0 for allocation metadata if the device is
// fresh.
func Open(logger *log.Logger, dev Device) (*Store, error) {
	s := &Store{logger: logger, dev: dev}

	blocks, err := s.blockBitmap()
	if err != nil {
		return nil, err
	}
	if !blocks.Get(0) {
		blocks.Set(0, true)
	}
	return s, nil
}

func (s *Store) blockBitmap() (bitmap.Bitmap, error) {
	meta, err := s.dev.Block(0)
	if err != nil {
		return nil, err
	}
	return bitmap.Bitmap(meta[:BitmapSize]), nil
}

// Alloc allocates the lowest-numbered free block and zeroes it.
func (s *Store) Alloc() (int, error) {
	blocks, err := s.blockBitmap()
	if err != nil {
		return 0, err
	}
	n, ok := blocks.FirstClear(BlockCount)
	if !ok {
		return 0, ErrOutOfSpace
	}

	b, err := s.dev.Block(n)
	if err != nil {
		return 0, err
	}
	for i := range b {
		b[i] = 0
	}
	blocks.Set(n, true)

	s.logger.Debugf("allocated block %d", n)
	return n, nil
}

// Free releases block n. Block 0 can never be freed.
func (s *Store) Free(n int) error {
	if n <= 0 || n >= BlockCount {
		return fmt.Errorf("free block %d: %w", n, ErrInvalidBlock)
	}
	blocks, err := s.blockBitmap()
	if err != nil {
		return err
	}
	if !blocks.Get(n) {
		return fmt.Errorf("free block %d: %w", n, ErrNotAllocated)
	}
	blocks.Set(n, false)

	s.logger.Debugf("freed block %d", n)
	return nil
}

// Block returns the contents of block n.
func (s *Store) Block(n int) ([]byte, error) {
	if n < 0 || n >= BlockCount {
		return nil, fmt.Errorf("get block %d: %w", n, ErrInvalidBlock)
	}
	return s.dev.Block(n)
}

// Allocated reports whether block n is in use.
func (s *Store) Allocated(n int) bool {
	if n < 0 || n >= BlockCount {
		return false
	}
	blocks, err := s.blockBitmap()
	if err != nil {
		return false
	}
	return blocks.Get(n)
}

// FreeBlocks returns the number of unallocated blocks.
func (s *Store) FreeBlocks() int {
	blocks, err := s.blockBitmap()
	if err != nil {
		return 0
	}
	return BlockCount - blocks.Count(BlockCount)
}

// InodeBitmap returns the inode allocation bitmap stored in block 0.
func (s *Store) InodeBitmap() (bitmap.Bitmap, error) {
	meta, err := s.dev.Block(0)
	if err != nil {
		return nil, err
	}
	return bitmap.Bitmap(meta[BitmapSize : 2*BitmapSize]), nil
}

func (s *Store) Sync() error {
	return s.dev.Sync()
}

// Close syncs and closes the underlying device.
func (s *Store) Close() error {
	if err := s.dev.Sync(); err != nil {
		s.dev.Close()
		return err
	}
	return s.dev.Close()
}
