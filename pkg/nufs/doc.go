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

// Package nufs implements a small filesystem over a blockstore.Store: an
// inode table, single-block directories and the path-based operations a
// FUSE bridge calls into.
//
// Every object is an inode owning exactly one data block, so files hold at
// most blockstore.BlockSize bytes and directories at most DirCapacity
// entries. Block 1 holds the inode table and inode 0 is the root directory.
// Paths are always resolved from the root; a single leading slash is
// optional, any other empty component is rejected.
package nufs
