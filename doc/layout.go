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

package doc

import "github.com/kurafs/nufs/pkg/cli"

var LayoutCmd = &cli.Command{
	UsageLine: "layout",
	Short:     "on-disk layout of a nufs image",
	Long: `
An image is 256 blocks of 4096 bytes (1 MiB). All integers are 32-bit
little-endian.

Block 0, allocation state:

    [0, 32)     block bitmap, bit i set if block i is in use
    [32, 64)    inode bitmap, bit i set if inode i is in use

    Bit i lives in byte i/8 at position i%8, least significant first.
    Block 0 is always marked in use.

Block 1, the inode table: 256 records of 16 bytes, record i at byte i*16.

    type    0 for a file, 1 for a directory
    mode    permission bits tagged with S_IFREG or S_IFDIR
    size    bytes in use; at most 4096 for files, 4056 for directories
    block   the inode's single data block

Inode 0 is the root directory. It is created when an image without an
inode table is first opened, and its block is the first free one, block 2.

Directory blocks:

    [0, 32)          name of the directory, NUL padded
    [32, 36)         number of entries
    [36, 40)         inode number of the directory
    [40+36i, 76+36i) entry i: 32-byte NUL padded name, then the inode number

A directory holds at most 112 entries including "." and "..", which are
always the first two. Names are at most 30 bytes, unique within a
directory, and unordered: removing an entry moves the last one into its
slot.

The bolt backend stores the same blocks as values of 4096 bytes keyed by the
big-endian block number in the "blocks" bucket; blocks never written are
absent and read as zeroes.
`,
}
