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

var ArchitectureCmd = &cli.Command{
	UsageLine: "architecture",
	Short:     "nufs component overview",
	Long: `
nufs is built from a handful of layers, leaves first:

    pkg/bitmap       bit vectors used to track free blocks and free inodes.

    pkg/blockstore   256 blocks of 4096 bytes over a device. Block 0 holds the
                     block bitmap and the inode bitmap; Alloc hands out the
                     lowest free block, zeroed. Devices: a memory-mapped image
                     file (the default), a bolt database with one record per
                     block, and a sparse in-memory device for tests.

    pkg/nufs         the filesystem proper. The inode table lives in block 1;
                     each inode owns exactly one data block. Directories are
                     a single block of fixed-size entries. Paths are resolved
                     from the root on every call. Create, mkdir, unlink,
                     rmdir, rename, read, write and truncate are methods on
                     Filesystem, which serializes mutations behind a single
                     lock while letting reads proceed in parallel.

    cmd/mount        the FUSE bridge: kernel requests become path-based calls
                     into pkg/nufs, and nufs errors become errno values.

    cmd/mkfs,        offline tools: format an image, or walk it and report
    cmd/fsck         every broken invariant without repairing anything.

Every request arriving from the kernel follows the same route: the node's
path is resolved (its parent too, when mutating), the inode table and
directory blocks are read or changed, and a status is returned. Nothing is
journaled; a crash mid-operation can leave a leaked inode or block behind,
which fsck reports.
`,
}
