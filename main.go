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

package main

import (
	"os"

	"github.com/kurafs/nufs/cmd/fsck"
	"github.com/kurafs/nufs/cmd/mkfs"
	"github.com/kurafs/nufs/cmd/mount"
	"github.com/kurafs/nufs/doc"
	"github.com/kurafs/nufs/pkg/cli"
)

func main() {
	// We aggregate all the top-level commands (i.e. 'nufs <command> ...') as
	// needed.
	var commands cli.Commands

	commands = append(commands, mount.MountCmd)
	commands = append(commands, mkfs.MkfsCmd)
	commands = append(commands, fsck.FsckCmd)

	// Documentation pseudo-commands for the on-disk layout and architecture.
	commands = append(commands, doc.LayoutCmd)
	commands = append(commands, doc.ArchitectureCmd)

	abstract := "nufs is a tiny single-block-per-file filesystem served over FUSE."
	if err := cli.Process(abstract, commands); err != nil {
		os.Exit(1)
	}
}
