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

package fsck

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/kurafs/nufs/pkg/blockstore"
	"github.com/kurafs/nufs/pkg/cli"
	"github.com/kurafs/nufs/pkg/log"
	"github.com/kurafs/nufs/pkg/nufs"
)

// ErrInconsistent is returned when the check finds problems.
var ErrInconsistent = errors.New("filesystem is inconsistent")

var FsckCmd = &cli.Command{
	Run:       fsckCmdRun,
	UsageLine: "fsck [-backend mmap|bolt] [logger flags] <image>",
	Short:     "check the consistency of a filesystem image",
	Long: `
Fsck walks the directory tree of an image from the root and reports, one per
line, every inconsistency it finds:

    - inodes marked allocated that no directory refers to, and the reverse
    - blocks allocated but unused, shared between inodes or out of range
    - directories over capacity, with duplicate names, or with "." or ".."
      entries that do not match their place in the tree
    - file sizes larger than a block, mode bits that disagree with the type

The image is never modified; nothing is repaired. Fsck exits non-zero if any
problem is found.
    `,
}

func fsckCmdRun(cmd *cli.Command, args []string) error {
	var (
		backendFlag string
		logFlags    log.CommandFlags
	)

	cmd.FlagSet.StringVar(&backendFlag, "backend", blockstore.BackendMmap,
		"Image storage backend [mmap|bolt]")
	logFlags.Register(&cmd.FlagSet)

	if err := cmd.FlagSet.Parse(args); err != nil {
		return cli.CmdParseError(err)
	}
	if cmd.FlagSet.NArg() > 1 {
		return cli.CmdParseError(
			fmt.Errorf("unrecognized arguments: %v", cmd.FlagSet.Args()[1:]))
	}
	if cmd.FlagSet.NArg() == 0 {
		return cli.CmdParseError(errors.New("unspecified image"))
	}
	logger := logFlags.Logger()

	if err := fsck(logger, os.Stdout, backendFlag, cmd.FlagSet.Arg(0)); err != nil {
		logger.Error(err.Error())
		return err
	}
	return nil
}

func fsck(logger *log.Logger, w io.Writer, backend, image string) error {
	dev, err := blockstore.OpenDevice(backend, image, true)
	if err != nil {
		return err
	}
	// Close the device directly: nothing read here is written back.
	defer dev.Close()

	store, err := blockstore.Open(logger, dev)
	if err != nil {
		return err
	}
	filesys, err := nufs.Load(logger, store)
	if err != nil {
		return fmt.Errorf("%s: %w", image, err)
	}
	problems, err := filesys.Check()
	if err != nil {
		return err
	}
	for _, p := range problems {
		fmt.Fprintln(w, p)
	}

	stats, err := filesys.Statfs()
	if err != nil {
		return err
	}
	used := stats.Blocks - stats.FreeBlocks
	logger.Infof("%s: %d/%d inodes, %d/%d blocks (%s) in use, %d problems", image,
		stats.Inodes-stats.FreeInodes, stats.Inodes,
		used, stats.Blocks, humanize.IBytes(uint64(used*stats.BlockSize)), len(problems))

	if len(problems) > 0 {
		return fmt.Errorf("%s: %d problems: %w", image, len(problems), ErrInconsistent)
	}
	return nil
}
