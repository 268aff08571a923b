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

package mkfs

import (
	"errors"
	"fmt"

	"github.com/kurafs/nufs/pkg/blockstore"
	"github.com/kurafs/nufs/pkg/cli"
	"github.com/kurafs/nufs/pkg/log"
	"github.com/kurafs/nufs/pkg/nufs"
)

var MkfsCmd = &cli.Command{
	Run:       mkfsCmdRun,
	UsageLine: "mkfs [-backend mmap|bolt] [-force] [logger flags] <image>",
	Short:     "create an empty filesystem image",
	Long: `
Mkfs creates the image if needed and writes an empty filesystem to it: the
allocation bitmaps, the inode table and the root directory. An image that
already holds a filesystem is left alone unless -force is given, in which
case its allocation state is wiped and a fresh root is written.
    `,
}

func mkfsCmdRun(cmd *cli.Command, args []string) error {
	var (
		backendFlag string
		forceFlag   bool
		logFlags    log.CommandFlags
	)

	cmd.FlagSet.StringVar(&backendFlag, "backend", blockstore.BackendMmap,
		"Image storage backend [mmap|bolt]")
	cmd.FlagSet.BoolVar(&forceFlag, "force", false,
		"Reformat an image that already holds a filesystem")
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
	image := cmd.FlagSet.Arg(0)
	logger := logFlags.Logger()

	if err := mkfs(logger, backendFlag, image, forceFlag); err != nil {
		logger.Error(err.Error())
		return err
	}
	return nil
}

func mkfs(logger *log.Logger, backend, image string, force bool) error {
	dev, err := blockstore.OpenDevice(backend, image, false)
	if err != nil {
		return err
	}
	if force {
		meta, err := dev.Block(0)
		if err != nil {
			dev.Close()
			return err
		}
		for i := range meta {
			meta[i] = 0
		}
	}

	store, err := blockstore.Open(logger, dev)
	if err != nil {
		dev.Close()
		return err
	}
	if _, err := nufs.Load(logger, store); err == nil {
		store.Close()
		return fmt.Errorf("%s already holds a filesystem (use -force to reformat)", image)
	}
	filesys, err := nufs.New(logger, store)
	if err != nil {
		store.Close()
		return err
	}
	if err := filesys.Close(); err != nil {
		return err
	}

	logger.Infof("created filesystem in %s", image)
	return nil
}
