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

package mount

import (
	"errors"
	"fmt"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"

	"github.com/kurafs/nufs/pkg/blockstore"
	"github.com/kurafs/nufs/pkg/cli"
	"github.com/kurafs/nufs/pkg/log"
	"github.com/kurafs/nufs/pkg/nufs"
)

var MountCmd = &cli.Command{
	Run:       mountCmdRun,
	UsageLine: "mount [-backend mmap|bolt] [-read-only] [-unmount] [logger flags] <image> <mount-point>",
	Short:     "serve the filesystem in an image at the specified mount point",
	Long: `
Mount opens the image, formats it if it holds no filesystem yet, and serves
it over FUSE until the mount point is unmounted. The image is created if it
does not exist. With -unmount, only the mount point is given and the
filesystem mounted there is detached.

The mmap backend keeps the image as a flat 1 MiB file mapped into memory;
the bolt backend keeps one database record per block. See 'nufs help
layout' for what the blocks hold.
    `,
}

func mountCmdRun(cmd *cli.Command, args []string) error {
	var (
		backendFlag  string
		readOnlyFlag bool
		unmountFlag  bool
		logFlags     log.CommandFlags
	)

	cmd.FlagSet.StringVar(&backendFlag, "backend", blockstore.BackendMmap,
		"Image storage backend [mmap|bolt]")
	cmd.FlagSet.BoolVar(&readOnlyFlag, "read-only", false,
		"Mount the filesystem read-only")
	cmd.FlagSet.BoolVar(&unmountFlag, "unmount", false,
		"Unmount filesystem at specified directory")
	logFlags.Register(&cmd.FlagSet)

	if err := cmd.FlagSet.Parse(args); err != nil {
		return cli.CmdParseError(err)
	}
	logger := logFlags.Logger()

	if unmountFlag {
		if cmd.FlagSet.NArg() != 1 {
			return cli.CmdParseError(errors.New("expected exactly one mount-point"))
		}
		if err := unmount(logger, cmd.FlagSet.Arg(0)); err != nil {
			logger.Error(err.Error())
			return err
		}
		return nil
	}

	if cmd.FlagSet.NArg() > 2 {
		return cli.CmdParseError(
			fmt.Errorf("unrecognized arguments: %v", cmd.FlagSet.Args()[2:]))
	}
	if cmd.FlagSet.NArg() < 2 {
		return cli.CmdParseError(errors.New("unspecified image or mount-point"))
	}
	image, mountPoint := cmd.FlagSet.Arg(0), cmd.FlagSet.Arg(1)

	filesys, err := openFilesystem(logger, backendFlag, image, readOnlyFlag)
	if err != nil {
		logger.Error(err.Error())
		return err
	}
	defer func() {
		if err := filesys.Close(); err != nil {
			logger.Errorf("close %s: %v", image, err)
		}
	}()

	conn, err := mount(logger, mountPoint, readOnlyFlag)
	if err != nil {
		logger.Error(err.Error())
		return err
	}
	defer conn.Close()

	server := fs.New(conn, &fs.Config{
		Debug: func(msg interface{}) { logger.Debug(msg) },
	})
	if err := server.Serve(newFUSEServer(logger, filesys, readOnlyFlag)); err != nil {
		logger.Error(err.Error())
		return err
	}
	return nil
}

// openFilesystem opens image for serving. A read-only image is opened through
// a private device and must already be formatted; otherwise a fresh image is
// formatted.
func openFilesystem(logger *log.Logger, backend, image string, readOnly bool) (*nufs.Filesystem, error) {
	dev, err := blockstore.OpenDevice(backend, image, readOnly)
	if err != nil {
		return nil, err
	}
	store, err := blockstore.Open(logger, dev)
	if err != nil {
		dev.Close()
		return nil, err
	}
	open := nufs.New
	if readOnly {
		open = nufs.Load
	}
	filesys, err := open(logger, store)
	if err != nil {
		store.Close()
		return nil, err
	}
	return filesys, nil
}

func unmount(logger *log.Logger, mountPoint string) error {
	if err := fuse.Unmount(mountPoint); err != nil {
		return err
	}
	logger.Infof("unmounted point: %s", mountPoint)
	return nil
}

func mount(logger *log.Logger, mountPoint string, readOnly bool) (*fuse.Conn, error) {
	options := []fuse.MountOption{
		fuse.FSName("nufs"),
		fuse.Subtype("nufs"),
	}
	if readOnly {
		options = append(options, fuse.ReadOnly())
	}
	conn, err := fuse.Mount(mountPoint, options...)
	if err != nil {
		return nil, err
	}

	logger.Infof("mounted point: %s", mountPoint)
	return conn, nil
}
