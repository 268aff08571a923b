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
	"context"
	"fmt"
	"os"
	"syscall"
	"testing"

	"bazil.org/fuse"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/kurafs/nufs/pkg/blockstore"
	"github.com/kurafs/nufs/pkg/log"
	"github.com/kurafs/nufs/pkg/nufs"
)

func newTestServer(t *testing.T, readOnly bool) (*fuseServer, *node) {
	t.Helper()

	store, err := blockstore.Open(log.Discarder(), blockstore.NewMemDevice())
	if err != nil {
		t.Fatal(err)
	}
	filesys, err := nufs.New(log.Discarder(), store)
	if err != nil {
		t.Fatal(err)
	}
	s := newFUSEServer(log.Discarder(), filesys, readOnly)
	root, err := s.Root()
	if err != nil {
		t.Fatal(err)
	}
	return s, root.(*node)
}

func TestToErrno(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want syscall.Errno
	}{
		{nufs.ErrNotFound, syscall.ENOENT},
		{fmt.Errorf("resolve %q: %w", "/a", nufs.ErrNotFound), syscall.ENOENT},
		{nufs.ErrNotADirectory, syscall.ENOTDIR},
		{nufs.ErrIsDirectory, syscall.EISDIR},
		{nufs.ErrAlreadyExists, syscall.EEXIST},
		{nufs.ErrNotEmpty, syscall.ENOTEMPTY},
		{nufs.ErrOutOfInodes, syscall.ENOSPC},
		{blockstore.ErrOutOfSpace, syscall.ENOSPC},
		{nufs.ErrCapacityExceeded, syscall.EFBIG},
		{nufs.ErrNameTooLong, syscall.ENAMETOOLONG},
		{nufs.ErrInvalidArgument, syscall.EINVAL},
		{nufs.ErrNotSupported, syscall.EPERM},
		{blockstore.ErrInvalidBlock, syscall.EIO},
	} {
		if got := toErrno(tc.err); got != fuse.Errno(tc.want) {
			t.Errorf("toErrno(%v): expected %v, got %v", tc.err, tc.want, syscall.Errno(got))
		}
	}
}

func TestNodeOperations(t *testing.T) {
	ctx := context.Background()
	_, root := newTestServer(t, false)

	dn, err := root.Mkdir(ctx, &fuse.MkdirRequest{Name: "a", Mode: os.ModeDir | 0755})
	if err != nil {
		t.Fatal(err)
	}
	dir := dn.(*node)

	fn, _, err := dir.Create(ctx, &fuse.CreateRequest{Name: "b.txt", Mode: 0644}, &fuse.CreateResponse{})
	if err != nil {
		t.Fatal(err)
	}
	file := fn.(*node)

	wresp := &fuse.WriteResponse{}
	if err := file.Write(ctx, &fuse.WriteRequest{Data: []byte("hi"), Offset: 0}, wresp); err != nil {
		t.Fatal(err)
	}
	if wresp.Size != 2 {
		t.Errorf("expected 2 bytes written, got %d", wresp.Size)
	}

	rresp := &fuse.ReadResponse{}
	if err := file.Read(ctx, &fuse.ReadRequest{Offset: 0, Size: 100}, rresp); err != nil {
		t.Fatal(err)
	}
	if string(rresp.Data) != "hi" {
		t.Errorf("expected %q, got %q", "hi", rresp.Data)
	}

	var attr fuse.Attr
	if err := file.Attr(ctx, &attr); err != nil {
		t.Fatal(err)
	}
	if attr.Size != 2 || attr.Mode != 0644 || attr.Nlink != 1 {
		t.Errorf("expected size 2, mode 0644, 1 link, got %d, %v, %d", attr.Size, attr.Mode, attr.Nlink)
	}
	if err := dir.Attr(ctx, &attr); err != nil {
		t.Fatal(err)
	}
	if attr.Mode != os.ModeDir|0755 {
		t.Errorf("expected mode %v, got %v", os.ModeDir|0755, attr.Mode)
	}

	dirents, err := dir.ReadDirAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []fuse.Dirent{
		{Inode: 1, Name: "..", Type: fuse.DT_Dir},
		{Inode: attr.Inode, Name: ".", Type: fuse.DT_Dir},
		{Inode: dirents[2].Inode, Name: "b.txt", Type: fuse.DT_File},
	}
	less := func(a, b fuse.Dirent) bool { return a.Name < b.Name }
	if diff := cmp.Diff(want, dirents, cmpopts.SortSlices(less)); diff != "" {
		t.Errorf("unexpected dirents (-want +got):\n%s", diff)
	}

	if _, err := dir.Lookup(ctx, "missing"); err != fuse.Errno(syscall.ENOENT) {
		t.Errorf("expected ENOENT, got %v", err)
	}
	if err := root.Remove(ctx, &fuse.RemoveRequest{Name: "a", Dir: true}); err != fuse.Errno(syscall.ENOTEMPTY) {
		t.Errorf("expected ENOTEMPTY, got %v", err)
	}
}

func TestSetattr(t *testing.T) {
	ctx := context.Background()
	_, root := newTestServer(t, false)

	fn, _, err := root.Create(ctx, &fuse.CreateRequest{Name: "f", Mode: 0644}, &fuse.CreateResponse{})
	if err != nil {
		t.Fatal(err)
	}
	file := fn.(*node)

	resp := &fuse.SetattrResponse{}
	if err := file.Setattr(ctx, &fuse.SetattrRequest{Valid: fuse.SetattrSize, Size: 10}, resp); err != nil {
		t.Fatal(err)
	}
	if resp.Attr.Size != 10 {
		t.Errorf("expected size 10, got %d", resp.Attr.Size)
	}

	err = file.Setattr(ctx, &fuse.SetattrRequest{Valid: fuse.SetattrSize, Size: blockstore.BlockSize + 1}, resp)
	if err != fuse.Errno(syscall.EFBIG) {
		t.Errorf("expected EFBIG, got %v", err)
	}
	err = file.Setattr(ctx, &fuse.SetattrRequest{Valid: fuse.SetattrMode, Mode: 0600}, resp)
	if err != fuse.Errno(syscall.EPERM) {
		t.Errorf("expected EPERM, got %v", err)
	}
	if err := file.Setattr(ctx, &fuse.SetattrRequest{Valid: fuse.SetattrMtime}, resp); err != nil {
		t.Errorf("expected times to be accepted, got %v", err)
	}
}

func TestRenameRepointsNodes(t *testing.T) {
	ctx := context.Background()
	s, root := newTestServer(t, false)

	dn, err := root.Mkdir(ctx, &fuse.MkdirRequest{Name: "a", Mode: os.ModeDir | 0755})
	if err != nil {
		t.Fatal(err)
	}
	fn, _, err := dn.(*node).Create(ctx, &fuse.CreateRequest{Name: "f", Mode: 0644}, &fuse.CreateResponse{})
	if err != nil {
		t.Fatal(err)
	}
	file := fn.(*node)

	if err := root.Rename(ctx, &fuse.RenameRequest{OldName: "a", NewName: "b"}, root); err != nil {
		t.Fatal(err)
	}
	if got := file.current(); got != "/b/f" {
		t.Errorf("expected the open file to move to /b/f, got %s", got)
	}
	if n := s.node("/b/f"); n != file {
		t.Error("expected the moved node to be reused")
	}

	var attr fuse.Attr
	if err := file.Attr(ctx, &attr); err != nil {
		t.Errorf("expected the moved node to stay usable, got %v", err)
	}
}

func TestReadOnly(t *testing.T) {
	ctx := context.Background()
	_, root := newTestServer(t, true)

	if _, err := root.Mkdir(ctx, &fuse.MkdirRequest{Name: "a"}); err != errReadOnly {
		t.Errorf("expected EROFS, got %v", err)
	}
	if _, _, err := root.Create(ctx, &fuse.CreateRequest{Name: "f"}, &fuse.CreateResponse{}); err != errReadOnly {
		t.Errorf("expected EROFS, got %v", err)
	}
	if _, err := root.Open(ctx, &fuse.OpenRequest{Flags: fuse.OpenWriteOnly}, &fuse.OpenResponse{}); err != errReadOnly {
		t.Errorf("expected EROFS, got %v", err)
	}
	if _, err := root.Open(ctx, &fuse.OpenRequest{Flags: fuse.OpenReadOnly}, &fuse.OpenResponse{}); err != nil {
		t.Errorf("expected read-only open to succeed, got %v", err)
	}
}

func TestStatfs(t *testing.T) {
	s, _ := newTestServer(t, false)

	resp := &fuse.StatfsResponse{}
	if err := s.Statfs(context.Background(), &fuse.StatfsRequest{}, resp); err != nil {
		t.Fatal(err)
	}
	want := fuse.StatfsResponse{
		Blocks:  blockstore.BlockCount,
		Bfree:   blockstore.BlockCount - 3,
		Bavail:  blockstore.BlockCount - 3,
		Files:   nufs.InodeCount,
		Ffree:   nufs.InodeCount - 1,
		Bsize:   blockstore.BlockSize,
		Frsize:  blockstore.BlockSize,
		Namelen: nufs.NameMax,
	}
	if diff := cmp.Diff(want, *resp); diff != "" {
		t.Errorf("unexpected statfs (-want +got):\n%s", diff)
	}
}
