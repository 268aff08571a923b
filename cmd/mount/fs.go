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
	"errors"
	"os"
	"path"
	"strings"
	"sync"
	"syscall"
	"time"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"

	"github.com/kurafs/nufs/pkg/blockstore"
	"github.com/kurafs/nufs/pkg/log"
	"github.com/kurafs/nufs/pkg/nufs"
)

// fuseServer adapts a nufs.Filesystem to bazil's node interfaces. Nodes are
// identified by path, and every request is resolved from the root again.
type fuseServer struct {
	logger   *log.Logger
	fs       *nufs.Filesystem
	readOnly bool
	mounted  time.Time

	mu    sync.Mutex
	nodes map[string]*node // live nodes by path
}

var (
	_ fs.FS          = (*fuseServer)(nil)
	_ fs.FSStatfser  = (*fuseServer)(nil)
	_ fs.FSDestroyer = (*fuseServer)(nil)
)

func newFUSEServer(logger *log.Logger, filesys *nufs.Filesystem, readOnly bool) *fuseServer {
	return &fuseServer{
		logger:   logger,
		fs:       filesys,
		readOnly: readOnly,
		mounted:  time.Now(),
		nodes:    make(map[string]*node),
	}
}

func (s *fuseServer) Root() (fs.Node, error) {
	return s.node("/"), nil
}

func (s *fuseServer) Statfs(ctx context.Context, req *fuse.StatfsRequest, resp *fuse.StatfsResponse) error {
	stats, err := s.fs.Statfs()
	if err != nil {
		return s.errno("statfs", err)
	}
	resp.Blocks = uint64(stats.Blocks)
	resp.Bfree = uint64(stats.FreeBlocks)
	resp.Bavail = uint64(stats.FreeBlocks)
	resp.Files = uint64(stats.Inodes)
	resp.Ffree = uint64(stats.FreeInodes)
	resp.Bsize = uint32(stats.BlockSize)
	resp.Frsize = uint32(stats.BlockSize)
	resp.Namelen = uint32(stats.NameMax)
	return nil
}

func (s *fuseServer) Destroy() {
	if err := s.fs.Sync(); err != nil {
		s.logger.Errorf("sync on unmount: %v", err)
	}
}

// node returns the node for p, reusing a live one so the kernel sees a
// stable identity.
func (s *fuseServer) node(p string) *node {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.nodes[p]; ok {
		return n
	}
	n := &node{server: s, path: p}
	s.nodes[p] = n
	return n
}

func (s *fuseServer) forget(n *node) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nodes[n.path] == n {
		delete(s.nodes, n.path)
	}
}

// moved repoints every live node at or beneath from to the corresponding
// path beneath to.
func (s *fuseServer) moved(from, to string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var affected []*node
	for p, n := range s.nodes {
		if p == from || strings.HasPrefix(p, from+"/") {
			affected = append(affected, n)
			delete(s.nodes, p)
		}
	}
	delete(s.nodes, to)
	for _, n := range affected {
		n.path = to + strings.TrimPrefix(n.path, from)
		s.nodes[n.path] = n
	}
}

func (s *fuseServer) removed(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.nodes, p)
}

// errno converts a nufs error into the status code reported to the kernel.
func (s *fuseServer) errno(op string, err error) error {
	errno := toErrno(err)
	if errno == fuse.Errno(syscall.EIO) {
		s.logger.Errorf("%s: %v", op, err)
	} else {
		s.logger.Debugf("%s: %v", op, err)
	}
	return errno
}

func toErrno(err error) fuse.Errno {
	switch {
	case errors.Is(err, nufs.ErrNotFound):
		return fuse.Errno(syscall.ENOENT)
	case errors.Is(err, nufs.ErrNotADirectory):
		return fuse.Errno(syscall.ENOTDIR)
	case errors.Is(err, nufs.ErrIsDirectory):
		return fuse.Errno(syscall.EISDIR)
	case errors.Is(err, nufs.ErrAlreadyExists):
		return fuse.Errno(syscall.EEXIST)
	case errors.Is(err, nufs.ErrNotEmpty):
		return fuse.Errno(syscall.ENOTEMPTY)
	case errors.Is(err, nufs.ErrOutOfInodes), errors.Is(err, nufs.ErrOutOfSpace):
		return fuse.Errno(syscall.ENOSPC)
	case errors.Is(err, nufs.ErrCapacityExceeded):
		return fuse.Errno(syscall.EFBIG)
	case errors.Is(err, nufs.ErrNameTooLong):
		return fuse.Errno(syscall.ENAMETOOLONG)
	case errors.Is(err, nufs.ErrInvalidArgument):
		return fuse.Errno(syscall.EINVAL)
	case errors.Is(err, nufs.ErrNotSupported):
		return fuse.Errno(syscall.EPERM)
	default:
		return fuse.Errno(syscall.EIO)
	}
}

var errReadOnly = fuse.Errno(syscall.EROFS)

// node is a file or directory. It serves as its own handle.
type node struct {
	server *fuseServer
	path   string // guarded by server.mu
}

var (
	_ fs.Node               = (*node)(nil)
	_ fs.NodeStringLookuper = (*node)(nil)
	_ fs.HandleReadDirAller = (*node)(nil)
	_ fs.NodeCreater        = (*node)(nil)
	_ fs.NodeMkdirer        = (*node)(nil)
	_ fs.NodeRemover        = (*node)(nil)
	_ fs.NodeRenamer        = (*node)(nil)
	_ fs.NodeAccesser       = (*node)(nil)
	_ fs.NodeOpener         = (*node)(nil)
	_ fs.NodeSetattrer      = (*node)(nil)
	_ fs.NodeFsyncer        = (*node)(nil)
	_ fs.NodeForgetter      = (*node)(nil)
	_ fs.HandleReader       = (*node)(nil)
	_ fs.HandleWriter       = (*node)(nil)
)

func (n *node) current() string {
	n.server.mu.Lock()
	defer n.server.mu.Unlock()
	return n.path
}

func (n *node) child(name string) string {
	return path.Join(n.current(), name)
}

func (n *node) Attr(ctx context.Context, a *fuse.Attr) error {
	p := n.current()
	attr, err := n.server.fs.Getattr(p)
	if err != nil {
		return n.server.errno("getattr "+p, err)
	}
	fillAttr(a, attr, n.server.mounted)
	return nil
}

func fillAttr(a *fuse.Attr, attr nufs.Attr, t time.Time) {
	a.Inode = uint64(attr.Inum) + 1
	a.Size = uint64(attr.Size)
	a.Blocks = blockstore.BlockSize / 512
	a.BlockSize = blockstore.BlockSize
	a.Nlink = uint32(attr.Nlink)
	a.Mode = os.FileMode(attr.Mode & 0777)
	if attr.Type == nufs.Directory {
		a.Mode |= os.ModeDir
	}
	a.Uid = uint32(os.Getuid())
	a.Gid = uint32(os.Getgid())
	a.Atime, a.Mtime, a.Ctime = t, t, t
}

func (n *node) Lookup(ctx context.Context, name string) (fs.Node, error) {
	p := n.child(name)
	if _, err := n.server.fs.Resolve(p); err != nil {
		return nil, n.server.errno("lookup "+p, err)
	}
	return n.server.node(p), nil
}

func (n *node) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	p := n.current()
	names, err := n.server.fs.Readdir(p)
	if err != nil {
		return nil, n.server.errno("readdir "+p, err)
	}

	dirents := make([]fuse.Dirent, 0, len(names))
	for _, name := range names {
		attr, err := n.server.fs.Getattr(n.child(name))
		if err != nil {
			return nil, n.server.errno("readdir "+p, err)
		}
		typ := fuse.DT_File
		if attr.Type == nufs.Directory {
			typ = fuse.DT_Dir
		}
		dirents = append(dirents, fuse.Dirent{Inode: uint64(attr.Inum) + 1, Name: name, Type: typ})
	}
	return dirents, nil
}

func (n *node) Create(ctx context.Context, req *fuse.CreateRequest, resp *fuse.CreateResponse) (fs.Node, fs.Handle, error) {
	if n.server.readOnly {
		return nil, nil, errReadOnly
	}
	p := n.child(req.Name)
	if _, err := n.server.fs.Create(p, uint32(req.Mode.Perm())); err != nil {
		return nil, nil, n.server.errno("create "+p, err)
	}
	c := n.server.node(p)
	return c, c, nil
}

func (n *node) Mkdir(ctx context.Context, req *fuse.MkdirRequest) (fs.Node, error) {
	if n.server.readOnly {
		return nil, errReadOnly
	}
	p := n.child(req.Name)
	if _, err := n.server.fs.Mkdir(p, uint32(req.Mode.Perm())); err != nil {
		return nil, n.server.errno("mkdir "+p, err)
	}
	return n.server.node(p), nil
}

func (n *node) Remove(ctx context.Context, req *fuse.RemoveRequest) error {
	if n.server.readOnly {
		return errReadOnly
	}
	p := n.child(req.Name)
	remove := n.server.fs.Unlink
	if req.Dir {
		remove = n.server.fs.Rmdir
	}
	if err := remove(p); err != nil {
		return n.server.errno("remove "+p, err)
	}
	n.server.removed(p)
	return nil
}

func (n *node) Rename(ctx context.Context, req *fuse.RenameRequest, newDir fs.Node) error {
	if n.server.readOnly {
		return errReadOnly
	}
	dst, ok := newDir.(*node)
	if !ok {
		return fuse.Errno(syscall.EXDEV)
	}
	from, to := n.child(req.OldName), dst.child(req.NewName)
	if err := n.server.fs.Rename(from, to); err != nil {
		return n.server.errno("rename "+from, err)
	}
	n.server.moved(from, to)
	return nil
}

func (n *node) Access(ctx context.Context, req *fuse.AccessRequest) error {
	p := n.current()
	if err := n.server.fs.Access(p); err != nil {
		return n.server.errno("access "+p, err)
	}
	return nil
}

func (n *node) Open(ctx context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fs.Handle, error) {
	p := n.current()
	if n.server.readOnly && !req.Flags.IsReadOnly() {
		return nil, errReadOnly
	}
	if err := n.server.fs.Access(p); err != nil {
		return nil, n.server.errno("open "+p, err)
	}
	return n, nil
}

func (n *node) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	p := n.current()
	buf := make([]byte, req.Size)
	read, err := n.server.fs.Read(p, buf, req.Offset)
	if err != nil {
		return n.server.errno("read "+p, err)
	}
	resp.Data = buf[:read]
	return nil
}

func (n *node) Write(ctx context.Context, req *fuse.WriteRequest, resp *fuse.WriteResponse) error {
	p := n.current()
	if n.server.readOnly {
		return errReadOnly
	}
	written, err := n.server.fs.Write(p, req.Data, req.Offset)
	if err != nil {
		return n.server.errno("write "+p, err)
	}
	resp.Size = written
	return nil
}

func (n *node) Setattr(ctx context.Context, req *fuse.SetattrRequest, resp *fuse.SetattrResponse) error {
	p := n.current()
	if n.server.readOnly {
		return errReadOnly
	}
	if req.Valid.Mode() {
		if err := n.server.fs.Chmod(p, uint32(req.Mode.Perm())); err != nil {
			return n.server.errno("chmod "+p, err)
		}
	}
	if req.Valid.Size() {
		if err := n.server.fs.Truncate(p, int64(req.Size)); err != nil {
			return n.server.errno("truncate "+p, err)
		}
	}
	if req.Valid.Atime() || req.Valid.Mtime() {
		if err := n.server.fs.Utimens(p); err != nil {
			return n.server.errno("utimens "+p, err)
		}
	}
	return n.Attr(ctx, &resp.Attr)
}

func (n *node) Fsync(ctx context.Context, req *fuse.FsyncRequest) error {
	p := n.current()
	if err := n.server.fs.Sync(); err != nil {
		return n.server.errno("fsync "+p, err)
	}
	return nil
}

func (n *node) Forget() {
	n.server.forget(n)
}
