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

package nufs

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kurafs/nufs/pkg/blockstore"
	"github.com/kurafs/nufs/pkg/log"
)

func TestFormat(t *testing.T) {
	f := newTestFS(t)

	ino := root(t, f)
	want := Inode{Type: Directory, Mode: modeDir | rootMode, Size: DirSize, Block: 2}
	if ino != want {
		t.Errorf("expected root %+v, got %+v", want, ino)
	}

	d, err := f.dirBlockOf(ino)
	if err != nil {
		t.Fatal(err)
	}
	if d.name() != "/" || d.inum() != RootInum || d.numEntries() != 2 {
		t.Errorf("expected root header (/, 2, 0), got (%s, %d, %d)", d.name(), d.numEntries(), d.inum())
	}

	stats, err := f.Statfs()
	if err != nil {
		t.Fatal(err)
	}
	wantStats := Stats{
		BlockSize:  blockstore.BlockSize,
		Blocks:     blockstore.BlockCount,
		FreeBlocks: blockstore.BlockCount - 3,
		Inodes:     InodeCount,
		FreeInodes: InodeCount - 1,
		NameMax:    NameMax,
	}
	if diff := cmp.Diff(wantStats, stats); diff != "" {
		t.Errorf("unexpected stats (-want +got):\n%s", diff)
	}
}

func TestLoadUnformatted(t *testing.T) {
	store, err := blockstore.Open(log.Discarder(), blockstore.NewMemDevice())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Load(log.Discarder(), store); !errors.Is(err, ErrUnformatted) {
		t.Errorf("expected ErrUnformatted, got %v", err)
	}
	if store.Allocated(inodeTableBlock) {
		t.Error("expected Load to leave the store untouched")
	}
}

func testPersistence(t *testing.T, backend string) {
	path := filepath.Join(t.TempDir(), "nufs.img")

	open := func(format bool) *Filesystem {
		t.Helper()

		dev, err := blockstore.OpenDevice(backend, path, false)
		if err != nil {
			t.Fatal(err)
		}
		store, err := blockstore.Open(log.Discarder(), dev)
		if err != nil {
			t.Fatal(err)
		}
		if format {
			f, err := New(log.Discarder(), store)
			if err != nil {
				t.Fatal(err)
			}
			return f
		}
		f, err := Load(log.Discarder(), store)
		if err != nil {
			t.Fatal(err)
		}
		return f
	}

	f := open(true)
	if _, err := f.Mkdir("/a", 0755); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write("/a/b.txt", []byte("persisted"), 0); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	f = open(false)
	defer f.Close()

	if got := read(t, f, "/a/b.txt", 0, 100); got != "persisted" {
		t.Errorf("expected %q, got %q", "persisted", got)
	}
	checkClean(t, f)
}

func TestPersistenceImage(t *testing.T) {
	testPersistence(t, blockstore.BackendMmap)
}

func TestPersistenceBolt(t *testing.T) {
	testPersistence(t, blockstore.BackendBolt)
}
