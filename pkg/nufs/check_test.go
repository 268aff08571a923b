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
	"strings"
	"testing"
)

func checkClean(t *testing.T, f *Filesystem) {
	t.Helper()

	problems, err := f.Check()
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range problems {
		t.Errorf("unexpected problem: %s", p)
	}
}

func expectProblem(t *testing.T, f *Filesystem, substr string) {
	t.Helper()

	problems, err := f.Check()
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range problems {
		if strings.Contains(p.String(), substr) {
			return
		}
	}
	t.Errorf("expected a problem mentioning %q, got %v", substr, problems)
}

func TestCheckClean(t *testing.T) {
	f := newTestFS(t)
	checkClean(t, f)

	if _, err := f.Mkdir("/a", 0755); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write("/a/f", []byte("x"), 0); err != nil {
		t.Fatal(err)
	}
	checkClean(t, f)
}

func TestCheckLeakedInode(t *testing.T) {
	f := newTestFS(t)

	if _, err := f.allocInode(); err != nil {
		t.Fatal(err)
	}
	expectProblem(t, f, "marked allocated but unreachable")
}

func TestCheckLeakedBlock(t *testing.T) {
	f := newTestFS(t)

	n, err := f.store.Alloc()
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("expected block 3, got %d", n)
	}
	expectProblem(t, f, "block 3 allocated but unused")
}

func TestCheckBadDirectory(t *testing.T) {
	f := newTestFS(t)

	if _, err := f.Create("/f", 0644); err != nil {
		t.Fatal(err)
	}
	dir := root(t, f)
	d, err := f.dirBlockOf(dir)
	if err != nil {
		t.Fatal(err)
	}
	d.setEntry(1, "..", 9)
	_, inum := d.entry(2)
	d.setEntry(d.numEntries(), "f", inum)
	d.setNumEntries(d.numEntries() + 1)

	expectProblem(t, f, `".." refers to inode 9`)
	expectProblem(t, f, `duplicate entry "f"`)
}

func TestCheckSharedBlock(t *testing.T) {
	f := newTestFS(t)

	a, err := f.Create("/a", 0644)
	if err != nil {
		t.Fatal(err)
	}
	b, err := f.Create("/b", 0644)
	if err != nil {
		t.Fatal(err)
	}
	aino, _ := f.getInode(a)
	bino, _ := f.getInode(b)
	bino.Block = aino.Block
	if err := f.putInode(b, bino); err != nil {
		t.Fatal(err)
	}
	expectProblem(t, f, "shared with inode")
}
