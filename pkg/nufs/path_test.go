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
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSegments(t *testing.T) {
	for _, tc := range []struct {
		path string
		want []string
	}{
		{"/", nil},
		{"/a", []string{"a"}},
		{"a", []string{"a"}},
		{"/a/b/c", []string{"a", "b", "c"}},
		{"/a/./..", []string{"a", ".", ".."}},
	} {
		got, err := segments(tc.path)
		if err != nil {
			t.Errorf("segments(%q): %v", tc.path, err)
			continue
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("segments(%q) (-want +got):\n%s", tc.path, diff)
		}
	}

	for _, path := range []string{"", "//", "//a", "/a//b", "/a/", "a/"} {
		if _, err := segments(path); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("segments(%q): expected ErrInvalidArgument, got %v", path, err)
		}
	}
}

func TestSplitPath(t *testing.T) {
	for _, tc := range []struct {
		path, parent, leaf string
	}{
		{"/a", "/", "a"},
		{"/a/b.txt", "/a", "b.txt"},
		{"/a/b/c", "/a/b", "c"},
	} {
		parent, leaf, err := splitPath(tc.path)
		if err != nil {
			t.Errorf("splitPath(%q): %v", tc.path, err)
			continue
		}
		if parent != tc.parent || leaf != tc.leaf {
			t.Errorf("splitPath(%q): expected (%q, %q), got (%q, %q)", tc.path, tc.parent, tc.leaf, parent, leaf)
		}
	}

	for _, path := range []string{"/", "/a/.", "/a/..", "/a/"} {
		if _, _, err := splitPath(path); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("splitPath(%q): expected ErrInvalidArgument, got %v", path, err)
		}
	}
}

func TestResolve(t *testing.T) {
	f := newTestFS(t)

	if inum, err := f.Resolve("/"); err != nil || inum != RootInum {
		t.Errorf("expected / to resolve to the root, got %d (%v)", inum, err)
	}

	a, err := f.Mkdir("/a", 0755)
	if err != nil {
		t.Fatal(err)
	}
	b, err := f.Create("/a/b.txt", 0644)
	if err != nil {
		t.Fatal(err)
	}

	for _, tc := range []struct {
		path string
		want int
	}{
		{"/a", a},
		{"a", a},
		{"/a/b.txt", b},
		{"/a/.", a},
		{"/a/..", RootInum},
		{"/a/../a/b.txt", b},
	} {
		got, err := f.Resolve(tc.path)
		if err != nil {
			t.Errorf("resolve %q: %v", tc.path, err)
			continue
		}
		if got != tc.want {
			t.Errorf("resolve %q: expected %d, got %d", tc.path, tc.want, got)
		}
	}

	if _, err := f.Resolve("/missing/b.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := f.Resolve("/a/b.txt/c"); !errors.Is(err, ErrNotADirectory) {
		t.Errorf("expected descent into a file to fail with ErrNotADirectory, got %v", err)
	}
	if _, err := f.Resolve("/a//b.txt"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}
