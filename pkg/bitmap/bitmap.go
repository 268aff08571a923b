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

// Package bitmap implements the bit vectors nufs uses to track allocation
// of blocks and inodes. Bit i lives in byte i/8 at position i%8, least
// significant bit first.
package bitmap

// Bitmap is a view over a byte slice, usually a region of a block, so
// updates land directly in the backing storage.
type Bitmap []byte

// Len returns the number of bits addressable in b.
func (b Bitmap) Len() int {
	return len(b) * 8
}

// Get reports whether bit i is set. It panics if i is out of range.
func (b Bitmap) Get(i int) bool {
	return (b[i/8]>>uint(i%8))&1 == 1
}

// Set sets bit i to v. It panics if i is out of range.
func (b Bitmap) Set(i int, v bool) {
	if v {
		b[i/8] |= 1 << uint(i%8)
	} else {
		b[i/8] &^= 1 << uint(i%8)
	}
}

// FirstClear returns the lowest clear bit below n, or false if bits [0, n)
// are all set.
func (b Bitmap) FirstClear(n int) (int, bool) {
	if n > b.Len() {
		n = b.Len()
	}
	for i := 0; i < n; i++ {
		if b[i/8] == 0xff {
			i += 7 - i%8
			continue
		}
		if !b.Get(i) {
			return i, true
		}
	}
	return 0, false
}

// Count returns the number of set bits below n.
func (b Bitmap) Count(n int) int {
	if n > b.Len() {
		n = b.Len()
	}
	count := 0
	for i := 0; i < n; i++ {
		if b.Get(i) {
			count++
		}
	}
	return count
}
