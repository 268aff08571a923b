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

package bitmap

import "testing"

func TestGetSet(t *testing.T) {
	b := make(Bitmap, 4)
	for _, i := range []int{0, 7, 8, 31} {
		b.Set(i, true)
		if !b.Get(i) {
			t.Errorf("expected bit %d to be set", i)
		}
	}
	if b[0] != 0x81 || b[1] != 0x01 || b[3] != 0x80 {
		t.Errorf("unexpected layout: %x", []byte(b))
	}

	b.Set(7, false)
	if b.Get(7) {
		t.Error("expected bit 7 to be clear")
	}
	if b.Get(6) || !b.Get(0) {
		t.Error("clearing bit 7 disturbed its neighbours")
	}
}

func TestFirstClear(t *testing.T) {
	b := make(Bitmap, 2)
	for i := 0; i < 11; i++ {
		b.Set(i, true)
	}

	i, ok := b.FirstClear(16)
	if !ok || i != 11 {
		t.Errorf("expected first clear bit 11, got %d (ok=%v)", i, ok)
	}

	b.Set(3, false)
	if i, _ := b.FirstClear(16); i != 3 {
		t.Errorf("expected first clear bit 3, got %d", i)
	}

	if _, ok := b.FirstClear(3); ok {
		t.Error("expected no clear bit below 3")
	}
}

func TestFirstClearFull(t *testing.T) {
	b := Bitmap{0xff, 0xff}
	if _, ok := b.FirstClear(16); ok {
		t.Error("expected full bitmap to have no clear bit")
	}
	if b.Count(16) != 16 {
		t.Errorf("expected 16 set bits, got %d", b.Count(16))
	}
	if _, ok := b.FirstClear(100); ok {
		t.Error("expected n beyond the bitmap to be clamped")
	}
}
