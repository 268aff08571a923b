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

package blockstore

import "fmt"

// Backends accepted by OpenDevice.
const (
	BackendMmap = "mmap"
	BackendBolt = "bolt"
)

// OpenDevice opens the image at path with the named backend. A private device
// never writes back to the image; see OpenImage and OpenBolt.
func OpenDevice(backend, path string, private bool) (Device, error) {
	switch backend {
	case BackendMmap, "":
		return OpenImage(path, private)
	case BackendBolt:
		return OpenBolt(path, private)
	default:
		return nil, fmt.Errorf("unknown backend %q (expected %s or %s)", backend, BackendMmap, BackendBolt)
	}
}
