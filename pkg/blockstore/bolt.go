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

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"github.com/boltdb/bolt"
)

var blocksBucket = []byte("blocks")

// boltDevice keeps an image as a bolt database holding one key per written
// block. Blocks live in memory while the device is open; Sync writes the
// dirty ones back in a single transaction.
type boltDevice struct {
	*MemDevice
	db       *bolt.DB
	readOnly bool
}

// OpenBolt opens or creates a bolt-backed image at path. A private image must
// already exist; it is opened read-only under a shared lock and Sync never
// writes to it.
func OpenBolt(path string, private bool) (Device, error) {
	opts := &bolt.Options{Timeout: time.Second}
	if private {
		if _, err := os.Stat(path); err != nil {
			return nil, err
		}
		opts.ReadOnly = true
	}
	db, err := bolt.Open(path, 0644, opts)
	if err != nil {
		return nil, fmt.Errorf("open %s: %v", path, err)
	}

	if !private {
		err = db.Update(func(tx *bolt.Tx) error {
			if _, err := tx.CreateBucketIfNotExists(blocksBucket); err != nil {
				return fmt.Errorf("create bucket: %s", err)
			}
			return nil
		})
		if err != nil {
			db.Close()
			return nil, err
		}
	}

	d := &boltDevice{MemDevice: NewMemDevice(), db: db, readOnly: private}
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(blocksBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			if len(k) != 4 || len(v) != BlockSize {
				return fmt.Errorf("malformed block record %x (%d bytes)", k, len(v))
			}
			n := int(binary.BigEndian.Uint32(k))
			if n >= BlockCount {
				return fmt.Errorf("block record %d: %w", n, ErrInvalidBlock)
			}
			// v is only valid for the lifetime of the transaction; load
			// copies it.
			d.load(n, v)
			return nil
		})
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

func blockKey(n int) []byte {
	k := make([]byte, 4)
	binary.BigEndian.PutUint32(k, uint32(n))
	return k
}

func (d *boltDevice) Sync() error {
	if d.readOnly {
		return nil
	}
	return d.flush(func(dirty []*blockItem) error {
		if len(dirty) == 0 {
			return nil
		}
		return d.db.Update(func(tx *bolt.Tx) error {
			b := tx.Bucket(blocksBucket)
			for _, item := range dirty {
				v := make([]byte, BlockSize)
				copy(v, item.data)
				if err := b.Put(blockKey(item.n), v); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

func (d *boltDevice) Close() error {
	return d.db.Close()
}
