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

	"github.com/kurafs/nufs/pkg/blockstore"
)

// Errors returned by Filesystem operations. Operations wrap them with
// context; test with errors.Is.
var (
	ErrNotFound         = errors.New("no such file or directory")
	ErrNotADirectory    = errors.New("not a directory")
	ErrIsDirectory      = errors.New("is a directory")
	ErrAlreadyExists    = errors.New("file exists")
	ErrNotEmpty         = errors.New("directory not empty")
	ErrOutOfInodes      = errors.New("no free inodes")
	ErrOutOfSpace       = blockstore.ErrOutOfSpace
	ErrCapacityExceeded = errors.New("exceeds block capacity")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrNameTooLong      = errors.New("file name too long")
	ErrNotSupported     = errors.New("operation not supported")
)
