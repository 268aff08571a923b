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

package log

import (
	"fmt"
	"strings"
)

// Mode is a bit set of log levels. A statement is emitted when its mode
// intersects the mode in effect for its file.
type Mode int

const (
	InfoMode Mode = 1 << iota
	WarnMode
	ErrorMode
	FatalMode
	DebugMode

	// DisabledMode doubles as the test for intersection:
	// (lmode&gmode) != DisabledMode.
	DisabledMode Mode = 0
	DefaultMode       = InfoMode | WarnMode | ErrorMode
)

func (m Mode) byte() byte {
	switch m {
	case InfoMode:
		return 'I'
	case WarnMode:
		return 'W'
	case ErrorMode:
		return 'E'
	case FatalMode:
		return 'F'
	case DebugMode:
		return 'D'
	default:
		return '?'
	}
}

// String renders m as a '|'-separated list, the inverse of ParseMode.
func (m Mode) String() string {
	if m == DisabledMode {
		return "disabled"
	}

	var names []string
	if m&InfoMode != DisabledMode {
		names = append(names, "info")
	}
	if m&WarnMode != DisabledMode {
		names = append(names, "warn")
	}
	if m&ErrorMode != DisabledMode {
		names = append(names, "error")
	}
	if m&DebugMode != DisabledMode {
		names = append(names, "debug")
	}
	return strings.Join(names, "|")
}

// ParseMode parses a '|'-separated list of levels, e.g. "info|warn", or
// "disabled".
func ParseMode(value string) (Mode, error) {
	var m Mode
	for _, name := range strings.Split(value, "|") {
		switch name {
		case "info":
			m |= InfoMode
		case "warn":
			m |= WarnMode
		case "error":
			m |= ErrorMode
		case "debug":
			m |= DebugMode
		case "disabled":
			return DisabledMode, nil
		default:
			return m, fmt.Errorf("unrecognized mode: %q", name)
		}
	}
	return m, nil
}
