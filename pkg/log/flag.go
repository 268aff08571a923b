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
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"regexp"
	"strings"
)

var (
	filterFileRegex = regexp.MustCompile(`^[\w\-]+\.go$`)
	lineNumberRegex = regexp.MustCompile(`^\d+$`)
)

// ModeFlag is a flag.Value for a global log mode.
type ModeFlag struct {
	m   Mode
	set bool
}

func (f *ModeFlag) String() string {
	if f == nil || !f.set {
		return DefaultMode.String()
	}
	return f.m.String()
}

func (f *ModeFlag) Set(value string) error {
	m, err := ParseMode(value)
	if err != nil {
		return err
	}
	f.m, f.set = m, true
	return nil
}

// FileMode is a single per-file override.
type FileMode struct {
	File string
	Mode Mode
}

// FilterFlag is a flag.Value for a comma-separated list of file.go:mode
// overrides.
type FilterFlag []FileMode

func (f *FilterFlag) String() string {
	if f == nil {
		return "[]"
	}
	parts := make([]string, 0, len(*f))
	for _, fm := range *f {
		parts = append(parts, fmt.Sprintf("%s:%s", fm.File, fm.Mode))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func (f *FilterFlag) Set(value string) error {
	for _, entry := range strings.Split(value, ",") {
		parts := strings.Split(entry, ":")
		if len(parts) != 2 {
			return fmt.Errorf("improperly formatted filter %q, expected fname.go:mode", entry)
		}
		if !filterFileRegex.MatchString(parts[0]) {
			return fmt.Errorf("expected filename %q to match %q", parts[0], filterFileRegex)
		}
		m, err := ParseMode(parts[1])
		if err != nil {
			return err
		}
		*f = append(*f, FileMode{File: parts[0], Mode: m})
	}
	return nil
}

// TracePointFlag is a flag.Value for a comma-separated list of file.go:line
// tracepoints.
type TracePointFlag []string

func (f *TracePointFlag) String() string {
	if f == nil {
		return "[]"
	}
	return fmt.Sprint([]string(*f))
}

func (f *TracePointFlag) Set(value string) error {
	for _, entry := range strings.Split(value, ",") {
		parts := strings.Split(entry, ":")
		if len(parts) != 2 {
			return fmt.Errorf("improperly formatted tracepoint %q, expected fname.go:line", entry)
		}
		if !filterFileRegex.MatchString(parts[0]) {
			return fmt.Errorf("expected filename %q to match %q", parts[0], filterFileRegex)
		}
		if !lineNumberRegex.MatchString(parts[1]) {
			return fmt.Errorf("expected line number %q to match %q", parts[1], lineNumberRegex)
		}
		*f = append(*f, entry)
	}
	return nil
}

// CommandFlags bundles the logging flags every nufs command accepts.
type CommandFlags struct {
	Dir            string
	SuppressStderr bool
	Mode           ModeFlag
	Filter         FilterFlag
	TracePoints    TracePointFlag
}

// Register defines the logging flags on fs.
func (c *CommandFlags) Register(fs *flag.FlagSet) {
	fs.StringVar(&c.Dir, "log-dir", "",
		"Write log files to the specified directory")
	fs.BoolVar(&c.SuppressStderr, "suppress-stderr", false,
		"Suppress standard error logging")
	fs.Var(&c.Mode, "log-mode",
		"Log mode for logs emitted globally (can be overridden using -log-filter)")
	fs.Var(&c.Filter, "log-filter",
		"Comma-separated list of pattern:level settings for file-filtered logging")
	fs.Var(&c.TracePoints, "log-backtrace-at",
		"Comma-separated list of filename:N settings to emit backtraces")
}

// Logger applies the parsed global settings and returns a logger writing to
// the configured destinations.
func (c *CommandFlags) Logger() *Logger {
	if c.Mode.set {
		SetGlobalLogMode(c.Mode.m)
	}
	for _, fm := range c.Filter {
		SetFileLogMode(fm.File, fm.Mode)
	}
	for _, tp := range c.TracePoints {
		SetTracePoint(tp)
	}

	var writer io.Writer = ioutil.Discard
	if c.Dir != "" {
		writer = LogRotationWriter(c.Dir, 50<<20 /* 50 MiB */)
	}
	if !c.SuppressStderr {
		writer = MultiWriter(writer, os.Stderr)
	}
	writer = SynchronizedWriter(writer)
	logf := Ldate | Ltime | Lmicroseconds | Llongfile | LUTC | Lmode
	return New(Writer(writer), Flags(logf), SkipBasePath())
}
