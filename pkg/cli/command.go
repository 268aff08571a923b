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

package cli

import (
	"flag"
	"strings"
)

type Command struct {
	// Run runs the command with the arguments following the command name. A
	// nil Run marks the command as a help topic.
	Run func(cmd *Command, args []string) error

	// UsageLine is the one-line usage message. The first word is taken to be
	// the command name.
	UsageLine string

	// Short is shown in the '<program> help' listing.
	Short string

	// Long is shown by '<program> help <command>'.
	Long string

	// FlagSet holds the flags specific to the command. Its output is
	// discarded; Process prints usage on parse errors instead.
	FlagSet flag.FlagSet
}

type Commands []*Command

func (cs Commands) find(name string) *Command {
	for _, c := range cs {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

func (c *Command) Name() string {
	name := c.UsageLine
	if i := strings.Index(name, " "); i >= 0 {
		name = name[:i]
	}
	return name
}

func (c *Command) Runnable() bool {
	return c.Run != nil
}

type parseError struct {
	err error
}

func (p *parseError) Error() string { return p.err.Error() }

// CmdParseError marks err as a command-line parsing failure, for which
// Process prints the command's usage rather than propagating the error.
func CmdParseError(err error) error {
	if err == nil {
		return nil
	}
	return &parseError{err: err}
}
