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
	"errors"
	"flag"
	"fmt"
	"io/ioutil"
	"os"
)

// Process dispatches os.Args to the matching command. Usage errors exit the
// process with status 2; errors returned by a command's Run are returned.
func Process(abstract string, commands Commands) error {
	program, args := os.Args[0], os.Args[1:]
	return process(program, abstract, commands, args)
}

func process(program, abstract string, commands Commands, args []string) error {
	p := printer{program: program, abstract: abstract}
	for _, cmd := range commands {
		cmd.FlagSet.Init(cmd.Name(), flag.ContinueOnError)
		cmd.FlagSet.SetOutput(ioutil.Discard)
	}

	if len(args) == 0 {
		p.overview(os.Stdout, commands)
		return nil
	}

	command := args[0]
	if (command == "help" || command == "-h") && len(args) == 1 {
		p.overview(os.Stdout, commands)
		return nil
	}

	if command == "help" {
		if len(args) > 2 {
			fmt.Fprintf(os.Stderr, "Usage: %s help [command]\n\n", program)
			fmt.Fprintln(os.Stderr, "Too many arguments given.")
			os.Exit(2)
		}
		if !p.help(os.Stdout, args[1], commands) {
			fmt.Fprintf(os.Stderr, "Unknown help topic '%s'\n\n", args[1])
			fmt.Fprintf(os.Stderr, "Run '%s help' for available topics.\n", program)
			os.Exit(2)
		}
		return nil
	}

	for _, cmd := range commands {
		if cmd.Name() != command || !cmd.Runnable() {
			continue
		}

		err := cmd.Run(cmd, args[1:])
		var perr *parseError
		if !errors.As(err, &perr) {
			return err
		}

		// -h is reported by the flag package as an error, but asking for
		// help is not a failure.
		if errors.Is(perr.err, flag.ErrHelp) {
			p.synopsis(os.Stdout, cmd)
			return nil
		}

		p.parseFailure(os.Stderr, cmd, perr)
		os.Exit(2)
	}

	fmt.Fprintf(os.Stderr, "Unknown command '%s'\n\n", command)
	fmt.Fprintf(os.Stderr, "Run '%s help' for available commands.\n", program)
	os.Exit(2)
	return nil
}
