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

// Package cli builds git-style command-line interfaces: a top-level program
// followed by a sub-command name (nufs {mount,mkfs,fsck}) and the
// sub-command's own flags. Commands without a Run function are help topics,
// reachable only through '<program> help <topic>'.
//
// Example (from kurafs/nufs):
//
//      var commands cli.Commands
//      commands = append(commands, mount.MountCmd)
//      commands = append(commands, mkfs.MkfsCmd)
//      commands = append(commands, doc.LayoutCmd)
//
//      abstract := "nufs is a single-block-per-file userspace filesystem."
//      if err := cli.Process(abstract, commands); err != nil {
//              os.Exit(1)
//      }
//
// A command parses its own flags inside Run, returning CmdParseError(err) on
// failure so usage can be printed consistently:
//
//      func mkfsCmdRun(cmd *cli.Command, args []string) error {
//              var force bool
//              cmd.FlagSet.BoolVar(&force, "force", false, "Reformat existing images")
//              if err := cmd.FlagSet.Parse(args); err != nil {
//                      return cli.CmdParseError(err)
//              }
//              ...
//      }
package cli
