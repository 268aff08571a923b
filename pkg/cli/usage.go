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
	"fmt"
	"io"
	"strings"
	"text/template"
	"unicode"
)

const overviewText = `{{abstract}}

Usage:

    {{program}} <command> [arguments]

Commands:
{{range .}}{{if .Runnable}}
    {{.Name | printf "%-14s"}} {{.Short}}{{end}}{{end}}

Help topics:
{{range .}}{{if not .Runnable}}
    {{.Name | printf "%-14s"}} {{.Short}}{{end}}{{end}}

Run '{{program}} help <command>' or '{{program}} help <topic>' for details.
`

const helpText = `{{if .Runnable}}Usage: {{program}} {{.UsageLine}}

{{else}}Topic: {{.Short}}

{{end}}{{.Long | trim}}
`

const synopsisText = `Usage:

    {{program}} {{.UsageLine}}

Flags:
`

// printer renders usage text for one program.
type printer struct {
	program  string
	abstract string
}

func (p printer) render(w io.Writer, text string, data interface{}) {
	t := template.New("usage").Funcs(template.FuncMap{
		"trim":     strings.TrimSpace,
		"abstract": func() string { return p.abstract },
		"program":  func() string { return p.program },
	})
	template.Must(t.Parse(text))
	if err := t.Execute(w, data); err != nil {
		panic(err)
	}
}

func (p printer) overview(w io.Writer, commands Commands) {
	p.render(w, overviewText, commands)
}

// help prints the long description of the named command or topic. It reports
// false if no such entry exists.
func (p printer) help(w io.Writer, name string, commands Commands) bool {
	cmd := commands.find(name)
	if cmd == nil {
		return false
	}
	p.render(w, helpText, cmd)
	return true
}

// synopsis prints a command's usage line followed by its flag defaults.
func (p printer) synopsis(w io.Writer, cmd *Command) {
	p.render(w, synopsisText, cmd)
	cmd.FlagSet.SetOutput(w)
	cmd.FlagSet.PrintDefaults()
}

func (p printer) parseFailure(w io.Writer, cmd *Command, err error) {
	fmt.Fprintln(w, capitalize(err.Error()))
	fmt.Fprintln(w)
	p.synopsis(w, cmd)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
