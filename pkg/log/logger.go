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
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// Logger writes leveled log lines to an io.Writer, each prefixed by a header
// shaped by its flags.
type Logger struct {
	w        io.Writer
	flag     Flag
	basePath string
}

// New returns a Logger writing to a synchronized os.Stderr with LstdFlags,
// overridden by the provided options, if any:
//
//   I180419 06:33:04.606396 directory.go:42] message
func New(options ...option) *Logger {
	l := &Logger{
		w:    DefaultWriter(),
		flag: LstdFlags,
	}
	for _, option := range options {
		option(l)
	}
	return l
}

// Discarder returns a Logger that drops everything.
func Discarder() *Logger {
	return New(Writer(ioutil.Discard))
}

func (l *Logger) Info(v ...interface{}) { l.log(InfoMode, fmt.Sprintln(v...)) }
func (l *Logger) Warn(v ...interface{}) { l.log(WarnMode, fmt.Sprintln(v...)) }
func (l *Logger) Error(v ...interface{}) { l.log(ErrorMode, fmt.Sprintln(v...)) }
func (l *Logger) Debug(v ...interface{}) { l.log(DebugMode, fmt.Sprintln(v...)) }

func (l *Logger) Infof(format string, v ...interface{}) {
	l.log(InfoMode, fmt.Sprintf(format+"\n", v...))
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	l.log(WarnMode, fmt.Sprintf(format+"\n", v...))
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	l.log(ErrorMode, fmt.Sprintf(format+"\n", v...))
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	l.log(DebugMode, fmt.Sprintf(format+"\n", v...))
}

// Fatal logs unconditionally, then exits with status 255.
func (l *Logger) Fatal(v ...interface{}) {
	l.log(FatalMode, fmt.Sprintln(v...))
	os.Exit(255)
}

// Fatalf logs unconditionally, then exits with status 255.
func (l *Logger) Fatalf(format string, v ...interface{}) {
	l.log(FatalMode, fmt.Sprintf(format+"\n", v...))
	os.Exit(255)
}

// log must only be called from the exported wrappers above; the caller two
// frames up is the logging statement.
func (l *Logger) log(lmode Mode, data string) {
	file, line := caller(2)
	bfile := filepath.Base(file)

	if GetTracePoint(fmt.Sprintf("%s:%d", bfile, line)) {
		l.w.Write(stacktrace(2))
	}

	if !enabled(bfile, lmode) {
		return
	}

	var buf bytes.Buffer
	buf.Write(l.header(lmode, time.Now(), file, line))
	buf.WriteString(data)
	l.w.Write(buf.Bytes())
}

// enabled reports whether a statement of mode lmode in file bfile is emitted.
// A file override, when present, replaces the global mode for that file.
// Fatal statements are never filtered.
func enabled(bfile string, lmode Mode) bool {
	if lmode&FatalMode != DisabledMode {
		return true
	}
	if fmode, ok := GetFileLogMode(bfile); ok {
		return fmode&lmode != DisabledMode
	}
	return GetGlobalLogMode()&lmode != DisabledMode
}

func (l *Logger) header(lmode Mode, t time.Time, file string, line int) []byte {
	var b []byte
	if l.flag&Lmode != 0 {
		b = append(b, lmode.byte())
	}
	if l.flag&LUTC != 0 {
		t = t.UTC()
	}
	if l.flag&Ldate != 0 {
		year, month, day := t.Date()
		if year < 2000 {
			year = 2000
		}
		b = itoa(b, year-2000, 2)
		b = itoa(b, int(month), 2)
		b = itoa(b, day, 2)
		if l.flag&(Ltime|Lmicroseconds) != 0 {
			b = append(b, ' ')
		}
	}
	if l.flag&(Ltime|Lmicroseconds) != 0 {
		hour, min, sec := t.Clock()
		b = itoa(b, hour, 2)
		b = append(b, ':')
		b = itoa(b, min, 2)
		b = append(b, ':')
		b = itoa(b, sec, 2)
		if l.flag&Lmicroseconds != 0 {
			b = append(b, '.')
			b = itoa(b, t.Nanosecond()/1e3, 6)
		}
	}
	b = append(b, ' ')

	if l.flag&(Lshortfile|Llongfile) != 0 {
		if l.flag&Lshortfile != 0 {
			file = filepath.Base(file)
		} else if l.basePath != "" {
			file = strings.TrimPrefix(strings.TrimPrefix(file, l.basePath), "/")
		}
		b = append(b, file...)
		b = append(b, ':')
		b = itoa(b, line, -1)
		b = append(b, "] "...)
	}
	return b
}

// itoa appends the fixed-width decimal form of i. A negative width avoids
// zero-padding.
func itoa(b []byte, i int, wid int) []byte {
	var tmp [20]byte
	bp := len(tmp) - 1
	for i >= 10 || wid > 1 {
		wid--
		q := i / 10
		tmp[bp] = byte('0' + i - q*10)
		bp--
		i = q
	}
	tmp[bp] = byte('0' + i)
	return append(b, tmp[bp:]...)
}

// stacktrace returns the current goroutine's stack, minus the top skip
// callers (and stacktrace itself).
func stacktrace(skip int) []byte {
	// Every frame is two lines of output; debug.Stack and stacktrace add one
	// frame each.
	skip = 2*skip + 4

	lines := bytes.Split(debug.Stack(), []byte("\n"))
	if len(lines) <= 1+skip {
		return bytes.Join(lines, []byte("\n"))
	}
	// Keep the "goroutine N [running]:" line.
	lines = append(lines[:1], lines[1+skip:]...)
	return bytes.Join(lines, []byte("\n"))
}

// caller returns the file and line depth frames above its own caller.
func caller(depth int) (file string, line int) {
	_, file, line, ok := runtime.Caller(depth + 1)
	if !ok {
		return "[???]", -1
	}
	return file, line
}
